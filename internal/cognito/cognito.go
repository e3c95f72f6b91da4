// Package cognito implements directory.Directory over an Amazon Cognito user
// pool. The directory ID is the user pool ID.
package cognito

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/isometry/groupsync/internal/directory"
	"github.com/isometry/groupsync/internal/logging"
	"github.com/isometry/groupsync/internal/pager"
)

// API is the subset of the Cognito Identity Provider client used here.
type API interface {
	GetGroup(ctx context.Context, in *cip.GetGroupInput, optFns ...func(*cip.Options)) (*cip.GetGroupOutput, error)
	CreateGroup(ctx context.Context, in *cip.CreateGroupInput, optFns ...func(*cip.Options)) (*cip.CreateGroupOutput, error)
	ListGroups(ctx context.Context, in *cip.ListGroupsInput, optFns ...func(*cip.Options)) (*cip.ListGroupsOutput, error)
	ListUsersInGroup(ctx context.Context, in *cip.ListUsersInGroupInput, optFns ...func(*cip.Options)) (*cip.ListUsersInGroupOutput, error)
	AdminAddUserToGroup(ctx context.Context, in *cip.AdminAddUserToGroupInput, optFns ...func(*cip.Options)) (*cip.AdminAddUserToGroupOutput, error)
	GetCSVHeader(ctx context.Context, in *cip.GetCSVHeaderInput, optFns ...func(*cip.Options)) (*cip.GetCSVHeaderOutput, error)
	ListUsers(ctx context.Context, in *cip.ListUsersInput, optFns ...func(*cip.Options)) (*cip.ListUsersOutput, error)
}

// UsernameColumn is the user import header column holding the username.
const UsernameColumn = "cognito:username"

var _ API = (*cip.Client)(nil)

// Directory is a Cognito-backed directory.Directory.
type Directory struct {
	api API
}

var _ directory.Directory = (*Directory)(nil)

// New wraps an API client.
func New(api API) *Directory {
	return &Directory{api: api}
}

// NewFromRegion builds a client from the default AWS credential chain.
func NewFromRegion(ctx context.Context, region string) (*Directory, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS configuration: %w", err)
	}

	tflog.SubsystemDebug(ctx, logging.SubsystemCognito, "Created Cognito client", map[string]any{
		"region": region,
	})

	return New(cip.NewFromConfig(cfg)), nil
}

func (d *Directory) GetGroup(ctx context.Context, directoryID, name string) directory.Lookup {
	out, err := d.api.GetGroup(ctx, &cip.GetGroupInput{
		UserPoolId: aws.String(directoryID),
		GroupName:  aws.String(name),
	})
	if err != nil {
		return directory.LookupFromError(mapError("get_group", name, err))
	}
	if out == nil || out.Group == nil {
		return directory.Found(directory.GroupRecord{Name: name})
	}
	return directory.Found(groupRecord(*out.Group))
}

func (d *Directory) CreateGroup(ctx context.Context, in directory.CreateGroupInput) (directory.GroupRecord, error) {
	out, err := d.api.CreateGroup(ctx, &cip.CreateGroupInput{
		UserPoolId:  aws.String(in.DirectoryID),
		GroupName:   aws.String(in.Name),
		Description: in.Description,
		RoleArn:     in.RoleReference,
		Precedence:  in.Precedence,
	})
	if err != nil {
		return directory.GroupRecord{}, mapError("create_group", in.Name, err)
	}

	if out == nil || out.Group == nil {
		record := directory.GroupRecord{
			Name:          in.Name,
			Description:   aws.ToString(in.Description),
			RoleReference: aws.ToString(in.RoleReference),
			Precedence:    in.Precedence,
		}
		return record, nil
	}
	return groupRecord(*out.Group), nil
}

func (d *Directory) ListGroups(ctx context.Context, directoryID string, pageSize int32, cursor string) (pager.Page[directory.GroupRecord], error) {
	out, err := d.api.ListGroups(ctx, &cip.ListGroupsInput{
		UserPoolId: aws.String(directoryID),
		Limit:      aws.Int32(pageSize),
		NextToken:  nextToken(cursor),
	})
	if err != nil {
		return pager.Page[directory.GroupRecord]{}, mapError("list_groups", directoryID, err)
	}

	page := pager.Page[directory.GroupRecord]{
		Items:      make([]directory.GroupRecord, 0, len(out.Groups)),
		NextCursor: aws.ToString(out.NextToken),
	}
	for _, g := range out.Groups {
		page.Items = append(page.Items, groupRecord(g))
	}

	tflog.SubsystemTrace(ctx, logging.SubsystemCognito, "Listed groups page", map[string]any{
		"user_pool_id": directoryID,
		"count":        len(page.Items),
		"more":         page.NextCursor != "",
	})

	return page, nil
}

func (d *Directory) ListUsersInGroup(ctx context.Context, directoryID, groupName string, pageSize int32, cursor string) (pager.Page[string], error) {
	out, err := d.api.ListUsersInGroup(ctx, &cip.ListUsersInGroupInput{
		UserPoolId: aws.String(directoryID),
		GroupName:  aws.String(groupName),
		Limit:      aws.Int32(pageSize),
		NextToken:  nextToken(cursor),
	})
	if err != nil {
		return pager.Page[string]{}, mapError("list_users_in_group", groupName, err)
	}

	page := pager.Page[string]{
		Items:      make([]string, 0, len(out.Users)),
		NextCursor: aws.ToString(out.NextToken),
	}
	for _, u := range out.Users {
		if u.Username != nil {
			page.Items = append(page.Items, *u.Username)
		}
	}

	tflog.SubsystemTrace(ctx, logging.SubsystemCognito, "Listed group members page", map[string]any{
		"user_pool_id": directoryID,
		"group_name":   groupName,
		"count":        len(page.Items),
		"more":         page.NextCursor != "",
	})

	return page, nil
}

// AddUserToGroup always reports MembershipAdded on success: Cognito accepts
// the call for existing members without saying so.
func (d *Directory) AddUserToGroup(ctx context.Context, directoryID, groupName, username string) (directory.MembershipOutcome, error) {
	_, err := d.api.AdminAddUserToGroup(ctx, &cip.AdminAddUserToGroupInput{
		UserPoolId: aws.String(directoryID),
		GroupName:  aws.String(groupName),
		Username:   aws.String(username),
	})
	if err != nil {
		return 0, mapError("add_user_to_group", groupName+"/"+username, err)
	}
	return directory.MembershipAdded, nil
}

// UserAttributes returns the pool's user import CSV header.
func (d *Directory) UserAttributes(ctx context.Context, directoryID string) ([]string, error) {
	out, err := d.api.GetCSVHeader(ctx, &cip.GetCSVHeaderInput{
		UserPoolId: aws.String(directoryID),
	})
	if err != nil {
		return nil, mapError("get_csv_header", directoryID, err)
	}
	if out == nil || len(out.CSVHeader) == 0 {
		return []string{UsernameColumn}, nil
	}
	return out.CSVHeader, nil
}

func (d *Directory) ListUsers(ctx context.Context, directoryID string, pageSize int32, cursor string) (pager.Page[directory.UserRecord], error) {
	out, err := d.api.ListUsers(ctx, &cip.ListUsersInput{
		UserPoolId:      aws.String(directoryID),
		Limit:           aws.Int32(pageSize),
		PaginationToken: nextToken(cursor),
	})
	if err != nil {
		return pager.Page[directory.UserRecord]{}, mapError("list_users", directoryID, err)
	}

	page := pager.Page[directory.UserRecord]{
		Items:      make([]directory.UserRecord, 0, len(out.Users)),
		NextCursor: aws.ToString(out.PaginationToken),
	}
	for _, u := range out.Users {
		page.Items = append(page.Items, userRecord(u))
	}

	tflog.SubsystemTrace(ctx, logging.SubsystemCognito, "Listed users page", map[string]any{
		"user_pool_id": directoryID,
		"count":        len(page.Items),
		"more":         page.NextCursor != "",
	})

	return page, nil
}

func nextToken(cursor string) *string {
	if cursor == "" {
		return nil
	}
	return aws.String(cursor)
}
