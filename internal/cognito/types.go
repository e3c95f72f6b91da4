package cognito

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"

	"github.com/isometry/groupsync/internal/directory"
)

func groupRecord(g types.GroupType) directory.GroupRecord {
	return directory.GroupRecord{
		Name:          aws.ToString(g.GroupName),
		Description:   aws.ToString(g.Description),
		RoleReference: aws.ToString(g.RoleArn),
		Precedence:    g.Precedence,
	}
}

func userRecord(u types.UserType) directory.UserRecord {
	username := aws.ToString(u.Username)
	attrs := make(map[string]string, len(u.Attributes)+1)
	for _, a := range u.Attributes {
		attrs[strings.ToLower(aws.ToString(a.Name))] = aws.ToString(a.Value)
	}
	attrs[UsernameColumn] = username

	return directory.UserRecord{Username: username, Attributes: attrs}
}
