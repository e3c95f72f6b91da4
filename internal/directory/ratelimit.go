package directory

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/isometry/groupsync/internal/pager"
)

// RateLimited is a Directory that waits on a shared limiter before every
// call to the wrapped Directory.
type RateLimited struct {
	dir     Directory
	limiter *rate.Limiter
}

var _ Directory = (*RateLimited)(nil)

// NewRateLimited limits dir to perSecond calls per second. Bursts are
// allowed up to one second's worth of calls.
func NewRateLimited(dir Directory, perSecond float64) *RateLimited {
	burst := max(int(perSecond), 1)
	return &RateLimited{dir: dir, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (r *RateLimited) wait(ctx context.Context, operation string) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: waiting for rate limiter: %w", operation, err)
	}
	return nil
}

func (r *RateLimited) ListGroups(ctx context.Context, directoryID string, pageSize int32, cursor string) (pager.Page[GroupRecord], error) {
	if err := r.wait(ctx, "list_groups"); err != nil {
		return pager.Page[GroupRecord]{}, err
	}
	return r.dir.ListGroups(ctx, directoryID, pageSize, cursor)
}

func (r *RateLimited) GetGroup(ctx context.Context, directoryID, name string) Lookup {
	if err := r.wait(ctx, "get_group"); err != nil {
		return Failed(err)
	}
	return r.dir.GetGroup(ctx, directoryID, name)
}

func (r *RateLimited) CreateGroup(ctx context.Context, in CreateGroupInput) (GroupRecord, error) {
	if err := r.wait(ctx, "create_group"); err != nil {
		return GroupRecord{}, err
	}
	return r.dir.CreateGroup(ctx, in)
}

func (r *RateLimited) ListUsersInGroup(ctx context.Context, directoryID, groupName string, pageSize int32, cursor string) (pager.Page[string], error) {
	if err := r.wait(ctx, "list_users_in_group"); err != nil {
		return pager.Page[string]{}, err
	}
	return r.dir.ListUsersInGroup(ctx, directoryID, groupName, pageSize, cursor)
}

func (r *RateLimited) AddUserToGroup(ctx context.Context, directoryID, groupName, username string) (MembershipOutcome, error) {
	if err := r.wait(ctx, "add_user_to_group"); err != nil {
		return 0, err
	}
	return r.dir.AddUserToGroup(ctx, directoryID, groupName, username)
}

func (r *RateLimited) UserAttributes(ctx context.Context, directoryID string) ([]string, error) {
	if err := r.wait(ctx, "get_user_attributes"); err != nil {
		return nil, err
	}
	return r.dir.UserAttributes(ctx, directoryID)
}

func (r *RateLimited) ListUsers(ctx context.Context, directoryID string, pageSize int32, cursor string) (pager.Page[UserRecord], error) {
	if err := r.wait(ctx, "list_users"); err != nil {
		return pager.Page[UserRecord]{}, err
	}
	return r.dir.ListUsers(ctx, directoryID, pageSize, cursor)
}
