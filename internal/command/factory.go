package command

import (
	"context"
	"fmt"

	"github.com/isometry/groupsync/internal/cognito"
	"github.com/isometry/groupsync/internal/config"
	"github.com/isometry/groupsync/internal/directory"
	"github.com/isometry/groupsync/internal/ldap"
)

// DefaultFactory opens the backend selected by cfg.Backend.
func DefaultFactory(ctx context.Context, cfg *config.Config) (directory.Directory, func() error, error) {
	switch cfg.Backend {
	case config.BackendCognito:
		dir, err := cognito.NewFromRegion(ctx, cfg.Region)
		if err != nil {
			return nil, nil, err
		}
		return dir, func() error { return nil }, nil
	case config.BackendLDAP:
		dir, err := ldap.Open(ctx, cfg.LDAP)
		if err != nil {
			return nil, nil, err
		}
		return dir, dir.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported backend %q", cfg.Backend)
	}
}
