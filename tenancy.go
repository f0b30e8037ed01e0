package connector

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// Tenancy answers the host-platform questions the auto-login issuer asks.
// Implementations must be safe for concurrent use.
type Tenancy interface {
	// IsMultiTenant reports whether the deployment is a network of sites.
	IsMultiTenant() bool
	// LookupUser resolves userID. ok is false when no such account exists.
	LookupUser(ctx context.Context, userID int64) (user User, ok bool, err error)
	// IsSuperAdmin reports network-wide privilege. It is always false outside
	// a multi-tenant deployment.
	IsSuperAdmin(ctx context.Context, userID int64) (bool, error)
	// AdminURL is the landing page for userID's privilege tier.
	AdminURL(ctx context.Context, userID int64) (string, error)
}

// StaticTenancyConfig describes a fixed set of accounts and URLs.
type StaticTenancyConfig struct {
	MultiTenant     bool
	AdminURL        string
	NetworkAdminURL string
	Users           []User
	SuperAdmins     []int64
}

// StaticTenancy is a [Tenancy] over an in-memory account list. Accounts can be
// replaced at runtime with SetUsers.
type StaticTenancy struct {
	multiTenant     bool
	adminURL        string
	networkAdminURL string

	mu          sync.RWMutex
	users       map[int64]User
	superAdmins map[int64]struct{}
}

// NewStaticTenancy validates cfg and builds the lookup tables.
func NewStaticTenancy(cfg StaticTenancyConfig) (*StaticTenancy, error) {
	if strings.TrimSpace(cfg.AdminURL) == "" {
		return nil, errors.New("tenancy AdminURL is required")
	}
	if cfg.MultiTenant && strings.TrimSpace(cfg.NetworkAdminURL) == "" {
		return nil, errors.New("tenancy NetworkAdminURL is required in multi-tenant mode")
	}

	t := &StaticTenancy{
		multiTenant:     cfg.MultiTenant,
		adminURL:        cfg.AdminURL,
		networkAdminURL: cfg.NetworkAdminURL,
	}
	if err := t.SetUsers(cfg.Users, cfg.SuperAdmins); err != nil {
		return nil, err
	}
	return t, nil
}

// SetUsers swaps the account list.
func (t *StaticTenancy) SetUsers(users []User, superAdmins []int64) error {
	byID := make(map[int64]User, len(users))
	for _, u := range users {
		if u.ID <= 0 {
			return errors.New("tenancy user id must be > 0")
		}
		if _, dup := byID[u.ID]; dup {
			return errors.New("tenancy user id is duplicated")
		}
		u.Roles = append([]string(nil), u.Roles...)
		byID[u.ID] = u
	}

	supers := make(map[int64]struct{}, len(superAdmins))
	for _, id := range superAdmins {
		supers[id] = struct{}{}
	}

	t.mu.Lock()
	t.users = byID
	t.superAdmins = supers
	t.mu.Unlock()
	return nil
}

func (t *StaticTenancy) IsMultiTenant() bool {
	return t.multiTenant
}

func (t *StaticTenancy) LookupUser(_ context.Context, userID int64) (User, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	u, ok := t.users[userID]
	return u, ok, nil
}

func (t *StaticTenancy) IsSuperAdmin(_ context.Context, userID int64) (bool, error) {
	if !t.multiTenant {
		return false, nil
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	if _, ok := t.users[userID]; !ok {
		return false, nil
	}
	_, ok := t.superAdmins[userID]
	return ok, nil
}

func (t *StaticTenancy) AdminURL(ctx context.Context, userID int64) (string, error) {
	super, err := t.IsSuperAdmin(ctx, userID)
	if err != nil {
		return "", err
	}
	if super {
		return t.networkAdminURL, nil
	}
	return t.adminURL, nil
}

// SiteCount is 1 for a single site. Multi-tenant static deployments do not
// track their network size and report 0.
func (t *StaticTenancy) SiteCount() int {
	if t.multiTenant {
		return 0
	}
	return 1
}
