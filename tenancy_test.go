package connector

import (
	"context"
	"testing"
)

func TestStaticTenancySingleSite(t *testing.T) {
	tenancy := singleSiteTenancy(t)
	ctx := context.Background()

	if tenancy.IsMultiTenant() {
		t.Fatal("expected single-site tenancy")
	}

	u, ok, err := tenancy.LookupUser(ctx, 42)
	if err != nil || !ok || !u.HasRole(RoleAdministrator) {
		t.Fatalf("unexpected lookup: %+v ok=%v err=%v", u, ok, err)
	}
	if _, ok, _ := tenancy.LookupUser(ctx, 1000); ok {
		t.Fatal("expected unknown user")
	}

	super, err := tenancy.IsSuperAdmin(ctx, 42)
	if err != nil || super {
		t.Fatalf("single sites have no super admins, got %v err=%v", super, err)
	}

	url, err := tenancy.AdminURL(ctx, 42)
	if err != nil || url != testAdminURL {
		t.Fatalf("expected %q, got %q err=%v", testAdminURL, url, err)
	}
	if tenancy.SiteCount() != 1 {
		t.Fatalf("expected 1 site, got %d", tenancy.SiteCount())
	}
}

func TestStaticTenancyNetwork(t *testing.T) {
	tenancy := multiSiteTenancy(t)
	ctx := context.Background()

	if super, _ := tenancy.IsSuperAdmin(ctx, 1); !super {
		t.Fatal("expected user 1 to be super admin")
	}
	if super, _ := tenancy.IsSuperAdmin(ctx, 42); super {
		t.Fatal("expected user 42 not to be super admin")
	}

	if url, _ := tenancy.AdminURL(ctx, 1); url != testNetworkAdminURL {
		t.Fatalf("expected network admin url, got %q", url)
	}
	if url, _ := tenancy.AdminURL(ctx, 42); url != testAdminURL {
		t.Fatalf("expected site admin url, got %q", url)
	}
}

func TestStaticTenancyValidation(t *testing.T) {
	cases := []StaticTenancyConfig{
		{},
		{MultiTenant: true, AdminURL: testAdminURL},
		{AdminURL: testAdminURL, Users: []User{{ID: 0}}},
		{AdminURL: testAdminURL, Users: []User{{ID: 5}, {ID: 5}}},
	}
	for i, cfg := range cases {
		if _, err := NewStaticTenancy(cfg); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestStaticTenancySetUsersCopiesRoles(t *testing.T) {
	tenancy := singleSiteTenancy(t)
	roles := []string{RoleAdministrator}
	if err := tenancy.SetUsers([]User{{ID: 3, Roles: roles}}, nil); err != nil {
		t.Fatalf("SetUsers failed: %v", err)
	}
	roles[0] = "subscriber"

	u, _, _ := tenancy.LookupUser(context.Background(), 3)
	if !u.HasRole(RoleAdministrator) {
		t.Fatal("tenancy shares the caller's role slice")
	}
}
