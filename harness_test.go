package connector

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/wboard/connector/signature"
)

const (
	testSiteURL         = "https://site.example"
	testAdminURL        = "https://site.example/wp-admin/"
	testNetworkAdminURL = "https://site.example/wp-admin/network/"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testHarness struct {
	t       testing.TB
	engine  *Engine
	clock   *fakeClock
	tenancy *StaticTenancy
	secret  string
}

func newTestRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func singleSiteTenancy(t testing.TB) *StaticTenancy {
	t.Helper()

	tenancy, err := NewStaticTenancy(StaticTenancyConfig{
		AdminURL: testAdminURL,
		Users: []User{
			{ID: 42, Login: "admin", Roles: []string{RoleAdministrator}},
			{ID: 7, Login: "editor", Roles: []string{"editor"}},
		},
	})
	if err != nil {
		t.Fatalf("NewStaticTenancy failed: %v", err)
	}
	return tenancy
}

func multiSiteTenancy(t testing.TB) *StaticTenancy {
	t.Helper()

	tenancy, err := NewStaticTenancy(StaticTenancyConfig{
		MultiTenant:     true,
		AdminURL:        testAdminURL,
		NetworkAdminURL: testNetworkAdminURL,
		Users: []User{
			{ID: 1, Login: "network", Roles: []string{RoleAdministrator}},
			{ID: 42, Login: "admin", Roles: []string{RoleAdministrator}},
		},
		SuperAdmins: []int64{1},
	})
	if err != nil {
		t.Fatalf("NewStaticTenancy failed: %v", err)
	}
	return tenancy
}

// newTestEngine builds an engine on a fake clock without installing a secret.
func newTestEngine(t testing.TB, opts ...func(*Builder)) *testHarness {
	t.Helper()

	clock := newFakeClock()
	tenancy := singleSiteTenancy(t)

	cfg := DefaultConfig()
	cfg.Autologin.SiteURL = testSiteURL

	b := New().
		WithConfig(cfg).
		WithClock(clock.Now).
		WithTenancy(tenancy)
	for _, opt := range opts {
		opt(b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testHarness{
		t:       t,
		engine:  engine,
		clock:   clock,
		tenancy: tenancy,
	}
}

// newTestHarness is newTestEngine plus an installed secret.
func newTestHarness(t testing.TB, opts ...func(*Builder)) *testHarness {
	t.Helper()

	h := newTestEngine(t, opts...)
	secret, err := h.engine.EnsureSecret(context.Background())
	if err != nil {
		t.Fatalf("EnsureSecret failed: %v", err)
	}
	h.secret = secret
	return h
}

// signed returns a request the board would send now.
func (h *testHarness) signed(ip, body string) SignedRequest {
	return h.signedAt(ip, body, h.clock.Now().Unix())
}

func (h *testHarness) signedAt(ip, body string, ts int64) SignedRequest {
	return SignedRequest{
		ClientIP:  ip,
		Timestamp: strconv.FormatInt(ts, 10),
		Signature: signature.Sign(h.secret, ts, []byte(body)),
		Body:      []byte(body),
	}
}
