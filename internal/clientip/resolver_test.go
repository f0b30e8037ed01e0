package clientip

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResolvePriority(t *testing.T) {
	r := New(DefaultHeaders)

	cases := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{
			name:    "cdn header wins",
			headers: map[string]string{"CF-Connecting-IP": "203.0.113.9", "X-Forwarded-For": "198.51.100.1", "X-Real-IP": "192.0.2.1"},
			remote:  "10.0.0.1:5555",
			want:    "203.0.113.9",
		},
		{
			name:    "forwarded first entry trimmed",
			headers: map[string]string{"X-Forwarded-For": " 198.51.100.1 , 10.0.0.2"},
			remote:  "10.0.0.1:5555",
			want:    "198.51.100.1",
		},
		{
			name:    "invalid cdn header skipped",
			headers: map[string]string{"CF-Connecting-IP": "not-an-ip", "X-Real-IP": "192.0.2.1"},
			remote:  "10.0.0.1:5555",
			want:    "192.0.2.1",
		},
		{
			name:   "remote addr fallback",
			remote: "10.0.0.1:5555",
			want:   "10.0.0.1",
		},
		{
			name:   "ipv6 remote addr",
			remote: "[2001:db8::1]:443",
			want:   "2001:db8::1",
		},
		{
			name:   "nothing valid",
			remote: "garbage",
			want:   Unknown,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := http.Header{}
			for k, v := range tc.headers {
				h.Set(k, v)
			}
			if got := r.Resolve(h, tc.remote); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestResolveSocketOnly(t *testing.T) {
	r := New(nil)
	h := http.Header{}
	h.Set("X-Forwarded-For", "198.51.100.1")

	if got := r.Resolve(h, "10.0.0.1:80"); got != "10.0.0.1" {
		t.Fatalf("expected forwarded header to be ignored, got %q", got)
	}
}

func TestFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:1234"
	req.Header.Set("x-real-ip", "192.0.2.20")

	r := New([]string{" x-real-ip ", ""})
	if got := r.FromRequest(req); got != "192.0.2.20" {
		t.Fatalf("expected header value, got %q", got)
	}
	if got := r.Headers(); len(got) != 1 || got[0] != "X-Real-Ip" {
		t.Fatalf("unexpected canonical headers %v", got)
	}
	if got := r.FromRequest(nil); got != Unknown {
		t.Fatalf("expected Unknown for nil request, got %q", got)
	}
}
