package api

import (
	"context"
	"runtime"
	"time"

	"github.com/wboard/connector"
)

// StatusCollector produces the payload served by GET /wboard/v1/status.
// Hosts with richer platform data supply their own implementation.
type StatusCollector interface {
	Collect(ctx context.Context) (any, error)
}

// StatusCollectorFunc adapts a function to StatusCollector.
type StatusCollectorFunc func(ctx context.Context) (any, error)

// Collect calls f.
func (f StatusCollectorFunc) Collect(ctx context.Context) (any, error) {
	return f(ctx)
}

// Status is the payload of BasicCollector.
type Status struct {
	ConnectorVersion string        `json:"plugin_version"`
	GoVersion        string        `json:"go_version"`
	Multisite        MultisiteInfo `json:"multisite"`
	LastRequest      *time.Time    `json:"last_request,omitempty"`
}

// MultisiteInfo describes the tenancy of the site.
type MultisiteInfo struct {
	IsMultisite bool `json:"is_multisite"`
	SiteCount   int  `json:"site_count,omitempty"`
}

type siteCounter interface {
	SiteCount() int
}

// BasicCollector reports what the connector knows about itself.
type BasicCollector struct {
	Engine *connector.Engine
}

// Collect builds a Status. A failing marker read is reported as an absent
// last request rather than an error.
func (c BasicCollector) Collect(ctx context.Context) (any, error) {
	status := Status{
		ConnectorVersion: connector.Version,
		GoVersion:        runtime.Version(),
	}
	if c.Engine == nil {
		return status, nil
	}

	if tenancy := c.Engine.Tenancy(); tenancy != nil {
		status.Multisite.IsMultisite = tenancy.IsMultiTenant()
		if counter, ok := tenancy.(siteCounter); ok {
			status.Multisite.SiteCount = counter.SiteCount()
		}
	}

	if at, ok, err := c.Engine.LastRequestTime(ctx); err == nil && ok {
		at = at.UTC()
		status.LastRequest = &at
	}
	return status, nil
}
