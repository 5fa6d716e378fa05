package api

import (
	"context"

	"github.com/neexbeast/skycast/internal/dashboard"
)

// DashboardController defines the search and display operations needed by handlers.
type DashboardController interface {
	Search(ctx context.Context, query string) (*dashboard.Snapshot, error)
	Snapshot() dashboard.Snapshot
}

// pinger is satisfied by the cycle sequence backend.
type pinger interface {
	Ping(ctx context.Context) error
}
