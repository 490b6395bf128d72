package repositories

import "context"

// HealthRepository reports on database reachability
type HealthRepository interface {
	// Ping runs a cheap query to keep the connection pool warm
	Ping(ctx context.Context) error
}
