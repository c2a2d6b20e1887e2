package civic

import "context"

// Repository defines the interface for complaint persistence.
type Repository interface {
	// Create stores a new complaint.
	Create(ctx context.Context, c *Complaint) error

	// FindNearby returns active complaints matching q, at most q.Limit of them.
	// Zero matches is an empty slice and a nil error. Store failures wrap
	// ErrStoreUnavailable.
	FindNearby(ctx context.Context, q NearbyQuery) ([]*Complaint, error)

	// Ping checks the store is reachable.
	Ping(ctx context.Context) error
}
