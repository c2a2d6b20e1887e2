package civic

import (
	"context"
	"sort"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// Used for tests and local development.
type InMemoryRepository struct {
	mu         sync.RWMutex
	complaints []*Complaint
}

// NewInMemoryRepository creates a new in-memory complaint repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{}
}

// Create stores a copy of c in insertion order.
func (r *InMemoryRepository) Create(_ context.Context, c *Complaint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.complaints = append(r.complaints, copyComplaint(c))
	return nil
}

// FindNearby scans every stored complaint.
func (r *InMemoryRepository) FindNearby(_ context.Context, q NearbyQuery) ([]*Complaint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Complaint, 0)
	for _, c := range r.complaints {
		if q.matches(c) {
			out = append(out, copyComplaint(c))
		}
	}

	if q.NewestFirst {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	}

	if limit := q.limit(); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SetStatus changes the status of a stored complaint. Returns false when id is unknown.
func (r *InMemoryRepository) SetStatus(id string, status Status) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.complaints {
		if c.ID == id {
			c.Status = status
			return true
		}
	}
	return false
}

// Ping always succeeds.
func (r *InMemoryRepository) Ping(_ context.Context) error {
	return nil
}

func copyComplaint(c *Complaint) *Complaint {
	cpy := *c
	if c.ReporterID != nil {
		id := *c.ReporterID
		cpy.ReporterID = &id
	}
	return &cpy
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
