package claims

import (
	"context"
	"errors"
)

// ErrNotFound is returned by repositories when a claim does not exist.
var ErrNotFound = errors.New("claim not found")

// ListFilter narrows a claim listing. Search matches patient or insurer name
// case-insensitively; an empty Status means no status filter.
type ListFilter struct {
	Search string
	Status Status
}

type ClaimRepository interface {
	Create(ctx context.Context, c *Claim) error
	GetByID(ctx context.Context, id int64) (*Claim, error)
	Update(ctx context.Context, c *Claim) error
	Delete(ctx context.Context, id int64) error
	DeleteAll(ctx context.Context) error
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Claim, int, error)
	ListAll(ctx context.Context) ([]*Claim, error)
	Count(ctx context.Context) (int, error)
	Totals(ctx context.Context) (billed, paid Amount, err error)
	CountByStatus(ctx context.Context) ([]StatusCount, error)
}

type DetailRepository interface {
	Create(ctx context.Context, d *ClaimDetail) error
	GetByClaim(ctx context.Context, claimID int64) (*ClaimDetail, error)
	Update(ctx context.Context, d *ClaimDetail) error
	DeleteAll(ctx context.Context) error
	ListAll(ctx context.Context) ([]*ClaimDetail, error)
	Count(ctx context.Context) (int, error)
}

type FlagRepository interface {
	// Create inserts the flag unless the (claim, user) pair already has one.
	// It reports whether a row was actually created.
	Create(ctx context.Context, f *Flag) (created bool, err error)
	ListByClaim(ctx context.Context, claimID int64) ([]*Flag, error)
	Count(ctx context.Context) (int, error)
	CountDistinctClaims(ctx context.Context) (int, error)
	Recent(ctx context.Context, limit int) ([]*Flag, error)
}

type NoteRepository interface {
	Create(ctx context.Context, n *Note) error
	ListByClaim(ctx context.Context, claimID int64) ([]*Note, error)
	Count(ctx context.Context) (int, error)
	Recent(ctx context.Context, limit int) ([]*Note, error)
}
