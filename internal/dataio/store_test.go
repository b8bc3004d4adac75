package dataio

import (
	"context"
	"sort"

	"github.com/claimdesk/claimdesk/internal/domain/claims"
)

// In-memory repositories for importer/exporter tests.

type memClaimRepo struct {
	claims    map[int64]*claims.Claim
	createErr error
}

func newMemClaimRepo() *memClaimRepo {
	return &memClaimRepo{claims: make(map[int64]*claims.Claim)}
}

func (m *memClaimRepo) Create(_ context.Context, c *claims.Claim) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.claims[c.ID] = c
	return nil
}

func (m *memClaimRepo) GetByID(_ context.Context, id int64) (*claims.Claim, error) {
	c, ok := m.claims[id]
	if !ok {
		return nil, claims.ErrNotFound
	}
	return c, nil
}

func (m *memClaimRepo) Update(_ context.Context, c *claims.Claim) error {
	if _, ok := m.claims[c.ID]; !ok {
		return claims.ErrNotFound
	}
	m.claims[c.ID] = c
	return nil
}

func (m *memClaimRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.claims[id]; !ok {
		return claims.ErrNotFound
	}
	delete(m.claims, id)
	return nil
}

func (m *memClaimRepo) DeleteAll(_ context.Context) error {
	m.claims = make(map[int64]*claims.Claim)
	return nil
}

func (m *memClaimRepo) List(_ context.Context, _ claims.ListFilter, limit, offset int) ([]*claims.Claim, int, error) {
	all, _ := m.ListAll(context.Background())
	total := len(all)
	if offset > len(all) {
		offset = len(all)
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *memClaimRepo) ListAll(_ context.Context) ([]*claims.Claim, error) {
	var all []*claims.Claim
	for _, c := range m.claims {
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all, nil
}

func (m *memClaimRepo) Count(_ context.Context) (int, error) { return len(m.claims), nil }

func (m *memClaimRepo) Totals(_ context.Context) (claims.Amount, claims.Amount, error) {
	var billed, paid claims.Amount
	for _, c := range m.claims {
		billed += c.BilledAmount
		paid += c.PaidAmount
	}
	return billed, paid, nil
}

func (m *memClaimRepo) CountByStatus(_ context.Context) ([]claims.StatusCount, error) {
	counts := make(map[claims.Status]int)
	for _, c := range m.claims {
		counts[c.Status]++
	}
	var out []claims.StatusCount
	for s, n := range counts {
		out = append(out, claims.StatusCount{Status: s, Count: n})
	}
	return out, nil
}

type memDetailRepo struct {
	details map[int64]*claims.ClaimDetail
}

func newMemDetailRepo() *memDetailRepo {
	return &memDetailRepo{details: make(map[int64]*claims.ClaimDetail)}
}

func (m *memDetailRepo) Create(_ context.Context, d *claims.ClaimDetail) error {
	m.details[d.ClaimID] = d
	return nil
}

func (m *memDetailRepo) GetByClaim(_ context.Context, claimID int64) (*claims.ClaimDetail, error) {
	d, ok := m.details[claimID]
	if !ok {
		return nil, claims.ErrNotFound
	}
	return d, nil
}

func (m *memDetailRepo) Update(_ context.Context, d *claims.ClaimDetail) error {
	if _, ok := m.details[d.ClaimID]; !ok {
		return claims.ErrNotFound
	}
	m.details[d.ClaimID] = d
	return nil
}

func (m *memDetailRepo) DeleteAll(_ context.Context) error {
	m.details = make(map[int64]*claims.ClaimDetail)
	return nil
}

func (m *memDetailRepo) ListAll(_ context.Context) ([]*claims.ClaimDetail, error) {
	var all []*claims.ClaimDetail
	for _, d := range m.details {
		all = append(all, d)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ClaimID < all[j].ClaimID })
	return all, nil
}

func (m *memDetailRepo) Count(_ context.Context) (int, error) { return len(m.details), nil }

// noopTxRunner executes the batch without a real transaction.
type noopTxRunner struct{}

func (noopTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
