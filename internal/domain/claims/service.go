package claims

import (
	"context"
	"fmt"
	"strings"
)

// MaxSearchLen caps the free-text search query.
const MaxSearchLen = 200

const recentActivityLimit = 10

type Service struct {
	claims  ClaimRepository
	details DetailRepository
	flags   FlagRepository
	notes   NoteRepository
}

func NewService(cl ClaimRepository, det DetailRepository, fl FlagRepository, no NoteRepository) *Service {
	return &Service{claims: cl, details: det, flags: fl, notes: no}
}

// List returns claims matching the search and status filter, newest id first.
// Over-long search queries are truncated; an unknown status filter is ignored
// rather than rejected.
func (s *Service) List(ctx context.Context, search, status string, limit, offset int) ([]*Claim, int, error) {
	search = Truncate(strings.TrimSpace(search), MaxSearchLen)

	f := ListFilter{Search: search}
	if ValidStatus(Status(status)) {
		f.Status = Status(status)
	}

	return s.claims.List(ctx, f, limit, offset)
}

// ClaimView is a claim as shown on the review page, with its sub-records and
// whether the calling user has already flagged it.
type ClaimView struct {
	Claim          *Claim       `json:"claim"`
	Detail         *ClaimDetail `json:"detail,omitempty"`
	Flags          []*Flag      `json:"flags"`
	Notes          []*Note      `json:"notes"`
	UserHasFlagged bool         `json:"user_has_flagged"`
}

func (s *Service) Get(ctx context.Context, id int64, userID string) (*ClaimView, error) {
	c, err := s.claims.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	view := &ClaimView{Claim: c}

	detail, err := s.details.GetByClaim(ctx, id)
	if err != nil && err != ErrNotFound {
		return nil, err
	}
	view.Detail = detail

	if view.Flags, err = s.flags.ListByClaim(ctx, id); err != nil {
		return nil, err
	}
	if view.Notes, err = s.notes.ListByClaim(ctx, id); err != nil {
		return nil, err
	}

	for _, f := range view.Flags {
		if f.UserID == userID {
			view.UserHasFlagged = true
			break
		}
	}

	return view, nil
}

// Flag marks a claim for review by a user. Flagging an already-flagged claim
// is a no-op: created reports whether a new flag row was written.
func (s *Service) Flag(ctx context.Context, claimID int64, userID, reason string) (created bool, err error) {
	if _, err := s.claims.GetByID(ctx, claimID); err != nil {
		return false, err
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultFlagReason
	}
	reason = Truncate(reason, MaxFlagReasonLen)

	return s.flags.Create(ctx, &Flag{ClaimID: claimID, UserID: userID, Reason: reason})
}

// AddNote attaches a free-text note to a claim. Empty text is rejected;
// over-long text is truncated.
func (s *Service) AddNote(ctx context.Context, claimID int64, userID, body string) (*Note, error) {
	if _, err := s.claims.GetByID(ctx, claimID); err != nil {
		return nil, err
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("note text is required")
	}
	body = Truncate(body, MaxNoteLen)

	n := &Note{ClaimID: claimID, UserID: userID, Body: body}
	if err := s.notes.Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Update performs a direct administrative edit of a claim.
func (s *Service) Update(ctx context.Context, c *Claim) error {
	if err := validateClaim(c); err != nil {
		return err
	}
	return s.claims.Update(ctx, c)
}

// Delete removes a single claim and, through the ownership cascade, its
// detail, flags and notes.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.claims.Delete(ctx, id)
}

func validateClaim(c *Claim) error {
	if c.ID <= 0 {
		return fmt.Errorf("Invalid claim ID: %d", c.ID)
	}
	if strings.TrimSpace(c.PatientName) == "" {
		return fmt.Errorf("patient_name is required")
	}
	if strings.TrimSpace(c.InsurerName) == "" {
		return fmt.Errorf("insurer_name is required")
	}
	if !ValidStatus(c.Status) {
		return fmt.Errorf("Invalid status: %s. Must be one of: ['Paid', 'Denied', 'Under Review']", c.Status)
	}
	return nil
}

// Dashboard aggregates review metrics across the whole store.
func (s *Service) Dashboard(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{}
	var err error

	if stats.TotalClaims, err = s.claims.Count(ctx); err != nil {
		return nil, err
	}
	if stats.FlaggedClaims, err = s.flags.CountDistinctClaims(ctx); err != nil {
		return nil, err
	}
	if stats.TotalBilled, stats.TotalPaid, err = s.claims.Totals(ctx); err != nil {
		return nil, err
	}
	stats.TotalOutstanding = stats.TotalBilled - stats.TotalPaid
	if stats.TotalClaims > 0 {
		stats.AvgUnderpayment = stats.TotalOutstanding / Amount(stats.TotalClaims)
	}

	if stats.StatusBreakdown, err = s.claims.CountByStatus(ctx); err != nil {
		return nil, err
	}
	if stats.RecentFlags, err = s.flags.Recent(ctx, recentActivityLimit); err != nil {
		return nil, err
	}
	if stats.RecentNotes, err = s.notes.Recent(ctx, recentActivityLimit); err != nil {
		return nil, err
	}

	return stats, nil
}

// DataStats reports record counts for the data management page.
func (s *Service) DataStats(ctx context.Context) (*DataStats, error) {
	stats := &DataStats{}
	var err error

	if stats.Claims, err = s.claims.Count(ctx); err != nil {
		return nil, err
	}
	if stats.Details, err = s.details.Count(ctx); err != nil {
		return nil, err
	}
	if stats.Flags, err = s.flags.Count(ctx); err != nil {
		return nil, err
	}
	if stats.Notes, err = s.notes.Count(ctx); err != nil {
		return nil, err
	}

	return stats, nil
}
