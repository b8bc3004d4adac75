package claims

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the closed set of claim statuses. Matching is case-sensitive.
type Status string

const (
	StatusPaid        Status = "Paid"
	StatusDenied      Status = "Denied"
	StatusUnderReview Status = "Under Review"
)

// Statuses lists the valid statuses in display order.
var Statuses = []Status{StatusPaid, StatusDenied, StatusUnderReview}

// ValidStatus reports whether s is one of the known statuses.
func ValidStatus(s Status) bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Amount is a monetary value in integer cents. Claims never carry more than
// two fractional digits, so cents are exact where binary floats are not.
type Amount int64

// MaxAmount is the upper bound for claim amounts: 9,999,999.99.
const MaxAmount Amount = 999999999

var (
	ErrAmountNegative = errors.New("negative amount")
	ErrAmountTooLarge = errors.New("amount too large")
)

// String renders the amount with fixed two fractional digits, e.g. "1200.00".
func (a Amount) String() string {
	return fmt.Sprintf("%d.%02d", int64(a)/100, int64(a)%100)
}

// MarshalJSON emits the amount as a plain JSON number with two fractional
// digits so that exported values re-import byte-equivalent.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	v, err := ParseAmountValue(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// ParseAmountValue parses a plain decimal string (no currency symbols or
// separators) into cents. At most two fractional digits are accepted. An
// empty string parses to zero.
func ParseAmountValue(s string) (Amount, error) {
	if s == "" {
		return 0, nil
	}
	neg := strings.HasPrefix(s, "-")
	body := s
	if neg {
		body = body[1:]
	} else {
		body = strings.TrimPrefix(body, "+")
	}

	intPart := body
	fracPart := ""
	if i := strings.IndexByte(body, '.'); i >= 0 {
		intPart, fracPart = body[:i], body[i+1:]
	}
	if intPart == "" && fracPart == "" {
		return 0, fmt.Errorf("not a valid decimal value")
	}
	// After the single leading sign, only digits may remain. ParseInt would
	// accept its own sign here and let strings like "+-5" or "1.-5" through.
	if !allDigits(intPart) || !allDigits(fracPart) {
		return 0, fmt.Errorf("not a valid decimal value")
	}
	if intPart == "" {
		intPart = "0"
	}
	if len(fracPart) > 2 {
		return 0, fmt.Errorf("more than two fractional digits")
	}
	for len(fracPart) < 2 {
		fracPart += "0"
	}

	whole, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("not a valid decimal value")
	}
	frac, err := strconv.ParseUint(fracPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("not a valid decimal value")
	}
	// Bound before converting to cents so the multiplication cannot overflow.
	if whole > int64(MaxAmount)/100 {
		return 0, ErrAmountTooLarge
	}

	cents := Amount(whole*100 + int64(frac))
	if neg && cents != 0 {
		return 0, ErrAmountNegative
	}
	if cents > MaxAmount {
		return 0, ErrAmountTooLarge
	}
	return cents, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Truncate shortens s to at most max characters. The cut lands on a rune
// boundary so multibyte names stay valid UTF-8 and survive an export and
// re-import. A max of 0 means unbounded.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

// Date is a calendar date without a time component. It marshals as
// "YYYY-MM-DD", the canonical export format.
type Date struct {
	time.Time
}

// DateOf builds a Date from year, month, day.
func DateOf(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// Claim is the aggregate root. The id is caller-supplied, positive and
// immutable; it is never generated by the store.
type Claim struct {
	ID              int64   `json:"id"`
	PatientName     string  `json:"patient_name"`
	BilledAmount    Amount  `json:"billed_amount"`
	PaidAmount      Amount  `json:"paid_amount"`
	Status          Status  `json:"status"`
	InsurerName     string  `json:"insurer_name"`
	DischargeDate   Date    `json:"discharge_date"`
	BurgerComboCode *string `json:"burger_combo_code,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Underpayment is the outstanding balance on the claim.
func (c *Claim) Underpayment() Amount {
	if c.BilledAmount <= c.PaidAmount {
		return 0
	}
	return c.BilledAmount - c.PaidAmount
}

// ClaimDetail holds the one-to-one procedure sub-record of a claim. It
// cannot exist without its parent and is deleted with it.
type ClaimDetail struct {
	ClaimID      int64   `json:"claim_id"`
	CPTCodes     string  `json:"cpt_codes"`
	DenialReason *string `json:"denial_reason,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Flag marks a claim for review. At most one flag exists per (claim, user)
// pair; a second attempt by the same user is a no-op.
type Flag struct {
	ID        uuid.UUID `json:"id"`
	ClaimID   int64     `json:"claim_id"`
	UserID    string    `json:"user_id"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// DefaultFlagReason is used when a flag request carries no reason.
const DefaultFlagReason = "Flagged for review"

// Note is a free-text annotation on a claim. Unbounded per claim.
type Note struct {
	ID        uuid.UUID `json:"id"`
	ClaimID   int64     `json:"claim_id"`
	UserID    string    `json:"user_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Field length bounds shared by import coercion and the review surface.
const (
	MaxNameLen         = 255
	MaxComboCodeLen    = 100
	MaxDenialReasonLen = 2000
	MaxFlagReasonLen   = 255
	MaxNoteLen         = 5000
)

// StatusCount is one entry of a status breakdown.
type StatusCount struct {
	Status Status `json:"status"`
	Count  int    `json:"count"`
}

// DashboardStats aggregates review metrics for the dashboard endpoint.
type DashboardStats struct {
	TotalClaims      int           `json:"total_claims"`
	FlaggedClaims    int           `json:"flagged_claims"`
	TotalBilled      Amount        `json:"total_billed"`
	TotalPaid        Amount        `json:"total_paid"`
	TotalOutstanding Amount        `json:"total_outstanding"`
	AvgUnderpayment  Amount        `json:"avg_underpayment"`
	StatusBreakdown  []StatusCount `json:"status_breakdown"`
	RecentFlags      []*Flag       `json:"recent_flags"`
	RecentNotes      []*Note       `json:"recent_notes"`
}

// DataStats reports record counts for the data management page.
type DataStats struct {
	Claims  int `json:"claims"`
	Details int `json:"details"`
	Flags   int `json:"flags"`
	Notes   int `json:"notes"`
}
