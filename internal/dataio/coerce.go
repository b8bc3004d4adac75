package dataio

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/claimdesk/claimdesk/internal/domain/claims"
)

// ParseAmount converts a raw currency string into cents. Currency symbols,
// thousands separators and surrounding whitespace are stripped; an empty
// value coerces to zero.
func ParseAmount(raw, field string) (claims.Amount, error) {
	cleaned := strings.ReplaceAll(raw, "$", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)

	v, err := claims.ParseAmountValue(cleaned)
	if err != nil {
		var cause string
		switch {
		case errors.Is(err, claims.ErrAmountNegative):
			cause = fmt.Sprintf("Negative value not allowed for %s", field)
		case errors.Is(err, claims.ErrAmountTooLarge):
			cause = fmt.Sprintf("Value too large for %s", field)
		default:
			cause = err.Error()
		}
		return 0, fmt.Errorf("Invalid %s: '%s' - %s", field, raw, cause)
	}
	return v, nil
}

// dateLayouts is the ordered list of accepted date formats: ISO first, then
// US month-first, then day-first, and their dashed variants. The first
// successful parse wins, so day-first strings that are also valid month
// first (e.g. 03/04/2024) resolve as month first. That ambiguity is
// inherited from the file formats themselves, not resolvable here.
var dateLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	"2/1/2006",
	"2006/1/2",
	"1-2-2006",
	"2-1-2006",
}

// ParseDate parses a raw date string against the accepted layouts in order.
func ParseDate(raw string) (claims.Date, error) {
	s := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return claims.Date{Time: t}, nil
		}
	}
	return claims.Date{}, fmt.Errorf(
		"Invalid date format: %s. Expected YYYY-MM-DD or MM/DD/YYYY or DD/MM/YYYY", raw)
}

// ParseStatus matches the closed status enumeration, case-sensitively.
func ParseStatus(raw string) (claims.Status, error) {
	s := claims.Status(strings.TrimSpace(raw))
	if !claims.ValidStatus(s) {
		return "", fmt.Errorf(
			"Invalid status: %s. Must be one of: ['Paid', 'Denied', 'Under Review']", raw)
	}
	return s, nil
}

// RequiredText trims the value and rejects empty results. Values longer than
// max characters are silently truncated; truncation is a policy choice, not
// an error. A max of 0 means unbounded.
func RequiredText(raw, label string, max int) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%s is required", label)
	}
	return claims.Truncate(s, max), nil
}

// OptionalText trims and truncates without requiring a value.
func OptionalText(raw string, max int) string {
	return claims.Truncate(strings.TrimSpace(raw), max)
}

// ParseClaimID parses a positive integer claim id.
func ParseClaimID(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("Invalid claim ID: %s", raw)
	}
	return id, nil
}
