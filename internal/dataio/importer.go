package dataio

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/claimdesk/claimdesk/internal/domain/claims"
	"github.com/claimdesk/claimdesk/internal/platform/db"
)

// Mode selects how an import batch reconciles against existing claims.
type Mode string

const (
	// ModeAdd inserts new records and silently skips ids that already exist.
	ModeAdd Mode = "add"
	// ModeOverwrite deletes every existing detail and claim, then inserts
	// the batch.
	ModeOverwrite Mode = "overwrite"
	// ModeUpdate upserts: new ids are created, existing ids are overwritten
	// in place.
	ModeUpdate Mode = "update"
)

// ParseMode validates a caller-supplied mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAdd, ModeOverwrite, ModeUpdate:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unsupported mode: %s (expected add, overwrite or update)", s)
	}
}

// Result is the tally of one import invocation. Errors holds per-record
// validation failures in input order; they never abort the batch.
type Result struct {
	ClaimsCreated  int      `json:"claims_created"`
	ClaimsUpdated  int      `json:"claims_updated"`
	ClaimsSkipped  int      `json:"claims_skipped"`
	DetailsCreated int      `json:"details_created"`
	DetailsUpdated int      `json:"details_updated"`
	DetailsSkipped int      `json:"details_skipped"`
	Errors         []string `json:"errors"`
}

// TxRunner wraps a unit of work in one atomic transaction.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// PgxTxRunner runs the batch in a pgx transaction. Repositories join it
// through the transaction stored in the context.
type PgxTxRunner struct {
	Pool *pgxpool.Pool
}

func (r PgxTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.RunInTx(ctx, r.Pool, fn)
}

// Importer drives one bulk import: file validation, record parsing, field
// coercion and reconciliation against the claim store, all inside a single
// transaction.
type Importer struct {
	claims  claims.ClaimRepository
	details claims.DetailRepository
	tx      TxRunner
	logger  zerolog.Logger
}

func NewImporter(cl claims.ClaimRepository, det claims.DetailRepository, tx TxRunner, logger zerolog.Logger) *Importer {
	return &Importer{claims: cl, details: det, tx: tx, logger: logger}
}

// Run imports one claims file and an optional details file. Record-level
// validation failures are collected into the result and never abort the
// batch; file-level failures and unexpected storage errors do, rolling back
// every mutation.
func (im *Importer) Run(ctx context.Context, claimsData, detailsData []byte, format Format, mode Mode) (*Result, error) {
	im.logger.Info().
		Str("format", string(format)).
		Str("mode", string(mode)).
		Msg("import: validating")

	if err := CheckFile(claimsData, format, ClaimColumns); err != nil {
		return nil, err
	}
	if detailsData != nil {
		if err := CheckFile(detailsData, format, DetailColumns); err != nil {
			return nil, err
		}
	}

	res := &Result{}
	err := im.tx.RunInTx(ctx, func(ctx context.Context) error {
		if mode == ModeOverwrite {
			// Details first to respect claim ownership.
			if err := im.details.DeleteAll(ctx); err != nil {
				return fmt.Errorf("clear details: %w", err)
			}
			if err := im.claims.DeleteAll(ctx); err != nil {
				return fmt.Errorf("clear claims: %w", err)
			}
		}

		im.logger.Info().Msg("import: parsing and reconciling")
		if err := im.importClaims(ctx, claimsData, format, mode, res); err != nil {
			return err
		}
		if detailsData != nil {
			if err := im.importDetails(ctx, detailsData, format, mode, res); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		im.logger.Error().Err(err).Msg("import: aborted")
		if errors.Is(err, ErrMalformedInput) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrImportAborted, err)
	}

	im.logger.Info().
		Int("claims_created", res.ClaimsCreated).
		Int("claims_updated", res.ClaimsUpdated).
		Int("details_created", res.DetailsCreated).
		Int("errors", len(res.Errors)).
		Msg("import: committed")
	return res, nil
}

type action int

const (
	actionCreate action = iota
	actionUpdate
	actionSkip
)

// reconcile decides what to do with an incoming record given what already
// exists. Additive mode never touches existing rows; every other mode
// overwrites them in place.
func reconcile(exists bool, mode Mode) action {
	if !exists {
		return actionCreate
	}
	if mode == ModeAdd {
		return actionSkip
	}
	return actionUpdate
}

func (im *Importer) importClaims(ctx context.Context, data []byte, format Format, mode Mode, res *Result) error {
	r, err := NewReader(data, format)
	if err != nil {
		return err
	}

	processed := 0
	for r.Next() {
		if processed >= MaxRows {
			// Soft cutoff: processed rows stand, the remainder is ignored.
			res.Errors = append(res.Errors,
				fmt.Sprintf("File exceeds maximum allowed rows (%d)", MaxRows))
			break
		}
		processed++

		rec, pos := r.Record(), r.Pos()
		c, perr := parseClaimRecord(rec)
		if perr != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %s", pos, perr))
			continue
		}

		existing, err := im.claims.GetByID(ctx, c.ID)
		if err != nil && !errors.Is(err, claims.ErrNotFound) {
			return fmt.Errorf("load claim %d: %w", c.ID, err)
		}

		switch reconcile(existing != nil, mode) {
		case actionCreate:
			if err := im.claims.Create(ctx, c); err != nil {
				return fmt.Errorf("create claim %d: %w", c.ID, err)
			}
			res.ClaimsCreated++
		case actionUpdate:
			if err := im.claims.Update(ctx, c); err != nil {
				return fmt.Errorf("update claim %d: %w", c.ID, err)
			}
			res.ClaimsUpdated++
		case actionSkip:
			res.ClaimsSkipped++
		}
	}
	return r.Err()
}

func (im *Importer) importDetails(ctx context.Context, data []byte, format Format, mode Mode, res *Result) error {
	r, err := NewReader(data, format)
	if err != nil {
		return err
	}

	processed := 0
	for r.Next() {
		if processed >= MaxRows {
			res.Errors = append(res.Errors,
				fmt.Sprintf("File exceeds maximum allowed rows (%d)", MaxRows))
			break
		}
		processed++

		rec, pos := r.Record(), r.Pos()
		d, perr := parseDetailRecord(rec)
		if perr != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %s", pos, perr))
			continue
		}

		// A detail must attach to a claim that exists in this transaction's
		// view. It is never auto-created.
		if _, err := im.claims.GetByID(ctx, d.ClaimID); err != nil {
			if errors.Is(err, claims.ErrNotFound) {
				res.Errors = append(res.Errors,
					fmt.Sprintf("%s: Claim %d not found", pos, d.ClaimID))
				continue
			}
			return fmt.Errorf("load claim %d: %w", d.ClaimID, err)
		}

		existing, err := im.details.GetByClaim(ctx, d.ClaimID)
		if err != nil && !errors.Is(err, claims.ErrNotFound) {
			return fmt.Errorf("load detail %d: %w", d.ClaimID, err)
		}

		switch reconcile(existing != nil, mode) {
		case actionCreate:
			if err := im.details.Create(ctx, d); err != nil {
				return fmt.Errorf("create detail %d: %w", d.ClaimID, err)
			}
			res.DetailsCreated++
		case actionUpdate:
			if err := im.details.Update(ctx, d); err != nil {
				return fmt.Errorf("update detail %d: %w", d.ClaimID, err)
			}
			res.DetailsUpdated++
		case actionSkip:
			res.DetailsSkipped++
		}
	}
	return r.Err()
}

func parseClaimRecord(rec Record) (*claims.Claim, error) {
	id, err := ParseClaimID(rec["id"])
	if err != nil {
		return nil, err
	}
	patient, err := RequiredText(rec["patient_name"], "patient_name", claims.MaxNameLen)
	if err != nil {
		return nil, err
	}
	billed, err := ParseAmount(rec["billed_amount"], "billed_amount")
	if err != nil {
		return nil, err
	}
	paid, err := ParseAmount(rec["paid_amount"], "paid_amount")
	if err != nil {
		return nil, err
	}
	status, err := ParseStatus(rec["status"])
	if err != nil {
		return nil, err
	}
	insurer, err := RequiredText(rec["insurer_name"], "insurer_name", claims.MaxNameLen)
	if err != nil {
		return nil, err
	}
	discharge, err := ParseDate(rec["discharge_date"])
	if err != nil {
		return nil, err
	}

	c := &claims.Claim{
		ID:            id,
		PatientName:   patient,
		BilledAmount:  billed,
		PaidAmount:    paid,
		Status:        status,
		InsurerName:   insurer,
		DischargeDate: discharge,
	}
	if combo := OptionalText(rec["burger_combo_code"], claims.MaxComboCodeLen); combo != "" {
		c.BurgerComboCode = &combo
	}
	return c, nil
}

func parseDetailRecord(rec Record) (*claims.ClaimDetail, error) {
	claimID, err := ParseClaimID(rec["claim_id"])
	if err != nil {
		return nil, err
	}
	cpt, err := RequiredText(rec["cpt_codes"], "cpt_codes", 0)
	if err != nil {
		return nil, err
	}

	d := &claims.ClaimDetail{ClaimID: claimID, CPTCodes: cpt}
	if reason := OptionalText(rec["denial_reason"], claims.MaxDenialReasonLen); reason != "" {
		d.DenialReason = &reason
	}
	return d, nil
}
