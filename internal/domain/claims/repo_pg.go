package claims

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/claimdesk/claimdesk/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// =========== Claim Repository ===========

type claimRepoPG struct{ pool *pgxpool.Pool }

func NewClaimRepoPG(pool *pgxpool.Pool) ClaimRepository { return &claimRepoPG{pool: pool} }

func (r *claimRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const claimCols = `id, patient_name, billed_cents, paid_cents, status,
	insurer_name, discharge_date, burger_combo_code, created_at, updated_at`

func scanClaim(row pgx.Row) (*Claim, error) {
	var c Claim
	var billed, paid int64
	var status string
	var discharge time.Time
	err := row.Scan(&c.ID, &c.PatientName, &billed, &paid, &status,
		&c.InsurerName, &discharge, &c.BurgerComboCode, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	c.BilledAmount = Amount(billed)
	c.PaidAmount = Amount(paid)
	c.Status = Status(status)
	c.DischargeDate = Date{discharge}
	return &c, nil
}

func (r *claimRepoPG) Create(ctx context.Context, c *Claim) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO claims (id, patient_name, billed_cents, paid_cents, status,
			insurer_name, discharge_date, burger_combo_code)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		c.ID, c.PatientName, int64(c.BilledAmount), int64(c.PaidAmount), string(c.Status),
		c.InsurerName, c.DischargeDate.Time, c.BurgerComboCode)
	return err
}

func (r *claimRepoPG) GetByID(ctx context.Context, id int64) (*Claim, error) {
	return scanClaim(r.conn(ctx).QueryRow(ctx,
		`SELECT `+claimCols+` FROM claims WHERE id = $1`, id))
}

func (r *claimRepoPG) Update(ctx context.Context, c *Claim) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE claims SET patient_name=$2, billed_cents=$3, paid_cents=$4,
			status=$5, insurer_name=$6, discharge_date=$7, burger_combo_code=$8,
			updated_at=NOW()
		WHERE id = $1`,
		c.ID, c.PatientName, int64(c.BilledAmount), int64(c.PaidAmount),
		string(c.Status), c.InsurerName, c.DischargeDate.Time, c.BurgerComboCode)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *claimRepoPG) Delete(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM claims WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *claimRepoPG) DeleteAll(ctx context.Context) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM claims`)
	return err
}

func (r *claimRepoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Claim, int, error) {
	where := []string{}
	args := []interface{}{}
	n := 1

	if f.Search != "" {
		where = append(where, fmt.Sprintf(
			"(patient_name ILIKE $%d OR insurer_name ILIKE $%d)", n, n))
		args = append(args, "%"+f.Search+"%")
		n++
	}
	if f.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", n))
		args = append(args, string(f.Status))
		n++
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM claims`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT `+claimCols+` FROM claims%s ORDER BY id DESC LIMIT $%d OFFSET $%d`,
		clause, n, n+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *claimRepoPG) ListAll(ctx context.Context) ([]*Claim, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+claimCols+` FROM claims ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *claimRepoPG) Count(ctx context.Context) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM claims`).Scan(&n)
	return n, err
}

func (r *claimRepoPG) Totals(ctx context.Context) (Amount, Amount, error) {
	var billed, paid int64
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COALESCE(SUM(billed_cents),0), COALESCE(SUM(paid_cents),0) FROM claims`).
		Scan(&billed, &paid)
	return Amount(billed), Amount(paid), err
}

func (r *claimRepoPG) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT status, COUNT(*) FROM claims GROUP BY status ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StatusCount
	for rows.Next() {
		var sc StatusCount
		var status string
		if err := rows.Scan(&status, &sc.Count); err != nil {
			return nil, err
		}
		sc.Status = Status(status)
		out = append(out, sc)
	}
	return out, rows.Err()
}

// =========== Detail Repository ===========

type detailRepoPG struct{ pool *pgxpool.Pool }

func NewDetailRepoPG(pool *pgxpool.Pool) DetailRepository { return &detailRepoPG{pool: pool} }

func (r *detailRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func scanDetail(row pgx.Row) (*ClaimDetail, error) {
	var d ClaimDetail
	err := row.Scan(&d.ClaimID, &d.CPTCodes, &d.DenialReason, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

const detailCols = `claim_id, cpt_codes, denial_reason, created_at, updated_at`

func (r *detailRepoPG) Create(ctx context.Context, d *ClaimDetail) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO claim_details (claim_id, cpt_codes, denial_reason)
		VALUES ($1,$2,$3)`,
		d.ClaimID, d.CPTCodes, d.DenialReason)
	return err
}

func (r *detailRepoPG) GetByClaim(ctx context.Context, claimID int64) (*ClaimDetail, error) {
	return scanDetail(r.conn(ctx).QueryRow(ctx,
		`SELECT `+detailCols+` FROM claim_details WHERE claim_id = $1`, claimID))
}

func (r *detailRepoPG) Update(ctx context.Context, d *ClaimDetail) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE claim_details SET cpt_codes=$2, denial_reason=$3, updated_at=NOW()
		WHERE claim_id = $1`,
		d.ClaimID, d.CPTCodes, d.DenialReason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *detailRepoPG) DeleteAll(ctx context.Context) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM claim_details`)
	return err
}

func (r *detailRepoPG) ListAll(ctx context.Context) ([]*ClaimDetail, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+detailCols+` FROM claim_details ORDER BY claim_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ClaimDetail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *detailRepoPG) Count(ctx context.Context) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM claim_details`).Scan(&n)
	return n, err
}

// =========== Flag Repository ===========

type flagRepoPG struct{ pool *pgxpool.Pool }

func NewFlagRepoPG(pool *pgxpool.Pool) FlagRepository { return &flagRepoPG{pool: pool} }

func (r *flagRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *flagRepoPG) Create(ctx context.Context, f *Flag) (bool, error) {
	f.ID = uuid.New()
	// The unique (claim_id, user_id) constraint makes the second flag by the
	// same user a no-op rather than an error.
	tag, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO claim_flags (id, claim_id, user_id, reason)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (claim_id, user_id) DO NOTHING`,
		f.ID, f.ClaimID, f.UserID, f.Reason)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *flagRepoPG) ListByClaim(ctx context.Context, claimID int64) ([]*Flag, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, claim_id, user_id, reason, created_at
		FROM claim_flags WHERE claim_id = $1 ORDER BY created_at DESC`, claimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectFlags(rows)
}

func (r *flagRepoPG) Count(ctx context.Context) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM claim_flags`).Scan(&n)
	return n, err
}

func (r *flagRepoPG) CountDistinctClaims(ctx context.Context) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(DISTINCT claim_id) FROM claim_flags`).Scan(&n)
	return n, err
}

func (r *flagRepoPG) Recent(ctx context.Context, limit int) ([]*Flag, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, claim_id, user_id, reason, created_at
		FROM claim_flags ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectFlags(rows)
}

func collectFlags(rows pgx.Rows) ([]*Flag, error) {
	var out []*Flag
	for rows.Next() {
		var f Flag
		if err := rows.Scan(&f.ID, &f.ClaimID, &f.UserID, &f.Reason, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}

// =========== Note Repository ===========

type noteRepoPG struct{ pool *pgxpool.Pool }

func NewNoteRepoPG(pool *pgxpool.Pool) NoteRepository { return &noteRepoPG{pool: pool} }

func (r *noteRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *noteRepoPG) Create(ctx context.Context, n *Note) error {
	n.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO claim_notes (id, claim_id, user_id, body)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at`,
		n.ID, n.ClaimID, n.UserID, n.Body).Scan(&n.CreatedAt)
}

func (r *noteRepoPG) ListByClaim(ctx context.Context, claimID int64) ([]*Note, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, claim_id, user_id, body, created_at
		FROM claim_notes WHERE claim_id = $1 ORDER BY created_at DESC`, claimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectNotes(rows)
}

func (r *noteRepoPG) Count(ctx context.Context) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM claim_notes`).Scan(&n)
	return n, err
}

func (r *noteRepoPG) Recent(ctx context.Context, limit int) ([]*Note, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, claim_id, user_id, body, created_at
		FROM claim_notes ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectNotes(rows)
}

func collectNotes(rows pgx.Rows) ([]*Note, error) {
	var out []*Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.ClaimID, &n.UserID, &n.Body, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}
