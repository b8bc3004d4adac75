package dataio

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"strconv"
	"time"

	"github.com/claimdesk/claimdesk/internal/domain/claims"
)

// Exporter walks the claim store and emits files that re-import with
// byte-equivalent field values: same field names, dates as YYYY-MM-DD,
// amounts with fixed two decimals, missing optionals as empty strings.
type Exporter struct {
	claims  claims.ClaimRepository
	details claims.DetailRepository
}

func NewExporter(cl claims.ClaimRepository, det claims.DetailRepository) *Exporter {
	return &Exporter{claims: cl, details: det}
}

func claimRow(c *claims.Claim) []string {
	combo := ""
	if c.BurgerComboCode != nil {
		combo = *c.BurgerComboCode
	}
	return []string{
		strconv.FormatInt(c.ID, 10),
		c.PatientName,
		c.BilledAmount.String(),
		c.PaidAmount.String(),
		string(c.Status),
		c.InsurerName,
		c.DischargeDate.String(),
		combo,
	}
}

func detailRow(d *claims.ClaimDetail) []string {
	reason := ""
	if d.DenialReason != nil {
		reason = *d.DenialReason
	}
	return []string{
		strconv.FormatInt(d.ClaimID, 10),
		d.CPTCodes,
		reason,
	}
}

// ExportClaimsCSV emits every claim as pipe-delimited text with a header row.
func (e *Exporter) ExportClaimsCSV(ctx context.Context) ([]byte, error) {
	all, err := e.claims.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = '|'

	header := append(append([]string{}, ClaimColumns...), "burger_combo_code")
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, c := range all {
		if err := w.Write(claimRow(c)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ExportDetailsCSV emits every claim detail as pipe-delimited text.
func (e *Exporter) ExportDetailsCSV(ctx context.Context) ([]byte, error) {
	all, err := e.details.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = '|'

	header := append(append([]string{}, DetailColumns...), "denial_reason")
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, d := range all {
		if err := w.Write(detailRow(d)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// claimExport renders amounts as fixed-point strings, the shape the JSON
// export has always had.
type claimExport struct {
	ID              int64         `json:"id"`
	PatientName     string        `json:"patient_name"`
	BilledAmount    string        `json:"billed_amount"`
	PaidAmount      string        `json:"paid_amount"`
	Status          claims.Status `json:"status"`
	InsurerName     string        `json:"insurer_name"`
	DischargeDate   claims.Date   `json:"discharge_date"`
	BurgerComboCode string        `json:"burger_combo_code"`
}

type detailExport struct {
	ClaimID      int64  `json:"claim_id"`
	CPTCodes     string `json:"cpt_codes"`
	DenialReason string `json:"denial_reason"`
}

type jsonEnvelope struct {
	Claims       []claimExport  `json:"claims"`
	ClaimDetails []detailExport `json:"claim_details"`
	ExportDate   string         `json:"export_date"`
	TotalClaims  int            `json:"total_claims"`
	TotalDetails int            `json:"total_details"`
}

// ExportJSON emits all claims and details in one envelope with export
// metadata.
func (e *Exporter) ExportJSON(ctx context.Context) ([]byte, error) {
	allClaims, err := e.claims.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	allDetails, err := e.details.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	env := jsonEnvelope{
		Claims:       make([]claimExport, 0, len(allClaims)),
		ClaimDetails: make([]detailExport, 0, len(allDetails)),
		ExportDate:   time.Now().UTC().Format(time.RFC3339),
		TotalClaims:  len(allClaims),
		TotalDetails: len(allDetails),
	}

	for _, c := range allClaims {
		combo := ""
		if c.BurgerComboCode != nil {
			combo = *c.BurgerComboCode
		}
		env.Claims = append(env.Claims, claimExport{
			ID:              c.ID,
			PatientName:     c.PatientName,
			BilledAmount:    c.BilledAmount.String(),
			PaidAmount:      c.PaidAmount.String(),
			Status:          c.Status,
			InsurerName:     c.InsurerName,
			DischargeDate:   c.DischargeDate,
			BurgerComboCode: combo,
		})
	}
	for _, d := range allDetails {
		reason := ""
		if d.DenialReason != nil {
			reason = *d.DenialReason
		}
		env.ClaimDetails = append(env.ClaimDetails, detailExport{
			ClaimID:      d.ClaimID,
			CPTCodes:     d.CPTCodes,
			DenialReason: reason,
		})
	}

	return json.MarshalIndent(env, "", "  ")
}
