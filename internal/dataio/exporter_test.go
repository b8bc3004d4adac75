package dataio

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/claimdesk/claimdesk/internal/domain/claims"
)

func seedStore(cl *memClaimRepo, det *memDetailRepo) {
	combo := "BC-7"
	reason := "not covered"
	cl.claims[101] = &claims.Claim{
		ID:              101,
		PatientName:     "Jane Doe",
		BilledAmount:    120000,
		PaidAmount:      90000,
		Status:          claims.StatusPaid,
		InsurerName:     "Acme",
		DischargeDate:   claims.DateOf(2024, time.March, 15),
		BurgerComboCode: &combo,
	}
	cl.claims[102] = &claims.Claim{
		ID:            102,
		PatientName:   "John Smith",
		BilledAmount:  50000,
		PaidAmount:    0,
		Status:        claims.StatusDenied,
		InsurerName:   "Umbrella",
		DischargeDate: claims.DateOf(2024, time.April, 2),
	}
	det.details[101] = &claims.ClaimDetail{ClaimID: 101, CPTCodes: "99213,99214"}
	det.details[102] = &claims.ClaimDetail{ClaimID: 102, CPTCodes: "99215", DenialReason: &reason}
}

func TestExportClaimsCSV(t *testing.T) {
	cl, det := newMemClaimRepo(), newMemDetailRepo()
	seedStore(cl, det)
	ex := NewExporter(cl, det)

	out, err := ex.ExportClaimsCSV(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "id|patient_name|billed_amount|paid_amount|status|insurer_name|discharge_date|burger_combo_code" {
		t.Errorf("unexpected header: %q", lines[0])
	}
	if lines[1] != "101|Jane Doe|1200.00|900.00|Paid|Acme|2024-03-15|BC-7" {
		t.Errorf("unexpected row: %q", lines[1])
	}
	if lines[2] != "102|John Smith|500.00|0.00|Denied|Umbrella|2024-04-02|" {
		t.Errorf("missing optional renders empty: %q", lines[2])
	}
}

func TestExportDetailsCSV(t *testing.T) {
	cl, det := newMemClaimRepo(), newMemDetailRepo()
	seedStore(cl, det)
	ex := NewExporter(cl, det)

	out, err := ex.ExportDetailsCSV(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	if lines[0] != "claim_id|cpt_codes|denial_reason" {
		t.Errorf("unexpected header: %q", lines[0])
	}
	if lines[1] != "101|99213,99214|" {
		t.Errorf("unexpected row: %q", lines[1])
	}
	if lines[2] != "102|99215|not covered" {
		t.Errorf("unexpected row: %q", lines[2])
	}
}

func TestExportJSON_Envelope(t *testing.T) {
	cl, det := newMemClaimRepo(), newMemDetailRepo()
	seedStore(cl, det)
	ex := NewExporter(cl, det)

	out, err := ex.ExportJSON(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var env map[string]json.RawMessage
	if err := json.Unmarshal(out, &env); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	for _, key := range []string{"claims", "claim_details", "export_date", "total_claims", "total_details"} {
		if _, ok := env[key]; !ok {
			t.Errorf("missing envelope key %q", key)
		}
	}

	var totals struct {
		TotalClaims  int `json:"total_claims"`
		TotalDetails int `json:"total_details"`
	}
	if err := json.Unmarshal(out, &totals); err != nil {
		t.Fatalf("unmarshal totals: %v", err)
	}
	if totals.TotalClaims != 2 || totals.TotalDetails != 2 {
		t.Errorf("unexpected totals: %+v", totals)
	}

	if !strings.Contains(string(out), `"billed_amount": "1200.00"`) {
		t.Errorf("amounts must render as fixed-point strings:\n%s", out)
	}
	if !strings.Contains(string(out), `"discharge_date": "2024-03-15"`) {
		t.Errorf("dates must render as YYYY-MM-DD:\n%s", out)
	}
}

func TestExport_RoundTrip(t *testing.T) {
	cl, det := newMemClaimRepo(), newMemDetailRepo()
	seedStore(cl, det)
	ex := NewExporter(cl, det)

	claimsOut, err := ex.ExportClaimsCSV(context.Background())
	if err != nil {
		t.Fatalf("export claims: %v", err)
	}
	detailsOut, err := ex.ExportDetailsCSV(context.Background())
	if err != nil {
		t.Fatalf("export details: %v", err)
	}

	// Re-import into a fresh store and compare field values.
	cl2, det2 := newMemClaimRepo(), newMemDetailRepo()
	im := NewImporter(cl2, det2, noopTxRunner{}, zerolog.Nop())
	res, err := im.Run(context.Background(), claimsOut, detailsOut, FormatCSV, ModeAdd)
	if err != nil {
		t.Fatalf("re-import: %v", err)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("re-import produced errors: %v", res.Errors)
	}
	if res.ClaimsCreated != 2 || res.DetailsCreated != 2 {
		t.Fatalf("unexpected counts: %+v", res)
	}

	for id, want := range cl.claims {
		got := cl2.claims[id]
		if got == nil {
			t.Fatalf("claim %d missing after round trip", id)
		}
		if got.PatientName != want.PatientName ||
			got.BilledAmount != want.BilledAmount ||
			got.PaidAmount != want.PaidAmount ||
			got.Status != want.Status ||
			got.InsurerName != want.InsurerName ||
			got.DischargeDate.String() != want.DischargeDate.String() {
			t.Errorf("claim %d changed: got %+v want %+v", id, got, want)
		}
	}
	for id, want := range det.details {
		got := det2.details[id]
		if got == nil {
			t.Fatalf("detail %d missing after round trip", id)
		}
		if got.CPTCodes != want.CPTCodes || !reflect.DeepEqual(got.DenialReason, want.DenialReason) {
			t.Errorf("detail %d changed: got %+v want %+v", id, got, want)
		}
	}

	// Exporting the re-imported store reproduces the same bytes.
	ex2 := NewExporter(cl2, det2)
	claimsOut2, err := ex2.ExportClaimsCSV(context.Background())
	if err != nil {
		t.Fatalf("second export: %v", err)
	}
	if string(claimsOut) != string(claimsOut2) {
		t.Errorf("round trip not byte-stable:\n%s\nvs\n%s", claimsOut, claimsOut2)
	}
}

func TestExport_RoundTrip_TruncatedMultibyteName(t *testing.T) {
	// An over-long name ending in multibyte characters gets truncated on
	// import. The stored value must stay valid UTF-8 so that its export can
	// be imported again.
	cl, det := newMemClaimRepo(), newMemDetailRepo()
	im := NewImporter(cl, det, noopTxRunner{}, zerolog.Nop())

	name := strings.Repeat("a", 254) + "éé"
	data := claimsCSV("201|" + name + "|100|50|Paid|Acme|2024-03-15")
	res, err := im.Run(context.Background(), data, nil, FormatCSV, ModeAdd)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("import produced errors: %v", res.Errors)
	}

	stored := cl.claims[201].PatientName
	if !utf8.ValidString(stored) {
		t.Fatalf("stored name is not valid UTF-8: %q", stored)
	}
	if got := len([]rune(stored)); got != 255 {
		t.Errorf("expected 255-character name, got %d", got)
	}

	out, err := NewExporter(cl, det).ExportClaimsCSV(context.Background())
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	cl2, det2 := newMemClaimRepo(), newMemDetailRepo()
	im2 := NewImporter(cl2, det2, noopTxRunner{}, zerolog.Nop())
	res2, err := im2.Run(context.Background(), out, nil, FormatCSV, ModeAdd)
	if err != nil {
		t.Fatalf("re-import of export: %v", err)
	}
	if len(res2.Errors) != 0 {
		t.Fatalf("re-import produced errors: %v", res2.Errors)
	}
	if cl2.claims[201].PatientName != stored {
		t.Errorf("name changed across round trip: %q vs %q", cl2.claims[201].PatientName, stored)
	}
}
