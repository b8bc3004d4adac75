package claims

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestAmount_String(t *testing.T) {
	cases := []struct {
		in   Amount
		want string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{120000, "1200.00"},
		{90050, "900.50"},
		{MaxAmount, "9999999.99"},
	}
	for _, tc := range cases {
		if got := tc.in.String(); got != tc.want {
			t.Errorf("Amount(%d).String() = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseAmountValue(t *testing.T) {
	cases := []struct {
		in      string
		want    Amount
		wantErr bool
	}{
		{"", 0, false},
		{"0", 0, false},
		{"1200.00", 120000, false},
		{"900", 90000, false},
		{"12.5", 1250, false},
		{"9999999.99", MaxAmount, false},
		{"10000000.00", 0, true},
		{"-5", 0, true},
		{"abc", 0, true},
		{"1.234", 0, true},
		// A sign may only appear once, at the front. ParseInt on the parts
		// would let these through as -500 and 95 cents respectively.
		{"+-5", 0, true},
		{"-+5", 0, true},
		{"--5", 0, true},
		{"1.-5", 0, true},
		{"1.+5", 0, true},
		{"1.2e3", 0, true},
		{"92233720368547758.07", 0, true},
		{"+5", 500, false},
		{"-0", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmountValue(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseAmountValue(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAmountValue(%q): unexpected error %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseAmountValue(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestAmount_JSONRoundTrip(t *testing.T) {
	b, err := json.Marshal(Amount(120000))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != "1200.00" {
		t.Errorf("expected 1200.00, got %s", b)
	}

	var a Amount
	if err := json.Unmarshal(b, &a); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if a != 120000 {
		t.Errorf("round trip changed value: %d", a)
	}
}

func TestDate_JSON(t *testing.T) {
	d := DateOf(2024, time.March, 15)
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2024-03-15"` {
		t.Errorf("expected 2024-03-15, got %s", b)
	}

	var back Date
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.String() != "2024-03-15" {
		t.Errorf("round trip changed value: %s", back)
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello", 3, "hel"},
		{"hello", 0, "hello"},
		// The limit counts characters, and the cut must not split a rune.
		{"héllo", 2, "hé"},
		{"日本語テスト", 3, "日本語"},
		{strings.Repeat("a", 254) + "é", 255, strings.Repeat("a", 254) + "é"},
		{strings.Repeat("a", 255) + "é", 255, strings.Repeat("a", 255)},
	}
	for _, tc := range cases {
		got := Truncate(tc.in, tc.max)
		if got != tc.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("Truncate(%q, %d) produced invalid UTF-8", tc.in, tc.max)
		}
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range Statuses {
		if !ValidStatus(s) {
			t.Errorf("expected %q to be valid", s)
		}
	}
	if ValidStatus("Pending") {
		t.Error("Pending must not be valid")
	}
	if ValidStatus("paid") {
		t.Error("status matching is case-sensitive")
	}
}

func TestClaim_Underpayment(t *testing.T) {
	c := &Claim{BilledAmount: 120000, PaidAmount: 90000}
	if got := c.Underpayment(); got != 30000 {
		t.Errorf("expected 30000, got %d", got)
	}
	over := &Claim{BilledAmount: 100, PaidAmount: 500}
	if got := over.Underpayment(); got != 0 {
		t.Errorf("overpaid claim has no underpayment, got %d", got)
	}
}
