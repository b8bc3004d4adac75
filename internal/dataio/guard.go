package dataio

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"sort"
	"unicode/utf8"
)

const (
	// MaxFileSize caps a single uploaded file at 50 MB.
	MaxFileSize = 50 * 1024 * 1024

	// MaxRows caps the records processed from a single file.
	MaxRows = 50000
)

// ClaimColumns are the columns a claims file must declare.
var ClaimColumns = []string{
	"id", "patient_name", "billed_amount", "paid_amount",
	"status", "insurer_name", "discharge_date",
}

// DetailColumns are the columns a details file must declare.
var DetailColumns = []string{"claim_id", "cpt_codes"}

// CheckFile validates a file before any record is parsed: non-empty, within
// the size ceiling, valid UTF-8, structurally matching the declared format,
// and covering the required columns. Checks run in that order and the first
// failure wins.
func CheckFile(data []byte, format Format, required []string) error {
	if len(data) == 0 {
		return ErrEmptyFile
	}
	if len(data) > MaxFileSize {
		return ErrFileTooLarge
	}
	if !utf8.Valid(data) {
		return ErrEncoding
	}

	fields, err := headerFields(data, format)
	if err != nil {
		return err
	}
	// An empty JSON array has no first record to inspect; the column check
	// is vacuous then.
	if fields == nil {
		return nil
	}

	var missing []string
	for _, col := range required {
		if _, ok := fields[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &MissingColumnsError{Missing: missing}
	}
	return nil
}

// headerFields returns the declared field set: the CSV header line, or the
// keys of the first JSON object. A nil map with nil error means there are no
// records to inspect.
func headerFields(data []byte, format Format) (map[string]struct{}, error) {
	switch format {
	case FormatCSV:
		cr := csv.NewReader(bytes.NewReader(data))
		cr.Comma = '|'
		header, err := cr.Read()
		if err != nil {
			return nil, &wrapMalformed{"missing header row"}
		}
		fields := make(map[string]struct{}, len(header))
		for _, h := range header {
			fields[h] = struct{}{}
		}
		return fields, nil

	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		var items []map[string]json.RawMessage
		if err := dec.Decode(&items); err != nil {
			return nil, &wrapMalformed{err.Error()}
		}
		if len(items) == 0 {
			return nil, nil
		}
		fields := make(map[string]struct{}, len(items[0]))
		for k := range items[0] {
			fields[k] = struct{}{}
		}
		return fields, nil
	}
	return nil, &wrapMalformed{"unknown format"}
}

type wrapMalformed struct{ reason string }

func (w *wrapMalformed) Error() string { return "malformed input: " + w.reason }
func (w *wrapMalformed) Unwrap() error { return ErrMalformedInput }
