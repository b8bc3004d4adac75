package dataio

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
)

// Format declares how an uploaded byte stream is structured.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat validates a caller-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV, FormatJSON:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unsupported format: %s (expected csv or json)", s)
	}
}

// Record is one raw field-mapping produced by the reader. All values are
// strings; coercion happens later.
type Record map[string]string

// Position locates a record in its source file for error messages. CSV rows
// count from 2 (line 1 is the header), JSON items from 1.
type Position struct {
	label string
	n     int
}

func (p Position) String() string {
	return fmt.Sprintf("%s %d", p.label, p.n)
}

// RecordReader is a single-pass iterator over the records of one file.
//
//	r, err := NewReader(data, FormatCSV)
//	for r.Next() {
//	    rec, pos := r.Record(), r.Pos()
//	    ...
//	}
//	if err := r.Err(); err != nil { ... }
type RecordReader struct {
	next func() (Record, Position, error)

	rec Record
	pos Position
	err error
}

// Next advances to the next record. It returns false at end of input or on a
// structural error, which Err then reports.
func (r *RecordReader) Next() bool {
	if r.err != nil {
		return false
	}
	rec, pos, err := r.next()
	if err == io.EOF {
		return false
	}
	if err != nil {
		r.err = err
		return false
	}
	r.rec, r.pos = rec, pos
	return true
}

func (r *RecordReader) Record() Record { return r.rec }
func (r *RecordReader) Pos() Position  { return r.pos }

// Err returns the structural error that terminated iteration, if any.
func (r *RecordReader) Err() error { return r.err }

// NewReader builds a RecordReader over data in the declared format.
func NewReader(data []byte, format Format) (*RecordReader, error) {
	switch format {
	case FormatCSV:
		return newCSVReader(data)
	case FormatJSON:
		return newJSONReader(data)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func newCSVReader(data []byte) (*RecordReader, error) {
	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = '|'

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: missing header row", ErrMalformedInput)
	}

	line := 1
	next := func() (Record, Position, error) {
		fields, err := cr.Read()
		if err == io.EOF {
			return nil, Position{}, io.EOF
		}
		line++
		if err != nil {
			return nil, Position{}, fmt.Errorf("%w: line %d: %v", ErrMalformedInput, line, err)
		}
		rec := make(Record, len(header))
		for i, name := range header {
			if i < len(fields) {
				rec[name] = fields[i]
			}
		}
		return rec, Position{label: "Row", n: line}, nil
	}

	return &RecordReader{next: next}, nil
}

func newJSONReader(data []byte) (*RecordReader, error) {
	// The file guard bounds the input at 50 MB, so decoding the array up
	// front is fine. The iterator surface stays the same as CSV.
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var items []map[string]interface{}
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	i := 0
	next := func() (Record, Position, error) {
		if i >= len(items) {
			return nil, Position{}, io.EOF
		}
		item := items[i]
		i++

		rec := make(Record, len(item))
		for k, v := range item {
			rec[k] = renderScalar(v)
		}
		return rec, Position{label: "Item", n: i}, nil
	}

	return &RecordReader{next: next}, nil
}

// renderScalar converts a decoded JSON value to its raw string form:
// strings verbatim, numbers without exponent notation, booleans as
// true/false, null as empty.
func renderScalar(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", t)
	}
}
