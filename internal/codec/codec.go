// Package codec implements the portable text format for dataset round
// trips: a delimited file per entity plus a JSON envelope carrying the
// whole export.
//
// Encoding and decoding are exact inverses. Values containing the field
// delimiter, a quote, or a line break are quoted with internal quotes
// doubled; this is required for lossless round trips, not cosmetics.
package codec

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/finx/internal/models"
	"github.com/shopspring/decimal"
)

// FormatValue renders a field value in its canonical portable form: dates
// as RFC 3339 UTC, booleans as the literals true/false, numbers as plain
// decimal text without grouping separators, nil as empty, and composite
// values as compact JSON.
func FormatValue(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case time.Time:
		if t.IsZero() {
			return "", nil
		}
		return t.UTC().Format(time.RFC3339), nil
	case bool:
		return strconv.FormatBool(t), nil
	case decimal.Decimal:
		return t.String(), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case map[string]any, []any:
		data, err := json.Marshal(t)
		if err != nil {
			return "", fmt.Errorf("failed to encode composite value: %w", err)
		}
		return string(data), nil
	default:
		return fmt.Sprint(t), nil
	}
}

// ParseField restores a formatted value to its typed form using the
// entity's field hints. Unknown fields stay strings.
func ParseField(cfg models.ModelConfig, field, s string) (any, error) {
	for _, f := range cfg.BoolFields {
		if f == field {
			return s == "true", nil
		}
	}
	for _, f := range cfg.DateFields {
		if f == field {
			if s == "" {
				return time.Time{}, nil
			}
			ts, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", field, err)
			}
			return ts, nil
		}
	}
	for _, f := range cfg.NumericFields {
		if f == field {
			if s == "" {
				return decimal.Zero, nil
			}
			d, err := decimal.NewFromString(s)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", field, err)
			}
			return d, nil
		}
	}
	return s, nil
}

// FormatRow renders every value of a row, keyed by field name.
func FormatRow(row models.Row) (map[string]string, error) {
	out := make(map[string]string, len(row))
	for field, value := range row {
		s, err := FormatValue(value)
		if err != nil {
			return nil, err
		}
		out[field] = s
	}
	return out, nil
}

// RestoreRow converts formatted field values back into a typed Row.
func RestoreRow(cfg models.ModelConfig, formatted map[string]string) (models.Row, error) {
	row := make(models.Row, len(formatted))
	for field, s := range formatted {
		v, err := ParseField(cfg, field, s)
		if err != nil {
			return nil, err
		}
		row[field] = v
	}
	return row, nil
}

// EncodeTable writes one entity's records as delimited text: a header row
// of field names in the given order, then one formatted row per record.
func EncodeTable(header []string, rows []models.Row) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, len(header))
	for _, row := range rows {
		for i, field := range header {
			s, err := FormatValue(row[field])
			if err != nil {
				return "", err
			}
			record[i] = s
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("failed to write record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("encoder error: %w", err)
	}
	return buf.String(), nil
}

// RowError reports a single undecodable row without failing the whole
// table.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Line, e.Err)
}

// DecodeTable is the exact inverse of EncodeTable: it returns the header
// and one field-name keyed map per record. Quoted fields spanning line
// breaks and doubled-quote escapes decode correctly. A row whose column
// count disagrees with the header is reported in rowErrs, not silently
// dropped or padded.
func DecodeTable(content string) (header []string, records []map[string]string, rowErrs []RowError, err error) {
	r := csv.NewReader(strings.NewReader(content))
	r.FieldsPerRecord = -1

	header, err = r.Read()
	if err == io.EOF {
		return nil, nil, nil, fmt.Errorf("empty input: missing header row")
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("unreadable header: %w", err)
	}

	line := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Err: err})
			continue
		}
		if len(record) != len(header) {
			rowErrs = append(rowErrs, RowError{
				Line: line,
				Err:  fmt.Errorf("expected %d columns, got %d", len(header), len(record)),
			})
			continue
		}

		fields := make(map[string]string, len(header))
		for i, name := range header {
			fields[name] = record[i]
		}
		records = append(records, fields)
	}
	return header, records, rowErrs, nil
}
