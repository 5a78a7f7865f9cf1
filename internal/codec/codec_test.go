package codec

import (
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/finx/internal/models"
	"github.com/shopspring/decimal"
)

func TestFormatValue(t *testing.T) {
	stamp := time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "Groceries", "Groceries"},
		{"date", stamp, "2025-03-14T15:09:26Z"},
		{"zero date", time.Time{}, ""},
		{"bool true", true, "true"},
		{"bool false", false, "false"},
		{"decimal", decimal.RequireFromString("-430.25"), "-430.25"},
		{"int", 7, "7"},
		{"float", 1250.5, "1250.5"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := FormatValue(tc.in)
			if err != nil {
				t.Fatalf("format failed: %v", err)
			}
			if got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestFormatValueNonUTC(t *testing.T) {
	zone := time.FixedZone("CST", -6*3600)
	got, err := FormatValue(time.Date(2025, 3, 14, 9, 0, 0, 0, zone))
	if err != nil {
		t.Fatalf("format failed: %v", err)
	}
	if got != "2025-03-14T15:00:00Z" {
		t.Errorf("expected UTC rendering, got %q", got)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	header := []string{"id", "name", "note"}
	rows := []models.Row{
		{"id": "t1", "name": `Rent, "Feb"`, "note": "first\nsecond"},
		{"id": "t2", "name": "plain", "note": ""},
	}

	content, err := EncodeTable(header, rows)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	gotHeader, records, rowErrs, err := DecodeTable(content)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(rowErrs) != 0 {
		t.Fatalf("unexpected row errors: %v", rowErrs)
	}
	if strings.Join(gotHeader, ",") != strings.Join(header, ",") {
		t.Errorf("header did not round-trip: %v", gotHeader)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0]["name"] != `Rent, "Feb"` {
		t.Errorf("quoted value did not round-trip: %q", records[0]["name"])
	}
	if records[0]["note"] != "first\nsecond" {
		t.Errorf("multiline value did not round-trip: %q", records[0]["note"])
	}
	if records[1]["note"] != "" {
		t.Errorf("empty value did not round-trip: %q", records[1]["note"])
	}
}

func TestDecodeTableColumnMismatch(t *testing.T) {
	content := "id,name\nt1,First\nt2\nt3,Third\n"

	_, records, rowErrs, err := DecodeTable(content)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("expected the well-formed rows to survive, got %d", len(records))
	}
	if len(rowErrs) != 1 {
		t.Fatalf("expected one row error, got %v", rowErrs)
	}
	if rowErrs[0].Line != 3 {
		t.Errorf("expected error on line 3, got %d", rowErrs[0].Line)
	}
}

func TestDecodeTableEmptyInput(t *testing.T) {
	if _, _, _, err := DecodeTable(""); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestRestoreRowTypes(t *testing.T) {
	cfg, err := models.Config(models.TableTransactions)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	row, err := RestoreRow(cfg, map[string]string{
		"id":        "t1",
		"amount":    "-54.23",
		"date":      "2025-03-14T00:00:00Z",
		"isdeleted": "false",
	})
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	amount, ok := row["amount"].(decimal.Decimal)
	if !ok || !amount.Equal(decimal.RequireFromString("-54.23")) {
		t.Errorf("amount not restored as decimal: %#v", row["amount"])
	}
	if _, ok := row["date"].(time.Time); !ok {
		t.Errorf("date not restored as time: %#v", row["date"])
	}
	if v, ok := row["isdeleted"].(bool); !ok || v {
		t.Errorf("isdeleted not restored as bool: %#v", row["isdeleted"])
	}
}

func TestRestoreRowBadDate(t *testing.T) {
	cfg, _ := models.Config(models.TableTransactions)
	if _, err := RestoreRow(cfg, map[string]string{"date": "03/14/2025"}); err == nil {
		t.Error("expected error for non-RFC3339 date")
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	env := &Envelope{
		Timestamp:   time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC),
		RecordCount: 3,
		Files: []File{
			{FileName: "accounts", Content: "id,name\na1,Checking\n", RecordCount: 1},
			{FileName: "transactions", Content: "id\nt1\nt2\n", RecordCount: 2},
		},
	}

	data, err := MarshalEnvelope(env)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if !strings.Contains(string(data), `"fileName": "accounts"`) {
		t.Errorf("unexpected envelope shape: %s", data)
	}

	got, err := UnmarshalEnvelope(data)
	if err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if got.RecordCount != 3 || len(got.Files) != 2 {
		t.Errorf("envelope did not round-trip: %+v", got)
	}
	if !got.Timestamp.Equal(env.Timestamp) {
		t.Errorf("timestamp did not round-trip: %v", got.Timestamp)
	}
}

func TestEnvelopeForFile(t *testing.T) {
	env := EnvelopeForFile("accounts", "id,name\na1,Checking\na2,Savings\n")

	if len(env.Files) != 1 {
		t.Fatalf("expected one file, got %d", len(env.Files))
	}
	if env.Files[0].FileName != "accounts" {
		t.Errorf("expected accounts, got %s", env.Files[0].FileName)
	}
	if env.RecordCount != 2 || env.Files[0].RecordCount != 2 {
		t.Errorf("expected 2 records counted, got %d/%d", env.RecordCount, env.Files[0].RecordCount)
	}
	if env.Timestamp.IsZero() {
		t.Error("expected a stamped envelope")
	}

	// Undecodable content still wraps; the import run reports it.
	empty := EnvelopeForFile("accounts", "")
	if len(empty.Files) != 1 || empty.RecordCount != 0 {
		t.Errorf("expected a zero-count wrapper, got %+v", empty)
	}
}
