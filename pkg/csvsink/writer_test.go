package csvsink

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/akshay033333/stocks-API-extractor/pkg/client"
)

func record(pairs ...any) client.Record {
	r := client.NewRecord()
	for i := 0; i < len(pairs); i += 2 {
		r.Set(pairs[i].(string), pairs[i+1])
	}
	return r
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return rows
}

func TestFilename(t *testing.T) {
	ts := time.Date(2025, 8, 30, 14, 30, 15, 0, time.UTC)

	if got := Filename("stock_tickers", ts); got != "stock_tickers_20250830_143015.csv" {
		t.Errorf("Filename() = %q, want stock_tickers_20250830_143015.csv", got)
	}
	if got := Filename("", ts); got != "stock_tickers_20250830_143015.csv" {
		t.Errorf("Filename(\"\") = %q, want the default prefix", got)
	}
}

func TestWrite_HeaderIsFirstSeenUnion(t *testing.T) {
	records := []client.Record{
		record("ticker", "AAPL", "name", "Apple Inc."),
		record("ticker", "BRK.A", "cik", "0001067983", "name", "Berkshire Hathaway"),
	}

	path := filepath.Join(t.TempDir(), "out.csv")
	if err := Write(records, path); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	rows := readCSV(t, path)
	wantHeader := []string{"ticker", "name", "cik"}
	if len(rows[0]) != len(wantHeader) {
		t.Fatalf("header = %v, want %v", rows[0], wantHeader)
	}
	for i, col := range wantHeader {
		if rows[0][i] != col {
			t.Errorf("header[%d] = %q, want %q", i, rows[0][i], col)
		}
	}
}

func TestWrite_RoundTripWithOverlappingFieldSets(t *testing.T) {
	records := []client.Record{
		record("ticker", "AAPL", "name", "Apple Inc.", "active", true),
		record("ticker", "MSFT", "currency_name", "usd"),
		record("ticker", "GOOG", "name", "Alphabet Inc.", "shares", json.Number("5833000000")),
	}

	path := filepath.Join(t.TempDir(), "out.csv")
	if err := Write(records, path); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	rows := readCSV(t, path)
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want header + 3", len(rows))
	}

	header := rows[0]
	cell := func(row []string, field string) string {
		for i, h := range header {
			if h == field {
				return row[i]
			}
		}
		t.Fatalf("field %q missing from header %v", field, header)
		return ""
	}

	// Non-missing fields match the originals exactly.
	if got := cell(rows[1], "name"); got != "Apple Inc." {
		t.Errorf("row 1 name = %q, want Apple Inc.", got)
	}
	if got := cell(rows[1], "active"); got != "true" {
		t.Errorf("row 1 active = %q, want true", got)
	}
	if got := cell(rows[3], "shares"); got != "5833000000" {
		t.Errorf("row 3 shares = %q, want 5833000000 (no scientific notation)", got)
	}

	// Missing fields read back as empty.
	if got := cell(rows[2], "name"); got != "" {
		t.Errorf("row 2 name = %q, want empty", got)
	}
	if got := cell(rows[1], "currency_name"); got != "" {
		t.Errorf("row 1 currency_name = %q, want empty", got)
	}
}

func TestWrite_RowCountMatchesRecordCount(t *testing.T) {
	records := make([]client.Record, 0, 250)
	for i := 0; i < 250; i++ {
		records = append(records, record("ticker", "SYM", "n", json.Number("1")))
	}

	path := filepath.Join(t.TempDir(), "out.csv")
	if err := Write(records, path); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	rows := readCSV(t, path)
	if len(rows)-1 != 250 {
		t.Errorf("data rows = %d, want 250", len(rows)-1)
	}
}

func TestWrite_NoRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	if err := Write(nil, path); !errors.Is(err, ErrNoRecords) {
		t.Errorf("Write(nil) error = %v, want ErrNoRecords", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("no file should be created for an empty record set")
	}
}

func TestWrite_FailureLeavesNoPartialArtifact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "missing", "out.csv")

	err := Write([]client.Record{record("ticker", "AAPL")}, path)
	if err == nil {
		t.Fatal("Write() into a missing directory should fail")
	}

	entries, readErr := os.ReadDir(dir)
	if readErr != nil {
		t.Fatalf("read dir: %v", readErr)
	}
	if len(entries) != 0 {
		t.Errorf("directory should be empty after failure, found %v", entries)
	}
}

func TestWrite_NoTempFileRemainsOnSuccess(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")

	if err := Write([]client.Record{record("ticker", "AAPL")}, path); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file should be renamed away on success")
	}
}
