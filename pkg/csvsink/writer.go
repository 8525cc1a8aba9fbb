// Package csvsink serializes accumulated records to a timestamped CSV file.
//
// The header is the union of field names across all records in first-seen
// order, so the sink tolerates the slightly varying schemas the server
// returns between pages. Output is written to a temporary file and renamed
// into place, so a failed write never leaves a partial artifact behind.
package csvsink

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/akshay033333/stocks-API-extractor/pkg/client"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var rowsWrittenTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "tickers_csv_rows_written_total",
	Help: "Total CSV data rows written",
})

// ErrNoRecords is returned when there is nothing to write.
var ErrNoRecords = errors.New("no records to write")

// Filename returns a timestamped output filename such as
// "stock_tickers_20250830_143015.csv".
func Filename(prefix string, ts time.Time) string {
	if prefix == "" {
		prefix = "stock_tickers"
	}
	return fmt.Sprintf("%s_%s.csv", prefix, ts.Format("20060102_150405"))
}

// Write serializes records to path. The write is all-or-nothing: rows go to
// path+".tmp" first and the file is renamed onto path only after a clean
// flush, with the temporary file removed on any failure.
func Write(records []client.Record, path string) (err error) {
	if len(records) == 0 {
		return ErrNoRecords
	}

	header := headerUnion(records)

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmpPath)
		}
	}()

	w := csv.NewWriter(f)
	if err = w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := make([]string, len(header))
	for _, record := range records {
		for i, field := range header {
			value, ok := record.Get(field)
			if !ok {
				row[i] = ""
				continue
			}
			row[i] = formatValue(value)
		}
		if err = w.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	w.Flush()
	if err = w.Error(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close output file: %w", err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename output file: %w", err)
	}

	rowsWrittenTotal.Add(float64(len(records)))
	return nil
}

// headerUnion collects field names across all records in first-seen order:
// record order first, then key order within each record.
func headerUnion(records []client.Record) []string {
	var header []string
	seen := make(map[string]struct{})
	for _, record := range records {
		for _, key := range record.Keys() {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			header = append(header, key)
		}
	}
	return header
}

// formatValue renders a field value for CSV output. Missing and null fields
// become empty cells; numbers keep their wire representation so large
// integers never collapse into scientific notation.
func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
