package scan

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"venue-checkin/internal/common/errors"
	"venue-checkin/internal/common/logger"
	"venue-checkin/internal/common/metrics"
)

var byteOrderMark = "\ufeff"

// createdLayouts are tried in order when parsing the CREATED column. The
// scanner firmware emits US-style dates; newer builds emit ISO.
var createdLayouts = []string{
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006 3:04:05 PM",
	"01/02/2006 3:04 PM",
	"01/02/2006",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Reader reads the scanner export file and selects the most recent row.
type Reader struct {
	path   string
	logger logger.Logger
}

func NewReader(exportPath string, log logger.Logger) *Reader {
	return &Reader{
		path:   exportPath,
		logger: log.WithFields(map[string]interface{}{"component": "scan-reader"}),
	}
}

// Latest returns the export row with the maximum parsed CREATED timestamp.
// Ties and unparsable timestamps resolve to the earliest-appearing row, so a
// malformed row never aborts selection.
func (r *Reader) Latest() (*ScanRecord, error) {
	if _, err := os.Stat(r.path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewScanFileNotFoundError(r.path)
		}
		return nil, errors.NewScanParseFailedError(err)
	}

	rows, format, err := r.readRows()
	if err != nil {
		return nil, errors.NewScanParseFailedError(err)
	}

	if len(rows) < 2 {
		return nil, errors.NewScanFileEmptyError(r.path)
	}

	header := headerIndex(rows[0])
	if _, ok := header[colCreated]; !ok {
		return nil, errors.NewScanParseFailedError(fmt.Errorf("missing %q column in %s", colCreated, r.path))
	}

	records := make([]*ScanRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isEmptyRow(row) {
			continue
		}
		records = append(records, recordFromRow(header, row))
	}

	if len(records) == 0 {
		return nil, errors.NewScanFileEmptyError(r.path)
	}

	latest := records[0]
	for _, rec := range records[1:] {
		if compareCreated(rec.CapturedAt, latest.CapturedAt) > 0 {
			latest = rec
		}
	}

	metrics.ScansRead.WithLabelValues(format).Inc()
	r.logger.Debug("selected latest scan", map[string]interface{}{
		"rows":       len(records),
		"capturedAt": latest.CapturedAt,
	})

	return latest, nil
}

func (r *Reader) readRows() ([][]string, string, error) {
	if strings.EqualFold(filepath.Ext(r.path), ".xlsx") {
		rows, err := r.readXLSX()
		return rows, "xlsx", err
	}
	rows, err := r.readCSV()
	return rows, "csv", err
}

func (r *Reader) readCSV() ([][]string, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // scanner exports have ragged trailing columns
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return rows, nil
}

func (r *Reader) readXLSX() ([][]string, error) {
	f, err := excelize.OpenFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx file has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from xlsx: %w", err)
	}
	return rows, nil
}

// headerIndex maps normalized column names to their positions.
func headerIndex(headerRow []string) map[string]int {
	idx := make(map[string]int, len(headerRow))
	for i, name := range headerRow {
		name = strings.TrimPrefix(name, byteOrderMark)
		idx[strings.ToUpper(strings.TrimSpace(name))] = i
	}
	return idx
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// compareCreated orders two CREATED values by parsed timestamp. Either side
// failing to parse compares as equal, which keeps selection stable.
func compareCreated(a, b string) int {
	ta, errA := parseCreated(a)
	tb, errB := parseCreated(b)
	if errA != nil || errB != nil {
		return 0
	}
	switch {
	case ta.After(tb):
		return 1
	case ta.Before(tb):
		return -1
	default:
		return 0
	}
}

func parseCreated(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range createdLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable timestamp: %q", value)
}
