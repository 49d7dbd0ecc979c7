package scan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"venue-checkin/internal/common/errors"
	"venue-checkin/internal/common/logger"
)

// ==========================
// Test Helper Functions
// ==========================

const exportHeader = "FIRST NAME,LAST NAME,FULL NAME,BIRTHDATE,AGE,DRV LC NO,EXPIRES ON,ISSUED ON,CREATED,Image1"

func writeExport(t *testing.T, rows ...string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "scan-export.csv")

	content := exportHeader + "\n"
	for _, row := range rows {
		content += row + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func exportRow(first, last, dob, created string) string {
	return first + "," + last + "," + first + " " + last + "," + dob + ",34,D1234567,01/01/2030,01/01/2020," + created + ",img001.jpg"
}

func newTestReader(t *testing.T, path string) *Reader {
	return NewReader(path, logger.NewTestLogger(t))
}

// ==========================
// Latest Selection Tests
// ==========================

func TestReader_Latest_SelectsMaxTimestamp(t *testing.T) {
	tests := []struct {
		name          string
		rows          []string
		wantFirstName string
		wantCreated   string
	}{
		{
			name: "latest row is last",
			rows: []string{
				exportRow("JOHN", "SMITH", "03-22-1985", "06/01/2024 10:00"),
				exportRow("JANE", "DOE", "01-15-1990", "06/02/2024 09:30"),
			},
			wantFirstName: "JANE",
			wantCreated:   "06/02/2024 09:30",
		},
		{
			name: "latest row is first",
			rows: []string{
				exportRow("JANE", "DOE", "01-15-1990", "06/03/2024 08:00"),
				exportRow("JOHN", "SMITH", "03-22-1985", "06/01/2024 10:00"),
			},
			wantFirstName: "JANE",
			wantCreated:   "06/03/2024 08:00",
		},
		{
			name: "tie resolves to earliest-appearing row",
			rows: []string{
				exportRow("FIRST", "ROW", "01-01-1980", "06/01/2024 10:00"),
				exportRow("SECOND", "ROW", "01-01-1981", "06/01/2024 10:00"),
			},
			wantFirstName: "FIRST",
			wantCreated:   "06/01/2024 10:00",
		},
		{
			name: "single row",
			rows: []string{
				exportRow("JOHN", "SMITH", "03-22-1985", "06/01/2024 10:00"),
			},
			wantFirstName: "JOHN",
			wantCreated:   "06/01/2024 10:00",
		},
		{
			name: "iso timestamps",
			rows: []string{
				exportRow("OLD", "SCAN", "01-01-1980", "2024-06-01 10:00:00"),
				exportRow("NEW", "SCAN", "01-01-1981", "2024-06-02 10:00:00"),
			},
			wantFirstName: "NEW",
			wantCreated:   "2024-06-02 10:00:00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := newTestReader(t, writeExport(t, tt.rows...))

			record, err := reader.Latest()
			require.NoError(t, err)
			assert.Equal(t, tt.wantFirstName, record.FirstName)
			assert.Equal(t, tt.wantCreated, record.CapturedAt)
		})
	}
}

func TestReader_Latest_MalformedTimestampDoesNotAbort(t *testing.T) {
	reader := newTestReader(t, writeExport(t,
		exportRow("JOHN", "SMITH", "03-22-1985", "06/01/2024 10:00"),
		exportRow("BAD", "ROW", "01-01-1980", "not-a-date"),
		exportRow("JANE", "DOE", "01-15-1990", "06/02/2024 09:30"),
	))

	record, err := reader.Latest()
	require.NoError(t, err)
	assert.Equal(t, "JANE", record.FirstName)
}

func TestReader_Latest_AllTimestampsMalformed(t *testing.T) {
	// Selection stays deterministic: the first row wins when nothing parses.
	reader := newTestReader(t, writeExport(t,
		exportRow("FIRST", "ROW", "01-01-1980", "garbage"),
		exportRow("SECOND", "ROW", "01-01-1981", "also garbage"),
	))

	record, err := reader.Latest()
	require.NoError(t, err)
	assert.Equal(t, "FIRST", record.FirstName)
}

// ==========================
// Field Mapping Tests
// ==========================

func TestReader_Latest_FieldMapping(t *testing.T) {
	reader := newTestReader(t, writeExport(t,
		"JOHN,SMITH,JOHN SMITH,03-22-1985,39,D7654321,05/01/2028,05/01/2020,06/01/2024 10:00,img042.jpg",
	))

	record, err := reader.Latest()
	require.NoError(t, err)

	assert.Equal(t, "JOHN", record.FirstName)
	assert.Equal(t, "SMITH", record.LastName)
	assert.Equal(t, "JOHN SMITH", record.FullName)
	assert.Equal(t, "03-22-1985", record.DateOfBirth)
	assert.Equal(t, "39", record.Age)
	assert.Equal(t, "D7654321", record.DocumentNumber)
	assert.Equal(t, "05/01/2028", record.DocumentExpiry)
	assert.Equal(t, "05/01/2020", record.DocumentIssued)
	assert.Equal(t, "06/01/2024 10:00", record.CapturedAt)
	assert.Equal(t, "img042.jpg", record.PhotoRef)
}

func TestReader_Latest_BOMHeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scan-export.csv")
	content := "\ufeff" + exportHeader + "\n" + exportRow("JOHN", "SMITH", "03-22-1985", "06/01/2024 10:00") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	record, err := newTestReader(t, path).Latest()
	require.NoError(t, err)
	assert.Equal(t, "JOHN", record.FirstName)
}

// ==========================
// Error Path Tests
// ==========================

func TestReader_Latest_FileMissing(t *testing.T) {
	reader := newTestReader(t, filepath.Join(t.TempDir(), "nope.csv"))

	_, err := reader.Latest()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeScanFileNotFound))
}

func TestReader_Latest_EmptyFile(t *testing.T) {
	reader := newTestReader(t, writeExport(t))

	_, err := reader.Latest()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeScanFileEmpty))
}

func TestReader_Latest_OnlyBlankRows(t *testing.T) {
	reader := newTestReader(t, writeExport(t, ",,,,,,,,,"))

	_, err := reader.Latest()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeScanFileEmpty))
}

// ==========================
// XLSX Export Tests
// ==========================

func TestReader_Latest_XLSXExport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scan-export.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	header := []interface{}{"FIRST NAME", "LAST NAME", "FULL NAME", "BIRTHDATE", "AGE", "DRV LC NO", "EXPIRES ON", "ISSUED ON", "CREATED", "Image1"}
	require.NoError(t, f.SetSheetRow(sheet, "A1", &header))
	row1 := []interface{}{"JOHN", "SMITH", "JOHN SMITH", "03-22-1985", "39", "D1", "", "", "06/01/2024 10:00", ""}
	require.NoError(t, f.SetSheetRow(sheet, "A2", &row1))
	row2 := []interface{}{"JANE", "DOE", "JANE DOE", "01-15-1990", "34", "D2", "", "", "06/02/2024 09:30", ""}
	require.NoError(t, f.SetSheetRow(sheet, "A3", &row2))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	record, err := newTestReader(t, path).Latest()
	require.NoError(t, err)
	assert.Equal(t, "JANE", record.FirstName)
	assert.Equal(t, "01-15-1990", record.DateOfBirth)
}
