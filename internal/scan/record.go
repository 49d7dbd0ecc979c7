package scan

// ScanRecord is one row of the ID-scanner export, mapped from the raw
// column names to canonical fields. Records are immutable once read; the
// lifecycle is a single request/response cycle.
type ScanRecord struct {
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	FullName       string `json:"fullName"`
	DateOfBirth    string `json:"dateOfBirth"`
	Age            string `json:"age"`
	DocumentNumber string `json:"documentNumber"`
	DocumentExpiry string `json:"documentExpiry"`
	DocumentIssued string `json:"documentIssued"`
	CapturedAt     string `json:"capturedAt"`
	PhotoRef       string `json:"photoRef"`
}

// Raw export column headers, as emitted by the scanner device.
const (
	colFirstName   = "FIRST NAME"
	colLastName    = "LAST NAME"
	colFullName    = "FULL NAME"
	colBirthdate   = "BIRTHDATE"
	colAge         = "AGE"
	colLicenseNo   = "DRV LC NO"
	colExpiresOn   = "EXPIRES ON"
	colIssuedOn    = "ISSUED ON"
	colCreated     = "CREATED"
	colImage       = "IMAGE1"
)

func recordFromRow(header map[string]int, row []string) *ScanRecord {
	get := func(col string) string {
		idx, ok := header[col]
		if !ok || idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	return &ScanRecord{
		FirstName:      get(colFirstName),
		LastName:       get(colLastName),
		FullName:       get(colFullName),
		DateOfBirth:    get(colBirthdate),
		Age:            get(colAge),
		DocumentNumber: get(colLicenseNo),
		DocumentExpiry: get(colExpiresOn),
		DocumentIssued: get(colIssuedOn),
		CapturedAt:     get(colCreated),
		PhotoRef:       get(colImage),
	}
}
