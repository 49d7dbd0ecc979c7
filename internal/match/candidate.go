package match

import (
	"github.com/google/uuid"

	"venue-checkin/internal/common/crm"
)

// Candidate is one remote profile considered during matching, tagged with
// the source that produced it.
type Candidate struct {
	ID          string     `json:"id"`
	Source      string     `json:"source"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	DateOfBirth string     `json:"dateOfBirth"`
	Email       string     `json:"email,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	Fields      crm.Record `json:"fields,omitempty"`
}

// idFields is the identifier fallback chain. Different directory shapes
// expose the record key under different names; the first present wins.
var idFields = []string{"id", "ID", "Record_Id", "Contact_Id"}

func extractID(rec crm.Record) string {
	for _, field := range idFields {
		if v := rec.String(field); v != "" {
			return v
		}
	}
	// No identifier at all: key the candidate uniquely so dedup never
	// collapses two unrelated records.
	return "unidentified-" + uuid.NewString()
}

func candidateFromRecord(rec crm.Record, source string) Candidate {
	return Candidate{
		ID:          extractID(rec),
		Source:      source,
		FirstName:   rec.String("First_Name"),
		LastName:    rec.String("Last_Name"),
		DateOfBirth: rec.String("Date_of_Birth"),
		Email:       rec.String("Email"),
		Phone:       rec.String("Phone"),
		Fields:      rec,
	}
}
