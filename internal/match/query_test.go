package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildQuery_Variants(t *testing.T) {
	tests := []struct {
		name         string
		firstName    string
		lastName     string
		dateOfBirth  string
		wantVariants []string
		wantFirst    string
		wantLast     string
		wantDOB      string
	}{
		{
			name:         "multi-part first name",
			firstName:    "JANE MARIE",
			lastName:     "DOE",
			dateOfBirth:  "01-15-1990",
			wantVariants: []string{"Jane Marie", "Jane", "Marie"},
			wantFirst:    "Jane Marie",
			wantLast:     "Doe",
			wantDOB:      "1990-01-15",
		},
		{
			name:         "single token first name",
			firstName:    "JOHN",
			lastName:     "SMITH",
			dateOfBirth:  "03-22-1985",
			wantVariants: []string{"John"},
			wantFirst:    "John",
			wantLast:     "Smith",
			wantDOB:      "1985-03-22",
		},
		{
			name:         "already proper case",
			firstName:    "Jane",
			lastName:     "Doe",
			wantVariants: []string{"Jane"},
			wantFirst:    "Jane",
			wantLast:     "Doe",
		},
		{
			name:         "duplicate tokens collapse",
			firstName:    "ANA ANA",
			lastName:     "LOPEZ",
			wantVariants: []string{"Ana Ana", "Ana"},
			wantFirst:    "Ana Ana",
			wantLast:     "Lopez",
		},
		{
			name:         "extra whitespace",
			firstName:    "  MARY   JO  ",
			lastName:     " BLIGE ",
			wantVariants: []string{"Mary Jo", "Mary", "Jo"},
			wantFirst:    "Mary Jo",
			wantLast:     "Blige",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := BuildQuery(tt.firstName, tt.lastName, tt.dateOfBirth)
			assert.Equal(t, tt.wantVariants, q.Variants)
			assert.Equal(t, tt.wantFirst, q.FirstName)
			assert.Equal(t, tt.wantLast, q.LastName)
			assert.Equal(t, tt.wantDOB, q.DateOfBirth)
			assert.False(t, q.Empty())
		})
	}
}

func TestBuildQuery_EmptyInput(t *testing.T) {
	q := BuildQuery("", "", "")
	assert.Empty(t, q.Variants)
	assert.Empty(t, q.FirstName)
	assert.Empty(t, q.LastName)
	assert.Empty(t, q.DateOfBirth)
	assert.True(t, q.Empty())
}

func TestBuildQuery_DOBOnly(t *testing.T) {
	q := BuildQuery("", "", "01-15-1990")
	assert.Empty(t, q.Variants)
	assert.Equal(t, "1990-01-15", q.DateOfBirth)
	assert.False(t, q.Empty())
}

func TestNormalizeDOB(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"dashed US format", "01-15-1990", "1990-01-15"},
		{"slashed US format", "03/22/1985", "1985-03-22"},
		{"unparsable passes through", "sometime in 1990", "sometime in 1990"},
		{"already ISO passes through", "1990-01-15", "1990-01-15"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDOB(tt.in))
		})
	}
}

func TestTitleCase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"JANE", "Jane"},
		{"jane marie", "Jane Marie"},
		{"McDONALD", "Mcdonald"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, TitleCase(tt.in))
	}
}
