package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// FindMemberRequest carries the raw (pre-normalization) search criteria
// from the presentation layer.
type FindMemberRequest struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	DateOfBirth string `json:"dateOfBirth"`
}

// Validate requires at least one criterion. Field shapes stay loose: the
// normalizer tolerates any casing and passes unparsable DOBs through.
func (r FindMemberRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName,
			validation.Required.When(r.LastName == "" && r.DateOfBirth == "").
				Error("at least one of firstName, lastName or dateOfBirth is required"),
			validation.Length(0, 128),
		),
		validation.Field(&r.LastName, validation.Length(0, 128)),
		validation.Field(&r.DateOfBirth, validation.Length(0, 32)),
	)
}

// MemberIDRequest carries the member identifier for plan/order lookups.
type MemberIDRequest struct {
	MemberID string `json:"memberId"`
}

func (r MemberIDRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.MemberID, validation.Required, validation.Length(1, 128)),
	)
}
