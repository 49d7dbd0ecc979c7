package match

import (
	"context"

	"venue-checkin/internal/common/crm"
	"venue-checkin/internal/common/logger"
)

// Source is one remote directory queried during matching.
type Source interface {
	Tag() string
	Search(ctx context.Context, query NameQuery) ([]Candidate, error)
}

// searchClient is the slice of the CRM client the sources need.
type searchClient interface {
	SearchByCriteria(ctx context.Context, module, criteria string, page, perPage int) ([]crm.Record, error)
	SearchByWord(ctx context.Context, module, word string, page, perPage int) ([]crm.Record, error)
}

// directorySource queries a module whose search operation accepts a full
// OR-combined criteria expression in a single call.
type directorySource struct {
	tag      string
	module   string
	client   searchClient
	pageSize int
}

// NewDirectorySource builds a criteria-search source over one CRM module.
func NewDirectorySource(tag, module string, client searchClient, pageSize int) Source {
	return &directorySource{
		tag:      tag,
		module:   module,
		client:   client,
		pageSize: pageSize,
	}
}

func (s *directorySource) Tag() string {
	return s.tag
}

func (s *directorySource) Search(ctx context.Context, query NameQuery) ([]Candidate, error) {
	nameFilters := make([]crm.Filter, 0, len(query.Variants))
	for _, variant := range query.Variants {
		nameFilters = append(nameFilters, crm.Filter{Field: "First_Name", Operator: "equals", Value: variant})
	}

	var lastGroup, dobGroup string
	if query.LastName != "" {
		lastGroup = crm.Filter{Field: "Last_Name", Operator: "equals", Value: query.LastName}.String()
	}
	if query.DateOfBirth != "" {
		dobGroup = crm.Filter{Field: "Date_of_Birth", Operator: "equals", Value: query.DateOfBirth}.String()
	}

	criteria := crm.AndGroups(crm.OrCriteria(nameFilters), lastGroup, dobGroup)
	if criteria == "" {
		return nil, nil
	}

	records, err := s.client.SearchByCriteria(ctx, s.module, criteria, 1, s.pageSize)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(records))
	for _, rec := range records {
		candidates = append(candidates, candidateFromRecord(rec, s.tag))
	}
	return candidates, nil
}

// wordSource is the last-resort free-text search. The word index supports a
// single term per call, so it issues one call per variant and unions the raw
// results; dedup happens in the matcher.
type wordSource struct {
	tag      string
	module   string
	client   searchClient
	pageSize int
	logger   logger.Logger
}

// NewWordSource builds a free-text search source over one CRM module.
func NewWordSource(tag, module string, client searchClient, pageSize int, log logger.Logger) Source {
	return &wordSource{
		tag:      tag,
		module:   module,
		client:   client,
		pageSize: pageSize,
		logger:   log.WithFields(map[string]interface{}{"source": tag}),
	}
}

func (s *wordSource) Tag() string {
	return s.tag
}

func (s *wordSource) Search(ctx context.Context, query NameQuery) ([]Candidate, error) {
	terms := query.Variants
	if len(terms) == 0 && query.LastName != "" {
		terms = []string{query.LastName}
	}
	if len(terms) == 0 {
		return nil, nil
	}

	var (
		union   []Candidate
		lastErr error
		failed  int
	)
	for _, term := range terms {
		records, err := s.client.SearchByWord(ctx, s.module, term, 1, s.pageSize)
		if err != nil {
			// One rejected term must not abort the others.
			s.logger.Warn("word search failed, continuing with next variant", map[string]interface{}{
				"term":  term,
				"error": err.Error(),
			})
			lastErr = err
			failed++
			continue
		}
		for _, rec := range records {
			cand := candidateFromRecord(rec, s.tag)
			if query.DateOfBirth != "" && cand.DateOfBirth != "" &&
				NormalizeDOB(cand.DateOfBirth) != query.DateOfBirth {
				continue
			}
			union = append(union, cand)
		}
	}

	if failed == len(terms) && lastErr != nil {
		return nil, lastErr
	}
	return union, nil
}
