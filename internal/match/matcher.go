package match

import (
	"context"
	"time"

	"venue-checkin/internal/common/errors"
	"venue-checkin/internal/common/logger"
	"venue-checkin/internal/common/metrics"
	"venue-checkin/internal/common/observability"
)

// MatchResult is the outcome of a full matching attempt. "No match" is a
// valid, expected outcome (Success true, zero candidates), distinct from a
// transport failure (Success false, Error populated).
type MatchResult struct {
	Success    bool        `json:"success"`
	Source     string      `json:"source,omitempty"`
	Candidates []Candidate `json:"candidates"`
	Error      string      `json:"error,omitempty"`
}

// Matcher orchestrates lookups across an ordered list of sources, stopping
// at the first source that yields results.
type Matcher struct {
	sources []Source
	obs     *observability.Observability
	logger  logger.Logger
}

func NewMatcher(sources []Source, obs *observability.Observability, log logger.Logger) *Matcher {
	return &Matcher{
		sources: sources,
		obs:     obs,
		logger:  log.WithFields(map[string]interface{}{"component": "matcher"}),
	}
}

// Find runs the matching pipeline for one query. A remote call failing does
// not abort the operation; the matcher records the failure and moves on to
// the next source. Results never merge across sources.
func (m *Matcher) Find(ctx context.Context, query NameQuery) (*MatchResult, error) {
	if query.Empty() {
		return nil, errors.NewInvalidQueryError("at least one name variant or a date of birth is required")
	}

	start := time.Now()
	var (
		lastErr   error
		completed int
	)

	for i, src := range m.sources {
		candidates, err := src.Search(ctx, query)
		if err != nil {
			m.logger.Warn("source search failed, falling through", map[string]interface{}{
				"source": src.Tag(),
				"error":  err.Error(),
			})
			metrics.MemberLookups.WithLabelValues(src.Tag(), "error").Inc()
			lastErr = err
			continue
		}
		completed++

		if len(candidates) == 0 {
			metrics.MemberLookups.WithLabelValues(src.Tag(), "empty").Inc()
			if m.obs != nil && i+1 < len(m.sources) {
				m.obs.RecordSourceFallback(ctx, src.Tag(), m.sources[i+1].Tag())
			}
			continue
		}

		ordered := promoteExact(dedupe(candidates), query)
		metrics.MemberLookups.WithLabelValues(src.Tag(), "hit").Inc()
		metrics.LookupDuration.WithLabelValues("hit").Observe(time.Since(start).Seconds())

		m.logger.Info("member match found", map[string]interface{}{
			"source":     src.Tag(),
			"candidates": len(ordered),
		})
		return &MatchResult{
			Success:    true,
			Source:     src.Tag(),
			Candidates: ordered,
		}, nil
	}

	// Every source errored: transport failure, not "no match".
	if completed == 0 && lastErr != nil {
		metrics.LookupDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		stdErr := errors.NewCRMTransportError("all sources", lastErr)
		return &MatchResult{
			Success:    false,
			Candidates: []Candidate{},
			Error:      stdErr.Details,
		}, nil
	}

	metrics.LookupDuration.WithLabelValues("empty").Observe(time.Since(start).Seconds())
	return &MatchResult{
		Success:    true,
		Candidates: []Candidate{},
	}, nil
}

// dedupe collapses candidates sharing an extracted identifier. Last seen
// wins; candidates are structurally identical across calls within a source,
// so only the position of the first occurrence is kept.
func dedupe(candidates []Candidate) []Candidate {
	byID := make(map[string]Candidate, len(candidates))
	order := make([]string, 0, len(candidates))
	for _, cand := range candidates {
		if _, seen := byID[cand.ID]; !seen {
			order = append(order, cand.ID)
		}
		byID[cand.ID] = cand
	}

	out := make([]Candidate, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out
}

// promoteExact moves candidates whose normalized first name, last name and
// DOB all equal the query's canonical values to the front, preserving the
// relative order of everything else.
func promoteExact(candidates []Candidate, query NameQuery) []Candidate {
	exact := make([]Candidate, 0, len(candidates))
	rest := make([]Candidate, 0, len(candidates))
	for _, cand := range candidates {
		if isExact(cand, query) {
			exact = append(exact, cand)
		} else {
			rest = append(rest, cand)
		}
	}
	return append(exact, rest...)
}

func isExact(cand Candidate, query NameQuery) bool {
	return TitleCase(cand.FirstName) == query.FirstName &&
		TitleCase(cand.LastName) == query.LastName &&
		NormalizeDOB(cand.DateOfBirth) == query.DateOfBirth
}
