package lookup

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/WessleyAI/citycast/engine/semantic"
	"github.com/WessleyAI/citycast/pkg/fn"
)

// ConfidenceThreshold is the minimum cosine score for a confident answer.
const ConfidenceThreshold = 0.3

// NotFoundMessage is returned when the index has nothing to match against.
const NotFoundMessage = "Sorry, I couldn't find weather information for any city in your query."

// Outcome classifies a query result.
type Outcome string

const (
	OutcomeAnswered      Outcome = "answered"
	OutcomeLowConfidence Outcome = "low_confidence"
	OutcomeNotFound      Outcome = "not_found"
)

// Result is the structured answer to a query. Match is nil when Outcome is
// OutcomeNotFound.
type Result struct {
	Query   string
	Outcome Outcome
	Match   *semantic.Match
	Answer  string
}

// Lookup embeds prompt, takes the single nearest city and classifies it.
func (s *Service) Lookup(ctx context.Context, prompt string) (Result, error) {
	start := time.Now()
	defer s.m.queryDuration.Since(start)

	pipeline := fn.Then(
		fn.TracedStage("lookup.embed_query", fn.Lift(s.embedQuery)),
		fn.TracedStage("lookup.search", fn.Lift(s.nearest)),
	)
	match, err := pipeline(ctx, prompt).Unwrap()
	if err != nil {
		return Result{Query: prompt}, err
	}

	res := classify(prompt, match)
	s.m.queries[res.Outcome].Inc()
	if match != nil {
		s.logger.Debug("query matched", "city", match.ID, "score", match.Score, "outcome", res.Outcome)
	}
	return res, nil
}

// Answer is Lookup reduced to its user-facing text.
func (s *Service) Answer(ctx context.Context, prompt string) (string, error) {
	res, err := s.Lookup(ctx, prompt)
	if err != nil {
		return "", err
	}
	return res.Answer, nil
}

func (s *Service) embedQuery(ctx context.Context, prompt string) ([]float32, error) {
	start := time.Now()
	defer s.m.embedDuration.Since(start)
	vec, err := s.embedder.Embed(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("lookup: embed query: %w", err)
	}
	return vec, nil
}

func (s *Service) nearest(ctx context.Context, vec []float32) (*semantic.Match, error) {
	matches, err := s.index.Search(ctx, vec, 1)
	if err != nil {
		return nil, fmt.Errorf("lookup: search: %w", err)
	}
	if len(matches) == 0 {
		return nil, nil
	}
	return &matches[0], nil
}

func classify(prompt string, m *semantic.Match) Result {
	res := Result{Query: prompt, Match: m}
	switch {
	case m == nil:
		res.Outcome = OutcomeNotFound
		res.Answer = NotFoundMessage
	case m.Score < ConfidenceThreshold:
		res.Outcome = OutcomeLowConfidence
		res.Answer = fmt.Sprintf("I found a possible match for '%s', but I'm not very confident. Could you be more specific?", m.ID)
	default:
		res.Outcome = OutcomeAnswered
		res.Answer = fmt.Sprintf("Today's weather in %s:\n- Temperature: %s°C\n- Wind speed: %s km/h",
			m.ID, formatNumber(m.Weather.Temperature), formatNumber(m.Weather.WindSpeed))
	}
	return res
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
