package scoring

import (
	"math"
	"strings"
	"unicode/utf8"

	"interview-rehearsal-service/internal/domain"
)

const (
	coverageWeight    = 0.8
	lengthWeight      = 0.2
	fullLengthWords   = 60
	substanceMinChars = 20
)

// Evaluate scores an answer against its reference answer on a 0-100 scale
// and maps the result to a feedback tier.
//
// The heuristic is deliberately deterministic: reference tokens (lowercased,
// split on non-alphanumeric runs, deduplicated) are matched as substrings of
// the lowercased answer; coverage of those tokens carries 80% of the score
// and answer length (capped at 60 words) the remaining 20%.
func Evaluate(answer, reference string) domain.ScoreRecord {
	if answer == "" || reference == "" {
		return record(0)
	}

	a := strings.ToLower(answer)
	tokens := referenceTokens(strings.ToLower(reference))

	if len(tokens) == 0 {
		// No usable reference tokens; fall back to answer substance,
		// measured in characters rather than bytes.
		if utf8.RuneCountInString(a) > substanceMinChars {
			return record(60)
		}
		return record(30)
	}

	hits := 0
	for _, tok := range tokens {
		if strings.Contains(a, tok) {
			hits++
		}
	}
	coverage := float64(hits) / float64(len(tokens))
	lengthBoost := math.Min(1, float64(len(strings.Fields(answer)))/fullLengthWords)

	score := int(math.Round(100 * (coverageWeight*coverage + lengthWeight*lengthBoost)))
	return record(score)
}

// Overall is the rounded mean of per-item scores. The caller guarantees a
// non-empty slice; a valid session always has at least one question.
func Overall(scores []int) int {
	if len(scores) == 0 {
		return 0
	}
	sum := 0
	for _, s := range scores {
		sum += s
	}
	return int(math.Round(float64(sum) / float64(len(scores))))
}

// TierFor maps a score to its feedback tier using inclusive lower bounds.
func TierFor(score int) domain.Tier {
	switch {
	case score >= 80:
		return domain.TierStrong
	case score >= 60:
		return domain.TierGood
	case score >= 40:
		return domain.TierPartial
	default:
		return domain.TierNeedsImprovement
	}
}

func record(score int) domain.ScoreRecord {
	tier := TierFor(score)
	return domain.ScoreRecord{Score: score, Tier: tier, Feedback: feedbackFor(tier)}
}

func feedbackFor(tier domain.Tier) string {
	switch tier {
	case domain.TierStrong:
		return "Strong, well-aligned answer."
	case domain.TierGood:
		return "Good, but add more detail and examples."
	case domain.TierPartial:
		return "Partial coverage. Address missing key points."
	default:
		return "Needs improvement. Structure your response and hit core concepts."
	}
}

// referenceTokens splits on runs of non-alphanumeric characters, drops
// empties, and deduplicates while preserving first-seen order.
func referenceTokens(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	seen := make(map[string]struct{}, len(fields))
	tokens := fields[:0]
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		tokens = append(tokens, f)
	}
	return tokens
}
