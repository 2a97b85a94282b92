package engine

import (
	"sort"

	"github.com/kdocs/attribution-engine/internal/core/domain"
)

type tally struct {
	weight float64
	votes  []domain.Vote
}

// tallyVotes groups votes per field and candidate value, sums weights,
// and turns the per-field winner into a suggestion with
// confidence = winner weight / total weight for that field. A field
// without votes yields no suggestion. Exact weight ties break by
// lexical order of the candidate value, which keeps the result
// deterministic regardless of vote arrival order.
func tallyVotes(votes []domain.Vote) []domain.Suggestion {
	byField := make(map[domain.FieldType]map[string]*tally)
	for _, vote := range votes {
		if vote.Weight <= 0 {
			continue
		}
		candidates, ok := byField[vote.Field]
		if !ok {
			candidates = make(map[string]*tally)
			byField[vote.Field] = candidates
		}
		t, ok := candidates[vote.Value]
		if !ok {
			t = &tally{}
			candidates[vote.Value] = t
		}
		t.weight += vote.Weight
		t.votes = append(t.votes, vote)
	}

	suggestions := make([]domain.Suggestion, 0, len(byField))
	for field, candidates := range byField {
		var winner string
		var winnerWeight, total float64
		for value, t := range candidates {
			total += t.weight
			switch {
			case t.weight > winnerWeight:
				winner, winnerWeight = value, t.weight
			case t.weight == winnerWeight && (winner == "" || value < winner):
				winner = value
			}
		}
		if total <= 0 {
			continue
		}

		supporting := candidates[winner].votes
		sort.SliceStable(supporting, func(i, j int) bool {
			return supporting[i].Weight > supporting[j].Weight
		})
		suggestions = append(suggestions, domain.Suggestion{
			Field:      field,
			Value:      winner,
			Confidence: winnerWeight / total,
			Votes:      supporting,
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].Confidence != suggestions[j].Confidence {
			return suggestions[i].Confidence > suggestions[j].Confidence
		}
		return suggestions[i].Field < suggestions[j].Field
	})
	return suggestions
}
