package engine

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/kdocs/attribution-engine/internal/core/domain"
)

// Engine combines rule evaluation and similarity voting into ranked,
// confidence-scored attribute suggestions. It holds only validated
// configuration and is safe for concurrent use: every Suggest call is
// an independent computation over its own inputs.
type Engine struct {
	cfg       Config
	stopwords map[string]struct{}
	log       *slog.Logger
}

func New(cfg Config, log *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		cfg:       cfg,
		stopwords: buildStopwordSet(cfg.ExtraStopwords),
		log:       log,
	}, nil
}

// RuleEvaluation is the outcome of evaluating one rule against one
// document, with per-condition details for dry-runs and logging.
type RuleEvaluation struct {
	RuleID     string                     `json:"rule_id"`
	RuleName   string                     `json:"rule_name"`
	Matched    bool                       `json:"matched"`
	Conditions [][]domain.ConditionResult `json:"conditions"`
}

// EvaluateRule applies the rule's group semantics: AND across the
// conditions of a group, OR across groups. A rule without conditions
// always matches.
func (e *Engine) EvaluateRule(rule domain.Rule, doc *domain.Document) RuleEvaluation {
	eval := RuleEvaluation{RuleID: rule.ID, RuleName: rule.Name}
	if len(rule.Groups) == 0 {
		eval.Matched = true
		return eval
	}

	for _, group := range rule.Groups {
		groupMatched := true
		results := make([]domain.ConditionResult, 0, len(group))
		for _, cond := range group {
			res := EvaluateCondition(cond, doc)
			results = append(results, res)
			if !res.Matched {
				groupMatched = false
			}
		}
		eval.Conditions = append(eval.Conditions, results)
		if groupMatched {
			eval.Matched = true
		}
	}
	return eval
}

// Suggest runs the full attribution pass for one document: rules vote
// with a fixed high weight, similar corrected documents vote with their
// similarity score, and the per-field winner becomes the suggestion.
// Malformed rules and corpus entries are skipped with a logged detail;
// partial results are always returned. The result is ordered by
// descending confidence, at most one suggestion per predicted field.
func (e *Engine) Suggest(doc *domain.Document, rules []domain.Rule, corpus []domain.Correction) []domain.Suggestion {
	if doc == nil {
		return nil
	}

	votes := e.ruleVotes(doc, rules)
	votes = append(votes, e.similarityVotes(doc, corpus)...)
	return tallyVotes(votes)
}

func (e *Engine) ruleVotes(doc *domain.Document, rules []domain.Rule) []domain.Vote {
	ordered := make([]domain.Rule, 0, len(rules))
	for _, rule := range rules {
		if rule.Enabled {
			ordered = append(ordered, rule)
		}
	}
	// Higher priority number runs first; name breaks ties so the order
	// is stable across loads.
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority > ordered[j].Priority
		}
		return ordered[i].Name < ordered[j].Name
	})

	var votes []domain.Vote
	for _, rule := range ordered {
		eval := e.EvaluateRule(rule, doc)
		if !eval.Matched {
			continue
		}

		for _, action := range rule.Actions {
			field := action.Type.Field()
			if field == "" {
				e.log.Warn("skipping rule action with unknown type",
					"rule_id", rule.ID, "action_type", string(action.Type))
				continue
			}
			if action.Value == "" {
				e.log.Warn("skipping rule action without value",
					"rule_id", rule.ID, "action_type", string(action.Type))
				continue
			}
			votes = append(votes, domain.Vote{
				Field:  field,
				Value:  action.Value,
				Weight: e.cfg.RuleVoteWeight,
				Source: domain.VoteSourceRule,
				RuleID: rule.ID,
			})
		}

		if rule.StopOnMatch {
			break
		}
	}
	return votes
}

func (e *Engine) similarityVotes(doc *domain.Document, corpus []domain.Correction) []domain.Vote {
	if len(corpus) == 0 {
		return nil
	}
	target := e.ExtractFeatures(doc)

	var votes []domain.Vote
	for _, corr := range corpus {
		if corr.DocumentID == doc.ID {
			continue
		}
		if !corr.Field.Predictable() {
			e.log.Warn("skipping correction for unknown field",
				"document_id", corr.DocumentID, "field", string(corr.Field))
			continue
		}
		if corr.NewValue == "" {
			e.log.Debug("skipping correction without value", "document_id", corr.DocumentID)
			continue
		}
		if !corr.Features.HasSignal() {
			e.log.Debug("skipping featureless correction", "document_id", corr.DocumentID)
			continue
		}

		score := e.Similarity(target, corr.Features)
		if score <= e.cfg.SimilarityThreshold {
			continue
		}

		weight := score
		if corr.Confidence > 0 && corr.Confidence < 1 {
			weight *= corr.Confidence
		}
		votes = append(votes, domain.Vote{
			Field:      corr.Field,
			Value:      corr.NewValue,
			Weight:     weight,
			Source:     domain.VoteSourceSimilarity,
			DocumentID: corr.DocumentID,
		})
	}
	return votes
}
