package engine

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kdocs/attribution-engine/internal/core/domain"
)

// EvaluateCondition answers whether one condition matches one document.
// It is pure and total: it never mutates its inputs and never fails.
// Malformed operands (non-numeric values for numeric operators, invalid
// regular expressions, bad JSON lists) degrade to a non-match with a
// detail message so that one broken condition cannot abort the
// evaluation of the remaining rules.
func EvaluateCondition(cond domain.Condition, doc *domain.Document) domain.ConditionResult {
	if doc == nil {
		return noMatch("no document to evaluate")
	}

	switch cond.FieldType {
	case domain.FieldAmount:
		return evaluateAmount(cond, doc.Amount)
	case domain.FieldCorrespondent:
		return evaluateReference(cond, doc.CorrespondentID)
	case domain.FieldDocumentType:
		return evaluateReference(cond, doc.DocumentTypeID)
	case domain.FieldContent:
		return evaluateContent(cond, doc.Content)
	case domain.FieldTag:
		return evaluateTags(cond, doc.TagIDs)
	default:
		return noMatch("unknown field type %q", cond.FieldType)
	}
}

func match(format string, args ...any) domain.ConditionResult {
	return domain.ConditionResult{Matched: true, Detail: "match: " + fmt.Sprintf(format, args...)}
}

func noMatch(format string, args ...any) domain.ConditionResult {
	return domain.ConditionResult{Matched: false, Detail: "no match: " + fmt.Sprintf(format, args...)}
}

func unsupported(cond domain.Condition) domain.ConditionResult {
	return noMatch("operator %q is not supported for field %q", cond.Operator, cond.FieldType)
}

// parseOperand decodes a condition value that may carry a JSON scalar,
// pair or list. Values that are not valid JSON are kept as plain strings.
func parseOperand(raw string) any {
	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err == nil {
		return decoded
	}
	return raw
}

func evaluateAmount(cond domain.Condition, amount *float64) domain.ConditionResult {
	if amount == nil {
		return noMatch("amount is not set")
	}
	operand := parseOperand(cond.Value)

	switch cond.Operator {
	case domain.OpEquals, domain.OpGreaterThan, domain.OpGreaterOrEqual, domain.OpLessThan, domain.OpLessOrEqual:
		bound, ok := toFloat(operand)
		if !ok {
			return noMatch("non-numeric operand %q for amount %s", cond.Value, cond.Operator)
		}
		var matched bool
		switch cond.Operator {
		case domain.OpEquals:
			matched = *amount == bound
		case domain.OpGreaterThan:
			matched = *amount > bound
		case domain.OpGreaterOrEqual:
			matched = *amount >= bound
		case domain.OpLessThan:
			matched = *amount < bound
		case domain.OpLessOrEqual:
			matched = *amount <= bound
		}
		if matched {
			return match("amount %v %s %v", *amount, cond.Operator, bound)
		}
		return noMatch("amount %v %s %v", *amount, cond.Operator, bound)

	case domain.OpBetween:
		list, ok := operand.([]any)
		if !ok || len(list) < 2 {
			return noMatch("between operand %q is not a [min,max] pair", cond.Value)
		}
		low, okLow := toFloat(list[0])
		high, okHigh := toFloat(list[1])
		if !okLow || !okHigh {
			return noMatch("between operand %q is not numeric", cond.Value)
		}
		if *amount >= low && *amount <= high {
			return match("amount %v between [%v,%v]", *amount, low, high)
		}
		return noMatch("amount %v between [%v,%v]", *amount, low, high)

	default:
		return unsupported(cond)
	}
}

func evaluateReference(cond domain.Condition, id *int64) domain.ConditionResult {
	switch cond.Operator {
	case domain.OpIsEmpty:
		if id == nil {
			return match("%s is empty", cond.FieldType)
		}
		return noMatch("%s is set to %d", cond.FieldType, *id)

	case domain.OpIsNotEmpty:
		if id != nil {
			return match("%s is set to %d", cond.FieldType, *id)
		}
		return noMatch("%s is empty", cond.FieldType)

	case domain.OpEquals, domain.OpNotEquals:
		want := normalizeScalar(parseOperand(cond.Value))
		equal := id != nil && strconv.FormatInt(*id, 10) == want
		if (cond.Operator == domain.OpEquals) == equal {
			return match("%s %s %s", cond.FieldType, cond.Operator, want)
		}
		return noMatch("%s=%s %s %s", cond.FieldType, formatID(id), cond.Operator, want)

	case domain.OpIn, domain.OpNotIn:
		wanted, ok := scalarList(parseOperand(cond.Value))
		if !ok {
			return noMatch("operand %q for %s %s is not a list", cond.Value, cond.FieldType, cond.Operator)
		}
		member := false
		if id != nil {
			have := strconv.FormatInt(*id, 10)
			for _, w := range wanted {
				if w == have {
					member = true
					break
				}
			}
		}
		if (cond.Operator == domain.OpIn) == member {
			return match("%s=%s %s %v", cond.FieldType, formatID(id), cond.Operator, wanted)
		}
		return noMatch("%s=%s %s %v", cond.FieldType, formatID(id), cond.Operator, wanted)

	default:
		return unsupported(cond)
	}
}

func evaluateContent(cond domain.Condition, content string) domain.ConditionResult {
	needle := cond.Value

	switch cond.Operator {
	case domain.OpContains, domain.OpNotContains:
		found := strings.Contains(strings.ToLower(content), strings.ToLower(needle))
		if (cond.Operator == domain.OpContains) == found {
			return match("content %s %q", cond.Operator, needle)
		}
		return noMatch("content %s %q", cond.Operator, needle)

	case domain.OpStartsWith:
		if strings.HasPrefix(strings.ToLower(content), strings.ToLower(needle)) {
			return match("content starts with %q", needle)
		}
		return noMatch("content starts with %q", needle)

	case domain.OpEndsWith:
		if strings.HasSuffix(strings.ToLower(content), strings.ToLower(needle)) {
			return match("content ends with %q", needle)
		}
		return noMatch("content ends with %q", needle)

	case domain.OpRegex:
		re, err := regexp.Compile(needle)
		if err != nil {
			return noMatch("invalid regex %q: %v", needle, err)
		}
		if re.MatchString(content) {
			return match("content matches regex %q", needle)
		}
		return noMatch("content matches regex %q", needle)

	default:
		return unsupported(cond)
	}
}

func evaluateTags(cond domain.Condition, tagIDs []int64) domain.ConditionResult {
	switch cond.Operator {
	case domain.OpIsEmpty:
		if len(tagIDs) == 0 {
			return match("document has no tags")
		}
		return noMatch("document has %d tags", len(tagIDs))

	case domain.OpIsNotEmpty:
		if len(tagIDs) > 0 {
			return match("document has %d tags", len(tagIDs))
		}
		return noMatch("document has no tags")

	case domain.OpContains, domain.OpIn, domain.OpNotContains, domain.OpNotIn, domain.OpHasAll, domain.OpHasNone:
		wanted, ok := tagList(parseOperand(cond.Value))
		if !ok || len(wanted) == 0 {
			return noMatch("operand %q for tag %s is not a tag id or list of ids", cond.Value, cond.Operator)
		}
		have := make(map[int64]struct{}, len(tagIDs))
		for _, id := range tagIDs {
			have[id] = struct{}{}
		}
		hits := 0
		for _, id := range wanted {
			if _, ok := have[id]; ok {
				hits++
			}
		}

		var matched bool
		switch cond.Operator {
		case domain.OpContains, domain.OpIn:
			matched = hits > 0
		case domain.OpNotContains, domain.OpNotIn, domain.OpHasNone:
			matched = hits == 0
		case domain.OpHasAll:
			matched = hits == len(wanted)
		}
		if matched {
			return match("tags %v %s %v", tagIDs, cond.Operator, wanted)
		}
		return noMatch("tags %v %s %v", tagIDs, cond.Operator, wanted)

	default:
		return unsupported(cond)
	}
}

// normalizeScalar renders a decoded operand as a comparable string, so
// that id conditions match whether authored as 5, "5" or 5.0.
func normalizeScalar(v any) string {
	switch val := v.(type) {
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case string:
		return strings.TrimSpace(val)
	case bool:
		return strconv.FormatBool(val)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}

func scalarList(v any) ([]string, bool) {
	list, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		out = append(out, normalizeScalar(item))
	}
	return out, true
}

func tagList(v any) ([]int64, bool) {
	items, ok := v.([]any)
	if !ok {
		items = []any{v}
	}
	out := make([]int64, 0, len(items))
	for _, item := range items {
		f, ok := toFloat(item)
		if !ok {
			return nil, false
		}
		out = append(out, int64(f))
	}
	return out, true
}

func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func formatID(id *int64) string {
	if id == nil {
		return "<unset>"
	}
	return strconv.FormatInt(*id, 10)
}
