package query

import (
	"fmt"
	"strings"
)

// Condition is one WHERE predicate.
type Condition struct {
	Column   string
	Operator string
	Value    any
}

var binaryOperators = map[string]bool{
	"=": true, "!=": true, "<>": true, ">": true, "<": true, ">=": true, "<=": true,
	"LIKE": true, "NOT LIKE": true,
}

// where collects predicates joined with AND.
type where struct {
	conditions []Condition
}

func (w *where) add(column, operator string, value any) {
	w.conditions = append(w.conditions, Condition{
		Column:   column,
		Operator: strings.ToUpper(strings.TrimSpace(operator)),
		Value:    value,
	})
}

func (w *where) empty() bool {
	return len(w.conditions) == 0
}

// build renders the predicates. next is the 1-based index of the next bind
// argument and is advanced past the arguments consumed.
func (w *where) build(d Dialect, next *int) (string, []any, error) {
	if w.empty() {
		return "", nil, nil
	}

	parts := make([]string, 0, len(w.conditions))
	var args []any
	for _, cond := range w.conditions {
		col := d.QuoteIdent(cond.Column)
		switch {
		case binaryOperators[cond.Operator]:
			parts = append(parts, fmt.Sprintf("%s %s %s", col, cond.Operator, d.Placeholder(*next)))
			args = append(args, cond.Value)
			*next++

		case cond.Operator == "IN" || cond.Operator == "NOT IN":
			values, _ := cond.Value.([]any)
			if len(values) == 0 {
				// An empty IN list matches nothing, an empty NOT IN matches everything.
				if cond.Operator == "IN" {
					parts = append(parts, "1 = 0")
				} else {
					parts = append(parts, "1 = 1")
				}
				continue
			}
			marks := make([]string, len(values))
			for i, v := range values {
				marks[i] = d.Placeholder(*next)
				args = append(args, v)
				*next++
			}
			parts = append(parts, fmt.Sprintf("%s %s (%s)", col, cond.Operator, strings.Join(marks, ", ")))

		case cond.Operator == "IS NULL" || cond.Operator == "IS NOT NULL":
			parts = append(parts, fmt.Sprintf("%s %s", col, cond.Operator))

		default:
			return "", nil, fmt.Errorf("%w: %q", ErrInvalidOperator, cond.Operator)
		}
	}

	return strings.Join(parts, " AND "), args, nil
}
