package alerting

import (
	"fmt"

	"github.com/listeverything/finder/internal/filter"
)

// Compare reports whether a result count satisfies the alert condition.
// An empty comparison means greater-or-equal.
func Compare(count int, op filter.Comparison, threshold int) bool {
	switch op {
	case filter.CompareGreaterOrEqual, "":
		return count >= threshold
	case filter.CompareGreaterThan:
		return count > threshold
	case filter.CompareLessThan:
		return count < threshold
	case filter.CompareLessOrEqual:
		return count <= threshold
	case filter.CompareEqual:
		return count == threshold
	default:
		return false
	}
}

// ParseComparison accepts the comparison names and their symbols.
func ParseComparison(s string) (filter.Comparison, error) {
	switch s {
	case "", ">=", string(filter.CompareGreaterOrEqual):
		return filter.CompareGreaterOrEqual, nil
	case ">", string(filter.CompareGreaterThan):
		return filter.CompareGreaterThan, nil
	case "<", string(filter.CompareLessThan):
		return filter.CompareLessThan, nil
	case "<=", string(filter.CompareLessOrEqual):
		return filter.CompareLessOrEqual, nil
	case "=", "==", string(filter.CompareEqual):
		return filter.CompareEqual, nil
	default:
		return "", fmt.Errorf("unknown comparison %q", s)
	}
}

// ParsePriority validates a priority name.
func ParsePriority(s string) (filter.Priority, error) {
	switch filter.Priority(s) {
	case filter.PriorityMedium, "":
		return filter.PriorityMedium, nil
	case filter.PriorityCritical:
		return filter.PriorityCritical, nil
	default:
		return "", fmt.Errorf("unknown priority %q", s)
	}
}
