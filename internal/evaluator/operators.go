package evaluator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Operators understood by EvaluateOperator
var operators = map[string]bool{
	"eq": true, "ne": true, "gt": true, "lt": true, "gte": true, "lte": true,
	"contains": true, "not_contains": true, "exists": true, "regex": true,
}

// ValidOperator reports whether op is a known operator
func ValidOperator(op string) bool {
	return operators[strings.ToLower(op)]
}

// EvaluateOperator evaluates an operator against an extracted value and the expected one
func EvaluateOperator(operator string, extracted, expected interface{}) (bool, error) {
	switch strings.ToLower(operator) {
	case "eq":
		return equal(extracted, expected), nil
	case "ne":
		return !equal(extracted, expected), nil
	case "gt", "lt", "gte", "lte":
		cmp, err := compareNumbers(extracted, expected)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(operator) {
		case "gt":
			return cmp > 0, nil
		case "lt":
			return cmp < 0, nil
		case "gte":
			return cmp >= 0, nil
		default:
			return cmp <= 0, nil
		}
	case "contains":
		return contains(extracted, expected), nil
	case "not_contains":
		return !contains(extracted, expected), nil
	case "exists":
		return exists(extracted), nil
	case "regex":
		re, err := regexp.Compile(toString(expected))
		if err != nil {
			return false, fmt.Errorf("invalid regex pattern '%v': %w", expected, err)
		}
		return re.MatchString(toString(extracted)), nil
	default:
		return false, fmt.Errorf("unknown operator: %s", operator)
	}
}

// exists treats nil and blank strings as absent; command output is never nil
func exists(v interface{}) bool {
	if v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) != ""
	}
	return true
}

func contains(extracted, expected interface{}) bool {
	if arr, ok := extracted.([]interface{}); ok {
		for _, item := range arr {
			if equal(item, expected) {
				return true
			}
		}
		return false
	}
	return strings.Contains(toString(extracted), toString(expected))
}

func equal(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	numA, errA := toNumber(a)
	numB, errB := toNumber(b)
	if errA == nil && errB == nil {
		return numA == numB
	}
	return strings.TrimSpace(toString(a)) == strings.TrimSpace(toString(b))
}

func compareNumbers(a, b interface{}) (int, error) {
	numA, err := toNumber(a)
	if err != nil {
		return 0, fmt.Errorf("cannot compare: left value - %w", err)
	}
	numB, err := toNumber(b)
	if err != nil {
		return 0, fmt.Errorf("cannot compare: right value - %w", err)
	}
	switch {
	case numA < numB:
		return -1, nil
	case numA > numB:
		return 1, nil
	}
	return 0, nil
}

func toString(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func toNumber(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert string '%s' to number", n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to number", v)
	}
}
