package evaluator

import (
	"encoding/json"
	"fmt"

	"github.com/oliveagle/jsonpath"
)

// Rule checks a value with an operator and an expected value
type Rule struct {
	Operator string      `yaml:"operator" json:"operator"`
	Expected interface{} `yaml:"expected" json:"expected"`
}

// Validate checks that the rule uses a known operator
func (r Rule) Validate() error {
	if !ValidOperator(r.Operator) {
		return fmt.Errorf("invalid operator: %s", r.Operator)
	}
	return nil
}

// Match evaluates the rule against raw command output
func (r Rule) Match(output string) (bool, error) {
	return EvaluateOperator(r.Operator, output, r.Expected)
}

// Extract parses a JSON document and returns the value at a JSONPath expression
func Extract(body []byte, expression string) (interface{}, error) {
	var document interface{}
	if err := json.Unmarshal(body, &document); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	pattern, err := jsonpath.Compile(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid JSONPath expression '%s': %w", expression, err)
	}

	value, err := pattern.Lookup(document)
	if err != nil {
		return nil, fmt.Errorf("JSONPath expression '%s' returned no results: %w", expression, err)
	}

	return value, nil
}
