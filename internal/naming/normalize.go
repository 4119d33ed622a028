// Package naming derives canonical customer names from ticket summaries.
package naming

import (
	"slices"
	"strings"
)

// Rules selects the special-cased normalizations by first token.
type Rules struct {
	// VariableArity names merge the first two tokens and take one or two more.
	VariableArity []string `json:"variable_arity,omitempty" yaml:"variable_arity,omitempty"`
	// FixedArity names keep the first token and merge the next three.
	FixedArity []string `json:"fixed_arity,omitempty" yaml:"fixed_arity,omitempty"`
}

// DefaultRules returns the rule set used when none is configured.
func DefaultRules() Rules {
	return Rules{
		VariableArity: []string{"Del"},
		FixedArity:    []string{"Cytosport"},
	}
}

// Tokenize extracts name tokens from a ticket summary.
// Only the text after the last '-' is used; CamelCase words are split apart
// and underscores are dropped.
func Tokenize(summary string) []string {
	segment := summary
	if idx := strings.LastIndex(summary, "-"); idx >= 0 {
		segment = summary[idx+1:]
	}
	segment = strings.TrimSpace(segment)

	var sb strings.Builder
	for i := 0; i < len(segment); i++ {
		c := segment[i]
		if i > 0 && isUpper(c) && i+1 < len(segment) && isLower(segment[i+1]) {
			sb.WriteByte(' ')
		}
		sb.WriteByte(c)
	}

	return strings.Fields(strings.ReplaceAll(sb.String(), "_", ""))
}

// Normalize joins tokens into a two-segment canonical name.
// The first matching rule wins: variable arity, fixed arity, then generic.
func Normalize(tokens []string, rules Rules) (string, error) {
	if len(tokens) == 0 {
		return "", &TokenCountError{Rule: ruleGeneric, Need: 1}
	}

	first := tokens[0]
	switch {
	case slices.Contains(rules.VariableArity, first):
		if len(tokens) < 3 {
			return "", &TokenCountError{Rule: ruleVariableArity, Tokens: tokens, Need: 3}
		}
		if len(tokens) > 3 {
			return tokens[0] + tokens[1] + "_" + tokens[2] + tokens[3], nil
		}
		return tokens[0] + tokens[1] + "_" + tokens[2], nil

	case slices.Contains(rules.FixedArity, first):
		if len(tokens) < 4 {
			return "", &TokenCountError{Rule: ruleFixedArity, Tokens: tokens, Need: 4}
		}
		return tokens[0] + "_" + tokens[1] + tokens[2] + tokens[3], nil

	default:
		if len(tokens) > 2 {
			return tokens[0] + "_" + tokens[1] + tokens[2], nil
		}
		return strings.Join(tokens, "_"), nil
	}
}

// CustomerName tokenizes summary and normalizes the result.
func CustomerName(summary string, rules Rules) (string, error) {
	return Normalize(Tokenize(summary), rules)
}

func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }
func isLower(c byte) bool { return c >= 'a' && c <= 'z' }
