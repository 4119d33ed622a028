package naming

import (
	"fmt"
	"strings"
)

const (
	ruleGeneric       = "generic"
	ruleVariableArity = "variable-arity"
	ruleFixedArity    = "fixed-arity"
)

// TokenCountError is returned when a summary has fewer tokens than the
// matching rule consumes.
type TokenCountError struct {
	Rule   string
	Tokens []string
	Need   int
}

func (e *TokenCountError) Error() string {
	if len(e.Tokens) == 0 {
		return fmt.Sprintf("cannot normalize name: no tokens (%s rule needs %d)", e.Rule, e.Need)
	}
	return fmt.Sprintf("cannot normalize name %q: %s rule needs %d tokens, got %d",
		strings.Join(e.Tokens, " "), e.Rule, e.Need, len(e.Tokens))
}
