package renaming

import (
	"errors"
	"fmt"
	"strings"
)

// ContractViolation is the panic value raised when a caller breaks an
// invariant of a renaming level. Continuing past one could emit an
// unsound formula, so it is never returned as an ordinary error.
type ContractViolation struct {
	Op      string   // operation that detected the violation, e.g. "FrameLevel.Install"
	Key     string   // offending identity
	Reason  string   // what was violated
	Context []string // outer context added while the panic unwinds
}

func (e *ContractViolation) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "renaming: contract violation in %s on %s: %s", e.Op, e.Key, e.Reason)
	for _, c := range e.Context {
		b.WriteString(" (")
		b.WriteString(c)
		b.WriteByte(')')
	}
	return b.String()
}

// WithContext returns a copy of e carrying an extra context annotation.
func (e *ContractViolation) WithContext(format string, args ...any) *ContractViolation {
	c := *e
	c.Context = append(append([]string(nil), e.Context...), fmt.Sprintf(format, args...))
	return &c
}

func violate(op, key, format string, args ...any) {
	panic(&ContractViolation{Op: op, Key: key, Reason: fmt.Sprintf(format, args...)})
}

// AsContractViolation extracts a *ContractViolation from a recovered panic
// value or an error chain.
func AsContractViolation(v any) (*ContractViolation, bool) {
	switch v := v.(type) {
	case *ContractViolation:
		return v, true
	case error:
		var cv *ContractViolation
		if errors.As(v, &cv) {
			return cv, true
		}
	}
	return nil, false
}
