package variance

import (
	"github.com/CdubVentures/specdesk/internal/model"
)

// ConstraintKind names the comparison a constraint applies.
type ConstraintKind string

const (
	ConstraintMin    ConstraintKind = "min"
	ConstraintMax    ConstraintKind = "max"
	ConstraintEquals ConstraintKind = "equals"
	ConstraintOneOf  ConstraintKind = "one_of"
)

// Constraint is a named business rule checked against a dependent value in
// addition to the scalar variance policy.
type Constraint struct {
	Name   string         `json:"name"`
	Kind   ConstraintKind `json:"kind"`
	Value  string         `json:"value,omitempty"`
	Values []string       `json:"values,omitempty"`
}

// CheckConstraints evaluates every constraint against a dependent value and
// returns the names of the violated ones. Like the scalar policies, checks are
// fail-open: a constraint that cannot be judged (missing value, non-numeric
// input for min/max, unknown kind) is not a violation.
func CheckConstraints(constraints []Constraint, dependent string) []string {
	if len(constraints) == 0 || !model.IsMeaningful(dependent) {
		return nil
	}
	var violated []string
	for _, c := range constraints {
		if violatesConstraint(c, dependent) {
			violated = append(violated, c.Name)
		}
	}
	return violated
}

func violatesConstraint(c Constraint, dependent string) bool {
	switch c.Kind {
	case ConstraintMin:
		dn, dok := parseNumber(dependent)
		cn, cok := parseNumber(c.Value)
		return dok && cok && dn < cn
	case ConstraintMax:
		dn, dok := parseNumber(dependent)
		cn, cok := parseNumber(c.Value)
		return dok && cok && dn > cn
	case ConstraintEquals:
		return !model.EqualFoldTrim(dependent, c.Value)
	case ConstraintOneOf:
		for _, v := range c.Values {
			if model.EqualFoldTrim(dependent, v) {
				return false
			}
		}
		return len(c.Values) > 0
	default:
		return false
	}
}
