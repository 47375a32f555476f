// Package variance checks whether a dependent value agrees with a canonical
// value under a named policy. Evaluation is pure and fail-open: it flags
// confident violations and treats anything it cannot judge as compliant.
package variance

import (
	"math"
	"strconv"
	"strings"

	"github.com/CdubVentures/specdesk/internal/model"
)

// DefaultTolerance is the relative tolerance applied by the range policy when
// the caller does not supply one.
const DefaultTolerance = 0.10

// Result reason codes.
const (
	ReasonSkippedMissing        = "skipped_missing_value"
	ReasonSkippedNonNumeric     = "skipped_non_numeric"
	ReasonAuthoritativeMismatch = "authoritative_mismatch"
	ReasonExceedsUpperBound     = "exceeds_upper_bound"
	ReasonBelowLowerBound       = "below_lower_bound"
	ReasonOutsideRange          = "outside_range"
	ReasonUnknownPolicy         = "unknown_policy"
)

// Result is the outcome of evaluating one dependent value.
type Result struct {
	Compliant bool              `json:"compliant"`
	Reason    string            `json:"reason,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// Dependent pairs a dependent id with its current value for batch evaluation.
type Dependent struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// BatchSummary aggregates a batch evaluation.
type BatchSummary struct {
	Total      int `json:"total"`
	Compliant  int `json:"compliant"`
	Violations int `json:"violations"`
}

// BatchItem is one dependent's result within a batch.
type BatchItem struct {
	ID     string `json:"id"`
	Result Result `json:"result"`
}

// BatchResult is the outcome of evaluating a canonical value against many
// dependents.
type BatchResult struct {
	Summary BatchSummary `json:"summary"`
	Results []BatchItem  `json:"results"`
}

// Evaluate checks one dependent value against a canonical value under the
// given policy. tol <= 0 selects DefaultTolerance.
func Evaluate(policy, canonical, dependent string, tol float64) Result {
	if policy == "" || policy == model.PolicyOverrideAllowed {
		return Result{Compliant: true}
	}
	if !model.IsMeaningful(canonical) || !model.IsMeaningful(dependent) {
		return Result{Compliant: true, Reason: ReasonSkippedMissing}
	}

	switch policy {
	case model.PolicyAuthoritative:
		return evalAuthoritative(canonical, dependent)
	case model.PolicyUpperBound, model.PolicyLowerBound:
		return evalBound(policy, canonical, dependent)
	case model.PolicyRange:
		return evalRange(canonical, dependent, tol)
	default:
		return Result{Compliant: true, Reason: ReasonUnknownPolicy}
	}
}

// EvaluateBatch evaluates a canonical value against a list of dependents.
func EvaluateBatch(policy, canonical string, deps []Dependent, tol float64) BatchResult {
	out := BatchResult{Results: make([]BatchItem, 0, len(deps))}
	for _, d := range deps {
		r := Evaluate(policy, canonical, d.Value, tol)
		out.Results = append(out.Results, BatchItem{ID: d.ID, Result: r})
		out.Summary.Total++
		if r.Compliant {
			out.Summary.Compliant++
		} else {
			out.Summary.Violations++
		}
	}
	return out
}

func evalAuthoritative(canonical, dependent string) Result {
	cn, cok := parseNumber(canonical)
	dn, dok := parseNumber(dependent)
	if cok && dok {
		if cn == dn {
			return Result{Compliant: true}
		}
		return mismatch(ReasonAuthoritativeMismatch, canonical, dependent)
	}
	if model.EqualFoldTrim(canonical, dependent) {
		return Result{Compliant: true}
	}
	return mismatch(ReasonAuthoritativeMismatch, canonical, dependent)
}

func evalBound(policy, canonical, dependent string) Result {
	cn, cok := parseNumber(canonical)
	dn, dok := parseNumber(dependent)
	if !cok || !dok {
		return Result{Compliant: true, Reason: ReasonSkippedNonNumeric}
	}
	switch policy {
	case model.PolicyUpperBound:
		if dn > cn {
			return mismatch(ReasonExceedsUpperBound, canonical, dependent)
		}
	case model.PolicyLowerBound:
		if dn < cn {
			return mismatch(ReasonBelowLowerBound, canonical, dependent)
		}
	}
	return Result{Compliant: true}
}

func evalRange(canonical, dependent string, tol float64) Result {
	cn, cok := parseNumber(canonical)
	dn, dok := parseNumber(dependent)
	if !cok || !dok {
		return Result{Compliant: true, Reason: ReasonSkippedNonNumeric}
	}
	if tol <= 0 {
		tol = DefaultTolerance
	}
	margin := math.Abs(cn) * tol
	if dn < cn-margin || dn > cn+margin {
		r := mismatch(ReasonOutsideRange, canonical, dependent)
		r.Details["tolerance"] = strconv.FormatFloat(tol, 'f', -1, 64)
		return r
	}
	return Result{Compliant: true}
}

func mismatch(reason, expected, actual string) Result {
	return Result{
		Compliant: false,
		Reason:    reason,
		Details: map[string]string{
			"expected": strings.TrimSpace(expected),
			"actual":   strings.TrimSpace(actual),
		},
	}
}

// parseNumber parses a value as a float, tolerating surrounding whitespace,
// thousands separators and a trailing unit token ("12 g", "26000dpi").
func parseNumber(v string) (float64, bool) {
	s := strings.TrimSpace(strings.ReplaceAll(v, ",", ""))
	if s == "" {
		return 0, false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, true
	}
	// Strip a trailing non-numeric run (unit suffix) and retry once.
	end := len(s)
	for end > 0 {
		c := s[end-1]
		if (c >= '0' && c <= '9') || c == '.' {
			break
		}
		end--
	}
	if end == 0 || end == len(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s[:end]), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
