// Package validation implements the two-tier issue model shared by every
// calculation: hard errors that block a result and soft warnings that
// only annotate it.
package validation

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Code identifies the kind of an issue.
type Code string

// Hard error codes
const (
	CodeRequired       Code = "REQUIRED"
	CodeInvalidValue   Code = "INVALID_VALUE"
	CodeNotFinite      Code = "NOT_FINITE"
	CodeOutOfRange     Code = "OUT_OF_RANGE"
	CodeUnknownRef     Code = "UNKNOWN_REFERENCE"
	CodeDuplicate      Code = "DUPLICATE"
	CodeNoCandidates   Code = "NO_CANDIDATES"
	CodeInvalidOptions Code = "INVALID_CONSTRAINTS"
)

// Warning codes
const (
	WarnVelocityLow         Code = "VELOCITY_LOW"
	WarnVelocityHigh        Code = "VELOCITY_HIGH"
	WarnSlopeBelowMinimum   Code = "SLOPE_BELOW_MINIMUM"
	WarnFillNearLimit       Code = "FILL_NEAR_LIMIT"
	WarnFillClamped         Code = "FILL_CLAMPED"
	WarnSurcharged          Code = "SURCHARGED"
	WarnNotSelfCleaning     Code = "NOT_SELF_CLEANING"
	WarnNotConverged        Code = "NOT_CONVERGED"
	WarnNonStandardDiameter Code = "NON_STANDARD_DIAMETER"
	WarnNoViableDiameter    Code = "NO_VIABLE_DIAMETER"
	WarnSedimentation       Code = "SEDIMENTATION_RISK"
	WarnCoverInadequate     Code = "COVER_INADEQUATE"
	WarnNoFlow              Code = "NO_FLOW"
	WarnHydraulicsFailed    Code = "HYDRAULICS_FAILED"
	WarnDivergentNode       Code = "DIVERGENT_NODE"
	WarnUnroutedSubarea     Code = "UNROUTED_SUBAREA"
	WarnAdverseGround       Code = "ADVERSE_GROUND"
	WarnInvertMismatch      Code = "INVERT_MISMATCH"
	WarnSpacingExceeded     Code = "SPACING_EXCEEDED"
	WarnDropStructure       Code = "DROP_STRUCTURE_NEEDED"
)

// Error is a hard validation failure tied to one input field.
type Error struct {
	Code       Code    `json:"code"`
	Field      string  `json:"field"`
	Value      float64 `json:"value"`
	Constraint string  `json:"constraint"`
}

func (e *Error) Error() string {
	if e.Constraint == "" {
		return fmt.Sprintf("%s: %s", e.Field, strings.ToLower(string(e.Code)))
	}
	if e.Code == CodeNotFinite {
		return fmt.Sprintf("%s: %s (must be %s)", e.Field, strings.ToLower(string(e.Code)), e.Constraint)
	}
	return fmt.Sprintf("%s=%g: %s (must be %s)", e.Field, e.Value, strings.ToLower(string(e.Code)), e.Constraint)
}

// Warning is a non-blocking engineering observation.
type Warning struct {
	Code    Code   `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	if w.Field == "" {
		return fmt.Sprintf("[%s] %s", w.Code, w.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", w.Code, w.Field, w.Message)
}

// Report accumulates the errors and warnings of one calculation.
// The zero value is ready to use.
type Report struct {
	Errors   []*Error  `json:"errors,omitempty"`
	Warnings []Warning `json:"warnings,omitempty"`
}

// Fail records a hard error.
func (r *Report) Fail(code Code, field string, value float64, constraint string) {
	r.Errors = append(r.Errors, &Error{Code: code, Field: field, Value: value, Constraint: constraint})
}

// Add records an existing hard error. Errors that are not *Error are
// recorded as INVALID_VALUE with the error text as constraint.
func (r *Report) Add(err error) {
	if err == nil {
		return
	}
	var ve *Error
	if errors.As(err, &ve) {
		r.Errors = append(r.Errors, ve)
		return
	}
	r.Errors = append(r.Errors, &Error{Code: CodeInvalidValue, Constraint: err.Error()})
}

// Warn records a soft warning.
func (r *Report) Warn(code Code, field, format string, args ...any) {
	r.Warnings = append(r.Warnings, Warning{Code: code, Field: field, Message: fmt.Sprintf(format, args...)})
}

// Merge appends all issues of other.
func (r *Report) Merge(other Report) {
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// HasErrors reports whether any hard error was recorded.
func (r *Report) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarning reports whether a warning with the given code was recorded.
func (r *Report) HasWarning(code Code) bool {
	for _, w := range r.Warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}

// Err returns the first hard error, or nil.
func (r *Report) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return r.Errors[0]
}

// Finite checks that v is neither NaN nor infinite.
func (r *Report) Finite(field string, v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		// NaN and Inf do not survive JSON encoding, so the value is dropped.
		r.Fail(CodeNotFinite, field, 0, "a finite number")
		return false
	}
	return true
}

// Positive checks that v is finite and strictly greater than zero.
func (r *Report) Positive(field string, v float64) bool {
	if !r.Finite(field, v) {
		return false
	}
	if v <= 0 {
		r.Fail(CodeOutOfRange, field, v, "> 0")
		return false
	}
	return true
}

// Range checks lo < v <= hi (lo exclusive when open is true, inclusive otherwise).
func (r *Report) Range(field string, v, lo, hi float64, open bool) bool {
	if !r.Finite(field, v) {
		return false
	}
	if (open && v <= lo) || (!open && v < lo) || v > hi {
		bracket := "["
		if open {
			bracket = "("
		}
		r.Fail(CodeOutOfRange, field, v, fmt.Sprintf("in %s%g, %g]", bracket, lo, hi))
		return false
	}
	return true
}

// Required checks that s is not blank.
func (r *Report) Required(field, s string) bool {
	if strings.TrimSpace(s) == "" {
		r.Errors = append(r.Errors, &Error{Code: CodeRequired, Field: field})
		return false
	}
	return true
}
