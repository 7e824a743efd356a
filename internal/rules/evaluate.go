package rules

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"travel_wizard/internal/domain"
)

// ValidationErrors maps a field to its messages. An empty map means valid.
type ValidationErrors map[domain.FieldName][]string

func (e ValidationErrors) Empty() bool { return len(e) == 0 }

// Fields returns the failing fields sorted by name.
func (e ValidationErrors) Fields() []domain.FieldName {
	out := make([]domain.FieldName, 0, len(e))
	for f := range e {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (e ValidationErrors) add(f domain.FieldName, msg string) {
	e[f] = append(e[f], msg)
}

const dateLayout = "2006-01-02"

// Evaluate checks every step of the draft against the rules of t.
func Evaluate(d domain.Draft, t domain.PackageType) ValidationErrors {
	errs := ValidationErrors{}
	for _, s := range domain.StepSequence(true) {
		evaluateStep(errs, d, t, s)
	}
	return errs
}

// EvaluateStep checks only the fields rendered on step s.
func EvaluateStep(d domain.Draft, t domain.PackageType, s domain.Step) ValidationErrors {
	errs := ValidationErrors{}
	evaluateStep(errs, d, t, s)
	return errs
}

func evaluateStep(errs ValidationErrors, d domain.Draft, t domain.PackageType, s domain.Step) {
	if s == domain.StepPackageType {
		checkType(errs, d)
		return
	}
	vis := VisibilityFor(t)
	required := map[domain.FieldName]bool{}
	for _, f := range RequiredFor(t) {
		required[f] = true
	}
	for _, f := range domain.FieldsForStep(s) {
		if !vis[f] {
			continue
		}
		if !d.Has(f) {
			if required[f] {
				errs.add(f, fmt.Sprintf("%s is required", f.Label()))
			}
			continue
		}
		checkShape(errs, d, f)
	}
}

func checkType(errs ValidationErrors, d domain.Draft) {
	if !d.Has(domain.FieldType) {
		errs.add(domain.FieldType, fmt.Sprintf("%s is required", domain.FieldType.Label()))
		return
	}
	if _, ok := d.Type(); !ok {
		errs.add(domain.FieldType, fmt.Sprintf("Unknown package type %q", d.RawType()))
	}
}

func checkShape(errs ValidationErrors, d domain.Draft, f domain.FieldName) {
	switch f {
	case domain.FieldDuration:
		for _, part := range []string{"days", "nights"} {
			v := d.Lookup(string(f) + "." + part)
			if v == nil {
				continue
			}
			if n, ok := wholeNumber(v); !ok || n < 0 {
				errs.add(f, fmt.Sprintf("Duration %s must be a non-negative whole number", part))
			}
		}
	case domain.FieldGroupSize:
		lo, okLo := wholeNumber(d.Lookup("groupSize.min"))
		hi, okHi := wholeNumber(d.Lookup("groupSize.max"))
		if okLo && okHi && lo > 0 && hi > 0 && lo > hi {
			errs.add(f, "Minimum group size cannot exceed the maximum")
		}
	case domain.FieldDepartureDate, domain.FieldReturnDate:
		if _, ok := parseDate(d[f]); !ok {
			errs.add(f, fmt.Sprintf("%s must be a date (YYYY-MM-DD)", f.Label()))
			return
		}
		if f == domain.FieldReturnDate {
			dep, okDep := parseDate(d[domain.FieldDepartureDate])
			ret, _ := parseDate(d[f])
			if okDep && ret.Before(dep) {
				errs.add(f, "Return date cannot be before the departure date")
			}
		}
	}
}

// wholeNumber accepts JSON numbers and numeric strings ("3").
func wholeNumber(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		if t != math.Trunc(t) {
			return 0, false
		}
		return int(t), true
	case int:
		return t, true
	case int64:
		return int(t), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		return n, err == nil
	}
	return 0, false
}

func parseDate(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	s = strings.TrimSpace(s)
	if ts, err := time.Parse(dateLayout, s); err == nil {
		return ts, true
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, true
	}
	return time.Time{}, false
}
