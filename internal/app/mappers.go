package app

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog/log"

	"travel_wizard/internal/domain"
)

/********** alias registry (single source of truth) **********/

// fieldAliases lists the extra keys partner feeds use for a field. The camel
// case name and its snake_case spelling are always tried first.
var fieldAliases = map[domain.FieldName][]string{
	domain.FieldType:        {"package_type", "packageType", "category", "product_type"},
	domain.FieldTitle:       {"package_title", "headline"},
	domain.FieldPackageName: {"package_name", "product_name"},
	domain.FieldDescription: {"summary", "overview", "description_long"},
	domain.FieldImages:      {"photos", "gallery"},
	domain.FieldPlace:       {"city", "location.city", "location"},
	domain.FieldFrom:        {"pickup", "origin", "route.from"},
	domain.FieldTo:          {"dropoff", "destination_point", "route.to"},
	domain.FieldAdultPrice:  {"price", "price.adult", "pricing.adult", "pricing.adultPrice", "rates.adult"},
	domain.FieldChildPrice:  {"price.child", "pricing.child", "pricing.childPrice", "rates.child"},
	domain.FieldInfantPrice: {"price.infant", "pricing.infant", "pricing.infantPrice", "rates.infant"},
	domain.FieldCurrency:    {"price.currency", "pricing.currency", "currency_code"},
	domain.FieldInclusions:  {"included", "includes"},
	domain.FieldExclusions:  {"excluded", "excludes"},
}

// numeric and list fields get coerced; everything else is copied as-is.
var (
	priceFields = map[domain.FieldName]bool{
		domain.FieldAdultPrice:       true,
		domain.FieldChildPrice:       true,
		domain.FieldInfantPrice:      true,
		domain.FieldSingleSupplement: true,
	}
	listFields = map[domain.FieldName]bool{
		domain.FieldImages:         true,
		domain.FieldDestinations:   true,
		domain.FieldInclusions:     true,
		domain.FieldExclusions:     true,
		domain.FieldTourInclusions: true,
		domain.FieldTourExclusions: true,
	}
)

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func aliasesFor(f domain.FieldName) []string {
	name := string(f)
	out := []string{name}
	if s := snakeCase(name); s != name {
		out = append(out, s)
	}
	return append(out, fieldAliases[f]...)
}

// firstPresent returns the first alias path holding a present value.
func firstPresent(m map[string]any, paths []string) (any, bool) {
	for _, p := range paths {
		if v := lookupAny(m, p); domain.Present(v) {
			return v, true
		}
	}
	return nil, false
}

// firstNumber returns the first alias holding a number. found reports whether
// any alias held a value at all.
func firstNumber(m map[string]any, paths []string) (n float64, found, ok bool) {
	for _, p := range paths {
		v := lookupAny(m, p)
		if !domain.Present(v) {
			continue
		}
		found = true
		if n, ok := getFloatFlexible(v); ok {
			return n, true, true
		}
	}
	return 0, found, false
}

// getFloatFlexible: number from float64/int/json.Number/string like "8,0".
func getFloatFlexible(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(t, ",", "."))
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}

// sliceStrings accepts []any with either strings or {url/src/name}, or a
// comma separated string.
func sliceStrings(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case string:
		var out []string
		for _, p := range strings.Split(t, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(t))
		for _, it := range t {
			switch x := it.(type) {
			case string:
				if x != "" {
					out = append(out, x)
				}
			case map[string]any:
				for _, k := range []string{"url", "src", "name"} {
					if u, ok := x[k].(string); ok && u != "" {
						out = append(out, u)
						break
					}
				}
			}
		}
		return out
	}
	return nil
}

// normalizeType accepts "day tours", "Day-Tours" and "DAY_TOURS".
func normalizeType(v any) (domain.PackageType, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(strings.TrimSpace(s))
	t, err := domain.ParsePackageType(s)
	return t, err == nil
}

/********** import mapper **********/

// MapImport turns one partner record into a draft. Values that cannot be
// coerced are dropped and reported in the returned warnings; unknown keys are
// ignored.
func MapImport(raw map[string]any) (domain.Draft, []string) {
	d := domain.Draft{}
	var warnings []string

	for _, f := range domain.AllFields() {
		paths := aliasesFor(f)
		if priceFields[f] {
			n, found, ok := firstNumber(raw, paths)
			if found && !ok {
				warnings = append(warnings, string(f)+": not a number")
			}
			if ok {
				d[f] = n
			}
			continue
		}
		v, ok := firstPresent(raw, paths)
		if !ok {
			continue
		}
		switch {
		case f == domain.FieldType:
			t, ok := normalizeType(v)
			if !ok {
				warnings = append(warnings, "unknown package type "+strconv.Quote(toString(v)))
				d[f] = v
				continue
			}
			d[f] = string(t)
		case listFields[f]:
			if items := sliceStrings(v); len(items) > 0 {
				d[f] = items
			}
		default:
			d[f] = plain(v)
		}
	}

	// flattened duration
	if !d.Has(domain.FieldDuration) {
		days, dok := firstPresent(raw, []string{"days", "duration_days"})
		nights, nok := firstPresent(raw, []string{"nights", "duration_nights"})
		if dok || nok {
			dur := map[string]any{}
			if n, ok := getFloatFlexible(days); ok {
				dur["days"] = n
			}
			if n, ok := getFloatFlexible(nights); ok {
				dur["nights"] = n
			}
			d[domain.FieldDuration] = dur
		}
	}
	// single destination
	if !d.Has(domain.FieldDestinations) {
		if v, ok := firstPresent(raw, []string{"destination", "city"}); ok {
			if items := sliceStrings(v); len(items) > 0 {
				d[domain.FieldDestinations] = items
			}
		}
	}

	if len(warnings) > 0 {
		log.Debug().Strs("warnings", warnings).Str("context", "MapImport").Msg("import record coerced")
	}
	return d, warnings
}

// plain turns decoder-specific values into what a JSON request would carry.
func plain(v any) any {
	switch t := v.(type) {
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
			return t.Format("2006-01-02")
		}
		return t.Format(time.RFC3339)
	case int:
		return float64(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, x := range t {
			out[k] = plain(x)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = plain(x)
		}
		return out
	}
	return v
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
