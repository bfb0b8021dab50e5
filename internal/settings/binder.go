package settings

import (
	"maps"
	"strconv"
	"strings"
)

// Bind stores values on target and applies every declared field that has a
// configured value. Fields without a value keep their defaults. A value that
// cannot be coerced leaves its field untouched and is reported as a
// *CoercionError; binding continues with the remaining fields.
func Bind(values map[string]string, target Target) []error {
	if target == nil {
		return nil
	}

	target.SetRawSettings(maps.Clone(values))

	var warnings []error
	for _, f := range target.DescribeSettings() {
		raw, ok := values[f.Name]
		if !ok {
			continue
		}

		v, err := coerce(f.Kind, raw)
		if err != nil {
			warnings = append(warnings, &CoercionError{Field: f.Name, Kind: f.Kind, Value: raw, Err: err})
			continue
		}
		if f.set != nil {
			f.set(v)
		}
	}
	return warnings
}

func coerce(kind Kind, raw string) (any, error) {
	switch kind {
	case KindString:
		return raw, nil
	case KindBool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, err
		}
		return b, nil
	case KindInt:
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, err
		}
		return n, nil
	case KindFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, err
		}
		return f, nil
	default:
		return nil, ErrUnsupportedKind
	}
}
