// Package settings binds string-keyed configuration values onto the typed
// settings a plugin root or tile declares.
//
// Targets describe their settings as a list of Fields. Each field carries a
// name, a Kind and a setter, so binding never needs reflection:
//
//	type Counter struct {
//		tile.Base
//		Step int
//	}
//
//	func (c *Counter) DescribeSettings() []settings.Field {
//		return []settings.Field{settings.Int("Step", &c.Step)}
//	}
package settings

import "strings"

// Kind identifies the type a declared setting is coerced to.
type Kind int

const (
	// KindString keeps the raw value unchanged.
	KindString Kind = iota
	// KindBool accepts the values understood by strconv.ParseBool.
	KindBool
	// KindInt accepts base-10 integers.
	KindInt
	// KindFloat accepts decimal floating point numbers.
	KindFloat
	// KindUnsupported marks a declaration whose type cannot be bound.
	KindUnsupported
)

// String returns the kind's name.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	default:
		return "unsupported"
	}
}

// ParseKind maps a declared type name to a Kind.
// Unknown names yield KindUnsupported.
func ParseKind(name string) Kind {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "string", "text":
		return KindString
	case "bool", "boolean":
		return KindBool
	case "int", "integer":
		return KindInt
	case "float", "number", "double":
		return KindFloat
	default:
		return KindUnsupported
	}
}

// Field is one declared setting.
type Field struct {
	Name string
	Kind Kind
	set  func(any)
}

// String declares a string setting stored in p.
func String(name string, p *string) Field {
	return Field{Name: name, Kind: KindString, set: func(v any) { *p = v.(string) }}
}

// Bool declares a boolean setting stored in p.
func Bool(name string, p *bool) Field {
	return Field{Name: name, Kind: KindBool, set: func(v any) { *p = v.(bool) }}
}

// Int declares an integer setting stored in p.
func Int(name string, p *int) Field {
	return Field{Name: name, Kind: KindInt, set: func(v any) { *p = v.(int) }}
}

// Float declares a floating point setting stored in p.
func Float(name string, p *float64) Field {
	return Field{Name: name, Kind: KindFloat, set: func(v any) { *p = v.(float64) }}
}

// Declared builds a field from a kind and a setter. The setter receives a
// string, bool, int or float64 matching kind. Scripted plugins use this
// form because their fields are only known at load time.
func Declared(name string, kind Kind, set func(any)) Field {
	return Field{Name: name, Kind: kind, set: set}
}

// Target is implemented by anything settings can be bound onto.
type Target interface {
	// DescribeSettings lists the settings the target declares.
	DescribeSettings() []Field
	// SetRawSettings receives the complete raw map, declared or not.
	SetRawSettings(values map[string]string)
}
