// Package typeparser converts single command-line tokens into typed values.
//
// A Registry maps a target Kind to the Parser responsible for it. All
// enumerations share one Parser that resolves constants from the Target's
// Names. Failure is reported only through the boolean result.
package typeparser

import (
	"fmt"
	"reflect"
)

// Kind identifies the family of values a token is parsed into.
type Kind uint8

const (
	// KindInvalid is the zero Kind and has no parser.
	KindInvalid Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindEnum
)

// String returns the lowercase kind name used in usage descriptions and catalogs.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindEnum:
		return "enum"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind maps a catalog type name onto a Kind.
//
// Postcondition: Returns (KindInvalid, false) for unknown names.
func ParseKind(name string) (Kind, bool) {
	switch name {
	case "string":
		return KindString, true
	case "int":
		return KindInt, true
	case "float":
		return KindFloat, true
	case "bool":
		return KindBool, true
	case "enum":
		return KindEnum, true
	}
	return KindInvalid, false
}

// Enumerated is implemented by named integer types usable as enum parameters.
// The ordinal of each constant is its index in EnumNames.
type Enumerated interface {
	EnumNames() []string
}

var enumeratedType = reflect.TypeOf((*Enumerated)(nil)).Elem()

// Target describes the value a token must become.
type Target struct {
	Kind Kind
	// Type is the concrete Go type produced. Nil yields the kind's natural
	// type: string, int64, float64, bool, or the enum constant name.
	Type reflect.Type
	// Names lists enum constants in ordinal order. Only used with KindEnum.
	Names []string
}

// String renders the target for usage descriptions.
func (t Target) String() string {
	if t.Kind == KindEnum && t.Type != nil {
		return t.Type.Name()
	}
	return t.Kind.String()
}

// TargetOf derives a Target for a Go parameter type.
//
// Postcondition: Returns (Target{}, false) if no parser handles t.
func TargetOf(t reflect.Type) (Target, bool) {
	if t == nil {
		return Target{}, false
	}
	if t.Implements(enumeratedType) && isInteger(t.Kind()) {
		names := reflect.Zero(t).Interface().(Enumerated).EnumNames()
		return Target{Kind: KindEnum, Type: t, Names: names}, true
	}
	switch {
	case t.Kind() == reflect.String:
		return Target{Kind: KindString, Type: t}, true
	case isInteger(t.Kind()):
		return Target{Kind: KindInt, Type: t}, true
	case t.Kind() == reflect.Float32 || t.Kind() == reflect.Float64:
		return Target{Kind: KindFloat, Type: t}, true
	case t.Kind() == reflect.Bool:
		return Target{Kind: KindBool, Type: t}, true
	}
	return Target{}, false
}

func isInteger(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func isUnsigned(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}
