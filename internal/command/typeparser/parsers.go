package typeparser

import (
	"reflect"
	"strconv"
	"strings"
)

// Parser converts one token into a value of the given target.
type Parser interface {
	// TryParse returns the parsed value, or (nil, false) if token does not
	// denote a value of target.
	TryParse(token string, target Target) (any, bool)
}

// ParserFunc adapts a function to the Parser interface.
type ParserFunc func(token string, target Target) (any, bool)

// TryParse calls f.
func (f ParserFunc) TryParse(token string, target Target) (any, bool) {
	return f(token, target)
}

// convert casts v to target.Type when one is set.
func convert(v any, target Target) any {
	if target.Type == nil {
		return v
	}
	return reflect.ValueOf(v).Convert(target.Type).Interface()
}

func parseString(token string, target Target) (any, bool) {
	return convert(token, target), true
}

func parseInt(token string, target Target) (any, bool) {
	bits := 64
	if target.Type != nil {
		bits = target.Type.Bits()
		if isUnsigned(target.Type.Kind()) {
			u, err := strconv.ParseUint(token, 10, bits)
			if err != nil {
				return nil, false
			}
			return convert(u, target), true
		}
	}
	n, err := strconv.ParseInt(token, 10, bits)
	if err != nil {
		return nil, false
	}
	return convert(n, target), true
}

func parseFloat(token string, target Target) (any, bool) {
	bits := 64
	if target.Type != nil {
		bits = target.Type.Bits()
	}
	f, err := strconv.ParseFloat(token, bits)
	if err != nil {
		return nil, false
	}
	return convert(f, target), true
}

func parseBool(token string, target Target) (any, bool) {
	switch strings.ToLower(token) {
	case "yes", "on":
		return convert(true, target), true
	case "no", "off":
		return convert(false, target), true
	}
	b, err := strconv.ParseBool(token)
	if err != nil {
		return nil, false
	}
	return convert(b, target), true
}

// parseEnum resolves a constant by case-insensitive name or by ordinal.
func parseEnum(token string, target Target) (any, bool) {
	ordinal := -1
	for i, name := range target.Names {
		if strings.EqualFold(name, token) {
			ordinal = i
			break
		}
	}
	if ordinal < 0 {
		n, err := strconv.Atoi(token)
		if err != nil || n < 0 || n >= len(target.Names) {
			return nil, false
		}
		ordinal = n
	}
	if target.Type == nil {
		return target.Names[ordinal], true
	}
	return reflect.ValueOf(int64(ordinal)).Convert(target.Type).Interface(), true
}
