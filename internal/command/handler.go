package command

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gamecmd/internal/command/typeparser"
)

// Handler groups command methods on one object.
type Handler interface {
	// Commands tags the handler's command methods.
	Commands() []Tag
}

// Tag marks an exported method of a Handler as a command.
//
// The method must have the signature
//
//	func(ctx context.Context, actor command.Actor, p1 T1, ..., pn Tn) error
//
// where each Ti is a string, integer, float, bool, or typeparser.Enumerated
// type. A method with exactly the CommandFunc signature is registered as a
// delegate command and receives the raw tokens instead.
type Tag struct {
	// Name is the command name.
	Name string
	// Method is the name of the exported method on the handler.
	Method string
	// Params optionally names the parameters for usage text.
	Params []string
	// Defaults supplies values for the trailing len(Defaults) parameters.
	Defaults []any
}

var (
	contextType     = reflect.TypeOf((*context.Context)(nil)).Elem()
	actorType       = reflect.TypeOf((*Actor)(nil)).Elem()
	errorType       = reflect.TypeOf((*error)(nil)).Elem()
	commandFuncType = reflect.TypeOf((func(context.Context, Actor, []string) error)(nil))
)

// RegisterHandler registers every tagged method of h. Invalid tags and name
// collisions are logged as warnings and skipped; remaining tags are still
// processed.
//
// Precondition: h must be non-nil.
func (r *Registry) RegisterHandler(h Handler) {
	if h == nil {
		panic("command: handler must not be nil")
	}
	hv := reflect.ValueOf(h)
	for _, tag := range h.Commands() {
		if tag.Name == "" {
			r.logger.Warn("skipping method because of invalid command name",
				zap.String("method", tag.Method),
				zap.String("handler", hv.Type().String()),
			)
			continue
		}
		c, err := bind(hv, h, tag)
		if err != nil {
			r.logger.Warn("skipping command",
				zap.String("command", tag.Name),
				zap.String("method", tag.Method),
				zap.String("handler", hv.Type().String()),
				zap.Error(err),
			)
			continue
		}
		r.add(c,
			zap.String("method", tag.Method),
			zap.String("handler", hv.Type().String()),
		)
	}
}

// bind builds a Command for tag from the handler's method set.
func bind(hv reflect.Value, owner Handler, tag Tag) (Command, error) {
	m := reflect.Value{}
	if tag.Method != "" {
		m = hv.MethodByName(tag.Method)
	}
	if !m.IsValid() {
		return nil, fmt.Errorf("%q is not an exported instance method", tag.Method)
	}
	mt := m.Type()
	if mt.NumOut() != 1 || mt.Out(0) != errorType {
		return nil, fmt.Errorf("return type %s is invalid, error expected", returnTypes(mt))
	}
	if mt == commandFuncType {
		fn := m.Interface().(func(context.Context, Actor, []string) error)
		return &DelegateCommand{name: tag.Name, owner: owner, fn: fn}, nil
	}
	params, err := bindParams(mt, tag)
	if err != nil {
		return nil, err
	}
	return &MethodCommand{
		name:   tag.Name,
		owner:  owner,
		params: params,
		invoke: reflectInvoker(m),
	}, nil
}

func bindParams(mt reflect.Type, tag Tag) ([]Param, error) {
	if mt.IsVariadic() {
		return nil, errors.New("variadic methods are not supported")
	}
	if mt.NumIn() < 2 || mt.In(0) != contextType || mt.In(1) != actorType {
		return nil, errors.New("parameters must start with (context.Context, command.Actor)")
	}
	n := mt.NumIn() - 2
	if len(tag.Defaults) > n {
		return nil, fmt.Errorf("%d defaults given for %d parameters", len(tag.Defaults), n)
	}
	firstDefault := n - len(tag.Defaults)
	params := make([]Param, n)
	for i := range params {
		pt := mt.In(i + 2)
		target, ok := typeparser.TargetOf(pt)
		if !ok {
			return nil, fmt.Errorf("parameter %d has unsupported type %s", i+1, pt)
		}
		p := Param{Name: fmt.Sprintf("arg%d", i+1), Target: target}
		if i < len(tag.Params) && tag.Params[i] != "" {
			p.Name = tag.Params[i]
		}
		if i >= firstDefault {
			v, ok := coerceDefault(tag.Defaults[i-firstDefault], pt)
			if !ok {
				return nil, fmt.Errorf("default for %s is not assignable to %s", p.Name, pt)
			}
			p.Default = v
			p.HasDefault = true
		}
		params[i] = p
	}
	return params, nil
}

// coerceDefault converts a tag default to the parameter type. Conversions
// are limited to same-family kinds so that, for example, 65 never becomes "A".
// Integers widen to floats; floats never narrow to integers.
func coerceDefault(v any, t reflect.Type) (any, bool) {
	if v == nil {
		return reflect.Zero(t).Interface(), true
	}
	vv := reflect.ValueOf(v)
	if vv.Type().AssignableTo(t) {
		return v, true
	}
	from, to := family(vv.Kind()), family(t.Kind())
	if from == familyNone {
		return nil, false
	}
	if from == to || (from == familyInt && to == familyFloat) {
		return vv.Convert(t).Interface(), true
	}
	return nil, false
}

const (
	familyNone = iota
	familyString
	familyBool
	familyInt
	familyFloat
)

func family(k reflect.Kind) int {
	switch k {
	case reflect.String:
		return familyString
	case reflect.Bool:
		return familyBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return familyInt
	case reflect.Float32, reflect.Float64:
		return familyFloat
	}
	return familyNone
}

func reflectInvoker(m reflect.Value) MethodInvoker {
	return func(ctx context.Context, actor Actor, args []any) error {
		in := make([]reflect.Value, 0, len(args)+2)
		in = append(in, reflect.ValueOf(&ctx).Elem(), reflect.ValueOf(&actor).Elem())
		for _, a := range args {
			in = append(in, reflect.ValueOf(a))
		}
		out := m.Call(in)
		if err, _ := out[0].Interface().(error); err != nil {
			return err
		}
		return nil
	}
}

func returnTypes(mt reflect.Type) string {
	switch mt.NumOut() {
	case 0:
		return "()"
	case 1:
		return mt.Out(0).String()
	}
	s := "("
	for i := 0; i < mt.NumOut(); i++ {
		if i > 0 {
			s += ", "
		}
		s += mt.Out(i).String()
	}
	return s + ")"
}
