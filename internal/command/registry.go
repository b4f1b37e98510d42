package command

import (
	"reflect"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Registry maps command names to Commands.
// All methods are safe for concurrent use. A Command obtained by Get stays
// valid after it is removed from the Registry.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]Command
	logger   *zap.Logger
}

// NewRegistry creates an empty Registry.
//
// Precondition: logger must be non-nil.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		commands: make(map[string]Command),
		logger:   logger,
	}
}

// Register adds a delegate command. An existing command under name is kept
// and the collision is logged as a warning.
//
// Precondition: name must be non-empty; fn must be non-nil.
// Postcondition: Returns true if the command was added, false if name is taken.
func (r *Registry) Register(name string, fn CommandFunc) bool {
	return r.RegisterFunc(name, nil, fn)
}

// RegisterFunc adds a delegate command remembered as owned by owner, so that
// RemoveHandler(owner) removes it. A nil owner behaves like Register.
//
// Precondition: name must be non-empty; fn must be non-nil.
// Postcondition: Returns true if the command was added, false if name is taken.
func (r *Registry) RegisterFunc(name string, owner any, fn CommandFunc) bool {
	if name == "" {
		panic("command: name must not be empty")
	}
	if fn == nil {
		panic("command: callback must not be nil")
	}
	return r.add(&DelegateCommand{name: name, owner: owner, fn: fn})
}

// RegisterMethod adds a typed command owned by owner. Parameters with a
// default must follow every parameter without one.
//
// Precondition: name must be non-empty; invoke must be non-nil; defaults must be trailing.
// Postcondition: Returns true if the command was added, false if name is taken.
func (r *Registry) RegisterMethod(name string, owner any, params []Param, invoke MethodInvoker) bool {
	if name == "" {
		panic("command: name must not be empty")
	}
	if invoke == nil {
		panic("command: invoker must not be nil")
	}
	seenDefault := false
	for _, p := range params {
		if p.HasDefault {
			seenDefault = true
		} else if seenDefault {
			panic("command: parameter " + p.Name + " without default follows a defaulted parameter")
		}
	}
	ps := make([]Param, len(params))
	copy(ps, params)
	return r.add(&MethodCommand{name: name, owner: owner, params: ps, invoke: invoke})
}

// add stores c unless its name is taken, in which case the collision is
// logged as a warning together with fields.
func (r *Registry) add(c Command, fields ...zap.Field) bool {
	r.mu.Lock()
	_, exists := r.commands[c.Name()]
	if !exists {
		r.commands[c.Name()] = c
	}
	r.mu.Unlock()
	if exists {
		r.logger.Warn("could not register command, name may already be in use",
			append([]zap.Field{zap.String("command", c.Name())}, fields...)...)
	}
	return !exists
}

// Get returns the command registered under name.
func (r *Registry) Get(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.commands[name]
	return c, ok
}

// Exists reports whether a command is registered under name.
//
// Precondition: name must be non-empty.
func (r *Registry) Exists(name string) bool {
	if name == "" {
		panic("command: name must not be empty")
	}
	_, ok := r.Get(name)
	return ok
}

// Names returns a sorted snapshot of all registered command names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Remove deletes the command registered under name, if any.
//
// Precondition: name must be non-empty.
func (r *Registry) Remove(name string) {
	if name == "" {
		panic("command: name must not be empty")
	}
	r.mu.Lock()
	delete(r.commands, name)
	r.mu.Unlock()
}

// RemoveHandler deletes every command owned by owner.
//
// Precondition: owner must be non-nil.
func (r *Registry) RemoveHandler(owner any) {
	if owner == nil {
		panic("command: handler must not be nil")
	}
	r.removeWhere(func(c Command) bool {
		return sameOwner(c.Owner(), owner)
	})
}

// RemoveFunc deletes every delegate command whose callback is fn. Callbacks
// are compared by code pointer, so closures created by the same function
// literal are treated as the same callback.
//
// Precondition: fn must be non-nil.
func (r *Registry) RemoveFunc(fn CommandFunc) {
	if fn == nil {
		panic("command: callback must not be nil")
	}
	target := reflect.ValueOf(fn).Pointer()
	r.removeWhere(func(c Command) bool {
		dc, ok := c.(*DelegateCommand)
		return ok && reflect.ValueOf(dc.fn).Pointer() == target
	})
}

func (r *Registry) removeWhere(match func(Command) bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, c := range r.commands {
		if match(c) {
			delete(r.commands, name)
		}
	}
}

// sameOwner reports whether a and b identify the same owner. Pointer-shaped
// owners match by address. Other owners match by ==, falling back to deep
// equality when the value cannot be compared with ==.
func sameOwner(a, b any) bool {
	if a == nil || b == nil {
		return false
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) {
		return false
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch ta.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	}
	if ta.Comparable() {
		if same, ok := compareEqual(a, b); ok {
			return same
		}
	}
	return reflect.DeepEqual(a, b)
}

// compareEqual evaluates a == b. ok is false when the comparison panicked
// because an interface field held an uncomparable value.
func compareEqual(a, b any) (same, ok bool) {
	defer func() {
		if recover() != nil {
			same, ok = false, false
		}
	}()
	return a == b, true
}
