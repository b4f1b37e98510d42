package typeparser

// Registry maps a Kind to its Parser.
//
// A Registry is populated during construction and read-only afterwards;
// concurrent TryParse calls are safe once no further Register calls occur.
type Registry struct {
	parsers map[Kind]Parser
}

// NewRegistry creates a Registry with parsers for every built-in Kind.
//
// Postcondition: Returns a Registry handling string, int, float, bool, and enum.
func NewRegistry() *Registry {
	r := &Registry{parsers: make(map[Kind]Parser, 5)}
	r.Register(KindString, ParserFunc(parseString))
	r.Register(KindInt, ParserFunc(parseInt))
	r.Register(KindFloat, ParserFunc(parseFloat))
	r.Register(KindBool, ParserFunc(parseBool))
	r.Register(KindEnum, ParserFunc(parseEnum))
	return r
}

// Register installs p for kind, replacing any previous parser.
//
// Precondition: Called only while the registry is being built.
// Precondition: p must be non-nil.
func (r *Registry) Register(kind Kind, p Parser) {
	if p == nil {
		panic("typeparser: nil parser")
	}
	r.parsers[kind] = p
}

// TryParse parses token into target using the parser registered for target.Kind.
//
// Postcondition: Returns (nil, false) if no parser is registered or parsing fails.
func (r *Registry) TryParse(token string, target Target) (any, bool) {
	p, ok := r.parsers[target.Kind]
	if !ok {
		return nil, false
	}
	return p.TryParse(token, target)
}

// Supports reports whether a parser is registered for kind.
func (r *Registry) Supports(kind Kind) bool {
	_, ok := r.parsers[kind]
	return ok
}
