package scripting

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/gamecmd/internal/command"
	"github.com/cory-johannsen/gamecmd/internal/command/typeparser"
)

// CatalogEntry binds a typed command to a global Lua function. One entry is
// stored per YAML file.
type CatalogEntry struct {
	Name        string         `yaml:"name"`
	Function    string         `yaml:"function"`
	Description string         `yaml:"description"`
	Params      []CatalogParam `yaml:"params"`
}

// CatalogParam declares one typed parameter of a CatalogEntry.
type CatalogParam struct {
	Name    string   `yaml:"name"`
	Type    string   `yaml:"type"`   // "string" | "int" | "float" | "bool" | "enum"
	Values  []string `yaml:"values"` // enum constants in ordinal order
	Default *string  `yaml:"default"`
}

// ParseCatalogEntry decodes a single catalog entry, rejecting unknown fields.
func ParseCatalogEntry(data []byte) (*CatalogEntry, error) {
	var e CatalogEntry
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&e); err != nil {
		return nil, err
	}
	if e.Name == "" {
		return nil, fmt.Errorf("catalog entry has no name")
	}
	if e.Function == "" {
		return nil, fmt.Errorf("catalog entry %q has no function", e.Name)
	}
	return &e, nil
}

// LoadCatalogDir reads every *.yaml file in dir in lexicographic order.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all entries, or an error naming the first file that fails to parse.
func LoadCatalogDir(dir string) ([]*CatalogEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading catalog dir %q: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)

	out := make([]*CatalogEntry, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		entry, err := ParseCatalogEntry(data)
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		out = append(out, entry)
	}
	return out, nil
}

// ResolveParams resolves the entry's declared parameters against parsers. Defaults
// are parsed here so that a bad default fails at load time rather than on
// first use.
func (e *CatalogEntry) ResolveParams(parsers *typeparser.Registry) ([]command.Param, error) {
	params := make([]command.Param, 0, len(e.Params))
	seenDefault := false
	for _, cp := range e.Params {
		if cp.Name == "" {
			return nil, fmt.Errorf("command %q: parameter has no name", e.Name)
		}
		kind, ok := typeparser.ParseKind(cp.Type)
		if !ok || !parsers.Supports(kind) {
			return nil, fmt.Errorf("command %q: parameter %q has unsupported type %q", e.Name, cp.Name, cp.Type)
		}
		target := typeparser.Target{Kind: kind}
		if kind == typeparser.KindEnum {
			if len(cp.Values) == 0 {
				return nil, fmt.Errorf("command %q: enum parameter %q declares no values", e.Name, cp.Name)
			}
			target.Names = cp.Values
		}
		p := command.Param{Name: cp.Name, Target: target}
		if cp.Default != nil {
			v, ok := parsers.TryParse(*cp.Default, target)
			if !ok {
				return nil, fmt.Errorf("command %q: default %q is not a valid %s for %q", e.Name, *cp.Default, target, cp.Name)
			}
			p.Default, p.HasDefault = v, true
			seenDefault = true
		} else if seenDefault {
			return nil, fmt.Errorf("command %q: parameter %q without default follows a defaulted parameter", e.Name, cp.Name)
		}
		params = append(params, p)
	}
	return params, nil
}

// LoadCatalog binds every entry in dir to a global function of the currently
// loaded scripts. All entries are validated before any is registered. An
// entry whose name is already taken is skipped; the Registry logs the
// collision.
//
// Precondition: Load must have succeeded.
// Postcondition: Returns the number of commands registered.
func (m *Manager) LoadCatalog(dir string) (int, error) {
	entries, err := LoadCatalogDir(dir)
	if err != nil {
		return 0, fmt.Errorf("scripting: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.L == nil {
		return 0, fmt.Errorf("scripting: catalog %q loaded before scripts", dir)
	}
	L := m.L

	type binding struct {
		entry  *CatalogEntry
		params []command.Param
		fn     *lua.LFunction
	}
	bindings := make([]binding, 0, len(entries))
	for _, e := range entries {
		params, err := e.ResolveParams(m.parsers)
		if err != nil {
			return 0, fmt.Errorf("scripting: %w", err)
		}
		fn, ok := L.GetGlobal(e.Function).(*lua.LFunction)
		if !ok {
			return 0, fmt.Errorf("scripting: command %q: global function %q is not defined", e.Name, e.Function)
		}
		bindings = append(bindings, binding{entry: e, params: params, fn: fn})
	}

	added := 0
	for _, b := range bindings {
		if m.registry.RegisterMethod(b.entry.Name, m, b.params, m.invoker(L, b.fn)) {
			added++
		}
	}
	m.logger.Info("command catalog loaded", zap.String("dir", dir), zap.Int("commands", added))
	return added, nil
}

// invoker adapts a Lua function to a MethodInvoker. The function receives the
// actor table followed by one Lua value per parameter.
func (m *Manager) invoker(L *lua.LState, fn *lua.LFunction) command.MethodInvoker {
	return func(ctx context.Context, actor command.Actor, args []any) error {
		return m.call(ctx, L, fn, actor, func() []lua.LValue {
			values := make([]lua.LValue, len(args))
			for i, a := range args {
				values[i] = toLua(a)
			}
			return values
		})
	}
}

func toLua(v any) lua.LValue {
	switch x := v.(type) {
	case string:
		return lua.LString(x)
	case int64:
		return lua.LNumber(x)
	case float64:
		return lua.LNumber(x)
	case bool:
		return lua.LBool(x)
	case nil:
		return lua.LNil
	default:
		return lua.LString(fmt.Sprint(x))
	}
}
