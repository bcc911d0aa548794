package input

import (
	"fmt"
	"slices"

	"github.com/BurntSushi/toml"
)

// ContextSpec is one [contexts.<name>] table
type ContextSpec struct {
	Actions  []string          `toml:"actions"`
	Bindings map[string]string `toml:"bindings"`
	Pointer  bool              `toml:"pointer"`
}

// Keymap is a parsed keymap file
type Keymap struct {
	Initial  []string               `toml:"initial"`
	Contexts map[string]ContextSpec `toml:"contexts"`
}

// LoadKeymap parses TOML keymap data
// Binding inputs are canonicalized and checked against the context's actions
func LoadKeymap(data []byte) (*Keymap, error) {
	var km Keymap
	md, err := toml.Decode(string(data), &km)
	if err != nil {
		return nil, fmt.Errorf("keymap parse: %w", err)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return nil, fmt.Errorf("keymap: unknown key %q", undec[0].String())
	}

	for name, spec := range km.Contexts {
		canon := make(map[string]string, len(spec.Bindings))
		for raw, action := range spec.Bindings {
			in, err := ParseInput(raw)
			if err != nil {
				return nil, fmt.Errorf("[contexts.%s.bindings] key %q: %w", name, raw, err)
			}
			if !slices.Contains(spec.Actions, action) {
				return nil, fmt.Errorf("[contexts.%s.bindings] key %q: %w", name, raw,
					&UnboundActionError{Context: name, Action: action, Input: in})
			}
			canon[in] = action
		}
		spec.Bindings = canon
		km.Contexts[name] = spec
	}
	for _, name := range km.Initial {
		if _, ok := km.Contexts[name]; !ok {
			return nil, fmt.Errorf("initial context %q: %w", name, ErrUnknownContext)
		}
	}
	return &km, nil
}

// Apply defines the keymap's contexts on m and pushes the initial stack
func (km *Keymap) Apply(m *Manager) error {
	names := make([]string, 0, len(km.Contexts))
	for name := range km.Contexts {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		spec := km.Contexts[name]
		m.DefineContext(name)
		for _, a := range spec.Actions {
			if err := m.RegisterAction(name, a); err != nil {
				return err
			}
		}
		if spec.Pointer {
			if err := m.DefinePointerBindings(name); err != nil {
				return err
			}
		}
		raws := make([]string, 0, len(spec.Bindings))
		for raw := range spec.Bindings {
			raws = append(raws, raw)
		}
		slices.Sort(raws)
		for _, raw := range raws {
			if err := m.Bind(name, raw, spec.Bindings[raw]); err != nil {
				return err
			}
		}
	}
	for _, name := range km.Initial {
		if err := m.PushContext(name); err != nil {
			return err
		}
	}
	return nil
}
