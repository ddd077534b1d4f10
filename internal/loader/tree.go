package loader

import (
	"fmt"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/mtllr/md-planning/internal/planerr"
)

// omap is a decoded mapping that remembers key order.
type omap struct {
	keys []string
	vals map[string]any
}

func newOmap() *omap { return &omap{vals: make(map[string]any)} }

func (m *omap) set(k string, v any) error {
	if _, dup := m.vals[k]; dup {
		return planerr.Shape("duplicate key %q", k)
	}
	m.keys = append(m.keys, k)
	m.vals[k] = v
	return nil
}

func (m *omap) get(k string) (any, bool) {
	v, ok := m.vals[k]
	return v, ok
}

// plain converts ordered mappings into map[string]any, recursively.
func plain(v any) any {
	switch x := v.(type) {
	case *omap:
		out := make(map[string]any, len(x.keys))
		for _, k := range x.keys {
			out[k] = plain(x.vals[k])
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = plain(e)
		}
		return out
	default:
		return v
	}
}

func fromYAML(n *yaml.Node) (any, error) {
	switch n.Kind {
	case 0:
		return nil, nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return fromYAML(n.Content[0])
	case yaml.AliasNode:
		return fromYAML(n.Alias)
	case yaml.MappingNode:
		m := newOmap()
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, val := n.Content[i], n.Content[i+1]
			if key.Kind != yaml.ScalarNode {
				return nil, planerr.Shape("line %d: mapping key must be a scalar", key.Line)
			}
			v, err := fromYAML(val)
			if err != nil {
				return nil, err
			}
			if err := m.set(key.Value, v); err != nil {
				return nil, fmt.Errorf("line %d: %w", key.Line, err)
			}
		}
		return m, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := fromYAML(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, planerr.Shape("line %d: %v", n.Line, err)
		}
		return v, nil
	default:
		return nil, planerr.Shape("line %d: unsupported node", n.Line)
	}
}

func fromJSON(r gjson.Result) (any, error) {
	switch {
	case r.IsObject():
		m := newOmap()
		var err error
		r.ForEach(func(key, value gjson.Result) bool {
			var v any
			if v, err = fromJSON(value); err != nil {
				return false
			}
			err = m.set(key.String(), v)
			return err == nil
		})
		if err != nil {
			return nil, err
		}
		return m, nil
	case r.IsArray():
		out := []any{}
		var err error
		r.ForEach(func(_, value gjson.Result) bool {
			var v any
			if v, err = fromJSON(value); err != nil {
				return false
			}
			out = append(out, v)
			return true
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	switch r.Type {
	case gjson.Null:
		return nil, nil
	case gjson.True, gjson.False:
		return r.Bool(), nil
	case gjson.Number:
		return r.Num, nil
	case gjson.String:
		return r.Str, nil
	default:
		return nil, planerr.Shape("unsupported JSON value %s", r.Raw)
	}
}
