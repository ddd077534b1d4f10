// Package loader reads project definition files (YAML or JSON) into a
// Definition, keeping resource, project and task declaration order.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/mtllr/md-planning/internal/calendar"
	"github.com/mtllr/md-planning/internal/planerr"
	"github.com/mtllr/md-planning/internal/units"
)

// Format is the encoding of a definition document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Definition is a decoded project definition.
type Definition struct {
	Source    string
	Font      map[string]any
	Vacations []time.Time
	Resources []Resource
	Projects  []Project
	Units     Units
}

// Resource is a declared resource.
type Resource struct {
	Name      string
	Price     units.Price
	Vacations []time.Time
}

// Project is a named list of raw task entries.
type Project struct {
	Name  string
	Tasks []Task
}

// Task is a raw task entry: a map[string]any or a []any.
type Task struct {
	Name string
	Raw  any
}

// Units lists unit definitions and aliases to add to the registry.
type Units struct {
	Define []string
	Alias  []string
}

// FormatFor picks the format from a file extension. Anything that is not
// .json is read as YAML.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Load reads and decodes the definition file at path.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	def, err := Parse(data, FormatFor(path))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	def.Source = path
	return def, nil
}

// Parse decodes an in-memory definition.
func Parse(data []byte, format Format) (*Definition, error) {
	var (
		root any
		err  error
	)
	switch format {
	case FormatJSON:
		if !gjson.ValidBytes(data) {
			return nil, planerr.Shape("invalid JSON document")
		}
		root, err = fromJSON(gjson.ParseBytes(data))
	default:
		var doc yaml.Node
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, planerr.Shape("%v", err)
		}
		root, err = fromYAML(&doc)
	}
	if err != nil {
		return nil, err
	}

	top, ok := root.(*omap)
	if !ok {
		return nil, planerr.Shape("definition must be a mapping, got %T", root)
	}
	return build(top)
}

func build(top *omap) (*Definition, error) {
	def := &Definition{Font: map[string]any{}}

	if v, ok := top.get("Font"); ok && v != nil {
		font, ok := plain(v).(map[string]any)
		if !ok {
			return nil, planerr.Shape("Font must be a mapping")
		}
		def.Font = font
	}

	var err error
	if def.Vacations, err = dates(top.vals["Vacations"], "Vacations"); err != nil {
		return nil, err
	}
	if def.Resources, err = resources(top.vals["Resources"]); err != nil {
		return nil, err
	}
	if def.Projects, err = projects(top.vals["Projects"]); err != nil {
		return nil, err
	}
	if def.Units, err = unitDefs(top.vals["Units"]); err != nil {
		return nil, err
	}
	return def, nil
}

func dates(v any, field string) ([]time.Time, error) {
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		list = []any{v}
	}
	out := make([]time.Time, 0, len(list))
	for _, e := range list {
		d, ok, err := calendar.Value(e)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field, err)
		}
		if ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func resources(v any) ([]Resource, error) {
	if v == nil {
		return nil, nil
	}
	m, ok := v.(*omap)
	if !ok {
		return nil, planerr.Shape("Resources must be a mapping of name to definition")
	}
	out := make([]Resource, 0, len(m.keys))
	for _, name := range m.keys {
		r := Resource{Name: name, Price: units.Price{Unit: units.UnitFlat}}
		body, ok := m.vals[name].(*omap)
		if !ok {
			if m.vals[name] != nil {
				return nil, planerr.Shape("resource %q: definition must be a mapping", name)
			}
			out = append(out, r)
			continue
		}

		if pv, ok := body.get("price"); ok && pv != nil {
			price, err := priceOf(pv)
			if err != nil {
				return nil, fmt.Errorf("resource %q: %w", name, err)
			}
			r.Price = price
		}
		vac, err := dates(body.vals["vacations"], "vacations")
		if err != nil {
			return nil, fmt.Errorf("resource %q: %w", name, err)
		}
		r.Vacations = vac
		out = append(out, r)
	}
	return out, nil
}

func priceOf(v any) (units.Price, error) {
	m, ok := v.(*omap)
	if !ok {
		return units.Price{}, planerr.Shape("price must be a mapping with value and unit")
	}
	var p units.Price
	var err error
	if p.Value, err = toFloat(m.vals["value"], "value"); err != nil {
		return p, err
	}
	if u, ok := m.vals["unit"].(string); ok {
		p.Unit = strings.TrimSpace(u)
	} else if m.vals["unit"] != nil {
		return p, planerr.Shape("price unit must be a string")
	}
	if p.BatchSize, err = toFloat(m.vals["batch_size"], "batch_size"); err != nil {
		return p, err
	}
	return p, nil
}

func toFloat(v any, field string) (float64, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case float64:
		return x, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, planerr.Shape("%s: %q is not a number", field, x)
		}
		return f, nil
	default:
		return 0, planerr.Shape("%s: %v is not a number", field, v)
	}
}

func projects(v any) ([]Project, error) {
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, planerr.Shape("Projects must be a list")
	}
	out := make([]Project, 0, len(list))
	for i, e := range list {
		m, ok := e.(*omap)
		if !ok {
			return nil, planerr.Shape("project #%d must be a mapping", i+1)
		}
		name, _ := m.vals["Name"].(string)
		if name = strings.TrimSpace(name); name == "" {
			return nil, planerr.Shape("project #%d: missing project name", i+1)
		}
		p := Project{Name: name}

		switch tasks := m.vals["Tasks"].(type) {
		case nil:
		case *omap:
			for _, k := range tasks.keys {
				p.Tasks = append(p.Tasks, Task{Name: k, Raw: plain(tasks.vals[k])})
			}
		default:
			return nil, planerr.Shape("project %q: Tasks must be a mapping of name to entry", name)
		}
		out = append(out, p)
	}
	return out, nil
}

func unitDefs(v any) (Units, error) {
	var u Units
	if v == nil {
		return u, nil
	}
	m, ok := v.(*omap)
	if !ok {
		return u, planerr.Shape("Units must be a mapping with define and alias lists")
	}
	var err error
	if u.Define, err = strs(m.vals["define"], "Units.define"); err != nil {
		return u, err
	}
	if u.Alias, err = strs(m.vals["alias"], "Units.alias"); err != nil {
		return u, err
	}
	return u, nil
}

func strs(v any, field string) ([]string, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{x}, nil
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			s, ok := e.(string)
			if !ok {
				return nil, planerr.Shape("%s: %v is not a string", field, e)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, planerr.Shape("%s must be a string or a list of strings", field)
	}
}
