// Package normalize turns the heterogeneous task entries of a project
// definition (keyed maps or positional lists) into canonical records.
package normalize

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/mtllr/md-planning/internal/calendar"
	"github.com/mtllr/md-planning/internal/planerr"
)

// Entry kinds accepted in the "type" field.
const (
	TypeTask      = "task"
	TypeMilestone = "milestone"
)

// positional lists the fields of a list-shaped task entry, in order.
var positional = []string{
	"start", "duration", "percent_done", "resources", "depends_on",
	"color", "best", "optimal", "worst",
}

var usagePattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s+(\S.*)$`)

// Entry normalizes one raw task entry of project. index is the declaration
// position of the entry inside its project.
func Entry(project, name string, index int, raw any) (Record, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, planerr.WrapTask(project, name, planerr.Shape("task without a name"))
	}
	rec, err := entry(project, name, index, raw)
	if err != nil {
		return nil, planerr.WrapTask(project, name, err)
	}
	return rec, nil
}

func entry(project, name string, index int, raw any) (Record, error) {
	switch v := raw.(type) {
	case map[string]any:
		return keyed(project, name, index, v)
	case []any:
		if len(v) > len(positional) {
			return nil, planerr.Shape("positional entry has %d fields, at most %d allowed", len(v), len(positional))
		}
		fields := make(map[string]any, len(v))
		for i, f := range v {
			fields[positional[i]] = f
		}
		return task(project, name, index, fields)
	case nil:
		return nil, planerr.Shape("empty entry")
	default:
		return nil, fmt.Errorf("%w: unsupported entry shape %T", planerr.ErrNotImplemented, raw)
	}
}

func keyed(project, name string, index int, fields map[string]any) (Record, error) {
	kind, present := fields["type"]
	if !present || kind == nil {
		for _, v := range fields {
			if _, nested := v.(map[string]any); nested {
				return nil, fmt.Errorf("%w: nested tasks not supported", planerr.ErrNotImplemented)
			}
		}
		return task(project, name, index, fields)
	}
	s, ok := kind.(string)
	if !ok {
		return nil, planerr.Shape("type must be a string, got %T", kind)
	}
	switch strings.TrimSpace(s) {
	case TypeTask:
		return task(project, name, index, fields)
	case TypeMilestone:
		return milestone(project, name, index, fields)
	default:
		return nil, planerr.Shape("unknown entry type %q", s)
	}
}

func task(project, name string, index int, f map[string]any) (*Task, error) {
	t := &Task{Project: project, Name: name, Index: index, Display: true}

	start, _, err := calendar.Value(f["start"])
	if err != nil {
		return nil, err
	}
	t.Start = start

	if err := estimate(t, f); err != nil {
		return nil, err
	}

	if t.PercentDone, _, err = number(f, "percent_done"); err != nil {
		return nil, err
	}

	toks, err := tokens(f["resources"], "resources")
	if err != nil {
		return nil, err
	}
	if t.Resources, err = usages(toks); err != nil {
		return nil, err
	}

	if t.DependsOn, err = tokens(f["depends_on"], "depends_on"); err != nil {
		return nil, err
	}

	if t.Color, err = text(f, "color"); err != nil {
		return nil, err
	}
	if t.FullName, err = text(f, "fullname"); err != nil {
		return nil, err
	}
	if t.State, err = text(f, "state"); err != nil {
		return nil, err
	}
	if t.Display, err = flag(f, "display", true); err != nil {
		return nil, err
	}
	return t, nil
}

// estimate fills Duration and the three-point estimate. An explicit duration
// wins; otherwise the PERT mean of best, optimal and worst is used.
func estimate(t *Task, f map[string]any) error {
	d, ok, err := number(f, "duration")
	if err != nil {
		return err
	}
	if ok {
		t.Duration, t.Best, t.Optimal, t.Worst = d, d, d, d
		return nil
	}

	var pts [3]float64
	for i, key := range []string{"best", "optimal", "worst"} {
		v, ok, err := number(f, key)
		if err != nil {
			return err
		}
		if !ok {
			return planerr.Shape("no duration and incomplete estimate: %s missing", key)
		}
		pts[i] = v
	}
	t.Best, t.Optimal, t.Worst = pts[0], pts[1], pts[2]
	t.Duration = Round3((t.Best + 4*t.Optimal + t.Worst) / 6)
	return nil
}

// Round3 rounds x to three decimals, halves to even.
func Round3(x float64) float64 {
	return math.RoundToEven(x*1000) / 1000
}

func milestone(project, name string, index int, f map[string]any) (*Milestone, error) {
	for _, key := range []string{"duration", "best", "optimal", "worst", "resources", "percent_done"} {
		if v, ok := f[key]; ok && v != nil {
			return nil, planerr.Shape("milestone cannot have %s", key)
		}
	}
	m := &Milestone{Project: project, Name: name, Index: index, Display: true}

	start, _, err := calendar.Value(f["start"])
	if err != nil {
		return nil, err
	}
	m.Start = start

	if m.DependsOn, err = tokens(f["depends_on"], "depends_on"); err != nil {
		return nil, err
	}
	if m.Color, err = text(f, "color"); err != nil {
		return nil, err
	}
	if m.FullName, err = text(f, "fullname"); err != nil {
		return nil, err
	}
	if m.Display, err = flag(f, "display", true); err != nil {
		return nil, err
	}
	return m, nil
}

// tokens splits a null / comma string / list field into trimmed, non-empty
// strings.
func tokens(v any, field string) ([]string, error) {
	var parts []string
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		parts = strings.Split(x, ",")
	case []string:
		parts = x
	case []any:
		parts = make([]string, 0, len(x))
		for _, e := range x {
			s, ok := e.(string)
			if !ok {
				return nil, planerr.Shape("%s: element %v is %T, expected a string", field, e, e)
			}
			parts = append(parts, s)
		}
	default:
		return nil, planerr.Shape("unknown %s format type: %T", field, v)
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}

// ParseUsage reads a "<quantity> <resource>" token. A token without a
// leading quantity means one unit of the resource.
func ParseUsage(token string) (Usage, error) {
	token = strings.TrimSpace(token)
	m := usagePattern.FindStringSubmatch(token)
	if m == nil {
		return Usage{Quantity: 1, Resource: token}, nil
	}
	q, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Usage{}, planerr.Shape("bad quantity in %q", token)
	}
	if q <= 0 {
		return Usage{}, planerr.Shape("resource quantity must be positive in %q", token)
	}
	return Usage{Quantity: q, Resource: strings.TrimSpace(m[2])}, nil
}

func usages(toks []string) ([]Usage, error) {
	out := make([]Usage, 0, len(toks))
	seen := make(map[string]bool, len(toks))
	for _, tok := range toks {
		u, err := ParseUsage(tok)
		if err != nil {
			return nil, err
		}
		if seen[u.Resource] {
			return nil, planerr.Shape("resource %q listed twice", u.Resource)
		}
		seen[u.Resource] = true
		out = append(out, u)
	}
	return out, nil
}

// number reads an optional non-negative numeric field.
func number(f map[string]any, key string) (float64, bool, error) {
	v, ok := f[key]
	if !ok || v == nil {
		return 0, false, nil
	}
	var n float64
	switch x := v.(type) {
	case int:
		n = float64(x)
	case int64:
		n = float64(x)
	case uint64:
		n = float64(x)
	case float64:
		n = x
	case string:
		p, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false, planerr.Shape("%s: %q is not a number", key, x)
		}
		n = p
	default:
		return 0, false, planerr.Shape("%s: %v is %T, expected a number", key, v, v)
	}
	if n < 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false, planerr.Shape("%s must be a non-negative number, got %v", key, v)
	}
	return n, true, nil
}

func text(f map[string]any, key string) (string, error) {
	v, ok := f[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", planerr.Shape("%s: %v is %T, expected a string", key, v, v)
	}
	return strings.TrimSpace(s), nil
}

func flag(f map[string]any, key string, def bool) (bool, error) {
	v, ok := f[key]
	if !ok || v == nil {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, planerr.Shape("%s: %v is %T, expected a boolean", key, v, v)
	}
	return b, nil
}
