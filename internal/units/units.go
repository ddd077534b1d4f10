// Package units is a small registry of work-time and count units used to
// bring resource prices onto a common per-time-unit rate.
//
// A Registry is built once per plan and is read-only afterwards. Define and
// Alias must not race with lookups.
package units

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mtllr/md-planning/internal/planerr"
)

// Dimension separates units that cannot be converted into each other.
type Dimension int

const (
	Count Dimension = iota
	Time
)

func (d Dimension) String() string {
	switch d {
	case Count:
		return "count"
	case Time:
		return "time"
	default:
		return fmt.Sprintf("dimension(%d)", int(d))
	}
}

// Well-known unit names.
const (
	UnitFlat  = "unit"
	UnitBatch = "batch"
	Hour      = "hour"
	Workday   = "workday"
)

// Unit is a named multiple of its dimension's base (hour for time, unit for
// count).
type Unit struct {
	Name      string
	Dimension Dimension
	Factor    float64
	Symbol    string
	Aliases   []string
}

// Registry maps unit names, symbols and aliases to units.
type Registry struct {
	units map[string]*Unit
	index map[string]string
}

// NewRegistry returns a registry with the built-in time and count units.
func NewRegistry() *Registry {
	r := &Registry{
		units: make(map[string]*Unit),
		index: make(map[string]string),
	}
	builtins := []struct {
		name    string
		dim     Dimension
		factor  float64
		symbol  string
		aliases []string
	}{
		{UnitFlat, Count, 1, "u", []string{"units"}},
		{UnitBatch, Count, 1, "b", []string{"batches"}},
		{"second", Time, 1.0 / 3600, "s", []string{"seconds", "sec"}},
		{"minute", Time, 1.0 / 60, "min", []string{"minutes"}},
		{Hour, Time, 1, "h", []string{"hours", "hr"}},
		{"day", Time, 24, "d", []string{"days"}},
		{"week", Time, 24 * 7, "", []string{"weeks"}},
		{"workhour", Time, 1, "wh", []string{"workhours"}},
		{Workday, Time, 8, "wd", []string{"workdays"}},
		{"workweek", Time, 8 * 5, "ww", []string{"workweeks"}},
		{"workmonth", Time, 8 * 5 * 4.33, "wm", []string{"workmonths"}},
		{"workquarter", Time, 8 * 5 * 4.33 * 3, "wq", []string{"workquarters"}},
	}
	for _, b := range builtins {
		u := &Unit{Name: b.name, Dimension: b.dim, Factor: b.factor, Symbol: b.symbol}
		if err := r.add(u, b.aliases...); err != nil {
			panic(err)
		}
	}
	return r
}

func (r *Registry) add(u *Unit, aliases ...string) error {
	names := []string{u.Name}
	if u.Symbol != "" {
		names = append(names, u.Symbol)
	}
	names = append(names, aliases...)
	for _, n := range names {
		if _, taken := r.index[n]; taken {
			return planerr.Domain("unit name %q already defined", n)
		}
	}
	r.units[u.Name] = u
	for _, n := range names {
		r.index[n] = u.Name
	}
	u.Aliases = append(u.Aliases, aliases...)
	return nil
}

// Define registers a unit from a definition of the form
//
//	name = [factor] [*] base [= symbol] [= alias ...]
//
// A symbol of "_" means none, e.g. "foo = 1 * hour = _ = wiggly_foo".
// "@alias ..." lines are handed to Alias.
func (r *Registry) Define(def string) error {
	if strings.HasPrefix(strings.TrimSpace(def), "@alias") {
		return r.Alias(def)
	}
	parts := splitDef(def)
	if len(parts) < 2 || parts[0] == "" {
		return planerr.Shape("unit definition %q: expected name = expression", def)
	}
	factor, baseName, err := parseExpr(parts[1])
	if err != nil {
		return fmt.Errorf("unit definition %q: %w", def, err)
	}
	base, err := r.Lookup(baseName)
	if err != nil {
		return fmt.Errorf("unit definition %q: %w", def, err)
	}
	u := &Unit{Name: parts[0], Dimension: base.Dimension, Factor: factor * base.Factor}
	var aliases []string
	if len(parts) > 2 && parts[2] != "_" {
		u.Symbol = parts[2]
	}
	if len(parts) > 3 {
		aliases = parts[3:]
	}
	return r.add(u, aliases...)
}

// Alias adds alternative names to an existing unit. Both the abbreviated
// "workday = jour" and the full "@alias workday = jour = jours" forms are
// accepted.
func (r *Registry) Alias(def string) error {
	trimmed := strings.TrimSpace(def)
	trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "@alias"))
	parts := splitDef(trimmed)
	if len(parts) < 2 {
		return planerr.Shape("alias definition %q: expected unit = alias", def)
	}
	target, ok := r.index[parts[0]]
	if !ok {
		return &planerr.RefError{Kind: "unit", Target: parts[0]}
	}
	u := r.units[target]
	for _, a := range parts[1:] {
		if a == "" {
			continue
		}
		if existing, taken := r.index[a]; taken {
			return planerr.Domain("alias %q already names unit %q", a, existing)
		}
		r.index[a] = u.Name
		u.Aliases = append(u.Aliases, a)
	}
	return nil
}

// Has reports whether name resolves to a unit.
func (r *Registry) Has(name string) bool {
	_, ok := r.index[strings.TrimSpace(name)]
	return ok
}

// Lookup resolves a name, symbol or alias.
func (r *Registry) Lookup(name string) (Unit, error) {
	canonical, ok := r.index[strings.TrimSpace(name)]
	if !ok {
		return Unit{}, &planerr.RefError{Kind: "unit", Target: name}
	}
	return *r.units[canonical], nil
}

// Units returns every registered unit sorted by dimension then size.
func (r *Registry) Units() []Unit {
	out := make([]Unit, 0, len(r.units))
	for _, u := range r.units {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Dimension != out[j].Dimension {
			return out[i].Dimension < out[j].Dimension
		}
		if out[i].Factor != out[j].Factor {
			return out[i].Factor < out[j].Factor
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Quantity converts an amount of from-units into to-units.
func (r *Registry) Quantity(v float64, from, to string) (float64, error) {
	f, t, err := r.pair(from, to)
	if err != nil {
		return 0, err
	}
	return v * f.Factor / t.Factor, nil
}

// PerUnit converts a rate expressed per from-unit into a rate per to-unit.
func (r *Registry) PerUnit(v float64, from, to string) (float64, error) {
	f, t, err := r.pair(from, to)
	if err != nil {
		return 0, err
	}
	return v * t.Factor / f.Factor, nil
}

func (r *Registry) pair(from, to string) (Unit, Unit, error) {
	f, err := r.Lookup(from)
	if err != nil {
		return Unit{}, Unit{}, err
	}
	t, err := r.Lookup(to)
	if err != nil {
		return Unit{}, Unit{}, err
	}
	if f.Dimension != t.Dimension {
		return Unit{}, Unit{}, planerr.Domain("cannot convert %s (%s) to %s (%s)", f.Name, f.Dimension, t.Name, t.Dimension)
	}
	return f, t, nil
}

// Price is a value quoted in a unit. BatchSize is the lot size of batch
// pricing and is ignored otherwise.
type Price struct {
	Value     float64
	Unit      string
	BatchSize float64
}

// Convert returns the rate of p expressed per target unit.
//
// Flat ("unit") and lot ("batch") prices are spread over totalDays workdays,
// which must then be positive. Time-based prices ignore totalDays.
func (r *Registry) Convert(p Price, target string, totalDays float64) (float64, error) {
	u, err := r.Lookup(p.Unit)
	if err != nil {
		return 0, err
	}
	switch u.Name {
	case UnitFlat, UnitBatch:
		if totalDays <= 0 {
			return 0, planerr.Domain("%s price needs a positive number of days, got %g", u.Name, totalDays)
		}
		perDay := p.Value / totalDays
		if u.Name == UnitBatch {
			if p.BatchSize <= 0 {
				return 0, planerr.Domain("batch price needs a positive batch size")
			}
			perDay /= p.BatchSize
		}
		return r.PerUnit(perDay, Workday, target)
	}
	if u.Dimension != Time {
		return 0, planerr.Domain("price unit %q is neither a time unit nor unit/batch", p.Unit)
	}
	return r.PerUnit(p.Value, u.Name, target)
}

func splitDef(def string) []string {
	raw := strings.Split(def, "=")
	parts := make([]string, len(raw))
	for i, p := range raw {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// parseExpr reads "[factor] [*] unit".
func parseExpr(expr string) (float64, string, error) {
	fields := strings.Fields(strings.ReplaceAll(expr, "*", " "))
	switch len(fields) {
	case 1:
		return 1, fields[0], nil
	case 2:
		f, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return 0, "", planerr.Shape("bad factor %q", fields[0])
		}
		if f <= 0 {
			return 0, "", planerr.Domain("factor must be positive, got %g", f)
		}
		return f, fields[1], nil
	default:
		return 0, "", planerr.Shape("unsupported unit expression %q", expr)
	}
}
