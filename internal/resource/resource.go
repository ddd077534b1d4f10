// Package resource models priced, schedulable resources (people, equipment,
// consumables) and their availability.
package resource

import (
	"fmt"
	"time"

	"github.com/mtllr/md-planning/internal/calendar"
	"github.com/mtllr/md-planning/internal/planerr"
	"github.com/mtllr/md-planning/internal/units"
)

// Kind classifies how a resource is priced.
type Kind string

const (
	KindTime  Kind = "time"
	KindUnit  Kind = "unit"
	KindBatch Kind = "batch"
)

// Resource is a named, priced resource. It is immutable once built and is
// shared by every task that uses it.
type Resource struct {
	Name      string
	Price     units.Price
	Vacations calendar.Set
	kind      Kind
}

// New validates a resource definition against the unit registry:
//   - the price unit must be registered;
//   - a batch price needs a batch size;
//   - flat (unit/batch) resources cannot declare unavailable dates.
func New(name string, price units.Price, vacations []time.Time, reg *units.Registry) (*Resource, error) {
	if name == "" {
		return nil, planerr.Shape("resource without a name")
	}
	if price.Unit == "" {
		price.Unit = units.UnitFlat
	}
	u, err := reg.Lookup(price.Unit)
	if err != nil {
		return nil, fmt.Errorf("resource %s: %w", name, err)
	}

	r := &Resource{Name: name, Price: price, Vacations: calendar.NewSet(vacations...)}
	switch {
	case u.Name == units.UnitBatch:
		r.kind = KindBatch
		if price.BatchSize <= 0 {
			return nil, planerr.Domain("resource %s: batch resource definition missing batch_size", name)
		}
	case u.Name == units.UnitFlat:
		r.kind = KindUnit
	case u.Dimension == units.Time:
		r.kind = KindTime
	default:
		return nil, planerr.Domain("resource %s: price unit %q is not a time unit, unit or batch", name, price.Unit)
	}

	if r.kind != KindTime && len(r.Vacations) > 0 {
		return nil, planerr.Domain("resource %s: cannot have unit/batch price and vacations at the same time", name)
	}
	if price.Value < 0 {
		return nil, planerr.Domain("resource %s: negative price %g", name, price.Value)
	}
	return r, nil
}

// Kind reports how the resource is priced.
func (r *Resource) Kind() Kind { return r.kind }

// Unit is the unit the price is quoted in.
func (r *Resource) Unit() string { return r.Price.Unit }

// IsAvailable reports whether the resource can work on day, ignoring
// project bounds and global holidays.
func (r *Resource) IsAvailable(day time.Time) bool {
	return !r.Vacations.Has(day)
}

// Rate is the resource price per target unit. totalDays spreads flat and
// batch prices over the using task's duration.
func (r *Resource) Rate(reg *units.Registry, target string, totalDays float64) (float64, error) {
	rate, err := reg.Convert(r.Price, target, totalDays)
	if err != nil {
		return 0, fmt.Errorf("resource %s: %w", r.Name, err)
	}
	return rate, nil
}

// Set is an ordered collection of resources keyed by name.
type Set struct {
	byName map[string]*Resource
	order  []string
}

// NewSet indexes resources, rejecting duplicate names.
func NewSet(list ...*Resource) (*Set, error) {
	s := &Set{byName: make(map[string]*Resource, len(list))}
	for _, r := range list {
		if _, dup := s.byName[r.Name]; dup {
			return nil, planerr.Shape("duplicate resource %q", r.Name)
		}
		s.byName[r.Name] = r
		s.order = append(s.order, r.Name)
	}
	return s, nil
}

// Get returns the named resource or a reference error.
func (s *Set) Get(name string) (*Resource, error) {
	r, ok := s.byName[name]
	if !ok {
		return nil, &planerr.RefError{Kind: "resource", Target: name}
	}
	return r, nil
}

// Names lists resource names in declaration order.
func (s *Set) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len is the number of resources.
func (s *Set) Len() int { return len(s.order) }
