// Package budget derives the day-by-day cost of every task/resource pair of
// a set of scheduled projects.
package budget

import (
	"math"
	"time"

	"github.com/mtllr/md-planning/internal/calendar"
	"github.com/mtllr/md-planning/internal/planerr"
	"github.com/mtllr/md-planning/internal/resource"
	"github.com/mtllr/md-planning/internal/schedule"
	"github.com/mtllr/md-planning/internal/units"
)

// Entry is one row of the ledger.
type Entry struct {
	Project     string    `json:"project"`
	Task        string    `json:"task"`
	Resource    string    `json:"resource"`
	Category    string    `json:"category"`
	Subcategory string    `json:"subcategory"`
	Date        time.Time `json:"date"`
	Amount      float64   `json:"amount"`
}

// Ledger answers cost questions over scheduled projects. Bounds span every
// project together.
type Ledger struct {
	reg       *units.Registry
	resources *resource.Set
	vacations calendar.Set
	projects  []*schedule.Project
	tasks     map[string]*schedule.Task
	owner     map[string]string
	start     time.Time
	end       time.Time
}

// New indexes the scheduled projects. Task names must be unique across
// projects.
func New(reg *units.Registry, resources *resource.Set, vacations calendar.Set, projects []*schedule.Project) (*Ledger, error) {
	l := &Ledger{
		reg:       reg,
		resources: resources,
		vacations: vacations,
		projects:  projects,
		tasks:     make(map[string]*schedule.Task),
		owner:     make(map[string]string),
	}
	for _, p := range projects {
		for _, t := range p.Tasks() {
			if other, dup := l.owner[t.Name()]; dup {
				return nil, planerr.Shape("task %q defined in projects %q and %q", t.Name(), other, p.Name)
			}
			l.tasks[t.Name()] = t
			l.owner[t.Name()] = p.Name
		}
		if p.Start().IsZero() {
			continue
		}
		if l.start.IsZero() || p.Start().Before(l.start) {
			l.start = p.Start()
		}
		if l.end.IsZero() || p.End().After(l.end) {
			l.end = p.End()
		}
	}
	return l, nil
}

// Bounds is the first and last day covered by any project.
func (l *Ledger) Bounds() (time.Time, time.Time) { return l.start, l.end }

func (l *Ledger) task(name string) (*schedule.Task, error) {
	t, ok := l.tasks[name]
	if !ok {
		return nil, &planerr.RefError{Kind: "task", Target: name}
	}
	return t, nil
}

// Unit returns the unit a resource's price is quoted in.
func (l *Ledger) Unit(res string) (string, error) {
	r, err := l.resources.Get(res)
	if err != nil {
		return "", err
	}
	return r.Unit(), nil
}

// Price returns the declared price of a resource.
func (l *Ledger) Price(res string) (units.Price, error) {
	r, err := l.resources.Get(res)
	if err != nil {
		return units.Price{}, err
	}
	return r.Price, nil
}

// Usage is the quantity of res consumed by task, 0 when unused.
func (l *Ledger) Usage(task, res string) (float64, error) {
	t, err := l.task(task)
	if err != nil {
		return 0, err
	}
	if _, err := l.resources.Get(res); err != nil {
		return 0, err
	}
	return t.Record.Usage(res), nil
}

// IsUsing reports whether task lists res.
func (l *Ledger) IsUsing(task, res string) (bool, error) {
	t, err := l.task(task)
	if err != nil {
		return false, err
	}
	if _, err := l.resources.Get(res); err != nil {
		return false, err
	}
	return t.Record.Uses(res), nil
}

// IsAvailable reports whether res can work on day: inside the bounds, not a
// global vacation and not one of its own.
func (l *Ledger) IsAvailable(res string, day time.Time) (bool, error) {
	r, err := l.resources.Get(res)
	if err != nil {
		return false, err
	}
	day = calendar.Day(day)
	if l.start.IsZero() || !calendar.Within(day, l.start, l.end) {
		return false, nil
	}
	return !l.vacations.Has(day) && r.IsAvailable(day), nil
}

// IsActive reports whether task runs on day.
func (l *Ledger) IsActive(task string, day time.Time) (bool, error) {
	t, err := l.task(task)
	if err != nil {
		return false, err
	}
	return t.IsActive(day), nil
}

// Duration is the billable length of a task in days: its duration, or its
// dated span when the duration is zero.
func (l *Ledger) Duration(task string) (float64, error) {
	t, err := l.task(task)
	if err != nil {
		return 0, err
	}
	return length(t), nil
}

func length(t *schedule.Task) float64 {
	if t.Record.Duration != 0 {
		return t.Record.Duration
	}
	return float64(calendar.DaysBetween(t.Start, t.End))
}

// TimeFraction is the share of day billed to task: 1 for whole days, the
// fractional remainder on the last day and 0 before the task starts.
func (l *Ledger) TimeFraction(task string, day time.Time) (float64, error) {
	t, err := l.task(task)
	if err != nil {
		return 0, err
	}
	return timeFraction(t, day), nil
}

func timeFraction(t *schedule.Task, day time.Time) float64 {
	d := length(t)
	whole := math.Floor(d)
	frac := d - whole
	left := float64(calendar.DaysBetween(day, calendar.AddDays(t.Start, int(whole))))
	switch {
	case left > whole:
		return 0
	case left == 0:
		return frac
	default:
		return 1
	}
}

// Rate is the per-workday rate of res over task. Flat and batch prices are
// spread over the task's whole days.
func (l *Ledger) Rate(task, res string) (float64, error) {
	t, err := l.task(task)
	if err != nil {
		return 0, err
	}
	r, err := l.resources.Get(res)
	if err != nil {
		return 0, err
	}
	return l.rate(t, r)
}

func (l *Ledger) rate(t *schedule.Task, r *resource.Resource) (float64, error) {
	rate, err := r.Rate(l.reg, units.Workday, math.Ceil(length(t)))
	if err != nil {
		return 0, planerr.WrapTask(l.owner[t.Name()], t.Name(), err)
	}
	return rate, nil
}

// Cost is the amount billed for res on task for day.
func (l *Ledger) Cost(task, res string, day time.Time) (float64, error) {
	t, err := l.task(task)
	if err != nil {
		return 0, err
	}
	r, err := l.resources.Get(res)
	if err != nil {
		return 0, err
	}
	return l.cost(t, r, calendar.Day(day))
}

func (l *Ledger) cost(t *schedule.Task, r *resource.Resource, day time.Time) (float64, error) {
	if length(t) == 0 || !t.Record.Uses(r.Name) || !t.IsActive(day) {
		return 0, nil
	}
	available, err := l.IsAvailable(r.Name, day)
	if err != nil || !available {
		return 0, err
	}
	rate, err := l.rate(t, r)
	if err != nil {
		return 0, err
	}
	return rate * timeFraction(t, day) * t.Record.Usage(r.Name), nil
}

// Entries walks every day of the bounds for every task/resource pair and
// returns the non-zero rows, ordered by project, task, resource then date.
func (l *Ledger) Entries() ([]Entry, error) {
	var out []Entry
	if l.start.IsZero() {
		return out, nil
	}
	for _, p := range l.projects {
		for _, t := range p.Tasks() {
			for _, r := range t.Resources {
				for day := l.start; !day.After(l.end); day = calendar.AddDays(day, 1) {
					amount, err := l.cost(t, r, day)
					if err != nil {
						return nil, err
					}
					if amount == 0 {
						continue
					}
					out = append(out, Entry{
						Project:  p.Name,
						Task:     t.Name(),
						Resource: r.Name,
						Date:     day,
						Amount:   amount,
					})
				}
			}
		}
	}
	return out, nil
}
