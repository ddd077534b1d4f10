// Package schedule assigns calendar dates to the entries of a project graph
// and binds tasks to their resources.
package schedule

import (
	"math"
	"time"

	"github.com/mtllr/md-planning/internal/calendar"
	"github.com/mtllr/md-planning/internal/graph"
	"github.com/mtllr/md-planning/internal/normalize"
	"github.com/mtllr/md-planning/internal/planerr"
	"github.com/mtllr/md-planning/internal/resource"
)

// Task is a dated task. Resources line up with Record.Resources and are
// shared with every other task using them.
type Task struct {
	Record    *normalize.Task
	Start     time.Time
	End       time.Time
	Resources []*resource.Resource
}

// Name returns the task name.
func (t *Task) Name() string { return t.Record.Name }

// Days is the number of calendar days the task spans, both ends included.
func (t *Task) Days() int { return calendar.DaysBetween(t.Start, t.End) + 1 }

// IsActive reports whether day falls inside the task.
func (t *Task) IsActive(day time.Time) bool {
	return calendar.Within(calendar.Day(day), t.Start, t.End)
}

// Milestone is a dated milestone.
type Milestone struct {
	Record *normalize.Milestone
	Date   time.Time
}

// Name returns the milestone name.
func (m *Milestone) Name() string { return m.Record.Name }

// Project is the dated schedule of one project.
type Project struct {
	Name       string
	tasks      []*Task
	milestones []*Milestone
	byName     map[string]*Task
	start, end time.Time
}

// Resolve dates every entry of g. An entry without predecessors starts on
// its declared start; any other entry starts the day after its latest
// predecessor ends, whatever its declared start.
func Resolve(g *graph.Graph, resources *resource.Set) (*Project, error) {
	p := &Project{Name: g.Project, byName: make(map[string]*Task)}
	ends := make(map[string]time.Time, len(g.Nodes))

	for _, id := range g.TopoOrder() {
		if id == graph.RootID {
			continue
		}
		node := g.Nodes[id]

		start, err := startOf(g, id, node.Record, ends)
		if err != nil {
			return nil, planerr.WrapTask(g.Project, id, err)
		}

		switch rec := node.Record.(type) {
		case *normalize.Milestone:
			ends[id] = start
			p.milestones = append(p.milestones, &Milestone{Record: rec, Date: start})
			p.extend(start, start)
		case *normalize.Task:
			end := calendar.AddDays(start, spanDays(rec.Duration)-1)
			bound, err := bind(rec, resources)
			if err != nil {
				return nil, planerr.WrapTask(g.Project, id, err)
			}
			t := &Task{Record: rec, Start: start, End: end, Resources: bound}
			ends[id] = end
			p.tasks = append(p.tasks, t)
			p.byName[id] = t
			p.extend(start, end)
		}
	}
	return p, nil
}

func startOf(g *graph.Graph, id string, rec normalize.Record, ends map[string]time.Time) (time.Time, error) {
	var latest time.Time
	hasPred := false
	for _, pred := range g.RevAdj[id] {
		if pred == graph.RootID {
			continue
		}
		if end := ends[pred]; !hasPred || end.After(latest) {
			latest = end
		}
		hasPred = true
	}
	if hasPred {
		return calendar.AddDays(latest, 1), nil
	}
	if start, ok := rec.StartOverride(); ok {
		return start, nil
	}
	return time.Time{}, planerr.Shape("no start date and no dependencies")
}

// spanDays is the number of calendar days a duration occupies, at least one.
func spanDays(duration float64) int {
	return int(math.Max(math.Ceil(duration), 1))
}

func bind(rec *normalize.Task, resources *resource.Set) ([]*resource.Resource, error) {
	out := make([]*resource.Resource, 0, len(rec.Resources))
	for _, u := range rec.Resources {
		r, err := resources.Get(u.Resource)
		if err != nil {
			return nil, &planerr.RefError{Kind: "resource", Task: rec.Name, Target: u.Resource}
		}
		out = append(out, r)
	}
	return out, nil
}

func (p *Project) extend(start, end time.Time) {
	if p.start.IsZero() || start.Before(p.start) {
		p.start = start
	}
	if p.end.IsZero() || end.After(p.end) {
		p.end = end
	}
}

// Start is the earliest date of the project.
func (p *Project) Start() time.Time { return p.start }

// End is the latest date of the project.
func (p *Project) End() time.Time { return p.end }

// Task looks up a dated task by name.
func (p *Project) Task(name string) (*Task, bool) {
	t, ok := p.byName[name]
	return t, ok
}

// Tasks lists the dated tasks in topological order.
func (p *Project) Tasks() []*Task { return p.tasks }

// Milestones lists the dated milestones in topological order.
func (p *Project) Milestones() []*Milestone { return p.milestones }
