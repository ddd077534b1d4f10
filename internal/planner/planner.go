package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mtllr/md-planning/internal/budget"
	"github.com/mtllr/md-planning/internal/calendar"
	"github.com/mtllr/md-planning/internal/cpm"
	"github.com/mtllr/md-planning/internal/graph"
	"github.com/mtllr/md-planning/internal/loader"
	"github.com/mtllr/md-planning/internal/normalize"
	"github.com/mtllr/md-planning/internal/pert"
	"github.com/mtllr/md-planning/internal/planerr"
	"github.com/mtllr/md-planning/internal/resource"
	"github.com/mtllr/md-planning/internal/schedule"
	"github.com/mtllr/md-planning/internal/units"
)

// DefaultCriticalColor is used when the config names none.
const DefaultCriticalColor = "#ff0000"

// Generate analyzes every project of def. Resources and units are validated
// before any project is scheduled; projects then run concurrently, at most
// cfg.MaxParallel at a time, and keep their definition order in the plan.
func Generate(ctx context.Context, def *loader.Definition, cfg Config) (*Plan, error) {
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = 4
	}
	if cfg.CriticalColor == "" {
		cfg.CriticalColor = DefaultCriticalColor
	}
	log := cfg.Logger.With().Str("component", "planner").Logger()

	reg, err := Registry(def.Units)
	if err != nil {
		return nil, err
	}
	resources, err := Resources(def.Resources, reg)
	if err != nil {
		return nil, err
	}
	if err := checkNames(def.Projects); err != nil {
		return nil, err
	}

	plan := &Plan{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		Source:    def.Source,
		Font:      def.Font,
		Registry:  reg,
		Resources: resources,
		Vacations: calendar.NewSet(def.Vacations...),
		Projects:  make([]*ProjectPlan, len(def.Projects)),
		byName:    make(map[string]*ProjectPlan, len(def.Projects)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.MaxParallel)
	for i, p := range def.Projects {
		i, p := i, p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pp, err := planProject(p, resources, cfg.CriticalColor)
			if err != nil {
				return err
			}
			log.Debug().
				Str("project", pp.Name).
				Int("tasks", len(pp.Pert)).
				Int("waves", len(pp.CPM.Waves)).
				Strs("critical_path", pp.CPM.CriticalPath).
				Msg("project analyzed")
			plan.Projects[i] = pp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, pp := range plan.Projects {
		plan.byName[pp.Name] = pp
	}
	log.Info().
		Str("plan_id", plan.ID).
		Int("projects", len(plan.Projects)).
		Int("resources", resources.Len()).
		Msg("plan generated")
	return plan, nil
}

// Registry builds a unit registry extended with the definition's units.
func Registry(u loader.Units) (*units.Registry, error) {
	reg := units.NewRegistry()
	for _, d := range u.Define {
		if err := reg.Define(d); err != nil {
			return nil, err
		}
	}
	for _, a := range u.Alias {
		if err := reg.Alias(a); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Resources validates and indexes the declared resources.
func Resources(decl []loader.Resource, reg *units.Registry) (*resource.Set, error) {
	list := make([]*resource.Resource, 0, len(decl))
	for _, d := range decl {
		r, err := resource.New(d.Name, d.Price, d.Vacations, reg)
		if err != nil {
			return nil, err
		}
		list = append(list, r)
	}
	return resource.NewSet(list...)
}

// checkNames rejects unnamed or repeated projects and task names shared by
// two projects.
func checkNames(projects []loader.Project) error {
	seenProject := make(map[string]bool, len(projects))
	owner := make(map[string]string)
	for _, p := range projects {
		if p.Name == "" {
			return planerr.Shape("missing project name")
		}
		if seenProject[p.Name] {
			return planerr.Shape("duplicate project %q", p.Name)
		}
		seenProject[p.Name] = true
		for _, t := range p.Tasks {
			if other, dup := owner[t.Name]; dup && other != p.Name {
				return planerr.Shape("task %q defined in projects %q and %q", t.Name, other, p.Name)
			}
			owner[t.Name] = p.Name
		}
	}
	return nil
}

func planProject(p loader.Project, resources *resource.Set, criticalColor string) (*ProjectPlan, error) {
	records := make([]normalize.Record, 0, len(p.Tasks))
	for i, t := range p.Tasks {
		rec, err := normalize.Entry(p.Name, t.Name, i, t.Raw)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	g, err := graph.Build(p.Name, records)
	if err != nil {
		return nil, err
	}
	result, err := cpm.Analyze(g)
	if err != nil {
		return nil, fmt.Errorf("critical path of %q: %w", p.Name, err)
	}
	sched, err := schedule.Resolve(g, resources)
	if err != nil {
		return nil, err
	}

	return &ProjectPlan{
		Name:          p.Name,
		Records:       records,
		Graph:         g,
		CPM:           result,
		Schedule:      sched,
		Pert:          pert.Records(records, result),
		criticalColor: criticalColor,
	}, nil
}

// Project returns the named project.
func (p *Plan) Project(name string) (*ProjectPlan, error) {
	pp, ok := p.byName[name]
	if !ok {
		return nil, &planerr.RefError{Kind: "project", Target: name}
	}
	return pp, nil
}

// Ledger builds the budget ledger over every project.
func (p *Plan) Ledger() (*budget.Ledger, error) {
	scheds := make([]*schedule.Project, len(p.Projects))
	for i, pp := range p.Projects {
		scheds[i] = pp.Schedule
	}
	return budget.New(p.Registry, p.Resources, p.Vacations, scheds)
}

// Chart collects the PERT records of every project.
func (p *Plan) Chart() *pert.Chart {
	c := pert.NewChart()
	for _, pp := range p.Projects {
		c.Add(pp.Name, pp.Pert)
	}
	return c
}

// TotalTasks counts tasks across projects, milestones excluded.
func (p *Plan) TotalTasks() int {
	n := 0
	for _, pp := range p.Projects {
		n += len(pp.Schedule.Tasks())
	}
	return n
}

// Color is the display color of a task: its own, or the critical color when
// it sits on the critical path and declares none.
func (pp *ProjectPlan) Color(name string) string {
	node, ok := pp.Graph.Nodes[name]
	if !ok || node.Record == nil {
		return ""
	}
	var own string
	switch r := node.Record.(type) {
	case *normalize.Task:
		own = r.Color
	case *normalize.Milestone:
		own = r.Color
	}
	if own == "" && pp.CPM.IsCritical(name) {
		return pp.criticalColor
	}
	return own
}
