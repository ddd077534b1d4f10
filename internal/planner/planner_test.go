package planner

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"github.com/mtllr/md-planning/internal/loader"
	"github.com/mtllr/md-planning/internal/pert"
	"github.com/mtllr/md-planning/internal/planerr"
)

const flatProject = `
Vacations:
    - 2022-09-30
Resources:
    Martin:
        price:
            value: 68.75
            unit: workhour
        vacations:
            - 2022-09-15
    Samuel:
        price:
            value: 600
            unit:  workday
Projects:
    -   Name: Test1
        Tasks:
            kickoff:
                type: milestone
                depends_on: brief
            brief:
                type: task
                start: 2022-09-05
                duration: 0.125
            goals:
                type: task
                start: 2022-09-05
                duration: 0.25
                resources: Martin
                depends_on: brief
            Env setup: [2022-09-06, 1, 0, "Martin", "goals"]
    -   Name: Test2
        Tasks:
            design: {start: 2022-09-12, duration: 2, resources: "0.5 Samuel", color: blue}
            review: {start: 2022-09-12, duration: 1, resources: Martin}
            ship: {duration: 1, depends_on: "design, review"}
`

func parse(t *testing.T, doc string) *loader.Definition {
	t.Helper()
	def, err := loader.Parse([]byte(doc), loader.FormatYAML)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return def
}

func generate(t *testing.T, doc string) *Plan {
	t.Helper()
	plan, err := Generate(context.Background(), parse(t, doc), Config{MaxParallel: 2, Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("generate plan: %v", err)
	}
	return plan
}

func TestGenerate_FlatProject(t *testing.T) {
	plan := generate(t, flatProject)

	if plan.ID == "" {
		t.Error("expected a plan id")
	}
	if len(plan.Projects) != 2 || plan.Projects[0].Name != "Test1" || plan.Projects[1].Name != "Test2" {
		t.Fatalf("expected projects [Test1 Test2] in order, got %v", plan.Projects)
	}
	if plan.TotalTasks() != 6 {
		t.Errorf("expected 6 tasks, got %d", plan.TotalTasks())
	}

	p, err := plan.Project("Test1")
	if err != nil {
		t.Fatalf("project lookup: %v", err)
	}
	want := []pert.Record{
		{Tid: "brief", Duration: 0.125, Responsible: pert.Critical, Pred: []string{"START"}},
		{Tid: "goals", Duration: 0.25, Responsible: pert.Critical, Pred: []string{"brief"}},
		{Tid: "Env setup", Duration: 1, Responsible: pert.Critical, Pred: []string{"goals"}},
	}
	if !reflect.DeepEqual(p.Pert, want) {
		t.Errorf("unexpected PERT records:\n got %+v\nwant %+v", p.Pert, want)
	}
	if !reflect.DeepEqual(p.CPM.CriticalPath, []string{"brief", "goals", "Env setup"}) {
		t.Errorf("unexpected critical path %v", p.CPM.CriticalPath)
	}
}

func TestGenerate_CriticalColor(t *testing.T) {
	plan := generate(t, flatProject)
	p, _ := plan.Project("Test2")

	if c := p.Color("design"); c != "blue" {
		t.Errorf("declared color must win, got %q", c)
	}
	if c := p.Color("ship"); c != DefaultCriticalColor {
		t.Errorf("expected critical color on ship, got %q", c)
	}
	if c := p.Color("review"); c != "" {
		t.Errorf("expected no color on review, got %q", c)
	}
}

func TestPlan_Ledger(t *testing.T) {
	plan := generate(t, flatProject)
	ledger, err := plan.Ledger()
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	entries, err := ledger.Entries()
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) < 2 {
		t.Fatalf("expected ledger rows, got %v", entries)
	}
	if e := entries[0]; e.Task != "goals" || e.Amount != 137.5 {
		t.Errorf("expected goals 137.5 first, got %+v", e)
	}
	if e := entries[1]; e.Task != "Env setup" || e.Amount != 550 {
		t.Errorf("expected Env setup 550 second, got %+v", e)
	}
}

func TestPlan_Chart(t *testing.T) {
	plan := generate(t, flatProject)
	path, err := plan.Chart().CriticalPath("Test2")
	if err != nil {
		t.Fatalf("critical path: %v", err)
	}
	if !reflect.DeepEqual(path, []string{"design", "ship"}) {
		t.Errorf("expected [design ship], got %v", path)
	}
}

func TestGenerate_UnitsExtendRegistry(t *testing.T) {
	doc := `
Units:
    define: ["shift = 6 workhour = _ = shifts"]
    alias: ["workday = jour"]
Resources:
    Nurse:
        price: {value: 120, unit: shift}
    Dev:
        price: {value: 500, unit: jour}
Projects:
    - Name: P
      Tasks:
        a: {start: 2022-09-05, duration: 1, resources: "Nurse, Dev"}
`
	plan := generate(t, doc)
	ledger, err := plan.Ledger()
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	rate, err := ledger.Rate("a", "Nurse")
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if rate != 160 {
		t.Errorf("expected 160 per workday, got %g", rate)
	}
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"unknown dependency", `
Projects:
    - Name: P
      Tasks:
        a: {start: 2022-09-05, duration: 1, depends_on: ghost}
`, planerr.ErrReference},
		{"unknown resource", `
Projects:
    - Name: P
      Tasks:
        a: {start: 2022-09-05, duration: 1, resources: Julie}
`, planerr.ErrReference},
		{"flat resource with vacations", `
Resources:
    Laptop:
        price: {value: 100, unit: unit}
        vacations: [2022-09-15]
`, planerr.ErrDomain},
		{"batch without size", `
Resources:
    Paper:
        price: {value: 100, unit: batch}
`, planerr.ErrDomain},
		{"task in two projects", `
Projects:
    - Name: A
      Tasks:
        x: {start: 2022-09-05, duration: 1}
    - Name: B
      Tasks:
        x: {start: 2022-09-05, duration: 1}
`, planerr.ErrInputShape},
		{"duplicate project", `
Projects:
    - Name: A
    - Name: A
`, planerr.ErrInputShape},
		{"cycle", `
Projects:
    - Name: P
      Tasks:
        a: {duration: 1, depends_on: b}
        b: {duration: 1, depends_on: a}
`, planerr.ErrCycle},
		{"nested tasks", `
Projects:
    - Name: P
      Tasks:
        kickoff:
            brief: {start: 2022-09-05, duration: 1}
`, planerr.ErrNotImplemented},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Generate(context.Background(), parse(t, tt.doc), Config{Logger: zerolog.Nop()})
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestGenerate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Generate(ctx, parse(t, flatProject), Config{Logger: zerolog.Nop()})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
