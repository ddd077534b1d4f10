package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtllr/md-planning/internal/calendar"
	"github.com/mtllr/md-planning/internal/graph"
	"github.com/mtllr/md-planning/internal/normalize"
	"github.com/mtllr/md-planning/internal/planerr"
	"github.com/mtllr/md-planning/internal/resource"
	"github.com/mtllr/md-planning/internal/units"
)

func sept(day int) time.Time { return calendar.Date(2022, time.September, day) }

func resources(t *testing.T) *resource.Set {
	t.Helper()
	reg := units.NewRegistry()
	martin, err := resource.New("Martin", units.Price{Value: 68.75, Unit: "workhour"}, []time.Time{sept(15)}, reg)
	require.NoError(t, err)
	samuel, err := resource.New("Samuel", units.Price{Value: 600, Unit: "workday"}, nil, reg)
	require.NoError(t, err)
	set, err := resource.NewSet(martin, samuel)
	require.NoError(t, err)
	return set
}

func entries(t *testing.T, raw map[string]any, order ...string) []normalize.Record {
	t.Helper()
	out := make([]normalize.Record, 0, len(order))
	for i, name := range order {
		rec, err := normalize.Entry("Test1", name, i, raw[name])
		require.NoError(t, err)
		out = append(out, rec)
	}
	return out
}

func flatProject(t *testing.T) []normalize.Record {
	return entries(t, map[string]any{
		"kickoff": map[string]any{"type": "milestone", "depends_on": "brief"},
		"brief": map[string]any{
			"type": "task", "start": "2022-09-05", "duration": 0.125, "resources": nil,
		},
		"goals": map[string]any{
			"type": "task", "start": "2022-09-05", "duration": 0.25,
			"resources": "Martin", "depends_on": "brief",
		},
		"Env setup": []any{"2022-09-06", 1, 0, "Martin", "goals"},
	}, "kickoff", "brief", "goals", "Env setup")
}

func resolve(t *testing.T, records []normalize.Record) *Project {
	t.Helper()
	g, err := graph.Build("Test1", records)
	require.NoError(t, err)
	p, err := Resolve(g, resources(t))
	require.NoError(t, err)
	return p
}

func TestResolve_FlatProject(t *testing.T) {
	p := resolve(t, flatProject(t))

	tests := []struct {
		name       string
		start, end time.Time
	}{
		{"brief", sept(5), sept(5)},
		// dependency wins over the declared 2022-09-05
		{"goals", sept(6), sept(6)},
		{"Env setup", sept(7), sept(7)},
	}
	for _, tt := range tests {
		task, ok := p.Task(tt.name)
		require.True(t, ok, tt.name)
		assert.Equal(t, tt.start, task.Start, "%s start", tt.name)
		assert.Equal(t, tt.end, task.End, "%s end", tt.name)
	}

	require.Len(t, p.Milestones(), 1)
	assert.Equal(t, sept(6), p.Milestones()[0].Date)
	assert.Equal(t, sept(5), p.Start())
	assert.Equal(t, sept(7), p.End())

	var names []string
	for _, task := range p.Tasks() {
		names = append(names, task.Name())
	}
	assert.Equal(t, []string{"brief", "goals", "Env setup"}, names)
}

func TestResolve_BindsSharedResources(t *testing.T) {
	p := resolve(t, flatProject(t))

	goals, _ := p.Task("goals")
	env, _ := p.Task("Env setup")
	require.Len(t, goals.Resources, 1)
	require.Len(t, env.Resources, 1)
	assert.Equal(t, "Martin", goals.Resources[0].Name)
	assert.Same(t, goals.Resources[0], env.Resources[0])
}

func TestResolve_MultiDayDurations(t *testing.T) {
	p := resolve(t, entries(t, map[string]any{
		"a": map[string]any{"start": "2022-09-05", "duration": 2.5},
		"b": map[string]any{"duration": 3, "depends_on": "a"},
		"c": map[string]any{"duration": 0, "depends_on": "b"},
	}, "a", "b", "c"))

	a, _ := p.Task("a")
	b, _ := p.Task("b")
	c, _ := p.Task("c")
	assert.Equal(t, sept(7), a.End)
	assert.Equal(t, 3, a.Days())
	assert.Equal(t, sept(8), b.Start)
	assert.Equal(t, sept(10), b.End)
	assert.Equal(t, sept(11), c.Start)
	assert.Equal(t, sept(11), c.End)
}

func TestResolve_LatestPredecessorWins(t *testing.T) {
	p := resolve(t, entries(t, map[string]any{
		"short": map[string]any{"start": "2022-09-05", "duration": 1},
		"long":  map[string]any{"start": "2022-09-05", "duration": 4},
		"join":  map[string]any{"duration": 1, "depends_on": "short, long"},
	}, "short", "long", "join"))

	join, _ := p.Task("join")
	assert.Equal(t, sept(9), join.Start)
}

// For every edge the successor starts strictly after its predecessor ends.
func TestResolve_Monotonic(t *testing.T) {
	records := entries(t, map[string]any{
		"a": map[string]any{"start": "2022-09-05", "duration": 1.5},
		"b": map[string]any{"start": "2022-09-01", "duration": 0.2, "depends_on": "a"},
		"c": map[string]any{"start": "2022-09-12", "duration": 3},
		"m": map[string]any{"type": "milestone", "depends_on": "b, c"},
		"d": map[string]any{"duration": 2, "depends_on": "m, a"},
	}, "a", "b", "c", "m", "d")
	g, err := graph.Build("Test1", records)
	require.NoError(t, err)
	p, err := Resolve(g, resources(t))
	require.NoError(t, err)

	endOf := func(name string) time.Time {
		if task, ok := p.Task(name); ok {
			return task.End
		}
		for _, m := range p.Milestones() {
			if m.Name() == name {
				return m.Date
			}
		}
		t.Fatalf("unknown entry %s", name)
		return time.Time{}
	}
	startOf := func(name string) time.Time {
		if task, ok := p.Task(name); ok {
			return task.Start
		}
		return endOf(name)
	}

	for from, succs := range g.Adj {
		if from == graph.RootID {
			continue
		}
		for _, to := range succs {
			assert.True(t, startOf(to).After(endOf(from)), "%s -> %s", from, to)
		}
	}
}

func TestResolve_MissingStart(t *testing.T) {
	records := entries(t, map[string]any{
		"a": map[string]any{"duration": 1},
	}, "a")
	g, err := graph.Build("Test1", records)
	require.NoError(t, err)

	_, err = Resolve(g, resources(t))
	assert.ErrorIs(t, err, planerr.ErrInputShape)
	var te *planerr.TaskError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "a", te.Task)
}

func TestResolve_UnknownResource(t *testing.T) {
	records := entries(t, map[string]any{
		"a": map[string]any{"start": "2022-09-05", "duration": 1, "resources": "Julie"},
	}, "a")
	g, err := graph.Build("Test1", records)
	require.NoError(t, err)

	_, err = Resolve(g, resources(t))
	assert.ErrorIs(t, err, planerr.ErrReference)
	var ref *planerr.RefError
	require.ErrorAs(t, err, &ref)
	assert.Equal(t, "a", ref.Task)
	assert.Equal(t, "Julie", ref.Target)
}

func TestTask_IsActive(t *testing.T) {
	p := resolve(t, flatProject(t))
	goals, _ := p.Task("goals")
	env, _ := p.Task("Env setup")

	assert.True(t, goals.IsActive(sept(6)))
	assert.False(t, goals.IsActive(sept(7)))
	assert.True(t, env.IsActive(sept(7)))
	assert.False(t, env.IsActive(sept(8)))
}
