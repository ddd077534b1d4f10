package cpm

import (
	"math"
	"reflect"
	"testing"

	"github.com/mtllr/md-planning/internal/graph"
	"github.com/mtllr/md-planning/internal/normalize"
)

func task(i int, name string, dur float64, deps ...string) *normalize.Task {
	return &normalize.Task{Project: "p", Name: name, Index: i, Duration: dur, DependsOn: deps}
}

func buildTestGraph(t *testing.T, records ...normalize.Record) *graph.Graph {
	t.Helper()
	g, err := graph.Build("p", records)
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}
	return g
}

func TestAnalyze_LinearChain(t *testing.T) {
	// a -> b -> c (each duration 1)
	g := buildTestGraph(t,
		task(0, "a", 1),
		task(1, "b", 1, "a"),
		task(2, "c", 1, "b"),
	)

	result, err := Analyze(g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.TotalDuration != 3 {
		t.Errorf("expected total duration 3, got %g", result.TotalDuration)
	}
	if !reflect.DeepEqual(result.CriticalPath, []string{"a", "b", "c"}) {
		t.Errorf("expected critical path [a b c], got %v", result.CriticalPath)
	}
	if len(result.Waves) != 3 {
		t.Errorf("expected 3 waves, got %d", len(result.Waves))
	}

	assertSchedule(t, result.Tasks["a"], 0, 1, 0, 1, 0, true)
	assertSchedule(t, result.Tasks["b"], 1, 2, 1, 2, 0, true)
	assertSchedule(t, result.Tasks["c"], 2, 3, 2, 3, 0, true)
}

func TestAnalyze_DiamondDAG(t *testing.T) {
	// a -> b -> d
	// a -> c -> d
	g := buildTestGraph(t,
		task(0, "a", 1),
		task(1, "b", 1, "a"),
		task(2, "c", 1, "a"),
		task(3, "d", 1, "b", "c"),
	)

	result, err := Analyze(g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.TotalDuration != 3 {
		t.Errorf("expected total duration 3, got %g", result.TotalDuration)
	}
	if len(result.Waves) != 3 {
		t.Fatalf("expected 3 waves, got %d", len(result.Waves))
	}
	if ids := result.Waves[1].TaskIDs; !reflect.DeepEqual(ids, []string{"b", "c"}) {
		t.Errorf("expected wave 1 = [b c], got %v", ids)
	}
	// equal branches are both critical; ties keep declaration order
	if !reflect.DeepEqual(result.CriticalPath, []string{"a", "b", "c", "d"}) {
		t.Errorf("expected critical path [a b c d], got %v", result.CriticalPath)
	}
}

func TestAnalyze_WithDurations(t *testing.T) {
	// a(5) -> b(1) -> d(1)
	// a(5) -> c(10) -> d(1)
	g := buildTestGraph(t,
		task(0, "a", 5),
		task(1, "b", 1, "a"),
		task(2, "c", 10, "a"),
		task(3, "d", 1, "b", "c"),
	)

	result, err := Analyze(g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.TotalDuration != 16 {
		t.Errorf("expected total duration 16, got %g", result.TotalDuration)
	}
	if result.Tasks["b"].IsCritical {
		t.Error("expected task b to NOT be critical")
	}
	if result.Tasks["b"].Slack != 9 {
		t.Errorf("expected b slack=9, got %g", result.Tasks["b"].Slack)
	}
	if !reflect.DeepEqual(result.CriticalPath, []string{"a", "c", "d"}) {
		t.Errorf("expected critical path [a c d], got %v", result.CriticalPath)
	}
}

func TestAnalyze_FractionalDurations(t *testing.T) {
	// goals(1.25) -> env(1)
	g := buildTestGraph(t,
		task(0, "goals", 1.25),
		task(1, "env", 1, "goals"),
		task(2, "side", 0.5),
	)

	result, err := Analyze(g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if math.Abs(result.TotalDuration-2.25) > Tolerance {
		t.Errorf("expected total duration 2.25, got %g", result.TotalDuration)
	}
	assertSchedule(t, result.Tasks["side"], 0, 0.5, 1.75, 2.25, 1.75, false)
	if !reflect.DeepEqual(result.CriticalPath, []string{"goals", "env"}) {
		t.Errorf("expected critical path [goals env], got %v", result.CriticalPath)
	}
}

func TestAnalyze_MilestonesExcluded(t *testing.T) {
	ms := &normalize.Milestone{Project: "p", Name: "release", Index: 2, DependsOn: []string{"b"}}
	g := buildTestGraph(t,
		task(0, "a", 2),
		task(1, "b", 3, "a"),
		ms,
		task(3, "c", 1, "release"),
	)

	result, err := Analyze(g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(result.CriticalPath, []string{"a", "b", "c"}) {
		t.Errorf("expected critical path [a b c], got %v", result.CriticalPath)
	}
	if result.IsCritical("release") {
		t.Error("milestone must not be reported critical")
	}
	assertSchedule(t, result.Tasks["c"], 5, 6, 5, 6, 0, true)
	for _, w := range result.Waves {
		for _, id := range w.TaskIDs {
			if id == "release" {
				t.Errorf("milestone in wave %d", w.Index)
			}
		}
	}
}

func TestAnalyze_ParallelIndependent(t *testing.T) {
	g := buildTestGraph(t, task(0, "a", 1), task(1, "b", 1), task(2, "c", 1))

	result, err := Analyze(g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Waves) != 1 {
		t.Fatalf("expected 1 wave, got %d", len(result.Waves))
	}
	if len(result.Waves[0].TaskIDs) != 3 {
		t.Errorf("expected 3 tasks in wave 0, got %d", len(result.Waves[0].TaskIDs))
	}
	if result.TotalDuration != 1 {
		t.Errorf("expected total duration 1, got %g", result.TotalDuration)
	}
}

func TestAnalyze_SingleTask(t *testing.T) {
	g := buildTestGraph(t, task(0, "solo", 1))

	result, err := Analyze(g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.CriticalPath) != 1 || result.CriticalPath[0] != "solo" {
		t.Errorf("expected critical path [solo], got %v", result.CriticalPath)
	}
	if _, ok := result.Tasks[graph.RootID]; ok {
		t.Error("root must not appear in the result")
	}
}

func TestAnalyze_WaveCriticalFirst(t *testing.T) {
	//     a
	//   / | \
	//  b  c  d   (c is longest)
	//   \ | /
	//     e
	g := buildTestGraph(t,
		task(0, "a", 1),
		task(1, "b", 1, "a"),
		task(2, "c", 4, "a"),
		task(3, "d", 2, "a"),
		task(4, "e", 1, "b", "c", "d"),
	)

	result, err := Analyze(g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Waves) != 3 {
		t.Fatalf("expected 3 waves, got %d", len(result.Waves))
	}
	if ids := result.Waves[1].TaskIDs; !reflect.DeepEqual(ids, []string{"c", "b", "d"}) {
		t.Errorf("expected critical task first in wave 1, got %v", ids)
	}
}

// The critical path is exactly the set of zero-slack tasks, and its length
// equals the project finish.
func TestAnalyze_CriticalPathContainment(t *testing.T) {
	g := buildTestGraph(t,
		task(0, "a", 3),
		task(1, "b", 2),
		task(2, "c", 4, "a"),
		task(3, "d", 1, "a", "b"),
		task(4, "e", 2.5, "c", "d"),
		task(5, "f", 0.5, "b"),
	)

	result, err := Analyze(g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	onPath := make(map[string]bool)
	for _, id := range result.CriticalPath {
		onPath[id] = true
	}
	for id, ts := range result.Tasks {
		if zero := math.Abs(ts.Slack) <= Tolerance; zero != onPath[id] {
			t.Errorf("task %s: slack %g but on path = %v", id, ts.Slack, onPath[id])
		}
		if ts.Slack < -Tolerance {
			t.Errorf("task %s: negative slack %g", id, ts.Slack)
		}
	}

	sum := 0.0
	for _, id := range result.CriticalPath {
		sum += g.Nodes[id].Duration
	}
	if math.Abs(sum-result.TotalDuration) > Tolerance {
		t.Errorf("critical durations sum to %g, project finishes at %g", sum, result.TotalDuration)
	}
}

func assertSchedule(t *testing.T, ts *TaskSchedule, es, ef, ls, lf, slack float64, critical bool) {
	t.Helper()
	check := func(field string, want, got float64) {
		if math.Abs(want-got) > Tolerance {
			t.Errorf("task %s: expected %s=%g, got %g", ts.TaskID, field, want, got)
		}
	}
	check("ES", es, ts.ES)
	check("EF", ef, ts.EF)
	check("LS", ls, ts.LS)
	check("LF", lf, ts.LF)
	check("slack", slack, ts.Slack)
	if ts.IsCritical != critical {
		t.Errorf("task %s: expected critical=%v, got %v", ts.TaskID, critical, ts.IsCritical)
	}
}
