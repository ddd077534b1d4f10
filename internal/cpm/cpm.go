package cpm

import (
	"fmt"
	"math"
	"sort"

	"github.com/mtllr/md-planning/internal/graph"
	"github.com/mtllr/md-planning/internal/planerr"
)

// Tolerance is the slack below which a node counts as critical.
const Tolerance = 1e-9

// Analyze performs critical path method analysis on a project graph. The
// root and milestones take part in the passes with zero duration but are
// left out of the critical path and the waves.
func Analyze(g *graph.Graph) (*Result, error) {
	order := g.TopoOrder()
	if len(order) != len(g.Nodes) {
		return nil, fmt.Errorf("project %q: %w: %d of %d nodes ordered", g.Project, planerr.ErrCycle, len(order), len(g.Nodes))
	}

	all := make(map[string]*TaskSchedule, len(order))
	for _, id := range order {
		all[id] = &TaskSchedule{TaskID: id, Milestone: g.Nodes[id].Milestone}
	}
	length := func(id string) float64 {
		n := g.Nodes[id]
		return n.Duration + n.Lag
	}

	// Forward pass: ES = max(EF of all predecessors)
	for _, id := range order {
		ts := all[id]
		es := 0.0
		for _, pred := range g.RevAdj[id] {
			if ef := all[pred].EF; ef > es {
				es = ef
			}
		}
		ts.ES = es
		ts.EF = es + length(id)
	}

	finish := 0.0
	for _, ts := range all {
		if ts.EF > finish {
			finish = ts.EF
		}
	}

	// Backward pass anchored at the project finish
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		ts := all[id]
		lf := finish
		for _, succ := range g.Adj[id] {
			if ls := all[succ].LS; ls < lf {
				lf = ls
			}
		}
		ts.LF = lf
		ts.LS = lf - length(id)
		ts.Slack = ts.LS - ts.ES
		ts.IsCritical = math.Abs(ts.Slack) <= Tolerance
	}

	result := &Result{
		Tasks:         make(map[string]*TaskSchedule, len(order)-1),
		TotalDuration: finish,
		TopoOrder:     make([]string, 0, len(order)-1),
	}
	for _, id := range order {
		if id == graph.RootID {
			continue
		}
		result.Tasks[id] = all[id]
		result.TopoOrder = append(result.TopoOrder, id)
	}

	for _, id := range result.TopoOrder {
		if ts := result.Tasks[id]; ts.IsCritical && !ts.Milestone {
			result.CriticalPath = append(result.CriticalPath, id)
		}
	}
	sortByStart(g, result, result.CriticalPath)

	result.Waves = computeWaves(g, result)
	return result, nil
}

// sortByStart orders ids by ES, then declaration index.
func sortByStart(g *graph.Graph, result *Result, ids []string) {
	sort.SliceStable(ids, func(a, b int) bool {
		ta, tb := result.Tasks[ids[a]], result.Tasks[ids[b]]
		if ka, kb := offsetKey(ta.ES), offsetKey(tb.ES); ka != kb {
			return ka < kb
		}
		return g.Nodes[ids[a]].Index < g.Nodes[ids[b]].Index
	})
}

func offsetKey(v float64) int64 {
	return int64(math.Round(v * 1e6))
}

// computeWaves groups tasks by their earliest start time.
func computeWaves(g *graph.Graph, result *Result) []Wave {
	groups := make(map[int64][]string)
	for _, id := range result.TopoOrder {
		ts := result.Tasks[id]
		if ts.Milestone {
			continue
		}
		k := offsetKey(ts.ES)
		groups[k] = append(groups[k], id)
	}

	keys := make([]int64, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool { return keys[a] < keys[b] })

	waves := make([]Wave, len(keys))
	for i, k := range keys {
		taskIDs := groups[k]

		hasCritical := false
		for _, id := range taskIDs {
			result.Tasks[id].Wave = i
			if result.Tasks[id].IsCritical {
				hasCritical = true
			}
		}

		// Critical tasks first within a wave, then declaration order
		sort.SliceStable(taskIDs, func(a, b int) bool {
			aCrit := result.Tasks[taskIDs[a]].IsCritical
			bCrit := result.Tasks[taskIDs[b]].IsCritical
			if aCrit != bCrit {
				return aCrit
			}
			return g.Nodes[taskIDs[a]].Index < g.Nodes[taskIDs[b]].Index
		})

		waves[i] = Wave{
			Index:      i,
			Offset:     result.Tasks[taskIDs[0]].ES,
			TaskIDs:    taskIDs,
			IsCritical: hasCritical,
		}
	}
	return waves
}
