// Package pert builds PERT chart records from analyzed projects and writes
// them as Graphviz text.
package pert

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mtllr/md-planning/internal/cpm"
	"github.com/mtllr/md-planning/internal/normalize"
	"github.com/mtllr/md-planning/internal/planerr"
)

// Critical is the responsible label of tasks on the critical path.
const Critical = "CRITICAL"

// Record is one task of a PERT chart. Start and End are left for the chart
// tool to fill.
type Record struct {
	Tid         string   `json:"Tid"`
	Start       float64  `json:"start"`
	Duration    float64  `json:"duration"`
	End         float64  `json:"end"`
	Responsible string   `json:"responsible"`
	Pred        []string `json:"pred"`
}

// Records lists the tasks of a project in declaration order. Milestones have
// no PERT record; a task depending on one lists the milestone's own task
// predecessors instead.
func Records(records []normalize.Record, result *cpm.Result) []Record {
	milestones := make(map[string]*normalize.Milestone)
	for _, r := range records {
		if m, ok := r.(*normalize.Milestone); ok {
			milestones[m.Name] = m
		}
	}

	out := make([]Record, 0, len(records))
	for _, r := range records {
		t, ok := r.(*normalize.Task)
		if !ok {
			continue
		}
		rec := Record{
			Tid:      t.Name,
			Duration: t.Duration,
			Pred:     predecessors(t, milestones),
		}
		if result != nil && result.IsCritical(t.Name) {
			rec.Responsible = Critical
		}
		out = append(out, rec)
	}
	return out
}

// predecessors expands milestones, following chains of them, and drops
// duplicates while keeping first-seen order.
func predecessors(r normalize.Record, milestones map[string]*normalize.Milestone) []string {
	var out []string
	seen := make(map[string]bool)
	visiting := make(map[string]bool)
	var walk func(normalize.Record)
	walk = func(r normalize.Record) {
		for _, p := range normalize.PertPredecessors(r) {
			if m, ok := milestones[p]; ok {
				if !visiting[p] {
					visiting[p] = true
					walk(m)
				}
				continue
			}
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	walk(r)
	return out
}

// Chart holds the PERT records of several projects.
type Chart struct {
	order    []string
	projects map[string][]Record
}

// NewChart returns an empty chart.
func NewChart() *Chart {
	return &Chart{projects: make(map[string][]Record)}
}

// Add sets the records of project, keeping the first insertion position.
func (c *Chart) Add(project string, records []Record) {
	if _, ok := c.projects[project]; !ok {
		c.order = append(c.order, project)
	}
	c.projects[project] = records
}

// Projects lists project names in insertion order.
func (c *Chart) Projects() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Records returns the records of project.
func (c *Chart) Records(project string) ([]Record, error) {
	recs, ok := c.projects[project]
	if !ok {
		return nil, &planerr.RefError{Kind: "project", Target: project}
	}
	return recs, nil
}

// CriticalPath lists the tasks of project labelled critical.
func (c *Chart) CriticalPath(project string) ([]string, error) {
	recs, err := c.Records(project)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, r := range recs {
		if r.Responsible == Critical {
			out = append(out, r.Tid)
		}
	}
	return out, nil
}

// WriteDOT writes project as a Graphviz digraph. Critical tasks and the
// edges between them are drawn in red.
func (c *Chart) WriteDOT(w io.Writer, project string) error {
	recs, err := c.Records(project)
	if err != nil {
		return err
	}
	critical := make(map[string]bool, len(recs))
	for _, r := range recs {
		if r.Responsible == Critical {
			critical[r.Tid] = true
		}
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "digraph %s {\n", quote(project))
	fmt.Fprintln(bw, "  rankdir=LR;")
	fmt.Fprintln(bw, "  node [shape=box];")
	fmt.Fprintf(bw, "  %s [shape=circle];\n", quote(normalize.StartNode))

	for _, r := range recs {
		label := quote(r.Tid + `\n` + strconv.FormatFloat(r.Duration, 'f', -1, 64))
		if critical[r.Tid] {
			fmt.Fprintf(bw, "  %s [label=%s, color=red, penwidth=2];\n", quote(r.Tid), label)
		} else {
			fmt.Fprintf(bw, "  %s [label=%s];\n", quote(r.Tid), label)
		}
	}
	for _, r := range recs {
		for _, p := range r.Pred {
			attrs := ""
			if critical[r.Tid] && (critical[p] || p == normalize.StartNode) {
				attrs = " [color=red]"
			}
			fmt.Fprintf(bw, "  %s -> %s%s;\n", quote(p), quote(r.Tid), attrs)
		}
	}
	fmt.Fprintln(bw, "}")
	return bw.Flush()
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
