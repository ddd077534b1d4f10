package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mtllr/md-planning/internal/budget"
	"github.com/mtllr/md-planning/internal/calendar"
	"github.com/mtllr/md-planning/internal/planner"
	"github.com/mtllr/md-planning/internal/store"
	"github.com/mtllr/md-planning/internal/ui"
	"github.com/mtllr/md-planning/internal/units"
)

// DefaultBarWidth caps the gantt column; longer projects fold several days
// into one cell.
const DefaultBarWidth = 60

// Reporter renders an analyzed plan.
type Reporter struct {
	Plan     *planner.Plan
	BarWidth int
}

// New creates a new Reporter.
func New(plan *planner.Plan) *Reporter {
	return &Reporter{Plan: plan, BarWidth: DefaultBarWidth}
}

func (r *Reporter) projects(name string) ([]*planner.ProjectPlan, error) {
	if name == "" {
		return r.Plan.Projects, nil
	}
	pp, err := r.Plan.Project(name)
	if err != nil {
		return nil, err
	}
	return []*planner.ProjectPlan{pp}, nil
}

// PrintPlan writes critical path, waves and a gantt schedule for one project,
// or for all of them when name is empty.
func (r *Reporter) PrintPlan(w io.Writer, name string) error {
	list, err := r.projects(name)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s %s\n", ui.BoldCyan("📋 Plan"), ui.Dim(r.Plan.ID))
	if r.Plan.Source != "" {
		fmt.Fprintf(w, "Source:    %s\n", r.Plan.Source)
	}
	fmt.Fprintf(w, "Projects:  %d\n", len(r.Plan.Projects))
	fmt.Fprintf(w, "Tasks:     %d total\n\n", r.Plan.TotalTasks())

	for _, pp := range list {
		r.printProject(w, pp)
	}
	return nil
}

func (r *Reporter) printProject(w io.Writer, pp *planner.ProjectPlan) {
	start, end := bounds(pp)
	sched := pp.Schedule
	fmt.Fprintf(w, "%s %s  %s → %s  (%d tasks, %d milestones)\n",
		ui.BoldWhite("PROJECT"), ui.BoldMagenta(pp.Name),
		dateOrDash(start), dateOrDash(end),
		len(sched.Tasks()), len(sched.Milestones()))
	fmt.Fprintf(w, "%s\n", ui.Cyan("══════════════════════════"))

	if len(pp.CPM.CriticalPath) > 0 {
		fmt.Fprintf(w, "Critical:  %s  %s\n",
			ui.BoldYellow("⚡ "+strings.Join(pp.CPM.CriticalPath, " → ")),
			ui.Dim(fmt.Sprintf("[%s days]", days(pp.CPM.TotalDuration))))
	}
	fmt.Fprintln(w)

	for _, wave := range pp.CPM.Waves {
		fmt.Fprintf(w, "  🌊 %s %d  %s\n", ui.BoldWhite("WAVE"), wave.Index+1,
			ui.Dim(fmt.Sprintf("+%sd", days(wave.Offset))))
		for _, id := range wave.TaskIDs {
			ts := pp.CPM.Tasks[id]
			fmt.Fprintf(w, "    %s %-24s %s\n", ui.CriticalMark(pp.CPM.IsCritical(id)), truncate(id, 24),
				ui.Dim(fmt.Sprintf("es=%s ef=%s slack=%s", days(ts.ES), days(ts.EF), days(ts.Slack))))
		}
	}
	fmt.Fprintln(w)

	if start.IsZero() {
		return
	}
	cells, scale := r.columns(start, end)
	fmt.Fprintf(w, "  %-26s %-10s  %-10s  %6s  %s\n", ui.Bold("TASK"), ui.Bold("START"), ui.Bold("END"), ui.Bold("DAYS"),
		ui.Dim(fmt.Sprintf("1 cell = %d day(s)", scale)))

	for _, id := range pp.Graph.TopoOrder() {
		if t, ok := sched.Task(id); ok {
			active := make([]bool, cells)
			for i := range active {
				from := calendar.AddDays(start, i*scale)
				to := calendar.AddDays(from, scale-1)
				active[i] = !t.End.Before(from) && !t.Start.After(to)
			}
			fmt.Fprintf(w, "  %s %-24s %s  %s  %6s  %s\n",
				ui.CriticalMark(pp.CPM.IsCritical(id)), truncate(id, 24),
				calendar.Format(t.Start), calendar.Format(t.End), days(t.Record.Duration),
				ui.Bar(active, ui.Paint(pp.Color(id))))
		}
	}
	for _, m := range sched.Milestones() {
		marks := make([]string, cells)
		for i := range marks {
			marks[i] = ui.Dim("·")
		}
		marks[calendar.DaysBetween(start, m.Date)/scale] = ui.BoldYellow("◆")
		fmt.Fprintf(w, "  %s %-24s %s  %-10s  %6s  %s\n",
			"◆", truncate(m.Name(), 24), calendar.Format(m.Date), "", "", strings.Join(marks, ""))
	}
	fmt.Fprintln(w)
}

// columns returns the gantt width and the days per cell.
func (r *Reporter) columns(start, end time.Time) (int, int) {
	span := calendar.DaysBetween(start, end) + 1
	width := r.BarWidth
	if width <= 0 {
		width = DefaultBarWidth
	}
	scale := (span + width - 1) / width
	return (span + scale - 1) / scale, scale
}

// bounds spans tasks and milestones.
func bounds(pp *planner.ProjectPlan) (time.Time, time.Time) {
	start, end := pp.Schedule.Start(), pp.Schedule.End()
	for _, m := range pp.Schedule.Milestones() {
		if start.IsZero() || m.Date.Before(start) {
			start = m.Date
		}
		if end.IsZero() || m.Date.After(end) {
			end = m.Date
		}
	}
	return start, end
}

// JSON returns the machine-readable plan of one project, or of all of them
// when name is empty.
func (r *Reporter) JSON(name string) ([]byte, error) {
	type taskOut struct {
		Name       string   `json:"name"`
		Start      string   `json:"start"`
		End        string   `json:"end"`
		Duration   float64  `json:"duration"`
		ES         float64  `json:"es"`
		EF         float64  `json:"ef"`
		Slack      float64  `json:"slack"`
		IsCritical bool     `json:"is_critical"`
		Wave       int      `json:"wave"`
		Color      string   `json:"color,omitempty"`
		Resources  []string `json:"resources,omitempty"`
		DependsOn  []string `json:"depends_on,omitempty"`
	}
	type milestoneOut struct {
		Name string `json:"name"`
		Date string `json:"date"`
	}
	type waveOut struct {
		Index      int      `json:"index"`
		Offset     float64  `json:"offset"`
		Tasks      []string `json:"tasks"`
		IsCritical bool     `json:"is_critical"`
	}
	type projectOut struct {
		Name          string         `json:"name"`
		Start         string         `json:"start,omitempty"`
		End           string         `json:"end,omitempty"`
		TotalDuration float64        `json:"total_duration"`
		CriticalPath  []string       `json:"critical_path"`
		Waves         []waveOut      `json:"waves"`
		Tasks         []taskOut      `json:"tasks"`
		Milestones    []milestoneOut `json:"milestones"`
	}
	type output struct {
		PlanID     string       `json:"plan_id"`
		Source     string       `json:"source,omitempty"`
		TotalTasks int          `json:"total_tasks"`
		Projects   []projectOut `json:"projects"`
	}

	list, err := r.projects(name)
	if err != nil {
		return nil, err
	}
	o := output{PlanID: r.Plan.ID, Source: r.Plan.Source, TotalTasks: r.Plan.TotalTasks()}
	for _, pp := range list {
		po := projectOut{
			Name:          pp.Name,
			TotalDuration: pp.CPM.TotalDuration,
			CriticalPath:  pp.CPM.CriticalPath,
			Waves:         []waveOut{},
			Tasks:         []taskOut{},
			Milestones:    []milestoneOut{},
		}
		if start, end := bounds(pp); !start.IsZero() {
			po.Start, po.End = calendar.Format(start), calendar.Format(end)
		}
		for _, wv := range pp.CPM.Waves {
			po.Waves = append(po.Waves, waveOut{Index: wv.Index, Offset: wv.Offset, Tasks: wv.TaskIDs, IsCritical: wv.IsCritical})
		}
		for _, t := range pp.Schedule.Tasks() {
			ts := pp.CPM.Tasks[t.Name()]
			to := taskOut{
				Name:       t.Name(),
				Start:      calendar.Format(t.Start),
				End:        calendar.Format(t.End),
				Duration:   t.Record.Duration,
				ES:         ts.ES,
				EF:         ts.EF,
				Slack:      ts.Slack,
				IsCritical: pp.CPM.IsCritical(t.Name()),
				Wave:       ts.Wave,
				Color:      pp.Color(t.Name()),
				Resources:  t.Record.ResourceTokens(),
				DependsOn:  t.Record.DependsOn,
			}
			po.Tasks = append(po.Tasks, to)
		}
		for _, m := range pp.Schedule.Milestones() {
			po.Milestones = append(po.Milestones, milestoneOut{Name: m.Name(), Date: calendar.Format(m.Date)})
		}
		o.Projects = append(o.Projects, po)
	}
	return json.MarshalIndent(o, "", "  ")
}

// PrintLedger writes the ledger rows followed by totals per project and per
// resource.
func PrintLedger(w io.Writer, entries []budget.Entry) {
	fmt.Fprintf(w, "%s\n", ui.BoldCyan("💰 Budget"))
	fmt.Fprintf(w, "%s\n", ui.Cyan("══════════════════════════"))
	if len(entries) == 0 {
		fmt.Fprintf(w, "%s\n", ui.Dim("no costs"))
		return
	}
	fmt.Fprintf(w, "  %-12s %-24s %-12s %-10s  %10s\n",
		ui.Bold("PROJECT"), ui.Bold("TASK"), ui.Bold("RESOURCE"), ui.Bold("DATE"), ui.Bold("AMOUNT"))
	for _, e := range entries {
		fmt.Fprintf(w, "  %-12s %-24s %-12s %-10s  %10.2f\n",
			truncate(e.Project, 12), truncate(e.Task, 24), truncate(e.Resource, 12), calendar.Format(e.Date), e.Amount)
	}

	s := budget.Summarize(entries)
	fmt.Fprintf(w, "%s\n", ui.Cyan("──────────────────────────"))
	for _, t := range s.ByProject {
		fmt.Fprintf(w, "Project   %-24s %12s\n", t.Key, budget.Display(t.Amount))
	}
	for _, t := range s.ByResource {
		fmt.Fprintf(w, "Resource  %-24s %12s\n", t.Key, budget.Display(t.Amount))
	}
	fmt.Fprintf(w, "%s %s\n", ui.Bold("Total:"), ui.BoldGreen(budget.Display(s.Grand)))
}

// PrintRuns lists stored budget runs.
func PrintRuns(w io.Writer, runs []store.Run) {
	if len(runs) == 0 {
		fmt.Fprintf(w, "%s\n", ui.Dim("no stored runs"))
		return
	}
	for _, run := range runs {
		src := run.Source
		if src == "" {
			src = "-"
		}
		fmt.Fprintf(w, "%s  %s  %-30s %4d rows  %12s\n",
			ui.BoldMagenta(run.ID), ui.Dim(run.CreatedAt.Format(time.RFC3339)), truncate(src, 30),
			run.Entries, budget.Display(run.Total))
	}
}

// PrintUnits lists units with their symbol, aliases and size in base units.
func PrintUnits(w io.Writer, list []units.Unit) {
	current := units.Dimension(-1)
	for _, u := range list {
		if u.Dimension != current {
			current = u.Dimension
			fmt.Fprintf(w, "%s\n", ui.BoldWhite(strings.ToUpper(current.String())))
		}
		sym := u.Symbol
		if sym == "" {
			sym = "-"
		}
		fmt.Fprintf(w, "  %-14s %-5s %10s  %s\n", u.Name, sym, days(u.Factor), ui.Dim(strings.Join(u.Aliases, ", ")))
	}
}

func days(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.3f", v), "0"), ".")
}

func dateOrDash(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return calendar.Format(t)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
