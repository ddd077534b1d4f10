package cpm

// Result holds the complete critical path analysis of one project.
type Result struct {
	Tasks         map[string]*TaskSchedule
	CriticalPath  []string // critical tasks ordered by ES, then declaration
	TotalDuration float64
	Waves         []Wave // parallelizable groups
	TopoOrder     []string
}

// TaskSchedule holds the scheduling info for a single node, in days from the
// project start.
type TaskSchedule struct {
	TaskID     string
	ES, EF     float64 // earliest start/finish
	LS, LF     float64 // latest start/finish
	Slack      float64
	IsCritical bool
	Milestone  bool
	Wave       int // which parallel wave this belongs to
}

// Wave represents a group of tasks that can start at the same offset.
type Wave struct {
	Index      int
	Offset     float64
	TaskIDs    []string
	IsCritical bool // true if wave contains critical path tasks
}

// IsCritical reports whether id is on the critical path.
func (r *Result) IsCritical(id string) bool {
	ts, ok := r.Tasks[id]
	return ok && ts.IsCritical && !ts.Milestone
}
