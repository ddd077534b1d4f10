package normalize

import (
	"strconv"
	"time"
)

// StartNode is the pseudo-predecessor reported for entries that depend on
// nothing.
const StartNode = "START"

// Record is a canonical task or milestone. The concrete type is *Task or
// *Milestone.
type Record interface {
	ID() string
	ProjectName() string
	Position() int
	Deps() []string
	StartOverride() (time.Time, bool)
	IsMilestone() bool
	Length() float64
	isRecord()
}

// Usage is a quantity of a named resource consumed by a task.
type Usage struct {
	Quantity float64 `json:"quantity"`
	Resource string  `json:"resource"`
}

func (u Usage) String() string {
	return strconv.FormatFloat(u.Quantity, 'f', -1, 64) + " " + u.Resource
}

// Task is a normalized task entry.
type Task struct {
	Project     string    `json:"project"`
	Name        string    `json:"name"`
	Index       int       `json:"index"`
	Start       time.Time `json:"start,omitempty"`
	Duration    float64   `json:"duration"`
	Best        float64   `json:"best"`
	Optimal     float64   `json:"optimal"`
	Worst       float64   `json:"worst"`
	PercentDone float64   `json:"percent_done"`
	Resources   []Usage   `json:"resources"`
	DependsOn   []string  `json:"depends_on"`
	Color       string    `json:"color,omitempty"`
	FullName    string    `json:"fullname,omitempty"`
	Display     bool      `json:"display"`
	State       string    `json:"state,omitempty"`
}

func (t *Task) ID() string { return t.Name }
func (t *Task) ProjectName() string { return t.Project }
func (t *Task) Position() int { return t.Index }
func (t *Task) Deps() []string { return t.DependsOn }
func (t *Task) StartOverride() (time.Time, bool) { return t.Start, !t.Start.IsZero() }
func (t *Task) IsMilestone() bool { return false }
func (t *Task) Length() float64 { return t.Duration }
func (t *Task) isRecord() {}

// Usage returns the quantity of resource the task consumes, 0 if none.
func (t *Task) Usage(resource string) float64 {
	for _, u := range t.Resources {
		if u.Resource == resource {
			return u.Quantity
		}
	}
	return 0
}

// Uses reports whether the task lists resource.
func (t *Task) Uses(resource string) bool {
	for _, u := range t.Resources {
		if u.Resource == resource {
			return true
		}
	}
	return false
}

// ResourceTokens renders usages as "<quantity> <name>" strings.
func (t *Task) ResourceTokens() []string {
	out := make([]string, len(t.Resources))
	for i, u := range t.Resources {
		out[i] = u.String()
	}
	return out
}

// Milestone is a normalized milestone entry. It has no duration and no
// resources.
type Milestone struct {
	Project   string    `json:"project"`
	Name      string    `json:"name"`
	Index     int       `json:"index"`
	Start     time.Time `json:"start,omitempty"`
	DependsOn []string  `json:"depends_on"`
	Color     string    `json:"color,omitempty"`
	FullName  string    `json:"fullname,omitempty"`
	Display   bool      `json:"display"`
}

func (m *Milestone) ID() string { return m.Name }
func (m *Milestone) ProjectName() string { return m.Project }
func (m *Milestone) Position() int { return m.Index }
func (m *Milestone) Deps() []string { return m.DependsOn }
func (m *Milestone) StartOverride() (time.Time, bool) { return m.Start, !m.Start.IsZero() }
func (m *Milestone) IsMilestone() bool { return true }
func (m *Milestone) Length() float64 { return 0 }
func (m *Milestone) isRecord() {}

// PertPredecessors returns deps, or [START] when there are none.
func PertPredecessors(r Record) []string {
	deps := r.Deps()
	if len(deps) == 0 {
		return []string{StartNode}
	}
	out := make([]string, len(deps))
	copy(out, deps)
	return out
}
