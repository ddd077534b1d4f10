package planner

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/mtllr/md-planning/internal/calendar"
	"github.com/mtllr/md-planning/internal/cpm"
	"github.com/mtllr/md-planning/internal/graph"
	"github.com/mtllr/md-planning/internal/normalize"
	"github.com/mtllr/md-planning/internal/pert"
	"github.com/mtllr/md-planning/internal/resource"
	"github.com/mtllr/md-planning/internal/schedule"
	"github.com/mtllr/md-planning/internal/units"
)

// Config holds planner configuration.
type Config struct {
	MaxParallel   int
	CriticalColor string
	Logger        zerolog.Logger
}

// Plan is the analyzed form of a whole definition.
type Plan struct {
	ID        string
	CreatedAt time.Time
	Source    string
	Font      map[string]any
	Registry  *units.Registry
	Resources *resource.Set
	Vacations calendar.Set
	Projects  []*ProjectPlan

	byName map[string]*ProjectPlan
}

// ProjectPlan is one analyzed project.
type ProjectPlan struct {
	Name     string
	Records  []normalize.Record
	Graph    *graph.Graph
	CPM      *cpm.Result
	Schedule *schedule.Project
	Pert     []pert.Record

	criticalColor string
}
