package budget

import "github.com/shopspring/decimal"

// Total is an amount keyed by project or resource name.
type Total struct {
	Key    string
	Amount decimal.Decimal
}

// Summary aggregates ledger rows. Keys keep first-seen order.
type Summary struct {
	ByProject  []Total
	ByResource []Total
	ByTask     []Total
	Grand      decimal.Decimal
}

// Summarize totals entries per project, per resource, per task and overall.
// Sums are exact decimals of the row amounts.
func Summarize(entries []Entry) Summary {
	var s Summary
	project := newAccumulator()
	res := newAccumulator()
	task := newAccumulator()
	for _, e := range entries {
		amount := decimal.NewFromFloat(e.Amount)
		project.add(e.Project, amount)
		res.add(e.Resource, amount)
		task.add(e.Task, amount)
		s.Grand = s.Grand.Add(amount)
	}
	s.ByProject = project.totals()
	s.ByResource = res.totals()
	s.ByTask = task.totals()
	return s
}

type accumulator struct {
	order []string
	sums  map[string]decimal.Decimal
}

func newAccumulator() *accumulator {
	return &accumulator{sums: make(map[string]decimal.Decimal)}
}

func (a *accumulator) add(key string, v decimal.Decimal) {
	cur, ok := a.sums[key]
	if !ok {
		a.order = append(a.order, key)
	}
	a.sums[key] = cur.Add(v)
}

func (a *accumulator) totals() []Total {
	out := make([]Total, len(a.order))
	for i, k := range a.order {
		out[i] = Total{Key: k, Amount: a.sums[k]}
	}
	return out
}

// Display renders an amount with two decimals.
func Display(d decimal.Decimal) string {
	return d.StringFixed(2)
}
