// Package export writes ledger rows as CSV or JSON.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/mtllr/md-planning/internal/budget"
	"github.com/mtllr/md-planning/internal/calendar"
)

// Header is the CSV column order.
var Header = []string{"project", "task", "resource", "category", "subcategory", "date", "amount"}

// WriteCSV writes a header line followed by one line per entry. Amounts use
// the shortest representation that round-trips.
func WriteCSV(w io.Writer, entries []budget.Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, e := range entries {
		rec := []string{
			e.Project,
			e.Task,
			e.Resource,
			e.Category,
			e.Subcategory,
			calendar.Format(e.Date),
			strconv.FormatFloat(e.Amount, 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

type jsonEntry struct {
	Project     string  `json:"project"`
	Task        string  `json:"task"`
	Resource    string  `json:"resource"`
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory"`
	Date        string  `json:"date"`
	Amount      float64 `json:"amount"`
}

// WriteJSON writes entries as an indented JSON array with dates rendered as
// YYYY-MM-DD. An empty ledger is written as [].
func WriteJSON(w io.Writer, entries []budget.Entry) error {
	out := make([]jsonEntry, len(entries))
	for i, e := range entries {
		out[i] = jsonEntry{
			Project:     e.Project,
			Task:        e.Task,
			Resource:    e.Resource,
			Category:    e.Category,
			Subcategory: e.Subcategory,
			Date:        calendar.Format(e.Date),
			Amount:      e.Amount,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}
