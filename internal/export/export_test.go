package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/mtllr/md-planning/internal/budget"
	"github.com/mtllr/md-planning/internal/calendar"
)

func entries() []budget.Entry {
	return []budget.Entry{
		{Project: "Test1", Task: "goals", Resource: "Martin", Date: calendar.Date(2022, 9, 6), Amount: 137.5},
		{Project: "Test1", Task: "Env setup, part 1", Resource: "Martin", Category: "dev", Date: calendar.Date(2022, 9, 7), Amount: 550},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, entries()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "project,task,resource,category,subcategory,date,amount", lines[0])
	assert.Equal(t, "Test1,goals,Martin,,,2022-09-06,137.5", lines[1])
	assert.Equal(t, `Test1,"Env setup, part 1",Martin,dev,,2022-09-07,550`, lines[2])
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, "project,task,resource,category,subcategory,date,amount\n", buf.String())
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, entries()))

	doc := buf.String()
	require.True(t, gjson.Valid(doc))
	assert.Equal(t, int64(2), gjson.Get(doc, "#").Int())
	assert.Equal(t, "goals", gjson.Get(doc, "0.task").String())
	assert.Equal(t, "2022-09-06", gjson.Get(doc, "0.date").String())
	assert.Equal(t, 137.5, gjson.Get(doc, "0.amount").Float())
	assert.Equal(t, "dev", gjson.Get(doc, "1.category").String())
}

func TestWriteJSON_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}
