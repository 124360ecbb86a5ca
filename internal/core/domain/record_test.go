package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsBlank(t *testing.T) {
	tests := []struct {
		value    string
		expected bool
	}{
		{"", true},
		{"   ", true},
		{"nan", true},
		{"NaN", true},
		{"NA", true},
		{" n/a ", true},
		{"N/A", true},
		{"0", false},
		{"none", false},
		{"Asha", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsBlank(tt.value))
		})
	}
}

func TestRecord_Text(t *testing.T) {
	r := Record{Index: 0, Values: map[string]string{
		"Name":     "  Asha Rao ",
		"Comments": "n/a",
	}}

	assert.Equal(t, "Asha Rao", r.Text("Name"))
	assert.Equal(t, "", r.Text("Comments"))
	assert.Equal(t, "", r.Text("Missing"))
	assert.True(t, r.Present("Name"))
	assert.False(t, r.Present("Comments"))

	raw, ok := r.Value("Comments")
	assert.True(t, ok)
	assert.Equal(t, "n/a", raw)

	_, ok = r.Value("Missing")
	assert.False(t, ok)
}

func TestTable_HasColumn(t *testing.T) {
	tbl := &Table{Columns: []string{"Emp ID", "Name"}}

	assert.True(t, tbl.HasColumn("Name"))
	assert.False(t, tbl.HasColumn("name"))
	assert.Equal(t, 0, tbl.Len())

	var nilTable *Table
	assert.Equal(t, 0, nilTable.Len())
}

func TestNewTable(t *testing.T) {
	table, err := NewTable([][]string{
		{"\ufeffEmp ID", " Name ", "", "Email Id"},
		{"E101", "Asha", "ignored", "asha@example.com"},
		{"", "  ", "", ""},
		{"E102", "Ravi"},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"Emp ID", "Name", "Email Id"}, table.Columns)
	require.Equal(t, 2, table.Len())

	assert.Equal(t, 0, table.Records[0].Index)
	assert.Equal(t, "asha@example.com", table.Records[0].Text("Email Id"))

	assert.Equal(t, 1, table.Records[1].Index)
	_, ok := table.Records[1].Value("Email Id")
	assert.False(t, ok, "short rows leave trailing columns missing")
}

func TestNewTable_Errors(t *testing.T) {
	_, err := NewTable(nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewTable([][]string{{"", " "}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewTable([][]string{{"Name", "Name "}})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
