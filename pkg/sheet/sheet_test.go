package sheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildXLSX(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParse_XLSX(t *testing.T) {
	data := buildXLSX(t, [][]interface{}{
		{"E-mail", "Результат", "Балл"},
		{"a@x.com", "сдал", "87,5"},
		{"", "", ""},
		{"b@x.com", "не сдал", "12"},
	})

	rows, err := Parse("results.XLSX", data)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "a@x.com", rows[0]["E-mail"])
	assert.Equal(t, "не сдал", rows[1]["Результат"])
}

func TestParse_CSV(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "comma", data: "Email,Status,Score\na@x.com,passed,90\n\nb@x.com,failed,\n"},
		{name: "semicolon with bom", data: "\xef\xbb\xbfEmail;Status;Score\na@x.com;passed;90\nb@x.com;failed\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := Parse("export.csv", []byte(tt.data))
			require.NoError(t, err)
			require.Len(t, rows, 2)
			assert.Equal(t, "a@x.com", rows[0]["Email"])
			assert.Equal(t, "90", rows[0]["Score"])
			assert.Equal(t, "", rows[1]["Score"])
		})
	}
}

func TestParse_UnsupportedFormat(t *testing.T) {
	_, err := Parse("results.xls", []byte("whatever"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Parse("results", nil)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse("results.xlsx", []byte("not a zip archive"))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestNormalizeKey(t *testing.T) {
	tests := map[string]string{
		"E-mail":         "email",
		" Result Score ": "resultscore",
		"Результат":      "результат",
		"Score (%)":      "score",
		"---":            "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeKey(in), in)
	}
}

func TestRow_NormalizedPick(t *testing.T) {
	row := Row{"Mail": "  ", "E-mail": "a@x.com", "###": "x"}.Normalized()

	assert.NotContains(t, row, "")
	v, ok := row.Pick("mail", "email")
	assert.True(t, ok)
	assert.Equal(t, "a@x.com", v)

	_, ok = row.Pick("status")
	assert.False(t, ok)
}
