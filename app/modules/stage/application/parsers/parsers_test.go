package parsers

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestFactory_GetParser(t *testing.T) {
	factory := NewFactory()

	p, err := factory.GetParser("times.CSV")
	require.NoError(t, err)
	assert.IsType(t, &CSVParser{}, p)

	p, err = factory.GetParser("finals.xlsx")
	require.NoError(t, err)
	assert.IsType(t, &XLSXParser{}, p)

	_, err = factory.GetParser("times.txt")
	assert.Error(t, err)
}

func TestCSVParser_Parse(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
		verify  func(t *testing.T, s *TimeSheet)
	}{
		{
			name: "header and rows with blanks",
			data: "Competitor,run1,run2\nalice,1:02.300,61.5\n\nbob,,4000\n",
			verify: func(t *testing.T, s *TimeSheet) {
				assert.Equal(t, []string{"run1", "run2"}, s.Segments)
				require.Len(t, s.Rows, 2)
				assert.Equal(t, TimeRow{Line: 2, CompetitorID: "alice", Times: map[string]string{"run1": "1:02.300", "run2": "61.5"}}, s.Rows[0])
				assert.Equal(t, TimeRow{Line: 4, CompetitorID: "bob", Times: map[string]string{"run2": "4000"}}, s.Rows[1])
			},
		},
		{
			name: "short rows are allowed",
			data: "entry,s1,s2,s3\ncarol,1000\n",
			verify: func(t *testing.T, s *TimeSheet) {
				require.Len(t, s.Rows, 1)
				assert.Equal(t, map[string]string{"s1": "1000"}, s.Rows[0].Times)
			},
		},
		{name: "empty", data: "\n\n", wantErr: ErrEmptySheet},
		{name: "wrong header", data: "name,s1\nalice,1000\n", wantErr: ErrMissingHeader},
		{name: "no segments", data: "entry\nalice\n", wantErr: ErrNoSegments},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sheet, err := NewCSVParser().Parse([]byte(tt.data))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.verify(t, sheet)
		})
	}
}

func TestXLSXParser_Parse(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Entry", "final-1", "final-2"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"alice", "0:58.100", "0:59.000"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"bob", "1:01.000"}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	parsed, err := NewXLSXParser().Parse(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []string{"final-1", "final-2"}, parsed.Segments)
	require.Len(t, parsed.Rows, 2)
	assert.Equal(t, "alice", parsed.Rows[0].CompetitorID)
	assert.Equal(t, map[string]string{"final-1": "0:58.100", "final-2": "0:59.000"}, parsed.Rows[0].Times)
	assert.Equal(t, map[string]string{"final-1": "1:01.000"}, parsed.Rows[1].Times)

	_, err = NewXLSXParser().Parse([]byte("entry,s1\n"))
	assert.ErrorContains(t, err, "failed to open XLSX file")
}
