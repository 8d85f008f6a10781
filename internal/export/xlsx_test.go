package export

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/terrafield/crewsheet-cli/internal/model"
)

func exportableResult() *model.ExtractionResult {
	return &model.ExtractionResult{
		Valid:        true,
		Confidence:   0.85,
		TableHeaders: []string{"EMPLOYEE_NAME", "START", "STOP", "TOTAL_HRS"},
		Employees: []model.EmployeeRecord{
			{"EMPLOYEE_NAME": "Maria Garcia", "START": "7:00", "STOP": "3:30", "TOTAL_HRS": "8"},
			{"EMPLOYEE_NAME": "John Smith", "START": "7:15", "STOP": "3:30", "TOTAL_HRS": ""},
		},
	}
}

func sheetRows(t *testing.T, path, name string) [][]string {
	t.Helper()
	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	sheet, ok := f.Sheet[name]
	require.True(t, ok, "sheet %s missing", name)

	rows := make([][]string, len(sheet.Rows))
	for i, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows[i] = cells
	}
	return rows
}

func TestWriteXLSX_DataSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")

	err := WriteXLSX(path, exportableResult(), nil, Options{})
	require.NoError(t, err)

	rows := sheetRows(t, path, "Crew Sheet")
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"EMPLOYEE_NAME", "START", "STOP", "TOTAL_HRS"}, rows[0])
	assert.Equal(t, []string{"Maria Garcia", "7:00", "3:30", "8"}, rows[1])
	assert.Equal(t, []string{"John Smith", "7:15", "3:30", ""}, rows[2])
}

func TestWriteXLSX_CustomSheetName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")

	err := WriteXLSX(path, exportableResult(), nil, Options{SheetName: "Week 32"})
	require.NoError(t, err)

	rows := sheetRows(t, path, "Week 32")
	require.Len(t, rows, 3)
}

func TestWriteXLSX_ConfidenceSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")

	fields := []model.FieldConfidence{
		{FieldName: "START", EmployeeIndex: 0, Confidence: 0.9},
		{FieldName: "START", EmployeeIndex: 1, Confidence: 0.4},
	}
	err := WriteXLSX(path, exportableResult(), fields, Options{IncludeConfidence: true})
	require.NoError(t, err)

	rows := sheetRows(t, path, "Confidence")
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"EMPLOYEE_NAME", "START", "STOP", "TOTAL_HRS"}, rows[0])
	assert.Equal(t, "0.90", rows[1][1])
	assert.Equal(t, "0.40", rows[2][1])
	assert.Empty(t, rows[1][0])
}

func TestWriteXLSX_SummarySheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")

	result := exportableResult()
	result.Metadata = &model.ExtractionMetadata{Strategy: "template_guided"}
	result.ValidationIssues = []string{"TOTAL_HRS blank for John Smith"}

	err := WriteXLSX(path, result, nil, Options{IncludeSummary: true})
	require.NoError(t, err)

	rows := sheetRows(t, path, "Summary")
	flat := map[string]string{}
	for _, row := range rows {
		if len(row) == 2 {
			flat[row[0]] = row[1]
		}
	}
	assert.Equal(t, "0.85", flat["Overall confidence"])
	assert.Equal(t, "2", flat["Employees"])
	assert.Equal(t, "4", flat["Columns"])
	assert.Equal(t, "template_guided", flat["Strategy"])
	assert.Equal(t, "TOTAL_HRS blank for John Smith", flat["Issue"])
}

func TestWriteXLSX_RejectsInvalidResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")

	err := WriteXLSX(path, &model.ExtractionResult{Valid: false}, nil, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no valid extraction")

	err = WriteXLSX(path, nil, nil, Options{})
	require.Error(t, err)
}

func TestWriteXLSX_RejectsHeaderlessResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")

	err := WriteXLSX(path, &model.ExtractionResult{Valid: true}, nil, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no table headers")
}
