// Package export writes extraction results to spreadsheet files for
// payroll handoff.
package export

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/terrafield/crewsheet-cli/internal/model"
)

// Options configures an export run.
type Options struct {
	SheetName         string // data sheet name, default "Crew Sheet"
	IncludeConfidence bool   // add a per-cell confidence sheet
	IncludeSummary    bool   // add an extraction summary sheet
}

// WriteXLSX writes the extraction result to an XLSX workbook at path.
// Field confidence records, when provided, populate the confidence sheet.
func WriteXLSX(path string, result *model.ExtractionResult, fields []model.FieldConfidence, opts Options) error {
	if result == nil || !result.Valid {
		return eris.New("export: no valid extraction to export")
	}
	if len(result.TableHeaders) == 0 {
		return eris.New("export: result has no table headers")
	}
	if opts.SheetName == "" {
		opts.SheetName = "Crew Sheet"
	}

	f := xlsx.NewFile()

	if err := addDataSheet(f, opts.SheetName, result); err != nil {
		return err
	}
	if opts.IncludeConfidence {
		if err := addConfidenceSheet(f, result, fields); err != nil {
			return err
		}
	}
	if opts.IncludeSummary {
		if err := addSummarySheet(f, result); err != nil {
			return err
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}

func addDataSheet(f *xlsx.File, name string, result *model.ExtractionResult) error {
	sheet, err := f.AddSheet(name)
	if err != nil {
		return eris.Wrap(err, "export: add data sheet")
	}

	header := sheet.AddRow()
	for _, h := range result.TableHeaders {
		header.AddCell().SetString(h)
	}

	for _, emp := range result.Employees {
		row := sheet.AddRow()
		for _, h := range result.TableHeaders {
			row.AddCell().SetString(emp[h])
		}
	}
	return nil
}

// addConfidenceSheet mirrors the data sheet's shape with per-cell confidence
// values so reviewers can see exactly which cells to double-check.
func addConfidenceSheet(f *xlsx.File, result *model.ExtractionResult, fields []model.FieldConfidence) error {
	sheet, err := f.AddSheet("Confidence")
	if err != nil {
		return eris.Wrap(err, "export: add confidence sheet")
	}

	byCell := map[string]float64{}
	for _, fc := range fields {
		byCell[cellKey(fc.FieldName, fc.EmployeeIndex)] = fc.Confidence
	}

	header := sheet.AddRow()
	for _, h := range result.TableHeaders {
		header.AddCell().SetString(h)
	}

	for i := range result.Employees {
		row := sheet.AddRow()
		for _, h := range result.TableHeaders {
			cell := row.AddCell()
			if conf, ok := byCell[cellKey(h, i)]; ok {
				cell.SetFloatWithFormat(conf, "0.00")
			} else {
				cell.SetString("")
			}
		}
	}
	return nil
}

func addSummarySheet(f *xlsx.File, result *model.ExtractionResult) error {
	sheet, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "export: add summary sheet")
	}

	addPair := func(k, v string) {
		row := sheet.AddRow()
		row.AddCell().SetString(k)
		row.AddCell().SetString(v)
	}

	addPair("Exported", time.Now().Format(time.RFC3339))
	addPair("Overall confidence", fmt.Sprintf("%.2f", result.Confidence))
	addPair("Employees", fmt.Sprintf("%d", len(result.Employees)))
	addPair("Columns", fmt.Sprintf("%d", len(result.TableHeaders)))
	addPair("Filled cells", fmt.Sprintf("%.0f%%", result.FilledCellRatio()*100))
	if result.Metadata != nil {
		addPair("Strategy", result.Metadata.Strategy)
	}
	if result.Retry != nil {
		addPair("Strategies attempted", fmt.Sprintf("%d", result.Retry.StrategiesAttempted))
	}
	for _, issue := range result.ValidationIssues {
		addPair("Issue", issue)
	}
	return nil
}

func cellKey(field string, employeeIndex int) string {
	return fmt.Sprintf("%s#%d", field, employeeIndex)
}
