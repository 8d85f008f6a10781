package extract

import (
	"encoding/json"
	"strings"

	"github.com/terrafield/crewsheet-cli/internal/model"
)

const extractionSystemPrompt = `You are a data-entry specialist transcribing handwritten crew timesheets.
You read photographed paper sheets and return their contents as JSON. You never
invent data: cells you cannot read are returned as empty strings. You respond
with a single JSON object and nothing else.`

const extractionPrompt = `Extract every employee row from this crew sheet photo.

Return JSON with exactly this shape:
{
  "table_headers": ["EMPLOYEE_NAME", "START", "LUNCH", "STOP", "TOTAL_HRS", ...],
  "employees": [
    {"EMPLOYEE_NAME": "John Smith", "START": "7:00", "LUNCH": "12:00", "STOP": "15:30", "TOTAL_HRS": "8", ...}
  ],
  "confidence": 0.0,
  "notes": ""
}

Rules:
- table_headers lists the column headers exactly as written, upper-cased,
  with spaces replaced by underscores. Hierarchical headers keep their
  underscore form (e.g. "02-320_PLANT_DET").
- Every employee object carries a key for every header. Unreadable or empty
  cells are "".
- Times are transcribed as written ("7:00", "7", "7.5"). Checkmarks are "✓".
- confidence is your own 0-1 estimate of transcription accuracy.`

const structureSystemPrompt = `You are a document-layout analyst. You describe the structure of tabular
documents without transcribing their data. You respond with a single JSON
object and nothing else.`

const structurePrompt = `Analyze the layout of this crew sheet photo. Do NOT transcribe any data values.

Return JSON with exactly this shape:
{
  "header_rows": 1,
  "data_rows": 12,
  "column_count": 8,
  "sections": ["employee_info", "time_tracking", "job_codes"],
  "expected_columns": ["EMPLOYEE_NAME", "START", "LUNCH", "STOP", ...]
}

Rules:
- header_rows counts rows that contain column titles.
- data_rows counts rows that contain employee entries.
- sections names the logical regions you can see. Use "employee_info" for
  the name column region, "time_tracking" for clock columns, "job_codes"
  for cost-center or task columns.
- expected_columns lists headers exactly as written, upper-cased, with
  spaces replaced by underscores.`

// BuildExtractionPrompt assembles the data-extraction prompt from the static
// instructions plus template, company, and learned-correction context. Pure
// function of its inputs.
func BuildExtractionPrompt(tmpl *model.SheetTemplate, profile *model.CompanyProfile, adaptive string) string {
	var sb strings.Builder
	sb.WriteString(extractionPrompt)

	if tmpl != nil && len(tmpl.ExpectedHeaders) > 0 {
		sb.WriteString("\n\nKnown sheet layout \"")
		sb.WriteString(tmpl.Name)
		sb.WriteString("\" expects these columns:\n")
		for _, h := range tmpl.ExpectedHeaders {
			sb.WriteString("- ")
			sb.WriteString(h)
			sb.WriteString("\n")
		}
		sb.WriteString("Prefer these header names when the photo matches them.")
	}

	if profile != nil {
		writeVocab(&sb, "Known cost centers", profile.CostCenters)
		writeVocab(&sb, "Known task codes", profile.Tasks)
		writeVocab(&sb, "Known crew members", profile.CrewNames)
		if profile.TimeFormats["prefers_colon_format"] {
			sb.WriteString("\n\nThis company writes times with colons (7:00, not 7).")
		}
	}

	if adaptive != "" {
		sb.WriteString("\n\n")
		sb.WriteString(adaptive)
	}

	return sb.String()
}

// BuildDataPrompt injects first-stage structure findings into the extraction
// prompt for the second pass of multi-stage extraction.
func BuildDataPrompt(structure *SheetStructure, tmpl *model.SheetTemplate, profile *model.CompanyProfile, adaptive string) string {
	var sb strings.Builder
	sb.WriteString(BuildExtractionPrompt(tmpl, profile, adaptive))

	if structure != nil {
		sb.WriteString("\n\nA layout analysis of this sheet found:\n")
		if encoded, err := json.MarshalIndent(structure, "", "  "); err == nil {
			sb.Write(encoded)
		}
		sb.WriteString("\nTranscribe all rows the analysis counted, using its expected columns where they match the photo.")
	}

	return sb.String()
}

func writeVocab(sb *strings.Builder, label string, values []string) {
	if len(values) == 0 {
		return
	}
	sb.WriteString("\n\n")
	sb.WriteString(label)
	sb.WriteString(": ")
	sb.WriteString(strings.Join(values, ", "))
}
