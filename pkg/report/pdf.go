package report

import (
	"fmt"
	"strings"

	gofpdf "github.com/go-pdf/fpdf"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/user/riskscope/pkg/engine"
)

var pdfRiskColors = map[engine.RiskLevel][]int{
	engine.RiskCritical: {185, 28, 28},
	engine.RiskHigh:     {234, 88, 12},
	engine.RiskMedium:   {202, 138, 4},
	engine.RiskLow:      {22, 163, 74},
}

func riskColor(level engine.RiskLevel) []int {
	if c, ok := pdfRiskColors[level]; ok {
		return c
	}
	return []int{128, 128, 128}
}

// WritePDF renders the report straight to PDF at path.
func WritePDF(path string, in Input) error {
	if err := in.Validate(); err != nil {
		return err
	}
	v := in.view()

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Security Audit Report", true)
	pdf.SetAuthor("riskscope", true)
	if !in.GeneratedAt.IsZero() {
		pdf.SetCreationDate(in.GeneratedAt)
	}
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AliasNbPages("")

	// core fonts are cp1252
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 6, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	addCover(pdf, tr, v)
	addRiskTable(pdf, tr, v)
	addAssetTable(pdf, tr, v)
	for _, it := range v.Items {
		addFindingDetail(pdf, tr, it)
	}

	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.OutputFileAndClose(path)
}

func addSectionHeader(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(30, 41, 59)
	pdf.CellFormat(0, 10, title, "B", 1, "L", false, 0, "")
	pdf.Ln(3)
}

func addCover(pdf *gofpdf.Fpdf, tr func(string) string, v view) {
	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetTextColor(30, 41, 59)
	pdf.CellFormat(0, 12, "Security Audit Report", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	titleCase := cases.Title(language.English)
	rows := [][2]string{
		{"Organization", v.Organization.Name},
		{"Organization Type", v.Organization.Type},
		{"Report Date", v.Date},
		{"Total Prioritized Findings", fmt.Sprintf("%d", len(v.Items))},
		{"Data Criticality", titleCase.String(string(v.Context.DataCriticality))},
		{"Internet Exposed", map[bool]string{true: "Yes", false: "No"}[v.Context.InternetExposed]},
		{"Days Since Patch", fmt.Sprintf("%d", v.Context.DaysSincePatch)},
	}
	if v.RunID != "" {
		rows = append(rows, [2]string{"Run ID", v.RunID})
	}

	for _, r := range rows {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetTextColor(80, 80, 80)
		pdf.CellFormat(55, 6, r[0]+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(30, 30, 30)
		pdf.CellFormat(0, 6, tr(r[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)
}

func addRiskTable(pdf *gofpdf.Fpdf, tr func(string) string, v view) {
	addSectionHeader(pdf, "Risk Prioritization")

	if len(v.Items) == 0 {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.SetTextColor(80, 80, 80)
		pdf.MultiCell(0, 5, "No High or Critical severity findings were reported.", "", "L", false)
		return
	}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(30, 41, 59)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(20, 8, "Priority", "1", 0, "C", true, 0, "")
	pdf.CellFormat(100, 8, "Title", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 8, "Final Score", "1", 0, "C", true, 0, "")
	pdf.CellFormat(0, 8, "Risk Level", "1", 1, "C", true, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	for i, it := range v.Items {
		if i%2 == 0 {
			pdf.SetFillColor(248, 250, 252)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(20, 7, fmt.Sprintf("%d", it.Trace.PriorityRank), "1", 0, "C", true, 0, "")
		pdf.CellFormat(100, 7, tr(truncate(it.Title, 60)), "1", 0, "L", true, 0, "")
		pdf.CellFormat(30, 7, formatScore(it.Trace.FinalScore), "1", 0, "C", true, 0, "")

		c := riskColor(it.Trace.RiskLevel)
		pdf.SetTextColor(c[0], c[1], c[2])
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(0, 7, string(it.Trace.RiskLevel), "1", 1, "C", true, 0, "")
		pdf.SetFont("Helvetica", "", 9)
	}
	pdf.Ln(6)
}

func addAssetTable(pdf *gofpdf.Fpdf, tr func(string) string, v view) {
	if len(v.Assets) == 0 {
		return
	}
	addSectionHeader(pdf, "Assets at Risk")

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(30, 41, 59)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(80, 8, "Asset", "1", 0, "L", true, 0, "")
	pdf.CellFormat(25, 8, "Findings", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 8, "Highest Risk", "1", 0, "C", true, 0, "")
	pdf.CellFormat(0, 8, "Max Score", "1", 1, "C", true, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	for _, a := range v.Assets {
		pdf.SetFillColor(255, 255, 255)
		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(80, 7, tr(truncate(a.Asset, 45)), "1", 0, "L", true, 0, "")
		pdf.CellFormat(25, 7, fmt.Sprintf("%d", a.Findings), "1", 0, "C", true, 0, "")
		c := riskColor(a.HighestRisk)
		pdf.SetTextColor(c[0], c[1], c[2])
		pdf.CellFormat(30, 7, string(a.HighestRisk), "1", 0, "C", true, 0, "")
		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(0, 7, formatScore(a.MaxScore), "1", 1, "C", true, 0, "")
	}
	pdf.Ln(6)
}

func addFindingDetail(pdf *gofpdf.Fpdf, tr func(string) string, it item) {
	t := it.Trace
	c := riskColor(t.RiskLevel)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(c[0], c[1], c[2])
	pdf.MultiCell(0, 7, tr(fmt.Sprintf("Priority %d: %s", t.PriorityRank, it.Title)), "", "L", false)

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(60, 60, 60)
	meta := fmt.Sprintf("ID %s | Asset %s | Base %s | Final %s | %s",
		it.VulnID, it.AffectedAsset, formatScore(t.BaseScore), formatScore(t.FinalScore), t.RiskLevel)
	pdf.MultiCell(0, 5, tr(meta), "", "L", false)

	if len(t.ModifiersApplied) > 0 {
		parts := make([]string, len(t.ModifiersApplied))
		for i, m := range t.ModifiersApplied {
			parts[i] = m.Name + " " + m.Signed()
		}
		pdf.SetFont("Courier", "", 9)
		pdf.MultiCell(0, 5, "Modifiers: "+strings.Join(parts, ", "), "", "L", false)
	}

	detailBlock(pdf, tr, "Evidence", it.Evidence)
	detailBlock(pdf, tr, "Analyst Explanation", it.Explanation)

	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(128, 128, 128)
	pdf.CellFormat(0, 5, tr("Source: "+it.SourceFile), "", 1, "L", false, 0, "")
	pdf.Ln(4)
}

func detailBlock(pdf *gofpdf.Fpdf, tr func(string) string, label, body string) {
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetTextColor(30, 41, 59)
	pdf.CellFormat(0, 6, label, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(60, 60, 60)
	pdf.MultiCell(0, 5, tr(strings.TrimSpace(body)), "", "L", false)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
