package report

import (
	"bytes"
	_ "embed"
	"strconv"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed templates/report.md.tmpl
var reportTemplate string

var mdTmpl = template.Must(template.New("report").Funcs(funcMap()).Parse(reportTemplate))

func funcMap() template.FuncMap {
	fm := sprig.TxtFuncMap()
	titleCase := cases.Title(language.English)
	fm["titleCase"] = titleCase.String
	fm["score"] = formatScore
	fm["cell"] = tableCell
	return fm
}

// formatScore prints 10 as "10.0" and 9.65 as "9.65".
func formatScore(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

var cellReplacer = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ")

func tableCell(s string) string {
	return cellReplacer.Replace(s)
}

// Markdown renders the audit report.
func Markdown(in Input) ([]byte, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := mdTmpl.Execute(&buf, in.view()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
