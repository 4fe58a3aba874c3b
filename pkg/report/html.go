package report

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var mdRenderer = goldmark.New(goldmark.WithExtensions(extension.GFM))

const htmlHead = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Security Audit Report</title>
<style>
body { font-family: -apple-system, "Segoe UI", Helvetica, Arial, sans-serif; max-width: 960px; margin: 2em auto; color: #1e293b; line-height: 1.5; }
h1, h2 { border-bottom: 1px solid #e2e8f0; padding-bottom: .3em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
th, td { border: 1px solid #cbd5e1; padding: 6px 10px; text-align: left; }
th { background: #1e293b; color: #fff; }
pre { background: #f1f5f9; padding: 1em; overflow-x: auto; }
hr { border: 0; border-top: 1px solid #e2e8f0; margin: 2em 0; }
</style>
</head>
<body>
`

const htmlFoot = `</body>
</html>
`

// HTML converts the Markdown report into a standalone page.
func HTML(markdown []byte) ([]byte, error) {
	var body bytes.Buffer
	if err := mdRenderer.Convert(markdown, &body); err != nil {
		return nil, err
	}

	var page bytes.Buffer
	page.WriteString(htmlHead)
	page.Write(body.Bytes())
	page.WriteString(htmlFoot)
	return page.Bytes(), nil
}
