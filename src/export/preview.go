package export

import (
	"bytes"
	"html/template"

	chromahtml "github.com/alecthomas/chroma/formatters/html"
	"github.com/cdil-bc/canvas-discussions/src/oops"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/util"
)

var previewMarkdown = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		highlighting.NewHighlighting(
			highlighting.WithStyle("friendly"),
			highlighting.WithFormatOptions(
				chromahtml.TabWidth(4),
			),
			highlighting.WithWrapperRenderer(func(w util.BufWriter, context highlighting.CodeBlockContext, entering bool) {
				if entering {
					w.WriteString(`<pre class="code">`)
				} else {
					w.WriteString(`</pre>`)
				}
			}),
		),
	),
)

var previewPage = template.Must(template.New("preview").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{ .Title }}</title>
<style>
body { font-family: sans-serif; max-width: 50rem; margin: 2rem auto; padding: 0 1rem; line-height: 1.5; }
blockquote { border-left: 3px solid #ccc; margin-left: 0; padding-left: 1rem; color: #444; }
pre.code { padding: 0.5rem; overflow-x: auto; }
</style>
</head>
<body>
{{ .Body }}
</body>
</html>
`))

// Renders an exported Markdown document as a standalone HTML page, for
// looking over an export in a browser.
func RenderHTML(title string, markdown string) (string, error) {
	var body bytes.Buffer
	if err := previewMarkdown.Convert([]byte(markdown), &body); err != nil {
		return "", oops.New(err, "failed to render markdown preview")
	}

	var page bytes.Buffer
	err := previewPage.Execute(&page, struct {
		Title string
		// goldmark omits raw HTML from the source, so this is safe to embed.
		Body template.HTML
	}{
		Title: title,
		Body:  template.HTML(body.String()),
	})
	if err != nil {
		return "", oops.New(err, "failed to render preview page")
	}
	return page.String(), nil
}
