package users

import (
	"io"
	"text/template"
	"time"

	"github.com/Masterminds/sprig"
	"github.com/cdil-bc/canvas-discussions/src/oops"
)

var reportTemplate = template.Must(template.New("users").Funcs(sprig.TxtFuncMap()).Funcs(template.FuncMap{
	"localtime": func(t time.Time, loc *time.Location, layout string) string {
		if t.IsZero() {
			return "never"
		}
		return t.In(loc).Format(layout)
	},
}).Parse(`
{{- if .CourseName }}{{ .CourseName }}
{{ repeat (len .CourseName) "=" }}
{{ end -}}
{{- if not .Users }}No matching users.
{{ else }}
{{- range .Users -}}
{{ printf "%-2s" .Initials }}  {{ .Name | trunc 40 | printf "%-40s" }}  {{ printf "%4d" .PostCount }} {{ if eq .PostCount 1 }}post {{ else }}posts{{ end }}  last active {{ localtime .LastActive $.Location $.TimeFormat }}
{{ end }}
{{ len .Users }} {{ if eq (len .Users) 1 }}user{{ else }}users{{ end }}, {{ .Total }} posts
{{ end -}}
`))

type ReportOptions struct {
	CourseName string
	Location   *time.Location
	TimeFormat string
}

// Writes a plain text table of users, one per line.
func WriteReport(w io.Writer, summaries []*Summary, opts ReportOptions) error {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	layout := opts.TimeFormat
	if layout == "" {
		layout = time.DateTime
	}

	total := 0
	for _, s := range summaries {
		total += s.PostCount
	}

	err := reportTemplate.Execute(w, map[string]interface{}{
		"CourseName": opts.CourseName,
		"Users":      summaries,
		"Total":      total,
		"Location":   loc,
		"TimeFormat": layout,
	})
	if err != nil {
		return oops.New(err, "failed to write user report")
	}
	return nil
}
