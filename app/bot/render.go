package bot

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/Semior001/newsboard/app/store"
	"github.com/Semior001/newsboard/app/view"
)

var funcs = template.FuncMap{
	"md":     escapeMarkdown,
	"href":   escapeLink,
	"header": view.CommentsHeader,
}

var tmpl = template.Must(template.New("board").Funcs(funcs).Parse(`
{{- define "article" -}}
[{{md .Title}}]({{href .URL}}) ` + "`{{.ID}}`" + `
{{md .Summary}}
{{- with header .}}
_{{.}}_
{{- end}}
{{- range .Comments}}
• {{md .Text}}{{if .Pending}} (pending){{end}} ` + "`{{.ID}}`" + `
{{- end}}
{{- end -}}

{{- define "page" -}}
{{- if .Empty -}}
{{- if .Filtered}}No results found.{{else}}No feeds added. Please add an RSS feed to continue.{{end -}}
{{- else -}}
{{- range $i, $g := .Groups}}{{if $i}}

{{end}}*{{md $g.Site}}*
{{- range $g.Articles}}

{{template "article" .}}
{{- end}}
{{- end}}
{{- end -}}
{{- end -}}
`))

func renderPage(p view.Page) (string, error) {
	sb := &strings.Builder{}
	if err := tmpl.ExecuteTemplate(sb, "page", p); err != nil {
		return "", fmt.Errorf("execute page template: %w", err)
	}
	return sb.String(), nil
}

func renderArticle(a store.Article) (string, error) {
	sb := &strings.Builder{}
	if err := tmpl.ExecuteTemplate(sb, "article", a); err != nil {
		return "", fmt.Errorf("execute article template: %w", err)
	}
	return sb.String(), nil
}

var mdEscaper = strings.NewReplacer(
	`*`, `\*`,
	`_`, `\_`,
	"`", "\\`",
	"[", "\\[",
	"]", "\\]",
)

func escapeMarkdown(s string) string {
	return mdEscaper.Replace(s)
}

var linkEscaper = strings.NewReplacer(
	"(", "%28",
	")", "%29",
	" ", "%20",
)

// escapeLink percent-encodes characters that end the link target early.
func escapeLink(u string) string {
	return linkEscaper.Replace(u)
}
