package api

import (
	"bytes"
	"html/template"
	"log/slog"
	"net/http"
	"sort"

	"github.com/danielgtaylor/huma/v2"
)

type docsRoute struct {
	Method  string
	Path    string
	Summary string
	Anchor  string
}

var docsTemplate = template.Must(template.New("docs").Parse(`<!doctype html>
<html lang="en" data-theme="dark">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>{{.Title}}</title>
  <link href="https://unpkg.com/@stoplight/elements@9.0.0/styles.min.css" rel="stylesheet" />
  <script src="https://unpkg.com/@stoplight/elements@9.0.0/web-components.min.js" crossorigin="anonymous"></script>
  <style>
    body { height: 100vh; margin: 0; display: flex; background: #0d1117; }
    nav { width: 280px; overflow-y: auto; padding: 12px; border-right: 1px solid #30363d;
          font: 12px -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif; color: #c9d1d9; }
    nav a { color: #58a6ff; text-decoration: none; }
    nav li { margin: 4px 0; list-style: none; }
    nav code { color: #8b949e; margin-right: 6px; }
    main { flex: 1; }
  </style>
</head>
<body>
  <nav>
    <p><a href="/docs/events">Transition feed</a></p>
    <ul>
    {{- range .Routes}}
      <li><a href="#/operations/{{.Anchor}}"><code>{{.Method}}</code>{{.Path}}</a><br />{{.Summary}}</li>
    {{- end}}
    </ul>
  </nav>
  <main>
    <elements-api apiDescriptionUrl="/openapi.json" router="hash" layout="sidebar"
      tryItCredentialsPolicy="same-origin" darkMode />
  </main>
</body>
</html>`))

// docsRoutes lists the registered operations by path, then method.
func docsRoutes(oapi *huma.OpenAPI) []docsRoute {
	var out []docsRoute
	for path, item := range oapi.Paths {
		for _, m := range []struct {
			method string
			op     *huma.Operation
		}{
			{http.MethodGet, item.Get},
			{http.MethodPost, item.Post},
			{http.MethodDelete, item.Delete},
		} {
			if m.op == nil {
				continue
			}
			out = append(out, docsRoute{Method: m.method, Path: path, Summary: m.op.Summary, Anchor: m.op.OperationID})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Method < out[j].Method
	})
	return out
}

// docsHandler renders the reference page once, after every operation has
// been registered.
func docsHandler(oapi *huma.OpenAPI) http.HandlerFunc {
	var buf bytes.Buffer
	err := docsTemplate.Execute(&buf, struct {
		Title  string
		Routes []docsRoute
	}{oapi.Info.Title, docsRoutes(oapi)})
	if err != nil {
		slog.Error("docs render failed", "error", err)
	}
	page := buf.Bytes()
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if _, err := w.Write(page); err != nil {
			slog.Debug("docs response write failed", "error", err)
		}
	}
}
