package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractScriptURLs(t *testing.T) {
	t.Parallel()

	html := `<html><head>
		<script src="/static/app.js"></script>
		<script src="https://cdn.example.com/lib/vendor.js?v=3"></script>
		<script src="//cdn.example.com/proto.js"></script>
		<link href="/styles/main.css" rel="stylesheet">
		<script>var loader = document.createElement('script'); loader.src = "https://example.com/lazy.js";</script>
	</head></html>`

	urls := ExtractScriptURLs(html, "https://example.com/index.html")

	assert.Contains(t, urls, "https://example.com/static/app.js")
	assert.Contains(t, urls, "https://cdn.example.com/lib/vendor.js?v=3")
	assert.Contains(t, urls, "https://cdn.example.com/proto.js")
	assert.Contains(t, urls, "https://example.com/lazy.js")
	for _, u := range urls {
		assert.NotContains(t, u, ".css")
	}
}

func TestExtractNestedScriptURLs(t *testing.T) {
	t.Parallel()

	body := `
		import("./chunks/lazy.js");
		import { helper } from "../util/helper.js";
		const legacy = require("./legacy/polyfill.js");
		//# sourceMappingURL=bundle.js.map
		import("data:text/javascript,alert(1)//x.js");
	`

	nested := ExtractNestedScriptURLs(body, "https://example.com/assets/bundle.js")

	assert.Contains(t, nested, "https://example.com/assets/chunks/lazy.js")
	assert.Contains(t, nested, "https://example.com/util/helper.js")
	assert.Contains(t, nested, "https://example.com/assets/legacy/polyfill.js")
	assert.Contains(t, nested, "https://example.com/assets/bundle.js.map")
	for _, u := range nested {
		assert.NotContains(t, u, "data:")
	}
}

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	base := "https://example.com/app/index.html"

	tests := []struct {
		name      string
		candidate string
		want      string
	}{
		{"absolute passthrough", "https://cdn.example.com/a.js", "https://cdn.example.com/a.js"},
		{"protocol relative", "//cdn.example.com/a.js", "https://cdn.example.com/a.js"},
		{"root relative", "/static/a.js", "https://example.com/static/a.js"},
		{"relative", "chunks/a.js", "https://example.com/app/chunks/a.js"},
		{"empty rejected", "", ""},
		{"non-js rejected", "/static/style.css", ""},
		{"non-http scheme rejected", "ftp://example.com/a.js", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, NormalizeURL(base, tt.candidate))
		})
	}

	t.Run("oversized candidate rejected", func(t *testing.T) {
		t.Parallel()
		long := "https://example.com/" + string(make([]byte, maxCandidateURLLen)) + ".js"
		assert.Empty(t, NormalizeURL(base, long))
	})
}

func TestExtractInlineScripts(t *testing.T) {
	t.Parallel()

	html := `<html><body>
		<script>var apiKey = "inline-one";</script>
		<script src="/app.js"></script>
		<script>   </script>
		<script type="application/json">{"config": true}</script>
	</body></html>`

	scripts := ExtractInlineScripts(html)

	assert.Len(t, scripts, 2)
	assert.Contains(t, scripts[0], "inline-one")
	assert.Contains(t, scripts[1], `"config": true`)
}
