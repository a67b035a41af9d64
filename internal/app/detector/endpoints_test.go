package detector

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	regexp "github.com/wasilibs/go-re2"
)

func TestExtractEndpoints(t *testing.T) {
	t.Parallel()

	js := `
		fetch("https://api.example.org/v2/users");
		const login = "/api/auth/login";
		const rel = "./assets/config.json";
		const legacy = "admin/export.php?format=csv";
	`

	endpoints := ExtractEndpoints(js, nil, true)

	links := make([]string, 0, len(endpoints))
	for _, e := range endpoints {
		links = append(links, e.Link)
	}
	assert.Contains(t, links, "https://api.example.org/v2/users")
	assert.Contains(t, links, "/api/auth/login")
	assert.Contains(t, links, "./assets/config.json")
	assert.Contains(t, links, "admin/export.php?format=csv")
}

func TestExtractEndpoints_DeduplicatesByLink(t *testing.T) {
	t.Parallel()

	js := `a("/api/v1/items");b("/api/v1/items");c("/api/v1/items");`

	endpoints := ExtractEndpoints(js, nil, false)
	require.Len(t, endpoints, 1)
	assert.Equal(t, "/api/v1/items", endpoints[0].Link)
	assert.Empty(t, endpoints[0].Context)
}

func TestExtractEndpoints_AppliesFilter(t *testing.T) {
	t.Parallel()

	js := `x("/api/v1/users");y("/static/logo.png");`

	endpoints := ExtractEndpoints(js, regexp.MustCompile(`^/api/`), false)
	require.Len(t, endpoints, 1)
	assert.Equal(t, "/api/v1/users", endpoints[0].Link)
}

func TestExtractEndpoints_ContextIsLineBoundedAndCapped(t *testing.T) {
	t.Parallel()

	// Minified content: beautification breaks on statement separators so the
	// context line is the surrounding statement, not the whole payload.
	js := `var a=1;fetch("/api/v1/orders");var b=2;`

	endpoints := ExtractEndpoints(js, regexp.MustCompile(`orders`), true)
	require.Len(t, endpoints, 1)
	assert.Contains(t, endpoints[0].Context, `fetch("/api/v1/orders")`)
	assert.NotContains(t, endpoints[0].Context, "var a=1")

	padding := strings.Repeat("p", 400)
	long := `q("/api/v1/tail` + padding + `");`
	endpoints = ExtractEndpoints(long, nil, true)
	require.NotEmpty(t, endpoints)
	assert.LessOrEqual(t, len(endpoints[0].Context), maxEndpointContextLen+len("..."))
}
