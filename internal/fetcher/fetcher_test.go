package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const recipePage = `<!doctype html>
<html>
<head><title> Crumble aux pommes </title><style>body{color:red}</style></head>
<body>
<nav>Accueil | Recettes</nav>
<h1>Crumble</h1>
<p>Une recette   simple.</p>
<script>track()</script>
<footer>© site</footer>
</body>
</html>`

func TestExtract(t *testing.T) {
	title, text := extract(recipePage)
	assert.Equal(t, "Crumble aux pommes", title)
	assert.Equal(t, "Crumble Une recette simple.", text)
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "melune")
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(recipePage))
	}))
	defer srv.Close()

	f := New(5*time.Second, zap.NewNop())
	page, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "Crumble aux pommes", page.Title)
	assert.Equal(t, "Crumble Une recette simple.", page.Text)
	assert.True(t, strings.HasPrefix(page.Content(), "Crumble aux pommes\n\n"))
	assert.True(t, strings.HasSuffix(page.Content(), srv.URL))
}

func TestFetch_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/empty" {
			w.Write([]byte("<html><body><script>x()</script></body></html>"))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := New(5*time.Second, zap.NewNop())
	ctx := context.Background()

	_, err := f.Fetch(ctx, srv.URL+"/missing")
	assert.ErrorContains(t, err, "HTTP 404")

	_, err = f.Fetch(ctx, srv.URL+"/empty")
	assert.ErrorContains(t, err, "no text content")

	_, err = f.Fetch(ctx, "ftp://example.com/file")
	assert.ErrorContains(t, err, "unsupported scheme")
}

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("https://example.com"))
	assert.True(t, IsURL("  www.example.com"))
	assert.False(t, IsURL("rdv jeudi"))
}
