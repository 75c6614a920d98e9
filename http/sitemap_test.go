package http_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	dochttp "github.com/fwojciec/docextract/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sitemapXML(urls ...string) string {
	out := `<?xml version="1.0" encoding="UTF-8"?><urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`
	for _, u := range urls {
		out += "<url><loc>" + u + "</loc></url>"
	}
	return out + "</urlset>"
}

func TestSitemapService_discovers_from_robots_txt(t *testing.T) {
	t.Parallel()

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			fmt.Fprintf(w, "User-agent: *\nSitemap: %s/custom-sitemap.xml\n", srv.URL)
		case "/custom-sitemap.xml":
			_, _ = w.Write([]byte(sitemapXML(srv.URL+"/docs/a", srv.URL+"/docs/b")))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	s := dochttp.NewSitemapService(nil)
	urls, err := s.DiscoverURLs(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/docs/a", srv.URL + "/docs/b"}, urls)
}

func TestSitemapService_falls_back_to_sitemap_xml(t *testing.T) {
	t.Parallel()

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sitemap.xml":
			_, _ = w.Write([]byte(sitemapXML(srv.URL + "/docs/a")))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	s := dochttp.NewSitemapService(nil)
	urls, err := s.DiscoverURLs(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/docs/a"}, urls)
}

func TestSitemapService_resolves_sitemap_indexes(t *testing.T) {
	t.Parallel()

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sitemap.xml":
			fmt.Fprintf(w, `<?xml version="1.0"?><sitemapindex><sitemap><loc>%s/child.xml</loc></sitemap></sitemapindex>`, srv.URL)
		case "/child.xml":
			_, _ = w.Write([]byte(sitemapXML(srv.URL + "/docs/nested")))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	s := dochttp.NewSitemapService(nil)
	urls, err := s.DiscoverURLs(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/docs/nested"}, urls)
}

func TestSitemapService_filters_by_path_prefix(t *testing.T) {
	t.Parallel()

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sitemap.xml":
			_, _ = w.Write([]byte(sitemapXML(
				srv.URL+"/docs/a",
				srv.URL+"/blog/post",
				srv.URL+"/documentation/other",
			)))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	s := dochttp.NewSitemapService(nil)
	urls, err := s.DiscoverURLs(context.Background(), srv.URL+"/docs")

	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/docs/a"}, urls, "prefix respects path boundaries")
}

func TestSitemapService_no_sitemap_is_empty_not_an_error(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	s := dochttp.NewSitemapService(nil)
	urls, err := s.DiscoverURLs(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Empty(t, urls)
}
