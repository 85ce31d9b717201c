package apihttp

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

type rewriteTransport struct {
	target *url.URL
	seen   []string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.seen = append(t.seen, req.URL.String())
	clone := req.Clone(req.Context())
	clone.URL.Scheme = t.target.Scheme
	clone.URL.Host = t.target.Host
	return http.DefaultTransport.RoundTrip(clone)
}

func newImageServer(t *testing.T, handler http.HandlerFunc) (*Server, *rewriteTransport) {
	t.Helper()
	cdn := httptest.NewServer(handler)
	t.Cleanup(cdn.Close)
	target, err := url.Parse(cdn.URL)
	if err != nil {
		t.Fatalf("parse cdn url: %v", err)
	}
	transport := &rewriteTransport{target: target}
	return NewServer(&fakeCatalogService{}, WithImageClient(&http.Client{Transport: transport})), transport
}

func TestPosterProxyStreamsImage(t *testing.T) {
	server, transport := newImageServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/t/p/w342/abc.jpg" {
			t.Errorf("unexpected cdn path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = io.WriteString(w, "\xff\xd8\xff\xe0jpeg-bytes")
	})

	rec := serve(server.Handler(), httptest.NewRequest(http.MethodGet, "/images/w342/abc.jpg", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Content-Type") != "image/jpeg" {
		t.Fatalf("unexpected content type %q", rec.Header().Get("Content-Type"))
	}
	if rec.Body.String() != "\xff\xd8\xff\xe0jpeg-bytes" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
	if len(transport.seen) != 1 || transport.seen[0] != "https://image.tmdb.org/t/p/w342/abc.jpg" {
		t.Fatalf("unexpected outbound urls %v", transport.seen)
	}
}

func TestPosterProxyRejectsBadInput(t *testing.T) {
	server, transport := newImageServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("cdn must not be called")
	})
	for _, path := range []string{
		"/images/huge/abc.jpg",
		"/images/w500/abc.exe",
		"/images/w500/a%20b.jpg",
	} {
		rec := serve(server.Handler(), httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", path, rec.Code)
		}
	}
	if len(transport.seen) != 0 {
		t.Fatalf("unexpected outbound calls %v", transport.seen)
	}
}

func TestPosterProxyRejectsNonImage(t *testing.T) {
	server, _ := newImageServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, "<html></html>")
	})
	rec := serve(server.Handler(), httptest.NewRequest(http.MethodGet, "/images/w500/abc.png", nil))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestPosterProxyNotFound(t *testing.T) {
	server, _ := newImageServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	rec := serve(server.Handler(), httptest.NewRequest(http.MethodGet, "/images/original/missing.jpg", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
