package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func TestNewsAPIEverythingParsesArticles(t *testing.T) {
	var gotQuery, gotPageSize string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotPageSize = r.URL.Query().Get("pageSize")
		w.Write([]byte(`{"status":"ok","articles":[
			{"title":"IT stocks rally","description":"Strong growth"},
			{"title":"Rupee steady","description":""}
		]}`))
	}))
	defer srv.Close()

	p := NewNewsAPIProviderWithBaseURL(trace.NewNoopTracerProvider().Tracer("test"), "key", srv.URL)
	articles, err := p.Everything(context.Background(), "Information Technology India", 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(articles))
	}
	if articles[0].Title != "IT stocks rally" {
		t.Fatalf("unexpected first article: %+v", articles[0])
	}
	if gotQuery != "Information Technology India" || gotPageSize != "50" {
		t.Fatalf("unexpected query params: q=%q pageSize=%q", gotQuery, gotPageSize)
	}
}

func TestNewsAPIEverythingRequiresKey(t *testing.T) {
	p := NewNewsAPIProvider(trace.NewNoopTracerProvider().Tracer("test"), "")
	if _, err := p.Everything(context.Background(), "anything", 10); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestNewsAPIEverythingBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"error","articles":[]}`))
	}))
	defer srv.Close()

	p := NewNewsAPIProviderWithBaseURL(trace.NewNoopTracerProvider().Tracer("test"), "key", srv.URL)
	if _, err := p.Everything(context.Background(), "anything", 10); err == nil {
		t.Fatal("expected error for non-ok status field")
	}
}

func TestGNewsSearchParsesArticles(t *testing.T) {
	var gotMax string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMax = r.URL.Query().Get("max")
		w.Write([]byte(`{"articles":[
			{"title":"RBI holds rates","description":"Policy unchanged"},
			{"title":"New ESG rules","description":"Disclosure mandate"}
		]}`))
	}))
	defer srv.Close()

	p := NewGNewsProviderWithBaseURL(trace.NewNoopTracerProvider().Tracer("test"), "key", srv.URL)
	articles, err := p.Search(context.Background(), "India regulation", 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(articles))
	}
	if articles[1].Title != "New ESG rules" {
		t.Fatalf("order not preserved: %+v", articles)
	}
	if gotMax != "20" {
		t.Fatalf("expected max=20, got %q", gotMax)
	}
}

func TestGNewsSearchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	p := NewGNewsProviderWithBaseURL(trace.NewNoopTracerProvider().Tracer("test"), "key", srv.URL)
	if _, err := p.Search(context.Background(), "anything", 10); err == nil {
		t.Fatal("expected error for non-200 status")
	}
}
