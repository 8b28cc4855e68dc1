package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSearchRanksAbstractFirst(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "go language" {
			t.Errorf("query = %q", got)
		}
		fmt.Fprint(w, `{
			"Heading": "Go (programming language)",
			"Abstract": "Go is a statically typed language.",
			"AbstractURL": "https://en.wikipedia.org/wiki/Go",
			"RelatedTopics": [
				{"Text": "Gopher mascot", "FirstURL": "https://example.com/gopher"},
				{"Text": "Goroutines", "FirstURL": "https://example.com/goroutines"}
			]
		}`)
	}))
	defer srv.Close()

	dd := New(Config{APIBase: srv.URL})
	results, err := dd.Search(context.Background(), "go language", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].Title != "Go (programming language)" {
		t.Errorf("first result title = %q", results[0].Title)
	}
	if results[0].Snippet != "Go is a statically typed language." {
		t.Errorf("first result snippet = %q", results[0].Snippet)
	}
}

func TestSearchHonorsLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"RelatedTopics": [
				{"Text": "one"}, {"Text": "two"}, {"Text": "three"},
				{"Text": "four"}, {"Text": "five"}, {"Text": "six"}
			]
		}`)
	}))
	defer srv.Close()

	dd := New(Config{APIBase: srv.URL})
	results, err := dd.Search(context.Background(), "anything", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 5 {
		t.Errorf("got %d results, want 5", len(results))
	}
}

func TestSearchEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	dd := New(Config{APIBase: srv.URL})
	results, err := dd.Search(context.Background(), "obscure", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestSearchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	dd := New(Config{APIBase: srv.URL})
	if _, err := dd.Search(context.Background(), "q", 5); err == nil {
		t.Fatal("expected error for HTTP 502")
	}
}
