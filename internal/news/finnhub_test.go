package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestFetchNews_LimitAndMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("symbol"); got != "ACME" {
			t.Errorf("symbol = %q, want ACME", got)
		}
		if r.URL.Query().Get("token") != "test-key" {
			t.Error("missing api token")
		}
		if r.URL.Query().Get("from") == "" || r.URL.Query().Get("to") == "" {
			t.Error("missing date window")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"headline": "ACME soars", "source": "Wire", "url": "https://example.com/1", "datetime": 1709640000},
			{"headline": "ACME dips", "source": "Blog", "url": "https://example.com/2", "datetime": 0},
			{"headline": "ACME flat", "source": "Wire", "url": "https://example.com/3", "datetime": 1709460000}
		]`))
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(srv.URL, "test-key", zerolog.Nop())
	articles := client.FetchNews(context.Background(), "ACME", 2)

	if len(articles) != 2 {
		t.Fatalf("len(articles) = %d, want 2 (limit applied)", len(articles))
	}
	if articles[0].Headline != "ACME soars" || articles[0].Source != "Wire" {
		t.Errorf("articles[0] = %+v", articles[0])
	}
	if articles[0].Published != "2024-03-05 12:00" {
		t.Errorf("Published = %q, want 2024-03-05 12:00", articles[0].Published)
	}
	if articles[1].Published != "" {
		t.Errorf("zero timestamp should yield empty Published, got %q", articles[1].Published)
	}
}

func TestFetchNews_FailuresReturnEmpty(t *testing.T) {
	t.Run("http error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		}))
		defer srv.Close()

		client := NewClientWithBaseURL(srv.URL, "test-key", zerolog.Nop())
		if got := client.FetchNews(context.Background(), "ACME", 3); len(got) != 0 {
			t.Errorf("articles = %v, want empty", got)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"not": "a list"}`))
		}))
		defer srv.Close()

		client := NewClientWithBaseURL(srv.URL, "test-key", zerolog.Nop())
		if got := client.FetchNews(context.Background(), "ACME", 3); len(got) != 0 {
			t.Errorf("articles = %v, want empty", got)
		}
	})

	t.Run("no api key", func(t *testing.T) {
		client := NewClient("", zerolog.Nop())
		if got := client.FetchNews(context.Background(), "ACME", 3); len(got) != 0 {
			t.Errorf("articles = %v, want empty", got)
		}
	})
}
