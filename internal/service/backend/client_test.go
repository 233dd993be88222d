package backend

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bournewang/ai-hedge-fund/internal/domain/models"
)

func TestOpenPostsRunRequest(t *testing.T) {
	var gotPath, gotAccept string
	var gotBody models.AnalysisRunRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAccept = r.Header.Get("Accept")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("event: StartEvent\ndata: {\"run_id\":\"run-7\"}\n\n"))
	}))
	defer srv.Close()

	c := New(srv.URL + "/")
	body, err := c.Open(context.Background(), &models.AnalysisRunRequest{
		Tickers:        []string{"AAPL"},
		SelectedAgents: []string{"warren_buffett"},
		ModelName:      "gpt-4o",
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer body.Close()

	if gotPath != "/hedge-fund/run" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotAccept != "text/event-stream" {
		t.Fatalf("accept = %q", gotAccept)
	}
	if len(gotBody.Tickers) != 1 || gotBody.Tickers[0] != "AAPL" {
		t.Fatalf("forwarded tickers = %v", gotBody.Tickers)
	}
	if gotBody.ModelName != "gpt-4o" {
		t.Fatalf("model name = %q", gotBody.ModelName)
	}

	line, err := bufio.NewReader(body).ReadString('\n')
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}
	if line != "event: StartEvent\n" {
		t.Fatalf("first line = %q", line)
	}
}

func TestOpenRejectsNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"no agents selected"}`, http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Open(context.Background(), &models.AnalysisRunRequest{})
	if err == nil {
		t.Fatal("expected error for 422 response")
	}
	if !strings.Contains(err.Error(), "422") || !strings.Contains(err.Error(), "no agents selected") {
		t.Fatalf("error = %v", err)
	}
}

func TestOpenConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	c := New(srv.URL)
	if _, err := c.Open(context.Background(), &models.AnalysisRunRequest{}); err == nil {
		t.Fatal("expected error for refused connection")
	}
}
