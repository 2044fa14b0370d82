package completionclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHealth_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("path = %q, want /health", r.URL.Path)
		}
		json.NewEncoder(w).Encode(healthResponse{Status: "ok"})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	if err := c.Health(context.Background()); err != nil {
		t.Errorf("Health() error = %v", err)
	}
}

func TestHealth_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(healthResponse{Status: "loading"})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	if err := c.Health(context.Background()); err == nil {
		t.Error("Health() with non-ok status: expected error, got nil")
	}
}

func TestHealth_NonOKHTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	if err := c.Health(context.Background()); err == nil {
		t.Error("Health() with 503: expected error, got nil")
	}
}

func TestComplete_ExtractsTimings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/completion" {
			t.Errorf("path = %q, want /completion", r.URL.Path)
		}
		var req completionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.NPredict != 20 {
			t.Errorf("NPredict = %d, want 20", req.NPredict)
		}
		json.NewEncoder(w).Encode(completionResponse{
			Timings: Timings{PromptPerSecond: 123.4, PredictedPerSecond: 56.7},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	timings, err := c.Complete(context.Background(), "hello", 20)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if timings.PromptPerSecond != 123.4 || timings.PredictedPerSecond != 56.7 {
		t.Errorf("timings = %+v, want {123.4 56.7}", timings)
	}
}

func TestComplete_MissingTimingsIsProtocolError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"content": "hi"})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	if _, err := c.Complete(context.Background(), "hello", 20); err == nil {
		t.Error("Complete() with missing timings: expected error, got nil")
	}
}
