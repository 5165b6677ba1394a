package clients

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGetJSONDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "watchtower-test/1.0" {
			t.Errorf("User-Agent = %q", got)
		}
		if got := r.Header.Get("X-Token"); got != "secret" {
			t.Errorf("X-Token = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name":"ok","count":3}`))
	}))
	defer srv.Close()

	client := NewFetchClient(FetchConfig{
		Timeout:   time.Second,
		UserAgent: "watchtower-test/1.0",
	})

	var out struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	err := client.GetJSON(context.Background(), srv.URL, map[string]string{"X-Token": "secret"}, &out)
	if err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if out.Name != "ok" || out.Count != 3 {
		t.Errorf("decoded %+v", out)
	}
}

func TestGetJSONClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewFetchClient(FetchConfig{Timeout: time.Second})

	err := client.GetJSON(context.Background(), srv.URL, nil, &struct{}{})
	var clientErr *ClientError
	if !errors.As(err, &clientErr) {
		t.Fatalf("expected ClientError, got %v", err)
	}
	if clientErr.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode = %d, want 403", clientErr.StatusCode)
	}
}

func TestGetJSONUnreachableUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing is listening anymore

	client := NewFetchClient(FetchConfig{
		Timeout:    time.Second,
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
	})

	if err := client.GetJSON(context.Background(), srv.URL, nil, &struct{}{}); err == nil {
		t.Fatal("expected error for unreachable upstream")
	}
}

func TestPostJSONSendsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q", got)
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := NewFetchClient(FetchConfig{Timeout: time.Second})

	var out struct {
		OK bool `json:"ok"`
	}
	err := client.PostJSON(context.Background(), srv.URL, nil, map[string]string{"q": "x"}, &out)
	if err != nil {
		t.Fatalf("PostJSON() error = %v", err)
	}
	if !out.OK {
		t.Error("expected ok response")
	}
}
