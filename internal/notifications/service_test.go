package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"reviewhub/internal/config"
	"reviewhub/internal/notifications"
)

type captured struct {
	title    string
	tags     string
	priority string
	body     string
}

func captureServer(t *testing.T, sink *captured) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		sink.title = r.Header.Get("Title")
		sink.tags = r.Header.Get("Tags")
		sink.priority = r.Header.Get("Priority")
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		sink.body = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyReviewReady(context.Background(), "review-001", "design", "http://127.0.0.1:3737/"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsReviewReady(t *testing.T) {
	var got captured
	server := captureServer(t, &got)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.RequestTimeout = 5

	svc := notifications.NewService(&cfg)
	err := svc.NotifyReviewReady(context.Background(), "review-003", "product-requirements", "http://127.0.0.1:3737/?token=abc")
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if got.title != "ReviewHub - Review Ready" {
		t.Fatalf("title: %q", got.title)
	}
	if got.body != "Product Requirements review review-003 is ready.\nhttp://127.0.0.1:3737/?token=abc" {
		t.Fatalf("body: %q", got.body)
	}
	if got.tags != "reviewhub,review,ready" {
		t.Fatalf("tags: %q", got.tags)
	}
}

func TestNtfyServiceFormatsError(t *testing.T) {
	var got captured
	server := captureServer(t, &got)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	if err := svc.NotifyError(context.Background(), errors.New("pip install failed"), "install"); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if got.body != "Error with install: pip install failed" {
		t.Fatalf("body: %q", got.body)
	}
	if got.priority != "high" {
		t.Fatalf("priority: %q", got.priority)
	}
}

func TestNtfyServiceHonorsEventToggles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected call for suppressed event: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Review = false
	cfg.Notifications.Errors = false

	svc := notifications.NewService(&cfg)
	ctx := context.Background()
	if err := svc.NotifyReviewReady(ctx, "review-001", "design", "url"); err != nil {
		t.Fatalf("suppressed review event: %v", err)
	}
	if err := svc.NotifyAudioReady(ctx, "review-001", 90*time.Second); err != nil {
		t.Fatalf("suppressed audio event: %v", err)
	}
	if err := svc.NotifyError(ctx, errors.New("boom"), "audio"); err != nil {
		t.Fatalf("suppressed error event: %v", err)
	}
}
