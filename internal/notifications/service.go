package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"reviewhub/internal/config"
)

const userAgent = "ReviewHub-Go/0.1.0"

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	NotifyReviewReady(ctx context.Context, reviewID, reviewType, url string) error
	NotifyAudioReady(ctx context.Context, reviewID string, duration time.Duration) error
	NotifyReviewCompleted(ctx context.Context, reviewID string, comments int) error
	NotifyApplied(ctx context.Context, reviewID, summary string) error
	NotifyEngineInstalled(ctx context.Context, engine string) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:     topic,
		client:       &http.Client{Timeout: timeout},
		reviewEvents: cfg.Notifications.Review,
		errorEvents:  cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint     string
	client       *http.Client
	reviewEvents bool
	errorEvents  bool
}

var titleCaser = cases.Title(language.English)

// displayReviewType renders an enum value like "product-requirements" as
// "Product Requirements" for human-facing messages.
func displayReviewType(reviewType string) string {
	return titleCaser.String(strings.ReplaceAll(strings.TrimSpace(reviewType), "-", " "))
}

func (n *ntfyService) NotifyReviewReady(ctx context.Context, reviewID, reviewType, url string) error {
	if !n.reviewEvents {
		return nil
	}
	data := payload{
		title:   "ReviewHub - Review Ready",
		message: fmt.Sprintf("%s review %s is ready.\n%s", displayReviewType(reviewType), strings.TrimSpace(reviewID), url),
		tags:    []string{"reviewhub", "review", "ready"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyAudioReady(ctx context.Context, reviewID string, duration time.Duration) error {
	if !n.reviewEvents {
		return nil
	}
	data := payload{
		title:   "ReviewHub - Audio Generated",
		message: fmt.Sprintf("Audio for %s is ready (%s)", strings.TrimSpace(reviewID), duration.Round(time.Second)),
		tags:    []string{"reviewhub", "audio", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyReviewCompleted(ctx context.Context, reviewID string, comments int) error {
	if !n.reviewEvents {
		return nil
	}
	data := payload{
		title:    "ReviewHub - Review Complete",
		message:  fmt.Sprintf("Review %s marked complete with %d comments", strings.TrimSpace(reviewID), comments),
		tags:     []string{"reviewhub", "review", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyApplied(ctx context.Context, reviewID, summary string) error {
	if !n.reviewEvents {
		return nil
	}
	message := fmt.Sprintf("Edit instructions for %s handed off", strings.TrimSpace(reviewID))
	if summary = strings.TrimSpace(summary); summary != "" {
		message = fmt.Sprintf("%s\n%s", message, summary)
	}
	data := payload{
		title:   "ReviewHub - Applied",
		message: message,
		tags:    []string{"reviewhub", "apply", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyEngineInstalled(ctx context.Context, engine string) error {
	data := payload{
		title:   "ReviewHub - Engine Installed",
		message: fmt.Sprintf("TTS engine %s installed and verified", strings.TrimSpace(engine)),
		tags:    []string{"reviewhub", "install", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errorEvents {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "ReviewHub - Error",
		message:  builder.String(),
		tags:     []string{"reviewhub", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "ReviewHub - Test",
		message:  "Notification system test",
		tags:     []string{"reviewhub", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyReviewReady(context.Context, string, string, string) error { return nil }
func (noopService) NotifyAudioReady(context.Context, string, time.Duration) error   { return nil }
func (noopService) NotifyReviewCompleted(context.Context, string, int) error        { return nil }
func (noopService) NotifyApplied(context.Context, string, string) error             { return nil }
func (noopService) NotifyEngineInstalled(context.Context, string) error             { return nil }
func (noopService) NotifyError(context.Context, error, string) error                { return nil }
func (noopService) TestNotification(context.Context) error                          { return nil }
