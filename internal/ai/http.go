package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/freedom_case_2/fire-router/internal/models"
)

// HTTPAdapter calls an external classification service at BaseURL/analyze.
type HTTPAdapter struct {
	BaseURL    string
	Client     *http.Client
	MaxRetries int

	// Backoff is the wait before the first retry when the server does not
	// send Retry-After; it doubles on every attempt.
	Backoff time.Duration
}

type RateLimitError struct {
	RetryAfter time.Duration
}

func (r RateLimitError) Error() string {
	if r.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %s", r.RetryAfter)
	}
	return "rate limited"
}

type requestBody struct {
	TicketID   string `json:"ticket_id"`
	Segment    string `json:"segment"`
	Country    string `json:"country"`
	Region     string `json:"region"`
	City       string `json:"city"`
	Address    string `json:"address"`
	Message    string `json:"message"`
	Attachment string `json:"attachment,omitempty"`
}

type responseBody struct {
	Type           string   `json:"type"`
	Sentiment      string   `json:"sentiment"`
	Priority       int      `json:"priority"`
	Language       string   `json:"language"`
	Summary        string   `json:"summary"`
	Recommendation string   `json:"recommendation"`
	Lat            *float64 `json:"latitude"`
	Lon            *float64 `json:"longitude"`
	ModelVersion   string   `json:"model_version"`
}

func (h HTTPAdapter) Classify(ctx context.Context, t models.Ticket) (models.Classification, int64, error) {
	if h.Client == nil {
		h.Client = &http.Client{Timeout: 15 * time.Second}
	}
	if h.Backoff <= 0 {
		h.Backoff = time.Second
	}

	payload := requestBody{
		TicketID:   t.ID,
		Segment:    t.Segment,
		Country:    t.Country,
		Region:     t.Region,
		City:       t.City,
		Address:    strings.TrimSpace(t.Street + " " + t.Building),
		Message:    t.Description,
		Attachment: t.Attachment,
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return models.Classification{}, 0, err
	}
	start := time.Now()

	wait := h.Backoff
	for attempt := 0; ; attempt++ {
		r, err := h.post(ctx, b)
		if err == nil {
			return toClassification(r, t), time.Since(start).Milliseconds(), nil
		}

		var rl RateLimitError
		if !errors.As(err, &rl) || attempt >= h.MaxRetries {
			return models.Classification{}, time.Since(start).Milliseconds(), err
		}
		d := rl.RetryAfter
		if d <= 0 {
			d = wait
			wait *= 2
		}
		select {
		case <-ctx.Done():
			return models.Classification{}, time.Since(start).Milliseconds(), ctx.Err()
		case <-time.After(d):
		}
	}
}

func (h HTTPAdapter) post(ctx context.Context, body []byte) (responseBody, error) {
	url := strings.TrimRight(h.BaseURL, "/") + "/analyze"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return responseBody{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.Client.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return responseBody{}, fmt.Errorf("classifier request timed out: %w", err)
		}
		return responseBody{}, fmt.Errorf("classifier request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return responseBody{}, RateLimitError{RetryAfter: retryAfter(resp.Header.Get("Retry-After"))}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return responseBody{}, fmt.Errorf("classifier http error: %s", resp.Status)
	}

	var r responseBody
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return responseBody{}, fmt.Errorf("decode classifier response: %w", err)
	}
	return r, nil
}

func toClassification(r responseBody, t models.Ticket) models.Classification {
	c := models.Classification{
		Type:           r.Type,
		Sentiment:      r.Sentiment,
		Priority:       r.Priority,
		Language:       r.Language,
		Summary:        r.Summary,
		Recommendation: r.Recommendation,
		ModelVersion:   r.ModelVersion,
	}
	// coordinates are only meaningful as a pair
	if r.Lat != nil && r.Lon != nil {
		c.Coordinates = &models.Coordinates{Lat: *r.Lat, Lon: *r.Lon}
	}
	if c.Priority == 0 {
		c.Priority = 5
	}
	return Normalize(c, t)
}

func retryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
