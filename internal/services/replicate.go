package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

var (
	// ErrImageNotConfigured means no Replicate token was supplied.
	ErrImageNotConfigured = errors.New("image generation not configured")
	// ErrImageFailed means the prediction finished without an image.
	ErrImageFailed = errors.New("image generation failed")
	// ErrImageTimeout means polling gave up before the prediction finished.
	ErrImageTimeout = errors.New("image generation timed out")
)

// ReplicateAPIError carries a non-2xx answer from Replicate.
type ReplicateAPIError struct {
	StatusCode int
	Body       string
}

func (e *ReplicateAPIError) Error() string {
	return fmt.Sprintf("Replicate API error: %s", e.Body)
}

// ImageService turns a prompt into a hosted image URL
type ImageService interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ReplicateService generates images with a Replicate model predictions
// endpoint, FLUX-schnell by default.
type ReplicateService struct {
	apiToken     string
	modelURL     string
	httpClient   *http.Client
	pollAttempts int
	pollInterval time.Duration
	logger       *slog.Logger
}

var _ ImageService = (*ReplicateService)(nil)

type ReplicateInput struct {
	Prompt        string `json:"prompt"`
	NumOutputs    int    `json:"num_outputs"`
	AspectRatio   string `json:"aspect_ratio"`
	OutputFormat  string `json:"output_format"`
	OutputQuality int    `json:"output_quality"`
}

type replicateRequest struct {
	Input ReplicateInput `json:"input"`
}

type replicatePrediction struct {
	Status string            `json:"status"`
	Output []json.RawMessage `json:"output"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
}

func NewReplicateService(apiToken, modelURL string, timeout time.Duration, pollAttempts int, pollInterval time.Duration, logger *slog.Logger) *ReplicateService {
	return &ReplicateService{
		apiToken:     apiToken,
		modelURL:     modelURL,
		httpClient:   &http.Client{Timeout: timeout},
		pollAttempts: pollAttempts,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// Generate creates a prediction and waits for it. Replicate usually answers
// synchronously thanks to "Prefer: wait"; otherwise the prediction is polled.
func (r *ReplicateService) Generate(ctx context.Context, prompt string) (string, error) {
	if r.apiToken == "" {
		return "", ErrImageNotConfigured
	}

	body, err := json.Marshal(replicateRequest{Input: ReplicateInput{
		Prompt:        prompt,
		NumOutputs:    1,
		AspectRatio:   "16:9",
		OutputFormat:  "webp",
		OutputQuality: 80,
	}})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.modelURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "wait")

	start := time.Now()
	pred, err := r.do(req)
	if err != nil {
		return "", err
	}
	if url, ok := firstOutput(pred.Output); ok {
		r.logger.Debug("Image ready", "duration", time.Since(start))
		return url, nil
	}
	if pred.URLs.Get == "" {
		return "", fmt.Errorf("%w: no poll URL returned", ErrImageFailed)
	}

	for i := 0; i < r.pollAttempts; i++ {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", ErrImageTimeout, ctx.Err())
		case <-time.After(r.pollInterval):
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pred.URLs.Get, nil)
		if err != nil {
			return "", fmt.Errorf("failed to create poll request: %w", err)
		}
		polled, err := r.do(req)
		if err != nil {
			return "", err
		}

		switch polled.Status {
		case "succeeded":
			if url, ok := firstOutput(polled.Output); ok {
				r.logger.Debug("Image ready after polling", "attempts", i+1, "duration", time.Since(start))
				return url, nil
			}
		case "failed", "canceled":
			return "", ErrImageFailed
		}
	}

	return "", ErrImageTimeout
}

func (r *ReplicateService) do(req *http.Request) (*replicatePrediction, error) {
	req.Header.Set("Authorization", "Bearer "+r.apiToken)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrImageTimeout, err)
		}
		return nil, fmt.Errorf("replicate request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode >= 300 {
		if len(raw) > 200 {
			raw = raw[:200]
		}
		r.logger.Error("Replicate API returned error", "status_code", resp.StatusCode, "response_body", string(raw))
		return nil, &ReplicateAPIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var pred replicatePrediction
	if err := json.Unmarshal(raw, &pred); err != nil {
		return nil, fmt.Errorf("failed to parse prediction: %w", err)
	}
	return &pred, nil
}

// firstOutput returns the first output entry. Entries are usually URL
// strings; anything else is returned as its JSON text.
func firstOutput(output []json.RawMessage) (string, bool) {
	if len(output) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(output[0], &s); err == nil {
		return s, s != ""
	}
	return string(output[0]), true
}
