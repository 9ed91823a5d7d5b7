package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"genvid/internal/domain"
)

// VeoOptions configures the Veo REST client.
type VeoOptions struct {
	APIKey       string
	BaseURL      string
	Model        string
	PollInterval time.Duration
	HTTPClient   *http.Client
	Logger       zerolog.Logger
}

// Veo drives the Gemini API long-running video operation: submit, poll until
// done, then download the first generated sample.
type Veo struct {
	apiKey       string
	baseURL      string
	model        string
	pollInterval time.Duration
	httpClient   *http.Client
	logger       zerolog.Logger
}

type veoInstance struct {
	Prompt string `json:"prompt"`
}

type veoParameters struct {
	AspectRatio     string `json:"aspectRatio,omitempty"`
	Resolution      string `json:"resolution,omitempty"`
	DurationSeconds int    `json:"durationSeconds,omitempty"`
	SampleCount     int    `json:"sampleCount,omitempty"`
}

type veoPredictRequest struct {
	Instances  []veoInstance `json:"instances"`
	Parameters veoParameters `json:"parameters"`
}

type veoError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type veoOperation struct {
	Name     string    `json:"name"`
	Done     bool      `json:"done"`
	Error    *veoError `json:"error,omitempty"`
	Response *struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
			RAIMediaFilteredReasons []string `json:"raiMediaFilteredReasons,omitempty"`
		} `json:"generateVideoResponse"`
	} `json:"response,omitempty"`
}

type veoErrorResponse struct {
	Error veoError `json:"error"`
}

// NewVeo validates options and applies defaults.
func NewVeo(opts VeoOptions) (*Veo, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, errors.New("veo: GEMINI_API_KEY is required")
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	model := opts.Model
	if model == "" {
		model = "veo-3.1-generate-preview"
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = 8 * time.Second
	}
	return &Veo{
		apiKey:       apiKey,
		baseURL:      baseURL,
		model:        model,
		pollInterval: poll,
		httpClient:   client,
		logger:       opts.Logger,
	}, nil
}

// Generate blocks until the operation finishes or ctx ends. Backend errors
// wrap domain.ErrProviderFailure.
func (v *Veo) Generate(ctx context.Context, req Request) (*Clip, error) {
	payload := veoPredictRequest{
		Instances: []veoInstance{{Prompt: req.Prompt}},
		Parameters: veoParameters{
			AspectRatio:     req.AspectRatio,
			Resolution:      req.Resolution,
			DurationSeconds: req.DurationSeconds,
			SampleCount:     1,
		},
	}
	var op veoOperation
	if err := v.call(ctx, http.MethodPost, "/models/"+v.model+":predictLongRunning", payload, &op); err != nil {
		return nil, err
	}
	v.logger.Info().Str("operation", op.Name).Str("model", v.model).Msg("veo: operation started")

	for !op.Done {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("veo: waiting for %s: %w", op.Name, ctx.Err())
		case <-time.After(v.pollInterval):
		}
		name := op.Name
		op = veoOperation{}
		if err := v.call(ctx, http.MethodGet, "/"+strings.TrimLeft(name, "/"), nil, &op); err != nil {
			return nil, err
		}
		if op.Name == "" {
			op.Name = name
		}
	}

	if op.Error != nil {
		return nil, fmt.Errorf("%w: veo operation %s: %s", domain.ErrProviderFailure, op.Name, op.Error.Message)
	}
	if op.Response == nil || len(op.Response.GenerateVideoResponse.GeneratedSamples) == 0 {
		reason := "no samples returned"
		if op.Response != nil && len(op.Response.GenerateVideoResponse.RAIMediaFilteredReasons) > 0 {
			reason = "filtered: " + strings.Join(op.Response.GenerateVideoResponse.RAIMediaFilteredReasons, "; ")
		}
		return nil, fmt.Errorf("%w: veo operation %s: %s", domain.ErrProviderFailure, op.Name, reason)
	}

	uri := op.Response.GenerateVideoResponse.GeneratedSamples[0].Video.URI
	data, mime, err := v.download(ctx, uri)
	if err != nil {
		return nil, err
	}
	if mime == "" || strings.HasPrefix(mime, "application/octet-stream") {
		mime = "video/mp4"
	}
	v.logger.Info().Str("operation", op.Name).Int("bytes", len(data)).Msg("veo: video downloaded")
	return &Clip{Data: data, MimeType: mime}, nil
}

func (v *Veo) call(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, v.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-goog-api-key", v.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: invoke veo: %v", domain.ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr veoErrorResponse
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("%w: veo status %d: %s", domain.ErrProviderFailure, resp.StatusCode, apiErr.Error.Message)
		}
		return fmt.Errorf("%w: veo status %d: %s", domain.ErrProviderFailure, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode veo response: %v", domain.ErrProviderFailure, err)
	}
	return nil
}

func (v *Veo) download(ctx context.Context, uri string) ([]byte, string, error) {
	if uri == "" {
		return nil, "", fmt.Errorf("%w: veo sample has no uri", domain.ErrProviderFailure)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create download request: %w", err)
	}
	req.Header.Set("x-goog-api-key", v.apiKey)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: download video: %v", domain.ErrProviderFailure, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, "", fmt.Errorf("%w: download status %d: %s", domain.ErrProviderFailure, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read video: %w", err)
	}
	if len(blob) == 0 {
		return nil, "", fmt.Errorf("%w: downloaded video is empty", domain.ErrProviderFailure)
	}
	return blob, resp.Header.Get("Content-Type"), nil
}

var _ Generator = (*Veo)(nil)
