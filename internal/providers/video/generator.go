// Package video turns a prompt into preview video bytes. Backends are
// interchangeable and chosen by GENERATOR_PROVIDER.
package video

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"genvid/internal/infra"
)

// Request carries the generation parameters.
type Request struct {
	Prompt          string
	DurationSeconds int
	AspectRatio     string
	Resolution      string
}

// Clip is a generated preview. Thumbnail is optional PNG data.
type Clip struct {
	Data      []byte
	MimeType  string
	Thumbnail []byte
}

// Generator is a generation backend. Generate may block for minutes.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Clip, error)
}

// NewFromConfig builds the configured backend.
func NewFromConfig(cfg *infra.Config, logger zerolog.Logger) (Generator, error) {
	switch cfg.GeneratorProvider {
	case "", "synthetic":
		return NewSynthetic(logger), nil
	case "veo", "gemini":
		return NewVeo(VeoOptions{
			APIKey:       cfg.GeminiAPIKey,
			BaseURL:      cfg.GeminiBaseURL,
			Model:        cfg.VeoModel,
			PollInterval: cfg.VeoPollInterval,
			HTTPClient:   &http.Client{Timeout: 2 * time.Minute},
			Logger:       logger,
		})
	default:
		return nil, fmt.Errorf("unknown generator provider %q", cfg.GeneratorProvider)
	}
}
