package video

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Synthetic returns deterministic placeholder clips so the pipeline can run
// without a model backend.
type Synthetic struct {
	logger zerolog.Logger
	// Delay simulates backend latency.
	Delay time.Duration
}

func NewSynthetic(logger zerolog.Logger) *Synthetic {
	return &Synthetic{logger: logger}
}

func (s *Synthetic) Generate(ctx context.Context, req Request) (*Clip, error) {
	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seed := deterministicSeed(req.Prompt, req.DurationSeconds, req.AspectRatio, req.Resolution)
	w, h := thumbnailSize(req.AspectRatio)
	clip := &Clip{
		Data:      renderPlaceholder(seed, req),
		MimeType:  "video/mp4",
		Thumbnail: renderThumbnail(w, h, seed),
	}
	s.logger.Debug().Str("seed", seed).Msg("synthetic clip generated")
	return clip, nil
}

func renderPlaceholder(seed string, req Request) []byte {
	lines := []string{
		"Synthetic preview placeholder",
		fmt.Sprintf("Seed: %s", seed),
		fmt.Sprintf("Prompt: %s", strings.TrimSpace(req.Prompt)),
		fmt.Sprintf("Duration: %ds Aspect: %s Resolution: %s", req.DurationSeconds, req.AspectRatio, req.Resolution),
	}
	return []byte(strings.Join(lines, "\n"))
}

func renderThumbnail(width, height int, seed string) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{colorFromSeed(seed, 0)}, image.Point{}, draw.Src)

	accent := colorFromSeed(seed, 1)
	stripe := max(8, height/12)
	for y := 0; y < height; y += stripe * 2 {
		draw.Draw(img, image.Rect(0, y, width, min(height, y+stripe)), &image.Uniform{accent}, image.Point{}, draw.Over)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}

func colorFromSeed(seed string, shift int) color.RGBA {
	if len(seed) < 6 {
		seed = "000000"
	}
	doubled := seed + seed
	start := (shift * 6) % len(seed)
	segment := doubled[start : start+6]
	return color.RGBA{R: hexByte(segment[0:2]), G: hexByte(segment[2:4]), B: hexByte(segment[4:6]), A: 255}
}

func hexByte(s string) uint8 {
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0
	}
	return uint8(v)
}

func deterministicSeed(parts ...any) string {
	hasher := sha256.New()
	for _, part := range parts {
		fmt.Fprintf(hasher, "%v|", part)
	}
	return hex.EncodeToString(hasher.Sum(nil))[:16]
}

// thumbnailSize maps an aspect ratio to a small thumbnail frame.
func thumbnailSize(aspect string) (int, int) {
	switch strings.TrimSpace(aspect) {
	case "16:9":
		return 320, 180
	case "9:16", "":
		return 180, 320
	case "1:1":
		return 240, 240
	}
	parts := strings.Split(aspect, ":")
	if len(parts) == 2 {
		a, errA := strconv.Atoi(strings.TrimSpace(parts[0]))
		b, errB := strconv.Atoi(strings.TrimSpace(parts[1]))
		if errA == nil && errB == nil && a > 0 && b > 0 {
			return 240, 240 * b / a
		}
	}
	return 180, 320
}

var _ Generator = (*Synthetic)(nil)
