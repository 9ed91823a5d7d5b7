package domain

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestJobStatusTransitions(t *testing.T) {
	all := []JobStatus{JobStatusQueued, JobStatusRunning, JobStatusSucceeded, JobStatusFailed}
	allowed := map[[2]JobStatus]bool{
		{JobStatusQueued, JobStatusRunning}:    true,
		{JobStatusQueued, JobStatusFailed}:     true,
		{JobStatusRunning, JobStatusSucceeded}: true,
		{JobStatusRunning, JobStatusFailed}:    true,
	}
	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]JobStatus{from, to}]
			if got := from.CanTransitionTo(to); got != want {
				t.Fatalf("%s -> %s = %v, want %v", from, to, got, want)
			}
		}
	}
	if JobStatusQueued.Terminal() || JobStatusRunning.Terminal() {
		t.Fatalf("non-terminal status reported terminal")
	}
	if !JobStatusSucceeded.Terminal() || !JobStatusFailed.Terminal() {
		t.Fatalf("terminal status not reported terminal")
	}
	if JobStatus("PUBLISHED").Valid() {
		t.Fatalf("unknown status reported valid")
	}
}

func TestCheckPublishable(t *testing.T) {
	video := "previews/1/preview.mp4"
	published := int64(9)
	tests := []struct {
		name string
		job  *GenerationJob
		want error
	}{
		{name: "nil", job: nil, want: ErrNotFound},
		{name: "queued", job: &GenerationJob{Status: JobStatusQueued}, want: ErrInvalidState},
		{name: "running", job: &GenerationJob{Status: JobStatusRunning}, want: ErrInvalidState},
		{name: "failed", job: &GenerationJob{Status: JobStatusFailed}, want: ErrInvalidState},
		{name: "published", job: &GenerationJob{Status: JobStatusSucceeded, PreviewVideoObject: &video, PublishedVideoID: &published}, want: ErrAlreadyPublished},
		{name: "ok", job: &GenerationJob{Status: JobStatusSucceeded, PreviewVideoObject: &video}, want: nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.job.CheckPublishable(); got != tc.want {
				t.Fatalf("CheckPublishable() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestTruncateErrorMessage(t *testing.T) {
	long := strings.Repeat("é", MaxErrorMessageRunes+20)
	got := TruncateErrorMessage(long)
	if n := utf8.RuneCountInString(got); n != MaxErrorMessageRunes {
		t.Fatalf("rune count = %d, want %d", n, MaxErrorMessageRunes)
	}
	if !utf8.ValidString(got) {
		t.Fatalf("truncated message is not valid utf-8")
	}
	if got := TruncateErrorMessage("  boom  "); got != "boom" {
		t.Fatalf("short message = %q", got)
	}
}

func TestTruncateErrorMessageSanitizesBytes(t *testing.T) {
	snippet := strings.Repeat("日", 200)[:512]
	got := TruncateErrorMessage("dispatch failed: webhook status 502: " + snippet)
	if !utf8.ValidString(got) {
		t.Fatalf("message with cut rune is not valid utf-8: %q", got)
	}
	if !strings.HasSuffix(got, "\uFFFD") {
		t.Fatalf("cut rune not replaced: %q", got[len(got)-8:])
	}

	got = TruncateErrorMessage("generate: bad\x00payload")
	if strings.ContainsRune(got, 0) {
		t.Fatalf("NUL byte kept: %q", got)
	}
	if got != "generate: badpayload" {
		t.Fatalf("message = %q", got)
	}
}
