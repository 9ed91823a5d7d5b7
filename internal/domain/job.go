package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// JobStatus enumerates generation job lifecycle states.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "QUEUED"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusSucceeded JobStatus = "SUCCEEDED"
	JobStatusFailed    JobStatus = "FAILED"
)

// MaxErrorMessageRunes bounds the stored failure message.
const MaxErrorMessageRunes = 500

var jobTransitions = map[JobStatus][]JobStatus{
	JobStatusQueued:  {JobStatusRunning, JobStatusFailed},
	JobStatusRunning: {JobStatusSucceeded, JobStatusFailed},
}

// Valid reports whether s is a known status.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusQueued, JobStatusRunning, JobStatusSucceeded, JobStatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no further worker-driven transition may occur.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

// CanTransitionTo reports whether next is reachable from s in one step.
// QUEUED -> FAILED is only used when the job could not be dispatched.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	for _, candidate := range jobTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// GenerationJob is one request to turn a prompt into a preview video.
type GenerationJob struct {
	ID                     int64
	UserID                 int64
	Prompt                 string
	Status                 JobStatus
	PreviewVideoObject     *string
	PreviewThumbnailObject *string
	ErrorMessage           *string
	PublishedVideoID       *int64
	DispatchAttempts       int
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// OwnedBy reports whether the job belongs to userID.
func (j *GenerationJob) OwnedBy(userID int64) bool {
	return j != nil && j.UserID == userID
}

// Published reports whether the job's artifact was already promoted.
func (j *GenerationJob) Published() bool {
	return j != nil && j.PublishedVideoID != nil
}

// CheckPublishable returns the error class that prevents publishing j, if any.
func (j *GenerationJob) CheckPublishable() error {
	if j == nil {
		return ErrNotFound
	}
	if j.Status != JobStatusSucceeded {
		return ErrInvalidState
	}
	if j.Published() {
		return ErrAlreadyPublished
	}
	if j.PreviewVideoObject == nil || strings.TrimSpace(*j.PreviewVideoObject) == "" {
		return ErrInvalidState
	}
	return nil
}

// TruncateErrorMessage trims msg to MaxErrorMessageRunes without splitting
// runes. Invalid UTF-8 and NUL bytes, which Postgres text columns reject, are
// replaced first.
func TruncateErrorMessage(msg string) string {
	msg = strings.ToValidUTF8(msg, "\uFFFD")
	msg = strings.ReplaceAll(msg, "\x00", "")
	msg = strings.TrimSpace(msg)
	if utf8.RuneCountInString(msg) <= MaxErrorMessageRunes {
		return msg
	}
	runes := []rune(msg)
	return string(runes[:MaxErrorMessageRunes])
}
