package domain

import "time"

// VideoStatus enumerates the visibility of a published video.
type VideoStatus string

const (
	VideoStatusReady  VideoStatus = "READY"
	VideoStatusHidden VideoStatus = "HIDDEN"
)

// PublishedVideo is the shareable entity created from a succeeded job. The
// artifact locators are copies so the job can change without breaking it.
type PublishedVideo struct {
	ID              int64
	UserID          int64
	JobID           int64
	Caption         string
	VideoObject     string
	ThumbnailObject *string
	Status          VideoStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Visible reports whether the video may be served to viewers.
func (v *PublishedVideo) Visible() bool {
	return v != nil && v.Status == VideoStatusReady
}
