package publish

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genvid/internal/domain"
	"genvid/internal/store/memstore"
)

func succeededJob(id, user int64) domain.GenerationJob {
	video := "previews/101/preview_1.mp4"
	thumb := "previews/101/thumbnail_1.png"
	return domain.GenerationJob{
		ID:                     id,
		UserID:                 user,
		Prompt:                 "sunset",
		Status:                 domain.JobStatusSucceeded,
		PreviewVideoObject:     &video,
		PreviewThumbnailObject: &thumb,
	}
}

func TestPublishOnceThenAlreadyPublished(t *testing.T) {
	ctx := context.Background()
	store := memstore.New(0)
	store.Put(succeededJob(101, 7))
	svc := NewService(store, store.Videos(), nil, zerolog.Nop())

	video, err := svc.Publish(ctx, 101, 7)
	require.NoError(t, err)
	assert.Equal(t, "sunset", video.Caption)
	assert.Equal(t, "previews/101/preview_1.mp4", video.VideoObject)
	require.NotNil(t, video.ThumbnailObject)
	assert.Equal(t, domain.VideoStatusReady, video.Status)

	job, _ := store.GetByID(ctx, 101)
	require.NotNil(t, job.PublishedVideoID)
	assert.Equal(t, video.ID, *job.PublishedVideoID)
	assert.Equal(t, domain.JobStatusSucceeded, job.Status, "publishing does not change status")

	_, err = svc.Publish(ctx, 101, 7)
	require.ErrorIs(t, err, domain.ErrAlreadyPublished)
}

func TestPublishByOtherUserIsNotFound(t *testing.T) {
	store := memstore.New(0)
	store.Put(succeededJob(101, 7))
	svc := NewService(store, store.Videos(), nil, zerolog.Nop())

	_, err := svc.Publish(context.Background(), 101, 8)
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.Publish(context.Background(), 999, 7)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPublishRequiresSucceeded(t *testing.T) {
	for _, status := range []domain.JobStatus{domain.JobStatusQueued, domain.JobStatusRunning, domain.JobStatusFailed} {
		t.Run(string(status), func(t *testing.T) {
			store := memstore.New(0)
			store.Put(domain.GenerationJob{ID: 1, UserID: 7, Status: status})
			svc := NewService(store, store.Videos(), nil, zerolog.Nop())
			_, err := svc.Publish(context.Background(), 1, 7)
			require.ErrorIs(t, err, domain.ErrInvalidState)
		})
	}
}

func TestGetVideoHidesHidden(t *testing.T) {
	ctx := context.Background()
	store := memstore.New(0)
	store.Put(succeededJob(101, 7))
	svc := NewService(store, store.Videos(), nil, zerolog.Nop())
	video, err := svc.Publish(ctx, 101, 7)
	require.NoError(t, err)

	got, err := svc.GetVideo(ctx, video.ID)
	require.NoError(t, err)
	assert.Equal(t, video.ID, got.ID)

	store.SetVideoStatus(video.ID, domain.VideoStatusHidden)
	_, err = svc.GetVideo(ctx, video.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.GetVideo(ctx, 404)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListVideosReturnsOwnVisibleVideos(t *testing.T) {
	ctx := context.Background()
	store := memstore.New(0)
	store.Put(succeededJob(101, 7))
	store.Put(succeededJob(102, 7))
	store.Put(succeededJob(103, 8))
	svc := NewService(store, store.Videos(), nil, zerolog.Nop())

	first, err := svc.Publish(ctx, 101, 7)
	require.NoError(t, err)
	second, err := svc.Publish(ctx, 102, 7)
	require.NoError(t, err)
	_, err = svc.Publish(ctx, 103, 8)
	require.NoError(t, err)

	videos, err := svc.ListVideos(ctx, 7)
	require.NoError(t, err)
	require.Len(t, videos, 2)
	for _, v := range videos {
		assert.Equal(t, int64(7), v.UserID)
	}

	store.SetVideoStatus(first.ID, domain.VideoStatusHidden)
	videos, err = svc.ListVideos(ctx, 7)
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, second.ID, videos[0].ID)

	videos, err = svc.ListVideos(ctx, 9)
	require.NoError(t, err)
	assert.Empty(t, videos)
}
