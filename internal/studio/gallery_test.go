package studio

import (
	"context"
	"errors"
	"testing"
	"time"

	"genai-gallery/common"
	"genai-gallery/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshGallery_SortedNewestFirst(t *testing.T) {
	f := newFixture(t)
	base := f.now
	offsets := []time.Duration{3 * time.Minute, 10 * time.Minute, time.Minute, 7 * time.Minute}
	for _, off := range offsets {
		f.storage.seed(utils.GenerateImageName(base.Add(off)), base.Add(off))
	}

	require.NoError(t, f.studio.RefreshGallery(context.Background()))

	gallery := f.studio.State().Gallery
	require.Len(t, gallery, len(offsets))
	for i := 1; i < len(gallery); i++ {
		assert.False(t, gallery[i].CreatedAt.After(gallery[i-1].CreatedAt), "gallery must be newest first")
	}
	assert.Equal(t, utils.GenerateImageName(base.Add(10*time.Minute)), gallery[0].Name)
	for _, img := range gallery {
		assert.Equal(t, objectURL(utils.ImageKey(img.Name)), img.URL)
	}
	assert.False(t, f.studio.State().GalleryLoading)
}

func TestRefreshGallery_EmptyBucket(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.studio.RefreshGallery(context.Background()))
	state := f.studio.State()
	assert.Empty(t, state.Gallery)
	assert.Empty(t, state.GalleryError)
}

func TestRefreshGallery_FailureKeepsPreviousList(t *testing.T) {
	cases := map[string]func(*fakeStorage){
		"list":     func(s *fakeStorage) { s.listErr = errors.New("list failed") },
		"metadata": func(s *fakeStorage) { s.metaErr = errors.New("head failed") },
		"url":      func(s *fakeStorage) { s.urlErr = errors.New("presign failed") },
	}
	for name, breakStorage := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			f.storage.seed(utils.GenerateImageName(f.now), f.now)
			require.NoError(t, f.studio.RefreshGallery(context.Background()))
			previous := f.studio.State().Gallery
			require.Len(t, previous, 1)

			f.storage.seed(utils.GenerateImageName(f.now.Add(time.Minute)), f.now.Add(time.Minute))
			breakStorage(f.storage)

			require.Error(t, f.studio.RefreshGallery(context.Background()))
			state := f.studio.State()
			assert.Equal(t, previous, state.Gallery)
			assert.Equal(t, common.MsgGalleryFailed, state.GalleryError)
			assert.False(t, state.GalleryLoading)
		})
	}
}

func TestListImages_DoesNotTouchState(t *testing.T) {
	f := newFixture(t)
	f.storage.seed(utils.GenerateImageName(f.now), f.now)

	images, err := f.studio.ListImages(context.Background())
	require.NoError(t, err)
	assert.Len(t, images, 1)
	assert.Empty(t, f.studio.State().Gallery)
}
