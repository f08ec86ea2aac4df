package studio

import (
	"context"
	"fmt"
	"sort"

	"genai-gallery/common"
	"genai-gallery/internal/oss"
	"genai-gallery/internal/utils"

	"golang.org/x/sync/errgroup"
)

// 并发获取元数据和 URL 的上限
const galleryFetchLimit = 8

// RefreshGallery 重新拉取图库：列出 images/ 下全部对象，按创建时间倒序，解析访问 URL
//
// 任意一步失败则整体放弃，保留原列表。并发刷新时只采用最后一次发起的结果。
func (s *Studio) RefreshGallery(ctx context.Context) error {
	s.mu.Lock()
	s.galleryVersion++
	version := s.galleryVersion
	s.state.GalleryLoading = true
	s.state.GalleryError = ""
	s.mu.Unlock()

	images, err := s.fetchGallery(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if version != s.galleryVersion {
		return err
	}
	s.state.GalleryLoading = false
	s.metrics.galleryRefresh(err == nil)
	if err != nil {
		common.WithError(err).Error("Failed to refresh gallery")
		s.state.GalleryError = common.MsgGalleryFailed
		return err
	}
	s.state.Gallery = images
	return nil
}

// EnsureGallery 会话首次渲染时拉取一次图库
func (s *Studio) EnsureGallery(ctx context.Context) {
	s.mu.Lock()
	loaded := s.galleryVersion > 0
	s.mu.Unlock()
	if !loaded {
		_ = s.RefreshGallery(ctx)
	}
}

// ListImages 拉取图库但不修改视图状态
func (s *Studio) ListImages(ctx context.Context) ([]GeneratedImage, error) {
	return s.fetchGallery(ctx)
}

func (s *Studio) fetchGallery(ctx context.Context) ([]GeneratedImage, error) {
	refs, err := s.storage.ListAll(ctx, utils.ImagePrefix)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}

	metas := make([]*oss.Metadata, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(galleryFetchLimit)
	for i, ref := range refs {
		g.Go(func() error {
			meta, err := s.storage.GetMetadata(gctx, ref)
			if err != nil {
				return fmt.Errorf("get metadata %s: %w", ref.Key, err)
			}
			metas[i] = meta
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	images := make([]GeneratedImage, len(refs))
	for i, ref := range refs {
		images[i] = GeneratedImage{Name: ref.Name(), CreatedAt: metas[i].CreatedAt}
	}
	order := make([]int, len(refs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return images[order[a]].CreatedAt.After(images[order[b]].CreatedAt)
	})

	sorted := make([]GeneratedImage, len(order))
	sortedRefs := make([]oss.ObjectRef, len(order))
	for i, idx := range order {
		sorted[i] = images[idx]
		sortedRefs[i] = refs[idx]
	}

	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(galleryFetchLimit)
	for i, ref := range sortedRefs {
		g.Go(func() error {
			url, err := s.storage.GetURL(gctx, ref)
			if err != nil {
				return fmt.Errorf("get url %s: %w", ref.Key, err)
			}
			sorted[i].URL = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	common.WithField("count", len(sorted)).Debug("Gallery fetched")
	return sorted, nil
}
