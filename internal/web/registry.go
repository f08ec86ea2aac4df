package web

import (
	"context"
	"sync"
	"time"

	"genai-gallery/common"
	"genai-gallery/internal/studio"
)

// StudioFactory 为新的浏览器会话创建 Studio
type StudioFactory func() *studio.Studio

type registryEntry struct {
	studio   *studio.Studio
	lastSeen time.Time
	ready    chan struct{} // 登录状态恢复完成后关闭
}

// Registry 浏览器会话 ID 到 Studio 的映射，空闲会话定期回收
type Registry struct {
	factory StudioFactory
	idle    time.Duration
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*registryEntry
}

// NewRegistry 创建会话注册表
func NewRegistry(factory StudioFactory, idle time.Duration) *Registry {
	return &Registry{
		factory: factory,
		idle:    idle,
		now:     time.Now,
		entries: make(map[string]*registryEntry),
	}
}

// Get 返回会话对应的 Studio，不存在时创建；userID 非空时尝试恢复登录状态。
// 同一会话的并发请求会等待恢复完成后才拿到 Studio。
func (r *Registry) Get(ctx context.Context, sessionID, userID string) *studio.Studio {
	r.mu.Lock()
	entry, ok := r.entries[sessionID]
	if ok {
		entry.lastSeen = r.now()
		r.mu.Unlock()
		select {
		case <-entry.ready:
		case <-ctx.Done():
		}
		return entry.studio
	}
	entry = &registryEntry{studio: r.factory(), lastSeen: r.now(), ready: make(chan struct{})}
	r.entries[sessionID] = entry
	r.mu.Unlock()
	defer close(entry.ready)

	if userID != "" {
		if err := entry.studio.Session().Restore(ctx, userID); err != nil {
			common.WithError(err).WithField("session_id", sessionID).Warn("Failed to restore session user")
		}
	}
	common.WithField("session_id", sessionID).Debug("Studio session created")
	return entry.studio
}

// Ephemeral 创建不登记的临时 Studio，调用方负责 Close
func (r *Registry) Ephemeral() *studio.Studio {
	return r.factory()
}

// Len 当前会话数
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep 关闭并移除空闲超时的会话，返回移除数量
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.idle)

	r.mu.Lock()
	var expired []*studio.Studio
	for id, entry := range r.entries {
		if entry.lastSeen.Before(cutoff) {
			expired = append(expired, entry.studio)
			delete(r.entries, id)
		}
	}
	r.mu.Unlock()

	for _, st := range expired {
		st.Close()
	}
	if len(expired) > 0 {
		common.WithField("count", len(expired)).Info("Idle studio sessions closed")
	}
	return len(expired)
}

// Run 周期性回收空闲会话，直到 ctx 结束
func (r *Registry) Run(ctx context.Context) {
	interval := r.idle / 2
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Close 关闭全部会话
func (r *Registry) Close() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*registryEntry)
	r.mu.Unlock()

	for _, entry := range entries {
		entry.studio.Close()
	}
}
