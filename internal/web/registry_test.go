package web

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"genai-gallery/common"
	"genai-gallery/internal/auth"
	"genai-gallery/internal/studio"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedStore 的 FindByID 在 release 关闭前阻塞
type gatedStore struct {
	*auth.MemoryStore
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (s *gatedStore) FindByID(ctx context.Context, id uuid.UUID) (*auth.Account, error) {
	s.once.Do(func() { close(s.entered) })
	<-s.release
	return s.MemoryStore.FindByID(ctx, id)
}

func newTestRegistry(provider auth.IdentityProvider) *Registry {
	return NewRegistry(func() *studio.Studio {
		return studio.New(studio.Deps{
			Session:   auth.NewSession(provider),
			Generator: &stubGenerator{},
			Storage:   &memoryBucket{objects: make(map[string]time.Time)},
		})
	}, 10*time.Minute)
}

func TestRegistry_ReusesStudioPerSession(t *testing.T) {
	r := newTestRegistry(auth.NewProvider(auth.NewMemoryStore(), nil))
	defer r.Close()

	a := r.Get(context.Background(), "s-1", "")
	b := r.Get(context.Background(), "s-1", "")
	c := r.Get(context.Background(), "s-2", "")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_SweepClosesIdleSessions(t *testing.T) {
	r := newTestRegistry(auth.NewProvider(auth.NewMemoryStore(), nil))
	defer r.Close()

	now := time.Now()
	r.now = func() time.Time { return now }
	r.Get(context.Background(), "old", "")

	now = now.Add(5 * time.Minute)
	r.Get(context.Background(), "fresh", "")

	now = now.Add(6 * time.Minute)
	assert.Equal(t, 1, r.Sweep())
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_RestoresUser(t *testing.T) {
	ctx := context.Background()
	provider := auth.NewProvider(auth.NewMemoryStore(), nil)
	user, err := provider.SignUp(ctx, "fox@example.com", "secret-pw", "Fox")
	require.NoError(t, err)

	r := newTestRegistry(provider)
	defer r.Close()

	st := r.Get(ctx, "s-1", user.ID)
	require.NotNil(t, st.State().User)
	assert.Equal(t, user.ID, st.State().User.ID)

	unknown := r.Get(ctx, "s-2", "00000000-0000-0000-0000-000000000000")
	assert.Nil(t, unknown.State().User)
}

func TestRegistry_ConcurrentGetWaitsForRestore(t *testing.T) {
	ctx := context.Background()
	store := &gatedStore{
		MemoryStore: auth.NewMemoryStore(),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	provider := auth.NewProvider(store, nil)
	user, err := provider.SignUp(ctx, "fox@example.com", "secret-pw", "Fox")
	require.NoError(t, err)

	r := newTestRegistry(provider)
	defer r.Close()

	first := make(chan *studio.Studio, 1)
	go func() { first <- r.Get(ctx, "s-1", user.ID) }()
	<-store.entered

	second := make(chan *studio.Studio, 1)
	go func() { second <- r.Get(ctx, "s-1", user.ID) }()

	select {
	case <-second:
		t.Fatal("second request got the studio before the user was restored")
	case <-time.After(50 * time.Millisecond):
	}

	close(store.release)
	st := <-second
	assert.Same(t, <-first, st)
	require.NotNil(t, st.State().User)
	assert.Equal(t, user.ID, st.State().User.ID)

	_, err = st.Generate(ctx, "a red fox in snow")
	assert.False(t, errors.Is(err, common.ErrUnauthorized))
	assert.False(t, st.State().Modal.Visible)
}
