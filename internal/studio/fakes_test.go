package studio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"genai-gallery/common"
	"genai-gallery/internal/auth"
	"genai-gallery/internal/genai"
	"genai-gallery/internal/oss"
	"genai-gallery/internal/utils"
)

type fakeIdentity struct {
	user *auth.User
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{user: &auth.User{ID: "u-1", Email: "fox@example.com", DisplayName: "Fox", Provider: auth.ProviderPassword}}
}

func (f *fakeIdentity) SignIn(_ context.Context, email, password string) (*auth.User, error) {
	if email != f.user.Email || password != "secret-pw" {
		return nil, common.ErrUnauthorized
	}
	return f.user, nil
}

func (f *fakeIdentity) SignUp(_ context.Context, email, _, _ string) (*auth.User, error) {
	if email == f.user.Email {
		return nil, common.ErrAccountExists
	}
	return &auth.User{ID: "u-2", Email: email, Provider: auth.ProviderPassword}, nil
}

func (f *fakeIdentity) SignInWithGoogle(_ context.Context, code string) (*auth.User, error) {
	if code != "good-code" {
		return nil, errors.New("invalid_grant")
	}
	return &auth.User{ID: "g-1", Email: "fox@gmail.com", Provider: auth.ProviderGoogle}, nil
}

func (f *fakeIdentity) GoogleAuthURL(state string) (string, error) {
	return "https://accounts.example.com/auth?state=" + state, nil
}

func (f *fakeIdentity) Lookup(_ context.Context, userID string) (*auth.User, error) {
	if userID == f.user.ID {
		return f.user, nil
	}
	return nil, common.ErrNotFound
}

type fakeGenerator struct {
	mu      sync.Mutex
	calls   []string
	image   *genai.Image
	err     error
	started chan struct{}
	release chan struct{}
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{image: &genai.Image{Data: []byte{0xff, 0xd8, 0xff}, MIMEType: "image/jpeg"}}
}

func (g *fakeGenerator) GenerateImage(ctx context.Context, prompt string) (*genai.Image, error) {
	g.mu.Lock()
	g.calls = append(g.calls, prompt)
	started, release := g.started, g.release
	g.mu.Unlock()

	if started != nil {
		close(started)
	}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if g.err != nil {
		return nil, g.err
	}
	return g.image, nil
}

func (g *fakeGenerator) Close() error { return nil }

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

type storedObject struct {
	data        []byte
	contentType string
	createdAt   time.Time
}

type fakeStorage struct {
	mu        sync.Mutex
	objects   map[string]storedObject
	uploads   int
	uploadErr error
	urlErr    error
	listErr   error
	metaErr   error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string]storedObject)}
}

func (f *fakeStorage) seed(name string, createdAt time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[utils.ImageKey(name)] = storedObject{data: []byte("x"), contentType: "image/jpeg", createdAt: createdAt}
}

func (f *fakeStorage) Upload(_ context.Context, name string, dataURL string) (oss.ObjectRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.uploads++
	if f.uploadErr != nil {
		return oss.ObjectRef{}, f.uploadErr
	}
	data, contentType, err := utils.DecodeDataURL(dataURL)
	if err != nil {
		return oss.ObjectRef{}, err
	}
	createdAt, _ := utils.TimestampFromImageName(name)
	key := utils.ImageKey(name)
	f.objects[key] = storedObject{data: data, contentType: contentType, createdAt: createdAt}
	return oss.ObjectRef{Bucket: "gallery", Key: key}, nil
}

func (f *fakeStorage) GetURL(_ context.Context, ref oss.ObjectRef) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.urlErr != nil {
		return "", f.urlErr
	}
	if _, ok := f.objects[ref.Key]; !ok {
		return "", common.ErrNotFound
	}
	return objectURL(ref.Key), nil
}

func (f *fakeStorage) ListAll(_ context.Context, prefix string) ([]oss.ObjectRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.listErr != nil {
		return nil, f.listErr
	}
	refs := make([]oss.ObjectRef, 0, len(f.objects))
	for key := range f.objects {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			refs = append(refs, oss.ObjectRef{Bucket: "gallery", Key: key})
		}
	}
	return refs, nil
}

func (f *fakeStorage) GetMetadata(_ context.Context, ref oss.ObjectRef) (*oss.Metadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.metaErr != nil {
		return nil, f.metaErr
	}
	obj, ok := f.objects[ref.Key]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &oss.Metadata{CreatedAt: obj.createdAt, Size: int64(len(obj.data)), ContentType: obj.contentType}, nil
}

func objectURL(key string) string {
	return fmt.Sprintf("https://cdn.example.com/gallery/%s", key)
}
