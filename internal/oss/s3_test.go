package oss

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"genai-gallery/common"
	"genai-gallery/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storedObject struct {
	contentType string
	size        int
	modified    time.Time
}

// fakeS3 一个只支持 PUT / HEAD / ListObjectsV2 的 path-style S3 服务
type fakeS3 struct {
	mu      sync.Mutex
	bucket  string
	objects map[string]storedObject
}

func newFakeS3(bucket string) *fakeS3 {
	return &fakeS3{bucket: bucket, objects: map[string]storedObject{}}
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/"+f.bucket)
	key := strings.TrimPrefix(path, "/")

	switch {
	case r.Method == http.MethodPut && key != "":
		body, _ := io.ReadAll(r.Body)
		f.objects[key] = storedObject{
			contentType: r.Header.Get("Content-Type"),
			size:        len(body),
			modified:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		}
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodHead && key != "":
		obj, ok := f.objects[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", obj.contentType)
		w.Header().Set("Content-Length", strconv.Itoa(obj.size))
		w.Header().Set("Last-Modified", obj.modified.Format(http.TimeFormat))
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodGet && key == "" && r.URL.Query().Get("list-type") == "2":
		prefix := r.URL.Query().Get("prefix")
		var sb strings.Builder
		sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
		sb.WriteString(`<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">`)
		sb.WriteString("<Name>" + f.bucket + "</Name><Prefix>" + prefix + "</Prefix><IsTruncated>false</IsTruncated>")
		for k, obj := range f.objects {
			if !strings.HasPrefix(k, prefix) {
				continue
			}
			sb.WriteString("<Contents><Key>" + k + "</Key><LastModified>" +
				obj.modified.Format("2006-01-02T15:04:05.000Z") + "</LastModified><Size>" +
				strconv.Itoa(obj.size) + "</Size></Contents>")
		}
		sb.WriteString("</ListBucketResult>")
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(sb.String()))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestClient(t *testing.T, publicURLs bool) (*S3Client, *fakeS3, *httptest.Server) {
	t.Helper()
	fake := newFakeS3("gallery")
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := NewS3Client(S3Config{
		Endpoint:     srv.URL,
		Region:       "us-east-1",
		AccessKey:    "test-access",
		SecretKey:    "test-secret",
		Bucket:       "gallery",
		UsePathStyle: true,
		PublicURLs:   publicURLs,
		URLTTL:       time.Hour,
	})
	require.NoError(t, err)
	return client, fake, srv
}

func TestS3Client_UploadListAndMetadata(t *testing.T) {
	client, fake, _ := newTestClient(t, false)
	ctx := context.Background()

	dataURL := utils.EncodeDataURL([]byte("fake-jpeg-bytes"), "image/jpeg")
	ref, err := client.Upload(ctx, "generated_1714564800000.jpg", dataURL)
	require.NoError(t, err)
	assert.Equal(t, ObjectRef{Bucket: "gallery", Key: "images/generated_1714564800000.jpg"}, ref)
	assert.Equal(t, "generated_1714564800000.jpg", ref.Name())

	fake.mu.Lock()
	stored, ok := fake.objects["images/generated_1714564800000.jpg"]
	fake.mu.Unlock()
	require.True(t, ok)
	assert.Equal(t, "image/jpeg", stored.contentType)

	refs, err := client.ListAll(ctx, utils.ImagePrefix)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, ref, refs[0])

	meta, err := client.GetMetadata(ctx, ref)
	require.NoError(t, err)
	assert.True(t, meta.CreatedAt.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, "image/jpeg", meta.ContentType)
}

func TestS3Client_GetURL(t *testing.T) {
	client, _, srv := newTestClient(t, false)
	ctx := context.Background()

	ref, err := client.Upload(ctx, "generated_1.jpg", utils.EncodeDataURL([]byte{1, 2, 3}, "image/png"))
	require.NoError(t, err)

	url, err := client.GetURL(ctx, ref)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, srv.URL+"/gallery/images/generated_1.jpg?"), url)
	assert.Contains(t, url, "X-Amz-Signature=")
	assert.Contains(t, url, "X-Amz-Expires=3600")
}

func TestS3Client_GetURLPublic(t *testing.T) {
	client, _, srv := newTestClient(t, true)
	ctx := context.Background()

	ref, err := client.Upload(ctx, "generated_2.jpg", utils.EncodeDataURL([]byte{1}, "image/jpeg"))
	require.NoError(t, err)

	url, err := client.GetURL(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/gallery/images/generated_2.jpg", url)
}

func TestS3Client_MissingObject(t *testing.T) {
	client, _, _ := newTestClient(t, false)
	ctx := context.Background()
	ref := ObjectRef{Bucket: "gallery", Key: "images/missing.jpg"}

	_, err := client.GetURL(ctx, ref)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrNotFound), err.Error())

	_, err = client.GetMetadata(ctx, ref)
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestS3Client_UploadRejectsInvalidPayload(t *testing.T) {
	client, fake, _ := newTestClient(t, false)

	_, err := client.Upload(context.Background(), "generated_3.jpg", "not-a-data-url")
	require.Error(t, err)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Empty(t, fake.objects)
}

func TestBuildObjectURL(t *testing.T) {
	tests := []struct {
		name   string
		client S3Client
		want   string
	}{
		{
			name:   "virtual host endpoint",
			client: S3Client{endpoint: "https://oss-cn-beijing.aliyuncs.com"},
			want:   "https://b.oss-cn-beijing.aliyuncs.com/images/a.jpg",
		},
		{
			name:   "path style endpoint",
			client: S3Client{endpoint: "http://localhost:9000", pathStyle: true},
			want:   "http://localhost:9000/b/images/a.jpg",
		},
		{
			name:   "regional aws",
			client: S3Client{region: "eu-west-1"},
			want:   "https://b.s3.eu-west-1.amazonaws.com/images/a.jpg",
		},
		{
			name:   "global aws",
			client: S3Client{},
			want:   "https://b.s3.amazonaws.com/images/a.jpg",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.client.buildObjectURL("b", "images/a.jpg"))
		})
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	assert.Equal(t, "", normalizeEndpoint(""))
	assert.Equal(t, "https://s3.amazonaws.com", normalizeEndpoint("s3.amazonaws.com"))
	assert.Equal(t, "http://localhost:9000", normalizeEndpoint("http://localhost:9000/"))
}
