package oss

import (
	"context"
	"time"

	"genai-gallery/internal/utils"
)

// ObjectRef 对象存储中一个对象的引用
type ObjectRef struct {
	Bucket string
	Key    string
}

// Name 返回对象名（key 的最后一段）
func (r ObjectRef) Name() string {
	return utils.NameFromKey(r.Key)
}

// Metadata 对象元数据
type Metadata struct {
	CreatedAt   time.Time
	Size        int64
	ContentType string
}

// OSSIface OSS 客户端接口
type OSSIface interface {
	// Upload 将 data URL 解码后存储为 images/{name}
	Upload(ctx context.Context, name string, dataURL string) (ObjectRef, error)

	// GetURL 返回对象的访问 URL，对象不存在时返回 common.ErrNotFound
	GetURL(ctx context.Context, ref ObjectRef) (string, error)

	// ListAll 列出前缀下的全部对象，不做分页
	ListAll(ctx context.Context, prefix string) ([]ObjectRef, error)

	// GetMetadata 获取对象元数据
	GetMetadata(ctx context.Context, ref ObjectRef) (*Metadata, error)
}
