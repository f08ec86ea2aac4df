package genai

import (
	"context"
	"fmt"
)

// Image 推理服务返回的图片
type Image struct {
	Data     []byte
	MIMEType string
}

// ImageGenerator 文生图客户端接口
type ImageGenerator interface {
	// GenerateImage 根据文本提示生成一张图片，单次请求，不重试
	GenerateImage(ctx context.Context, prompt string) (*Image, error)
	Close() error
}

// StatusError 推理服务返回非 2xx 状态码
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error! status: %d", e.StatusCode)
}
