package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"genai-gallery/common"
	"genai-gallery/internal/genai"
	"genai-gallery/internal/utils"
)

// 默认请求超时时间
const defaultTimeout = 60 * time.Second

// 错误响应体最多记录的字节数
const maxErrorBody = 1024

// Client Hugging Face Inference API 客户端
//
// 请求：POST {endpoint}，Authorization: Bearer {token}，body {"inputs": prompt}
// 响应：成功时 body 为图片二进制，Content-Type 为图片类型
type Client struct {
	httpClient *http.Client
	endpoint   string
	token      string
	timeout    time.Duration
}

// Config Hugging Face 客户端配置
type Config struct {
	Endpoint string // 模型推理地址，例如 https://api-inference.huggingface.co/models/XLabs-AI/flux-RealismLora
	Token    string // 访问令牌，只能来自环境变量
	Timeout  time.Duration

	// 可选：自定义 HTTP 客户端（测试用）
	HTTPClient *http.Client
}

// NewClientFromConfig 从通用配置创建客户端
func NewClientFromConfig(cfg *common.Config) (*Client, error) {
	return NewClient(Config{
		Endpoint: cfg.InferenceURL,
		Token:    cfg.InferenceAPIToken,
		Timeout:  cfg.GenAITimeout(),
	})
}

// NewClient 创建 Hugging Face 客户端
func NewClient(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("inference endpoint is required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("inference API token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		httpClient: httpClient,
		endpoint:   cfg.Endpoint,
		token:      cfg.Token,
		timeout:    timeout,
	}, nil
}

// Close 当前未持有需要显式关闭的资源
func (c *Client) Close() error {
	return nil
}

type inferenceRequest struct {
	Inputs string `json:"inputs"`
}

// GenerateImage 调用推理接口生成图片；非 2xx 返回 *genai.StatusError
func (c *Client) GenerateImage(ctx context.Context, prompt string) (*genai.Image, error) {
	common.WithFields(map[string]interface{}{
		"endpoint": c.endpoint,
		"prompt":   utils.TruncateForLog(prompt, 120),
	}).Info("Sending request to Hugging Face API")

	payload, err := json.Marshal(inferenceRequest{Inputs: prompt})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	if _, ok := ctx.Deadline(); !ok && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		common.WithError(err).WithField("endpoint", c.endpoint).Error("Hugging Face request failed")
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	common.WithField("status_code", resp.StatusCode).Debug("API response received")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		common.WithFields(map[string]interface{}{
			"status_code": resp.StatusCode,
			"endpoint":    c.endpoint,
			"body":        string(body),
		}).Error("Hugging Face API returned non-success status")
		return nil, &genai.StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	image := &genai.Image{
		Data:     data,
		MIMEType: utils.NormalizeMimeType(resp.Header.Get("Content-Type")),
	}
	common.WithFields(map[string]interface{}{
		"mime_type": image.MIMEType,
		"size":      len(data),
	}).Debug("Image blob received")
	return image, nil
}
