package gemini

import (
	"context"
	"fmt"
	"time"

	"genai-gallery/common"
	"genai-gallery/internal/genai"
	"genai-gallery/internal/utils"

	googlegenai "google.golang.org/genai"
)

// 默认请求超时时间
const defaultGenAITimeout = 60 * time.Second

// Client Gemini 文生图客户端
type Client struct {
	models  contentGenerator
	model   string
	timeout time.Duration
}

// contentGenerator 对应 googlegenai.Models 中用到的方法，便于测试替换
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*googlegenai.Content, config *googlegenai.GenerateContentConfig) (*googlegenai.GenerateContentResponse, error)
}

// Config Gemini 客户端配置
type Config struct {
	APIKey    string        // API Key
	BaseURL   string        // 自定义 Base URL，如果为空则使用默认值
	ModelName string        // 模型名称，例如 gemini-2.5-flash-image
	Timeout   time.Duration // 请求超时时间
}

// NewClientFromConfig 从通用配置创建 Gemini 客户端
func NewClientFromConfig(cfg *common.Config) (*Client, error) {
	return NewClient(Config{
		APIKey:    cfg.GenAIAPIKey,
		BaseURL:   cfg.GenAIBaseURL,
		ModelName: cfg.GenAIGenModelName,
		Timeout:   cfg.GenAITimeout(),
	})
}

// NewClient 创建新的 Gemini 客户端
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("model name is required")
	}

	clientConfig := &googlegenai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: googlegenai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = googlegenai.HTTPOptions{
			BaseURL: cfg.BaseURL,
		}
	}

	client, err := googlegenai.NewClient(context.Background(), clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return newClient(client.Models, cfg.ModelName, cfg.Timeout), nil
}

func newClient(models contentGenerator, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultGenAITimeout
	}
	return &Client{
		models:  models,
		model:   model,
		timeout: timeout,
	}
}

// Close genai.Client 不需要显式关闭
func (c *Client) Close() error {
	return nil
}

// GenerateImage 文生图：返回响应中的第一张内联图片
func (c *Client) GenerateImage(ctx context.Context, prompt string) (*genai.Image, error) {
	common.WithFields(map[string]interface{}{
		"model":  c.model,
		"prompt": utils.TruncateForLog(prompt, 120),
	}).Debug("Starting image generation")

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.models.GenerateContent(ctx, c.model, []*googlegenai.Content{
		{Parts: []*googlegenai.Part{{Text: prompt}}},
	}, nil)
	if err != nil {
		common.WithError(err).WithField("model", c.model).Error("Failed to generate image from Gemini API")
		return nil, fmt.Errorf("failed to generate image: %w", err)
	}

	if result == nil || len(result.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates in response")
	}
	candidate := result.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, fmt.Errorf("no content in candidate")
	}

	for _, part := range candidate.Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			common.WithFields(map[string]interface{}{
				"model":     c.model,
				"mime_type": part.InlineData.MIMEType,
				"size":      len(part.InlineData.Data),
			}).Debug("Image generated successfully")
			return &genai.Image{
				Data:     part.InlineData.Data,
				MIMEType: utils.NormalizeMimeType(part.InlineData.MIMEType),
			}, nil
		}
	}

	common.WithField("model", c.model).Error("No image data found in Gemini response")
	return nil, fmt.Errorf("no image data found in response")
}
