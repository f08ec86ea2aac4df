package oss

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"genai-gallery/common"
	"genai-gallery/internal/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

const defaultURLTTL = 7 * 24 * time.Hour

// S3Client S3 兼容的 OSS 客户端实现
type S3Client struct {
	client     *s3.Client
	presigner  *s3.PresignClient
	httpClient *http.Client
	endpoint   string
	region     string
	bucket     string
	pathStyle  bool
	publicURLs bool
	urlTTL     time.Duration
}

// S3Config S3 客户端配置
type S3Config struct {
	Endpoint     string // 服务端点，例如 s3.amazonaws.com、oss-cn-hangzhou.aliyuncs.com 或 http://localhost:9000
	Region       string // 区域，例如 us-east-1
	AccessKey    string // Access Key ID，留空时使用默认凭证链
	SecretKey    string // Secret Access Key
	Bucket       string // 存储桶
	UsePathStyle bool   // MinIO 等服务需要 path-style 访问
	PublicURLs   bool   // 返回公开 URL 而不是预签名 URL
	URLTTL       time.Duration
}

// NewS3Client 创建新的 S3 客户端
func NewS3Client(cfg S3Config) (*S3Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("oss bucket is required")
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	endpoint := normalizeEndpoint(cfg.Endpoint)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	ttl := cfg.URLTTL
	if ttl <= 0 {
		ttl = defaultURLTTL
	}

	return &S3Client{
		client:     client,
		presigner:  s3.NewPresignClient(client),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		endpoint:   endpoint,
		region:     cfg.Region,
		bucket:     cfg.Bucket,
		pathStyle:  cfg.UsePathStyle,
		publicURLs: cfg.PublicURLs,
		urlTTL:     ttl,
	}, nil
}

// normalizeEndpoint 没有协议头的端点默认使用 https
func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimRight(endpoint, "/")
	if endpoint == "" {
		return ""
	}
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return "https://" + endpoint
}

// Upload 上传 data URL 形式的图片到 images/{name}
func (c *S3Client) Upload(ctx context.Context, name string, dataURL string) (ObjectRef, error) {
	key := utils.ImageKey(name)
	ref := ObjectRef{Bucket: c.bucket, Key: key}

	body, contentType, err := utils.DecodeDataURL(dataURL)
	if err != nil {
		common.WithError(err).WithField("key", key).Error("Failed to decode data URL for upload")
		return ObjectRef{}, fmt.Errorf("failed to decode upload payload: %w", err)
	}

	common.WithFields(map[string]interface{}{
		"bucket":       c.bucket,
		"key":          key,
		"content_type": contentType,
		"size":         len(body),
	}).Debug("Starting file upload to OSS")

	// 阿里云 OSS 不支持 SDK PutObject 的 aws-chunked 编码，改用预签名 PUT URL 上传
	if strings.Contains(c.endpoint, ".aliyuncs.com") {
		err = c.putViaPresignedURL(ctx, key, body, contentType)
	} else {
		_, err = c.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(c.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(body),
			ContentType: aws.String(contentType),
		})
	}
	if err != nil {
		common.WithError(err).WithFields(map[string]interface{}{
			"bucket": c.bucket,
			"key":    key,
			"size":   len(body),
		}).Error("Failed to upload file to OSS")
		return ObjectRef{}, fmt.Errorf("failed to upload file: %w", err)
	}

	common.WithFields(map[string]interface{}{
		"bucket": c.bucket,
		"key":    key,
		"size":   len(body),
	}).Info("File uploaded to OSS successfully")
	return ref, nil
}

// putViaPresignedURL 使用预签名 PUT URL + 原生 HTTP 客户端上传（标准 Content-Length）
func (c *S3Client) putViaPresignedURL(ctx context.Context, key string, body []byte, contentType string) error {
	presigned, err := c.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to presign PUT URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, presigned.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	for k, v := range presigned.SignedHeader {
		for _, hv := range v {
			req.Header.Add(k, hv)
		}
	}
	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upload file via presigned PUT: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("OSS upload failed: status code %d, body: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// GetURL 确认对象存在后返回访问 URL
func (c *S3Client) GetURL(ctx context.Context, ref ObjectRef) (string, error) {
	if _, err := c.head(ctx, ref); err != nil {
		return "", err
	}

	if c.publicURLs {
		return c.buildObjectURL(ref.Bucket, ref.Key), nil
	}

	request, err := c.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(ref.Bucket),
		Key:    aws.String(ref.Key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = c.urlTTL
	})
	if err != nil {
		common.WithError(err).WithFields(map[string]interface{}{
			"bucket": ref.Bucket,
			"key":    ref.Key,
		}).Error("Failed to generate signed URL")
		return "", fmt.Errorf("failed to presign URL: %w", err)
	}
	return request.URL, nil
}

// ListAll 列出前缀下的对象；只发起一次请求，结果被截断时仅记录警告
func (c *S3Client) ListAll(ctx context.Context, prefix string) ([]ObjectRef, error) {
	out, err := c.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		common.WithError(err).WithFields(map[string]interface{}{
			"bucket": c.bucket,
			"prefix": prefix,
		}).Error("Failed to list OSS objects")
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}

	if aws.ToBool(out.IsTruncated) {
		common.WithFields(map[string]interface{}{
			"bucket":    c.bucket,
			"prefix":    prefix,
			"key_count": aws.ToInt32(out.KeyCount),
		}).Warn("OSS listing truncated, remaining objects are not shown")
	}

	refs := make([]ObjectRef, 0, len(out.Contents))
	for _, obj := range out.Contents {
		key := aws.ToString(obj.Key)
		// 目录占位对象
		if key == "" || strings.HasSuffix(key, "/") {
			continue
		}
		refs = append(refs, ObjectRef{Bucket: c.bucket, Key: key})
	}
	return refs, nil
}

// GetMetadata 获取对象的创建时间、大小和类型
func (c *S3Client) GetMetadata(ctx context.Context, ref ObjectRef) (*Metadata, error) {
	out, err := c.head(ctx, ref)
	if err != nil {
		return nil, err
	}
	return &Metadata{
		CreatedAt:   aws.ToTime(out.LastModified),
		Size:        aws.ToInt64(out.ContentLength),
		ContentType: aws.ToString(out.ContentType),
	}, nil
}

func (c *S3Client) head(ctx context.Context, ref ObjectRef) (*s3.HeadObjectOutput, error) {
	out, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(ref.Bucket),
		Key:    aws.String(ref.Key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("object %s/%s: %w", ref.Bucket, ref.Key, common.ErrNotFound)
		}
		common.WithError(err).WithFields(map[string]interface{}{
			"bucket": ref.Bucket,
			"key":    ref.Key,
		}).Error("Failed to head OSS object")
		return nil, fmt.Errorf("failed to head object: %w", err)
	}
	return out, nil
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

// buildObjectURL 构造对象的公开 URL（不带签名）
func (c *S3Client) buildObjectURL(bucket, key string) string {
	if c.endpoint != "" && c.pathStyle {
		return fmt.Sprintf("%s/%s/%s", c.endpoint, bucket, key)
	}
	if c.endpoint != "" {
		scheme, host, _ := strings.Cut(c.endpoint, "://")
		return fmt.Sprintf("%s://%s.%s/%s", scheme, bucket, host, key)
	}
	if c.region != "" {
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, c.region, key)
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", bucket, key)
}
