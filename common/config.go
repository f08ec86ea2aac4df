package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// 默认的 Hugging Face 推理端点
const DefaultInferenceURL = "https://api-inference.huggingface.co/models/XLabs-AI/flux-RealismLora"

// Config 应用配置结构
type Config struct {
	// 运行模式: http（网页 + JSON API）或 stdio（MCP 工具）
	ServerMode    string
	ServerAddress string
	ServerPort    string

	// GenAI 提供方: huggingface 或 gemini
	GenAIProvider string
	// Hugging Face 推理端点与令牌（令牌只能来自环境变量）
	InferenceURL      string
	InferenceAPIToken string
	// Gemini 配置
	GenAIBaseURL      string
	GenAIAPIKey       string
	GenAIGenModelName string
	// GenAI 请求超时时间（秒）
	GenAITimeoutSeconds int

	// OSS 配置
	OSSEndpoint      string
	OSSRegion        string
	OSSAccessKey     string
	OSSSecretKey     string
	OSSBucket        string
	OSSUsePathStyle  bool
	OSSPublicURLs    bool
	OSSURLTTLSeconds int

	// 身份认证配置
	AuthSecret         string
	SessionIdleMinutes int
	DatabaseURL        string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// 日志配置
	LogLevel  string // 日志级别: debug, info, warn, error
	LogFormat string // 日志格式: json, text
	LogOutput string // 输出位置: stdout, stderr, file
	LogFile   string // 日志文件路径（当 LogOutput 为 file 时）
}

// LoadConfig 从 .env 文件加载配置
func LoadConfig() (*Config, error) {
	// 加载 .env 文件（如果存在）
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "Warning: .env file not found, using environment variables")
	}

	config := configFromEnv()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// 初始化日志系统
	logConfig := &LogConfig{
		Level:    config.LogLevel,
		Format:   config.LogFormat,
		Output:   config.LogOutput,
		FilePath: config.LogFile,
	}
	// stdio 模式下 stdout 属于 MCP 协议，日志不能写到 stdout
	if config.ServerMode == "stdio" && strings.EqualFold(logConfig.Output, "stdout") {
		logConfig.Output = "stderr"
	}
	if err := InitLogger(logConfig); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return config, nil
}

func configFromEnv() *Config {
	return &Config{
		ServerMode:    strings.ToLower(getEnv("SERVER_MODE", "http")),
		ServerAddress: getEnv("SERVER_ADDRESS", "0.0.0.0"),
		ServerPort:    getEnv("SERVER_PORT", "8080"),

		GenAIProvider:       strings.ToLower(getEnv("GENAI_PROVIDER", "huggingface")),
		InferenceURL:        getEnv("INFERENCE_URL", DefaultInferenceURL),
		InferenceAPIToken:   getEnv("INFERENCE_API_TOKEN", ""),
		GenAIBaseURL:        getEnv("GENAI_BASE_URL", ""),
		GenAIAPIKey:         getEnv("GENAI_API_KEY", ""),
		GenAIGenModelName:   getEnv("GENAI_GEN_MODEL_NAME", "gemini-2.5-flash-image"),
		GenAITimeoutSeconds: getEnvInt("GENAI_TIMEOUT_SECONDS", 60),

		OSSEndpoint:      getEnv("OSS_ENDPOINT", ""),
		OSSRegion:        getEnv("OSS_REGION", "us-east-1"),
		OSSAccessKey:     getEnv("OSS_ACCESS_KEY", ""),
		OSSSecretKey:     getEnv("OSS_SECRET_KEY", ""),
		OSSBucket:        getEnv("OSS_BUCKET", ""),
		OSSUsePathStyle:  getEnvBool("OSS_USE_PATH_STYLE", false),
		OSSPublicURLs:    getEnvBool("OSS_PUBLIC_URLS", false),
		OSSURLTTLSeconds: getEnvInt("OSS_URL_TTL_SECONDS", 3600*24*7),

		AuthSecret:         getEnv("AUTH_SECRET", ""),
		SessionIdleMinutes: getEnvInt("SESSION_IDLE_MINUTES", 60),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
		LogOutput: getEnv("LOG_OUTPUT", "stdout"),
		LogFile:   getEnv("LOG_FILE", ""),
	}
}

// Validate 校验必需的配置
func (c *Config) Validate() error {
	switch c.ServerMode {
	case "http", "stdio":
	default:
		return fmt.Errorf("unsupported SERVER_MODE: %s", c.ServerMode)
	}

	switch c.GenAIProvider {
	case "huggingface":
		if c.InferenceAPIToken == "" {
			return fmt.Errorf("INFERENCE_API_TOKEN is required when GENAI_PROVIDER=huggingface")
		}
		if c.InferenceURL == "" {
			return fmt.Errorf("INFERENCE_URL is required when GENAI_PROVIDER=huggingface")
		}
	case "gemini":
		if c.GenAIAPIKey == "" {
			return fmt.Errorf("GENAI_API_KEY is required when GENAI_PROVIDER=gemini")
		}
	default:
		return fmt.Errorf("unsupported GENAI_PROVIDER: %s", c.GenAIProvider)
	}

	if c.OSSBucket == "" {
		return fmt.Errorf("OSS_BUCKET is required")
	}
	// 会话 cookie 的签名密钥，stdio 模式不签发 cookie
	if c.ServerMode == "http" && len(c.AuthSecret) < 16 {
		return fmt.Errorf("AUTH_SECRET must be at least 16 characters")
	}
	return nil
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool 获取布尔类型环境变量
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes" || value == "on"
}

// getEnvInt 获取整型环境变量
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if i, err := strconv.Atoi(value); err == nil {
		return i
	}
	return defaultValue
}

// GetServerAddr 返回完整的服务器地址
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.ServerAddress, c.ServerPort)
}

// GenAITimeout 返回单次推理请求的超时时间
func (c *Config) GenAITimeout() time.Duration {
	return time.Duration(c.GenAITimeoutSeconds) * time.Second
}

// SessionIdleTimeout 返回浏览器会话的空闲回收时间
func (c *Config) SessionIdleTimeout() time.Duration {
	return time.Duration(c.SessionIdleMinutes) * time.Minute
}

// GoogleEnabled 是否配置了 Google 登录
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}

// MaskSecret 隐藏密钥的敏感部分，用于日志输出
func MaskSecret(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}
