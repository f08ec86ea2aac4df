package utils

import (
	"encoding/base64"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// ImagePrefix 所有生成图片所在的对象存储命名空间
const ImagePrefix = "images/"

const (
	generatedNamePrefix = "generated_"
	generatedNameExt    = ".jpg"
)

// GenerateImageName 根据生成时间构造图片名：generated_{unix 毫秒}.jpg
func GenerateImageName(now time.Time) string {
	return fmt.Sprintf("%s%d%s", generatedNamePrefix, now.UnixMilli(), generatedNameExt)
}

// TimestampFromImageName 从图片名中解析生成时间，名称不符合约定时返回 false
func TimestampFromImageName(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, generatedNamePrefix) || !strings.HasSuffix(name, generatedNameExt) {
		return time.Time{}, false
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(name, generatedNamePrefix), generatedNameExt)
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// ImageKey 返回图片在对象存储中的完整 key：images/{name}
func ImageKey(name string) string {
	return ImagePrefix + name
}

// NameFromKey 返回 key 的最后一段
func NameFromKey(key string) string {
	return path.Base(key)
}

// EncodeDataURL 将图片二进制编码为 data URL
func EncodeDataURL(data []byte, mimeType string) string {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

// DecodeDataURL 解析 base64 data URL，返回原始数据和 MIME 类型
func DecodeDataURL(dataURL string) ([]byte, string, error) {
	if !strings.HasPrefix(dataURL, "data:") {
		return nil, "", fmt.Errorf("invalid data URL: missing data: scheme")
	}
	parts := strings.SplitN(dataURL, ",", 2)
	if len(parts) != 2 {
		return nil, "", fmt.Errorf("invalid data URL format")
	}
	header := strings.TrimPrefix(parts[0], "data:")
	if !strings.HasSuffix(header, ";base64") {
		return nil, "", fmt.Errorf("invalid data URL: only base64 payloads are supported")
	}
	mimeType := strings.TrimSuffix(header, ";base64")
	if mimeType == "" {
		mimeType = "text/plain"
	}

	data, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode base64 data: %w", err)
	}
	return data, mimeType, nil
}

// NormalizeMimeType 去掉参数部分并转为小写，例如 "image/JPEG; q=1" -> "image/jpeg"
func NormalizeMimeType(contentType string) string {
	mt := strings.TrimSpace(strings.ToLower(contentType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if mt == "" {
		return "image/jpeg"
	}
	return mt
}

// TruncateForLog 截断长字符串用于日志，避免打印过长内容（如 base64）。
// max 按字节计算，截断点落在 UTF-8 字符边界上。
func TruncateForLog(s string, max int) string {
	if len(s) <= max {
		return s
	}
	suffix := "..."
	if max <= len(suffix) {
		suffix = ""
	}
	cut := max - len(suffix)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + suffix
}
