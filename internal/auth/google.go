package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"genai-gallery/common"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// GoogleProfile Google 用户信息
type GoogleProfile struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// GoogleOAuth Google 授权码登录
type GoogleOAuth struct {
	config      *oauth2.Config
	userInfoURL string
}

// NewGoogleOAuthFromConfig 从通用配置创建；未配置时返回 nil
func NewGoogleOAuthFromConfig(cfg *common.Config) *GoogleOAuth {
	if !cfg.GoogleEnabled() {
		return nil
	}
	return NewGoogleOAuth(&oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     google.Endpoint,
	}, googleUserInfoURL)
}

// NewGoogleOAuth 使用自定义 oauth2 配置和用户信息地址创建
func NewGoogleOAuth(config *oauth2.Config, userInfoURL string) *GoogleOAuth {
	return &GoogleOAuth{config: config, userInfoURL: userInfoURL}
}

// AuthCodeURL 生成授权跳转地址
func (g *GoogleOAuth) AuthCodeURL(state string) string {
	return g.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange 用授权码换取令牌并读取用户信息
func (g *GoogleOAuth) Exchange(ctx context.Context, code string) (*GoogleProfile, error) {
	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange google auth code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create userinfo request: %w", err)
	}
	resp, err := g.config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("userinfo returned status %d: %s", resp.StatusCode, string(body))
	}

	var profile GoogleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo: %w", err)
	}
	if profile.Subject == "" {
		return nil, fmt.Errorf("userinfo response has no subject")
	}
	return &profile, nil
}
