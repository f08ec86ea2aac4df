package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"genai-gallery/common"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var validate = validator.New()

// SignInRequest 邮箱密码登录参数
type SignInRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required,min=6"`
}

// SignUpRequest 注册参数
type SignUpRequest struct {
	Email       string `json:"email" form:"email" validate:"required,email"`
	Password    string `json:"password" form:"password" validate:"required,min=6"`
	DisplayName string `json:"display_name" form:"display_name" validate:"required,max=64"`
}

// Validate 校验请求参数
func Validate(req interface{}) error {
	return validate.Struct(req)
}

// Provider 身份提供方：密码账号 + Google 登录
type Provider struct {
	store  AccountStore
	google *GoogleOAuth
	now    func() time.Time
}

// NewProvider 创建身份提供方；google 为 nil 时禁用 Google 登录
func NewProvider(store AccountStore, google *GoogleOAuth) *Provider {
	return &Provider{store: store, google: google, now: time.Now}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignIn 邮箱密码登录，凭证错误统一返回 common.ErrUnauthorized
func (p *Provider) SignIn(ctx context.Context, email, password string) (*User, error) {
	req := SignInRequest{Email: normalizeEmail(email), Password: password}
	if err := Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUnauthorized, err)
	}

	account, err := p.store.FindByEmail(ctx, ProviderPassword, req.Email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, common.ErrUnauthorized
	}
	return account.User(), nil
}

// SignUp 注册密码账号并返回登录用户
func (p *Provider) SignUp(ctx context.Context, email, password, displayName string) (*User, error) {
	req := SignUpRequest{
		Email:       normalizeEmail(email),
		Password:    password,
		DisplayName: strings.TrimSpace(displayName),
	}
	if err := Validate(req); err != nil {
		return nil, fmt.Errorf("invalid sign-up request: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	id := uuid.New()
	account := &Account{
		ID:             id,
		Email:          req.Email,
		DisplayName:    req.DisplayName,
		Provider:       ProviderPassword,
		ProviderUserID: id.String(),
		PasswordHash:   string(hash),
		CreatedAt:      p.now().UTC(),
	}
	if err := p.store.Create(ctx, account); err != nil {
		return nil, err
	}

	common.WithFields(map[string]interface{}{
		"user_id":  account.ID.String(),
		"provider": account.Provider,
	}).Info("Account created")
	return account.User(), nil
}

// GoogleAuthURL 生成 Google 授权跳转地址
func (p *Provider) GoogleAuthURL(state string) (string, error) {
	if p.google == nil {
		return "", common.ErrGoogleDisabled
	}
	return p.google.AuthCodeURL(state), nil
}

// SignInWithGoogle 完成授权码交换，首次登录时创建账号
func (p *Provider) SignInWithGoogle(ctx context.Context, code string) (*User, error) {
	if p.google == nil {
		return nil, common.ErrGoogleDisabled
	}
	if code == "" {
		return nil, fmt.Errorf("%w: missing auth code", common.ErrUnauthorized)
	}

	profile, err := p.google.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	account, err := p.store.FindByProviderUserID(ctx, ProviderGoogle, profile.Subject)
	if err == nil {
		return account.User(), nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to load google account: %w", err)
	}

	displayName := profile.Name
	if displayName == "" {
		displayName = profile.Email
	}
	account = &Account{
		ID:             uuid.New(),
		Email:          normalizeEmail(profile.Email),
		DisplayName:    displayName,
		Provider:       ProviderGoogle,
		ProviderUserID: profile.Subject,
		CreatedAt:      p.now().UTC(),
	}
	if err := p.store.Create(ctx, account); err != nil {
		return nil, err
	}

	common.WithFields(map[string]interface{}{
		"user_id":  account.ID.String(),
		"provider": account.Provider,
	}).Info("Account created")
	return account.User(), nil
}

// Lookup 按用户 ID 读取用户，用于恢复会话
func (p *Provider) Lookup(ctx context.Context, userID string) (*User, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user id", common.ErrNotFound)
	}
	account, err := p.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return account.User(), nil
}
