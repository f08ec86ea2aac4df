package auth

import (
	"context"
	"sync"
)

// IdentityProvider 会话依赖的身份提供方
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (*User, error)
	SignUp(ctx context.Context, email, password, displayName string) (*User, error)
	SignInWithGoogle(ctx context.Context, code string) (*User, error)
	GoogleAuthURL(state string) (string, error)
	Lookup(ctx context.Context, userID string) (*User, error)
}

// Session 可观察的登录状态，每个浏览器会话或 stdio 进程一个
//
// 订阅者在订阅时立即收到当前用户，此后在每次登录、登出时收到新值（nil 表示未登录）。
type Session struct {
	provider IdentityProvider

	mu          sync.Mutex
	user        *User
	subscribers map[uint64]func(*User)
	nextID      uint64
}

// NewSession 创建未登录的会话
func NewSession(provider IdentityProvider) *Session {
	return &Session{
		provider:    provider,
		subscribers: make(map[uint64]func(*User)),
	}
}

// CurrentUser 当前用户，未登录返回 nil
func (s *Session) CurrentUser() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Subscribe 订阅登录状态变化，返回取消订阅函数
func (s *Session) Subscribe(onChange func(*User)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subscribers[id] = onChange
	current := s.user
	s.mu.Unlock()

	onChange(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
		})
	}
}

// SignIn 邮箱密码登录
func (s *Session) SignIn(ctx context.Context, email, password string) (*User, error) {
	user, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	s.set(user)
	return user, nil
}

// SignUp 注册并登录
func (s *Session) SignUp(ctx context.Context, email, password, displayName string) (*User, error) {
	user, err := s.provider.SignUp(ctx, email, password, displayName)
	if err != nil {
		return nil, err
	}
	s.set(user)
	return user, nil
}

// GoogleAuthURL Google 授权跳转地址
func (s *Session) GoogleAuthURL(state string) (string, error) {
	return s.provider.GoogleAuthURL(state)
}

// SignInWithGoogle 用授权码完成 Google 登录
func (s *Session) SignInWithGoogle(ctx context.Context, code string) (*User, error) {
	user, err := s.provider.SignInWithGoogle(ctx, code)
	if err != nil {
		return nil, err
	}
	s.set(user)
	return user, nil
}

// SignOut 登出
func (s *Session) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.set(nil)
	return nil
}

// Restore 按用户 ID 恢复登录状态（进程重启后由会话令牌携带）
func (s *Session) Restore(ctx context.Context, userID string) error {
	user, err := s.provider.Lookup(ctx, userID)
	if err != nil {
		return err
	}
	s.set(user)
	return nil
}

func (s *Session) set(user *User) {
	s.mu.Lock()
	s.user = user
	subscribers := make([]func(*User), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subscribers = append(subscribers, fn)
	}
	s.mu.Unlock()

	for _, fn := range subscribers {
		fn(user)
	}
}
