package studio

import (
	"context"
	"errors"
	"sync"
	"time"

	"genai-gallery/common"
	"genai-gallery/internal/auth"
	"genai-gallery/internal/genai"
	"genai-gallery/internal/oss"
)

// ModalMode 登录弹窗模式
type ModalMode string

const (
	ModalLogin  ModalMode = "login"
	ModalSignUp ModalMode = "signup"
)

// GeneratedImage 一张已保存的生成图片
type GeneratedImage struct {
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
	Name      string    `json:"name"`
}

// Modal 登录/注册弹窗状态
type Modal struct {
	Visible bool      `json:"visible"`
	Mode    ModalMode `json:"mode"`
	Error   string    `json:"error,omitempty"`
}

// ViewState 页面渲染所需的全部状态快照
type ViewState struct {
	User           *auth.User       `json:"user"`
	Prompt         string           `json:"prompt"`
	Phase          Phase            `json:"phase"`
	Loading        bool             `json:"loading"`
	Error          string           `json:"error,omitempty"`
	GeneratedImage *GeneratedImage  `json:"generated_image,omitempty"`
	Gallery        []GeneratedImage `json:"gallery"`
	GalleryLoading bool             `json:"gallery_loading"`
	GalleryError   string           `json:"gallery_error,omitempty"`
	Modal          Modal            `json:"modal"`
}

// Deps Studio 依赖
type Deps struct {
	Session   *auth.Session
	Generator genai.ImageGenerator
	Storage   oss.OSSIface
	Metrics   *Metrics         // 可选
	Now       func() time.Time // 可选，默认 time.Now
}

// Studio 一个用户会话的生成流程、图库流程和视图状态
//
// 状态由互斥锁保护，所有网络调用都在锁外进行。
type Studio struct {
	session   *auth.Session
	generator genai.ImageGenerator
	storage   oss.OSSIface
	metrics   *Metrics
	now       func() time.Time

	mu             sync.Mutex
	state          ViewState
	galleryVersion uint64

	unsubscribe func()
}

// New 创建 Studio 并订阅登录状态
func New(deps Deps) *Studio {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	s := &Studio{
		session:   deps.Session,
		generator: deps.Generator,
		storage:   deps.Storage,
		metrics:   deps.Metrics,
		now:       now,
		state: ViewState{
			Phase:   PhaseIdle,
			Gallery: []GeneratedImage{},
			Modal:   Modal{Mode: ModalLogin},
		},
	}
	s.unsubscribe = deps.Session.Subscribe(s.onAuthChange)
	return s
}

// Close 取消登录状态订阅
func (s *Studio) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// Session 返回该 Studio 的登录会话
func (s *Studio) Session() *auth.Session {
	return s.session
}

func (s *Studio) onAuthChange(user *auth.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.User = user
	if user != nil {
		s.state.Modal = Modal{Mode: ModalLogin}
		if s.state.Phase == PhaseBlocked {
			s.state.Error = ""
		}
	}
}

// State 返回当前视图状态的副本
func (s *Studio) State() ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.state
	if s.state.User != nil {
		user := *s.state.User
		state.User = &user
	}
	if s.state.GeneratedImage != nil {
		img := *s.state.GeneratedImage
		state.GeneratedImage = &img
	}
	state.Gallery = make([]GeneratedImage, len(s.state.Gallery))
	copy(state.Gallery, s.state.Gallery)
	return state
}

// SetPrompt 更新提示词
func (s *Studio) SetPrompt(prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Prompt = prompt
}

// OpenLogin 打开登录弹窗
func (s *Studio) OpenLogin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Modal = Modal{Visible: true, Mode: ModalLogin}
}

// CloseModal 关闭弹窗并清除弹窗错误
func (s *Studio) CloseModal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Modal = Modal{Mode: s.state.Modal.Mode}
}

// ToggleModalMode 在登录和注册之间切换
func (s *Studio) ToggleModalMode() {
	s.mu.Lock()
	defer s.mu.Unlock()

	mode := ModalSignUp
	if s.state.Modal.Mode == ModalSignUp {
		mode = ModalLogin
	}
	s.state.Modal = Modal{Visible: s.state.Modal.Visible, Mode: mode}
}

func (s *Studio) failModal(mode ModalMode, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Modal = Modal{Visible: true, Mode: mode, Error: message}
}

// SignIn 邮箱密码登录，失败时在弹窗中显示错误
func (s *Studio) SignIn(ctx context.Context, email, password string) error {
	if _, err := s.session.SignIn(ctx, email, password); err != nil {
		common.WithError(err).WithField("email", email).Warn("Sign-in failed")
		s.failModal(ModalLogin, common.MsgSignInFailed)
		return err
	}
	return nil
}

// SignUp 注册并登录
func (s *Studio) SignUp(ctx context.Context, email, password, displayName string) error {
	if _, err := s.session.SignUp(ctx, email, password, displayName); err != nil {
		common.WithError(err).WithField("email", email).Warn("Sign-up failed")
		message := common.MsgSignUpFailed
		if errors.Is(err, common.ErrAccountExists) {
			message = common.MsgAccountExists
		}
		s.failModal(ModalSignUp, message)
		return err
	}
	return nil
}

// GoogleAuthURL Google 授权跳转地址
func (s *Studio) GoogleAuthURL(state string) (string, error) {
	url, err := s.session.GoogleAuthURL(state)
	if err != nil {
		common.WithError(err).Warn("Google sign-in unavailable")
		s.failModal(ModalLogin, common.MsgGoogleSignInFailed)
		return "", err
	}
	return url, nil
}

// SignInWithGoogle 完成 Google 登录
func (s *Studio) SignInWithGoogle(ctx context.Context, code string) error {
	if _, err := s.session.SignInWithGoogle(ctx, code); err != nil {
		common.WithError(err).Warn("Google sign-in failed")
		s.failModal(ModalLogin, common.MsgGoogleSignInFailed)
		return err
	}
	return nil
}

// GoogleSignInCancelled 用户在 Google 授权页取消或授权出错
func (s *Studio) GoogleSignInCancelled(reason string) {
	common.WithField("reason", reason).Info("Google sign-in cancelled")
	s.failModal(ModalLogin, common.MsgGoogleSignInFailed)
}

// SignOut 登出
func (s *Studio) SignOut(ctx context.Context) error {
	if err := s.session.SignOut(ctx); err != nil {
		common.WithError(err).Warn("Sign-out failed")
		s.mu.Lock()
		s.state.Error = common.MsgSignOutFailed
		s.mu.Unlock()
		return err
	}
	return nil
}
