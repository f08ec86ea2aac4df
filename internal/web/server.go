package web

import (
	"embed"
	"html/template"
	"time"

	"genai-gallery/common"
	"genai-gallery/internal/auth"
	"genai-gallery/internal/studio"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	sessionCookie    = "gallery_session"
	oauthStateCookie = "gallery_oauth_state"
	localsStudio     = "studio"
)

// Config HTTP 视图层配置
type Config struct {
	Registry      *Registry
	Signer        *auth.TokenSigner
	Metrics       *prometheus.Registry
	GoogleEnabled bool
	CookieTTL     time.Duration
}

// Server 单页应用和 JSON API
type Server struct {
	app      *fiber.App
	registry *Registry
	signer   *auth.TokenSigner
	validate *validator.Validate
	page     *template.Template
	google   bool
	ttl      time.Duration
}

// NewServer 创建 HTTP 服务并注册路由
func NewServer(cfg Config) (*Server, error) {
	page, err := template.ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, err
	}

	ttl := cfg.CookieTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	s := &Server{
		app: fiber.New(fiber.Config{
			DisableStartupMessage: true,
			ReadTimeout:           30 * time.Second,

			// 表单值会保存在 Studio 和账号里，不能引用 fasthttp 复用的请求缓冲区
			Immutable: true,
		}),
		registry: cfg.Registry,
		signer:   cfg.Signer,
		validate: validator.New(),
		page:     page,
		google:   cfg.GoogleEnabled,
		ttl:      ttl,
	}

	metrics := newHTTPMetrics(cfg.Metrics)
	s.app.Use(requestLogger())
	s.app.Use(metrics.middleware())

	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": "genai-gallery"})
	})
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics, promhttp.HandlerOpts{})))

	// 之后注册的路由都绑定浏览器会话
	s.app.Use(s.sessionMiddleware())

	views := s.app.Group("")
	views.Get("/", s.index)
	views.Post("/generate", s.generate)
	views.Post("/gallery/refresh", s.refreshGallery)
	views.Post("/login", s.openLogin)
	views.Post("/modal/close", s.closeModal)
	views.Post("/modal/toggle", s.toggleModal)
	views.Post("/auth/signin", s.signIn)
	views.Post("/auth/signup", s.signUp)
	views.Post("/auth/signout", s.signOut)
	views.Get("/auth/google", s.googleRedirect)
	views.Get("/auth/google/callback", s.googleCallback)

	api := s.app.Group("/api")
	api.Get("/state", s.apiState)
	api.Post("/generate", s.apiGenerate)
	api.Get("/images", s.apiImages)

	return s, nil
}

// App 返回底层 fiber 应用
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen 监听地址
func (s *Server) Listen(addr string) error {
	common.WithField("address", addr).Info("HTTP server listening")
	return s.app.Listen(addr)
}

// Shutdown 停止服务
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// 没有会话时只读取状态的页面，不为其登记 Studio
var readOnlyPaths = map[string]bool{
	"/":           true,
	"/api/state":  true,
	"/api/images": true,
}

// sessionMiddleware 从签名 cookie 找到当前浏览器的 Studio，响应时刷新 cookie
func (s *Server) sessionMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var sessionID, userID string
		if raw := c.Cookies(sessionCookie); raw != "" {
			claims, err := s.signer.Parse(raw)
			if err != nil {
				common.WithError(err).Debug("Discarding invalid session cookie")
			} else {
				sessionID, userID = claims.SessionID, claims.UserID
			}
		}

		if sessionID == "" && c.Method() == fiber.MethodGet && readOnlyPaths[c.Path()] {
			st := s.registry.Ephemeral()
			defer st.Close()
			c.Locals(localsStudio, st)
			return c.Next()
		}

		if sessionID == "" {
			sessionID = uuid.NewString()
		}

		st := s.registry.Get(c.UserContext(), sessionID, userID)
		c.Locals(localsStudio, st)

		err := c.Next()

		s.writeSessionCookie(c, sessionID, st)
		return err
	}
}

func (s *Server) writeSessionCookie(c *fiber.Ctx, sessionID string, st *studio.Studio) {
	var userID string
	if user := st.Session().CurrentUser(); user != nil {
		userID = user.ID
	}
	token, err := s.signer.Sign(sessionID, userID)
	if err != nil {
		common.WithError(err).Error("Failed to sign session cookie")
		return
	}
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(s.ttl),
		HTTPOnly: true,
		Secure:   c.Protocol() == "https",
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func studioFrom(c *fiber.Ctx) *studio.Studio {
	return c.Locals(localsStudio).(*studio.Studio)
}
