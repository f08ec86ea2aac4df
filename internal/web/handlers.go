package web

import (
	"bytes"
	"time"

	"genai-gallery/common"
	"genai-gallery/internal/auth"
	"genai-gallery/internal/studio"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// 骨架占位图数量
const skeletonTiles = 8

type pageData struct {
	studio.ViewState
	GoogleEnabled bool
	Skeletons     []int
}

func (s *Server) index(c *fiber.Ctx) error {
	st := studioFrom(c)
	st.EnsureGallery(c.UserContext())

	data := pageData{ViewState: st.State(), GoogleEnabled: s.google}
	if data.GalleryLoading || len(data.Gallery) == 0 {
		data.Skeletons = make([]int, skeletonTiles)
	}

	var buf bytes.Buffer
	if err := s.page.Execute(&buf, data); err != nil {
		common.WithError(err).Error("Failed to render page")
		return fiber.NewError(fiber.StatusInternalServerError, "failed to render page")
	}
	c.Type("html", "utf-8")
	return c.Send(buf.Bytes())
}

func back(c *fiber.Ctx) error {
	return c.Redirect("/", fiber.StatusSeeOther)
}

type generateForm struct {
	Prompt string `json:"prompt" form:"prompt" validate:"required,max=2000"`
}

func (s *Server) generate(c *fiber.Ctx) error {
	var form generateForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "cannot parse form")
	}
	// 结果和错误都写入视图状态
	_, _ = studioFrom(c).Generate(c.UserContext(), form.Prompt)
	return back(c)
}

func (s *Server) refreshGallery(c *fiber.Ctx) error {
	_ = studioFrom(c).RefreshGallery(c.UserContext())
	return back(c)
}

func (s *Server) openLogin(c *fiber.Ctx) error {
	studioFrom(c).OpenLogin()
	return back(c)
}

func (s *Server) closeModal(c *fiber.Ctx) error {
	studioFrom(c).CloseModal()
	return back(c)
}

func (s *Server) toggleModal(c *fiber.Ctx) error {
	studioFrom(c).ToggleModalMode()
	return back(c)
}

func (s *Server) signIn(c *fiber.Ctx) error {
	var req auth.SignInRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "cannot parse form")
	}
	_ = studioFrom(c).SignIn(c.UserContext(), req.Email, req.Password)
	return back(c)
}

func (s *Server) signUp(c *fiber.Ctx) error {
	var req auth.SignUpRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "cannot parse form")
	}
	_ = studioFrom(c).SignUp(c.UserContext(), req.Email, req.Password, req.DisplayName)
	return back(c)
}

func (s *Server) signOut(c *fiber.Ctx) error {
	_ = studioFrom(c).SignOut(c.UserContext())
	return back(c)
}

func (s *Server) googleRedirect(c *fiber.Ctx) error {
	state := uuid.NewString()
	target, err := studioFrom(c).GoogleAuthURL(state)
	if err != nil {
		return back(c)
	}
	c.Cookie(&fiber.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/auth/google",
		MaxAge:   600,
		HTTPOnly: true,
		Secure:   c.Protocol() == "https",
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.Redirect(target, fiber.StatusFound)
}

func (s *Server) googleCallback(c *fiber.Ctx) error {
	st := studioFrom(c)
	expected := c.Cookies(oauthStateCookie)
	c.Cookie(&fiber.Cookie{Name: oauthStateCookie, Path: "/auth/google", Expires: time.Unix(0, 0), HTTPOnly: true})

	if reason := c.Query("error"); reason != "" {
		st.GoogleSignInCancelled(reason)
		return back(c)
	}
	if expected == "" || c.Query("state") != expected {
		st.GoogleSignInCancelled("state mismatch")
		return back(c)
	}
	_ = st.SignInWithGoogle(c.UserContext(), c.Query("code"))
	return back(c)
}
