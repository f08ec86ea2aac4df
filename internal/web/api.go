package web

import (
	"errors"

	"genai-gallery/common"

	"github.com/gofiber/fiber/v2"
)

func (s *Server) apiState(c *fiber.Ctx) error {
	return c.JSON(studioFrom(c).State())
}

func (s *Server) apiGenerate(c *fiber.Ctx) error {
	var request generateForm
	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON", "details": err.Error()})
	}
	if err := s.validate.Struct(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input", "details": err.Error()})
	}

	st := studioFrom(c)
	image, err := st.Generate(c.UserContext(), request.Prompt)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrGenerationInProgress):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": common.MsgInProgress})
		case errors.Is(err, common.ErrUnauthorized):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": common.MsgLoginRequired})
		case errors.Is(err, common.ErrEmptyPrompt):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": common.MsgEmptyPrompt})
		}
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": st.State().Error})
	}
	return c.JSON(fiber.Map{"image": image})
}

func (s *Server) apiImages(c *fiber.Ctx) error {
	images, err := studioFrom(c).ListImages(c.UserContext())
	if err != nil {
		common.WithError(err).Error("Failed to list images")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": common.MsgGalleryFailed})
	}
	return c.JSON(fiber.Map{"images": images})
}
