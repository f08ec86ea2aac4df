package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"genai-gallery/internal/studio"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// studioTools 把一个 Studio 的操作暴露为 MCP tools，stdio 进程即一个用户会话
type studioTools struct {
	studio *studio.Studio
}

// RegisterStudioTools 注册登录、生成图片和图库相关的 MCP tools
func RegisterStudioTools(s *server.MCPServer, st *studio.Studio) error {
	t := &studioTools{studio: st}

	s.AddTool(mcp.NewTool(
		"studio_sign_in",
		mcp.WithDescription("Sign in with email and password. Required before generating images."),
		mcp.WithString("email", mcp.Required(), mcp.Description("Account email")),
		mcp.WithString("password", mcp.Required(), mcp.Description("Account password")),
	), t.signIn)

	s.AddTool(mcp.NewTool(
		"studio_sign_up",
		mcp.WithDescription("Create an account with email and password and sign in."),
		mcp.WithString("email", mcp.Required(), mcp.Description("Account email")),
		mcp.WithString("password", mcp.Required(), mcp.Description("Password, at least 6 characters")),
		mcp.WithString("display_name", mcp.Required(), mcp.Description("Name shown in the gallery header")),
	), t.signUp)

	s.AddTool(mcp.NewTool(
		"studio_sign_out",
		mcp.WithDescription("Sign out of the current session."),
	), t.signOut)

	s.AddTool(mcp.NewTool(
		"studio_generate_image",
		mcp.WithDescription("Generate an image from a text prompt, save it to the gallery and return its URL. Requires a signed-in user."),
		mcp.WithString("prompt",
			mcp.Required(),
			mcp.Description("Text prompt describing the image to generate"),
		),
	), t.generateImage)

	s.AddTool(mcp.NewTool(
		"studio_list_images",
		mcp.WithDescription("List all saved images, newest first."),
	), t.listImages)

	s.AddTool(mcp.NewTool(
		"studio_state",
		mcp.WithDescription("Return the current session state: user, prompt, generation phase, errors and gallery."),
	), t.state)

	return nil
}

func (t *studioTools) signIn(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	email, err := req.RequireString("email")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("email parameter is required: %v", err)), nil
	}
	password, err := req.RequireString("password")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("password parameter is required: %v", err)), nil
	}

	if err := t.studio.SignIn(ctx, email, password); err != nil {
		return mcp.NewToolResultError(t.studio.State().Modal.Error), nil
	}
	return t.signedIn()
}

func (t *studioTools) signUp(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	email, err := req.RequireString("email")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("email parameter is required: %v", err)), nil
	}
	password, err := req.RequireString("password")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("password parameter is required: %v", err)), nil
	}
	displayName, err := req.RequireString("display_name")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("display_name parameter is required: %v", err)), nil
	}

	if err := t.studio.SignUp(ctx, email, password, displayName); err != nil {
		return mcp.NewToolResultError(t.studio.State().Modal.Error), nil
	}
	return t.signedIn()
}

func (t *studioTools) signedIn() (*mcp.CallToolResult, error) {
	user := t.studio.Session().CurrentUser()
	if user == nil {
		return mcp.NewToolResultError("not signed in"), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Signed in as %s", user.Email)), nil
}

func (t *studioTools) signOut(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := t.studio.SignOut(ctx); err != nil {
		return mcp.NewToolResultError(t.studio.State().Error), nil
	}
	return mcp.NewToolResultText("Signed out"), nil
}

func (t *studioTools) generateImage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prompt, err := req.RequireString("prompt")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("prompt parameter is required: %v", err)), nil
	}

	image, err := t.studio.Generate(ctx, prompt)
	if err != nil {
		message := t.studio.State().Error
		if message == "" {
			message = err.Error()
		}
		return mcp.NewToolResultError(message), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Generated image: %s", image.URL)), nil
}

func (t *studioTools) listImages(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := t.studio.RefreshGallery(ctx); err != nil {
		return mcp.NewToolResultError(t.studio.State().GalleryError), nil
	}
	return jsonResult(t.studio.State().Gallery)
}

func (t *studioTools) state(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(t.studio.State())
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
