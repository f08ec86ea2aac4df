package common

import "errors"

var (
	// ErrNotFound 对象或账号不存在
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized 凭证错误
	ErrUnauthorized = errors.New("unauthorized")
	// ErrAccountExists 邮箱已注册
	ErrAccountExists = errors.New("account already exists")
	// ErrGenerationInProgress 上一次生成尚未结束
	ErrGenerationInProgress = errors.New("generation already in progress")
	// ErrEmptyPrompt 提示词为空
	ErrEmptyPrompt = errors.New("prompt is empty")
	// ErrGoogleDisabled 未配置 Google 登录
	ErrGoogleDisabled = errors.New("google sign-in is not configured")
)

// 面向用户的提示文案
const (
	MsgLoginRequired      = "Please log in to generate and save images."
	MsgEmptyPrompt        = "Please enter a prompt."
	MsgInProgress         = "An image is already being generated. Please wait."
	MsgInferenceNetwork   = "Failed to reach the image generation service. Please try again."
	MsgUploadFailed       = "Failed to upload image to storage. Please try again."
	MsgResolveFailed      = "Failed to load the generated image. Please try again."
	MsgGalleryFailed      = "Failed to load images. Please try again."
	MsgSignInFailed       = "Failed to log in. Please check your credentials and try again."
	MsgGoogleSignInFailed = "Failed to sign in with Google. Please try again."
	MsgSignUpFailed       = "Failed to sign up. Please try again."
	MsgAccountExists      = "An account with this email already exists."
	MsgSignOutFailed      = "Failed to sign out. Please try again."
)
