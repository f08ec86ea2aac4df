package studio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"genai-gallery/common"
	"genai-gallery/internal/genai"
	"genai-gallery/internal/utils"
)

// Generate 生成一张图片并保存到对象存储
//
// 未登录时不会调用推理服务，流程停在 Blocked 并打开登录弹窗。
// 上一次生成未结束时返回 common.ErrGenerationInProgress，状态不变。
func (s *Studio) Generate(ctx context.Context, prompt string) (*GeneratedImage, error) {
	if err := s.begin(prompt); err != nil {
		return nil, err
	}

	user := s.session.CurrentUser()
	if user == nil {
		s.mu.Lock()
		s.advance(PhaseBlocked)
		s.state.Loading = false
		s.state.Error = common.MsgLoginRequired
		s.state.Modal = Modal{Visible: true, Mode: ModalLogin}
		s.mu.Unlock()
		s.metrics.generation(resultBlocked)
		common.Info("Generation blocked: no signed-in user")
		return nil, common.ErrUnauthorized
	}

	log := common.WithFields(map[string]interface{}{
		"user_id": user.ID,
		"prompt":  utils.TruncateForLog(prompt, 120),
	})

	s.enter(PhaseRequesting)
	image, err := s.generator.GenerateImage(ctx, prompt)
	if err != nil {
		log.WithError(err).Error("Image generation request failed")
		s.fail(inferenceMessage(err), resultInferenceError)
		return nil, fmt.Errorf("generate image: %w", err)
	}

	s.enter(PhaseConverting)
	dataURL := utils.EncodeDataURL(image.Data, image.MIMEType)

	s.enter(PhaseUploading)
	createdAt := s.now()
	name := utils.GenerateImageName(createdAt)
	ref, err := s.storage.Upload(ctx, name, dataURL)
	if err != nil {
		log.WithError(err).WithField("name", name).Error("Failed to upload generated image")
		s.fail(common.MsgUploadFailed, resultUploadError)
		return nil, fmt.Errorf("upload image: %w", err)
	}

	s.enter(PhaseResolving)
	url, err := s.storage.GetURL(ctx, ref)
	if err != nil {
		log.WithError(err).WithField("key", ref.Key).Error("Failed to resolve uploaded image URL")
		s.fail(common.MsgResolveFailed, resultResolveError)
		return nil, fmt.Errorf("resolve image url: %w", err)
	}

	generated := &GeneratedImage{URL: url, CreatedAt: createdAt, Name: name}
	s.mu.Lock()
	s.advance(PhaseDone)
	s.state.Loading = false
	s.state.Error = ""
	img := *generated
	s.state.GeneratedImage = &img
	s.mu.Unlock()
	s.metrics.generation(resultSuccess)
	log.WithField("key", ref.Key).Info("Image generated and saved")

	// 图库刷新失败只影响图库区域
	_ = s.RefreshGallery(ctx)
	return generated, nil
}

// begin 原子地检查并进入 CheckingAuth
func (s *Studio) begin(prompt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Phase.InFlight() {
		s.metrics.generation(resultRejected)
		return common.ErrGenerationInProgress
	}

	s.state.Prompt = prompt
	if strings.TrimSpace(prompt) == "" {
		s.state.Error = common.MsgEmptyPrompt
		s.metrics.generation(resultRejected)
		return common.ErrEmptyPrompt
	}

	s.advance(PhaseCheckingAuth)
	s.state.Error = ""
	return nil
}

func (s *Studio) enter(phase Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.advance(phase)
	if phase == PhaseRequesting {
		s.state.Loading = true
		s.state.GeneratedImage = nil
	}
}

func (s *Studio) fail(message, result string) {
	s.mu.Lock()
	s.advance(PhaseError)
	s.state.Loading = false
	s.state.Error = message
	s.mu.Unlock()
	s.metrics.generation(result)
}

// advance 调用方需持有锁
func (s *Studio) advance(to Phase) {
	if !s.state.Phase.CanTransition(to) {
		common.WithFields(map[string]interface{}{
			"from": s.state.Phase,
			"to":   to,
		}).Warn("Unexpected generation phase transition")
	}
	s.state.Phase = to
}

func inferenceMessage(err error) string {
	var statusErr *genai.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Error()
	}
	return common.MsgInferenceNetwork
}
