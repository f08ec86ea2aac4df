package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"genai-gallery/common"
	"genai-gallery/internal/auth"
	"genai-gallery/internal/genai"
	"genai-gallery/internal/genai/gemini"
	"genai-gallery/internal/genai/huggingface"
	"genai-gallery/internal/oss"
	"genai-gallery/internal/studio"
	"genai-gallery/internal/tools"
	"genai-gallery/internal/web"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// 会话 cookie 有效期，过期后需要重新登录
const sessionCookieTTL = 7 * 24 * time.Hour

func main() {
	// 加载配置
	config, err := common.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 打印配置信息（隐藏敏感信息）
	common.WithFields(map[string]interface{}{
		"mode":          config.ServerMode,
		"provider":      config.GenAIProvider,
		"inference_url": config.InferenceURL,
		"token":         common.MaskSecret(config.InferenceAPIToken),
		"bucket":        config.OSSBucket,
		"endpoint":      config.OSSEndpoint,
	}).Info("Server starting...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	generator, err := newGenerator(config)
	if err != nil {
		common.Fatalf("Failed to create %s client: %v", config.GenAIProvider, err)
	}
	defer generator.Close()

	storage, err := oss.NewOSSClientFromConfig(config)
	if err != nil {
		common.Fatalf("Failed to create OSS client: %v", err)
	}

	store, closeStore, err := newAccountStore(ctx, config)
	if err != nil {
		common.Fatalf("Failed to open account store: %v", err)
	}
	defer closeStore()

	provider := auth.NewProvider(store, auth.NewGoogleOAuthFromConfig(config))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := studio.NewMetrics(registry)

	newStudio := func() *studio.Studio {
		return studio.New(studio.Deps{
			Session:   auth.NewSession(provider),
			Generator: generator,
			Storage:   storage,
			Metrics:   metrics,
		})
	}

	switch config.ServerMode {
	case "stdio":
		err = serveStdio(newStudio())
	default:
		err = serveHTTP(ctx, config, newStudio, registry)
	}
	if err != nil {
		common.Fatalf("Server error: %v", err)
	}
}

func newGenerator(config *common.Config) (genai.ImageGenerator, error) {
	switch config.GenAIProvider {
	case "gemini":
		return gemini.NewClientFromConfig(config)
	case "huggingface", "":
		return huggingface.NewClientFromConfig(config)
	default:
		return nil, fmt.Errorf("unsupported GENAI_PROVIDER: %s", config.GenAIProvider)
	}
}

// newAccountStore 配置了 DATABASE_URL 时使用 PostgreSQL，否则使用内存存储
func newAccountStore(ctx context.Context, config *common.Config) (auth.AccountStore, func(), error) {
	if config.DatabaseURL == "" {
		common.WithField("store", "memory").Warn("DATABASE_URL not set, accounts are kept in memory")
		return auth.NewMemoryStore(), func() {}, nil
	}

	store, err := auth.OpenPostgresStore(ctx, config.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return store, func() {
		if err := store.Close(); err != nil {
			common.WithError(err).Warn("Failed to close account database")
		}
	}, nil
}

func serveStdio(st *studio.Studio) error {
	defer st.Close()

	// 创建 MCP 服务器
	s := server.NewMCPServer(
		"GenAI Gallery MCP Server",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	if err := tools.RegisterStudioTools(s, st); err != nil {
		return fmt.Errorf("failed to register studio tools: %w", err)
	}

	// 启动 stdio 服务器
	return server.ServeStdio(s)
}

func serveHTTP(ctx context.Context, config *common.Config, factory web.StudioFactory, metrics *prometheus.Registry) error {
	registry := web.NewRegistry(factory, config.SessionIdleTimeout())
	defer registry.Close()
	go registry.Run(ctx)

	srv, err := web.NewServer(web.Config{
		Registry:      registry,
		Signer:        auth.NewTokenSigner(config.AuthSecret, sessionCookieTTL),
		Metrics:       metrics,
		GoogleEnabled: config.GoogleEnabled(),
		CookieTTL:     sessionCookieTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(config.GetServerAddr())
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		common.Info("Shutting down HTTP server")
		return srv.Shutdown()
	}
}
