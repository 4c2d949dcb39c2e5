package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/philippgille/chromem-go"
	"github.com/spf13/cobra"

	"github.com/vihaan69-420/school-agent-simple/internal/chat"
	"github.com/vihaan69-420/school-agent-simple/internal/knowledge"
	"github.com/vihaan69-420/school-agent-simple/internal/router"
	"github.com/vihaan69-420/school-agent-simple/internal/server"
	"github.com/vihaan69-420/school-agent-simple/internal/store"
	"github.com/vihaan69-420/school-agent-simple/internal/web"
	"github.com/vihaan69-420/school-agent-simple/pkg/llm"
	"github.com/vihaan69-420/school-agent-simple/pkg/llm/openai"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the schoolagent daemon",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	// Stores
	st, err := store.Open(filepath.Join(cfg.DataDir, "schoolagent.db"))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	// LLM provider
	provider := openai.New(&llm.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Knowledge corpus
	embed := chromem.NewEmbeddingFuncOpenAICompat(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.EmbeddingModel, nil)
	idx, err := knowledge.Open(cfg.Knowledge.Dir, embed)
	if err != nil {
		return fmt.Errorf("open knowledge index: %w", err)
	}
	if cfg.Knowledge.SeedPath != "" {
		n, err := idx.SeedFromFile(ctx, cfg.Knowledge.SeedPath)
		if err != nil {
			return fmt.Errorf("seed knowledge index: %w", err)
		}
		if n > 0 {
			slog.Info("knowledge corpus seeded", "documents", n)
		}
	}

	// Web research
	cache := web.NewPageCache(time.Duration(cfg.Web.CacheTTLMinutes) * time.Minute)
	fetcher := web.NewPageFetcher(cache)
	var searcher web.Searcher
	if cfg.Brave.APIKey != "" {
		searcher = web.NewBraveSearch(cfg.Brave.APIKey)
	} else {
		slog.Warn("web search disabled (no brave api key)")
	}
	refresher := web.NewRefresher(cache, fetcher)
	if cfg.Web.RefreshSchedule != "" {
		if err := refresher.Start(cfg.Web.RefreshSchedule); err != nil {
			return fmt.Errorf("start cache refresher: %w", err)
		}
		defer refresher.Stop()
	}

	// Router
	prompts, err := router.NewPromptBuilder(cfg.LLM.Model, cfg.LLM.MaxContextTokens, cfg.LLM.OutputReserve)
	if err != nil {
		return fmt.Errorf("create prompt builder: %w", err)
	}
	rt := router.New(provider, idx, searcher, fetcher, prompts,
		time.Duration(cfg.LLM.TimeoutSeconds)*time.Second)

	// Chat service + HTTP API
	svc := chat.NewService(st, rt, int64(cfg.MaxConcurrent))
	api := server.NewServer(st, st, svc)

	httpServer := &http.Server{
		Addr:    cfg.Listen,
		Handler: api,
	}
	go func() {
		slog.Info("schoolagent started",
			"listen", cfg.Listen,
			"data_dir", cfg.DataDir,
			"log_level", cfg.LogLevel,
			"max_concurrent", cfg.MaxConcurrent,
			"llm_model", cfg.LLM.Model,
			"knowledge_docs", idx.Count(),
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	slog.Info("shutting down", "signal", sig)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return httpServer.Shutdown(shutdownCtx)
}
