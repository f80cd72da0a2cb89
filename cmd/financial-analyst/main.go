// Package main runs the financial analyst on a single task.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dimiro1/banner"
	"github.com/minhyannv/financial-analyst-go/pkg/agent"
	"github.com/minhyannv/financial-analyst-go/pkg/chart"
	configpkg "github.com/minhyannv/financial-analyst-go/pkg/config"
	loggerpkg "github.com/minhyannv/financial-analyst-go/pkg/logger"
	"github.com/minhyannv/financial-analyst-go/pkg/market"
	"github.com/minhyannv/financial-analyst-go/pkg/tools"
)

const bannerTemplate = `{{ .Title "Financial Analyst" "" 0 }}
   model: %s | auto-replies: %d | charts: %s

`

func main() {
	cfg, err := parseCLIConfig(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdout, os.Stderr); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg configpkg.Config, stdout, stderr io.Writer) error {
	appLogger := loggerpkg.NewLevelLogger(stderr, cfg.LogLevel)
	banner.Init(stdout, true, false, bytes.NewBufferString(
		fmt.Sprintf(bannerTemplate, cfg.Model, cfg.MaxAutoReplies, cfg.WorkDir)))

	provider := market.NewYahooClient(market.YahooOptions{
		BaseURL:        cfg.Market.BaseURL,
		RequestTimeout: time.Duration(cfg.Market.RequestTimeoutMS) * time.Millisecond,
		RequestsPerSec: cfg.Market.RequestsPerSec,
		Logger:         appLogger,
		Verbose:        cfg.Verbose,
	})
	registry := tools.New(tools.Context{
		Provider: provider,
		Renderer: chart.NewRenderer(cfg.WorkDir),
		Verbose:  cfg.Verbose,
		Logger:   appLogger,
	})
	loggerpkg.Debug(cfg.Verbose, appLogger, "tools registered", map[string]any{"tools": registry.ListToolNames()})

	orchestrator, err := agent.New(agent.Settings{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Assistant: agent.AssistantConfig{
			Name:          cfg.AssistantName,
			Model:         cfg.Model,
			Temperature:   cfg.Temperature,
			SystemMessage: cfg.SystemMessage,
			MaxTokens:     cfg.MaxCompletionTokens,
		},
		Executor: agent.ExecutorConfig{
			Name:                    cfg.ExecutorName,
			HumanInputMode:          agent.HumanInputNever,
			WorkDir:                 cfg.WorkDir,
			DefaultAutoReply:        cfg.DefaultAutoReply,
			MaxConsecutiveAutoReply: cfg.MaxAutoReplies,
		},
		Verbose: cfg.Verbose,
	}, registry, agent.WithLogger(appLogger), agent.WithTranscript(stdout))
	if err != nil {
		return err
	}

	res, err := orchestrator.Run(ctx, cfg.Task)
	if err != nil {
		return fmt.Errorf("run %s: %w", res.RunID, err)
	}
	if res.Reason == agent.ReasonMaxAutoReplies {
		appLogger.Warn("conversation stopped at auto-reply limit", map[string]any{
			"run_id":       res.RunID,
			"auto_replies": res.AutoReplies,
		})
	}

	_, _ = fmt.Fprintf(stdout, "%s\n\n", res.Content)
	_, _ = fmt.Fprintf(stdout, "Tokens: prompt=%d completion=%d total=%d\n",
		res.Usage.PromptTokens, res.Usage.CompletionTokens, res.Usage.TotalTokens)
	return nil
}
