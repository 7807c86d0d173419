package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"chatterbot/internal/config"
	"chatterbot/internal/core"
	"chatterbot/internal/llm"
	"chatterbot/internal/logutil"
	"chatterbot/internal/state"
	"chatterbot/internal/storage"
	"chatterbot/internal/telegram"
)

func newRunCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the Telegram bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			log, err := logutil.New(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if err := run(ctx, cfg, log); err != nil {
				msg := logutil.Redact(err.Error(), cfg.TelegramToken)
				log.Error("bot stopped", zap.String("error", msg))
				return errors.New(msg)
			}
			return nil
		},
	}
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	store, err := storage.Open(cfg.StorageDriver, cfg.StoragePath)
	if err != nil {
		return err
	}
	defer store.Close()

	persona := config.DefaultPersona()
	if cfg.PersonaFile != "" {
		if persona, err = config.LoadPersona(cfg.PersonaFile); err != nil {
			return err
		}
	}

	bot, err := telegram.NewBot(cfg, log.Named("telegram"))
	if err != nil {
		return err
	}

	sessions := core.NewSessionManager(store, log.Named("sessions"))
	pending := state.NewMemoryStore()
	client := llm.NewOpenAI(llm.Options{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
	}, log.Named("llm"))

	handlers := telegram.NewHandlers(telegram.Deps{
		Sessions:  sessions,
		State:     pending,
		LLM:       client,
		Persona:   persona,
		Transport: bot.Transport(),
		Log:       log.Named("handlers"),
		StateTTL:  cfg.StateTTL,
		Now:       func() time.Time { return time.Now().UTC() },
	})

	log.Info("starting",
		zap.String("storage", cfg.StorageDriver),
		zap.String("llm_model", cfg.LLM.Model),
		zap.Int("allowlist", len(cfg.Allowlist)),
	)

	return runLoops(ctx, func(ctx context.Context) error { return bot.Run(ctx, handlers) },
		func(ctx context.Context) { sessions.RunFlusher(ctx, cfg.FlushInterval) },
		func(ctx context.Context) { pending.RunJanitor(ctx, cfg.SweepInterval) },
	)
}

// runLoops runs serve until ctx is done and the background loops alongside
// it. The background loops are stopped only after serve has returned, so the
// flusher's final save sees every write of the drained handlers.
func runLoops(ctx context.Context, serve func(context.Context) error, background ...func(context.Context)) error {
	bgCtx, stopBackground := context.WithCancel(context.WithoutCancel(ctx))
	defer stopBackground()

	var g errgroup.Group
	g.Go(func() error {
		defer stopBackground()
		return serve(ctx)
	})
	for _, loop := range background {
		loop := loop
		g.Go(func() error {
			loop(bgCtx)
			return nil
		})
	}
	return g.Wait()
}
