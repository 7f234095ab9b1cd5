package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"gradebot/internal/ci"
	"gradebot/internal/config"
	"gradebot/internal/course"
	"gradebot/internal/grading"
	"gradebot/internal/logger"
	"gradebot/internal/server"
	"gradebot/internal/session"
	"gradebot/internal/sheets"
	"gradebot/internal/tgbot"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Init("info", "console")
		l := logger.Get()
		l.Fatal().Err(err).Msg("config")
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.Get()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sheetsClient, err := sheets.New(ctx, cfg.GoogleServiceAccountJSON)
	if err != nil {
		log.Fatal().Err(err).Msg("sheets")
	}
	sheetFor := func(spreadsheetID string) sheets.Gateway {
		return sheetsClient.Spreadsheet(spreadsheetID)
	}

	store, err := session.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatal().Err(err).Msg("redis")
	}

	catalog := course.NewCatalog(cfg.CoursesDir)
	roster := sheets.NewRoster(sheetsClient.Spreadsheet(cfg.RosterSpreadsheetID))
	aggregator := ci.NewAggregator(cfg.GithubToken)
	reg := grading.NewRegistration(catalog, roster, sheetFor)
	orch := grading.NewOrchestrator(catalog, roster, reg, aggregator, sheetFor)

	botApp, err := tgbot.New(cfg, catalog, roster, orch, aggregator, store, store)
	if err != nil {
		log.Fatal().Err(err).Msg("telegram")
	}

	httpSrv := server.New(cfg, catalog, roster, reg, orch)

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	go func() {
		if err := botApp.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("bot stopped")
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down")

	cancel()
	ctxTimeout, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	_ = httpSrv.Shutdown(ctxTimeout)
}
