package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/tecu23/csa-client/internal/auth"
	"github.com/tecu23/csa-client/pkg/clock"
	"github.com/tecu23/csa-client/pkg/config"
	"github.com/tecu23/csa-client/pkg/csa"
	"github.com/tecu23/csa-client/pkg/events"
	"github.com/tecu23/csa-client/pkg/game"
	"github.com/tecu23/csa-client/pkg/messages"
	"github.com/tecu23/csa-client/pkg/player"
	"github.com/tecu23/csa-client/pkg/record"
	"github.com/tecu23/csa-client/pkg/repository"
	"github.com/tecu23/csa-client/pkg/server"
	"github.com/tecu23/csa-client/pkg/session"
)

var _ game.Server = (*csa.Client)(nil)

// application encapsulates global dependencies
type application struct {
	Auth       *auth.APIKeyAuth
	Logger     *zap.Logger
	Config     *config.Config
	Client     *csa.Client
	Manager    *game.Manager
	Controller *managerController
	Publisher  *events.Publisher
	Repository *repository.InMemoryRecordRepository
	Hub        *server.Hub
	Server     *http.Server

	StartTime time.Time
}

func newApplication(cfg *config.Config, logger *zap.Logger) (*application, error) {
	// Fail early on a broken setting file; it is read again on every login.
	if _, err := loadSetting(cfg.SettingsPath); err != nil {
		return nil, err
	}

	registry := session.NewRegistry(logger)
	client := csa.NewClient(registry, logger)
	rec := record.New()

	publisher := events.NewPublisher()
	repo := repository.NewInMemoryRepository(logger)
	publisher.Subscribe(events.EventSaveRecord, repo.HandleEvent)

	manager := game.New(game.Options{
		Server:     client,
		Registry:   registry,
		Record:     rec,
		BlackClock: clock.New(),
		WhiteClock: clock.New(),
		Observer:   events.NewGameObserver(publisher, rec),
		Logger:     logger,
	})

	controller := &managerController{
		manager:      manager,
		builder:      player.NewUSIBuilder(logger),
		settingsPath: cfg.SettingsPath,
	}
	hub := server.NewHub(controller, logger)
	publisher.SubscribeAll(hub.HandleEvent)

	a := auth.NewAPIKeyAuth(cfg.APIKeys)
	if !a.Enabled() {
		logger.Warn("no API keys configured, bridge endpoints are open")
	}

	return &application{
		Auth:       a,
		Logger:     logger,
		Config:     cfg,
		Client:     client,
		Manager:    manager,
		Controller: controller,
		Publisher:  publisher,
		Repository: repo,
		Hub:        hub,
		StartTime:  time.Now(),
	}, nil
}

// Shutdown logs out and releases every component
func (app *application) Shutdown(ctx context.Context) error {
	err := app.Manager.Shutdown(ctx)
	app.Hub.Shutdown()
	err = multierr.Append(err, app.Client.Close())
	if err != nil {
		return err
	}

	app.Logger.Info("All components shut down successfully")
	return nil
}

func loadSetting(path string) (config.GameSetting, error) {
	setting, err := config.ReadGameSetting(path)
	if err != nil {
		return config.GameSetting{}, err
	}
	if err := setting.Validate(); err != nil {
		return config.GameSetting{}, fmt.Errorf("invalid game setting %s: %w", path, err)
	}
	return setting, nil
}

// managerController exposes the session manager to bridge clients
type managerController struct {
	manager      *game.Manager
	builder      player.Builder
	settingsPath string
}

func (c *managerController) Login(ctx context.Context) error {
	setting, err := loadSetting(c.settingsPath)
	if err != nil {
		return err
	}
	return c.manager.Login(ctx, setting, c.builder)
}

func (c *managerController) Stop() error   { return c.manager.Stop() }
func (c *managerController) Logout() error { return c.manager.Logout() }

func (c *managerController) Status() messages.StatusPayload {
	s := c.manager.Status()
	payload := messages.StatusPayload{
		State:       s.State.String(),
		SessionID:   s.SessionID,
		Repeat:      s.Repeat,
		GameID:      s.GameID,
		BlackTimeMs: s.BlackTimeMs,
		WhiteTimeMs: s.WhiteTimeMs,
	}
	if s.GameID != "" {
		payload.MyColor = string(s.MyColor)
	}
	return payload
}
