package app

import (
	"context"
	"errors"
	"fmt"

	"intent-orchestrator/internal/config"
	"intent-orchestrator/internal/domain/conversation"
	"intent-orchestrator/internal/domain/tool"
	"intent-orchestrator/internal/infrastructure/database/postgres"
	"intent-orchestrator/internal/infrastructure/database/sqlite"
	"intent-orchestrator/internal/infrastructure/dynamo"
	"intent-orchestrator/internal/infrastructure/filereader"
	"intent-orchestrator/internal/infrastructure/inventory"
	"intent-orchestrator/internal/infrastructure/llm"
	"intent-orchestrator/internal/infrastructure/messaging"
	"intent-orchestrator/internal/infrastructure/restapi"
	"intent-orchestrator/internal/logger"
	"intent-orchestrator/internal/usecase/orchestrator"
	"intent-orchestrator/internal/usecase/troubleshoot"
	"intent-orchestrator/pkg/mqtt"

	"go.uber.org/zap"
)

// App holds the wired services shared by the HTTP server and the CLI.
type App struct {
	Config       *config.Config
	Registry     *tool.Registry
	Troubleshoot *troubleshoot.Service
	Orchestrator *orchestrator.Service
	History      conversation.Repository

	checks  map[string]func() error
	closers []func() error
}

// New connects every backend and registers the tools. Backends that are only
// contacted per request (directory, DynamoDB, LLM, REST) never fail startup.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg, checks: map[string]func() error{}}

	history, err := a.openHistory(cfg)
	if err != nil {
		return nil, err
	}
	a.History = history
	a.closers = append(a.closers, history.Close)

	dynamoAPI, err := dynamo.NewAPI(ctx, cfg.AWS.Region)
	if err != nil {
		a.Close()
		return nil, err
	}
	store, err := dynamo.NewFreshnessStore(dynamoAPI, cfg.Troubleshoot.FreshnessTable)
	if err != nil {
		a.Close()
		return nil, err
	}

	directory := inventory.NewClient(cfg.Directory)
	a.Troubleshoot = troubleshoot.NewService(directory, store, cfg.Troubleshoot)

	files, err := filereader.NewTool(cfg.Files.BaseDir)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("invalid FILE_BASE_DIR: %w", err)
	}

	assistant := llm.NewClient(cfg.LLM)
	a.Registry = tool.NewRegistry(
		a.Troubleshoot,
		files,
		dynamo.NewTableTool(dynamoAPI),
		inventory.NewTool(directory),
		restapi.NewTool(cfg.REST),
		llm.NewChatTool(assistant),
	)

	a.Orchestrator = orchestrator.NewService(a.Registry, assistant, history, cfg.History.DefaultSession, llm.IsUnavailable)

	logger.Info("Application wired",
		zap.String("history_driver", cfg.History.Driver),
		zap.Int("llm_endpoints", len(cfg.LLM.Endpoints)),
		zap.Int("tools", len(a.Registry.List())),
	)
	return a, nil
}

func (a *App) openHistory(cfg *config.Config) (conversation.Repository, error) {
	switch cfg.History.Driver {
	case "postgres":
		if cfg.Database.Host == "" || cfg.Database.DBName == "" {
			return nil, errors.New("HISTORY_DRIVER=postgres requires DB_HOST and DB_NAME")
		}
		db, err := postgres.NewDB(cfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		a.checks["database"] = db.Health

		repo, err := postgres.NewMessageRepository(db, cfg.History.MaxMessages)
		if err != nil {
			a.Close()
			return nil, err
		}
		return repo, nil
	default:
		repo, err := sqlite.NewHistoryRepository(cfg.History.SQLitePath, cfg.History.MaxMessages)
		if err != nil {
			return nil, err
		}
		a.checks["database"] = repo.Ping
		return repo, nil
	}
}

// Publisher returns the MQTT report publisher when a broker is configured and
// the log-only publisher otherwise.
func (a *App) Publisher() troubleshoot.ReportPublisher {
	if a.Config.MQTT.Broker == "" {
		return troubleshoot.LogPublisher{}
	}

	client := mqtt.NewClient(mqtt.DefaultConfig(
		a.Config.MQTT.Broker,
		a.Config.MQTT.ClientID,
		a.Config.MQTT.Username,
		a.Config.MQTT.Password,
	))
	if err := client.Connect(); err != nil {
		logger.Warn("MQTT broker unreachable, fleet reports will only be logged", zap.Error(err))
		return troubleshoot.LogPublisher{}
	}
	a.closers = append(a.closers, func() error {
		client.Disconnect()
		return nil
	})
	a.checks["mqtt"] = func() error {
		if !client.IsConnected() {
			return errors.New("not connected")
		}
		return nil
	}
	return messaging.NewReportPublisher(client, a.Config.MQTT.ReportTopic)
}

// Health runs the registered dependency checks and returns the failures.
func (a *App) Health() map[string]string {
	failed := map[string]string{}
	for name, check := range a.checks {
		if err := check(); err != nil {
			failed[name] = err.Error()
		}
	}
	return failed
}

// Close releases backends in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
