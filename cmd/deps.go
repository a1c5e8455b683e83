package cmd

import (
	"fmt"

	"github.com/acastellana/prediction-agent/internal/auditlog"
	"github.com/acastellana/prediction-agent/internal/ledger"
	"github.com/acastellana/prediction-agent/internal/marketdata"
	"github.com/acastellana/prediction-agent/pkg/config"
	"go.uber.org/zap"
)

// loadEnv loads configuration and builds the logger, shared boilerplate
// for every one-shot command.
func loadEnv() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}

	return cfg, logger, nil
}

// openStore opens the trade ledger for a one-shot command. Memory mode is
// only useful for dry runs; postgres persists across invocations.
func openStore(cfg *config.Config, logger *zap.Logger) (ledger.Store, error) {
	if cfg.StorageMode == "postgres" {
		return ledger.NewPostgresStore(&ledger.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
	}
	return ledger.NewMemoryStore(), nil
}

func openAudit(cfg *config.Config, logger *zap.Logger) (auditlog.Sink, error) {
	if cfg.TradeLogPath == "" {
		return auditlog.NopSink{}, nil
	}
	return auditlog.NewFileSink(cfg.TradeLogPath, logger)
}

func newProvider(cfg *config.Config, logger *zap.Logger) marketdata.Provider {
	client := marketdata.NewClient(cfg.PolymarketGammaURL, logger)
	return marketdata.NewGammaProvider(client)
}
