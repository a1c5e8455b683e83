package app

import (
	"context"
	"sync"

	"github.com/acastellana/prediction-agent/internal/analysis"
	"github.com/acastellana/prediction-agent/internal/auditlog"
	"github.com/acastellana/prediction-agent/internal/ledger"
	"github.com/acastellana/prediction-agent/internal/marketdata"
	"github.com/acastellana/prediction-agent/internal/resolver"
	"github.com/acastellana/prediction-agent/internal/scheduler"
	"github.com/acastellana/prediction-agent/internal/strategy"
	"github.com/acastellana/prediction-agent/internal/trading"
	"github.com/acastellana/prediction-agent/pkg/cache"
	"github.com/acastellana/prediction-agent/pkg/config"
	"github.com/acastellana/prediction-agent/pkg/healthprobe"
	"github.com/acastellana/prediction-agent/pkg/httpserver"
	"go.uber.org/zap"
)

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	store         ledger.Store
	audit         auditlog.Sink
	marketCache   cache.Cache
	provider      marketdata.Provider
	registry      *strategy.Registry
	engine        *trading.Engine
	scanner       *trading.Scanner
	reporter      *analysis.Reporter
	resolver      *resolver.Resolver
	sched         *scheduler.Scheduler
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}
