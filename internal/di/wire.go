//go:build wireinject
// +build wireinject

package di

import (
	dsvc "PerpDesk/internal/domain/service"
	"PerpDesk/internal/service/hyperliquid"
	"PerpDesk/internal/services/anchoring"
	"PerpDesk/internal/services/features"
	"PerpDesk/internal/services/signals"
	"PerpDesk/internal/services/validation"
	"PerpDesk/pkg/config"

	"github.com/google/wire"
)

// InitializeContainer wires up all dependencies. The returned cleanup closes
// stores and clients in reverse order of construction.
func InitializeContainer(cfg *config.Config) (*Container, func(), error) {
	wire.Build(
		ProvideLogger,
		ProvideRiskLimits,
		ProvideMetrics,

		// Storage and infrastructure
		ProvideCache,
		ProvideSnapshotStore,
		ProvideSignalLog,
		ProvideAnalysisLog,
		ProvideKafkaProducer,
		ProvidePublisher,
		ProvideClickHouseClient,
		ProvideFeatureSink,

		// Domain services
		ProvideCollectorLimiter,
		ProvideHyperliquidClient,
		wire.Bind(new(dsvc.SnapshotSource), new(*hyperliquid.Client)),
		ProvideFeatureEngine,
		wire.Bind(new(dsvc.StateBuilder), new(*features.Engine)),
		ProvideValidator,
		wire.Bind(new(dsvc.OutputValidator), new(*validation.Validator)),
		ProvideAnchorBuilder,
		wire.Bind(new(dsvc.AnchorBuilder), new(*anchoring.Builder)),
		ProvideTracker,
		wire.Bind(new(dsvc.SignalTracker), new(*signals.Tracker)),
		ProvideAnalyzer,

		// Use cases and delivery
		ProvideCollector,
		ProvideAnalysis,
		ProvideStatus,
		ProvideAPIHandler,
		ProvideApp,

		wire.Struct(new(Container), "*"),
	)
	return nil, nil, nil
}
