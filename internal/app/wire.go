//go:build wireinject
// +build wireinject

package app

import (
	"context"

	"github.com/google/wire"

	"sentinel/internal/config"
)

var storeSet = wire.NewSet(
	ProvideGormStore,
	ProvideAuditStore,
	ProvideRedisCooldown,
	ProvideCooldownStore,
	ProvideTradeMarker,
	ProvideAccountManager,
	ProvideRetriever,
	ProvideIngester,
)

var llmSet = wire.NewSet(
	ProvideBreaker,
	ProvideCaller,
	ProvideGenerator,
)

var sinkSet = wire.NewSet(
	ProvideNotifier,
	ProvidePublisher,
	ProvideDispatcher,
)

func initializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	wire.Build(
		ProvideMetrics,
		ProvideMonitor,
		ProvideEnricher,
		llmSet,
		storeSet,
		sinkSet,
		wire.Struct(new(JudgeDeps), "*"),
		ProvideJudge,
		ProvideServer,
		ProvideSummary,
		ProvideApp,
	)
	return nil, nil, nil
}
