package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/worldstore/internal/config"
	"github.com/zeusync/worldstore/internal/core/observability/log"
	"github.com/zeusync/worldstore/internal/core/persistence"
	"github.com/zeusync/worldstore/internal/core/persistence/recovery"
	"github.com/zeusync/worldstore/internal/world"
)

var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvidePolicy,
	ProvideEngine,
	world.New,
)

func ProvideLogger(cfg *config.Config) (*log.Logger, error) {
	return log.NewWithOptions(log.Options{
		Level:    log.ParseLevel(cfg.Log.Level),
		Encoding: cfg.Log.Encoding,
		Outputs:  cfg.Log.Outputs,
	})
}

// ProvidePolicy builds rules -> bounded -> logged, so every decision is
// recorded even when the rules time out.
func ProvidePolicy(cfg *config.Config, logger *log.Logger) (recovery.Policy, error) {
	rules, fallback, err := cfg.RecoveryRules()
	if err != nil {
		return nil, err
	}
	compiled, err := recovery.NewRules(rules, fallback, logger)
	if err != nil {
		return nil, err
	}

	var policy recovery.Policy = compiled
	if cfg.Recovery.Timeout > 0 {
		policy = recovery.Bounded(policy, cfg.Recovery.Timeout, fallback)
	}
	return recovery.Logged(policy, logger), nil
}

func ProvideEngine(cfg *config.Config, logger *log.Logger, policy recovery.Policy) *persistence.Engine {
	return persistence.NewEngine(persistence.Options{
		Root:            cfg.Root,
		Workers:         cfg.Workers,
		Policy:          policy,
		Logger:          logger,
		Atomic:          cfg.Save.Atomic,
		RetainPayloads:  cfg.Load.RetainPayloads,
		VerifyChecksums: cfg.Load.VerifyChecksums,
		LockTimeout:     cfg.Save.LockTimeout,
	})
}
