package recovery

import (
	"context"
	"time"

	"github.com/zeusync/worldstore/internal/core/observability/log"
)

// Logged emits one structured record per decision.
func Logged(p Policy, logger log.Log) Policy {
	return PolicyFunc(func(ctx context.Context, ev Event) Decision {
		d := p.Decide(ctx, ev)
		fields := []log.Field{
			log.String("kind", ev.Kind.String()),
			log.Category(ev.Category),
			log.String("type", ev.TypeName),
			log.String("decision", d.String()),
		}
		switch ev.Kind {
		case UnresolvableType:
			fields = append(fields, log.String("reason", ev.Reason), log.Int("type_ref", ev.TypeRef))
		default:
			fields = append(fields,
				log.String("serial", ev.Serial),
				log.Int("expected_bytes", ev.Expected),
				log.Int("consumed_bytes", ev.Consumed),
			)
			if ev.Err != nil {
				fields = append(fields, log.Error(ev.Err))
			}
		}
		logger.Warn(ev.String(), fields...)
		return d
	})
}

// Bounded caps how long p may take. A policy that has not answered within
// timeout, or whose context ends first, yields fallback.
func Bounded(p Policy, timeout time.Duration, fallback Decision) Policy {
	if timeout <= 0 {
		return p
	}
	return PolicyFunc(func(ctx context.Context, ev Event) Decision {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		answer := make(chan Decision, 1)
		go func() { answer <- p.Decide(ctx, ev) }()

		select {
		case d := <-answer:
			return d
		case <-ctx.Done():
			return fallback
		}
	})
}
