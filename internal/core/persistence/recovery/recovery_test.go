package recovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zeusync/worldstore/internal/core/observability/log"
)

func TestFixedPolicies(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, Skip, AlwaysSkip.Decide(ctx, Event{}))
	assert.Equal(t, Abort, AlwaysAbort.Decide(ctx, Event{}))
}

func TestParseDecision(t *testing.T) {
	d, err := ParseDecision(" Skip ")
	require.NoError(t, err)
	assert.Equal(t, Skip, d)

	d, err = ParseDecision("ABORT")
	require.NoError(t, err)
	assert.Equal(t, Abort, d)

	_, err = ParseDecision("maybe")
	assert.Error(t, err)
}

func TestEvent_String(t *testing.T) {
	ev := Event{Kind: FormatMismatch, TypeName: "world.Guild", Serial: "0x2", Expected: 10, Consumed: 8}
	assert.Equal(t, "serialized world.Guild 0x2 was 10 bytes, but 8 bytes deserialized", ev.String())
	assert.Equal(t, -2, ev.Diff())

	ev = Event{Kind: UnresolvableType, TypeName: "world.Old", Reason: "not found"}
	assert.Equal(t, `type "world.Old" was not found`, ev.String())
}

func TestLogged_EmitsStructuredRecord(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	p := Logged(AlwaysSkip, log.NewWithCore(core))

	d := p.Decide(context.Background(), Event{
		Kind:     DeserializeException,
		Category: "Guilds",
		TypeName: "world.Guild",
		Serial:   "0x7",
		Expected: 12,
		Err:      errors.New("short payload"),
	})

	assert.Equal(t, Skip, d)
	require.Equal(t, 1, logs.Len())
	ctx := logs.All()[0].ContextMap()
	assert.Equal(t, "DeserializeException", ctx["kind"])
	assert.Equal(t, "Guilds", ctx["category"])
	assert.Equal(t, "skip", ctx["decision"])
	assert.Equal(t, "short payload", ctx["error"])
}

func TestBounded_FallsBackOnSlowPolicy(t *testing.T) {
	slow := PolicyFunc(func(ctx context.Context, _ Event) Decision {
		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
		}
		return Skip
	})

	p := Bounded(slow, 10*time.Millisecond, Abort)
	assert.Equal(t, Abort, p.Decide(context.Background(), Event{}))

	fast := Bounded(AlwaysSkip, time.Second, Abort)
	assert.Equal(t, Skip, fast.Decide(context.Background(), Event{}))
}

func TestRules_FirstMatchWins(t *testing.T) {
	rules, err := NewRules([]Rule{
		{When: `kind == "UnresolvableType" && typeName startsWith "legacy."`, Decision: Skip},
		{When: `kind == "FormatMismatch" && diff > -8 && diff < 8`, Decision: Skip},
		{When: `category == "Accounts"`, Decision: Abort},
	}, Abort, nil)
	require.NoError(t, err)

	ctx := context.Background()
	assert.Equal(t, Skip, rules.Decide(ctx, Event{Kind: UnresolvableType, TypeName: "legacy.Boat"}))
	assert.Equal(t, Abort, rules.Decide(ctx, Event{Kind: UnresolvableType, TypeName: "world.Boat"}))
	assert.Equal(t, Skip, rules.Decide(ctx, Event{Kind: FormatMismatch, Category: "Accounts", Expected: 10, Consumed: 6}))
	assert.Equal(t, Abort, rules.Decide(ctx, Event{Kind: FormatMismatch, Category: "Accounts", Expected: 100, Consumed: 6}))
}

func TestRules_CompileErrors(t *testing.T) {
	_, err := NewRules([]Rule{{When: `kind ==`}}, Skip, nil)
	assert.Error(t, err)

	_, err = NewRules([]Rule{{When: `expected + 1`}}, Skip, nil)
	assert.Error(t, err, "non-boolean expressions are rejected")
}

func TestRules_FailedEvaluationIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	rules, err := NewRules([]Rule{
		{When: `[1, 2][typeRef] == 2`, Decision: Skip},
		{When: `kind == "DeserializeException"`, Decision: Skip},
	}, Abort, log.NewWithCore(core))
	require.NoError(t, err)

	ctx := context.Background()
	assert.Equal(t, Abort, rules.Decide(ctx, Event{Kind: UnresolvableType, Category: "Guilds", TypeRef: 5}))
	assert.Equal(t, Skip, rules.Decide(ctx, Event{Kind: DeserializeException, TypeRef: 1}))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "recovery rule failed", entry.Message)
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	ctxMap := entry.ContextMap()
	assert.EqualValues(t, 0, ctxMap["rule"])
	assert.Equal(t, "Guilds", ctxMap["category"])
}
