package cron

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"autocheckout/internal/checkout"
	"autocheckout/internal/config"
)

type fakeRunner struct {
	mu    sync.Mutex
	kinds []checkout.InvocationKind
	ctxOK bool
	panic bool
}

func (f *fakeRunner) Execute(ctx context.Context, kind checkout.InvocationKind) checkout.Result {
	if f.panic {
		panic("boom")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, hasDeadline := ctx.Deadline()
	f.ctxOK = hasDeadline
	f.kinds = append(f.kinds, kind)
	return checkout.Result{RunID: "r", Kind: kind, Outcome: checkout.OutcomeWrongTime}
}

func testConfig(spec string) config.CheckoutConfig {
	return config.CheckoutConfig{
		Location:    time.UTC,
		TriggerSpec: spec,
		ClaimTTL:    time.Minute,
	}
}

func TestTickRunsScheduledKindWithDeadline(t *testing.T) {
	r := &fakeRunner{}
	s := New(testConfig("0 */5 * * * *"), r, zap.NewNop())

	s.tick()

	assert.Equal(t, []checkout.InvocationKind{checkout.KindScheduled}, r.kinds)
	assert.True(t, r.ctxOK)
}

func TestTickRecoversPanic(t *testing.T) {
	s := New(testConfig("0 */5 * * * *"), &fakeRunner{panic: true}, zap.NewNop())
	assert.NotPanics(t, s.tick)
}

func TestStartRejectsBadSpec(t *testing.T) {
	s := New(testConfig("every five minutes"), &fakeRunner{}, zap.NewNop())
	err := s.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "every five minutes")
}

func TestStartFiresTrigger(t *testing.T) {
	r := &fakeRunner{}
	s := New(testConfig("* * * * * *"), r, zap.NewNop())
	require.NoError(t, s.Start())

	require.Eventually(t, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return len(r.kinds) > 0
	}, 3*time.Second, 50*time.Millisecond)

	<-s.Stop().Done()
}

func TestCronLoggerAppendsError(t *testing.T) {
	l := cronLogger{zap.NewNop().Sugar()}
	assert.NotPanics(t, func() {
		l.Info("tick", "entry", 1)
		l.Error(errors.New("x"), "failed", "entry", 1)
	})
}
