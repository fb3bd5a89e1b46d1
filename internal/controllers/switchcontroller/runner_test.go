package switchcontroller

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/padswitch/internal/gpio"
	"github.com/thatsimonsguy/padswitch/internal/model"
	"github.com/thatsimonsguy/padswitch/internal/outputbank"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func startRunner(t *testing.T) (*Runner, *gpio.FakeDriver, *clock, chan time.Time, context.CancelFunc, <-chan error) {
	t.Helper()
	clk := &clock{now: bootTime}
	driver := gpio.NewFakeDriver()
	ctrl := New(driver, testOutputs, testGate, Options{
		ClearPinOnAutoOff: true,
		Clock:             clk.Now,
	})
	require.NoError(t, ctrl.Init())

	r := NewRunner(ctrl)
	tick := make(chan time.Time)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(ctx, tick) }()
	t.Cleanup(cancel)
	return r, driver, clk, tick, cancel, errCh
}

func TestRunnerCommands(t *testing.T) {
	r, _, _, _, _, _ := startRunner(t)
	ctx := context.Background()

	st, err := r.Activate(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, model.Status{ActivePin: 2, GateEnabled: true}, st)

	st, err = r.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.ActivePin)

	st, err = r.Deactivate(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, model.Status{ActivePin: model.NoPin, GateEnabled: true}, st)

	st, err = r.Ping(ctx, time.Second)
	require.NoError(t, err)
	assert.True(t, st.GateEnabled)

	st, err = r.Deactivate(ctx, true)
	require.NoError(t, err)
	assert.False(t, st.GateEnabled)

	st, err = r.Enable(ctx, 0)
	require.NoError(t, err)
	assert.True(t, st.GateEnabled)

	_, err = r.Activate(ctx, 6, 0)
	var pinErr *outputbank.InvalidPinError
	assert.ErrorAs(t, err, &pinErr)
}

func TestRunnerTickFiresAutoOff(t *testing.T) {
	r, _, clk, tick, _, _ := startRunner(t)
	ctx := context.Background()

	_, err := r.Activate(ctx, 1, 3*time.Second)
	require.NoError(t, err)

	clk.Advance(3 * time.Second)
	tick <- clk.Now()

	st, err := r.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Status{ActivePin: model.NoPin, GateEnabled: false}, st)
}

func TestRunnerSerializesConcurrentCommands(t *testing.T) {
	r, driver, _, _, _, _ := startRunner(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(pin int) {
			defer wg.Done()
			_, err := r.Activate(ctx, pin%len(testOutputs), 0)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	st, err := r.Status(ctx)
	require.NoError(t, err)

	active := 0
	for i, p := range testOutputs {
		if driver.High(p.Number) {
			active++
			assert.Equal(t, i, st.ActivePin)
		}
	}
	assert.Equal(t, 1, active)
}

func TestRunnerShutdownOnCancel(t *testing.T) {
	r, driver, _, _, cancel, errCh := startRunner(t)

	_, err := r.Activate(context.Background(), 4, 0)
	require.NoError(t, err)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}

	assert.False(t, driver.High(testGate.Number))
	assert.False(t, driver.High(25))

	_, err = r.Status(context.Background())
	assert.ErrorIs(t, err, ErrStopped)
}

func TestRunnerDoHonoursContext(t *testing.T) {
	ctrl := New(gpio.NewFakeDriver(), testOutputs, testGate, Options{})
	r := NewRunner(ctrl) // never started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := r.Status(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
