package shutdown

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestManagerNewManager(t *testing.T) {
	logger := zaptest.NewLogger(t)
	manager := NewManager(logger)

	require.NotNil(t, manager)
	assert.NotNil(t, manager.Context())
	assert.False(t, manager.IsShuttingDown())
}

func TestManagerWithTimeout(t *testing.T) {
	logger := zaptest.NewLogger(t)
	customTimeout := 30 * time.Second
	manager := NewManager(logger, WithTimeout(customTimeout))

	assert.Equal(t, customTimeout, manager.timeout)
}

func TestManagerRegisterOrdersByPriority(t *testing.T) {
	logger := zaptest.NewLogger(t)
	manager := NewManager(logger)

	manager.Register("stop-server", 10, func(ctx context.Context) error { return nil })
	manager.Register("unlock-model-dir", 5, func(ctx context.Context) error { return nil })
	manager.Register("remove-stale-pid", 20, func(ctx context.Context) error { return nil })

	assert.Equal(t, []string{"unlock-model-dir", "stop-server", "remove-stale-pid"}, manager.RegisteredHandlers())
}

func TestManagerShutdownExecutesHandlersInPriorityOrder(t *testing.T) {
	logger := zaptest.NewLogger(t)
	manager := NewManager(logger, WithTimeout(5*time.Second))

	var order []string
	var mu sync.Mutex
	record := func(name string) ShutdownFunc {
		return func(ctx context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}
	}

	manager.Register("stop-server", 10, record("stop-server"))
	manager.Register("remove-stale-pid", 20, record("remove-stale-pid"))
	manager.Register("flush-logger", 5, record("flush-logger"))

	err := manager.Shutdown()
	require.NoError(t, err)
	assert.Equal(t, []string{"flush-logger", "stop-server", "remove-stale-pid"}, order)
}

func TestManagerShutdownReportsHandlerErrors(t *testing.T) {
	logger := zaptest.NewLogger(t)
	manager := NewManager(logger, WithTimeout(5*time.Second))

	manager.Register("flush-logger", 10, func(ctx context.Context) error { return nil })
	manager.Register("stop-server", 20, func(ctx context.Context) error { return errors.New("process did not exit") })

	err := manager.Shutdown()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 errors")
}

func TestManagerShutdownIdempotent(t *testing.T) {
	logger := zaptest.NewLogger(t)
	manager := NewManager(logger, WithTimeout(time.Second))

	var callCount int32
	manager.Register("stop-server", 10, func(ctx context.Context) error {
		atomic.AddInt32(&callCount, 1)
		return nil
	})

	for i := 0; i < 3; i++ {
		assert.NoError(t, manager.Shutdown())
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&callCount))
}

func TestManagerIsShuttingDown(t *testing.T) {
	logger := zaptest.NewLogger(t)
	manager := NewManager(logger, WithTimeout(time.Second))

	assert.False(t, manager.IsShuttingDown())
	_ = manager.Shutdown()
	assert.True(t, manager.IsShuttingDown())
}

func TestManagerStartIsIdempotent(t *testing.T) {
	logger := zaptest.NewLogger(t)
	manager := NewManager(logger)

	manager.Start()
	manager.Start()
	manager.Start()

	assert.True(t, manager.started)
	assert.NoError(t, manager.Shutdown())
}

func TestManagerShutdownHandlerReceivesContextWithDeadline(t *testing.T) {
	logger := zaptest.NewLogger(t)
	manager := NewManager(logger, WithTimeout(5*time.Second))

	var receivedCtx context.Context
	manager.Register("stop-server", 10, func(ctx context.Context) error {
		receivedCtx = ctx
		return nil
	})

	require.NoError(t, manager.Shutdown())
	require.NotNil(t, receivedCtx)
	_, hasDeadline := receivedCtx.Deadline()
	assert.True(t, hasDeadline)
}

func TestManagerSecondSignalForcesExit(t *testing.T) {
	logger := zaptest.NewLogger(t)
	manager := NewManager(logger)

	assert.EqualValues(t, 0, manager.sigCount.Load())
	manager.sigCount.Add(1)
	assert.EqualValues(t, 1, manager.sigCount.Load())
	manager.sigCount.Add(1)
	assert.EqualValues(t, 2, manager.sigCount.Load())
}
