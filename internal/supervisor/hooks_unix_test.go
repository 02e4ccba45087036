//go:build !windows

package supervisor

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The CLI's hold mode undeploys on Ctrl+C; the hooks must not kill the
// server underneath it.
func TestExitHooks_WatchLeavesFirstSignalToCaller(t *testing.T) {
	var (
		mu     sync.Mutex
		events []string
	)
	record := func(e string) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
	}

	hooks := NewExitHooks()
	exited := make(chan int, 1)
	hooks.exit = func(code int) { exited <- code }
	hooks.Register(func() { record("kill server") })
	stop := hooks.Watch()
	defer stop()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGINT))
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("interrupt was not delivered")
	}
	require.Eventually(t, func() bool { return hooks.received.Load() == 1 }, 5*time.Second, 10*time.Millisecond)

	record("undeploy")
	assert.Never(t, func() bool { return hooks.Len() == 0 }, 200*time.Millisecond, 20*time.Millisecond)
	select {
	case <-exited:
		t.Fatal("exit called on the first interrupt")
	default:
	}

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGINT))
	select {
	case code := <-exited:
		assert.Equal(t, 130, code)
	case <-time.After(5 * time.Second):
		t.Fatal("second interrupt did not run the exit hooks")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"undeploy", "kill server"}, events)
}

func TestLaunch_ChildHasOwnProcessGroup(t *testing.T) {
	p, err := Launch(LibertyCommand("/opt/java", t.TempDir(), "server", ""), nil)
	require.NoError(t, err)
	defer p.Terminate()

	pgid, err := syscall.Getpgid(p.PID())
	require.NoError(t, err)
	assert.Equal(t, p.PID(), pgid)
	assert.NotEqual(t, syscall.Getpgrp(), pgid)
}
