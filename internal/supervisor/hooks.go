package supervisor

import (
	"os"
	"os/signal"
	"sort"
	"sync"
	"sync/atomic"
	"syscall"

	"wasdeploy/pkg/logging"
)

// ExitHooks holds cleanup actions that must run if wasdeploy exits before
// the owning container is stopped: killing a launched server and deleting
// files scheduled for removal. Each container owns one registry.
type ExitHooks struct {
	mu    sync.Mutex
	next  int
	hooks map[int]func()

	// signals seen by Watch
	received atomic.Int32

	// exit is replaced in tests.
	exit func(code int)
}

// NewExitHooks returns an empty registry.
func NewExitHooks() *ExitHooks {
	return &ExitHooks{hooks: map[int]func(){}, exit: os.Exit}
}

// Register adds fn and returns the id to unregister it with.
func (h *ExitHooks) Register(fn func()) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	h.hooks[h.next] = fn
	return h.next
}

// Unregister removes a hook. Unknown ids are ignored.
func (h *ExitHooks) Unregister(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.hooks, id)
}

// Len returns the number of registered hooks.
func (h *ExitHooks) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.hooks)
}

// Run executes and removes every hook, most recently registered first.
func (h *ExitHooks) Run() {
	h.mu.Lock()
	ids := make([]int, 0, len(h.hooks))
	for id := range h.hooks {
		ids = append(ids, id)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ids)))
	fns := make([]func(), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, h.hooks[id])
	}
	h.hooks = map[int]func(){}
	h.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Watch runs the hooks and exits on the second SIGINT or SIGTERM. The
// first one belongs to the caller, which is expected to cancel its command
// and stop the container normally; a second one means the user gave up
// waiting for that. The returned function stops watching.
func (h *ExitHooks) Watch() (stop func()) {
	sigs := make(chan os.Signal, 2)
	done := make(chan struct{})
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	go func() {
		for {
			select {
			case sig := <-sigs:
				if h.received.Add(1) == 1 {
					logging.Info(subsystem, "Received %s, waiting for the current operation to finish; repeat to kill the server", sig)
					continue
				}
				logging.Warn(subsystem, "Received %s again, running %d exit hooks", sig, h.Len())
				h.Run()
				h.exit(130)
				return
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(sigs)
			close(done)
		})
	}
}
