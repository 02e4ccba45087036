package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"wasdeploy/pkg/logging"
)

const subsystem = "Notification"

// Task names carried by application management notifications.
const (
	TaskInstall                = "InstallApplication"
	TaskUninstall              = "UninstallApplication"
	TaskDistributionStatusNode = "DistributionStatusNode"
)

// Task status values reported by the server.
const (
	StatusInProgress = "InProgress"
	StatusCompleted  = "Completed"
	StatusFailed     = "Failed"
)

// ErrWaitTimeout is returned by Wait when no terminal event arrived in time.
var ErrWaitTimeout = errors.New("timed out waiting for management task")

// Event is one application management notification.
type Event struct {
	TaskName   string
	TaskStatus string
	Message    string
	Properties map[string]string
}

// Outcome is the terminal result of a task.
type Outcome struct {
	TaskName   string
	Status     string
	Messages   []string
	Properties map[string]string
}

// Succeeded reports whether the task completed.
func (o Outcome) Succeeded() bool {
	return o.Status == StatusCompleted
}

// Message joins the messages accumulated while the task ran.
func (o Outcome) Message() string {
	return strings.Join(o.Messages, "\n")
}

// Listener is a single-slot future for one named task. Every event's
// message is accumulated; the first Completed or Failed event for the task
// resolves the listener, later terminal events are ignored.
type Listener struct {
	task string

	mu       sync.Mutex
	messages []string
	outcome  Outcome

	once sync.Once
	done chan struct{}
}

// NewListener waits for task.
func NewListener(task string) *Listener {
	return &Listener{task: task, done: make(chan struct{})}
}

// Task returns the task name the listener resolves on.
func (l *Listener) Task() string { return l.task }

// Handle records ev. It is called from the transport's dispatch goroutine.
func (l *Listener) Handle(ev Event) {
	logging.Debug(subsystem, "task=%s status=%s message=%s", ev.TaskName, ev.TaskStatus, ev.Message)

	l.mu.Lock()
	defer l.mu.Unlock()
	select {
	case <-l.done:
		return
	default:
	}

	if ev.Message != "" {
		l.messages = append(l.messages, ev.Message)
	}
	if ev.TaskName != l.task || (ev.TaskStatus != StatusCompleted && ev.TaskStatus != StatusFailed) {
		return
	}
	l.once.Do(func() {
		l.outcome = Outcome{
			TaskName:   ev.TaskName,
			Status:     ev.TaskStatus,
			Messages:   append([]string(nil), l.messages...),
			Properties: copyProps(ev.Properties),
		}
		close(l.done)
	})
}

func copyProps(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Done is closed once the listener is resolved.
func (l *Listener) Done() <-chan struct{} {
	return l.done
}

// Wait blocks until the listener is resolved, ctx ends, or timeout
// elapses. A zero timeout waits without limit.
func (l *Listener) Wait(ctx context.Context, timeout time.Duration) (Outcome, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-l.done:
		l.mu.Lock()
		defer l.mu.Unlock()
		return l.outcome, nil
	case <-expired:
		return Outcome{}, fmt.Errorf("%w %s after %s", ErrWaitTimeout, l.task, timeout)
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}
