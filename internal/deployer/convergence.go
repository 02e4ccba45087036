package deployer

import (
	"context"
	"time"

	"wasdeploy/internal/api"
	"wasdeploy/internal/mbean"
	"wasdeploy/pkg/logging"
)

// DefaultPollInterval is the fixed delay between registry probes.
const DefaultPollInterval = 100 * time.Millisecond

// Registry answers the convergence probes. transport.Transport
// satisfies it.
type Registry interface {
	QueryRegistered(ctx context.Context, appID string) (bool, error)
	QueryRuntimeState(ctx context.Context, appID string) (string, error)
	ListRegistered(ctx context.Context) ([]string, error)
}

// Status is the convergence state of one application.
type Status int

const (
	StatusInitial Status = iota
	StatusMatchesTargetState
	StatusFinished
)

func (s Status) String() string {
	switch s {
	case StatusInitial:
		return api.PhaseInitial
	case StatusMatchesTargetState:
		return api.PhaseMatchesTargetState
	case StatusFinished:
		return "FINISHED"
	}
	return "UNKNOWN"
}

// Poller waits for applications to reach a target state.
type Poller struct {
	registry Registry

	// Interval is the delay between probe rounds.
	Interval time.Duration

	// OnTransition, when set, observes every status change.
	OnTransition func(appID string, from, to Status)

	now func() time.Time
}

// NewPoller creates a poller probing registry every DefaultPollInterval.
func NewPoller(registry Registry) *Poller {
	return &Poller{registry: registry, Interval: DefaultPollInterval, now: time.Now}
}

// WaitForTargetState blocks until every application in appIDs has reached
// the target state: registered with runtime state STARTED when target is
// true, unregistered when it is false. Statuses only move forward. A
// registry error ends the wait immediately. When timeout elapses first,
// the registered names are logged and an api.ConvergenceTimeoutError
// lists the applications that did not finish.
func (p *Poller) WaitForTargetState(ctx context.Context, appIDs []string, target bool, timeout time.Duration) error {
	statuses := make(map[string]Status, len(appIDs))
	for _, id := range appIDs {
		statuses[id] = StatusInitial
	}
	deadline := p.now().Add(timeout)

	for {
		finished, err := p.round(ctx, appIDs, statuses, target)
		if err != nil {
			return err
		}
		if finished {
			logging.Debug(subsystem, "%v reached target state %t", appIDs, target)
			return nil
		}
		if !p.now().Before(deadline) {
			break
		}
		if err := sleepContext(ctx, p.Interval); err != nil {
			return err
		}
	}

	timeoutErr := &api.ConvergenceTimeoutError{Target: target, Timeout: timeout}
	for _, id := range appIDs {
		if s := statuses[id]; s != StatusFinished {
			timeoutErr.Stuck = append(timeoutErr.Stuck, api.StuckApplication{Name: id, Phase: s.String()})
		}
	}
	p.dumpRegistered(ctx)
	return timeoutErr
}

func (p *Poller) round(ctx context.Context, appIDs []string, statuses map[string]Status, target bool) (bool, error) {
	for _, id := range appIDs {
		if statuses[id] != StatusInitial {
			continue
		}
		registered, err := p.registry.QueryRegistered(ctx, id)
		if err != nil {
			return false, err
		}
		if registered == target {
			p.advance(id, statuses, StatusMatchesTargetState)
		}
	}

	for _, id := range appIDs {
		if statuses[id] != StatusMatchesTargetState {
			continue
		}
		if !target {
			p.advance(id, statuses, StatusFinished)
			continue
		}
		state, err := p.registry.QueryRuntimeState(ctx, id)
		if err != nil {
			return false, err
		}
		if state == mbean.StateStarted {
			p.advance(id, statuses, StatusFinished)
		}
	}

	for _, id := range appIDs {
		if statuses[id] != StatusFinished {
			return false, nil
		}
	}
	return true, nil
}

func (p *Poller) advance(id string, statuses map[string]Status, to Status) {
	from := statuses[id]
	statuses[id] = to
	logging.Debug(subsystem, "%s: %s -> %s", id, from, to)
	if p.OnTransition != nil {
		p.OnTransition(id, from, to)
	}
}

// dumpRegistered logs every registered name. Failures are only logged.
func (p *Poller) dumpRegistered(ctx context.Context) {
	names, err := p.registry.ListRegistered(ctx)
	if err != nil {
		logging.Warn(subsystem, "Could not list registered applications: %v", err)
		return
	}
	logging.Info(subsystem, "Listing all registered names (%d)", len(names))
	for _, name := range names {
		logging.Info(subsystem, "%s", name)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
