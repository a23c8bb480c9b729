package pairing

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"rigup/internal/faults"
)

const defaultPollInterval = time.Second

// ConfirmFunc asks the operator to confirm before any state-mutating action
// is taken against the peripheral. nil means non-interactive: proceed.
type ConfirmFunc func(question string) (bool, error)

// Result reports a completed session.
type Result struct {
	MAC  string
	Name string
}

// SessionError reports a failed session with the last state reached and the
// causing error.
type SessionError struct {
	LastState State
	Err       error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("pairing failed during %s: %v", e.LastState, e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

// Engine owns pairing sessions against the wireless adapter. The adapter is
// a singleton resource: at most one scan, and therefore one session, may be
// active at a time. The ownership token is in-process state, not an OS lock.
type Engine struct {
	Ctrl         Controller
	Confirm      ConfirmFunc
	PollInterval time.Duration

	mu     sync.Mutex
	active bool
}

func (e *Engine) acquire() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active {
		return fmt.Errorf("a pairing session is already active on this adapter")
	}
	e.active = true
	return nil
}

func (e *Engine) release() {
	e.mu.Lock()
	e.active = false
	e.mu.Unlock()
}

// Pair runs one full session: scan, match within the timeout window,
// confirm, then pair/trust/connect. The background scan is stopped on every
// exit path, including timeout and interrupt.
func (e *Engine) Pair(ctx context.Context, target Target, timeout time.Duration) (Result, error) {
	if err := e.acquire(); err != nil {
		return Result{}, err
	}
	defer e.release()

	interval := e.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	state := StateScanning
	if err := e.Ctrl.StartScan(ctx); err != nil {
		return Result{}, &SessionError{LastState: state, Err: err}
	}
	defer func() {
		// Cleanup is unconditional; use a fresh context so an expired
		// session deadline cannot leave the adapter scanning.
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.Ctrl.StopScan(stopCtx); err != nil {
			slog.Warn("stop scan", "err", err)
		}
	}()

	device, err := e.discover(ctx, target, timeout, interval, &state)
	if err != nil {
		return Result{}, err
	}

	state = StateConfirming
	if e.Confirm != nil {
		ok, err := e.Confirm(fmt.Sprintf("pair with %s (%s)?", device.Name, device.MAC))
		if err != nil {
			return Result{}, &SessionError{LastState: state, Err: err}
		}
		if !ok {
			return Result{}, &SessionError{LastState: state, Err: faults.ErrAborted}
		}
	}

	for _, step := range []struct {
		state State
		run   func(context.Context, string) error
	}{
		{StatePairing, e.Ctrl.Pair},
		{StateTrusting, e.Ctrl.Trust},
		{StateConnecting, e.Ctrl.Connect},
	} {
		state = step.state
		slog.Debug("pairing step", "state", state, "mac", device.MAC)
		if err := step.run(ctx, device.MAC); err != nil {
			return Result{}, &SessionError{LastState: state, Err: err}
		}
	}

	return Result{MAC: device.MAC, Name: device.Name}, nil
}

// discover polls the advertised-device list until the target matches or the
// wall-clock deadline elapses. The deadline is observed by the loop, not by
// preempting an in-flight command.
func (e *Engine) discover(ctx context.Context, target Target, timeout, interval time.Duration, state *State) (Device, error) {
	deadline := time.Now().Add(timeout)
	for {
		*state = StateMatching
		devices, err := e.Ctrl.Devices(ctx)
		if err != nil {
			// Advisory: one bad poll does not end the window.
			slog.Debug("device poll failed", "err", err)
		}
		for _, d := range devices {
			if target.Matches(d) {
				*state = StateFound
				return d, nil
			}
		}
		*state = StateScanning

		if time.Now().After(deadline) {
			*state = StateFailed
			return Device{}, &faults.TimeoutError{
				Op:      "discovery of " + target.String(),
				Elapsed: timeout.String(),
			}
		}
		select {
		case <-ctx.Done():
			*state = StateFailed
			return Device{}, &SessionError{LastState: StateScanning, Err: ctx.Err()}
		case <-time.After(interval):
		}
	}
}
