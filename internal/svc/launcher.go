//go:build unix

package svc

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// Launcher spawns the car process directly when no supervisor unit exists:
// detached from the terminal, output appended to a log file, pid recorded
// so later runs can inspect or stop it.
type Launcher struct {
	Dir string // car working copy; pid and log files live here
}

func (l Launcher) PIDPath() string { return filepath.Join(l.Dir, "rig.pid") }
func (l Launcher) LogPath() string { return filepath.Join(l.Dir, "rig.log") }

// Start launches argv detached. An already-running launch is reused, not
// duplicated.
func (l Launcher) Start(ctx context.Context, argv []string) (int, error) {
	if pid, running := l.Running(); running {
		return pid, nil
	}
	if len(argv) == 0 {
		return 0, fmt.Errorf("nothing to launch")
	}

	logFile, err := os.OpenFile(l.LogPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open launch log file: %w", err)
	}
	defer logFile.Close()

	proc := exec.Command(argv[0], argv[1:]...)
	proc.Dir = l.Dir
	proc.Stdout = logFile
	proc.Stderr = logFile
	proc.Stdin = nil
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return 0, fmt.Errorf("start process: %w", err)
	}

	pid := proc.Process.Pid
	if err := os.WriteFile(l.PIDPath(), []byte(strconv.Itoa(pid)+"\n"), 0o644); err != nil {
		_ = proc.Process.Kill()
		return 0, fmt.Errorf("write pid file: %w", err)
	}

	readyCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	for {
		if processRunning(pid) {
			return pid, nil
		}
		select {
		case <-readyCtx.Done():
			_ = os.Remove(l.PIDPath())
			return 0, fmt.Errorf("process did not stay running; see %s", l.LogPath())
		case <-time.After(200 * time.Millisecond):
		}
	}
}

// Stop terminates a directly-launched process, escalating to SIGKILL when
// it ignores SIGTERM.
func (l Launcher) Stop(ctx context.Context) error {
	pid, running := l.Running()
	if !running {
		_ = os.Remove(l.PIDPath())
		return nil
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process %d: %w", pid, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal process %d: %w", pid, err)
	}

	stopCtx, cancel := context.WithTimeout(ctx, 8*time.Second)
	defer cancel()
	for {
		if !processRunning(pid) {
			_ = os.Remove(l.PIDPath())
			return nil
		}
		select {
		case <-stopCtx.Done():
			_ = proc.Signal(syscall.SIGKILL)
			_ = os.Remove(l.PIDPath())
			return fmt.Errorf("process %d did not stop gracefully", pid)
		case <-time.After(200 * time.Millisecond):
		}
	}
}

// Running reports the recorded pid and whether that process is alive.
func (l Launcher) Running() (int, bool) {
	data, err := os.ReadFile(l.PIDPath())
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	if !processRunning(pid) {
		return 0, false
	}
	return pid, true
}

func processRunning(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
