package pairing

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// Controller is the wireless control surface a session drives. Package-local
// so tests use fakes instead of a radio.
type Controller interface {
	StartScan(ctx context.Context) error
	StopScan(ctx context.Context) error // best-effort cleanup
	Devices(ctx context.Context) ([]Device, error)
	Pair(ctx context.Context, mac string) error
	Trust(ctx context.Context, mac string) error
	Connect(ctx context.Context, mac string) error
}

// BluetoothCtl drives the system bluetoothctl client. The background scan is
// a long-lived `bluetoothctl scan on` process owned by this struct; StopScan
// turns scanning off and reaps the process.
type BluetoothCtl struct {
	mu       sync.Mutex
	scanCmd  *exec.Cmd
	scanStop context.CancelFunc
}

func (b *BluetoothCtl) StartScan(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.scanCmd != nil {
		return fmt.Errorf("scan already running")
	}

	scanCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(scanCtx, "bluetoothctl", "scan", "on")
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("start scan: %w", err)
	}
	b.scanCmd = cmd
	b.scanStop = cancel
	return nil
}

func (b *BluetoothCtl) StopScan(ctx context.Context) error {
	b.mu.Lock()
	cmd := b.scanCmd
	cancel := b.scanStop
	b.scanCmd = nil
	b.scanStop = nil
	b.mu.Unlock()
	if cmd == nil {
		return nil
	}

	// Ask the adapter to stop before killing the holder process, so it is
	// never left in a scanning state.
	offCtx, offCancel := context.WithTimeout(ctx, 3*time.Second)
	defer offCancel()
	_, offErr := b.run(offCtx, "scan", "off")

	cancel()
	_ = cmd.Wait()
	return offErr
}

func (b *BluetoothCtl) Devices(ctx context.Context) ([]Device, error) {
	out, err := b.run(ctx, "devices")
	if err != nil {
		return nil, err
	}
	return ParseDeviceList(out, time.Now()), nil
}

func (b *BluetoothCtl) Pair(ctx context.Context, mac string) error {
	_, err := b.run(ctx, "pair", mac)
	return err
}

func (b *BluetoothCtl) Trust(ctx context.Context, mac string) error {
	_, err := b.run(ctx, "trust", mac)
	return err
}

func (b *BluetoothCtl) Connect(ctx context.Context, mac string) error {
	_, err := b.run(ctx, "connect", mac)
	return err
}

func (b *BluetoothCtl) run(ctx context.Context, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, "bluetoothctl", args...).CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return "", fmt.Errorf("bluetoothctl %s: %w", strings.Join(args, " "), err)
		}
		return "", fmt.Errorf("bluetoothctl %s: %w: %s", strings.Join(args, " "), err, msg)
	}
	return string(out), nil
}
