// Package clock checks the board's clock against NTP. Boards without a
// hardware RTC drift badly after a cold boot, which breaks apt signature
// checks and TLS during provisioning, so doctor surfaces the offset early.
package clock

import (
	"fmt"
	"time"

	"github.com/beevik/ntp"
)

const (
	DefaultServer    = "pool.ntp.org"
	DefaultThreshold = 2 * time.Second
)

// Query fetches the clock offset from one NTP server. Injectable for tests.
var Query = func(server string) (time.Duration, error) {
	resp, err := ntp.Query(server)
	if err != nil {
		return 0, err
	}
	if err := resp.Validate(); err != nil {
		return 0, err
	}
	return resp.ClockOffset, nil
}

// Report is the outcome of one clock check.
type Report struct {
	Offset  time.Duration
	Healthy bool
}

// Check compares the local clock against server. threshold <= 0 uses the
// default.
func Check(server string, threshold time.Duration) (Report, error) {
	if server == "" {
		server = DefaultServer
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	offset, err := Query(server)
	if err != nil {
		return Report{}, fmt.Errorf("query %s: %w", server, err)
	}

	abs := offset
	if abs < 0 {
		abs = -abs
	}
	return Report{Offset: offset, Healthy: abs <= threshold}, nil
}
