package pairing

import (
	"strings"
	"time"
)

// Device is an advertised peripheral seen during a discovery window.
// Ephemeral: it exists only for the duration of the window.
type Device struct {
	MAC  string
	Name string
	Seen time.Time
}

// Target specifies what to pair with: an explicit hardware address or a
// case-insensitive name pattern. Exactly one is set.
type Target struct {
	MAC         string
	NamePattern string
}

// Matches tests one advertised device against the target. An explicit
// address match short-circuits; a pattern is substring containment against
// the advertised name, case-insensitive.
func (t Target) Matches(d Device) bool {
	if t.MAC != "" {
		return strings.EqualFold(strings.TrimSpace(t.MAC), d.MAC)
	}
	if t.NamePattern == "" {
		return false
	}
	return strings.Contains(strings.ToLower(d.Name), strings.ToLower(t.NamePattern))
}

func (t Target) String() string {
	if t.MAC != "" {
		return t.MAC
	}
	return "name ~ " + t.NamePattern
}

// ParseDeviceList parses `bluetoothctl devices` output. Lines look like
// "Device AA:BB:CC:DD:EE:FF Xbox Wireless Controller"; anything else is
// skipped.
func ParseDeviceList(out string, now time.Time) []Device {
	var devices []Device
	for _, line := range strings.Split(out, "\n") {
		fields := strings.SplitN(strings.TrimSpace(line), " ", 3)
		if len(fields) < 2 || fields[0] != "Device" {
			continue
		}
		d := Device{MAC: fields[1], Seen: now}
		if len(fields) == 3 {
			d.Name = fields[2]
		}
		devices = append(devices, d)
	}
	return devices
}
