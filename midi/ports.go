package midi

import (
	"fmt"
	"strings"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// scanTimeout bounds the port scan (CoreMIDI can hang).
const scanTimeout = 3 * time.Second

// OutPorts lists the MIDI output ports, with a timeout guard.
func OutPorts() ([]drivers.Out, error) {
	ch := make(chan []drivers.Out, 1)
	go func() {
		ch <- gomidi.GetOutPorts()
	}()

	select {
	case outs := <-ch:
		return outs, nil
	case <-time.After(scanTimeout):
		return nil, fmt.Errorf("midi port scan timed out after %v", scanTimeout)
	}
}

// FindOutPort returns the first output port whose name contains
// fragment, case-insensitively. A missing port is an error listing
// what is available, so a typo'd virtual port name fails loudly.
func FindOutPort(fragment string) (drivers.Out, error) {
	outs, err := OutPorts()
	if err != nil {
		return nil, err
	}

	want := strings.ToLower(fragment)
	for _, p := range outs {
		if strings.Contains(strings.ToLower(p.String()), want) {
			return p, nil
		}
	}

	names := make([]string, len(outs))
	for i, p := range outs {
		names[i] = p.String()
	}
	return nil, fmt.Errorf("no midi output matching %q (available: %s)", fragment, strings.Join(names, ", "))
}
