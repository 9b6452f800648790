package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"ecg-midi/midi"
)

const defaultPort = "ECG_MIDI"

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "list":
		listPorts()
	case "note":
		sendNote()
	case "cc":
		sweepCC()
	case "watch":
		watchPorts()
	default:
		usage()
	}
}

func usage() {
	fmt.Println("MIDI port probe")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list            - List all MIDI output ports")
	fmt.Println("  note [port]     - Send a test note to the port matching the fragment")
	fmt.Println("  cc [port] [num] - Sweep a controller 0..127..0 (for MIDI-learn mapping)")
	fmt.Println("  watch           - Poll for port changes (plug in a virtual port to test)")
	fmt.Println("")
	fmt.Printf("Default port fragment: %q\n", defaultPort)
}

func listPorts() {
	fmt.Println("=== MIDI Output Ports ===")
	fmt.Println("(waiting up to 3 seconds...)")

	outs, err := midi.OutPorts()
	if err != nil {
		fmt.Println(err)
		fmt.Println("Fix (macOS): sudo killall coreaudiod midiserver")
		return
	}
	if len(outs) == 0 {
		fmt.Println("  none - create a virtual port first (loopMIDI, IAC)")
		return
	}
	for i, p := range outs {
		fmt.Printf("  %d: %s\n", i, p.String())
	}
}

func sendNote() {
	fragment := defaultPort
	if len(os.Args) > 2 {
		fragment = os.Args[2]
	}

	snk, err := midi.NewPortSink(fragment)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer snk.Close()

	fmt.Printf("Using output: %s\n", snk.Port())
	fmt.Println("Sending middle C, holding 500ms...")
	if err := midi.SendTestNote(snk, 0, 500*time.Millisecond); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("Done! You should have heard one note.")
}

func sweepCC() {
	fragment := defaultPort
	if len(os.Args) > 2 {
		fragment = os.Args[2]
	}
	controller := uint8(113)
	if len(os.Args) > 3 {
		n, err := strconv.Atoi(os.Args[3])
		if err != nil || n < 0 || n > 127 {
			fmt.Printf("Bad controller number %q (want 0..127)\n", os.Args[3])
			return
		}
		controller = uint8(n)
	}

	snk, err := midi.NewPortSink(fragment)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer snk.Close()

	fmt.Printf("Using output: %s\n", snk.Port())
	fmt.Printf("Sweeping CC %d up and back down (map it in your DAW now)...\n", controller)

	send := func(v uint8) {
		snk.Send(midi.Event{Type: midi.CC, Channel: 0, Note: controller, Velocity: v})
		time.Sleep(10 * time.Millisecond)
	}
	for v := 0; v <= 127; v++ {
		send(uint8(v))
	}
	for v := 127; v >= 0; v-- {
		send(uint8(v))
	}
	fmt.Println("Done!")
}

func watchPorts() {
	fmt.Println("Polling for output port changes every 2 seconds...")
	fmt.Println("Create/remove a virtual port to test. Ctrl+C to exit.")

	last := ""
	for {
		outs, err := midi.OutPorts()
		if err != nil {
			fmt.Println(err)
			return
		}

		var names []string
		for _, p := range outs {
			names = append(names, p.String())
		}
		current := strings.Join(names, ",")

		if current != last {
			fmt.Printf("\n[%s] Port change detected!\n", time.Now().Format("15:04:05"))
			fmt.Printf("  Outputs: %v\n", names)
			for _, name := range names {
				if strings.Contains(strings.ToLower(name), strings.ToLower(defaultPort)) {
					fmt.Println("  -> bridge port found!")
				}
			}
			last = current
		}

		time.Sleep(2 * time.Second)
	}
}
