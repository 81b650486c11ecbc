// Command jackdaw runs the MIDI sequencer core headlessly, bridging
// to an in-memory PortClient until a real audio/MIDI server
// integration is wired in.
package main

import (
	"fmt"
	"os"

	"github.com/jessecrossen/jackdaw-sub000/pkg/app"
	"github.com/jessecrossen/jackdaw-sub000/pkg/port"
)

func main() {
	client := port.NewFakeClient()
	application := app.New(client)
	if err := application.Run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "jackdaw:", err)
		os.Exit(1)
	}
}
