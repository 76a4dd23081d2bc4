// main.go
//
// Entry point for the phasesim CLI. Commands (run, replay, phases) live in cmd/.

package main

import (
	"github.com/phasesim/phasesim/cmd"
)

func main() {
	cmd.Execute()
}
