// Copyright 2021 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// picnc executes G-code on a Raspberry Pi driven CNC machine, or
// simulates the execution on any desktop.
//
//	picnc [options] FILE [/json/pointer=value ...]
//
// Exit status is 0 on success, 1 when the input file cannot be read and
// 2 on a usage error.

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/ajmcleod/picnc/config"
	"github.com/ajmcleod/picnc/console"
	"github.com/ajmcleod/picnc/exec"
	"github.com/ajmcleod/picnc/gcode"
	"github.com/ajmcleod/picnc/hw"
	"github.com/ajmcleod/picnc/motion"
	"github.com/ajmcleod/picnc/vis"
)

var (
	configFile  = flag.String("c", "", "Configuration file (JSON)")
	showConfig  = flag.Bool("C", false, "Print the effective configuration as JSON")
	gcodeFile   = flag.String("f", "", "G-code file to execute")
	interactive = flag.Bool("i", false, "Start the interactive console")
	rawGcode    = flag.Bool("raw", false, "Execute the file as-is, without path adaptation")
	saveFile    = flag.String("s", "", "Save the prepared program to a file before running")
	port        = flag.Int("port", 0, "Status web server port (0 disables)")
	noWindow    = flag.Bool("no-window", false, "Do not open the simulation window")
)

func main() {
	os.Exit(run())
}

func run() int {
	flag.Parse()

	cfg := config.Default()
	for _, f := range []string{"defaults.json", "config.json"} {
		if err := cfg.LoadFile(f); err != nil && !os.IsNotExist(err) {
			log.Printf("%s: %v", f, err)
			return 2
		}
	}
	if *configFile != "" {
		if err := cfg.LoadFile(*configFile); err != nil {
			log.Printf("%s: %v", *configFile, err)
			return 2
		}
	}

	args := flag.Args()
	file := *gcodeFile
	if file == "" && len(args) > 0 && !strings.HasPrefix(args[0], "/") {
		file = args[0]
		args = args[1:]
	}
	for _, a := range args {
		if err := cfg.Patch(a); err != nil {
			log.Printf("%v", err)
			return 2
		}
	}
	if err := cfg.Validate(); err != nil {
		log.Printf("configuration: %v", err)
		return 2
	}
	if *showConfig {
		fmt.Println(cfg)
		if file == "" && !*interactive {
			return 0
		}
	}
	if file == "" && !*interactive {
		flag.Usage()
		return 2
	}

	var prog gcode.Program
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			log.Printf("%s: %v", file, err)
			return 1
		}
		prog, err = gcode.Parse(string(data))
		if err != nil {
			log.Printf("%s: %v", file, err)
			return 2
		}
	}

	timer, err := hw.NewTimer(cfg.LowLevelTimer)
	if err != nil {
		log.Printf("%v", err)
		return 2
	}
	layout, err := cfg.Layout()
	if err != nil {
		log.Printf("%v", err)
		return 2
	}

	var steppers hw.Steppers
	var spindles hw.Spindles
	var buttons hw.Buttons
	var closeHW func()
	simulate := cfg.SimulateExecution
	if !simulate {
		var err error
		steppers, spindles, buttons, closeHW, err = openHardware(cfg)
		if err != nil {
			log.Printf("hardware unavailable, falling back to simulation: %v", err)
			simulate = true
		}
	}

	var observers vis.Multi
	var inmem *hw.InMem
	if simulate {
		inmem = hw.NewInMem()
		steppers = inmem
		spindles = hw.NewFakeSpindles(func(i int, v float64) {
			log.Printf("spindle %d power %v", i, v)
		})
		buttons = hw.NewFakeButtons(6)
		closeHW = func() {}
		if !*noWindow {
			if w, err := vis.NewWindow(layout); err == nil {
				observers = append(observers, w)
			} else {
				log.Printf("%v", err)
			}
		}
	}
	defer closeHW()

	if *port != 0 {
		observers = append(observers, vis.NewServer(*port, layout, plannedPath(prog)))
	}
	if inmem != nil && len(observers) > 0 {
		inmem.OnStep(observers.SetSteps)
	}
	defer observers.Close()

	e, err := exec.New(cfg, steppers, spindles, buttons, timer, observers)
	if err != nil {
		log.Printf("%v", err)
		return 2
	}
	e.Raw = *rawGcode

	// A closed window aborts the running program. On real hardware the
	// observers have no step callback, so feed them from the counters.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			select {
			case <-stop:
				return
			case <-time.After(100 * time.Millisecond):
			}
			if inmem == nil && len(observers) > 0 {
				observers.SetSteps(steppers.Steps())
			}
			if !observers.Active() {
				e.Engine().Terminate(1000)
				return
			}
		}
	}()

	if *interactive {
		c := console.New(e, cfg)
		c.Run(os.Stdin, os.Stdout)
		return 0
	}

	parts, err := e.Prepare(prog)
	if err != nil {
		log.Printf("%s: %v", file, err)
		return 1
	}
	if *saveFile != "" {
		if err := os.WriteFile(*saveFile, []byte(gcode.Format(parts)), 0644); err != nil {
			log.Printf("%s: %v", *saveFile, err)
			return 1
		}
		log.Printf("prepared program saved to %s", *saveFile)
	}
	log.Printf("starting %s", file)
	if err := e.RunPartitioned(parts); err != nil {
		log.Printf("%s: %v", file, err)
		return 1
	}
	log.Printf("finished")
	return 0
}

// plannedPath extracts the Cartesian waypoints of the raw program for the
// status plot.
func plannedPath(prog gcode.Program) []motion.Distance {
	state := gcode.Block{'X': 0, 'Y': 0, 'Z': 0, 'A': 0}
	path := []motion.Distance{state.Distance()}
	for _, b := range gcode.ResolveG92(prog) {
		if g, ok := b['G']; ok && (int(g) == 0 || int(g) == 1) {
			state = gcode.Merge(state, b)
			path = append(path, state.Distance())
		}
	}
	return path
}
