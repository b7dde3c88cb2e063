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

// Package console provides an interactive command prompt for manual
// machine control: jogging, spindle and motor switching, and running
// G-code files.

package console

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/beevik/cmd"

	"github.com/ajmcleod/picnc/exec"
	"github.com/ajmcleod/picnc/gcode"
)

var cmds *cmd.Tree

func init() {
	root := cmd.NewTree("picnc")
	root.AddCommand(cmd.Command{
		Name:        "help",
		Description: "Display help for a command.",
		Usage:       "help [<command>]",
		Data:        (*Console).cmdHelp,
	})
	root.AddCommand(cmd.Command{
		Name:        "run",
		Brief:       "Run a G-code file",
		Description: "Plan and execute the G-code program in the named file.",
		Usage:       "run <filename>",
		Data:        (*Console).cmdRun,
	})
	root.AddCommand(cmd.Command{
		Name:  "jog",
		Brief: "Jog one axis",
		Description: "Move one axis by a relative distance in mm, optionally" +
			" at the given feedrate in mm/s.",
		Usage: "jog <axis> <mm> [<feedrate>]",
		Data:  (*Console).cmdJog,
	})
	root.AddCommand(cmd.Command{
		Name:        "status",
		Brief:       "Show machine status",
		Description: "Show the machine state ledger and step counters.",
		Usage:       "status",
		Data:        (*Console).cmdStatus,
	})
	root.AddCommand(cmd.Command{
		Name:        "spindle",
		Brief:       "Switch spindle 0",
		Description: "Switch spindle 0 fully on or off.",
		Usage:       "spindle on|off",
		Data:        (*Console).cmdSpindle,
	})
	root.AddCommand(cmd.Command{
		Name:        "motors",
		Brief:       "Switch stepper drivers",
		Description: "Enable or disable all stepper motor drivers.",
		Usage:       "motors on|off",
		Data:        (*Console).cmdMotors,
	})
	root.AddCommand(cmd.Command{
		Name:        "config",
		Brief:       "Show configuration",
		Description: "Print the effective configuration as JSON.",
		Usage:       "config",
		Data:        (*Console).cmdConfig,
	})
	root.AddCommand(cmd.Command{
		Name:        "quit",
		Brief:       "Quit the console",
		Description: "Quit the console.",
		Usage:       "quit",
		Data:        (*Console).cmdQuit,
	})
	cmds = root
}

// Console runs the interactive prompt over an executive.
type Console struct {
	exec    *exec.Executive
	conf    fmt.Stringer
	input   *bufio.Scanner
	output  *bufio.Writer
	lastCmd *cmd.Selection
	done    bool
}

// New creates a console for the executive. conf is printed by the config
// command.
func New(e *exec.Executive, conf fmt.Stringer) *Console {
	return &Console{exec: e, conf: conf}
}

// Run reads commands from r and writes results to w until quit or EOF.
func (c *Console) Run(r io.Reader, w io.Writer) {
	c.input = bufio.NewScanner(r)
	c.output = bufio.NewWriter(w)
	for !c.done {
		fmt.Fprint(c.output, "* ")
		c.output.Flush()
		if !c.input.Scan() {
			break
		}
		if err := c.process(c.input.Text()); err != nil {
			break
		}
		c.output.Flush()
	}
	c.output.Flush()
}

func (c *Console) process(line string) error {
	var sel cmd.Selection
	var err error
	switch {
	case line != "":
		sel, err = cmds.Lookup(line)
	case c.lastCmd != nil:
		sel = *c.lastCmd
	default:
		return nil
	}
	if err != nil {
		fmt.Fprintf(c.output, "%v\n", err)
		return nil
	}
	if sel.Command == nil {
		return nil
	}
	c.lastCmd = &sel
	handler, ok := sel.Command.Data.(func(*Console, cmd.Selection) error)
	if !ok {
		fmt.Fprintf(c.output, "%s: no handler\n", sel.Command.Name)
		return nil
	}
	return handler(c, sel)
}

func (c *Console) cmdHelp(sel cmd.Selection) error {
	if len(sel.Args) > 0 {
		s, err := cmds.Lookup(strings.Join(sel.Args, " "))
		if err != nil {
			fmt.Fprintf(c.output, "%v\n", err)
			return nil
		}
		fmt.Fprintf(c.output, "Usage: %s\n\n%s\n", s.Command.Usage, s.Command.Description)
		return nil
	}
	fmt.Fprintf(c.output, "%s commands:\n", cmds.Title)
	for _, e := range cmds.Commands {
		if e.Brief != "" {
			fmt.Fprintf(c.output, "    %-10s %s\n", e.Name, e.Brief)
		}
	}
	return nil
}

func (c *Console) cmdRun(sel cmd.Selection) error {
	if len(sel.Args) != 1 {
		fmt.Fprintf(c.output, "usage: run <filename>\n")
		return nil
	}
	data, err := os.ReadFile(sel.Args[0])
	if err != nil {
		fmt.Fprintf(c.output, "%v\n", err)
		return nil
	}
	prog, err := gcode.Parse(string(data))
	if err != nil {
		fmt.Fprintf(c.output, "%s: %v\n", sel.Args[0], err)
		return nil
	}
	if err := c.exec.Run(prog); err != nil {
		fmt.Fprintf(c.output, "execution failed: %v\n", err)
		return nil
	}
	fmt.Fprintf(c.output, "done, state %v\n", c.exec.State())
	return nil
}

func (c *Console) cmdJog(sel cmd.Selection) error {
	if len(sel.Args) < 2 {
		fmt.Fprintf(c.output, "usage: jog <axis> <mm> [<feedrate>]\n")
		return nil
	}
	axis := strings.ToUpper(sel.Args[0])
	if len(axis) != 1 || !strings.Contains("XYZA", axis) {
		fmt.Fprintf(c.output, "%s: axis must be one of X Y Z A\n", sel.Args[0])
		return nil
	}
	dist, err := strconv.ParseFloat(sel.Args[1], 64)
	if err != nil {
		fmt.Fprintf(c.output, "%s: not a distance\n", sel.Args[1])
		return nil
	}
	feed := 0.0
	if len(sel.Args) > 2 {
		if feed, err = strconv.ParseFloat(sel.Args[2], 64); err != nil {
			fmt.Fprintf(c.output, "%s: not a feedrate\n", sel.Args[2])
			return nil
		}
	}
	// Every run starts its position ledger at the origin, so the jog
	// distance is the target of a one-block program.
	block := gcode.Block{axis[0]: dist}
	if feed > 0 {
		block['G'] = 1
		block['F'] = feed
	} else {
		block['G'] = 0
	}
	if err := c.exec.Run(gcode.Program{block}); err != nil {
		fmt.Fprintf(c.output, "jog failed: %v\n", err)
		return nil
	}
	fmt.Fprintf(c.output, "at %v\n", c.exec.State())
	return nil
}

func (c *Console) cmdStatus(cmd.Selection) error {
	fmt.Fprintf(c.output, "state: %v\n", c.exec.State())
	fmt.Fprintf(c.output, "ticks: %d, step pulses: %d\n",
		c.exec.Engine().TickIndex(), c.exec.Engine().StepsCounter())
	return nil
}

func (c *Console) cmdSpindle(sel cmd.Selection) error {
	return c.onOff(sel, "spindle", "M3 P0", "M5 P0")
}

func (c *Console) cmdMotors(sel cmd.Selection) error {
	return c.onOff(sel, "motors", "M17 P0", "M18 P0")
}

func (c *Console) onOff(sel cmd.Selection, what, on, off string) error {
	if len(sel.Args) != 1 || (sel.Args[0] != "on" && sel.Args[0] != "off") {
		fmt.Fprintf(c.output, "usage: %s on|off\n", what)
		return nil
	}
	text := on
	if sel.Args[0] == "off" {
		text = off
	}
	prog, err := gcode.Parse(text)
	if err != nil {
		return err
	}
	if err := c.exec.Run(prog); err != nil {
		fmt.Fprintf(c.output, "%s: %v\n", what, err)
	}
	return nil
}

func (c *Console) cmdConfig(cmd.Selection) error {
	fmt.Fprintf(c.output, "%s\n", c.conf)
	return nil
}

func (c *Console) cmdQuit(cmd.Selection) error {
	c.done = true
	return nil
}
