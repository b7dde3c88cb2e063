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

//go:build linux

package hw

import (
	"fmt"
	"os"
	"os/user"
	"time"

	"golang.org/x/sys/unix"
)

// Pin directions.
const (
	pinIn = iota
	pinOut
)

const (
	gpioBaseDir    = "/sys/class/gpio/"
	gpioExportFile = gpioBaseDir + "export"
	gpioUnexport   = gpioBaseDir + "unexport"
)

const exportTimeout = 2 * time.Second

// Verify enables waiting for exported value files to become writable.
// When the process is not running as root, udev takes a moment to fix up
// the group permissions of freshly exported files; accessing them too
// early fails with a permission error.
var Verify = false

func init() {
	u, err := user.Current()
	if err == nil && u.Uid != "0" {
		Verify = true
	}
}

// Pin is one GPIO pin accessed through the sysfs interface.
type Pin struct {
	number    int
	value     *os.File
	buf       []byte
	direction int
}

// OutputPin opens a GPIO pin as an output.
func OutputPin(gpio int) (*Pin, error) {
	p, err := openPin(gpio)
	if err != nil {
		return nil, err
	}
	if err := p.setDirection(pinOut); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// InputPin opens a GPIO pin as an input.
func InputPin(gpio int) (*Pin, error) {
	return openPin(gpio)
}

func openPin(gpio int) (*Pin, error) {
	p := &Pin{number: gpio, buf: make([]byte, 1)}
	if err := exportPin(gpio); err != nil {
		return nil, err
	}
	if err := p.setDirection(pinIn); err != nil {
		unexportPin(gpio)
		return nil, err
	}
	var err error
	p.value, err = os.OpenFile(fmt.Sprintf("%sgpio%d/value", gpioBaseDir, gpio), os.O_RDWR, 0600)
	if err != nil {
		unexportPin(gpio)
		return nil, err
	}
	return p, nil
}

func (p *Pin) setDirection(d int) error {
	s := "in"
	if d == pinOut {
		s = "out"
	}
	err := writeSysfs(fmt.Sprintf("%sgpio%d/direction", gpioBaseDir, p.number), s)
	if err == nil {
		p.direction = d
	}
	return err
}

// Set drives an output pin to v (0 or 1).
func (p *Pin) Set(v int) error {
	if p.direction != pinOut {
		return hwErrorf("gpio%d: is not an output", p.number)
	}
	switch v {
	case 0:
		p.buf[0] = '0'
	case 1:
		p.buf[0] = '1'
	default:
		return hwErrorf("gpio%d: illegal value %d", p.number, v)
	}
	_, err := p.value.WriteAt(p.buf, 0)
	return err
}

// Get reads the current level of the pin.
func (p *Pin) Get() (int, error) {
	if _, err := p.value.ReadAt(p.buf, 0); err != nil {
		return 0, err
	}
	switch p.buf[0] {
	case '0':
		return 0, nil
	case '1':
		return 1, nil
	}
	return 0, hwErrorf("gpio%d: unknown value %q", p.number, p.buf)
}

// Close releases and unexports the pin.
func (p *Pin) Close() {
	if p.value != nil {
		p.value.Close()
	}
	unexportPin(p.number)
}

func exportPin(gpio int) error {
	val := fmt.Sprintf("%sgpio%d/value", gpioBaseDir, gpio)
	if err := unix.Access(val, unix.W_OK|unix.R_OK); err == nil {
		return nil
	}
	err := writeSysfs(gpioExportFile, fmt.Sprintf("%d", gpio))
	if err == nil && Verify {
		return verifyWritable(val)
	}
	return err
}

func unexportPin(gpio int) error {
	return writeSysfs(gpioUnexport, fmt.Sprintf("%d", gpio))
}

func writeSysfs(fname, s string) error {
	f, err := os.OpenFile(fname, os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write([]byte(s))
	return err
}

// Wait for an exported file to become writable.
func verifyWritable(f string) error {
	sl := time.Millisecond
	for tout := time.Duration(0); tout < exportTimeout; tout += sl {
		if err := unix.Access(f, unix.W_OK); err == nil {
			return nil
		}
		time.Sleep(sl)
	}
	return hwErrorf("%s: not writable", f)
}
