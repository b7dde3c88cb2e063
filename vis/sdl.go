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

package vis

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/ajmcleod/picnc/motion"
)

const (
	sdlWidth    = 640
	sdlHeight   = 480
	sdlScale    = 4.0 // pixels per mm
	sdlFrameDur = 33 * time.Millisecond
)

// Window is an SDL observer showing the simulated machine from above.
// Visited positions accumulate as a trace; the Z axis shades the trace
// color. Closing the window deactivates the observer, which makes the
// executive abort the program.
type Window struct {
	mu     sync.Mutex
	trace  []motion.Steps
	steps  motion.Steps
	family int

	layout motion.Layout
	active atomic.Bool
	done   chan struct{}
}

// NewWindow opens the simulation window and starts its render loop.
func NewWindow(layout motion.Layout) (*Window, error) {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, fmt.Errorf("SDL init: %v", err)
	}
	w := &Window{layout: layout, done: make(chan struct{})}
	w.active.Store(true)
	go w.run()
	return w, nil
}

func (w *Window) SetSteps(s motion.Steps) {
	w.mu.Lock()
	w.steps = s
	if n := len(w.trace); n == 0 || w.trace[n-1] != s {
		w.trace = append(w.trace, s)
	}
	w.mu.Unlock()
}

func (w *Window) SetFamily(g int) {
	w.mu.Lock()
	w.family = g
	w.mu.Unlock()
}

func (w *Window) Active() bool {
	return w.active.Load()
}

func (w *Window) Close() {
	if w.active.Swap(false) {
		<-w.done
	}
}

// run owns the SDL window: event handling and rendering both happen here,
// SDL is not thread safe.
func (w *Window) run() {
	defer close(w.done)
	window, renderer, err := sdl.CreateWindowAndRenderer(sdlWidth, sdlHeight, sdl.WINDOW_SHOWN)
	if err != nil {
		w.active.Store(false)
		return
	}
	window.SetTitle("picnc")
	defer renderer.Destroy()
	defer window.Destroy()
	defer sdl.Quit()
	for w.active.Load() {
		for ev := sdl.PollEvent(); ev != nil; ev = sdl.PollEvent() {
			switch ev.(type) {
			case *sdl.QuitEvent:
				w.active.Store(false)
			}
		}
		w.render(renderer)
		time.Sleep(sdlFrameDur)
	}
}

func (w *Window) render(renderer *sdl.Renderer) {
	w.mu.Lock()
	trace := w.trace
	steps := w.steps
	w.mu.Unlock()

	renderer.SetDrawColor(0, 0, 0, 255)
	renderer.Clear()
	toPix := func(s motion.Steps) (int32, int32) {
		p := w.layout.ToCartesian(s)
		return int32(sdlWidth/2 + p[0]*sdlScale), int32(sdlHeight/2 - p[1]*sdlScale)
	}
	for _, s := range trace {
		p := w.layout.ToCartesian(s)
		shade := uint8(255)
		if p[2] > 0 {
			// Raised tool draws a dimmer trace.
			shade = 80
		}
		renderer.SetDrawColor(shade, shade, 64, 255)
		x, y := toPix(s)
		renderer.DrawPoint(x, y)
	}
	x, y := toPix(steps)
	renderer.SetDrawColor(255, 0, 0, 255)
	renderer.DrawRect(&sdl.Rect{X: x - 2, Y: y - 2, W: 5, H: 5})
	renderer.Present()
}
