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
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/fogleman/gg"

	"github.com/ajmcleod/picnc/motion"
)

const (
	plotSize   = 800
	plotMargin = 40
)

// Server is an HTTP observer: it renders the planned toolpath with the
// live position drawn on top, and serves machine status as HTML and JSON.
type Server struct {
	layout motion.Layout
	path   []motion.Distance

	mu     sync.Mutex
	steps  motion.Steps
	family int
}

// NewServer starts an HTTP status server on the port. The path is the
// planned toolpath used as the plot background.
func NewServer(port int, layout motion.Layout, path []motion.Distance) *Server {
	s := &Server{layout: layout, path: path}
	mux := http.NewServeMux()
	mux.HandleFunc("/plot.png", s.plot)
	mux.HandleFunc("/status", s.status)
	mux.HandleFunc("/status.json", s.statusJSON)
	addr := fmt.Sprintf(":%d", port)
	go func() {
		log.Printf("status server on %s", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Printf("status server: %v", err)
		}
	}()
	return s
}

func (s *Server) SetSteps(st motion.Steps) {
	s.mu.Lock()
	s.steps = st
	s.mu.Unlock()
}

func (s *Server) SetFamily(g int) {
	s.mu.Lock()
	s.family = g
	s.mu.Unlock()
}

func (s *Server) Active() bool { return true }

func (s *Server) Close() {}

// bounds returns the XY bounding box of the toolpath.
func (s *Server) bounds() (minX, minY, maxX, maxY float64) {
	for i, p := range s.path {
		if i == 0 || p[0] < minX {
			minX = p[0]
		}
		if i == 0 || p[1] < minY {
			minY = p[1]
		}
		if i == 0 || p[0] > maxX {
			maxX = p[0]
		}
		if i == 0 || p[1] > maxY {
			maxY = p[1]
		}
	}
	if maxX-minX < 1 {
		maxX = minX + 1
	}
	if maxY-minY < 1 {
		maxY = minY + 1
	}
	return
}

// plot draws the toolpath and the current position.
func (s *Server) plot(w http.ResponseWriter, r *http.Request) {
	minX, minY, maxX, maxY := s.bounds()
	scale := (plotSize - 2.0*plotMargin) / max(maxX-minX, maxY-minY)
	toPix := func(p motion.Distance) (float64, float64) {
		return plotMargin + (p[0]-minX)*scale, plotSize - plotMargin - (p[1]-minY)*scale
	}
	c := gg.NewContext(plotSize, plotSize)
	c.SetRGB(1, 1, 1)
	c.Clear()
	c.SetRGB(0.4, 0.4, 0.8)
	c.SetLineWidth(1)
	for i := 1; i < len(s.path); i++ {
		x0, y0 := toPix(s.path[i-1])
		x1, y1 := toPix(s.path[i])
		c.DrawLine(x0, y0, x1, y1)
		c.Stroke()
	}
	s.mu.Lock()
	pos := s.layout.ToCartesian(s.steps)
	s.mu.Unlock()
	x, y := toPix(pos)
	c.SetRGB(1, 0, 0)
	c.DrawCircle(x, y, 4)
	c.Fill()
	w.Header().Set("Content-Type", "image/png")
	if err := c.EncodePNG(w); err != nil {
		log.Printf("error writing image: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// status displays the machine position and dispatch state.
func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	steps := s.steps
	family := s.family
	s.mu.Unlock()
	pos := s.layout.ToCartesian(steps)
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprintf(w, "<html><head><meta http-equiv=\"refresh\" content=\"2\"></head><body>")
	fmt.Fprintf(w, "<h1>Machine</h1>")
	fmt.Fprintf(w, "G%d at X%.3f Y%.3f Z%.3f A%.3f (steps %v)<br>", family, pos[0], pos[1], pos[2], pos[3], steps)
	fmt.Fprintf(w, "<p><a href=\"plot.png\">toolpath</a><br>")
	fmt.Fprintf(w, "</body>")
}

func (s *Server) statusJSON(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	steps := s.steps
	family := s.family
	s.mu.Unlock()
	pos := s.layout.ToCartesian(steps)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"g":        family,
		"steps":    steps,
		"position": pos,
	})
}
