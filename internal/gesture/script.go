// Package gesture drives a canvas session from a YAML script of tool
// changes, strokes and history commands.
package gesture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrBadStep = errors.New("invalid script step")

// Canvas is the part of a canvas session a script drives.
type Canvas interface {
	SetTool(name string) error
	SetColor(hex string) error
	SetLineWidth(w float64) error
	SetSymmetry(on bool)
	PointerDown(x, y float64) error
	PointerMove(x, y float64) error
	PointerUp(x, y float64) error
	Undo() (bool, error)
	Redo() (bool, error)
	Clear() error
}

// Step is one script entry. Set fields are applied in declaration order, so
// a step may select a tool and draw with it.
//
//	steps:
//	  - tool: brush
//	    color: "#6C5CE7"
//	    stroke: [[10, 10], [80, 40], [150, 10]]
//	  - pause: 200ms
//	  - undo: true
type Step struct {
	Tool     string        `yaml:"tool"`
	Color    string        `yaml:"color"`
	Width    float64       `yaml:"width"`
	Symmetry *bool         `yaml:"symmetry"`
	Stroke   [][]float64   `yaml:"stroke"` // down at the first point, up at the last
	Interval time.Duration `yaml:"interval"`
	Undo     bool          `yaml:"undo"`
	Redo     bool          `yaml:"redo"`
	Clear    bool          `yaml:"clear"`
	Pause    time.Duration `yaml:"pause"`
}

type Script struct {
	Steps []Step `yaml:"steps"`
}

// Load reads a script file.
func Load(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open script: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes and validates a script.
func Parse(r io.Reader) (*Script, error) {
	var sc Script
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks the shape of every step. Tool, colour and width values
// are checked by the canvas when the step runs.
func (sc *Script) Validate() error {
	for i, st := range sc.Steps {
		for _, p := range st.Stroke {
			if len(p) != 2 {
				return fmt.Errorf("%w %d: stroke point %v is not [x, y]", ErrBadStep, i+1, p)
			}
		}
		if st.Pause < 0 || st.Interval < 0 {
			return fmt.Errorf("%w %d: negative duration", ErrBadStep, i+1)
		}
	}
	return nil
}

// Run plays the script against c. It stops at the first failing step or
// when ctx is done.
func (sc *Script) Run(ctx context.Context, c Canvas) error {
	for i, st := range sc.Steps {
		if err := runStep(ctx, c, st); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return nil
}

func runStep(ctx context.Context, c Canvas, st Step) error {
	if st.Tool != "" {
		if err := c.SetTool(st.Tool); err != nil {
			return err
		}
	}
	if st.Color != "" {
		if err := c.SetColor(st.Color); err != nil {
			return err
		}
	}
	if st.Width != 0 {
		if err := c.SetLineWidth(st.Width); err != nil {
			return err
		}
	}
	if st.Symmetry != nil {
		c.SetSymmetry(*st.Symmetry)
	}
	if len(st.Stroke) > 0 {
		if err := stroke(ctx, c, st.Stroke, st.Interval); err != nil {
			return err
		}
	}
	if st.Undo {
		if _, err := c.Undo(); err != nil {
			return err
		}
	}
	if st.Redo {
		if _, err := c.Redo(); err != nil {
			return err
		}
	}
	if st.Clear {
		if err := c.Clear(); err != nil {
			return err
		}
	}
	return sleep(ctx, st.Pause)
}

func stroke(ctx context.Context, c Canvas, pts [][]float64, interval time.Duration) error {
	first, last := pts[0], pts[len(pts)-1]
	if err := c.PointerDown(first[0], first[1]); err != nil {
		return err
	}
	for _, p := range pts[1:] {
		if err := sleep(ctx, interval); err != nil {
			c.PointerUp(p[0], p[1])
			return err
		}
		if err := c.PointerMove(p[0], p[1]); err != nil {
			c.PointerUp(p[0], p[1])
			return err
		}
	}
	return c.PointerUp(last[0], last[1])
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
