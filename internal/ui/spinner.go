package ui

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// SimpleSpinner animates a bubbles spinner on one terminal line.
type SimpleSpinner struct {
	message  string
	spinner  spinner.Spinner
	interval time.Duration
	done     chan struct{}
	once     sync.Once
}

func NewConnectionSpinner(message string) *SimpleSpinner {
	return &SimpleSpinner{
		message:  message,
		spinner:  spinner.Globe,
		interval: 180 * time.Millisecond,
		done:     make(chan struct{}),
	}
}

func NewWaitingSpinner(message string) *SimpleSpinner {
	return &SimpleSpinner{
		message:  message,
		spinner:  spinner.Points,
		interval: 100 * time.Millisecond,
		done:     make(chan struct{}),
	}
}

func (s *SimpleSpinner) Start() {
	go func() {
		frames := s.spinner.Frames
		for i := 0; ; i++ {
			select {
			case <-s.done:
				return
			case <-time.After(s.interval):
				fmt.Printf("\r%s %s", SpinnerStyle.Render(frames[i%len(frames)]), s.message)
			}
		}
	}()
}

func (s *SimpleSpinner) Stop() {
	s.once.Do(func() {
		close(s.done)
		fmt.Print("\r\033[K")
	})
}

// RunConnectionSpinner starts a connection spinner and returns a stop function
func RunConnectionSpinner(message string) func() {
	sp := NewConnectionSpinner(message)
	sp.Start()
	return sp.Stop
}

// RunWaitingSpinner starts a waiting spinner and returns a stop function
func RunWaitingSpinner(message string) func() {
	sp := NewWaitingSpinner(message)
	sp.Start()
	return sp.Stop
}
