package style

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

var frames = [...]string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧"}

// Spinner animates a progress line while a long step such as the front-end
// build runs. On non-TTY writers it prints the message once and never
// redraws, so build logs stay readable.
type Spinner struct {
	w     io.Writer
	msg   string
	done  chan struct{}
	once  sync.Once
	wg    sync.WaitGroup
	isTTY bool
}

// StartSpinner begins displaying msg with an animated frame. Call Stop or
// Finish when the step completes.
func StartSpinner(w io.Writer, msg string) *Spinner {
	s := &Spinner{
		w:    w,
		msg:  msg,
		done: make(chan struct{}),
	}
	if f, ok := w.(*os.File); ok {
		s.isTTY = IsTerminal(f)
	}

	if !s.isTTY {
		fmt.Fprintf(w, "%s\n", msg)
		return s
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i++ {
			fmt.Fprintf(s.w, "\r%s %s", Dim.Render(frames[i%len(frames)]), s.msg)
			select {
			case <-s.done:
				fmt.Fprintf(s.w, "\r\033[K")
				return
			case <-ticker.C:
			}
		}
	}()
	return s
}

// Stop ends the animation and clears the line. Safe to call more than once.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		if !s.isTTY {
			return
		}
		close(s.done)
		s.wg.Wait()
	})
}

// Finish stops the spinner and prints a status line in its place.
func (s *Spinner) Finish(ok bool, msg string) {
	s.Stop()
	icon := Success.Render(IconPass)
	if !ok {
		icon = Error.Render(IconFail)
	}
	fmt.Fprintf(s.w, "%s %s\n", icon, msg)
}
