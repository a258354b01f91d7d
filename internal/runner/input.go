package runner

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/slok/stackrun/internal/log"
	"github.com/slok/stackrun/internal/model"
)

// inputRouter forwards input lines to process stdins. Lines prefixed with
// `<index|name>:` go to that process, the rest go to the default target.
type inputRouter struct {
	targets map[string]io.Writer
	def     io.Writer
	logger  log.Logger
}

func newInputRouter(procs []model.Process, stdins map[int]io.Writer, defaultTarget model.InputTarget, logger log.Logger) *inputRouter {
	r := &inputRouter{targets: map[string]io.Writer{}, logger: logger}
	for _, p := range procs {
		w, ok := stdins[p.Index]
		if !ok {
			continue
		}
		r.targets[strconv.Itoa(p.Index)] = w
		if p.Name != "" {
			r.targets[p.Name] = w
		}
	}
	r.def = r.targets[string(defaultTarget)]

	return r
}

// Route forwards a single input line.
func (r *inputRouter) Route(line string) {
	w := r.def
	text := line
	if target, rest, ok := strings.Cut(line, ":"); ok {
		if tw, ok := r.targets[target]; ok {
			w = tw
			text = rest
		}
	}

	if w == nil {
		r.logger.Warningf("No process to forward input to")
		return
	}

	if _, err := io.WriteString(w, text+"\n"); err != nil {
		r.logger.Debugf("Could not forward input: %v", err)
	}
}

// deadlineReader is a reader whose blocked reads can be released, like *os.File pipes.
type deadlineReader interface {
	io.Reader
	SetReadDeadline(t time.Time) error
}

// inputSource reads the input lines of the runs that share a reader.
type inputSource struct {
	r io.Reader

	sharedOnce sync.Once
	shared     chan string
}

// Lines returns the input lines for a single run and the function that
// releases the reader when the run ends.
//
// When the reader supports read deadlines it's only read while the run lasts,
// so the input after the run is left for whoever reads it next (hooks, the
// next run...). Otherwise a single reader goroutine is shared by every run.
func (s *inputSource) Lines() (<-chan string, func()) {
	if dr, ok := s.r.(deadlineReader); ok && dr.SetReadDeadline(time.Time{}) == nil {
		lines := make(chan string)
		stop := make(chan struct{})
		done := make(chan struct{})
		go func() {
			defer close(done)
			readLines(dr, lines, stop)
		}()

		return lines, func() {
			close(stop)
			_ = dr.SetReadDeadline(time.Now())
			<-done
			_ = dr.SetReadDeadline(time.Time{})
		}
	}

	s.sharedOnce.Do(func() {
		s.shared = make(chan string)
		go readLines(s.r, s.shared, nil)
	})

	return s.shared, func() {}
}

// readLines sends the reader lines to the channel until the reader ends or it's stopped.
func readLines(r io.Reader, lines chan<- string, stop <-chan struct{}) {
	defer close(lines)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		select {
		case lines <- scanner.Text():
		case <-stop:
			return
		}
	}
}
