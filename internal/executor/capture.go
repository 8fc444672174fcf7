package executor

import (
	"fmt"
	"strings"
	"time"

	"github.com/sevigo/ci-warden/internal/runlog"
)

// runLogBatch bounds how many lines are held before being handed to the run log.
const runLogBatch = 512

// RunLog receives every captured line of every build.
type RunLog interface {
	Append(source string, lines []runlog.Line) error
}

// capture accumulates the log text of one build, capped at limit bytes, and
// forwards every line to the shared run log in batches.
type capture struct {
	source  string
	runLog  RunLog
	limit   int
	now     func() time.Time
	onError func(error)

	text      strings.Builder
	pending   []runlog.Line
	truncated int
}

func (c *capture) add(line string) {
	c.pending = append(c.pending, runlog.Line{At: c.now(), Text: line})
	if len(c.pending) >= runLogBatch {
		c.flush()
	}

	if c.limit > 0 && c.text.Len()+len(line)+1 > c.limit {
		c.truncated++
		return
	}
	c.text.WriteString(line)
	c.text.WriteByte('\n')
}

// diag records a diagnostic line. Diagnostics bypass the size limit.
func (c *capture) diag(format string, args ...any) {
	line := "[ci-warden] " + fmt.Sprintf(format, args...)
	c.pending = append(c.pending, runlog.Line{At: c.now(), Text: line})
	c.text.WriteString(line)
	c.text.WriteByte('\n')
}

func (c *capture) flush() {
	if len(c.pending) == 0 || c.runLog == nil {
		c.pending = c.pending[:0]
		return
	}
	if err := c.runLog.Append(c.source, c.pending); err != nil && c.onError != nil {
		c.onError(err)
	}
	c.pending = nil
}

func (c *capture) String() string {
	if c.truncated == 0 {
		return c.text.String()
	}
	return c.text.String() + fmt.Sprintf("[ci-warden] log truncated: %d further lines omitted\n", c.truncated)
}
