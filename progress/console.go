package progress

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Console prints one line per callback
type Console struct {
	mutex sync.Mutex
	out   io.Writer
}

func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

func (c *Console) TargetStarted(target string) {
	c.printf("%s pupdating...\n", target)
}

func (c *Console) TargetFinished(target string, succeeded bool, elapsed time.Duration) {
	verdict := "failed"
	if succeeded {
		verdict = "succeeded"
	}
	c.printf("%s finished in %d seconds: %s\n", target, int64(elapsed/time.Second), verdict)
}

func (c *Console) OverallProgress(completed, total int) {
	c.printf("[%d/%d]\n", completed, total)
}

func (c *Console) printf(format string, a ...interface{}) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	// write errors are not relevant for the run
	_, _ = fmt.Fprintf(c.out, format, a...)
}
