package cipher

import (
	"bytes"
	"strings"
	"sync"
)

// maxLineLen caps the bytes kept per line, including one that has not yet
// seen a newline. Older bytes are dropped.
const maxLineLen = 4096

// tailBuffer keeps the last n lines written to it. It collects the cipher
// process's stderr so errors can carry a short diagnostic without holding
// unbounded output.
type tailBuffer struct {
	mu      sync.Mutex
	lines   []string
	size    int
	pos     int
	full    bool
	partial bytes.Buffer
}

func newTailBuffer(n int) *tailBuffer {
	return &tailBuffer{
		lines: make([]string, n),
		size:  n,
	}
}

// Write implements io.Writer.
func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.partial.Write(p)
	for {
		line, err := t.partial.ReadString('\n')
		if err != nil {
			t.partial.Reset()
			t.partial.WriteString(clip(line))
			break
		}
		t.add(strings.TrimRight(line, "\r\n"))
	}
	return len(p), nil
}

func (t *tailBuffer) add(line string) {
	t.lines[t.pos] = clip(line)
	t.pos = (t.pos + 1) % t.size
	if t.pos == 0 {
		t.full = true
	}
}

// String returns the retained lines, oldest first, including any trailing
// line that never saw a newline.
func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []string
	if t.full {
		out = append(out, t.lines[t.pos:]...)
	}
	out = append(out, t.lines[:t.pos]...)
	if t.partial.Len() > 0 {
		out = append(out, t.partial.String())
	}
	return strings.Join(out, "\n")
}

func clip(line string) string {
	if len(line) > maxLineLen {
		return line[len(line)-maxLineLen:]
	}
	return line
}
