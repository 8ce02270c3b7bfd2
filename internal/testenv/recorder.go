package testenv

import (
	"fmt"
	"strings"
	"sync"

	"github.com/stitchkit/stitch.go/pkg/logger"
)

// Recorder is a logger.Logger that keeps numbered lines without timestamps,
// so tests can assert on log output exactly.
type Recorder struct {
	mu                  sync.Mutex
	entries             []entry
	ignoreDebug         bool
	ignoreErrorPrefixes []string
}

type entry struct {
	level, msg, attrs string
}

var _ logger.Logger = (*Recorder)(nil)

type RecorderOption func(*Recorder)

func WithIgnoreDebug() RecorderOption {
	return func(r *Recorder) {
		r.ignoreDebug = true
	}
}

// WithIgnoreErrorPrefixes drops ERROR lines whose message starts with any prefix.
func WithIgnoreErrorPrefixes(prefixes ...string) RecorderOption {
	return func(r *Recorder) {
		r.ignoreErrorPrefixes = append(r.ignoreErrorPrefixes, prefixes...)
	}
}

func NewRecorder(opts ...RecorderOption) *Recorder {
	r := &Recorder{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Recorder) Error(msg string, args ...any) {
	for _, prefix := range r.ignoreErrorPrefixes {
		if strings.HasPrefix(msg, prefix) {
			return
		}
	}
	r.record("ERROR", msg, args)
}

func (r *Recorder) Warn(msg string, args ...any) { r.record("WARN", msg, args) }
func (r *Recorder) Info(msg string, args ...any) { r.record("INFO", msg, args) }

func (r *Recorder) Debug(msg string, args ...any) {
	if r.ignoreDebug {
		return
	}
	r.record("DEBUG", msg, args)
}

func (r *Recorder) record(level, msg string, args []any) {
	var sb strings.Builder
	for i := 0; i < len(args); i += 2 {
		if sb.Len() > 0 {
			sb.WriteString(", ")
		}
		if i+1 < len(args) {
			fmt.Fprintf(&sb, "%v=%v", args[i], args[i+1])
		} else {
			fmt.Fprintf(&sb, "%v", args[i])
		}
	}

	r.mu.Lock()
	r.entries = append(r.entries, entry{level: level, msg: msg, attrs: sb.String()})
	r.mu.Unlock()
}

// Lines renders everything recorded so far as "[index] LEVEL: msg k=v, ...".
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = fmt.Sprintf("[%d] %s: %s", i, e.level, e.msg)
		if e.attrs != "" {
			out[i] += " " + e.attrs
		}
	}
	return out
}

// Messages returns "LEVEL: msg" for each entry.
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.level + ": " + e.msg
	}
	return out
}

func (r *Recorder) String() string {
	return strings.Join(r.Lines(), "\n")
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.entries = nil
	r.mu.Unlock()
}
