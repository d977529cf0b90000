// Package action turns poll events into output: formatted lines, JSON
// records or commands executed per event.
package action

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/TFMV/pollwatch/internal/poll"
	"go.uber.org/zap"
)

// DefaultFormat is used when no format template is given.
const DefaultFormat = "{event} {}"

// Message holds the details of one event.
type Message struct {
	Event poll.Event `json:"event"`
	Path  string     `json:"path"`
	Name  string     `json:"name"`
	Dir   string     `json:"dir"`
	Time  time.Time  `json:"time"`
}

// NewMessage describes event on path, observed at t.
func NewMessage(event poll.Event, path string, t time.Time) Message {
	return Message{
		Event: event,
		Path:  path,
		Name:  filepath.Base(path),
		Dir:   filepath.Dir(path),
		Time:  t,
	}
}

// Expand replaces placeholders in template with values from msg.
//
//	{}       full path
//	{base}   base name
//	{dir}    parent directory
//	{event}  event kind
//	{time}   observation time, RFC 3339
//
// Quoted forms such as {""} and {"base"} insert Go quoted strings.
func Expand(template string, msg Message) string {
	ts := msg.Time.Format(time.RFC3339)
	r := strings.NewReplacer(
		`{""}`, strconv.Quote(msg.Path),
		`{"base"}`, strconv.Quote(msg.Name),
		`{"dir"}`, strconv.Quote(msg.Dir),
		`{"event"}`, strconv.Quote(string(msg.Event)),
		`{"time"}`, strconv.Quote(ts),
		"{}", msg.Path,
		"{base}", msg.Name,
		"{dir}", msg.Dir,
		"{event}", string(msg.Event),
		"{time}", ts,
	)
	return r.Replace(template)
}

// Format returns a handler writing one expanded template line per event.
func Format(w io.Writer, template string) poll.Handler {
	if template == "" {
		template = DefaultFormat
	}
	return func(event poll.Event, path string) {
		fmt.Fprintln(w, Expand(template, NewMessage(event, path, time.Now())))
	}
}

// JSON returns a handler writing one JSON object per event. Write failures
// are logged.
func JSON(w io.Writer, logger *zap.Logger) poll.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	enc := json.NewEncoder(w)
	return func(event poll.Event, path string) {
		if err := enc.Encode(NewMessage(event, path, time.Now())); err != nil {
			logger.Warn("error writing event",
				zap.String("event", string(event)),
				zap.String("path", path),
				zap.Error(err),
			)
		}
	}
}

// Exec returns a handler running the expanded command template for every
// event other than ready. Failures are logged; the handler never fails.
func Exec(ctx context.Context, template string, stdout io.Writer, logger *zap.Logger) poll.Handler {
	return func(event poll.Event, path string) {
		if event == poll.EventReady {
			return
		}
		msg := NewMessage(event, path, time.Now())
		if err := run(ctx, Expand(template, msg), stdout); err != nil {
			logger.Warn("command failed",
				zap.String("event", string(event)),
				zap.String("path", path),
				zap.Error(err),
			)
		}
	}
}

// run executes a command line split on whitespace.
func run(ctx context.Context, cmdStr string, stdout io.Writer) error {
	args := strings.Fields(cmdStr)
	if len(args) == 0 {
		return errors.New("empty command")
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	var stderr bytes.Buffer
	cmd.Stdout = stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return fmt.Errorf("command error: %s: %w", strings.TrimSpace(stderr.String()), err)
		}
		return err
	}
	return nil
}

// Synchronized serializes calls to h, for handlers shared by several sessions.
func Synchronized(h poll.Handler) poll.Handler {
	var mu sync.Mutex
	return func(event poll.Event, path string) {
		mu.Lock()
		defer mu.Unlock()
		h(event, path)
	}
}

// Filter passes only the listed events to h. An empty list passes everything.
func Filter(h poll.Handler, events ...poll.Event) poll.Handler {
	if len(events) == 0 {
		return h
	}
	allowed := make(map[poll.Event]bool, len(events))
	for _, e := range events {
		allowed[e] = true
	}
	return func(event poll.Event, path string) {
		if allowed[event] {
			h(event, path)
		}
	}
}
