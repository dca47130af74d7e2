// Package audit appends the operational log and the credential-exposure log.
//
// Both files are append-only text with one record per line. A failed write is
// returned as ErrWrite and must abort the caller: the tool does not run
// without a working audit trail.
package audit

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/carved4/kvwalk/internal/cmdlog"
)

const (
	OpsLogName      = "kvwalk.log"
	ExposureLogName = "exposure.log"

	timeFormat = "2006-01-02 15:04:05"
	unset      = "unset"
)

var ErrWrite = errors.New("audit log write failed")

// Reason tags an exposure record.
type Reason string

const (
	// ReasonExtracted means a value was shown or copied and the operator tagged a username.
	ReasonExtracted Reason = "extracted"
	// ReasonLoginSuccess means a value authenticated the username.
	ReasonLoginSuccess Reason = "login-success"
)

// Principal reports the identity every operational record is attributed to.
type Principal interface {
	Principal() string
}

// PrincipalFunc adapts a function to Principal.
type PrincipalFunc func() string

func (f PrincipalFunc) Principal() string { return f() }

type Logger struct {
	ops      io.Writer
	exposure io.Writer
	stderr   io.Writer
	who      Principal
	verbose  bool
	now      func() time.Time
	closers  []io.Closer
	opsPath  string
}

type Option func(*Logger)

// WithStderr sets where error records are mirrored.
func WithStderr(w io.Writer) Option {
	return func(l *Logger) { l.stderr = w }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) { l.now = now }
}

// WithVerbose allows secret values in the operational log.
func WithVerbose(v bool) Option {
	return func(l *Logger) { l.verbose = v }
}

// New returns a Logger writing to the given sinks.
func New(ops, exposure io.Writer, who Principal, opts ...Option) *Logger {
	l := &Logger{
		ops:      ops,
		exposure: exposure,
		stderr:   os.Stderr,
		who:      who,
		now:      time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Open creates dir if needed and opens both log files for appending.
func Open(dir string, who Principal, opts ...Option) (*Logger, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	opsPath := filepath.Join(dir, OpsLogName)
	ops, err := openAppend(opsPath)
	if err != nil {
		return nil, err
	}
	exposure, err := openAppend(filepath.Join(dir, ExposureLogName))
	if err != nil {
		ops.Close()
		return nil, err
	}
	l := New(ops, exposure, who, opts...)
	l.closers = []io.Closer{ops, exposure}
	l.opsPath = opsPath
	return l, nil
}

func openAppend(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	return f, nil
}

func (l *Logger) Close() error {
	var errs []error
	for _, c := range l.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Path returns the operational log path, or "" when not file backed.
func (l *Logger) Path() string {
	return l.opsPath
}

// Verbose reports whether secret values may be written to the operational log.
func (l *Logger) Verbose() bool {
	return l.verbose
}

func (l *Logger) principal() string {
	if l.who == nil {
		return unset
	}
	p := l.who.Principal()
	if p == "" {
		return unset
	}
	return p
}

// Record appends one operational record.
func (l *Logger) Record(event string) error {
	line := fmt.Sprintf("%s - user:%s - %s\n", l.now().Format(timeFormat), l.principal(), oneLine(event))
	return write(l.ops, line)
}

func (l *Logger) Recordf(format string, args ...any) error {
	return l.Record(fmt.Sprintf(format, args...))
}

// RecordError appends an operational ERROR record and mirrors it to stderr.
func (l *Logger) RecordError(event string) error {
	line := fmt.Sprintf("%s - user:%s - ERROR - %s\n", l.now().Format(timeFormat), l.principal(), oneLine(event))
	if l.stderr != nil {
		io.WriteString(l.stderr, line)
	}
	return write(l.ops, line)
}

func (l *Logger) RecordErrorf(format string, args ...any) error {
	return l.RecordError(fmt.Sprintf(format, args...))
}

// RecordCommand appends the redacted invocation of an external command.
func (l *Logger) RecordCommand(cmd string, args []string) error {
	return l.Record("exec: " + cmdlog.Line(cmd, args))
}

// RecordValue appends that a secret value was fetched. The value itself is
// only included when the logger is verbose.
func (l *Logger) RecordValue(event string, value []byte) error {
	if l.verbose && value != nil {
		return l.Recordf("%s (value: %s)", event, value)
	}
	return l.Record(event)
}

// RecordExposure appends a credential-exposure record. It never carries the value.
func (l *Logger) RecordExposure(username string, reason Reason, secret, vault string) error {
	line := fmt.Sprintf("%s - %s - %s:%s - vault:%s\n",
		l.now().Format(timeFormat), oneLine(username), reason, oneLine(secret), oneLine(vault))
	return write(l.exposure, line)
}

func write(w io.Writer, line string) error {
	if w == nil {
		return fmt.Errorf("%w: no sink", ErrWrite)
	}
	if _, err := io.WriteString(w, line); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}

// oneLine keeps a record on a single line.
func oneLine(s string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
}
