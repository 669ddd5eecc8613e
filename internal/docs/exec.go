package docs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"go/token"
	"io"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/aixgo-dev/devkit/pkg/observability"
)

// ErrUndefined reports a name no executed block has bound, whether asked for
// by Namespace.Get or referenced by a block.
var ErrUndefined = errors.New("undefined name")

// ExecError reports a code block that failed to compile or run.
type ExecError struct {
	// Index is the position of the block in the executed sequence.
	Index int
	Code  string
	Err   error
	// Trace is the numbered block listing followed by the interpreter error,
	// and the goroutine stack when the block panicked.
	Trace string
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("the execution of the following code (block %d):\n%s\nfailed with error:\n%s",
		e.Index, e.Code, e.Trace)
}

func (e *ExecError) Unwrap() error { return e.Err }

// Namespace holds the bindings accumulated by executing blocks in order.
// It is backed by one interpreter whose global scope persists across blocks.
type Namespace struct {
	interp   *interp.Interpreter
	out      bytes.Buffer
	executed int

	// declared holds the names bound by executed blocks, including imported
	// packages, functions and types that Globals does not report.
	declared  map[string]bool
	dotImport bool
}

// Get returns the current value bound to name.
func (ns *Namespace) Get(name string) (any, error) {
	if !token.IsIdentifier(name) {
		return nil, fmt.Errorf("%w: %q is not an identifier", ErrUndefined, name)
	}
	v, err := ns.interp.Eval(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUndefined, name)
	}
	if !v.IsValid() || !v.CanInterface() {
		return nil, fmt.Errorf("%w: %s has no value", ErrUndefined, name)
	}
	return v.Interface(), nil
}

// Eval evaluates code against the namespace and returns the value of its
// last expression, or nil when it has none. Bindings it creates persist.
func (ns *Namespace) Eval(ctx context.Context, code string) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if name, ok := ns.firstUnbound(code); ok {
		return nil, fmt.Errorf("%w: %s", ErrUndefined, name)
	}

	res, err := ns.interp.EvalWithContext(ctx, code)
	if err != nil {
		return nil, err
	}
	ns.record(code)
	if !res.IsValid() || !res.CanInterface() {
		return nil, nil
	}
	return res.Interface(), nil
}

// Names returns the global variables and constants bound so far, sorted.
func (ns *Namespace) Names() []string {
	globals := ns.interp.Globals()
	names := make([]string, 0, len(globals))
	for name := range globals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Values returns every global binding as a name to value map.
func (ns *Namespace) Values() map[string]any {
	globals := ns.interp.Globals()
	values := make(map[string]any, len(globals))
	for name, v := range globals {
		if v.IsValid() && v.CanInterface() {
			values[name] = v.Interface()
		}
	}
	return values
}

// Output returns everything the executed blocks wrote to stdout and stderr.
func (ns *Namespace) Output() string { return ns.out.String() }

// Executed returns the number of blocks that ran successfully.
func (ns *Namespace) Executed() int { return ns.executed }

// ExecOption configures an Executor.
type ExecOption func(*Executor)

// WithTimeout bounds the execution time of each block.
func WithTimeout(d time.Duration) ExecOption {
	return func(e *Executor) {
		e.timeout = d
	}
}

// WithStdout mirrors block output to w in addition to the namespace buffer.
func WithStdout(w io.Writer) ExecOption {
	return func(e *Executor) {
		e.stdout = w
	}
}

// WithLogger sets the executor logger.
func WithLogger(logger zerolog.Logger) ExecOption {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithMetrics counts executed blocks.
func WithMetrics(m *observability.Metrics) ExecOption {
	return func(e *Executor) {
		e.metrics = m
	}
}

// Executor runs Go code blocks sequentially with the yaegi interpreter.
type Executor struct {
	timeout time.Duration
	stdout  io.Writer
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// NewExecutor creates an executor.
func NewExecutor(opts ...ExecOption) *Executor {
	e := &Executor{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewNamespace returns an empty namespace with the standard library available.
func (e *Executor) NewNamespace() (*Namespace, error) {
	ns := &Namespace{declared: make(map[string]bool)}
	var out io.Writer = &ns.out
	if e.stdout != nil {
		out = io.MultiWriter(&ns.out, e.stdout)
	}

	i := interp.New(interp.Options{Stdout: out, Stderr: out})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("load stdlib symbols: %w", err)
	}
	ns.interp = i
	return ns, nil
}

// Run executes blocks in order in a fresh namespace and returns it. It stops
// at the first failing block and returns an *ExecError for it, along with the
// namespace as left by the blocks before it.
func (e *Executor) Run(ctx context.Context, blocks []string) (*Namespace, error) {
	ns, err := e.NewNamespace()
	if err != nil {
		return nil, err
	}
	return ns, e.RunInto(ctx, ns, blocks)
}

// RunInto executes blocks in order against an existing namespace.
func (e *Executor) RunInto(ctx context.Context, ns *Namespace, blocks []string) error {
	for idx, code := range blocks {
		start := time.Now()
		if err := e.exec(ctx, ns, idx, code); err != nil {
			e.metrics.RecordDocBlock("error")
			e.logger.Debug().Int("block", idx).Err(err).Msg("code block failed")
			return err
		}
		ns.record(code)
		ns.executed++
		e.metrics.RecordDocBlock("ok")
		e.logger.Debug().Int("block", idx).Dur("took", time.Since(start)).Msg("code block executed")
	}
	return nil
}

func (e *Executor) exec(ctx context.Context, ns *Namespace, idx int, code string) (err error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			perr := fmt.Errorf("panic: %v", r)
			err = &ExecError{
				Index: idx,
				Code:  code,
				Err:   perr,
				Trace: formatTrace(code, perr) + "\n" + string(debug.Stack()),
			}
		}
	}()

	if name, ok := ns.firstUnbound(code); ok {
		uerr := fmt.Errorf("%w: %s", ErrUndefined, name)
		return &ExecError{Index: idx, Code: code, Err: uerr, Trace: formatTrace(code, uerr)}
	}

	if _, evalErr := ns.interp.EvalWithContext(ctx, code); evalErr != nil {
		trace := formatTrace(code, evalErr)
		var p interp.Panic
		if errors.As(evalErr, &p) {
			trace += "\n" + string(p.Stack)
		}
		return &ExecError{Index: idx, Code: code, Err: evalErr, Trace: trace}
	}
	return nil
}

// formatTrace renders the block with line numbers followed by the error.
func formatTrace(code string, err error) string {
	var sb strings.Builder
	lines := strings.Split(strings.TrimRight(code, "\n"), "\n")
	for i, line := range lines {
		fmt.Fprintf(&sb, "%4d | %s\n", i+1, line)
	}
	sb.WriteString(err.Error())
	return sb.String()
}
