package docs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	tracing "github.com/aixgo-dev/devkit/internal/observability"
	"github.com/aixgo-dev/devkit/pkg/observability"
)

var (
	// ErrReferenceMismatch is returned when the last block differs from the
	// reference source.
	ErrReferenceMismatch = errors.New("last code block does not match reference")

	// ErrBlockNotInReference is returned when a block is absent from the
	// reference source.
	ErrBlockNotInReference = errors.New("code block not found in reference")

	// ErrNoCodeBlocks is returned when a document has no block to compare.
	ErrNoCodeBlocks = errors.New("no code blocks")

	// ErrNoReference is returned when a reference check is requested for a
	// document without a reference source.
	ErrNoReference = errors.New("no reference source configured")
)

// Check names.
const (
	CheckReference = "reference"
	CheckContains  = "contains"
	CheckExec      = "exec"
)

// CheckResult is the outcome of one check on one document.
type CheckResult struct {
	Name string
	Err  error
}

// Passed reports whether the check succeeded.
func (c CheckResult) Passed() bool { return c.Err == nil }

// Result is the outcome of verifying one document.
type Result struct {
	Doc    string
	Blocks int
	// LoadErr is set when the document or its reference could not be read.
	LoadErr error
	Checks  []CheckResult
}

// Err joins the load error and every failed check.
func (r Result) Err() error {
	errs := []error{r.LoadErr}
	for _, c := range r.Checks {
		if c.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.Name, c.Err))
		}
	}
	return errors.Join(errs...)
}

// Passed reports whether the document loaded and every check succeeded.
func (r Result) Passed() bool { return r.Err() == nil }

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithExecutor sets the executor used for exec checks.
func WithExecutor(e *Executor) VerifierOption {
	return func(v *Verifier) {
		v.executor = e
	}
}

// WithVerifierLogger sets the verifier logger.
func WithVerifierLogger(logger zerolog.Logger) VerifierOption {
	return func(v *Verifier) {
		v.logger = logger
	}
}

// WithVerifierMetrics records check outcomes.
func WithVerifierMetrics(m *observability.Metrics) VerifierOption {
	return func(v *Verifier) {
		v.metrics = m
	}
}

// WithDefaults sets the language and header size used when neither the
// entry nor the document front matter sets them.
func WithDefaults(language string, headerLines int) VerifierOption {
	return func(v *Verifier) {
		if language != "" {
			v.language = language
		}
		if headerLines >= 0 {
			v.headerLines = headerLines
		}
	}
}

// Verifier checks tutorial documents against their reference sources and
// optionally replays their code blocks.
type Verifier struct {
	executor    *Executor
	logger      zerolog.Logger
	metrics     *observability.Metrics
	language    string
	headerLines int
}

// NewVerifier creates a verifier.
func NewVerifier(opts ...VerifierOption) *Verifier {
	v := &Verifier{
		logger:      zerolog.Nop(),
		language:    DefaultLanguage,
		headerLines: DefaultHeaderLines,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.executor == nil {
		v.executor = NewExecutor(WithLogger(v.logger), WithMetrics(v.metrics))
	}
	return v
}

// Verify loads entry.Doc and runs the checks it asks for. Settings missing
// from the entry are taken from the document front matter.
func (v *Verifier) Verify(ctx context.Context, entry Entry) (res Result) {
	res.Doc = entry.Doc
	ctx, span := tracing.StartSpan(ctx, "docs.verify", map[string]any{"doc": entry.Doc})
	defer func() { tracing.EndSpan(span, res.Err()) }()

	logger := v.logger.With().Str("doc", entry.Doc).Logger()

	doc, err := LoadDocument(entry.Doc)
	if err != nil {
		res.LoadErr = err
		return res
	}
	entry = v.mergeFrontMatter(entry, doc)

	blocks := Texts(doc.CodeBlocks(entry.Language))
	res.Blocks = len(blocks)

	if entry.Reference == "" && entry.CheckContains {
		res.Checks = append(res.Checks, v.record(CheckResult{Name: CheckContains, Err: ErrNoReference}))
	}
	if entry.Reference != "" {
		ref, err := LoadReference(entry.Reference, *entry.HeaderLines)
		if err != nil {
			res.LoadErr = fmt.Errorf("load reference: %w", err)
			return res
		}
		res.Checks = append(res.Checks, v.record(CheckResult{Name: CheckReference, Err: MatchReference(blocks, ref)}))
		if entry.CheckContains {
			res.Checks = append(res.Checks, v.record(CheckResult{Name: CheckContains, Err: BlocksInReference(blocks, ref)}))
		}
	}

	if entry.Exec != nil && *entry.Exec {
		ns, err := v.executor.Run(ctx, blocks)
		if err == nil {
			logger.Debug().Strs("names", ns.Names()).Msg("blocks executed")
		}
		res.Checks = append(res.Checks, v.record(CheckResult{Name: CheckExec, Err: err}))
	}

	if res.Passed() {
		logger.Info().Int("blocks", res.Blocks).Int("checks", len(res.Checks)).Msg("document verified")
	} else {
		logger.Error().Err(res.Err()).Msg("document verification failed")
	}
	return res
}

// VerifyAll verifies every manifest entry in order.
func (v *Verifier) VerifyAll(ctx context.Context, m *Manifest) []Result {
	results := make([]Result, 0, len(m.Entries))
	for _, entry := range m.Entries {
		results = append(results, v.Verify(ctx, entry))
	}
	return results
}

func (v *Verifier) record(c CheckResult) CheckResult {
	status := "pass"
	if !c.Passed() {
		status = "fail"
	}
	v.metrics.RecordDocCheck(c.Name, status)
	return c
}

// MatchReference checks that the last block equals ref exactly.
func MatchReference(blocks []string, ref string) error {
	if len(blocks) == 0 {
		return ErrNoCodeBlocks
	}
	last := blocks[len(blocks)-1]
	if last == ref {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrReferenceMismatch, firstDifference(last, ref))
}

// BlocksInReference checks that every block occurs verbatim in ref.
func BlocksInReference(blocks []string, ref string) error {
	var errs []error
	for i, b := range blocks {
		if !strings.Contains(ref, b) {
			errs = append(errs, fmt.Errorf("%w: block %d", ErrBlockNotInReference, i))
		}
	}
	return errors.Join(errs...)
}

// mergeFrontMatter fills unset entry fields from the document front matter,
// then from the verifier defaults.
func (v *Verifier) mergeFrontMatter(entry Entry, doc *Document) Entry {
	if entry.Reference == "" && doc.Meta.Reference != "" {
		entry.Reference = resolve(filepath.Dir(entry.Doc), doc.Meta.Reference)
	}
	if entry.HeaderLines == nil {
		entry.HeaderLines = doc.Meta.HeaderLines
	}
	if entry.HeaderLines == nil {
		headerLines := v.headerLines
		entry.HeaderLines = &headerLines
	}
	if entry.Language == "" {
		entry.Language = doc.Meta.Language
	}
	if entry.Language == "" {
		entry.Language = v.language
	}
	if entry.Exec == nil {
		entry.Exec = doc.Meta.Exec
	}
	return entry
}

// firstDifference describes the first line where got and want diverge.
func firstDifference(got, want string) string {
	g := strings.SplitAfter(got, "\n")
	w := strings.SplitAfter(want, "\n")
	for i := 0; i < len(g) && i < len(w); i++ {
		if g[i] != w[i] {
			return fmt.Sprintf("line %d: got %q, want %q", i+1, g[i], w[i])
		}
	}
	return fmt.Sprintf("got %d lines, want %d", len(g), len(w))
}
