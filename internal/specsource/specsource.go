// Package specsource acquires the chart spec for a dashboard: from a file,
// from an upload, or by asking a text-generation service when neither
// yields a valid document.
package specsource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapdash/internal/chartspec"
	"github.com/leapstack-labs/leapdash/internal/dataset"
	"github.com/leapstack-labs/leapdash/internal/llm"
	"github.com/leapstack-labs/leapdash/internal/metrics"
	"github.com/leapstack-labs/leapdash/internal/state"
)

// DefaultPreviewRows is the number of dataset rows included in a prompt.
const DefaultPreviewRows = 5

// Origins of a loaded document.
const (
	OriginFile      = "file"
	OriginUpload    = "upload"
	OriginGenerated = "generated"
)

// Recorder stores generation attempts.
type Recorder interface {
	Record(ctx context.Context, g *state.GeneratedSpec) error
}

// Config configures a Loader.
type Config struct {
	// Provider is the generation service. Nil disables the fallback.
	Provider llm.Provider
	// Model overrides the provider default.
	Model string
	// History receives every generation attempt. Optional.
	History     Recorder
	PreviewRows int
	Logger      *slog.Logger
}

// Loader acquires spec documents.
type Loader struct {
	provider    llm.Provider
	model       string
	history     Recorder
	previewRows int
	logger      *slog.Logger
}

// Result is an acquired document and where it came from.
type Result struct {
	Document *chartspec.Document
	Origin   string
	// Path is the file the document was read from, if any.
	Path string
	// GenerationID is the history id of a generated document.
	GenerationID string
	// Raw is the sanitized model reply of a generated document.
	Raw string
}

// New creates a Loader.
func New(cfg Config) *Loader {
	l := &Loader{
		provider:    cfg.Provider,
		model:       cfg.Model,
		history:     cfg.History,
		previewRows: cfg.PreviewRows,
		logger:      cfg.Logger,
	}
	if l.previewRows <= 0 {
		l.previewRows = DefaultPreviewRows
	}
	if l.logger == nil {
		l.logger = slog.New(slog.DiscardHandler)
	}
	return l
}

// Load reads the spec at path. If path is empty or the file is not a valid
// spec, it falls back to generating one from t. When the fallback fails
// too, the returned *FallbackError carries both causes.
func (l *Loader) Load(ctx context.Context, path string, t *dataset.Table, source string) (*Result, error) {
	var specErr error
	if path != "" {
		doc, err := chartspec.ReadFile(path)
		if err == nil {
			metrics.SpecLoad(metrics.SourceFile)
			l.logger.Debug("spec loaded", "path", path, "charts", len(doc.Charts))
			return &Result{Document: doc, Origin: OriginFile, Path: path}, nil
		}
		specErr = err
		l.logger.Warn("spec unusable, generating one instead", "path", path, "error", err)
	} else {
		specErr = &chartspec.SpecInvalidError{Err: errors.New("no spec file given")}
	}

	if l.provider == nil {
		metrics.SpecLoad(metrics.SourceFailed)
		return nil, specErr
	}

	res, genErr := l.Generate(ctx, t, source, "")
	if genErr != nil {
		metrics.SpecLoad(metrics.SourceFailed)
		return nil, &FallbackError{Spec: specErr, Generation: genErr}
	}
	return res, nil
}

// Parse normalizes an uploaded spec.
func (l *Loader) Parse(data []byte, name string) (*Result, error) {
	doc, err := chartspec.Normalize(data)
	if err != nil {
		var sie *chartspec.SpecInvalidError
		if errors.As(err, &sie) {
			sie.Source = name
		}
		return nil, err
	}
	metrics.SpecLoad(metrics.SourceUpload)
	return &Result{Document: doc, Origin: OriginUpload}, nil
}

// Generate asks the provider for a spec describing t. model overrides the
// configured model when set. Every attempt is recorded in the history.
func (l *Loader) Generate(ctx context.Context, t *dataset.Table, source, model string) (*Result, error) {
	if l.provider == nil {
		return nil, &llm.GenerationError{Stage: llm.StageRequest, Err: errors.New("no generation service configured")}
	}
	if model == "" {
		model = l.model
	}

	prompt, err := BuildPrompt(t, l.previewRows)
	if err != nil {
		return nil, &llm.GenerationError{Stage: llm.StageRequest, Err: err}
	}

	entry := &state.GeneratedSpec{Model: model, Source: source, Prompt: prompt}
	res, err := l.generate(ctx, prompt, model, entry)
	metrics.Generation(err)
	if err != nil {
		entry.Status = state.StatusFailed
		entry.Error = err.Error()
		l.logger.Error("spec generation failed", "model", model, "error", err)
	} else {
		entry.Status = state.StatusOK
	}
	l.record(ctx, entry)
	if err != nil {
		return nil, err
	}

	res.GenerationID = entry.ID
	metrics.SpecLoad(metrics.SourceGenerated)
	l.logger.Info("spec generated", "model", entry.Model, "charts", len(res.Document.Charts), "id", entry.ID)
	return res, nil
}

func (l *Loader) generate(ctx context.Context, prompt, model string, entry *state.GeneratedSpec) (*Result, error) {
	resp, err := l.provider.Complete(ctx, llm.Request{Prompt: prompt, Model: model})
	if err != nil {
		var ge *llm.GenerationError
		if errors.As(err, &ge) {
			return nil, err
		}
		return nil, &llm.GenerationError{Stage: llm.StageRequest, Err: err}
	}
	entry.Response = resp.Content
	if resp.Model != "" {
		entry.Model = resp.Model
	}

	cleaned, err := llm.Sanitize(resp.Content)
	if err != nil {
		return nil, err
	}

	doc, err := chartspec.Normalize([]byte(cleaned))
	if err != nil {
		return nil, &llm.GenerationError{Stage: llm.StageSanitize, Err: err}
	}

	normalized, err := chartspec.Marshal(doc)
	if err != nil {
		return nil, &llm.GenerationError{Stage: llm.StageSanitize, Err: fmt.Errorf("failed to encode spec: %w", err)}
	}
	entry.Document = string(normalized)

	return &Result{Document: doc, Origin: OriginGenerated, Raw: cleaned}, nil
}

func (l *Loader) record(ctx context.Context, entry *state.GeneratedSpec) {
	if l.history == nil {
		return
	}
	if err := l.history.Record(ctx, entry); err != nil {
		l.logger.Warn("failed to record generated spec", "error", err)
	}
}
