package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/pagegrab/internal/model"
)

// ErrContentTooShort is returned by MinLengthStep for documents with too little text.
var ErrContentTooShort = errors.New("content too short")

// ErrDuplicateContent is returned by SkipUnchangedStep for content already stored.
var ErrDuplicateContent = errors.New("content unchanged since last fetch")

// DocumentStore persists documents. *database.DocumentDB satisfies it.
type DocumentStore interface {
	SaveDocument(ctx context.Context, doc *model.ScrapedDocument) error
}

// ContentLookup reports the stored content hash for a content ID.
// *database.DocumentDB satisfies it.
type ContentLookup interface {
	ContentHash(ctx context.Context, id string) (string, error)
}

// DocumentWriter writes documents in some output format.
// Every writer in the report package satisfies it.
type DocumentWriter interface {
	WriteDocument(doc *model.ScrapedDocument) (int, error)
}

// MinLengthStep rejects documents whose text is shorter than a threshold.
type MinLengthStep struct {
	minLength int
}

// NewMinLengthStep creates a step requiring at least minLength characters.
func NewMinLengthStep(minLength int) *MinLengthStep {
	return &MinLengthStep{minLength: minLength}
}

// Name returns the step name.
func (s *MinLengthStep) Name() string {
	return "min_length"
}

// Do implements Step.
func (s *MinLengthStep) Do(_ context.Context, doc *model.ScrapedDocument) error {
	if doc.Length < s.minLength {
		return fmt.Errorf("%w: %d < %d characters", ErrContentTooShort, doc.Length, s.minLength)
	}
	return nil
}

// SkipUnchangedStep rejects documents whose content hash matches the stored
// copy, so that later steps only see new or changed content.
type SkipUnchangedStep struct {
	lookup ContentLookup
}

// NewSkipUnchangedStep creates a step that consults lookup.
func NewSkipUnchangedStep(lookup ContentLookup) *SkipUnchangedStep {
	return &SkipUnchangedStep{lookup: lookup}
}

// Name returns the step name.
func (s *SkipUnchangedStep) Name() string {
	return "skip_unchanged"
}

// Do implements Step. A lookup failure lets the document through.
func (s *SkipUnchangedStep) Do(ctx context.Context, doc *model.ScrapedDocument) error {
	hash, err := s.lookup.ContentHash(ctx, doc.ID)
	if err != nil || hash == "" {
		return nil
	}
	if hash == doc.ContentHash {
		return ErrDuplicateContent
	}
	return nil
}

// PersistStep saves every document to a store.
type PersistStep struct {
	store   DocumentStore
	timeout time.Duration
	logger  *slog.Logger
}

// PersistStepOption configures a PersistStep.
type PersistStepOption func(*PersistStep)

// WithPersistTimeout bounds each save.
func WithPersistTimeout(d time.Duration) PersistStepOption {
	return func(s *PersistStep) {
		s.timeout = d
	}
}

// WithPersistLogger sets a custom logger for the persist step.
func WithPersistLogger(logger *slog.Logger) PersistStepOption {
	return func(s *PersistStep) {
		s.logger = logger
	}
}

// NewPersistStep creates a step that writes documents to store.
func NewPersistStep(store DocumentStore, opts ...PersistStepOption) *PersistStep {
	s := &PersistStep{
		store:   store,
		timeout: 10 * time.Second,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *PersistStep) Name() string {
	return "persist"
}

// Do implements Step. The save is detached from ctx cancellation so that a
// document already fetched is still stored after an interrupt; only the
// step timeout bounds it.
func (s *PersistStep) Do(ctx context.Context, doc *model.ScrapedDocument) error {
	ctx = context.WithoutCancel(ctx)
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if err := s.store.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	s.logger.Debug("document saved", "id", doc.ID, "url", doc.URL)
	return nil
}

// ExportStep writes every document to a DocumentWriter. Writes are
// serialized so that concurrent documents never interleave.
type ExportStep struct {
	name   string
	writer DocumentWriter
	mu     sync.Mutex
}

// NewExportStep creates an export step. name identifies it in logs.
func NewExportStep(name string, w DocumentWriter) *ExportStep {
	return &ExportStep{name: name, writer: w}
}

// Name returns the step name.
func (s *ExportStep) Name() string {
	return "export_" + s.name
}

// Do implements Step.
func (s *ExportStep) Do(_ context.Context, doc *model.ScrapedDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.writer.WriteDocument(doc); err != nil {
		return fmt.Errorf("failed to export document: %w", err)
	}
	return nil
}
