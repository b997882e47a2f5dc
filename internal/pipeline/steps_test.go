package pipeline

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/pagegrab/internal/model"
)

type memoryStore struct {
	mu     sync.Mutex
	docs   map[string]*model.ScrapedDocument
	err    error
	hasCtx bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{docs: make(map[string]*model.ScrapedDocument)}
}

func (s *memoryStore) SaveDocument(ctx context.Context, doc *model.ScrapedDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := ctx.Deadline(); ok {
		s.hasCtx = true
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.err != nil {
		return s.err
	}
	s.docs[doc.ID] = doc
	return nil
}

func (s *memoryStore) ContentHash(_ context.Context, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	if doc, ok := s.docs[id]; ok {
		return doc.ContentHash, nil
	}
	return "", nil
}

// lineWriter writes one line per document.
type lineWriter struct {
	buf bytes.Buffer
}

func (w *lineWriter) WriteDocument(doc *model.ScrapedDocument) (int, error) {
	return w.buf.WriteString(doc.URL + "\n")
}

func TestMinLengthStep(t *testing.T) {
	t.Parallel()

	step := NewMinLengthStep(5)
	if step.Name() != "min_length" {
		t.Errorf("Name() = %q", step.Name())
	}

	if err := step.Do(context.Background(), testDocument("https://example.com", "long enough")); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	err := step.Do(context.Background(), testDocument("https://example.com", "tiny"))
	if !errors.Is(err, ErrContentTooShort) {
		t.Errorf("expected ErrContentTooShort, got %v", err)
	}
}

func TestPersistStep(t *testing.T) {
	t.Parallel()

	t.Run("saves with a deadline", func(t *testing.T) {
		t.Parallel()

		store := newMemoryStore()
		step := NewPersistStep(store, WithPersistTimeout(time.Second), WithPersistLogger(quietLogger()))
		doc := testDocument("https://example.com", "body")

		if err := step.Do(context.Background(), doc); err != nil {
			t.Fatalf("Do() error: %v", err)
		}
		if store.docs[doc.ID] != doc {
			t.Error("document was not stored")
		}
		if !store.hasCtx {
			t.Error("expected a context deadline")
		}
	})

	t.Run("saves after the caller is cancelled", func(t *testing.T) {
		t.Parallel()

		store := newMemoryStore()
		step := NewPersistStep(store, WithPersistLogger(quietLogger()))
		doc := testDocument("https://example.com/late", "body")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := step.Do(ctx, doc); err != nil {
			t.Fatalf("Do() error: %v", err)
		}
		if store.docs[doc.ID] != doc {
			t.Error("document was not stored")
		}
	})

	t.Run("wraps store errors", func(t *testing.T) {
		t.Parallel()

		storeErr := errors.New("disk full")
		store := newMemoryStore()
		store.err = storeErr
		step := NewPersistStep(store, WithPersistLogger(quietLogger()))

		err := step.Do(context.Background(), testDocument("https://example.com", "body"))
		if !errors.Is(err, storeErr) {
			t.Errorf("expected wrapped store error, got %v", err)
		}
	})
}

func TestSkipUnchangedStep(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	stored := testDocument("https://example.com/a", "original")
	store.docs[stored.ID] = stored
	step := NewSkipUnchangedStep(store)

	if err := step.Do(context.Background(), testDocument("https://example.com/a", "original")); !errors.Is(err, ErrDuplicateContent) {
		t.Errorf("expected ErrDuplicateContent, got %v", err)
	}
	if err := step.Do(context.Background(), testDocument("https://example.com/a", "changed")); err != nil {
		t.Errorf("changed content should pass, got %v", err)
	}
	if err := step.Do(context.Background(), testDocument("https://example.com/new", "fresh")); err != nil {
		t.Errorf("unknown document should pass, got %v", err)
	}

	failing := newMemoryStore()
	failing.err = errors.New("db closed")
	if err := NewSkipUnchangedStep(failing).Do(context.Background(), stored); err != nil {
		t.Errorf("lookup failures should let documents through, got %v", err)
	}
}

func TestExportStep(t *testing.T) {
	t.Parallel()

	w := &lineWriter{}
	step := NewExportStep("lines", w)
	if step.Name() != "export_lines" {
		t.Errorf("Name() = %q", step.Name())
	}

	var wg sync.WaitGroup
	for _, u := range []string{"https://example.com/1", "https://example.com/2", "https://example.com/3"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := step.Do(context.Background(), testDocument(u, "x")); err != nil {
				t.Errorf("Do() error: %v", err)
			}
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(w.buf.String()), "\n")
	if len(lines) != 3 {
		t.Errorf("expected 3 lines, got %d: %q", len(lines), w.buf.String())
	}
}
