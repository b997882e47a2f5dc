package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/nao1215/pagegrab/internal/model"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDocument(url, text string) *model.ScrapedDocument {
	return model.NewScrapedDocument(url, "Title", text, nil, model.PageMeta{}, model.TransportMetadata{StatusCode: 200})
}

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	doFunc    func(ctx context.Context, doc *model.ScrapedDocument) error
	mu        sync.Mutex
	callCount int
}

// Do implements Step.Do.
func (m *mockStep) Do(ctx context.Context, doc *model.ScrapedDocument) error {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()
	if m.doFunc != nil {
		return m.doFunc(ctx, doc)
	}
	return nil
}

// Name implements Step.Name.
func (m *mockStep) Name() string {
	return m.name
}

func (m *mockStep) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// TestPipelineNew tests the Pipeline constructor.
func TestPipelineNew(t *testing.T) {
	t.Parallel()

	p := New()
	if p.StepCount() != 0 {
		t.Errorf("expected 0 steps, got %d", p.StepCount())
	}
	if p.continueOnError {
		t.Error("continueOnError should default to false")
	}

	p = New(WithContinueOnError(true))
	if !p.continueOnError {
		t.Error("expected continueOnError to be true")
	}
}

// TestPipelineAddStep tests adding steps to the pipeline.
func TestPipelineAddStep(t *testing.T) {
	t.Parallel()

	p := New()
	p.AddStep(&mockStep{name: "first"})
	p.AddSteps(&mockStep{name: "second"}, &mockStep{name: "third"})

	names := p.StepNames()
	expected := []string{"first", "second", "third"}
	if len(names) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, names)
	}
	for i := range expected {
		if names[i] != expected[i] {
			t.Errorf("step %d: expected %q, got %q", i, expected[i], names[i])
		}
	}
}

// TestPipelineExecute tests step execution semantics.
func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	errStep := errors.New("step error")

	t.Run("runs steps in order", func(t *testing.T) {
		t.Parallel()

		var order []string
		record := func(name string) *mockStep {
			return &mockStep{name: name, doFunc: func(context.Context, *model.ScrapedDocument) error {
				order = append(order, name)
				return nil
			}}
		}

		p := New(WithLogger(quietLogger()))
		p.AddSteps(record("a"), record("b"))

		if err := p.Execute(context.Background(), testDocument("https://example.com", "x")); err != nil {
			t.Fatalf("Execute() error: %v", err)
		}
		if len(order) != 2 || order[0] != "a" || order[1] != "b" {
			t.Errorf("unexpected order %v", order)
		}
	})

	t.Run("stops on first error by default", func(t *testing.T) {
		t.Parallel()

		failing := &mockStep{name: "failing", doFunc: func(context.Context, *model.ScrapedDocument) error { return errStep }}
		after := &mockStep{name: "after"}

		p := New(WithLogger(quietLogger()))
		p.AddSteps(failing, after)

		err := p.Execute(context.Background(), testDocument("https://example.com", "x"))
		if !errors.Is(err, errStep) {
			t.Errorf("expected step error, got %v", err)
		}
		if after.calls() != 0 {
			t.Error("later step should not run")
		}
	})

	t.Run("continues on error when configured", func(t *testing.T) {
		t.Parallel()

		failing := &mockStep{name: "failing", doFunc: func(context.Context, *model.ScrapedDocument) error { return errStep }}
		after := &mockStep{name: "after"}

		p := New(WithLogger(quietLogger()), WithContinueOnError(true))
		p.AddSteps(failing, after)

		err := p.Execute(context.Background(), testDocument("https://example.com", "x"))
		if !errors.Is(err, errStep) {
			t.Errorf("expected first error to be returned, got %v", err)
		}
		if after.calls() != 1 {
			t.Error("later step should still run")
		}
	})

	t.Run("respects cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		step := &mockStep{name: "never"}
		p := New(WithLogger(quietLogger()))
		p.AddStep(step)

		if err := p.Execute(ctx, testDocument("https://example.com", "x")); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if step.calls() != 0 {
			t.Error("step should not run after cancellation")
		}
	})

	t.Run("empty pipeline succeeds", func(t *testing.T) {
		t.Parallel()

		if err := New(WithLogger(quietLogger())).Execute(context.Background(), testDocument("https://example.com", "")); err != nil {
			t.Errorf("unexpected error %v", err)
		}
	})
}
