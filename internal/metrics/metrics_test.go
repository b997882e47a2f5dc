package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// counterValue returns the summed value of the named counter family.
func counterValue(t *testing.T, c *Collector, name string) float64 {
	t.Helper()

	families, err := c.Gatherer().Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func TestCollector(t *testing.T) {
	t.Parallel()

	t.Run("counts attempts and retries", func(t *testing.T) {
		t.Parallel()

		c := New()
		c.ObserveAttempt(false)
		c.ObserveAttempt(true)
		c.ObserveAttempt(true)

		if got := counterValue(t, c, "pagegrab_fetch_attempts_total"); got != 3 {
			t.Errorf("attempts = %v, expected 3", got)
		}
		if got := counterValue(t, c, "pagegrab_fetch_retries_total"); got != 2 {
			t.Errorf("retries = %v, expected 2", got)
		}
	})

	t.Run("counts failures by kind", func(t *testing.T) {
		t.Parallel()

		c := New()
		c.ObserveFailure("timeout")
		c.ObserveFailure("rate_limited")
		c.ObserveDocument()

		if got := counterValue(t, c, "pagegrab_fetch_failures_total"); got != 2 {
			t.Errorf("failures = %v, expected 2", got)
		}
		if got := counterValue(t, c, "pagegrab_documents_total"); got != 1 {
			t.Errorf("documents = %v, expected 1", got)
		}
	})

	t.Run("nil collector is a no-op", func(t *testing.T) {
		t.Parallel()

		var c *Collector
		c.ObserveAttempt(true)
		c.ObserveFailure("timeout")
		c.ObserveDocument()
		c.ObserveDuration(time.Second)

		if _, err := c.Gatherer().Gather(); err != nil {
			t.Errorf("Gather() on nil collector: %v", err)
		}
	})

	t.Run("writes textfile", func(t *testing.T) {
		t.Parallel()

		c := New()
		c.ObserveAttempt(false)
		c.ObserveDuration(250 * time.Millisecond)

		path := filepath.Join(t.TempDir(), "pagegrab.prom")
		if err := c.WriteTextfile(path); err != nil {
			t.Fatalf("WriteTextfile() error: %v", err)
		}

		data, err := os.ReadFile(path) //nolint:gosec // test path
		if err != nil {
			t.Fatalf("ReadFile() error: %v", err)
		}
		for _, name := range []string{"pagegrab_fetch_attempts_total", "pagegrab_fetch_duration_seconds_bucket"} {
			if !strings.Contains(string(data), name) {
				t.Errorf("textfile missing %s", name)
			}
		}
	})
}
