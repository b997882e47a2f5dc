package model

import (
	"encoding/json"
	"testing"
	"time"
)

// TestContentID tests that identifiers depend only on the URL string.
func TestContentID(t *testing.T) {
	t.Parallel()

	t.Run("md5 hex of the url", func(t *testing.T) {
		t.Parallel()

		// md5("https://example.com")
		expected := "c984d06aafbecf6bc55569f964148ea3"
		if got := ContentID("https://example.com"); got != expected {
			t.Errorf("got %q, expected %q", got, expected)
		}
	})

	t.Run("same url same id regardless of content", func(t *testing.T) {
		t.Parallel()

		md := TransportMetadata{StatusCode: 200}
		first := NewScrapedDocument("https://example.com/a", "A", "first body", nil, PageMeta{}, md)
		second := NewScrapedDocument("https://example.com/a", "A", "changed body", nil, PageMeta{}, md)

		if first.ID != second.ID {
			t.Errorf("IDs differ: %q vs %q", first.ID, second.ID)
		}
		if first.ContentHash == second.ContentHash {
			t.Error("content hashes should differ when text differs")
		}
	})

	t.Run("different urls differ", func(t *testing.T) {
		t.Parallel()

		if ContentID("https://example.com/a") == ContentID("https://example.com/b") {
			t.Error("expected distinct IDs")
		}
	})
}

// TestNewScrapedDocument tests derived fields.
func TestNewScrapedDocument(t *testing.T) {
	t.Parallel()

	t.Run("length counts characters not bytes", func(t *testing.T) {
		t.Parallel()

		doc := NewScrapedDocument("https://example.com", "t", "héllo wörld", nil, PageMeta{}, TransportMetadata{})
		if doc.Length != 11 {
			t.Errorf("expected length 11, got %d", doc.Length)
		}
	})

	t.Run("empty title becomes Untitled", func(t *testing.T) {
		t.Parallel()

		doc := NewScrapedDocument("https://example.com", "", "", nil, PageMeta{}, TransportMetadata{})
		if doc.Title != UntitledTitle {
			t.Errorf("expected %q, got %q", UntitledTitle, doc.Title)
		}
	})

	t.Run("nil links serialize as empty array", func(t *testing.T) {
		t.Parallel()

		doc := NewScrapedDocument("https://example.com", "t", "x", nil, PageMeta{}, TransportMetadata{})
		data, err := json.Marshal(doc)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}

		var decoded map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		links, ok := decoded["links"].([]any)
		if !ok {
			t.Fatalf("links is %T, expected array", decoded["links"])
		}
		if len(links) != 0 {
			t.Errorf("expected no links, got %v", links)
		}
		if _, ok := decoded["meta"]; ok {
			t.Error("empty meta should be omitted")
		}
	})
}

// TestIndexDocument tests conversion to the index triple.
func TestIndexDocument(t *testing.T) {
	t.Parallel()

	doc := NewScrapedDocument("https://example.com", "Title", "Body text", []string{"https://example.com/x"},
		PageMeta{SiteName: "Example"}, TransportMetadata{StatusCode: 200, FetchedAt: time.Now().UTC()})

	idx := doc.IndexDocument()
	if idx.ID != doc.ID || idx.Title != "Title" || idx.Content != "Body text" {
		t.Errorf("unexpected index document: %+v", idx)
	}

	data, err := json.Marshal(idx)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	expected := `{"id":"` + doc.ID + `","title":"Title","content":"Body text"}`
	if string(data) != expected {
		t.Errorf("got %s, expected %s", data, expected)
	}
}

// TestPageMetaIsEmpty tests the zero check.
func TestPageMetaIsEmpty(t *testing.T) {
	t.Parallel()

	if !(PageMeta{}).IsEmpty() {
		t.Error("zero value should be empty")
	}
	if (PageMeta{Locale: "en_US"}).IsEmpty() {
		t.Error("populated meta should not be empty")
	}
}
