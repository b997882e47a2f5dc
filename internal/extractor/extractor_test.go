package extractor

import (
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/pagegrab/internal/model"
)

func titleOf(t *testing.T, content string) string {
	t.Helper()

	doc, err := Clean(content)
	if err != nil {
		t.Fatalf("Clean() error: %v", err)
	}
	return ExtractTitle(doc)
}

// TestExtractTitle verifies each tier of the title fallback chain.
func TestExtractTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		html     string
		expected string
	}{
		{
			name:     "title element wins",
			html:     `<html><head><title> Page Title </title></head><body><h1>Heading</h1></body></html>`,
			expected: "Page Title",
		},
		{
			name:     "first h1 when title is missing",
			html:     `<html><body><h1>Main Heading</h1><h1>Second</h1></body></html>`,
			expected: "Main Heading",
		},
		{
			name:     "blank title falls through to h1",
			html:     `<html><head><title>   </title></head><body><h1>Heading</h1></body></html>`,
			expected: "Heading",
		},
		{
			name:     "og:title when no title or h1",
			html:     `<html><head><meta property="og:title" content="OG Title"></head><body><p>x</p></body></html>`,
			expected: "OG Title",
		},
		{
			name:     "first h2 when nothing else",
			html:     `<html><body><p>intro</p><h2>Sub Heading</h2><h3>Third</h3></body></html>`,
			expected: "Sub Heading",
		},
		{
			name:     "heading order follows the document",
			html:     `<html><body><h3>Earlier h3</h3><h2>Later h2</h2></body></html>`,
			expected: "Earlier h3",
		},
		{
			name:     "empty first h1 skips to next heading",
			html:     `<html><body><h1> </h1><h2>Second Level</h2></body></html>`,
			expected: "Second Level",
		},
		{
			name:     "untitled when nothing applies",
			html:     `<html><body><p>just text</p></body></html>`,
			expected: model.UntitledTitle,
		},
		{
			name:     "heading inside header is removed",
			html:     `<html><body><header><h1>Site Banner</h1></header><p>body</p></body></html>`,
			expected: model.UntitledTitle,
		},
		{
			name:     "empty document",
			html:     ``,
			expected: model.UntitledTitle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := titleOf(t, tt.html); got != tt.expected {
				t.Errorf("got %q, expected %q", got, tt.expected)
			}
		})
	}
}

// TestExtractText tests text normalization.
func TestExtractText(t *testing.T) {
	t.Parallel()

	t.Run("strips noise elements", func(t *testing.T) {
		t.Parallel()

		html := `<html><head><style>body { color: red; }</style><script>var secret = 1;</script></head>
<body>
  <nav>Menu</nav>
  <header>Banner</header>
  <p>Hello   <b>world</b></p>
  <noscript>Enable JS</noscript>
  <iframe src="x">frame</iframe>
  <footer>Copyright</footer>
</body></html>`

		got := ExtractText(html)
		if got != "Hello world" {
			t.Errorf("got %q, expected %q", got, "Hello world")
		}
	})

	t.Run("collapses all whitespace", func(t *testing.T) {
		t.Parallel()

		got := ExtractText("<p>a\n\n\tb</p>   <div>  c  </div>")
		if got != "a b c" {
			t.Errorf("got %q", got)
		}
		for _, ws := range []string{"  ", "\n", "\t"} {
			if strings.Contains(got, ws) {
				t.Errorf("text contains %q: %q", ws, got)
			}
		}
	})

	t.Run("comments are not text", func(t *testing.T) {
		t.Parallel()

		got := ExtractText("<p>visible</p><!-- hidden note -->")
		if got != "visible" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("adjacent elements are separated", func(t *testing.T) {
		t.Parallel()

		got := ExtractText("<p>one</p><p>two</p>")
		if got != "one two" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()

		if got := ExtractText(""); got != "" {
			t.Errorf("expected empty, got %q", got)
		}
	})

	t.Run("malformed markup still yields text", func(t *testing.T) {
		t.Parallel()

		got := ExtractText("<div><p>unclosed <b>bold<div>next")
		if got != "unclosed bold next" {
			t.Errorf("got %q", got)
		}
	})
}

// TestExtractLinks tests link resolution and filtering.
func TestExtractLinks(t *testing.T) {
	t.Parallel()

	t.Run("resolves relative and deduplicates", func(t *testing.T) {
		t.Parallel()

		html := `<a href="/path1">1</a><a href="https://example.com/path2">2</a><a href="/path1">again</a>`
		got := ExtractLinks("https://example.com", html)

		expected := []string{"https://example.com/path1", "https://example.com/path2"}
		if len(got) != len(expected) {
			t.Fatalf("got %v, expected %v", got, expected)
		}
		for i := range expected {
			if got[i] != expected[i] {
				t.Errorf("link %d: got %q, expected %q", i, got[i], expected[i])
			}
		}
	})

	t.Run("skips non-navigable schemes", func(t *testing.T) {
		t.Parallel()

		html := `<a href="javascript:void(0)">js</a>
<a href="mailto:a@example.com">mail</a>
<a href="tel:+123">tel</a>
<a href="  ">blank</a>
<a>no href</a>
<a href="https://other.example/x">ok</a>`
		got := ExtractLinks("https://example.com/", html)

		if len(got) != 1 || got[0] != "https://other.example/x" {
			t.Errorf("got %v", got)
		}
		for _, link := range got {
			for _, prefix := range skippedSchemes {
				if strings.HasPrefix(link, prefix) {
					t.Errorf("link %q should have been skipped", link)
				}
			}
		}
	})

	t.Run("relative to nested base path", func(t *testing.T) {
		t.Parallel()

		got := ExtractLinks("https://example.com/docs/guide/", `<a href="../api">api</a><a href="page">p</a>`)
		if len(got) != 2 || got[0] != "https://example.com/docs/api" || got[1] != "https://example.com/docs/guide/page" {
			t.Errorf("got %v", got)
		}
	})

	t.Run("links inside nav are ignored", func(t *testing.T) {
		t.Parallel()

		got := ExtractLinks("https://example.com", `<nav><a href="/menu">m</a></nav><a href="/content">c</a>`)
		if len(got) != 1 || got[0] != "https://example.com/content" {
			t.Errorf("got %v", got)
		}
	})

	t.Run("unparseable base keeps absolute links only", func(t *testing.T) {
		t.Parallel()

		got := ExtractLinks("://bad base", `<a href="/relative">r</a><a href="https://example.com/abs">a</a>`)
		if len(got) != 1 || got[0] != "https://example.com/abs" {
			t.Errorf("got %v", got)
		}
	})

	t.Run("no anchors yields empty slice", func(t *testing.T) {
		t.Parallel()

		got := ExtractLinks("https://example.com", "<p>nothing</p>")
		if got == nil || len(got) != 0 {
			t.Errorf("expected empty non-nil slice, got %#v", got)
		}
	})
}

// TestExtractMeta tests OpenGraph parsing.
func TestExtractMeta(t *testing.T) {
	t.Parallel()

	html := `<html><head>
<meta property="og:site_name" content="Example Site">
<meta property="og:description" content=" A description ">
<meta property="og:type" content="article">
<meta property="og:image" content="https://example.com/cover.png">
</head><body></body></html>`

	meta := ExtractMeta(html)
	if meta.SiteName != "Example Site" {
		t.Errorf("SiteName = %q", meta.SiteName)
	}
	if meta.Description != "A description" {
		t.Errorf("Description = %q", meta.Description)
	}
	if meta.Type != "article" {
		t.Errorf("Type = %q", meta.Type)
	}
	if meta.Image != "https://example.com/cover.png" {
		t.Errorf("Image = %q", meta.Image)
	}

	if !ExtractMeta("<p>plain</p>").IsEmpty() {
		t.Error("expected empty meta for a page without OpenGraph tags")
	}
}

// TestExtract tests the combined extraction.
func TestExtract(t *testing.T) {
	t.Parallel()

	html := `<html><head><title>Doc</title><script>ignored()</script></head>
<body><h1>Heading</h1><p>Some text.</p><a href="/next">next</a></body></html>`

	res, err := Extract("https://example.com", html)
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if res.Title != "Doc" {
		t.Errorf("Title = %q", res.Title)
	}
	if res.Text != "Doc Heading Some text. next" {
		t.Errorf("Text = %q", res.Text)
	}
	if len(res.Links) != 1 || res.Links[0] != "https://example.com/next" {
		t.Errorf("Links = %v", res.Links)
	}
}

func TestExtractRecoversFromPanic(t *testing.T) {
	t.Parallel()

	res, err := extract("<p>fine</p>", func(*goquery.Document) *Result {
		panic("walker blew up")
	})
	if !errors.Is(err, ErrMalformedDocument) {
		t.Fatalf("expected ErrMalformedDocument, got %v", err)
	}
	if !strings.Contains(err.Error(), "walker blew up") {
		t.Errorf("panic value missing from %q", err.Error())
	}
	if res != nil {
		t.Errorf("expected nil result, got %+v", res)
	}
}
