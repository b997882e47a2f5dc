package model

import (
	"crypto/md5" //nolint:gosec // content IDs must match the established md5(url) scheme
	"encoding/hex"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/sha3"
)

// UntitledTitle is used when no title source yields any text.
const UntitledTitle = "Untitled"

// DefaultEncoding is reported when the response charset cannot be determined.
const DefaultEncoding = "utf-8"

// TransportMetadata describes the HTTP exchange that produced a document.
type TransportMetadata struct {
	// StatusCode is the final HTTP status code after redirects.
	StatusCode int `json:"status_code"`

	// ContentType is the raw Content-Type header value. Empty when absent.
	ContentType string `json:"content_type"`

	// Encoding is the canonical charset name of the decoded body.
	// Falls back to DefaultEncoding when undetectable.
	Encoding string `json:"encoding"`

	// FetchedAt is the UTC instant the response was received.
	FetchedAt time.Time `json:"scraped_at"`

	// FinalURL is the URL that served the body after following redirects.
	FinalURL string `json:"final_url,omitempty"`

	// ContentLength is the declared body size in bytes, or -1 when the
	// server did not declare one.
	ContentLength int64 `json:"content_length"`
}

// PageMeta holds OpenGraph properties found in the document head.
type PageMeta struct {
	Description string `json:"description,omitempty"`
	SiteName    string `json:"site_name,omitempty"`
	Type        string `json:"type,omitempty"`
	Image       string `json:"image,omitempty"`
	Locale      string `json:"locale,omitempty"`
}

// IsEmpty reports whether no OpenGraph property was found.
func (m PageMeta) IsEmpty() bool {
	return m == PageMeta{}
}

// ScrapedDocument is the normalized result of fetching and extracting one URL.
// A document is built once per fetch and never modified afterwards.
type ScrapedDocument struct {
	// ID is ContentID(URL). It identifies the source, not the content.
	ID string `json:"id"`

	// URL is the URL as requested by the caller, before any redirect.
	URL string `json:"url"`

	// Title is never empty; UntitledTitle is used as a last resort.
	Title string `json:"title"`

	// Text is the visible page text with whitespace collapsed.
	Text string `json:"text"`

	// Links are distinct absolute URLs in first-seen order.
	Links []string `json:"links"`

	// Length is the number of characters in Text.
	Length int `json:"length"`

	// ContentHash is the hex SHA3-256 digest of Text. Two fetches of the
	// same URL share an ID but differ here when the content changed.
	ContentHash string `json:"content_hash"`

	// Meta holds OpenGraph properties when present.
	Meta PageMeta `json:"meta,omitzero"`

	// Metadata describes the HTTP exchange.
	Metadata TransportMetadata `json:"metadata"`
}

// NewScrapedDocument assembles a document for url from extracted parts.
// Length, ID and ContentHash are derived here so callers cannot get them wrong.
func NewScrapedDocument(url, title, text string, links []string, meta PageMeta, md TransportMetadata) *ScrapedDocument {
	if title == "" {
		title = UntitledTitle
	}
	if links == nil {
		links = []string{}
	}
	return &ScrapedDocument{
		ID:          ContentID(url),
		URL:         url,
		Title:       title,
		Text:        text,
		Links:       links,
		Length:      utf8.RuneCountInString(text),
		ContentHash: ContentHash(text),
		Meta:        meta,
		Metadata:    md,
	}
}

// IndexDocument converts the document into the triple consumed by indexers.
func (d *ScrapedDocument) IndexDocument() IndexDocument {
	return IndexDocument{
		ID:      d.ID,
		Title:   d.Title,
		Content: d.Text,
	}
}

// ContentID returns the stable identifier for a source URL: the lowercase
// hex MD5 digest of the URL string exactly as given.
func ContentID(url string) string {
	sum := md5.Sum([]byte(url)) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// ContentHash returns the hex SHA3-256 digest of text.
func ContentHash(text string) string {
	sum := sha3.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// IndexDocument is the {id, title, content} triple handed to a retrieval index.
type IndexDocument struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}
