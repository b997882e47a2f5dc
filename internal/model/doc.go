// Package model defines the data structures shared by the fetcher, the
// batch coordinator, persistence and report writers.
//
// The main types are:
//   - ScrapedDocument: the normalized result of fetching one URL
//   - TransportMetadata: facts about the HTTP exchange behind a document
//   - IndexDocument: the {id, title, content} triple for retrieval indexes
//   - BatchResult and BatchSummary: the outcome of a concurrent batch
//
// All types serialize to JSON for report output and database storage.
package model
