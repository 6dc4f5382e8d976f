// Package ingestion implements the asynchronous bookmark processing
// pipeline: a job queue, a fixed worker pool, and the stage sequence that
// turns a bare URL into an enriched, searchable bookmark.
//
// Stages run in order per bookmark; different bookmarks process fully in
// parallel. Acquisition failures retry with exponential backoff and
// eventually mark the bookmark failed. Analysis and embedding failures are
// logged and skipped, so a bookmark completes with partial enrichment
// rather than not at all.
package ingestion
