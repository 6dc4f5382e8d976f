// Package reindex rebuilds the search artifacts of stored bookmarks:
// embedding vectors after an embedding model change, and the weighted
// lexical index after a tokenizer or tier-weight change.
//
// Bookmarks are processed in batches with progress reporting, retry with
// exponential backoff for embedding calls, and vector normalization so
// stored vectors stay compatible with cosine similarity search.
package reindex
