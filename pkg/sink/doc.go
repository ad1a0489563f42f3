// Package sink provides concrete implementations of the Consumer Pool's
// Sink contract (stream.Sink): MemorySink for tests and local examples,
// OpenSearchSink as the primary search-index destination, and S3Sink as a
// cold-storage archival mirror. Entries may be replayed under the
// at-least-once delivery contract; MemorySink and OpenSearchSink keep one
// copy per message id, while S3Sink deduplicates only whole replayed
// batches (see S3Sink).
package sink
