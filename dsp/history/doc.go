// Package history provides the fixed-capacity sample ring that backs a
// channel's sliding analysis window.
//
// A [Buffer] retains the most recent Capacity samples of a stream. Pushing
// past capacity evicts the oldest samples, and [Buffer.Snapshot] copies the
// retained window oldest-to-newest regardless of how the data wraps the
// backing array. The type is not safe for concurrent use; callers that share
// a Buffer across goroutines must serialize access themselves.
package history
