package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrEmbeddingProvider signals an embedding provider failure or a
	// malformed/insufficient provider response.
	ErrEmbeddingProvider = errors.New("embedding provider error")
	// ErrSummarization signals a summarization provider failure.
	ErrSummarization = errors.New("summarization provider error")
	// ErrStoreRead signals a record store read failure.
	ErrStoreRead = errors.New("store read error")
	// ErrStoreWrite signals a record store write failure.
	ErrStoreWrite = errors.New("store write error")
	// ErrMalformedRecord signals a stored row whose embedding blob does not decode.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
)
