// Package blobstore abstracts where dataset, evaluation and operator blobs
// live: local disk, memory, S3 or MinIO-compatible object storage.
//
// The core correction pipeline only depends on the Store interface; wiring a
// remote backend is a construction-time decision.
package blobstore
