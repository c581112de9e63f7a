// Package s3 provides a client for S3-compatible object storage.
//
// It backs the optional artifact mirror: every published boot artifact
// is copied into a bucket keyed by fleet and VMID, giving an audit trail
// that survives node storage loss. The node snippet store remains the
// authoritative copy.
package s3
