// Package archive uploads calculated recipe directories to S3-compatible
// object storage.
//
// Objects are keyed <prefix>/<project>/<run id>/<file>. The directory lock
// file is never uploaded. The MinIO client is built from the [archive]
// config section; tests substitute the ObjectStore interface.
package archive
