// Package reqctx carries request-scoped metadata (request id, client
// address, authenticated user) from the HTTP layer into services, workers
// and log records.
package reqctx
