// Package postgres manages database connectivity for the service.
//
// ConnectionManager owns the primary pool and optional read replicas with
// round-robin selection; replica failures at startup are logged and skipped
// rather than fatal. The package also builds the Redis client used by the
// RBAC context cache, keeping all external storage wiring in one place.
package postgres
