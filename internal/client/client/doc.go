// Package client contains the client-side building blocks of the account CLI.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the Client interface) covering
//     every remote account operation.
//  2. A concrete gRPC implementation (see GRPCClient) that manages a
//     connection, injects the bearer access token via an interceptor,
//     transparently refreshes expired tokens, and maps gRPC status codes to
//     sentinel errors.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) wiring an
//     SQLite database and applying embedded goose migrations.
//
// # Error Handling
//
// Common conditions are exposed as sentinel errors that callers can match with
// errors.Is: ErrUnavailable, ErrUnauthorized, ErrForbidden, ErrRejected.
//
// GRPCClient is safe for concurrent use. Concurrent calls that hit an expired
// access token share a single refresh.
package client
