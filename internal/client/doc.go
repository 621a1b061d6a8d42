// Package client is an HTTP client for a running fotad server.
//
// It backs the `fotad check` operator command: a quick way to confirm
// from a shell that the server is up, how many devices it is currently
// serving, and which firmware build it would hand out. Transport
// failures are retried with exponential backoff because the typical
// caller is a human or a cron probe on a flaky ops network.
package client
