// Package server hosts the alchemy daemon: single-instance lifecycle
// management behind a file lock and the HTTP API, including the
// server-sent-events progress stream.
package server
