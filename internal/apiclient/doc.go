// Package apiclient is the CLI-side HTTP client for the alchemy daemon
// API, including a consumer for the server-sent-events progress stream.
package apiclient
