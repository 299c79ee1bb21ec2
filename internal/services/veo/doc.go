// Package veo generates short videos through the Veo long-running
// prediction endpoint. Generation returns an operation handle that the
// caller polls until the job reports done, then downloads the delivery
// URI.
package veo
