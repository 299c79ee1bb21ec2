// Package services hosts the HTTP clients for the external collaborators the
// campaign runner delegates to: image analysis (vision), cultural
// intelligence (qloo), image generation (imagen), and video generation (veo).
//
// Every client treats its vendor as a fallible I/O boundary: requests carry
// the caller's context, failures come back as wrapped errors (with
// StatusError exposing the HTTP status for callers that branch on it), and no
// client retries on its own. Retry and continuation policy belongs to the
// orchestrator.
package services
