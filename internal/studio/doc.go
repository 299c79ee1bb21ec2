// Package studio holds the user's working state: the current prompt,
// the latest generated artifacts, the applied cultural context, and an
// append-only workflow history. Mutations persist through a pluggable
// backend with a short trailing-edge debounce so bursts of edits
// collapse into a single save.
package studio
