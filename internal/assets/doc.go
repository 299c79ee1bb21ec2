// Package assets persists generated images and videos. Raw bytes land
// under the configured media directory and a SQLite database keeps the
// per-session catalog.
package assets
