// Package vision analyzes source images through the Gemini
// image-understanding API, turning raw bytes into structured insights the
// campaign runner can log and reuse.
package vision
