// Package imagen generates still images from text prompts through the
// Imagen prediction endpoint.
package imagen
