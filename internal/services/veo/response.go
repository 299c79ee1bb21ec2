package veo

import "encoding/base64"

type operationPayload struct {
	Name     string            `json:"name"`
	Done     bool              `json:"done"`
	Response *operationResults `json:"response"`
	URIs     []string          `json:"uris"`
	Error    *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type operationResults struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content struct {
		Parts []part `json:"parts"`
	} `json:"content"`
}

type part struct {
	FileData *struct {
		FileURI string `json:"file_uri"`
	} `json:"file_data"`
	VideoMetadata *struct {
		FileURI string `json:"file_uri"`
	} `json:"video_metadata"`
}

// resolveURI walks the known response shapes in order. The vendor has
// shipped more than one layout for the same operation, so each fallback
// stays until the older shapes are confirmed retired. If the schema
// changes again this can silently pick the wrong field.
func resolveURI(payload operationPayload) string {
	if results := payload.Response; results != nil && len(results.Candidates) > 0 {
		parts := results.Candidates[0].Content.Parts
		if len(parts) > 0 && parts[0].FileData != nil && parts[0].FileData.FileURI != "" {
			return parts[0].FileData.FileURI
		}
		for _, p := range parts {
			if p.VideoMetadata != nil && p.VideoMetadata.FileURI != "" {
				return p.VideoMetadata.FileURI
			}
		}
	}
	if len(payload.URIs) > 0 {
		return payload.URIs[0]
	}
	return ""
}

func encodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
