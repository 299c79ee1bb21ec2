package studio

import (
	"strings"
	"time"

	"alchemy/internal/services/qloo"
)

// Mode classifies a workflow step by the surface it happened on.
type Mode string

const (
	ModeCreateImage Mode = "create-image"
	ModeEditImage   Mode = "edit-image"
	ModeCreateVideo Mode = "create-video"
	ModeCultural    Mode = "cultural"
)

// Artifact is the most recent generated image or video.
type Artifact struct {
	URL      string `json:"url"`
	MimeType string `json:"mimeType,omitempty"`
	ID       string `json:"id,omitempty"`
}

// Step is one append-only workflow history record.
type Step struct {
	Mode    Mode           `json:"mode"`
	Action  string         `json:"action"`
	Payload map[string]any `json:"payload,omitempty"`
	At      time.Time      `json:"at"`
}

// State is the studio workspace: the working prompt, the latest
// artifacts, the applied cultural context, and the action history.
type State struct {
	Prompt          string         `json:"prompt"`
	LastImage       *Artifact      `json:"lastImage,omitempty"`
	LastVideo       *Artifact      `json:"lastVideo,omitempty"`
	CulturalContext *qloo.Analysis `json:"culturalContext,omitempty"`
	Workflow        []Step         `json:"workflow"`
}

func (s State) clone() State {
	out := s
	if s.LastImage != nil {
		img := *s.LastImage
		out.LastImage = &img
	}
	if s.LastVideo != nil {
		vid := *s.LastVideo
		out.LastVideo = &vid
	}
	if s.CulturalContext != nil {
		ctx := *s.CulturalContext
		out.CulturalContext = &ctx
	}
	out.Workflow = make([]Step, len(s.Workflow))
	copy(out.Workflow, s.Workflow)
	return out
}

const (
	maxThemeLabels = 5
	maxBrandLabels = 3
)

// SynthesizeCulture reduces a cultural context to one semicolon-joined
// prompt fragment: up to five theme topics, the leading tone, the
// leading visual style, and up to three brands. Missing sections are
// skipped; a nil context yields an empty fragment.
func SynthesizeCulture(ctx *qloo.Analysis) string {
	if ctx == nil {
		return ""
	}
	var fragments []string

	var themes []string
	for _, obsession := range ctx.Themes.CurrentObsessions {
		if topic := strings.TrimSpace(obsession.Topic); topic != "" {
			themes = append(themes, topic)
		}
		if len(themes) == maxThemeLabels {
			break
		}
	}
	if len(themes) > 0 {
		fragments = append(fragments, "themes: "+strings.Join(themes, ", "))
	}
	if len(ctx.Communication.TonePreferences) > 0 {
		if tone := strings.TrimSpace(ctx.Communication.TonePreferences[0]); tone != "" {
			fragments = append(fragments, "tone: "+tone)
		}
	}
	if len(ctx.Aesthetics.VisualStyles) > 0 {
		if style := strings.TrimSpace(ctx.Aesthetics.VisualStyles[0]); style != "" {
			fragments = append(fragments, "style: "+style)
		}
	}
	var brands []string
	for _, brand := range ctx.Brands.LovedBrands {
		if brand = strings.TrimSpace(brand); brand != "" {
			brands = append(brands, brand)
		}
		if len(brands) == maxBrandLabels {
			break
		}
	}
	if len(brands) > 0 {
		fragments = append(fragments, "inspired by: "+strings.Join(brands, ", "))
	}

	return strings.Join(fragments, "; ")
}
