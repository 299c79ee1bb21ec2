package campaign

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"alchemy/internal/assets"
	"alchemy/internal/config"
	"alchemy/internal/logging"
	"alchemy/internal/polling"
	"alchemy/internal/progress"
	"alchemy/internal/services"
	"alchemy/internal/services/imagen"
	"alchemy/internal/services/qloo"
	"alchemy/internal/services/veo"
	"alchemy/internal/services/vision"
)

// ErrNoDemographics rejects a run with an empty demographic list.
var ErrNoDemographics = errors.New("no demographics")

const defaultSession = "voice"

// Demographic is one target segment driving an image and a video cycle.
type Demographic struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	City        string `json:"city,omitempty"`
	Country     string `json:"country,omitempty"`
}

// RunRequest starts one campaign run.
type RunRequest struct {
	Session      string        `json:"session"`
	ImageURL     string        `json:"imageUrl,omitempty"`
	Demographics []Demographic `json:"demographics"`
}

// ImageAnalyzer extracts structured insights from a source image.
type ImageAnalyzer interface {
	Analyze(ctx context.Context, image []byte, mimeType string) (vision.Insights, error)
}

// CulturalSource resolves cultural signals for a locale.
type CulturalSource interface {
	Lookup(ctx context.Context, city, country string) (qloo.Analysis, error)
}

// ImageGenerator produces a still image from a prompt.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (imagen.Image, error)
}

// VideoGenerator produces a video through a long-running operation.
type VideoGenerator interface {
	Generate(ctx context.Context, prompt string, image []byte, mimeType string) (veo.Operation, error)
	Poll(ctx context.Context, op veo.Operation) (veo.Operation, error)
	Download(ctx context.Context, uri string) ([]byte, error)
}

// AssetSink persists generated artifacts.
type AssetSink interface {
	SaveImage(ctx context.Context, session, title, prompt string, data []byte, mimeType string) (*assets.Asset, error)
	SaveVideo(ctx context.Context, session, title, prompt string, data []byte, sourceURI string) (*assets.Asset, error)
}

// Runner drives a campaign run through its stages one demographic at a
// time, publishing human-readable progress to the run's session. Every
// collaborator call is fallible but only an empty demographic list
// aborts the run.
type Runner struct {
	bus        *progress.Bus
	analyzer   ImageAnalyzer
	cultural   CulturalSource
	images     ImageGenerator
	videos     VideoGenerator
	sink       AssetSink
	policy     polling.Policy
	httpClient *http.Client
	logger     *slog.Logger
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithAnalyzer enables the optional image analysis stage.
func WithAnalyzer(analyzer ImageAnalyzer) RunnerOption {
	return func(r *Runner) { r.analyzer = analyzer }
}

// WithHTTPClient overrides the client used to fetch source images.
func WithHTTPClient(client *http.Client) RunnerOption {
	return func(r *Runner) {
		if client != nil {
			r.httpClient = client
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner wires a Runner. The polling policy comes from the campaign
// section of cfg.
func NewRunner(cfg *config.Config, bus *progress.Bus, cultural CulturalSource, images ImageGenerator, videos VideoGenerator, sink AssetSink, opts ...RunnerOption) *Runner {
	runner := &Runner{
		bus:      bus,
		cultural: cultural,
		images:   images,
		videos:   videos,
		sink:     sink,
		policy: polling.Policy{
			MaxAttempts: cfg.Campaign.PollMaxAttempts,
			Initial:     time.Duration(cfg.Campaign.PollInitialMS) * time.Millisecond,
			Step:        time.Duration(cfg.Campaign.PollStepMS) * time.Millisecond,
			Cap:         time.Duration(cfg.Campaign.PollCapMS) * time.Millisecond,
		},
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(runner)
	}
	return runner
}

// Run executes all stages sequentially. It returns ErrNoDemographics
// before publishing anything other than the abort notice when the
// demographic list is empty; all later failures continue the run.
func (r *Runner) Run(ctx context.Context, req RunRequest) error {
	session := strings.TrimSpace(req.Session)
	if session == "" {
		session = defaultSession
	}
	if _, ok := logging.RequestIDFromContext(ctx); !ok {
		ctx = logging.WithRequestID(ctx, uuid.NewString())
	}
	ctx = logging.WithSession(ctx, session)
	logger := logging.WithContext(ctx, r.logger)

	if len(req.Demographics) == 0 {
		r.publish(session, "Voice run aborted: no demographics provided.")
		return ErrNoDemographics
	}

	logger.Info("campaign run started", logging.Int("demographics", len(req.Demographics)))

	r.analyzeImage(logging.WithStage(ctx, "analysis"), session, req.ImageURL)
	r.generateImages(logging.WithStage(ctx, "image"), session, req.Demographics)
	r.generateVideos(logging.WithStage(ctx, "video"), session, req.Demographics)

	r.publish(session, "Voice flow complete.")
	logger.Info("campaign run finished")
	return nil
}

func (r *Runner) analyzeImage(ctx context.Context, session, imageURL string) {
	if imageURL == "" || r.analyzer == nil {
		return
	}
	logger := logging.WithContext(ctx, r.logger)
	r.publish(session, "Analyzing image from URL...")
	data, mimeType, err := r.fetchImage(ctx, imageURL)
	if err == nil {
		_, err = r.analyzer.Analyze(ctx, data, mimeType)
	}
	if err != nil {
		logger.Warn("image analysis failed", logging.Error(err))
		r.publish(session, fmt.Sprintf("Image analysis failed: %v", err))
	}
}

func (r *Runner) generateImages(ctx context.Context, session string, demographics []Demographic) {
	logger := logging.WithContext(ctx, r.logger)
	r.publish(session, fmt.Sprintf("Fetching cultural signals for default campaign + %d demographics...", len(demographics)))
	for _, d := range demographics {
		stageLogger := logger.With(logging.String("demographic", d.Title))

		city := d.City
		if city == "" {
			city = d.Title
		}
		country := d.Country
		if country == "" {
			country = d.Title
		}
		var analysis qloo.Analysis
		if r.cultural != nil {
			fetched, err := r.cultural.Lookup(ctx, city, country)
			if err != nil {
				stageLogger.Warn("cultural lookup failed", logging.Error(err))
			} else {
				analysis = fetched
			}
		}

		prompt := buildImagePrompt(d, analysis)
		r.publish(session, fmt.Sprintf("Generating image for %s...", d.Title))
		image, err := r.images.Generate(ctx, prompt)
		if err != nil {
			stageLogger.Warn("image generation failed", logging.Error(err))
			r.publish(session, fmt.Sprintf("Image failed for %s: %s", d.Title, failureDetail(err)))
			continue
		}
		if r.sink != nil {
			if _, err := r.sink.SaveImage(ctx, session, d.Title, prompt, image.Data, image.MimeType); err != nil {
				stageLogger.Warn("image persist failed", logging.Error(err))
			}
		}
		r.publish(session, fmt.Sprintf("Image ready for %s.", d.Title))
	}
}

func (r *Runner) generateVideos(ctx context.Context, session string, demographics []Demographic) {
	logger := logging.WithContext(ctx, r.logger)
	r.publish(session, "Generating videos one-by-one for default campaign + demographics...")
	for _, d := range demographics {
		stageLogger := logger.With(logging.String("demographic", d.Title))

		prompt := d.Title
		if d.Description != "" {
			prompt = d.Title + ": " + d.Description
		}
		r.publish(session, fmt.Sprintf("Generating video for %s...", d.Title))
		op, err := r.videos.Generate(ctx, prompt, nil, "")
		if err != nil {
			stageLogger.Warn("video start failed", logging.Error(err))
			r.publish(session, fmt.Sprintf("Video start failed for %s: %s", d.Title, failureDetail(err)))
			continue
		}

		uri := r.awaitVideo(ctx, stageLogger, op)
		if uri == "" {
			r.publish(session, fmt.Sprintf("%s video pending/failed.", d.Title))
			continue
		}

		data, err := r.videos.Download(ctx, uri)
		if err != nil {
			stageLogger.Warn("video download failed", logging.Error(err))
			r.publish(session, fmt.Sprintf("Download/save failed for %s: %s", d.Title, failureDetail(err)))
			continue
		}
		savedURL := "n/a"
		if r.sink != nil {
			asset, err := r.sink.SaveVideo(ctx, session, d.Title, prompt, data, uri)
			if err != nil {
				stageLogger.Warn("video persist failed", logging.Error(err))
				r.publish(session, fmt.Sprintf("Download/save failed for %s: %s", d.Title, failureDetail(err)))
				continue
			}
			savedURL = asset.FilePath
		}
		r.publish(session, fmt.Sprintf("Saved video URL for %s: %s", d.Title, savedURL))
	}
}

// awaitVideo polls until the operation reports done or the budget runs
// out. An exhausted budget or a failed operation both yield an empty
// URI.
func (r *Runner) awaitVideo(ctx context.Context, logger *slog.Logger, op veo.Operation) string {
	current := op
	err := polling.Poll(ctx, r.policy, func(ctx context.Context, attempt int) (bool, error) {
		fresh, pollErr := r.videos.Poll(ctx, current)
		if pollErr != nil {
			return false, pollErr
		}
		current = fresh
		return current.Done, nil
	})
	if err != nil {
		logger.Warn("video polling ended without completion", logging.Error(err))
		return ""
	}
	if current.Err != nil {
		logger.Warn("video operation failed", logging.Error(current.Err))
		return ""
	}
	return current.VideoURI
}

func (r *Runner) fetchImage(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("fetch image: %w", err)
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, "", fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("fetch image: %w", err)
	}
	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "image/png"
	}
	return data, mimeType, nil
}

func (r *Runner) publish(session, text string) {
	r.bus.Publish(session, progress.NewMessage(text))
}

func buildImagePrompt(d Demographic, analysis qloo.Analysis) string {
	var lines []string
	if d.Description != "" {
		lines = append(lines, "Demographic details: "+d.Description)
	}
	if hints := analysis.Hints(); hints != "" {
		lines = append(lines, "Relevant cultural cues: "+hints)
	}
	target := d.Title
	if locale := joinLocale(d.City, d.Country); locale != "" {
		target += " (" + locale + ")"
	}
	lines = append(lines, fmt.Sprintf("Create a visually striking, brand-safe image tailored to %s.", target))
	return strings.Join(lines, "\n")
}

func joinLocale(city, country string) string {
	parts := make([]string, 0, 2)
	if city != "" {
		parts = append(parts, city)
	}
	if country != "" {
		parts = append(parts, country)
	}
	return strings.Join(parts, ", ")
}

func failureDetail(err error) string {
	var statusErr *services.StatusError
	if errors.As(err, &statusErr) {
		return fmt.Sprintf("%d", statusErr.StatusCode)
	}
	return err.Error()
}
