package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/harun/wagate/internal/metrics"
	"github.com/harun/wagate/pkg/session"
)

// sizeSafetyMarginMB keeps borderline files clear of the platform cap:
// transport overhead and container metadata can push a file that passes
// the raw-size check over the remote limit.
const sizeSafetyMarginMB = 0.5

const (
	rawArtifact        = "video.mp4"
	compressedArtifact = "compressed.mp4"
)

// Stage identifies which pipeline step failed
type Stage string

const (
	StageDownload  Stage = "download"
	StageTranscode Stage = "transcode"
	StageSend      Stage = "send"
)

// PipelineError wraps a stage failure with its stage context
type PipelineError struct {
	Stage Stage
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Request describes one outbound video send
type Request struct {
	UserID   string
	Number   string
	VideoURL string
	Caption  string
}

// Options configures the pipeline
type Options struct {
	// TempDir is the root under which per-send work areas are created
	TempDir string

	// MaxSizeMB is the platform's media size cap; downloads within
	// sizeSafetyMarginMB of it are transcoded down first
	MaxSizeMB float64

	FFmpegCRF    int
	FFmpegPreset string

	DownloadTimeout time.Duration

	Logger  zerolog.Logger
	Metrics *metrics.Metrics
}

// Pipeline downloads a remote video, compresses it when needed and sends
// it through the user's session, cleaning up its scratch storage on
// every exit path.
type Pipeline struct {
	sessions   *session.Manager
	opts       Options
	httpClient *http.Client
	transcode  transcodeFunc
	logger     zerolog.Logger
	metrics    *metrics.Metrics
}

// NewPipeline creates a send pipeline
func NewPipeline(sessions *session.Manager, opts Options) (*Pipeline, error) {
	if sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if opts.TempDir == "" {
		return nil, fmt.Errorf("temp dir is required")
	}
	if opts.MaxSizeMB <= 0 {
		opts.MaxSizeMB = 16
	}
	if opts.FFmpegCRF == 0 {
		opts.FFmpegCRF = 28
	}
	if opts.FFmpegPreset == "" {
		opts.FFmpegPreset = "veryfast"
	}
	if opts.DownloadTimeout == 0 {
		opts.DownloadTimeout = 2 * time.Minute
	}

	p := &Pipeline{
		sessions: sessions,
		opts:     opts,
		httpClient: &http.Client{
			Timeout: opts.DownloadTimeout,
		},
		logger:  opts.Logger.With().Str("module", "media").Logger(),
		metrics: opts.Metrics,
	}
	p.transcode = p.ffmpegTranscode

	return p, nil
}

// SendVideo runs the full pipeline: download, conditional transcode,
// send. The work area is removed before returning, success or not.
func (p *Pipeline) SendVideo(ctx context.Context, req Request) error {
	start := time.Now()
	err := p.sendVideo(ctx, req)

	if p.metrics != nil {
		result := "success"
		if err != nil {
			result = "error"
		}
		p.metrics.SendsTotal.WithLabelValues(result).Inc()
		p.metrics.SendDuration.Observe(time.Since(start).Seconds())
	}

	return err
}

func (p *Pipeline) sendVideo(ctx context.Context, req Request) error {
	if req.VideoURL == "" {
		return fmt.Errorf("videoUrl must be provided")
	}

	// Fail fast before touching the filesystem if there is no session
	client, err := p.sessions.ClientFor(req.UserID)
	if err != nil {
		return err
	}

	logger := p.logger.With().Str("user_id", req.UserID).Logger()

	area, err := NewWorkArea(p.opts.TempDir, req.UserID)
	if err != nil {
		return err
	}
	defer area.Cleanup(logger)

	rawPath := area.Path(rawArtifact)

	logger.Info().Str("url", req.VideoURL).Msg("Downloading video")
	if err := p.download(ctx, req.VideoURL, rawPath); err != nil {
		return &PipelineError{Stage: StageDownload, Err: err}
	}

	sendPath := rawPath

	sizeMB, err := fileSizeMB(rawPath)
	if err != nil {
		return &PipelineError{Stage: StageDownload, Err: err}
	}

	if sizeMB > p.opts.MaxSizeMB-sizeSafetyMarginMB {
		logger.Info().Float64("size_mb", sizeMB).Msg("Compressing video to fit size cap")
		compressedPath := area.Path(compressedArtifact)
		if err := p.transcode(ctx, rawPath, compressedPath); err != nil {
			return &PipelineError{Stage: StageTranscode, Err: err}
		}
		if p.metrics != nil {
			p.metrics.TranscodesTotal.Inc()
		}
		sendPath = compressedPath
	}

	destination := req.Number + "@c.us"
	if err := client.SendMedia(ctx, destination, sendPath, req.Caption); err != nil {
		return &PipelineError{Stage: StageSend, Err: err}
	}

	logger.Info().Str("number", req.Number).Msg("Video sent")
	return nil
}

// download fetches url into destPath, failing on any non-2xx response
func (p *Pipeline) download(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer out.Close()

	written, err := io.Copy(out, resp.Body)
	if err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	if p.metrics != nil {
		p.metrics.DownloadedBytes.Add(float64(written))
	}

	return nil
}

func fileSizeMB(path string) (float64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return float64(info.Size()) / (1024 * 1024), nil
}
