package greeting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/ryanreadbooks/primon/channel/model"
	"github.com/ryanreadbooks/primon/lang"
	"github.com/ryanreadbooks/primon/media"
)

const (
	gppToken    = "{gpp}"
	imgMarker   = "{img:"
	vidMarker   = "{vid:"
	imgTokenTip = "{img: url}"
	vidTokenTip = "{vid: url}"
)

var (
	imgToken = regexp.MustCompile(`\{img:\s*([^\s}]+)\s*\}`)
	vidToken = regexp.MustCompile(`\{vid:\s*([^\s}]+)\s*\}`)
)

// Fetcher is what the renderer needs to resolve media tokens.
type Fetcher interface {
	FetchImage(ctx context.Context, url string) (*media.Blob, error)
	FetchProfilePicture(ctx context.Context, chatID string) (string, error)
	FetchVideo(ctx context.Context, url, destPath string) (*media.Video, error)
}

// Result is a rendered template. When Err is set Message is the text that
// explains the problem to the chat.
type Result struct {
	Message *model.OutgoingMessage
	Err     error
}

type Renderer struct {
	fetcher    Fetcher
	strings    lang.Strings
	scratchDir string
	logger     *slog.Logger
}

func NewRenderer(fetcher Fetcher, strings lang.Strings, scratchDir string, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{
		fetcher:    fetcher,
		strings:    strings,
		scratchDir: scratchDir,
		logger:     logger.With("component", "renderer"),
	}
}

// Render expands tpl for chatID. At most one of {gpp}, {img: url} and
// {vid: url} may be used, a template mixing two of them is reported
// without fetching anything.
func (r *Renderer) Render(ctx context.Context, tpl *Template, chatID string) Result {
	content := tpl.Content
	hasGpp := strings.Contains(content, gppToken)
	hasImg := strings.Contains(content, imgMarker)
	hasVid := strings.Contains(content, vidMarker)

	switch {
	case hasImg && hasVid:
		return r.ambiguous(tpl.Type, imgTokenTip, vidTokenTip)
	case hasGpp && hasImg:
		return r.ambiguous(tpl.Type, gppToken, imgTokenTip)
	case hasGpp && hasVid:
		return r.ambiguous(tpl.Type, gppToken, vidTokenTip)
	case hasGpp:
		return r.renderProfilePicture(ctx, content, chatID)
	case hasImg:
		return r.renderImage(ctx, content)
	case hasVid:
		return r.renderVideo(ctx, content)
	}

	switch tpl.Kind {
	case KindImage:
		return Result{Message: model.Image(tpl.Media, tpl.Mimetype, content)}
	case KindVideo:
		return Result{Message: model.Video(tpl.Media, tpl.Mimetype, content, 0)}
	default:
		return Result{Message: model.Text(content)}
	}
}

func (r *Renderer) ambiguous(typ Type, a, b string) Result {
	name := r.strings.Get("greeting." + string(typ))
	return Result{
		Message: model.Text(r.strings.Format("render.ambiguous", name, a, b)),
		Err:     fmt.Errorf("%w: %s uses %s and %s", ErrAmbiguousTemplate, typ, a, b),
	}
}

func (r *Renderer) failure(key string, err error) Result {
	return Result{Message: model.Text(r.strings.Get(key)), Err: err}
}

func (r *Renderer) renderProfilePicture(ctx context.Context, content, chatID string) Result {
	url, err := r.fetcher.FetchProfilePicture(ctx, chatID)
	if err != nil {
		if !errors.Is(err, media.ErrNoProfilePicture) {
			err = fmt.Errorf("%w: %w", media.ErrNoProfilePicture, err)
		}
		return r.failure("render.no_pfp", err)
	}

	blob, err := r.fetchImage(ctx, url)
	if err != nil {
		return r.failure("render.image_failed", err)
	}
	caption := strings.TrimSpace(strings.ReplaceAll(content, gppToken, ""))
	return Result{Message: model.Image(blob.Data, blob.Mimetype, caption)}
}

func (r *Renderer) renderImage(ctx context.Context, content string) Result {
	loc := imgToken.FindStringSubmatchIndex(content)
	if loc == nil {
		return r.failure("render.image_failed", fmt.Errorf("malformed image token in %q", content))
	}
	url := content[loc[2]:loc[3]]

	blob, err := r.fetchImage(ctx, url)
	if err != nil {
		return r.failure("render.image_failed", err)
	}
	caption := strings.TrimSpace(content[:loc[0]] + content[loc[1]:])
	return Result{Message: model.Image(blob.Data, blob.Mimetype, caption)}
}

func (r *Renderer) fetchImage(ctx context.Context, url string) (*media.Blob, error) {
	blob, err := r.fetcher.FetchImage(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	return blob, nil
}

func (r *Renderer) renderVideo(ctx context.Context, content string) Result {
	loc := vidToken.FindStringSubmatchIndex(content)
	if loc == nil {
		return r.failure("render.video_failed", fmt.Errorf("malformed video token in %q", content))
	}
	url := content[loc[2]:loc[3]]

	video, err := r.fetcher.FetchVideo(ctx, url, media.ScratchPath(r.scratchDir, ".mp4"))
	if err != nil {
		return r.failure("render.video_failed", fmt.Errorf("failed to fetch video: %w", err))
	}
	defer func() {
		if err := os.Remove(video.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			r.logger.WarnContext(ctx, "failed to remove video", "path", video.Path, "error", err)
		}
	}()

	data, err := os.ReadFile(video.Path)
	if err != nil {
		return r.failure("render.video_failed", fmt.Errorf("failed to read video: %w", err))
	}
	caption := strings.TrimSpace(content[:loc[0]] + content[loc[1]:])
	return Result{Message: model.Video(data, video.Mimetype, caption, video.Seconds)}
}
