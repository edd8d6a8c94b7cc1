package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/ryanreadbooks/primon/channel"
)

const (
	defaultTimeout  = 60 * time.Second
	defaultMaxBytes = 64 << 20
)

var (
	ErrNoProfilePicture = channel.ErrNoProfilePicture
	ErrTooLarge         = errors.New("media too large")
	ErrUnexpectedType   = errors.New("unexpected media type")
)

type Options struct {
	Timeout  time.Duration
	MaxBytes int64
	Client   *http.Client
	Logger   *slog.Logger
}

// Blob is a downloaded media payload.
type Blob struct {
	Data     []byte
	Mimetype string
}

// Fetcher downloads remote media over HTTP.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
	profiles channel.ProfilePictures
	logger   *slog.Logger
}

func NewFetcher(opts Options) *Fetcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Fetcher{
		client:   client,
		maxBytes: maxBytes,
		logger:   logger.With("component", "media"),
	}
}

// WithProfiles returns a copy of f resolving profile pictures through p.
func (f *Fetcher) WithProfiles(p channel.ProfilePictures) *Fetcher {
	c := *f
	c.profiles = p
	return &c
}

// FetchProfilePicture returns the url of the current profile picture of
// chatID or ErrNoProfilePicture.
func (f *Fetcher) FetchProfilePicture(ctx context.Context, chatID string) (string, error) {
	if f.profiles == nil {
		return "", ErrNoProfilePicture
	}
	url, err := f.profiles.ProfilePictureURL(ctx, chatID)
	if err != nil {
		return "", err
	}
	if url == "" {
		return "", ErrNoProfilePicture
	}
	return url, nil
}

// FetchBytes downloads url into memory and sniffs its mimetype.
func (f *Fetcher) FetchBytes(ctx context.Context, url string) (*Blob, error) {
	body, err := f.open(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", url, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, url, f.maxBytes)
	}

	return &Blob{Data: data, Mimetype: mimetype.Detect(data).String()}, nil
}

// FetchImage is FetchBytes that only accepts images.
func (f *Fetcher) FetchImage(ctx context.Context, url string) (*Blob, error) {
	blob, err := f.FetchBytes(ctx, url)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(blob.Mimetype, "image/") {
		return nil, fmt.Errorf("%w: %s is %s", ErrUnexpectedType, url, blob.Mimetype)
	}
	return blob, nil
}

func (f *Fetcher) open(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", url, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to download %s: status %d", url, resp.StatusCode)
	}
	if resp.ContentLength > f.maxBytes {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, url, resp.ContentLength)
	}

	f.logger.DebugContext(ctx, "downloading media", "url", url, "content_length", resp.ContentLength)
	return resp.Body, nil
}
