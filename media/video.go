package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	mp4 "github.com/yapingcat/gomedia/go-mp4"
)

// Video is a video downloaded to disk.
type Video struct {
	Path     string
	Mimetype string
	// Seconds is the duration read from the mp4 header, 0 when unknown.
	Seconds uint32
	Size    int64
}

// FetchVideo downloads url to destPath. The file is removed again when the
// download is not a video.
func (f *Fetcher) FetchVideo(ctx context.Context, url, destPath string) (*Video, error) {
	body, err := f.open(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media dir: %w", err)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", destPath, err)
	}

	size, err := io.Copy(out, io.LimitReader(body, f.maxBytes+1))
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && size > f.maxBytes {
		err = fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, url, f.maxBytes)
	}
	if err != nil {
		os.Remove(destPath)
		return nil, fmt.Errorf("failed to save %s: %w", url, err)
	}

	mime, err := mimetype.DetectFile(destPath)
	if err != nil {
		os.Remove(destPath)
		return nil, fmt.Errorf("failed to detect type of %s: %w", destPath, err)
	}
	if !mimetype.EqualsAny(mime.String(), "video/mp4", "video/quicktime", "video/3gpp", "video/webm", "video/x-m4v") {
		os.Remove(destPath)
		return nil, fmt.Errorf("%w: %s is %s", ErrUnexpectedType, url, mime.String())
	}

	v := &Video{Path: destPath, Mimetype: mime.String(), Size: size}
	if seconds, err := probeDuration(destPath); err == nil {
		v.Seconds = seconds
	} else {
		f.logger.DebugContext(ctx, "could not read video duration", "path", destPath, "error", err)
	}

	return v, nil
}

// probeDuration reads the movie header of an mp4 file.
func probeDuration(path string) (seconds uint32, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed mp4: %v", r)
		}
	}()

	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	demuxer := mp4.CreateMp4Demuxer(file)
	if _, err := demuxer.ReadHead(); err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("failed to read mp4 head: %w", err)
	}

	info := demuxer.GetMp4Info()
	if info.Timescale == 0 {
		return 0, errors.New("mp4 header has no timescale")
	}
	return info.Duration / info.Timescale, nil
}
