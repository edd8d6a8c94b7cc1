package media

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var (
	pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	mp4Header = []byte("\x00\x00\x00\x18ftypmp42\x00\x00\x00\x00mp42isom")
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/pic.png", func(w http.ResponseWriter, r *http.Request) {
		w.Write(pngHeader)
	})
	mux.HandleFunc("/clip.mp4", func(w http.ResponseWriter, r *http.Request) {
		w.Write(mp4Header)
	})
	mux.HandleFunc("/big", func(w http.ResponseWriter, r *http.Request) {
		w.Write(bytes.Repeat([]byte("a"), 2048))
	})
	mux.HandleFunc("/text", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("just some text"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type staticProfiles struct {
	url string
	err error
}

func (s staticProfiles) ProfilePictureURL(ctx context.Context, chatID string) (string, error) {
	return s.url, s.err
}

func TestFetcher_FetchBytes(t *testing.T) {
	srv := newServer(t)
	f := NewFetcher(Options{MaxBytes: 1024})

	blob, err := f.FetchBytes(context.Background(), srv.URL+"/pic.png")
	if err != nil {
		t.Fatalf("FetchBytes() error = %v", err)
	}
	if blob.Mimetype != "image/png" {
		t.Errorf("Mimetype = %q, want image/png", blob.Mimetype)
	}

	if _, err := f.FetchBytes(context.Background(), srv.URL+"/big"); !errors.Is(err, ErrTooLarge) {
		t.Errorf("FetchBytes(big) error = %v, want ErrTooLarge", err)
	}
	if _, err := f.FetchBytes(context.Background(), srv.URL+"/missing"); err == nil {
		t.Error("FetchBytes(missing) succeeded")
	}
	if _, err := f.FetchImage(context.Background(), srv.URL+"/text"); !errors.Is(err, ErrUnexpectedType) {
		t.Errorf("FetchImage(text) error = %v, want ErrUnexpectedType", err)
	}
}

func TestFetcher_FetchProfilePicture(t *testing.T) {
	f := NewFetcher(Options{})
	ctx := context.Background()

	if _, err := f.FetchProfilePicture(ctx, "1@g.us"); !errors.Is(err, ErrNoProfilePicture) {
		t.Errorf("unbound fetcher error = %v, want ErrNoProfilePicture", err)
	}

	bound := f.WithProfiles(staticProfiles{url: "https://pps.example/p.jpg"})
	url, err := bound.FetchProfilePicture(ctx, "1@g.us")
	if err != nil || url != "https://pps.example/p.jpg" {
		t.Errorf("FetchProfilePicture() = %q, %v", url, err)
	}

	empty := f.WithProfiles(staticProfiles{})
	if _, err := empty.FetchProfilePicture(ctx, "1@g.us"); !errors.Is(err, ErrNoProfilePicture) {
		t.Errorf("empty url error = %v, want ErrNoProfilePicture", err)
	}
}

func TestFetcher_FetchVideo(t *testing.T) {
	srv := newServer(t)
	f := NewFetcher(Options{MaxBytes: 1024})
	dir := t.TempDir()

	dest := ScratchPath(dir, ".mp4")
	v, err := f.FetchVideo(context.Background(), srv.URL+"/clip.mp4", dest)
	if err != nil {
		t.Fatalf("FetchVideo() error = %v", err)
	}
	if v.Mimetype != "video/mp4" || v.Path != dest || v.Size != int64(len(mp4Header)) {
		t.Errorf("FetchVideo() = %+v", v)
	}

	dest = ScratchPath(dir, ".mp4")
	if _, err := f.FetchVideo(context.Background(), srv.URL+"/text", dest); !errors.Is(err, ErrUnexpectedType) {
		t.Errorf("FetchVideo(text) error = %v, want ErrUnexpectedType", err)
	}
	if _, err := os.Stat(dest); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("rejected download left %s behind", dest)
	}
}

func TestJanitor_Sweep(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old.mp4")
	fresh := filepath.Join(dir, "fresh.mp4")
	other := filepath.Join(dir, "keep.txt")
	for _, p := range []string{old, fresh, other} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(other, past, past); err != nil {
		t.Fatal(err)
	}

	j := NewJanitor(dir, time.Hour, nil)
	removed, err := j.Sweep()
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(old); !errors.Is(err, os.ErrNotExist) {
		t.Error("old video not removed")
	}
	for _, p := range []string{fresh, other} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("%s removed: %v", p, err)
		}
	}
}

func TestJanitor_StartRejectsBadSchedule(t *testing.T) {
	j := NewJanitor(t.TempDir(), time.Hour, nil)
	if err := j.Start("not a schedule"); err == nil {
		j.Stop()
		t.Fatal("Start accepted an invalid schedule")
	}
}
