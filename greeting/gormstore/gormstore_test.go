package gormstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ryanreadbooks/primon/greeting"
	"github.com/ryanreadbooks/primon/greeting/storetest"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "primon.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) greeting.Store { return openTestStore(t) })
}

func TestStore_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "primon.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	tpl := &greeting.Template{Scope: "1@g.us", Type: greeting.TypeGoodbye, Kind: greeting.KindVideo, Media: []byte("mp4"), Mimetype: "video/mp4", Content: "bye"}
	if err := s.Upsert(ctx, tpl); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	got, err := s.Get(ctx, "1@g.us", greeting.TypeGoodbye)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Kind != greeting.KindVideo || string(got.Media) != "mp4" || got.Content != "bye" || got.UpdatedAt.IsZero() {
		t.Errorf("Get() = %+v", got)
	}
}
