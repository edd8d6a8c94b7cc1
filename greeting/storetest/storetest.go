// Package storetest checks greeting.Store implementations.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ryanreadbooks/primon/greeting"
)

// Run checks the Store contract against stores created by newStore.
func Run(t *testing.T, newStore func(t *testing.T) greeting.Store) {
	t.Run("ReadYourWrite", func(t *testing.T) { readYourWrite(t, newStore(t)) })
	t.Run("ConcurrentUpsert", func(t *testing.T) { concurrentUpsert(t, newStore(t)) })
}

func readYourWrite(t *testing.T, s greeting.Store) {
	ctx := context.Background()

	if _, err := s.Get(ctx, "1@g.us", greeting.TypeWelcome); !errors.Is(err, greeting.ErrNotFound) {
		t.Fatalf("Get() on empty store error = %v, want ErrNotFound", err)
	}

	tpl := &greeting.Template{Scope: "1@g.us", Type: greeting.TypeWelcome, Content: "hello"}
	if err := s.Upsert(ctx, tpl); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	got, err := s.Get(ctx, "1@g.us", greeting.TypeWelcome)
	if err != nil || got.Content != "hello" || got.Kind != greeting.KindText {
		t.Fatalf("Get() = %+v, %v", got, err)
	}

	if err := s.Upsert(ctx, &greeting.Template{Scope: "1@g.us", Type: greeting.TypeWelcome, Kind: greeting.KindImage, Media: []byte{1, 2}, Mimetype: "image/png", Content: "again"}); err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}
	got, err = s.Get(ctx, "1@g.us", greeting.TypeWelcome)
	if err != nil || got.Content != "again" || got.Kind != greeting.KindImage || len(got.Media) != 2 {
		t.Fatalf("Get() after replace = %+v, %v", got, err)
	}

	if _, err := s.Get(ctx, "1@g.us", greeting.TypeGoodbye); !errors.Is(err, greeting.ErrNotFound) {
		t.Errorf("goodbye leaked from welcome: %v", err)
	}
	if _, err := s.Get(ctx, "2@g.us", greeting.TypeWelcome); !errors.Is(err, greeting.ErrNotFound) {
		t.Errorf("template leaked across chats: %v", err)
	}

	if err := s.Delete(ctx, "1@g.us", greeting.TypeWelcome); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Get(ctx, "1@g.us", greeting.TypeWelcome); !errors.Is(err, greeting.ErrNotFound) {
		t.Errorf("Get() after Delete error = %v", err)
	}
	if err := s.Delete(ctx, "1@g.us", greeting.TypeWelcome); err != nil {
		t.Errorf("Delete() of absent template error = %v", err)
	}

	global := &greeting.Template{Scope: greeting.GlobalScope, Type: greeting.TypeAlive, Content: "alive"}
	if err := s.Upsert(ctx, global); err != nil {
		t.Fatalf("Upsert(global) error = %v", err)
	}
	if got, err := s.Get(ctx, greeting.GlobalScope, greeting.TypeAlive); err != nil || got.Content != "alive" {
		t.Errorf("Get(global) = %+v, %v", got, err)
	}
}

// concurrentUpsert checks that racing writers leave exactly one of their
// templates behind.
func concurrentUpsert(t *testing.T, s greeting.Store) {
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tpl := &greeting.Template{Scope: "9@g.us", Type: greeting.TypeGoodbye, Content: fmt.Sprintf("v%d", i)}
			if err := s.Upsert(ctx, tpl); err != nil {
				t.Errorf("Upsert() error = %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := s.Get(ctx, "9@g.us", greeting.TypeGoodbye)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got.Content) < 2 || got.Content[0] != 'v' {
		t.Errorf("Get() = %+v", got)
	}
}
