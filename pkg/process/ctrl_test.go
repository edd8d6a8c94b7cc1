package process

import (
	"sync"
	"testing"
	"time"
)

func TestRootWaitGroup(t *testing.T) {
	ctx, cancel, wait := GetRootContext()
	defer cancel()

	wg := GetRootWaitGroup(ctx)
	if wg == nil {
		t.Fatalf("root wait group missing")
	}

	wg.Add(1)
	go func() {
		time.Sleep(10 * time.Millisecond)
		wg.Done()
	}()
	wait()
}

func TestWaitWithTimeoutExpires(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)
	defer wg.Done()

	if waitWithTimeout(&wg, 20*time.Millisecond) {
		t.Fatalf("wait should time out while work is pending")
	}
}
