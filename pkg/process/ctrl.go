package process

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

const (
	exitTimeout = 5 * time.Second
)

type CmdCtxKey string

const (
	RootWgKey CmdCtxKey = "__root_wg_key__"
)

// GetRootWaitGroup returns the wait group background work registers with
// so the process can drain it before exiting.
func GetRootWaitGroup(ctx context.Context) *sync.WaitGroup {
	v := ctx.Value(RootWgKey)
	if wg, ok := v.(*sync.WaitGroup); ok {
		return wg
	}

	return nil
}

// GetRootContext returns a context cancelled on SIGINT/SIGTERM, its cancel
// func and a wait func that blocks until registered work finishes or the
// exit timeout passes.
func GetRootContext() (context.Context, context.CancelFunc, func()) {
	rootWg := &sync.WaitGroup{}
	rootCtx, rootCancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	rootCtx = context.WithValue(rootCtx, RootWgKey, rootWg)

	waitFn := func() {
		waitWithTimeout(rootWg, exitTimeout)
	}

	return rootCtx, rootCancel, waitFn
}

func waitWithTimeout(wg *sync.WaitGroup, timeout time.Duration) bool {
	exitCtx, exitCancel := context.WithTimeout(context.Background(), timeout)
	defer exitCancel()

	waitDone := make(chan struct{})
	go func() {
		if wg != nil {
			wg.Wait()
		}
		close(waitDone)
	}()

	select {
	case <-exitCtx.Done():
		return false
	case <-waitDone:
		return true
	}
}
