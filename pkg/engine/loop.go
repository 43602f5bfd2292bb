package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zoeyai/triggerclicker/pkg/auto"
	"github.com/zoeyai/triggerclicker/pkg/auto/input"
	"github.com/zoeyai/triggerclicker/pkg/auto/screen"
	"github.com/zoeyai/triggerclicker/pkg/registry"
	"github.com/zoeyai/triggerclicker/pkg/vision/cv"
)

// maxCaptureFailures 连续截图失败达到该次数后中止循环
const maxCaptureFailures = 3

func (e *Engine) run(ctx context.Context, cfg Config, done chan struct{}) {
	defer close(done)

	captureFailures := 0
	for {
		if ctx.Err() != nil {
			return
		}

		if e.State() == Paused {
			if !sleepCtx(ctx, PausePollInterval) {
				return
			}
			continue
		}

		start := time.Now()
		err := e.tick(ctx, cfg)
		elapsed := time.Since(start)
		e.ticks.Add(1)
		e.lastTick.Store(int64(elapsed))

		var capErr *captureError
		switch {
		case err == nil:
			captureFailures = 0
		case errors.Is(err, context.Canceled):
			return
		case errors.Is(err, input.ErrFailSafe):
			e.setState(Running, Paused)
			e.emit(LevelWarn, KindFailSafe, "Fail-safe triggered, input aborted",
				map[string]interface{}{"state": e.State().String()})
			continue
		case errors.As(err, &capErr):
			captureFailures++
			e.emit(LevelWarn, KindLog, fmt.Sprintf("Screen capture failed (%d/%d): %v",
				captureFailures, maxCaptureFailures, capErr.err), nil)
			if captureFailures >= maxCaptureFailures {
				e.abort(CodeCaptureFailed, capErr.err)
				return
			}
		default:
			e.abort(CodeDispatchFailed, err)
			return
		}

		if !sleepCtx(ctx, sleepFor(cfg.Interval, elapsed)) {
			return
		}
	}
}

// abort 以错误结束循环
func (e *Engine) abort(code string, err error) {
	loopErr := &LoopError{Code: code, Err: err}

	e.mu.Lock()
	e.err = loopErr
	cancel := e.cancel
	e.cancel = nil
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	e.emit(LevelError, KindLoopAborted, loopErr.Error(), map[string]interface{}{
		"code":  code,
		"error": err.Error(),
	})
	for _, s := range []State{Running, Paused} {
		if e.setState(s, Stopped) {
			return
		}
	}
}

type captureError struct {
	err error
}

func (c *captureError) Error() string { return c.err.Error() }

func (c *captureError) Unwrap() error { return c.err }

// tick 截图一次，并为每个模板启动一个 goroutine 完成匹配与点击。
// 停止只在 tick 边界生效：已开始的点击不受 ctx 取消影响，只有失控保护能打断。
func (e *Engine) tick(ctx context.Context, cfg Config) error {
	snap, err := e.sampler.Capture(cfg.Scale)
	if err != nil {
		return &captureError{err: err}
	}
	defer snap.Close()

	items := e.registry.Snapshot()
	defer items.Close()

	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	sem := make(chan struct{}, workers)
	taskCtx := context.WithoutCancel(ctx)

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	for i := range items {
		item := &items[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := e.process(taskCtx, snap, item, cfg.Threshold); err != nil {
				errOnce.Do(func() { firstErr = err })
			}
		}()
	}
	wg.Wait()
	return firstErr
}

// process 匹配单个模板，命中时在真实屏幕中心点击
func (e *Engine) process(ctx context.Context, snap *screen.Snapshot, item *registry.Item, threshold float64) error {
	m, err := e.matcher.Match(snap.Image, item.Image)
	if err != nil {
		if cv.IsSizeError(err) {
			e.emit(LevelDebug, KindLog, fmt.Sprintf("Template %s is larger than the screen, skipped", item.Name), nil)
		} else {
			e.emit(LevelWarn, KindLog, fmt.Sprintf("Match failed for %s: %v", item.Name, err), nil)
		}
		return nil
	}

	if !cv.Accept(m.Confidence, threshold) {
		e.emit(LevelDebug, KindLog, fmt.Sprintf("No match for %s: confidence=%.2f", item.Name, m.Confidence), nil)
		return nil
	}

	e.emit(LevelInfo, KindMatch, fmt.Sprintf("Match found for %s: confidence=%.2f", item.Name, m.Confidence),
		map[string]interface{}{
			"template":   item.Name,
			"confidence": m.Confidence,
		})

	p := auto.TrueCenter(auto.Point{X: m.Location.X, Y: m.Location.Y}, item.Size, snap.Scale)
	if err := e.dispatcher.ClickAt(ctx, p, item.Action); err != nil {
		return fmt.Errorf("%s on %s at (%d, %d): %w", item.Action, item.Name, p.X, p.Y, err)
	}
	e.dispatches.Add(1)

	e.emit(LevelInfo, KindDispatch, fmt.Sprintf("%s on %s at (%d, %d)", item.Action, item.Name, p.X, p.Y),
		map[string]interface{}{
			"action":   item.Action.String(),
			"template": item.Name,
			"x":        p.X,
			"y":        p.Y,
		})
	return nil
}

// sleepCtx 休眠 d，ctx 取消时提前返回 false
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
