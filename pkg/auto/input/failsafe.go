package input

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrFailSafe 鼠标被移到屏幕角落，中止合成输入
var ErrFailSafe = errors.New("失控保护触发: 鼠标位于屏幕角落")

// DefaultPollInterval 失控保护轮询间隔
const DefaultPollInterval = 20 * time.Millisecond

// FailSafe 监视鼠标位置，鼠标进入任一屏幕角落时触发。
// 触发后 Tripped() 返回的通道被关闭，直到 Reset。
type FailSafe struct {
	driver   Driver
	interval time.Duration
	margin   int

	mu      sync.Mutex
	tripped chan struct{}
	fired   bool
	onTrip  func()
}

// NewFailSafe 创建失控保护
func NewFailSafe(driver Driver) *FailSafe {
	return &FailSafe{
		driver:   driver,
		interval: DefaultPollInterval,
		tripped:  make(chan struct{}),
	}
}

// SetMargin 设置角落判定的容差像素，默认 0 表示必须位于角落像素上
func (f *FailSafe) SetMargin(px int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.margin = max(0, px)
}

// SetInterval 设置轮询间隔，运行中修改在下一次 Run 时生效
func (f *FailSafe) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.interval = d
}

// Interval 当前轮询间隔
func (f *FailSafe) Interval() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.interval
}

// OnTrip 设置触发回调（每次触发调用一次）
func (f *FailSafe) OnTrip(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onTrip = fn
}

// Run 轮询鼠标位置直到 ctx 取消
func (f *FailSafe) Run(ctx context.Context) {
	ticker := time.NewTicker(f.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.poll()
		}
	}
}

// Check 立即检查一次鼠标位置，已触发或位于角落时返回 ErrFailSafe
func (f *FailSafe) Check() error {
	if f.poll() {
		return ErrFailSafe
	}
	return nil
}

// Tripped 返回触发通道
func (f *FailSafe) Tripped() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tripped
}

// IsTripped 是否处于触发状态
func (f *FailSafe) IsTripped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fired
}

// Reset 解除触发状态
func (f *FailSafe) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fired {
		f.tripped = make(chan struct{})
		f.fired = false
	}
}

// poll 检查鼠标位置，返回当前是否处于触发状态
func (f *FailSafe) poll() bool {
	x, y := f.driver.Location()
	w, h := f.driver.ScreenSize()

	f.mu.Lock()
	if f.fired {
		f.mu.Unlock()
		return true
	}
	if !inCorner(x, y, w, h, f.margin) {
		f.mu.Unlock()
		return false
	}
	f.fired = true
	close(f.tripped)
	fn := f.onTrip
	f.mu.Unlock()

	if fn != nil {
		fn()
	}
	return true
}

func inCorner(x, y, w, h, margin int) bool {
	if w <= 0 || h <= 0 {
		return false
	}
	nearLeft := x <= margin
	nearRight := x >= w-1-margin
	nearTop := y <= margin
	nearBottom := y >= h-1-margin
	return (nearLeft || nearRight) && (nearTop || nearBottom)
}
