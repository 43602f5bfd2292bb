// Package engine 实现截图 → 匹配 → 点击的定时运行循环。
//
// 每个 tick：截取一次屏幕，为注册表中的每个模板启动一个 goroutine
// 进行匹配，得分达到阈值的模板在其真实屏幕中心发出点击，
// 全部完成后按剩余时间休眠到下一个 tick。
//
// 使用方式：
//
//	reg := registry.New(engine.DefaultScale)
//	eng := engine.New(reg)
//	eng.LoadFromFolder("templates")
//	eng.OnLogEvent(func(ev engine.Event) { fmt.Println(ev.Message) })
//	if err := eng.StartLoop(0.8, 0.5, 500*time.Millisecond); err != nil {
//	    // *ValidationError 或 ErrAlreadyRunning
//	}
//	eng.TogglePause()
//	eng.StopLoop()
package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"gocv.io/x/gocv"

	"github.com/zoeyai/triggerclicker/internal/logger"
	"github.com/zoeyai/triggerclicker/pkg/auto"
	"github.com/zoeyai/triggerclicker/pkg/auto/input"
	"github.com/zoeyai/triggerclicker/pkg/auto/screen"
	"github.com/zoeyai/triggerclicker/pkg/registry"
	"github.com/zoeyai/triggerclicker/pkg/vision/cv"
)

// State 运行状态
type State int32

const (
	Stopped State = iota
	Running
	Paused
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

// MarshalText 以名称形式序列化
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Sampler 截取屏幕并按比例缩放
type Sampler interface {
	Capture(scale float64) (*screen.Snapshot, error)
}

// Matcher 在截图中查找模板的最佳匹配
type Matcher interface {
	Match(image, template gocv.Mat) (cv.Match, error)
}

// MatcherFunc 函数形式的 Matcher
type MatcherFunc func(image, template gocv.Mat) (cv.Match, error)

func (f MatcherFunc) Match(image, template gocv.Mat) (cv.Match, error) {
	return f(image, template)
}

// Dispatcher 在真实屏幕坐标发出点击
type Dispatcher interface {
	ClickAt(ctx context.Context, p auto.Point, action auto.ClickAction) error
}

// Option 配置选项函数类型
type Option func(*Engine)

// WithSampler 设置截图来源
func WithSampler(s Sampler) Option {
	return func(e *Engine) { e.sampler = s }
}

// WithMatcher 设置匹配算法
func WithMatcher(m Matcher) Option {
	return func(e *Engine) { e.matcher = m }
}

// WithDispatcher 设置点击输出
func WithDispatcher(d Dispatcher) Option {
	return func(e *Engine) { e.dispatcher = d }
}

// WithFailSafe 设置失控保护，运行期间由引擎负责轮询
func WithFailSafe(f *input.FailSafe) Option {
	return func(e *Engine) { e.guard = f }
}

// WithWorkers 设置单个 tick 内的并发匹配数
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.cfg.Workers = n
		}
	}
}

// WithLogger 设置日志输出
func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// Engine 截图匹配点击引擎
type Engine struct {
	registry   *registry.Registry
	sampler    Sampler
	matcher    Matcher
	dispatcher Dispatcher
	guard      *input.FailSafe
	log        *logger.Logger

	state     atomic.Int32
	listeners listeners

	// startMu 串行化 StartLoop，mu 保护以下字段
	startMu sync.Mutex
	mu      sync.Mutex
	cfg     Config
	cancel  context.CancelFunc
	done    chan struct{}
	err     error

	ticks      atomic.Int64
	dispatches atomic.Int64
	lastTick   atomic.Int64
}

// New 创建引擎。未指定的组件使用 robotgo 截图、归一化互相关匹配与 robotgo 鼠标。
func New(reg *registry.Registry, opts ...Option) *Engine {
	e := &Engine{
		registry: reg,
		cfg:      DefaultConfig(),
		log:      logger.Default(),
	}
	e.cfg.Scale = reg.Scale()

	for _, opt := range opts {
		opt(e)
	}

	if e.sampler == nil {
		e.sampler = screen.NewSampler()
	}
	if e.matcher == nil {
		e.matcher = MatcherFunc(cv.MatchBest)
	}
	if e.dispatcher == nil {
		if e.guard == nil {
			e.guard = input.NewFailSafe(input.RobotgoDriver{})
		}
		e.dispatcher = input.NewMouse(e.guard)
	}

	reg.SetLogFunc(func(level, message string) {
		e.emit(level, KindLog, message, nil)
	})
	return e
}

// Registry 返回模板注册表
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// OnLogEvent 订阅事件，返回取消订阅函数
func (e *Engine) OnLogEvent(fn Listener) func() {
	return e.listeners.add(fn)
}

func (e *Engine) emit(level string, kind Kind, message string, fields map[string]interface{}) {
	switch level {
	case LevelDebug:
		e.log.Debug("%s", message)
	case LevelWarn:
		e.log.Warn("%s", message)
	case LevelError:
		e.log.Error("%s", message)
	default:
		e.log.Info("%s", message)
	}

	e.listeners.emit(Event{
		Time:    time.Now(),
		Level:   level,
		Kind:    kind,
		Message: message,
		Fields:  fields,
	})
}

func (e *Engine) setState(from, to State) bool {
	if !e.state.CompareAndSwap(int32(from), int32(to)) {
		return false
	}
	e.emit(LevelInfo, KindStateChanged, fmt.Sprintf("State changed: %s -> %s", from, to),
		map[string]interface{}{"from": from.String(), "to": to.String()})
	return true
}

// State 当前运行状态
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Config 最近一次启动使用的配置
func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// Err 返回导致上一次循环中止的错误（*LoopError），正常停止时为 nil
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// StartLoop 校验参数并启动运行循环
func (e *Engine) StartLoop(threshold, scale float64, interval time.Duration) error {
	e.mu.Lock()
	cfg := e.cfg
	e.mu.Unlock()
	cfg.Threshold = threshold
	cfg.Scale = scale
	cfg.Interval = interval
	return e.Start(cfg)
}

// Start 使用完整配置启动运行循环
func (e *Engine) Start(cfg Config) error {
	e.startMu.Lock()
	defer e.startMu.Unlock()

	if e.State() != Stopped {
		return ErrAlreadyRunning
	}
	if cfg.Workers == 0 {
		cfg.Workers = DefaultWorkers
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if e.registry.Len() == 0 {
		return &ValidationError{Field: "templates", Value: 0, Reason: "至少需要一个模板"}
	}

	// 等待上一轮循环的在途任务结束
	e.mu.Lock()
	prev := e.done
	e.mu.Unlock()
	if prev != nil {
		<-prev
	}

	if cfg.Scale != e.registry.Scale() {
		if err := e.registry.Rescale(cfg.Scale); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	e.mu.Lock()
	e.cfg = cfg
	e.cancel = cancel
	e.done = done
	e.err = nil
	e.mu.Unlock()

	e.ticks.Store(0)
	e.dispatches.Store(0)
	e.lastTick.Store(0)

	if e.guard != nil {
		e.guard.Reset()
		go e.guard.Run(ctx)
	}

	e.setState(Stopped, Running)
	e.emit(LevelInfo, KindLog, fmt.Sprintf("Started with confidence=%.2f scale=%.2f interval=%.2fs templates=%d",
		cfg.Threshold, cfg.Scale, cfg.Interval.Seconds(), e.registry.Len()), nil)

	go e.run(ctx, cfg, done)
	return nil
}

// StopLoop 请求停止循环。在途的匹配与点击会执行完毕，循环在 tick 边界退出。
func (e *Engine) StopLoop() {
	e.mu.Lock()
	cancel := e.cancel
	e.cancel = nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	for _, s := range []State{Running, Paused} {
		if e.setState(s, Stopped) {
			return
		}
	}
}

// Wait 阻塞直到当前循环退出
func (e *Engine) Wait() {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	if done != nil {
		<-done
	}
}

// TogglePause 在运行与暂停之间切换，返回切换后是否处于暂停。
// 已停止时不做任何事并返回 false。
func (e *Engine) TogglePause() bool {
	if e.setState(Running, Paused) {
		return true
	}
	if e.setState(Paused, Running) {
		if e.guard != nil {
			e.guard.Reset()
		}
		return false
	}
	return false
}

// LoadFromFolder 从文件夹重新加载模板
func (e *Engine) LoadFromFolder(dir string) int {
	return e.registry.LoadFromFolder(dir)
}

// AddTemplate 添加模板
func (e *Engine) AddTemplate(path string, action auto.ClickAction) bool {
	return e.registry.AddTemplate(path, action)
}

// RemoveTemplate 移除模板
func (e *Engine) RemoveTemplate(path string) bool {
	return e.registry.RemoveTemplate(path)
}

// UpdateAction 修改模板点击方式
func (e *Engine) UpdateAction(path string, action auto.ClickAction) bool {
	return e.registry.UpdateAction(path, action)
}

// Close 停止循环并释放模板
func (e *Engine) Close() error {
	e.StopLoop()
	e.Wait()
	return e.registry.Close()
}
