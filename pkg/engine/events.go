package engine

import (
	"sync"
	"time"
)

// Kind 事件类型
type Kind string

const (
	KindLog          Kind = "log"
	KindStateChanged Kind = "state_changed"
	KindMatch        Kind = "match"
	KindDispatch     Kind = "dispatch"
	KindLoopAborted  Kind = "loop_aborted"
	KindFailSafe     Kind = "fail_safe"
)

// 事件级别，与 internal/logger 的级别名称一致
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// Event 日志事件
type Event struct {
	Time    time.Time              `json:"time"`
	Level   string                 `json:"level"`
	Kind    Kind                   `json:"kind"`
	Message string                 `json:"message"`
	Fields  map[string]interface{} `json:"fields,omitempty"`
}

// Listener 事件回调。回调在产生事件的 goroutine 中同步执行，
// 不应阻塞，也不应在回调中调用 StartLoop。
type Listener func(Event)

type listeners struct {
	mu   sync.RWMutex
	next int
	fns  map[int]Listener
}

func (l *listeners) add(fn Listener) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fns == nil {
		l.fns = make(map[int]Listener)
	}
	id := l.next
	l.next++
	l.fns[id] = fn

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.fns, id)
	}
}

func (l *listeners) emit(ev Event) {
	l.mu.RLock()
	fns := make([]Listener, 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}
