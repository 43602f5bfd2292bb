package engine

import "time"

// Status 引擎状态快照
type Status struct {
	State      State         `json:"state"`
	Templates  int           `json:"templates"`
	Config     Config        `json:"config"`
	Ticks      int64         `json:"ticks"`
	Dispatches int64         `json:"dispatches"`
	LastTick   time.Duration `json:"last_tick"`
	Error      string        `json:"error,omitempty"`
}

// Status 返回当前状态
func (e *Engine) Status() Status {
	st := Status{
		State:      e.State(),
		Templates:  e.registry.Len(),
		Config:     e.Config(),
		Ticks:      e.ticks.Load(),
		Dispatches: e.dispatches.Load(),
		LastTick:   time.Duration(e.lastTick.Load()),
	}
	if err := e.Err(); err != nil {
		st.Error = err.Error()
	}
	return st
}
