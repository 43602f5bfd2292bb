package engine

import (
	"math"
	"time"
)

// 默认配置
const (
	DefaultThreshold = 0.8
	DefaultScale     = 0.5
	DefaultInterval  = 500 * time.Millisecond
	DefaultWorkers   = 4
)

// 启动参数的取值范围
const (
	MinScale    = 0.1
	MaxScale    = 1.0
	MinInterval = 100 * time.Millisecond
	MaxInterval = 2 * time.Second
)

// PausePollInterval 暂停状态下检查状态的间隔
const PausePollInterval = 100 * time.Millisecond

// Config 运行循环配置
type Config struct {
	// Threshold 匹配阈值，得分 >= Threshold 即视为命中
	Threshold float64 `json:"confidence_threshold"`
	// Scale 截图与模板的缩放系数
	Scale float64 `json:"scale_factor"`
	// Interval 两次 tick 开始之间的目标间隔
	Interval time.Duration `json:"interval"`
	// Workers 单个 tick 内同时匹配的模板数上限
	Workers int `json:"workers"`
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		Threshold: DefaultThreshold,
		Scale:     DefaultScale,
		Interval:  DefaultInterval,
		Workers:   DefaultWorkers,
	}
}

// Validate 校验启动参数
func (c Config) Validate() error {
	if math.IsNaN(c.Threshold) || c.Threshold < 0 || c.Threshold > 1 {
		return &ValidationError{Field: "confidence_threshold", Value: c.Threshold, Reason: "取值范围为 [0, 1]"}
	}
	if math.IsNaN(c.Scale) || c.Scale < MinScale || c.Scale > MaxScale {
		return &ValidationError{Field: "scale_factor", Value: c.Scale, Reason: "取值范围为 [0.1, 1.0]"}
	}
	if c.Interval < MinInterval || c.Interval > MaxInterval {
		return &ValidationError{Field: "interval", Value: c.Interval.Seconds(), Reason: "取值范围为 [0.1, 2.0] 秒"}
	}
	if c.Workers < 0 {
		return &ValidationError{Field: "workers", Value: c.Workers, Reason: "不能为负数"}
	}
	return nil
}

// sleepFor 一个 tick 结束后需要等待的时间，超时的 tick 不再等待
func sleepFor(interval, elapsed time.Duration) time.Duration {
	if elapsed >= interval {
		return 0
	}
	return interval - elapsed
}
