// Package input 提供鼠标点击输入与失控保护
package input

import (
	"context"
	"fmt"
	"time"

	"github.com/go-vgo/robotgo"

	"github.com/zoeyai/triggerclicker/pkg/auto"
)

// DefaultSettle 鼠标移动到位后、点击前的停顿
const DefaultSettle = 50 * time.Millisecond

// Driver 底层输入驱动，坐标均为 robotgo 输入坐标空间
type Driver interface {
	Move(x, y int)
	Click(button string, double bool)
	Location() (x, y int)
	ScreenSize() (width, height int)
}

// RobotgoDriver 基于 robotgo 的输入驱动
type RobotgoDriver struct{}

func (RobotgoDriver) Move(x, y int) {
	robotgo.Move(x, y)
}

func (RobotgoDriver) Click(button string, double bool) {
	robotgo.Click(button, double)
}

func (RobotgoDriver) Location() (int, int) {
	return robotgo.Location()
}

func (RobotgoDriver) ScreenSize() (int, int) {
	return robotgo.GetScreenSize()
}

// OutOfScreenError 目标点不在屏幕范围内
type OutOfScreenError struct {
	X, Y          int
	Width, Height int
}

func (e *OutOfScreenError) Error() string {
	return fmt.Sprintf("坐标 (%d, %d) 超出屏幕范围 %dx%d", e.X, e.Y, e.Width, e.Height)
}

// Mouse 按点击方式在指定位置发出鼠标事件
type Mouse struct {
	driver Driver
	guard  *FailSafe
	settle time.Duration
}

// NewMouse 创建鼠标，guard 为 nil 时不做失控保护
func NewMouse(guard *FailSafe) *Mouse {
	return NewMouseWithDriver(RobotgoDriver{}, guard)
}

// NewMouseWithDriver 使用指定驱动创建鼠标
func NewMouseWithDriver(driver Driver, guard *FailSafe) *Mouse {
	return &Mouse{driver: driver, guard: guard, settle: DefaultSettle}
}

// SetSettle 设置移动与点击之间的停顿
func (m *Mouse) SetSettle(d time.Duration) {
	m.settle = d
}

// ClickAt 移动到截图坐标 p 并按 action 点击。
// 失控保护触发时立即放弃本次输入并返回 ErrFailSafe。
func (m *Mouse) ClickAt(ctx context.Context, p auto.Point, action auto.ClickAction) error {
	button, double, err := buttonFor(action)
	if err != nil {
		return err
	}

	x, y := auto.NormalizePointForInput(p.X, p.Y)
	w, h := m.driver.ScreenSize()
	if x < 0 || y < 0 || x >= w || y >= h {
		return &OutOfScreenError{X: x, Y: y, Width: w, Height: h}
	}

	if err := m.check(); err != nil {
		return err
	}
	m.driver.Move(x, y)

	if err := m.wait(ctx); err != nil {
		return err
	}
	if err := m.check(); err != nil {
		return err
	}

	m.driver.Click(button, double)
	return nil
}

// MoveTo 移动鼠标到截图坐标
func (m *Mouse) MoveTo(p auto.Point) {
	x, y := auto.NormalizePointForInput(p.X, p.Y)
	m.driver.Move(x, y)
}

// Position 获取鼠标位置（截图坐标）
func (m *Mouse) Position() auto.Point {
	x, y := m.driver.Location()
	sx, sy := auto.NormalizePointForScreen(x, y)
	return auto.Point{X: sx, Y: sy}
}

func (m *Mouse) check() error {
	if m.guard == nil {
		return nil
	}
	return m.guard.Check()
}

// wait 停顿期间监听失控保护与取消
func (m *Mouse) wait(ctx context.Context) error {
	if m.settle <= 0 {
		return nil
	}

	var tripped <-chan struct{}
	if m.guard != nil {
		tripped = m.guard.Tripped()
	}

	timer := time.NewTimer(m.settle)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-tripped:
		return ErrFailSafe
	case <-ctx.Done():
		return ctx.Err()
	}
}

func buttonFor(action auto.ClickAction) (string, bool, error) {
	switch action {
	case auto.LeftClick:
		return "left", false, nil
	case auto.RightClick:
		return "right", false, nil
	case auto.DoubleClick:
		return "left", true, nil
	}
	return "", false, fmt.Errorf("未知的点击方式: %q", action)
}
