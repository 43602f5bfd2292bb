// Package auto 提供屏幕自动化的共享类型和工具函数。
// 具体功能分布在子包中：screen（截图采样）, input（鼠标输入与失控保护）。
package auto

import (
	"math"
	"time"

	"github.com/go-vgo/robotgo"
)

// Point 屏幕坐标
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Size 尺寸
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// TrueCenter 将缩放截图中的匹配左上角还原为真实屏幕上的模板中心点。
// size 为缩放后模板图的尺寸（与匹配时使用的图像一致）；scale 为截图缩放系数。
func TrueCenter(loc Point, size Size, scale float64) Point {
	if scale <= 0 {
		scale = 1
	}
	return Point{
		X: int(float64(loc.X)/scale) + size.Width/2,
		Y: int(float64(loc.Y)/scale) + size.Height/2,
	}
}

// Sleep 休眠
func Sleep(d time.Duration) {
	time.Sleep(d)
}

// MilliSleep 毫秒休眠
func MilliSleep(ms int) {
	robotgo.MilliSleep(ms)
}

// ScaleInt 缩放整数值
func ScaleInt(value int, factor float64) int {
	if factor <= 0 {
		return value
	}
	return int(math.Round(float64(value) * factor))
}
