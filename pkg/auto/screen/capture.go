// Package screen 提供屏幕采样：全屏截图、灰度化并按比例缩小
package screen

import (
	"fmt"
	"image"

	"github.com/go-vgo/robotgo"
	"gocv.io/x/gocv"

	"github.com/zoeyai/triggerclicker/pkg/auto"
	"github.com/zoeyai/triggerclicker/pkg/vision/cv"
)

// Snapshot 一次采样的结果
type Snapshot struct {
	// Image 缩放后的单通道灰度图
	Image gocv.Mat
	// Scale 缩放系数
	Scale float64
	// Source 原始截图尺寸（物理像素）
	Source auto.Size
}

// Close 释放图像
func (s *Snapshot) Close() error {
	if s == nil {
		return nil
	}
	return s.Image.Close()
}

// CaptureFunc 返回一张全屏截图
type CaptureFunc func() (image.Image, error)

// Sampler 屏幕采样器，不缓存，每次调用都重新截屏
type Sampler struct {
	capture CaptureFunc
}

// NewSampler 创建使用 robotgo 截屏的采样器
func NewSampler() *Sampler {
	return &Sampler{capture: CaptureScreen}
}

// NewSamplerWithCapture 使用自定义截图来源创建采样器
func NewSamplerWithCapture(capture CaptureFunc) *Sampler {
	return &Sampler{capture: capture}
}

// Capture 截取全屏，转为灰度并缩放到 floor(w*scale) x floor(h*scale)
func (s *Sampler) Capture(scale float64) (*Snapshot, error) {
	if scale <= 0 || scale > 1 {
		return nil, fmt.Errorf("缩放系数超出范围: %v", scale)
	}

	img, err := s.capture()
	if err != nil {
		return nil, err
	}
	if img == nil {
		return nil, fmt.Errorf("截屏结果为空")
	}

	gray, err := cv.ImageToGray(img)
	if err != nil {
		return nil, err
	}
	defer gray.Close()

	b := img.Bounds()
	return &Snapshot{
		Image:  cv.ScaleImage(gray, scale),
		Scale:  scale,
		Source: auto.Size{Width: b.Dx(), Height: b.Dy()},
	}, nil
}

// CaptureScreen 截取全屏
func CaptureScreen() (image.Image, error) {
	img, err := robotgo.CaptureImg()
	if err != nil {
		return nil, fmt.Errorf("截屏失败: %w", err)
	}
	return img, nil
}

// GetScreenSize 获取屏幕尺寸（物理像素，与截图分辨率一致）
func GetScreenSize() (width, height int) {
	return auto.GetPhysicalScreenSize()
}

// GetDisplayCount 获取显示器数量
func GetDisplayCount() int {
	return robotgo.DisplaysNum()
}
