package screen

import (
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"
)

func gradientImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x % 256), uint8(y % 256), 128, 255})
		}
	}
	return img
}

// TestCaptureScalesAndFloors 缩放尺寸向下取整
func TestCaptureScalesAndFloors(t *testing.T) {
	s := NewSamplerWithCapture(func() (image.Image, error) {
		return gradientImage(201, 99), nil
	})

	snap, err := s.Capture(0.5)
	if err != nil {
		t.Fatalf("采样失败: %v", err)
	}
	defer snap.Close()

	if snap.Image.Cols() != 100 || snap.Image.Rows() != 49 {
		t.Errorf("期望 100x49, 实际 %dx%d", snap.Image.Cols(), snap.Image.Rows())
	}
	if snap.Image.Channels() != 1 {
		t.Errorf("采样结果应为灰度图, 通道数 %d", snap.Image.Channels())
	}
	if snap.Source.Width != 201 || snap.Source.Height != 99 {
		t.Errorf("原始尺寸不正确: %+v", snap.Source)
	}
}

// TestCaptureNoCache 每次采样都调用截图
func TestCaptureNoCache(t *testing.T) {
	calls := 0
	s := NewSamplerWithCapture(func() (image.Image, error) {
		calls++
		return gradientImage(40, 30), nil
	})

	for i := 0; i < 3; i++ {
		snap, err := s.Capture(1)
		if err != nil {
			t.Fatalf("采样失败: %v", err)
		}
		snap.Close()
	}
	if calls != 3 {
		t.Errorf("期望截图 3 次, 实际 %d", calls)
	}
}

func TestCaptureErrors(t *testing.T) {
	boom := errors.New("boom")
	s := NewSamplerWithCapture(func() (image.Image, error) { return nil, boom })
	if _, err := s.Capture(0.5); !errors.Is(err, boom) {
		t.Errorf("应返回截图错误, 实际 %v", err)
	}

	if _, err := s.Capture(0); err == nil {
		t.Error("scale=0 应返回错误")
	}
	if _, err := s.Capture(1.5); err == nil {
		t.Error("scale>1 应返回错误")
	}
}

func TestSnapshotBase64(t *testing.T) {
	s := NewSamplerWithCapture(func() (image.Image, error) {
		return gradientImage(64, 48), nil
	})
	snap, err := s.Capture(0.5)
	if err != nil {
		t.Fatalf("采样失败: %v", err)
	}
	defer snap.Close()

	data, err := snap.Base64(70)
	if err != nil {
		t.Fatalf("编码失败: %v", err)
	}
	if !strings.HasPrefix(data, "data:image/jpeg;base64,") {
		t.Errorf("data URL 前缀不正确: %.40s", data)
	}
}
