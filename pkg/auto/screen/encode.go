package screen

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"gocv.io/x/gocv"
)

// ImageToBase64 将图像转换为 Base64 字符串
// format: "png" 或 "jpeg"，默认 "jpeg"（更小的体积）
// quality: JPEG 质量 1-100，默认 80
func ImageToBase64(img image.Image, format string, quality int) (string, error) {
	if img == nil {
		return "", fmt.Errorf("图像为空")
	}

	var buf bytes.Buffer
	var mimeType string

	if format == "" {
		format = "jpeg"
	}
	if quality <= 0 || quality > 100 {
		quality = 80
	}

	switch format {
	case "png":
		err := png.Encode(&buf, img)
		if err != nil {
			return "", fmt.Errorf("PNG 编码失败: %w", err)
		}
		mimeType = "image/png"
	case "jpeg", "jpg":
		err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality})
		if err != nil {
			return "", fmt.Errorf("JPEG 编码失败: %w", err)
		}
		mimeType = "image/jpeg"
	default:
		return "", fmt.Errorf("不支持的图像格式: %s", format)
	}

	base64Str := base64.StdEncoding.EncodeToString(buf.Bytes())
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64Str), nil
}

// MatToBase64 将 Mat 编码为 Base64 data URL
func MatToBase64(mat gocv.Mat, format string, quality int) (string, error) {
	if mat.Empty() {
		return "", fmt.Errorf("图像为空")
	}
	img, err := mat.ToImage()
	if err != nil {
		return "", fmt.Errorf("Mat 转换失败: %w", err)
	}
	return ImageToBase64(img, format, quality)
}

// Base64 将采样图像编码为 JPEG data URL，供外部界面预览
func (s *Snapshot) Base64(quality int) (string, error) {
	return MatToBase64(s.Image, "jpeg", quality)
}

// Preview 截取一次屏幕并编码为 JPEG data URL
func (s *Sampler) Preview(scale float64, quality int) (string, error) {
	snap, err := s.Capture(scale)
	if err != nil {
		return "", err
	}
	defer snap.Close()
	return snap.Base64(quality)
}
