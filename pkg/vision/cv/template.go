package cv

import (
	"fmt"
	"os"

	"gocv.io/x/gocv"
)

// Template 模板图像，保留未缩放的灰度原图与当前缩放比例下的匹配图
type Template struct {
	// Filename 模板文件路径
	Filename string

	source gocv.Mat
	image  gocv.Mat
	scale  float64
}

// NewTemplate 读取模板文件并按 scale 缩放
func NewTemplate(filename string, scale float64) (*Template, error) {
	info, err := os.Stat(filename)
	if err != nil {
		return nil, fmt.Errorf("模板文件不存在: %s", filename)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("模板路径是目录: %s", filename)
	}

	source, err := ReadImageGray(filename)
	if err != nil {
		return nil, err
	}
	return &Template{
		Filename: filename,
		source:   source,
		image:    scaleTemplate(source, scale),
		scale:    scale,
	}, nil
}

// Image 当前缩放比例下的模板图，由 Template 持有
func (t *Template) Image() gocv.Mat {
	return t.image
}

// Size 匹配图的尺寸
func (t *Template) Size() Size {
	return GetResolution(t.image)
}

// SourceSize 原图尺寸
func (t *Template) SourceSize() Size {
	return GetResolution(t.source)
}

// Scale 匹配图的缩放比例
func (t *Template) Scale() float64 {
	return t.scale
}

// Rescale 从原图重新生成匹配图
func (t *Template) Rescale(scale float64) {
	if scale == t.scale {
		return
	}
	t.image.Close()
	t.image = scaleTemplate(t.source, scale)
	t.scale = scale
}

// MatchIn 在截图中查找模板的最佳位置
func (t *Template) MatchIn(screen gocv.Mat) (Match, error) {
	return MatchBest(screen, t.image)
}

// Close 释放资源
func (t *Template) Close() {
	t.image.Close()
	t.source.Close()
}

// String 返回字符串表示
func (t *Template) String() string {
	return fmt.Sprintf("Template(%s)", t.Filename)
}

func scaleTemplate(image gocv.Mat, scale float64) gocv.Mat {
	if scale <= 0 {
		return image.Clone()
	}
	return ScaleImage(image, scale)
}
