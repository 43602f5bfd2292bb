package cv

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/freetype"
	"gocv.io/x/gocv"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// noiseImage 生成确定性的随机灰度图，保证任意子区域都唯一
func noiseImage(w, h int, seed int64) *image.Gray {
	r := rand.New(rand.NewSource(seed))
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(r.Intn(256))
	}
	return img
}

// cropGray 复制出子区域（坐标从 0 开始）
func cropGray(src *image.Gray, rect image.Rectangle) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(dst, dst.Bounds(), src, rect.Min, draw.Src)
	return dst
}

// drawLabel 在图像上用 Go 字体绘制文字，模拟按钮
func drawLabel(t *testing.T, dst *image.Gray, text string, x, y int, size float64) {
	t.Helper()
	f, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		t.Fatalf("解析字体失败: %v", err)
	}
	c := freetype.NewContext()
	c.SetDPI(72)
	c.SetFont(f)
	c.SetFontSize(size)
	c.SetClip(dst.Bounds())
	c.SetDst(dst)
	c.SetSrc(image.NewUniform(color.Gray{Y: 0}))
	c.SetHinting(font.HintingFull)
	pt := freetype.Pt(x, y+int(c.PointToFixed(size)>>6))
	if _, err := c.DrawString(text, pt); err != nil {
		t.Fatalf("绘制文字失败: %v", err)
	}
}

func toMat(t *testing.T, img *image.Gray) gocv.Mat {
	t.Helper()
	mat, err := gocv.ImageGrayToMatGray(img)
	if err != nil {
		t.Skipf("跳过测试：gocv 不可用: %v", err)
	}
	return mat
}

func TestMatchBestFindsExactLocation(t *testing.T) {
	screen := noiseImage(200, 150, 1)
	want := image.Pt(60, 45)
	tmpl := cropGray(screen, image.Rect(want.X, want.Y, want.X+32, want.Y+24))

	src := toMat(t, screen)
	defer src.Close()
	search := toMat(t, tmpl)
	defer search.Close()

	m, err := MatchBest(src, search)
	if err != nil {
		t.Fatalf("MatchBest 失败: %v", err)
	}
	if m.Location.X != want.X || m.Location.Y != want.Y {
		t.Errorf("位置不正确: 期望 (%d, %d), 实际 (%d, %d)", want.X, want.Y, m.Location.X, m.Location.Y)
	}
	if m.Confidence < 0.99 {
		t.Errorf("精确子图的置信度应接近 1, 实际 %.4f", m.Confidence)
	}
}

func TestMatchBestRenderedButton(t *testing.T) {
	screen := image.NewGray(image.Rect(0, 0, 320, 200))
	draw.Draw(screen, screen.Bounds(), image.NewUniform(color.Gray{Y: 230}), image.Point{}, draw.Src)
	drawLabel(t, screen, "Cancel", 20, 20, 20)
	drawLabel(t, screen, "Accept", 180, 120, 20)

	// 模板从独立画布上渲染，与屏幕上的 "Accept" 像素一致
	canvas := image.NewGray(image.Rect(0, 0, 320, 200))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.Gray{Y: 230}), image.Point{}, draw.Src)
	drawLabel(t, canvas, "Accept", 180, 120, 20)
	tmpl := cropGray(canvas, image.Rect(176, 116, 256, 148))

	src := toMat(t, screen)
	defer src.Close()
	search := toMat(t, tmpl)
	defer search.Close()

	m, err := MatchBest(src, search)
	if err != nil {
		t.Fatalf("MatchBest 失败: %v", err)
	}
	if m.Location.X != 176 || m.Location.Y != 116 {
		t.Errorf("应匹配到 Accept 按钮: 实际 (%d, %d) 置信度 %.3f", m.Location.X, m.Location.Y, m.Confidence)
	}
	if !Accept(m.Confidence, 0.95) {
		t.Errorf("按钮置信度过低: %.3f", m.Confidence)
	}
}

func TestMatchBestTemplateLargerThanSource(t *testing.T) {
	src := toMat(t, noiseImage(40, 40, 2))
	defer src.Close()
	search := toMat(t, noiseImage(50, 30, 3))
	defer search.Close()

	_, err := MatchBest(src, search)
	if err == nil {
		t.Fatal("模板大于源图时应返回错误")
	}
	if !IsSizeError(err) {
		t.Errorf("错误类型应为 *ImageSizeError, 实际 %T", err)
	}
}

func TestMatchBestEmptyImage(t *testing.T) {
	src := toMat(t, noiseImage(40, 40, 4))
	defer src.Close()
	empty := gocv.NewMat()
	defer empty.Close()

	if _, err := MatchBest(src, empty); err == nil {
		t.Error("空模板应返回错误")
	}
}

func TestAcceptIsInclusiveAndMonotonic(t *testing.T) {
	if !Accept(0.8, 0.8) {
		t.Error("score == threshold 应判定为匹配")
	}
	if Accept(0.79, 0.8) {
		t.Error("score < threshold 不应匹配")
	}
	score := 0.87
	for th := 0.87; th >= 0; th -= 0.01 {
		if !Accept(score, th) {
			t.Errorf("得分 %.2f 在阈值 %.2f 下应匹配", score, th)
		}
	}
}

func TestSanitizeScore(t *testing.T) {
	if sanitizeScore(math.NaN()) != 0 {
		t.Error("NaN 应视为 0")
	}
	if sanitizeScore(math.Inf(1)) != 0 {
		t.Error("Inf 应视为 0")
	}
	if sanitizeScore(0.5) != 0.5 {
		t.Error("正常得分不应改变")
	}
}

func TestScaledSizeFloors(t *testing.T) {
	cases := []struct {
		w, h  int
		scale float64
		want  Size
	}{
		{100, 50, 0.5, Size{50, 25}},
		{101, 51, 0.5, Size{50, 25}},
		{99, 33, 0.3, Size{29, 9}},
		{10, 10, 1.0, Size{10, 10}},
		{3, 3, 0.1, Size{1, 1}},
	}
	for _, c := range cases {
		if got := ScaledSize(c.w, c.h, c.scale); got != c.want {
			t.Errorf("ScaledSize(%d, %d, %.2f) 期望 %+v, 实际 %+v", c.w, c.h, c.scale, c.want, got)
		}
	}
}

func TestScaleImage(t *testing.T) {
	src := toMat(t, noiseImage(101, 67, 5))
	defer src.Close()

	scaled := ScaleImage(src, 0.5)
	defer scaled.Close()

	if got := GetResolution(scaled); got != (Size{Width: 50, Height: 33}) {
		t.Errorf("缩放后尺寸不正确: %+v", got)
	}
}

func TestImageToGray(t *testing.T) {
	rgba := image.NewRGBA(image.Rect(0, 0, 8, 4))
	draw.Draw(rgba, rgba.Bounds(), image.NewUniform(color.RGBA{R: 255, A: 255}), image.Point{}, draw.Src)

	gray, err := ImageToGray(rgba)
	if err != nil {
		t.Skipf("跳过测试：gocv 不可用: %v", err)
	}
	defer gray.Close()

	if gray.Channels() != 1 {
		t.Fatalf("灰度图应为单通道, 实际 %d", gray.Channels())
	}
	// 纯红 → 0.299*255 ≈ 76
	if v := gray.GetUCharAt(0, 0); v < 70 || v > 82 {
		t.Errorf("纯红灰度值应约为 76, 实际 %d", v)
	}
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("创建文件失败: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("写入 PNG 失败: %v", err)
	}
}

// TestTemplateRescale 匹配图尺寸按缩放比例向下取整，重新缩放基于原图
func TestTemplateRescale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "button.png")
	writePNG(t, path, noiseImage(101, 51, 7))

	tmpl, err := NewTemplate(path, 0.5)
	if err != nil {
		t.Skipf("跳过测试：无法读取模板: %v", err)
	}
	defer tmpl.Close()

	if got := tmpl.Size(); got != (Size{Width: 50, Height: 25}) {
		t.Errorf("缩放后尺寸期望 50x25, 实际 %v", got)
	}
	if got := tmpl.SourceSize(); got != (Size{Width: 101, Height: 51}) {
		t.Errorf("原图尺寸期望 101x51, 实际 %v", got)
	}

	tmpl.Rescale(0.25)
	if got := tmpl.Size(); got != (Size{Width: 25, Height: 12}) {
		t.Errorf("重新缩放后尺寸期望 25x12, 实际 %v", got)
	}
	if tmpl.Scale() != 0.25 {
		t.Errorf("缩放比例未更新: %v", tmpl.Scale())
	}
}

func TestNewTemplateMissingFile(t *testing.T) {
	if _, err := NewTemplate(filepath.Join(t.TempDir(), "missing.png"), 0.5); err == nil {
		t.Error("不存在的文件应返回错误")
	}
	if _, err := NewTemplate(t.TempDir(), 0.5); err == nil {
		t.Error("目录应返回错误")
	}
}

// TestTemplateMatchIn 模板与截图同比例缩放后仍能定位
func TestTemplateMatchIn(t *testing.T) {
	scene := noiseImage(200, 160, 11)
	dir := t.TempDir()
	path := filepath.Join(dir, "patch.png")
	writePNG(t, path, cropGray(scene, image.Rect(60, 40, 100, 80)))

	tmpl, err := NewTemplate(path, 1)
	if err != nil {
		t.Skipf("跳过测试：无法读取模板: %v", err)
	}
	defer tmpl.Close()

	screen := toMat(t, scene)
	defer screen.Close()

	m, err := tmpl.MatchIn(screen)
	if err != nil {
		t.Fatalf("匹配失败: %v", err)
	}
	if m.Location != (Point{X: 60, Y: 40}) || m.Confidence < 0.99 {
		t.Errorf("匹配结果不正确: %+v", m)
	}
}
