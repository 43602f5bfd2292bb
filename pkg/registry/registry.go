// Package registry 维护模板注册表：按路径索引、保持插入顺序的有序集合。
//
// 每个模板保存未缩放的灰度原图和按当前缩放系数缩小后的匹配图。
// 运行循环每个 tick 通过 Snapshot 取得一份独立副本，
// 因此注册表的增删改不会影响正在进行的匹配。
package registry

import (
	"container/list"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gocv.io/x/gocv"

	"github.com/zoeyai/triggerclicker/internal/logger"
	"github.com/zoeyai/triggerclicker/pkg/auto"
	"github.com/zoeyai/triggerclicker/pkg/vision/cv"
)

// SupportedExtensions 文件夹加载时识别的图片扩展名（不区分大小写）
var SupportedExtensions = []string{".png", ".jpg", ".jpeg", ".bmp"}

// LogFunc 日志函数类型
type LogFunc func(level, message string)

// Entry 持久化用的模板条目
type Entry struct {
	Path   string           `json:"path" yaml:"path"`
	Action auto.ClickAction `json:"click_action" yaml:"click_action"`
}

// template 注册表内部持有的模板：图像加点击方式
type template struct {
	*cv.Template
	action auto.ClickAction
}

// Item 快照中的模板副本，Image 由快照持有
type Item struct {
	Path   string
	Name   string
	Action auto.ClickAction
	Image  gocv.Mat
	// Size 缩放后模板图的尺寸，与 Image 一致
	Size  auto.Size
	Scale float64
}

// Snapshot 某一时刻注册表的有序副本
type Snapshot []Item

// Close 释放快照中的图像
func (s Snapshot) Close() {
	for i := range s {
		s[i].Image.Close()
	}
}

// Registry 模板注册表，可被多个 goroutine 并发使用
type Registry struct {
	mu      sync.RWMutex
	order   *list.List // *template，按插入顺序
	index   map[string]*list.Element
	scale   float64
	logFunc LogFunc
}

// New 创建注册表，scale 为新加载模板使用的缩放系数
func New(scale float64) *Registry {
	if scale <= 0 || scale > 1 {
		scale = 1
	}
	return &Registry{
		order: list.New(),
		index: make(map[string]*list.Element),
		scale: scale,
	}
}

// SetLogFunc 设置日志函数
func (r *Registry) SetLogFunc(fn LogFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logFunc = fn
}

func (r *Registry) log(level, message string) {
	r.mu.RLock()
	fn := r.logFunc
	r.mu.RUnlock()

	if fn != nil {
		fn(level, message)
		return
	}
	switch level {
	case "DEBUG":
		logger.Debug("%s", message)
	case "WARN":
		logger.Warn("%s", message)
	case "ERROR":
		logger.Error("%s", message)
	default:
		logger.Info("%s", message)
	}
}

// Scale 当前缩放系数
func (r *Registry) Scale() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.scale
}

// Len 模板数量
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.order.Len()
}

// IsSupported 是否为可加载的图片文件
func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SupportedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// load 读取并缩放模板图像
func load(path string, action auto.ClickAction, scale float64) (*template, error) {
	tmpl, err := cv.NewTemplate(path, scale)
	if err != nil {
		return nil, err
	}
	return &template{Template: tmpl, action: action}, nil
}

// LoadFromFolder 清空注册表并加载文件夹中的全部图片，返回加载数量。
// 无法读取的文件记录日志后跳过；文件夹不存在时注册表为空，不视为错误。
func (r *Registry) LoadFromFolder(dir string) int {
	r.Clear()

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			r.log("WARN", fmt.Sprintf("Template folder not found: %s", dir))
		} else {
			r.log("ERROR", fmt.Sprintf("Failed to read template folder %s: %v", dir, err))
		}
		return 0
	}

	scale := r.Scale()
	loaded := make([]*template, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !IsSupported(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		t, err := load(path, auto.DefaultClickAction, scale)
		if err != nil {
			r.log("ERROR", fmt.Sprintf("Failed to load template %s: %v", path, err))
			continue
		}
		loaded = append(loaded, t)
	}

	r.mu.Lock()
	for _, t := range loaded {
		r.insertLocked(t)
	}
	r.mu.Unlock()

	r.log("INFO", fmt.Sprintf("Loaded %d templates from %s", len(loaded), dir))
	return len(loaded)
}

// AddTemplate 添加模板，文件不存在或无法解码时返回 false。
// 已存在的路径会被替换并移到末尾。
func (r *Registry) AddTemplate(path string, action auto.ClickAction) bool {
	if action == "" {
		action = auto.DefaultClickAction
	}
	if !action.Valid() {
		r.log("ERROR", fmt.Sprintf("Unknown click action %q for %s", action, path))
		return false
	}

	path = filepath.Clean(path)
	t, err := load(path, action, r.Scale())
	if err != nil {
		r.log("ERROR", fmt.Sprintf("Failed to add template %s: %v", path, err))
		return false
	}

	r.mu.Lock()
	// 加载期间缩放系数可能已变化
	t.Rescale(r.scale)
	if el, ok := r.index[path]; ok {
		r.removeLocked(el)
	}
	r.insertLocked(t)
	r.mu.Unlock()

	r.log("INFO", fmt.Sprintf("Added template %s (%s)", filepath.Base(path), action))
	return true
}

// RemoveTemplate 移除模板，不存在时返回 false
func (r *Registry) RemoveTemplate(path string) bool {
	path = filepath.Clean(path)

	r.mu.Lock()
	el, ok := r.index[path]
	if ok {
		r.removeLocked(el)
	}
	r.mu.Unlock()

	if ok {
		r.log("INFO", fmt.Sprintf("Removed template %s", filepath.Base(path)))
	}
	return ok
}

// UpdateAction 修改模板的点击方式，不存在时返回 false
func (r *Registry) UpdateAction(path string, action auto.ClickAction) bool {
	if !action.Valid() {
		return false
	}
	path = filepath.Clean(path)

	r.mu.Lock()
	defer r.mu.Unlock()

	el, ok := r.index[path]
	if !ok {
		return false
	}
	el.Value.(*template).action = action
	return true
}

// Action 获取模板的点击方式
func (r *Registry) Action(path string) (auto.ClickAction, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	el, ok := r.index[filepath.Clean(path)]
	if !ok {
		return "", false
	}
	return el.Value.(*template).action, true
}

// Contains 是否包含模板
func (r *Registry) Contains(path string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.index[filepath.Clean(path)]
	return ok
}

// Entries 按顺序返回全部条目
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, 0, r.order.Len())
	for el := r.order.Front(); el != nil; el = el.Next() {
		t := el.Value.(*template)
		out = append(out, Entry{Path: t.Filename, Action: t.action})
	}
	return out
}

// Snapshot 返回当前模板的有序副本，调用方负责 Close
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(Snapshot, 0, r.order.Len())
	for el := r.order.Front(); el != nil; el = el.Next() {
		t := el.Value.(*template)
		size := t.Size()
		out = append(out, Item{
			Path:   t.Filename,
			Name:   filepath.Base(t.Filename),
			Action: t.action,
			Image:  t.Image().Clone(),
			Size:   auto.Size{Width: size.Width, Height: size.Height},
			Scale:  t.Scale(),
		})
	}
	return out
}

// Rescale 按新的缩放系数重新生成全部模板的匹配图
func (r *Registry) Rescale(scale float64) error {
	if scale <= 0 || scale > 1 {
		return fmt.Errorf("缩放系数超出范围: %v", scale)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if scale == r.scale {
		return nil
	}
	r.scale = scale
	for el := r.order.Front(); el != nil; el = el.Next() {
		el.Value.(*template).Rescale(scale)
	}
	return nil
}

// Clear 清空注册表
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for el := r.order.Front(); el != nil; el = el.Next() {
		el.Value.(*template).Close()
	}
	r.order.Init()
	r.index = make(map[string]*list.Element)
}

// Close 释放全部模板
func (r *Registry) Close() error {
	r.Clear()
	return nil
}

func (r *Registry) insertLocked(t *template) {
	if el, ok := r.index[t.Filename]; ok {
		r.removeLocked(el)
	}
	r.index[t.Filename] = r.order.PushBack(t)
}

func (r *Registry) removeLocked(el *list.Element) {
	t := r.order.Remove(el).(*template)
	delete(r.index, t.Filename)
	t.Close()
}
