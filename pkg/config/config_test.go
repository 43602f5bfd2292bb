package config

import (
	"encoding/json"
	"image"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/adrg/xdg"

	"github.com/zoeyai/triggerclicker/pkg/auto"
	"github.com/zoeyai/triggerclicker/pkg/registry"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()

	if s.TemplateFolder != "templates" {
		t.Errorf("默认模板文件夹应为 templates, 实际为 %s", s.TemplateFolder)
	}
	if s.ConfidenceThreshold != 0.8 || s.ScaleFactor != 0.5 || s.Interval != 0.5 {
		t.Errorf("默认参数不正确: %+v", s)
	}
	if s.HotkeyEnabled || s.Hotkey != "Ctrl+P" || s.Theme != "Light" {
		t.Errorf("默认热键或主题不正确: %+v", s)
	}

	cfg := s.EngineConfig()
	if cfg.Interval != 500*time.Millisecond || cfg.Workers != 4 {
		t.Errorf("引擎配置转换不正确: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("默认配置应通过校验: %v", err)
	}
}

func TestManagerSaveAndLoad(t *testing.T) {
	tempDir := t.TempDir()
	manager := NewManagerWithDir(tempDir)

	if manager.Exists() {
		t.Error("初始时配置文件不应存在")
	}

	s := DefaultSettings()
	s.TemplateFolder = "/tmp/buttons"
	s.ConfidenceThreshold = 0.9
	s.Interval = 1.25
	s.HotkeyEnabled = true
	s.Hotkey = "F2"
	s.Theme = "Dark"
	s.Templates = []registry.Entry{
		{Path: "/tmp/buttons/ok.png", Action: auto.LeftClick},
		{Path: "/tmp/buttons/menu.png", Action: auto.RightClick},
	}

	if err := manager.Save(s); err != nil {
		t.Fatalf("保存配置失败: %v", err)
	}
	if !manager.Exists() {
		t.Error("保存后配置文件应存在")
	}

	loaded, err := manager.Load()
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}
	if loaded.TemplateFolder != s.TemplateFolder || loaded.ConfidenceThreshold != 0.9 || loaded.Interval != 1.25 {
		t.Errorf("加载的配置不匹配: %+v", loaded)
	}
	if loaded.Hotkey != "F2" || !loaded.HotkeyEnabled || loaded.Theme != "Dark" {
		t.Errorf("热键或主题不匹配: %+v", loaded)
	}
	if len(loaded.Templates) != 2 || loaded.Templates[1].Action != auto.RightClick {
		t.Errorf("模板列表不匹配: %+v", loaded.Templates)
	}
}

// TestPersistedKeys 配置文件使用固定的键名
func TestPersistedKeys(t *testing.T) {
	manager := NewManagerWithDir(t.TempDir())
	s := DefaultSettings()
	s.Templates = []registry.Entry{{Path: "a.png", Action: auto.DoubleClick}}
	if err := manager.Save(s); err != nil {
		t.Fatalf("保存配置失败: %v", err)
	}

	data, err := os.ReadFile(manager.GetConfigFile())
	if err != nil {
		t.Fatalf("读取配置失败: %v", err)
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("解析配置失败: %v", err)
	}
	for _, key := range []string{"template_folder", "confidence_threshold", "scale_factor", "interval",
		"hotkey_enabled", "hotkey", "custom_hotkey", "theme", "templates"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("缺少键 %s", key)
		}
	}
	if !strings.Contains(string(data), `"click_action": "Double Click"`) {
		t.Errorf("模板条目格式不正确: %s", data)
	}
}

// TestLoadPartialFile 缺失的字段取默认值
func TestLoadPartialFile(t *testing.T) {
	tempDir := t.TempDir()
	manager := NewManagerWithDir(tempDir)
	os.WriteFile(manager.GetConfigFile(), []byte(`{"scale_factor": 0.25}`), 0644)

	s, err := manager.Load()
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}
	if s.ScaleFactor != 0.25 {
		t.Errorf("scale_factor 应为 0.25, 实际 %v", s.ScaleFactor)
	}
	if s.ConfidenceThreshold != 0.8 || s.TemplateFolder != "templates" || s.Hotkey != "Ctrl+P" {
		t.Errorf("缺失字段应取默认值: %+v", s)
	}
}

func TestManagerYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	manager := NewManagerWithFile(path)

	s := DefaultSettings()
	s.Templates = []registry.Entry{{Path: "x.png", Action: auto.RightClick}}
	if err := manager.Save(s); err != nil {
		t.Fatalf("保存配置失败: %v", err)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "click_action: Right Click") {
		t.Errorf("应保存为 YAML: %s", data)
	}

	loaded, err := manager.Load()
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}
	if len(loaded.Templates) != 1 || loaded.Templates[0].Action != auto.RightClick {
		t.Errorf("YAML 模板列表不匹配: %+v", loaded.Templates)
	}
}

func TestManagerClear(t *testing.T) {
	manager := NewManagerWithDir(t.TempDir())

	if err := manager.Save(DefaultSettings()); err != nil {
		t.Fatalf("保存配置失败: %v", err)
	}
	if err := manager.Clear(); err != nil {
		t.Fatalf("清除配置失败: %v", err)
	}
	if manager.Exists() {
		t.Error("清除后配置文件不应存在")
	}

	// 清除不存在的文件不应报错
	if err := manager.Clear(); err != nil {
		t.Errorf("清除不存在的配置不应报错: %v", err)
	}
}

func TestManagerLoadNonExistent(t *testing.T) {
	manager := NewManagerWithDir(t.TempDir())

	s, err := manager.Load()
	if err != nil {
		t.Fatalf("加载不存在的配置不应报错: %v", err)
	}
	if s.TemplateFolder != DefaultTemplateFolder {
		t.Error("应返回默认设置")
	}
}

func TestManagerLoadCorruptedFile(t *testing.T) {
	tempDir := t.TempDir()
	manager := NewManagerWithDir(tempDir)
	os.WriteFile(manager.GetConfigFile(), []byte("not valid json"), 0644)

	s, err := manager.Load()
	if err == nil {
		t.Error("加载损坏的配置应返回错误")
	}
	if s == nil {
		t.Error("即使出错也应返回默认设置")
	}

	os.WriteFile(manager.GetConfigFile(), []byte(`{"templates":[{"path":"a.png","click_action":"Triple Click"}]}`), 0644)
	if _, err := manager.Load(); err == nil {
		t.Error("未知点击方式应返回错误")
	}
}

func TestManagerPaths(t *testing.T) {
	tempDir := t.TempDir()
	manager := NewManagerWithDir(tempDir)

	if manager.GetConfigDir() != tempDir {
		t.Errorf("GetConfigDir 应为 %s", tempDir)
	}
	if manager.GetConfigFile() != filepath.Join(tempDir, "triggerclicker_settings.json") {
		t.Errorf("GetConfigFile 不正确: %s", manager.GetConfigFile())
	}
}

func TestDefaultManager(t *testing.T) {
	manager := GetDefaultManager()
	if manager == nil {
		t.Fatal("GetDefaultManager 返回 nil")
	}

	expectedDir := filepath.Join(xdg.ConfigHome, "trigger-clicker")
	if manager.GetConfigDir() != expectedDir {
		t.Errorf("默认配置目录应为 %s, 实际为 %s", expectedDir, manager.GetConfigDir())
	}
}

func TestEffectiveHotkey(t *testing.T) {
	s := DefaultSettings()
	if s.EffectiveHotkey() != "" {
		t.Error("未启用时应为空")
	}

	s.HotkeyEnabled = true
	if s.EffectiveHotkey() != "ctrl+p" {
		t.Errorf("期望 ctrl+p, 实际 %s", s.EffectiveHotkey())
	}

	s.Hotkey = CustomHotkey
	s.CustomHotkey = " Alt+Shift+K "
	if s.EffectiveHotkey() != "alt+shift+k" {
		t.Errorf("期望 alt+shift+k, 实际 %s", s.EffectiveHotkey())
	}
}

func writeNoisePNG(t *testing.T, path string, seed int64) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	img := image.NewGray(image.Rect(0, 0, 16, 12))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.Intn(256))
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("创建文件失败: %v", err)
	}
	defer f.Close()
	png.Encode(f, img)
}

// TestApplyRebuildsRegistry 从设置重建注册表，跳过不存在的文件
func TestApplyRebuildsRegistry(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	b := filepath.Join(dir, "b.png")
	writeNoisePNG(t, a, 1)
	writeNoisePNG(t, b, 2)

	s := DefaultSettings()
	s.Templates = []registry.Entry{
		{Path: b, Action: auto.DoubleClick},
		{Path: filepath.Join(dir, "gone.png"), Action: auto.LeftClick},
		{Path: a},
	}

	reg := registry.New(s.ScaleFactor)
	defer reg.Close()
	reg.SetLogFunc(func(string, string) {})

	n, skipped := s.Apply(reg)
	if n != 2 || len(skipped) != 1 {
		t.Fatalf("期望加载 2 个、跳过 1 个, 实际 %d / %v", n, skipped)
	}

	entries := reg.Entries()
	if entries[0].Path != b || entries[0].Action != auto.DoubleClick {
		t.Errorf("第一个模板不正确: %+v", entries[0])
	}
	if entries[1].Path != a || entries[1].Action != auto.LeftClick {
		t.Errorf("缺省点击方式应为 Left Click: %+v", entries[1])
	}

	// 反向保存
	out := DefaultSettings()
	out.CaptureTemplates(reg)
	if len(out.Templates) != 2 || out.Templates[0] != entries[0] {
		t.Errorf("CaptureTemplates 不正确: %+v", out.Templates)
	}
}

// BenchmarkSaveLoad 基准测试
func BenchmarkSaveLoad(b *testing.B) {
	manager := NewManagerWithDir(b.TempDir())
	s := DefaultSettings()
	s.Templates = []registry.Entry{{Path: "a.png", Action: auto.LeftClick}}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		manager.Save(s)
		manager.Load()
	}
}
