// Package config 管理持久化设置：读取、保存以及从设置重建模板注册表。
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/zoeyai/triggerclicker/pkg/auto"
	"github.com/zoeyai/triggerclicker/pkg/engine"
	"github.com/zoeyai/triggerclicker/pkg/registry"
)

const (
	// AppName 配置目录名
	AppName = "trigger-clicker"
	// DefaultFileName 默认配置文件名
	DefaultFileName = "triggerclicker_settings.json"
	// DefaultTemplateFolder 默认模板文件夹
	DefaultTemplateFolder = "templates"
	// DefaultHotkey 默认暂停/恢复热键
	DefaultHotkey = "Ctrl+P"
	// CustomHotkey 选择自定义热键时 hotkey 字段的取值
	CustomHotkey = "Custom"
	// DefaultTheme 默认主题
	DefaultTheme = "Light"
	// DefaultControlAddr 控制服务默认监听地址
	DefaultControlAddr = "127.0.0.1:50061"
	// DefaultFeedAddr 日志推送默认监听地址
	DefaultFeedAddr = "127.0.0.1:50062"
)

// Settings 持久化设置
type Settings struct {
	TemplateFolder      string           `json:"template_folder" yaml:"template_folder"`
	ConfidenceThreshold float64          `json:"confidence_threshold" yaml:"confidence_threshold"`
	ScaleFactor         float64          `json:"scale_factor" yaml:"scale_factor"`
	Interval            float64          `json:"interval" yaml:"interval"` // 秒
	HotkeyEnabled       bool             `json:"hotkey_enabled" yaml:"hotkey_enabled"`
	Hotkey              string           `json:"hotkey" yaml:"hotkey"`
	CustomHotkey        string           `json:"custom_hotkey" yaml:"custom_hotkey"`
	Theme               string           `json:"theme" yaml:"theme"`
	Templates           []registry.Entry `json:"templates" yaml:"templates"`

	ControlAddr string `json:"control_addr,omitempty" yaml:"control_addr,omitempty"`
	FeedAddr    string `json:"feed_addr,omitempty" yaml:"feed_addr,omitempty"`
}

// DefaultSettings 默认设置
func DefaultSettings() *Settings {
	return &Settings{
		TemplateFolder:      DefaultTemplateFolder,
		ConfidenceThreshold: engine.DefaultThreshold,
		ScaleFactor:         engine.DefaultScale,
		Interval:            engine.DefaultInterval.Seconds(),
		HotkeyEnabled:       false,
		Hotkey:              DefaultHotkey,
		CustomHotkey:        "",
		Theme:               DefaultTheme,
		Templates:           []registry.Entry{},
		ControlAddr:         DefaultControlAddr,
		FeedAddr:            DefaultFeedAddr,
	}
}

// IntervalDuration 间隔转换为 time.Duration
func (s *Settings) IntervalDuration() time.Duration {
	return time.Duration(s.Interval * float64(time.Second))
}

// EngineConfig 转换为引擎配置
func (s *Settings) EngineConfig() engine.Config {
	cfg := engine.DefaultConfig()
	cfg.Threshold = s.ConfidenceThreshold
	cfg.Scale = s.ScaleFactor
	cfg.Interval = s.IntervalDuration()
	return cfg
}

// EffectiveHotkey 实际生效的热键（小写），未启用时返回空字符串
func (s *Settings) EffectiveHotkey() string {
	if !s.HotkeyEnabled {
		return ""
	}
	if s.Hotkey == CustomHotkey {
		return strings.ToLower(strings.TrimSpace(s.CustomHotkey))
	}
	return strings.ToLower(s.Hotkey)
}

// Apply 清空注册表并按设置中的模板列表重建，跳过已不存在的文件。
// 返回成功加载的数量与被跳过的路径。
func (s *Settings) Apply(reg *registry.Registry) (int, []string) {
	reg.Clear()

	var skipped []string
	for _, e := range s.Templates {
		if _, err := os.Stat(e.Path); err != nil {
			skipped = append(skipped, e.Path)
			continue
		}
		action := e.Action
		if action == "" {
			action = auto.DefaultClickAction
		}
		if !reg.AddTemplate(e.Path, action) {
			skipped = append(skipped, e.Path)
		}
	}
	return reg.Len(), skipped
}

// CaptureTemplates 用注册表的当前内容更新模板列表
func (s *Settings) CaptureTemplates(reg *registry.Registry) {
	s.Templates = reg.Entries()
}

// Manager 配置管理器
type Manager struct {
	configDir  string
	configFile string
	mu         sync.RWMutex
}

// NewManager 创建配置管理器，配置位于 $XDG_CONFIG_HOME/trigger-clicker
func NewManager() *Manager {
	return NewManagerWithDir(filepath.Join(xdg.ConfigHome, AppName))
}

// NewManagerWithDir 使用指定目录创建配置管理器
func NewManagerWithDir(configDir string) *Manager {
	return &Manager{
		configDir:  configDir,
		configFile: filepath.Join(configDir, DefaultFileName),
	}
}

// NewManagerWithFile 使用指定文件创建配置管理器，扩展名 .yaml/.yml 使用 YAML 格式
func NewManagerWithFile(path string) *Manager {
	return &Manager{
		configDir:  filepath.Dir(path),
		configFile: path,
	}
}

func (m *Manager) isYAML() bool {
	ext := strings.ToLower(filepath.Ext(m.configFile))
	return ext == ".yaml" || ext == ".yml"
}

// ensureDir 确保配置目录存在
func (m *Manager) ensureDir() error {
	return os.MkdirAll(m.configDir, 0755)
}

// Load 加载配置，文件不存在时返回默认设置，缺失的字段取默认值
func (m *Manager) Load() (*Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, err := os.Stat(m.configFile); os.IsNotExist(err) {
		return DefaultSettings(), nil
	}

	data, err := os.ReadFile(m.configFile)
	if err != nil {
		return DefaultSettings(), fmt.Errorf("读取配置文件失败: %w", err)
	}

	settings := DefaultSettings()
	if m.isYAML() {
		err = yaml.Unmarshal(data, settings)
	} else {
		err = json.Unmarshal(data, settings)
	}
	if err != nil {
		return DefaultSettings(), fmt.Errorf("解析配置文件失败: %w", err)
	}

	return settings, nil
}

// Save 保存配置
func (m *Manager) Save(settings *Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureDir(); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if m.isYAML() {
		data, err = yaml.Marshal(settings)
	} else {
		data, err = json.MarshalIndent(settings, "", "    ")
	}
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	if err := os.WriteFile(m.configFile, data, 0644); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}

	return nil
}

// Clear 清除配置
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := os.Stat(m.configFile); os.IsNotExist(err) {
		return nil
	}

	return os.Remove(m.configFile)
}

// GetConfigDir 获取配置目录
func (m *Manager) GetConfigDir() string {
	return m.configDir
}

// GetConfigFile 获取配置文件路径
func (m *Manager) GetConfigFile() string {
	return m.configFile
}

// Exists 检查配置文件是否存在
func (m *Manager) Exists() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, err := os.Stat(m.configFile)
	return err == nil
}

// 全局配置管理器
var defaultManager = NewManager()

// GetDefaultManager 获取默认配置管理器
func GetDefaultManager() *Manager {
	return defaultManager
}

// Load 使用默认管理器加载配置
func Load() (*Settings, error) {
	return defaultManager.Load()
}

// Save 使用默认管理器保存配置
func Save(settings *Settings) error {
	return defaultManager.Save(settings)
}
