package auto

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ClickAction 点击方式，字符串值会被持久化到配置文件
type ClickAction string

const (
	LeftClick   ClickAction = "Left Click"
	RightClick  ClickAction = "Right Click"
	DoubleClick ClickAction = "Double Click"
)

// DefaultClickAction 新模板的默认点击方式
const DefaultClickAction = LeftClick

// ClickActions 全部点击方式
var ClickActions = []ClickAction{LeftClick, RightClick, DoubleClick}

// Valid 是否为已知的点击方式
func (a ClickAction) Valid() bool {
	switch a {
	case LeftClick, RightClick, DoubleClick:
		return true
	}
	return false
}

func (a ClickAction) String() string {
	return string(a)
}

// ParseClickAction 解析点击方式。
// 除标准名称外，也接受 "left" / "right" / "double" 这类简写（不区分大小写）。
func ParseClickAction(s string) (ClickAction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left click", "left":
		return LeftClick, nil
	case "right click", "right":
		return RightClick, nil
	case "double click", "double":
		return DoubleClick, nil
	}
	return "", fmt.Errorf("未知的点击方式: %q", s)
}

// UnmarshalJSON 读取配置时校验点击方式
func (a *ClickAction) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseClickAction(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// UnmarshalYAML 读取 YAML 配置时校验点击方式
func (a *ClickAction) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseClickAction(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
