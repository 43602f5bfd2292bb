package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zoeyai/triggerclicker/pkg/auto"
	"github.com/zoeyai/triggerclicker/pkg/config"
	"github.com/zoeyai/triggerclicker/pkg/control"
)

var (
	ctlAddr      string
	ctlTimeout   time.Duration
	ctlThreshold float64
	ctlScale     float64
	ctlInterval  time.Duration
	ctlAction    string
)

var ctlCmd = &cobra.Command{
	Use:   "ctl",
	Short: "控制正在运行的点击服务",
}

// controlAddr --addr 优先，其次是设置文件中的地址
func controlAddr() string {
	if ctlAddr != "" {
		return ctlAddr
	}
	if s, err := settingsManager().Load(); err == nil && s.ControlAddr != "" {
		return s.ControlAddr
	}
	return config.DefaultControlAddr
}

// withClient 连接控制服务并执行 fn
func withClient(fn func(ctx context.Context, c *control.Client) error) error {
	c, err := control.Dial(controlAddr())
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), ctlTimeout)
	defer cancel()
	return fn(ctx, c)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// decodeDataURL 解析 data:image/...;base64,... 格式
func decodeDataURL(s string) ([]byte, error) {
	i := strings.Index(s, ";base64,")
	if !strings.HasPrefix(s, "data:") || i < 0 {
		return nil, fmt.Errorf("无法识别的预览数据")
	}
	return base64.StdEncoding.DecodeString(s[i+len(";base64,"):])
}

func printResult(ok bool, what string) {
	if ok {
		fmt.Printf("[INFO] %s\n", what)
	} else {
		fmt.Printf("[WARN] %s: 无变化\n", what)
	}
}

func parseAction() (auto.ClickAction, error) {
	if ctlAction == "" {
		return "", nil
	}
	return auto.ParseClickAction(ctlAction)
}

var ctlStartCmd = &cobra.Command{
	Use:   "start",
	Short: "开始点击循环 (未指定的参数使用保存的设置)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *control.Client) error {
			st, err := c.Start(ctx, control.StartOptions{
				Threshold: ctlThreshold,
				Scale:     ctlScale,
				Interval:  ctlInterval,
			})
			if err != nil {
				return err
			}
			return printJSON(st)
		})
	},
}

var ctlStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "停止点击循环",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *control.Client) error {
			st, err := c.Stop(ctx)
			if err != nil {
				return err
			}
			return printJSON(st)
		})
	},
}

var ctlPauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "暂停或恢复点击循环",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *control.Client) error {
			paused, err := c.TogglePause(ctx)
			if err != nil {
				return err
			}
			if paused {
				fmt.Println("paused")
			} else {
				fmt.Println("running")
			}
			return nil
		})
	},
}

var ctlStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "显示运行状态",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *control.Client) error {
			st, err := c.Status(ctx)
			if err != nil {
				return err
			}
			return printJSON(st)
		})
	},
}

var ctlAddCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "添加模板",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		action, err := parseAction()
		if err != nil {
			return err
		}
		return withClient(func(ctx context.Context, c *control.Client) error {
			ok, err := c.AddTemplate(ctx, args[0], action)
			if err != nil {
				return err
			}
			printResult(ok, "添加模板 "+args[0])
			return nil
		})
	},
}

var ctlRemoveCmd = &cobra.Command{
	Use:   "remove <path>",
	Short: "移除模板",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *control.Client) error {
			ok, err := c.RemoveTemplate(ctx, args[0])
			if err != nil {
				return err
			}
			printResult(ok, "移除模板 "+args[0])
			return nil
		})
	},
}

var ctlActionCmd = &cobra.Command{
	Use:   "action <path> <left|right|double>",
	Short: "修改模板的点击方式",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		action, err := auto.ParseClickAction(args[1])
		if err != nil {
			return err
		}
		return withClient(func(ctx context.Context, c *control.Client) error {
			ok, err := c.UpdateAction(ctx, args[0], action)
			if err != nil {
				return err
			}
			printResult(ok, fmt.Sprintf("%s → %s", args[0], action))
			return nil
		})
	},
}

var ctlLoadCmd = &cobra.Command{
	Use:   "load [folder]",
	Short: "从文件夹重新加载模板 (省略时使用保存的文件夹)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := ""
		if len(args) == 1 {
			dir = args[0]
		}
		return withClient(func(ctx context.Context, c *control.Client) error {
			n, err := c.LoadFolder(ctx, dir)
			if err != nil {
				return err
			}
			fmt.Printf("[INFO] 已加载 %d 个模板\n", n)
			return nil
		})
	},
}

var ctlListCmd = &cobra.Command{
	Use:   "list",
	Short: "列出模板",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *control.Client) error {
			list, err := c.ListTemplates(ctx)
			if err != nil {
				return err
			}
			for i, t := range list {
				fmt.Printf("%3d  %-12s  %s\n", i+1, t.Action, t.Path)
			}
			return nil
		})
	},
}

var ctlLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "持续输出引擎事件",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := control.Dial(controlAddr())
		if err != nil {
			return err
		}
		defer c.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return c.Logs(ctx, func(ev map[string]interface{}) {
			fmt.Printf("%s | %-5v | %v\n", ev["time"], ev["level"], ev["message"])
		})
	},
}

var ctlPreviewCmd = &cobra.Command{
	Use:   "preview <output.jpg>",
	Short: "保存当前屏幕的缩放截图",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *control.Client) error {
			data, err := c.Preview(ctx, 80)
			if err != nil {
				return err
			}
			raw, err := decodeDataURL(data)
			if err != nil {
				return err
			}
			if err := os.WriteFile(args[0], raw, 0644); err != nil {
				return err
			}
			fmt.Printf("[INFO] 已保存 %s (%d bytes)\n", args[0], len(raw))
			return nil
		})
	},
}

func init() {
	pf := ctlCmd.PersistentFlags()
	pf.StringVar(&ctlAddr, "addr", "", "控制服务地址 (默认读取设置或 "+config.DefaultControlAddr+")")
	pf.DurationVar(&ctlTimeout, "timeout", 5*time.Second, "请求超时")

	ctlStartCmd.Flags().Float64Var(&ctlThreshold, "threshold", 0, "置信度阈值 (0-1)")
	ctlStartCmd.Flags().Float64Var(&ctlScale, "scale", 0, "截图缩放比例 (0.1-1)")
	ctlStartCmd.Flags().DurationVar(&ctlInterval, "interval", 0, "循环间隔 (100ms-2s)")
	ctlAddCmd.Flags().StringVar(&ctlAction, "action", "", "点击方式 (left/right/double)")

	ctlCmd.AddCommand(ctlStartCmd, ctlStopCmd, ctlPauseCmd, ctlStatusCmd,
		ctlAddCmd, ctlRemoveCmd, ctlActionCmd, ctlLoadCmd, ctlListCmd,
		ctlLogsCmd, ctlPreviewCmd)
}
