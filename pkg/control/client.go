package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/zoeyai/triggerclicker/pkg/auto"
)

// Client 控制服务客户端
type Client struct {
	conn *grpc.ClientConn
}

// Dial 连接控制服务
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("连接控制服务失败: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Close 关闭连接
func (c *Client) Close() error {
	return c.conn.Close()
}

// StartOptions 启动参数，零值字段使用服务端保存的设置
type StartOptions struct {
	Threshold float64
	Scale     float64
	Interval  time.Duration
}

// Start 启动点击循环
func (c *Client) Start(ctx context.Context, opts StartOptions) (map[string]interface{}, error) {
	in := &structpb.Struct{Fields: map[string]*structpb.Value{}}
	if opts.Threshold > 0 {
		in.Fields["confidence_threshold"] = structpb.NewNumberValue(opts.Threshold)
	}
	if opts.Scale > 0 {
		in.Fields["scale_factor"] = structpb.NewNumberValue(opts.Scale)
	}
	if opts.Interval > 0 {
		in.Fields["interval"] = structpb.NewNumberValue(opts.Interval.Seconds())
	}

	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, methodStart, in, out); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}

// Stop 停止点击循环
func (c *Client) Stop(ctx context.Context) (map[string]interface{}, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, methodStop, &emptypb.Empty{}, out); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}

// TogglePause 切换暂停，返回切换后是否处于暂停
func (c *Client) TogglePause(ctx context.Context) (bool, error) {
	out := new(wrapperspb.BoolValue)
	if err := c.conn.Invoke(ctx, methodTogglePause, &emptypb.Empty{}, out); err != nil {
		return false, err
	}
	return out.GetValue(), nil
}

// Status 获取运行状态
func (c *Client) Status(ctx context.Context) (map[string]interface{}, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, methodStatus, &emptypb.Empty{}, out); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}

func templateRequest(path string, action auto.ClickAction) *structpb.Struct {
	in := &structpb.Struct{Fields: map[string]*structpb.Value{
		"path": structpb.NewStringValue(path),
	}}
	if action != "" {
		in.Fields["click_action"] = structpb.NewStringValue(action.String())
	}
	return in
}

// AddTemplate 添加模板
func (c *Client) AddTemplate(ctx context.Context, path string, action auto.ClickAction) (bool, error) {
	out := new(wrapperspb.BoolValue)
	if err := c.conn.Invoke(ctx, methodAddTemplate, templateRequest(path, action), out); err != nil {
		return false, err
	}
	return out.GetValue(), nil
}

// RemoveTemplate 移除模板
func (c *Client) RemoveTemplate(ctx context.Context, path string) (bool, error) {
	out := new(wrapperspb.BoolValue)
	if err := c.conn.Invoke(ctx, methodRemoveTemplate, wrapperspb.String(path), out); err != nil {
		return false, err
	}
	return out.GetValue(), nil
}

// UpdateAction 修改模板点击方式
func (c *Client) UpdateAction(ctx context.Context, path string, action auto.ClickAction) (bool, error) {
	out := new(wrapperspb.BoolValue)
	if err := c.conn.Invoke(ctx, methodUpdateAction, templateRequest(path, action), out); err != nil {
		return false, err
	}
	return out.GetValue(), nil
}

// LoadFolder 重新加载模板文件夹，dir 为空时使用已保存的文件夹
func (c *Client) LoadFolder(ctx context.Context, dir string) (int, error) {
	out := new(wrapperspb.Int64Value)
	if err := c.conn.Invoke(ctx, methodLoadFolder, wrapperspb.String(dir), out); err != nil {
		return 0, err
	}
	return int(out.GetValue()), nil
}

// TemplateInfo 模板条目
type TemplateInfo struct {
	Path   string
	Action string
}

// ListTemplates 列出模板
func (c *Client) ListTemplates(ctx context.Context) ([]TemplateInfo, error) {
	out := new(structpb.ListValue)
	if err := c.conn.Invoke(ctx, methodListTemplates, &emptypb.Empty{}, out); err != nil {
		return nil, err
	}

	list := make([]TemplateInfo, 0, len(out.GetValues()))
	for _, v := range out.GetValues() {
		fields := v.GetStructValue().GetFields()
		list = append(list, TemplateInfo{
			Path:   fields["path"].GetStringValue(),
			Action: fields["click_action"].GetStringValue(),
		})
	}
	return list, nil
}

// Preview 获取当前屏幕的缩放预览（JPEG data URL）
func (c *Client) Preview(ctx context.Context, quality int) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.conn.Invoke(ctx, methodPreview, wrapperspb.Int32(int32(quality)), out); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

// Logs 订阅事件流，直到 ctx 取消或连接断开
func (c *Client) Logs(ctx context.Context, fn func(map[string]interface{})) error {
	stream, err := c.conn.NewStream(ctx, &Control_ServiceDesc.Streams[0], methodLogs)
	if err != nil {
		return err
	}
	if err := stream.SendMsg(&emptypb.Empty{}); err != nil {
		return err
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}

	for {
		msg := new(structpb.Struct)
		if err := stream.RecvMsg(msg); err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		fn(msg.AsMap())
	}
}
