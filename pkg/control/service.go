// Package control 对外暴露运行核心的命令接口：
// gRPC 控制服务（启动/停止/暂停/模板管理/状态/日志流）和 WebSocket 日志推送。
//
// 消息统一使用 protobuf 标准类型（structpb / wrapperspb / emptypb），
// 外部界面无需额外的 .proto 文件即可调用。
package control

import (
	"context"
	"errors"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/zoeyai/triggerclicker/internal/logger"
	"github.com/zoeyai/triggerclicker/pkg/auto"
	"github.com/zoeyai/triggerclicker/pkg/config"
	"github.com/zoeyai/triggerclicker/pkg/engine"
	"github.com/zoeyai/triggerclicker/pkg/process"
)

// ServiceName gRPC 服务全名
const ServiceName = "triggerclicker.control.v1.Control"

// ControlServer 控制服务接口
type ControlServer interface {
	Start(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Stop(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	TogglePause(context.Context, *emptypb.Empty) (*wrapperspb.BoolValue, error)
	Status(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	AddTemplate(context.Context, *structpb.Struct) (*wrapperspb.BoolValue, error)
	RemoveTemplate(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error)
	UpdateAction(context.Context, *structpb.Struct) (*wrapperspb.BoolValue, error)
	LoadFolder(context.Context, *wrapperspb.StringValue) (*wrapperspb.Int64Value, error)
	ListTemplates(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	Preview(context.Context, *wrapperspb.Int32Value) (*wrapperspb.StringValue, error)
	Logs(*emptypb.Empty, grpc.ServerStream) error
}

// Previewer 生成当前屏幕的预览图
type Previewer interface {
	Preview(scale float64, quality int) (string, error)
}

// Service 控制服务实现
type Service struct {
	engine    *engine.Engine
	previewer Previewer

	// mu 保护 settings 并串行化持久化
	mu       sync.Mutex
	settings *config.Settings
	manager  *config.Manager
}

// NewService 创建控制服务。manager 不为 nil 时，每次修改都会保存设置。
func NewService(eng *engine.Engine, settings *config.Settings, manager *config.Manager) *Service {
	if settings == nil {
		settings = config.DefaultSettings()
	}
	return &Service{
		engine:   eng,
		settings: settings,
		manager:  manager,
	}
}

// SetPreviewer 设置预览来源
func (s *Service) SetPreviewer(p Previewer) {
	s.previewer = p
}

// Register 注册到 gRPC 服务器
func (s *Service) Register(gs *grpc.Server) {
	gs.RegisterService(&Control_ServiceDesc, s)
}

// persist 同步模板列表并保存设置
func (s *Service) persist() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings.CaptureTemplates(s.engine.Registry())
	if s.manager == nil {
		return
	}
	if err := s.manager.Save(s.settings); err != nil {
		logger.Warn("[control] Failed to save settings: %v", err)
	}
}

func (s *Service) Start(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	s.mu.Lock()
	cfg := s.settings.EngineConfig()
	s.mu.Unlock()

	fields := in.GetFields()
	if v, ok := fields["confidence_threshold"]; ok {
		cfg.Threshold = v.GetNumberValue()
	}
	if v, ok := fields["scale_factor"]; ok {
		cfg.Scale = v.GetNumberValue()
	}
	if v, ok := fields["interval"]; ok {
		cfg.Interval = time.Duration(v.GetNumberValue() * float64(time.Second))
	}

	if err := s.engine.Start(cfg); err != nil {
		return nil, toStatus(err)
	}

	s.mu.Lock()
	s.settings.ConfidenceThreshold = cfg.Threshold
	s.settings.ScaleFactor = cfg.Scale
	s.settings.Interval = cfg.Interval.Seconds()
	s.mu.Unlock()
	s.persist()

	return statusStruct(s.engine.Status())
}

func (s *Service) Stop(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	s.engine.StopLoop()
	return statusStruct(s.engine.Status())
}

func (s *Service) TogglePause(context.Context, *emptypb.Empty) (*wrapperspb.BoolValue, error) {
	if s.engine.State() == engine.Stopped {
		return nil, status.Error(codes.FailedPrecondition, "点击循环未运行")
	}
	return wrapperspb.Bool(s.engine.TogglePause()), nil
}

func (s *Service) Status(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	st, err := statusStruct(s.engine.Status())
	if err != nil {
		return nil, err
	}
	if stats, err := process.SelfStats(); err == nil {
		st.Fields["process"] = structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"pid":         structpb.NewNumberValue(float64(stats.PID)),
			"cpu_percent": structpb.NewNumberValue(stats.CPUPercent),
			"rss_bytes":   structpb.NewNumberValue(float64(stats.RSSBytes)),
			"threads":     structpb.NewNumberValue(float64(stats.Threads)),
			"goroutines":  structpb.NewNumberValue(float64(stats.Goroutines)),
			"uptime_s":    structpb.NewNumberValue(stats.Uptime.Seconds()),
		}})
	}
	return st, nil
}

func (s *Service) AddTemplate(_ context.Context, in *structpb.Struct) (*wrapperspb.BoolValue, error) {
	path, action, err := templateArgs(in)
	if err != nil {
		return nil, err
	}
	ok := s.engine.AddTemplate(path, action)
	if ok {
		s.persist()
	}
	return wrapperspb.Bool(ok), nil
}

func (s *Service) RemoveTemplate(_ context.Context, in *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	if in.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "缺少参数 path")
	}
	ok := s.engine.RemoveTemplate(in.GetValue())
	if ok {
		s.persist()
	}
	return wrapperspb.Bool(ok), nil
}

func (s *Service) UpdateAction(_ context.Context, in *structpb.Struct) (*wrapperspb.BoolValue, error) {
	path, action, err := templateArgs(in)
	if err != nil {
		return nil, err
	}
	ok := s.engine.UpdateAction(path, action)
	if ok {
		s.persist()
	}
	return wrapperspb.Bool(ok), nil
}

func (s *Service) LoadFolder(_ context.Context, in *wrapperspb.StringValue) (*wrapperspb.Int64Value, error) {
	s.mu.Lock()
	dir := in.GetValue()
	if dir == "" {
		dir = s.settings.TemplateFolder
	} else {
		s.settings.TemplateFolder = dir
	}
	s.mu.Unlock()

	n := s.engine.LoadFromFolder(dir)
	s.persist()
	return wrapperspb.Int64(int64(n)), nil
}

func (s *Service) ListTemplates(context.Context, *emptypb.Empty) (*structpb.ListValue, error) {
	entries := s.engine.Registry().Entries()
	values := make([]*structpb.Value, 0, len(entries))
	for _, e := range entries {
		values = append(values, structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"path":         structpb.NewStringValue(e.Path),
			"click_action": structpb.NewStringValue(e.Action.String()),
		}}))
	}
	return &structpb.ListValue{Values: values}, nil
}

func (s *Service) Preview(_ context.Context, in *wrapperspb.Int32Value) (*wrapperspb.StringValue, error) {
	if s.previewer == nil {
		return nil, status.Error(codes.Unimplemented, "未配置预览")
	}
	data, err := s.previewer.Preview(s.engine.Registry().Scale(), int(in.GetValue()))
	if err != nil {
		return nil, status.Errorf(codes.Unavailable, "截图失败: %v", err)
	}
	return wrapperspb.String(data), nil
}

// Logs 推送引擎事件直到客户端断开
func (s *Service) Logs(_ *emptypb.Empty, stream grpc.ServerStream) error {
	events := make(chan engine.Event, 64)
	unsubscribe := s.engine.OnLogEvent(func(ev engine.Event) {
		select {
		case events <- ev:
		default:
			// 客户端太慢，丢弃
		}
	})
	defer unsubscribe()

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			msg, err := eventStruct(ev)
			if err != nil {
				continue
			}
			if err := stream.SendMsg(msg); err != nil {
				return err
			}
		}
	}
}

func templateArgs(in *structpb.Struct) (string, auto.ClickAction, error) {
	fields := in.GetFields()
	path := fields["path"].GetStringValue()
	if path == "" {
		return "", "", status.Error(codes.InvalidArgument, "缺少参数 path")
	}

	action := auto.DefaultClickAction
	if v := fields["click_action"].GetStringValue(); v != "" {
		parsed, err := auto.ParseClickAction(v)
		if err != nil {
			return "", "", status.Error(codes.InvalidArgument, err.Error())
		}
		action = parsed
	}
	return path, action, nil
}

// toStatus 将引擎错误映射为 gRPC 状态码
func toStatus(err error) error {
	var ve *engine.ValidationError
	switch {
	case errors.As(err, &ve):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, engine.ErrAlreadyRunning):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func statusStruct(st engine.Status) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(map[string]interface{}{
		"state":                st.State.String(),
		"templates":            st.Templates,
		"confidence_threshold": st.Config.Threshold,
		"scale_factor":         st.Config.Scale,
		"interval":             st.Config.Interval.Seconds(),
		"workers":              st.Config.Workers,
		"ticks":                st.Ticks,
		"dispatches":           st.Dispatches,
		"last_tick_ms":         float64(st.LastTick.Microseconds()) / 1000,
		"error":                st.Error,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "序列化状态失败: %v", err)
	}
	return out, nil
}

func eventStruct(ev engine.Event) (*structpb.Struct, error) {
	fields := make(map[string]interface{}, len(ev.Fields))
	for k, v := range ev.Fields {
		fields[k] = v
	}
	return structpb.NewStruct(map[string]interface{}{
		"time":    ev.Time.Format(time.RFC3339Nano),
		"level":   ev.Level,
		"kind":    string(ev.Kind),
		"message": ev.Message,
		"fields":  fields,
	})
}
