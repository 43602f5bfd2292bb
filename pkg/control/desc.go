package control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// 方法全名
const (
	methodStart          = "/" + ServiceName + "/Start"
	methodStop           = "/" + ServiceName + "/Stop"
	methodTogglePause    = "/" + ServiceName + "/TogglePause"
	methodStatus         = "/" + ServiceName + "/Status"
	methodAddTemplate    = "/" + ServiceName + "/AddTemplate"
	methodRemoveTemplate = "/" + ServiceName + "/RemoveTemplate"
	methodUpdateAction   = "/" + ServiceName + "/UpdateAction"
	methodLoadFolder     = "/" + ServiceName + "/LoadFolder"
	methodListTemplates  = "/" + ServiceName + "/ListTemplates"
	methodPreview        = "/" + ServiceName + "/Preview"
	methodLogs           = "/" + ServiceName + "/Logs"
)

// unaryHandler 为一元方法生成 grpc.MethodHandler
func unaryHandler[Req any, Resp any](
	fullMethod string,
	newReq func() *Req,
	call func(ControlServer, context.Context, *Req) (*Resp, error),
) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := newReq()
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ControlServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(ControlServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func newEmpty() *emptypb.Empty { return new(emptypb.Empty) }
func newStruct() *structpb.Struct { return new(structpb.Struct) }
func newString() *wrapperspb.StringValue { return new(wrapperspb.StringValue) }
func newInt32() *wrapperspb.Int32Value { return new(wrapperspb.Int32Value) }

func logsHandler(srv interface{}, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(ControlServer).Logs(in, stream)
}

// Control_ServiceDesc 控制服务描述
var Control_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Start", Handler: unaryHandler(methodStart, newStruct, ControlServer.Start)},
		{MethodName: "Stop", Handler: unaryHandler(methodStop, newEmpty, ControlServer.Stop)},
		{MethodName: "TogglePause", Handler: unaryHandler(methodTogglePause, newEmpty, ControlServer.TogglePause)},
		{MethodName: "Status", Handler: unaryHandler(methodStatus, newEmpty, ControlServer.Status)},
		{MethodName: "AddTemplate", Handler: unaryHandler(methodAddTemplate, newStruct, ControlServer.AddTemplate)},
		{MethodName: "RemoveTemplate", Handler: unaryHandler(methodRemoveTemplate, newString, ControlServer.RemoveTemplate)},
		{MethodName: "UpdateAction", Handler: unaryHandler(methodUpdateAction, newStruct, ControlServer.UpdateAction)},
		{MethodName: "LoadFolder", Handler: unaryHandler(methodLoadFolder, newString, ControlServer.LoadFolder)},
		{MethodName: "ListTemplates", Handler: unaryHandler(methodListTemplates, newEmpty, ControlServer.ListTemplates)},
		{MethodName: "Preview", Handler: unaryHandler(methodPreview, newInt32, ControlServer.Preview)},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Logs", Handler: logsHandler, ServerStreams: true},
	},
	Metadata: "triggerclicker/control/v1/control.proto",
}
