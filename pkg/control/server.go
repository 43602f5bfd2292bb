package control

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"google.golang.org/grpc"

	"github.com/zoeyai/triggerclicker/internal/logger"
)

// ServeGRPC 在 addr 上提供控制服务，直到 ctx 取消
func ServeGRPC(ctx context.Context, addr string, svc *Service, opts ...grpc.ServerOption) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("监听 %s 失败: %w", addr, err)
	}
	return serveGRPCListener(ctx, lis, svc, opts...)
}

func serveGRPCListener(ctx context.Context, lis net.Listener, svc *Service, opts ...grpc.ServerOption) error {
	gs := grpc.NewServer(opts...)
	svc.Register(gs)

	go func() {
		<-ctx.Done()
		gs.GracefulStop()
	}()

	logger.Info("[control] gRPC listening on %s", lis.Addr())
	if err := gs.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// ServeFeed 在 addr 上提供 WebSocket 日志推送（路径 /ws），直到 ctx 取消
func ServeFeed(ctx context.Context, addr string, feed *Feed) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", feed)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		feed.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("[feed] WebSocket listening on ws://%s/ws", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("日志推送服务异常: %w", err)
	}
	return nil
}
