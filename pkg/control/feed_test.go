package control

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zoeyai/triggerclicker/internal/logger"
)

func dialFeed(t *testing.T, f *Feed, query string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("连接 WebSocket 失败: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitClients(t *testing.T, f *Feed, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for f.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("期望 %d 个连接, 实际 %d", n, f.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) FeedMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("读取消息失败: %v", err)
	}
	var msg FeedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("解析消息失败: %v", err)
	}
	return msg
}

// TestFeedFiltersLogLines 默认连接只接收引擎事件
func TestFeedFiltersLogLines(t *testing.T) {
	f := NewFeed()
	defer f.Close()
	conn := dialFeed(t, f, "")
	waitClients(t, f, 1)

	f.Publish(FeedMessage{Type: FeedTypeLog, Level: "INFO", Message: "raw line"})
	f.Publish(FeedMessage{Type: FeedTypeEvent, Level: "INFO", Kind: "dispatch", Message: "Left Click on ok.png at (10, 20)"})

	msg := readMessage(t, conn)
	if msg.Type != FeedTypeEvent || msg.Kind != "dispatch" {
		t.Errorf("期望收到事件, 实际 %+v", msg)
	}
}

// TestFeedForwardsLogger logs=1 的连接接收进程日志
func TestFeedForwardsLogger(t *testing.T) {
	f := NewFeed()
	defer f.Close()
	conn := dialFeed(t, f, "?logs=1")
	waitClients(t, f, 1)

	l := logger.New()
	l.SetConsole(false)
	f.AttachLogger(l)
	l.Warn("template folder missing: %s", "templates")

	msg := readMessage(t, conn)
	if msg.Type != FeedTypeLog || msg.Level != "WARN" || msg.Message != "template folder missing: templates" {
		t.Errorf("日志消息不正确: %+v", msg)
	}
}

func TestFeedCloseDisconnects(t *testing.T) {
	f := NewFeed()
	conn := dialFeed(t, f, "")
	waitClients(t, f, 1)

	f.Close()
	if f.ClientCount() != 0 {
		t.Error("关闭后不应有连接")
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("关闭后读取应失败")
	}
}
