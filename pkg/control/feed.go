package control

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zoeyai/triggerclicker/internal/logger"
	"github.com/zoeyai/triggerclicker/pkg/engine"
)

// 推送消息类型
const (
	FeedTypeEvent = "event"
	FeedTypeLog   = "log"
)

const (
	feedSendBuffer = 128
	feedWriteWait  = 10 * time.Second
	feedPongWait   = 60 * time.Second
	feedPingPeriod = 30 * time.Second
)

// FeedMessage 推送给 WebSocket 客户端的消息
type FeedMessage struct {
	Type    string                 `json:"type"`
	Time    int64                  `json:"time"` // 毫秒时间戳
	Level   string                 `json:"level"`
	Kind    string                 `json:"kind,omitempty"`
	Message string                 `json:"message"`
	Fields  map[string]interface{} `json:"fields,omitempty"`
}

type feedClient struct {
	conn *websocket.Conn
	send chan []byte
	// logs 是否同时接收原始日志行
	logs bool
}

// Feed WebSocket 日志推送。
// 连接 /ws 只接收引擎事件，/ws?logs=1 同时接收进程日志行。
type Feed struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*feedClient]struct{}
	closed  bool
}

// NewFeed 创建日志推送
func NewFeed() *Feed {
	return &Feed{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// 仅监听本机地址，允许任意来源的本地界面连接
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*feedClient]struct{}),
	}
}

// AttachEngine 转发引擎事件，返回取消函数
func (f *Feed) AttachEngine(e *engine.Engine) func() {
	return e.OnLogEvent(func(ev engine.Event) {
		f.Publish(FeedMessage{
			Type:    FeedTypeEvent,
			Time:    ev.Time.UnixMilli(),
			Level:   ev.Level,
			Kind:    string(ev.Kind),
			Message: ev.Message,
			Fields:  ev.Fields,
		})
	})
}

// AttachLogger 转发进程日志行
func (f *Feed) AttachLogger(l *logger.Logger) {
	l.AddHook(func(level logger.Level, msg string) {
		f.Publish(FeedMessage{
			Type:    FeedTypeLog,
			Time:    time.Now().UnixMilli(),
			Level:   level.String(),
			Message: msg,
		})
	})
}

// ClientCount 当前连接数
func (f *Feed) ClientCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

// Publish 广播消息，发送队列已满的客户端会被断开
func (f *Feed) Publish(msg FeedMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for c := range f.clients {
		if msg.Type == FeedTypeLog && !c.logs {
			continue
		}
		select {
		case c.send <- data:
		default:
			f.removeLocked(c)
		}
	}
}

// ServeHTTP 升级为 WebSocket 连接
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("[feed] WebSocket upgrade failed: %v", err)
		return
	}

	c := &feedClient{
		conn: conn,
		send: make(chan []byte, feedSendBuffer),
		logs: r.URL.Query().Get("logs") == "1",
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		conn.Close()
		return
	}
	f.clients[c] = struct{}{}
	f.mu.Unlock()

	go f.writeLoop(c)
	go f.readLoop(c)
}

// Close 断开全部客户端
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	for c := range f.clients {
		f.removeLocked(c)
	}
}

func (f *Feed) remove(c *feedClient) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeLocked(c)
}

func (f *Feed) removeLocked(c *feedClient) {
	if _, ok := f.clients[c]; !ok {
		return
	}
	delete(f.clients, c)
	close(c.send)
}

// writeLoop 发送队列中的消息并定期 ping
func (f *Feed) writeLoop(c *feedClient) {
	ticker := time.NewTicker(feedPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				f.remove(c)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				f.remove(c)
				return
			}
		}
	}
}

// readLoop 只处理 pong 与关闭，客户端发来的消息被忽略
func (f *Feed) readLoop(c *feedClient) {
	defer f.remove(c)

	c.conn.SetReadDeadline(time.Now().Add(feedPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(feedPongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
