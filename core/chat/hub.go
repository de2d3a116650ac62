package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"auralis/core/apperr"
	"auralis/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// 客户端消息类型
const (
	FrameSendMessage    = "send_message"
	FrameUpdateActivity = "update_activity"
	FramePing           = "ping"
)

// 服务端消息类型
const (
	FrameUsersOnline     = "users_online"
	FrameReceiveMessage  = "receive_message"
	FrameMessageSent     = "message_sent"
	FrameMessageError    = "message_error"
	FrameActivityUpdated = "activity_updated"
	FrameActivities      = "activities"
	FramePong            = "pong"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxFrameSize   = 8192
	sendBufferSize = 64
)

// Frame WebSocket 消息结构
type Frame struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

type sendMessageData struct {
	ReceiverID string `json:"receiverId"`
	Content    string `json:"content"`
}

type activityData struct {
	Activity string `json:"activity"`
}

func encodeFrame(typ string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Type: typ, Data: raw, Timestamp: time.Now().UnixMilli()})
}

// Client 一个 WebSocket 连接
//
// Send 从不关闭，主循环和读循环都会向它写入；连接结束时关闭 done，
// 写循环看到 done 后退出。
type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	Send   chan []byte
	UserID string
	ConnID string

	done      chan struct{}
	closeOnce sync.Once
}

// close 通知写循环退出，可重复调用
func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Done 连接被 Hub 移除后关闭
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Hub 管理本实例的连接，通过 Registry 和 Bus 与其他实例共享在线状态和消息
type Hub struct {
	registry Registry
	bus      Bus
	service  *Service

	// 用户 -> 本实例上的连接，同一用户只保留最新的连接
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopped    chan struct{}
}

// NewHub 创建 Hub
func NewHub(registry Registry, bus Bus, service *Service) *Hub {
	return &Hub{
		registry:   registry,
		bus:        bus,
		service:    service,
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
}

// NewClient 为已升级的连接创建客户端
func (h *Hub) NewClient(conn *websocket.Conn, userID string) *Client {
	return &Client{
		Hub:    h,
		Conn:   conn,
		Send:   make(chan []byte, sendBufferSize),
		UserID: userID,
		ConnID: uuid.NewString(),
		done:   make(chan struct{}),
	}
}

// Run 启动 Hub 主循环，直到 ctx 结束或调用 Stop
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.stopped)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	presence, err := h.bus.Subscribe(ctx, TopicPresenceChanged)
	if err != nil {
		return err
	}
	messages, err := h.bus.Subscribe(ctx, TopicMessageCreated)
	if err != nil {
		return err
	}
	activities, err := h.bus.Subscribe(ctx, TopicActivityUpdated)
	if err != nil {
		return err
	}

	for {
		select {
		case client := <-h.register:
			h.registerClient(ctx, client)

		case client := <-h.unregister:
			h.unregisterClient(ctx, client)

		case _, ok := <-presence:
			if !ok {
				presence = nil
				continue
			}
			h.broadcastOnline(ctx)

		case payload, ok := <-messages:
			if !ok {
				messages = nil
				continue
			}
			h.deliverMessage(payload)

		case payload, ok := <-activities:
			if !ok {
				activities = nil
				continue
			}
			h.deliverActivity(payload)

		case <-h.done:
			h.cleanup(ctx)
			return nil

		case <-ctx.Done():
			h.cleanup(context.Background())
			return ctx.Err()
		}
	}
}

// Stop 停止 Hub 并等待主循环退出
func (h *Hub) Stop() {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
	<-h.stopped
}

// Register 注册客户端
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.close()
	}
}

// Unregister 注销客户端
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) registerClient(ctx context.Context, client *Client) {
	// 同一用户的新连接替换旧连接
	if old, ok := h.clients[client.UserID]; ok {
		old.close()
	}
	h.clients[client.UserID] = client

	if err := h.registry.Add(ctx, client.UserID, client.ConnID); err != nil {
		logger.Warn("failed to add user presence", logger.String("user", client.UserID), logger.ErrorField(err))
	}
	if err := publish(ctx, h.bus, TopicPresenceChanged, Event{UserID: client.UserID}); err != nil {
		logger.Warn("failed to publish presence", logger.ErrorField(err))
	}

	if acts, err := h.registry.Activities(ctx); err == nil {
		h.sendTo(client, FrameActivities, acts)
	} else {
		logger.Warn("failed to load activities", logger.ErrorField(err))
	}

	logger.Info("client registered",
		logger.String("user", client.UserID),
		logger.String("conn", client.ConnID))
}

func (h *Hub) unregisterClient(ctx context.Context, client *Client) {
	current, ok := h.clients[client.UserID]
	if !ok || current != client {
		// 已被新连接替换
		return
	}
	delete(h.clients, client.UserID)
	client.close()

	removed, err := h.registry.Remove(ctx, client.UserID, client.ConnID)
	if err != nil {
		logger.Warn("failed to remove user presence", logger.String("user", client.UserID), logger.ErrorField(err))
	}
	if removed {
		if err := publish(ctx, h.bus, TopicPresenceChanged, Event{UserID: client.UserID}); err != nil {
			logger.Warn("failed to publish presence", logger.ErrorField(err))
		}
	}

	logger.Info("client unregistered",
		logger.String("user", client.UserID),
		logger.String("conn", client.ConnID))
}

func (h *Hub) broadcastOnline(ctx context.Context) {
	online, err := h.registry.Online(ctx)
	if err != nil {
		logger.Warn("failed to list online users", logger.ErrorField(err))
		return
	}
	data, err := encodeFrame(FrameUsersOnline, online)
	if err != nil {
		return
	}
	for _, c := range h.clients {
		h.push(c, data)
	}
}

func (h *Hub) deliverMessage(payload []byte) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil || ev.Message == nil {
		logger.Warn("invalid message event", logger.Any("error", err))
		return
	}
	if c, ok := h.clients[ev.Message.ReceiverID]; ok {
		h.sendTo(c, FrameReceiveMessage, ev.Message)
	}
}

func (h *Hub) deliverActivity(payload []byte) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		logger.Warn("invalid activity event", logger.ErrorField(err))
		return
	}
	data, err := encodeFrame(FrameActivityUpdated, map[string]string{"userId": ev.UserID, "activity": ev.Activity})
	if err != nil {
		return
	}
	for _, c := range h.clients {
		h.push(c, data)
	}
}

func (h *Hub) sendTo(c *Client, typ string, data interface{}) {
	frame, err := encodeFrame(typ, data)
	if err != nil {
		logger.Warn("failed to encode frame", logger.String("type", typ), logger.ErrorField(err))
		return
	}
	h.push(c, frame)
}

// push 只在主循环中调用；发送缓冲区满时断开该客户端
func (h *Hub) push(c *Client, frame []byte) {
	select {
	case c.Send <- frame:
	default:
		logger.Warn("send buffer full, dropping client", logger.String("user", c.UserID))
		delete(h.clients, c.UserID)
		c.close()
		if _, err := h.registry.Remove(context.Background(), c.UserID, c.ConnID); err != nil {
			logger.Warn("failed to remove user presence", logger.ErrorField(err))
		}
	}
}

func (h *Hub) cleanup(ctx context.Context) {
	for userID, c := range h.clients {
		c.close()
		if _, err := h.registry.Remove(ctx, userID, c.ConnID); err != nil {
			logger.Warn("failed to remove user presence", logger.ErrorField(err))
		}
	}
	h.clients = make(map[string]*Client)
}

// reply 在读循环中直接回复发送方，不经过主循环；连接已移除或缓冲区满时丢弃
func (c *Client) reply(typ string, data interface{}) {
	frame, err := encodeFrame(typ, data)
	if err != nil {
		return
	}
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.Send <- frame:
	default:
	}
}

func (c *Client) handle(ctx context.Context, frame *Frame) {
	switch frame.Type {
	case FramePing:
		if err := c.Hub.registry.Touch(ctx, c.UserID, c.ConnID); err != nil {
			logger.Warn("failed to touch presence", logger.String("user", c.UserID), logger.ErrorField(err))
		}
		c.reply(FramePong, map[string]int64{"serverTime": time.Now().UnixMilli()})

	case FrameSendMessage:
		var data sendMessageData
		if err := json.Unmarshal(frame.Data, &data); err != nil {
			c.reply(FrameMessageError, map[string]string{"error": "Invalid message format"})
			return
		}
		msg, err := c.Hub.service.Send(ctx, c.UserID, data.ReceiverID, data.Content)
		if err != nil {
			text := "Failed to send message"
			var e *apperr.Error
			if errors.As(err, &e) && e.Kind == apperr.InvalidInput {
				text = e.Message
			} else {
				logger.Error("send message failed", logger.String("user", c.UserID), logger.ErrorField(err))
			}
			c.reply(FrameMessageError, map[string]string{"error": text})
			return
		}
		c.reply(FrameMessageSent, msg)

	case FrameUpdateActivity:
		var data activityData
		if err := json.Unmarshal(frame.Data, &data); err != nil {
			c.reply(FrameMessageError, map[string]string{"error": "Invalid activity format"})
			return
		}
		if err := c.Hub.registry.SetActivity(ctx, c.UserID, data.Activity); err != nil {
			logger.Warn("failed to set activity", logger.String("user", c.UserID), logger.ErrorField(err))
			return
		}
		if err := publish(ctx, c.Hub.bus, TopicActivityUpdated, Event{UserID: c.UserID, Activity: data.Activity}); err != nil {
			logger.Warn("failed to publish activity", logger.ErrorField(err))
		}

	default:
		c.reply(FrameMessageError, map[string]string{"error": "Unknown message type"})
	}
}

// ReadPump 读取消息循环
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxFrameSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		if err := c.Hub.registry.Touch(ctx, c.UserID, c.ConnID); err != nil {
			logger.Debug("failed to touch presence", logger.ErrorField(err))
		}
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				logger.Warn("websocket read error", logger.String("user", c.UserID), logger.ErrorField(err))
			}
			return
		}
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.reply(FrameMessageError, map[string]string{"error": "Invalid message format"})
			continue
		}
		c.handle(ctx, &frame)
	}
}

// WritePump 写入消息循环，每个帧单独发送
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
