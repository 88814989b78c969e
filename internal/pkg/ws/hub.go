package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const defaultWriteWait = 10 * time.Second

// Hub 订阅者的实时连接，同一用户可以同时在线多个连接
type Hub struct {
	writeWait time.Duration

	mu    sync.RWMutex
	conns map[int64]map[*Client]struct{}
}

// Client 一条已升级的连接，写操作串行
type Client struct {
	UserID int64
	Conn   *websocket.Conn

	writeMu sync.Mutex
}

// Message 推送给浏览器的帧
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Delivery 一次推送的结果。Online 为有连接的用户数，Delivered 和 Failed 按连接计
type Delivery struct {
	Online    int
	Delivered int
	Failed    int
}

// NewHub writeWait 为单次写入的截止时间，<=0 时取 10 秒
func NewHub(writeWait time.Duration) *Hub {
	if writeWait <= 0 {
		writeWait = defaultWriteWait
	}
	return &Hub{
		writeWait: writeWait,
		conns:     make(map[int64]map[*Client]struct{}),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	set, ok := h.conns[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		h.conns[c.UserID] = set
	}
	set[c] = struct{}{}
	n := len(set)
	h.mu.Unlock()

	log.Printf("ws connected: user=%d user_conns=%d", c.UserID, n)
}

// Unregister 可重复调用，只有首次移除时记录日志
func (h *Hub) Unregister(c *Client) {
	if h.remove(c) {
		log.Printf("ws disconnected: user=%d", c.UserID)
	}
}

func (h *Hub) remove(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.conns[c.UserID]
	if !ok {
		return false
	}
	if _, ok := set[c]; !ok {
		return false
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.conns, c.UserID)
	}
	return true
}

// SendToUsers 把同一条消息推给一批用户，重复的用户只推一次。
// 写入失败或超时的连接会被关闭并移出 Hub
func (h *Hub) SendToUsers(userIDs []int64, msg *Message) (Delivery, error) {
	var d Delivery
	payload, err := json.Marshal(msg)
	if err != nil {
		return d, err
	}

	seen := make(map[int64]struct{}, len(userIDs))
	for _, id := range userIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		targets := h.snapshot(id)
		if len(targets) == 0 {
			continue
		}
		d.Online++
		for _, c := range targets {
			if err := h.writeTo(c, payload); err != nil {
				d.Failed++
				log.Printf("ws write failed, dropping conn: user=%d type=%s err=%v", id, msg.Type, err)
				h.Unregister(c)
				c.Conn.Close()
				continue
			}
			d.Delivered++
		}
	}
	return d, nil
}

func (h *Hub) snapshot(userID int64) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	set := h.conns[userID]
	out := make([]*Client, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

func (h *Hub) writeTo(c *Client, payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.Conn.SetWriteDeadline(time.Now().Add(h.writeWait)); err != nil {
		return err
	}
	return c.Conn.WriteMessage(websocket.TextMessage, payload)
}

// Close 关闭全部连接，用于服务退出
func (h *Hub) Close() {
	h.mu.Lock()
	all := h.conns
	h.conns = make(map[int64]map[*Client]struct{})
	h.mu.Unlock()

	for _, set := range all {
		for c := range set {
			c.writeMu.Lock()
			_ = c.Conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
				time.Now().Add(time.Second))
			c.writeMu.Unlock()
			c.Conn.Close()
		}
	}
}

func (h *Hub) IsOnline(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID]) > 0
}

// ConnectionCount 所有用户的连接总数
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.conns {
		n += len(set)
	}
	return n
}
