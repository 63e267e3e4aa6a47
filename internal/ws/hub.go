package ws

import (
	"encoding/json"
	"io"
	"sync"

	"go.uber.org/zap"
)

// frame WebSocket 下行帧：事件名 + 负载
type frame struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// peer 单条 WebSocket 连接的发送端
//
// json.Encoder 非并发安全，Mutex 保证同一连接上的帧不交错
type peer struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

func newPeer(w io.Writer) *peer {
	return &peer{encoder: json.NewEncoder(w)}
}

func (p *peer) writeFrame(f frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.encoder.Encode(f)
}

// Hub 实时事件扇出中枢
//
// 同一用户允许多条并存连接（多端登录），按 userID 索引全部连接；
// 实现 service.Notifier，推送为尽力而为：单连接写失败只记日志，
// 持久对账靠站内通知表
type Hub struct {
	mu     sync.Mutex
	peers  map[string]map[*peer]struct{} // userID → connections
	logger *zap.Logger
}

// NewHub 创建 Hub 实例
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		peers:  make(map[string]map[*peer]struct{}),
		logger: logger,
	}
}

func (h *Hub) register(userID string, p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.peers[userID]
	if !ok {
		set = make(map[*peer]struct{})
		h.peers[userID] = set
	}
	set[p] = struct{}{}
}

func (h *Hub) unregister(userID string, p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.peers[userID]
	if !ok {
		return
	}
	delete(set, p)
	if len(set) == 0 {
		delete(h.peers, userID)
	}
}

// ConnectionCount 当前在线连接总数
func (h *Hub) ConnectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, set := range h.peers {
		n += len(set)
	}
	return n
}

// SendToUser 向指定用户的全部在线连接推送事件
func (h *Hub) SendToUser(userID string, event string, payload interface{}) {
	h.mu.Lock()
	targets := make([]*peer, 0, len(h.peers[userID]))
	for p := range h.peers[userID] {
		targets = append(targets, p)
	}
	h.mu.Unlock()

	f := frame{Event: event, Data: payload}
	for _, p := range targets {
		if err := p.writeFrame(f); err != nil {
			h.logger.Warn("推送事件失败",
				zap.String("user_id", userID),
				zap.String("event", event),
				zap.Error(err),
			)
		}
	}
}

// Broadcast 向全部在线连接推送事件
func (h *Hub) Broadcast(event string, payload interface{}) {
	h.mu.Lock()
	targets := make([]*peer, 0)
	for _, set := range h.peers {
		for p := range set {
			targets = append(targets, p)
		}
	}
	h.mu.Unlock()

	f := frame{Event: event, Data: payload}
	for _, p := range targets {
		if err := p.writeFrame(f); err != nil {
			h.logger.Warn("广播事件失败", zap.String("event", event), zap.Error(err))
		}
	}
}
