// internal/service/pushgateway/hub.go
// Package pushgateway 维护用户设备的 WebSocket 长连接，
// 把通知服务转投过来的 PUSH 消息下发给在线用户。
package pushgateway

import (
	"encoding/json"
	"net/http"
	"sync"

	"gomall/internal/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 网关前面有接入层做鉴权，这里不再校验来源
	CheckOrigin: func(r *http.Request) bool { return true },
}

// client 包一层写锁，gorilla 的连接不允许并发写。
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Hub 管理 userID 到连接集合的映射。一个用户可能有多台在线设备。
type Hub struct {
	mu    sync.RWMutex
	conns map[string]map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{conns: make(map[string]map[*client]struct{})}
}

func (h *Hub) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ws", h.serveWs)
	mux.HandleFunc("/push", h.push)
}

func (h *Hub) add(userID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[userID] == nil {
		h.conns[userID] = make(map[*client]struct{})
	}
	h.conns[userID][c] = struct{}{}
}

func (h *Hub) remove(userID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.conns[userID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.conns, userID)
		}
	}
}

// serveWs 升级连接并挂到用户名下，读循环只用于感知断开。
func (h *Hub) serveWs(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Ctx(r.Context()).Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	c := &client{conn: conn}
	h.add(userID, c)
	logger.Ctx(r.Context()).Info().Str("user_id", userID).Msg("device connected")

	go func() {
		defer func() {
			h.remove(userID, c)
			conn.Close()
			logger.Logger.Info().Str("user_id", userID).Msg("device disconnected")
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// pushRequest 与通知服务转投的消息结构一致。
type pushRequest struct {
	UserID   string            `json:"userId"`
	Template string            `json:"template"`
	Params   map[string]string `json:"params"`
}

// push 把消息写到目标用户的所有在线连接。
// 用户不在线不算失败，推送本来就是尽力而为。
func (h *Hub) push(w http.ResponseWriter, r *http.Request) {
	var req pushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	payload, err := json.Marshal(map[string]interface{}{
		"template": req.Template,
		"params":   req.Params,
	})
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.conns[req.UserID]))
	for c := range h.conns[req.UserID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range targets {
		if err := c.write(payload); err != nil {
			logger.Ctx(r.Context()).Warn().Err(err).Str("user_id", req.UserID).Msg("push write failed")
			continue
		}
		delivered++
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"delivered": delivered})
}
