package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/artnetfx/internal/config"
	"github.com/coreman2200/artnetfx/internal/controller"
	diag "github.com/coreman2200/artnetfx/internal/diagnostics"
	"github.com/coreman2200/artnetfx/internal/dmx"
	"github.com/coreman2200/artnetfx/internal/session"
)

// PreviewInterval throttles the /ws frame preview.
const PreviewInterval = 50 * time.Millisecond

const (
	writeWait = 200 * time.Millisecond
	// sendBuffer is how many messages a client may lag behind before new
	// ones are dropped for it.
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

type Hub struct {
	mu         sync.Mutex
	session    *session.Session
	controller *controller.Controller

	// ConfigPath, when set, receives addressing changes made over /control.
	ConfigPath string
	Config     config.Config
	Driver     string

	frameID     uint64
	lastPreview time.Time
	pending     dmx.Frame
	wake        chan struct{}
	clients     map[*client]bool
	diagClients map[*client]bool
}

// client is one subscriber. Only its writer goroutine touches conn for
// writing; the hub enqueues without blocking.
type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

func (c *client) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case b := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				log.Debug().Err(err).Msg("write to subscriber")
				c.conn.Close()
				return
			}
		}
	}
}

// enqueue drops b when the client's buffer is full.
func (c *client) enqueue(b []byte) {
	select {
	case c.send <- b:
	default:
	}
}

func NewHub(driver string) *Hub {
	return &Hub{
		Driver:      driver,
		wake:        make(chan struct{}, 1),
		clients:     map[*client]bool{},
		diagClients: map[*client]bool{},
	}
}

// Attach binds the session the hub reports on and controls. The session
// is usually built with PublishFrame and PublishStatus as its hooks, so
// Attach comes after session.New.
func (h *Hub) Attach(s *session.Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.session = s
	h.controller = controller.New(s)
}

// PublishFrame is a session.Options.OnFrame hook. It keeps at most one
// pending preview and never blocks the render worker.
func (h *Hub) PublishFrame(f dmx.Frame) {
	h.mu.Lock()
	h.frameID++
	now := time.Now()
	if now.Sub(h.lastPreview) < PreviewInterval || len(h.clients) == 0 {
		h.mu.Unlock()
		return
	}
	h.lastPreview = now
	h.pending = append(h.pending[:0], f...)
	h.mu.Unlock()

	select {
	case h.wake <- struct{}{}:
	default:
	}
}

// PublishStatus is a session.Options.OnStatus hook.
func (h *Hub) PublishStatus(st session.State, msg string) {
	h.pushDiag(diag.New(diag.Info, "SESSION."+strings.ToUpper(st.String()), msg))
}

// Run broadcasts pending previews until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.wake:
			h.mu.Lock()
			buf := append(dmx.Frame(nil), h.pending...)
			id := h.frameID
			h.mu.Unlock()
			h.broadcastFrame(id, buf)
		}
	}
}

func (h *Hub) HandleFramesWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.track(conn, h.clients)
}

func (h *Hub) HandleDiagWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.track(conn, h.diagClients)
}

// track registers conn in set and drops it once the peer goes away.
func (h *Hub) track(conn *websocket.Conn, set map[*client]bool) {
	c := &client{conn: conn, send: make(chan []byte, sendBuffer), done: make(chan struct{})}
	h.mu.Lock()
	set[c] = true
	h.mu.Unlock()
	go c.writeLoop()

	go func() {
		defer func() {
			h.mu.Lock()
			delete(set, c)
			h.mu.Unlock()
			close(c.done)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// HandleControlWS applies each text message as a controller.Request and
// answers with the Result or an error object.
func (h *Hub) HandleControlWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		reply := h.control(r.Context(), data)
		b, _ := json.Marshal(reply)
		conn.SetWriteDeadline(time.Now().Add(time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Debug().Err(err).Msg("write control reply")
			return
		}
	}
}

type errorReply struct {
	Error string `json:"error"`
}

func (h *Hub) control(ctx context.Context, data []byte) any {
	var req controller.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return errorReply{Error: "bad request: " + err.Error()}
	}

	h.mu.Lock()
	c := h.controller
	h.mu.Unlock()
	if c == nil {
		return errorReply{Error: session.ErrTransportUnavailable.Error()}
	}

	res, err := c.Apply(ctx, req)
	h.saveConfig()

	var unknown *controller.UnknownPlayerError
	switch {
	case errors.As(err, &unknown):
		h.pushDiag(diag.New(diag.Warn, "CONTROL.UNKNOWN_PLAYER", "Unknown player id").
			With("player_id", unknown.ID).
			With("allowed", unknown.Allowed))
		return unknown
	case err != nil:
		h.pushDiag(diag.Diagnostic{
			Time: time.Now(), Severity: diag.Err, Code: "CONTROL.FAILED",
			Summary: "Control request failed", Detail: err.Error(),
			LikelyCauses: []string{"fixture unreachable", "transport not configured"},
		})
		return errorReply{Error: err.Error()}
	}
	return res
}

// saveConfig writes the addressing the controller just applied.
func (h *Hub) saveConfig() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ConfigPath == "" {
		return
	}
	h.Config.Leds = h.session.Leds()
	cfg := h.session.AddressConfig()
	h.Config.Universe, h.Config.Address = cfg.Universe, cfg.Address
	if err := config.Save(h.ConfigPath, &h.Config); err != nil {
		log.Warn().Err(err).Str("path", h.ConfigPath).Msg("config save failed")
	}
}

type health struct {
	State      string  `json:"state"`
	Running    bool    `json:"running"`
	Driver     string  `json:"driver"`
	Leds       int     `json:"leds"`
	Universe   int     `json:"universe"`
	Address    int     `json:"address"`
	Effect     string  `json:"effect"`
	FPS        float64 `json:"fps"`
	FrameID    uint64  `json:"frame_id"`
	Frames     uint64  `json:"frames"`
	Dropped    uint64  `json:"dropped"`
	MinDeltaMS float64 `json:"min_delta_ms"`
	MaxDeltaMS float64 `json:"max_delta_ms"`
	UptimeS    float64 `json:"uptime_s"`
}

func (h *Hub) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	s, id := h.session, h.frameID
	h.mu.Unlock()
	if s == nil {
		http.Error(w, "no session", http.StatusServiceUnavailable)
		return
	}

	st := s.Stats()
	cfg := s.AddressConfig()
	resp := health{
		State:      s.State().String(),
		Running:    s.Running(),
		Driver:     h.Driver,
		Leds:       s.Leds(),
		Universe:   cfg.Universe,
		Address:    cfg.Address,
		Effect:     s.Effect().String(),
		FPS:        float64(s.Rate()) / float64(physic.Hertz),
		FrameID:    id,
		Frames:     st.Frames,
		Dropped:    st.Dropped,
		MinDeltaMS: ms(st.MinDelta),
		MaxDeltaMS: ms(st.MaxDelta),
		UptimeS:    s.Uptime().Seconds(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *Hub) HandlePlayers(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(controller.Players())
}

func (h *Hub) broadcastFrame(id uint64, f dmx.Frame) {
	type frame struct {
		T       int64  `json:"t"`
		FrameID uint64 `json:"frame_id"`
		Leds    int    `json:"leds"`
		RGBW    []int  `json:"rgbw"`
	}
	// ints, not []byte, so the payload is a JSON array rather than base64
	vals := make([]int, len(f))
	for i, v := range f {
		vals[i] = int(v)
	}
	b, _ := json.Marshal(frame{T: time.Now().UnixNano(), FrameID: id, Leds: f.Leds(), RGBW: vals})

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.enqueue(b)
	}
}

func (h *Hub) pushDiag(d diag.Diagnostic) {
	b, _ := json.Marshal(d)
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.diagClients {
		c.enqueue(b)
	}
}

func ms(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

