// Package preview serves a live view of a component over a websocket. Every
// connection gets its own component, container and engine root; events sent
// by the browser are dispatched through the engine host and answered with the
// re-rendered markup.
package preview

import (
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/livefir/livepart"
	"github.com/livefir/livepart/internal/dom"
	"github.com/livefir/livepart/internal/memory"
	"github.com/livefir/livepart/internal/session"
)

// Component renders itself into a root. Render is called once on connect and
// again after every dispatched event.
type Component interface {
	Render(e *livepart.Engine, r *livepart.Root) error
}

// Factory creates the component of one connection.
type Factory func() Component

// Frame is sent to the browser after every render.
type Frame struct {
	HTML    string `json:"html"`
	Session string `json:"session,omitempty"`
}

// Stats is served on /stats.
type Stats struct {
	Engine       livepart.Metrics            `json:"engine"`
	Cache        livepart.CacheStats         `json:"cache"`
	CacheHitRate float64                     `json:"cache_hit_rate"`
	SkipRate     float64                     `json:"skip_rate"`
	Memory       memory.Status               `json:"memory"`
	Largest      []memory.TemplateMemoryInfo `json:"largest_templates"`
	Dispatched   map[string]int64            `json:"dispatched"`
	Sessions     []session.Session           `json:"sessions"`
}

// clientEvents are the event types the preview page forwards.
var clientEvents = map[string]bool{"click": true, "input": true, "change": true}

// Message is an event sent by the browser.
type Message struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Detail any    `json:"detail,omitempty"`
}

// Server serves the preview page on "/", the websocket on "/ws" and engine
// statistics on "/stats".
type Server struct {
	engine   *livepart.Engine
	factory  Factory
	upgrader websocket.Upgrader
	sessions *session.Manager
	logger   *slog.Logger
	mux      *http.ServeMux

	connections atomic.Int64
}

// NewServer creates a preview server for components made by factory.
func NewServer(engine *livepart.Engine, factory Factory, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		engine:  engine,
		factory: factory,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		sessions: session.NewManager(30 * time.Minute),
		logger:   logger.With("component", "preview"),
		mux:      http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /", s.handlePage)
	s.mux.HandleFunc("GET /ws", s.handleWebSocket)
	s.mux.HandleFunc("GET /stats", s.handleStats)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Connections returns the number of open websocket connections.
func (s *Server) Connections() int64 {
	return s.connections.Load()
}

// view is the rendering state of one connection.
type view struct {
	id        string
	component Component
	container *html.Node
	root      *livepart.Root
}

func (s *Server) newView() (*view, error) {
	container := &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
		Attr:     []html.Attribute{{Key: "id", Val: "app"}},
	}
	v := &view{
		component: s.factory(),
		container: container,
		root:      s.engine.Attach(container),
	}
	if err := v.component.Render(s.engine, v.root); err != nil {
		return nil, fmt.Errorf("initial render failed: %w", err)
	}
	return v, nil
}

func (v *view) frame() Frame {
	return Frame{HTML: dom.InnerHTML(v.container), Session: v.id}
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	v, err := s.newView()
	if err != nil {
		s.logger.Error("page render failed", "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, template.HTML(v.frame().HTML)); err != nil {
		s.logger.Error("page write failed", "error", err)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	s.connections.Add(1)
	defer s.connections.Add(-1)
	s.logger.Info("client connected", "remote", conn.RemoteAddr().String())

	if expired := s.sessions.Cleanup(); expired > 0 {
		s.logger.Debug("expired idle sessions", "count", expired)
	}
	sess, err := s.sessions.Create(conn.RemoteAddr().String())
	if err != nil {
		s.logger.Error("session start failed", "error", err)
		return
	}
	defer s.sessions.Delete(sess.ID)

	v, err := s.newView()
	if err != nil {
		s.logger.Error("session start failed", "session", sess.ID, "error", err)
		return
	}
	v.id = sess.ID
	if err := conn.WriteJSON(v.frame()); err != nil {
		s.logger.Warn("initial frame write failed", "error", err)
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Warn("websocket read failed", "error", err)
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Warn("malformed message", "error", err)
			continue
		}

		if !clientEvents[msg.Type] {
			s.logger.Warn("unsupported event type", "session", sess.ID, "type", msg.Type)
			continue
		}
		target := dom.FindByID(v.container, msg.ID)
		if target == nil {
			s.logger.Warn("event target not found", "id", msg.ID, "type", msg.Type)
			continue
		}
		handled := s.engine.Dispatch(target, msg.Type, msg.Detail)
		s.sessions.Touch(sess.ID)
		s.logger.Debug("event dispatched", "session", sess.ID, "id", msg.ID, "type", msg.Type, "listeners", handled)

		if err := v.component.Render(s.engine, v.root); err != nil {
			s.logger.Error("render failed", "session", sess.ID, "error", err)
			continue
		}
		if err := conn.WriteJSON(v.frame()); err != nil {
			s.logger.Warn("frame write failed", "error", err)
			break
		}
	}

	v.root.Detach()
	s.logger.Info("client disconnected", "session", sess.ID)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := Stats{
		Engine:       s.engine.Metrics(),
		Cache:        s.engine.CacheStats(),
		CacheHitRate: s.engine.CacheHitRate(),
		SkipRate:     s.engine.SkipRate(),
		Memory:       s.engine.MemoryStatus(),
		Largest:      s.engine.LargestTemplates(5),
		Dispatched:   s.engine.DispatchCounts(),
		Sessions:     s.sessions.List(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		s.logger.Error("stats write failed", "error", err)
	}
}
