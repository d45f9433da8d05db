package dev

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	ierrors "github.com/vango-dev/interactivity/internal/errors"
	"github.com/vango-dev/interactivity/pkg/dom"
	"github.com/vango-dev/interactivity/pkg/interactivity"
	"github.com/vango-dev/interactivity/pkg/middleware"
	"github.com/vango-dev/interactivity/pkg/vdom"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// MessageType names a live session message.
type MessageType string

const (
	// Client to server.
	MessageEvent MessageType = "event"
	MessagePing  MessageType = "ping"

	// Server to client.
	MessageReady   MessageType = "ready"
	MessagePatches MessageType = "patches"
	MessageError   MessageType = "error"
	MessageReload  MessageType = "reload"
	MessagePong    MessageType = "pong"
)

// ClientMessage is sent by the browser.
type ClientMessage struct {
	Type  MessageType `json:"type"`
	HID   string      `json:"hid,omitempty"`
	Event string      `json:"event,omitempty"`
	interactivity.EventInit
}

// ServerMessage is sent to the browser.
type ServerMessage struct {
	Type    MessageType `json:"type"`
	Page    string      `json:"page,omitempty"`
	Patches []WirePatch `json:"patches,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// WirePatch is a patch as streamed to the browser. Inserted nodes carry
// their markup, since the browser may never have seen them.
type WirePatch struct {
	vdom.Patch
	HTML string `json:"html,omitempty"`
}

// session is one browser tab driving its own runtime. Everything except
// send and the connection's Close runs on the connection's goroutine.
type session struct {
	page   string
	conn   *websocket.Conn
	rt     *interactivity.Runtime
	logger *slog.Logger

	writeMu sync.Mutex
	pending []vdom.Patch
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	name := pageName(r.URL.Query().Get("page"))
	markup, err := s.source.Read(r.Context(), name)
	if err != nil {
		s.pageError(w, name, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		middleware.RecordWebSocketError("upgrade")
		return
	}
	defer conn.Close()

	ctx := r.Context()
	rt, err := s.hydrate(ctx, markup)
	if err != nil {
		s.logError("hydrate "+name, err)
		(&session{page: name, conn: conn}).sendError(err)
		return
	}
	defer rt.Close()
	rt.Settle(SettleFrames)

	sess := &session{
		page:   name,
		conn:   conn,
		rt:     rt,
		logger: s.logger.With("page", name),
	}
	stop := rt.Document().Observe(sess.record)
	defer stop()

	s.track(sess)
	defer s.untrack(sess)
	middleware.RecordSessionOpen()
	defer middleware.RecordSessionClose()

	if err := sess.send(ServerMessage{Type: MessageReady, Page: name}); err != nil {
		return
	}
	sess.run(ctx)
}

func (ss *session) record(p vdom.Patch) {
	ss.pending = append(ss.pending, p)
}

// run reads messages until the connection closes.
func (ss *session) run(ctx context.Context) {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ss.keepAlive(done)
	}()
	defer func() {
		close(done)
		wg.Wait()
	}()

	ss.conn.SetReadDeadline(time.Now().Add(pongWait))
	ss.conn.SetPongHandler(func(string) error {
		return ss.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := ss.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				ss.logger.Warn("live session read failed", "error", err)
				middleware.RecordWebSocketError("read")
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			middleware.RecordWebSocketError("decode")
			ss.sendError(err)
			continue
		}
		if err := ss.handle(ctx, msg); err != nil {
			return
		}
	}
}

// handle processes one message. A returned error means the connection is
// no longer writable.
func (ss *session) handle(ctx context.Context, msg ClientMessage) error {
	switch msg.Type {
	case MessagePing:
		return ss.send(ServerMessage{Type: MessagePong})

	case MessageEvent:
		doc := ss.rt.Document()
		node, ok := doc.ByHID(msg.HID)
		if !ok {
			return ss.sendError(ierrors.New(ierrors.CodeHydrationTarget).
				WithDetailf("no element with hydration ID %q", msg.HID))
		}
		_, fireErr := ss.rt.Fire(ctx, node, msg.Event, msg.EventInit)
		ss.rt.Settle(SettleFrames)
		if err := ss.flush(); err != nil {
			return err
		}
		if fireErr != nil {
			return ss.sendError(fireErr)
		}
		return nil

	default:
		return ss.sendError(errors.New("unknown message type " + string(msg.Type)))
	}
}

// flush sends the patches recorded since the last flush.
func (ss *session) flush() error {
	if len(ss.pending) == 0 {
		return nil
	}
	doc := ss.rt.Document()
	patches := make([]WirePatch, 0, len(ss.pending))
	for _, p := range ss.pending {
		wp := WirePatch{Patch: p}
		if p.Op == vdom.PatchInsertNode {
			if n, ok := doc.ByHID(p.HID); ok {
				var b strings.Builder
				if err := doc.RenderNode(&b, n, dom.RenderOptions{HIDs: true}); err == nil {
					wp.HTML = b.String()
				}
			}
		}
		patches = append(patches, wp)
	}
	ss.pending = nil

	middleware.RecordPatches(len(patches))
	return ss.send(ServerMessage{Type: MessagePatches, Patches: patches})
}

func (ss *session) sendError(err error) error {
	return ss.send(ServerMessage{Type: MessageError, Error: err.Error(), Code: errorCode(err)})
}

// send writes one message. Safe for concurrent use.
func (ss *session) send(msg ServerMessage) error {
	ss.writeMu.Lock()
	defer ss.writeMu.Unlock()

	ss.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := ss.conn.WriteJSON(msg); err != nil {
		middleware.RecordWebSocketError("write")
		return err
	}
	return nil
}

func (ss *session) keepAlive(done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := ss.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func errorCode(err error) string {
	var ve *ierrors.VangoError
	if errors.As(err, &ve) {
		return ve.Code
	}
	return ""
}

// =============================================================================
// Session registry
// =============================================================================

func (s *Server) track(ss *session) {
	s.mu.Lock()
	s.sessions[ss] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrack(ss *session) {
	s.mu.Lock()
	delete(s.sessions, ss)
	s.mu.Unlock()
}

// Sessions returns the number of open live sessions.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) snapshot() []*session {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]*session, 0, len(s.sessions))
	for ss := range s.sessions {
		list = append(list, ss)
	}
	return list
}

// reloadPages tells sessions showing one of pages to reload.
func (s *Server) reloadPages(pages []string) {
	changed := make(map[string]bool, len(pages))
	for _, p := range pages {
		changed[p] = true
		s.log("Changed: %s", p)
	}
	for _, ss := range s.snapshot() {
		if changed[ss.page] {
			if err := ss.send(ServerMessage{Type: MessageReload, Page: ss.page}); err != nil {
				ss.conn.Close()
			}
		}
	}
}

// closeSessions closes every live connection; their read loops then exit.
func (s *Server) closeSessions() {
	for _, ss := range s.snapshot() {
		ss.conn.Close()
	}
}
