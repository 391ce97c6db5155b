package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/triplewave/internal/app"
	"github.com/coreman2200/triplewave/internal/channel"
	"github.com/coreman2200/triplewave/internal/config"
	diag "github.com/coreman2200/triplewave/internal/diagnostics"
	"github.com/coreman2200/triplewave/internal/led"
	"github.com/coreman2200/triplewave/internal/protocol"
	"github.com/coreman2200/triplewave/internal/tests"
)

// Controller is the part of app.Controller the sockets drive.
type Controller interface {
	Submit(app.Command) error
	Snapshot() app.Status
}

const (
	writeWait = 200 * time.Millisecond
	// diagQueue bounds the diagnostics waiting for RunDiagLoop.
	diagQueue = 64
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

type State struct {
	mu  sync.RWMutex
	Ctl Controller

	// Config is saved to ConfigPath when the animation style changes. Channel
	// settings are never persisted.
	Config        *config.Config
	ConfigPath    string
	CurrentDriver string

	statusID    uint64
	startTime   time.Time
	clients     map[*websocket.Conn]bool
	diagClients map[*websocket.Conn]bool
	diagQ       chan diag.Diagnostic
}

func NewState(ctl Controller, cfg *config.Config, path string) *State {
	return &State{
		Ctl:         ctl,
		Config:      cfg,
		ConfigPath:  path,
		startTime:   time.Now(),
		clients:     map[*websocket.Conn]bool{},
		diagClients: map[*websocket.Conn]bool{},
		diagQ:       make(chan diag.Diagnostic, diagQueue),
	}
}

type status struct {
	T  int64  `json:"t"`
	ID uint64 `json:"id"`
	app.Status
}

// RunStatusLoop pushes a snapshot to every status client each interval until
// done is closed.
func (s *State) RunStatusLoop(done <-chan struct{}, interval time.Duration) {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.broadcastStatus()
		}
	}
}

func (s *State) encodeStatus() []byte {
	s.mu.Lock()
	s.statusID++
	id := s.statusID
	s.mu.Unlock()
	b, _ := json.Marshal(status{T: time.Now().UnixNano(), ID: id, Status: s.Ctl.Snapshot()})
	return b
}

func (s *State) broadcastStatus() {
	b := s.encodeStatus()
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.clients {
		c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Debug().Err(err).Msg("write status")
		}
	}
}

// HandleStatusWS sends the current status at once and then every loop tick.
func (s *State) HandleStatusWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteMessage(websocket.TextMessage, s.encodeStatus())
	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()
	go s.drainUntilClosed(conn, s.clients)
}

func (s *State) HandleDiagWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.diagClients[conn] = true
	s.mu.Unlock()
	go s.drainUntilClosed(conn, s.diagClients)
}

func (s *State) drainUntilClosed(conn *websocket.Conn, set map[*websocket.Conn]bool) {
	defer func() {
		s.mu.Lock()
		delete(set, conn)
		s.mu.Unlock()
		conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

type reply struct {
	OK     bool        `json:"ok"`
	Error  string      `json:"error,omitempty"`
	Status *app.Status `json:"status,omitempty"`
}

// HandleControlWS reads one json object per message and answers each with a
// reply carrying the latest status.
func (s *State) HandleControlWS(w http.ResponseWriter, r *http.Request) {
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
		var msg map[string]any
		rep := reply{OK: true}
		if err := json.Unmarshal(data, &msg); err != nil {
			rep = reply{Error: "bad json: " + err.Error()}
		} else if err := s.applyControl(msg); err != nil {
			rep = reply{Error: err.Error()}
		}
		st := s.Ctl.Snapshot()
		rep.Status = &st
		b, _ := json.Marshal(rep)
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			return
		}
	}
}

func (s *State) HandleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.Ctl.Snapshot()
	s.mu.RLock()
	defer s.mu.RUnlock()
	resp := map[string]any{
		"status_id": s.statusID,
		"uptime_s":  time.Since(s.startTime).Seconds(),
		"channels":  len(st.Channels),
		"synced":    st.Synced,
		"events":    st.Events,
		"dropped":   st.Dropped,
		"driver":    s.CurrentDriver,
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// applyControl turns one control message into commands. Recognised keys:
// op/channel/steps/state, event/channel, line, runTest and animation.
func (s *State) applyControl(msg map[string]any) error {
	var errs []error
	submit := func(cmd app.Command) {
		if err := s.Ctl.Submit(cmd); err != nil {
			errs = append(errs, err)
		}
	}
	if v, ok := msg["op"].(string); ok {
		cmd, err := parseOp(v, msg)
		if err != nil {
			errs = append(errs, err)
		} else {
			submit(cmd)
		}
	}
	if v, ok := msg["event"].(string); ok {
		line, err := eventLine(v, msg)
		if err != nil {
			errs = append(errs, err)
		} else {
			submit(app.Command{Op: app.OpLine, Line: line})
		}
	}
	if v, ok := msg["line"].(string); ok {
		submit(app.Command{Op: app.OpLine, Line: v})
	}
	if v, ok := msg["runTest"].(string); ok {
		if k, ok := tests.ParseKind(v); ok {
			submit(app.Command{Op: app.OpSelfTest, Test: k})
		} else {
			s.PushDiag(diag.Diagnostic{
				Severity: diag.Warn, Code: diag.CodeTestUnknown, Summary: "Unknown test name",
				Evidence: map[string]any{"name": v}, Time: time.Now(),
			})
			errs = append(errs, fmt.Errorf("unknown test %q", v))
		}
	}
	if v, ok := msg["animation"].(string); ok {
		if style, ok := led.ParseStyle(v); ok {
			submit(app.Command{Op: app.OpAnimation, Style: style})
			s.saveConfig(style)
		} else {
			errs = append(errs, fmt.Errorf("unknown animation style %q", v))
		}
	}
	return errors.Join(errs...)
}

func parseOp(op string, msg map[string]any) (app.Command, error) {
	cmd := app.Command{Op: app.Op(op)}
	if v, ok := msg["channel"].(float64); ok {
		cmd.Channel = int(v)
	}
	if v, ok := msg["steps"].(float64); ok {
		cmd.Steps = int(v)
	}
	switch cmd.Op {
	case app.OpFrequency, app.OpPhase, app.OpStep:
		if cmd.Steps == 0 {
			cmd.Steps = 1
		}
	case app.OpToggle, app.OpReset:
	case app.OpState:
		v, _ := msg["state"].(string)
		st, err := channel.ParseState(v)
		if err != nil {
			return cmd, err
		}
		cmd.State = st
	default:
		return cmd, fmt.Errorf("unknown op %q", op)
	}
	return cmd, nil
}

// eventLine encodes a named event as the two digit line a board would send.
func eventLine(kind string, msg map[string]any) (string, error) {
	k, ok := protocol.ParseKind(kind)
	if !ok {
		return "", fmt.Errorf("unknown event %q", kind)
	}
	ch, _ := msg["channel"].(float64)
	line := strings.TrimSuffix(protocol.Event{Channel: int(ch), Kind: k}.Encode(), "\n")
	if _, err := protocol.Decode(line); err != nil {
		return "", fmt.Errorf("event %s on channel %v: %w", kind, ch, err)
	}
	return line, nil
}

func (s *State) saveConfig(style led.Style) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Config == nil {
		return
	}
	s.Config.Animation.Style = style
	if s.ConfigPath == "" {
		return
	}
	if err := config.Save(s.ConfigPath, s.Config); err != nil {
		log.Warn().Err(err).Str("path", s.ConfigPath).Msg("save config")
	}
}

// PushDiag queues d for RunDiagLoop and never blocks; it has the diag.Sink
// shape and is called from the controller's poll loop. A full queue drops d.
func (s *State) PushDiag(d diag.Diagnostic) {
	select {
	case s.diagQ <- d:
	default:
		log.Debug().Str("code", d.Code).Msg("diag queue full, dropped")
	}
}

// RunDiagLoop fans queued diagnostics out to every diagnostics client until
// done is closed.
func (s *State) RunDiagLoop(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case d := <-s.diagQ:
			s.writeDiag(d)
		}
	}
}

func (s *State) writeDiag(d diag.Diagnostic) {
	b, _ := json.Marshal(d)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.diagClients {
		c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Debug().Err(err).Msg("write diag")
		}
	}
}

func (s *State) diagCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.diagClients)
}

func (s *State) statusCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}
