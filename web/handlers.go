package web

import (
	"embed"
	"encoding/json"
	"html/template"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/mhpenta/genstudio"
	"github.com/mhpenta/genstudio/view"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type indexData struct {
	Title            string
	Kinds            []view.Kind
	Current          view.Kind
	ProgressText     string
	PlaceholderTitle string
	PlaceholderHint  string
}

type viewRequest struct {
	View string `json:"view"`
}

type chatRequest struct {
	Text string `json:"text"`
}

type imageRequest struct {
	Prompt string `json:"prompt"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	c := s.clientFor(w, r)
	data := indexData{
		Title:            "Gemini Creative Suite",
		Kinds:            view.Kinds,
		Current:          c.switcher.Current(),
		ProgressText:     view.ProgressText,
		PlaceholderTitle: view.PlaceholderTitle,
		PlaceholderHint:  view.PlaceholderHint,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		s.logger.Error().Err(err).Msg("cannot render page")
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	c := s.clientFor(w, r)
	writeJSON(w, http.StatusOK, c.switcher.Snapshot())
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.gateway.Models())
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	c := s.clientFor(w, r)

	var req viewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	kind, err := view.ParseKind(req.View)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	changed, err := c.switcher.Select(r.Context(), kind)
	if err != nil {
		s.logger.Error().Err(err).Str("client_id", c.id).Msg("chat session failed to start")
	}
	if changed {
		s.logger.Debug().Str("client_id", c.id).Stringer("view", kind).Msg("switched view")
		s.publish(c)
	}
	writeJSON(w, http.StatusOK, c.switcher.Snapshot())
}

// handleChat starts a turn and answers at once; the reply arrives through
// the state endpoint and the websocket.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	c := s.clientFor(w, r)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := genstudio.ValidatePrompt(req.Text); err != nil {
		http.Error(w, "missing message", http.StatusBadRequest)
		return
	}
	conv := c.switcher.Conversation()
	if conv == nil {
		http.Error(w, "chat is not the current view", http.StatusConflict)
		return
	}
	turn, ok := conv.Begin(req.Text)
	if !ok {
		http.Error(w, "chat is not ready for a message", http.StatusConflict)
		return
	}
	s.publish(c)

	go func() {
		reply := conv.Run(s.ctx, turn)
		if !conv.Settle(turn, reply) {
			return
		}
		if reply.Err != nil {
			s.logger.Warn().Err(reply.Err).Str("client_id", c.id).Msg("chat turn failed")
		}
		s.publish(c)
	}()

	writeJSON(w, http.StatusAccepted, c.switcher.Snapshot())
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	c := s.clientFor(w, r)

	var req imageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := genstudio.ValidatePrompt(req.Prompt); err != nil {
		http.Error(w, "missing prompt", http.StatusBadRequest)
		return
	}
	img := c.switcher.Image()
	if img == nil {
		http.Error(w, "image generator is not the current view", http.StatusConflict)
		return
	}
	ireq, ok := img.Begin(req.Prompt)
	if !ok {
		http.Error(w, "an image is already being generated", http.StatusConflict)
		return
	}
	s.publish(c)

	go func() {
		reply := img.Run(s.ctx, ireq)
		if !img.Settle(ireq, reply) {
			return
		}
		if reply.Err != nil {
			s.logger.Warn().Err(reply.Err).Str("client_id", c.id).Str("prompt", ireq.Prompt).Msg("image generation failed")
		}
		s.publish(c)
	}()

	writeJSON(w, http.StatusAccepted, c.switcher.Snapshot())
}

// handleWS streams snapshots of the browser's page. The first message is the
// current state.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookup(r)
	if !ok {
		http.Error(w, "unknown client", http.StatusNotFound)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	c.pool.add(conn)
	defer s.touch(c)
	defer c.pool.remove(conn)

	c.pool.sendTo(conn, c.encodeSnapshot)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug().Err(err).Str("client_id", c.id).Msg("websocket closed")
			}
			return
		}
	}
}
