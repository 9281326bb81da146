package web

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// connPool holds the websocket connections of one browser. Writes are
// serialized by the pool lock since a websocket.Conn allows one writer.
type connPool struct {
	clientID string
	logger   zerolog.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func newConnPool(clientID string, logger zerolog.Logger) *connPool {
	return &connPool{
		clientID: clientID,
		logger:   logger,
		conns:    map[*websocket.Conn]struct{}{},
	}
}

func (p *connPool) add(conn *websocket.Conn) {
	p.mu.Lock()
	p.conns[conn] = struct{}{}
	p.mu.Unlock()
}

func (p *connPool) remove(conn *websocket.Conn) {
	p.mu.Lock()
	delete(p.conns, conn)
	p.mu.Unlock()
	_ = conn.Close()
}

// sendTo writes the output of encode to conn only, if it is still in the pool.
func (p *connPool) sendTo(conn *websocket.Conn, encode func() ([]byte, error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.conns[conn]; !ok {
		return
	}
	if data, ok := p.encodeLocked(encode); ok {
		p.writeLocked(conn, data)
	}
}

// broadcast writes the output of encode to every connection. encode runs
// under the pool lock, so the last message sent always carries the newest
// state.
func (p *connPool) broadcast(encode func() ([]byte, error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.conns) == 0 {
		return
	}
	data, ok := p.encodeLocked(encode)
	if !ok {
		return
	}
	for conn := range p.conns {
		p.writeLocked(conn, data)
	}
}

func (p *connPool) encodeLocked(encode func() ([]byte, error)) ([]byte, bool) {
	data, err := encode()
	if err != nil {
		p.logger.Error().Err(err).Str("client_id", p.clientID).Msg("cannot encode snapshot")
		return nil, false
	}
	return data, true
}

func (p *connPool) writeLocked(conn *websocket.Conn, data []byte) {
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		p.logger.Warn().Err(err).Str("client_id", p.clientID).Msg("ws write failed, dropping connection")
		delete(p.conns, conn)
		_ = conn.Close()
	}
}

func (p *connPool) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns)
}

func (p *connPool) closeAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for conn := range p.conns {
		_ = conn.Close()
		delete(p.conns, conn)
	}
}
