package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kostiamol/fridgemon/log"
)

const writeWait = time.Second

type (
	// StreamCfg is used to initialize an instance of Stream.
	StreamCfg struct {
		Log     log.Logger
		SubChan <-chan []byte
	}

	// Stream fans every published payload out to the connected websocket clients.
	Stream struct {
		log      log.Logger
		subChan  <-chan []byte
		upgrader websocket.Upgrader
		conns    connList
	}
)

// NewStream creates and initializes a new instance of Stream.
func NewStream(c *StreamCfg) *Stream {
	return &Stream{
		log:     c.Log.With("component", "stream"),
		subChan: c.SubChan,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Run streams payloads until ctx is done and then closes every connection.
func (s *Stream) Run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.log.With("event", log.EventPanic).Errorf("func Run: %s", r)
		}
		s.conns.closeAll()
	}()

	for {
		select {
		case msg, ok := <-s.subChan:
			if !ok {
				return
			}
			s.stream(msg)
		case <-ctx.Done():
			return
		}
	}
}

// Conns returns the number of connected clients.
func (s *Stream) Conns() int {
	return s.conns.len()
}

func (s *Stream) addConnHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Errorf("func Upgrade: %s", err)
		return
	}
	s.conns.addConn(conn)
	s.log.With("event", log.EventWSConnAdded).Infof("addr [%v]", conn.RemoteAddr())

	go s.listenClose(conn)
}

// listenClose drains the client until the connection fails.
func (s *Stream) listenClose(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			s.remove(conn)
			return
		}
	}
}

func (s *Stream) remove(conn *websocket.Conn) {
	if s.conns.removeConn(conn) {
		s.log.With("event", log.EventWSConnRemoved).Infof("addr [%v]", conn.RemoteAddr())
		_ = conn.Close()
	}
}

func (s *Stream) stream(msg []byte) {
	for _, conn := range s.conns.snapshot() {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			s.remove(conn)
		}
	}
}

type connList struct {
	sync.RWMutex
	conns []*websocket.Conn
}

func (l *connList) addConn(c *websocket.Conn) {
	l.Lock()
	l.conns = append(l.conns, c)
	l.Unlock()
}

func (l *connList) removeConn(conn *websocket.Conn) bool {
	l.Lock()
	defer l.Unlock()
	for i, c := range l.conns {
		if conn == c {
			l.conns = append(l.conns[:i], l.conns[i+1:]...)
			return true
		}
	}
	return false
}

func (l *connList) snapshot() []*websocket.Conn {
	l.RLock()
	defer l.RUnlock()
	return append([]*websocket.Conn(nil), l.conns...)
}

func (l *connList) len() int {
	l.RLock()
	defer l.RUnlock()
	return len(l.conns)
}

func (l *connList) closeAll() {
	l.Lock()
	defer l.Unlock()
	for _, c := range l.conns {
		_ = c.Close()
	}
	l.conns = nil
}
