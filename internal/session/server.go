package session

import (
	"net"

	log "github.com/sirupsen/logrus"
)

// Server accepts client connections and spawns one ClientSession
// goroutine per connection (§5: "client sessions run under a shared,
// event-driven I/O pool" in the source redesigns here to one goroutine
// per connection, each blocking independently on its own conn — Go's
// native equivalent of that pool).
type Server struct {
	listener net.Listener
	baseDir  string
}

// Listen opens a TCP listener on addr serving files rooted at baseDir.
func Listen(addr, baseDir string) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{listener: ln, baseDir: baseDir}, nil
}

// Addr returns the listener's bound address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve accepts connections until the listener is closed.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return err
		}
		go func() {
			defer func() {
				if r := recover(); r != nil {
					log.WithField("panic", r).Error("session: recovered from panic in client session")
				}
			}()
			NewClientSession(conn, s.baseDir).Serve()
		}()
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	return s.listener.Close()
}
