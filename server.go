package main

import (
	"bufio"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
	"time"
)

// Server accepts client connections and runs one handler goroutine per
// client, all sharing the one store.
type Server struct {
	conf  *Config
	store *Store

	ln   net.Listener
	wg   sync.WaitGroup
	done chan struct{}

	mu      sync.Mutex
	clients map[net.Conn]struct{}
}

func NewServer(conf *Config, store *Store) *Server {
	return &Server{
		conf:    conf,
		store:   store,
		done:    make(chan struct{}),
		clients: map[net.Conn]struct{}{},
	}
}

// Start binds the listening port and begins accepting in the background.
// A bind failure is the only fatal startup error in the system.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.conf.port))
	if err != nil {
		return err
	}
	s.ln = ln

	fmt.Printf("Server listening on 0.0.0.0:%d\n", s.Addr().Port)

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

func (s *Server) Addr() *net.TCPAddr {
	return s.ln.Addr().(*net.TCPAddr)
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.done:
			default:
				log.Println("accept error:", err)
			}
			return
		}

		s.mu.Lock()
		s.clients[conn] = struct{}{}
		select {
		case <-s.done:
			// raced with Close; make sure this conn's reads unblock too
			conn.SetReadDeadline(time.Now())
		default:
		}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.handle(conn)
	}
}

// Count reports the number of currently connected clients.
func (s *Server) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) handle(conn net.Conn) {
	addr := conn.RemoteAddr()
	log.Println("connection from", addr)

	defer func() {
		conn.Close()
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
		s.wg.Done()
		log.Println("connection with", addr, "closed")
	}()

	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		select {
		case <-s.done:
			return
		default:
		}

		line := strings.TrimSpace(sc.Text())
		if line == "quit" {
			fmt.Fprint(conn, "Exiting client.\n")
			return
		}

		reply := interpret(line, s.store)
		if _, err := fmt.Fprint(conn, reply+"\n"); err != nil {
			log.Println("write error for", addr, ":", err)
			return
		}
	}
	// Scan returns false on disconnect or read error; either way this
	// client is done.
}

// Close stops accepting, lets every handler finish the command it is
// processing, and unblocks handlers idling in a read. Never severs a
// connection mid-command.
func (s *Server) Close() {
	close(s.done)
	s.ln.Close()

	s.mu.Lock()
	for conn := range s.clients {
		// expires the next read, not a response being written
		conn.SetReadDeadline(time.Now())
	}
	s.mu.Unlock()

	s.wg.Wait()
}
