package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"github.com/olympiavn/datahub/common/pkgs/logger"
	"github.com/olympiavn/datahub/common/pkgs/nodeconn"
	"github.com/olympiavn/datahub/datanode/internal/config"
	"github.com/olympiavn/datahub/datanode/internal/store"
)

const (
	heartbeatInterval = 10 * time.Second
	storageInterval   = 30 * time.Second
)

// Server is the node-side half of the hub connection: it serves the hub's
// content operations and keeps reconnecting for as long as the process runs.
type Server struct {
	cfg   *config.Config
	store *store.Store
}

func New(cfg *config.Config, st *store.Store) *Server {
	return &Server{
		cfg:   cfg,
		store: st,
	}
}

// Run dials the hub and re-dials forever with exponential backoff. A session
// that registered successfully resets the backoff.
func (s *Server) Run() error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0

	for {
		registered, err := s.session()
		if err != nil {
			logger.Warnf("hub session ended: %s", err.Error())
		}
		if registered {
			bo.Reset()
		}

		wait := bo.NextBackOff()
		logger.Infof("reconnecting to hub in %v", wait)
		time.Sleep(wait)
	}
}

// session runs one connection lifetime: dial, register, report until the
// connection dies. It reports whether registration succeeded.
func (s *Server) session() (bool, error) {
	ws, _, err := websocket.DefaultDialer.Dial(s.cfg.HubURL, nil)
	if err != nil {
		return false, fmt.Errorf("dialing hub: %w", err)
	}

	conn := nodeconn.NewConn(ws)
	s.installHandlers(conn)

	done := make(chan error, 1)
	go func() { done <- conn.Serve() }()

	cli := nodeconn.NewClient(conn)
	resp, err := cli.Register(nodeconn.NewRegister(s.cfg.Port, s.cfg.Name))
	if err != nil {
		conn.Close(errors.New("registration failed"))
		<-done
		return false, fmt.Errorf("registering with hub: %w", err)
	}
	logger.Infof("registered with hub as node %d", resp.NodeID)

	s.reportStorage(conn)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()
	storage := time.NewTicker(storageInterval)
	defer storage.Stop()

	for {
		select {
		case err := <-done:
			return true, err

		case <-heartbeat.C:
			if err := conn.Notify(nodeconn.NewHeartbeat()); err != nil {
				logger.Warnf("sending heartbeat: %s", err.Error())
			}

		case <-storage.C:
			s.reportStorage(conn)
		}
	}
}

func (s *Server) reportStorage(conn *nodeconn.Conn) {
	used, err := s.store.UsedSpace()
	if err != nil {
		logger.Warnf("measuring used space: %s", err.Error())
		return
	}
	if err := conn.Notify(nodeconn.NewStorageUpdate(used, s.cfg.StorageTotal)); err != nil {
		logger.Warnf("sending storage update: %s", err.Error())
	}
}
