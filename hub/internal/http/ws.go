package http

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/olympiavn/datahub/common/consts/errorcode"
	"github.com/olympiavn/datahub/common/pkgs/logger"
	"github.com/olympiavn/datahub/common/pkgs/nodeconn"
)

var upgrader = websocket.Upgrader{
	// Nodes dial in from their own hosts; there is no browser origin to check.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// NodeWS accepts a data node connection. The node must send a register
// request before any of its events are honored.
func (s *Server) NodeWS(ctx *gin.Context) {
	log := logger.WithField("HTTP", "NodeWS")

	ws, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		log.Warnf("upgrading connection: %s", err.Error())
		return
	}

	conn := nodeconn.NewConn(ws)

	// 0 until the register handshake succeeds.
	var nodeID atomic.Int64

	conn.Handle((*nodeconn.Register)(nil).OpName(), func(body json.RawMessage) (any, *nodeconn.CodeMessage) {
		var msg nodeconn.Register
		if err := json.Unmarshal(body, &msg); err != nil {
			return nil, nodeconn.Failed(errorcode.BadArgument, "invalid register body")
		}

		id, err := s.registry.Register(conn, msg.Port, msg.Name)
		if err != nil {
			log.Warnf("registering node from port %d: %s", msg.Port, err.Error())
			return nil, nodeconn.Failed(errorcode.OperationFailed, err.Error())
		}
		nodeID.Store(id)
		return nodeconn.NewRegisterResp(id), nil
	})

	conn.HandleEvent((*nodeconn.Heartbeat)(nil).OpName(), func(body json.RawMessage) {
		if id := nodeID.Load(); id != 0 {
			s.registry.Touch(id)
		}
	})

	conn.HandleEvent((*nodeconn.StorageUpdate)(nil).OpName(), func(body json.RawMessage) {
		id := nodeID.Load()
		if id == 0 {
			return
		}
		var msg nodeconn.StorageUpdate
		if err := json.Unmarshal(body, &msg); err != nil {
			log.WithField("NodeID", id).Warnf("invalid storage update: %s", err.Error())
			return
		}
		s.registry.UpdateStorage(id, msg.StorageUsed, msg.StorageTotal)
	})

	// Serve blocks for the whole connection lifetime; the registry learns of
	// its death through the disconnect hook installed at register time.
	conn.Serve()
}
