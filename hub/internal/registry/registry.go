package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/olympiavn/datahub/common/consts"
	"github.com/olympiavn/datahub/common/models"
	"github.com/olympiavn/datahub/common/pkgs/logger"
	"github.com/olympiavn/datahub/common/pkgs/nodeconn"
)

// NodeStore is the slice of the node directory the registry and the liveness
// monitor need. *DBNodeStore implements it over MySQL.
type NodeStore interface {
	GetByPort(port int) (models.DataNode, error)
	GetAll() ([]models.DataNode, error)
	UpdateStatus(nodeID int64, status string) error
	UpdateLastReport(nodeID int64) error
	UpdateStorage(nodeID int64, used int64, total int64) error
}

var ErrNotPreRegistered = errors.New("node is not pre-registered")

// Registry owns the set of live node connections. It is an injected object,
// never a package-level singleton, so tests can run isolated instances.
//
// Persisted node status is written here only on explicit connection events
// (register, disconnect); the periodic reconciliation lives in the liveness
// monitor and defers to any change younger than its grace window via
// LastChange.
type Registry struct {
	nodes NodeStore
	clock clock.Clock

	mu         sync.Mutex
	conns      map[int64]*nodeconn.Conn
	clients    map[int64]*nodeconn.Client
	lastChange map[int64]time.Time
}

func NewRegistry(nodes NodeStore) *Registry {
	return &Registry{
		nodes:      nodes,
		clock:      clock.New(),
		conns:      make(map[int64]*nodeconn.Conn),
		clients:    make(map[int64]*nodeconn.Client),
		lastChange: make(map[int64]time.Time),
	}
}

// Register runs the handshake for a node connection announcing the given
// port. A node cannot self-provision: the port must match a pre-registered
// record. If the node already has a live connection the stale one is closed
// first, so there is never more than one active connection per node.
func (r *Registry) Register(conn *nodeconn.Conn, port int, name string) (int64, error) {
	node, err := r.nodes.GetByPort(port)
	if err != nil {
		return 0, fmt.Errorf("%w: looking up port %d: %s", ErrNotPreRegistered, port, err.Error())
	}

	r.mu.Lock()
	old := r.conns[node.NodeID]
	r.conns[node.NodeID] = conn
	r.clients[node.NodeID] = nodeconn.NewClient(conn)
	r.lastChange[node.NodeID] = r.clock.Now()
	r.mu.Unlock()

	if old != nil {
		logger.WithField("NodeID", node.NodeID).
			Warnf("closing stale connection replaced by a new registration")
		old.Close(errors.New("replaced by a newer connection from the same node"))
	}

	conn.OnDisconnect(func(cause error) {
		r.onDisconnect(node.NodeID, conn, cause)
	})

	if err := r.nodes.UpdateStatus(node.NodeID, consts.NodeStatusOnline); err != nil {
		// Liveness reconciliation will converge the record later.
		logger.WithField("NodeID", node.NodeID).
			Warnf("updating node status to online: %s", err.Error())
	}

	logger.WithField("NodeID", node.NodeID).
		WithField("Name", name).
		Infof("data node registered from port %d", port)
	return node.NodeID, nil
}

func (r *Registry) onDisconnect(nodeID int64, conn *nodeconn.Conn, cause error) {
	r.mu.Lock()
	if r.conns[nodeID] != conn {
		// A replacement already took over; this is the stale connection dying.
		r.mu.Unlock()
		return
	}
	delete(r.conns, nodeID)
	delete(r.clients, nodeID)
	r.lastChange[nodeID] = r.clock.Now()
	r.mu.Unlock()

	logger.WithField("NodeID", nodeID).Infof("data node disconnected: %s", cause.Error())

	if err := r.nodes.UpdateStatus(nodeID, consts.NodeStatusOffline); err != nil {
		logger.WithField("NodeID", nodeID).
			Warnf("updating node status to offline: %s", err.Error())
	}
}

func (r *Registry) Client(nodeID int64) (*nodeconn.Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cli, ok := r.clients[nodeID]
	return cli, ok
}

func (r *Registry) IsConnected(nodeID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.conns[nodeID]
	return ok
}

func (r *Registry) ConnectedIDs() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]int64, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// LastChange reports when the node's connection state last flipped. The
// liveness monitor uses it as the grace window anchor.
func (r *Registry) LastChange(nodeID int64) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.lastChange[nodeID]
	return t, ok
}

// StampChange marks a status transition performed outside the registry (by
// the liveness monitor) so subsequent reconciliations honor the grace window.
func (r *Registry) StampChange(nodeID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastChange[nodeID] = r.clock.Now()
}

// Touch refreshes the node's last-report time on a heartbeat. It must not
// stamp a status change: heartbeats are frequent and would otherwise keep
// every node permanently inside the grace window.
func (r *Registry) Touch(nodeID int64) {
	if err := r.nodes.UpdateLastReport(nodeID); err != nil {
		logger.WithField("NodeID", nodeID).Warnf("updating last report time: %s", err.Error())
	}
}

func (r *Registry) UpdateStorage(nodeID int64, used int64, total int64) {
	if err := r.nodes.UpdateStorage(nodeID, used, total); err != nil {
		logger.WithField("NodeID", nodeID).Warnf("updating storage usage: %s", err.Error())
	}
}
