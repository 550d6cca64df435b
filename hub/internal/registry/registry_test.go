package registry

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/olympiavn/datahub/common/consts"
	"github.com/olympiavn/datahub/common/models"
	"github.com/olympiavn/datahub/common/pkgs/nodeconn"
)

type fakeNodeStore struct {
	mu       sync.Mutex
	nodes    map[int]models.DataNode // keyed by port
	statuses map[int64]string
}

func newFakeNodeStore(nodes ...models.DataNode) *fakeNodeStore {
	s := &fakeNodeStore{
		nodes:    make(map[int]models.DataNode),
		statuses: make(map[int64]string),
	}
	for _, n := range nodes {
		s.nodes[n.Port] = n
		s.statuses[n.NodeID] = n.Status
	}
	return s
}

func (s *fakeNodeStore) GetByPort(port int) (models.DataNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[port]
	if !ok {
		return models.DataNode{}, sql.ErrNoRows
	}
	return n, nil
}

func (s *fakeNodeStore) GetAll() ([]models.DataNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ret []models.DataNode
	for _, n := range s.nodes {
		n.Status = s.statuses[n.NodeID]
		ret = append(ret, n)
	}
	return ret, nil
}

func (s *fakeNodeStore) UpdateStatus(nodeID int64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[nodeID] = status
	return nil
}

func (s *fakeNodeStore) UpdateLastReport(nodeID int64) error { return nil }

func (s *fakeNodeStore) UpdateStorage(nodeID int64, used int64, total int64) error { return nil }

func (s *fakeNodeStore) status(nodeID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statuses[nodeID]
}

// newConn returns a served websocket connection backed by a throwaway peer.
func newConn(t *testing.T) *nodeconn.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		peer := nodeconn.NewConn(ws)
		go peer.Serve()
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	conn := nodeconn.NewConn(ws)
	go conn.Serve()
	t.Cleanup(func() { conn.Close(nil) })
	return conn
}

func testNode(id int64, port int) models.DataNode {
	return models.DataNode{
		NodeID: id,
		Name:   "node-test",
		Host:   "127.0.0.1",
		Port:   port,
		Status: consts.NodeStatusOffline,
	}
}

func TestRegisterRequiresPreRegistration(t *testing.T) {
	reg := NewRegistry(newFakeNodeStore())

	_, err := reg.Register(newConn(t), 1024, "rogue")
	require.ErrorIs(t, err, ErrNotPreRegistered)
	require.Empty(t, reg.ConnectedIDs())
}

func TestRegisterFlipsStatusOnline(t *testing.T) {
	store := newFakeNodeStore(testNode(1, 1024))
	reg := NewRegistry(store)

	id, err := reg.Register(newConn(t), 1024, "node-1")
	require.NoError(t, err)
	require.Equal(t, int64(1), id)
	require.True(t, reg.IsConnected(1))
	require.Equal(t, consts.NodeStatusOnline, store.status(1))

	_, ok := reg.LastChange(1)
	require.True(t, ok)
}

// Registering a second connection for the same port must close the stale one
// and leave exactly one live connection for the node.
func TestRegisterReplacesStaleConnection(t *testing.T) {
	store := newFakeNodeStore(testNode(1, 1024))
	reg := NewRegistry(store)

	conn1 := newConn(t)
	_, err := reg.Register(conn1, 1024, "node-1")
	require.NoError(t, err)

	conn2 := newConn(t)
	_, err = reg.Register(conn2, 1024, "node-1")
	require.NoError(t, err)

	require.True(t, conn1.Closed())
	require.False(t, conn2.Closed())
	require.Equal(t, []int64{1}, reg.ConnectedIDs())

	// The stale connection dying must not knock the replacement offline.
	require.Eventually(t, func() bool {
		return reg.IsConnected(1) && store.status(1) == consts.NodeStatusOnline
	}, time.Second, 10*time.Millisecond)

	cli, ok := reg.Client(1)
	require.True(t, ok)
	require.Same(t, conn2, cli.Conn())
}

func TestDisconnectFlipsStatusOffline(t *testing.T) {
	store := newFakeNodeStore(testNode(1, 1024))
	reg := NewRegistry(store)

	conn := newConn(t)
	_, err := reg.Register(conn, 1024, "node-1")
	require.NoError(t, err)

	conn.Close(nil)

	require.Eventually(t, func() bool {
		return !reg.IsConnected(1) && store.status(1) == consts.NodeStatusOffline
	}, time.Second, 10*time.Millisecond)
}
