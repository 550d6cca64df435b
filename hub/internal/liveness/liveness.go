package liveness

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/olympiavn/datahub/common/consts"
	"github.com/olympiavn/datahub/common/pkgs/logger"
	"github.com/olympiavn/datahub/hub/internal/registry"
)

const (
	DefaultInterval = 5 * time.Second
	DefaultGrace    = 3 * time.Second
)

// ConnTracker is the view of live connections the monitor reconciles against.
// *registry.Registry implements it.
type ConnTracker interface {
	IsConnected(nodeID int64) bool
	LastChange(nodeID int64) (time.Time, bool)
	StampChange(nodeID int64)
}

// Monitor periodically reconciles persisted node status with the set of live
// connections. The connection events themselves already write status; the
// monitor only repairs drift, for example after a hub restart or a failed
// status write. Transitions younger than the grace window are left alone so
// the monitor never races a node that is mid-reconnect.
type Monitor struct {
	tracker  ConnTracker
	nodes    registry.NodeStore
	interval time.Duration
	grace    time.Duration
	clock    clock.Clock

	stopCh chan struct{}
	doneCh chan struct{}
}

func NewMonitor(tracker ConnTracker, nodes registry.NodeStore) *Monitor {
	return &Monitor{
		tracker:  tracker,
		nodes:    nodes,
		interval: DefaultInterval,
		grace:    DefaultGrace,
		clock:    clock.New(),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

func (m *Monitor) Start() {
	go m.run()
}

func (m *Monitor) Stop() {
	close(m.stopCh)
	<-m.doneCh
}

func (m *Monitor) run() {
	defer close(m.doneCh)

	ticker := m.clock.Ticker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.reconcile()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Monitor) reconcile() {
	nodes, err := m.nodes.GetAll()
	if err != nil {
		logger.Warnf("listing nodes for liveness reconciliation: %s", err.Error())
		return
	}

	now := m.clock.Now()
	for _, node := range nodes {
		connected := m.tracker.IsConnected(node.NodeID)
		want := consts.NodeStatusOffline
		if connected {
			want = consts.NodeStatusOnline
		}
		if node.Status == want {
			continue
		}

		if last, ok := m.tracker.LastChange(node.NodeID); ok && now.Sub(last) < m.grace {
			continue
		}

		if err := m.nodes.UpdateStatus(node.NodeID, want); err != nil {
			logger.WithField("NodeID", node.NodeID).
				Warnf("reconciling node status to %s: %s", want, err.Error())
			continue
		}
		m.tracker.StampChange(node.NodeID)
		logger.WithField("NodeID", node.NodeID).
			Infof("reconciled node status from %s to %s", node.Status, want)
	}
}
