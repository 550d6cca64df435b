package services

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/inhies/go-bytesize"

	"github.com/olympiavn/datahub/common/models"
	"github.com/olympiavn/datahub/common/pkgs/db"
	"github.com/olympiavn/datahub/common/pkgs/logger"
	"github.com/olympiavn/datahub/common/pkgs/nodeconn"
)

// NodeInfo is a node record decorated with live connection state and
// human-readable storage figures.
type NodeInfo struct {
	models.DataNode
	Connected    bool   `json:"connected"`
	StorageUsed  string `json:"storageUsedHuman"`
	StorageTotal string `json:"storageTotalHuman"`
}

func (svc *Service) makeNodeInfo(node models.DataNode) NodeInfo {
	return NodeInfo{
		DataNode:     node,
		Connected:    svc.prov.IsConnected(node.NodeID),
		StorageUsed:  bytesize.New(float64(node.StorageUsed)).String(),
		StorageTotal: bytesize.New(float64(node.StorageTotal)).String(),
	}
}

func (svc *Service) ListNodes() ([]NodeInfo, error) {
	nodes, err := svc.nodes.GetAll()
	if err != nil {
		return nil, err
	}

	ret := make([]NodeInfo, 0, len(nodes))
	for _, node := range nodes {
		ret = append(ret, svc.makeNodeInfo(node))
	}
	return ret, nil
}

func (svc *Service) GetNode(nodeID int64) (NodeInfo, error) {
	node, err := svc.nodes.GetByID(nodeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return NodeInfo{}, ErrNodeNotFound
		}
		return NodeInfo{}, err
	}
	return svc.makeNodeInfo(node), nil
}

// CreateNode pre-registers a node. Only a pre-registered port is accepted
// when the node later dials in.
func (svc *Service) CreateNode(name string, host string, port int, storageTotal int64) (int64, error) {
	if port <= 0 || port > 65535 {
		return 0, fmt.Errorf("invalid port %d", port)
	}
	return svc.nodes.Create(name, host, port, storageTotal)
}

func (svc *Service) UpdateNode(nodeID int64, name string, host string) error {
	if _, err := svc.GetNode(nodeID); err != nil {
		return err
	}
	return svc.nodes.Update(nodeID, name, host)
}

// DeleteNode refuses while the node still hosts matches; their content would
// become unreachable with no record of where it went.
func (svc *Service) DeleteNode(nodeID int64) error {
	if _, err := svc.GetNode(nodeID); err != nil {
		return err
	}

	hosted, err := svc.matches.List(db.ListMatchesFilter{NodeID: &nodeID})
	if err != nil {
		return err
	}
	if len(hosted) > 0 {
		return fmt.Errorf("%w: %d matches", ErrNodeHasMatches, len(hosted))
	}
	return svc.nodes.Delete(nodeID)
}

// StorageRefreshResult is the per-node outcome of RefreshStorage.
type StorageRefreshResult struct {
	NodeID int64  `json:"nodeId"`
	Used   int64  `json:"used,omitempty"`
	Total  int64  `json:"total,omitempty"`
	Error  string `json:"error,omitempty"`
}

const storageRefreshParallel = 4

// RefreshStorage polls every connected node for its storage figures and
// persists them. Nodes are queried with bounded parallelism; one slow or
// failing node never blocks the rest.
func (svc *Service) RefreshStorage() []StorageRefreshResult {
	ids := svc.prov.ConnectedIDs()
	infos := make(map[int64]*nodeconn.GetStorageInfoResp, len(ids))
	var mu sync.Mutex

	results := nodeconn.BatchLimit(ids, storageRefreshParallel, func(nodeID int64) error {
		cli, err := svc.clientFor(nodeID)
		if err != nil {
			return err
		}
		resp, err := cli.GetStorageInfo(nodeconn.NewGetStorageInfo())
		if err != nil {
			return svc.classifyNodeErr(nodeID, err)
		}
		if err := svc.nodes.UpdateStorage(nodeID, resp.Used, resp.Total); err != nil {
			return err
		}
		mu.Lock()
		infos[nodeID] = resp
		mu.Unlock()
		return nil
	})

	ret := make([]StorageRefreshResult, 0, len(results))
	for _, r := range results {
		item := StorageRefreshResult{NodeID: r.Item}
		if r.Err != nil {
			item.Error = r.Err.Error()
			logger.WithField("NodeID", r.Item).Warnf("refreshing storage: %s", r.Err.Error())
		} else if info := infos[r.Item]; info != nil {
			item.Used = info.Used
			item.Total = info.Total
		}
		ret = append(ret, item)
	}
	return ret
}

// NodeStorageInfo asks the node directly and refreshes the persisted figures.
func (svc *Service) NodeStorageInfo(nodeID int64) (*nodeconn.GetStorageInfoResp, error) {
	if _, err := svc.GetNode(nodeID); err != nil {
		return nil, err
	}
	cli, err := svc.clientFor(nodeID)
	if err != nil {
		return nil, err
	}

	resp, err := cli.GetStorageInfo(nodeconn.NewGetStorageInfo())
	if err != nil {
		return nil, svc.classifyNodeErr(nodeID, err)
	}

	if err := svc.nodes.UpdateStorage(nodeID, resp.Used, resp.Total); err != nil {
		return nil, err
	}
	return resp, nil
}
