package db

import (
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/olympiavn/datahub/common/consts"
	"github.com/olympiavn/datahub/common/models"
)

type NodeDB struct {
	*DB
}

func (db *DB) Node() *NodeDB {
	return &NodeDB{DB: db}
}

func (db *NodeDB) GetByID(ctx SQLContext, nodeID int64) (models.DataNode, error) {
	var ret models.DataNode
	err := sqlx.Get(ctx, &ret, "select * from DataNode where NodeID = ?", nodeID)
	return ret, err
}

// GetByPort looks a node up by its listening port. Ports are globally
// unique, so this is how a registration handshake is matched to its
// pre-registered record.
func (db *NodeDB) GetByPort(ctx SQLContext, port int) (models.DataNode, error) {
	var ret models.DataNode
	err := sqlx.Get(ctx, &ret, "select * from DataNode where Port = ?", port)
	return ret, err
}

func (db *NodeDB) GetAll(ctx SQLContext) ([]models.DataNode, error) {
	var ret []models.DataNode
	err := sqlx.Select(ctx, &ret, "select * from DataNode order by NodeID")
	return ret, err
}

// Create pre-registers a node. New nodes always start offline; only the
// liveness owner flips them online.
func (db *NodeDB) Create(ctx SQLContext, name string, host string, port int, storageTotal int64) (int64, error) {
	ret, err := ctx.Exec(
		"insert into DataNode(Name, Host, Port, Status, StorageUsed, StorageTotal) values(?,?,?,?,?,?)",
		name, host, port, consts.NodeStatusOffline, 0, storageTotal,
	)
	if err != nil {
		return 0, err
	}
	return ret.LastInsertId()
}

func (db *NodeDB) Update(ctx SQLContext, nodeID int64, name string, host string) error {
	_, err := ctx.Exec("update DataNode set Name = ?, Host = ? where NodeID = ?", name, host, nodeID)
	return err
}

func (db *NodeDB) Delete(ctx SQLContext, nodeID int64) error {
	_, err := ctx.Exec("delete from DataNode where NodeID = ?", nodeID)
	return err
}

// UpdateStatus also stamps LastReportTime so stale records are visible.
func (db *NodeDB) UpdateStatus(ctx SQLContext, nodeID int64, status string) error {
	_, err := ctx.Exec("update DataNode set Status = ?, LastReportTime = ? where NodeID = ?", status, time.Now(), nodeID)
	return err
}

func (db *NodeDB) UpdateLastReport(ctx SQLContext, nodeID int64) error {
	_, err := ctx.Exec("update DataNode set LastReportTime = ? where NodeID = ?", time.Now(), nodeID)
	return err
}

func (db *NodeDB) UpdateStorage(ctx SQLContext, nodeID int64, used int64, total int64) error {
	_, err := ctx.Exec("update DataNode set StorageUsed = ?, StorageTotal = ? where NodeID = ?", used, total, nodeID)
	return err
}
