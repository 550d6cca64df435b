package registry

import (
	"github.com/olympiavn/datahub/common/models"
	"github.com/olympiavn/datahub/common/pkgs/db"
)

// DBNodeStore adapts the sqlx node table to the NodeStore interface.
type DBNodeStore struct {
	db *db.DB
}

func NewDBNodeStore(d *db.DB) *DBNodeStore {
	return &DBNodeStore{db: d}
}

var _ NodeStore = (*DBNodeStore)(nil)

func (s *DBNodeStore) GetByPort(port int) (models.DataNode, error) {
	return s.db.Node().GetByPort(s.db.SQLCtx(), port)
}

func (s *DBNodeStore) GetAll() ([]models.DataNode, error) {
	return s.db.Node().GetAll(s.db.SQLCtx())
}

func (s *DBNodeStore) UpdateStatus(nodeID int64, status string) error {
	return s.db.Node().UpdateStatus(s.db.SQLCtx(), nodeID, status)
}

func (s *DBNodeStore) UpdateLastReport(nodeID int64) error {
	return s.db.Node().UpdateLastReport(s.db.SQLCtx(), nodeID)
}

func (s *DBNodeStore) UpdateStorage(nodeID int64, used int64, total int64) error {
	return s.db.Node().UpdateStorage(s.db.SQLCtx(), nodeID, used, total)
}
