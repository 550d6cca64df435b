package services

import (
	"github.com/olympiavn/datahub/common/models"
	"github.com/olympiavn/datahub/common/pkgs/db"
)

// DBMatchStore backs MatchStore with the sqlx Match table.
type DBMatchStore struct {
	db *db.DB
}

func NewDBMatchStore(d *db.DB) *DBMatchStore {
	return &DBMatchStore{db: d}
}

var _ MatchStore = (*DBMatchStore)(nil)

func (s *DBMatchStore) GetByID(matchID string) (models.Match, error) {
	return s.db.Match().GetByID(s.db.SQLCtx(), matchID)
}

func (s *DBMatchStore) GetByCode(code string) (models.Match, error) {
	return s.db.Match().GetByCode(s.db.SQLCtx(), code)
}

func (s *DBMatchStore) GetDetailByID(matchID string) (models.MatchDetail, error) {
	return s.db.Match().GetDetailByID(s.db.SQLCtx(), matchID)
}

func (s *DBMatchStore) List(filter db.ListMatchesFilter) ([]models.MatchDetail, error) {
	return s.db.Match().List(s.db.SQLCtx(), filter)
}

func (s *DBMatchStore) Create(match *models.Match) error {
	return s.db.Match().Create(s.db.SQLCtx(), match)
}

func (s *DBMatchStore) UpdateName(matchID string, name string) error {
	return s.db.Match().UpdateName(s.db.SQLCtx(), matchID, name)
}

func (s *DBMatchStore) UpdateStatus(matchID string, status string) error {
	return s.db.Match().UpdateStatus(s.db.SQLCtx(), matchID, status)
}

func (s *DBMatchStore) Delete(matchID string) error {
	return s.db.Match().Delete(s.db.SQLCtx(), matchID)
}

// DBNodeStore backs NodeStore with the sqlx DataNode table.
type DBNodeStore struct {
	db *db.DB
}

func NewDBNodeStore(d *db.DB) *DBNodeStore {
	return &DBNodeStore{db: d}
}

var _ NodeStore = (*DBNodeStore)(nil)

func (s *DBNodeStore) GetByID(nodeID int64) (models.DataNode, error) {
	return s.db.Node().GetByID(s.db.SQLCtx(), nodeID)
}

func (s *DBNodeStore) GetAll() ([]models.DataNode, error) {
	return s.db.Node().GetAll(s.db.SQLCtx())
}

func (s *DBNodeStore) Create(name string, host string, port int, storageTotal int64) (int64, error) {
	return s.db.Node().Create(s.db.SQLCtx(), name, host, port, storageTotal)
}

func (s *DBNodeStore) Update(nodeID int64, name string, host string) error {
	return s.db.Node().Update(s.db.SQLCtx(), nodeID, name, host)
}

func (s *DBNodeStore) Delete(nodeID int64) error {
	return s.db.Node().Delete(s.db.SQLCtx(), nodeID)
}

func (s *DBNodeStore) UpdateStorage(nodeID int64, used int64, total int64) error {
	return s.db.Node().UpdateStorage(s.db.SQLCtx(), nodeID, used, total)
}
