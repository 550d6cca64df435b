package db

import (
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/olympiavn/datahub/common/models"
)

type MatchDB struct {
	*DB
}

func (db *DB) Match() *MatchDB {
	return &MatchDB{DB: db}
}

func (db *MatchDB) GetByID(ctx SQLContext, matchID string) (models.Match, error) {
	var ret models.Match
	err := sqlx.Get(ctx, &ret, "select * from `Match` where MatchID = ?", matchID)
	return ret, err
}

func (db *MatchDB) GetByCode(ctx SQLContext, code string) (models.Match, error) {
	var ret models.Match
	err := sqlx.Get(ctx, &ret, "select * from `Match` where Code = ?", code)
	return ret, err
}

// GetDetailByID joins node identity for display. The join is on the metadata
// record only and never blocks on node reachability.
func (db *MatchDB) GetDetailByID(ctx SQLContext, matchID string) (models.MatchDetail, error) {
	var ret models.MatchDetail
	err := sqlx.Get(ctx, &ret,
		"select `Match`.*, DataNode.Name as NodeName, DataNode.Status as NodeStatus "+
			"from `Match` join DataNode on `Match`.NodeID = DataNode.NodeID "+
			"where MatchID = ?",
		matchID,
	)
	return ret, err
}

type ListMatchesFilter struct {
	Status *string
	NodeID *int64
	Limit  int
	Offset int
}

func (db *MatchDB) List(ctx SQLContext, filter ListMatchesFilter) ([]models.MatchDetail, error) {
	sql := "select `Match`.*, DataNode.Name as NodeName, DataNode.Status as NodeStatus " +
		"from `Match` join DataNode on `Match`.NodeID = DataNode.NodeID"

	var conds []string
	var args []any
	if filter.Status != nil {
		conds = append(conds, "`Match`.Status = ?")
		args = append(args, *filter.Status)
	}
	if filter.NodeID != nil {
		conds = append(conds, "`Match`.NodeID = ?")
		args = append(args, *filter.NodeID)
	}

	for i, cond := range conds {
		if i == 0 {
			sql += " where " + cond
		} else {
			sql += " and " + cond
		}
	}

	sql += " order by CreateTime desc"
	if filter.Limit > 0 {
		sql += " limit ? offset ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	var ret []models.MatchDetail
	err := sqlx.Select(ctx, &ret, sql, args...)
	return ret, err
}

func (db *MatchDB) Create(ctx SQLContext, match *models.Match) error {
	_, err := ctx.Exec(
		"insert into `Match`(MatchID, Code, Name, NodeID, Folder, Status, CreatedBy, CreateTime, UpdateTime) values(?,?,?,?,?,?,?,?,?)",
		match.MatchID, match.Code, match.Name, match.NodeID, match.Folder, match.Status, match.CreatedBy, match.CreateTime, match.UpdateTime,
	)
	return err
}

// UpdateName renames a match. Id, code and node assignment are immutable
// after creation.
func (db *MatchDB) UpdateName(ctx SQLContext, matchID string, name string) error {
	_, err := ctx.Exec("update `Match` set Name = ?, UpdateTime = ? where MatchID = ?", name, time.Now(), matchID)
	return err
}

func (db *MatchDB) UpdateStatus(ctx SQLContext, matchID string, status string) error {
	_, err := ctx.Exec("update `Match` set Status = ?, UpdateTime = ? where MatchID = ?", status, time.Now(), matchID)
	return err
}

func (db *MatchDB) Delete(ctx SQLContext, matchID string) error {
	_, err := ctx.Exec("delete from `Match` where MatchID = ?", matchID)
	return err
}
