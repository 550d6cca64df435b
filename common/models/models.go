package models

import "time"

type DataNode struct {
	NodeID         int64      `db:"NodeID" json:"nodeID"`
	Name           string     `db:"Name" json:"name"`
	Host           string     `db:"Host" json:"host"`
	Port           int        `db:"Port" json:"port"`
	Status         string     `db:"Status" json:"status"`
	StorageUsed    int64      `db:"StorageUsed" json:"storageUsed"`
	StorageTotal   int64      `db:"StorageTotal" json:"storageTotal"`
	LastReportTime *time.Time `db:"LastReportTime" json:"lastReportTime"`
}

type Match struct {
	MatchID    string    `db:"MatchID" json:"matchID"`
	Code       string    `db:"Code" json:"code"`
	Name       string    `db:"Name" json:"name"`
	NodeID     int64     `db:"NodeID" json:"nodeID"`
	Folder     string    `db:"Folder" json:"folder"`
	Status     string    `db:"Status" json:"status"`
	CreatedBy  string    `db:"CreatedBy" json:"createdBy"`
	CreateTime time.Time `db:"CreateTime" json:"createTime"`
	UpdateTime time.Time `db:"UpdateTime" json:"updateTime"`
}

// MatchDetail is a Match joined with its node's identity for display. The
// join never implies the node is reachable.
type MatchDetail struct {
	Match
	NodeName   string `db:"NodeName" json:"nodeName"`
	NodeStatus string `db:"NodeStatus" json:"nodeStatus"`
}
