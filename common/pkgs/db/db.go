package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

type Config struct {
	Address      string `json:"address"`
	Account      string `json:"account"`
	Password     string `json:"password"`
	DatabaseName string `json:"databaseName"`
}

func (cfg *Config) MakeSourceString() string {
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=Local", cfg.Account, cfg.Password, cfg.Address, cfg.DatabaseName)
}

type DB struct {
	d *sqlx.DB
}

type SQLContext interface {
	sqlx.Queryer
	sqlx.Execer
}

func NewDB(cfg *Config) (*DB, error) {
	db, err := sqlx.Open("mysql", cfg.MakeSourceString())
	if err != nil {
		return nil, fmt.Errorf("open database connection failed, err: %w", err)
	}

	// ping ngay để lộ lỗi cấu hình từ lúc khởi động
	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &DB{
		d: db,
	}, nil
}

func (db *DB) DoTx(isolation sql.IsolationLevel, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.d.BeginTxx(context.Background(), &sql.TxOptions{Isolation: isolation})
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		tx.Rollback()
		return err
	}

	return nil
}

func (db *DB) SQLCtx() SQLContext {
	return db.d
}
