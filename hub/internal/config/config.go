package config

import (
	"github.com/olympiavn/datahub/common/pkgs/config"
	"github.com/olympiavn/datahub/common/pkgs/db"
	"github.com/olympiavn/datahub/common/pkgs/logger"
)

type Config struct {
	ListenAddr string        `json:"listenAddr"`
	Logger     logger.Config `json:"logger"`
	DB         db.Config     `json:"db"`
}

var cfg Config

func Init() error {
	return config.DefaultLoad("hub", &cfg)
}

func Cfg() *Config {
	return &cfg
}
