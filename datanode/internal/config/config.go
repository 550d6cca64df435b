package config

import (
	"github.com/olympiavn/datahub/common/pkgs/config"
	"github.com/olympiavn/datahub/common/pkgs/logger"
)

type Config struct {
	Name             string        `json:"name"`
	Port             int           `json:"port"`
	HubURL           string        `json:"hubURL"` // ws://host:port/ws/node
	StorageDirectory string        `json:"storageDirectory"`
	StorageTotal     int64         `json:"storageTotal"`
	Logger           logger.Config `json:"logger"`
}

var cfg Config

func Init() error {
	return config.DefaultLoad("datanode", &cfg)
}

func Cfg() *Config {
	return &cfg
}
