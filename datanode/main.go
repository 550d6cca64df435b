package main

import (
	"fmt"
	"os"

	"github.com/olympiavn/datahub/common/pkgs/logger"
	"github.com/olympiavn/datahub/datanode/internal/config"
	"github.com/olympiavn/datahub/datanode/internal/server"
	"github.com/olympiavn/datahub/datanode/internal/store"
)

func main() {
	if err := config.Init(); err != nil {
		fmt.Printf("init config failed, err: %s", err.Error())
		os.Exit(1)
	}

	if err := logger.Init(&config.Cfg().Logger); err != nil {
		fmt.Printf("init logger failed, err: %s", err.Error())
		os.Exit(1)
	}

	st, err := store.NewStore(config.Cfg().StorageDirectory)
	if err != nil {
		logger.Fatalf("opening storage: %s", err.Error())
	}

	srv := server.New(config.Cfg(), st)

	go func() {
		if err := srv.ServeFiles(); err != nil {
			logger.Fatalf("serving files: %s", err.Error())
		}
	}()

	logger.Infof("data node %s starting, storage at %s", config.Cfg().Name, config.Cfg().StorageDirectory)
	if err := srv.Run(); err != nil {
		logger.Fatalf("hub connection loop: %s", err.Error())
	}
}
