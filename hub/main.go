package main

import (
	"fmt"
	"os"

	"github.com/olympiavn/datahub/common/pkgs/db"
	"github.com/olympiavn/datahub/common/pkgs/logger"
	"github.com/olympiavn/datahub/hub/internal/config"
	"github.com/olympiavn/datahub/hub/internal/http"
	"github.com/olympiavn/datahub/hub/internal/liveness"
	"github.com/olympiavn/datahub/hub/internal/registry"
	"github.com/olympiavn/datahub/hub/internal/services"
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

	database, err := db.NewDB(&config.Cfg().DB)
	if err != nil {
		logger.Fatalf("connecting to database: %s", err.Error())
	}

	nodeStore := registry.NewDBNodeStore(database)
	reg := registry.NewRegistry(nodeStore)

	monitor := liveness.NewMonitor(reg, nodeStore)
	monitor.Start()
	defer monitor.Stop()

	svc := services.NewService(
		services.NewDBMatchStore(database),
		services.NewDBNodeStore(database),
		&services.RegistryProvider{Registry: reg},
	)

	server, err := http.NewServer(config.Cfg().ListenAddr, svc, reg)
	if err != nil {
		logger.Fatalf("creating http server: %s", err.Error())
	}

	logger.Infof("hub listening on %s", config.Cfg().ListenAddr)
	if err := server.Serve(); err != nil {
		logger.Fatalf("serving http: %s", err.Error())
	}
}
