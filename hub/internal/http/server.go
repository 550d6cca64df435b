package http

import (
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/olympiavn/datahub/common/pkgs/nodeconn"
	"github.com/olympiavn/datahub/hub/internal/registry"
	"github.com/olympiavn/datahub/hub/internal/services"
)

type Server struct {
	engine     *gin.Engine
	listenAddr string
	svc        *services.Service
	registry   *registry.Registry

	breakerMu sync.Mutex
	breakers  map[int64]*nodeconn.Breaker // per-node, guards the stream proxy
}

func NewServer(listenAddr string, svc *services.Service, reg *registry.Registry) (*Server, error) {
	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		engine:     engine,
		listenAddr: listenAddr,
		svc:        svc,
		registry:   reg,
		breakers:   make(map[int64]*nodeconn.Breaker),
	}, nil
}

func (s *Server) Serve() error {
	s.initRouters()
	return s.engine.Run(s.listenAddr)
}

func (s *Server) initRouters() {
	s.engine.GET("/ws/node", s.NodeWS)
	s.engine.GET("/stream/:nodeID/:folder/:file", s.Stream)

	api := s.engine.Group("/api")

	api.GET("/matches", s.ListMatches)
	api.POST("/matches", s.CreateMatch)
	api.GET("/matches/:matchID", s.GetMatch)
	api.DELETE("/matches/:matchID", s.DeleteMatch)
	api.PUT("/matches/:matchID/name", s.RenameMatch)
	api.PUT("/matches/:matchID/status", s.UpdateMatchStatus)
	api.POST("/matches/:matchID/upload", s.UploadMedia)

	api.POST("/matches/:matchID/questions", s.AddQuestion)
	api.PUT("/matches/:matchID/questions", s.UpdateQuestion)
	api.DELETE("/matches/:matchID/questions", s.DeleteQuestion)
	api.PUT("/matches/:matchID/questions/assign-player", s.AssignPlayer)

	api.GET("/data-nodes", s.ListNodes)
	api.POST("/data-nodes", s.CreateNode)
	api.GET("/data-nodes/:nodeID", s.GetNode)
	api.PUT("/data-nodes/:nodeID", s.UpdateNode)
	api.DELETE("/data-nodes/:nodeID", s.DeleteNode)
	api.GET("/data-nodes/:nodeID/storage", s.NodeStorageInfo)
	// Riêng một nhánh: gin không cho trộn path tĩnh với ":nodeID".
	api.POST("/storage/refresh", s.RefreshStorage)
}
