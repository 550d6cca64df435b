package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/olympiavn/datahub/common/pkgs/logger"
)

// ServeFiles runs the plain HTTP file server the hub streams media through.
// It only ever hands out files inside match folders; the hub is the one that
// decides who may see them.
func (s *Server) ServeFiles() error {
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/files/:folder/:file", func(ctx *gin.Context) {
		path, err := s.store.FilePath(ctx.Param("folder"), ctx.Param("file"))
		if err != nil {
			logger.Warnf("resolving file path: %s", err.Error())
			ctx.Status(http.StatusBadRequest)
			return
		}
		ctx.File(path)
	})

	return engine.Run(fmt.Sprintf(":%d", s.cfg.Port))
}
