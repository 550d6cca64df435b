package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/olympiavn/datahub/common/consts/errorcode"
	"github.com/olympiavn/datahub/common/pkgs/logger"
)

func nodeIDParam(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("nodeID"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, Failed(errorcode.BadArgument, "invalid node id"))
		return 0, false
	}
	return id, true
}

func (s *Server) ListNodes(ctx *gin.Context) {
	log := logger.WithField("HTTP", "Node.List")

	nodes, err := s.svc.ListNodes()
	if err != nil {
		log.Warnf("listing nodes: %s", err.Error())
		respondErr(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, OK(nodes))
}

func (s *Server) GetNode(ctx *gin.Context) {
	log := logger.WithField("HTTP", "Node.Get")

	id, ok := nodeIDParam(ctx)
	if !ok {
		return
	}

	node, err := s.svc.GetNode(id)
	if err != nil {
		log.Warnf("getting node: %s", err.Error())
		respondErr(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, OK(node))
}

type CreateNodeReq struct {
	Name         string `json:"name" binding:"required"`
	Host         string `json:"host" binding:"required"`
	Port         int    `json:"port" binding:"required"`
	StorageTotal int64  `json:"storageTotal"`
}

func (s *Server) CreateNode(ctx *gin.Context) {
	log := logger.WithField("HTTP", "Node.Create")

	var req CreateNodeReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warnf("binding body: %s", err.Error())
		ctx.JSON(http.StatusBadRequest, Failed(errorcode.BadArgument, "missing or invalid argument"))
		return
	}

	id, err := s.svc.CreateNode(req.Name, req.Host, req.Port, req.StorageTotal)
	if err != nil {
		log.Warnf("creating node: %s", err.Error())
		respondErr(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, OK(gin.H{"nodeId": id}))
}

type UpdateNodeReq struct {
	Name string `json:"name" binding:"required"`
	Host string `json:"host" binding:"required"`
}

func (s *Server) UpdateNode(ctx *gin.Context) {
	log := logger.WithField("HTTP", "Node.Update")

	id, ok := nodeIDParam(ctx)
	if !ok {
		return
	}

	var req UpdateNodeReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warnf("binding body: %s", err.Error())
		ctx.JSON(http.StatusBadRequest, Failed(errorcode.BadArgument, "missing or invalid argument"))
		return
	}

	if err := s.svc.UpdateNode(id, req.Name, req.Host); err != nil {
		log.Warnf("updating node: %s", err.Error())
		respondErr(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, OK(nil))
}

func (s *Server) DeleteNode(ctx *gin.Context) {
	log := logger.WithField("HTTP", "Node.Delete")

	id, ok := nodeIDParam(ctx)
	if !ok {
		return
	}

	if err := s.svc.DeleteNode(id); err != nil {
		log.Warnf("deleting node: %s", err.Error())
		respondErr(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, OK(nil))
}

func (s *Server) RefreshStorage(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, OK(s.svc.RefreshStorage()))
}

func (s *Server) NodeStorageInfo(ctx *gin.Context) {
	log := logger.WithField("HTTP", "Node.StorageInfo")

	id, ok := nodeIDParam(ctx)
	if !ok {
		return
	}

	info, err := s.svc.NodeStorageInfo(id)
	if err != nil {
		log.Warnf("querying node storage: %s", err.Error())
		respondErr(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, OK(info))
}
