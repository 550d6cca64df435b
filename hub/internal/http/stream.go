package http

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/olympiavn/datahub/common/consts/errorcode"
	"github.com/olympiavn/datahub/common/pkgs/logger"
	"github.com/olympiavn/datahub/common/pkgs/nodeconn"
)

const (
	streamBreakerThreshold = 3
	streamBreakerCoolDown  = 15 * time.Second
)

func (s *Server) breakerFor(nodeID int64) *nodeconn.Breaker {
	s.breakerMu.Lock()
	defer s.breakerMu.Unlock()
	b, ok := s.breakers[nodeID]
	if !ok {
		b = nodeconn.NewBreaker(streamBreakerThreshold, streamBreakerCoolDown)
		s.breakers[nodeID] = b
	}
	return b
}

func safePathPart(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, "/\\")
}

// Stream proxies a media file off the owning node. Nodes are never exposed
// to clients directly; all media flows through the hub.
func (s *Server) Stream(ctx *gin.Context) {
	log := logger.WithField("HTTP", "Stream")

	id, ok := nodeIDParam(ctx)
	if !ok {
		return
	}

	folder := ctx.Param("folder")
	file := ctx.Param("file")
	if !safePathPart(folder) || !safePathPart(file) {
		ctx.JSON(http.StatusBadRequest, Failed(errorcode.BadArgument, "invalid path"))
		return
	}

	node, err := s.svc.GetNode(id)
	if err != nil {
		log.Warnf("resolving node: %s", err.Error())
		respondErr(ctx, err)
		return
	}

	fileURL := fmt.Sprintf("http://%s:%d/files/%s/%s",
		node.Host, node.Port, url.PathEscape(folder), url.PathEscape(file))

	// A node that stopped answering trips its breaker, so a wall of stream
	// requests does not pile up on it while it is down.
	var resp *http.Response
	err = s.breakerFor(id).Do(func() error {
		var ferr error
		resp, ferr = http.Get(fileURL)
		return ferr
	})
	if err != nil {
		log.WithField("NodeID", id).Warnf("fetching file from node: %s", err.Error())
		ctx.JSON(http.StatusServiceUnavailable, Failed(errorcode.NodeUnreachable, "node did not answer"))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		ctx.JSON(http.StatusNotFound, Failed(errorcode.OperationFailed, "file not found on node"))
		return
	}

	ctx.DataFromReader(http.StatusOK, resp.ContentLength,
		resp.Header.Get("Content-Type"), resp.Body, nil)
}
