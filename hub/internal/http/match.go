package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/olympiavn/datahub/common/consts"
	"github.com/olympiavn/datahub/common/consts/errorcode"
	"github.com/olympiavn/datahub/common/models"
	"github.com/olympiavn/datahub/common/pkgs/db"
	"github.com/olympiavn/datahub/common/pkgs/logger"
	"github.com/olympiavn/datahub/hub/internal/services"
)

// respondErr translates service errors into an HTTP status and a stable
// error code for the envelope.
func respondErr(ctx *gin.Context, err error) {
	var (
		unreachable *services.NodeUnreachableError
		rejected    *services.NodeRejectedError
		quota       *services.QuotaExceededError
		dup         *services.DuplicateOrderError
	)
	switch {
	case errors.Is(err, services.ErrMatchNotFound):
		ctx.JSON(http.StatusNotFound, Failed(errorcode.MatchNotFound, err.Error()))
	case errors.Is(err, services.ErrNodeNotFound):
		ctx.JSON(http.StatusNotFound, Failed(errorcode.NodeNotFound, err.Error()))
	case errors.Is(err, services.ErrNoNodeAvailable):
		ctx.JSON(http.StatusBadRequest, Failed(errorcode.NoNodeAvailable, err.Error()))
	case errors.Is(err, services.ErrInvalidSection), errors.Is(err, services.ErrInvalidStatus), errors.Is(err, services.ErrNodeHasMatches):
		ctx.JSON(http.StatusBadRequest, Failed(errorcode.BadArgument, err.Error()))
	case errors.As(err, &quota):
		ctx.JSON(http.StatusBadRequest, Failed(errorcode.QuotaExceeded, err.Error()))
	case errors.As(err, &dup):
		ctx.JSON(http.StatusBadRequest, Failed(errorcode.DuplicateOrder, err.Error()))
	case errors.As(err, &rejected):
		ctx.JSON(http.StatusBadRequest, Failed(errorcode.NodeRejected, err.Error()))
	case errors.As(err, &unreachable):
		ctx.JSON(http.StatusServiceUnavailable, Failed(errorcode.NodeUnreachable, err.Error()))
	default:
		ctx.JSON(http.StatusInternalServerError, Failed(errorcode.OperationFailed, err.Error()))
	}
}

type CreateMatchReq struct {
	Name      string `json:"name" binding:"required"`
	CreatedBy string `json:"createdBy"`
	NodeID    *int64 `json:"nodeId"`
}

func (s *Server) CreateMatch(ctx *gin.Context) {
	log := logger.WithField("HTTP", "Match.Create")

	var req CreateMatchReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warnf("binding body: %s", err.Error())
		ctx.JSON(http.StatusBadRequest, Failed(errorcode.BadArgument, "missing or invalid argument"))
		return
	}

	match, err := s.svc.CreateMatch(req.Name, req.CreatedBy, req.NodeID)
	if err != nil {
		log.Warnf("creating match: %s", err.Error())
		respondErr(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, OK(match))
}

type ListMatchesReq struct {
	Status *string `form:"status"`
	NodeID *int64  `form:"dataNodeId"`
	Limit  int     `form:"limit"`
	Offset int     `form:"offset"`
}

func (s *Server) ListMatches(ctx *gin.Context) {
	log := logger.WithField("HTTP", "Match.List")

	var req ListMatchesReq
	if err := ctx.ShouldBindQuery(&req); err != nil {
		log.Warnf("binding query: %s", err.Error())
		ctx.JSON(http.StatusBadRequest, Failed(errorcode.BadArgument, "missing or invalid argument"))
		return
	}

	matches, err := s.svc.ListMatches(db.ListMatchesFilter{
		Status: req.Status,
		NodeID: req.NodeID,
		Limit:  req.Limit,
		Offset: req.Offset,
	})
	if err != nil {
		log.Warnf("listing matches: %s", err.Error())
		respondErr(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, OK(matches))
}

func (s *Server) GetMatch(ctx *gin.Context) {
	log := logger.WithField("HTTP", "Match.Get")

	info, err := s.svc.GetMatch(ctx.Param("matchID"))
	if err != nil {
		log.Warnf("getting match: %s", err.Error())
		respondErr(ctx, err)
		return
	}

	if info.ContentWarning != "" {
		ctx.JSON(http.StatusOK, OKWarn(info, info.ContentWarning))
		return
	}
	ctx.JSON(http.StatusOK, OK(info))
}

func (s *Server) DeleteMatch(ctx *gin.Context) {
	log := logger.WithField("HTTP", "Match.Delete")

	if err := s.svc.DeleteMatch(ctx.Param("matchID")); err != nil {
		log.Warnf("deleting match: %s", err.Error())
		respondErr(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, OK(nil))
}

type RenameMatchReq struct {
	Name string `json:"name" binding:"required"`
}

func (s *Server) RenameMatch(ctx *gin.Context) {
	log := logger.WithField("HTTP", "Match.Rename")

	var req RenameMatchReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warnf("binding body: %s", err.Error())
		ctx.JSON(http.StatusBadRequest, Failed(errorcode.BadArgument, "missing or invalid argument"))
		return
	}

	if err := s.svc.RenameMatch(ctx.Param("matchID"), req.Name); err != nil {
		log.Warnf("renaming match: %s", err.Error())
		respondErr(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, OK(nil))
}

type UpdateMatchStatusReq struct {
	Status string `json:"status" binding:"required"`
}

func (s *Server) UpdateMatchStatus(ctx *gin.Context) {
	log := logger.WithField("HTTP", "Match.UpdateStatus")

	var req UpdateMatchStatusReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warnf("binding body: %s", err.Error())
		ctx.JSON(http.StatusBadRequest, Failed(errorcode.BadArgument, "missing or invalid argument"))
		return
	}

	if err := s.svc.UpdateMatchStatus(ctx.Param("matchID"), req.Status); err != nil {
		log.Warnf("updating match status: %s", err.Error())
		respondErr(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, OK(nil))
}

// UploadMedia takes a multipart file plus question fields and creates the
// media question in one shot. The file lands on the owning node first; if the
// question is then refused the node is asked to remove it again.
func (s *Server) UploadMedia(ctx *gin.Context) {
	log := logger.WithField("HTTP", "Match.UploadMedia")

	header, err := ctx.FormFile("file")
	if err != nil {
		log.Warnf("reading form file: %s", err.Error())
		ctx.JSON(http.StatusBadRequest, Failed(errorcode.BadArgument, "missing file"))
		return
	}

	question, ok := questionFromForm(ctx)
	if !ok {
		return
	}

	file, err := header.Open()
	if err != nil {
		log.Warnf("opening uploaded file: %s", err.Error())
		ctx.JSON(http.StatusInternalServerError, Failed(errorcode.OperationFailed, "reading uploaded file"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		log.Warnf("reading uploaded file: %s", err.Error())
		ctx.JSON(http.StatusInternalServerError, Failed(errorcode.OperationFailed, "reading uploaded file"))
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if question.Type == "" {
		question.Type = questionTypeFromMime(mimeType)
	}

	added, warning, err := s.svc.AddMediaQuestion(ctx.Param("matchID"), ctx.PostForm("section"),
		question, header.Filename, mimeType, data)
	if err != nil {
		log.Warnf("adding media question: %s", err.Error())
		respondErr(ctx, err)
		return
	}

	if warning != "" {
		ctx.JSON(http.StatusOK, OKWarn(added, warning))
		return
	}
	ctx.JSON(http.StatusOK, OK(added))
}

// questionFromForm reads the question fields accompanying an upload.
func questionFromForm(ctx *gin.Context) (*models.Question, bool) {
	order, err := strconv.Atoi(ctx.PostForm("order"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, Failed(errorcode.BadArgument, "missing or invalid order"))
		return nil, false
	}

	q := &models.Question{
		Order:    order,
		Type:     ctx.PostForm("type"),
		Question: ctx.PostForm("question"),
		Answer:   ctx.PostForm("answer"),
	}

	if v := ctx.PostForm("playerIndex"); v != "" {
		idx, err := strconv.Atoi(v)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, Failed(errorcode.BadArgument, "invalid playerIndex"))
			return nil, false
		}
		q.PlayerIndex = &idx
	}
	if v := ctx.PostForm("points"); v != "" {
		points, err := strconv.Atoi(v)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, Failed(errorcode.BadArgument, "invalid points"))
			return nil, false
		}
		q.Points = points
	}
	if v := ctx.PostForm("timeLimit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, Failed(errorcode.BadArgument, "invalid timeLimit"))
			return nil, false
		}
		q.TimeLimit = &limit
	}
	return q, true
}

func questionTypeFromMime(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return consts.QuestionTypeImage
	case strings.HasPrefix(mimeType, "video/"), strings.HasPrefix(mimeType, "audio/"):
		return consts.QuestionTypeVideo
	default:
		return consts.QuestionTypeText
	}
}

type AddQuestionReq struct {
	Section  string           `json:"section" binding:"required"`
	Question *models.Question `json:"question" binding:"required"`
}

func (s *Server) AddQuestion(ctx *gin.Context) {
	log := logger.WithField("HTTP", "Question.Add")

	var req AddQuestionReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warnf("binding body: %s", err.Error())
		ctx.JSON(http.StatusBadRequest, Failed(errorcode.BadArgument, "missing or invalid argument"))
		return
	}

	question, warning, err := s.svc.AddQuestion(ctx.Param("matchID"), req.Section, req.Question)
	if err != nil {
		log.Warnf("adding question: %s", err.Error())
		respondErr(ctx, err)
		return
	}

	if warning != "" {
		ctx.JSON(http.StatusOK, OKWarn(question, warning))
		return
	}
	ctx.JSON(http.StatusOK, OK(question))
}

type UpdateQuestionReq struct {
	Section     string           `json:"section" binding:"required"`
	PlayerIndex *int             `json:"playerIndex"`
	Order       int              `json:"order" binding:"required"`
	Question    *models.Question `json:"question" binding:"required"`
}

func (s *Server) UpdateQuestion(ctx *gin.Context) {
	log := logger.WithField("HTTP", "Question.Update")

	var req UpdateQuestionReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warnf("binding body: %s", err.Error())
		ctx.JSON(http.StatusBadRequest, Failed(errorcode.BadArgument, "missing or invalid argument"))
		return
	}

	question, err := s.svc.UpdateQuestion(ctx.Param("matchID"), req.Section, req.PlayerIndex, req.Order, req.Question)
	if err != nil {
		log.Warnf("updating question: %s", err.Error())
		respondErr(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, OK(question))
}

type DeleteQuestionReq struct {
	Section     string `json:"section" binding:"required"`
	PlayerIndex *int   `json:"playerIndex"`
	Order       int    `json:"order" binding:"required"`
}

func (s *Server) DeleteQuestion(ctx *gin.Context) {
	log := logger.WithField("HTTP", "Question.Delete")

	var req DeleteQuestionReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warnf("binding body: %s", err.Error())
		ctx.JSON(http.StatusBadRequest, Failed(errorcode.BadArgument, "missing or invalid argument"))
		return
	}

	if err := s.svc.DeleteQuestion(ctx.Param("matchID"), req.Section, req.PlayerIndex, req.Order); err != nil {
		log.Warnf("deleting question: %s", err.Error())
		respondErr(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, OK(nil))
}

type AssignPlayerReq struct {
	Section        string `json:"section" binding:"required"`
	PlayerIndex    *int   `json:"playerIndex"`
	Order          int    `json:"order" binding:"required"`
	NewPlayerIndex int    `json:"newPlayerIndex"`
}

func (s *Server) AssignPlayer(ctx *gin.Context) {
	log := logger.WithField("HTTP", "Question.AssignPlayer")

	var req AssignPlayerReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warnf("binding body: %s", err.Error())
		ctx.JSON(http.StatusBadRequest, Failed(errorcode.BadArgument, "missing or invalid argument"))
		return
	}

	question, err := s.svc.AssignQuestionPlayer(ctx.Param("matchID"), req.Section, req.PlayerIndex, req.Order, req.NewPlayerIndex)
	if err != nil {
		log.Warnf("assigning question player: %s", err.Error())
		respondErr(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, OK(question))
}
