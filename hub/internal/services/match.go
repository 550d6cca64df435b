package services

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/samber/lo"

	"github.com/olympiavn/datahub/common/consts"
	"github.com/olympiavn/datahub/common/models"
	"github.com/olympiavn/datahub/common/pkgs/db"
	"github.com/olympiavn/datahub/common/pkgs/logger"
	"github.com/olympiavn/datahub/common/pkgs/nodeconn"
	"github.com/olympiavn/datahub/common/utils"
)

const (
	matchCodeLength   = 6
	codeRetryAttempts = 5
)

// MatchInfo is match metadata plus the content read from the owning node.
// Content is best-effort: when the node cannot be reached it falls back to
// the last cached read, and ContentWarning says so.
type MatchInfo struct {
	models.MatchDetail
	Content        *models.MatchContent `json:"content,omitempty"`
	ContentWarning string               `json:"contentWarning,omitempty"`
}

// CreateMatch allocates a match on a data node and records its metadata.
// If nodeID is nil the connected node with the lowest id is chosen. The two
// writes are not atomic: metadata is inserted first, and if the node then
// fails to provision the match the metadata row is rolled back so no record
// ever points at a folder that was never created.
func (svc *Service) CreateMatch(name string, createdBy string, nodeID *int64) (models.Match, error) {
	picked, err := svc.pickNode(nodeID)
	if err != nil {
		return models.Match{}, err
	}

	code, err := svc.pickFreeCode()
	if err != nil {
		return models.Match{}, err
	}

	now := time.Now()
	match := models.Match{
		MatchID:    utils.GenerateMatchID(name, code, now),
		Code:       code,
		Name:       name,
		NodeID:     picked,
		Folder:     utils.NormalizeFolderName(name) + "_" + code,
		Status:     consts.MatchStatusDraft,
		CreatedBy:  createdBy,
		CreateTime: now,
		UpdateTime: now,
	}

	if err := svc.matches.Create(&match); err != nil {
		return models.Match{}, fmt.Errorf("inserting match metadata: %w", err)
	}

	cli, err := svc.clientFor(picked)
	if err == nil {
		var resp *nodeconn.CreateMatchResp
		resp, err = cli.CreateMatch(nodeconn.NewCreateMatch(match.MatchID, match.Code, match.Name, match.Folder))
		if err == nil {
			if resp.Content != nil {
				svc.cache.Add(match.MatchID, resp.Content)
			}
			logger.WithField("MatchID", match.MatchID).
				WithField("NodeID", picked).
				Infof("match created")
			return match, nil
		}
		err = svc.classifyNodeErr(picked, err)
	}

	// Node-side provisioning failed: take the metadata back out.
	if rbErr := svc.matches.Delete(match.MatchID); rbErr != nil {
		logger.WithField("MatchID", match.MatchID).
			Warnf("rolling back match metadata: %s", rbErr.Error())
	}
	return models.Match{}, err
}

// GetMatch returns metadata joined with node identity, plus the content. A
// dead node never blocks the read: metadata always comes back, content falls
// back to the cache or is omitted with a warning.
func (svc *Service) GetMatch(matchID string) (*MatchInfo, error) {
	detail, err := svc.matches.GetDetailByID(matchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}

	info := &MatchInfo{MatchDetail: detail}
	content, err := svc.readContent(detail.Match)
	if err != nil {
		info.ContentWarning = err.Error()
		if cached, ok := svc.cache.Get(matchID); ok {
			info.Content = cached
		}
		return info, nil
	}
	info.Content = content
	return info, nil
}

func (svc *Service) ListMatches(filter db.ListMatchesFilter) ([]models.MatchDetail, error) {
	return svc.matches.List(filter)
}

// RenameMatch changes the display name only. Id, code, folder and node
// assignment are fixed at creation.
func (svc *Service) RenameMatch(matchID string, name string) error {
	if _, err := svc.mustGetMatch(matchID); err != nil {
		return err
	}
	if err := svc.matches.UpdateName(matchID, name); err != nil {
		return err
	}
	svc.cache.Remove(matchID)
	return nil
}

func (svc *Service) UpdateMatchStatus(matchID string, status string) error {
	if !consts.IsValidMatchStatus(status) {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}
	if _, err := svc.mustGetMatch(matchID); err != nil {
		return err
	}
	return svc.matches.UpdateStatus(matchID, status)
}

// DeleteMatch removes the match everywhere. The node-side delete is
// best-effort and the metadata delete is unconditional: a vanished node must
// never make a match undeletable, at the price of possibly orphaning files
// on a node that comes back later.
func (svc *Service) DeleteMatch(matchID string) error {
	match, err := svc.mustGetMatch(matchID)
	if err != nil {
		return err
	}

	if cli, err := svc.clientFor(match.NodeID); err == nil {
		err := nodeconn.Retry(context.Background(), 2, 2*time.Second, func() error {
			_, err := cli.DeleteMatch(nodeconn.NewDeleteMatch(matchID))
			return err
		})
		if err != nil {
			logger.WithField("MatchID", matchID).
				WithField("NodeID", match.NodeID).
				Warnf("deleting match on node, continuing with metadata: %s", err.Error())
		}
	} else {
		logger.WithField("MatchID", matchID).
			WithField("NodeID", match.NodeID).
			Warnf("node unreachable, deleting metadata only")
	}

	if err := svc.matches.Delete(matchID); err != nil {
		return fmt.Errorf("deleting match metadata: %w", err)
	}
	svc.cache.Remove(matchID)
	return nil
}

// AddQuestion validates the question against the section quota and order
// uniqueness, then forwards it to the owning node. The pre-write read is a
// fast-fail courtesy: when it fails the checks are skipped with a warning
// and the node enforces the same rules at write time.
func (svc *Service) AddQuestion(matchID string, section string, question *models.Question) (*models.Question, string, error) {
	if err := validateScope(section, question.PlayerIndex); err != nil {
		return nil, "", err
	}
	match, err := svc.mustGetMatch(matchID)
	if err != nil {
		return nil, "", err
	}
	cli, err := svc.clientFor(match.NodeID)
	if err != nil {
		return nil, "", err
	}

	warning := ""
	content, ok := svc.contentForValidation(match, cli)
	if !ok {
		warning = WarnValidationSkipped
		logger.WithField("MatchID", matchID).Warnf("content unavailable before add, skipping pre-write checks")
	} else {
		if err := checkSlot(content.Sections[section], section, question.PlayerIndex, question.Order); err != nil {
			return nil, "", err
		}
	}

	resp, err := cli.AddQuestion(nodeconn.NewAddQuestion(matchID, section, question))
	if err != nil {
		return nil, "", svc.classifyNodeErr(match.NodeID, err)
	}
	svc.cache.Remove(matchID)
	return resp.Question, warning, nil
}

func (svc *Service) UpdateQuestion(matchID string, section string, playerIndex *int, order int, data *models.Question) (*models.Question, error) {
	if err := validateScope(section, playerIndex); err != nil {
		return nil, err
	}
	match, err := svc.mustGetMatch(matchID)
	if err != nil {
		return nil, err
	}
	cli, err := svc.clientFor(match.NodeID)
	if err != nil {
		return nil, err
	}

	resp, err := cli.UpdateQuestion(nodeconn.NewUpdateQuestion(matchID, section, playerIndex, order, data))
	if err != nil {
		return nil, svc.classifyNodeErr(match.NodeID, err)
	}
	svc.cache.Remove(matchID)
	return resp.Question, nil
}

func (svc *Service) DeleteQuestion(matchID string, section string, playerIndex *int, order int) error {
	if err := validateScope(section, playerIndex); err != nil {
		return err
	}
	match, err := svc.mustGetMatch(matchID)
	if err != nil {
		return err
	}
	cli, err := svc.clientFor(match.NodeID)
	if err != nil {
		return err
	}

	if _, err := cli.DeleteQuestion(nodeconn.NewDeleteQuestion(matchID, section, playerIndex, order)); err != nil {
		return svc.classifyNodeErr(match.NodeID, err)
	}
	svc.cache.Remove(matchID)
	return nil
}

// AssignQuestionPlayer moves a question to another player within a
// per-player section.
func (svc *Service) AssignQuestionPlayer(matchID string, section string, playerIndex *int, order int, newPlayerIndex int) (*models.Question, error) {
	if !consts.SectionPerPlayer[section] {
		return nil, fmt.Errorf("%w: %s is not a per-player section", ErrInvalidSection, section)
	}
	if err := validateScope(section, playerIndex); err != nil {
		return nil, err
	}
	if newPlayerIndex < 0 || newPlayerIndex >= consts.MaxPlayers {
		return nil, fmt.Errorf("%w: player index %d out of range", ErrInvalidSection, newPlayerIndex)
	}
	match, err := svc.mustGetMatch(matchID)
	if err != nil {
		return nil, err
	}
	cli, err := svc.clientFor(match.NodeID)
	if err != nil {
		return nil, err
	}

	resp, err := cli.AssignPlayer(nodeconn.NewAssignPlayer(matchID, section, playerIndex, order, newPlayerIndex))
	if err != nil {
		return nil, svc.classifyNodeErr(match.NodeID, err)
	}
	svc.cache.Remove(matchID)
	return resp.Question, nil
}

// UploadMedia pushes a media file into the match folder on the owning node
// and returns the node's storage path plus a hub-relative stream URL.
func (svc *Service) UploadMedia(matchID string, fileName string, mimeType string, data []byte) (*nodeconn.UploadFileResp, error) {
	match, err := svc.mustGetMatch(matchID)
	if err != nil {
		return nil, err
	}
	cli, err := svc.clientFor(match.NodeID)
	if err != nil {
		return nil, err
	}

	buf := base64.StdEncoding.EncodeToString(data)
	resp, err := cli.UploadFile(nodeconn.NewUploadFile(fileName, buf, mimeType, match.Folder))
	if err != nil {
		return nil, svc.classifyNodeErr(match.NodeID, err)
	}

	// Clients stream through the hub, never straight off a node.
	resp.StreamURL = fmt.Sprintf("/stream/%d/%s/%s", match.NodeID, match.Folder, path.Base(resp.StoragePath))
	return resp, nil
}

// AddMediaQuestion uploads the media first and then adds the question
// referencing it. If the add fails the uploaded file is removed best-effort
// so it does not leak on the node.
func (svc *Service) AddMediaQuestion(matchID string, section string, question *models.Question, fileName string, mimeType string, data []byte) (*models.Question, string, error) {
	uploaded, err := svc.UploadMedia(matchID, fileName, mimeType, data)
	if err != nil {
		return nil, "", err
	}

	question.MediaFile = path.Base(uploaded.StoragePath)
	question.MediaURL = uploaded.StreamURL
	question.MediaSize = uploaded.Size

	added, warning, err := svc.AddQuestion(matchID, section, question)
	if err != nil {
		if match, gerr := svc.mustGetMatch(matchID); gerr == nil {
			if cli, cerr := svc.clientFor(match.NodeID); cerr == nil {
				if _, derr := cli.DeleteFile(nodeconn.NewDeleteFile(uploaded.StoragePath)); derr != nil {
					logger.WithField("MatchID", matchID).
						Warnf("removing uploaded media after failed add: %s", derr.Error())
				}
			}
		}
		return nil, "", err
	}
	return added, warning, nil
}

func (svc *Service) mustGetMatch(matchID string) (models.Match, error) {
	match, err := svc.matches.GetByID(matchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Match{}, ErrMatchNotFound
		}
		return models.Match{}, err
	}
	return match, nil
}

func (svc *Service) pickNode(nodeID *int64) (int64, error) {
	if nodeID != nil {
		if _, err := svc.nodes.GetByID(*nodeID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return 0, ErrNodeNotFound
			}
			return 0, err
		}
		if !svc.prov.IsConnected(*nodeID) {
			return 0, &NodeUnreachableError{NodeID: *nodeID, Cause: errors.New("node is not connected")}
		}
		return *nodeID, nil
	}

	ids := svc.prov.ConnectedIDs()
	if len(ids) == 0 {
		return 0, ErrNoNodeAvailable
	}
	return ids[0], nil
}

func (svc *Service) pickFreeCode() (string, error) {
	for i := 0; i < codeRetryAttempts; i++ {
		code := utils.GenerateMatchCode(matchCodeLength)
		_, err := svc.matches.GetByCode(code)
		if errors.Is(err, sql.ErrNoRows) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", errors.New("could not find a free match code")
}

func (svc *Service) readContent(match models.Match) (*models.MatchContent, error) {
	cli, err := svc.clientFor(match.NodeID)
	if err != nil {
		return nil, err
	}
	resp, err := cli.GetMatch(nodeconn.NewGetMatch(match.MatchID))
	if err != nil {
		return nil, svc.classifyNodeErr(match.NodeID, err)
	}
	svc.cache.Add(match.MatchID, resp.Content)
	return resp.Content, nil
}

// contentForValidation fetches content for pre-write checks: a short live
// read first, the cache second. ok is false when neither is available.
func (svc *Service) contentForValidation(match models.Match, cli NodeClient) (*models.MatchContent, bool) {
	resp, err := cli.GetMatch(nodeconn.NewGetMatch(match.MatchID), nodeconn.WithTimeout(nodeconn.TimeoutShort))
	if err == nil && resp.Content != nil {
		svc.cache.Add(match.MatchID, resp.Content)
		return resp.Content, true
	}
	if cached, ok := svc.cache.Get(match.MatchID); ok {
		return cached, true
	}
	return nil, false
}

func (svc *Service) clientFor(nodeID int64) (NodeClient, error) {
	cli, ok := svc.prov.Client(nodeID)
	if !ok {
		return nil, &NodeUnreachableError{NodeID: nodeID, Cause: errors.New("node is not connected")}
	}
	return cli, nil
}

func (svc *Service) classifyNodeErr(nodeID int64, err error) error {
	var rerr *nodeconn.RemoteError
	if errors.As(err, &rerr) {
		return &NodeRejectedError{NodeID: nodeID, Reason: rerr.Message}
	}
	return &NodeUnreachableError{NodeID: nodeID, Cause: err}
}

func validateScope(section string, playerIndex *int) error {
	if !consts.IsValidSection(section) {
		return fmt.Errorf("%w: %s", ErrInvalidSection, section)
	}
	if consts.SectionPerPlayer[section] {
		if playerIndex == nil {
			return fmt.Errorf("%w: section %s requires a player index", ErrInvalidSection, section)
		}
		if *playerIndex < 0 || *playerIndex >= consts.MaxPlayers {
			return fmt.Errorf("%w: player index %d out of range", ErrInvalidSection, *playerIndex)
		}
	} else if playerIndex != nil {
		return fmt.Errorf("%w: section %s does not take a player index", ErrInvalidSection, section)
	}
	return nil
}

func checkSlot(questions []*models.Question, section string, playerIndex *int, order int) error {
	inScope := lo.Filter(questions, func(q *models.Question, _ int) bool {
		return q.InScope(playerIndex)
	})
	if quota := consts.SectionQuotas[section]; len(inScope) >= quota {
		return &QuotaExceededError{
			Section:      section,
			PlayerIndex:  playerIndex,
			CurrentCount: len(inScope),
			MaxCount:     quota,
		}
	}
	if lo.ContainsBy(inScope, func(q *models.Question) bool { return q.Order == order }) {
		return &DuplicateOrderError{
			Section:        section,
			PlayerIndex:    playerIndex,
			Order:          order,
			ExistingOrders: lo.Map(inScope, func(q *models.Question, _ int) int { return q.Order }),
		}
	}
	return nil
}
