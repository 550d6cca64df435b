package services

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/olympiavn/datahub/common/consts"
	"github.com/olympiavn/datahub/common/models"
	"github.com/olympiavn/datahub/common/pkgs/db"
	"github.com/olympiavn/datahub/common/pkgs/nodeconn"
)

type fakeMatchStore struct {
	matches map[string]models.Match
}

func newFakeMatchStore(matches ...models.Match) *fakeMatchStore {
	s := &fakeMatchStore{matches: make(map[string]models.Match)}
	for _, m := range matches {
		s.matches[m.MatchID] = m
	}
	return s
}

func (s *fakeMatchStore) GetByID(matchID string) (models.Match, error) {
	m, ok := s.matches[matchID]
	if !ok {
		return models.Match{}, sql.ErrNoRows
	}
	return m, nil
}

func (s *fakeMatchStore) GetByCode(code string) (models.Match, error) {
	for _, m := range s.matches {
		if m.Code == code {
			return m, nil
		}
	}
	return models.Match{}, sql.ErrNoRows
}

func (s *fakeMatchStore) GetDetailByID(matchID string) (models.MatchDetail, error) {
	m, err := s.GetByID(matchID)
	if err != nil {
		return models.MatchDetail{}, err
	}
	return models.MatchDetail{Match: m, NodeName: "node", NodeStatus: consts.NodeStatusOnline}, nil
}

func (s *fakeMatchStore) List(filter db.ListMatchesFilter) ([]models.MatchDetail, error) {
	var ret []models.MatchDetail
	for _, m := range s.matches {
		if filter.NodeID != nil && m.NodeID != *filter.NodeID {
			continue
		}
		if filter.Status != nil && m.Status != *filter.Status {
			continue
		}
		ret = append(ret, models.MatchDetail{Match: m})
	}
	return ret, nil
}

func (s *fakeMatchStore) Create(match *models.Match) error {
	s.matches[match.MatchID] = *match
	return nil
}

func (s *fakeMatchStore) UpdateName(matchID string, name string) error {
	m := s.matches[matchID]
	m.Name = name
	s.matches[matchID] = m
	return nil
}

func (s *fakeMatchStore) UpdateStatus(matchID string, status string) error {
	m := s.matches[matchID]
	m.Status = status
	s.matches[matchID] = m
	return nil
}

func (s *fakeMatchStore) Delete(matchID string) error {
	delete(s.matches, matchID)
	return nil
}

type fakeNodeDirectory struct {
	nodes map[int64]models.DataNode
}

func newFakeNodeDirectory(ids ...int64) *fakeNodeDirectory {
	s := &fakeNodeDirectory{nodes: make(map[int64]models.DataNode)}
	for _, id := range ids {
		s.nodes[id] = models.DataNode{NodeID: id, Status: consts.NodeStatusOnline}
	}
	return s
}

func (s *fakeNodeDirectory) GetByID(nodeID int64) (models.DataNode, error) {
	n, ok := s.nodes[nodeID]
	if !ok {
		return models.DataNode{}, sql.ErrNoRows
	}
	return n, nil
}

func (s *fakeNodeDirectory) GetAll() ([]models.DataNode, error) {
	var ret []models.DataNode
	for _, n := range s.nodes {
		ret = append(ret, n)
	}
	return ret, nil
}

func (s *fakeNodeDirectory) Create(name string, host string, port int, storageTotal int64) (int64, error) {
	id := int64(len(s.nodes) + 1)
	s.nodes[id] = models.DataNode{NodeID: id, Name: name, Host: host, Port: port}
	return id, nil
}

func (s *fakeNodeDirectory) Update(nodeID int64, name string, host string) error { return nil }

func (s *fakeNodeDirectory) Delete(nodeID int64) error {
	delete(s.nodes, nodeID)
	return nil
}

func (s *fakeNodeDirectory) UpdateStorage(nodeID int64, used int64, total int64) error { return nil }

// fakeNodeClient implements NodeClient with per-op overrides. Unset ops
// succeed with an empty response.
type fakeNodeClient struct {
	onCreateMatch func(*nodeconn.CreateMatch) (*nodeconn.CreateMatchResp, error)
	onGetMatch    func(*nodeconn.GetMatch) (*nodeconn.GetMatchResp, error)
	onDeleteMatch func(*nodeconn.DeleteMatch) (*nodeconn.DeleteMatchResp, error)
	onAddQuestion func(*nodeconn.AddQuestion) (*nodeconn.AddQuestionResp, error)
	deletedFiles  []string
}

func (c *fakeNodeClient) CreateFolder(msg *nodeconn.CreateFolder, opts ...nodeconn.RequestOption) (*nodeconn.CreateFolderResp, error) {
	return &nodeconn.CreateFolderResp{}, nil
}

func (c *fakeNodeClient) CreateMatch(msg *nodeconn.CreateMatch, opts ...nodeconn.RequestOption) (*nodeconn.CreateMatchResp, error) {
	if c.onCreateMatch != nil {
		return c.onCreateMatch(msg)
	}
	return &nodeconn.CreateMatchResp{}, nil
}

func (c *fakeNodeClient) GetMatch(msg *nodeconn.GetMatch, opts ...nodeconn.RequestOption) (*nodeconn.GetMatchResp, error) {
	if c.onGetMatch != nil {
		return c.onGetMatch(msg)
	}
	return &nodeconn.GetMatchResp{Content: &models.MatchContent{MatchID: msg.MatchID, Sections: map[string][]*models.Question{}}}, nil
}

func (c *fakeNodeClient) DeleteMatch(msg *nodeconn.DeleteMatch, opts ...nodeconn.RequestOption) (*nodeconn.DeleteMatchResp, error) {
	if c.onDeleteMatch != nil {
		return c.onDeleteMatch(msg)
	}
	return &nodeconn.DeleteMatchResp{}, nil
}

func (c *fakeNodeClient) AddQuestion(msg *nodeconn.AddQuestion, opts ...nodeconn.RequestOption) (*nodeconn.AddQuestionResp, error) {
	if c.onAddQuestion != nil {
		return c.onAddQuestion(msg)
	}
	return &nodeconn.AddQuestionResp{Question: msg.Question}, nil
}

func (c *fakeNodeClient) UpdateQuestion(msg *nodeconn.UpdateQuestion, opts ...nodeconn.RequestOption) (*nodeconn.UpdateQuestionResp, error) {
	return &nodeconn.UpdateQuestionResp{Question: msg.QuestionData}, nil
}

func (c *fakeNodeClient) DeleteQuestion(msg *nodeconn.DeleteQuestion, opts ...nodeconn.RequestOption) (*nodeconn.DeleteQuestionResp, error) {
	return &nodeconn.DeleteQuestionResp{}, nil
}

func (c *fakeNodeClient) AssignPlayer(msg *nodeconn.AssignPlayer, opts ...nodeconn.RequestOption) (*nodeconn.AssignPlayerResp, error) {
	return &nodeconn.AssignPlayerResp{}, nil
}

func (c *fakeNodeClient) UploadFile(msg *nodeconn.UploadFile, opts ...nodeconn.RequestOption) (*nodeconn.UploadFileResp, error) {
	return &nodeconn.UploadFileResp{StoragePath: msg.Folder + "/" + msg.FileName, Size: 1}, nil
}

func (c *fakeNodeClient) DeleteFile(msg *nodeconn.DeleteFile, opts ...nodeconn.RequestOption) (*nodeconn.DeleteFileResp, error) {
	c.deletedFiles = append(c.deletedFiles, msg.FilePath)
	return &nodeconn.DeleteFileResp{}, nil
}

func (c *fakeNodeClient) GetStorageInfo(msg *nodeconn.GetStorageInfo, opts ...nodeconn.RequestOption) (*nodeconn.GetStorageInfoResp, error) {
	return &nodeconn.GetStorageInfoResp{Used: 1, Total: 2}, nil
}

type fakeProvider struct {
	clients map[int64]NodeClient
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{clients: make(map[int64]NodeClient)}
}

func (p *fakeProvider) connect(nodeID int64, cli NodeClient) { p.clients[nodeID] = cli }

func (p *fakeProvider) Client(nodeID int64) (NodeClient, bool) {
	cli, ok := p.clients[nodeID]
	return cli, ok
}

func (p *fakeProvider) IsConnected(nodeID int64) bool {
	_, ok := p.clients[nodeID]
	return ok
}

func (p *fakeProvider) ConnectedIDs() []int64 {
	var ids []int64
	for id := int64(1); id <= int64(len(p.clients))+10; id++ {
		if _, ok := p.clients[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func intPtr(v int) *int { return &v }

func seedMatch(nodeID int64) models.Match {
	now := time.Now()
	return models.Match{
		MatchID:    "20260901_ABC123_Test",
		Code:       "ABC123",
		Name:       "Test",
		NodeID:     nodeID,
		Folder:     "Test_ABC123",
		Status:     consts.MatchStatusDraft,
		CreateTime: now,
		UpdateTime: now,
	}
}

func contentWith(matchID string, section string, questions ...*models.Question) *models.MatchContent {
	return &models.MatchContent{
		MatchID:  matchID,
		Sections: map[string][]*models.Question{section: questions},
	}
}

func TestCreateMatchPicksLowestConnectedNode(t *testing.T) {
	matches := newFakeMatchStore()
	nodes := newFakeNodeDirectory(2, 5)
	prov := newFakeProvider()
	prov.connect(5, &fakeNodeClient{})
	prov.connect(2, &fakeNodeClient{})
	svc := NewService(matches, nodes, prov)

	match, err := svc.CreateMatch("Trận Mở Màn", "admin", nil)
	require.NoError(t, err)
	require.Equal(t, int64(2), match.NodeID)
	require.Equal(t, consts.MatchStatusDraft, match.Status)
	require.Contains(t, match.MatchID, match.Code)

	// Metadata really was persisted.
	_, err = matches.GetByID(match.MatchID)
	require.NoError(t, err)
}

func TestCreateMatchNoNodeAvailable(t *testing.T) {
	svc := NewService(newFakeMatchStore(), newFakeNodeDirectory(1), newFakeProvider())

	_, err := svc.CreateMatch("Test", "admin", nil)
	require.ErrorIs(t, err, ErrNoNodeAvailable)
}

func TestCreateMatchExplicitNodeMustBeConnected(t *testing.T) {
	nodes := newFakeNodeDirectory(1)
	svc := NewService(newFakeMatchStore(), nodes, newFakeProvider())

	nodeID := int64(1)
	_, err := svc.CreateMatch("Test", "admin", &nodeID)
	var unreachable *NodeUnreachableError
	require.ErrorAs(t, err, &unreachable)
	require.Equal(t, int64(1), unreachable.NodeID)

	missing := int64(99)
	_, err = svc.CreateMatch("Test", "admin", &missing)
	require.ErrorIs(t, err, ErrNodeNotFound)
}

// A node-side provisioning failure must roll the metadata insert back, so
// no record ever points at a folder that does not exist.
func TestCreateMatchRollsBackOnNodeFailure(t *testing.T) {
	matches := newFakeMatchStore()
	prov := newFakeProvider()
	prov.connect(1, &fakeNodeClient{
		onCreateMatch: func(*nodeconn.CreateMatch) (*nodeconn.CreateMatchResp, error) {
			return nil, &nodeconn.RemoteError{Message: "disk full"}
		},
	})
	svc := NewService(matches, newFakeNodeDirectory(1), prov)

	_, err := svc.CreateMatch("Test", "admin", nil)
	var rejected *NodeRejectedError
	require.ErrorAs(t, err, &rejected)
	require.Empty(t, matches.matches, "metadata must be rolled back")
}

// Deleting a match whose node is gone must still remove the metadata.
func TestDeleteMatchIsMetadataAuthoritative(t *testing.T) {
	match := seedMatch(1)
	matches := newFakeMatchStore(match)
	svc := NewService(matches, newFakeNodeDirectory(1), newFakeProvider())

	require.NoError(t, svc.DeleteMatch(match.MatchID))
	require.Empty(t, matches.matches)
}

func TestDeleteMatchSurvivesNodeError(t *testing.T) {
	match := seedMatch(1)
	matches := newFakeMatchStore(match)
	prov := newFakeProvider()
	prov.connect(1, &fakeNodeClient{
		onDeleteMatch: func(*nodeconn.DeleteMatch) (*nodeconn.DeleteMatchResp, error) {
			return nil, errors.New("request timed out")
		},
	})
	svc := NewService(matches, newFakeNodeDirectory(1), prov)

	require.NoError(t, svc.DeleteMatch(match.MatchID))
	require.Empty(t, matches.matches)
}

func TestAddQuestionQuotaExceeded(t *testing.T) {
	match := seedMatch(1)
	quota := consts.SectionQuotas[consts.SectionTangToc]
	existing := make([]*models.Question, quota)
	for i := range existing {
		existing[i] = &models.Question{Order: i + 1, Type: consts.QuestionTypeText}
	}

	prov := newFakeProvider()
	prov.connect(1, &fakeNodeClient{
		onGetMatch: func(msg *nodeconn.GetMatch) (*nodeconn.GetMatchResp, error) {
			return &nodeconn.GetMatchResp{Content: contentWith(msg.MatchID, consts.SectionTangToc, existing...)}, nil
		},
	})
	svc := NewService(newFakeMatchStore(match), newFakeNodeDirectory(1), prov)

	_, _, err := svc.AddQuestion(match.MatchID, consts.SectionTangToc, &models.Question{Order: quota + 1})
	var quotaErr *QuotaExceededError
	require.ErrorAs(t, err, &quotaErr)
	require.Equal(t, quota, quotaErr.CurrentCount)
	require.Equal(t, quota, quotaErr.MaxCount)
}

// Per-player quota counts each player separately: player 1 being full must
// not block player 2.
func TestAddQuestionQuotaIsPerPlayer(t *testing.T) {
	match := seedMatch(1)
	quota := consts.SectionQuotas[consts.SectionVeDich]
	full := make([]*models.Question, quota)
	for i := range full {
		full[i] = &models.Question{Order: i + 1, PlayerIndex: intPtr(1)}
	}

	prov := newFakeProvider()
	prov.connect(1, &fakeNodeClient{
		onGetMatch: func(msg *nodeconn.GetMatch) (*nodeconn.GetMatchResp, error) {
			return &nodeconn.GetMatchResp{Content: contentWith(msg.MatchID, consts.SectionVeDich, full...)}, nil
		},
	})
	svc := NewService(newFakeMatchStore(match), newFakeNodeDirectory(1), prov)

	_, _, err := svc.AddQuestion(match.MatchID, consts.SectionVeDich, &models.Question{Order: 1, PlayerIndex: intPtr(1)})
	var quotaErr *QuotaExceededError
	require.ErrorAs(t, err, &quotaErr)

	q, warning, err := svc.AddQuestion(match.MatchID, consts.SectionVeDich, &models.Question{Order: 1, PlayerIndex: intPtr(2)})
	require.NoError(t, err)
	require.Empty(t, warning)
	require.NotNil(t, q)
}

func TestAddQuestionDuplicateOrder(t *testing.T) {
	match := seedMatch(1)
	prov := newFakeProvider()
	prov.connect(1, &fakeNodeClient{
		onGetMatch: func(msg *nodeconn.GetMatch) (*nodeconn.GetMatchResp, error) {
			return &nodeconn.GetMatchResp{Content: contentWith(msg.MatchID, consts.SectionKhoiDongChung,
				&models.Question{Order: 3})}, nil
		},
	})
	svc := NewService(newFakeMatchStore(match), newFakeNodeDirectory(1), prov)

	_, _, err := svc.AddQuestion(match.MatchID, consts.SectionKhoiDongChung, &models.Question{Order: 3})
	var dup *DuplicateOrderError
	require.ErrorAs(t, err, &dup)
	require.Equal(t, 3, dup.Order)
	require.Contains(t, dup.ExistingOrders, 3)
}

// When the pre-write read fails and nothing is cached the add still goes
// through, flagged with the validation-skipped warning.
func TestAddQuestionSkipsValidationWhenContentUnavailable(t *testing.T) {
	match := seedMatch(1)
	prov := newFakeProvider()
	prov.connect(1, &fakeNodeClient{
		onGetMatch: func(*nodeconn.GetMatch) (*nodeconn.GetMatchResp, error) {
			return nil, errors.New("request timed out")
		},
	})
	svc := NewService(newFakeMatchStore(match), newFakeNodeDirectory(1), prov)

	q, warning, err := svc.AddQuestion(match.MatchID, consts.SectionKhoiDongChung, &models.Question{Order: 1})
	require.NoError(t, err)
	require.NotNil(t, q)
	require.Equal(t, WarnValidationSkipped, warning)
}

func TestAddQuestionScopeValidation(t *testing.T) {
	match := seedMatch(1)
	prov := newFakeProvider()
	prov.connect(1, &fakeNodeClient{})
	svc := NewService(newFakeMatchStore(match), newFakeNodeDirectory(1), prov)

	_, _, err := svc.AddQuestion(match.MatchID, "not_a_section", &models.Question{Order: 1})
	require.ErrorIs(t, err, ErrInvalidSection)

	_, _, err = svc.AddQuestion(match.MatchID, consts.SectionVeDich, &models.Question{Order: 1})
	require.ErrorIs(t, err, ErrInvalidSection, "per-player section requires a player index")

	_, _, err = svc.AddQuestion(match.MatchID, consts.SectionVCNV, &models.Question{Order: 1, PlayerIndex: intPtr(0)})
	require.ErrorIs(t, err, ErrInvalidSection, "shared section must not carry a player index")
}

// GetMatch falls back to the cached content when the node stops answering.
func TestGetMatchContentFallsBackToCache(t *testing.T) {
	match := seedMatch(1)
	live := true
	prov := newFakeProvider()
	prov.connect(1, &fakeNodeClient{
		onGetMatch: func(msg *nodeconn.GetMatch) (*nodeconn.GetMatchResp, error) {
			if !live {
				return nil, errors.New("request timed out")
			}
			return &nodeconn.GetMatchResp{Content: contentWith(msg.MatchID, consts.SectionVCNV,
				&models.Question{Order: 1})}, nil
		},
	})
	svc := NewService(newFakeMatchStore(match), newFakeNodeDirectory(1), prov)

	info, err := svc.GetMatch(match.MatchID)
	require.NoError(t, err)
	require.NotNil(t, info.Content)
	require.Empty(t, info.ContentWarning)

	live = false
	info, err = svc.GetMatch(match.MatchID)
	require.NoError(t, err)
	require.NotNil(t, info.Content, "cached content must be served")
	require.NotEmpty(t, info.ContentWarning)
}

func TestGetMatchNotFound(t *testing.T) {
	svc := NewService(newFakeMatchStore(), newFakeNodeDirectory(), newFakeProvider())

	_, err := svc.GetMatch("missing")
	require.ErrorIs(t, err, ErrMatchNotFound)
}

func TestUpdateMatchStatusValidation(t *testing.T) {
	match := seedMatch(1)
	matches := newFakeMatchStore(match)
	svc := NewService(matches, newFakeNodeDirectory(1), newFakeProvider())

	require.ErrorIs(t, svc.UpdateMatchStatus(match.MatchID, "bogus"), ErrInvalidStatus)

	require.NoError(t, svc.UpdateMatchStatus(match.MatchID, consts.MatchStatusReady))
	got, _ := matches.GetByID(match.MatchID)
	require.Equal(t, consts.MatchStatusReady, got.Status)
}

func TestUploadMediaRewritesStreamURL(t *testing.T) {
	match := seedMatch(1)
	prov := newFakeProvider()
	prov.connect(1, &fakeNodeClient{})
	svc := NewService(newFakeMatchStore(match), newFakeNodeDirectory(1), prov)

	resp, err := svc.UploadMedia(match.MatchID, "clip.mp4", "video/mp4", []byte("data"))
	require.NoError(t, err)
	require.Equal(t, "/stream/1/Test_ABC123/clip.mp4", resp.StreamURL)
}

// A failed add after a successful upload must clean the file up on the node.
func TestAddMediaQuestionCleansUpOnFailure(t *testing.T) {
	match := seedMatch(1)
	cli := &fakeNodeClient{
		onGetMatch: func(*nodeconn.GetMatch) (*nodeconn.GetMatchResp, error) {
			return nil, errors.New("request timed out")
		},
		onAddQuestion: func(*nodeconn.AddQuestion) (*nodeconn.AddQuestionResp, error) {
			return nil, &nodeconn.RemoteError{Message: "order 1 is already taken"}
		},
	}
	prov := newFakeProvider()
	prov.connect(1, cli)
	svc := NewService(newFakeMatchStore(match), newFakeNodeDirectory(1), prov)

	_, _, err := svc.AddMediaQuestion(match.MatchID, consts.SectionVCNV,
		&models.Question{Order: 1, Type: consts.QuestionTypeVideo}, "clip.mp4", "video/mp4", []byte("data"))
	var rejected *NodeRejectedError
	require.ErrorAs(t, err, &rejected)
	require.Equal(t, []string{"Test_ABC123/clip.mp4"}, cli.deletedFiles)
}

func TestDeleteNodeRefusesWhileHostingMatches(t *testing.T) {
	match := seedMatch(1)
	svc := NewService(newFakeMatchStore(match), newFakeNodeDirectory(1), newFakeProvider())

	require.ErrorIs(t, svc.DeleteNode(1), ErrNodeHasMatches)
}
