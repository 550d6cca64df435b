package services

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/olympiavn/datahub/common/models"
	"github.com/olympiavn/datahub/common/pkgs/db"
	"github.com/olympiavn/datahub/common/pkgs/nodeconn"
	"github.com/olympiavn/datahub/hub/internal/registry"
)

// MatchStore is the match metadata table as the service sees it.
type MatchStore interface {
	GetByID(matchID string) (models.Match, error)
	GetByCode(code string) (models.Match, error)
	GetDetailByID(matchID string) (models.MatchDetail, error)
	List(filter db.ListMatchesFilter) ([]models.MatchDetail, error)
	Create(match *models.Match) error
	UpdateName(matchID string, name string) error
	UpdateStatus(matchID string, status string) error
	Delete(matchID string) error
}

// NodeStore is the node directory slice the service needs.
type NodeStore interface {
	GetByID(nodeID int64) (models.DataNode, error)
	GetAll() ([]models.DataNode, error)
	Create(name string, host string, port int, storageTotal int64) (int64, error)
	Update(nodeID int64, name string, host string) error
	Delete(nodeID int64) error
	UpdateStorage(nodeID int64, used int64, total int64) error
}

// NodeClient is the remote surface of one data node. *nodeconn.Client
// implements it; tests substitute fakes.
type NodeClient interface {
	CreateFolder(msg *nodeconn.CreateFolder, opts ...nodeconn.RequestOption) (*nodeconn.CreateFolderResp, error)
	CreateMatch(msg *nodeconn.CreateMatch, opts ...nodeconn.RequestOption) (*nodeconn.CreateMatchResp, error)
	GetMatch(msg *nodeconn.GetMatch, opts ...nodeconn.RequestOption) (*nodeconn.GetMatchResp, error)
	DeleteMatch(msg *nodeconn.DeleteMatch, opts ...nodeconn.RequestOption) (*nodeconn.DeleteMatchResp, error)
	AddQuestion(msg *nodeconn.AddQuestion, opts ...nodeconn.RequestOption) (*nodeconn.AddQuestionResp, error)
	UpdateQuestion(msg *nodeconn.UpdateQuestion, opts ...nodeconn.RequestOption) (*nodeconn.UpdateQuestionResp, error)
	DeleteQuestion(msg *nodeconn.DeleteQuestion, opts ...nodeconn.RequestOption) (*nodeconn.DeleteQuestionResp, error)
	AssignPlayer(msg *nodeconn.AssignPlayer, opts ...nodeconn.RequestOption) (*nodeconn.AssignPlayerResp, error)
	UploadFile(msg *nodeconn.UploadFile, opts ...nodeconn.RequestOption) (*nodeconn.UploadFileResp, error)
	DeleteFile(msg *nodeconn.DeleteFile, opts ...nodeconn.RequestOption) (*nodeconn.DeleteFileResp, error)
	GetStorageInfo(msg *nodeconn.GetStorageInfo, opts ...nodeconn.RequestOption) (*nodeconn.GetStorageInfoResp, error)
}

var _ NodeClient = (*nodeconn.Client)(nil)

// NodeProvider hands out clients for connected nodes.
type NodeProvider interface {
	Client(nodeID int64) (NodeClient, bool)
	IsConnected(nodeID int64) bool
	ConnectedIDs() []int64
}

// RegistryProvider adapts *registry.Registry to NodeProvider.
type RegistryProvider struct {
	Registry *registry.Registry
}

func (p *RegistryProvider) Client(nodeID int64) (NodeClient, bool) {
	cli, ok := p.Registry.Client(nodeID)
	if !ok {
		return nil, false
	}
	return cli, true
}

func (p *RegistryProvider) IsConnected(nodeID int64) bool { return p.Registry.IsConnected(nodeID) }

func (p *RegistryProvider) ConnectedIDs() []int64 { return p.Registry.ConnectedIDs() }

const contentCacheSize = 128

// Service is the coordination core: it owns match metadata, chooses nodes
// and forwards content operations to them.
type Service struct {
	matches MatchStore
	nodes   NodeStore
	prov    NodeProvider

	// Last content read per match, used when the owning node is unreachable.
	cache *lru.Cache[string, *models.MatchContent]
}

func NewService(matches MatchStore, nodes NodeStore, prov NodeProvider) *Service {
	cache, _ := lru.New[string, *models.MatchContent](contentCacheSize)
	return &Service{
		matches: matches,
		nodes:   nodes,
		prov:    prov,
		cache:   cache,
	}
}
