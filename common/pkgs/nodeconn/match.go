package nodeconn

import (
	"github.com/olympiavn/datahub/common/models"
)

// Tạo folder vật lý trên node.
type CreateFolder struct {
	FolderName string `json:"folderName"`
}
type CreateFolderResp struct {
}

func (*CreateFolder) OpName() string { return "create_folder" }

func NewCreateFolder(folderName string) *CreateFolder {
	return &CreateFolder{
		FolderName: folderName,
	}
}
func NewCreateFolderResp() *CreateFolderResp {
	return &CreateFolderResp{}
}
func (c *Client) CreateFolder(msg *CreateFolder, opts ...RequestOption) (*CreateFolderResp, error) {
	return Request[CreateFolderResp](c.conn, msg, pickTimeout(opts, TimeoutShort))
}

// Tạo trận đấu: folder + descriptor rỗng. The generous timeout covers
// filesystem setup on slow nodes.
type CreateMatch struct {
	MatchID string `json:"matchId"`
	Code    string `json:"code"`
	Name    string `json:"name"`
	Folder  string `json:"folder"`
}
type CreateMatchResp struct {
	Content *models.MatchContent `json:"content"`
}

func (*CreateMatch) OpName() string { return "create_match" }

func NewCreateMatch(matchID string, code string, name string, folder string) *CreateMatch {
	return &CreateMatch{
		MatchID: matchID,
		Code:    code,
		Name:    name,
		Folder:  folder,
	}
}
func NewCreateMatchResp(content *models.MatchContent) *CreateMatchResp {
	return &CreateMatchResp{
		Content: content,
	}
}
func (c *Client) CreateMatch(msg *CreateMatch, opts ...RequestOption) (*CreateMatchResp, error) {
	return Request[CreateMatchResp](c.conn, msg, pickTimeout(opts, TimeoutLong))
}

// Đọc descriptor của trận đấu.
type GetMatch struct {
	MatchID string `json:"matchId"`
}
type GetMatchResp struct {
	Content *models.MatchContent `json:"content"`
}

func (*GetMatch) OpName() string { return "get_match" }

func NewGetMatch(matchID string) *GetMatch {
	return &GetMatch{
		MatchID: matchID,
	}
}
func NewGetMatchResp(content *models.MatchContent) *GetMatchResp {
	return &GetMatchResp{
		Content: content,
	}
}
func (c *Client) GetMatch(msg *GetMatch, opts ...RequestOption) (*GetMatchResp, error) {
	return Request[GetMatchResp](c.conn, msg, pickTimeout(opts, TimeoutLong))
}

// Xóa trận đấu và toàn bộ file của nó.
type DeleteMatch struct {
	MatchID string `json:"matchId"`
}
type DeleteMatchResp struct {
}

func (*DeleteMatch) OpName() string { return "delete_match" }

func NewDeleteMatch(matchID string) *DeleteMatch {
	return &DeleteMatch{
		MatchID: matchID,
	}
}
func NewDeleteMatchResp() *DeleteMatchResp {
	return &DeleteMatchResp{}
}
func (c *Client) DeleteMatch(msg *DeleteMatch, opts ...RequestOption) (*DeleteMatchResp, error) {
	return Request[DeleteMatchResp](c.conn, msg, pickTimeout(opts, TimeoutLong))
}
