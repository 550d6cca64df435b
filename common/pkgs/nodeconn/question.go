package nodeconn

import (
	"github.com/olympiavn/datahub/common/models"
)

// Thêm câu hỏi vào một phần thi.
type AddQuestion struct {
	MatchID  string           `json:"matchId"`
	Section  string           `json:"section"`
	Question *models.Question `json:"question"`
}
type AddQuestionResp struct {
	Question *models.Question `json:"question"`
}

func (*AddQuestion) OpName() string { return "add_question" }

func NewAddQuestion(matchID string, section string, question *models.Question) *AddQuestion {
	return &AddQuestion{
		MatchID:  matchID,
		Section:  section,
		Question: question,
	}
}
func NewAddQuestionResp(question *models.Question) *AddQuestionResp {
	return &AddQuestionResp{
		Question: question,
	}
}
func (c *Client) AddQuestion(msg *AddQuestion, opts ...RequestOption) (*AddQuestionResp, error) {
	return Request[AddQuestionResp](c.conn, msg, pickTimeout(opts, TimeoutMedium))
}

// Sửa câu hỏi. Questions have no stable id of their own; they are addressed
// by the (section, playerIndex, order) triple and the node locates the entry.
type UpdateQuestion struct {
	MatchID      string           `json:"matchId"`
	Section      string           `json:"section"`
	PlayerIndex  *int             `json:"playerIndex"`
	Order        int              `json:"order"`
	QuestionData *models.Question `json:"questionData"`
}
type UpdateQuestionResp struct {
	Question *models.Question `json:"question"`
}

func (*UpdateQuestion) OpName() string { return "update_question" }

func NewUpdateQuestion(matchID string, section string, playerIndex *int, order int, questionData *models.Question) *UpdateQuestion {
	return &UpdateQuestion{
		MatchID:      matchID,
		Section:      section,
		PlayerIndex:  playerIndex,
		Order:        order,
		QuestionData: questionData,
	}
}
func NewUpdateQuestionResp(question *models.Question) *UpdateQuestionResp {
	return &UpdateQuestionResp{
		Question: question,
	}
}
func (c *Client) UpdateQuestion(msg *UpdateQuestion, opts ...RequestOption) (*UpdateQuestionResp, error) {
	return Request[UpdateQuestionResp](c.conn, msg, pickTimeout(opts, TimeoutMedium))
}

// Xóa câu hỏi.
type DeleteQuestion struct {
	MatchID     string `json:"matchId"`
	Section     string `json:"section"`
	PlayerIndex *int   `json:"playerIndex"`
	Order       int    `json:"order"`
}
type DeleteQuestionResp struct {
}

func (*DeleteQuestion) OpName() string { return "delete_question" }

func NewDeleteQuestion(matchID string, section string, playerIndex *int, order int) *DeleteQuestion {
	return &DeleteQuestion{
		MatchID:     matchID,
		Section:     section,
		PlayerIndex: playerIndex,
		Order:       order,
	}
}
func NewDeleteQuestionResp() *DeleteQuestionResp {
	return &DeleteQuestionResp{}
}
func (c *Client) DeleteQuestion(msg *DeleteQuestion, opts ...RequestOption) (*DeleteQuestionResp, error) {
	return Request[DeleteQuestionResp](c.conn, msg, pickTimeout(opts, TimeoutMedium))
}

// Chuyển câu hỏi sang thí sinh khác. Content lives only on the node, so the
// hub forwards this untouched.
type AssignPlayer struct {
	MatchID        string `json:"matchId"`
	Section        string `json:"section"`
	PlayerIndex    *int   `json:"playerIndex"`
	Order          int    `json:"order"`
	NewPlayerIndex int    `json:"newPlayerIndex"`
}
type AssignPlayerResp struct {
	Question *models.Question `json:"question"`
}

func (*AssignPlayer) OpName() string { return "assign_player" }

func NewAssignPlayer(matchID string, section string, playerIndex *int, order int, newPlayerIndex int) *AssignPlayer {
	return &AssignPlayer{
		MatchID:        matchID,
		Section:        section,
		PlayerIndex:    playerIndex,
		Order:          order,
		NewPlayerIndex: newPlayerIndex,
	}
}
func NewAssignPlayerResp(question *models.Question) *AssignPlayerResp {
	return &AssignPlayerResp{
		Question: question,
	}
}
func (c *Client) AssignPlayer(msg *AssignPlayer, opts ...RequestOption) (*AssignPlayerResp, error) {
	return Request[AssignPlayerResp](c.conn, msg, pickTimeout(opts, TimeoutMedium))
}
