package server

import (
	"encoding/base64"
	"encoding/json"

	"github.com/olympiavn/datahub/common/consts/errorcode"
	"github.com/olympiavn/datahub/common/pkgs/logger"
	"github.com/olympiavn/datahub/common/pkgs/nodeconn"
)

// handlerOf adapts a typed handler to the connection's raw form.
func handlerOf[TReq any, TResp any](fn func(*TReq) (*TResp, *nodeconn.CodeMessage)) nodeconn.RequestHandler {
	return func(body json.RawMessage) (any, *nodeconn.CodeMessage) {
		var req TReq
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, nodeconn.Failed(errorcode.BadArgument, "invalid request body")
		}
		return fn(&req)
	}
}

func (s *Server) installHandlers(conn *nodeconn.Conn) {
	conn.Handle((*nodeconn.CreateFolder)(nil).OpName(), handlerOf(s.createFolder))
	conn.Handle((*nodeconn.CreateMatch)(nil).OpName(), handlerOf(s.createMatch))
	conn.Handle((*nodeconn.GetMatch)(nil).OpName(), handlerOf(s.getMatch))
	conn.Handle((*nodeconn.DeleteMatch)(nil).OpName(), handlerOf(s.deleteMatch))
	conn.Handle((*nodeconn.AddQuestion)(nil).OpName(), handlerOf(s.addQuestion))
	conn.Handle((*nodeconn.UpdateQuestion)(nil).OpName(), handlerOf(s.updateQuestion))
	conn.Handle((*nodeconn.DeleteQuestion)(nil).OpName(), handlerOf(s.deleteQuestion))
	conn.Handle((*nodeconn.AssignPlayer)(nil).OpName(), handlerOf(s.assignPlayer))
	conn.Handle((*nodeconn.UploadFile)(nil).OpName(), handlerOf(s.uploadFile))
	conn.Handle((*nodeconn.DeleteFile)(nil).OpName(), handlerOf(s.deleteFile))
	conn.Handle((*nodeconn.GetStorageInfo)(nil).OpName(), handlerOf(s.getStorageInfo))
}

func (s *Server) createFolder(msg *nodeconn.CreateFolder) (*nodeconn.CreateFolderResp, *nodeconn.CodeMessage) {
	if err := s.store.CreateFolder(msg.FolderName); err != nil {
		logger.Warnf("creating folder %s: %s", msg.FolderName, err.Error())
		return nil, nodeconn.Failed(errorcode.OperationFailed, err.Error())
	}
	return nodeconn.ReplyOK(nodeconn.NewCreateFolderResp())
}

func (s *Server) createMatch(msg *nodeconn.CreateMatch) (*nodeconn.CreateMatchResp, *nodeconn.CodeMessage) {
	content, err := s.store.CreateMatch(msg.MatchID, msg.Code, msg.Name, msg.Folder)
	if err != nil {
		logger.WithField("MatchID", msg.MatchID).Warnf("creating match: %s", err.Error())
		return nil, nodeconn.Failed(errorcode.OperationFailed, err.Error())
	}
	return nodeconn.ReplyOK(nodeconn.NewCreateMatchResp(content))
}

func (s *Server) getMatch(msg *nodeconn.GetMatch) (*nodeconn.GetMatchResp, *nodeconn.CodeMessage) {
	content, err := s.store.GetMatch(msg.MatchID)
	if err != nil {
		return nil, nodeconn.Failed(errorcode.MatchNotFound, err.Error())
	}
	return nodeconn.ReplyOK(nodeconn.NewGetMatchResp(content))
}

func (s *Server) deleteMatch(msg *nodeconn.DeleteMatch) (*nodeconn.DeleteMatchResp, *nodeconn.CodeMessage) {
	if err := s.store.DeleteMatch(msg.MatchID); err != nil {
		logger.WithField("MatchID", msg.MatchID).Warnf("deleting match: %s", err.Error())
		return nil, nodeconn.Failed(errorcode.OperationFailed, err.Error())
	}
	return nodeconn.ReplyOK(nodeconn.NewDeleteMatchResp())
}

func (s *Server) addQuestion(msg *nodeconn.AddQuestion) (*nodeconn.AddQuestionResp, *nodeconn.CodeMessage) {
	question, err := s.store.AddQuestion(msg.MatchID, msg.Section, msg.Question)
	if err != nil {
		return nil, nodeconn.Failed(errorcode.OperationFailed, err.Error())
	}
	return nodeconn.ReplyOK(nodeconn.NewAddQuestionResp(question))
}

func (s *Server) updateQuestion(msg *nodeconn.UpdateQuestion) (*nodeconn.UpdateQuestionResp, *nodeconn.CodeMessage) {
	question, err := s.store.UpdateQuestion(msg.MatchID, msg.Section, msg.PlayerIndex, msg.Order, msg.QuestionData)
	if err != nil {
		return nil, nodeconn.Failed(errorcode.OperationFailed, err.Error())
	}
	return nodeconn.ReplyOK(nodeconn.NewUpdateQuestionResp(question))
}

func (s *Server) deleteQuestion(msg *nodeconn.DeleteQuestion) (*nodeconn.DeleteQuestionResp, *nodeconn.CodeMessage) {
	if err := s.store.DeleteQuestion(msg.MatchID, msg.Section, msg.PlayerIndex, msg.Order); err != nil {
		return nil, nodeconn.Failed(errorcode.OperationFailed, err.Error())
	}
	return nodeconn.ReplyOK(nodeconn.NewDeleteQuestionResp())
}

func (s *Server) assignPlayer(msg *nodeconn.AssignPlayer) (*nodeconn.AssignPlayerResp, *nodeconn.CodeMessage) {
	question, err := s.store.AssignPlayer(msg.MatchID, msg.Section, msg.PlayerIndex, msg.Order, msg.NewPlayerIndex)
	if err != nil {
		return nil, nodeconn.Failed(errorcode.OperationFailed, err.Error())
	}
	return nodeconn.ReplyOK(nodeconn.NewAssignPlayerResp(question))
}

func (s *Server) uploadFile(msg *nodeconn.UploadFile) (*nodeconn.UploadFileResp, *nodeconn.CodeMessage) {
	data, err := base64.StdEncoding.DecodeString(msg.FileBuffer)
	if err != nil {
		return nil, nodeconn.Failed(errorcode.BadArgument, "invalid file buffer encoding")
	}

	relPath, size, err := s.store.SaveFile(msg.Folder, msg.FileName, data)
	if err != nil {
		logger.Warnf("saving file %s/%s: %s", msg.Folder, msg.FileName, err.Error())
		return nil, nodeconn.Failed(errorcode.OperationFailed, err.Error())
	}

	// StreamURL is filled in by the hub; nodes do not know how they are
	// exposed to clients.
	return nodeconn.ReplyOK(nodeconn.NewUploadFileResp(relPath, "", size))
}

func (s *Server) deleteFile(msg *nodeconn.DeleteFile) (*nodeconn.DeleteFileResp, *nodeconn.CodeMessage) {
	if err := s.store.DeleteFile(msg.FilePath); err != nil {
		logger.Warnf("deleting file %s: %s", msg.FilePath, err.Error())
		return nil, nodeconn.Failed(errorcode.OperationFailed, err.Error())
	}
	return nodeconn.ReplyOK(nodeconn.NewDeleteFileResp())
}

func (s *Server) getStorageInfo(msg *nodeconn.GetStorageInfo) (*nodeconn.GetStorageInfoResp, *nodeconn.CodeMessage) {
	used, err := s.store.UsedSpace()
	if err != nil {
		return nil, nodeconn.Failed(errorcode.OperationFailed, err.Error())
	}
	return nodeconn.ReplyOK(nodeconn.NewGetStorageInfoResp(used, s.cfg.StorageTotal))
}
