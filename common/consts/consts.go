package consts

const (
	NodeStatusOnline  = "online"
	NodeStatusOffline = "offline"
	// NodeStatusError is reserved. Nothing sets it yet.
	NodeStatusError = "error"
)

const (
	MatchStatusDraft    = "draft"
	MatchStatusReady    = "ready"
	MatchStatusPlaying  = "playing"
	MatchStatusFinished = "finished"
	MatchStatusArchived = "archived"
)

var MatchStatuses = []string{
	MatchStatusDraft,
	MatchStatusReady,
	MatchStatusPlaying,
	MatchStatusFinished,
	MatchStatusArchived,
}

func IsValidMatchStatus(status string) bool {
	for _, s := range MatchStatuses {
		if s == status {
			return true
		}
	}
	return false
}

const (
	QuestionTypeText  = "text"
	QuestionTypeImage = "image"
	QuestionTypeVideo = "video"
)

// Các phần thi. Section names follow the game format and are stored verbatim
// in the match descriptor, so they must never be renamed.
const (
	SectionKhoiDongRieng = "khoi_dong_rieng"
	SectionKhoiDongChung = "khoi_dong_chung"
	SectionVCNV          = "vcnv"
	SectionTangToc       = "tang_toc"
	SectionVeDich        = "ve_dich"
)

var Sections = []string{
	SectionKhoiDongRieng,
	SectionKhoiDongChung,
	SectionVCNV,
	SectionTangToc,
	SectionVeDich,
}

// SectionQuotas is the question quota per (section, player) scope. For
// per-player sections the quota applies to each player index separately.
var SectionQuotas = map[string]int{
	SectionKhoiDongRieng: 6,
	SectionKhoiDongChung: 12,
	SectionVCNV:          6,
	SectionTangToc:       4,
	SectionVeDich:        3,
}

// SectionPerPlayer marks sections whose question lists are partitioned by
// player index (0..3).
var SectionPerPlayer = map[string]bool{
	SectionKhoiDongRieng: true,
	SectionVeDich:        true,
}

const MaxPlayers = 4

func IsValidSection(section string) bool {
	_, ok := SectionQuotas[section]
	return ok
}
