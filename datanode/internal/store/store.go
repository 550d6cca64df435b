package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/olympiavn/datahub/common/consts"
	"github.com/olympiavn/datahub/common/models"
	"github.com/olympiavn/datahub/common/pkgs/logger"
)

const descriptorFile = "match.json"

var (
	ErrMatchExists      = errors.New("match already exists")
	ErrMatchNotFound    = errors.New("match not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrInvalidPath      = errors.New("path escapes the storage directory")
)

// Store owns the match folders under one storage root. Every match is a
// directory holding its media files and a match.json descriptor with the
// full question structure.
//
// Quota and order-uniqueness rules are enforced here under the per-match
// lock. The hub runs the same checks before forwarding, but only the write
// side can do so race-free, so this is the authoritative check.
type Store struct {
	root string

	mu      sync.Mutex
	index   map[string]string // matchID -> folder
	matchMu map[string]*sync.Mutex
}

func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("creating storage root: %w", err)
	}

	s := &Store{
		root:    root,
		index:   make(map[string]string),
		matchMu: make(map[string]*sync.Mutex),
	}
	if err := s.rebuildIndex(); err != nil {
		return nil, err
	}
	return s, nil
}

// rebuildIndex rediscovers matches from descriptors on disk, so a restarted
// node keeps serving everything it already holds.
func (s *Store) rebuildIndex() error {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return fmt.Errorf("reading storage root: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		content, err := s.readDescriptor(entry.Name())
		if err != nil {
			logger.WithField("Folder", entry.Name()).
				Warnf("skipping folder without a readable descriptor: %s", err.Error())
			continue
		}
		s.index[content.MatchID] = entry.Name()
	}

	logger.Infof("indexed %d matches under %s", len(s.index), s.root)
	return nil
}

func (s *Store) lockMatch(matchID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	mu, ok := s.matchMu[matchID]
	if !ok {
		mu = &sync.Mutex{}
		s.matchMu[matchID] = mu
	}
	return mu
}

func (s *Store) folderOf(matchID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	folder, ok := s.index[matchID]
	return folder, ok
}

// safeJoin joins parts under the root and refuses anything that would step
// outside it.
func (s *Store) safeJoin(parts ...string) (string, error) {
	p := filepath.Join(append([]string{s.root}, parts...)...)
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	rootAbs, err := filepath.Abs(s.root)
	if err != nil {
		return "", err
	}
	if abs != rootAbs && !strings.HasPrefix(abs, rootAbs+string(filepath.Separator)) {
		return "", ErrInvalidPath
	}
	return abs, nil
}

func (s *Store) readDescriptor(folder string) (*models.MatchContent, error) {
	path, err := s.safeJoin(folder, descriptorFile)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var content models.MatchContent
	if err := json.Unmarshal(data, &content); err != nil {
		return nil, fmt.Errorf("parsing descriptor: %w", err)
	}
	return &content, nil
}

func (s *Store) writeDescriptor(folder string, content *models.MatchContent) error {
	path, err := s.safeJoin(folder, descriptorFile)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling descriptor: %w", err)
	}

	// Ghi qua file tạm rồi rename để descriptor không bao giờ nửa vời.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *Store) CreateFolder(folder string) error {
	path, err := s.safeJoin(folder)
	if err != nil {
		return err
	}
	return os.MkdirAll(path, 0755)
}

// CreateMatch provisions the folder and an empty descriptor. All sections
// are present from the start so readers never deal with missing keys.
func (s *Store) CreateMatch(matchID string, code string, name string, folder string) (*models.MatchContent, error) {
	s.mu.Lock()
	if _, ok := s.index[matchID]; ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrMatchExists, matchID)
	}
	s.index[matchID] = folder
	s.mu.Unlock()

	if err := s.CreateFolder(folder); err != nil {
		s.dropFromIndex(matchID)
		return nil, err
	}

	sections := make(map[string][]*models.Question, len(consts.Sections))
	for _, section := range consts.Sections {
		sections[section] = []*models.Question{}
	}

	content := &models.MatchContent{
		MatchID:    matchID,
		Code:       code,
		Name:       name,
		CreateTime: time.Now(),
		Sections:   sections,
	}
	if err := s.writeDescriptor(folder, content); err != nil {
		s.dropFromIndex(matchID)
		return nil, err
	}

	logger.WithField("MatchID", matchID).Infof("match provisioned in folder %s", folder)
	return content, nil
}

func (s *Store) dropFromIndex(matchID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.index, matchID)
}

func (s *Store) GetMatch(matchID string) (*models.MatchContent, error) {
	folder, ok := s.folderOf(matchID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}
	return s.readDescriptor(folder)
}

// DeleteMatch removes the folder with everything in it.
func (s *Store) DeleteMatch(matchID string) error {
	folder, ok := s.folderOf(matchID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}

	path, err := s.safeJoin(folder)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(path); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.index, matchID)
	delete(s.matchMu, matchID)
	s.mu.Unlock()

	logger.WithField("MatchID", matchID).Infof("match deleted")
	return nil
}

// mutateContent runs fn on the descriptor under the per-match lock and
// persists the result.
func (s *Store) mutateContent(matchID string, fn func(*models.MatchContent) error) (*models.MatchContent, error) {
	mu := s.lockMatch(matchID)
	mu.Lock()
	defer mu.Unlock()

	folder, ok := s.folderOf(matchID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}

	content, err := s.readDescriptor(folder)
	if err != nil {
		return nil, err
	}
	if err := fn(content); err != nil {
		return nil, err
	}
	if err := s.writeDescriptor(folder, content); err != nil {
		return nil, err
	}
	return content, nil
}

func validateScope(section string, playerIndex *int) error {
	if !consts.IsValidSection(section) {
		return fmt.Errorf("invalid section: %s", section)
	}
	if consts.SectionPerPlayer[section] {
		if playerIndex == nil {
			return fmt.Errorf("section %s requires a player index", section)
		}
		if *playerIndex < 0 || *playerIndex >= consts.MaxPlayers {
			return fmt.Errorf("player index %d out of range", *playerIndex)
		}
	} else if playerIndex != nil {
		return fmt.Errorf("section %s does not take a player index", section)
	}
	return nil
}

func checkSlot(questions []*models.Question, section string, playerIndex *int, order int) error {
	inScope := lo.Filter(questions, func(q *models.Question, _ int) bool {
		return q.InScope(playerIndex)
	})
	if quota := consts.SectionQuotas[section]; len(inScope) >= quota {
		return fmt.Errorf("section %s is full: quota is %d", section, quota)
	}
	if lo.ContainsBy(inScope, func(q *models.Question) bool { return q.Order == order }) {
		return fmt.Errorf("order %d is already taken in section %s", order, section)
	}
	return nil
}

func sortSection(questions []*models.Question) {
	sort.SliceStable(questions, func(i, j int) bool {
		pi, pj := 0, 0
		if questions[i].PlayerIndex != nil {
			pi = *questions[i].PlayerIndex
		}
		if questions[j].PlayerIndex != nil {
			pj = *questions[j].PlayerIndex
		}
		if pi != pj {
			return pi < pj
		}
		return questions[i].Order < questions[j].Order
	})
}

// AddQuestion appends a question, enforcing the section quota and order
// uniqueness within its (section, player) scope.
func (s *Store) AddQuestion(matchID string, section string, question *models.Question) (*models.Question, error) {
	if err := validateScope(section, question.PlayerIndex); err != nil {
		return nil, err
	}

	_, err := s.mutateContent(matchID, func(content *models.MatchContent) error {
		questions := content.Sections[section]
		if err := checkSlot(questions, section, question.PlayerIndex, question.Order); err != nil {
			return err
		}
		questions = append(questions, question)
		sortSection(questions)
		content.Sections[section] = questions
		return nil
	})
	if err != nil {
		return nil, err
	}
	return question, nil
}

// UpdateQuestion replaces the fields of the question addressed by
// (section, playerIndex, order). A zero order in the new data keeps the old
// slot; a different order must be free.
func (s *Store) UpdateQuestion(matchID string, section string, playerIndex *int, order int, data *models.Question) (*models.Question, error) {
	if err := validateScope(section, playerIndex); err != nil {
		return nil, err
	}

	var updated *models.Question
	_, err := s.mutateContent(matchID, func(content *models.MatchContent) error {
		questions := content.Sections[section]
		_, idx, found := lo.FindIndexOf(questions, func(q *models.Question) bool {
			return q.SameScope(playerIndex, order)
		})
		if !found {
			return fmt.Errorf("%w in section %s order %d", ErrQuestionNotFound, section, order)
		}

		if data.Order == 0 {
			data.Order = order
		}
		if data.Order != order {
			others := append([]*models.Question{}, questions[:idx]...)
			others = append(others, questions[idx+1:]...)
			inScope := lo.Filter(others, func(q *models.Question, _ int) bool { return q.InScope(playerIndex) })
			if lo.ContainsBy(inScope, func(q *models.Question) bool { return q.Order == data.Order }) {
				return fmt.Errorf("order %d is already taken in section %s", data.Order, section)
			}
		}

		data.PlayerIndex = playerIndex
		questions[idx] = data
		sortSection(questions)
		content.Sections[section] = questions
		updated = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Store) DeleteQuestion(matchID string, section string, playerIndex *int, order int) error {
	if err := validateScope(section, playerIndex); err != nil {
		return err
	}

	_, err := s.mutateContent(matchID, func(content *models.MatchContent) error {
		questions := content.Sections[section]
		kept := lo.Filter(questions, func(q *models.Question, _ int) bool {
			return !q.SameScope(playerIndex, order)
		})
		if len(kept) == len(questions) {
			return fmt.Errorf("%w in section %s order %d", ErrQuestionNotFound, section, order)
		}
		content.Sections[section] = kept
		return nil
	})
	return err
}

// AssignPlayer moves a question to another player. The question keeps its
// order, so the slot must be free and the target player under quota.
func (s *Store) AssignPlayer(matchID string, section string, playerIndex *int, order int, newPlayerIndex int) (*models.Question, error) {
	if !consts.SectionPerPlayer[section] {
		return nil, fmt.Errorf("section %s is not a per-player section", section)
	}
	if err := validateScope(section, playerIndex); err != nil {
		return nil, err
	}
	if newPlayerIndex < 0 || newPlayerIndex >= consts.MaxPlayers {
		return nil, fmt.Errorf("player index %d out of range", newPlayerIndex)
	}

	var moved *models.Question
	_, err := s.mutateContent(matchID, func(content *models.MatchContent) error {
		questions := content.Sections[section]
		var target *models.Question
		for _, q := range questions {
			if q.SameScope(playerIndex, order) {
				target = q
				break
			}
		}
		if target == nil {
			return fmt.Errorf("%w in section %s order %d", ErrQuestionNotFound, section, order)
		}

		newIdx := newPlayerIndex
		others := lo.Filter(questions, func(q *models.Question, _ int) bool { return q != target })
		if err := checkSlot(others, section, &newIdx, target.Order); err != nil {
			return err
		}

		target.PlayerIndex = &newIdx
		sortSection(questions)
		moved = target
		return nil
	})
	if err != nil {
		return nil, err
	}
	return moved, nil
}

// SaveFile writes a media file into a match folder and returns its path
// relative to the storage root. An existing name gets a numeric suffix
// instead of being overwritten.
func (s *Store) SaveFile(folder string, fileName string, data []byte) (string, int64, error) {
	if !isSafeName(folder) || !isSafeName(fileName) {
		return "", 0, ErrInvalidPath
	}

	name := fileName
	for i := 1; ; i++ {
		path, err := s.safeJoin(folder, name)
		if err != nil {
			return "", 0, err
		}
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			if err := os.WriteFile(path, data, 0644); err != nil {
				return "", 0, err
			}
			return folder + "/" + name, int64(len(data)), nil
		}

		ext := filepath.Ext(fileName)
		name = fmt.Sprintf("%s_%d%s", strings.TrimSuffix(fileName, ext), i, ext)
	}
}

func (s *Store) DeleteFile(relPath string) error {
	path, err := s.safeJoin(filepath.FromSlash(relPath))
	if err != nil {
		return err
	}
	if filepath.Base(path) == descriptorFile {
		return ErrInvalidPath
	}
	return os.Remove(path)
}

// FilePath resolves a stored file for serving.
func (s *Store) FilePath(folder string, fileName string) (string, error) {
	if !isSafeName(folder) || !isSafeName(fileName) {
		return "", ErrInvalidPath
	}
	return s.safeJoin(folder, fileName)
}

// UsedSpace walks the storage root and sums file sizes.
func (s *Store) UsedSpace() (int64, error) {
	var used int64
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		used += info.Size()
		return nil
	})
	return used, err
}

func isSafeName(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, "/\\")
}
