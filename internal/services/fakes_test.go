package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"woordjes/internal/core"
	"woordjes/internal/log"
	"woordjes/internal/storage"
)

func discardLogger() *log.Logger {
	return log.New(log.Config{Output: io.Discard})
}

// fakeStore is an in-memory stand-in for storage.Repository.
type fakeStore struct {
	mu       sync.Mutex
	profiles map[string]core.Profile
	words    []core.Word
	progress map[int64]core.Progress
	sessions []core.Session
	scores   []core.SessionScore
	medals   map[string]core.Medal
	issues   []core.WordIssue

	failRecord  bool
	failSession bool
	failScores  bool
	scoreCalls  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		profiles: make(map[string]core.Profile),
		progress: make(map[int64]core.Progress),
		medals:   make(map[string]core.Medal),
	}
}

func (f *fakeStore) CreateProfile(_ context.Context, p core.Profile) (core.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.profiles {
		if existing.Email == p.Email || strings.EqualFold(existing.Username, p.Username) {
			return core.Profile{}, storage.ErrConflict
		}
	}
	f.profiles[p.ID] = p
	return p, nil
}

func (f *fakeStore) GetProfile(_ context.Context, id string) (core.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return core.Profile{}, storage.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) GetProfileByEmail(_ context.Context, email string) (core.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.profiles {
		if p.Email == strings.ToLower(strings.TrimSpace(email)) {
			return p, nil
		}
	}
	return core.Profile{}, storage.ErrNotFound
}

func (f *fakeStore) UpdateUsername(_ context.Context, id, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for pid, p := range f.profiles {
		if pid != id && strings.EqualFold(p.Username, username) {
			return storage.ErrConflict
		}
	}
	p, ok := f.profiles[id]
	if !ok {
		return storage.ErrNotFound
	}
	p.Username = username
	f.profiles[id] = p
	return nil
}

func (f *fakeStore) PickWords(_ context.Context, _ string, maxDifficulty int, category string, limit int) ([]core.Word, error) {
	var out []core.Word
	for _, w := range f.words {
		if w.Difficulty > maxDifficulty || (category != "" && w.Category != category) {
			continue
		}
		out = append(out, w)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) RecordAnswer(_ context.Context, userID string, wordID int64, correct bool, at time.Time) (core.Progress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRecord {
		return core.Progress{}, errors.New("database is locked")
	}
	p := f.progress[wordID]
	p.UserID, p.WordID = userID, wordID
	p.Record(correct, at)
	f.progress[wordID] = p
	return p, nil
}

func (f *fakeStore) CreateSession(_ context.Context, s core.Session) (core.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSession {
		return core.Session{}, errors.New("disk full")
	}
	s.ID = int64(len(f.sessions) + 1)
	f.sessions = append(f.sessions, s)
	return s, nil
}

func (f *fakeStore) SessionScoresSince(_ context.Context, _, _ time.Time) ([]core.SessionScore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scoreCalls++
	if f.failScores {
		return nil, errors.New("connection refused")
	}
	return append([]core.SessionScore(nil), f.scores...), nil
}

func (f *fakeStore) CountMastered(_ context.Context, _ string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, p := range f.progress {
		if p.Mastered {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) CountWords(context.Context) (int, error) { return len(f.words), nil }

func (f *fakeStore) CategoryStats(_ context.Context, _ string) ([]core.CategoryStat, error) {
	byCat := map[string]*core.CategoryStat{}
	var order []string
	for _, w := range f.words {
		st, ok := byCat[w.Category]
		if !ok {
			st = &core.CategoryStat{Category: w.Category}
			byCat[w.Category] = st
			order = append(order, w.Category)
		}
		st.Total++
		if p, ok := f.progress[w.ID]; ok {
			st.Practice++
			if p.Mastered {
				st.Mastered++
			}
		}
	}
	out := make([]core.CategoryStat, 0, len(order))
	for _, c := range order {
		out = append(out, *byCat[c])
	}
	return out, nil
}

func (f *fakeStore) RecentSessions(_ context.Context, userID string, n int) ([]core.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Session
	for i := len(f.sessions) - 1; i >= 0 && len(out) < n; i-- {
		if f.sessions[i].UserID == userID {
			out = append(out, f.sessions[i])
		}
	}
	return out, nil
}

func (f *fakeStore) MedalCounts(ctx context.Context, userID string) (core.MedalCounts, error) {
	medals, err := f.ListMedals(ctx, userID)
	return core.CountMedals(medals), err
}

func (f *fakeStore) ListWords(_ context.Context, filter storage.WordFilter) ([]core.Word, error) {
	var out []core.Word
	for _, w := range f.words {
		if filter.Category == "" || w.Category == filter.Category {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeStore) ListCategories(context.Context) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, w := range f.words {
		if !seen[w.Category] {
			seen[w.Category] = true
			out = append(out, w.Category)
		}
	}
	return out, nil
}

func (f *fakeStore) ListProgress(context.Context, string) (map[int64]core.Progress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[int64]core.Progress, len(f.progress))
	for k, v := range f.progress {
		out[k] = v
	}
	return out, nil
}

func (f *fakeStore) InsertMedals(_ context.Context, kind core.MedalKind, medals []core.Medal) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range medals {
		key := string(kind) + m.PeriodStart.Format(time.DateOnly) + string(m.Type)
		if _, ok := f.medals[key]; ok {
			continue
		}
		m.Kind = kind
		f.medals[key] = m
		n++
	}
	return n, nil
}

func (f *fakeStore) ListMedals(_ context.Context, userID string) ([]core.Medal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Medal
	for _, m := range f.medals {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeStore) RecentMedals(_ context.Context, kind core.MedalKind, _ int) ([]core.Medal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Medal
	for _, m := range f.medals {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateWordIssue(_ context.Context, issue core.WordIssue) (core.WordIssue, error) {
	if err := issue.Validate(); err != nil {
		return core.WordIssue{}, err
	}
	found := false
	for _, w := range f.words {
		if w.ID == issue.WordID {
			found = true
		}
	}
	if !found {
		return core.WordIssue{}, storage.ErrNotFound
	}
	issue.ID = int64(len(f.issues) + 1)
	issue.Status = core.IssueOpen
	f.issues = append(f.issues, issue)
	return issue, nil
}

func (f *fakeStore) ListWordIssues(_ context.Context, status core.IssueStatus) ([]core.WordIssue, error) {
	var out []core.WordIssue
	for _, i := range f.issues {
		if status == "" || i.Status == status {
			out = append(out, i)
		}
	}
	return out, nil
}

func (f *fakeStore) ResolveWordIssue(_ context.Context, id int64) error {
	for i := range f.issues {
		if f.issues[i].ID == id {
			f.issues[i].Status = core.IssueResolved
			return nil
		}
	}
	return storage.ErrNotFound
}

// fakePublisher records published events.
type fakePublisher struct {
	mu       sync.Mutex
	sessions []int64
	medals   []string
	fail     bool
}

func (p *fakePublisher) PublishSessionCompleted(_ context.Context, sessionID int64, _ string, _ int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker unreachable")
	}
	p.sessions = append(p.sessions, sessionID)
	return nil
}

func (p *fakePublisher) PublishMedalAwarded(_ context.Context, kind string, _ time.Time, _ int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker unreachable")
	}
	p.medals = append(p.medals, kind)
	return nil
}

var (
	_ ProfileStore       = (*fakeStore)(nil)
	_ WordPicker         = (*fakeStore)(nil)
	_ AnswerRecorder     = (*fakeStore)(nil)
	_ SessionSaver       = (*fakeStore)(nil)
	_ SessionScoreSource = (*fakeStore)(nil)
	_ ProgressStore      = (*fakeStore)(nil)
	_ MedalStore         = (*fakeStore)(nil)
	_ IssueStore         = (*fakeStore)(nil)
	_ EventPublisher     = (*fakePublisher)(nil)
)
