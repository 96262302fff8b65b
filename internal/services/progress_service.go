package services

import (
	"context"
	"net/http"

	"golang.org/x/sync/errgroup"

	"woordjes/internal/core"
	"woordjes/internal/log"
	"woordjes/internal/storage"
)

// RecentSessionCount is how many past games the progress screen lists.
const RecentSessionCount = 5

// Overview is everything the progress screen shows.
type Overview struct {
	Mastered   int
	TotalWords int
	Percent    int
	Tier       core.Tier
	NextTier   core.Tier
	HasNext    bool
	ToNext     int
	Categories []core.CategoryStat
	Recent     []core.Session
	Medals     core.MedalCounts
}

// WordProgress pairs a word with the player's history on it.
type WordProgress struct {
	Word     core.Word
	Progress core.Progress
	Seen     bool
}

// WordList is the word browser screen.
type WordList struct {
	Category   string
	Categories []string
	Words      []WordProgress
}

type ProgressService struct {
	store  ProgressStore
	logger *log.Logger
}

func NewProgressService(store ProgressStore, logger *log.Logger) *ProgressService {
	return &ProgressService{store: store, logger: componentLogger(logger, log.ComponentGame)}
}

func (s *ProgressService) Overview(ctx context.Context, userID string) (Overview, error) {
	var ov Overview
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := s.store.CountMastered(ctx, userID)
		ov.Mastered = n
		return err
	})
	g.Go(func() error {
		n, err := s.store.CountWords(ctx)
		ov.TotalWords = n
		return err
	})
	g.Go(func() error {
		stats, err := s.store.CategoryStats(ctx, userID)
		ov.Categories = stats
		return err
	})
	g.Go(func() error {
		recent, err := s.store.RecentSessions(ctx, userID, RecentSessionCount)
		ov.Recent = recent
		return err
	})
	g.Go(func() error {
		counts, err := s.store.MedalCounts(ctx, userID)
		ov.Medals = counts
		return err
	})

	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to load progress", log.FieldError, err, log.FieldUserID, userID)
		return Overview{}, newError(err, http.StatusInternalServerError, "Could not load your progress")
	}

	ov.Percent = core.Percent(ov.Mastered, ov.TotalWords)
	ov.Tier = core.TierFor(ov.Mastered)
	ov.NextTier, ov.HasNext = core.NextTier(ov.Mastered)
	ov.ToNext = core.ProgressToNext(ov.Mastered)
	return ov, nil
}

// Words lists the words of a category (or all words) with the player's
// progress on each.
func (s *ProgressService) Words(ctx context.Context, userID, category string) (WordList, error) {
	list := WordList{Category: category}
	var (
		words    []core.Word
		progress map[int64]core.Progress
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		list.Categories, err = s.store.ListCategories(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		words, err = s.store.ListWords(gctx, storage.WordFilter{Category: category})
		return err
	})
	g.Go(func() error {
		var err error
		progress, err = s.store.ListProgress(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return WordList{}, newError(err, http.StatusInternalServerError, "Could not load words")
	}

	list.Words = make([]WordProgress, len(words))
	for i, w := range words {
		p, seen := progress[w.ID]
		list.Words[i] = WordProgress{Word: w, Progress: p, Seen: seen}
	}
	return list, nil
}

// Categories lists the word categories a game can be restricted to.
func (s *ProgressService) Categories(ctx context.Context) ([]string, error) {
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, newError(err, http.StatusInternalServerError, "Could not load categories")
	}
	return cats, nil
}
