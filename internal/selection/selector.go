// Package selection derives the course and level selectors from the catalog
// and restores the last choice made in each language/course context.
package selection

import (
	"context"
	"log/slog"

	"github.com/terra-clan/certificate-studio/internal/models"
	"github.com/terra-clan/certificate-studio/internal/storage"
)

// Snapshot is the outcome of a cascade step
type Snapshot struct {
	Selection models.Selection `json:"selection"`
	Courses   []models.Option  `json:"courses"`
	Levels    []models.Option  `json:"levels"`
}

// ListCourses returns the courses titled in lang, in catalog order
func ListCourses(cat *models.Catalog, lang string) []models.Option {
	var out []models.Option
	for _, course := range cat.Courses() {
		edition := course.Edition(lang)
		if !edition.HasTitle() {
			continue
		}
		out = append(out, models.Option{Value: course.ID, Label: edition.Title})
	}
	return out
}

// ListLevels returns the level names of courseID in lang, in catalog order
func ListLevels(cat *models.Catalog, lang, courseID string) []models.Option {
	edition := cat.Edition(courseID, lang)
	if edition == nil {
		return nil
	}
	out := make([]models.Option, 0, len(edition.Levels))
	for _, level := range edition.Levels {
		out = append(out, models.Option{Value: level.Name, Label: level.Name})
	}
	return out
}

// pick returns saved when it is one of options, otherwise the first option
func pick(options []models.Option, saved string, ok bool) string {
	if ok && saved != "" {
		for _, o := range options {
			if o.Value == saved {
				return saved
			}
		}
	}
	if len(options) > 0 {
		return options[0].Value
	}
	return ""
}

// Selector runs the language → course → level cascade against a durable store
type Selector struct {
	store  storage.Store
	logger *slog.Logger
}

// NewSelector creates a selector persisting through store
func NewSelector(store storage.Store, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{store: store, logger: logger}
}

// Restore recomputes both selectors for lang, restoring saved choices that
// are still valid and defaulting to the first option otherwise.
func (s *Selector) Restore(ctx context.Context, cat *models.Catalog, lang string) Snapshot {
	courses := ListCourses(cat, lang)
	saved, ok := s.get(ctx, storage.CourseKey(lang))
	courseID := pick(courses, saved, ok)

	snap := s.levels(ctx, cat, lang, courseID)
	snap.Courses = courses
	return snap
}

// SelectCourse switches to courseID (empty for the placeholder) and
// re-derives the level selector for it.
func (s *Selector) SelectCourse(ctx context.Context, cat *models.Catalog, lang, courseID string) Snapshot {
	snap := s.levels(ctx, cat, lang, courseID)
	snap.Courses = ListCourses(cat, lang)
	return snap
}

// SelectLevel records a level choice for the current course
func (s *Selector) SelectLevel(ctx context.Context, sel models.Selection, level string) models.Selection {
	sel.Level = level
	s.persist(ctx, sel)
	return sel
}

func (s *Selector) levels(ctx context.Context, cat *models.Catalog, lang, courseID string) Snapshot {
	levels := ListLevels(cat, lang, courseID)

	level := ""
	if courseID != "" {
		saved, ok := s.get(ctx, storage.LevelKey(lang, courseID))
		level = pick(levels, saved, ok)
	}

	sel := models.Selection{Language: lang, CourseID: courseID, Level: level}
	if cat.Edition(courseID, lang) != nil {
		s.persist(ctx, sel)
	}

	return Snapshot{Selection: sel, Levels: levels}
}

// persist writes the course and level of sel. Failures are logged only.
func (s *Selector) persist(ctx context.Context, sel models.Selection) {
	if sel.CourseID == "" {
		return
	}
	s.set(ctx, storage.CourseKey(sel.Language), sel.CourseID)
	s.set(ctx, storage.LevelKey(sel.Language, sel.CourseID), sel.Level)
}

// SaveLanguage remembers the active language
func (s *Selector) SaveLanguage(ctx context.Context, lang string) {
	s.set(ctx, storage.LanguageKey, lang)
}

// SavedLanguage returns the remembered language, if any
func (s *Selector) SavedLanguage(ctx context.Context) (string, bool) {
	v, ok := s.get(ctx, storage.LanguageKey)
	return v, ok && v != ""
}

func (s *Selector) get(ctx context.Context, key string) (string, bool) {
	v, ok, err := s.store.Get(ctx, key)
	if err != nil {
		s.logger.Warn("failed to read saved selection", "key", key, "error", err)
		return "", false
	}
	return v, ok
}

func (s *Selector) set(ctx context.Context, key, value string) {
	if err := s.store.Set(ctx, key, value); err != nil {
		s.logger.Warn("failed to save selection", "key", key, "error", err)
	}
}
