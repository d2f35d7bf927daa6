// Package app holds the per-profile application state and drives a UI
// adapter as a one-way projection of it.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/language"

	"github.com/terra-clan/certificate-studio/internal/catalog"
	"github.com/terra-clan/certificate-studio/internal/export"
	"github.com/terra-clan/certificate-studio/internal/models"
	"github.com/terra-clan/certificate-studio/internal/present"
	"github.com/terra-clan/certificate-studio/internal/selection"
	"github.com/terra-clan/certificate-studio/internal/storage"
)

// DefaultLanguage is used when nothing was saved
const DefaultLanguage = "ru"

// MsgCriticalControls is shown when the page lacks required controls
const MsgCriticalControls = "Критические элементы страницы не найдены. Проверьте структуру HTML."

var (
	ErrNotInitialized  = errors.New("application is not initialized")
	ErrMissingControls = errors.New("critical controls not found")
	ErrUnknownLanguage = errors.New("unknown language")
	ErrUnknownCourse   = errors.New("unknown course")
	ErrUnknownLevel    = errors.New("unknown level")
	ErrInvalidDate     = errors.New("invalid date")
)

// DataSource provides the loaded documents
type DataSource interface {
	Documents() (*models.Catalog, models.Translations, error)
}

// Exporter produces the downloadable document and the on-screen preview
type Exporter interface {
	Export(ctx context.Context, fields models.CertificateFields, w io.Writer) error
	Preview(ctx context.Context, fields models.CertificateFields, w io.Writer) error
}

// State is the source of truth for one profile
type State struct {
	Ready     bool                     `json:"ready"`
	Selection models.Selection         `json:"selection"`
	Inputs    models.Inputs            `json:"inputs"`
	Fields    models.CertificateFields `json:"fields"`
}

// Controller applies user events to State one at a time
type Controller struct {
	mu sync.Mutex

	data     DataSource
	selector *selection.Selector
	ui       UI
	exporter Exporter
	logger   *slog.Logger
	now      func() time.Time
	fallback string

	catalog      *models.Catalog
	translations models.Translations
	state        State
}

// Option configures a Controller
type Option func(*Controller)

// WithLogger sets the controller logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock overrides the source of "today"
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithDefaultLanguage sets the language used when nothing was saved
func WithDefaultLanguage(lang string) Option {
	return func(c *Controller) {
		if lang != "" {
			c.fallback = lang
		}
	}
}

// NewController wires a controller; call Init before sending events
func NewController(data DataSource, store storage.Store, ui UI, exporter Exporter, opts ...Option) *Controller {
	c := &Controller{
		data:     data,
		ui:       ui,
		exporter: exporter,
		logger:   slog.Default(),
		now:      time.Now,
		fallback: DefaultLanguage,
		state:    State{Inputs: models.Inputs{StampOn: true}},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.selector = selection.NewSelector(store, c.logger)
	return c
}

// Init checks the UI, takes the loaded documents, sets today's date and
// runs the language cascade. On failure the message surface explains why
// and the controller stays uninitialized. Once ready, Init is a no-op.
func (c *Controller) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Ready {
		return nil
	}
	if missing := c.ui.CheckControls(); len(missing) > 0 {
		c.ui.ShowMessage(MsgCriticalControls)
		return fmt.Errorf("%w: %s", ErrMissingControls, strings.Join(missing, ", "))
	}

	cat, tr, err := c.data.Documents()
	if err != nil {
		c.ui.ShowMessage(catalog.StartupMessage(err))
		return err
	}
	c.catalog, c.translations = cat, tr

	c.state.Inputs.Date = c.now().UTC().Format(present.DateLayout)

	lang := c.fallback
	if saved, ok := c.selector.SavedLanguage(ctx); ok {
		if resolved, err := resolveLanguage(tr, saved); err == nil {
			lang = resolved
		}
	}

	c.applyLanguage(ctx, lang)
	c.state.Ready = true
	c.logger.Debug("application initialized", "language", lang, "course", c.state.Selection.CourseID)
	return nil
}

// Ready reports whether Init succeeded
func (c *Controller) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Ready
}

// Refresh picks up reloaded documents and re-runs the cascade for the
// current language. An uninitialized controller is initialized instead.
func (c *Controller) Refresh(ctx context.Context) error {
	if !c.Ready() {
		return c.Init(ctx)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cat, tr, err := c.data.Documents()
	if err != nil {
		return err
	}
	c.catalog, c.translations = cat, tr

	lang := c.state.Selection.Language
	if _, err := resolveLanguage(tr, lang); err != nil {
		lang = c.fallback
	}
	c.ui.SetActiveLanguage(lang)
	c.ui.SetLabels(tr.Table(lang))
	c.cascade(c.selector.Restore(ctx, c.catalog, lang))
	return nil
}

// SwitchLanguage activates lang and restores the choices made in it
func (c *Controller) SwitchLanguage(ctx context.Context, lang string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.Ready {
		return ErrNotInitialized
	}
	resolved, err := resolveLanguage(c.translations, lang)
	if err != nil {
		return err
	}
	c.applyLanguage(ctx, resolved)
	return nil
}

// SelectCourse switches the course; empty selects the placeholder
func (c *Controller) SelectCourse(ctx context.Context, courseID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.Ready {
		return ErrNotInitialized
	}
	lang := c.state.Selection.Language
	if courseID != "" && !c.catalog.Edition(courseID, lang).HasTitle() {
		return fmt.Errorf("%w: %q in %s", ErrUnknownCourse, courseID, lang)
	}
	c.cascade(c.selector.SelectCourse(ctx, c.catalog, lang, courseID))
	return nil
}

// SelectLevel switches the level of the current course; empty selects the placeholder
func (c *Controller) SelectLevel(ctx context.Context, level string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.Ready {
		return ErrNotInitialized
	}
	sel := c.state.Selection
	if level != "" {
		edition := c.catalog.Edition(sel.CourseID, sel.Language)
		if _, ok := edition.Level(level); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownLevel, level)
		}
	}

	c.state.Selection = c.selector.SelectLevel(ctx, sel, level)
	c.ui.SetOptions(ControlLevel, c.levelOptions(), level)
	c.project()
	return nil
}

// SetName mirrors the raw name input
func (c *Controller) SetName(_ context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.Ready {
		return ErrNotInitialized
	}
	c.state.Inputs.Name = name
	c.project()
	return nil
}

// SetDate takes a raw 2006-01-02 date; empty clears the printed date
func (c *Controller) SetDate(_ context.Context, raw string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.Ready {
		return ErrNotInitialized
	}
	raw = strings.TrimSpace(raw)
	if raw != "" {
		if _, err := present.ParseDate(raw); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidDate, raw)
		}
	}
	c.state.Inputs.Date = raw
	c.project()
	return nil
}

// SetStamp toggles the stamp
func (c *Controller) SetStamp(_ context.Context, on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.Ready {
		return ErrNotInitialized
	}
	c.state.Inputs.StampOn = on
	c.project()
	return nil
}

// Export writes the certificate document to w. Validation and rendering
// failures are shown on the message surface and leave the state untouched.
func (c *Controller) Export(ctx context.Context, w io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.Ready {
		return ErrNotInitialized
	}
	lang := c.state.Selection.Language

	if err := export.ValidateName(c.state.Inputs.Name); err != nil {
		c.ui.ShowMessage(c.translations.T(lang, present.KeyNameRequired, present.DefaultNameRequired))
		return err
	}

	if err := c.exporter.Export(ctx, c.state.Fields, w); err != nil {
		c.logger.Error("failed to export certificate", "error", err)
		prefix := c.translations.T(lang, present.KeyPDFErrorPrefix, present.DefaultPDFErrorPrefix)
		c.ui.ShowMessage(prefix + " " + err.Error())
		return err
	}

	c.logger.Info("certificate exported",
		"course", c.state.Selection.CourseID,
		"level", c.state.Selection.Level,
		"language", lang,
	)
	return nil
}

// Preview writes the on-screen raster of the current fields to w
func (c *Controller) Preview(ctx context.Context, w io.Writer) error {
	c.mu.Lock()
	fields := c.state.Fields
	ready := c.state.Ready
	c.mu.Unlock()

	if !ready {
		return ErrNotInitialized
	}
	return c.exporter.Preview(ctx, fields, w)
}

// DismissMessage hides the message surface
func (c *Controller) DismissMessage() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ui.HideMessage()
}

// State returns a copy of the current state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.state
	s.Fields.Skills = append([]string(nil), c.state.Fields.Skills...)
	return s
}

// applyLanguage is the language switch: translations, stamp rule, cascade
func (c *Controller) applyLanguage(ctx context.Context, lang string) {
	c.ui.SetActiveLanguage(lang)
	c.ui.SetLabels(c.translations.Table(lang))
	c.state.Inputs.StampOn = present.StampAfterLanguageSwitch(c.state.Inputs.StampOn, lang)
	c.selector.SaveLanguage(ctx, lang)

	c.cascade(c.selector.Restore(ctx, c.catalog, lang))
}

// cascade installs a selector snapshot and projects both selectors
func (c *Controller) cascade(snap selection.Snapshot) {
	c.state.Selection = snap.Selection

	lang := snap.Selection.Language
	courses := withPlaceholder(snap.Courses, c.translations.T(lang, present.KeyCourseOption, present.DefaultCourseOption))
	c.ui.SetOptions(ControlCourse, courses, snap.Selection.CourseID)
	c.ui.SetOptions(ControlLevel, c.levelOptions(), snap.Selection.Level)
	c.project()
}

func (c *Controller) levelOptions() []models.Option {
	sel := c.state.Selection
	levels := selection.ListLevels(c.catalog, sel.Language, sel.CourseID)
	return withPlaceholder(levels, c.translations.T(sel.Language, present.KeyLevelOption, present.DefaultLevelOption))
}

// project re-derives the certificate fields and pushes them to the UI
func (c *Controller) project() {
	c.state.Fields = present.Derive(c.catalog, c.translations, c.state.Selection, c.state.Inputs)
	c.ui.SetFields(c.state.Fields)
}

func withPlaceholder(options []models.Option, label string) []models.Option {
	out := make([]models.Option, 0, len(options)+1)
	out = append(out, models.Option{Value: "", Label: label})
	return append(out, options...)
}

// resolveLanguage maps raw onto a language of the translation table.
// Exact keys win; otherwise BCP 47 matching is used ("en-GB" → "en").
func resolveLanguage(tr models.Translations, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if tr.Has(raw) {
		return raw, nil
	}

	known := tr.Languages()
	if raw == "" || len(known) == 0 {
		return "", fmt.Errorf("%w: %q", ErrUnknownLanguage, raw)
	}

	tag, err := language.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownLanguage, raw)
	}

	supported := make([]language.Tag, 0, len(known))
	names := make([]string, 0, len(known))
	for _, lang := range known {
		t, err := language.Parse(lang)
		if err != nil {
			continue
		}
		supported = append(supported, t)
		names = append(names, lang)
	}
	if len(supported) == 0 {
		return "", fmt.Errorf("%w: %q", ErrUnknownLanguage, raw)
	}

	// Low confidence maps unrelated languages (kk, be) onto a neighbour
	_, idx, conf := language.NewMatcher(supported).Match(tag)
	if conf < language.High {
		return "", fmt.Errorf("%w: %q", ErrUnknownLanguage, raw)
	}
	return names[idx], nil
}
