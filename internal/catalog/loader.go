package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/terra-clan/certificate-studio/internal/models"
)

// Data document names
const (
	TranslationsFile = "translations.json"
	CatalogFile      = "courseData.json"
)

// ErrNotLoaded is returned before the first successful load
var ErrNotLoaded = errors.New("data documents not loaded")

// LoadError reports a failed paired load and carries both response statuses.
// A status of 0 means the document could not be retrieved at all.
type LoadError struct {
	TranslationsStatus int
	CatalogStatus      int
	Err                error
}

func (e *LoadError) Error() string {
	msg := fmt.Sprintf("failed to load data: %s %s / %s %s",
		TranslationsFile, statusText(e.TranslationsStatus),
		CatalogFile, statusText(e.CatalogStatus))
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LoadError) Unwrap() error { return e.Err }

// Statuses renders both statuses as "<translations> / <catalog>"
func (e *LoadError) Statuses() string {
	return statusText(e.TranslationsStatus) + " / " + statusText(e.CatalogStatus)
}

func statusText(status int) string {
	if status == 0 {
		return "unreachable"
	}
	return strconv.Itoa(status)
}

func okStatus(status int) bool {
	return status >= 200 && status < 300
}

// StartupMessage is the user-facing text for a failed startup load
func StartupMessage(err error) string {
	detail := err.Error()
	var le *LoadError
	if errors.As(err, &le) {
		detail = le.Statuses()
		// both documents arrived, so the cause is in their contents
		if le.Err != nil && okStatus(le.TranslationsStatus) && okStatus(le.CatalogStatus) {
			detail += ": " + le.Err.Error()
		}
	}
	return fmt.Sprintf("Ошибка загрузки данных: %s. Проверьте файлы %s и %s", detail, TranslationsFile, CatalogFile)
}

// Loader retrieves and holds the translation table and course catalog
type Loader struct {
	source Source

	mu           sync.RWMutex
	catalog      *models.Catalog
	translations models.Translations
	loadedAt     time.Time
	lastErr      error
}

// NewLoader creates a loader reading from source
func NewLoader(source Source) *Loader {
	return &Loader{source: source, lastErr: ErrNotLoaded}
}

// Load fetches both documents concurrently and installs them only if both succeed.
// A failed load leaves previously installed documents in place.
func (l *Loader) Load(ctx context.Context) error {
	slog.Info("loading data documents", "source", l.source.String())

	var (
		wg            sync.WaitGroup
		trDoc, catDoc Document
		trErr, catErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		trDoc, trErr = l.source.Fetch(ctx, TranslationsFile)
	}()
	go func() {
		defer wg.Done()
		catDoc, catErr = l.source.Fetch(ctx, CatalogFile)
	}()
	wg.Wait()

	if trErr != nil || catErr != nil || !trDoc.OK() || !catDoc.OK() {
		return l.fail(&LoadError{
			TranslationsStatus: trDoc.Status,
			CatalogStatus:      catDoc.Status,
			Err:                errors.Join(trErr, catErr),
		})
	}

	translations, err := decodeTranslations(trDoc.Body)
	if err != nil {
		return l.fail(&LoadError{TranslationsStatus: trDoc.Status, CatalogStatus: catDoc.Status, Err: err})
	}
	cat, err := decodeCatalog(catDoc.Body)
	if err != nil {
		return l.fail(&LoadError{TranslationsStatus: trDoc.Status, CatalogStatus: catDoc.Status, Err: err})
	}

	l.mu.Lock()
	l.translations = translations
	l.catalog = cat
	l.loadedAt = time.Now()
	l.lastErr = nil
	l.mu.Unlock()

	slog.Info("data documents loaded",
		"languages", len(translations),
		"courses", cat.Len(),
	)
	return nil
}

func (l *Loader) fail(err *LoadError) error {
	slog.Error("failed to load data documents", "error", err)

	l.mu.Lock()
	if l.catalog == nil {
		l.lastErr = err
	}
	l.mu.Unlock()
	return err
}

// Documents returns the installed catalog and translations, or the startup failure
func (l *Loader) Documents() (*models.Catalog, models.Translations, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.catalog == nil {
		return nil, nil, l.lastErr
	}
	return l.catalog, l.translations, nil
}

// Catalog returns the installed catalog, or nil
func (l *Loader) Catalog() *models.Catalog {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.catalog
}

// Translations returns the installed translation table, or nil
func (l *Loader) Translations() models.Translations {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.translations
}

// LoadedAt returns when documents were last installed
func (l *Loader) LoadedAt() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loadedAt
}

// HealthCheck fails until documents are installed
func (l *Loader) HealthCheck(context.Context) error {
	_, _, err := l.Documents()
	return err
}

// Reload fetches both documents again. On failure the previous documents stay installed.
func (l *Loader) Reload(ctx context.Context) error {
	return l.Load(ctx)
}

// Loaded reports whether documents are installed
func (l *Loader) Loaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.catalog != nil
}
