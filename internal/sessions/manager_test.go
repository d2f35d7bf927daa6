package sessions

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/certificate-studio/internal/catalog"
	"github.com/terra-clan/certificate-studio/internal/models"
	"github.com/terra-clan/certificate-studio/internal/storage"
)

type toggleData struct {
	ready bool
}

func (d *toggleData) Documents() (*models.Catalog, models.Translations, error) {
	if !d.ready {
		return nil, nil, catalog.ErrNotLoaded
	}
	cat := models.NewCatalog([]*models.Course{
		{ID: "go", Editions: map[string]*models.CourseEdition{
			"ru": {Title: "Go", Levels: []models.Level{{Name: "Junior"}, {Name: "Senior"}}},
		}},
	})
	return cat, models.Translations{"ru": {}}, nil
}

type nopExporter struct{}

func (nopExporter) Export(context.Context, models.CertificateFields, io.Writer) error { return nil }
func (nopExporter) Preview(context.Context, models.CertificateFields, io.Writer) error { return nil }

func newTestManager(data *toggleData, backend storage.Backend) *Manager {
	return NewManager(backend, data, nopExporter{}, Config{IdleTTL: time.Minute})
}

func TestGetCreatesAndReuses(t *testing.T) {
	m := newTestManager(&toggleData{ready: true}, storage.NewMemoryBackend())
	ctx := context.Background()

	a, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, a.Controller.Ready())

	again, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Same(t, a, again)

	_, err = m.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())

	_, err = m.Get(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyProfile)
}

func TestGetRetriesInitUntilDataLoaded(t *testing.T) {
	data := &toggleData{}
	m := newTestManager(data, storage.NewMemoryBackend())
	ctx := context.Background()

	s, err := m.Get(ctx, "a")
	assert.ErrorIs(t, err, catalog.ErrNotLoaded)
	require.NotNil(t, s)
	assert.True(t, s.View.Model().MessageVisible)

	data.ready = true
	s, err = m.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, s.Controller.Ready())
}

func TestProfilesAreIsolated(t *testing.T) {
	backend := storage.NewMemoryBackend()
	m := newTestManager(&toggleData{ready: true}, backend)
	ctx := context.Background()

	a, err := m.Get(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, a.Controller.SelectLevel(ctx, "Senior"))

	b, err := m.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "Junior", b.Controller.State().Selection.Level)
	assert.Equal(t, "Senior", backend.Snapshot("a")["selectedLevel-ru-go"])
	assert.Equal(t, "Junior", backend.Snapshot("b")["selectedLevel-ru-go"])
}

func TestExpiredAndEvictRestoresFromStorage(t *testing.T) {
	backend := storage.NewMemoryBackend()
	m := newTestManager(&toggleData{ready: true}, backend)
	ctx := context.Background()

	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	a, err := m.Get(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, a.Controller.SelectLevel(ctx, "Senior"))

	assert.Empty(t, m.Expired(clock.Add(30*time.Second)))
	expired := m.Expired(clock.Add(2 * time.Minute))
	require.Len(t, expired, 1)
	assert.Equal(t, "a", expired[0].ProfileID)

	assert.True(t, m.Evict("a"))
	assert.False(t, m.Evict("a"))
	assert.Zero(t, m.Len())

	back, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.NotSame(t, a, back)
	assert.Equal(t, "Senior", back.Controller.State().Selection.Level)
}

func TestResetClearsStorage(t *testing.T) {
	backend := storage.NewMemoryBackend()
	m := newTestManager(&toggleData{ready: true}, backend)
	ctx := context.Background()

	_, err := m.Get(ctx, "a")
	require.NoError(t, err)
	require.NotEmpty(t, backend.Snapshot("a"))

	require.NoError(t, m.Reset(ctx, "a"))
	assert.Empty(t, backend.Snapshot("a"))
	assert.Zero(t, m.Len())
}

func TestRange(t *testing.T) {
	m := newTestManager(&toggleData{ready: true}, storage.NewMemoryBackend())
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		_, err := m.Get(ctx, id)
		require.NoError(t, err)
	}

	seen := 0
	m.Range(func(*Session) bool {
		seen++
		return seen < 2
	})
	assert.Equal(t, 2, seen)

	m.RefreshAll(ctx)
	assert.Equal(t, 3, m.Len())
}

func TestEvictIfIdleSkipsTouchedSession(t *testing.T) {
	m := newTestManager(&toggleData{ready: true}, storage.NewMemoryBackend())
	ctx := context.Background()

	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	a, err := m.Get(ctx, "a")
	require.NoError(t, err)

	sweepAt := clock.Add(2 * time.Minute)
	require.Len(t, m.Expired(sweepAt), 1)

	// a request lands between the scan and the eviction
	clock = sweepAt
	again, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Same(t, a, again)

	assert.False(t, m.EvictIfIdle("a", sweepAt))
	assert.Equal(t, 1, m.Len())

	assert.True(t, m.EvictIfIdle("a", sweepAt.Add(2*time.Minute)))
	assert.False(t, m.EvictIfIdle("a", sweepAt.Add(2*time.Minute)))
	assert.Zero(t, m.Len())
}

func TestConcurrentFirstGetSharesSession(t *testing.T) {
	m := newTestManager(&toggleData{ready: true}, storage.NewMemoryBackend())
	ctx := context.Background()

	const n = 8
	got := make([]*Session, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := m.Get(ctx, "a")
			assert.NoError(t, err)
			got[i] = s
		}(i)
	}
	wg.Wait()

	require.NotNil(t, got[0])
	for _, s := range got[1:] {
		assert.Same(t, got[0], s)
	}
	assert.True(t, got[0].Controller.Ready())
	assert.Equal(t, 1, m.Len())
}
