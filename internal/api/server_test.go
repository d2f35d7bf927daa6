package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/certificate-studio/internal/app"
	"github.com/terra-clan/certificate-studio/internal/catalog"
	"github.com/terra-clan/certificate-studio/internal/config"
	"github.com/terra-clan/certificate-studio/internal/export"
	"github.com/terra-clan/certificate-studio/internal/health"
	"github.com/terra-clan/certificate-studio/internal/render"
	"github.com/terra-clan/certificate-studio/internal/sessions"
	"github.com/terra-clan/certificate-studio/internal/storage"
)

const testProfile = "8c5c7a9e-2f1b-4b7e-9a51-0c6f4f6f7a10"

const translationsJSON = `{
  "ru": {"selectCourseOption": "Выберите курс", "studentNameRequired": "Введите имя студента"},
  "en": {"selectCourseOption": "Choose a course", "studentNameRequired": "Enter the student name"}
}`

const courseDataJSON = `{
  "python": {
    "ru": {"title": "Python-разработчик", "levels": {"Junior": ["Синтаксис"], "Middle": ["Асинхронность", ""]}},
    "en": {"title": "Python developer", "levels": {"Junior": ["Syntax"], "Middle": ["Async"]}}
  },
  "design": {
    "ru": {"title": "Дизайн", "levels": {}}
  }
}`

type testEnv struct {
	server  *Server
	loader  *catalog.Loader
	backend *storage.MemoryBackend
	manager *sessions.Manager
	dir     string
}

func newTestEnv(t *testing.T, load bool) *testEnv {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, catalog.TranslationsFile), []byte(translationsJSON), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, catalog.CatalogFile), []byte(courseDataJSON), 0o644))

	src, err := catalog.NewSource(dir, nil)
	require.NoError(t, err)
	loader := catalog.NewLoader(src)
	if load {
		require.NoError(t, loader.Load(context.Background()))
	}

	surface, err := render.NewSurface(nil)
	require.NoError(t, err)
	exporter := export.New(surface, export.WithScale(0.25))

	backend := storage.NewMemoryBackend()
	manager := sessions.NewManager(backend, loader, exporter, sessions.Config{
		AppOptions: []app.Option{app.WithClock(func() time.Time {
			return time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC)
		})},
	})

	registry := health.NewRegistry()
	registry.Register("catalog", loader)
	registry.Register("store", health.CheckerFunc(backend.Ping))

	srv := NewServer(config.ServerConfig{Host: "127.0.0.1", Port: 8080}, Deps{
		Data:     loader,
		Sessions: manager,
		Health:   registry,
	})
	return &testEnv{server: srv, loader: loader, backend: backend, manager: manager, dir: dir}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *apiError       `json:"error"`
}

type stateBody struct {
	Profile string        `json:"profile"`
	State   app.State     `json:"state"`
	View    app.ViewModel `json:"view"`
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set(ProfileHeader, testProfile)
	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) stateBody {
	t.Helper()
	env := decode(t, rec)
	require.True(t, env.Success, rec.Body.String())
	var st stateBody
	require.NoError(t, json.Unmarshal(env.Data, &st))
	return st
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not_ready", decode(t, rec).Error.Code)
	assert.Contains(t, decode(t, rec).Error.Message, "catalog")

	require.NoError(t, env.loader.Load(context.Background()))
	rec = env.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCatalogBrowsing(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodGet, "/api/v1/languages", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"languages":["en","ru"],"default":"ru"}`, string(decode(t, rec).Data))

	rec = env.do(t, http.MethodGet, "/api/v1/courses?lang=ru", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"courses":[{"value":"python","label":"Python-разработчик"},{"value":"design","label":"Дизайн"}],"total":2}`,
		string(decode(t, rec).Data))

	rec = env.do(t, http.MethodGet, "/api/v1/courses?lang=en", nil)
	assert.JSONEq(t, `{"courses":[{"value":"python","label":"Python developer"}],"total":1}`, string(decode(t, rec).Data))

	rec = env.do(t, http.MethodGet, "/api/v1/courses/python/levels?lang=ru", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"title":"Python-разработчик","levels":[{"name":"Junior","skills":["Синтаксис"]},{"name":"Middle","skills":["Асинхронность",""]}],"total":2}`,
		string(decode(t, rec).Data))

	rec = env.do(t, http.MethodGet, "/api/v1/courses/design/levels?lang=en", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/translations/en", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(decode(t, rec).Data), "Choose a course")

	rec = env.do(t, http.MethodGet, "/api/v1/translations/de", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCatalogNotLoaded(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(t, http.MethodGet, "/api/v1/courses", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, decode(t, rec).Error.Message, "Ошибка загрузки данных")
}

func TestProfileAssignment(t *testing.T) {
	env := newTestEnv(t, true)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/state", nil)
	rec := httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	profile := rec.Header().Get(ProfileHeader)
	assert.NotEmpty(t, profile)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, ProfileCookie, cookies[0].Name)
	assert.Equal(t, profile, cookies[0].Value)

	// the cookie identifies the same profile on the next request
	req = httptest.NewRequest(http.MethodGet, "/api/v1/state", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, req)
	assert.Equal(t, profile, rec.Header().Get(ProfileHeader))
	assert.Empty(t, rec.Result().Cookies())

	// malformed ids are replaced
	req = httptest.NewRequest(http.MethodGet, "/api/v1/state", nil)
	req.Header.Set(ProfileHeader, "../../etc/passwd")
	rec = httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, req)
	assert.NotEqual(t, "../../etc/passwd", rec.Header().Get(ProfileHeader))
}

func TestStateFlow(t *testing.T) {
	env := newTestEnv(t, true)

	st := decodeState(t, env.do(t, http.MethodGet, "/api/v1/state", nil))
	assert.Equal(t, testProfile, st.Profile)
	assert.True(t, st.State.Ready)
	assert.Equal(t, "python", st.State.Selection.CourseID)
	assert.Equal(t, "Junior", st.State.Selection.Level)
	assert.Equal(t, "5 марта, 2024", st.View.Fields.Date)

	st = decodeState(t, env.do(t, http.MethodPost, "/api/v1/state/level", map[string]any{"value": "Middle"}))
	assert.Equal(t, []string{"Асинхронность"}, st.View.Fields.Skills)

	st = decodeState(t, env.do(t, http.MethodPost, "/api/v1/state/language", map[string]any{"value": "en"}))
	assert.Equal(t, "en", st.View.Language)
	assert.Equal(t, "5 March, 2024", st.View.Fields.Date)
	assert.Equal(t, "Choose a course", st.View.Selectors[app.ControlCourse].Options[0].Label)

	st = decodeState(t, env.do(t, http.MethodPost, "/api/v1/state/language", map[string]any{"value": "ru"}))
	assert.Equal(t, "Middle", st.State.Selection.Level)

	st = decodeState(t, env.do(t, http.MethodPost, "/api/v1/state/stamp", map[string]any{"value": false}))
	assert.False(t, st.View.Fields.Stamp.Visible())

	st = decodeState(t, env.do(t, http.MethodPost, "/api/v1/state/name", map[string]any{"value": "Ада"}))
	assert.Equal(t, "Ада", st.View.Fields.Name)

	st = decodeState(t, env.do(t, http.MethodPost, "/api/v1/state/date", map[string]any{"value": "2023-01-09"}))
	assert.Equal(t, "9 января, 2023", st.View.Fields.Date)

	assert.Equal(t, "Middle", env.backend.Snapshot(testProfile)["selectedLevel-ru-python"])
}

func TestEventErrors(t *testing.T) {
	env := newTestEnv(t, true)

	tests := []struct {
		name   string
		path   string
		body   any
		status int
		code   string
	}{
		{"unknown event", "/api/v1/state/colour", map[string]any{"value": "red"}, http.StatusBadRequest, "validation_error"},
		{"missing value", "/api/v1/state/course", map[string]any{}, http.StatusBadRequest, "validation_error"},
		{"stamp not bool", "/api/v1/state/stamp", map[string]any{"value": "yes"}, http.StatusBadRequest, "validation_error"},
		{"name not string", "/api/v1/state/name", map[string]any{"value": 42}, http.StatusBadRequest, "validation_error"},
		{"name too long", "/api/v1/state/name", map[string]any{"value": strings.Repeat("я", maxNameLength+1)}, http.StatusBadRequest, "validation_error"},
		{"unknown course", "/api/v1/state/course", map[string]any{"value": "cobol"}, http.StatusNotFound, "not_found"},
		{"unknown level", "/api/v1/state/level", map[string]any{"value": "Guru"}, http.StatusNotFound, "not_found"},
		{"unknown language", "/api/v1/state/language", map[string]any{"value": "de"}, http.StatusNotFound, "not_found"},
		{"bad date", "/api/v1/state/date", map[string]any{"value": "05/03/2024"}, http.StatusBadRequest, "validation_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decode(t, rec).Error.Code)
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/state/name", strings.NewReader("{nope"))
	req.Header.Set(ProfileHeader, testProfile)
	rec := httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decode(t, rec).Error.Code)
}

func TestExportRequiresName(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodPost, "/api/v1/export", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "validation_error", body.Error.Code)
	assert.Equal(t, "Введите имя студента", body.Error.Message)

	st := decodeState(t, env.do(t, http.MethodPost, "/api/v1/state/message/dismiss", nil))
	assert.False(t, st.View.MessageVisible)
}

func TestExportPDF(t *testing.T) {
	env := newTestEnv(t, true)
	decodeState(t, env.do(t, http.MethodPost, "/api/v1/state/name", map[string]any{"value": "Ада Лавлейс"}))

	rec := env.do(t, http.MethodPost, "/api/v1/export", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="certificate.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
}

func TestPreviewPNG(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodGet, "/api/v1/preview.png", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
}

func TestStateBeforeDataLoaded(t *testing.T) {
	env := newTestEnv(t, false)

	st := decodeState(t, env.do(t, http.MethodGet, "/api/v1/state", nil))
	assert.False(t, st.State.Ready)
	assert.True(t, st.View.MessageVisible)
	assert.Contains(t, st.View.Message, "translations.json")

	rec := env.do(t, http.MethodPost, "/api/v1/state/name", map[string]any{"value": "Ада"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not_ready", decode(t, rec).Error.Code)

	// data arrives: the next request initializes the session
	require.NoError(t, env.loader.Load(context.Background()))
	st = decodeState(t, env.do(t, http.MethodGet, "/api/v1/state", nil))
	assert.True(t, st.State.Ready)
}

func TestReload(t *testing.T) {
	env := newTestEnv(t, true)
	decodeState(t, env.do(t, http.MethodGet, "/api/v1/state", nil))

	updated := strings.Replace(courseDataJSON, "Python-разработчик", "Python-инженер", 1)
	require.NoError(t, os.WriteFile(filepath.Join(env.dir, catalog.CatalogFile), []byte(updated), 0o644))

	rec := env.do(t, http.MethodPost, "/api/v1/admin/reload", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	st := decodeState(t, env.do(t, http.MethodGet, "/api/v1/state", nil))
	assert.Equal(t, "Python-инженер", st.View.Fields.CourseTitle)

	require.NoError(t, os.Remove(filepath.Join(env.dir, catalog.TranslationsFile)))
	rec = env.do(t, http.MethodPost, "/api/v1/admin/reload", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, decode(t, rec).Error.Message, "404 / 200")

	// previous documents stay in service
	rec = env.do(t, http.MethodGet, "/api/v1/courses", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestResetState(t *testing.T) {
	env := newTestEnv(t, true)
	decodeState(t, env.do(t, http.MethodPost, "/api/v1/state/level", map[string]any{"value": "Middle"}))

	rec := env.do(t, http.MethodDelete, "/api/v1/state", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, env.backend.Snapshot(testProfile))

	st := decodeState(t, env.do(t, http.MethodGet, "/api/v1/state", nil))
	assert.Equal(t, "Junior", st.State.Selection.Level)
}

func TestLiveChannel(t *testing.T) {
	env := newTestEnv(t, true)
	ts := httptest.NewServer(env.server.Router())
	defer ts.Close()

	header := http.Header{}
	header.Set(ProfileHeader, testProfile)
	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/api/v1/live", header)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	read := func() liveMessage {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var msg liveMessage
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}

	first := read()
	require.Equal(t, LiveView, first.Type)
	assert.Equal(t, "python", first.Data.State.Selection.CourseID)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "course", "value": "design"}))
	msg := read()
	require.Equal(t, LiveView, msg.Type)
	assert.Equal(t, "Дизайн", msg.Data.View.Fields.CourseTitle)
	assert.Len(t, msg.Data.View.Selectors[app.ControlLevel].Options, 1)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "level", "value": "Guru"}))
	msg = read()
	require.Equal(t, LiveError, msg.Type)
	assert.Equal(t, "not_found", msg.Error.Code)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	msg = read()
	require.Equal(t, LiveError, msg.Type)
	assert.Equal(t, "invalid_request", msg.Error.Code)
}
