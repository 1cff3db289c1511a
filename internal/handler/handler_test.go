package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/document-registry/internal/middleware"
	"github.com/iliyamo/document-registry/internal/model"
	"github.com/iliyamo/document-registry/internal/repository"
	"github.com/iliyamo/document-registry/internal/service"
	"github.com/iliyamo/document-registry/internal/storage"
	"github.com/iliyamo/document-registry/internal/utils"
)

type memUsers struct {
	mu     sync.Mutex
	byName map[string]model.User
}

func (m *memUsers) Create(_ context.Context, u model.User) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byName[u.Username]; ok {
		return 0, repository.ErrUsernameExists
	}
	u.ID = uint64(len(m.byName) + 1)
	m.byName[u.Username] = u
	return u.ID, nil
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byName[username]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

type memRecords struct {
	mu     sync.Mutex
	rows   []model.Record
	nextID uint64
	err    error
}

func (m *memRecords) List(context.Context) ([]model.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return append([]model.Record{}, m.rows...), nil
}

func (m *memRecords) Create(_ context.Context, rec model.Record) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.nextID++
	rec.ID = m.nextID
	m.rows = append(m.rows, rec)
	return rec.ID, nil
}

func (m *memRecords) Update(_ context.Context, rec model.Record, withSubject bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == rec.ID {
			if !withSubject {
				rec.Subject = m.rows[i].Subject
			}
			m.rows[i] = rec
			return nil
		}
	}
	return repository.ErrRecordNotFound
}

func (m *memRecords) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return repository.ErrRecordNotFound
}

type fixture struct {
	e       *echo.Echo
	records *memRecords
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	blobs, err := storage.NewDiskStore(t.TempDir())
	require.NoError(t, err)
	uploader := storage.NewUploader(blobs)

	users := &memUsers{byName: map[string]model.User{}}
	records := &memRecords{}
	auth := service.NewAuthService(users, utils.NewTokenIssuer("test-secret", time.Hour), 4)
	docs := service.NewDocumentService(records, uploader, service.DocumentOptions{CleanupOrphans: true})

	a := NewAuthHandler(auth)
	d := NewDocumentHandler(docs)
	f := NewFileHandler(uploader)

	e := echo.New()
	e.POST("/register", a.Register)
	e.POST("/login", a.Login)
	e.GET("/protected", a.Protected, middleware.BearerAuth(auth))
	e.GET("/data/get", d.List)
	e.POST("/data/add", d.Create)
	e.PUT("/data/update/:id", d.Update)
	e.DELETE("/data/delete/:id", d.Delete)
	e.GET("/uploads/:name", f.Get)
	return &fixture{e: e, records: records}
}

func (fx *fixture) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	fx.e.ServeHTTP(rec, req)
	var body map[string]any
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		_ = json.Unmarshal(rec.Body.Bytes(), &body)
	}
	return rec, body
}

func jsonReq(method, target string, v any) *http.Request {
	b, _ := json.Marshal(v)
	req := httptest.NewRequest(method, target, bytes.NewReader(b))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func multipartReq(t *testing.T, target string, fields map[string]string, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	return req
}

var sampleFields = map[string]string{
	"date": "2024-01-01", "sender": "A", "receiver": "B", "subject": "S", "note": "N",
}

func TestRegistryScenario(t *testing.T) {
	fx := newFixture(t)

	rec, body := fx.do(t, jsonReq(http.MethodPost, "/register", map[string]string{
		"username": "alice", "password": "pw123", "name": "Alice", "lastname": "A",
	}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Register Success!", body["message"])
	assert.EqualValues(t, 1, body["id"])

	rec, body = fx.do(t, jsonReq(http.MethodPost, "/login", map[string]string{"username": "alice", "password": "pw123"}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Login successfully!", body["message"])
	assert.NotEmpty(t, body["token"])

	rec, body = fx.do(t, jsonReq(http.MethodPost, "/login", map[string]string{"username": "alice", "password": "wrong"}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid username or password", body["message"])

	rec, body = fx.do(t, multipartReq(t, "/data/add", sampleFields, "doc.pdf", "%PDF-1.4"))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.EqualValues(t, 1, body["id"])

	rec, _ = fx.do(t, httptest.NewRequest(http.MethodGet, "/data/get", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []model.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "2024-01-01", list[0].Date.String())
	require.NotNil(t, list[0].File)
	assert.True(t, strings.HasSuffix(*list[0].File, ".pdf"))

	rec, _ = fx.do(t, httptest.NewRequest(http.MethodGet, "/uploads/"+*list[0].File, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF-1.4", rec.Body.String())

	rec, body = fx.do(t, httptest.NewRequest(http.MethodDelete, "/data/delete/1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Data deleted successfully", body["message"])

	rec, body = fx.do(t, httptest.NewRequest(http.MethodDelete, "/data/delete/1", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Record not found", body["message"])
}

func TestRegister(t *testing.T) {
	fx := newFixture(t)
	alice := map[string]string{"username": "alice", "password": "pw123"}

	rec, _ := fx.do(t, jsonReq(http.MethodPost, "/register", alice))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := fx.do(t, jsonReq(http.MethodPost, "/register", alice))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Username already exists", body["message"])

	rec, body = fx.do(t, jsonReq(http.MethodPost, "/register", map[string]string{"username": "bob"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Please provide username and password", body["message"])

	long := map[string]string{"username": "carol", "password": strings.Repeat("x", 80)}
	rec, body = fx.do(t, jsonReq(http.MethodPost, "/register", long))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Password must be at most 72 bytes", body["message"])

	long["password"] = strings.Repeat("x", 72)
	rec, _ = fx.do(t, jsonReq(http.MethodPost, "/register", long))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProtected(t *testing.T) {
	fx := newFixture(t)
	fx.do(t, jsonReq(http.MethodPost, "/register", map[string]string{"username": "alice", "password": "pw123"}))
	_, body := fx.do(t, jsonReq(http.MethodPost, "/login", map[string]string{"username": "alice", "password": "pw123"}))
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	tests := []struct {
		name   string
		header string
		code   int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"garbage token", "Bearer not.a.jwt", http.StatusForbidden},
		{"valid token", "Bearer " + token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec, _ := fx.do(t, req)
			assert.Equal(t, tt.code, rec.Code)
			if tt.code == http.StatusOK {
				assert.Equal(t, "This is a protected route", rec.Body.String())
			}
		})
	}
}

func TestCreate(t *testing.T) {
	fx := newFixture(t)

	rec, body := fx.do(t, jsonReq(http.MethodPost, "/data/add", sampleFields))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Data added successfully", body["message"])
	require.Len(t, fx.records.rows, 1)
	assert.Nil(t, fx.records.rows[0].File)

	fields := map[string]string{"date": "2024-01-01", "sender": "A", "receiver": "B"}
	rec, body = fx.do(t, multipartReq(t, "/data/add", fields, "", ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "All fields are required", body["message"])
	assert.Len(t, fx.records.rows, 1)
}

func TestCreate_OverlongFieldIs400(t *testing.T) {
	fx := newFixture(t)
	fields := map[string]string{"date": "2024-01-01", "sender": strings.Repeat("a", 300), "receiver": "B", "subject": "S"}

	rec, body := fx.do(t, jsonReq(http.MethodPost, "/data/add", fields))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "sender must be at most 255 characters", body["message"])
	assert.Empty(t, fx.records.rows)
}

func TestCreate_StoreFailureIsGeneric500(t *testing.T) {
	fx := newFixture(t)
	fx.records.err = errors.New("connection refused")

	rec, body := fx.do(t, jsonReq(http.MethodPost, "/data/add", sampleFields))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal Server Error", body["message"])

	rec, _ = fx.do(t, httptest.NewRequest(http.MethodGet, "/data/get", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestUpdate(t *testing.T) {
	fx := newFixture(t)
	rec, _ := fx.do(t, multipartReq(t, "/data/add", sampleFields, "a.TXT", "hello"))
	require.Equal(t, http.StatusCreated, rec.Code)
	ref := *fx.records.rows[0].File
	assert.True(t, strings.HasSuffix(ref, ".txt"))

	update := map[string]string{"date": "2024-02-02", "sender": "X", "receiver": "Y", "subject": "ignored", "file": ref, "note": "M"}

	rec, body := fx.do(t, jsonReq(http.MethodPut, "/data/update/1", update))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Data updated successfully", body["message"])
	got := fx.records.rows[0]
	assert.Equal(t, "X", got.Sender)
	assert.Equal(t, "S", got.Subject)
	assert.Equal(t, "2024-02-02", got.Date.String())

	rec, _ = fx.do(t, jsonReq(http.MethodPut, "/data/update/99", update))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = fx.do(t, jsonReq(http.MethodPut, "/data/update/abc", update))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	missing := map[string]string{"date": "2024-02-02", "sender": "X", "receiver": "Y", "file": ref}
	rec, body = fx.do(t, jsonReq(http.MethodPut, "/data/update/1", missing))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "All fields are required", body["message"])

	update["file"] = "nope.pdf"
	rec, _ = fx.do(t, jsonReq(http.MethodPut, "/data/update/1", update))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFiles_NotFound(t *testing.T) {
	fx := newFixture(t)
	for _, name := range []string{"missing.pdf", "..%2Fsecret"} {
		rec, _ := fx.do(t, httptest.NewRequest(http.MethodGet, "/uploads/"+name, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, name)
	}
}

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	e := echo.New()
	for _, tt := range []struct {
		err  error
		code int
	}{{nil, http.StatusOK}, {errors.New("down"), http.StatusServiceUnavailable}} {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/healthz", nil), rec)
		require.NoError(t, Health(pinger{tt.err})(c))
		assert.Equal(t, tt.code, rec.Code)
	}
}
