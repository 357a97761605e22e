package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/smart_inventory/internal/models"
	"github.com/Skotchmaster/smart_inventory/internal/validation"
)

type testEnv struct {
	T         *testing.T
	E         *echo.Echo
	A         *AuthHandler
	I         *InventoryHandler
	DB        *gorm.DB
	Store     *fakeStore
	Producer  *recordingProducer
	JWTSecret []byte
}

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (f *fakeStore) UploadFile(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return "http://objects.local/test-bucket/" + key, nil
}

func (f *fakeStore) object(key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	return data, ok
}

type failingStore struct{}

func (failingStore) UploadFile(context.Context, string, io.Reader, string) (string, error) {
	return "", fmt.Errorf("bucket unavailable")
}

type recordingProducer struct {
	mu     sync.Mutex
	events []map[string]interface{}
}

func (p *recordingProducer) PublishEvent(_ context.Context, _, _ string, event interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event.(map[string]interface{}))
	return nil
}

func (p *recordingProducer) lastEvent() map[string]interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return nil
	}
	return p.events[len(p.events)-1]
}

func initTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// one connection so every query sees the same in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Item{}))
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	db := initTestDB(t)

	e := echo.New()
	e.Validator = validation.New()

	secret := []byte("test_secret")
	store := newFakeStore()
	prod := &recordingProducer{}

	env := &testEnv{
		T:         t,
		E:         e,
		DB:        db,
		Store:     store,
		Producer:  prod,
		JWTSecret: secret,
	}

	env.A = &AuthHandler{DB: db, JWTSecret: secret, Producer: prod}
	env.I = &InventoryHandler{DB: db, Store: store, Producer: prod}

	return env
}

func (env *testEnv) doJSONRequest(method, path string, body interface{}) (*httptest.ResponseRecorder, echo.Context) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	return rec, c
}

func (env *testEnv) doMultipartRequest(path string, fields map[string]string, filename string, image []byte) (*httptest.ResponseRecorder, echo.Context) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(env.T, w.WriteField(k, v))
	}
	if filename != "" {
		part, err := w.CreateFormFile("image", filename)
		require.NoError(env.T, err)
		_, err = part.Write(image)
		require.NoError(env.T, err)
	}
	require.NoError(env.T, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	return rec, c
}

func (env *testEnv) createUser(username, passwordHash string) models.User {
	user := models.User{Username: username, PasswordHash: passwordHash}
	require.NoError(env.T, env.DB.Create(&user).Error)
	return user
}

func (env *testEnv) asUser(c echo.Context, id uint) {
	c.Set("userID", id)
}

func quantityField(q int) string {
	return strconv.Itoa(q)
}
