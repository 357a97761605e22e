package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/smart_inventory/internal/hash"
	"github.com/Skotchmaster/smart_inventory/internal/models"
)

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	payload := map[string]string{"username": "alice", "password": "p1"}
	rec, c := env.doJSONRequest(http.MethodPost, "/api/auth/register", payload)

	require.NoError(t, env.A.Register(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "user created", resp["message"])

	var user models.User
	require.NoError(t, env.DB.Where("username = ?", "alice").First(&user).Error)
	require.NotEmpty(t, user.ID)
	require.NotEqual(t, "p1", user.PasswordHash)
	require.True(t, hash.CheckPassword(user.PasswordHash, "p1"))

	event := env.Producer.lastEvent()
	require.NotNil(t, event)
	require.Equal(t, "user_registered", event["type"])
	require.Equal(t, "alice", event["username"])
}

func TestRegisterDuplicateUsername(t *testing.T) {
	env := newTestEnv(t)

	payload := map[string]string{"username": "alice", "password": "p1"}
	rec, c := env.doJSONRequest(http.MethodPost, "/api/auth/register", payload)
	require.NoError(t, env.A.Register(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	_, c2 := env.doJSONRequest(http.MethodPost, "/api/auth/register", payload)
	err := env.A.Register(c2)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusConflict, he.Code)

	var count int64
	require.NoError(t, env.DB.Model(&models.User{}).Where("username = ?", "alice").Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestRegisterMissingFields(t *testing.T) {
	env := newTestEnv(t)

	_, c := env.doJSONRequest(http.MethodPost, "/api/auth/register", map[string]string{"username": "alice"})
	err := env.A.Register(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusBadRequest, he.Code)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	pwHash, err := hash.HashPassword("p1")
	require.NoError(t, err)
	user := env.createUser("alice", pwHash)

	rec, c := env.doJSONRequest(http.MethodPost, "/api/auth/login", map[string]string{
		"username": "alice",
		"password": "p1",
	})
	require.NoError(t, env.A.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["token"])

	token, err := jwt.Parse(resp["token"], func(t *jwt.Token) (interface{}, error) {
		return env.JWTSecret, nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	claims := token.Claims.(jwt.MapClaims)
	require.Equal(t, float64(user.ID), claims["sub"])
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)

	pwHash, err := hash.HashPassword("p1")
	require.NoError(t, err)
	env.createUser("alice", pwHash)

	_, c := env.doJSONRequest(http.MethodPost, "/api/auth/login", map[string]string{
		"username": "alice",
		"password": "p2",
	})
	loginErr := env.A.Login(c)
	he, ok := loginErr.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestLoginUnknownUser(t *testing.T) {
	env := newTestEnv(t)

	_, c := env.doJSONRequest(http.MethodPost, "/api/auth/login", map[string]string{
		"username": "nobody",
		"password": "p1",
	})
	err := env.A.Login(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusUnauthorized, he.Code)
	require.Equal(t, "invalid credentials", he.Message)
}
