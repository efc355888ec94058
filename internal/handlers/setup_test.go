package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"campus-care-server/internal/config"
	"campus-care-server/internal/models"
	"campus-care-server/internal/routes"
	"campus-care-server/internal/utils"
	"campus-care-server/internal/ws"
)

type testEnv struct {
	DB     *gorm.DB
	Router *gin.Engine
	Cfg    *config.Config
	Hub    *ws.Hub
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	if err := models.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	cfg := &config.Config{
		Environment:               "development",
		JWTSecret:                 "test-secret",
		JWTRefreshSecret:          "test-refresh-secret",
		JWTExpirationMinutes:      15,
		JWTRefreshExpirationHours: 1,
	}

	hub := ws.NewHub(nil)
	router := gin.New()
	routes.SetupRoutes(router, db, cfg, hub, zap.NewNop())

	return &testEnv{DB: db, Router: router, Cfg: cfg, Hub: hub}
}

func (e *testEnv) createUser(t *testing.T, role models.Role, email string) models.User {
	t.Helper()
	user := models.User{
		Email:     email,
		FirstName: "Test",
		LastName:  "User",
		Role:      role,
	}
	require.NoError(t, user.SetPassword("password123"))
	require.NoError(t, e.DB.Create(&user).Error)
	return user
}

func (e *testEnv) tokenFor(t *testing.T, user *models.User) string {
	t.Helper()
	access, _, err := utils.GenerateTokens(user, e.Cfg)
	require.NoError(t, err)
	return access
}

func (e *testEnv) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.Router.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	if out != nil && len(envelope.Data) > 0 {
		require.NoError(t, json.Unmarshal(envelope.Data, out))
	}
}
