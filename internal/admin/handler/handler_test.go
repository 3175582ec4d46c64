package handler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medicineweb/internal/admin/service"
	"medicineweb/internal/auth"
	"medicineweb/internal/directory/memstore"
	"medicineweb/internal/directory/models"
)

type fixture struct {
	router   http.Handler
	store    *memstore.InMemory
	tokens   *auth.JWTService
	topToken string
	top      *models.Authority
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	logger := slog.New(slog.DiscardHandler)
	tokens := auth.NewJWTService("test-signing-key", "test", time.Hour)

	svc := service.New(
		store.Authorities(),
		store.Accounts(),
		store.Professionals(),
		store.Bookings(),
		store,
		service.WithLogger(logger),
	)

	topAccount := &models.Account{
		ID: uuid.New(), Email: "root@clinic.example",
		Role: models.RoleAdmin, Active: true,
	}
	require.NoError(t, store.Accounts().CreateIfEmailAvailable(t.Context(), topAccount))
	top := &models.Authority{
		ID: uuid.New(), AccountID: topAccount.ID,
		FullName: "System Administrator", IsTopAuthority: true, IsActive: true,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	require.NoError(t, store.Authorities().Create(t.Context(), top))
	topToken, err := tokens.GenerateAccessToken(topAccount.ID, string(models.RoleAdmin))
	require.NoError(t, err)

	h := New(svc, logger, auth.NewJWTServiceAdapter(tokens))
	r := chi.NewRouter()
	h.Register(r)
	return &fixture{router: r, store: store, tokens: tokens, topToken: topToken, top: top}
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) createAdmin(t *testing.T, email string) models.Authority {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/admin/authorities", f.topToken, map[string]string{
		"email":     email,
		"password":  "long-enough-password",
		"full_name": "Ordinary Admin",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.Authority
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	return created
}

func TestCreateAuthorityViaHandler(t *testing.T) {
	f := newFixture(t)

	t.Run("created by the top authority", func(t *testing.T) {
		created := f.createAdmin(t, "staff@clinic.example")
		assert.False(t, created.IsTopAuthority)
		assert.True(t, created.IsActive)
	})

	t.Run("short password is refused before the service runs", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/admin/authorities", f.topToken, map[string]string{
			"email":     "short@clinic.example",
			"password":  "short",
			"full_name": "Short Password",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var body map[string]string
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "password", body["field"])
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		f.createAdmin(t, "dup@clinic.example")
		rec := f.do(t, http.MethodPost, "/admin/authorities", f.topToken, map[string]string{
			"email":     "dup@clinic.example",
			"password":  "long-enough-password",
			"full_name": "Duplicate",
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("ordinary admin is forbidden", func(t *testing.T) {
		created := f.createAdmin(t, "ordinary@clinic.example")
		ordinaryToken, err := f.tokens.GenerateAccessToken(created.AccountID, string(models.RoleAdmin))
		require.NoError(t, err)

		rec := f.do(t, http.MethodPost, "/admin/authorities", ordinaryToken, map[string]string{
			"email":     "sneaky@clinic.example",
			"password":  "long-enough-password",
			"full_name": "Sneaky",
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestDeactivateViaHandler(t *testing.T) {
	f := newFixture(t)

	t.Run("ordinary admin can be deactivated and reactivated", func(t *testing.T) {
		created := f.createAdmin(t, "toggle@clinic.example")

		rec := f.do(t, http.MethodPost, "/admin/authorities/"+created.ID.String()+"/deactivate", f.topToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var got models.Authority
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		assert.False(t, got.IsActive)

		rec = f.do(t, http.MethodPost, "/admin/authorities/"+created.ID.String()+"/reactivate", f.topToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		assert.True(t, got.IsActive)
	})

	t.Run("the top authority cannot be deactivated", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/admin/authorities/"+f.top.ID.String()+"/deactivate", f.topToken, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestMeAndStatsViaHandler(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/admin/me", f.topToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me struct {
		Authority models.Authority `json:"authority"`
		Email     string           `json:"email"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&me))
	assert.Equal(t, f.top.ID, me.Authority.ID)
	assert.Equal(t, "root@clinic.example", me.Email)

	rec = f.do(t, http.MethodGet, "/admin/stats", f.topToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats service.Stats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.Equal(t, 1, stats.ActiveAuthorities)
}

func TestListAuthoritiesOrdering(t *testing.T) {
	f := newFixture(t)
	first := f.createAdmin(t, "first@clinic.example")

	rec := f.do(t, http.MethodGet, "/admin/authorities", f.topToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list []models.Authority
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	require.Len(t, list, 2)
	assert.Equal(t, f.top.ID, list[0].ID, "the top authority leads the list")
	assert.Equal(t, first.ID, list[1].ID)
}
