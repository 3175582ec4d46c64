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

	"medicineweb/internal/auth"
	"medicineweb/internal/directory/memstore"
	"medicineweb/internal/directory/models"
	"medicineweb/internal/professional/service"
)

type fixture struct {
	router     http.Handler
	store      *memstore.InMemory
	adminToken string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	logger := slog.New(slog.DiscardHandler)

	tokens := auth.NewJWTService("test-signing-key", "test", time.Hour)
	svc := service.New(
		store.Professionals(),
		store.Bookings(),
		store.Authorities(),
		store.Accounts(),
		store,
		service.WithLogger(logger),
	)

	adminAccount := &models.Account{
		ID: uuid.New(), Email: "admin@clinic.example",
		Role: models.RoleAdmin, Active: true,
	}
	require.NoError(t, store.Accounts().CreateIfEmailAvailable(t.Context(), adminAccount))
	require.NoError(t, store.Authorities().Create(t.Context(), &models.Authority{
		ID: uuid.New(), AccountID: adminAccount.ID,
		FullName: "Reviewer", IsActive: true,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}))
	token, err := tokens.GenerateAccessToken(adminAccount.ID, string(models.RoleAdmin))
	require.NoError(t, err)

	h := New(svc, logger, auth.NewJWTServiceAdapter(tokens))
	r := chi.NewRouter()
	h.Register(r)
	return &fixture{router: r, store: store, adminToken: token}
}

func (f *fixture) seedProfessional(t *testing.T, status models.ProfessionalStatus) *models.Professional {
	t.Helper()
	account := &models.Account{
		ID: uuid.New(), Email: uuid.NewString() + "@example.org",
		Role: models.RoleProfessional, Active: true,
	}
	require.NoError(t, f.store.Accounts().CreateIfEmailAvailable(t.Context(), account))
	p, err := models.NewProfessional(uuid.New(), account.ID,
		"Ana Souza", "CRM-12345", "cardiology", time.Now())
	require.NoError(t, err)
	p.Status = status
	require.NoError(t, f.store.Professionals().Create(t.Context(), p))
	return p
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

func TestAdminRoutesRequireToken(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/admin/professionals/pending", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	f := newFixture(t)
	tokens := auth.NewJWTService("test-signing-key", "test", time.Hour)
	clientToken, err := tokens.GenerateAccessToken(uuid.New(), string(models.RoleClient))
	require.NoError(t, err)

	rec := f.do(t, http.MethodGet, "/admin/professionals/pending", clientToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestApproveViaHandler(t *testing.T) {
	f := newFixture(t)
	p := f.seedProfessional(t, models.StatusPendingReview)

	rec := f.do(t, http.MethodPost, "/admin/professionals/"+p.ID.String()+"/approve", f.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Professional
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, models.StatusActive, got.Status)

	t.Run("second approve conflicts", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/admin/professionals/"+p.ID.String()+"/approve", f.adminToken, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestRejectViaHandler(t *testing.T) {
	f := newFixture(t)
	p := f.seedProfessional(t, models.StatusPendingReview)

	t.Run("short reason is rejected at the handler", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/admin/professionals/"+p.ID.String()+"/reject",
			f.adminToken, map[string]string{"reason": "too short"})
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var body map[string]string
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "reason", body["field"])

		stored, err := f.store.Professionals().FindByID(t.Context(), p.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPendingReview, stored.Status)
	})

	t.Run("valid reason rejects the professional", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/admin/professionals/"+p.ID.String()+"/reject",
			f.adminToken, map[string]string{"reason": "license could not be verified"})
		require.Equal(t, http.StatusOK, rec.Code)

		var got models.Professional
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		assert.Equal(t, models.StatusRejected, got.Status)
		assert.Equal(t, "license could not be verified", got.StatusReason)
	})
}

func TestRetireViaHandler(t *testing.T) {
	f := newFixture(t)
	p := f.seedProfessional(t, models.StatusActive)
	require.NoError(t, f.store.Bookings().Create(t.Context(), &models.Booking{
		ID: uuid.New(), ProfessionalID: p.ID, ClientID: uuid.New(),
		ScheduledAt: time.Now().Add(24 * time.Hour), Status: models.BookingConfirmed,
	}))

	rec := f.do(t, http.MethodPost, "/admin/professionals/"+p.ID.String()+"/retire",
		f.adminToken, map[string]string{"reason": "closing the practice"})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Professional      models.Professional `json:"professional"`
		BookingsCancelled int                 `json:"bookings_cancelled"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, models.StatusDeleted, body.Professional.Status)
	assert.Equal(t, 1, body.BookingsCancelled)
}

func TestListPendingViaHandler(t *testing.T) {
	f := newFixture(t)
	p := f.seedProfessional(t, models.StatusPendingReview)
	f.seedProfessional(t, models.StatusActive)

	rec := f.do(t, http.MethodGet, "/admin/professionals/pending", f.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list []models.Professional
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, p.ID, list[0].ID)
}

func TestListAllFilterValidation(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/admin/professionals?status=bogus", f.adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPublicListing(t *testing.T) {
	f := newFixture(t)
	active := f.seedProfessional(t, models.StatusActive)
	f.seedProfessional(t, models.StatusPendingReview)

	rec := f.do(t, http.MethodGet, "/professionals", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list []models.Professional
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, active.ID, list[0].ID)

	t.Run("profile of a hidden professional is not found", func(t *testing.T) {
		hidden := f.seedProfessional(t, models.StatusRejected)
		rec := f.do(t, http.MethodGet, "/professionals/"+hidden.ID.String(), "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed id is a validation error", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/professionals/not-a-uuid", "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
