package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"medicineweb/internal/audit"
	"medicineweb/internal/directory/memstore"
	"medicineweb/internal/directory/models"
	dErrors "medicineweb/pkg/domain-errors"
)

type AuthorityGuardSuite struct {
	suite.Suite
	store   *memstore.InMemory
	audits  *audit.MemoryStore
	service *Service

	top        *models.Authority
	topAccount *models.Account
}

func TestAuthorityGuardSuite(t *testing.T) {
	suite.Run(t, new(AuthorityGuardSuite))
}

func (s *AuthorityGuardSuite) SetupTest() {
	s.store = memstore.New()
	s.audits = audit.NewMemoryStore()
	s.service = New(
		s.store.Authorities(),
		s.store.Accounts(),
		s.store.Professionals(),
		s.store.Bookings(),
		s.store,
		WithAuditPublisher(audit.NewPublisher(s.audits)),
	)

	s.topAccount = s.seedAccount("root@clinic.example")
	s.top = s.seedAuthority(s.topAccount.ID, true, true)
}

func (s *AuthorityGuardSuite) seedAccount(email string) *models.Account {
	account := &models.Account{
		ID:        uuid.New(),
		Email:     email,
		Role:      models.RoleAdmin,
		Active:    true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	s.Require().NoError(s.store.Accounts().CreateIfEmailAvailable(context.Background(), account))
	return account
}

func (s *AuthorityGuardSuite) seedAuthority(accountID uuid.UUID, active, top bool) *models.Authority {
	a := &models.Authority{
		ID:             uuid.New(),
		AccountID:      accountID,
		FullName:       "Administrator",
		IsTopAuthority: top,
		IsActive:       active,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	s.Require().NoError(s.store.Authorities().Create(context.Background(), a))
	return a
}

func (s *AuthorityGuardSuite) createOrdinaryAdmin(email string) (*models.Authority, *models.Account) {
	a, err := s.service.CreateAuthority(context.Background(), s.topAccount.ID, CreateAuthorityRequest{
		Email:    email,
		Password: "long-enough-password",
		FullName: "Ordinary Admin",
	})
	s.Require().NoError(err)
	account, err := s.store.Accounts().FindByID(context.Background(), a.AccountID)
	s.Require().NoError(err)
	return a, account
}

func (s *AuthorityGuardSuite) TestIsTopAuthority() {
	ctx := context.Background()

	top, err := s.service.IsTopAuthority(ctx, s.topAccount.ID)
	s.NoError(err)
	s.True(top)

	_, ordinary := s.createOrdinaryAdmin("staff@clinic.example")
	isTop, err := s.service.IsTopAuthority(ctx, ordinary.ID)
	s.NoError(err)
	s.False(isTop)

	isTop, err = s.service.IsTopAuthority(ctx, uuid.New())
	s.NoError(err)
	s.False(isTop)
}

func (s *AuthorityGuardSuite) TestCreateAuthority() {
	ctx := context.Background()

	s.Run("top authority creates an ordinary admin with a login account", func() {
		created, err := s.service.CreateAuthority(ctx, s.topAccount.ID, CreateAuthorityRequest{
			Email:      "New.Admin@Clinic.Example",
			Password:   "long-enough-password",
			FullName:   "New Admin",
			Department: "oncology",
		})
		s.Require().NoError(err)
		s.False(created.IsTopAuthority, "created authorities are never the top authority")
		s.True(created.IsActive)

		account, err := s.store.Accounts().FindByEmail(ctx, "new.admin@clinic.example")
		s.Require().NoError(err)
		s.Equal(models.RoleAdmin, account.Role)
		s.True(account.Active)
		s.Equal(created.AccountID, account.ID)
	})

	s.Run("ordinary admin is refused and no rows are written", func() {
		_, ordinaryAccount := s.createOrdinaryAdmin("ordinary@clinic.example")
		before, err := s.store.Authorities().Count(ctx)
		s.Require().NoError(err)

		_, err = s.service.CreateAuthority(ctx, ordinaryAccount.ID, CreateAuthorityRequest{
			Email:    "sneaky@clinic.example",
			Password: "long-enough-password",
			FullName: "Sneaky Admin",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

		after, err := s.store.Authorities().Count(ctx)
		s.Require().NoError(err)
		s.Equal(before, after)
		_, err = s.store.Accounts().FindByEmail(ctx, "sneaky@clinic.example")
		s.Error(err)
	})

	s.Run("duplicate email is a conflict", func() {
		s.createOrdinaryAdmin("duplicate@clinic.example")

		_, err := s.service.CreateAuthority(ctx, s.topAccount.ID, CreateAuthorityRequest{
			Email:    "duplicate@clinic.example",
			Password: "long-enough-password",
			FullName: "Duplicate Admin",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Equal("email", dErrors.FieldOf(err))
	})

	s.Run("records an audit event", func() {
		created, _ := s.createOrdinaryAdmin("audited@clinic.example")
		events, err := s.audits.ListBySubject(ctx, created.ID)
		s.Require().NoError(err)
		s.Require().Len(events, 1)
		s.Equal(audit.ActionAuthorityCreated, events[0].Action)
		s.Equal(s.top.ID, events[0].ActorID)
	})
}

func (s *AuthorityGuardSuite) TestDeactivateAuthority() {
	ctx := context.Background()

	s.Run("ordinary admin and their login are suspended together", func() {
		ordinary, ordinaryAccount := s.createOrdinaryAdmin("suspend@clinic.example")

		deactivated, err := s.service.DeactivateAuthority(ctx, s.topAccount.ID, ordinary.ID)
		s.Require().NoError(err)
		s.False(deactivated.IsActive)

		account, err := s.store.Accounts().FindByID(ctx, ordinaryAccount.ID)
		s.Require().NoError(err)
		s.False(account.Active)
	})

	s.Run("deactivating twice is a no-op", func() {
		ordinary, _ := s.createOrdinaryAdmin("twice@clinic.example")
		_, err := s.service.DeactivateAuthority(ctx, s.topAccount.ID, ordinary.ID)
		s.Require().NoError(err)

		deactivated, err := s.service.DeactivateAuthority(ctx, s.topAccount.ID, ordinary.ID)
		s.NoError(err)
		s.False(deactivated.IsActive)
	})

	s.Run("the top authority can never be deactivated", func() {
		_, err := s.service.DeactivateAuthority(ctx, s.topAccount.ID, s.top.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

		stored, err := s.store.Authorities().FindByID(ctx, s.top.ID)
		s.Require().NoError(err)
		s.True(stored.IsActive)
	})

	s.Run("ordinary admin may not deactivate anyone", func() {
		_, actorAccount := s.createOrdinaryAdmin("actor@clinic.example")
		target, _ := s.createOrdinaryAdmin("target@clinic.example")

		_, err := s.service.DeactivateAuthority(ctx, actorAccount.ID, target.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("unknown authority is not found", func() {
		_, err := s.service.DeactivateAuthority(ctx, s.topAccount.ID, uuid.New())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *AuthorityGuardSuite) TestReactivateAuthority() {
	ctx := context.Background()
	ordinary, ordinaryAccount := s.createOrdinaryAdmin("restore@clinic.example")
	_, err := s.service.DeactivateAuthority(ctx, s.topAccount.ID, ordinary.ID)
	s.Require().NoError(err)

	reactivated, err := s.service.ReactivateAuthority(ctx, s.topAccount.ID, ordinary.ID)
	s.Require().NoError(err)
	s.True(reactivated.IsActive)

	account, err := s.store.Accounts().FindByID(ctx, ordinaryAccount.ID)
	s.Require().NoError(err)
	s.True(account.Active)

	s.Run("the top authority's active flag is immutable", func() {
		_, err := s.service.ReactivateAuthority(ctx, s.topAccount.ID, s.top.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *AuthorityGuardSuite) TestListAuthorities() {
	ctx := context.Background()
	first, _ := s.createOrdinaryAdmin("first@clinic.example")
	second, _ := s.createOrdinaryAdmin("second@clinic.example")

	list, err := s.service.ListAuthorities(ctx, s.topAccount.ID)
	s.Require().NoError(err)
	s.Require().Len(list, 3)
	s.Equal(s.top.ID, list[0].ID, "the top authority leads the list")
	s.Equal(first.ID, list[1].ID)
	s.Equal(second.ID, list[2].ID)

	s.Run("non-admin may not list", func() {
		_, err := s.service.ListAuthorities(ctx, uuid.New())
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("ordinary administrator may not list", func() {
		_, account := s.createOrdinaryAdmin("reader@clinic.example")
		_, err := s.service.ListAuthorities(ctx, account.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *AuthorityGuardSuite) TestGetMe() {
	ctx := context.Background()

	me, err := s.service.GetMe(ctx, s.topAccount.ID)
	s.Require().NoError(err)
	s.Equal(s.top.ID, me.Authority.ID)
	s.Equal("root@clinic.example", me.Email)

	_, err = s.service.GetMe(ctx, uuid.New())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *AuthorityGuardSuite) TestGetStats() {
	ctx := context.Background()

	seedProfessional := func(status models.ProfessionalStatus) {
		p, err := models.NewProfessional(uuid.New(), uuid.New(),
			"Ana Souza", "CRM-12345", "cardiology", time.Now())
		s.Require().NoError(err)
		p.Status = status
		s.Require().NoError(s.store.Professionals().Create(ctx, p))
	}
	seedProfessional(models.StatusPendingReview)
	seedProfessional(models.StatusPendingReview)
	seedProfessional(models.StatusActive)
	seedProfessional(models.StatusRejected)

	s.Require().NoError(s.store.Bookings().Create(ctx, &models.Booking{
		ID:             uuid.New(),
		ProfessionalID: uuid.New(),
		ClientID:       uuid.New(),
		ScheduledAt:    time.Now().Add(time.Hour),
		Status:         models.BookingPending,
	}))

	ordinary, _ := s.createOrdinaryAdmin("stats@clinic.example")
	_, err := s.service.DeactivateAuthority(ctx, s.topAccount.ID, ordinary.ID)
	s.Require().NoError(err)

	stats, err := s.service.GetStats(ctx, s.topAccount.ID)
	s.Require().NoError(err)
	s.Equal(2, stats.PendingProfessionals)
	s.Equal(1, stats.ActiveProfessionals)
	s.Equal(1, stats.RejectedProfessionals)
	s.Equal(1, stats.TotalBookings)
	s.Equal(1, stats.ActiveAuthorities, "only the top authority remains active")
}
