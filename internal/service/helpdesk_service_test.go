package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tork-crm/tork-api/internal/auth"
	"github.com/tork-crm/tork-api/internal/cache"
	"github.com/tork-crm/tork-api/internal/domain"
	"github.com/tork-crm/tork-api/internal/helpdesk"
	"github.com/tork-crm/tork-api/internal/repository"
	"github.com/tork-crm/tork-api/internal/service"
	"github.com/tork-crm/tork-api/internal/testutil"
	"go.uber.org/zap"
)

func webhookEvent(event, name, phone, email string) *domain.HelpdeskWebhookRequest {
	return &domain.HelpdeskWebhookRequest{
		Event: event,
		Data:  domain.HelpdeskWebhookContact{ID: 7, Name: name, PhoneNumber: phone, Email: email},
	}
}

func TestHelpdeskWebhookService_HandleEvent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := service.NewHelpdeskWebhookService(db, repository.NewContactRepository(db), service.NewContactResolver(true, zap.NewNop()), zap.NewNop())
	ctx := context.Background()

	t.Run("ignores other events", func(t *testing.T) {
		outcome, err := svc.HandleEvent(ctx, webhookEvent("conversation_created", "Ana", testutil.UniquePhone(), ""))
		require.NoError(t, err)
		assert.Equal(t, service.WebhookIgnored, outcome)
	})

	t.Run("no identifiers", func(t *testing.T) {
		outcome, err := svc.HandleEvent(ctx, webhookEvent(service.HelpdeskEventContactCreated, "Ana", " ", ""))
		require.NoError(t, err)
		assert.Equal(t, service.WebhookNoIdentifiers, outcome)
	})

	t.Run("unknown e-mail without phone is skipped", func(t *testing.T) {
		outcome, err := svc.HandleEvent(ctx, webhookEvent(service.HelpdeskEventContactCreated, "Ana", "", "nova@example.com"))
		require.NoError(t, err)
		assert.Equal(t, service.WebhookPhoneRequired, outcome)
	})

	assert.Equal(t, int64(0), testutil.CountRows(t, db, &domain.Contact{}))

	t.Run("creates then updates", func(t *testing.T) {
		phone := testutil.UniquePhone()
		outcome, err := svc.HandleEvent(ctx, webhookEvent(service.HelpdeskEventContactCreated, "Beatriz", phone, ""))
		require.NoError(t, err)
		assert.Equal(t, service.WebhookSynced, outcome)

		outcome, err = svc.HandleEvent(ctx, webhookEvent(service.HelpdeskEventContactUpdated, "Beatriz Lima", phone, "bia@example.com"))
		require.NoError(t, err)
		assert.Equal(t, service.WebhookSynced, outcome)

		contact, err := repository.NewContactRepository(db).GetByPhone(ctx, phone)
		require.NoError(t, err)
		assert.Equal(t, "Beatriz Lima", contact.Name)
		assert.Equal(t, "bia@example.com", contact.EmailValue())
	})

	t.Run("known e-mail without phone updates the contact", func(t *testing.T) {
		outcome, err := svc.HandleEvent(ctx, webhookEvent(service.HelpdeskEventContactUpdated, "Bia", "", "bia@example.com"))
		require.NoError(t, err)
		assert.Equal(t, service.WebhookSynced, outcome)

		contact, err := repository.NewContactRepository(db).GetByEmail(ctx, "bia@example.com")
		require.NoError(t, err)
		assert.Equal(t, "Bia", contact.Name)
	})

	assert.Equal(t, int64(1), testutil.CountRows(t, db, &domain.Contact{}))
}

type fakeLister struct {
	pages [][]helpdesk.Contact
	err   error
	calls int
}

func (f *fakeLister) ListContacts(_ context.Context, page int) ([]helpdesk.Contact, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if page > len(f.pages) {
		return nil, nil
	}
	return f.pages[page-1], nil
}

func TestImportService_ImportContacts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	existing := testutil.CreateTestContact(t, db, "Carlos", testutil.UniquePhone(), "")

	lister := &fakeLister{pages: [][]helpdesk.Contact{
		{
			{ID: 1, Name: "Daniela", PhoneNumber: testutil.UniquePhone(), Email: "dani@example.com"},
			{ID: 2, Name: "Sem telefone", Email: "semtel@example.com"},
			{ID: 3, Name: "Carlos Mendes", PhoneNumber: existing.PhoneValue()},
		},
		{
			{ID: 4, Name: "Eduardo", PhoneNumber: testutil.UniquePhone()},
		},
	}}
	svc := service.NewImportService(db, repository.NewContactRepository(db), service.NewContactResolver(true, zap.NewNop()), lister, 10, zap.NewNop())

	result, err := svc.ImportContacts(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 4, result.TotalScanned)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, "Importação concluída. 2 novos contatos.", result.Message)
	assert.Equal(t, 3, lister.calls)

	assert.Equal(t, int64(3), testutil.CountRows(t, db, &domain.Contact{}))
	var carlos domain.Contact
	require.NoError(t, db.First(&carlos, "id = ?", existing.ID).Error)
	assert.Equal(t, "Carlos Mendes", carlos.Name)

	// a second run finds nothing new
	lister.calls = 0
	result, err = svc.ImportContacts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Imported)
}

func TestImportService_PageLimitAndErrors(t *testing.T) {
	db := testutil.SetupTestDB(t)
	lister := &fakeLister{pages: [][]helpdesk.Contact{
		{{ID: 1, Name: "A", PhoneNumber: testutil.UniquePhone()}},
		{{ID: 2, Name: "B", PhoneNumber: testutil.UniquePhone()}},
	}}
	svc := service.NewImportService(db, repository.NewContactRepository(db), service.NewContactResolver(true, zap.NewNop()), lister, 1, zap.NewNop())

	result, err := svc.ImportContacts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 1, lister.calls)

	lister.err = errors.New("connection refused")
	_, err = svc.ImportContacts(context.Background())
	assert.Error(t, err)
}

type fakeIdentity struct {
	agent     *helpdesk.Agent
	signInErr error
	createErr error
}

func (f *fakeIdentity) SignIn(_ context.Context, email, _ string) (*helpdesk.Agent, error) {
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	agent := *f.agent
	agent.Email = email
	return &agent, nil
}

func (f *fakeIdentity) CreateAgent(_ context.Context, name, email, _ string) (*helpdesk.Agent, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &helpdesk.Agent{ID: 99, Name: name, Email: email}, nil
}

type fakeTokens struct{}

func (fakeTokens) Issue(user *domain.User) (string, time.Time, error) {
	return "token-" + user.ID.String(), time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), nil
}

func TestAuthService_Login(t *testing.T) {
	db := testutil.SetupTestDB(t)
	identity := &fakeIdentity{agent: &helpdesk.Agent{ID: 12, Name: "Renata", Role: "administrator"}}
	svc := service.NewAuthService(identity, repository.NewUserRepository(db), fakeTokens{}, cache.NewMemoryRevocationStore(), zap.NewNop())
	ctx := context.Background()

	resp, err := svc.Login(ctx, &domain.LoginRequest{Username: " Renata@Example.com ", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "token-"+resp.User.ID.String(), resp.Token)
	assert.Equal(t, "2030-01-01T00:00:00Z", resp.ExpiresAt)
	assert.Equal(t, "renata@example.com", resp.User.Email)
	assert.Equal(t, domain.UserRoleAdmin, resp.User.Role)

	identity.agent = &helpdesk.Agent{ID: 12, DisplayName: "Re", Role: "agent"}
	again, err := svc.Login(ctx, &domain.LoginRequest{Email: "renata@example.com", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, again.User.ID)
	assert.Equal(t, "Re", again.User.Name)
	// the role is set once, on first login
	assert.Equal(t, domain.UserRoleAdmin, again.User.Role)
	assert.Equal(t, int64(1), testutil.CountRows(t, db, &domain.User{}))

	identity.signInErr = helpdesk.ErrInvalidCredentials
	_, err = svc.Login(ctx, &domain.LoginRequest{Username: "renata@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, service.ErrUnauthorized)

	identity.signInErr = errors.New("timeout")
	_, err = svc.Login(ctx, &domain.LoginRequest{Username: "renata@example.com", Password: "secret"})
	assert.ErrorIs(t, err, service.ErrHelpdeskUnavailable)

	_, err = svc.Login(ctx, &domain.LoginRequest{Username: "", Password: "secret"})
	assert.ErrorIs(t, err, service.ErrUnauthorized)
}

func TestAuthService_Register(t *testing.T) {
	db := testutil.SetupTestDB(t)
	identity := &fakeIdentity{}
	svc := service.NewAuthService(identity, repository.NewUserRepository(db), fakeTokens{}, cache.NewMemoryRevocationStore(), zap.NewNop())
	ctx := context.Background()

	resp, err := svc.Register(ctx, &domain.RegisterRequest{Name: "Sergio", Email: "sergio@example.com", Password: "12345678"})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, domain.UserRoleBroker, resp.User.Role)

	identity.createErr = helpdesk.ErrUserExists
	resp, err = svc.Register(ctx, &domain.RegisterRequest{Name: "Sergio Dias", Email: "SERGIO@example.com", Password: "12345678"})
	require.NoError(t, err)
	assert.Equal(t, "Sergio Dias", resp.User.Name)
	assert.Equal(t, int64(1), testutil.CountRows(t, db, &domain.User{}))

	identity.createErr = errors.New("502 bad gateway")
	_, err = svc.Register(ctx, &domain.RegisterRequest{Name: "Tania", Email: "tania@example.com", Password: "12345678"})
	assert.ErrorIs(t, err, service.ErrHelpdeskUnavailable)
	assert.Equal(t, int64(1), testutil.CountRows(t, db, &domain.User{}))

	_, err = svc.Register(ctx, &domain.RegisterRequest{Name: "", Email: "x@example.com", Password: "12345678"})
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestAuthService_Logout(t *testing.T) {
	db := testutil.SetupTestDB(t)
	revoked := cache.NewMemoryRevocationStore()
	svc := service.NewAuthService(&fakeIdentity{}, repository.NewUserRepository(db), fakeTokens{}, revoked, zap.NewNop())
	ctx := context.Background()

	user := &auth.UserContext{UserID: uuid.New(), TokenID: "jti-1", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, svc.Logout(ctx, user))

	isRevoked, err := revoked.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, isRevoked)

	// API key callers carry no token
	require.NoError(t, svc.Logout(ctx, auth.SystemContext("api")))
}
