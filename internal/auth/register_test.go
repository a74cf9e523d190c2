package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/okabe-lab/assetdesk-backend/internal/users"
	"github.com/okabe-lab/assetdesk-backend/pkg/config"
	pkgmodels "github.com/okabe-lab/assetdesk-backend/pkg/db/models"
	pkgerrors "github.com/okabe-lab/assetdesk-backend/pkg/errors"
	"github.com/okabe-lab/assetdesk-backend/pkg/security"
)

type stubTxRunner struct{}

func (s stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubUserRepository struct {
	data      map[string]*pkgmodels.User
	created   *pkgmodels.User
	createErr error
}

func newStubUserRepository() *stubUserRepository {
	return &stubUserRepository{data: map[string]*pkgmodels.User{}}
}

func (s *stubUserRepository) FindByEmail(ctx context.Context, email string) (*pkgmodels.User, error) {
	if user, ok := s.data[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepository) Create(ctx context.Context, dto users.CreateUserDTO) (*pkgmodels.User, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	user := &pkgmodels.User{
		ID:           uuid.New(),
		Name:         dto.Name,
		Email:        dto.Email,
		PasswordHash: dto.PasswordHash,
	}
	s.data[dto.Email] = user
	s.created = user
	return user, nil
}

func newRegisterTestSetup(t *testing.T) (RegisterService, *stubUserRepository) {
	t.Helper()
	userRepo := newStubUserRepository()
	svc, err := NewRegisterService(RegisterServiceParams{
		TxRunner: stubTxRunner{},
		UserRepoFactory: func(tx *gorm.DB) registerUserRepository {
			return userRepo
		},
		PasswordConfig: config.PasswordConfig{},
	})
	if err != nil {
		t.Fatalf("new register service: %v", err)
	}
	return svc, userRepo
}

func TestRegisterCreatesUser(t *testing.T) {
	svc, userRepo := newRegisterTestSetup(t)

	dto, err := svc.Register(context.Background(), RegisterRequest{
		Name:     "Jamie Rivera",
		Email:    "New@Example.com",
		Password: "Secret123!",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if userRepo.created == nil {
		t.Fatalf("expected user to be created")
	}
	if userRepo.created.Email != "new@example.com" {
		t.Fatalf("expected lowercased email, got %s", userRepo.created.Email)
	}
	if dto.ID != userRepo.created.ID {
		t.Fatalf("returned user does not match persisted record")
	}

	valid, err := security.VerifyPassword("Secret123!", userRepo.created.PasswordHash)
	if err != nil || !valid {
		t.Fatalf("stored hash does not verify: valid=%v err=%v", valid, err)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, userRepo := newRegisterTestSetup(t)
	userRepo.data["taken@example.com"] = &pkgmodels.User{
		ID:    uuid.New(),
		Email: "taken@example.com",
	}

	_, err := svc.Register(context.Background(), RegisterRequest{
		Name:     "Jamie Rivera",
		Email:    "taken@example.com",
		Password: "Secret123!",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if userRepo.created != nil {
		t.Fatalf("expected no user creation on duplicate email")
	}
}

func TestRegisterRequiresName(t *testing.T) {
	svc, _ := newRegisterTestSetup(t)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Name:     "   ",
		Email:    "someone@example.com",
		Password: "Secret123!",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
