package account

import (
	"context"
	"errors"
	"testing"

	"github.com/rosterhq/rosterd/internal/apperr"
	"github.com/rosterhq/rosterd/internal/credential"
	"github.com/rosterhq/rosterd/internal/logging"
)

func testHasher(t *testing.T) *credential.Hasher {
	t.Helper()
	h, err := credential.NewHasher(credential.Params{
		Memory: 1024, Time: 1, Threads: 1, SaltLength: 8, KeyLength: 16,
	})
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}
	return h
}

func newTestService(t *testing.T) (*Service, Repository) {
	t.Helper()
	repo := NewMemoryRepository()
	return NewService(repo, testHasher(t), logging.Discard()), repo
}

func validRegistration() RegisterInput {
	return RegisterInput{
		Username:        "alice",
		Email:           "alice@example.com",
		Password:        "Abc123",
		ConfirmPassword: "Abc123",
	}
}

func kindOf(t *testing.T, err error) apperr.Kind {
	t.Helper()
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperr.Error, got %T: %v", err, err)
	}
	return appErr.Kind()
}

func TestRegisterStoresHashedCredential(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, validRegistration())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.ID == "" {
		t.Fatal("expected a generated user id")
	}

	stored, err := repo.FindByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !credential.IsHashed(stored.Password) {
		t.Fatalf("stored credential is not in hashed state: %q", stored.Password)
	}
	if stored.Password == "Abc123" {
		t.Fatal("plaintext must never be persisted by the registration path")
	}
}

func TestRegisterDuplicateUsernameIsConflict(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, validRegistration()); err != nil {
		t.Fatalf("first register: %v", err)
	}

	in := validRegistration()
	in.Email = "other@example.com"
	_, err := svc.Register(ctx, in)
	if kindOf(t, err) != apperr.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRegisterDuplicateEmailIsConflict(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, validRegistration()); err != nil {
		t.Fatalf("first register: %v", err)
	}

	in := validRegistration()
	in.Username = "bob"
	_, err := svc.Register(ctx, in)
	if kindOf(t, err) != apperr.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRegisterAggregatesPasswordViolations(t *testing.T) {
	svc, repo := newTestService(t)

	in := validRegistration()
	in.Password = "abcdef" // no uppercase, no digit
	in.ConfirmPassword = "abcdef"

	_, err := svc.Register(context.Background(), in)
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind() != apperr.KindValidation {
		t.Fatalf("expected validation failure, got %v", err)
	}
	if len(appErr.Violations()) != 2 {
		t.Fatalf("expected 2 violations, got %v", appErr.Violations())
	}

	// Validation runs before any storage access.
	users, listErr := repo.List(context.Background())
	if listErr != nil {
		t.Fatalf("list: %v", listErr)
	}
	if len(users) != 0 {
		t.Fatal("invalid registration must not reach storage")
	}
}

func TestRegisterPasswordMismatch(t *testing.T) {
	svc, _ := newTestService(t)

	in := validRegistration()
	in.ConfirmPassword = "Abc124"

	_, err := svc.Register(context.Background(), in)
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind() != apperr.KindValidation {
		t.Fatalf("expected validation failure, got %v", err)
	}
	found := false
	for _, v := range appErr.Violations() {
		if v.Rule == "must_match" && v.Field == "confirm_password" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a must_match violation, got %v", appErr.Violations())
	}
}

func TestLoginHappyPath(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, validRegistration()); err != nil {
		t.Fatalf("register: %v", err)
	}

	user, err := svc.Login(ctx, LoginInput{Username: "alice", Password: "Abc123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.Username != "alice" || user.Email != "alice@example.com" {
		t.Fatalf("unexpected identity: %+v", user)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, validRegistration()); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := svc.Login(ctx, LoginInput{Username: "alice", Password: "wrong"})
	if kindOf(t, err) != apperr.KindInvalidCredential {
		t.Fatalf("expected invalid credential, got %v", err)
	}
}

func TestLoginUnknownUsernameFoldsOutward(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, validRegistration()); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, ghostErr := svc.Login(ctx, LoginInput{Username: "ghost", Password: "x"})
	_, wrongErr := svc.Login(ctx, LoginInput{Username: "alice", Password: "wrong"})

	var ghost, wrong *apperr.Error
	if !errors.As(ghostErr, &ghost) || !errors.As(wrongErr, &wrong) {
		t.Fatalf("expected classified errors, got %v / %v", ghostErr, wrongErr)
	}
	if ghost.Status() != wrong.Status() || ghost.Message() != wrong.Message() {
		t.Fatal("unknown username must be indistinguishable from wrong password")
	}
}

func TestLoginMissingFieldsFailValidation(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Login(context.Background(), LoginInput{})
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind() != apperr.KindValidation {
		t.Fatalf("expected validation failure, got %v", err)
	}
	if len(appErr.Violations()) != 2 {
		t.Fatalf("expected 2 violations, got %v", appErr.Violations())
	}
}

func TestLoginUpgradesLegacyCredential(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, testHasher(t), logging.Discard())
	ctx := context.Background()

	// A pre-migration row still holding the raw password.
	legacy := User{ID: "legacy-1", Username: "carol", Email: "carol@example.com", Password: "Sw0rdfish"}
	if err := repo.Create(ctx, legacy); err != nil {
		t.Fatalf("seed: %v", err)
	}

	user, err := svc.Login(ctx, LoginInput{Username: "carol", Password: "Sw0rdfish"})
	if err != nil {
		t.Fatalf("legacy login: %v", err)
	}
	if !credential.IsHashed(user.Password) {
		t.Fatal("login must report the upgraded credential")
	}

	stored, err := repo.FindByUsername(ctx, "carol")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !credential.IsHashed(stored.Password) {
		t.Fatal("legacy credential must be upgraded in place after login")
	}

	// And the upgraded credential still works.
	if _, err := svc.Login(ctx, LoginInput{Username: "carol", Password: "Sw0rdfish"}); err != nil {
		t.Fatalf("login after upgrade: %v", err)
	}
}

func TestLoginLegacyWrongPassword(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, testHasher(t), logging.Discard())
	ctx := context.Background()

	legacy := User{ID: "legacy-2", Username: "dave", Email: "dave@example.com", Password: "Sw0rdfish"}
	if err := repo.Create(ctx, legacy); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := svc.Login(ctx, LoginInput{Username: "dave", Password: "wrong"})
	if kindOf(t, err) != apperr.KindInvalidCredential {
		t.Fatalf("expected invalid credential, got %v", err)
	}

	stored, _ := repo.FindByUsername(ctx, "dave")
	if stored.Password != "Sw0rdfish" {
		t.Fatal("failed legacy login must not rewrite the credential")
	}
}

func TestMigratorRunsOverRepository(t *testing.T) {
	repo := NewMemoryRepository()
	h := testHasher(t)
	svc := NewService(repo, h, logging.Discard())
	ctx := context.Background()

	if err := repo.Create(ctx, User{ID: "u1", Username: "erin", Email: "erin@example.com", Password: "hunter2"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := svc.Register(ctx, validRegistration()); err != nil {
		t.Fatalf("register: %v", err)
	}

	m := credential.NewMigrator(h, repo, logging.Discard())
	migrated, err := m.Run(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if migrated != 1 {
		t.Fatalf("expected 1 migrated row, got %d", migrated)
	}

	// The migrated user can now log in against the hashed credential.
	if _, err := svc.Login(ctx, LoginInput{Username: "erin", Password: "hunter2"}); err != nil {
		t.Fatalf("login after sweep: %v", err)
	}
}
