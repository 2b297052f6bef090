package usecase

import (
	"testing"

	"mess-backend/internal/domain"
	"mess-backend/internal/infrastructure/repo"
)

func newAuthService() *AuthService {
	return &AuthService{Repo: repo.NewMemoryUserRepo(), JWTSecret: "test-secret"}
}

func TestSignupLoginVerify(t *testing.T) {
	svc := newAuthService()
	token, u, err := svc.Signup("Ravi", "Ravi@Example.com", "hunter2", domain.UserStudent)
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if u.Email != "ravi@example.com" {
		t.Fatalf("email not normalised: %s", u.Email)
	}
	uid, ut, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if uid != u.UserID || ut != domain.UserStudent {
		t.Fatalf("claims wrong: %s %s", uid, ut)
	}

	token2, _, err := svc.Login("ravi@example.com", "hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if uid2, _, err := svc.Verify(token2); err != nil || uid2 != u.UserID {
		t.Fatalf("login token invalid: %v", err)
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	svc := newAuthService()
	if _, _, err := svc.Signup("A", "a@b.c", "pw", domain.UserOwner); err != nil {
		t.Fatalf("signup: %v", err)
	}
	if _, _, err := svc.Signup("B", "a@b.c", "pw", domain.UserOwner); err == nil {
		t.Fatalf("duplicate email should conflict")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newAuthService()
	if _, _, err := svc.Signup("A", "a@b.c", "right", domain.UserStudent); err != nil {
		t.Fatalf("signup: %v", err)
	}
	if _, _, err := svc.Login("a@b.c", "wrong"); err == nil {
		t.Fatalf("wrong password should fail")
	}
}

func TestVerifyGarbageToken(t *testing.T) {
	svc := newAuthService()
	if _, _, err := svc.Verify("not-a-token"); err == nil {
		t.Fatalf("garbage token should fail")
	}
}

func TestUpdateAddress(t *testing.T) {
	svc := newAuthService()
	_, u, err := svc.Signup("A", "a@b.c", "pw", domain.UserStudent)
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	updated, err := svc.UpdateAddress(u.UserID, &domain.Address{Street: "Hostel 5", City: "Pune"})
	if err != nil {
		t.Fatalf("update address: %v", err)
	}
	if updated.Address == nil || updated.Address.City != "Pune" {
		t.Fatalf("address not stored: %+v", updated.Address)
	}
}
