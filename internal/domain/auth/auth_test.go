package auth

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	secret := "test-secret"
	token, err := GenerateToken(secret, Claims{UserID: "u1", TenantID: "t1", RoleName: RoleHR}, time.Minute)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	claims, err := ParseToken(secret, token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != "u1" || claims.TenantID != "t1" || claims.RoleName != RoleHR {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, err := GenerateToken("secret-a", Claims{UserID: "u1"}, time.Minute)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if _, err := ParseToken("secret-b", token); err == nil {
		t.Fatal("expected parse error for wrong secret")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if err := CheckPassword(hash, "s3cret!"); err != nil {
		t.Fatalf("expected password to verify: %v", err)
	}
	if err := CheckPassword(hash, "wrong"); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestRolePermissions(t *testing.T) {
	if !HasPermission(RoleHR, PermDisputesResolve) {
		t.Fatal("HR should resolve disputes")
	}
	if HasPermission(RoleEmployee, PermDisputesResolve) {
		t.Fatal("employees must not resolve disputes")
	}
	if !HasPermission(RoleEmployee, PermDisputesWrite) {
		t.Fatal("employees should file disputes")
	}
	if HasPermission(RoleManager, PermCyclesManage) {
		t.Fatal("managers must not manage cycles")
	}
}
