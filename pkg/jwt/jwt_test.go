package jwt

import (
	"testing"
	"time"
)

func TestNewManagerDefaultExpiry(t *testing.T) {
	mgr := NewManager(&Config{
		Secret: "test-secret-key-at-least-32-bytes-long-for-security",
		Issuer: "test-issuer",
	})
	if mgr == nil {
		t.Fatal("NewManager() returned nil")
	}
	if mgr.tokenExpiry != time.Hour {
		t.Errorf("tokenExpiry = %v, want 1h", mgr.tokenExpiry)
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	mgr := NewManager(&Config{
		Secret: "test-secret-key-at-least-32-bytes-long-for-security",
		Issuer: "test-issuer",
	})

	token, err := mgr.GenerateToken("user123", "Ada", "catalog-token-abc")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if token == "" {
		t.Fatal("GenerateToken() returned empty token")
	}

	claims, err := mgr.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.UserID != "user123" {
		t.Errorf("UserID = %v, want user123", claims.UserID)
	}
	if claims.DisplayName != "Ada" {
		t.Errorf("DisplayName = %v, want Ada", claims.DisplayName)
	}
	if claims.CatalogToken != "catalog-token-abc" {
		t.Errorf("CatalogToken = %v, want catalog-token-abc", claims.CatalogToken)
	}
	if claims.Issuer != "test-issuer" {
		t.Errorf("Issuer = %v, want test-issuer", claims.Issuer)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	mgr := NewManager(&Config{Secret: "secret-one", Issuer: "test"})
	other := NewManager(&Config{Secret: "secret-two", Issuer: "test"})

	token, err := mgr.GenerateToken("user123", "", "")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	if _, err := other.ValidateToken(token); err == nil {
		t.Error("ValidateToken() should reject a token signed with a different secret")
	}
}

func TestValidateTokenExpired(t *testing.T) {
	mgr := NewManager(&Config{
		Secret:      "test-secret",
		Issuer:      "test",
		TokenExpiry: -time.Minute,
	})

	token, err := mgr.GenerateToken("user123", "", "")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	if _, err := mgr.ValidateToken(token); err == nil {
		t.Error("ValidateToken() should reject an expired token")
	}
}

func TestValidateTokenGarbage(t *testing.T) {
	mgr := NewManager(&Config{Secret: "test-secret", Issuer: "test"})
	if _, err := mgr.ValidateToken("not-a-token"); err == nil {
		t.Error("ValidateToken() should reject malformed input")
	}
}
