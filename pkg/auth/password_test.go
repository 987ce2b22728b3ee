package auth

import (
	"testing"
)

func TestHashAndComparePassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("HashPassword() = %v, want nil", err)
	}

	if err := ComparePassword(hash, "correct horse battery"); err != nil {
		t.Errorf("ComparePassword() with matching password = %v, want nil", err)
	}

	if err := ComparePassword(hash, "wrong password"); err == nil {
		t.Error("ComparePassword() with wrong password should fail")
	}
}

func TestHashPassword_Empty(t *testing.T) {
	if _, err := HashPassword(""); err == nil {
		t.Error("HashPassword(\"\") should fail")
	}
}

func TestValidatePassword(t *testing.T) {
	policy := PasswordPolicy{MinLength: 8}

	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"meets minimum", "12345678", false},
		{"below minimum", "1234567", true},
		{"long password ok", "a-perfectly-reasonable-passphrase", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password, policy)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePassword(%q) error = %v, wantErr %v", tt.password, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePassword_ZeroPolicyFallsBack(t *testing.T) {
	// Policy with no minimum set uses the documented default of 6.
	if err := ValidatePassword("abcde", PasswordPolicy{}); err == nil {
		t.Error("5-char password should fail default policy")
	}
	if err := ValidatePassword("abcdef", PasswordPolicy{}); err != nil {
		t.Errorf("6-char password should pass default policy, got %v", err)
	}
}
