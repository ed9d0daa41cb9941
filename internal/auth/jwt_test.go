package auth

import "testing"

func TestGenerateAndValidate(t *testing.T) {
	token, err := GenerateJWT("user-1", "s3cret", 1)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := ValidateJWT(token, "s3cret")
	if err != nil {
		t.Fatalf("ValidateJWT: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Errorf("subject = %q", claims.Subject)
	}

	if _, err := ValidateJWT(token, "other"); err == nil {
		t.Error("token accepted with wrong secret")
	}
	expired, _ := GenerateJWT("user-1", "s3cret", -1)
	if _, err := ValidateJWT(expired, "s3cret"); err == nil {
		t.Error("expired token accepted")
	}
	if _, err := ValidateJWT("garbage", "s3cret"); err == nil {
		t.Error("garbage accepted")
	}
}
