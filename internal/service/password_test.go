package service

import "testing"

func TestCheckPassword_Bcrypt(t *testing.T) {
	hash := mustHash(t, "secret")

	if ok, err := CheckPassword(hash, "secret"); err != nil || !ok {
		t.Fatalf("expected match, got ok=%v err=%v", ok, err)
	}
	if ok, err := CheckPassword(hash, "Secret"); err != nil || ok {
		t.Fatalf("expected mismatch, got ok=%v err=%v", ok, err)
	}
}

func TestCheckPassword_DjangoPBKDF2(t *testing.T) {
	const hash = "pbkdf2_sha256$1000$seasalt$agnsyURT1QS2/iucZBBCYTG6W+CJx9pc/WBA/eEnbCw="

	if ok, err := CheckPassword(hash, "Dinah"); err != nil || !ok {
		t.Fatalf("expected legacy hash to match, got ok=%v err=%v", ok, err)
	}
	if ok, _ := CheckPassword(hash, "dinah"); ok {
		t.Fatal("legacy hash must be case sensitive")
	}
	if _, err := CheckPassword("pbkdf2_sha256$x$salt$abc", "Dinah"); err == nil {
		t.Fatal("expected an error for a broken legacy hash")
	}
}

func TestCheckPassword_EmptyOrUnknownHash(t *testing.T) {
	if ok, err := CheckPassword("", "anything"); ok || err != nil {
		t.Fatalf("empty hash: got ok=%v err=%v", ok, err)
	}
	if ok, err := CheckPassword("md5$abc", "anything"); ok || err == nil {
		t.Fatalf("unknown hash: got ok=%v err=%v", ok, err)
	}
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("new-password")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if ok, _ := CheckPassword(hash, "new-password"); !ok {
		t.Fatal("fresh hash must verify")
	}
}
