package service

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

const djangoPBKDF2Prefix = "pbkdf2_sha256$"

var errUnsupportedHash = errors.New("unsupported password hash")

// CheckPassword compares plain against a bcrypt hash or a Django
// "pbkdf2_sha256$<iter>$<salt>$<b64>" hash carried over from the legacy users table.
func CheckPassword(hash, plain string) (bool, error) {
	if strings.HasPrefix(hash, djangoPBKDF2Prefix) {
		return checkDjangoPBKDF2(hash, plain)
	}
	if hash == "" {
		return false, nil
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %w", errUnsupportedHash, err)
	}
	return true, nil
}

func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func checkDjangoPBKDF2(encoded, plain string) (bool, error) {
	parts := strings.SplitN(encoded, "$", 4)
	if len(parts) != 4 {
		return false, errUnsupportedHash
	}
	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations <= 0 {
		return false, errUnsupportedHash
	}
	want, err := base64.StdEncoding.DecodeString(parts[3])
	if err != nil {
		return false, errUnsupportedHash
	}

	got := pbkdf2.Key([]byte(plain), []byte(parts[2]), iterations, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
