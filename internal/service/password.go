package service

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

const legacyPBKDF2Prefix = "$pbkdf2-sha256$"

// HashPassword returns a bcrypt hash of plain.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword checks plain against a stored hash. Hashes written by the previous Python
// deployment ($pbkdf2-sha256$rounds$salt$checksum) are still accepted; legacy reports that the
// caller should rehash.
func VerifyPassword(stored, plain string) (ok bool, legacy bool) {
	if strings.HasPrefix(stored, legacyPBKDF2Prefix) {
		return verifyPBKDF2(stored, plain), true
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(plain)) == nil, false
}

func verifyPBKDF2(stored, plain string) bool {
	parts := strings.Split(strings.TrimPrefix(stored, legacyPBKDF2Prefix), "$")
	if len(parts) != 3 {
		return false
	}
	rounds, err := strconv.Atoi(parts[0])
	if err != nil || rounds <= 0 {
		return false
	}
	salt, err := decodeAB64(parts[1])
	if err != nil {
		return false
	}
	want, err := decodeAB64(parts[2])
	if err != nil || len(want) == 0 {
		return false
	}
	got := pbkdf2.Key([]byte(plain), salt, rounds, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}

// decodeAB64 decodes passlib's "adapted base64": standard alphabet with '.' for '+', unpadded.
func decodeAB64(s string) ([]byte, error) {
	s = strings.TrimRight(strings.ReplaceAll(s, ".", "+"), "=")
	return base64.RawStdEncoding.DecodeString(s)
}
