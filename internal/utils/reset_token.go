package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

const resetKeySalt = "harmonix.accounts.PasswordResetTokenGenerator"

// tokens count seconds from this instant
var resetEpoch = time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)

var ErrInvalidUID = errors.New("invalid uid")

// ResetTokenGenerator issues stateless password reset tokens of the form
// "<timestamp base36>-<hmac>". A token stops validating once the password
// hash changes or after Timeout. Signing in does not affect it.
type ResetTokenGenerator struct {
	secret  []byte
	Timeout time.Duration
	Now     func() time.Time
}

func NewResetTokenGenerator(secret string, timeout time.Duration) *ResetTokenGenerator {
	return &ResetTokenGenerator{secret: []byte(secret), Timeout: timeout, Now: time.Now}
}

// ResetSubject is the user state a token is bound to.
type ResetSubject struct {
	UserID       uint
	PasswordHash string
}

func (g *ResetTokenGenerator) MakeToken(s ResetSubject) string {
	return g.makeWithTimestamp(s, g.secondsSinceEpoch(g.Now()))
}

func (g *ResetTokenGenerator) CheckToken(s ResetSubject, token string) bool {
	if token == "" {
		return false
	}
	tsPart, _, ok := strings.Cut(token, "-")
	if !ok {
		return false
	}
	ts, err := strconv.ParseInt(tsPart, 36, 64)
	if err != nil || ts < 0 {
		return false
	}
	expected := g.makeWithTimestamp(s, ts)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(token)) != 1 {
		return false
	}
	age := g.secondsSinceEpoch(g.Now()) - ts
	return age <= int64(g.Timeout/time.Second)
}

func (g *ResetTokenGenerator) makeWithTimestamp(s ResetSubject, ts int64) string {
	tsB36 := strconv.FormatInt(ts, 36)

	key := sha256.Sum256(append([]byte(resetKeySalt), g.secret...))
	mac := hmac.New(sha256.New, key[:])
	mac.Write([]byte(strconv.FormatUint(uint64(s.UserID), 10)))
	mac.Write([]byte(s.PasswordHash))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	full := hex.EncodeToString(mac.Sum(nil))

	// keep every other character to shorten the URL
	var b strings.Builder
	for i := 0; i < len(full); i += 2 {
		b.WriteByte(full[i])
	}
	return tsB36 + "-" + b.String()
}

func (g *ResetTokenGenerator) secondsSinceEpoch(t time.Time) int64 {
	return int64(t.Sub(resetEpoch) / time.Second)
}

// EncodeUID renders a user id as unpadded URL-safe base64 of its decimal form.
func EncodeUID(id uint) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatUint(uint64(id), 10)))
}

func DecodeUID(s string) (uint, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return 0, ErrInvalidUID
	}
	id, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidUID
	}
	return uint(id), nil
}
