package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"authhub/api/internal/models"
)

const activationKeySalt = "authhub.activation"

// ActivationTokens produces tokens bound to an account's id, email and password hash.
// A password or email change invalidates every outstanding token.
type ActivationTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewActivationTokens(secret string, ttl time.Duration) *ActivationTokens {
	return &ActivationTokens{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (g *ActivationTokens) Make(account models.Account) string {
	return g.makeAt(account, g.now().Unix())
}

func (g *ActivationTokens) Check(account models.Account, token string) bool {
	tsPart, _, ok := strings.Cut(token, "-")
	if !ok {
		return false
	}
	ts, err := strconv.ParseInt(tsPart, 36, 64)
	if err != nil || ts <= 0 {
		return false
	}

	expected := g.makeAt(account, ts)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(token)) != 1 {
		return false
	}

	age := g.now().Sub(time.Unix(ts, 0))
	return g.ttl <= 0 || age <= g.ttl
}

func (g *ActivationTokens) makeAt(account models.Account, ts int64) string {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(activationKeySalt))
	mac.Write([]byte(account.ID))
	mac.Write(account.PasswordHash)
	mac.Write([]byte(account.Email))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))

	digest := hex.EncodeToString(mac.Sum(nil))[:32]
	return strconv.FormatInt(ts, 36) + "-" + digest
}
