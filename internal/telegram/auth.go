package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// WebAppUser is the identity embedded in a verified init data payload.
type WebAppUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

// InitData is the result of a successful verification.
type InitData struct {
	User       WebAppUser
	StartParam string
	AuthDate   time.Time
}

// VerifyInitData checks that initData was signed by Telegram for the given
// bot token and returns the embedded user identity. The secret key is
// HMAC-SHA256("WebAppData", botToken); the data-check string is every
// non-hash field sorted by key and joined with newlines. maxAge bounds the
// age of auth_date; 0 disables the freshness check.
//
// The check is pure: no identity is returned on any mismatch or parse
// failure, and nothing is mutated.
func VerifyInitData(initData, botToken string, maxAge time.Duration) (*InitData, bool) {
	initData = strings.TrimSpace(initData)
	if initData == "" || botToken == "" {
		return nil, false
	}

	vals, err := url.ParseQuery(initData)
	if err != nil {
		return nil, false
	}

	providedHex := vals.Get("hash")
	if providedHex == "" {
		return nil, false
	}
	vals.Del("hash")

	keys := make([]string, 0, len(vals))
	for k := range vals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+vals.Get(k))
	}
	dataCheck := strings.Join(parts, "\n")

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(dataCheck))

	provided, err := hex.DecodeString(providedHex)
	if err != nil {
		return nil, false
	}
	if !hmac.Equal(mac.Sum(nil), provided) {
		return nil, false
	}

	authUnix, err := strconv.ParseInt(vals.Get("auth_date"), 10, 64)
	if err != nil {
		return nil, false
	}
	authDate := time.Unix(authUnix, 0)
	if maxAge > 0 {
		now := time.Now()
		// allow small clock skew, reject anything older than maxAge
		if now.Sub(authDate) > maxAge || authDate.Sub(now) > 5*time.Minute {
			return nil, false
		}
	}

	var user WebAppUser
	if err := json.Unmarshal([]byte(vals.Get("user")), &user); err != nil {
		return nil, false
	}
	if user.ID == 0 {
		return nil, false
	}

	return &InitData{
		User:       user,
		StartParam: vals.Get("start_param"),
		AuthDate:   authDate,
	}, true
}
