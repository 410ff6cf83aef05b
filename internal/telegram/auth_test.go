package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"
)

// signInitData builds a valid init data string the way Telegram does.
func signInitData(t *testing.T, botToken string, fields map[string]string) string {
	t.Helper()

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+fields[k])
	}

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(parts, "\n")))

	vals := url.Values{}
	for k, v := range fields {
		vals.Set(k, v)
	}
	vals.Set("hash", hex.EncodeToString(mac.Sum(nil)))
	return vals.Encode()
}

func TestVerifyInitData_Valid(t *testing.T) {
	token := "12345:test-token"
	initData := signInitData(t, token, map[string]string{
		"auth_date":   strconv.FormatInt(time.Now().Unix(), 10),
		"user":        `{"id":777,"username":"frosty","first_name":"Frosty"}`,
		"start_param": "42",
	})

	data, ok := VerifyInitData(initData, token, time.Hour)
	if !ok {
		t.Fatal("expected valid init data")
	}
	if data.User.ID != 777 {
		t.Errorf("user id = %d, want 777", data.User.ID)
	}
	if data.User.Username != "frosty" {
		t.Errorf("username = %q, want frosty", data.User.Username)
	}
	if data.StartParam != "42" {
		t.Errorf("start_param = %q, want 42", data.StartParam)
	}
}

func TestVerifyInitData_Tampered(t *testing.T) {
	token := "12345:test-token"
	initData := signInitData(t, token, map[string]string{
		"auth_date": strconv.FormatInt(time.Now().Unix(), 10),
		"user":      `{"id":777,"username":"frosty","first_name":"Frosty"}`,
	})

	if _, ok := VerifyInitData(initData+"&x=1", token, time.Hour); ok {
		t.Fatal("expected tampered init data to be rejected")
	}
}

func TestVerifyInitData_WrongToken(t *testing.T) {
	initData := signInitData(t, "12345:test-token", map[string]string{
		"auth_date": strconv.FormatInt(time.Now().Unix(), 10),
		"user":      `{"id":777,"first_name":"Frosty"}`,
	})

	if _, ok := VerifyInitData(initData, "99999:other-token", time.Hour); ok {
		t.Fatal("expected init data signed with another token to be rejected")
	}
}

func TestVerifyInitData_MissingHash(t *testing.T) {
	if _, ok := VerifyInitData("user=%7B%22id%22%3A1%7D&auth_date=1", "t", 0); ok {
		t.Fatal("expected init data without hash to be rejected")
	}
}

func TestVerifyInitData_MalformedUserJSON(t *testing.T) {
	token := "12345:test-token"
	initData := signInitData(t, token, map[string]string{
		"auth_date": strconv.FormatInt(time.Now().Unix(), 10),
		"user":      `{"id":`,
	})

	if _, ok := VerifyInitData(initData, token, time.Hour); ok {
		t.Fatal("expected malformed user json to be rejected, not crash")
	}
}

func TestVerifyInitData_Stale(t *testing.T) {
	token := "12345:test-token"
	initData := signInitData(t, token, map[string]string{
		"auth_date": strconv.FormatInt(time.Now().Add(-2*time.Hour).Unix(), 10),
		"user":      `{"id":777,"first_name":"Frosty"}`,
	})

	if _, ok := VerifyInitData(initData, token, time.Hour); ok {
		t.Fatal("expected stale init data to be rejected")
	}

	// with the freshness check disabled the same payload verifies
	if _, ok := VerifyInitData(initData, token, 0); !ok {
		t.Fatal("expected stale init data to verify with maxAge=0")
	}
}
