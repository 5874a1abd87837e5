// Package auth implements Telegram mini-app login and JWT sessions.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidInitData is returned when mini-app launch data fails
// verification.
var ErrInvalidInitData = errors.New("invalid init data")

// TelegramUser is the user object of mini-app launch data.
type TelegramUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	PhotoURL  string `json:"photo_url"`
}

// InitData is the parsed launch data the client sends on login.
type InitData struct {
	User     TelegramUser `json:"user"`
	AuthDate int64        `json:"auth_date,omitempty"`
}

// VerifyInitData checks the hash of raw mini-app launch data against the
// bot token and returns the parsed data. maxAge <= 0 disables the
// auth_date freshness check.
func VerifyInitData(raw, botToken string, maxAge time.Duration, now time.Time) (*InitData, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInitData, err)
	}
	hash := values.Get("hash")
	if hash == "" {
		return nil, fmt.Errorf("%w: missing hash", ErrInvalidInitData)
	}

	if !hmac.Equal([]byte(hash), []byte(signInitData(values, botToken))) {
		return nil, fmt.Errorf("%w: hash mismatch", ErrInvalidInitData)
	}

	var data InitData
	if s := values.Get("auth_date"); s != "" {
		data.AuthDate, err = strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad auth_date", ErrInvalidInitData)
		}
	}
	if maxAge > 0 && now.Sub(time.Unix(data.AuthDate, 0)) > maxAge {
		return nil, fmt.Errorf("%w: expired", ErrInvalidInitData)
	}
	if err := json.Unmarshal([]byte(values.Get("user")), &data.User); err != nil {
		return nil, fmt.Errorf("%w: bad user: %v", ErrInvalidInitData, err)
	}
	return &data, nil
}

// signInitData computes the hex HMAC of the data-check string: every
// field except hash, sorted, as key=value joined by newlines.
func signInitData(values url.Values, botToken string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k != "hash" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+values.Get(k))
	}

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(pairs, "\n")))
	return hex.EncodeToString(mac.Sum(nil))
}
