package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// webAppDataKey is the domain-separation constant of the Telegram WebApp signature scheme.
const webAppDataKey = "WebAppData"

// Identity is the caller extracted from a verified session payload.
type Identity struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	PhotoURL     string `json:"photo_url"`
	LanguageCode string `json:"language_code"`

	AuthDate   time.Time `json:"-"`
	StartParam string    `json:"-"`
}

// Profile is the mutable, display-only part of an account.
type Profile struct {
	Username     string
	FirstName    string
	LastName     string
	PhotoURL     string
	LanguageCode string
}

func (i Identity) Profile() Profile {
	return Profile{
		Username:     i.Username,
		FirstName:    i.FirstName,
		LastName:     i.LastName,
		PhotoURL:     i.PhotoURL,
		LanguageCode: i.LanguageCode,
	}
}

// SessionAuthenticator verifies Telegram WebApp init data. It holds no
// mutable state and is safe for concurrent use.
type SessionAuthenticator struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

func NewSessionAuthenticator(botToken string, maxAge time.Duration) *SessionAuthenticator {
	mac := hmac.New(sha256.New, []byte(webAppDataKey))
	mac.Write([]byte(botToken))
	return &SessionAuthenticator{
		secret: mac.Sum(nil),
		maxAge: maxAge,
		now:    time.Now,
	}
}

// WithClock replaces the clock used for the issuance-age check.
func (a *SessionAuthenticator) WithClock(now func() time.Time) *SessionAuthenticator {
	a.now = now
	return a
}

// Verify checks the payload signature and age and returns the embedded user.
// Every signature or age failure wraps ErrUnauthenticated; a verified payload
// without a usable user object yields ErrInvalidIdentity.
func (a *SessionAuthenticator) Verify(payload string) (*Identity, error) {
	if strings.TrimSpace(payload) == "" {
		return nil, fmt.Errorf("%w: missing payload", ErrUnauthenticated)
	}
	values, err := url.ParseQuery(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed payload", ErrUnauthenticated)
	}

	supplied := values.Get("hash")
	if supplied == "" {
		return nil, fmt.Errorf("%w: missing signature", ErrUnauthenticated)
	}
	values.Del("hash")

	keys := make([]string, 0, len(values))
	for k, v := range values {
		if len(v) != 1 {
			return nil, fmt.Errorf("%w: repeated field %q", ErrUnauthenticated, k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+values.Get(k))
	}

	mac := hmac.New(sha256.New, a.secret)
	mac.Write([]byte(strings.Join(lines, "\n")))
	expected := mac.Sum(nil)

	got, err := hex.DecodeString(supplied)
	if err != nil || !hmac.Equal(expected, got) {
		return nil, fmt.Errorf("%w: signature mismatch", ErrUnauthenticated)
	}

	authUnix, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: missing auth_date", ErrUnauthenticated)
	}
	issued := time.Unix(authUnix, 0)
	if a.now().Sub(issued) > a.maxAge {
		return nil, fmt.Errorf("%w: payload expired", ErrUnauthenticated)
	}

	var id Identity
	if err := json.Unmarshal([]byte(values.Get("user")), &id); err != nil || id.ID <= 0 {
		return nil, ErrInvalidIdentity
	}
	id.AuthDate = issued.UTC()
	id.StartParam = values.Get("start_param")
	return &id, nil
}
