package services

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthenticator() *SessionAuthenticator {
	return NewSessionAuthenticator(testBotToken, 24*time.Hour).WithClock(func() time.Time { return testEpoch })
}

func TestVerifyValidPayload(t *testing.T) {
	fields := userFields(42, testEpoch.Add(-time.Hour))
	fields["start_param"] = "ref_ABCD1234"

	id, err := newTestAuthenticator().Verify(signPayload(testBotToken, fields))
	require.NoError(t, err)
	assert.Equal(t, int64(42), id.ID)
	assert.Equal(t, "mona", id.Username)
	assert.Equal(t, "Mona", id.FirstName)
	assert.Equal(t, "ar", id.LanguageCode)
	assert.Equal(t, "https://t.me/i/userpic/320/mona.jpg", id.PhotoURL)
	assert.Equal(t, "ref_ABCD1234", id.StartParam)
	assert.True(t, testEpoch.Add(-time.Hour).Equal(id.AuthDate))
}

func TestVerifyRejects(t *testing.T) {
	valid := signPayload(testBotToken, userFields(42, testEpoch.Add(-time.Minute)))

	tampered, err := url.ParseQuery(valid)
	require.NoError(t, err)
	tampered.Set("user", `{"id":43,"first_name":"Eve"}`)

	noHash, err := url.ParseQuery(valid)
	require.NoError(t, err)
	noHash.Del("hash")

	badHex, err := url.ParseQuery(valid)
	require.NoError(t, err)
	badHex.Set("hash", "zz-not-hex")

	repeated, err := url.ParseQuery(valid)
	require.NoError(t, err)
	repeated.Add("query_id", "second")

	cases := map[string]string{
		"empty":        "",
		"wrong secret": signPayload("other:token", userFields(42, testEpoch)),
		"tampered":     tampered.Encode(),
		"missing hash": noHash.Encode(),
		"malformed":    "%zz",
		"bad hex":      badHex.Encode(),
		"repeated":     repeated.Encode(),
		"expired":      signPayload(testBotToken, userFields(42, testEpoch.Add(-25*time.Hour))),
		"no auth_date": signPayload(testBotToken, map[string]string{"user": `{"id":42}`}),
	}
	a := newTestAuthenticator()
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			id, err := a.Verify(payload)
			assert.Nil(t, id)
			assert.True(t, errors.Is(err, ErrUnauthenticated), "got %v", err)
			assert.Equal(t, KindAuthentication, KindOf(err))
		})
	}
}

func TestVerifyMissingUserIsNotAuthFailure(t *testing.T) {
	payload := signPayload(testBotToken, map[string]string{
		"auth_date":    "1773489600",
		"query_id":     "x",
	})
	a := NewSessionAuthenticator(testBotToken, 24*time.Hour).WithClock(func() time.Time { return time.Unix(1773489600, 0) })

	_, err := a.Verify(payload)
	assert.ErrorIs(t, err, ErrInvalidIdentity)
	assert.NotErrorIs(t, err, ErrUnauthenticated)
}
