package model

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEventTypeAccepts(t *testing.T) {
	for _, s := range []string{"ui.click", "gameplay.start", "A.b", "Net.Disconnect"} {
		assert.NoError(t, ValidateEventType(s), s)
	}
}

func TestValidateEventTypeRejects(t *testing.T) {
	for _, s := range []string{
		"", "ui", "ui.", ".click", "ui.click.left", "ui..click",
		"ui.cl1ck", "ui_x.click", "ui .click", "ü.click", "ui.click\n",
	} {
		err := ValidateEventType(s)
		require.Error(t, err, s)
		var ve *ValidationError
		assert.True(t, errors.As(err, &ve), s)
	}
}

// 문자 집합 전체를 돌면서 accept ⇔ ^[A-Za-z]+\.[A-Za-z]+$ 인지 확인한다.
func TestValidateEventTypeMatchesShape(t *testing.T) {
	isLetter := func(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
	for c := 0; c < 128; c++ {
		s := "ui.cl" + string(rune(c)) + "ck"
		want := isLetter(byte(c))
		assert.Equal(t, want, ValidateEventType(s) == nil, "%q", s)
	}
}

func TestMustEventTypePanicsOnInvalid(t *testing.T) {
	assert.Equal(t, "ui.click", MustEventType("ui.click"))
	assert.Panics(t, func() { MustEventType("click") })
}

func TestDecodeStartSession(t *testing.T) {
	res, err := DecodeStartSession(200, []byte(`{"sessionToken":"tok"}`))
	require.NoError(t, err)
	require.NotNil(t, res.OK)
	assert.Equal(t, "tok", res.OK.SessionToken)
	assert.Nil(t, res.Err)

	res, err = DecodeStartSession(401, []byte(`{"code":"bad_key","message":"unknown key"}`))
	require.NoError(t, err)
	require.NotNil(t, res.Err)
	assert.Equal(t, "bad_key", res.Err.Code)

	for _, body := range []string{``, `not json`, `{}`, `{"code":"x"}`, `{"sessionToken":""}`, `[]`} {
		_, err := DecodeStartSession(500, []byte(body))
		var de *DecodeError
		assert.True(t, errors.As(err, &de), body)
	}
}

func TestFeedbackCategoryWire(t *testing.T) {
	assert.Equal(t, "ui", CategoryUI.Wire())
	assert.Equal(t, "General", CategoryGeneral.Label())
	assert.Equal(t, "other", FeedbackCategory(99).Wire())
	assert.Len(t, AllCategories, 12)
	assert.True(t, strings.HasSuffix(ScreenshotResource("abc"), "abc/screenshot"))
}
