package feedback

import (
	"errors"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickgauge/internal/config"
	"tickgauge/internal/core"
	"tickgauge/internal/metrics"
	"tickgauge/internal/model"
	"tickgauge/internal/transport"
)

type fakeSession struct {
	token   string
	elapsed uint64
}

func (f fakeSession) Credential() (string, bool) { return f.token, f.token != "" }
func (f fakeSession) ElapsedMs() uint64          { return f.elapsed }

func newSubmitter(t *testing.T, sess SessionSource) (*Submitter, *transport.Dispatcher, *transport.MemoryRecorder, *core.Context) {
	t.Helper()
	cfg := config.New("game", "pk", "1")
	clk := clock.NewMock()
	c := core.New(cfg, clk, zerolog.Nop(), metrics.New())
	rec := transport.NewMemoryRecorder()
	d := transport.NewDispatcher(c, transport.NewDev(clk, rec), false)
	return NewSubmitter(c, d, sess), d, rec, c
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"  hello  ":              "hello",
		"a\r\nb\rc\n":            "a\nb\nc",
		"too     many    spaces": "too many spaces",
		"\t tab kept\tinside ":   "tab kept\tinside",
		"":                       "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), "in=%q", in)
	}
}

func TestValidateMessageCountsRunes(t *testing.T) {
	assert.Error(t, ValidateMessage("a"))
	assert.Error(t, ValidateMessage(""))
	assert.NoError(t, ValidateMessage("ab"))
	assert.NoError(t, ValidateMessage("좋아"))
	assert.Error(t, ValidateMessage("좋"))
}

func TestSubmitRejectsShortMessageWithoutNetwork(t *testing.T) {
	s, d, rec, c := newSubmitter(t, fakeSession{token: "tok"})

	err := s.Submit("  a   ", model.CategoryBugs, "", nil)

	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Zero(t, d.Inflight())
	assert.Empty(t, rec.Captures())
	assert.Equal(t, int64(1), metrics.Load(&c.Metrics.FeedbackRejectedTotal))
}

func TestSubmitSendsPayload(t *testing.T) {
	s, d, rec, _ := newSubmitter(t, fakeSession{token: "tok", elapsed: 4200})

	require.NoError(t, s.Submit("ab", model.CategoryUI, "How was level 1?", nil))

	caps := rec.Captures()
	require.Len(t, caps, 1)
	assert.Equal(t, model.ResourceFeedback, caps[0].Resource)
	assert.JSONEq(t, `{"message":"ab","category":"ui","elapsedMs":4200,"question":"How was level 1?"}`, string(caps[0].Body))
	assert.Equal(t, 1, d.Inflight())
}

func TestSubmitWithoutSession(t *testing.T) {
	s, _, rec, _ := newSubmitter(t, fakeSession{})
	assert.ErrorIs(t, s.Submit("hello", model.CategoryGeneral, "", nil), model.ErrNoSession)
	assert.Empty(t, rec.Captures())
}

func TestSubmitReportsFeedbackID(t *testing.T) {
	s, d, _, _ := newSubmitter(t, fakeSession{token: "tok"})

	var got string
	require.NoError(t, s.Submit("works great", model.CategoryGameplay, "", func(id string) { got = id }))
	d.Poll()

	assert.Contains(t, got, "dev-")
}

func TestFormSubmitClearsRequestedState(t *testing.T) {
	s, _, rec, _ := newSubmitter(t, fakeSession{token: "tok"})
	f := NewForm()
	f.OpenWithQuestion("Too hard?", model.CategoryBalance)
	f.SetMessage("a bit")

	require.NoError(t, s.SubmitForm(f, nil))

	assert.False(t, f.Requested())
	assert.False(t, f.Visible())
	assert.Empty(t, f.Message())
	require.Len(t, rec.Captures(), 1)
	assert.JSONEq(t, `{"message":"a bit","category":"balance","elapsedMs":0,"question":"Too hard?"}`, string(rec.Captures()[0].Body))
}

func TestFormValidationErrorKeepsForm(t *testing.T) {
	s, _, rec, _ := newSubmitter(t, fakeSession{token: "tok"})
	f := NewForm()
	f.Open()
	f.SetMessage("x")

	assert.Error(t, s.SubmitForm(f, nil))
	assert.True(t, f.Requested())
	assert.Equal(t, "Feedback cannot be less than 2 characters", f.Error())
	assert.Empty(t, rec.Captures())

	f.SetMessage("xy")
	assert.Empty(t, f.Error())
}

func TestFormScreenshotUploadAfterAccept(t *testing.T) {
	s, d, rec, c := newSubmitter(t, fakeSession{token: "tok"})
	f := NewForm()
	f.Open()
	f.ToggleScreenshot()
	f.SetMessage("look at this")

	require.NoError(t, s.SubmitForm(f, func() ([]byte, error) { return []byte{0x89, 'P', 'N', 'G'}, nil }))
	d.Poll()

	res := rec.Resources()
	require.Len(t, res, 2)
	assert.Equal(t, model.ResourceFeedback, res[0])
	assert.Regexp(t, `^feedback/dev-[0-9a-f-]+/screenshot$`, res[1])
	assert.Equal(t, "image/png", rec.Captures()[1].ContentType)
	assert.Equal(t, int64(1), metrics.Load(&c.Metrics.ScreenshotsSentTotal))
}

func TestFormScreenshotCaptureFailure(t *testing.T) {
	s, d, rec, _ := newSubmitter(t, fakeSession{token: "tok"})
	f := NewForm()
	f.Open()
	f.ToggleScreenshot()
	f.SetMessage("broken")

	require.NoError(t, s.SubmitForm(f, func() ([]byte, error) { return nil, errors.New("no gpu") }))
	d.Poll()
	assert.Len(t, rec.Captures(), 1)
}

func TestFormState(t *testing.T) {
	f := NewForm()
	assert.False(t, f.Visible())

	f.Toggle()
	assert.True(t, f.Requested())
	assert.True(t, f.Visible())
	assert.Equal(t, model.CategoryGeneral, f.Category())

	f.Toggle()
	assert.True(t, f.Requested())
	assert.False(t, f.Visible())

	f.ToggleDropdown()
	assert.True(t, f.DropdownOpen())
	f.SetCategory(model.CategoryAudio)
	assert.False(t, f.DropdownOpen())
	assert.Equal(t, model.CategoryAudio, f.Category())

	f.SetAllowScreenshot(false)
	f.ToggleScreenshot()
	assert.False(t, f.IncludeScreenshot())

	f.Close()
	assert.False(t, f.Requested())
	assert.False(t, f.AllowScreenshot(), "allow flag survives reset")
}

func TestUploadScreenshotValidation(t *testing.T) {
	s, _, _, _ := newSubmitter(t, fakeSession{token: "tok"})
	assert.Error(t, s.UploadScreenshot("", []byte{1}))
	assert.Error(t, s.UploadScreenshot("id", nil))

	s2, _, _, _ := newSubmitter(t, fakeSession{})
	assert.ErrorIs(t, s2.UploadScreenshot("id", []byte{1}), model.ErrNoSession)
}
