// internal/browser/action/wrapper_test.go
package action

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/formcheck/internal/browser/driver"
	"github.com/xkilldash9x/formcheck/internal/browser/driver/drivertest"
	"github.com/xkilldash9x/formcheck/internal/reporting"
)

const (
	testCase     = "1-alice"
	shortTimeout = 150 * time.Millisecond
	shortPoll    = 10 * time.Millisecond
)

type fixture struct {
	fake     *drivertest.Fake
	timeline *reporting.Timeline
	logs     *observer.ObservedLogs
	w        *Wrapper
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	f := &fixture{
		fake:     drivertest.New(),
		timeline: reporting.NewTimeline(),
		logs:     logs,
	}
	f.w = New(f.fake, f.timeline, zap.New(core),
		WithCaseName(testCase),
		WithElementTimeout(shortTimeout),
		WithAlertTimeout(shortTimeout),
		WithPollInterval(shortPoll),
	)
	return f
}

func (f *fixture) steps() []string       { return f.timeline.Steps(testCase) }
func (f *fixture) attachments() []string { return f.timeline.Attachments(testCase) }

func visible() *drivertest.Element {
	return &drivertest.Element{Visible: true, Enabled: true}
}

func TestLocator(t *testing.T) {
	tests := []struct {
		loc      Locator
		css, str string
	}{
		{ID("username", "Username"), "#username", "id=username"},
		{Query("div.skills > input", "Skill"), "div.skills > input", "css=div.skills > input"},
		{Name("experience", "Experience"), `[name="experience"]`, "name=experience"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.css, tt.loc.CSS())
		assert.Equal(t, tt.str, tt.loc.String())
	}

	assert.Equal(t, "id=x", ID("x", "").describe())
}

func TestNew_Defaults(t *testing.T) {
	w := New(drivertest.New(), nil, nil)
	assert.Equal(t, DefaultElementTimeout, w.elementTimeout)
	assert.Equal(t, DefaultAlertTimeout, w.alertTimeout)
	assert.Equal(t, DefaultPollInterval, w.pollInterval)
	w.Narrate("no sink configured")
}

func TestLocate(t *testing.T) {
	ctx := context.Background()

	t.Run("waits for element to appear", func(t *testing.T) {
		f := newFixture(t)
		f.fake.Set("#skills-container", &drivertest.Element{Visible: true, HiddenPolls: 3})

		el, err := f.w.Locate(ctx, ID("skills-container", "Skills Container"))
		require.NoError(t, err)
		assert.Equal(t, "#skills-container", el.CSS)
		assert.Empty(t, f.attachments())
	})

	t.Run("timeout yields typed error and screenshot", func(t *testing.T) {
		f := newFixture(t)
		loc := ID("skills-container", "Skills Container")

		start := time.Now()
		_, err := f.w.Locate(ctx, loc)
		require.Error(t, err)
		assert.Less(t, time.Since(start), 5*shortTimeout)

		var nf *NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, loc, nf.Locator)
		assert.Equal(t, shortTimeout, nf.Timeout)
		assert.ErrorIs(t, err, ErrTimeout)

		kind, ok := KindOf(err)
		require.True(t, ok)
		assert.Equal(t, KindNotFound, kind)

		assert.Equal(t, []string{"not-found Skills Container"}, f.attachments())
	})

	t.Run("driver fault propagates unmodified", func(t *testing.T) {
		f := newFixture(t)
		f.fake.FailOn("Visible", "#username", drivertest.ErrInjected)

		_, err := f.w.Locate(ctx, ID("username", "Username"))
		assert.Same(t, drivertest.ErrInjected, err)
		_, isKind := KindOf(err)
		assert.False(t, isKind)
		assert.Empty(t, f.attachments())
	})

	t.Run("caller cancellation is not a timeout", func(t *testing.T) {
		f := newFixture(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := f.w.Locate(cctx, ID("username", "Username"))
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, ErrTimeout)
	})
}

func TestClick(t *testing.T) {
	ctx := context.Background()

	t.Run("native click", func(t *testing.T) {
		f := newFixture(t)
		f.fake.Set("#loginBtn", visible())

		require.NoError(t, f.w.Click(ctx, ID("loginBtn", "Login Button")))
		assert.Equal(t, []string{"Clicking on Login Button"}, f.steps())
		assert.Equal(t, []string{"Click #loginBtn"}, f.fake.Calls())
	})

	t.Run("intercepted click falls back to script click", func(t *testing.T) {
		f := newFixture(t)
		el := visible()
		el.Intercepted = true
		f.fake.Set("#loginBtn", el)

		require.NoError(t, f.w.Click(ctx, ID("loginBtn", "Login Button")))

		want := []string{
			"Clicking on Login Button",
			"Click on Login Button intercepted, falling back to script click",
		}
		if diff := cmp.Diff(want, f.steps()); diff != "" {
			t.Errorf("narration mismatch (-want +got):\n%s", diff)
		}
		assert.Equal(t, []string{"Click #loginBtn", "ScriptClick #loginBtn"}, f.fake.Calls())
		assert.Empty(t, f.attachments())
	})

	t.Run("disabled element times out", func(t *testing.T) {
		f := newFixture(t)
		f.fake.Set("#loginBtn", &drivertest.Element{Visible: true, Enabled: false})

		err := f.w.Click(ctx, ID("loginBtn", "Login Button"))
		var nf *NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, []string{"not-found Login Button"}, f.attachments())
		assert.NotContains(t, f.fake.Calls(), "Click #loginBtn")
	})

	t.Run("other click faults propagate", func(t *testing.T) {
		f := newFixture(t)
		f.fake.Set("#loginBtn", visible())
		f.fake.FailOn("Click", "#loginBtn", drivertest.ErrInjected)

		err := f.w.Click(ctx, ID("loginBtn", "Login Button"))
		assert.ErrorIs(t, err, drivertest.ErrInjected)
		assert.NotContains(t, f.fake.Calls(), "ScriptClick #loginBtn")
	})
}

func TestForceClick(t *testing.T) {
	f := newFixture(t)
	f.fake.Set("#submitBtn", &drivertest.Element{Visible: true, Enabled: false})

	require.NoError(t, f.w.ForceClick(context.Background(), ID("submitBtn", "Submit Button")))
	assert.Equal(t, []string{"Force clicking on Submit Button"}, f.steps())
	assert.Equal(t, []string{"ScriptClick #submitBtn"}, f.fake.Calls())
}

func TestType(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces value", func(t *testing.T) {
		f := newFixture(t)
		el := visible()
		el.Value = "stale"
		f.fake.Set("#username", el)

		require.NoError(t, f.w.Type(ctx, ID("username", "Username"), "alice"))

		got, _ := f.fake.Element("#username")
		assert.Equal(t, "alice", got.Value)
		assert.Equal(t, []string{"Typing 'alice' into Username"}, f.steps())
	})

	t.Run("masks password fields", func(t *testing.T) {
		f := newFixture(t)
		f.fake.Set("#password", visible())

		require.NoError(t, f.w.Type(ctx, ID("password", "Login PASSWORD field"), "s3cret"))

		assert.Equal(t, []string{"Typing '********' into Login PASSWORD field"}, f.steps())
		for _, entry := range f.logs.All() {
			assert.NotContains(t, entry.Message, "s3cret")
		}
		got, _ := f.fake.Element("#password")
		assert.Equal(t, "s3cret", got.Value)
	})

	t.Run("missing field", func(t *testing.T) {
		f := newFixture(t)
		err := f.w.Type(ctx, ID("email", "Email"), "a@example.com")
		assert.ErrorIs(t, err, ErrTimeout)
		assert.Equal(t, []string{"not-found Email"}, f.attachments())
	})
}

func TestSelectByVisibleText(t *testing.T) {
	ctx := context.Background()
	loc := ID("gender", "Gender")

	t.Run("selects exact label", func(t *testing.T) {
		f := newFixture(t)
		f.fake.Set("#gender", &drivertest.Element{Visible: true, Enabled: true, Options: []string{"Male", "Female", "Other"}})

		require.NoError(t, f.w.SelectByVisibleText(ctx, loc, "Female"))
		got, _ := f.fake.Element("#gender")
		assert.Equal(t, "Female", got.Selected)
	})

	t.Run("missing option", func(t *testing.T) {
		f := newFixture(t)
		f.fake.Set("#gender", &drivertest.Element{Visible: true, Enabled: true, Options: []string{"Male", "Female"}})

		err := f.w.SelectByVisibleText(ctx, loc, "female")

		var onf *OptionNotFoundError
		require.ErrorAs(t, err, &onf)
		assert.Equal(t, "female", onf.Text)
		assert.Equal(t, []string{"Male", "Female"}, onf.Available)
		assert.ErrorIs(t, err, ErrOptionNotFound)
		kind, _ := KindOf(err)
		assert.Equal(t, KindOptionNotFound, kind)
		assert.Equal(t, []string{"option-not-found Gender"}, f.attachments())
	})
}

func TestSelectRadioByValue(t *testing.T) {
	f := newFixture(t)
	css := `input[type="radio"][name="experience"][value="3"]`
	f.fake.Set(css, &drivertest.Element{Visible: true, Enabled: true, Kind: drivertest.Radio})

	require.NoError(t, f.w.SelectRadioByValue(context.Background(), "experience", "3"))

	got, _ := f.fake.Element(css)
	assert.True(t, got.Checked)
	assert.Equal(t, []string{"Force clicking on experience option '3'"}, f.steps())
}

func TestIsChecked(t *testing.T) {
	f := newFixture(t)
	f.fake.Set("#subscribe", &drivertest.Element{Visible: true, Enabled: true, Kind: drivertest.Checkbox, Checked: true})

	checked, err := f.w.IsChecked(context.Background(), ID("subscribe", "Subscribe"))
	require.NoError(t, err)
	assert.True(t, checked)
}

func TestWaitForTitleContains(t *testing.T) {
	ctx := context.Background()

	t.Run("title arrives", func(t *testing.T) {
		f := newFixture(t)
		f.fake.SetTitle("Loading")
		go func() {
			time.Sleep(3 * shortPoll)
			f.fake.SetTitle("Form Page")
		}()
		require.NoError(t, f.w.WaitForTitleContains(ctx, "Form Page"))
	})

	t.Run("timeout reports last title", func(t *testing.T) {
		f := newFixture(t)
		f.fake.SetTitle("Login Page")

		err := f.w.WaitForTitleContains(ctx, "Form Page")
		var ne *NavigationError
		require.ErrorAs(t, err, &ne)
		assert.Equal(t, "Form Page", ne.Fragment)
		assert.Equal(t, "Login Page", ne.Actual)
		assert.ErrorIs(t, err, ErrTimeout)
		assert.Equal(t, []string{"navigation Form Page"}, f.attachments())
	})
}

func TestDismissAlertIfPresent(t *testing.T) {
	ctx := context.Background()

	t.Run("accepts open alert", func(t *testing.T) {
		f := newFixture(t)
		f.fake.OpenDialog("Form submitted successfully!")

		require.NoError(t, f.w.DismissAlertIfPresent(ctx))
		assert.Equal(t, []string{"Alert present: Form submitted successfully!"}, f.steps())
		dlg, _ := f.fake.DialogOpen(ctx)
		assert.Nil(t, dlg)
		assert.Empty(t, f.attachments())
	})

	t.Run("no alert is not an error", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.w.DismissAlertIfPresent(ctx))
		assert.Empty(t, f.steps())
		assert.Empty(t, f.attachments())
		assert.NotContains(t, f.fake.Calls(), "AcceptDialog")
	})

	t.Run("accept failure propagates", func(t *testing.T) {
		f := newFixture(t)
		f.fake.OpenDialog("hi")
		f.fake.FailOn("AcceptDialog", "", drivertest.ErrInjected)
		assert.ErrorIs(t, f.w.DismissAlertIfPresent(ctx), drivertest.ErrInjected)
	})
}

func TestScreenshot(t *testing.T) {
	ctx := context.Background()

	t.Run("attaches capture", func(t *testing.T) {
		f := newFixture(t)
		f.w.Screenshot(ctx, "after-login")
		entries := f.timeline.Entries()
		require.Len(t, entries, 1)
		assert.Equal(t, drivertest.PNG, entries[0].Attachment.Data)
	})

	t.Run("capture failure is swallowed and logged", func(t *testing.T) {
		f := newFixture(t)
		f.fake.ScreenshotErr = errors.New("target crashed")

		f.w.Screenshot(ctx, "after-login")
		assert.Empty(t, f.attachments())
		assert.Equal(t, 1, f.logs.FilterMessage("Failed to capture screenshot.").Len())
	})

	t.Run("never captures while a dialog is open", func(t *testing.T) {
		f := newFixture(t)
		f.fake.OpenDialog("blocking")

		f.w.Screenshot(ctx, "anything")
		assert.Empty(t, f.attachments())
		assert.NotContains(t, f.fake.Calls(), "Screenshot")
		assert.NotContains(t, f.fake.Calls(), "Screenshot (blocked)")
	})
}

func TestNavigate(t *testing.T) {
	f := newFixture(t)
	f.fake.FailOn("Navigate", "http://localhost:8000/index.html", driver.ErrNoSuchElement)

	err := f.w.Navigate(context.Background(), "http://localhost:8000/index.html")
	assert.ErrorIs(t, err, driver.ErrNoSuchElement)
	assert.Equal(t, []string{"Navigating to http://localhost:8000/index.html"}, f.steps())
}
