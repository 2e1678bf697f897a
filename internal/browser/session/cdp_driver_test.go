// internal/browser/session/cdp_driver_test.go
package session

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/formcheck/internal/browser/driver"
)

const driverTestPage = `<!DOCTYPE html>
<html><head><title>Driver Fixture</title>
<style>
#overlay { position: fixed; top: 0; left: 0; width: 100%; height: 100%; z-index: 10; }
#covered { position: fixed; top: 20px; left: 20px; width: 120px; height: 40px; }
</style></head>
<body>
<input id="name" type="text" value="prefilled">
<input id="hidden" type="text" style="display:none">
<input id="off" type="text" disabled>
<input id="agree" type="checkbox">
<select id="color"><option value="r">Red</option><option value="g"> Green </option></select>
<button id="alerter" onclick="alert('Form submitted successfully!')">Alert</button>
<button id="covered" onclick="document.title='clicked'">Covered</button>
</body></html>`

func newDriverFixture(t *testing.T) (driver.Driver, string, context.Context) {
	t.Helper()
	cfg := browserConfig(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(driverTestPage))
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	t.Cleanup(cancel)

	m := NewManager(cfg, zaptest.NewLogger(t))
	s, err := m.NewSession(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })

	return s.Driver(), srv.URL, ctx
}

func TestCDPDriver(t *testing.T) {
	drv, url, ctx := newDriverFixture(t)
	require.NoError(t, drv.Navigate(ctx, url))

	title, err := drv.Title(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Driver Fixture", title)

	t.Run("visibility", func(t *testing.T) {
		ok, err := drv.Visible(ctx, "#name")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = drv.Visible(ctx, "#hidden")
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = drv.Visible(ctx, "#missing")
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = drv.Interactable(ctx, "#off")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("typing", func(t *testing.T) {
		require.NoError(t, drv.Clear(ctx, "#name"))
		require.NoError(t, drv.SendKeys(ctx, "#name", "Alice Example"))

		var value string
		require.NoError(t, evalString(ctx, drv, "#name", &value))
		assert.Equal(t, "Alice Example", value)

		err := drv.SendKeys(ctx, "#missing", "x")
		assert.ErrorIs(t, err, driver.ErrNoSuchElement)
	})

	t.Run("select", func(t *testing.T) {
		labels, err := drv.SelectOptions(ctx, "#color")
		require.NoError(t, err)
		assert.Equal(t, []string{"Red", "Green"}, labels)

		require.NoError(t, drv.SelectOption(ctx, "#color", "Green"))
		assert.ErrorIs(t, drv.SelectOption(ctx, "#color", "Blue"), driver.ErrNoSuchElement)
	})

	t.Run("script click toggles checkbox", func(t *testing.T) {
		require.NoError(t, drv.ScriptClick(ctx, "#agree"))
		assert.Eventually(t, func() bool {
			checked, err := drv.Checked(ctx, "#agree")
			return err == nil && checked
		}, 5*time.Second, 50*time.Millisecond)
	})

	t.Run("screenshot", func(t *testing.T) {
		png, err := drv.Screenshot(ctx)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
	})

	t.Run("dialog", func(t *testing.T) {
		require.NoError(t, drv.ScriptClick(ctx, "#alerter"))

		var dlg *driver.Dialog
		require.Eventually(t, func() bool {
			dlg, _ = drv.DialogOpen(ctx)
			return dlg != nil
		}, 5*time.Second, 50*time.Millisecond)
		assert.Equal(t, "alert", dlg.Type)
		assert.Equal(t, "Form submitted successfully!", dlg.Message)

		_, err := drv.Screenshot(ctx)
		assert.ErrorIs(t, err, driver.ErrDialogOpen)

		require.NoError(t, drv.AcceptDialog(ctx))
		dlg, err = drv.DialogOpen(ctx)
		require.NoError(t, err)
		assert.Nil(t, dlg)
		assert.ErrorIs(t, drv.AcceptDialog(ctx), driver.ErrNoDialog)
	})

	t.Run("intercepted click", func(t *testing.T) {
		require.NoError(t, evalExec(ctx, drv, `(() => { const o = document.createElement('div'); o.id = 'overlay'; document.body.appendChild(o); return true; })()`))

		err := drv.Click(ctx, "#covered")
		assert.ErrorIs(t, err, driver.ErrClickIntercepted)

		require.NoError(t, drv.ScriptClick(ctx, "#covered"))
		assert.Eventually(t, func() bool {
			title, err := drv.Title(ctx)
			return err == nil && title == "clicked"
		}, 5*time.Second, 50*time.Millisecond)
	})
}

// evalString reads the value of the input matched by css.
func evalString(ctx context.Context, drv driver.Driver, css string, out *string) error {
	return drv.(*driver.CDP).Evaluate(ctx, `document.querySelector(`+"`"+css+"`"+`).value`, out)
}

func evalExec(ctx context.Context, drv driver.Driver, script string) error {
	var ok bool
	return drv.(*driver.CDP).Evaluate(ctx, script, &ok)
}
