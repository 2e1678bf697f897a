// Package pages holds the page objects for the application under test. A
// page object only names locators and sequences action calls; waiting,
// narration and diagnostics live in the action layer.
package pages

import (
	"context"
	"strings"

	"github.com/xkilldash9x/formcheck/internal/browser/action"
)

const loginPath = "/index.html"

var (
	usernameField = action.ID("username", "Username")
	passwordField = action.ID("password", "Password")
	loginButton   = action.ID("loginBtn", "Login Button")
)

// LoginPage is the application's entry page.
type LoginPage struct {
	a action.Actions
}

func NewLoginPage(a action.Actions) *LoginPage {
	return &LoginPage{a: a}
}

// Open navigates to the login page under baseURL and waits for it to load.
func (p *LoginPage) Open(ctx context.Context, baseURL string) error {
	if err := p.a.Navigate(ctx, strings.TrimRight(baseURL, "/")+loginPath); err != nil {
		return err
	}
	return p.a.WaitForTitleContains(ctx, "Login")
}

// Authenticate submits the login form.
func (p *LoginPage) Authenticate(ctx context.Context, username, password string) error {
	if err := p.a.Type(ctx, usernameField, username); err != nil {
		return err
	}
	if err := p.a.Type(ctx, passwordField, password); err != nil {
		return err
	}
	return p.a.Click(ctx, loginButton)
}
