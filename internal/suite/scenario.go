package suite

import (
	"context"
	"fmt"

	"github.com/xkilldash9x/formcheck/internal/browser/action"
	"github.com/xkilldash9x/formcheck/internal/cases"
	"github.com/xkilldash9x/formcheck/internal/pages"
)

// Scenario drives one case through the application.
type Scenario func(ctx context.Context, a action.Actions, baseURL string, row cases.Row) error

// FormScenario logs in with the row's credentials and submits the form.
// Rows without a skill use defaultSkill.
func FormScenario(defaultSkill string) Scenario {
	return func(ctx context.Context, a action.Actions, baseURL string, row cases.Row) error {
		login := pages.NewLoginPage(a)
		if err := login.Open(ctx, baseURL); err != nil {
			return fmt.Errorf("open login page: %w", err)
		}
		if err := login.Authenticate(ctx, row.Username(), row.Password()); err != nil {
			return fmt.Errorf("log in: %w", err)
		}
		if err := pages.NewFormPage(a).Fill(ctx, row, defaultSkill); err != nil {
			return fmt.Errorf("fill form: %w", err)
		}
		return nil
	}
}
