package pages

import (
	"context"

	"github.com/xkilldash9x/formcheck/internal/browser/action"
	"github.com/xkilldash9x/formcheck/internal/cases"
)

const experienceGroup = "experience"

var (
	fullNameField    = action.ID("fullname", "Full Name")
	emailField       = action.ID("email", "Email")
	dobField         = action.ID("dob", "Date of Birth")
	genderSelect     = action.ID("gender", "Gender")
	loadSkillsButton = action.ID("loadSkillsBtn", "Load Skills Button")
	skillsContainer  = action.ID("skills-container", "Skills Container")
	skillField       = action.ID("skill_name", "Skill Name")
	subscribeBox     = action.ID("subscribe", "Subscribe Checkbox")
	submitButton     = action.ID("submitBtn", "Submit Button")
)

// PersonalDetails are the profile fields of the form. DOB and Experience
// are optional and skipped when empty.
type PersonalDetails struct {
	FullName   string
	Email      string
	DOB        string
	Experience string
	Gender     string
}

// FormPage is the multi-field form shown after login.
type FormPage struct {
	a action.Actions
}

func NewFormPage(a action.Actions) *FormPage {
	return &FormPage{a: a}
}

// AwaitLoaded waits for the form page title and the first field.
func (p *FormPage) AwaitLoaded(ctx context.Context) error {
	if err := p.a.WaitForTitleContains(ctx, "Form Page"); err != nil {
		return err
	}
	_, err := p.a.Locate(ctx, fullNameField)
	return err
}

func (p *FormPage) EnterPersonalDetails(ctx context.Context, d PersonalDetails) error {
	if err := p.a.Type(ctx, fullNameField, d.FullName); err != nil {
		return err
	}
	if err := p.a.Type(ctx, emailField, d.Email); err != nil {
		return err
	}
	if d.DOB != "" {
		if err := p.a.Type(ctx, dobField, d.DOB); err != nil {
			return err
		}
	}
	if d.Experience != "" {
		if err := p.a.SelectRadioByValue(ctx, experienceGroup, d.Experience); err != nil {
			return err
		}
	}
	return p.a.SelectByVisibleText(ctx, genderSelect, d.Gender)
}

// AddSkill loads the dynamic skills section and enters name into it.
func (p *FormPage) AddSkill(ctx context.Context, name string) error {
	if err := p.a.ForceClick(ctx, loadSkillsButton); err != nil {
		return err
	}
	p.a.Narrate("Waiting for skills container to appear")
	if _, err := p.a.Locate(ctx, skillsContainer); err != nil {
		return err
	}
	return p.a.Type(ctx, skillField, name)
}

// SetSubscription brings the subscribe checkbox to want, clicking only if
// it differs.
func (p *FormPage) SetSubscription(ctx context.Context, want bool) error {
	checked, err := p.a.IsChecked(ctx, subscribeBox)
	if err != nil {
		return err
	}
	if checked == want {
		return nil
	}
	return p.a.ForceClick(ctx, subscribeBox)
}

// Submit sends the form and accepts the confirmation alert if one shows.
func (p *FormPage) Submit(ctx context.Context) error {
	if err := p.a.ForceClick(ctx, submitButton); err != nil {
		return err
	}
	return p.a.DismissAlertIfPresent(ctx)
}

// Fill runs the whole form half of the scenario for row. defaultSkill is
// used when the row has no skill.
func (p *FormPage) Fill(ctx context.Context, row cases.Row, defaultSkill string) error {
	if err := p.AwaitLoaded(ctx); err != nil {
		return err
	}
	details := PersonalDetails{
		FullName:   row.FullName(),
		Email:      row.Email(),
		DOB:        row.DOB(),
		Experience: row.Experience(),
		Gender:     row.Gender(),
	}
	if err := p.EnterPersonalDetails(ctx, details); err != nil {
		return err
	}
	skill := row.Skill()
	if skill == "" {
		skill = defaultSkill
	}
	if err := p.AddSkill(ctx, skill); err != nil {
		return err
	}
	if err := p.SetSubscription(ctx, row.Subscribe()); err != nil {
		return err
	}
	return p.Submit(ctx)
}
