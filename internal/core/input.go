package core

import (
	"strings"
)

// Request bodies sent to the SmartFin API. Each Validate runs before any
// network call so invalid forms never leave the client.
type (
	Credentials struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	Registration struct {
		Username string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	TransactionInput struct {
		Title    string          `json:"title"`
		Amount   Money           `json:"amount"`
		Type     TransactionType `json:"type"`
		Category string          `json:"category"`
		Date     Date            `json:"date"`
	}

	GoalInput struct {
		Title        string `json:"title"`
		TargetAmount Money  `json:"targetAmount"`
		SavedAmount  Money  `json:"savedAmount"`
		Deadline     Date   `json:"deadline"`
	}

	BudgetInput struct {
		Month  string `json:"month"`
		Amount Money  `json:"amount"`
	}

	// AuthResult is the login response body.
	AuthResult struct {
		Message string `json:"message"`
		Token   string `json:"token"`
		User    User   `json:"user"`
	}
)

func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Email) == "" || c.Password == "" {
		return ErrMissingCredentials
	}
	return nil
}

func (r Registration) Validate() error {
	if strings.TrimSpace(r.Username) == "" || strings.TrimSpace(r.Email) == "" {
		return ErrMissingProfile
	}
	if len(r.Password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

func (t TransactionInput) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	return t.Date.Validate()
}

func (g GoalInput) Validate() error {
	if strings.TrimSpace(g.Title) == "" {
		return ErrEmptyTitle
	}
	if g.TargetAmount.Cents <= 0 {
		return ErrInvalidTarget
	}
	if g.SavedAmount.Cents < 0 {
		return ErrInvalidSaved
	}
	if g.SavedAmount.Cents > g.TargetAmount.Cents {
		return ErrSavedExceedsTarget
	}
	return g.Deadline.Validate()
}

func (b BudgetInput) Validate() error {
	if err := ValidateMonth(b.Month); err != nil {
		return err
	}
	return b.Amount.Validate()
}

// Input returns the editable fields of an existing transaction.
func (t Transaction) Input() TransactionInput {
	return TransactionInput{
		Title:    t.Title,
		Amount:   t.Amount,
		Type:     t.Type,
		Category: t.Category,
		Date:     t.Date,
	}
}

// Input returns the editable fields of an existing goal.
func (g Goal) Input() GoalInput {
	return GoalInput{
		Title:        g.Title,
		TargetAmount: g.TargetAmount,
		SavedAmount:  g.SavedAmount,
		Deadline:     g.Deadline,
	}
}
