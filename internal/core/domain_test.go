package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestDateJSON(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`"2024-03-15T10:20:30.000Z"`, "2024-03-15"},
		{`"2024-03-15T00:00:00Z"`, "2024-03-15"},
		{`"2024-03-15"`, "2024-03-15"},
		{`""`, ""},
		{`null`, ""},
	}
	for _, tc := range cases {
		var d Date
		if err := json.Unmarshal([]byte(tc.in), &d); err != nil {
			t.Fatalf("%s: unexpected error %v", tc.in, err)
		}
		if d.String() != tc.want {
			t.Errorf("%s: got %q, want %q", tc.in, d.String(), tc.want)
		}
	}

	var d Date
	if err := json.Unmarshal([]byte(`"15/03/2024"`), &d); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("expected ErrInvalidDate, got %v", err)
	}

	out, _ := json.Marshal(struct {
		D Date `json:"d"`
		Z Date `json:"z"`
	}{D: NewDate(2024, 1, 2)})
	if string(out) != `{"d":"2024-01-02","z":null}` {
		t.Errorf("marshal = %s", out)
	}
}

func TestTransactionInputValidate(t *testing.T) {
	good := TransactionInput{
		Title:    "Salary",
		Amount:   Money{Cents: 100},
		Type:     Income,
		Category: "Work",
		Date:     NewDate(2025, 1, 1),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*TransactionInput)
		want   error
	}{
		{"blank title", func(in *TransactionInput) { in.Title = "  " }, ErrEmptyTitle},
		{"blank category", func(in *TransactionInput) { in.Category = "" }, ErrEmptyCategory},
		{"zero amount", func(in *TransactionInput) { in.Amount = Money{} }, ErrInvalidAmount},
		{"negative amount", func(in *TransactionInput) { in.Amount = Money{Cents: -5} }, ErrInvalidAmount},
		{"bad type", func(in *TransactionInput) { in.Type = "transfer" }, ErrInvalidType},
		{"missing date", func(in *TransactionInput) { in.Date = Date{} }, ErrInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := good
			tt.mutate(&in)
			if err := in.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestGoalInputValidate(t *testing.T) {
	good := GoalInput{
		Title:        "Laptop",
		TargetAmount: Money{Cents: 100000},
		SavedAmount:  Money{Cents: 100000},
		Deadline:     NewDate(2026, 6, 1),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("saved == target should be ok, got %v", err)
	}

	over := good
	over.SavedAmount = Money{Cents: 100001}
	if err := over.Validate(); !errors.Is(err, ErrSavedExceedsTarget) {
		t.Errorf("expected ErrSavedExceedsTarget, got %v", err)
	}
	if Message(over.Validate()) != "Saved amount cannot be greater than the target amount." {
		t.Errorf("unexpected message %q", Message(over.Validate()))
	}

	noTarget := good
	noTarget.TargetAmount = Money{}
	noTarget.SavedAmount = Money{}
	if err := noTarget.Validate(); !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("expected ErrInvalidTarget, got %v", err)
	}
}

func TestBudgetInputValidate(t *testing.T) {
	if err := (BudgetInput{Month: "2024-02", Amount: Money{Cents: 1}}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (BudgetInput{Month: "2024-13", Amount: Money{Cents: 1}}).Validate(); !errors.Is(err, ErrInvalidMonth) {
		t.Errorf("expected ErrInvalidMonth, got %v", err)
	}
	if err := (BudgetInput{Month: "2024-02"}).Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestRegistrationValidate(t *testing.T) {
	r := Registration{Username: "asha", Email: "asha@example.com", Password: "12345"}
	if err := r.Validate(); !errors.Is(err, ErrPasswordTooShort) {
		t.Errorf("expected ErrPasswordTooShort, got %v", err)
	}
	r.Password = "123456"
	if err := r.Validate(); err != nil {
		t.Errorf("expected ok, got %v", err)
	}
	r.Email = ""
	if err := r.Validate(); !errors.Is(err, ErrMissingProfile) {
		t.Errorf("expected ErrMissingProfile, got %v", err)
	}

	body, _ := json.Marshal(Registration{Username: "asha", Email: "a@b.c", Password: "secret"})
	if string(body) != `{"name":"asha","email":"a@b.c","password":"secret"}` {
		t.Errorf("registration body = %s", body)
	}
}

func TestCredentialsValidate(t *testing.T) {
	if err := (Credentials{Email: "a@b.c"}).Validate(); !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("expected ErrMissingCredentials, got %v", err)
	}
	if err := (Credentials{Email: "a@b.c", Password: "x"}).Validate(); err != nil {
		t.Errorf("expected ok, got %v", err)
	}
}

func TestMessageUnknownError(t *testing.T) {
	if msg := Message(errors.New("network down")); msg != "" {
		t.Errorf("expected empty message, got %q", msg)
	}
}

func TestGoalCompleted(t *testing.T) {
	cases := []struct {
		g    Goal
		want bool
	}{
		{Goal{Status: GoalCompleted}, true},
		{Goal{Status: GoalInProgress, TargetAmount: Money{Cents: 100}, SavedAmount: Money{Cents: 100}}, true},
		{Goal{Status: GoalInProgress, TargetAmount: Money{Cents: 100}, SavedAmount: Money{Cents: 99}}, false},
		{Goal{Status: GoalInProgress}, false},
	}
	for i, tc := range cases {
		if got := tc.g.Completed(); got != tc.want {
			t.Errorf("case %d: Completed() = %v, want %v", i, got, tc.want)
		}
	}
}

func TestUserInitial(t *testing.T) {
	if got := (User{Username: "ravi"}).Initial(); got != "R" {
		t.Errorf("Initial() = %q", got)
	}
	if got := (User{}).Initial(); got != "?" {
		t.Errorf("Initial() = %q", got)
	}
}

func TestToday(t *testing.T) {
	today := Today()
	if today.Hour() != 0 || today.Location() != time.UTC {
		t.Errorf("Today() should be midnight UTC, got %v", today.Time)
	}
}
