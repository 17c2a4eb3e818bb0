package core

import (
	"bytes"
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"

	GoalInProgress GoalStatus = "In Progress"
	GoalCompleted  GoalStatus = "Completed"
)

const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

type (
	TransactionType string
	GoalStatus      string

	// Date is a calendar day. It decodes the API's ISO timestamps and
	// encodes back as YYYY-MM-DD.
	Date struct {
		time.Time
	}

	User struct {
		ID        string `json:"_id"`
		Username  string `json:"username"`
		Email     string `json:"email"`
		CreatedAt Date   `json:"createdAt"`
		UpdatedAt Date   `json:"updatedAt"`
	}

	Transaction struct {
		ID       string          `json:"_id"`
		User     string          `json:"user,omitempty"`
		Amount   Money           `json:"amount"`
		Type     TransactionType `json:"type"`
		Category string          `json:"category"`
		Title    string          `json:"title"`
		Date     Date            `json:"date"`
	}

	Goal struct {
		ID           string     `json:"_id"`
		User         string     `json:"user,omitempty"`
		Title        string     `json:"title"`
		TargetAmount Money      `json:"targetAmount"`
		SavedAmount  Money      `json:"savedAmount"`
		Deadline     Date       `json:"deadline"`
		Status       GoalStatus `json:"status"`
	}

	Budget struct {
		ID     string `json:"_id"`
		User   string `json:"user,omitempty"`
		Month  string `json:"month"`
		Amount Money  `json:"amount"`
		Spent  Money  `json:"spent"`
	}

	Prediction struct {
		NextMonthPrediction Money `json:"nextMonthPrediction"`
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidTarget      = errors.New("invalid target amount")
	ErrInvalidSaved       = errors.New("invalid saved amount")
	ErrSavedExceedsTarget = errors.New("saved amount exceeds target")
	ErrEmptyTitle         = errors.New("empty title")
	ErrEmptyCategory      = errors.New("empty category")
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrMissingCredentials = errors.New("missing email or password")
	ErrMissingProfile     = errors.New("missing username or email")
	ErrPasswordTooShort   = errors.New("password too short")
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 6

var userMessages = map[error]string{
	ErrInvalidAmount:      "Please enter a valid, positive amount.",
	ErrInvalidTarget:      "Please enter a valid, positive target amount.",
	ErrInvalidSaved:       "Please enter a valid saved amount.",
	ErrSavedExceedsTarget: "Saved amount cannot be greater than the target amount.",
	ErrEmptyTitle:         "Title and category are required.",
	ErrEmptyCategory:      "Title and category are required.",
	ErrInvalidType:        "Please choose income or expense.",
	ErrInvalidDate:        "Please enter a valid date.",
	ErrInvalidMonth:       "Please choose a valid month.",
	ErrMissingCredentials: "Email and password are required.",
	ErrMissingProfile:     "Username and email are required.",
	ErrPasswordTooShort:   "Password must be at least 6 characters long.",
}

// Message returns the text shown next to a form for a validation error.
// Errors that are not validation sentinels yield "".
func Message(err error) string {
	for sentinel, msg := range userMessages {
		if errors.Is(err, sentinel) {
			return msg
		}
	}
	return ""
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD form value.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// Today returns the current UTC calendar day.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// String formats the day as YYYY-MM-DD, or "" when unset.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// MonthKey returns the YYYY-MM bucket the day belongs to.
func (d Date) MonthKey() string {
	return d.Format(MonthLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(DateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*d = Date{}
		return nil
	}
	s := strings.Trim(string(data), `"`)
	if s == "" {
		*d = Date{}
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", DateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			*d = Date{Time: t.UTC()}
			return nil
		}
	}
	return ErrInvalidDate
}

// ValidateMonth checks a YYYY-MM month key.
func ValidateMonth(month string) error {
	if _, err := time.Parse(MonthLayout, month); err != nil {
		return ErrInvalidMonth
	}
	return nil
}

// CurrentMonth returns the YYYY-MM key for now.
func CurrentMonth() string {
	return time.Now().Format(MonthLayout)
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// Completed reports whether the goal is done, either by status or by balance.
func (g Goal) Completed() bool {
	if g.Status == GoalCompleted {
		return true
	}
	return g.TargetAmount.Cents > 0 && g.SavedAmount.Cents >= g.TargetAmount.Cents
}

// Initial returns the upper-cased first letter of the username.
func (u User) Initial() string {
	name := strings.TrimSpace(u.Username)
	if name == "" {
		return "?"
	}
	r := []rune(name)
	return strings.ToUpper(string(r[0]))
}
