package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"smartfin/internal/core"
)

// RegisterResult is the register response body.
type RegisterResult struct {
	Message string `json:"message"`
}

var ErrMissingToken = errors.New("login response missing token")

func (c *Client) Login(ctx context.Context, creds core.Credentials) (core.AuthResult, error) {
	var out core.AuthResult
	if _, err := c.Do(ctx, http.MethodPost, "/api/auth/login", "", creds, &out); err != nil {
		return core.AuthResult{}, err
	}
	if out.Token == "" {
		return core.AuthResult{}, ErrMissingToken
	}
	return out, nil
}

func (c *Client) Register(ctx context.Context, reg core.Registration) (RegisterResult, error) {
	var out RegisterResult
	if _, err := c.Do(ctx, http.MethodPost, "/api/auth/register", "", reg, &out); err != nil {
		return RegisterResult{}, err
	}
	return out, nil
}

func (c *Client) ListTransactions(ctx context.Context, token string) ([]core.Transaction, error) {
	var out []core.Transaction
	if _, err := c.Do(ctx, http.MethodGet, "/api/transactions", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateTransaction(ctx context.Context, token string, in core.TransactionInput) (core.Transaction, error) {
	var out core.Transaction
	_, err := c.Do(ctx, http.MethodPost, "/api/transactions", token, in, &out)
	return out, err
}

func (c *Client) UpdateTransaction(ctx context.Context, token, id string, in core.TransactionInput) (core.Transaction, error) {
	var out core.Transaction
	_, err := c.Do(ctx, http.MethodPut, "/api/transactions/"+url.PathEscape(id), token, in, &out)
	return out, err
}

func (c *Client) ListGoals(ctx context.Context, token string) ([]core.Goal, error) {
	var out []core.Goal
	if _, err := c.Do(ctx, http.MethodGet, "/api/goals", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateGoal(ctx context.Context, token string, in core.GoalInput) (core.Goal, error) {
	var out core.Goal
	_, err := c.Do(ctx, http.MethodPost, "/api/goals", token, in, &out)
	return out, err
}

func (c *Client) UpdateGoal(ctx context.Context, token, id string, in core.GoalInput) (core.Goal, error) {
	var out core.Goal
	_, err := c.Do(ctx, http.MethodPut, "/api/goals/"+url.PathEscape(id), token, in, &out)
	return out, err
}

// GetBudget returns the budget for a YYYY-MM month, or nil when none is set.
func (c *Client) GetBudget(ctx context.Context, token, month string) (*core.Budget, error) {
	var out core.Budget
	found, err := c.Do(ctx, http.MethodGet, "/api/budget?month="+url.QueryEscape(month), token, nil, &out)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &out, nil
}

func (c *Client) SetBudget(ctx context.Context, token string, in core.BudgetInput) (core.Budget, error) {
	var out core.Budget
	_, err := c.Do(ctx, http.MethodPost, "/api/budget", token, in, &out)
	return out, err
}

// Predict returns next month's expense forecast.
func (c *Client) Predict(ctx context.Context, token string) (core.Prediction, error) {
	var out core.Prediction
	if _, err := c.Do(ctx, http.MethodGet, "/api/analytics/predict", token, nil, &out); err != nil {
		return core.Prediction{}, err
	}
	return out, nil
}
