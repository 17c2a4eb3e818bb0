package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"smartfin/internal/amqp"
	"smartfin/internal/core"
	"smartfin/internal/log"
)

// API is the part of the SmartFin REST API the ledger pages use.
type API interface {
	ListTransactions(ctx context.Context, token string) ([]core.Transaction, error)
	CreateTransaction(ctx context.Context, token string, in core.TransactionInput) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, token, id string, in core.TransactionInput) (core.Transaction, error)
	ListGoals(ctx context.Context, token string) ([]core.Goal, error)
	CreateGoal(ctx context.Context, token string, in core.GoalInput) (core.Goal, error)
	UpdateGoal(ctx context.Context, token, id string, in core.GoalInput) (core.Goal, error)
	GetBudget(ctx context.Context, token, month string) (*core.Budget, error)
	SetBudget(ctx context.Context, token string, in core.BudgetInput) (core.Budget, error)
	Predict(ctx context.Context, token string) (core.Prediction, error)
}

// Publisher announces completed mutations. Optional.
type Publisher interface {
	PublishActivity(ctx context.Context, msg *amqp.ActivityMessage) error
}

// Actor identifies who performs a call: the API credential and the user id
// recorded on activity messages.
type Actor struct {
	Token  string
	UserID string
}

// LedgerService validates input, forwards it to the API and publishes an
// activity message for every successful mutation.
type LedgerService struct {
	api       API
	publisher Publisher
	logger    *log.StructuredLogger
}

func NewLedgerService(api API, publisher Publisher, logger *log.Logger) *LedgerService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &LedgerService{
		api:       api,
		publisher: publisher,
		logger:    log.NewStructuredLogger(logger.WithComponent(log.ComponentLedger)),
	}
}

// Overview is the data behind the dashboard and analytics pages.
type Overview struct {
	Transactions []core.Transaction
	Prediction   core.Prediction
}

// Overview fetches transactions and the forecast in parallel.
func (s *LedgerService) Overview(ctx context.Context, a Actor) (Overview, error) {
	var out Overview
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		txs, err := s.api.ListTransactions(gctx, a.Token)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		out.Transactions = txs
		return nil
	})
	g.Go(func() error {
		p, err := s.api.Predict(gctx, a.Token)
		if err != nil {
			return fmt.Errorf("predict: %w", err)
		}
		out.Prediction = p
		return nil
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return out, nil
}

func (s *LedgerService) Transactions(ctx context.Context, a Actor) ([]core.Transaction, error) {
	txs, err := s.api.ListTransactions(ctx, a.Token)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

func (s *LedgerService) CreateTransaction(ctx context.Context, a Actor, in core.TransactionInput) (core.Transaction, error) {
	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}
	tx, err := s.api.CreateTransaction(ctx, a.Token, in)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	s.announce(ctx, log.OpCreate, "transaction", amqp.NewActivityMessage(amqp.TransactionCreated, a.UserID, tx.ID, in.Title, in.Amount))
	return tx, nil
}

func (s *LedgerService) UpdateTransaction(ctx context.Context, a Actor, id string, in core.TransactionInput) (core.Transaction, error) {
	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}
	tx, err := s.api.UpdateTransaction(ctx, a.Token, id, in)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	s.announce(ctx, log.OpUpdate, "transaction", amqp.NewActivityMessage(amqp.TransactionUpdated, a.UserID, id, in.Title, in.Amount))
	return tx, nil
}

func (s *LedgerService) Goals(ctx context.Context, a Actor) ([]core.Goal, error) {
	goals, err := s.api.ListGoals(ctx, a.Token)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return goals, nil
}

func (s *LedgerService) CreateGoal(ctx context.Context, a Actor, in core.GoalInput) (core.Goal, error) {
	if err := in.Validate(); err != nil {
		return core.Goal{}, err
	}
	goal, err := s.api.CreateGoal(ctx, a.Token, in)
	if err != nil {
		return core.Goal{}, fmt.Errorf("create goal: %w", err)
	}
	s.announce(ctx, log.OpCreate, "goal", amqp.NewActivityMessage(amqp.GoalCreated, a.UserID, goal.ID, in.Title, in.SavedAmount))
	return goal, nil
}

func (s *LedgerService) UpdateGoal(ctx context.Context, a Actor, id string, in core.GoalInput) (core.Goal, error) {
	if err := in.Validate(); err != nil {
		return core.Goal{}, err
	}
	goal, err := s.api.UpdateGoal(ctx, a.Token, id, in)
	if err != nil {
		return core.Goal{}, fmt.Errorf("update goal: %w", err)
	}
	s.announce(ctx, log.OpUpdate, "goal", amqp.NewActivityMessage(amqp.GoalUpdated, a.UserID, id, in.Title, in.SavedAmount))
	return goal, nil
}

// Budget returns the budget for month, nil when none is set.
func (s *LedgerService) Budget(ctx context.Context, a Actor, month string) (*core.Budget, error) {
	if err := core.ValidateMonth(month); err != nil {
		return nil, err
	}
	b, err := s.api.GetBudget(ctx, a.Token, month)
	if err != nil {
		return nil, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

func (s *LedgerService) SetBudget(ctx context.Context, a Actor, in core.BudgetInput) (core.Budget, error) {
	if err := in.Validate(); err != nil {
		return core.Budget{}, err
	}
	b, err := s.api.SetBudget(ctx, a.Token, in)
	if err != nil {
		return core.Budget{}, fmt.Errorf("set budget: %w", err)
	}
	s.announce(ctx, log.OpUpdate, "budget", amqp.NewActivityMessage(amqp.BudgetSet, a.UserID, in.Month, "Budget "+in.Month, in.Amount))
	return b, nil
}

// announce logs the mutation and publishes it. Publish failures are logged
// only; the API call already succeeded.
func (s *LedgerService) announce(ctx context.Context, op, entity string, msg *amqp.ActivityMessage) {
	s.logger.LogMutation(ctx, op, entity, msg.EntityID, msg.UserID, msg.Amount.Cents)

	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishActivity(ctx, msg); err != nil {
		s.logger.LogError(ctx, "Failed to publish activity message", err,
			log.ComponentAMQP, log.OpPublish,
			log.NewFields().WithEntity(entity, msg.EntityID, msg.Amount.Cents).WithUser(msg.UserID))
	}
}
