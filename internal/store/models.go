package store

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Withdrawal lifecycle. pending is the only state an admin can act on;
// approved and rejected are terminal.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Transaction types. Amounts are signed: debits are negative.
const (
	TxPurchase         = "purchase"
	TxCashoutRequest   = "cashout_request"
	TxRefund           = "refund"
	TxCompletionReward = "completion_reward"
)

// Admin resolution actions.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

type User struct {
	ID        int64
	CreatedAt time.Time
}

type Course struct {
	ID         int64
	Title      string
	PriceCoins int64
	CreatedAt  time.Time
}

type Transaction struct {
	ID          int64
	UserID      int64
	Type        string
	Amount      int64
	RelatedID   string
	Description string
	CreatedAt   time.Time
}

type Enrollment struct {
	ID        int64
	UserID    int64
	CourseID  int64
	CreatedAt time.Time
}

type Withdrawal struct {
	ID             uuid.UUID
	UserID         int64
	AmountCoins    int64
	AmountCash     decimal.Decimal
	PaymentMethod  string
	PaymentDetails json.RawMessage
	Status         string
	IdempotencyKey string
	CreatedAt      time.Time
	ProcessedAt    *time.Time
}

type CreateWithdrawalInput struct {
	UserID         int64
	AmountCoins    int64
	PaymentMethod  string
	PaymentDetails json.RawMessage
	IdempotencyKey string
}

type Completion struct {
	UserID      int64
	CourseID    int64
	CompletedAt time.Time
}
