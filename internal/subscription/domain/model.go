package domain

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/payments/internal/money"
)

const GatewayMercadoPago = "mercadopago"

const (
	IntervalDay   = "day"
	IntervalMonth = "month"
	IntervalYear  = "year"
)

// SubscriptionStatus mirrors the gateway's preapproval status vocabulary.
// Unrecognised values are stored verbatim.
type SubscriptionStatus string

const (
	SubscriptionStatusPending    SubscriptionStatus = "pending"
	SubscriptionStatusAuthorized SubscriptionStatus = "authorized"
	SubscriptionStatusPaused     SubscriptionStatus = "paused"
	SubscriptionStatusCancelled  SubscriptionStatus = "cancelled"
)

func (s SubscriptionStatus) Known() bool {
	switch s {
	case SubscriptionStatusPending, SubscriptionStatusAuthorized, SubscriptionStatusPaused, SubscriptionStatusCancelled:
		return true
	}
	return false
}

// Plan is immutable once created; there is no update path for amount or interval.
type Plan struct {
	ID            snowflake.ID `json:"id" gorm:"primaryKey"`
	Name          string       `json:"name" gorm:"type:varchar(255);not null"`
	Description   *string      `json:"description,omitempty" gorm:"type:text"`
	Amount        int64        `json:"amount" gorm:"not null"`
	Currency      string       `json:"currency" gorm:"type:varchar(3);not null"`
	Interval      string       `json:"interval" gorm:"type:varchar(20);not null"`
	IntervalCount int          `json:"interval_count" gorm:"not null;default:1"`
	Gateway       string       `json:"gateway" gorm:"type:varchar(50);not null"`
	GatewayPlanID *string      `json:"gateway_plan_id,omitempty" gorm:"type:varchar(255)"`
	Active        bool         `json:"active" gorm:"not null;default:true;index"`
	CreatedAt     time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt     time.Time    `json:"updated_at" gorm:"not null"`
}

func (Plan) TableName() string { return "plans" }

// MarshalJSON renders Amount in major units of Currency.
func (p Plan) MarshalJSON() ([]byte, error) {
	type plan Plan
	return json.Marshal(struct {
		plan
		Amount json.Number `json:"amount"`
	}{plan(p), money.Number(p.Amount, p.Currency)})
}

// Linked reports whether the plan has been mirrored at the gateway.
func (p Plan) Linked() bool {
	return p.GatewayPlanID != nil && *p.GatewayPlanID != ""
}

type Subscription struct {
	ID                    snowflake.ID       `json:"id" gorm:"primaryKey"`
	PlanID                snowflake.ID       `json:"plan_id" gorm:"not null;index"`
	UserID                string             `json:"user_id" gorm:"type:varchar(255);not null;index"`
	Gateway               string             `json:"gateway" gorm:"type:varchar(50);not null"`
	GatewaySubscriptionID *string            `json:"gateway_subscription_id,omitempty" gorm:"type:varchar(255);index"`
	Status                SubscriptionStatus `json:"status" gorm:"type:varchar(50);not null;index"`
	CurrentPeriodStart    *time.Time         `json:"current_period_start,omitempty"`
	CurrentPeriodEnd      *time.Time         `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd     bool               `json:"cancel_at_period_end" gorm:"not null;default:false"`
	CancelledAt           *time.Time         `json:"cancelled_at,omitempty"`
	CreatedAt             time.Time          `json:"created_at" gorm:"not null"`
	UpdatedAt             time.Time          `json:"updated_at" gorm:"not null"`

	Plan *Plan `json:"-" gorm:"foreignKey:PlanID;constraint:OnDelete:RESTRICT"`
}

func (Subscription) TableName() string { return "subscriptions" }
