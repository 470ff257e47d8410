package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	subscriptiondomain "github.com/railzwaylabs/payments/internal/subscription/domain"
	"github.com/shopspring/decimal"
)

type createPlanRequest struct {
	Name          string          `json:"name"`
	Description   *string         `json:"description,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Interval      string          `json:"interval"`
	IntervalCount int             `json:"interval_count"`
}

type createSubscriptionRequest struct {
	PlanID          string `json:"plan_id"`
	UserID          string `json:"user_id"`
	PayerEmail      string `json:"payer_email"`
	CardTokenID     string `json:"card_token_id"`
	NotificationURL string `json:"notification_url,omitempty"`
}

// ListPlans returns active plans unless active_only=false.
// GET /api/v1/subscriptions/plans
func (s *Server) ListPlans(c *gin.Context) {
	activeOnly, ok := boolQuery(c, "active_only", true)
	if !ok {
		return
	}

	plans, err := s.subscriptionSvc.ListPlans(c.Request.Context(), activeOnly)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondList(c, plans)
}

// CreatePlan stores a plan and mirrors it at the gateway.
// POST /api/v1/subscriptions/plans
func (s *Server) CreatePlan(c *gin.Context) {
	var req createPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	amount, err := s.minorAmount(req.Amount, req.Currency)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	plan, err := s.subscriptionSvc.CreatePlan(c.Request.Context(), subscriptiondomain.CreatePlanInput{
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		Amount:        amount,
		Currency:      req.Currency,
		Interval:      strings.TrimSpace(req.Interval),
		IntervalCount: req.IntervalCount,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, plan)
}

// GET /api/v1/subscriptions/plans/:id
func (s *Server) GetPlan(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	plan, err := s.subscriptionSvc.GetPlan(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if plan == nil {
		AbortWithError(c, errPlanNotFound)
		return
	}
	respondData(c, plan)
}

// POST /api/v1/subscriptions/subscriptions
func (s *Server) CreateSubscription(c *gin.Context) {
	var req createSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	planID, err := snowflake.ParseString(strings.TrimSpace(req.PlanID))
	if err != nil {
		AbortWithError(c, newValidationError("plan_id", "invalid_id", "invalid plan_id"))
		return
	}

	sub, err := s.subscriptionSvc.CreateSubscription(c.Request.Context(), subscriptiondomain.CreateSubscriptionInput{
		PlanID:          planID,
		UserID:          strings.TrimSpace(req.UserID),
		PayerEmail:      strings.TrimSpace(req.PayerEmail),
		CardTokenID:     strings.TrimSpace(req.CardTokenID),
		NotificationURL: strings.TrimSpace(req.NotificationURL),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, sub)
}

// GET /api/v1/subscriptions/subscriptions/:id
func (s *Server) GetSubscription(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	sub, err := s.subscriptionSvc.GetSubscription(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if sub == nil {
		AbortWithError(c, subscriptiondomain.ErrSubscriptionNotFound)
		return
	}
	respondData(c, sub)
}

// GET /api/v1/subscriptions/subscriptions/user/:user_id
func (s *Server) ListUserSubscriptions(c *gin.Context) {
	subs, err := s.subscriptionSvc.ListSubscriptionsByUser(c.Request.Context(), strings.TrimSpace(c.Param("user_id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondList(c, subs)
}

// CancelSubscription cancels now, or at the end of the current period when
// at_period_end=true.
// POST /api/v1/subscriptions/subscriptions/:id/cancel
func (s *Server) CancelSubscription(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	atPeriodEnd, ok := boolQuery(c, "at_period_end", false)
	if !ok {
		return
	}

	sub, err := s.subscriptionSvc.Cancel(c.Request.Context(), id, atPeriodEnd)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if sub == nil {
		AbortWithError(c, subscriptiondomain.ErrSubscriptionNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": sub.Status})
}

func boolQuery(c *gin.Context, name string, fallback bool) (bool, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		AbortWithError(c, newValidationError(name, "invalid_bool", name+" must be true or false"))
		return false, false
	}
	return v, true
}
