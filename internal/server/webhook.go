package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

// HandleMercadoPagoWebhook always answers 200 so the gateway does not retry;
// ok is false only when the notification named no resource.
// POST /api/v1/webhooks/mercadopago
func (s *Server) HandleMercadoPagoWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		s.log.Warn("read webhook body", zap.Error(err))
	}

	result := s.webhooks.Reconcile(c.Request.Context(), body, c.Request.URL.Query())
	c.JSON(http.StatusOK, result)
}
