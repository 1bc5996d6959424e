package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	orderdomain "github.com/knitkart/orderflow/internal/order/domain"
)

type initiateOrderRequest struct {
	Items         []orderdomain.Item  `json:"items"`
	Address       orderdomain.Address `json:"address"`
	PaymentMethod string              `json:"payment_method"`
	Total         int64               `json:"total"`
}

func (s *Server) InitiateOrder(c *gin.Context) {
	var req initiateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.ordersvc.Initiate(c.Request.Context(), orderdomain.InitiateOrderRequest{
		Items:         req.Items,
		Address:       req.Address,
		PaymentMethod: orderdomain.PaymentMethod(strings.TrimSpace(req.PaymentMethod)),
		TotalMinor:    req.Total,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type confirmPaymentRequest struct {
	GatewayOrderID   string              `json:"gateway_order_id"`
	GatewayPaymentID string              `json:"gateway_payment_id"`
	Signature        string              `json:"signature"`
	Items            []orderdomain.Item  `json:"items"`
	Address          orderdomain.Address `json:"address"`
	Total            int64               `json:"total"`
}

func (s *Server) ConfirmPayment(c *gin.Context) {
	var req confirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if strings.TrimSpace(req.GatewayOrderID) == "" {
		AbortWithError(c, newValidationError("gateway_order_id", "invalid_gateway_order_id", "invalid gateway order id"))
		return
	}
	if strings.TrimSpace(req.GatewayPaymentID) == "" {
		AbortWithError(c, newValidationError("gateway_payment_id", "invalid_gateway_payment_id", "invalid gateway payment id"))
		return
	}
	if strings.TrimSpace(req.Signature) == "" {
		AbortWithError(c, newValidationError("signature", "invalid_signature", "invalid signature"))
		return
	}

	resp, err := s.ordersvc.ConfirmPayment(c.Request.Context(), orderdomain.ConfirmPaymentRequest{
		GatewayOrderID:   strings.TrimSpace(req.GatewayOrderID),
		GatewayPaymentID: strings.TrimSpace(req.GatewayPaymentID),
		Signature:        strings.TrimSpace(req.Signature),
		Items:            req.Items,
		Address:          req.Address,
		TotalMinor:       req.Total,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type saveOrderRequest struct {
	Items         []orderdomain.Item  `json:"items"`
	Address       orderdomain.Address `json:"address"`
	PaymentMethod string              `json:"payment_method"`
	Total         int64               `json:"total"`
	PaymentID     string              `json:"payment_id"`
	Status        string              `json:"status"`
}

func (s *Server) SaveOrder(c *gin.Context) {
	var req saveOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.ordersvc.Save(c.Request.Context(), orderdomain.SaveOrderRequest{
		Items:         req.Items,
		Address:       req.Address,
		PaymentMethod: orderdomain.PaymentMethod(strings.TrimSpace(req.PaymentMethod)),
		TotalMinor:    req.Total,
		PaymentID:     strings.TrimSpace(req.PaymentID),
		Status:        orderdomain.Status(strings.TrimSpace(req.Status)),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetOrderByID(c *gin.Context) {
	order, err := s.ordersvc.GetByID(c.Request.Context(), orderdomain.GetOrderRequest{
		ID: c.Param("id"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": order})
}
