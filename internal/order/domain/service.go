package domain

import (
	"context"
	"errors"

	notifdomain "github.com/knitkart/orderflow/internal/notification/domain"
	paydomain "github.com/knitkart/orderflow/internal/payment/domain"
)

type InitiateOrderRequest struct {
	Items         []Item        `json:"items"`
	Address       Address       `json:"address"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	TotalMinor    int64         `json:"total"`
}

// InitiateOrderResponse carries exactly one of Intent (prepaid, order
// not yet persisted) or OrderID plus the notification report (cod,
// order confirmed).
type InitiateOrderResponse struct {
	PaymentIntent *paydomain.Intent     `json:"payment_intent,omitempty"`
	OrderID       string                `json:"order_id,omitempty"`
	Report        []notifdomain.Outcome `json:"notification_report,omitempty"`
}

type ConfirmPaymentRequest struct {
	GatewayOrderID   string  `json:"gateway_order_id"`
	GatewayPaymentID string  `json:"gateway_payment_id"`
	Signature        string  `json:"signature"`
	Items            []Item  `json:"items"`
	Address          Address `json:"address"`
	TotalMinor       int64   `json:"total"`
}

type SaveOrderRequest struct {
	Items         []Item        `json:"items"`
	Address       Address       `json:"address"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	TotalMinor    int64         `json:"total"`
	PaymentID     string        `json:"payment_id"`
	Status        Status        `json:"status"`
}

type ConfirmedOrderResponse struct {
	OrderID string                `json:"order_id"`
	Report  []notifdomain.Outcome `json:"notification_report"`
}

type GetOrderRequest struct {
	ID string
}

type Service interface {
	Initiate(context.Context, InitiateOrderRequest) (InitiateOrderResponse, error)
	ConfirmPayment(context.Context, ConfirmPaymentRequest) (ConfirmedOrderResponse, error)
	Save(context.Context, SaveOrderRequest) (ConfirmedOrderResponse, error)
	GetByID(context.Context, GetOrderRequest) (Order, error)
}

var (
	ErrInvalidItems         = errors.New("invalid_items")
	ErrInvalidItemName      = errors.New("invalid_item_name")
	ErrInvalidUnitPrice     = errors.New("invalid_unit_price")
	ErrInvalidQuantity      = errors.New("invalid_quantity")
	ErrInvalidFullName      = errors.New("invalid_full_name")
	ErrInvalidStreet        = errors.New("invalid_street")
	ErrInvalidCity          = errors.New("invalid_city")
	ErrInvalidState         = errors.New("invalid_state")
	ErrInvalidZipCode       = errors.New("invalid_zip_code")
	ErrInvalidEmail         = errors.New("invalid_email")
	ErrInvalidPhone         = errors.New("invalid_phone")
	ErrInvalidPaymentMethod = errors.New("invalid_payment_method")
	ErrInvalidTotal         = errors.New("invalid_total")
	ErrInvalidStatus        = errors.New("invalid_status")
	ErrInvalidID            = errors.New("invalid_id")
	ErrDuplicateSubmission  = errors.New("duplicate_submission")
	ErrNotFound             = errors.New("not_found")
)
