package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type PaymentMethod string

const (
	PaymentPrepaid PaymentMethod = "prepaid"
	PaymentCOD     PaymentMethod = "cod"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
)

type Item struct {
	Name           string `json:"name"`
	UnitPriceMinor int64  `json:"unit_price"`
	Quantity       int64  `json:"quantity"`
}

type Address struct {
	FullName string `json:"full_name"`
	Street   string `json:"street"`
	City     string `json:"city"`
	State    string `json:"state"`
	ZipCode  string `json:"zip_code"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

type Order struct {
	ID             snowflake.ID                `gorm:"primaryKey" json:"id"`
	Items          datatypes.JSONSlice[Item]   `gorm:"type:jsonb;not null" json:"items"`
	Address        datatypes.JSONType[Address] `gorm:"type:jsonb;not null" json:"address"`
	PaymentMethod  PaymentMethod               `gorm:"not null" json:"payment_method"`
	TotalMinor     int64                       `gorm:"not null" json:"total"`
	Currency       string                      `gorm:"not null" json:"currency"`
	PaymentID      *string                     `gorm:"column:payment_id" json:"payment_id,omitempty"`
	GatewayOrderID *string                     `gorm:"column:gateway_order_id;uniqueIndex" json:"gateway_order_id,omitempty"`
	Status         Status                      `gorm:"not null" json:"status"`
	CreatedAt      time.Time                   `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}
