package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/knitkart/orderflow/internal/clock"
	"github.com/knitkart/orderflow/internal/config"
	"github.com/knitkart/orderflow/internal/locks"
	notifdomain "github.com/knitkart/orderflow/internal/notification/domain"
	"github.com/knitkart/orderflow/internal/notification/dispatcher"
	"github.com/knitkart/orderflow/internal/order/domain"
	orderrepo "github.com/knitkart/orderflow/internal/order/repository"
	paydomain "github.com/knitkart/orderflow/internal/payment/domain"
	"github.com/knitkart/orderflow/internal/payment/verify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type gatewayStub struct {
	mu     sync.Mutex
	calls  int
	intent paydomain.Intent
	err    error
}

func (g *gatewayStub) CreateIntent(ctx context.Context, amountMinor int64, currency, receipt string) (paydomain.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return paydomain.Intent{}, g.err
	}
	intent := g.intent
	if intent.GatewayOrderID == "" {
		intent = paydomain.Intent{GatewayOrderID: "order_stub", AmountMinor: amountMinor, Currency: currency}
	}
	return intent, nil
}

func (g *gatewayStub) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type channelStub struct {
	mu         sync.Mutex
	name       string
	fail       bool
	recipients []string
	bodies     []string
}

func (c *channelStub) Name() string { return c.name }

func (c *channelStub) Send(ctx context.Context, phone, body string) notifdomain.Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recipients = append(c.recipients, phone)
	c.bodies = append(c.bodies, body)
	if c.fail {
		return notifdomain.Failed(c.name, fmt.Errorf("send failed"))
	}
	return notifdomain.Delivered(c.name, "mid_1")
}

func (c *channelStub) Recipients() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.recipients...)
}

const testSecret = "sk_test_secret"

var testNow = time.Date(2026, time.March, 14, 10, 30, 0, 0, time.UTC)

func setupService(t *testing.T, gateway paydomain.Gateway, channels []notifdomain.Channel) (domain.Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Order{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg := config.Config{
		Chat:    config.ChatConfig{CountryCode: "91"},
		Gateway: config.GatewayConfig{Currency: "INR", KeySecret: testSecret},
		Notify:  config.NotifyConfig{AdminPhone: "9301680755", StoreName: "KnitKart"},
	}

	svc := New(Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Config:     cfg,
		Clock:      clock.NewFakeClock(testNow),
		Repo:       orderrepo.Provide(),
		Gateway:    gateway,
		Dispatcher: dispatcher.New(zap.NewNop(), nil, dispatcher.WithSendTimeout(time.Second)),
		Channels:   channels,
		Locks:      locks.NewLocal(),
		Metrics:    nil,
	})
	return svc, db
}

func validItems() []domain.Item {
	return []domain.Item{
		{Name: "Wool Scarf", UnitPriceMinor: 20000, Quantity: 2},
		{Name: "Beanie", UnitPriceMinor: 10000, Quantity: 1},
	}
}

func validAddress() domain.Address {
	return domain.Address{
		FullName: "Asha Verma",
		Street:   "14 MG Road",
		City:     "Indore",
		State:    "MP",
		ZipCode:  "452001",
		Email:    "asha@example.com",
		Phone:    "09301680755",
	}
}

func countOrders(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&domain.Order{}).Count(&n).Error)
	return n
}

func TestInitiateRejectsMismatchedTotal(t *testing.T) {
	gateway := &gatewayStub{}
	svc, db := setupService(t, gateway, nil)

	_, err := svc.Initiate(context.Background(), domain.InitiateOrderRequest{
		Items:         validItems(),
		Address:       validAddress(),
		PaymentMethod: domain.PaymentPrepaid,
		TotalMinor:    49999,
	})

	assert.ErrorIs(t, err, domain.ErrInvalidTotal)
	assert.Equal(t, 0, gateway.Calls(), "no gateway call on validation failure")
	assert.EqualValues(t, 0, countOrders(t, db))
}

func TestInitiateValidationNamesOffendingField(t *testing.T) {
	svc, _ := setupService(t, &gatewayStub{}, nil)

	cases := []struct {
		name    string
		mutate  func(*domain.InitiateOrderRequest)
		wantErr error
	}{
		{"no items", func(r *domain.InitiateOrderRequest) { r.Items = nil }, domain.ErrInvalidItems},
		{"blank item name", func(r *domain.InitiateOrderRequest) { r.Items[0].Name = " " }, domain.ErrInvalidItemName},
		{"zero price", func(r *domain.InitiateOrderRequest) { r.Items[0].UnitPriceMinor = 0 }, domain.ErrInvalidUnitPrice},
		{"zero quantity", func(r *domain.InitiateOrderRequest) { r.Items[0].Quantity = 0 }, domain.ErrInvalidQuantity},
		{"missing name", func(r *domain.InitiateOrderRequest) { r.Address.FullName = "" }, domain.ErrInvalidFullName},
		{"missing street", func(r *domain.InitiateOrderRequest) { r.Address.Street = "" }, domain.ErrInvalidStreet},
		{"missing city", func(r *domain.InitiateOrderRequest) { r.Address.City = "" }, domain.ErrInvalidCity},
		{"missing state", func(r *domain.InitiateOrderRequest) { r.Address.State = "" }, domain.ErrInvalidState},
		{"missing zip", func(r *domain.InitiateOrderRequest) { r.Address.ZipCode = "" }, domain.ErrInvalidZipCode},
		{"bad email", func(r *domain.InitiateOrderRequest) { r.Address.Email = "not-an-email" }, domain.ErrInvalidEmail},
		{"bad phone", func(r *domain.InitiateOrderRequest) { r.Address.Phone = "---" }, domain.ErrInvalidPhone},
		{"bad method", func(r *domain.InitiateOrderRequest) { r.PaymentMethod = "crypto" }, domain.ErrInvalidPaymentMethod},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := domain.InitiateOrderRequest{
				Items:         validItems(),
				Address:       validAddress(),
				PaymentMethod: domain.PaymentCOD,
				TotalMinor:    50000,
			}
			tc.mutate(&req)
			_, err := svc.Initiate(context.Background(), req)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestInitiatePrepaidReturnsIntentWithoutPersisting(t *testing.T) {
	gateway := &gatewayStub{intent: paydomain.Intent{GatewayOrderID: "order_abc", AmountMinor: 50000, Currency: "INR"}}
	svc, db := setupService(t, gateway, nil)

	resp, err := svc.Initiate(context.Background(), domain.InitiateOrderRequest{
		Items:         validItems(),
		Address:       validAddress(),
		PaymentMethod: domain.PaymentPrepaid,
		TotalMinor:    50000,
	})

	require.NoError(t, err)
	require.NotNil(t, resp.PaymentIntent)
	assert.Equal(t, "order_abc", resp.PaymentIntent.GatewayOrderID)
	assert.Empty(t, resp.OrderID)
	assert.EqualValues(t, 0, countOrders(t, db), "prepaid intents must never hit the store")
}

func TestInitiateCODConfirmsPersistsAndNotifies(t *testing.T) {
	channel := &channelStub{name: "chat"}
	svc, db := setupService(t, &gatewayStub{}, []notifdomain.Channel{channel})

	resp, err := svc.Initiate(context.Background(), domain.InitiateOrderRequest{
		Items:         validItems(),
		Address:       validAddress(),
		PaymentMethod: domain.PaymentCOD,
		TotalMinor:    50000,
	})

	require.NoError(t, err)
	assert.NotEmpty(t, resp.OrderID)
	require.Len(t, resp.Report, 2, "admin and customer outcomes")
	for _, outcome := range resp.Report {
		assert.True(t, outcome.Delivered)
	}

	var stored domain.Order
	require.NoError(t, db.Take(&stored).Error)
	assert.Equal(t, domain.StatusConfirmed, stored.Status)
	assert.Equal(t, domain.PaymentCOD, stored.PaymentMethod)
	assert.Nil(t, stored.PaymentID)
	assert.EqualValues(t, 50000, stored.TotalMinor)
	assert.True(t, stored.CreatedAt.Equal(testNow))

	assert.ElementsMatch(t, []string{"9301680755", "09301680755"}, channel.Recipients())
}

func TestConfirmPaymentPersistsOnlyWithValidSignature(t *testing.T) {
	channel := &channelStub{name: "chat"}
	svc, db := setupService(t, &gatewayStub{}, []notifdomain.Channel{channel})

	signature := verify.Signature(testSecret, "order_abc", "pay_123")
	resp, err := svc.ConfirmPayment(context.Background(), domain.ConfirmPaymentRequest{
		GatewayOrderID:   "order_abc",
		GatewayPaymentID: "pay_123",
		Signature:        signature,
		Items:            validItems(),
		Address:          validAddress(),
		TotalMinor:       50000,
	})

	require.NoError(t, err)
	assert.NotEmpty(t, resp.OrderID)
	assert.Len(t, resp.Report, 2)

	var stored domain.Order
	require.NoError(t, db.Take(&stored).Error)
	assert.Equal(t, domain.PaymentPrepaid, stored.PaymentMethod)
	require.NotNil(t, stored.PaymentID)
	assert.Equal(t, "pay_123", *stored.PaymentID)
	require.NotNil(t, stored.GatewayOrderID)
	assert.Equal(t, "order_abc", *stored.GatewayOrderID)
}

func TestConfirmPaymentForgedSignatureLeavesNoTrace(t *testing.T) {
	channel := &channelStub{name: "chat"}
	svc, db := setupService(t, &gatewayStub{}, []notifdomain.Channel{channel})

	_, err := svc.ConfirmPayment(context.Background(), domain.ConfirmPaymentRequest{
		GatewayOrderID:   "order_abc",
		GatewayPaymentID: "pay_123",
		Signature:        verify.Signature("wrong_secret", "order_abc", "pay_123"),
		Items:            validItems(),
		Address:          validAddress(),
		TotalMinor:       50000,
	})

	assert.ErrorIs(t, err, paydomain.ErrInvalidSignature)
	assert.EqualValues(t, 0, countOrders(t, db))
	assert.Empty(t, channel.Recipients(), "no notification on verification failure")
}

func TestConfirmPaymentDuplicateSubmissionRejected(t *testing.T) {
	svc, db := setupService(t, &gatewayStub{}, nil)

	req := domain.ConfirmPaymentRequest{
		GatewayOrderID:   "order_abc",
		GatewayPaymentID: "pay_123",
		Signature:        verify.Signature(testSecret, "order_abc", "pay_123"),
		Items:            validItems(),
		Address:          validAddress(),
		TotalMinor:       50000,
	}

	_, err := svc.ConfirmPayment(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.ConfirmPayment(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrDuplicateSubmission)
	assert.EqualValues(t, 1, countOrders(t, db), "replay must not insert a second record")
}

func TestConfirmPaymentMissingProofRejected(t *testing.T) {
	svc, db := setupService(t, &gatewayStub{}, nil)

	_, err := svc.ConfirmPayment(context.Background(), domain.ConfirmPaymentRequest{
		GatewayOrderID: "order_abc",
		Items:          validItems(),
		Address:        validAddress(),
		TotalMinor:     50000,
	})

	assert.ErrorIs(t, err, paydomain.ErrMissingProof)
	assert.EqualValues(t, 0, countOrders(t, db))
}

func TestNotificationFailureDoesNotFailOrder(t *testing.T) {
	channel := &channelStub{name: "chat", fail: true}
	svc, db := setupService(t, &gatewayStub{}, []notifdomain.Channel{channel})

	resp, err := svc.Initiate(context.Background(), domain.InitiateOrderRequest{
		Items:         validItems(),
		Address:       validAddress(),
		PaymentMethod: domain.PaymentCOD,
		TotalMinor:    50000,
	})

	require.NoError(t, err, "delivery failure must not fail the order")
	require.Len(t, resp.Report, 2)
	for _, outcome := range resp.Report {
		assert.False(t, outcome.Delivered)
		assert.NotEmpty(t, outcome.ErrorDetail)
	}
	assert.EqualValues(t, 1, countOrders(t, db))
}

func TestSavePersistsWithoutPaymentCheck(t *testing.T) {
	channel := &channelStub{name: "chat"}
	svc, db := setupService(t, &gatewayStub{}, []notifdomain.Channel{channel})

	resp, err := svc.Save(context.Background(), domain.SaveOrderRequest{
		Items:         validItems(),
		Address:       validAddress(),
		PaymentMethod: domain.PaymentPrepaid,
		TotalMinor:    50000,
		PaymentID:     "pay_legacy",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, resp.OrderID)

	var stored domain.Order
	require.NoError(t, db.Take(&stored).Error)
	assert.Equal(t, domain.StatusConfirmed, stored.Status)
	require.NotNil(t, stored.PaymentID)
	assert.Equal(t, "pay_legacy", *stored.PaymentID)
}

func TestSaveRejectsUnknownStatus(t *testing.T) {
	svc, _ := setupService(t, &gatewayStub{}, nil)

	_, err := svc.Save(context.Background(), domain.SaveOrderRequest{
		Items:         validItems(),
		Address:       validAddress(),
		PaymentMethod: domain.PaymentCOD,
		TotalMinor:    50000,
		Status:        "shipped",
	})

	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestGetByID(t *testing.T) {
	svc, _ := setupService(t, &gatewayStub{}, nil)

	resp, err := svc.Initiate(context.Background(), domain.InitiateOrderRequest{
		Items:         validItems(),
		Address:       validAddress(),
		PaymentMethod: domain.PaymentCOD,
		TotalMinor:    50000,
	})
	require.NoError(t, err)

	order, err := svc.GetByID(context.Background(), domain.GetOrderRequest{ID: resp.OrderID})
	require.NoError(t, err)
	assert.Equal(t, resp.OrderID, order.ID.String())

	_, err = svc.GetByID(context.Background(), domain.GetOrderRequest{ID: "999999999999999999"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.GetByID(context.Background(), domain.GetOrderRequest{ID: "not-a-number"})
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}
