package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/knitkart/orderflow/internal/clock"
	"github.com/knitkart/orderflow/internal/config"
	"github.com/knitkart/orderflow/internal/locks"
	notifdomain "github.com/knitkart/orderflow/internal/notification/domain"
	"github.com/knitkart/orderflow/internal/notification/dispatcher"
	obsmetrics "github.com/knitkart/orderflow/internal/observability/metrics"
	"github.com/knitkart/orderflow/internal/order/domain"
	paydomain "github.com/knitkart/orderflow/internal/payment/domain"
	"github.com/knitkart/orderflow/internal/payment/verify"
	"github.com/knitkart/orderflow/internal/phone"
	"github.com/knitkart/orderflow/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Config     config.Config
	Clock      clock.Clock
	Repo       domain.Repository
	Gateway    paydomain.Gateway
	Dispatcher *dispatcher.Dispatcher
	Channels   []notifdomain.Channel
	Locks      locks.Locker
	Metrics    *obsmetrics.Metrics
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	cfg        config.Config
	clock      clock.Clock
	repo       domain.Repository
	gateway    paydomain.Gateway
	dispatcher *dispatcher.Dispatcher
	channels   []notifdomain.Channel
	locks      locks.Locker
	metrics    *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("order.service"),
		genID:      p.GenID,
		cfg:        p.Config,
		clock:      p.Clock,
		repo:       p.Repo,
		gateway:    p.Gateway,
		dispatcher: p.Dispatcher,
		channels:   p.Channels,
		locks:      p.Locks,
		metrics:    p.Metrics,
	}
}

// Initiate validates the order and branches on payment method. Prepaid
// orders only get a gateway intent here; nothing is persisted until the
// payment proof comes back. COD orders are confirmed on the spot.
func (s *Service) Initiate(ctx context.Context, req domain.InitiateOrderRequest) (domain.InitiateOrderResponse, error) {
	if err := s.validateOrder(req.Items, req.Address, req.TotalMinor); err != nil {
		return domain.InitiateOrderResponse{}, err
	}

	switch req.PaymentMethod {
	case domain.PaymentPrepaid:
		receipt := fmt.Sprintf("rcpt_%d", s.genID.Generate())
		intent, err := s.gateway.CreateIntent(ctx, req.TotalMinor, s.cfg.Gateway.Currency, receipt)
		if err != nil {
			return domain.InitiateOrderResponse{}, err
		}
		return domain.InitiateOrderResponse{PaymentIntent: &intent}, nil

	case domain.PaymentCOD:
		order := s.newOrder(req.Items, req.Address, domain.PaymentCOD, req.TotalMinor)
		if err := s.repo.Insert(ctx, s.db, order); err != nil {
			return domain.InitiateOrderResponse{}, err
		}
		s.metrics.RecordOrderConfirmed(ctx, string(domain.PaymentCOD))
		report := s.notify(ctx, order)
		return domain.InitiateOrderResponse{
			OrderID: order.ID.String(),
			Report:  report,
		}, nil

	default:
		return domain.InitiateOrderResponse{}, domain.ErrInvalidPaymentMethod
	}
}

// ConfirmPayment verifies the gateway proof and, only then, persists
// the order and notifies. A forged signature leaves no trace in the
// store.
func (s *Service) ConfirmPayment(ctx context.Context, req domain.ConfirmPaymentRequest) (domain.ConfirmedOrderResponse, error) {
	if err := s.validateOrder(req.Items, req.Address, req.TotalMinor); err != nil {
		return domain.ConfirmedOrderResponse{}, err
	}

	release, acquired, err := s.locks.TryAcquire(ctx, req.GatewayOrderID)
	if err != nil {
		return domain.ConfirmedOrderResponse{}, err
	}
	if !acquired {
		return domain.ConfirmedOrderResponse{}, domain.ErrDuplicateSubmission
	}
	defer release()

	proof := paydomain.Proof{
		GatewayOrderID:   req.GatewayOrderID,
		GatewayPaymentID: req.GatewayPaymentID,
		Signature:        req.Signature,
	}
	valid, err := verify.Verify(proof, s.cfg.Gateway.KeySecret)
	s.metrics.RecordPaymentVerification(ctx, err == nil && valid)
	if err != nil {
		return domain.ConfirmedOrderResponse{}, err
	}
	if !valid {
		s.log.Warn("payment signature mismatch",
			zap.String("gateway_order_id", req.GatewayOrderID),
		)
		return domain.ConfirmedOrderResponse{}, paydomain.ErrInvalidSignature
	}

	order := s.newOrder(req.Items, req.Address, domain.PaymentPrepaid, req.TotalMinor)
	order.PaymentID = &req.GatewayPaymentID
	order.GatewayOrderID = &req.GatewayOrderID
	if err := s.repo.Insert(ctx, s.db, order); err != nil {
		// The unique gateway_order_id index backs the lock for
		// replicas that race past it.
		if db.IsDuplicateKeyErr(err) {
			return domain.ConfirmedOrderResponse{}, domain.ErrDuplicateSubmission
		}
		return domain.ConfirmedOrderResponse{}, err
	}
	s.metrics.RecordOrderConfirmed(ctx, string(domain.PaymentPrepaid))

	return domain.ConfirmedOrderResponse{
		OrderID: order.ID.String(),
		Report:  s.notify(ctx, order),
	}, nil
}

// Save is the permissive direct-persistence path for callers that
// already hold a settled order. No payment check is performed.
func (s *Service) Save(ctx context.Context, req domain.SaveOrderRequest) (domain.ConfirmedOrderResponse, error) {
	if err := s.validateOrder(req.Items, req.Address, req.TotalMinor); err != nil {
		return domain.ConfirmedOrderResponse{}, err
	}
	if req.PaymentMethod != domain.PaymentPrepaid && req.PaymentMethod != domain.PaymentCOD {
		return domain.ConfirmedOrderResponse{}, domain.ErrInvalidPaymentMethod
	}

	status := req.Status
	if status == "" {
		status = domain.StatusConfirmed
	}
	if status != domain.StatusPending && status != domain.StatusConfirmed {
		return domain.ConfirmedOrderResponse{}, domain.ErrInvalidStatus
	}

	order := s.newOrder(req.Items, req.Address, req.PaymentMethod, req.TotalMinor)
	order.Status = status
	if req.PaymentID != "" {
		order.PaymentID = &req.PaymentID
	}
	if err := s.repo.Insert(ctx, s.db, order); err != nil {
		return domain.ConfirmedOrderResponse{}, err
	}

	return domain.ConfirmedOrderResponse{
		OrderID: order.ID.String(),
		Report:  s.notify(ctx, order),
	}, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetOrderRequest) (domain.Order, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil {
		return domain.Order{}, domain.ErrInvalidID
	}
	order, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Order{}, err
	}
	if order == nil {
		return domain.Order{}, domain.ErrNotFound
	}
	return *order, nil
}

func (s *Service) newOrder(items []domain.Item, address domain.Address, method domain.PaymentMethod, totalMinor int64) *domain.Order {
	return &domain.Order{
		ID:            s.genID.Generate(),
		Items:         datatypes.NewJSONSlice(items),
		Address:       datatypes.NewJSONType(address),
		PaymentMethod: method,
		TotalMinor:    totalMinor,
		Currency:      s.cfg.Gateway.Currency,
		Status:        domain.StatusConfirmed,
		CreatedAt:     s.clock.Now(),
	}
}

// notify sends the admin and customer copies of the order notification.
// The two requests run concurrently; the report lists admin outcomes
// first. Delivery failure never fails the order.
func (s *Service) notify(ctx context.Context, order *domain.Order) []notifdomain.Outcome {
	address := order.Address.Data()

	adminReq := notifdomain.Request{
		Recipient: s.cfg.Notify.AdminPhone,
		Body:      s.adminBody(order, address),
		Channels:  s.channels,
	}
	customerReq := notifdomain.Request{
		Recipient: address.Phone,
		Body:      s.customerBody(order, address),
		Channels:  s.channels,
	}

	var (
		wg       sync.WaitGroup
		admin    []notifdomain.Outcome
		customer []notifdomain.Outcome
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		admin = s.dispatcher.Dispatch(ctx, adminReq)
	}()
	go func() {
		defer wg.Done()
		customer = s.dispatcher.Dispatch(ctx, customerReq)
	}()
	wg.Wait()

	return append(admin, customer...)
}

func (s *Service) adminBody(order *domain.Order, address domain.Address) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New order %s (%s, %s)\n", order.ID, order.PaymentMethod, order.Status)
	for _, item := range order.Items {
		fmt.Fprintf(&b, "- %s x%d @ %s\n", item.Name, item.Quantity, formatMinor(item.UnitPriceMinor, order.Currency))
	}
	fmt.Fprintf(&b, "Total: %s\n", formatMinor(order.TotalMinor, order.Currency))
	fmt.Fprintf(&b, "Ship to: %s, %s, %s, %s %s\n", address.FullName, address.Street, address.City, address.State, address.ZipCode)
	fmt.Fprintf(&b, "Contact: %s / %s", address.Phone, address.Email)
	return b.String()
}

func (s *Service) customerBody(order *domain.Order, address domain.Address) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s, your order %s with %s is confirmed.\n", address.FullName, order.ID, s.cfg.Notify.StoreName)
	fmt.Fprintf(&b, "Total: %s", formatMinor(order.TotalMinor, order.Currency))
	if order.PaymentMethod == domain.PaymentCOD {
		b.WriteString(" (payable on delivery)")
	}
	return b.String()
}

// formatMinor renders a minor-unit amount as a major-unit decimal, e.g.
// 50000 INR -> "INR 500.00".
func formatMinor(minor int64, currency string) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s %s%d.%02d", currency, sign, minor/100, minor%100)
}

// validateOrder enforces the request invariants shared by every entry
// point: non-empty items with sane prices and quantities, a complete
// shipping address, and a total that exactly matches the item sum in
// minor units. The phone is normalized with the same country code the
// delivery channels use.
func (s *Service) validateOrder(items []domain.Item, address domain.Address, totalMinor int64) error {
	if len(items) == 0 {
		return domain.ErrInvalidItems
	}
	var sum int64
	for _, item := range items {
		if strings.TrimSpace(item.Name) == "" {
			return domain.ErrInvalidItemName
		}
		if item.UnitPriceMinor <= 0 {
			return domain.ErrInvalidUnitPrice
		}
		if item.Quantity <= 0 {
			return domain.ErrInvalidQuantity
		}
		sum += item.UnitPriceMinor * item.Quantity
	}

	if strings.TrimSpace(address.FullName) == "" {
		return domain.ErrInvalidFullName
	}
	if strings.TrimSpace(address.Street) == "" {
		return domain.ErrInvalidStreet
	}
	if strings.TrimSpace(address.City) == "" {
		return domain.ErrInvalidCity
	}
	if strings.TrimSpace(address.State) == "" {
		return domain.ErrInvalidState
	}
	if strings.TrimSpace(address.ZipCode) == "" {
		return domain.ErrInvalidZipCode
	}
	email := strings.TrimSpace(address.Email)
	if email == "" || !strings.Contains(email, "@") {
		return domain.ErrInvalidEmail
	}
	if phone.Normalize(address.Phone, s.cfg.Chat.CountryCode) == "" {
		return domain.ErrInvalidPhone
	}

	if totalMinor != sum {
		return domain.ErrInvalidTotal
	}
	return nil
}
