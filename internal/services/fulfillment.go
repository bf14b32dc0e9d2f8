package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"agentfails/internal/db"
	"agentfails/internal/metrics"
	"agentfails/internal/models"
)

// FulfillmentStore 履约所需的持久化接口
type FulfillmentStore interface {
	ClaimFulfillment(ctx context.Context, sessionID, wallet, size string) (*models.Fulfillment, error)
	SaveFulfillment(ctx context.Context, f *models.Fulfillment) error
	CreateMember(ctx context.Context, m *models.Member) error
}

// Locker 跨实例互斥，*db.RedisLocker 满足该接口
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// Fulfiller 处理付款完成事件：下单 + 授予衬衫会员，按 session id 幂等
type Fulfiller struct {
	store  FulfillmentStore
	orders OrderPlacer
	locker Locker
}

func NewFulfiller(store FulfillmentStore, orders OrderPlacer) *Fulfiller {
	return &Fulfiller{store: store, orders: orders}
}

// WithLocker 启用分布式锁
func (f *Fulfiller) WithLocker(l Locker) *Fulfiller {
	f.locker = l
	return f
}

// HandleCheckoutCompleted 同一 session 重复投递时不会重复下单，也不会改写已有会员
func (f *Fulfiller) HandleCheckoutCompleted(ctx context.Context, ev *CheckoutCompleted) error {
	if ev == nil || ev.SessionID == "" {
		return fmt.Errorf("checkout event without session id")
	}

	if f.locker != nil {
		release, ok, err := f.locker.Acquire(ctx, "fulfillment:"+ev.SessionID, 2*time.Minute)
		switch {
		case err != nil:
			log.Printf("[webhook] lock for %s unavailable, continuing without it: %v", ev.SessionID, err)
		case !ok:
			log.Printf("[webhook] session %s is being fulfilled elsewhere, skipping", ev.SessionID)
			metrics.FulfillmentsTotal.WithLabelValues("locked").Inc()
			return nil
		default:
			defer release()
		}
	}

	rec, err := f.store.ClaimFulfillment(ctx, ev.SessionID, ev.Wallet, ev.Size)
	if err != nil {
		return err
	}
	if rec.Status == models.FulfillmentCompleted {
		log.Printf("[webhook] session %s already fulfilled (order %s)", ev.SessionID, rec.PrintifyOrderID)
		metrics.FulfillmentsTotal.WithLabelValues("duplicate").Inc()
		return nil
	}

	var problems []string

	if rec.PrintifyOrderID == "" {
		orderID, err := f.placeOrder(ctx, ev)
		if err != nil {
			log.Printf("[webhook] printify order for %s failed: %v", ev.SessionID, err)
			problems = append(problems, err.Error())
		} else {
			log.Printf("[webhook] printify order %s created for session %s", orderID, ev.SessionID)
			rec.PrintifyOrderID = orderID
		}
	}

	// 下单失败也照常授予会员
	if ev.Wallet != "" {
		if err := f.grantShirtMember(ctx, ev.Wallet); err != nil {
			log.Printf("[webhook] shirt membership for %s failed: %v", ev.Wallet, err)
			problems = append(problems, err.Error())
		}
	}

	if len(problems) == 0 {
		rec.Status = models.FulfillmentCompleted
		rec.LastError = ""
		metrics.FulfillmentsTotal.WithLabelValues("completed").Inc()
	} else {
		rec.Status = models.FulfillmentFailed
		rec.LastError = strings.Join(problems, "; ")
		metrics.FulfillmentsTotal.WithLabelValues("failed").Inc()
	}
	return f.store.SaveFulfillment(ctx, rec)
}

func (f *Fulfiller) placeOrder(ctx context.Context, ev *CheckoutCompleted) (string, error) {
	if ev.Address == nil || ev.ProductID == "" || ev.VariantID == 0 {
		return "", fmt.Errorf("session %s is missing shipping or product data", ev.SessionID)
	}

	first, last := splitName(ev.Name)
	order := PrintifyOrder{
		ExternalID: ev.SessionID,
		Label:      "faceclaw tee - " + ev.Size,
		LineItems: []PrintifyLineItem{
			{ProductID: ev.ProductID, VariantID: ev.VariantID, Quantity: 1},
		},
		ShippingMethod:           1,
		SendShippingNotification: true,
		AddressTo: PrintifyAddress{
			FirstName: first,
			LastName:  last,
			Email:     ev.Email,
			Country:   ev.Address.Country,
			Region:    ev.Address.State,
			Address1:  ev.Address.Line1,
			Address2:  ev.Address.Line2,
			City:      ev.Address.City,
			Zip:       ev.Address.PostalCode,
		},
	}
	return f.orders.CreateOrder(ctx, order)
}

func (f *Fulfiller) grantShirtMember(ctx context.Context, wallet string) error {
	err := f.store.CreateMember(ctx, &models.Member{
		WalletAddress:   wallet,
		MembershipType:  models.MembershipShirtBuyer,
		PaymentCurrency: "USD",
	})
	if errors.Is(err, db.ErrDuplicate) {
		return nil
	}
	return err
}

func splitName(name string) (string, string) {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
