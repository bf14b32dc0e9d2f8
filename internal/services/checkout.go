package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"agentfails/internal/utils"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrInvalidSize      = errors.New("Invalid size")
	ErrInvalidWallet    = errors.New("Invalid wallet address")
	ErrMerchDisabled    = errors.New("merch checkout is not configured")
)

// SessionCreator 创建 Stripe Checkout Session，*session.Client 满足该接口
type SessionCreator interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// MerchConfig 周边商品下单参数
type MerchConfig struct {
	PriceID       string
	ProductID     string
	Variants      map[string]int
	ShipCountries []string
	SuccessURL    string
	CancelURL     string
	WebhookSecret string
}

// CheckoutService 创建付款页并校验 Stripe 回调
type CheckoutService struct {
	cfg      MerchConfig
	sessions SessionCreator
}

func NewCheckoutService(cfg MerchConfig, sessions SessionCreator) *CheckoutService {
	return &CheckoutService{cfg: cfg, sessions: sessions}
}

// CheckoutCompleted 从 checkout.session.completed 事件中提取的履约数据
type CheckoutCompleted struct {
	SessionID string
	Wallet    string
	Size      string
	ProductID string
	VariantID int
	Email     string
	Name      string
	Address   *StripeAddress
}

type StripeAddress struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type shippingDetails struct {
	Name    string         `json:"name"`
	Address *StripeAddress `json:"address"`
}

type checkoutSessionPayload struct {
	ID              string            `json:"id"`
	Metadata        map[string]string `json:"metadata"`
	ShippingDetails *shippingDetails  `json:"shipping_details"`
	CustomerDetails *struct {
		Email   string         `json:"email"`
		Name    string         `json:"name"`
		Address *StripeAddress `json:"address"`
	} `json:"customer_details"`
	CollectedInformation *struct {
		ShippingDetails *shippingDetails `json:"shipping_details"`
	} `json:"collected_information"`
}

// CreateCheckout 为指定尺码创建付款页，返回跳转地址
// wallet 可为空；填写时付款成功后自动授予 shirt_buyer 会员。
func (s *CheckoutService) CreateCheckout(ctx context.Context, size, wallet string) (string, error) {
	if s.sessions == nil {
		return "", ErrMerchDisabled
	}
	size = strings.ToUpper(strings.TrimSpace(size))
	variantID, ok := s.cfg.Variants[size]
	if !ok {
		return "", ErrInvalidSize
	}
	if strings.TrimSpace(wallet) != "" {
		if wallet = utils.NormalizeWallet(wallet); wallet == "" {
			return "", ErrInvalidWallet
		}
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(s.cfg.PriceID), Quantity: stripe.Int64(1)},
		},
		ShippingAddressCollection: &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(s.cfg.ShipCountries),
		},
		SuccessURL: stripe.String(s.cfg.SuccessURL),
		CancelURL:  stripe.String(s.cfg.CancelURL),
	}
	params.Context = ctx
	params.AddMetadata("size", size)
	params.AddMetadata("printify_product_id", s.cfg.ProductID)
	params.AddMetadata("printify_variant_id", strconv.Itoa(variantID))
	if wallet != "" {
		params.AddMetadata("wallet_address", wallet)
	}

	sess, err := s.sessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.URL, nil
}

// ParseWebhook 校验签名并解析事件；非 checkout.session.completed 事件返回 nil, nil
func (s *CheckoutService) ParseWebhook(payload []byte, signature string) (*CheckoutCompleted, error) {
	if s.cfg.WebhookSecret == "" || signature == "" {
		return nil, ErrInvalidSignature
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if event.Type != stripe.EventTypeCheckoutSessionCompleted || event.Data == nil {
		return nil, nil
	}

	var sess checkoutSessionPayload
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}

	out := &CheckoutCompleted{
		SessionID: sess.ID,
		Size:      sess.Metadata["size"],
		ProductID: sess.Metadata["printify_product_id"],
		Wallet:    utils.NormalizeWallet(sess.Metadata["wallet_address"]),
	}
	if out.Size == "" {
		out.Size = "M"
	}
	out.VariantID, _ = strconv.Atoi(sess.Metadata["printify_variant_id"])

	// 新版 API 把收货信息放在 collected_information 下
	ship := sess.ShippingDetails
	if sess.CollectedInformation != nil && sess.CollectedInformation.ShippingDetails != nil {
		ship = sess.CollectedInformation.ShippingDetails
	}
	if ship != nil {
		out.Name = ship.Name
		out.Address = ship.Address
	}
	if sess.CustomerDetails != nil {
		out.Email = sess.CustomerDetails.Email
		if out.Name == "" {
			out.Name = sess.CustomerDetails.Name
		}
	}
	return out, nil
}
