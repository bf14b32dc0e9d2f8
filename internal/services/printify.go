package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// PrintifyAddress 收货地址
type PrintifyAddress struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Country   string `json:"country"`
	Region    string `json:"region"`
	Address1  string `json:"address1"`
	Address2  string `json:"address2"`
	City      string `json:"city"`
	Zip       string `json:"zip"`
}

type PrintifyLineItem struct {
	ProductID string `json:"product_id"`
	VariantID int    `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

// PrintifyOrder Printify 下单请求体
type PrintifyOrder struct {
	ExternalID               string             `json:"external_id"`
	Label                    string             `json:"label"`
	LineItems                []PrintifyLineItem `json:"line_items"`
	ShippingMethod           int                `json:"shipping_method"`
	SendShippingNotification bool               `json:"send_shipping_notification"`
	AddressTo                PrintifyAddress    `json:"address_to"`
}

// OrderPlacer 下单接口，测试中可替换
type OrderPlacer interface {
	CreateOrder(ctx context.Context, order PrintifyOrder) (string, error)
}

// PrintifyClient Printify REST API 客户端
type PrintifyClient struct {
	baseURL string
	apiKey  string
	shopID  string
	client  *http.Client
}

func NewPrintifyClient(baseURL, apiKey, shopID string) *PrintifyClient {
	return &PrintifyClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		shopID:  shopID,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// CreateOrder 提交订单，返回 Printify 订单 ID
func (p *PrintifyClient) CreateOrder(ctx context.Context, order PrintifyOrder) (string, error) {
	if p.apiKey == "" {
		return "", fmt.Errorf("PRINTIFY_API_KEY 未配置")
	}

	body, err := json.Marshal(order)
	if err != nil {
		return "", fmt.Errorf("序列化订单失败: %w", err)
	}

	url := fmt.Sprintf("%s/shops/%s/orders.json", p.baseURL, p.shopID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("下单请求失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("读取响应失败: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("Printify 下单失败: status %d: %s", resp.StatusCode, string(respBody))
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("解析响应失败: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("Printify 响应缺少订单 ID")
	}
	return out.ID, nil
}
