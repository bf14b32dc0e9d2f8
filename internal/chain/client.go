// Package chain 是访问 EVM JSON-RPC 节点的最小客户端，只覆盖付款校验需要的方法。
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"agentfails/internal/metrics"

	"golang.org/x/time/rate"
)

type Client struct {
	httpClient *http.Client
	rpcURL     string
	requestID  atomic.Int64
	limiter    *rate.Limiter
}

// NewClient 创建客户端；rps <= 0 时不限速
func NewClient(rpcURL string, rps float64, burst int) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		rpcURL:     rpcURL,
	}
	if rps > 0 {
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return c
}

// wait 每次调用消耗一个令牌，ctx 结束时归还
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	r := c.limiter.Reserve()
	if !r.OK() {
		return fmt.Errorf("rate: cannot reserve token")
	}
	delay := r.Delay()
	if delay > 0 {
		metrics.RPCRateLimitWaits.Inc()
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			r.Cancel()
			return ctx.Err()
		}
	}
	return nil
}

func (c *Client) call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	result, err := c.do(ctx, method, params)
	metrics.RPCCallsTotal.WithLabelValues(method, classifyError(err)).Inc()
	return result, err
}

func (c *Client) do(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	id := int(c.requestID.Add(1))
	req := Request{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http status %d: %s", resp.StatusCode, string(respBody))
	}

	var rpcResp Response
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}

	return rpcResp.Result, nil
}

func classifyError(err error) string {
	if err == nil {
		return "ok"
	}
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return "rpc_error"
	}
	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "deadline") || strings.Contains(lower, "timeout"):
		return "timeout"
	case strings.Contains(lower, "http status 429"):
		return "rate_limited"
	default:
		return "error"
	}
}
