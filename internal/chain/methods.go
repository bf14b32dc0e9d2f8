package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// GetTransactionReceipt 查询交易回执，交易不存在或未打包时返回 nil, nil
func (c *Client) GetTransactionReceipt(ctx context.Context, hash string) (*TransactionReceipt, error) {
	result, err := c.call(ctx, "eth_getTransactionReceipt", []interface{}{hash})
	if err != nil {
		return nil, fmt.Errorf("eth_getTransactionReceipt(%s): %w", hash, err)
	}
	if len(result) == 0 || string(result) == "null" {
		return nil, nil
	}

	var receipt TransactionReceipt
	if err := json.Unmarshal(result, &receipt); err != nil {
		return nil, fmt.Errorf("unmarshal receipt: %w", err)
	}
	return &receipt, nil
}

// CallContract 在最新区块上执行只读调用
func (c *Client) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	msg := CallMsg{To: to.Hex(), Data: hexutil.Encode(data)}
	result, err := c.call(ctx, "eth_call", []interface{}{msg, "latest"})
	if err != nil {
		return nil, fmt.Errorf("eth_call(%s): %w", to.Hex(), err)
	}

	var out string
	if err := json.Unmarshal(result, &out); err != nil {
		return nil, fmt.Errorf("unmarshal call result: %w", err)
	}
	return common.FromHex(out), nil
}

// BalanceOf 查询 ERC-20 / ERC-721 合约的 balanceOf(owner)
func (c *Client) BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	data := make([]byte, 0, 4+32)
	data = append(data, balanceOfSelector...)
	data = append(data, common.LeftPadBytes(owner.Bytes(), 32)...)

	out, err := c.CallContract(ctx, token, data)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("balanceOf(%s): empty result", owner.Hex())
	}
	return new(big.Int).SetBytes(out), nil
}
