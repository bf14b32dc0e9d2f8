package chain

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

var (
	// TransferTopic Transfer(address,address,uint256) 事件签名
	TransferTopic     = common.BytesToHash(keccak256([]byte("Transfer(address,address,uint256)")))
	balanceOfSelector = keccak256([]byte("balanceOf(address)"))[:4]
)

func keccak256(b []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(b)
	return h.Sum(nil)
}

// Transfer 解码后的 ERC-20 转账事件
type Transfer struct {
	Token common.Address
	From  common.Address
	To    common.Address
	Value *big.Int
}

// ParseTransfer 解析 ERC-20 Transfer 日志，非该事件或格式不符时返回 false
// ERC-721 的 Transfer 把 tokenId 放在第四个 topic，会在这里被排除。
func ParseTransfer(l *Log) (*Transfer, bool) {
	if l == nil || l.Removed || len(l.Topics) != 3 {
		return nil, false
	}
	if !strings.EqualFold(l.Topics[0], TransferTopic.Hex()) {
		return nil, false
	}
	data := common.FromHex(l.Data)
	if len(data) != 32 {
		return nil, false
	}
	return &Transfer{
		Token: common.HexToAddress(l.Address),
		From:  common.HexToAddress(l.Topics[1]),
		To:    common.HexToAddress(l.Topics[2]),
		Value: new(big.Int).SetBytes(data),
	}, true
}
