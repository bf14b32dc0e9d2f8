package utils

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// NormalizeWallet 校验并转成小写地址，非法时返回空串
func NormalizeWallet(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return ""
	}
	if !common.IsHexAddress(s) {
		return ""
	}
	return strings.ToLower(common.HexToAddress(s).Hex())
}

// NormalizeTxHash 校验 32 字节交易哈希并转小写，非法时返回空串
func NormalizeTxHash(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 66 || !strings.HasPrefix(s, "0x") {
		return ""
	}
	for _, r := range s[2:] {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
			return ""
		}
	}
	return s
}
