package utils

import (
	"strconv"
)

// StringToInt converts string to int, returns 0 if error
func StringToInt(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return i
}

// ParsePage 解析 0 起始的页码，非法值按第 0 页处理
func ParsePage(s string) int {
	if n := StringToInt(s); n > 0 {
		return n
	}
	return 0
}
