package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeWallet(t *testing.T) {
	assert.Equal(t, "0xd4c15e8decc996227ce1830a39af2dd080138f89", NormalizeWallet(" 0xd4C15E8dEcC996227cE1830A39Af2Dd080138F89 "))
	assert.Empty(t, NormalizeWallet("d4C15E8dEcC996227cE1830A39Af2Dd080138F89"))
	assert.Empty(t, NormalizeWallet("0x1234"))
	assert.Empty(t, NormalizeWallet(""))
}

func TestNormalizeTxHash(t *testing.T) {
	h := "0x" + strings.Repeat("Ab", 32)
	assert.Equal(t, strings.ToLower(h), NormalizeTxHash(h))
	assert.Empty(t, NormalizeTxHash("0x1234"))
	assert.Empty(t, NormalizeTxHash("0x"+strings.Repeat("zz", 32)))
	assert.Empty(t, NormalizeTxHash(strings.Repeat("ab", 33)))
}

func TestParsePage(t *testing.T) {
	assert.Equal(t, 0, ParsePage(""))
	assert.Equal(t, 0, ParsePage("-3"))
	assert.Equal(t, 0, ParsePage("abc"))
	assert.Equal(t, 4, ParsePage("4"))
}

func TestRenderMarkdown(t *testing.T) {
	out := RenderMarkdown("**bold** <script>alert(1)</script> [x](https://example.com)")
	assert.Contains(t, out, "<strong>bold</strong>")
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "nofollow")
	assert.Contains(t, out, "noopener")

	assert.Equal(t, "hi there", PlainText("<b>hi</b> there"))
	assert.Equal(t, "a & b", PlainText("a & b"))
}

func TestCacheTTL(t *testing.T) {
	c := NewCache(10)
	c.Set("feed:hot:0", 1, time.Minute)
	c.Set("feed:new:0", 2, -time.Second)
	c.Set("stats", 3, time.Minute)

	assert.Equal(t, 1, c.Get("feed:hot:0"))
	assert.Nil(t, c.Get("feed:new:0"))

	c.DeletePrefix("feed:")
	assert.Nil(t, c.Get("feed:hot:0"))
	assert.Equal(t, 3, c.Get("stats"))
}
