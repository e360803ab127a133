package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLikeEscaper(t *testing.T) {
	cases := map[string]string{
		"alice":    "alice",
		"50%":      `50\%`,
		"SKU_1":    `SKU\_1`,
		`C:\promo`: `C:\\promo`,
		`%_\`:      `\%\_\\`,
	}
	for in, want := range cases {
		assert.Equal(t, want, likeEscaper.Replace(in), in)
	}
}
