package useragent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestClassify(t *testing.T) {
	p := New(zap.NewNop())

	t.Run("chrome_on_windows", func(t *testing.T) {
		c := p.Classify("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

		assert.Contains(t, c.Browser, "Chrome")
		assert.Contains(t, c.OS, "Windows")
	})

	t.Run("safari_on_iphone", func(t *testing.T) {
		c := p.Classify("Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1")

		assert.Contains(t, c.Browser, "Safari")
		assert.Contains(t, c.OS, "iOS")
		assert.Equal(t, "iPhone", c.Device)
	})

	t.Run("empty_user_agent", func(t *testing.T) {
		c := p.Classify("")

		assert.Empty(t, c.Browser)
		assert.Empty(t, c.OS)
		assert.Empty(t, c.Device)
	})

	t.Run("unrecognized_user_agent", func(t *testing.T) {
		c := p.Classify("definitely-not-a-browser/0.1")

		// the "Other" placeholder must not leak out
		assert.NotEqual(t, "Other", c.Browser)
		assert.NotEqual(t, "Other", c.OS)
		assert.NotEqual(t, "Other", c.Device)
	})
}
