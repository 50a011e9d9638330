package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifySignature(t *testing.T) {
	sig := Signature("s3cret", "order_9A33XWu170gUtm", "pay_29QQoUBi66xm2f")
	assert.Len(t, sig, 64)
	assert.True(t, VerifySignature("s3cret", "order_9A33XWu170gUtm", "pay_29QQoUBi66xm2f", sig))

	t.Run("tampered ids", func(t *testing.T) {
		assert.False(t, VerifySignature("s3cret", "order_9A33XWu170gUtm", "pay_other", sig))
		assert.False(t, VerifySignature("s3cret", "order_other", "pay_29QQoUBi66xm2f", sig))
	})
	t.Run("wrong secret", func(t *testing.T) {
		assert.False(t, VerifySignature("other", "order_9A33XWu170gUtm", "pay_29QQoUBi66xm2f", sig))
	})
	t.Run("empty values", func(t *testing.T) {
		assert.False(t, VerifySignature("", "order_9A33XWu170gUtm", "pay_29QQoUBi66xm2f", Signature("", "order_9A33XWu170gUtm", "pay_29QQoUBi66xm2f")))
		assert.False(t, VerifySignature("s3cret", "order_9A33XWu170gUtm", "pay_29QQoUBi66xm2f", ""))
	})
	t.Run("separator is part of the message", func(t *testing.T) {
		assert.NotEqual(t, Signature("k", "a|b", "c"), Signature("k", "a", "b|c|"))
		assert.NotEqual(t, Signature("k", "ab", "c"), Signature("k", "a", "bc"))
	})
}
