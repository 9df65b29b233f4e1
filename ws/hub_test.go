package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHubMembership(t *testing.T) {
	t.Run("subscribe and unsubscribe", func(t *testing.T) {
		h := NewHub()
		c := testConn("c1")

		assert.False(t, h.IsSubscribed(c, "room:go"))
		h.Subscribe(c, "room:go")
		assert.True(t, h.IsSubscribed(c, "room:go"))

		h.Subscribe(c, "room:go")
		assert.True(t, h.IsSubscribed(c, "room:go"))

		h.Unsubscribe(c, "room:go")
		assert.False(t, h.IsSubscribed(c, "room:go"))
	})

	t.Run("unsubscribe unknown topic is a no-op", func(t *testing.T) {
		h := NewHub()
		c := testConn("c1")
		h.Unsubscribe(c, "nope")
		assert.False(t, h.IsSubscribed(c, "nope"))
	})

	t.Run("drop removes every subscription", func(t *testing.T) {
		h := NewHub()
		c := testConn("c1")
		other := testConn("c2")
		h.Subscribe(c, "room:go")
		h.Subscribe(c, "room:rust")
		h.Subscribe(other, "room:go")

		h.DropConn(c)
		assert.False(t, h.IsSubscribed(c, "room:go"))
		assert.False(t, h.IsSubscribed(c, "room:rust"))
		assert.True(t, h.IsSubscribed(other, "room:go"))
		assert.Empty(t, h.Topics(c))
	})

	t.Run("topics lists current subscriptions", func(t *testing.T) {
		h := NewHub()
		c := testConn("c1")
		h.Subscribe(c, "a")
		h.Subscribe(c, "b")
		assert.ElementsMatch(t, []string{"a", "b"}, h.Topics(c))
	})
}

func TestHubPublish(t *testing.T) {
	t.Run("empty topic delivers to nobody", func(t *testing.T) {
		h := NewHub()
		assert.Zero(t, h.Publish("room:go", []byte("x")))
	})

	t.Run("closed subscribers are skipped", func(t *testing.T) {
		h := NewHub()
		c := testConn("c1")
		h.Subscribe(c, "room:go")

		assert.Zero(t, h.Publish("room:go", []byte("x")))
		assert.True(t, h.IsSubscribed(c, "room:go"))
	})

	t.Run("binary publish shares the delivery rules", func(t *testing.T) {
		h := NewHub()
		c := testConn("c1")
		h.Subscribe(c, "room:go")

		assert.Zero(t, h.PublishBinary("room:go", []byte{0x1}))
	})
}
