package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAttempt(t *testing.T) {
	assert.Equal(t, 1, Attempt(Message{}))
	assert.Equal(t, 1, Attempt(Message{Headers: []Header{{Key: HeaderAttempt, Value: []byte("x")}}}))

	m := Message{Headers: []Header{{Key: "trace", Value: []byte("t1")}}}
	m.Headers = WithAttempt(m.Headers, 2)
	m.Headers = WithAttempt(m.Headers, 3)
	assert.Equal(t, 3, Attempt(m))
	assert.Len(t, m.Headers, 2)
	assert.Equal(t, "trace", m.Headers[0].Key)
}
