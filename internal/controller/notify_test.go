package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueue_DrainAndBound(t *testing.T) {
	q := NewQueue(2)
	q.Notify(Toast{Kind: KindSuccess, Message: "one"})
	q.Notify(Toast{Kind: KindError, Message: "two"})
	q.Notify(Toast{Kind: KindSuccess, Message: "three"})

	assert.Equal(t, []Toast{{KindError, "two"}, {KindSuccess, "three"}}, q.Drain())
	assert.Empty(t, q.Drain())
}

func TestNewQueue_DefaultSize(t *testing.T) {
	q := NewQueue(0)
	for i := 0; i < DefaultQueueSize+3; i++ {
		q.Notify(Toast{Kind: KindSuccess, Message: "x"})
	}
	assert.Len(t, q.Drain(), DefaultQueueSize)
}
