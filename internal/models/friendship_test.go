package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFriendshipOtherSide(t *testing.T) {
	edge := Friendship{RequesterID: 7, AddresseeID: 9}

	// 先比较自己的 ID，再取另一方，和边的方向无关
	assert.EqualValues(t, 9, edge.OtherSide(7))
	assert.EqualValues(t, 7, edge.OtherSide(9))
}

func TestFriendshipInvolves(t *testing.T) {
	edge := Friendship{RequesterID: 7, AddresseeID: 9}

	assert.True(t, edge.Involves(7))
	assert.True(t, edge.Involves(9))
	assert.False(t, edge.Involves(3))
}
