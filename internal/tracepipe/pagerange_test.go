package tracepipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTouchesOverlapping(t *testing.T) {
	assert.True(t, touches(PageRange{0, 10}, PageRange{5, 15}))
}

func TestTouchesAdjacent(t *testing.T) {
	assert.True(t, touches(PageRange{0, 10}, PageRange{10, 20}))
}

func TestTouchesGap(t *testing.T) {
	assert.False(t, touches(PageRange{0, 10}, PageRange{11, 20}))
}

func TestUnion(t *testing.T) {
	assert.Equal(t, PageRange{0, 20}, union(PageRange{0, 10}, PageRange{10, 20}))
	assert.Equal(t, PageRange{0, 20}, union(PageRange{5, 15}, PageRange{0, 20}))
}
