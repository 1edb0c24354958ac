// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// V264Convert - 海雀摄像头 .v264 视频批量转码工具

package task

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBusSequenceAndSince(t *testing.T) {
	b := NewEventBus(10)

	for i := 0; i < 3; i++ {
		e := b.Publish(Event{Type: EventProgress, TaskID: fmt.Sprintf("t%d", i)})
		assert.Equal(t, int64(i+1), e.Seq)
		assert.False(t, e.Timestamp.IsZero())
	}

	all := b.Since(0)
	require.Len(t, all, 3)

	rest := b.Since(all[1].Seq)
	require.Len(t, rest, 1)
	assert.Equal(t, "t2", rest[0].TaskID)

	assert.Empty(t, b.Since(all[2].Seq))
}

func TestEventBusTrims(t *testing.T) {
	b := NewEventBus(5)
	for i := 0; i < 12; i++ {
		b.Publish(Event{Type: EventProgress})
	}

	events := b.Since(0)
	require.Len(t, events, 5)
	// 序号在裁剪后仍然连续递增
	assert.Equal(t, int64(8), events[0].Seq)
	assert.Equal(t, int64(12), events[4].Seq)
}
