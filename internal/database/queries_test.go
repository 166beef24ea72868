package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// selectPage applies the same row window ListMessages asks the database for:
// the newest rows whose id is below the cursor, flipped back to oldest-first.
func selectPage(history []Message, beforeId, limit int) []Message {
	upper, size := pageWindow(beforeId, limit)

	var page []Message
	for i := len(history) - 1; i >= 0 && len(page) < size; i-- {
		if history[i].Id < upper {
			page = append(page, history[i])
		}
	}

	reverseMessages(page)
	return page
}

func TestPageWindow(t *testing.T) {
	tt := []struct {
		name          string
		beforeId      int
		limit         int
		expectedUpper int
		expectedSize  int
	}{
		{
			name:          "no cursor returns newest page",
			beforeId:      0,
			limit:         20,
			expectedUpper: 1<<31 - 1,
			expectedSize:  20,
		},
		{
			name:          "cursor is an exclusive upper bound",
			beforeId:      51,
			limit:         20,
			expectedUpper: 51,
			expectedSize:  20,
		},
		{
			name:          "zero limit falls back to the default page size",
			beforeId:      51,
			limit:         0,
			expectedUpper: 51,
			expectedSize:  defaultMessagePageSize,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			upper, size := pageWindow(tc.beforeId, tc.limit)
			assert.Equal(t, tc.expectedUpper, upper)
			assert.Equal(t, tc.expectedSize, size)
		})
	}
}

func TestReverseMessages(t *testing.T) {
	messages := []Message{{Id: 3}, {Id: 2}, {Id: 1}}
	reverseMessages(messages)

	assert.Equal(t, 1, messages[0].Id)
	assert.Equal(t, 2, messages[1].Id)
	assert.Equal(t, 3, messages[2].Id)
}

// Walking the cursor backward (before = oldest id of the previous page) must
// enumerate the whole history exactly once, newest page first, each page
// oldest-first.
func TestMessagePageTraversal(t *testing.T) {
	const total = 100

	history := make([]Message, 0, total)
	for id := 1; id <= total; id++ {
		history = append(history, Message{Id: id, RoomId: 1})
	}

	seen := make(map[int]bool)
	beforeId := 0
	for pages := 0; ; pages++ {
		require.Less(t, pages, total, "cursor paging must terminate")

		page := selectPage(history, beforeId, 30)
		if len(page) == 0 {
			break
		}

		for i := 1; i < len(page); i++ {
			assert.Less(t, page[i-1].Id, page[i].Id, "expected pages in ascending order")
		}
		for _, msg := range page {
			assert.False(t, seen[msg.Id], "message %d returned twice", msg.Id)
			seen[msg.Id] = true
		}

		beforeId = page[0].Id
	}

	assert.Len(t, seen, total, "expected every message reachable through the cursor")
}

func TestSelectPageNewestFirstPage(t *testing.T) {
	history := make([]Message, 0, 10)
	for id := 1; id <= 10; id++ {
		history = append(history, Message{Id: id})
	}

	page := selectPage(history, 0, 4)
	require.Len(t, page, 4)
	assert.Equal(t, 7, page[0].Id, "expected the first page to hold the newest messages")
	assert.Equal(t, 10, page[3].Id)
}
