package store

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCursorRoundTrip(t *testing.T) {
	want := OrderCursor{
		CreatedAt: time.Date(2025, time.March, 4, 10, 30, 0, 123000, time.UTC),
		ID:        uuid.New(),
	}

	got, err := DecodeCursor(EncodeCursor(want))
	if err != nil {
		t.Fatalf("Decode cursor: %v", err)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) || got.ID != want.ID {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}

func TestDecodeEmptyCursorStartsAtTop(t *testing.T) {
	got, err := DecodeCursor("")
	if err != nil {
		t.Fatalf("Decode empty cursor: %v", err)
	}
	if !got.CreatedAt.After(time.Now().AddDate(100, 0, 0)) {
		t.Errorf("First page cursor should be far in the future, got %s", got.CreatedAt)
	}
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	if _, err := DecodeCursor("%%%not-base64"); err == nil {
		t.Error("Expected error for invalid cursor")
	}
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total    int64
		pageSize int
		want     int
	}{
		{0, 20, 0},
		{20, 20, 1},
		{21, 20, 2},
		{5, 2, 3},
	}

	for _, tt := range tests {
		if got := totalPages(tt.total, tt.pageSize); got != tt.want {
			t.Errorf("totalPages(%d, %d) = %d, want %d", tt.total, tt.pageSize, got, tt.want)
		}
	}
}
