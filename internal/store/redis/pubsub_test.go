package redis_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	redisstore "github.com/inkboard/inkboard/internal/store/redis"
)

func TestBoardChannel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		boardID string
		want    string
	}{
		{"typeid", "board_01h455vb4pex5vsknk084sn02q", "board:board_01h455vb4pex5vsknk084sn02q"},
		{"playground", "playground", "board:playground"},
		{"empty", "", "board:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, redisstore.BoardChannel(tt.boardID))
		})
	}
}
