package logging

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.Canceled, false},
		{context.DeadlineExceeded, true},
		{fmt.Errorf("call: %w", context.DeadlineExceeded), true},
		{errors.New("429 Too Many Requests"), true},
		{errors.New("502 Bad Gateway"), true},
		{errors.New("read tcp: connection reset by peer"), true},
		{errors.New("execution reverted: Governor: vote not currently active"), false},
		{errors.New("invalid argument 0"), false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, IsTransient(tc.err), "%v", tc.err)
	}
}

func TestIsRateLimit(t *testing.T) {
	assert.True(t, IsRateLimit(errors.New("rate_limit exceeded")))
	assert.False(t, IsRateLimit(errors.New("nope")))
}
