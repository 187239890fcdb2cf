package httpclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnvDuration(t *testing.T) {
	tests := []struct {
		val  string
		want time.Duration
	}{
		{val: "", want: time.Minute},
		{val: "30", want: 30 * time.Second},
		{val: "2m", want: 2 * time.Minute},
		{val: "soon", want: time.Minute},
	}
	for _, tt := range tests {
		t.Setenv("MODELWIRE_TEST_DURATION", tt.val)
		assert.Equal(t, tt.want, envDuration("MODELWIRE_TEST_DURATION", time.Minute), tt.val)
	}
}

func TestForProvider(t *testing.T) {
	t.Setenv("MODELWIRE_HTTP_TIMEOUT", "45")

	c := ForProvider(0)
	assert.Equal(t, 45*time.Second, c.Timeout)
	assert.Same(t, transport(), c.Transport, "clients share one transport")

	assert.Equal(t, 5*time.Second, ForProvider(5*time.Second).Timeout)
}
