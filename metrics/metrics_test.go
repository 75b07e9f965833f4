package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(Registrations.WithLabelValues("success"))
	Registrations.WithLabelValues("success").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(Registrations.WithLabelValues("success")))
}

func TestNew(t *testing.T) {
	srv, err := New("127.0.0.1:0")
	assert.NoError(t, err)
	assert.NotNil(t, srv)
}
