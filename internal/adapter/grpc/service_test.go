package grpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRebalancerServiceDesc(t *testing.T) {
	assert.Equal(t, "rebalancer.v1.RebalancerService", RebalancerServiceDesc.ServiceName)
	assert.Nil(t, RebalancerServiceDesc.Metadata, "no proto file is registered for the service")
	assert.Empty(t, RebalancerServiceDesc.Streams)

	seen := make(map[string]bool)
	for _, m := range RebalancerServiceDesc.Methods {
		assert.False(t, seen[m.MethodName], "method %s registered twice", m.MethodName)
		seen[m.MethodName] = true
		assert.NotNil(t, m.Handler)
	}
	assert.Len(t, seen, 11)
}
