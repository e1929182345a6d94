package graph

import (
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
)

func TestDriverConfig_DisablesTransactionRetry(t *testing.T) {
	c := &neo4j.Config{MaxTransactionRetryTime: 30 * time.Second, MaxConnectionPoolSize: 100}
	driverConfig(Config{})(c)

	assert.Zero(t, c.MaxTransactionRetryTime)
	assert.Equal(t, 100, c.MaxConnectionPoolSize)
}

func TestDriverConfig_Pool(t *testing.T) {
	c := &neo4j.Config{MaxTransactionRetryTime: 30 * time.Second}
	driverConfig(Config{MaxPoolSize: 8, ConnectTimeout: 3 * time.Second})(c)

	assert.Zero(t, c.MaxTransactionRetryTime)
	assert.Equal(t, 8, c.MaxConnectionPoolSize)
	assert.Equal(t, 3*time.Second, c.SocketConnectTimeout)
}
