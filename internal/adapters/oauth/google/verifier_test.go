package google

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadFromClaims(t *testing.T) {
	p, err := payloadFromClaims(map[string]interface{}{"email": "alice@example.com", "email_verified": true, "name": "Alice"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", p.Email)
	assert.Equal(t, "Alice", p.Name)

	p, err = payloadFromClaims(map[string]interface{}{"email": "bob@example.com"})
	require.NoError(t, err)
	assert.Empty(t, p.Name)

	_, err = payloadFromClaims(map[string]interface{}{"name": "Nobody"})
	assert.Error(t, err)

	_, err = payloadFromClaims(map[string]interface{}{"email": "eve@example.com", "email_verified": false})
	assert.Error(t, err)
}
