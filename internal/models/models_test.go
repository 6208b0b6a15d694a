package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartKeepsInsertionOrder(t *testing.T) {
	cart := NewCart()
	cart.Entry("prod_00009", 5.5).Quantity = 2
	cart.Entry("prod_00001", 1.25).Quantity = 1
	cart.Entry("prod_00009", 99).Quantity++

	assert.Equal(t, []string{"prod_00009", "prod_00001"}, cart.ProductIDs())

	e, ok := cart.Get("prod_00009")
	require.True(t, ok)
	assert.Equal(t, 3, e.Quantity)
	assert.Equal(t, 5.5, e.Price)

	data, err := json.Marshal(cart)
	require.NoError(t, err)
	assert.Equal(t, `{"prod_00009":{"quantity":3,"price":5.5},"prod_00001":{"quantity":1,"price":1.25}}`, string(data))

	var decoded Cart
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, cart.ProductIDs(), decoded.ProductIDs())
	assert.Equal(t, 2, decoded.Len())
}

func TestCartSkipsZeroQuantity(t *testing.T) {
	cart := NewCart()
	cart.Entry("prod_00002", 3)

	assert.True(t, cart.Empty())

	data, err := json.Marshal(cart)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))
}

func TestCartRejectsNonObject(t *testing.T) {
	var c Cart
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &c))
}
