package catalog

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProductValidate(t *testing.T) {
	valid := Product{Name: "Whey", Category: "Suplementos", Price: 10}
	require.NoError(t, valid.Validate())

	err := Product{Name: " ", Category: "Suplementos", Price: 10}.Validate()
	require.ErrorIs(t, err, ErrInvalidProduct)
	var field *FieldError
	require.True(t, errors.As(err, &field))
	require.Equal(t, "name", field.Field)

	err = Product{Name: "Whey", Category: "Suplementos", Price: -1}.Validate()
	require.True(t, errors.As(err, &field))
	require.Equal(t, "price", field.Field)
}

func TestParsePrice(t *testing.T) {
	value, err := ParsePrice("129,90")
	require.NoError(t, err)
	require.InDelta(t, 129.9, value, 1e-9)

	value, err = ParsePrice(" 45.5 ")
	require.NoError(t, err)
	require.InDelta(t, 45.5, value, 1e-9)

	for _, raw := range []string{"", "abc", "0", "-3"} {
		_, err := ParsePrice(raw)
		require.Error(t, err, raw)
	}
}

func TestIDUnmarshal(t *testing.T) {
	var product Product
	require.NoError(t, json.Unmarshal([]byte(`{"id":42}`), &product))
	require.Equal(t, ID("42"), product.ID)

	require.NoError(t, json.Unmarshal([]byte(`{"id":"64f0c"}`), &product))
	require.Equal(t, ID("64f0c"), product.ID)

	var empty Product
	require.NoError(t, json.Unmarshal([]byte(`{"id":null}`), &empty))
	require.Equal(t, ID(""), empty.ID)

	require.Error(t, json.Unmarshal([]byte(`{"id":true}`), &product))
}
