package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCatalog(t *testing.T) {
	t.Run("built-in catalogue", func(t *testing.T) {
		products, err := loadCatalog("")
		require.NoError(t, err)
		require.NotEmpty(t, products)
		assert.Equal(t, "P001", products[0].ID)
		assert.Equal(t, "50", products[0].Price.String())
		assert.Equal(t, 5, products[0].Stock)
	})

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "missing name", content: `[{"id":"X1","price":"1.00"}]`, wantErr: "id and name are required"},
		{name: "negative stock", content: `[{"id":"X1","name":"X","price":"1.00","stock":-1}]`, wantErr: "must not be negative"},
		{name: "negative price", content: `[{"id":"X1","name":"X","price":"-1.00"}]`, wantErr: "must not be negative"},
		{name: "not json", content: `products:`, wantErr: "failed to parse catalogue"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "catalog.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			_, err := loadCatalog(path)

			assert.ErrorContains(t, err, tt.wantErr)
		})
	}

	_, err := loadCatalog(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "failed to read catalogue")
}
