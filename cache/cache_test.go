// Copyright (c) 2025 The OpenRestake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package cache_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openrestake/restake/cache"
)

func TestLRUGetOrLoad(t *testing.T) {
	c, err := cache.NewLRU[string, string](4)
	require.NoError(t, err)

	loads := 0
	loader := func(key string) (string, error) {
		loads++
		return key + "-loaded", nil
	}

	v, err := c.GetOrLoad("k", loader)
	require.NoError(t, err)
	assert.Equal(t, "k-loaded", v)
	assert.Equal(t, 1, loads)

	// second hit comes from the cache
	v, err = c.GetOrLoad("k", loader)
	require.NoError(t, err)
	assert.Equal(t, "k-loaded", v)
	assert.Equal(t, 1, loads)

	got, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "k-loaded", got)
}

func TestLRULoadError(t *testing.T) {
	c, err := cache.NewLRU[string, int](4)
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = c.GetOrLoad("k", func(string) (int, error) { return 0, boom })
	assert.Equal(t, boom, err)
	assert.False(t, c.Contains("k"))
}
