// Copyright (c) 2025 The OpenRestake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stackedmap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openrestake/restake/stackedmap"
)

func TestStackedMap(t *testing.T) {
	src := make(map[string]string)
	src["base"] = "from-src"

	sm := stackedmap.New(func(key any) (any, bool, error) {
		v, ok := src[key.(string)]
		return v, ok, nil
	})

	sm.Push()
	v, ok, err := sm.Get("base")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "from-src", v)

	sm.Put("k", "v1")
	v, ok, _ = sm.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v1", v)

	depth := sm.Push()
	sm.Put("k", "v2")
	v, _, _ = sm.Get("k")
	assert.Equal(t, "v2", v)

	sm.PopTo(depth)
	v, _, _ = sm.Get("k")
	assert.Equal(t, "v1", v)

	sm.Pop()
	_, ok, _ = sm.Get("k")
	assert.False(t, ok)
	assert.Zero(t, sm.Depth())
}

func TestStackedMapPopToShadowedKey(t *testing.T) {
	sm := stackedmap.New(func(any) (any, bool, error) { return nil, false, nil })

	sm.Push()
	sm.Put("k", 1)
	cp := sm.Push()
	sm.Put("k", 2)
	sm.Put("k", 3)
	sm.PopTo(cp)

	v, ok, _ := sm.Get("k")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	// writes after the revert land at the surviving level
	sm.Put("k", 4)
	v, _, _ = sm.Get("k")
	assert.Equal(t, 4, v)

	sm.Pop()
	_, ok, _ = sm.Get("k")
	assert.False(t, ok)
}

func TestStackedMapJournal(t *testing.T) {
	sm := stackedmap.New(func(any) (any, bool, error) { return nil, false, nil })

	sm.Push()
	sm.Put("a", 1)
	sm.Push()
	sm.Put("b", 2)
	sm.Put("a", 3)

	var seen []any
	sm.Journal(func(k, v any) bool {
		seen = append(seen, k, v)
		return true
	})
	assert.Equal(t, []any{"a", 1, "b", 2, "a", 3}, seen)

	n := 0
	sm.Journal(func(k, v any) bool {
		n++
		return false
	})
	assert.Equal(t, 1, n)
}
