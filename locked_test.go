package radixcache_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/prefixkv/radixcache"
	"github.com/prefixkv/radixcache/testpool"
)

func TestLockedInsertAndMatchPrefix(t *testing.T) {
	pool := testpool.New(64)
	locked := radixcache.NewLocked(radixcache.NewCache(pool))

	tx := locked.Lock()
	tx.Insert(radixcache.Tokens{1, 2, 3}, radixcache.Slots{10, 11, 12})
	tx.Unlock()

	rtx := locked.RLock()
	matched, _ := rtx.MatchPrefix(radixcache.Tokens{1, 2, 3})
	rtx.Unlock()

	require.Equal(t, radixcache.Slots{10, 11, 12}, matched)
}

func TestLockedDoubleUnlockPanics(t *testing.T) {
	pool := testpool.New(64)
	locked := radixcache.NewLocked(radixcache.NewCache(pool))

	tx := locked.Lock()
	tx.Unlock()

	require.Panics(t, func() { tx.Unlock() })
}

func TestLockedUsingAfterUnlockPanics(t *testing.T) {
	pool := testpool.New(64)
	locked := radixcache.NewLocked(radixcache.NewCache(pool))

	tx := locked.Lock()
	tx.Unlock()

	require.Panics(t, func() {
		tx.Insert(radixcache.Tokens{1}, radixcache.Slots{1})
	})
}

func TestLockedWriteOnReadOnlyTxPanics(t *testing.T) {
	pool := testpool.New(64)
	locked := radixcache.NewLocked(radixcache.NewCache(pool))

	tx := locked.RLock()
	defer tx.Unlock()

	require.Panics(t, func() {
		tx.Insert(radixcache.Tokens{1}, radixcache.Slots{1})
	})
}

func TestLockedConcurrentWriters(t *testing.T) {
	pool := testpool.New(4096)
	locked := radixcache.NewLocked(radixcache.NewCache(pool))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			tx := locked.Lock()
			defer tx.Unlock()
			tokens := radixcache.Tokens{radixcache.TokenID(base)}
			tx.Insert(tokens, radixcache.Slots{radixcache.SlotIndex(base)})
		}(i)
	}
	wg.Wait()

	tx := locked.RLock()
	defer tx.Unlock()
	require.Equal(t, 16, tx.TotalSize())
}
