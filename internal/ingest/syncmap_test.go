package ingest

import (
	"sync"
	"testing"
)

// TestSyncMap_LoadOrStore tests LoadOrStore functionality.
func TestSyncMap_LoadOrStore(t *testing.T) {
	sm := NewSyncMap[string, int]()

	// First store - should return the stored value with loaded=false.
	actual, loaded := sm.LoadOrStore("key1", 100)
	if actual != 100 || loaded {
		t.Errorf("LoadOrStore(key1, 100) = %v, %v; want 100, false", actual, loaded)
	}

	// Second store with same key - should return existing value with loaded=true.
	actual, loaded = sm.LoadOrStore("key1", 200)
	if actual != 100 || !loaded {
		t.Errorf("LoadOrStore(key1, 200) = %v, %v; want 100, true", actual, loaded)
	}

	// Verify the value wasn't overwritten.
	if val, _ := sm.Load("key1"); val != 100 {
		t.Errorf("Load(key1) = %v; want 100", val)
	}
}

// TestSyncMap_Delete tests Delete functionality.
func TestSyncMap_Delete(t *testing.T) {
	sm := NewSyncMap[string, int]()

	sm.LoadOrStore("key1", 1)
	sm.LoadOrStore("key2", 2)

	if sm.Len() != 2 {
		t.Errorf("Len() = %v; want 2", sm.Len())
	}

	sm.Delete("key1")

	if _, ok := sm.Load("key1"); ok {
		t.Error("Load(key1) should return false after Delete")
	}

	if sm.Len() != 1 {
		t.Errorf("Len() = %v; want 1", sm.Len())
	}

	// Delete non-existent key should not panic.
	sm.Delete("nonexistent")
}

// TestSyncMap_ZeroValue tests that Load returns zero value for missing keys.
func TestSyncMap_ZeroValue(t *testing.T) {
	intMap := NewSyncMap[string, int]()
	if val, ok := intMap.Load("missing"); ok || val != 0 {
		t.Errorf("Load(missing) = %v, %v; want 0, false", val, ok)
	}

	ptrMap := NewSyncMap[string, *int]()
	if val, ok := ptrMap.Load("missing"); ok || val != nil {
		t.Errorf("Load(missing) = %v, %v; want nil, false", val, ok)
	}
}

// TestSyncMap_LoadOrStore_Concurrent tests LoadOrStore under concurrent access.
func TestSyncMap_LoadOrStore_Concurrent(t *testing.T) {
	sm := NewSyncMap[string, *sync.Mutex]()
	numGoroutines := 100
	key := "shared-key"

	// All goroutines try to LoadOrStore the same key.
	results := make([]*sync.Mutex, numGoroutines)
	var wg sync.WaitGroup

	for i := range numGoroutines {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			newMutex := &sync.Mutex{}
			actual, _ := sm.LoadOrStore(key, newMutex)
			results[idx] = actual
		}(i)
	}

	wg.Wait()

	// All goroutines should have received the same mutex instance.
	firstMutex := results[0]
	for i := 1; i < numGoroutines; i++ {
		if results[i] != firstMutex {
			t.Errorf("results[%d] != results[0]; expected all goroutines to get the same mutex", i)
		}
	}

	// Verify only one entry in the map.
	if sm.Len() != 1 {
		t.Errorf("Len() = %v; want 1", sm.Len())
	}
}
