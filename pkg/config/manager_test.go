package config

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSection is a test implementation of the Section interface
type mockSection struct {
	id          string
	data        map[string]interface{}
	validateErr error
	setErr      error
}

func (m *mockSection) ID() string                   { return m.id }
func (m *mockSection) Title() string                { return "Mock " + m.id }
func (m *mockSection) Description() string          { return "" }
func (m *mockSection) Data() map[string]interface{} { return m.data }
func (m *mockSection) Validate() error              { return m.validateErr }
func (m *mockSection) Reset()                       { m.data = make(map[string]interface{}) }
func (m *mockSection) SetData(data map[string]interface{}) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data = data
	return nil
}

// mockStore is a test implementation of the Store interface
type mockStore struct {
	sections map[string]map[string]interface{}
	loadErr  error
	saveErr  error
	saved    int
}

func newMockStore() *mockStore {
	return &mockStore{sections: make(map[string]map[string]interface{})}
}

func (m *mockStore) Load() error { return m.loadErr }

func (m *mockStore) Save() error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved++
	return nil
}

func (m *mockStore) GetSection(id string) (map[string]interface{}, error) {
	if data, ok := m.sections[id]; ok {
		return data, nil
	}
	return make(map[string]interface{}), nil
}

func (m *mockStore) SetSection(id string, data map[string]interface{}) error {
	m.sections[id] = data
	return nil
}

func (m *mockStore) GetAll() (map[string]map[string]interface{}, error) { return m.sections, nil }

func (m *mockStore) SetAll(data map[string]map[string]interface{}) error {
	m.sections = data
	return nil
}

func TestManager_RegisterSection(t *testing.T) {
	store := newMockStore()
	manager := NewManager(store)
	assert.Same(t, store, manager.Store())
	assert.Empty(t, manager.GetSections())

	require.NoError(t, manager.RegisterSection(&mockSection{id: "b"}))
	require.NoError(t, manager.RegisterSection(&mockSection{id: "a"}))
	require.NoError(t, manager.RegisterSection(&mockSection{id: "c"}))
	assert.Error(t, manager.RegisterSection(&mockSection{id: "a"}))

	var ids []string
	for _, s := range manager.GetSections() {
		ids = append(ids, s.ID())
	}
	assert.Equal(t, []string{"b", "a", "c"}, ids)

	got, ok := manager.GetSection("a")
	require.True(t, ok)
	assert.Equal(t, "a", got.ID())

	_, ok = manager.GetSection("missing")
	assert.False(t, ok)
}

func TestManager_LoadAll(t *testing.T) {
	t.Run("pushes stored data into sections", func(t *testing.T) {
		store := newMockStore()
		store.sections["one"] = map[string]interface{}{"key1": "value1"}
		store.sections["two"] = map[string]interface{}{"key2": "value2"}

		manager := NewManager(store)
		one, two := &mockSection{id: "one"}, &mockSection{id: "two"}
		require.NoError(t, manager.RegisterSection(one))
		require.NoError(t, manager.RegisterSection(two))

		require.NoError(t, manager.LoadAll())
		assert.Equal(t, "value1", one.data["key1"])
		assert.Equal(t, "value2", two.data["key2"])
	})

	t.Run("store error", func(t *testing.T) {
		store := newMockStore()
		store.loadErr = fmt.Errorf("load error")
		assert.Error(t, NewManager(store).LoadAll())
	})

	t.Run("section rejects data", func(t *testing.T) {
		manager := NewManager(newMockStore())
		require.NoError(t, manager.RegisterSection(&mockSection{id: "x", setErr: fmt.Errorf("bad")}))
		assert.Error(t, manager.LoadAll())
	})
}

func TestManager_SaveAll(t *testing.T) {
	t.Run("writes every section then saves once", func(t *testing.T) {
		store := newMockStore()
		manager := NewManager(store)
		require.NoError(t, manager.RegisterSection(&mockSection{id: "one", data: map[string]interface{}{"k": "v"}}))
		require.NoError(t, manager.RegisterSection(&mockSection{id: "two", data: map[string]interface{}{"n": 1}}))

		require.NoError(t, manager.SaveAll())
		assert.Equal(t, "v", store.sections["one"]["k"])
		assert.Equal(t, 1, store.sections["two"]["n"])
		assert.Equal(t, 1, store.saved)
	})

	t.Run("validation failure writes nothing", func(t *testing.T) {
		store := newMockStore()
		manager := NewManager(store)
		require.NoError(t, manager.RegisterSection(&mockSection{id: "ok", data: map[string]interface{}{"k": "v"}}))
		require.NoError(t, manager.RegisterSection(&mockSection{id: "bad", validateErr: fmt.Errorf("invalid")}))

		assert.Error(t, manager.SaveAll())
		assert.Empty(t, store.sections)
		assert.Zero(t, store.saved)
	})

	t.Run("store error", func(t *testing.T) {
		store := newMockStore()
		store.saveErr = fmt.Errorf("save error")
		manager := NewManager(store)
		require.NoError(t, manager.RegisterSection(&mockSection{id: "x"}))
		assert.Error(t, manager.SaveAll())
	})
}

func TestManager_ResetAll(t *testing.T) {
	manager := NewManager(newMockStore())
	one := &mockSection{id: "one", data: map[string]interface{}{"k": "v"}}
	require.NoError(t, manager.RegisterSection(one))

	manager.ResetAll()
	assert.Empty(t, one.data)

	assert.NotPanics(t, func() { NewManager(newMockStore()).ResetAll() })
}

func TestManager_ConcurrentRegistration(t *testing.T) {
	manager := NewManager(newMockStore())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = manager.RegisterSection(&mockSection{id: fmt.Sprintf("section%d", i)})
			manager.GetSections()
		}(i)
	}
	wg.Wait()

	assert.Len(t, manager.GetSections(), 10)
}
