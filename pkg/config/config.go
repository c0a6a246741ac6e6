package config

import (
	"sync"
)

var (
	// globalManager is the singleton configuration manager instance
	globalManager *Manager
	globalMu      sync.Mutex
)

// NewDefaultManager creates a manager over the file at configPath with the
// retrieval, autofill and sites sections registered and loaded.
func NewDefaultManager(configPath string) (*Manager, error) {
	store, err := NewFileStore(configPath)
	if err != nil {
		return nil, err
	}

	manager := NewManager(store)
	for _, s := range []Section{NewRetrievalSection(), NewAutofillSection(), NewSitesSection()} {
		if err := manager.RegisterSection(s); err != nil {
			return nil, err
		}
	}

	if err := manager.LoadAll(); err != nil {
		return nil, err
	}
	return manager, nil
}

// Initialize creates and initializes the global configuration manager.
// This should be called once at application startup.
func Initialize(configPath string) error {
	manager, err := NewDefaultManager(configPath)
	if err != nil {
		return err
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	globalManager = manager
	return nil
}

// Global returns the global configuration manager.
// Panics if Initialize has not been called.
func Global() *Manager {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager == nil {
		panic("config not initialized: call config.Initialize first")
	}

	return globalManager
}

// IsInitialized returns true if the global configuration has been initialized.
func IsInitialized() bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalManager != nil
}

func reset() {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalManager = nil
}

func globalSection[T Section](id string) T {
	var zero T
	if !IsInitialized() {
		return zero
	}
	section, ok := Global().GetSection(id)
	if !ok {
		return zero
	}
	typed, ok := section.(T)
	if !ok {
		return zero
	}
	return typed
}

// GetRetrieval returns the retrieval section from global config.
// Returns nil if config is not initialized.
func GetRetrieval() *RetrievalSection {
	return globalSection[*RetrievalSection](SectionIDRetrieval)
}

// GetAutofill returns the autofill section from global config.
// Returns nil if config is not initialized.
func GetAutofill() *AutofillSection {
	return globalSection[*AutofillSection](SectionIDAutofill)
}

// GetSites returns the sites section from global config.
// Returns nil if config is not initialized.
func GetSites() *SitesSection {
	return globalSection[*SitesSection](SectionIDSites)
}

// GetTuning returns the autofill tuning from global config, or the defaults.
func GetTuning() Tuning {
	if s := GetAutofill(); s != nil {
		return s.Tuning()
	}
	return DefaultTuning()
}
