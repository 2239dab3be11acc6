package ratelimit

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// ConfigManager manages rate limit configuration with hot-reload support
type ConfigManager struct {
	mu         sync.RWMutex
	limits     Limits
	configFile string
	watcher    *fsnotify.Watcher
}

// NewConfigManager loads (or creates) the rate limit config file and starts
// watching it for changes
func NewConfigManager(configFile string) (*ConfigManager, error) {
	cm := &ConfigManager{
		configFile: configFile,
	}

	if err := cm.loadConfig(); err != nil {
		log.Printf("⚠️ Rate limit config file not found, using defaults: %v", err)
		cm.limits = GetDefaultLimits()
		// Save default config to file
		if err := cm.saveConfig(); err != nil {
			log.Printf("⚠️ Failed to save default rate limit config: %v", err)
		}
	}

	// Start file watcher
	if err := cm.startWatcher(); err != nil {
		log.Printf("⚠️ Failed to start rate limit config watcher: %v", err)
	}

	return cm, nil
}

// Current returns the active limits
func (cm *ConfigManager) Current() Limits {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.limits
}

// loadConfig loads configuration from file
func (cm *ConfigManager) loadConfig() error {
	data, err := os.ReadFile(cm.configFile)
	if err != nil {
		return err
	}

	var limits Limits
	if err := json.Unmarshal(data, &limits); err != nil {
		return err
	}

	if err := validateLimits(limits); err != nil {
		return err
	}

	cm.mu.Lock()
	cm.limits = limits
	cm.mu.Unlock()

	log.Printf("✅ Rate limit config loaded: %d/user/day, %d/user/min, %d total/day",
		limits.RequestsPerUser, limits.RequestsPerMinute, limits.TotalDailyLimit)
	return nil
}

// saveConfig saves configuration to file
func (cm *ConfigManager) saveConfig() error {
	// Ensure directory exists
	dir := filepath.Dir(cm.configFile)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	cm.mu.RLock()
	limits := cm.limits
	cm.mu.RUnlock()

	data, err := json.MarshalIndent(limits, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(cm.configFile, data, 0644)
}

// startWatcher starts file change monitoring
func (cm *ConfigManager) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	cm.watcher = watcher

	configBase := filepath.Base(cm.configFile)

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != configBase {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := cm.loadConfig(); err != nil {
					log.Printf("⚠️ Failed to reload rate limit config: %v", err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("⚠️ Rate limit config watcher error: %v", err)
			}
		}
	}()

	// Watch the directory: editors replace files instead of writing in place
	return watcher.Add(filepath.Dir(cm.configFile))
}

// Close stops the file watcher
func (cm *ConfigManager) Close() error {
	if cm.watcher != nil {
		return cm.watcher.Close()
	}
	return nil
}

func validateLimits(l Limits) error {
	if l.RequestsPerUser <= 0 || l.RequestsPerMinute <= 0 || l.TotalDailyLimit <= 0 {
		return fmt.Errorf("rate limits must be positive: %+v", l)
	}
	return nil
}
