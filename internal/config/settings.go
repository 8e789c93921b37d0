package config

import (
	"fmt"
	"os"
	"sync"

	"github.com/rishi-narain/ad-tester/internal/models"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// SettingsStore holds the runtime settings and persists edits back to
// the settings section of the config file.
type SettingsStore struct {
	mu       sync.RWMutex
	settings models.Settings
	apiKey   string
	path     string
	logger   *zap.Logger
}

// NewSettingsStore starts from cfg.Settings. An empty path keeps edits in
// memory only.
func NewSettingsStore(cfg *Config, path string, logger *zap.Logger) *SettingsStore {
	return &SettingsStore{
		settings: cloneSettings(cfg.Settings),
		apiKey:   cfg.PrimaryAPIKey(),
		path:     path,
		logger:   logger,
	}
}

// Settings returns a copy of the current settings.
func (s *SettingsStore) Settings() models.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSettings(s.settings)
}

// View is the admin representation with the provider key masked.
func (s *SettingsStore) View() models.SettingsView {
	return models.SettingsView{Settings: s.Settings(), APIKey: MaskKey(s.apiKey)}
}

// Update applies the non-nil fields, writes the config file and then
// swaps the in-memory settings. On a write error nothing changes.
func (s *SettingsStore) Update(upd models.SettingsUpdate) (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := cloneSettings(s.settings)
	if upd.MaxFileSizeMB != nil {
		next.MaxFileSizeMB = *upd.MaxFileSizeMB
	}
	if upd.AllowedFileTypes != nil {
		next.AllowedFileTypes = append([]string(nil), upd.AllowedFileTypes...)
	}
	if upd.EnableAnalytics != nil {
		next.EnableAnalytics = *upd.EnableAnalytics
	}
	if upd.MaintenanceMode != nil {
		next.MaintenanceMode = *upd.MaintenanceMode
	}

	if s.path != "" {
		if err := writeSettings(s.path, next); err != nil {
			s.logger.Error("Failed to write config file", zap.Error(err), zap.String("path", s.path))
			return s.settings, err
		}
	}

	s.settings = next
	s.logger.Info("Settings updated",
		zap.Int("max_file_size_mb", next.MaxFileSizeMB),
		zap.Strings("allowed_file_types", next.AllowedFileTypes),
		zap.Bool("enable_analytics", next.EnableAnalytics),
		zap.Bool("maintenance_mode", next.MaintenanceMode))
	return cloneSettings(next), nil
}

// writeSettings rewrites only the settings section, keeping the rest of
// the file (including ${ENV} references) as written.
func writeSettings(path string, settings models.Settings) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var configData map[string]interface{}
	if err := yaml.Unmarshal(data, &configData); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	if configData == nil {
		configData = make(map[string]interface{})
	}
	configData["settings"] = settings

	newData, err := yaml.Marshal(configData)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat config file: %w", err)
	}
	if err := os.WriteFile(path, newData, info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// MaskKey keeps the first 7 characters of a key.
func MaskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 7 {
		return "..."
	}
	return key[:7] + "..."
}

func cloneSettings(s models.Settings) models.Settings {
	s.AllowedFileTypes = append([]string(nil), s.AllowedFileTypes...)
	return s
}
