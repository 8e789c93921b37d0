package models

import "github.com/golang-jwt/jwt/v5"

// Settings are the runtime-editable knobs exposed on the admin settings page
type Settings struct {
	MaxFileSizeMB    int      `json:"maxFileSize" yaml:"max_file_size_mb"`
	AllowedFileTypes []string `json:"allowedFileTypes" yaml:"allowed_file_types"`
	EnableAnalytics  bool     `json:"enableAnalytics" yaml:"enable_analytics"`
	MaintenanceMode  bool     `json:"maintenanceMode" yaml:"maintenance_mode"`
}

// SettingsView is the admin GET payload; the provider key is masked.
type SettingsView struct {
	Settings
	APIKey string `json:"openaiApiKey"`
}

// SettingsUpdate for PUT /api/admin/settings. Nil fields are left unchanged.
type SettingsUpdate struct {
	MaxFileSizeMB    *int     `json:"maxFileSize" binding:"omitempty,min=1,max=50"`
	AllowedFileTypes []string `json:"allowedFileTypes"`
	EnableAnalytics  *bool    `json:"enableAnalytics"`
	MaintenanceMode  *bool    `json:"maintenanceMode"`
}

// AdminClaims are the JWT claims issued by admin login
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}
