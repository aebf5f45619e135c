package templates

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EmailConfig holds the branding and wording of the transactional emails.
// It is loaded from config/email.yml; callers fall back to
// DefaultEmailConfig when the file is absent.
type EmailConfig struct {
	Branding struct {
		Name    string `yaml:"name"`
		Website string `yaml:"website"`
	} `yaml:"branding"`
	Subjects struct {
		Confirmation string `yaml:"confirmation"`
		AdminPending string `yaml:"admin_pending"`
	} `yaml:"subjects"`
	Confirmation struct {
		Intro         string `yaml:"intro"`
		ExpiryWarning string `yaml:"expiry_warning"`
		IgnoreText    string `yaml:"ignore_text"`
	} `yaml:"confirmation"`
}

// DefaultEmailConfig returns the built-in email wording.
func DefaultEmailConfig() *EmailConfig {
	cfg := &EmailConfig{}
	cfg.Branding.Name = "La Coctelera"
	cfg.Branding.Website = "https://nubecita.eu"
	cfg.Subjects.Confirmation = "Verify your email for the La Coctelera API"
	cfg.Subjects.AdminPending = "New client of the API validated"
	cfg.Confirmation.Intro = "Follow the link below to verify your email and receive your API token."
	cfg.Confirmation.ExpiryWarning = "The link expires after one day."
	cfg.Confirmation.IgnoreText = "Didn't request an API token? Ignore this email."
	return cfg
}

// LoadEmailConfig reads config/email.yml.
func LoadEmailConfig() (*EmailConfig, error) {
	content, err := os.ReadFile("config/email.yml")
	if err != nil {
		return nil, fmt.Errorf("failed to read email config: %w", err)
	}

	cfg := DefaultEmailConfig()
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse email config: %w", err)
	}
	return cfg, nil
}
