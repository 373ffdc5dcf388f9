package crm

import "time"

// Config holds settings for the CRM REST client.
type Config struct {
	// BaseURL is the CRM API root, e.g. https://api.hubapi.com
	BaseURL string `yaml:"base_url" json:"base_url"`
	// AccessToken is the bearer credential attached to every call. Never logged.
	AccessToken string `yaml:"access_token" json:"-"`
	// Timeout bounds every outbound call
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL: "https://api.hubapi.com",
		Timeout: 30 * time.Second,
	}
}
