package configuration

import (
	"fmt"
	"os"
	"strings"
)

// TikTokConfig represents the resolved TikTok OAuth client configuration.
type TikTokConfig struct {
	ClientKey    string `mapstructure:"client_key"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url"`
	Scopes       []string
}

// GetTikTokConfig returns TikTok configuration from JSON config with environment variable fallback
func GetTikTokConfig() (*TikTokConfig, error) {
	// Prefer https redirect locally if TLS is enabled, else http fallback,
	// and honor the configured application port.
	scheme := "http"
	if C.App.TLSEnabled {
		scheme = "https"
	}
	port := C.App.Port
	if port == 0 {
		port = 10001
	}
	defaultRedirect := fmt.Sprintf("%s://localhost:%d/auth/tiktok/callback", scheme, port)
	config := &TikTokConfig{
		ClientKey:    getConfigValue(C.TikTok.ClientKey, "TIKTOK_CLIENT_KEY", ""),
		ClientSecret: getConfigValue(C.TikTok.ClientSecret, "TIKTOK_CLIENT_SECRET", ""),
		RedirectURL:  getConfigValue(C.TikTok.RedirectURI, "TIKTOK_REDIRECT_URI", defaultRedirect),
		Scopes:       C.TikTok.Scopes,
	}

	if v := os.Getenv("TIKTOK_SCOPES"); v != "" {
		config.Scopes = strings.Split(v, ",")
		for i := range config.Scopes {
			config.Scopes[i] = strings.TrimSpace(config.Scopes[i])
		}
	}
	if len(config.Scopes) == 0 {
		config.Scopes = []string{"user.info.basic", "video.list"}
	}

	// Do not hard-fail when credentials are missing; the handshake usecase
	// reports a proper error when the authorize endpoint is actually called.
	return config, nil
}

// getConfigValue gets value from config first, then environment variable, then default
func getConfigValue(configValue, envKey, defaultValue string) string {
	// Environment variable takes precedence when provided
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	// Otherwise use config value if set and not a placeholder
	if configValue != "" && !strings.HasPrefix(configValue, "YOUR_") {
		return configValue
	}
	// Fallback default
	return defaultValue
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
