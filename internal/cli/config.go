package cli

import (
	"os"
	"path/filepath"
	"strings"
)

// Config holds CLI configuration
type Config struct {
	ServerURL       string
	Token           string
	TokenFile       string
	AccessToken     string
	AccessTokenFile string
	Output          string
	Verbose         bool
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL:       getEnvOrDefault("TYPERACE_SERVER", "http://localhost:8080"),
		Token:           os.Getenv("TYPERACE_TOKEN"),
		TokenFile:       getEnvOrDefault("TYPERACE_TOKEN_FILE", defaultConfigFile("token")),
		AccessToken:     os.Getenv("TYPERACE_ACCESS_TOKEN"),
		AccessTokenFile: getEnvOrDefault("TYPERACE_ACCESS_TOKEN_FILE", defaultConfigFile("access_token")),
		Output:          "text",
		Verbose:         false,
	}
}

// LoadTokens loads the session and access tokens from file if not already set
func (c *Config) LoadTokens() error {
	if err := loadToken(&c.Token, c.TokenFile); err != nil {
		return err
	}
	return loadToken(&c.AccessToken, c.AccessTokenFile)
}

// SaveToken saves the session token to the token file
func (c *Config) SaveToken(token string) error {
	c.Token = token
	return saveToken(c.TokenFile, token)
}

// ClearToken forgets the saved session token
func (c *Config) ClearToken() error {
	c.Token = ""
	if err := os.Remove(c.TokenFile); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// SaveAccessToken saves the account access token
func (c *Config) SaveAccessToken(token string) error {
	c.AccessToken = token
	return saveToken(c.AccessTokenFile, token)
}

func loadToken(dst *string, path string) error {
	if *dst != "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // No token file is fine
		}
		return err
	}

	*dst = strings.TrimSpace(string(data))
	return nil
}

func saveToken(path, token string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	return os.WriteFile(path, []byte(token), 0600)
}

func defaultConfigFile(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".typerace", name)
	}
	return filepath.Join(home, ".typerace", name)
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
