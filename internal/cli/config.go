package cli

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Config holds CLI configuration
type Config struct {
	ServerURL string
	Token     string
	TokenFile string
	As        string
	Output    string
	Verbose   bool
}

// DefaultConfig returns a Config with values from the environment or defaults
func DefaultConfig() *Config {
	return &Config{
		ServerURL: getEnvOrDefault("TRIVIAPOOL_SERVER", "http://localhost:8080"),
		Token:     os.Getenv("TRIVIAPOOL_TOKEN"),
		TokenFile: getEnvOrDefault("TRIVIAPOOL_TOKEN_FILE", defaultTokenFile()),
		As:        os.Getenv("TRIVIAPOOL_AS"),
		Output:    "text",
	}
}

// LoadToken loads the admin token from file if not already set
func (c *Config) LoadToken() error {
	if c.Token != "" {
		return nil
	}

	data, err := os.ReadFile(c.TokenFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}

	c.Token = strings.TrimSpace(string(data))
	return nil
}

// SaveToken saves the admin token to the token file
func (c *Config) SaveToken(token string) error {
	c.Token = token

	if err := os.MkdirAll(filepath.Dir(c.TokenFile), 0o700); err != nil {
		return err
	}
	return os.WriteFile(c.TokenFile, []byte(token), 0o600)
}

// ClearToken removes the saved admin token
func (c *Config) ClearToken() error {
	c.Token = ""
	if err := os.Remove(c.TokenFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".triviapool", "token")
	}
	return filepath.Join(home, ".triviapool", "token")
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
