package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds everything a run needs. Values come from an optional TOML file
// with environment variables taking precedence, so scheduled runs can override
// single values without editing the file.
type Config struct {
	// Canvas
	BaseURL     string `toml:"base_url"`
	AccessToken string `toml:"access_token"`
	CourseID    string `toml:"course_id"`
	DownloadDir string `toml:"download_dir"`

	PerPage            int `toml:"per_page"`
	HTTPTimeoutSeconds int `toml:"http_timeout_seconds"`
	MaxAttempts        int `toml:"max_attempts"`

	// Optional SFTP mirror of the finished artifact tree
	SFTPHost                  string `toml:"sftp_host"`
	SFTPPort                  int    `toml:"sftp_port"`
	SFTPUser                  string `toml:"sftp_user"`
	SFTPPass                  string `toml:"sftp_pass"`
	SFTPDir                   string `toml:"sftp_dir"`
	SFTPInsecureIgnoreHostKey bool   `toml:"sftp_insecure_ignore_hostkey"`
}

// Load builds a validated Config. path may be empty (env only).
func Load(path string) (Config, error) {
	cfg := Config{
		PerPage:                   100,
		HTTPTimeoutSeconds:        120,
		MaxAttempts:               8,
		SFTPPort:                  22,
		SFTPDir:                   "/inbound",
		SFTPInsecureIgnoreHostKey: true,
	}

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	// env wins over the file
	cfg.BaseURL = getenv("CANVAS_BASE_URL", cfg.BaseURL)
	cfg.AccessToken = getenv("CANVAS_ACCESS_TOKEN", cfg.AccessToken)
	cfg.CourseID = getenv("CANVAS_COURSE_ID", cfg.CourseID)
	cfg.DownloadDir = getenv("CANVAS_DOWNLOAD_DIR", cfg.DownloadDir)
	cfg.PerPage = getenvInt("CANVAS_PER_PAGE", cfg.PerPage)
	cfg.HTTPTimeoutSeconds = getenvInt("CANVAS_HTTP_TIMEOUT_SECONDS", cfg.HTTPTimeoutSeconds)
	cfg.MaxAttempts = getenvInt("CANVAS_MAX_ATTEMPTS", cfg.MaxAttempts)

	cfg.SFTPHost = getenv("SFTP_HOST", cfg.SFTPHost)
	cfg.SFTPPort = getenvInt("SFTP_PORT", cfg.SFTPPort)
	cfg.SFTPUser = getenv("SFTP_USER", cfg.SFTPUser)
	cfg.SFTPPass = getenv("SFTP_PASS", cfg.SFTPPass)
	cfg.SFTPDir = getenv("SFTP_DIR", cfg.SFTPDir)
	cfg.SFTPInsecureIgnoreHostKey = getenvBool("SFTP_INSECURE_IGNORE_HOSTKEY", cfg.SFTPInsecureIgnoreHostKey)

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects incomplete or out-of-range values before any network call.
func (c Config) Validate() error {
	var missing []string
	if c.BaseURL == "" {
		missing = append(missing, "CANVAS_BASE_URL")
	}
	if c.AccessToken == "" {
		missing = append(missing, "CANVAS_ACCESS_TOKEN")
	}
	if c.CourseID == "" {
		missing = append(missing, "CANVAS_COURSE_ID")
	}
	if c.DownloadDir == "" {
		missing = append(missing, "CANVAS_DOWNLOAD_DIR")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}

	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("CANVAS_BASE_URL must start with http:// or https://, got %q", c.BaseURL)
	}
	// Canvas caps per_page at 100
	if c.PerPage < 1 || c.PerPage > 100 {
		return fmt.Errorf("CANVAS_PER_PAGE must be between 1 and 100, got %d", c.PerPage)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("CANVAS_MAX_ATTEMPTS must be at least 1, got %d", c.MaxAttempts)
	}
	if c.HTTPTimeoutSeconds < 1 {
		return fmt.Errorf("CANVAS_HTTP_TIMEOUT_SECONDS must be at least 1, got %d", c.HTTPTimeoutSeconds)
	}
	return nil
}

// SFTPEnabled reports whether a post-run upload was configured.
func (c Config) SFTPEnabled() bool { return c.SFTPHost != "" }

// HTTPTimeout is the per-request client timeout.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

func getenv(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvBool(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
