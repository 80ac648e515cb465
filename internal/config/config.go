package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// DefaultLinksURL is the raw URL of the published registry.
const DefaultLinksURL = "https://raw.githubusercontent.com/philipp-spiess/links/main/links.txt"

// Config holds the application configuration
type Config struct {
	LinksURL     string        `mapstructure:"links_url"`
	LinksFile    string        `mapstructure:"links_file"`
	ShortHost    string        `mapstructure:"short_host"`
	HomeURL      string        `mapstructure:"home_url"`
	Listen       string        `mapstructure:"listen"`
	MetricsAddr  string        `mapstructure:"metrics_addr"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	Git          bool          `mapstructure:"git"`
	TerminalCmd  string        `mapstructure:"terminal_cmd"`
	Shell        string        `mapstructure:"shell"`
	ColorPath    string        `mapstructure:"color_path"`
	ColorURL     string        `mapstructure:"color_url"`
	ColorTitle   string        `mapstructure:"color_title"`
	ColorCursor  string        `mapstructure:"color_cursor"`
	ColorError   string        `mapstructure:"color_error"`
	ColorDim     string        `mapstructure:"color_dim"`
}

// C is the global config instance
var C Config

// Init initializes configuration with viper. configFile, when set, replaces
// the search path.
func Init(configFile string) error {
	viper.SetDefault("links_url", DefaultLinksURL)
	viper.SetDefault("links_file", "~/dev/links/links.txt")
	viper.SetDefault("short_host", "psp.sh")
	viper.SetDefault("home_url", "https://spiess.dev")
	viper.SetDefault("listen", ":8080")
	viper.SetDefault("metrics_addr", "")
	viper.SetDefault("cache_ttl", 60*time.Second)
	viper.SetDefault("fetch_timeout", 10*time.Second)
	viper.SetDefault("git", true)
	viper.SetDefault("terminal_cmd", defaultTerminalCmd())
	viper.SetDefault("shell", getDefaultShell())
	viper.SetDefault("color_path", "36")   // Cyan
	viper.SetDefault("color_url", "90")    // Gray
	viper.SetDefault("color_title", "33")  // Yellow
	viper.SetDefault("color_cursor", "212")
	viper.SetDefault("color_error", "196")
	viper.SetDefault("color_dim", "241")

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("shortlinks")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(filepath.Join(xdg.ConfigHome, "shortlinks"))
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("SHORTLINKS")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// A missing file is fine unless the user named one explicitly
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return err
		}
	}

	return viper.Unmarshal(&C)
}

// ConfigFileUsed returns the path of the loaded config file, if any.
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}

// GetLinksURL returns the remote registry URL. Empty means use the local file.
func GetLinksURL() string {
	return viper.GetString("links_url")
}

// GetLinksFile returns the local registry path with tilde expansion
func GetLinksFile() string {
	return expandTilde(viper.GetString("links_file"))
}

// GetLinksDir returns the directory holding the local registry, where git
// and the terminal effect run.
func GetLinksDir() string {
	return filepath.Dir(GetLinksFile())
}

// GetShortHost returns the host used to build short URLs
func GetShortHost() string {
	return viper.GetString("short_host")
}

// ShortURL returns the public short URL for path.
func ShortURL(path string) string {
	return "https://" + GetShortHost() + path
}

// GetHomeURL returns the link shown on the not-found page
func GetHomeURL() string {
	return viper.GetString("home_url")
}

// GetListen returns the redirect server address
func GetListen() string {
	return viper.GetString("listen")
}

// GetMetricsAddr returns the metrics listener address, empty when disabled
func GetMetricsAddr() string {
	return viper.GetString("metrics_addr")
}

// GetCacheTTL returns how long a redirect snapshot stays fresh
func GetCacheTTL() time.Duration {
	return viper.GetDuration("cache_ttl")
}

// GetFetchTimeout returns the HTTP timeout for registry fetches
func GetFetchTimeout() time.Duration {
	return viper.GetDuration("fetch_timeout")
}

// GetGit returns whether writes are committed with git
func GetGit() bool {
	return viper.GetBool("git")
}

// GetTerminalCmd returns the command that opens a terminal in the links dir
func GetTerminalCmd() string {
	return viper.GetString("terminal_cmd")
}

// GetShell returns the shell
func GetShell() string {
	return viper.GetString("shell")
}

// GetColorPath returns the color for link paths
func GetColorPath() string {
	return viper.GetString("color_path")
}

// GetColorURL returns the color for destination URLs
func GetColorURL() string {
	return viper.GetString("color_url")
}

// GetColorTitle returns the color for group titles
func GetColorTitle() string {
	return viper.GetString("color_title")
}

// GetColorCursor returns the cursor color
func GetColorCursor() string {
	return viper.GetString("color_cursor")
}

// GetColorError returns the color for validation messages
func GetColorError() string {
	return viper.GetString("color_error")
}

// GetColorDim returns the color for dim text
func GetColorDim() string {
	return viper.GetString("color_dim")
}

// SetLinksFile sets the local registry path at runtime
func SetLinksFile(path string) {
	viper.Set("links_file", path)
	C.LinksFile = path
}

// SetLinksURL sets the remote registry URL at runtime
func SetLinksURL(url string) {
	viper.Set("links_url", url)
	C.LinksURL = url
}

// expandTilde expands ~ to the user's home directory
func expandTilde(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

func defaultTerminalCmd() string {
	if runtime.GOOS == "darwin" {
		return "open -W -a Terminal ."
	}
	return ""
}

func getDefaultShell() string {
	if shell := os.Getenv("SHELL"); shell != "" {
		return shell
	}
	return "/bin/bash"
}
