package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Listen       string `yaml:"listen" validate:"required,hostname_port"`
	ProxyPath    string `yaml:"proxy_path" validate:"required,startswith=/"`
	Output       string `yaml:"output"`
	ImageWorkers int    `yaml:"image_workers" validate:"gte=1,lte=64"`
	Debug        bool   `yaml:"debug"`

	DefaultBook string `yaml:"default_book"`
	DefaultURL  string `yaml:"default_url" validate:"omitempty,url"`

	Cookie           string `yaml:"cookie"`
	CookieFile       string `yaml:"cookie_file"`
	UserAgent        string `yaml:"user_agent"`
	CloudflareBypass bool   `yaml:"cloudflare_bypass"`
	TimeoutSeconds   int    `yaml:"timeout_seconds" validate:"gte=0"`

	SkipBroken bool `yaml:"skip_broken"`
}

type Options struct {
	IgnoreConfig     bool
	Debug            bool
	Listen           string
	Output           string
	ImageWorkers     int
	DefaultBook      string
	DefaultURL       string
	Cookie           string
	CookieFile       string
	UserAgent        string
	CloudflareBypass bool
	TimeoutSeconds   int
	SkipBroken       bool
}

const (
	defaultListen       = "127.0.0.1:7878"
	defaultProxyPath    = "/proxy"
	defaultImageWorkers = 5
	defaultTimeout      = 30
)

func DefaultConfig() *Config {
	return &Config{
		Listen:         defaultListen,
		ProxyPath:      defaultProxyPath,
		Output:         ".",
		ImageWorkers:   defaultImageWorkers,
		TimeoutSeconds: defaultTimeout,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Timeout is the upstream request timeout. Zero disables it.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ProxyBase is the proxy endpoint of the local server.
func (c *Config) ProxyBase() string {
	return "http://" + c.Listen + c.ProxyPath
}

func SaveYAML(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// LoadYAML reads a profile on top of the defaults, so keys missing from
// the file keep their default values.
func LoadYAML(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c := DefaultConfig()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}

	return c, nil
}

func LoadMerged(opts Options) (*Config, string, error) {
	if opts.IgnoreConfig {
		return finish(DefaultConfig(), opts, "(ignored config)")
	}

	activePath, err := ActiveConfigPath()
	if err == ErrNoConfig || activePath == "" {
		return finish(DefaultConfig(), opts, "(default config in memory)\nRun `tachi config init` to create an actual config\n")
	}
	if err != nil {
		return nil, "", err
	}

	cfg, err := LoadYAML(activePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config %s: %w", activePath, err)
	}

	return finish(cfg, opts, activePath)
}

func finish(cfg *Config, opts Options, source string) (*Config, string, error) {
	mergeConfig(cfg, opts)
	normalizeDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	return cfg, source, nil
}

func mergeConfig(c *Config, o Options) {
	if o.Listen != "" {
		c.Listen = o.Listen
	}
	if o.Output != "" {
		c.Output = o.Output
	}
	if o.ImageWorkers != 0 {
		c.ImageWorkers = o.ImageWorkers
	}
	if o.Debug {
		c.Debug = true
	}
	if o.DefaultBook != "" {
		c.DefaultBook = o.DefaultBook
	}
	if o.DefaultURL != "" {
		c.DefaultURL = o.DefaultURL
	}
	if o.Cookie != "" {
		c.Cookie = o.Cookie
	}
	if o.CookieFile != "" {
		c.CookieFile = o.CookieFile
	}
	if o.UserAgent != "" {
		c.UserAgent = o.UserAgent
	}
	if o.CloudflareBypass {
		c.CloudflareBypass = true
	}
	if o.TimeoutSeconds != 0 {
		c.TimeoutSeconds = o.TimeoutSeconds
	}
	if o.SkipBroken {
		c.SkipBroken = true
	}
}

func normalizeDefaults(c *Config) {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.ProxyPath == "" {
		c.ProxyPath = defaultProxyPath
	}
	if c.Output == "" {
		c.Output = "."
	}
	if c.ImageWorkers == 0 {
		c.ImageWorkers = defaultImageWorkers
	}
}

func (c *Config) Print() {
	fmt.Printf(" -listen: %s\n", c.Listen)
	fmt.Printf(" -proxy_path: %s\n", c.ProxyPath)
	if c.Output != "" {
		fmt.Printf(" -output: %s\n", c.Output)
	}
	fmt.Printf(" -image_workers: %d\n", c.ImageWorkers)
	if c.Debug {
		fmt.Printf(" -debug: %t\n", c.Debug)
	}
	if c.DefaultBook != "" {
		fmt.Printf(" -book: %s\n", c.DefaultBook)
	}
	if c.DefaultURL != "" {
		fmt.Printf(" -url: %s\n", c.DefaultURL)
	}
	if c.CookieFile != "" {
		fmt.Printf(" -cookie_file: %s\n", c.CookieFile)
	}
	if c.UserAgent != "" {
		fmt.Printf(" -user_agent: %s\n", c.UserAgent)
	}
	if c.CloudflareBypass {
		fmt.Printf(" -cloudflare_bypass: %t\n", c.CloudflareBypass)
	}
	fmt.Printf(" -timeout: %s\n", c.Timeout())
	if c.SkipBroken {
		fmt.Printf(" -skip_broken: %t\n", c.SkipBroken)
	}
}
