package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Output      string `yaml:"output"`
	Format      string `yaml:"format"`
	KeepFolders bool   `yaml:"keep_folders"`
	Debug       bool   `yaml:"debug"`

	// Portal contract. BaseURL and PathPrefix change per exam session
	// (e.g. /AKTUSUMMER vs /AKTUWINTER); the rest of the protocol is
	// pinned in code.
	BaseURL     string `yaml:"base_url"`
	PathPrefix  string `yaml:"path_prefix"`
	PageCeiling int    `yaml:"page_ceiling"`
	PageDelayMS int    `yaml:"page_delay_ms"`
	UserAgent   string `yaml:"user_agent"`

	RollNo      string `yaml:"roll_no"`
	Course      string `yaml:"course"`
	Subject     string `yaml:"subject"`
	AllSubjects bool   `yaml:"all_subjects"`
}

type Options struct {
	IgnoreConfig bool
	Debug        bool

	Output      string
	Format      string
	KeepFolders bool

	BaseURL     string
	PathPrefix  string
	PageCeiling int
	PageDelayMS int
	UserAgent   string

	RollNo      string
	Course      string
	Subject     string
	AllSubjects bool
}

func DefaultConfig() *Config {
	return &Config{
		Output:      ".",
		Format:      "pdf",
		KeepFolders: false,
		Debug:       false,
		BaseURL:     "https://aktuexams.in",
		PathPrefix:  "/AKTUSUMMER",
		PageCeiling: 36,
		PageDelayMS: 300,
		UserAgent:   "",
		RollNo:      "",
		Course:      "BTECH",
		Subject:     "",
		AllSubjects: false,
	}
}

func SaveYAML(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func loadYAML(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	return &c, nil
}

func LoadMerged(opts Options) (*Config, string, error) {
	if opts.IgnoreConfig {
		cfg := DefaultConfig()
		mergeConfig(cfg, opts)
		normalizeDefaults(cfg)
		return cfg, "(ignored config)", nil
	}

	activePath, err := ActiveConfigPath()
	if err == ErrNoConfig || activePath == "" {
		cfg := DefaultConfig()
		mergeConfig(cfg, opts)
		normalizeDefaults(cfg)
		return cfg, "(default config in memory)\nRun `aktudl config init` to create an actual config\n", nil
	}
	if err != nil {
		return nil, "", err
	}

	cfg, err := loadYAML(activePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config %s: %w", activePath, err)
	}

	mergeConfig(cfg, opts)
	normalizeDefaults(cfg)

	return cfg, activePath, nil
}

func mergeConfig(c *Config, o Options) {
	if o.Output != "" {
		c.Output = o.Output
	}
	if o.Format != "" {
		c.Format = o.Format
	}
	if o.KeepFolders {
		c.KeepFolders = true
	}
	if o.Debug {
		c.Debug = true
	}
	if o.BaseURL != "" {
		c.BaseURL = o.BaseURL
	}
	if o.PathPrefix != "" {
		c.PathPrefix = o.PathPrefix
	}
	if o.PageCeiling != 0 {
		c.PageCeiling = o.PageCeiling
	}
	if o.PageDelayMS != 0 {
		c.PageDelayMS = o.PageDelayMS
	}
	if o.UserAgent != "" {
		c.UserAgent = o.UserAgent
	}
	if o.RollNo != "" {
		c.RollNo = o.RollNo
	}
	if o.Course != "" {
		c.Course = o.Course
	}
	if o.Subject != "" {
		c.Subject = o.Subject
	}
	if o.AllSubjects {
		c.AllSubjects = true
	}
}

func normalizeDefaults(c *Config) {
	if c.Output == "" {
		c.Output = "."
	}
	if c.Format == "" {
		c.Format = "pdf"
	}
	if c.BaseURL == "" {
		c.BaseURL = "https://aktuexams.in"
	}
	if c.PathPrefix == "" {
		c.PathPrefix = "/AKTUSUMMER"
	}
	if c.PageCeiling <= 0 {
		c.PageCeiling = 36
	}
	if c.PageDelayMS <= 0 {
		c.PageDelayMS = 300
	}
	if c.Course == "" {
		c.Course = "BTECH"
	}
}

func (c *Config) Print() {
	if c.Output != "" {
		fmt.Printf(" -output: %s\n", c.Output)
	}
	fmt.Printf(" -format: %s\n", c.Format)
	if c.KeepFolders {
		fmt.Printf(" -keep_folders: %t\n", c.KeepFolders)
	}
	if c.Debug {
		fmt.Printf(" -debug: %t\n", c.Debug)
	}
	fmt.Printf(" -base_url: %s\n", c.BaseURL)
	fmt.Printf(" -path_prefix: %s\n", c.PathPrefix)
	fmt.Printf(" -page_ceiling: %d\n", c.PageCeiling)
	fmt.Printf(" -page_delay_ms: %d\n", c.PageDelayMS)
	if c.UserAgent != "" {
		fmt.Printf(" -user_agent: %s\n", c.UserAgent)
	}
	if c.RollNo != "" {
		fmt.Printf(" -roll_no: %s\n", c.RollNo)
	}
	fmt.Printf(" -course: %s\n", c.Course)
	if c.Subject != "" {
		fmt.Printf(" -subject: %s\n", c.Subject)
	}
	if c.AllSubjects {
		fmt.Printf(" -all_subjects: %t\n", c.AllSubjects)
	}
}
