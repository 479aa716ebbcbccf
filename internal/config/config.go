// Package config loads and validates the bot configuration.
//
// Configuration comes from a YAML file (unknown keys are rejected), then
// environment variables for secrets, then command-line flags applied by the
// caller. Validate checks the result against an embedded CUE schema.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// Environment variables that override secrets in the file.
const (
	EnvClientSecret = "REPLYGUARD_CLIENT_SECRET"
	EnvPassword     = "REPLYGUARD_PASSWORD"
)

type Bot struct {
	Username  string `yaml:"username" json:"username"`
	UserAgent string `yaml:"user_agent" json:"user_agent"`
}

type Reddit struct {
	ClientID     string        `yaml:"client_id" json:"client_id"`
	ClientSecret string        `yaml:"client_secret" json:"client_secret"`
	Password     string        `yaml:"password" json:"password"`
	Subreddit    string        `yaml:"subreddit" json:"subreddit"`
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval"`
	MaxBackoff   time.Duration `yaml:"max_backoff" json:"max_backoff"`
	AuthURL      string        `yaml:"auth_url" json:"auth_url"`
	APIURL       string        `yaml:"api_url" json:"api_url"`
}

type Denylist struct {
	Origins string `yaml:"origins" json:"origins"`
	Authors string `yaml:"authors" json:"authors"`
	Terms   string `yaml:"terms" json:"terms"`
}

type Dedup struct {
	Path string `yaml:"path" json:"path"`
}

type Journal struct {
	Path string `yaml:"path" json:"path"`
}

type Metrics struct {
	Addr string `yaml:"addr" json:"addr"`
}

// Feed replaces the Reddit stream with a JSON-lines file when Path is set.
type Feed struct {
	Path         string        `yaml:"path" json:"path"`
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval"`
}

// Config is the complete bot configuration.
type Config struct {
	Bot          Bot           `yaml:"bot" json:"bot"`
	Reddit       Reddit        `yaml:"reddit" json:"reddit"`
	Denylist     Denylist      `yaml:"denylist" json:"denylist"`
	Dedup        Dedup         `yaml:"dedup" json:"dedup"`
	Journal      Journal       `yaml:"journal" json:"journal"`
	Metrics      Metrics       `yaml:"metrics" json:"metrics"`
	Feed         Feed          `yaml:"feed" json:"feed"`
	Classifier   string        `yaml:"classifier" json:"classifier"`
	DryRun       bool          `yaml:"dry_run" json:"dry_run"`
	ReplyTimeout time.Duration `yaml:"reply_timeout" json:"reply_timeout"`
}

// Load reads path (if non-empty), applies defaults and environment
// overrides. It does not validate.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.Getenv)
}

// LoadWithEnv is Load with an injectable environment lookup.
func LoadWithEnv(path string, getenv func(string) string) (*Config, error) {
	c := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := decode(data, c); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		c.resolvePaths(filepath.Dir(path))
	}

	c.applyEnv(getenv)
	c.applyDefaults()
	return c, nil
}

func decode(data []byte, c *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	c.Reddit.ClientSecret = getEnv(getenv, EnvClientSecret, c.Reddit.ClientSecret)
	c.Reddit.Password = getEnv(getenv, EnvPassword, c.Reddit.Password)
}

func getEnv(getenv func(string) string, key, fallback string) string {
	if value := getenv(key); value != "" {
		return value
	}
	return fallback
}

func (c *Config) applyDefaults() {
	if c.Bot.UserAgent == "" && c.Bot.Username != "" {
		c.Bot.UserAgent = "replyguard/1.0 by /u/" + c.Bot.Username
	}
	if c.Reddit.Subreddit == "" {
		c.Reddit.Subreddit = "all"
	}
	if c.Reddit.PollInterval == 0 {
		c.Reddit.PollInterval = 2 * time.Second
	}
	if c.Reddit.MaxBackoff == 0 {
		c.Reddit.MaxBackoff = 16 * time.Second
	}
	if c.Denylist.Origins == "" {
		c.Denylist.Origins = "blockedsubreddits.txt"
	}
	if c.Denylist.Authors == "" {
		c.Denylist.Authors = "blockedusers.txt"
	}
	if c.Denylist.Terms == "" {
		c.Denylist.Terms = "triggerwords.txt"
	}
	if c.Dedup.Path == "" {
		c.Dedup.Path = "replyids.txt"
	}
	if c.Classifier == "" {
		c.Classifier = "stub"
	}
}

// resolvePaths makes file paths in the config relative to the config file.
func (c *Config) resolvePaths(dir string) {
	for _, p := range []*string{
		&c.Denylist.Origins,
		&c.Denylist.Authors,
		&c.Denylist.Terms,
		&c.Dedup.Path,
		&c.Journal.Path,
		&c.Feed.Path,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}

// ValidationError lists every schema violation.
type ValidationError struct {
	Details string
	Err     error
}

func (e *ValidationError) Error() string {
	return "invalid config:\n" + e.Details
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Validate checks c against the embedded schema.
func (c *Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(ctx.Encode(c))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return &ValidationError{Details: cueerrors.Details(err, nil), Err: err}
	}
	return nil
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() Config {
	out := *c
	if out.Reddit.ClientSecret != "" {
		out.Reddit.ClientSecret = "REDACTED"
	}
	if out.Reddit.Password != "" {
		out.Reddit.Password = "REDACTED"
	}
	return out
}

// NeedsReddit reports whether the run talks to Reddit at all.
func (c *Config) NeedsReddit() bool {
	return !c.DryRun || c.Feed.Path == ""
}
