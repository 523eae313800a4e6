package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/BurntSushi/toml"

	"warbler/internal/types"
)

type Config struct {
	Bot     BotConfig     `toml:"bot"`
	Bluesky BlueskyConfig `toml:"bluesky"`
	Store   StoreConfig   `toml:"store"`
	Stream  StreamConfig  `toml:"stream"`
	Search  SearchConfig  `toml:"search"`
	Feed    FeedConfig    `toml:"feed"`
	Safety  SafetyConfig  `toml:"safety"`
	Seen    SeenConfig    `toml:"seen"`
	Server  ServerConfig  `toml:"server"`
	Compose ComposeConfig `toml:"compose"`
}

type BotConfig struct {
	Name       string   `toml:"name"`
	SelfHandle string   `toml:"self_handle"`
	Langs      []string `toml:"langs"`
}

type BlueskyConfig struct {
	Host        string `toml:"host"`
	RelayHost   string `toml:"relay_host"`
	Identifier  string `toml:"identifier"`
	AppPassword string `toml:"app_password"`
}

type StoreConfig struct {
	Path string `toml:"path"`
}

// StreamConfig drives the live-listening worker. Relation selects which
// account set the worker tracks ("primary" or "admin").
type StreamConfig struct {
	Enabled  bool         `toml:"enabled"`
	Relation string       `toml:"relation"`
	Notify   NotifyConfig `toml:"notify"`
}

type NotifyConfig struct {
	Enabled   bool   `toml:"enabled"`
	BotToken  string `toml:"bot_token"`
	ChannelID string `toml:"channel_id"`
}

type SearchConfig struct {
	Enabled bool   `toml:"enabled"`
	Sleep   string `toml:"sleep"`
	Count   int    `toml:"count"`
	Lang    string `toml:"lang"`

	Fav    bool `toml:"fav"`
	Repost bool `toml:"repost"`
	// RepostOnlyWithoutFav suppresses the repost when the favorite for the
	// same result just went through. Both toggles are independent of Fav.
	RepostOnlyWithoutFav bool `toml:"repost_only_without_fav"`

	Follow        bool `toml:"follow"`
	FollowCeiling int  `toml:"follow_ceiling"`
	UnfollowBatch int  `toml:"unfollow_batch"`

	Scrape bool `toml:"scrape"`
}

type FeedConfig struct {
	URLs           []string `toml:"urls"`
	MaxItems       int      `toml:"max_items"`
	RejectPatterns []string `toml:"reject_patterns"`
}

type SafetyConfig struct {
	Patterns []string `toml:"patterns"`
}

// SeenConfig controls the engagement dedupe cache. With an empty RedisAddr
// the cache is in-process only and does not survive restarts.
type SeenConfig struct {
	RedisAddr string `toml:"redis_addr"`
	TTL       string `toml:"ttl"`
}

type ServerConfig struct {
	Enabled  bool   `toml:"enabled"`
	Port     string `toml:"port"`
	FeedSize int    `toml:"feed_size"`
}

type ComposeConfig struct {
	MaxPostLen int            `toml:"max_post_len"`
	Condense   CondenseConfig `toml:"condense"`
}

type CondenseConfig struct {
	Enabled bool   `toml:"enabled"`
	Host    string `toml:"host"`
	Model   string `toml:"model"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func (c *Config) validate() error {
	if c.Bot.Name == "" {
		c.Bot.Name = "warbler"
	}
	if c.Bot.SelfHandle == "" {
		return types.NewConfigError("bot.self_handle", "required")
	}
	if len(c.Bot.Langs) == 0 {
		c.Bot.Langs = []string{"en"}
	}

	if c.Bluesky.Host == "" {
		c.Bluesky.Host = "https://bsky.social"
	}
	if c.Bluesky.RelayHost == "" {
		c.Bluesky.RelayHost = "wss://bsky.network"
	}
	if c.Bluesky.Identifier == "" {
		return types.NewConfigError("bluesky.identifier", "required")
	}
	if c.Bluesky.AppPassword == "" {
		return types.NewConfigError("bluesky.app_password", "required")
	}

	if c.Store.Path == "" {
		c.Store.Path = "./warbler.db"
	}

	if c.Stream.Enabled {
		switch c.Stream.Relation {
		case "":
			c.Stream.Relation = "primary"
		case "primary", "admin":
		default:
			return types.NewConfigError("stream.relation", "must be primary or admin")
		}
		if c.Stream.Notify.Enabled {
			if c.Stream.Notify.BotToken == "" {
				return types.NewConfigError("stream.notify.bot_token", "required when notify is enabled")
			}
			if c.Stream.Notify.ChannelID == "" {
				return types.NewConfigError("stream.notify.channel_id", "required when notify is enabled")
			}
		}
	}

	if c.Search.Sleep == "" {
		c.Search.Sleep = "16s"
	}
	if _, err := time.ParseDuration(c.Search.Sleep); err != nil {
		return types.NewConfigError("search.sleep", err.Error())
	}
	if c.Search.Count <= 0 {
		c.Search.Count = 50
	}
	if c.Search.Count > 100 {
		// searchPosts caps limit at 100
		c.Search.Count = 100
	}
	if c.Search.Lang == "" {
		c.Search.Lang = "en"
	}
	if c.Search.FollowCeiling <= 0 {
		c.Search.FollowCeiling = 4000
	}
	if c.Search.UnfollowBatch <= 0 {
		c.Search.UnfollowBatch = 1000
	}

	if c.Search.Scrape && len(c.Feed.URLs) == 0 {
		return types.NewConfigError("feed.urls", "required when search.scrape is enabled")
	}
	if c.Feed.MaxItems <= 0 {
		c.Feed.MaxItems = 50
	}
	if len(c.Feed.RejectPatterns) == 0 {
		c.Feed.RejectPatterns = []string{`(?i)this|follow|search articles`}
	}
	for _, p := range c.Feed.RejectPatterns {
		if _, err := regexp.Compile(p); err != nil {
			return types.NewConfigError("feed.reject_patterns", err.Error())
		}
	}
	for _, p := range c.Safety.Patterns {
		if _, err := regexp.Compile(p); err != nil {
			return types.NewConfigError("safety.patterns", err.Error())
		}
	}

	if c.Seen.TTL == "" {
		c.Seen.TTL = "72h"
	}
	if _, err := time.ParseDuration(c.Seen.TTL); err != nil {
		return types.NewConfigError("seen.ttl", err.Error())
	}

	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.FeedSize <= 0 {
		c.Server.FeedSize = 100
	}

	if c.Compose.MaxPostLen <= 0 {
		c.Compose.MaxPostLen = 300
	}
	if c.Compose.Condense.Enabled && c.Compose.Condense.Model == "" {
		return types.NewConfigError("compose.condense.model", "required when condense is enabled")
	}

	return nil
}

// SearchSleep returns the validated per-item sleep interval.
func (c *Config) SearchSleep() time.Duration {
	d, _ := time.ParseDuration(c.Search.Sleep)
	return d
}

// SeenTTL returns the validated dedupe-cache TTL.
func (c *Config) SeenTTL() time.Duration {
	d, _ := time.ParseDuration(c.Seen.TTL)
	return d
}
