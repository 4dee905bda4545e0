package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/core/logx"

	"btcdigest/pkg/confkit"
	marketpkg "btcdigest/pkg/market"
)

const (
	PublishStdout  = "stdout"
	PublishWebhook = "webhook"

	defaultMarketFile = "market.yaml"
	clockLayout       = "15:04"
)

// DefaultTimes are the wall-clock times a digest is produced when none are configured.
var DefaultTimes = []string{"08:00", "20:00"}

type ScheduleConf struct {
	// Times are local wall-clock times in HH:MM.
	Times []string `json:",optional"`
	// Timezone is an IANA name; empty means the process local zone.
	Timezone string `json:",optional"`
}

type PublishConf struct {
	Mode       string        `json:",default=stdout,options=stdout|webhook"`
	WebhookURL string        `json:",optional"`
	Token      string        `json:",optional"`
	Timeout    time.Duration `json:",default=10s"`
}

type Config struct {
	// Env indicates the running environment: test | dev | prod
	Env string       `json:",default=test"`
	Log logx.LogConf `json:",optional"`

	Schedule ScheduleConf `json:",optional"`
	// CycleTimeout bounds one collect-format-post cycle.
	CycleTimeout time.Duration `json:",default=2m"`
	// JournalDir enables per-cycle JSON records when set.
	JournalDir string      `json:",optional"`
	Publish    PublishConf `json:",optional"`

	Market confkit.Section[marketpkg.Config] `json:",optional"`

	mainPath string
	baseDir  string
}

func (c *Config) IsTestEnv() bool {
	return c.Env == "test" || c.Env == ""
}

func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

func Load(path string) (*Config, error) {
	confkit.LoadDotenvOnce()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path %s: %w", path, err)
	}

	var cfg Config
	if err := conf.Load(absPath, &cfg, conf.UseEnv()); err != nil {
		return nil, fmt.Errorf("load config %s: %w", absPath, err)
	}

	cfg.mainPath = absPath
	cfg.baseDir = filepath.Dir(absPath)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.hydrateSections(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values and fills defaults that go-zero leaves empty for
// absent optional blocks.
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Env)) {
	case "", "test", "dev", "prod":
		if strings.TrimSpace(c.Env) == "" {
			c.Env = "test"
		}
	default:
		return errors.New("config: env must be one of test|dev|prod")
	}
	c.applyLogDefaults()

	if c.CycleTimeout <= 0 {
		return errors.New("config: cycleTimeout must be positive")
	}
	if err := c.validateSchedule(); err != nil {
		return err
	}
	return c.validatePublish()
}

func (c *Config) applyLogDefaults() {
	if c.Log.Mode == "" {
		c.Log.Mode = "console"
	}
	if c.Log.Encoding == "" {
		c.Log.Encoding = "plain"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.ServiceName == "" {
		c.Log.ServiceName = "digest"
	}
}

func (c *Config) validateSchedule() error {
	if len(c.Schedule.Times) == 0 {
		c.Schedule.Times = append([]string(nil), DefaultTimes...)
	}
	for _, raw := range c.Schedule.Times {
		if _, err := time.Parse(clockLayout, strings.TrimSpace(raw)); err != nil {
			return fmt.Errorf("config: schedule time %q must be HH:MM", raw)
		}
	}
	if _, err := c.Schedule.Location(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePublish() error {
	mode := strings.ToLower(strings.TrimSpace(c.Publish.Mode))
	switch mode {
	case "":
		mode = PublishStdout
	case PublishStdout:
	case PublishWebhook:
		if strings.TrimSpace(c.Publish.WebhookURL) == "" {
			return errors.New("config: publish.webhookUrl is required in webhook mode")
		}
	default:
		return fmt.Errorf("config: publish.mode %q must be stdout|webhook", c.Publish.Mode)
	}
	c.Publish.Mode = mode
	if c.Publish.Timeout <= 0 {
		c.Publish.Timeout = 10 * time.Second
	}
	return nil
}

// Location resolves Timezone, defaulting to the local zone.
func (s ScheduleConf) Location() (*time.Location, error) {
	tz := strings.TrimSpace(s.Timezone)
	if tz == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("config: schedule timezone %q: %w", tz, err)
	}
	return loc, nil
}

func (c *Config) hydrateSections() error {
	if c.Market.File == "" && c.Market.Value == nil {
		c.Market.File = defaultMarketFile
	}
	if err := c.Market.Hydrate(c.baseDir, marketpkg.LoadConfig); err != nil {
		return fmt.Errorf("load market config: %w", err)
	}
	return nil
}

func (c *Config) MainPath() string {
	return c.mainPath
}

func (c *Config) BaseDir() string {
	return c.baseDir
}
