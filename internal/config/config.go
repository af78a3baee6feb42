// Load envs from .env
// Load YAML config
// Apply env overrides
// Validate config

package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPath      = "configs/config.yaml"
	DefaultUserAgent = "JobWatcherBot/1.0 (+https://example.com)"
	RemoteOKURL      = "https://remoteok.com/api"
	IndeedURL        = "https://www.indeed.com/rss?q=python+django"
	TelegramEndpoint = "https://api.telegram.org/bot%s/%s"
)

// Seen-store drivers.
const (
	DriverNone     = "none"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Keywords        []string `yaml:"keywords" validate:"required,min=1,dive,required"`
	MinKeywordMatch int      `yaml:"min_keyword_match" validate:"gte=1"`
	UserAgent       string   `yaml:"user_agent" validate:"required"`

	Sources Sources  `yaml:"sources"`
	Feeds   []string `yaml:"feeds"`

	Telegram  Telegram  `yaml:"telegram"`
	SMTP      SMTP      `yaml:"smtp"`
	SeenStore SeenStore `yaml:"seen_store"`

	LogJSON bool `yaml:"log_json"`

	// Path is the config file that was read, empty when built-in defaults were used.
	Path string `yaml:"-"`
}

type Sources struct {
	RemoteOK    bool   `yaml:"remoteok"`
	RemoteOKURL string `yaml:"remoteok_url"`
	IndeedRSS   bool   `yaml:"indeed_rss"`
	IndeedURL   string `yaml:"indeed_url"`
	CustomFeeds bool   `yaml:"custom_feeds"`
}

type Telegram struct {
	BotToken    string `yaml:"bot_token"`
	ChatID      string `yaml:"chat_id"`
	APIEndpoint string `yaml:"api_endpoint"`
}

type SMTP struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
}

type SeenStore struct {
	Driver string `yaml:"driver" validate:"oneof=none file sqlite postgres"`
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
}

// TelegramEnabled reports whether both bot credentials are present.
func (c Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// EmailEnabled reports whether SMTP login credentials are present.
func (c Config) EmailEnabled() bool {
	return c.SMTP.User != "" && c.SMTP.Password != ""
}

// Defaults returns the built-in configuration used when no config file exists.
func Defaults() Config {
	return Config{
		Keywords:        []string{"python", "django", "fastapi", "fast job", "freelancing job", "freelance"},
		MinKeywordMatch: 1,
		UserAgent:       DefaultUserAgent,
		Sources: Sources{
			RemoteOK:    true,
			RemoteOKURL: RemoteOKURL,
			IndeedRSS:   false,
			IndeedURL:   IndeedURL,
			CustomFeeds: true,
		},
		Feeds: []string{
			"https://weworkremotely.com/categories/remote-programming-jobs.rss",
			"https://stackoverflow.com/jobs/feed?tags=python;django&sort=i",
			"https://remotive.io/remote-jobs/software-dev.rss",
			"https://pythonjobs.github.io/feed.xml",
			"https://jobs.github.com/positions.atom?description=python&location=",
			"https://www.django-coders.com/jobs/rss",
			"https://www.djangojobs.net/feed/",
			"https://pythonremotejobs.com/feed/",
			"https://www.workintech.io/jobs/feed/?categories=python",
			"https://www.freedjangojobs.com/feed/",
			"https://remote4me.com/remote-dev-jobs/rss/",
		},
		Telegram: Telegram{
			APIEndpoint: TelegramEndpoint,
		},
		SMTP: SMTP{
			Host: "smtp.gmail.com",
			Port: 587,
		},
		SeenStore: SeenStore{
			Driver: DriverNone,
			Path:   ".cache",
		},
	}
}

// Load reads .env, the YAML file at path and the environment, in that order of
// increasing precedence. A missing YAML file is not an error.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	if env := os.Getenv("JOB_WATCHER_CONFIG"); env != "" {
		path = env
	}

	cfg := Defaults()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "parse %s", path)
		}
		cfg.Path = path
	case errors.Is(err, os.ErrNotExist):
		// fall through with defaults
	default:
		return Config{}, errors.Wrapf(err, "read %s", path)
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	normalize(&cfg)

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks struct rules and the cross-field rules the tags cannot express.
// Settings owned by a single source or notifier (feed URLs, SMTP host, port and
// recipient) are checked by that component at run time, not here.
func Validate(cfg Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return errors.Wrap(err, "invalid config")
	}

	switch cfg.SeenStore.Driver {
	case DriverFile, DriverSQLite:
		if cfg.SeenStore.Path == "" {
			return errors.Newf("invalid config: seen_store.path is required for driver %q", cfg.SeenStore.Driver)
		}
	case DriverPostgres:
		if cfg.SeenStore.DSN == "" {
			return errors.New("invalid config: seen_store.dsn is required for driver \"postgres\"")
		}
	}
	return nil
}

func applyEnv(cfg *Config) error {
	overrideString(&cfg.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	overrideString(&cfg.Telegram.ChatID, "TELEGRAM_CHAT_ID")
	overrideString(&cfg.SMTP.Host, "SMTP_HOST")
	overrideString(&cfg.SMTP.User, "SMTP_USER")
	overrideString(&cfg.SMTP.Password, "SMTP_PASS")
	overrideString(&cfg.SMTP.From, "EMAIL_FROM")
	overrideString(&cfg.SMTP.To, "EMAIL_TO")
	overrideString(&cfg.SeenStore.Driver, "SEEN_STORE_DRIVER")
	overrideString(&cfg.SeenStore.Path, "SEEN_STORE_PATH")
	overrideString(&cfg.SeenStore.DSN, "SEEN_STORE_DSN")

	if port := os.Getenv("SMTP_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return errors.Wrap(err, "invalid SMTP_PORT")
		}
		cfg.SMTP.Port = p
	}

	if v := os.Getenv("LOG_JSON"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrap(err, "invalid LOG_JSON")
		}
		cfg.LogJSON = b
	}
	return nil
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func normalize(cfg *Config) {
	cfg.Keywords = trimList(cfg.Keywords)
	cfg.Feeds = trimList(cfg.Feeds)
	cfg.SeenStore.Driver = strings.ToLower(strings.TrimSpace(cfg.SeenStore.Driver))
	if cfg.SeenStore.Driver == "" {
		cfg.SeenStore.Driver = DriverNone
	}
	if cfg.SMTP.From == "" {
		cfg.SMTP.From = cfg.SMTP.User
	}
}

// trimList drops blank entries and exact duplicates, keeping first-seen order.
func trimList(xs []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, x := range xs {
		x = strings.TrimSpace(x)
		if x == "" || seen[x] {
			continue
		}
		seen[x] = true
		out = append(out, x)
	}
	return out
}
