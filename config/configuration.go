package config

import (
	"strings"

	"github.com/gigapi/compactor/status"
	"github.com/spf13/viper"
)

type LakeFSConfiguration struct {
	Endpoint   string `json:"endpoint" mapstructure:"endpoint" default:""`
	AccessKey  string `json:"access_key" mapstructure:"access_key" default:""`
	SecretKey  string `json:"secret_key" mapstructure:"secret_key" default:""`
	APIVersion string `json:"api_version" mapstructure:"api_version" default:"v1"`
}

// FileConfiguration selects the source files of a run. Count is both the
// total number of files to consume and the per-listing batch size.
type FileConfiguration struct {
	Size       uint64 `json:"size" mapstructure:"size" default:"0"`
	Count      uint64 `json:"count" mapstructure:"count" default:"0"`
	Branch     string `json:"branch" mapstructure:"branch" default:"main"`
	ToBranch   string `json:"to_branch" mapstructure:"to_branch" default:""`
	Repo       string `json:"repo" mapstructure:"repo" default:""`
	Key        string `json:"key" mapstructure:"key" default:""`
	SourceRoot string `json:"source_root" mapstructure:"source_root" default:"s3://"`
	OutputRoot string `json:"output_root" mapstructure:"output_root" default:""`
	Filter     string `json:"filter" mapstructure:"filter" default:""`
}

type CompactorConfiguration struct {
	Reseed         bool `json:"reseed" mapstructure:"reseed" default:"true"`
	AdvanceCursor  bool `json:"advance_cursor" mapstructure:"advance_cursor" default:"false"`
	SkipSeen       bool `json:"skip_seen" mapstructure:"skip_seen" default:"false"`
	ResetStale     bool `json:"reset_stale" mapstructure:"reset_stale" default:"false"`
	SeedWithBranch bool `json:"seed_with_branch" mapstructure:"seed_with_branch" default:"false"`
	VerifyOutput   bool `json:"verify_output" mapstructure:"verify_output" default:"false"`
}

type Configuration struct {
	LakeFS      LakeFSConfiguration    `json:"lakefs" mapstructure:"lakefs" default:""`
	File        FileConfiguration      `json:"file" mapstructure:"file" default:""`
	Compactor   CompactorConfiguration `json:"compactor" mapstructure:"compactor" default:""`
	DBPath      string                 `json:"db_path" mapstructure:"db_path" default:"./data/lakefs.db"`
	DBSetupFile string                 `json:"db_setup_file" mapstructure:"db_setup_file" default:""`
	LogLevel    string                 `json:"log_level" mapstructure:"log_level" default:"info"`
	Listen      string                 `json:"listen" mapstructure:"listen" default:""`
}

var Config *Configuration

var defaults = map[string]any{
	"lakefs.endpoint":            "",
	"lakefs.access_key":          "",
	"lakefs.secret_key":          "",
	"lakefs.api_version":         "v1",
	"file.size":                  0,
	"file.count":                 0,
	"file.branch":                "main",
	"file.to_branch":             "",
	"file.repo":                  "",
	"file.key":                   "",
	"file.source_root":           "s3://",
	"file.output_root":           "",
	"file.filter":                "",
	"compactor.reseed":           true,
	"compactor.advance_cursor":   false,
	"compactor.skip_seen":        false,
	"compactor.reset_stale":      false,
	"compactor.seed_with_branch": false,
	"compactor.verify_output":    false,
	"db_path":                    "./data/lakefs.db",
	"db_setup_file":              "",
	"log_level":                  "info",
	"listen":                     "",
}

func InitConfig(file string) {
	cfg, err := Load(viper.New(), file)
	if err != nil {
		panic(err)
	}
	Config = cfg
}

// Load reads the optional config file and the environment into a validated
// Configuration. Environment variables are the upper-cased keys with dots
// replaced by underscores, e.g. LAKEFS_ENDPOINT or FILE_TO_BRANCH.
func Load(v *viper.Viper, file string) (*Configuration, error) {
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, status.Init("read config "+file, err)
		}
	}
	cfg := &Configuration{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, status.Init("parse config", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Configuration) Validate() error {
	switch {
	case c.File.Repo == "":
		return status.Validation("file.repo is required")
	case c.File.Branch == "":
		return status.Validation("file.branch is required")
	case c.File.Count == 0:
		return status.Validation("file.count must be positive")
	case c.File.SourceRoot == "":
		return status.Validation("file.source_root is required")
	}
	return nil
}

func (c *Configuration) normalize() {
	if c.File.OutputRoot == "" && c.File.ToBranch != "" {
		root := c.File.SourceRoot
		if !strings.HasSuffix(root, "/") {
			root += "/"
		}
		c.File.OutputRoot = root + c.File.Repo + "/" + c.File.ToBranch
	}
}

// S3Endpoint returns the lakeFS endpoint without its scheme and whether TLS was requested.
func (l LakeFSConfiguration) S3Endpoint() (string, bool) {
	switch {
	case strings.HasPrefix(l.Endpoint, "https://"):
		return strings.TrimSuffix(strings.TrimPrefix(l.Endpoint, "https://"), "/"), true
	case strings.HasPrefix(l.Endpoint, "http://"):
		return strings.TrimSuffix(strings.TrimPrefix(l.Endpoint, "http://"), "/"), false
	}
	return strings.TrimSuffix(l.Endpoint, "/"), false
}
