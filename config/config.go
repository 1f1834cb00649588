package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Store   StoreConfig   `yaml:"store"`
	Engine  EngineConfig  `yaml:"engine"`
	RegFeed RegFeedConfig `yaml:"regfeed"`
	Minio   MinioConfig   `yaml:"minio"`
	Auth    AuthConfig    `yaml:"auth"`
	Users   []User        `yaml:"users"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type StoreConfig struct {
	ContractsDir  string `yaml:"contracts_dir"`
	UpdatesDir    string `yaml:"updates_dir"`
	ArchiveDir    string `yaml:"archive_dir"`
	RegUpdatesDir string `yaml:"reg_updates_dir"`
	RegistryFile  string `yaml:"registry_file"`
	SnapshotLimit int    `yaml:"snapshot_limit"`
}

type EngineConfig struct {
	CatalogFile        string `yaml:"catalog_file"`
	ProposalThreshold  int    `yaml:"proposal_threshold"`
	AutoApplyThreshold int    `yaml:"auto_apply_threshold"`
	ReportFormat       string `yaml:"report_format"`
}

type RegFeedConfig struct {
	APIURL         string `yaml:"api_url"`
	APIToken       string `yaml:"api_token"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type MinioConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Bucket     string `yaml:"bucket"`
	UseSSL     bool   `yaml:"use_ssl"`
	ExpireDays int    `yaml:"expire_days"`
}

type AuthConfig struct {
	JWTSecret        string `yaml:"jwt_secret"`
	TokenExpireHours int    `yaml:"token_expire_hours"`
}

type User struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Store.ContractsDir == "" {
		cfg.Store.ContractsDir = "contracts"
	}
	if cfg.Store.UpdatesDir == "" {
		cfg.Store.UpdatesDir = "updates"
	}
	if cfg.Store.ArchiveDir == "" {
		cfg.Store.ArchiveDir = "archive"
	}
	if cfg.Store.RegUpdatesDir == "" {
		cfg.Store.RegUpdatesDir = "reg_updates"
	}
	if cfg.Store.RegistryFile == "" {
		cfg.Store.RegistryFile = "registry_db.json"
	}
	if cfg.Store.SnapshotLimit == 0 {
		cfg.Store.SnapshotLimit = 4000
	}
	if cfg.Engine.CatalogFile == "" {
		cfg.Engine.CatalogFile = "regulatory_db.json"
	}
	if cfg.Engine.ProposalThreshold == 0 {
		cfg.Engine.ProposalThreshold = 40
	}
	if cfg.Engine.AutoApplyThreshold == 0 {
		cfg.Engine.AutoApplyThreshold = 90
	}
	if cfg.Engine.ReportFormat == "" {
		cfg.Engine.ReportFormat = "text"
	}
	if cfg.RegFeed.TimeoutSeconds == 0 {
		cfg.RegFeed.TimeoutSeconds = 60
	}
	if cfg.Minio.ExpireDays == 0 {
		cfg.Minio.ExpireDays = 7
	}
	if cfg.Auth.TokenExpireHours == 0 {
		cfg.Auth.TokenExpireHours = 24
	}

	return &cfg, nil
}

// FindUser finds a user by username
func (c *Config) FindUser(username string) *User {
	for i := range c.Users {
		if c.Users[i].Username == username {
			return &c.Users[i]
		}
	}
	return nil
}
