// Package config handles loading letters.toml configuration files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// TokenEnvVar names the environment variable carrying the CRM bearer token.
// The token never appears in a config file.
const TokenEnvVar = "PD_CRM_TOKEN"

// Config represents the letters.toml configuration file.
type Config struct {
	Server  Server  `toml:"server"`
	CRM     CRM     `toml:"crm"`
	Render  Render  `toml:"render"`
	Archive Archive `toml:"archive"`
}

// Server contains HTTP server configuration.
type Server struct {
	// Addr is the listen address, e.g. ":3000".
	Addr string `toml:"addr"`
}

// CRM contains record-store configuration.
type CRM struct {
	// BaseURL overrides the production API endpoint.
	BaseURL string `toml:"base-url"`
	// ObjectType is the record-store type of enrollment records.
	ObjectType string `toml:"object-type"`
	// AssociationTypeID selects the contact-to-enrollment association.
	AssociationTypeID string `toml:"association-type-id"`
	// FolderID is the file-store folder letters are uploaded into.
	FolderID string `toml:"folder-id"`
}

// Render contains rendering engine configuration.
type Render struct {
	// Mode is "serverless" or "local".
	Mode string `toml:"mode"`
	// ExecPath points at a browser binary; empty uses the system default.
	ExecPath string `toml:"exec-path"`
	// MaxAttempts caps the render retry budget.
	MaxAttempts int `toml:"max-attempts"`
}

// Archive contains optional S3-compatible archive configuration. The archive
// is disabled while Endpoint is empty.
type Archive struct {
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access-key"`
	SecretKey string `toml:"secret-key"`
	Bucket    string `toml:"bucket"`
	UseSSL    bool   `toml:"use-ssl"`
}

// Token reads the CRM bearer token from the environment.
func Token() (string, error) {
	token := strings.TrimSpace(os.Getenv(TokenEnvVar))
	if token == "" {
		return "", fmt.Errorf("%s is not set", TokenEnvVar)
	}
	return token, nil
}

// Load loads configuration from the working directory and the global config
// file. Returns an empty config if no config files exist.
func Load(dir string) (*Config, error) {
	globalPath, err := globalConfigPath()
	if err != nil {
		return nil, err
	}

	globalCfg, globalMeta, err := loadConfigFile(globalPath)
	if err != nil {
		return nil, err
	}

	projectCfg, projectMeta, err := loadConfigFile(filepath.Join(dir, "letters.toml"))
	if err != nil {
		return nil, err
	}

	merged := mergeConfigs(globalCfg, projectCfg, globalMeta, projectMeta)
	return merged, nil
}

func globalConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "letters", "config.toml"), nil
}

func loadConfigFile(path string) (*Config, toml.MetaData, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{}, toml.MetaData{}, nil
	}
	if err != nil {
		return nil, toml.MetaData{}, fmt.Errorf("read config file %s: %w", path, err)
	}

	var cfg Config
	meta, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, toml.MetaData{}, fmt.Errorf("parse config file %s: %w", path, err)
	}

	return &cfg, meta, nil
}

func mergeConfigs(globalCfg, projectCfg *Config, globalMeta, projectMeta toml.MetaData) *Config {
	if globalCfg == nil {
		globalCfg = &Config{}
	}
	if projectCfg == nil {
		projectCfg = &Config{}
	}

	merged := Config{}
	merged.Server.Addr = mergeString(projectMeta.IsDefined("server", "addr"), projectCfg.Server.Addr, globalCfg.Server.Addr)
	merged.CRM.BaseURL = mergeString(projectMeta.IsDefined("crm", "base-url"), projectCfg.CRM.BaseURL, globalCfg.CRM.BaseURL)
	merged.CRM.ObjectType = mergeString(projectMeta.IsDefined("crm", "object-type"), projectCfg.CRM.ObjectType, globalCfg.CRM.ObjectType)
	merged.CRM.AssociationTypeID = mergeString(projectMeta.IsDefined("crm", "association-type-id"), projectCfg.CRM.AssociationTypeID, globalCfg.CRM.AssociationTypeID)
	merged.CRM.FolderID = mergeString(projectMeta.IsDefined("crm", "folder-id"), projectCfg.CRM.FolderID, globalCfg.CRM.FolderID)
	merged.Render.Mode = mergeString(projectMeta.IsDefined("render", "mode"), projectCfg.Render.Mode, globalCfg.Render.Mode)
	merged.Render.ExecPath = mergeString(projectMeta.IsDefined("render", "exec-path"), projectCfg.Render.ExecPath, globalCfg.Render.ExecPath)
	if projectMeta.IsDefined("render", "max-attempts") {
		merged.Render.MaxAttempts = projectCfg.Render.MaxAttempts
	} else if globalMeta.IsDefined("render", "max-attempts") {
		merged.Render.MaxAttempts = globalCfg.Render.MaxAttempts
	}
	merged.Archive.Endpoint = mergeString(projectMeta.IsDefined("archive", "endpoint"), projectCfg.Archive.Endpoint, globalCfg.Archive.Endpoint)
	merged.Archive.AccessKey = mergeString(projectMeta.IsDefined("archive", "access-key"), projectCfg.Archive.AccessKey, globalCfg.Archive.AccessKey)
	merged.Archive.SecretKey = mergeString(projectMeta.IsDefined("archive", "secret-key"), projectCfg.Archive.SecretKey, globalCfg.Archive.SecretKey)
	merged.Archive.Bucket = mergeString(projectMeta.IsDefined("archive", "bucket"), projectCfg.Archive.Bucket, globalCfg.Archive.Bucket)
	if projectMeta.IsDefined("archive", "use-ssl") {
		merged.Archive.UseSSL = projectCfg.Archive.UseSSL
	} else if globalMeta.IsDefined("archive", "use-ssl") {
		merged.Archive.UseSSL = globalCfg.Archive.UseSSL
	}

	return &merged
}

func mergeString(projectDefined bool, projectValue, globalValue string) string {
	value := globalValue
	if projectDefined {
		value = projectValue
	}
	return strings.TrimSpace(value)
}
