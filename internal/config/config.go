package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

type Config struct {
	Database  DatabaseConfig  `toml:"database"`
	Server    ServerConfig    `toml:"server"`
	Catalogue CatalogueConfig `toml:"catalogue"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type ServerConfig struct {
	Bind        string `toml:"bind"`
	APIEndpoint string `toml:"api_endpoint"`
}

type CatalogueConfig struct {
	// DefaultCategories seeds the category order document on first run.
	DefaultCategories []string `toml:"default_categories"`
	// DefaultRole applies when a request carries no role header.
	DefaultRole string `toml:"default_role"`
}

func defaultCategories() []string {
	return []string{"Cleaning", "Vegetation", "Structure"}
}

func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Server: ServerConfig{
			Bind:        "127.0.0.1:8080",
			APIEndpoint: "/api/v1",
		},
		Catalogue: CatalogueConfig{
			DefaultCategories: defaultCategories(),
			DefaultRole:       "viewer",
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	c.Database.Path = strings.TrimSpace(c.Database.Path)
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if strings.TrimSpace(c.Server.Bind) == "" {
		return errors.New("server bind address is required")
	}

	seen := map[string]struct{}{}
	for idx, raw := range c.Catalogue.DefaultCategories {
		name := strings.TrimSpace(raw)
		if name == "" {
			return fmt.Errorf("catalogue.default_categories[%d] is blank", idx)
		}
		if _, ok := seen[name]; ok {
			return fmt.Errorf("catalogue.default_categories[%d] is duplicated: %s", idx, name)
		}
		seen[name] = struct{}{}
	}

	switch strings.TrimSpace(strings.ToLower(c.Catalogue.DefaultRole)) {
	case "", "master", "owner", "technician", "validator", "viewer":
	default:
		return fmt.Errorf("invalid catalogue.default_role: %q", c.Catalogue.DefaultRole)
	}

	return nil
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
