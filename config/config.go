// Package config provides configuration management for the application.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"modelwire/internal/core"
)

const (
	// DefaultConfigName is the file name (without extension) searched for when no path is given.
	DefaultConfigName = "modelwire"

	// DefaultMilvusImage is the Milvus standalone image started by dev services.
	DefaultMilvusImage = "docker.io/milvusdb/milvus:v2.3.4"
	// DefaultEtcdImage is the etcd image Milvus uses for metadata.
	DefaultEtcdImage = "quay.io/coreos/etcd:v3.5.5"
	// DefaultMinioImage is the MinIO image Milvus uses for segment storage.
	DefaultMinioImage = "docker.io/minio/minio:RELEASE.2023-03-20T20-16-18Z"
	// DefaultMilvusServiceName is the label value shared Milvus dev services are published under.
	DefaultMilvusServiceName = "modelwire-milvus"
)

// Launch modes. Dev services never start in LaunchModeNormal.
const (
	LaunchModeDev    = "dev"
	LaunchModeTest   = "test"
	LaunchModeNormal = "normal"
)

// Config holds the application configuration, rooted at the "modelwire" key.
type Config struct {
	// Default holds the provider selection of the unnamed model.
	Default ModelsConfig `mapstructure:",squash"`
	// Named holds per-name model configuration ("modelwire.<name>.chat-model.provider").
	Named map[string]ModelsConfig `mapstructure:"-"`

	Providers   map[string]ProviderConfig `mapstructure:"providers"`
	Requests    []string                  `mapstructure:"requests"`
	DevServices DevServicesConfig         `mapstructure:"devservices"`
	Milvus      MilvusConfig              `mapstructure:"milvus"`
	Cache       CacheConfig               `mapstructure:"cache"`
	Server      ServerConfig              `mapstructure:"server"`
}

// ModelsConfig groups the per-capability settings of one model name.
type ModelsConfig struct {
	ChatModel       CapabilityConfig `mapstructure:"chat-model"`
	EmbeddingModel  CapabilityConfig `mapstructure:"embedding-model"`
	ModerationModel CapabilityConfig `mapstructure:"moderation-model"`
	ImageModel      CapabilityConfig `mapstructure:"image-model"`
}

// For returns the settings for a capability. Streaming chat shares the chat settings.
func (m ModelsConfig) For(capability core.Capability) CapabilityConfig {
	switch capability.SelectionCapability() {
	case core.ChatModel:
		return m.ChatModel
	case core.EmbeddingModel:
		return m.EmbeddingModel
	case core.ModerationModel:
		return m.ModerationModel
	case core.ImageModel:
		return m.ImageModel
	default:
		return CapabilityConfig{}
	}
}

// CapabilityConfig holds the user's choice for one capability.
type CapabilityConfig struct {
	// Provider selects the provider when several are available. Empty means automatic.
	Provider string `mapstructure:"provider"`
	// ModelID overrides the provider's default upstream model for this capability.
	ModelID string `mapstructure:"model-id"`
}

// ProviderConfig holds connection settings for one provider type.
type ProviderConfig struct {
	APIKey            string        `mapstructure:"api-key"`
	BaseURL           string        `mapstructure:"base-url"`
	APIVersion        string        `mapstructure:"api-version"`
	Timeout           time.Duration `mapstructure:"timeout"`
	ChatModelID       string        `mapstructure:"chat-model-id"`
	EmbeddingModelID  string        `mapstructure:"embedding-model-id"`
	ModerationModelID string        `mapstructure:"moderation-model-id"`
	ImageModelID      string        `mapstructure:"image-model-id"`
}

// DevServicesConfig holds the global dev services switches.
type DevServicesConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// LaunchMode is one of dev, test or normal.
	LaunchMode string `mapstructure:"launch-mode"`
	// Timeout bounds each container start. Zero means the runtime default.
	Timeout time.Duration `mapstructure:"timeout"`
	// SharedNetwork attaches dev service containers to one Docker network and
	// advertises their network aliases instead of mapped ports.
	SharedNetwork bool `mapstructure:"shared-network"`
	// Endpoints holds the host:port of running dev services by service name. Runtime only.
	Endpoints map[string]string `mapstructure:"-"`
}

// MilvusConfig holds the vector store connection and its dev service.
type MilvusConfig struct {
	// URL is written by dev services once a Milvus container runs.
	URL         string                  `mapstructure:"url"`
	Host        string                  `mapstructure:"host"`
	Port        int                     `mapstructure:"port"`
	DevServices MilvusDevServicesConfig `mapstructure:"devservices"`
}

// MilvusDevServicesConfig configures the etcd + MinIO + Milvus containers.
type MilvusDevServicesConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Port pins the host port mapped to Milvus. Zero picks a random port.
	Port            int    `mapstructure:"port"`
	MilvusImageName string `mapstructure:"milvus-image-name"`
	EtcdImageName   string `mapstructure:"etcd-image-name"`
	MinioImageName  string `mapstructure:"minio-image-name"`
	ServiceName     string `mapstructure:"service-name"`
	Shared          bool   `mapstructure:"shared"`
}

// CacheConfig selects where the selection report is persisted.
type CacheConfig struct {
	Type  string      `mapstructure:"type"`
	Path  string      `mapstructure:"path"`
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig holds Redis connection settings for the report cache.
type RedisConfig struct {
	URL string        `mapstructure:"url"`
	Key string        `mapstructure:"key"`
	TTL time.Duration `mapstructure:"ttl"`
}

// ServerConfig holds the dev console HTTP settings.
type ServerConfig struct {
	Port string `mapstructure:"port"`
	// MasterKey protects the /q/dev endpoints with a bearer token when set.
	MasterKey string        `mapstructure:"master-key"`
	Metrics   MetricsConfig `mapstructure:"metrics"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// reservedKeys are top-level keys under "modelwire" that are never model names.
var reservedKeys = map[string]bool{
	"chat-model":       true,
	"embedding-model":  true,
	"moderation-model": true,
	"image-model":      true,
	"providers":        true,
	"requests":         true,
	"devservices":      true,
	"milvus":           true,
	"cache":            true,
	"server":           true,
}

var capabilityNamespaces = []string{"chat-model", "embedding-model", "moderation-model", "image-model"}

// Load reads configuration from an optional YAML file, .env and the environment.
// An empty path searches for modelwire.yaml in the working directory and ./config;
// a missing file is not an error in that case.
func Load(path string) (*Config, error) {
	// Load .env file (optional, won't fail if not found)
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("modelwire.server.port", "MODELWIRE_SERVER_PORT", "PORT")

	if err := readConfigFile(v, path); err != nil {
		return nil, err
	}

	var root struct {
		Modelwire Config `mapstructure:"modelwire"`
	}
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	cfg := &root.Modelwire

	named, err := loadNamedModels(v)
	if err != nil {
		return nil, err
	}
	cfg.Named = named

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Registering the provider keys makes MODELWIRE_CHAT_MODEL_PROVIDER et al. visible to Unmarshal.
	for _, ns := range capabilityNamespaces {
		v.SetDefault("modelwire."+ns+".provider", "")
		v.SetDefault("modelwire."+ns+".model-id", "")
	}

	v.SetDefault("modelwire.devservices.enabled", true)
	v.SetDefault("modelwire.devservices.launch-mode", LaunchModeDev)
	v.SetDefault("modelwire.devservices.timeout", 0)
	v.SetDefault("modelwire.devservices.shared-network", false)

	v.SetDefault("modelwire.milvus.url", "")
	v.SetDefault("modelwire.milvus.host", "")
	v.SetDefault("modelwire.milvus.port", 0)
	v.SetDefault("modelwire.milvus.devservices.enabled", true)
	v.SetDefault("modelwire.milvus.devservices.port", 0)
	v.SetDefault("modelwire.milvus.devservices.milvus-image-name", DefaultMilvusImage)
	v.SetDefault("modelwire.milvus.devservices.etcd-image-name", DefaultEtcdImage)
	v.SetDefault("modelwire.milvus.devservices.minio-image-name", DefaultMinioImage)
	v.SetDefault("modelwire.milvus.devservices.service-name", DefaultMilvusServiceName)
	v.SetDefault("modelwire.milvus.devservices.shared", true)

	v.SetDefault("modelwire.cache.type", "local")
	v.SetDefault("modelwire.cache.path", ".cache/selections.json")
	v.SetDefault("modelwire.cache.redis.url", "")
	v.SetDefault("modelwire.cache.redis.key", "")
	v.SetDefault("modelwire.cache.redis.ttl", 0)

	v.SetDefault("modelwire.server.port", "8080")
	v.SetDefault("modelwire.server.master-key", "")
	v.SetDefault("modelwire.server.metrics.enabled", false)
	v.SetDefault("modelwire.server.metrics.endpoint", "/metrics")
}

// readConfigFile loads the YAML file after expanding ${VAR} and ${VAR:-default} placeholders.
func readConfigFile(v *viper.Viper, path string) error {
	explicit := path != ""
	if !explicit {
		for _, candidate := range []string{DefaultConfigName + ".yaml", "config/" + DefaultConfigName + ".yaml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader([]byte(expandString(string(data))))); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	slog.Debug("configuration file loaded", "path", path)
	return nil
}

// loadNamedModels decodes every non-reserved key under "modelwire" that carries at least
// one capability namespace.
func loadNamedModels(v *viper.Viper) (map[string]ModelsConfig, error) {
	named := make(map[string]ModelsConfig)
	root := v.GetStringMap("modelwire")

	names := make([]string, 0, len(root))
	for name := range root {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if reservedKeys[name] {
			continue
		}
		section, ok := root[name].(map[string]any)
		if !ok || !hasCapabilityNamespace(section) {
			continue
		}
		var mc ModelsConfig
		if err := v.UnmarshalKey("modelwire."+name, &mc); err != nil {
			return nil, fmt.Errorf("failed to decode model %q: %w", name, err)
		}
		named[core.NormalizeModelName(name)] = mc
	}
	return named, nil
}

func hasCapabilityNamespace(section map[string]any) bool {
	for _, ns := range capabilityNamespaces {
		if _, ok := section[ns]; ok {
			return true
		}
	}
	return false
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.DevServices.LaunchMode {
	case LaunchModeDev, LaunchModeTest, LaunchModeNormal:
	default:
		return fmt.Errorf("invalid modelwire.devservices.launch-mode %q: must be one of dev, test, normal", c.DevServices.LaunchMode)
	}
	if p := c.Milvus.DevServices.Port; p < 0 || p > 65535 {
		return fmt.Errorf("invalid modelwire.milvus.devservices.port %d", p)
	}
	switch c.Cache.Type {
	case "", "local", "redis":
	default:
		return fmt.Errorf("invalid modelwire.cache.type %q: must be local or redis", c.Cache.Type)
	}
	for _, raw := range c.Requests {
		if _, err := core.ParseModelRequest(raw); err != nil {
			return fmt.Errorf("invalid modelwire.requests entry: %w", err)
		}
	}
	return nil
}

// ProviderOverride returns the configured provider for a capability of a model name, or ""
// when the user left the choice to the resolver. Unknown model names have no override.
func (c *Config) ProviderOverride(capability core.Capability, modelName string) string {
	return strings.TrimSpace(c.models(modelName).For(capability).Provider)
}

// ModelID returns the configured upstream model id override, or "".
func (c *Config) ModelID(capability core.Capability, modelName string) string {
	return strings.TrimSpace(c.models(modelName).For(capability).ModelID)
}

func (c *Config) models(modelName string) ModelsConfig {
	if core.IsDefaultModelName(modelName) {
		return c.Default
	}
	name := core.NormalizeModelName(modelName)
	if mc, ok := c.Named[name]; ok {
		return mc
	}
	// Named may be filled in code with mixed-case keys.
	for k, mc := range c.Named {
		if strings.EqualFold(k, name) {
			return mc
		}
	}
	return ModelsConfig{}
}

// ModelRequests parses the configured request list.
func (c *Config) ModelRequests() ([]core.ModelRequest, error) {
	requests := make([]core.ModelRequest, 0, len(c.Requests))
	for _, raw := range c.Requests {
		req, err := core.ParseModelRequest(raw)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, nil
}

// ApplyOverrides folds configuration produced at runtime (e.g. by dev services) into the
// config. Unknown keys are ignored. Returns the keys that were applied.
func (c *Config) ApplyOverrides(overrides map[string]string) []string {
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	applied := make([]string, 0, len(keys))
	for _, k := range keys {
		val := overrides[k]
		switch {
		case k == "modelwire.milvus.url":
			c.Milvus.URL = val
		case k == "modelwire.milvus.host":
			c.Milvus.Host = val
		case k == "modelwire.milvus.port":
			port, err := strconv.Atoi(val)
			if err != nil {
				continue
			}
			c.Milvus.Port = port
		case k == "modelwire.server.port":
			if _, err := strconv.Atoi(val); err != nil {
				continue
			}
			c.Server.Port = val
		case strings.HasPrefix(k, "modelwire.devservices.") && strings.HasSuffix(k, ".endpoint"):
			service := strings.TrimSuffix(strings.TrimPrefix(k, "modelwire.devservices."), ".endpoint")
			if service == "" || strings.Contains(service, ".") {
				continue
			}
			if c.DevServices.Endpoints == nil {
				c.DevServices.Endpoints = make(map[string]string)
			}
			c.DevServices.Endpoints[service] = val
		default:
			continue
		}
		applied = append(applied, k)
	}
	return applied
}

var placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// expandString replaces ${VAR} and ${VAR:-default} placeholders with environment values.
// ${VAR} stays untouched when VAR is unset or empty; ${VAR:-default} falls back to default.
func expandString(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := placeholderPattern.FindStringSubmatch(match)
		name, hasDefault, def := parts[1], parts[2] != "", parts[3]
		if val := os.Getenv(name); val != "" {
			return val
		}
		if hasDefault {
			return def
		}
		return match
	})
}
