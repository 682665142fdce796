package accesskit

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// Configuration keys read by LoadConfig.
const (
	KeySeparator       = "roles.separator"
	KeyCaseInsensitive = "roles.case_insensitive"
	KeyRoleModel       = "roles.models.role"
	KeyPermissionModel = "roles.models.permission"
	KeyPretendEnabled  = "roles.pretend.enabled"
	KeyPretendIs       = "roles.pretend.options.is"
	KeyPretendCan      = "roles.pretend.options.can"
	KeyPretendAllowed  = "roles.pretend.options.allowed"

	// EnvPrefix is the environment prefix honoured by LoadConfig
	// (e.g. ACCESSKIT_ROLES_PRETEND_ENABLED=true).
	EnvPrefix = "ACCESSKIT"
)

// Config holds the authorization settings shared by every Authorizer built
// from it. It is passed in at construction; nothing is read from globals.
type Config struct {
	// Separator joins words when a dynamic method name is turned into a slug
	// (isContentEditor -> "content.editor" with the default ".").
	Separator string `mapstructure:"separator"`

	// CaseInsensitive makes slug pattern matching ignore case.
	CaseInsensitive bool `mapstructure:"case_insensitive"`

	// Models binds Role and Permission to their tables.
	Models Models `mapstructure:"models"`

	// Pretend stubs every Is, Can and Allowed check.
	Pretend PretendConfig `mapstructure:"pretend"`
}

// PretendConfig switches pretend mode on and holds its stubbed results.
type PretendConfig struct {
	Enabled bool           `mapstructure:"enabled"`
	Options PretendOptions `mapstructure:"options"`
}

// PretendOptions holds the results returned while pretend mode is on.
type PretendOptions struct {
	Is      bool `mapstructure:"is"`
	Can     bool `mapstructure:"can"`
	Allowed bool `mapstructure:"allowed"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Separator: ".",
		Models:    DefaultModels(),
		Pretend: PretendConfig{
			Options: PretendOptions{
				Is:      true,
				Can:     true,
				Allowed: true,
			},
		},
	}
}

// ApplyDefaults fills empty fields with their default values.
func (c *Config) ApplyDefaults() {
	if c.Separator == "" {
		c.Separator = "."
	}
	if c.Models.Role == "" {
		c.Models.Role = "roles"
	}
	if c.Models.Permission == "" {
		c.Models.Permission = "permissions"
	}
}

// Validate validates the configuration. Model bindings are not checked here;
// they are checked when first needed (see Authorizer.RolePermissions).
func (c *Config) Validate() error {
	if len(c.Separator) != 1 {
		return NewError(ErrInvalidConfig, fmt.Sprintf("roles.separator must be a single character (got: %q)", c.Separator))
	}
	return nil
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// validateModel checks that a binding names a persisted table.
func validateModel(key, table string) error {
	if !tableNamePattern.MatchString(table) {
		return NewError(ErrInvalidModel, fmt.Sprintf("[%s] must name a persisted table (got: %q)", key, table))
	}
	return nil
}

// ValidateRole checks the role model binding.
func (m Models) ValidateRole() error {
	return validateModel(KeyRoleModel, m.Role)
}

// ValidatePermission checks the permission model binding.
func (m Models) ValidatePermission() error {
	return validateModel(KeyPermissionModel, m.Permission)
}

// SetDefaults registers the default values on v.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault(KeySeparator, d.Separator)
	v.SetDefault(KeyCaseInsensitive, d.CaseInsensitive)
	v.SetDefault(KeyRoleModel, d.Models.Role)
	v.SetDefault(KeyPermissionModel, d.Models.Permission)
	v.SetDefault(KeyPretendEnabled, d.Pretend.Enabled)
	v.SetDefault(KeyPretendIs, d.Pretend.Options.Is)
	v.SetDefault(KeyPretendCan, d.Pretend.Options.Can)
	v.SetDefault(KeyPretendAllowed, d.Pretend.Options.Allowed)
}

// LoadConfig reads the configuration from v, falling back to defaults for
// missing keys.
//
// Example:
//
//	v := viper.New()
//	v.SetConfigFile("config.yml")
//	_ = v.ReadInConfig()
//	cfg, err := accesskit.LoadConfig(v)
func LoadConfig(v *viper.Viper) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := Config{
		Separator:       v.GetString(KeySeparator),
		CaseInsensitive: v.GetBool(KeyCaseInsensitive),
		Models: Models{
			Role:       v.GetString(KeyRoleModel),
			Permission: v.GetString(KeyPermissionModel),
		},
		Pretend: PretendConfig{
			Enabled: v.GetBool(KeyPretendEnabled),
			Options: PretendOptions{
				Is:      v.GetBool(KeyPretendIs),
				Can:     v.GetBool(KeyPretendCan),
				Allowed: v.GetBool(KeyPretendAllowed),
			},
		},
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ConfigFromFile loads the configuration from a YAML, JSON or TOML file.
func ConfigFromFile(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return LoadConfig(v)
}
