package accesskit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ".", cfg.Separator)
	assert.False(t, cfg.CaseInsensitive)
	assert.Equal(t, "roles", cfg.Models.Role)
	assert.Equal(t, "permissions", cfg.Models.Permission)
	assert.False(t, cfg.Pretend.Enabled)
	assert.True(t, cfg.Pretend.Options.Is)
	assert.True(t, cfg.Pretend.Options.Can)
	assert.True(t, cfg.Pretend.Options.Allowed)
	assert.NoError(t, cfg.Validate())
}

func TestConfigApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	assert.Equal(t, ".", cfg.Separator)
	assert.Equal(t, DefaultModels(), cfg.Models)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Separator = "::"
	err := cfg.Validate()
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg.Separator = ""
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestModelsValidate(t *testing.T) {
	assert.NoError(t, DefaultModels().ValidateRole())
	assert.NoError(t, DefaultModels().ValidatePermission())
	assert.NoError(t, Models{Permission: "auth.permissions"}.ValidatePermission())

	for _, bad := range []string{"", "not a table", "1permissions", "perm;drop", "a.b.c"} {
		t.Run(bad, func(t *testing.T) {
			err := Models{Permission: bad}.ValidatePermission()
			assert.True(t, IsInvalidModel(err))
			assert.Contains(t, err.Error(), KeyPermissionModel)
		})
	}
}

func TestLoadConfigFromYAML(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(`
roles:
  separator: "_"
  case_insensitive: true
  models:
    permission: acl_permissions
  pretend:
    enabled: true
    options:
      can: false
`)))

	cfg, err := LoadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "_", cfg.Separator)
	assert.True(t, cfg.CaseInsensitive)
	assert.Equal(t, "roles", cfg.Models.Role)
	assert.Equal(t, "acl_permissions", cfg.Models.Permission)
	assert.True(t, cfg.Pretend.Enabled)
	assert.True(t, cfg.Pretend.Options.Is)
	assert.False(t, cfg.Pretend.Options.Can)
	assert.True(t, cfg.Pretend.Options.Allowed)
}

func TestConfigUnmarshalMatchesKeys(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(`
roles:
  separator: "_"
  models:
    role: acl_roles
  pretend:
    enabled: true
    options:
      is: true
      can: false
      allowed: true
`)))

	var cfg Config
	require.NoError(t, v.UnmarshalKey("roles", &cfg))

	loaded, err := LoadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "_", cfg.Separator)
	assert.Equal(t, "acl_roles", cfg.Models.Role)
	assert.True(t, cfg.Pretend.Enabled)
	assert.Equal(t, PretendOptions{Is: true, Can: false, Allowed: true}, cfg.Pretend.Options)
	assert.Equal(t, loaded.Pretend, cfg.Pretend)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(viper.New())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("ACCESSKIT_ROLES_PRETEND_ENABLED", "true")
	t.Setenv("ACCESSKIT_ROLES_PRETEND_OPTIONS_IS", "false")
	t.Setenv("ACCESSKIT_ROLES_SEPARATOR", "-")

	cfg, err := LoadConfig(viper.New())
	require.NoError(t, err)

	assert.True(t, cfg.Pretend.Enabled)
	assert.False(t, cfg.Pretend.Options.Is)
	assert.Equal(t, "-", cfg.Separator)
}

func TestLoadConfigInvalid(t *testing.T) {
	v := viper.New()
	v.Set(KeySeparator, "--")

	_, err := LoadConfig(v)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accesskit.yaml")
	require.NoError(t, os.WriteFile(path, []byte("roles:\n  separator: \"_\"\n"), 0o600))

	cfg, err := ConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "_", cfg.Separator)

	_, err = ConfigFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
