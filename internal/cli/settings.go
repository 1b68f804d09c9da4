package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"school-tables/internal/datatable"
)

const envPrefix = "TABLES"

// Settings is the client configuration, merged from flags, TABLES_* variables and an optional
// YAML config file, in that order of precedence.
type Settings struct {
	Server           string        `mapstructure:"server"`
	Username         string        `mapstructure:"username"`
	Password         string        `mapstructure:"password"`
	Token            string        `mapstructure:"token"`
	Timeout          time.Duration `mapstructure:"timeout"`
	Tables           string        `mapstructure:"tables"`
	LogFile          string        `mapstructure:"log_file"`
	LogLevel         string        `mapstructure:"log_level"`
	PermissionPolicy string        `mapstructure:"permission_policy"`
}

// flagKeys maps persistent flag names onto settings keys.
var flagKeys = map[string]string{
	"server":            "server",
	"username":          "username",
	"password":          "password",
	"token":             "token",
	"timeout":           "timeout",
	"tables":            "tables",
	"log-file":          "log_file",
	"log-level":         "log_level",
	"permission-policy": "permission_policy",
}

func LoadSettings(cfgFile string, flags *pflag.FlagSet) (Settings, error) {
	v := viper.New()
	v.SetDefault("server", "http://localhost:8080")
	v.SetDefault("timeout", 15*time.Second)
	v.SetDefault("log_level", "info")
	v.SetDefault("permission_policy", datatable.FailOpen.String())

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(dir + "/school-tables")
		}
		v.AddConfigPath(".")
		v.SetConfigName("tables-client")
	}
	v.SetConfigType("yaml")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Settings{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || cfgFile != "" {
			return Settings{}, fmt.Errorf("read config: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode config: %w", err)
	}

	s.Server = strings.TrimRight(strings.TrimSpace(s.Server), "/")
	if s.Server == "" {
		return Settings{}, errors.New("server URL is required")
	}
	if _, err := datatable.ParsePermissionPolicy(s.PermissionPolicy); err != nil {
		return Settings{}, err
	}

	return s, nil
}

func (s Settings) Policy() datatable.PermissionPolicy {
	policy, _ := datatable.ParsePermissionPolicy(s.PermissionPolicy)
	return policy
}
