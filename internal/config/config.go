// Package config resolves avrorouter's flat runtime configuration from
// (highest wins) CLI flags, AVROROUTER_* environment variables, an
// optional YAML file, and built-in defaults — the same precedence order
// the retrieved storj.io/storj pkg/process package binds cobra flags
// through viper with, simplified here to one flat struct instead of
// that package's reflection-driven struct-tag walker.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "AVROROUTER"

// Defaults mirror internal/converter's own (RowTarget, TrxTarget
// defaults live there too; these are only the flag defaults surfaced on
// the CLI).
const (
	DefaultListen    = ":4406"
	DefaultRowTarget = 1000
	DefaultTrxTarget = 50
)

// Config is avrorouter's resolved runtime configuration (§4.11).
type Config struct {
	BinlogDir  string `mapstructure:"binlog-dir"`
	AvroDir    string `mapstructure:"avro-dir"`
	RowTarget  int    `mapstructure:"row-target"`
	TrxTarget  int    `mapstructure:"trx-target"`
	Listen     string `mapstructure:"listen"`
}

// CheckpointPath and DDLListPath are derived, not independently
// configurable: both sidecars live alongside the converted Avro files
// (§6), so pointing --avro-dir elsewhere moves them together.
func (c Config) CheckpointPath() string {
	return filepath.Join(c.AvroDir, "avro-conversion.ini")
}

func (c Config) DDLListPath() string {
	return filepath.Join(c.AvroDir, "table-ddl.list")
}

// Validate reports the first missing required setting.
func (c Config) Validate() error {
	if c.BinlogDir == "" {
		return fmt.Errorf("config: --binlog-dir is required")
	}
	if c.AvroDir == "" {
		return fmt.Errorf("config: --avro-dir is required")
	}
	return nil
}

// BindFlags registers serve's flags on cmd with their defaults, and
// binds --config as the optional YAML config file path.
func BindFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("binlog-dir", "", "directory a housekeeper appends binlog files to")
	flags.String("avro-dir", "", "directory Avro table files and sidecars are written to")
	flags.Int("row-target", DefaultRowTarget, "rows to accumulate across all tables before flushing")
	flags.Int("trx-target", DefaultTrxTarget, "transactions to accumulate before flushing")
	flags.String("listen", DefaultListen, "address the client session listener binds to")
	flags.String("config", "", "optional YAML config file")
}

// Load resolves Config from cmd's flags per the precedence flags >
// AVROROUTER_* env > --config YAML file > the flag defaults registered
// by BindFlags.
func Load(cmd *cobra.Command) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return Config{}, err
	}

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}
