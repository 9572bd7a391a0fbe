package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func newTestCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "serve"}
	BindFlags(cmd)
	return cmd
}

func TestLoadAppliesFlagDefaults(t *testing.T) {
	cmd := newTestCmd()
	require.NoError(t, cmd.ParseFlags(nil))

	cfg, err := Load(cmd)
	require.NoError(t, err)
	require.Equal(t, DefaultListen, cfg.Listen)
	require.Equal(t, DefaultRowTarget, cfg.RowTarget)
	require.Equal(t, DefaultTrxTarget, cfg.TrxTarget)
}

func TestLoadFlagsOverrideDefaults(t *testing.T) {
	cmd := newTestCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--binlog-dir=/data/bin", "--avro-dir=/data/avro", "--row-target=5"}))

	cfg, err := Load(cmd)
	require.NoError(t, err)
	require.Equal(t, "/data/bin", cfg.BinlogDir)
	require.Equal(t, "/data/avro", cfg.AvroDir)
	require.Equal(t, 5, cfg.RowTarget)
	require.Equal(t, "/data/avro/avro-conversion.ini", cfg.CheckpointPath())
	require.Equal(t, "/data/avro/table-ddl.list", cfg.DDLListPath())
}

func TestLoadEnvOverridesDefaultsButNotFlags(t *testing.T) {
	t.Setenv("AVROROUTER_BINLOG_DIR", "/env/bin")
	t.Setenv("AVROROUTER_ROW_TARGET", "7")

	cmd := newTestCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--avro-dir=/flag/avro"}))

	cfg, err := Load(cmd)
	require.NoError(t, err)
	require.Equal(t, "/env/bin", cfg.BinlogDir)
	require.Equal(t, "/flag/avro", cfg.AvroDir)
	require.Equal(t, 7, cfg.RowTarget)
}

func TestLoadReadsYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "avrorouter.yaml")
	yaml := "binlog-dir: /yaml/bin\navro-dir: /yaml/avro\ntrx-target: 9\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cmd := newTestCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--config=" + path}))

	cfg, err := Load(cmd)
	require.NoError(t, err)
	require.Equal(t, "/yaml/bin", cfg.BinlogDir)
	require.Equal(t, "/yaml/avro", cfg.AvroDir)
	require.Equal(t, 9, cfg.TrxTarget)
}

func TestValidateRequiresDirs(t *testing.T) {
	require.Error(t, Config{}.Validate())
	require.Error(t, Config{BinlogDir: "/a"}.Validate())
	require.NoError(t, Config{BinlogDir: "/a", AvroDir: "/b"}.Validate())
}
