package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/ieum/pkg/app/cliflag"
)

type serverSection struct {
	Addr    string        `mapstructure:"addr"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type testOptions struct {
	Server    serverSection `mapstructure:"server"`
	completed bool
}

func (o *testOptions) Flags() (fss cliflag.NamedFlagSets) {
	fs := fss.FlagSet("server")
	fs.StringVar(&o.Server.Addr, "server.addr", ":8100", "Bind address.")
	fs.DurationVar(&o.Server.Timeout, "server.timeout", time.Second, "Timeout.")
	return fss
}

func (o *testOptions) Complete() error {
	o.completed = true
	return nil
}

func (o *testOptions) Validate() error { return nil }

func runApp(t *testing.T, args ...string) *testOptions {
	t.Helper()
	opts := &testOptions{}
	ran := false
	a := NewApp(
		WithName("ieum-test"),
		WithOptions(opts),
		WithNoVersion(),
		WithRunFunc(func() error { ran = true; return nil }),
	)
	a.Command().SetArgs(args)
	require.NoError(t, a.Command().Execute())
	require.True(t, ran)
	require.True(t, opts.completed)
	return opts
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestApp_Defaults(t *testing.T) {
	opts := runApp(t, "-c", writeConfig(t, "other: 1\n"))
	assert.Equal(t, ":8100", opts.Server.Addr)
	assert.Equal(t, time.Second, opts.Server.Timeout)
}

func TestApp_ConfigFile(t *testing.T) {
	opts := runApp(t, "-c", writeConfig(t, "server:\n  addr: \":9000\"\n  timeout: 5s\n"))
	assert.Equal(t, ":9000", opts.Server.Addr)
	assert.Equal(t, 5*time.Second, opts.Server.Timeout)
}

func TestApp_EnvOverridesFile(t *testing.T) {
	t.Setenv("IEUM_TEST_SERVER_ADDR", ":7000")
	opts := runApp(t, "-c", writeConfig(t, "server:\n  addr: \":9000\"\n"))
	assert.Equal(t, ":7000", opts.Server.Addr)
}

func TestApp_FlagOverridesEnv(t *testing.T) {
	t.Setenv("IEUM_TEST_SERVER_ADDR", ":7000")
	opts := runApp(t, "-c", writeConfig(t, "server:\n  addr: \":9000\"\n"), "--server.addr", ":6000")
	assert.Equal(t, ":6000", opts.Server.Addr)
}

func TestApp_ExpandsEnvInConfig(t *testing.T) {
	t.Setenv("TEST_LISTEN", ":5000")
	opts := runApp(t, "-c", writeConfig(t, "server:\n  addr: \"${TEST_LISTEN}\"\n"))
	assert.Equal(t, ":5000", opts.Server.Addr)
}

func TestApp_MissingConfigFile(t *testing.T) {
	a := NewApp(WithName("ieum-test"), WithOptions(&testOptions{}), WithNoVersion())
	a.Command().SetArgs([]string{"-c", filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, a.Command().Execute())
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("TEST_BUCKET", "minutes")
	out := expandEnv([]byte("a: ${TEST_BUCKET}\nb: $TEST_BUCKET\nc: ${TEST_UNSET_VAR}\nd: pa$5word\n"))
	assert.Equal(t, "a: minutes\nb: minutes\nc: ${TEST_UNSET_VAR}\nd: pa$5word\n", string(out))
}

func TestEnvPrefix(t *testing.T) {
	a := NewApp(WithName("ieum-rag"), WithNoVersion())
	assert.Equal(t, "IEUM_RAG", a.envPrefix())
}
