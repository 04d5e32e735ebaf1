package settings

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	testutils "github.com/jdillenkofer/signtool/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addrOf[T any](t T) *T { return &t }

func TestMergeSettingsTwoNils(t *testing.T) {
	testutils.SkipIfIntegration(t)

	a := Settings{
		privateKey: nil,
	}
	b := Settings{
		privateKey: nil,
	}
	mergedSettings := mergeSettings(&a, &b)
	assert.NotNil(t, mergedSettings)
	assert.Nil(t, a.privateKey)
	assert.Nil(t, b.privateKey)
	assert.Nil(t, mergedSettings.privateKey)
}

func TestMergeSettingsNilAndValue(t *testing.T) {
	testutils.SkipIfIntegration(t)

	a := Settings{
		privateKey: nil,
	}
	b := Settings{
		privateKey: addrOf("key.pem"),
	}
	mergedSettings := mergeSettings(&a, &b)
	assert.NotNil(t, mergedSettings)
	assert.Nil(t, a.privateKey)
	assert.Equal(t, "key.pem", *b.privateKey)
	assert.Equal(t, b.privateKey, mergedSettings.privateKey)
}

func TestMergeSettingsTwoValues(t *testing.T) {
	testutils.SkipIfIntegration(t)

	a := Settings{
		port: addrOf(1),
	}
	b := Settings{
		port: addrOf(2),
	}
	mergedSettings := mergeSettings(&a, &b)
	assert.NotNil(t, mergedSettings)
	assert.Equal(t, 1, *a.port)
	assert.Equal(t, 2, *b.port)
	assert.Equal(t, 2, mergedSettings.Port())
}

func TestDefaults(t *testing.T) {
	testutils.SkipIfIntegration(t)

	s := mergeSettings()
	assert.Equal(t, "", s.PrivateKey())
	assert.Equal(t, "", s.PublicKey())
	assert.Equal(t, defaultBindAddress, s.BindAddress())
	assert.Equal(t, defaultPort, s.Port())
	assert.Equal(t, defaultMonitoringPort, s.MonitoringPort())
	assert.True(t, s.MonitoringPortEnabled())
	assert.Equal(t, "pem", s.VaultField())
	assert.Equal(t, defaultS3Region, s.S3Region())
	assert.Equal(t, "otlp", s.OtelExporter())
	assert.False(t, s.TracingEnabled())
	assert.False(t, s.RequireSignedRequests())
}

func TestParseJsonSettings(t *testing.T) {
	testutils.SkipIfIntegration(t)

	s, err := parseJsonSettings([]byte(`{"privateKey":"keys/private.pem","port":8443,"tracingEnabled":true}`))
	require.NoError(t, err)
	assert.Equal(t, "keys/private.pem", s.PrivateKey())
	assert.Equal(t, 8443, s.Port())
	assert.True(t, s.TracingEnabled())
	assert.Nil(t, s.publicKey)

	_, err = parseJsonSettings([]byte(`{"port":"not a number"}`))
	assert.Error(t, err)
}

func TestParseYamlSettings(t *testing.T) {
	testutils.SkipIfIntegration(t)

	s, err := parseYamlSettings([]byte("publicKey: s3://keys/public.pem\nmonitoringPortEnabled: false\nrequireSignedRequests: true\n"))
	require.NoError(t, err)
	assert.Equal(t, "s3://keys/public.pem", s.PublicKey())
	assert.False(t, s.MonitoringPortEnabled())
	assert.True(t, s.RequireSignedRequests())
	assert.Nil(t, s.privateKey)
}

func TestLoadSettingsFromConfigFilesUsesFirstExistingFile(t *testing.T) {
	testutils.SkipIfIntegration(t)
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("port: 7000\n"), 0600))

	s, err := loadSettingsFromConfigFiles(filepath.Join(dir, "config.json"), yamlPath)
	require.NoError(t, err)
	assert.Equal(t, 7000, s.Port())

	s, err = loadSettingsFromConfigFiles(filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	assert.Nil(t, s)

	brokenPath := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(brokenPath, []byte("{"), 0600))
	_, err = loadSettingsFromConfigFiles(brokenPath)
	assert.Error(t, err)
}

func TestLoadSettingsFromCmdArgsOnlyKeepsSetFlags(t *testing.T) {
	testutils.SkipIfIntegration(t)

	flagSet := flag.NewFlagSet("test", flag.ContinueOnError)
	s, args, err := loadSettingsFromCmdArgs(flagSet, []string{"-publicKey", "public.pem", "-port", "1234", "body.json"})
	require.NoError(t, err)
	assert.Equal(t, []string{"body.json"}, args)
	assert.Equal(t, "public.pem", s.PublicKey())
	assert.Equal(t, 1234, s.Port())
	assert.Nil(t, s.privateKey)
	assert.Nil(t, s.bindAddress)
	assert.Nil(t, s.monitoringPortEnabled)
}

func TestLoadSettingsEnvOverridesFlags(t *testing.T) {
	testutils.SkipIfIntegration(t)
	testutils.IsolateSettings(t)
	t.Setenv(publicKeyEnvKey, "from-env.pem")
	t.Setenv(tracingEnabledEnvKey, "TRUE")

	flagSet := flag.NewFlagSet("test", flag.ContinueOnError)
	s, args, err := LoadSettings(flagSet, []string{"-publicKey", "from-flag.pem", "-privateKey", "private.pem"})
	require.NoError(t, err)
	assert.Empty(t, args)
	assert.Equal(t, "from-env.pem", s.PublicKey())
	assert.Equal(t, "private.pem", s.PrivateKey())
	assert.True(t, s.TracingEnabled())
}

func TestLoadSettingsRejectsInvalidEnvPort(t *testing.T) {
	testutils.SkipIfIntegration(t)
	testutils.IsolateSettings(t)
	t.Setenv(portEnvKey, "eighty")

	flagSet := flag.NewFlagSet("test", flag.ContinueOnError)
	_, _, err := LoadSettings(flagSet, nil)
	assert.Error(t, err)
}

func TestLoadSettingsReadsConfigFileFromWorkingDirectory(t *testing.T) {
	testutils.SkipIfIntegration(t)
	testutils.IsolateSettings(t)
	require.NoError(t, os.WriteFile("config.json", []byte(`{"port":7001,"requireSignedRequests":true}`), 0600))
	t.Setenv(monitoringPortEnvKey, "7002")

	flagSet := flag.NewFlagSet("test", flag.ContinueOnError)
	s, _, err := LoadSettings(flagSet, []string{"-port", "7003"})
	require.NoError(t, err)
	assert.Equal(t, 7003, s.Port())
	assert.Equal(t, 7002, s.MonitoringPort())
	assert.True(t, s.RequireSignedRequests())
}
