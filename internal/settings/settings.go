package settings

import (
	"flag"
	"reflect"
	"unsafe"
)

const defaultBindAddress = "0.0.0.0"
const defaultPort = 9080
const defaultMonitoringPort = 9081
const defaultMonitoringPortEnabled = true
const defaultVaultField = "pem"
const defaultS3Region = "eu-central-1"
const defaultOtelExporter = "otlp"
const defaultTracingEnabled = false
const defaultRequireSignedRequests = false

var defaultConfigFiles = []string{"config.json", "config.yaml", "config.yml"}

const mergableTagKey = "mergable"

type Settings struct {
	privateKey            *string `mergable:""`
	publicKey             *string `mergable:""`
	bindAddress           *string `mergable:""`
	port                  *int    `mergable:""`
	monitoringPort        *int    `mergable:""`
	monitoringPortEnabled *bool   `mergable:""`
	vaultAddress          *string `mergable:""`
	vaultToken            *string `mergable:""`
	vaultRoleId           *string `mergable:""`
	vaultSecretId         *string `mergable:""`
	vaultField            *string `mergable:""`
	s3Region              *string `mergable:""`
	s3Endpoint            *string `mergable:""`
	s3AccessKeyId         *string `mergable:""`
	s3SecretAccessKey     *string `mergable:""`
	otelExporter          *string `mergable:""`
	otelEndpoint          *string `mergable:""`
	tracingEnabled        *bool   `mergable:""`
	requireSignedRequests *bool   `mergable:""`
}

func valueOrDefault[V any](v *V, defaultValue V) V {
	if v == nil {
		return defaultValue
	}
	return *v
}

// PrivateKey is a file path, inline PEM, an s3:// uri or a vault: secret path.
// Empty means no signing key is configured.
func (s *Settings) PrivateKey() string {
	return valueOrDefault(s.privateKey, "")
}

// PublicKey accepts the same forms as PrivateKey.
func (s *Settings) PublicKey() string {
	return valueOrDefault(s.publicKey, "")
}

func (s *Settings) BindAddress() string {
	return valueOrDefault(s.bindAddress, defaultBindAddress)
}

func (s *Settings) Port() int {
	return valueOrDefault(s.port, defaultPort)
}

func (s *Settings) MonitoringPort() int {
	return valueOrDefault(s.monitoringPort, defaultMonitoringPort)
}

func (s *Settings) MonitoringPortEnabled() bool {
	return valueOrDefault(s.monitoringPortEnabled, defaultMonitoringPortEnabled)
}

func (s *Settings) VaultAddress() string {
	return valueOrDefault(s.vaultAddress, "")
}

func (s *Settings) VaultToken() string {
	return valueOrDefault(s.vaultToken, "")
}

func (s *Settings) VaultRoleId() string {
	return valueOrDefault(s.vaultRoleId, "")
}

func (s *Settings) VaultSecretId() string {
	return valueOrDefault(s.vaultSecretId, "")
}

func (s *Settings) VaultField() string {
	return valueOrDefault(s.vaultField, defaultVaultField)
}

func (s *Settings) S3Region() string {
	return valueOrDefault(s.s3Region, defaultS3Region)
}

func (s *Settings) S3Endpoint() string {
	return valueOrDefault(s.s3Endpoint, "")
}

func (s *Settings) S3AccessKeyId() string {
	return valueOrDefault(s.s3AccessKeyId, "")
}

func (s *Settings) S3SecretAccessKey() string {
	return valueOrDefault(s.s3SecretAccessKey, "")
}

// OtelExporter is either "otlp" or "stdout".
func (s *Settings) OtelExporter() string {
	return valueOrDefault(s.otelExporter, defaultOtelExporter)
}

func (s *Settings) OtelEndpoint() string {
	return valueOrDefault(s.otelEndpoint, "")
}

func (s *Settings) TracingEnabled() bool {
	return valueOrDefault(s.tracingEnabled, defaultTracingEnabled)
}

func (s *Settings) RequireSignedRequests() bool {
	return valueOrDefault(s.requireSignedRequests, defaultRequireSignedRequests)
}

func getUnexportedField(field reflect.Value) interface{} {
	return reflect.NewAt(field.Type(), unsafe.Pointer(field.UnsafeAddr())).Elem().Interface()
}

func setUnexportedField(field reflect.Value, value interface{}) {
	reflect.NewAt(field.Type(), unsafe.Pointer(field.UnsafeAddr())).Elem().Set(reflect.ValueOf(value))
}

func isNilish(val any) bool {
	if val == nil {
		return true
	}

	v := reflect.ValueOf(val)
	k := v.Kind()
	switch k {
	case reflect.Chan, reflect.Func, reflect.Map, reflect.Pointer,
		reflect.UnsafePointer, reflect.Interface, reflect.Slice:
		return v.IsNil()
	}

	return false
}

func (s *Settings) merge(other *Settings) {
	fields := reflect.VisibleFields(reflect.TypeOf(other).Elem())
	sStruct := reflect.ValueOf(s).Elem()
	otherStruct := reflect.ValueOf(other).Elem()

	for _, field := range fields {
		if _, ok := field.Tag.Lookup(mergableTagKey); !ok {
			continue
		}
		sField := sStruct.FieldByName(field.Name)
		otherField := otherStruct.FieldByName(field.Name)

		otherFieldValue := getUnexportedField(otherField)
		if field.Type.Kind() != reflect.Pointer || !isNilish(otherFieldValue) {
			setUnexportedField(sField, otherFieldValue)
		}
	}
}

func mergeSettings(settings ...*Settings) *Settings {
	var result *Settings = &Settings{}
	for _, setting := range settings {
		if setting == nil {
			continue
		}
		result.merge(setting)
	}
	return result
}

// LoadSettings merges the config file (config.json or config.yaml), the command line
// flags in args and the SIGNTOOL_ environment, later sources winning. The remaining
// positional arguments are returned alongside.
func LoadSettings(flagSet *flag.FlagSet, args []string) (*Settings, []string, error) {
	configFileSettings, err := loadSettingsFromConfigFiles(defaultConfigFiles...)
	if err != nil {
		return nil, nil, err
	}
	cmdArgsSettings, remainingArgs, err := loadSettingsFromCmdArgs(flagSet, args)
	if err != nil {
		return nil, nil, err
	}
	envSettings, err := loadSettingsFromEnv()
	if err != nil {
		return nil, nil, err
	}
	settings := mergeSettings(configFileSettings, cmdArgsSettings, envSettings)
	return settings, remainingArgs, nil
}
