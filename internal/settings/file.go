package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type fileSettings struct {
	PrivateKey            *string `json:"privateKey" yaml:"privateKey"`
	PublicKey             *string `json:"publicKey" yaml:"publicKey"`
	BindAddress           *string `json:"bindAddress" yaml:"bindAddress"`
	Port                  *int    `json:"port" yaml:"port"`
	MonitoringPort        *int    `json:"monitoringPort" yaml:"monitoringPort"`
	MonitoringPortEnabled *bool   `json:"monitoringPortEnabled" yaml:"monitoringPortEnabled"`
	VaultAddress          *string `json:"vaultAddress" yaml:"vaultAddress"`
	VaultToken            *string `json:"vaultToken" yaml:"vaultToken"`
	VaultRoleId           *string `json:"vaultRoleId" yaml:"vaultRoleId"`
	VaultSecretId         *string `json:"vaultSecretId" yaml:"vaultSecretId"`
	VaultField            *string `json:"vaultField" yaml:"vaultField"`
	S3Region              *string `json:"s3Region" yaml:"s3Region"`
	S3Endpoint            *string `json:"s3Endpoint" yaml:"s3Endpoint"`
	S3AccessKeyId         *string `json:"s3AccessKeyId" yaml:"s3AccessKeyId"`
	S3SecretAccessKey     *string `json:"s3SecretAccessKey" yaml:"s3SecretAccessKey"`
	OtelExporter          *string `json:"otelExporter" yaml:"otelExporter"`
	OtelEndpoint          *string `json:"otelEndpoint" yaml:"otelEndpoint"`
	TracingEnabled        *bool   `json:"tracingEnabled" yaml:"tracingEnabled"`
	RequireSignedRequests *bool   `json:"requireSignedRequests" yaml:"requireSignedRequests"`
}

func (fs *fileSettings) toSettings() *Settings {
	return &Settings{
		privateKey:            fs.PrivateKey,
		publicKey:             fs.PublicKey,
		bindAddress:           fs.BindAddress,
		port:                  fs.Port,
		monitoringPort:        fs.MonitoringPort,
		monitoringPortEnabled: fs.MonitoringPortEnabled,
		vaultAddress:          fs.VaultAddress,
		vaultToken:            fs.VaultToken,
		vaultRoleId:           fs.VaultRoleId,
		vaultSecretId:         fs.VaultSecretId,
		vaultField:            fs.VaultField,
		s3Region:              fs.S3Region,
		s3Endpoint:            fs.S3Endpoint,
		s3AccessKeyId:         fs.S3AccessKeyId,
		s3SecretAccessKey:     fs.S3SecretAccessKey,
		otelExporter:          fs.OtelExporter,
		otelEndpoint:          fs.OtelEndpoint,
		tracingEnabled:        fs.TracingEnabled,
		requireSignedRequests: fs.RequireSignedRequests,
	}
}

func parseJsonSettings(data []byte) (*Settings, error) {
	fs := fileSettings{}
	err := json.Unmarshal(data, &fs)
	if err != nil {
		return nil, err
	}
	return fs.toSettings(), nil
}

func parseYamlSettings(data []byte) (*Settings, error) {
	fs := fileSettings{}
	err := yaml.Unmarshal(data, &fs)
	if err != nil {
		return nil, err
	}
	return fs.toSettings(), nil
}

func loadSettingsFromFile(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var settings *Settings
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		settings, err = parseYamlSettings(data)
	default:
		settings, err = parseJsonSettings(data)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return settings, nil
}

// loadSettingsFromConfigFiles uses the first existing file of paths.
func loadSettingsFromConfigFiles(paths ...string) (*Settings, error) {
	for _, path := range paths {
		settings, err := loadSettingsFromFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		return settings, err
	}
	return nil, nil
}
