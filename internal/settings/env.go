package settings

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const envKeyPrefix string = "SIGNTOOL"

const privateKeyEnvKey string = envKeyPrefix + "_PRIVATE_KEY"
const publicKeyEnvKey string = envKeyPrefix + "_PUBLIC_KEY"
const bindAddressEnvKey string = envKeyPrefix + "_BIND_ADDRESS"
const portEnvKey string = envKeyPrefix + "_PORT"
const monitoringPortEnvKey string = envKeyPrefix + "_MONITORING_PORT"
const monitoringPortEnabledEnvKey string = envKeyPrefix + "_MONITORING_PORT_ENABLED"
const vaultAddressEnvKey string = envKeyPrefix + "_VAULT_ADDRESS"
const vaultTokenEnvKey string = envKeyPrefix + "_VAULT_TOKEN"
const vaultRoleIdEnvKey string = envKeyPrefix + "_VAULT_ROLE_ID"
const vaultSecretIdEnvKey string = envKeyPrefix + "_VAULT_SECRET_ID"
const vaultFieldEnvKey string = envKeyPrefix + "_VAULT_FIELD"
const s3RegionEnvKey string = envKeyPrefix + "_S3_REGION"
const s3EndpointEnvKey string = envKeyPrefix + "_S3_ENDPOINT"
const s3AccessKeyIdEnvKey string = envKeyPrefix + "_S3_ACCESS_KEY_ID"
const s3SecretAccessKeyEnvKey string = envKeyPrefix + "_S3_SECRET_ACCESS_KEY"
const otelExporterEnvKey string = envKeyPrefix + "_OTEL_EXPORTER"
const otelEndpointEnvKey string = envKeyPrefix + "_OTEL_ENDPOINT"
const tracingEnabledEnvKey string = envKeyPrefix + "_TRACING_ENABLED"
const requireSignedRequestsEnvKey string = envKeyPrefix + "_REQUIRE_SIGNED_REQUESTS"

func getStringFromEnv(envKey string) *string {
	val := os.Getenv(envKey)
	if val == "" {
		return nil
	}
	return &val
}

func getIntFromEnv(envKey string) (*int, error) {
	val := os.Getenv(envKey)
	if val == "" {
		return nil, nil
	}
	int64Val, err := strconv.ParseInt(val, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid value for %s: %w", envKey, err)
	}
	intVal := int(int64Val)
	return &intVal, nil
}

func getBoolFromEnv(envKey string) *bool {
	val := os.Getenv(envKey)
	val = strings.ToLower(val)
	if val == "" {
		return nil
	}
	retval := val == "1" || val == "t" || val == "true"
	return &retval
}

func loadSettingsFromEnv() (*Settings, error) {
	port, err := getIntFromEnv(portEnvKey)
	if err != nil {
		return nil, err
	}
	monitoringPort, err := getIntFromEnv(monitoringPortEnvKey)
	if err != nil {
		return nil, err
	}
	return &Settings{
		privateKey:            getStringFromEnv(privateKeyEnvKey),
		publicKey:             getStringFromEnv(publicKeyEnvKey),
		bindAddress:           getStringFromEnv(bindAddressEnvKey),
		port:                  port,
		monitoringPort:        monitoringPort,
		monitoringPortEnabled: getBoolFromEnv(monitoringPortEnabledEnvKey),
		vaultAddress:          getStringFromEnv(vaultAddressEnvKey),
		vaultToken:            getStringFromEnv(vaultTokenEnvKey),
		vaultRoleId:           getStringFromEnv(vaultRoleIdEnvKey),
		vaultSecretId:         getStringFromEnv(vaultSecretIdEnvKey),
		vaultField:            getStringFromEnv(vaultFieldEnvKey),
		s3Region:              getStringFromEnv(s3RegionEnvKey),
		s3Endpoint:            getStringFromEnv(s3EndpointEnvKey),
		s3AccessKeyId:         getStringFromEnv(s3AccessKeyIdEnvKey),
		s3SecretAccessKey:     getStringFromEnv(s3SecretAccessKeyEnvKey),
		otelExporter:          getStringFromEnv(otelExporterEnvKey),
		otelEndpoint:          getStringFromEnv(otelEndpointEnvKey),
		tracingEnabled:        getBoolFromEnv(tracingEnabledEnvKey),
		requireSignedRequests: getBoolFromEnv(requireSignedRequestsEnvKey),
	}, nil
}
