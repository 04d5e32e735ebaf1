package settings

import (
	"flag"
)

func wasSet(flagSet *flag.FlagSet, name string) bool {
	found := false
	flagSet.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func registerStringFlag(flagSet *flag.FlagSet, name string, defaultValue string, description string) func() *string {
	stringVar := flagSet.String(name, defaultValue, description)
	return func() *string {
		if !wasSet(flagSet, name) {
			return nil
		}
		return stringVar
	}
}

func registerIntFlag(flagSet *flag.FlagSet, name string, defaultValue int, description string) func() *int {
	intVar := flagSet.Int(name, defaultValue, description)
	return func() *int {
		if !wasSet(flagSet, name) {
			return nil
		}
		return intVar
	}
}

func registerBoolFlag(flagSet *flag.FlagSet, name string, defaultValue bool, description string) func() *bool {
	boolVar := flagSet.Bool(name, defaultValue, description)
	return func() *bool {
		if !wasSet(flagSet, name) {
			return nil
		}
		return boolVar
	}
}

func loadSettingsFromCmdArgs(flagSet *flag.FlagSet, args []string) (*Settings, []string, error) {
	privateKeyAccessor := registerStringFlag(flagSet, "privateKey", "", "the private key (path, inline pem, s3://bucket/key or vault:secret/path)")
	publicKeyAccessor := registerStringFlag(flagSet, "publicKey", "", "the public key (path, inline pem, s3://bucket/key or vault:secret/path)")
	bindAddressAccessor := registerStringFlag(flagSet, "bindAddress", defaultBindAddress, "the address the http socket is bound to")
	portAccessor := registerIntFlag(flagSet, "port", defaultPort, "the port for the signing api")
	monitoringPortAccessor := registerIntFlag(flagSet, "monitoringPort", defaultMonitoringPort, "the port for metrics and health checks")
	monitoringPortEnabledAccessor := registerBoolFlag(flagSet, "monitoringPortEnabled", defaultMonitoringPortEnabled, "serve metrics and health checks")
	vaultAddressAccessor := registerStringFlag(flagSet, "vaultAddress", "", "the vault address used for vault: key references")
	vaultTokenAccessor := registerStringFlag(flagSet, "vaultToken", "", "the vault token")
	vaultRoleIdAccessor := registerStringFlag(flagSet, "vaultRoleId", "", "the vault approle role id")
	vaultSecretIdAccessor := registerStringFlag(flagSet, "vaultSecretId", "", "the vault approle secret id")
	vaultFieldAccessor := registerStringFlag(flagSet, "vaultField", defaultVaultField, "the secret field holding the pem")
	s3RegionAccessor := registerStringFlag(flagSet, "s3Region", defaultS3Region, "the region for s3:// key references")
	s3EndpointAccessor := registerStringFlag(flagSet, "s3Endpoint", "", "a custom s3 endpoint")
	s3AccessKeyIdAccessor := registerStringFlag(flagSet, "s3AccessKeyId", "", "the s3 access key id")
	s3SecretAccessKeyAccessor := registerStringFlag(flagSet, "s3SecretAccessKey", "", "the s3 secret access key")
	otelExporterAccessor := registerStringFlag(flagSet, "otelExporter", defaultOtelExporter, "the trace exporter (otlp or stdout)")
	otelEndpointAccessor := registerStringFlag(flagSet, "otelEndpoint", "", "the otlp http endpoint")
	tracingEnabledAccessor := registerBoolFlag(flagSet, "tracingEnabled", defaultTracingEnabled, "enable opentelemetry tracing")
	requireSignedRequestsAccessor := registerBoolFlag(flagSet, "requireSignedRequests", defaultRequireSignedRequests, "reject requests without a valid X-Signature")

	err := flagSet.Parse(args)
	if err != nil {
		return nil, nil, err
	}

	return &Settings{
		privateKey:            privateKeyAccessor(),
		publicKey:             publicKeyAccessor(),
		bindAddress:           bindAddressAccessor(),
		port:                  portAccessor(),
		monitoringPort:        monitoringPortAccessor(),
		monitoringPortEnabled: monitoringPortEnabledAccessor(),
		vaultAddress:          vaultAddressAccessor(),
		vaultToken:            vaultTokenAccessor(),
		vaultRoleId:           vaultRoleIdAccessor(),
		vaultSecretId:         vaultSecretIdAccessor(),
		vaultField:            vaultFieldAccessor(),
		s3Region:              s3RegionAccessor(),
		s3Endpoint:            s3EndpointAccessor(),
		s3AccessKeyId:         s3AccessKeyIdAccessor(),
		s3SecretAccessKey:     s3SecretAccessKeyAccessor(),
		otelExporter:          otelExporterAccessor(),
		otelEndpoint:          otelEndpointAccessor(),
		tracingEnabled:        tracingEnabledAccessor(),
		requireSignedRequests: requireSignedRequestsAccessor(),
	}, flagSet.Args(), nil
}
