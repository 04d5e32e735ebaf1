package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jdillenkofer/signtool/internal/cryptography"
	"github.com/jdillenkofer/signtool/internal/http/server"
	"github.com/jdillenkofer/signtool/internal/settings"
	"github.com/jdillenkofer/signtool/internal/signing"
	prometheusMiddleware "github.com/jdillenkofer/signtool/internal/signing/middlewares/prometheus"
	tracingMiddleware "github.com/jdillenkofer/signtool/internal/signing/middlewares/tracing"
	"github.com/jdillenkofer/signtool/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
)

const subcommandServe = "serve"
const subcommandHash = "hash"
const subcommandSign = "sign"
const subcommandVerify = "verify"
const subcommandCheckKey = "check-key"

const exitOk = 0
const exitFailure = 1
const exitUsage = 2

const shutdownTimeout = 10 * time.Second

var errSignedRequestsWithoutPublicKey = errors.New("requireSignedRequests needs a public key")

func main() {
	var programLevel = new(slog.LevelVar)
	programLevel.Set(slog.LevelInfo)
	// stdout carries command output, so logs go to stderr
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		AddSource: true,
		Level:     programLevel,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	exitCode := run(ctx, os.Args, os.Stdin, os.Stdout)
	stop()
	os.Exit(exitCode)
}

func usage(program string) string {
	return fmt.Sprintf("Usage: %s %s|%s|%s|%s|%s [options] [file]", program, subcommandServe, subcommandHash, subcommandSign, subcommandVerify, subcommandCheckKey)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) int {
	if len(args) < 2 {
		slog.Info(usage(args[0]))
		return exitUsage
	}

	subcommand := args[1]
	flagSet := flag.NewFlagSet(subcommand, flag.ContinueOnError)
	var signatureFlag *string
	if subcommand == subcommandVerify {
		signatureFlag = flagSet.String("signature", "", "the base64 signature to verify")
	}

	switch subcommand {
	case subcommandServe, subcommandHash, subcommandSign, subcommandVerify, subcommandCheckKey:
	default:
		slog.Error(fmt.Sprintf("Invalid subcommand: %s. %s", subcommand, usage(args[0])))
		return exitUsage
	}

	s, remainingArgs, err := settings.LoadSettings(flagSet, args[2:])
	if err != nil {
		slog.Error(fmt.Sprint("Error while loading settings: ", err))
		return exitUsage
	}

	switch subcommand {
	case subcommandServe:
		return serve(ctx, s)
	case subcommandHash:
		return hash(remainingArgs, stdin, stdout)
	case subcommandSign:
		return sign(ctx, s, remainingArgs, stdin, stdout)
	case subcommandVerify:
		return verify(ctx, s, *signatureFlag, remainingArgs, stdin, stdout)
	default:
		return checkKey(ctx, s, stdout)
	}
}

func readInput(args []string, stdin io.Reader) ([]byte, error) {
	if len(args) > 1 {
		return nil, fmt.Errorf("expected at most one input file, got %d", len(args))
	}
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(args[0])
}

func hash(args []string, stdin io.Reader, stdout io.Writer) int {
	body, err := readInput(args, stdin)
	if err != nil {
		slog.Error(fmt.Sprint("Couldn't read input: ", err))
		return exitFailure
	}
	fmt.Fprintln(stdout, cryptography.HashBody(body))
	return exitOk
}

func sign(ctx context.Context, s *settings.Settings, args []string, stdin io.Reader, stdout io.Writer) int {
	if s.PrivateKey() == "" {
		slog.Error("No private key configured, use -privateKey")
		return exitUsage
	}
	body, err := readInput(args, stdin)
	if err != nil {
		slog.Error(fmt.Sprint("Couldn't read input: ", err))
		return exitFailure
	}
	privateKeyPEM, err := loadKeyPEM(ctx, s, s.PrivateKey())
	if err != nil {
		slog.Error(fmt.Sprint("Couldn't load private key: ", err))
		return exitFailure
	}
	signature, err := cryptography.GenerateDigitalSignature(body, privateKeyPEM)
	if err != nil {
		slog.Error(fmt.Sprint("Couldn't sign input: ", err))
		return exitFailure
	}
	fmt.Fprintln(stdout, cryptography.EncodeSignature(signature))
	return exitOk
}

func verify(ctx context.Context, s *settings.Settings, signature string, args []string, stdin io.Reader, stdout io.Writer) int {
	if s.PublicKey() == "" {
		slog.Error("No public key configured, use -publicKey")
		return exitUsage
	}
	if signature == "" {
		slog.Error("No signature given, use -signature")
		return exitUsage
	}
	body, err := readInput(args, stdin)
	if err != nil {
		slog.Error(fmt.Sprint("Couldn't read input: ", err))
		return exitFailure
	}
	publicKeyPEM, err := loadKeyPEM(ctx, s, s.PublicKey())
	if err != nil {
		slog.Error(fmt.Sprint("Couldn't load public key: ", err))
		return exitFailure
	}
	valid, err := cryptography.VerifyDigitalSignature(signature, body, publicKeyPEM)
	if err != nil {
		slog.Error(fmt.Sprint("Couldn't verify input: ", err))
		return exitFailure
	}
	fmt.Fprintln(stdout, valid)
	if !valid {
		return exitFailure
	}
	return exitOk
}

func checkKey(ctx context.Context, s *settings.Settings, stdout io.Writer) int {
	if s.PrivateKey() == "" && s.PublicKey() == "" {
		slog.Error("No key configured, use -privateKey and/or -publicKey")
		return exitUsage
	}

	var signer *signing.RsaSigner
	var verifier *signing.RsaVerifier
	var err error
	if s.PrivateKey() != "" {
		signer, err = loadSigner(ctx, s)
		if err != nil {
			slog.Error(fmt.Sprint("Invalid private key: ", err))
			return exitFailure
		}
		fmt.Fprintf(stdout, "privateKey: bits=%d publicOnly=%t\n", signer.PrivateKey().Size()*8, signer.PrivateKey().PublicOnly())
	}
	if s.PublicKey() != "" {
		verifier, err = loadVerifier(ctx, s)
		if err != nil {
			slog.Error(fmt.Sprint("Invalid public key: ", err))
			return exitFailure
		}
		fmt.Fprintf(stdout, "publicKey: bits=%d publicOnly=%t\n", verifier.PublicKey().Size()*8, verifier.PublicKey().PublicOnly())
	}
	if signer != nil && verifier != nil {
		probe := []byte("signtool key pair probe")
		signature, err := signer.Sign(ctx, probe)
		if err != nil {
			slog.Error(fmt.Sprint("Couldn't sign probe: ", err))
			return exitFailure
		}
		matching := verifier.Verify(ctx, probe, signature)
		fmt.Fprintf(stdout, "keyPair: matching=%t\n", matching)
		if !matching {
			return exitFailure
		}
	}
	return exitOk
}

func serve(ctx context.Context, s *settings.Settings) int {
	if s.TracingEnabled() {
		shutdown, err := telemetry.SetupOTelSDK(ctx, s, os.Stdout)
		if err != nil {
			slog.Error(fmt.Sprint("Couldn't setup OpenTelemetry: ", err))
			return exitFailure
		}
		defer func() {
			err := shutdown(context.Background())
			if err != nil {
				slog.Error(fmt.Sprint("Couldn't shutdown OpenTelemetry: ", err))
			}
		}()
	}

	signer, verifier, err := setupSigningPipeline(ctx, s, prometheus.DefaultRegisterer)
	if err != nil {
		slog.Error(fmt.Sprint("Couldn't setup signing: ", err))
		return exitFailure
	}

	handler := server.SetupServer(signer, verifier, s.RequireSignedRequests())
	addr := fmt.Sprintf("%v:%v", s.BindAddress(), s.Port())
	httpServer := &http.Server{
		BaseContext: func(net.Listener) context.Context { return ctx },
		Addr:        addr,
		Handler:     handler,
	}

	if s.MonitoringPortEnabled() {
		monitoringHandler := server.SetupMonitoringServer()
		monitoringAddr := fmt.Sprintf("%v:%v", s.BindAddress(), s.MonitoringPort())
		httpMonitoringServer := &http.Server{
			BaseContext: func(net.Listener) context.Context { return ctx },
			Addr:        monitoringAddr,
			Handler:     monitoringHandler,
		}
		go (func() {
			slog.Info(fmt.Sprintf("Listening with monitoring api on http://%v", monitoringAddr))
			httpMonitoringServer.ListenAndServe()
		})()
	}

	shutdownDone := make(chan struct{})
	go (func() {
		defer close(shutdownDone)
		<-ctx.Done()
		slog.Info("Shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		if err != nil {
			slog.Error(fmt.Sprintf("Error while shutting down http server: %s", err))
		}
	})()

	slog.Info(fmt.Sprintf("Listening with signing api on http://%v", addr))
	err = httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error(fmt.Sprintf("Error while starting http server: %s", err))
		return exitFailure
	}
	<-shutdownDone
	return exitOk
}

// setupSigningPipeline loads the configured keys and decorates them with metrics
// and, if enabled, tracing. Unconfigured keys yield nil.
func setupSigningPipeline(ctx context.Context, s *settings.Settings, registerer prometheus.Registerer) (signing.Signer, signing.Verifier, error) {
	metrics, err := prometheusMiddleware.NewMetrics(registerer)
	if err != nil {
		return nil, nil, err
	}

	var signer signing.Signer
	if s.PrivateKey() != "" {
		rsaSigner, err := loadSigner(ctx, s)
		if err != nil {
			return nil, nil, err
		}
		signer = prometheusMiddleware.NewSignerMiddleware(rsaSigner, metrics)
		if s.TracingEnabled() {
			signer = tracingMiddleware.NewSignerMiddleware(signer)
		}
	} else {
		slog.Warn("No private key configured, /sign is disabled")
	}

	var verifier signing.Verifier
	if s.PublicKey() != "" {
		rsaVerifier, err := loadVerifier(ctx, s)
		if err != nil {
			return nil, nil, err
		}
		verifier = prometheusMiddleware.NewVerifierMiddleware(rsaVerifier, metrics)
		if s.TracingEnabled() {
			verifier = tracingMiddleware.NewVerifierMiddleware(verifier)
		}
	} else {
		slog.Warn("No public key configured, /verify is disabled")
	}
	if s.RequireSignedRequests() && verifier == nil {
		return nil, nil, errSignedRequestsWithoutPublicKey
	}
	return signer, verifier, nil
}
