package tracing

import (
	"context"

	"github.com/jdillenkofer/signtool/internal/signing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "internal/signing/middlewares/tracing"

type tracingSignerMiddleware struct {
	tracer      trace.Tracer
	innerSigner signing.Signer
}

// Compile-time check to ensure tracingSignerMiddleware implements signing.Signer
var _ signing.Signer = (*tracingSignerMiddleware)(nil)

func NewSignerMiddleware(innerSigner signing.Signer) signing.Signer {
	return &tracingSignerMiddleware{
		tracer:      otel.Tracer(tracerName),
		innerSigner: innerSigner,
	}
}

func (tsm *tracingSignerMiddleware) Sign(ctx context.Context, data []byte) ([]byte, error) {
	ctx, span := tsm.tracer.Start(ctx, "Signer.Sign")
	defer span.End()
	span.SetAttributes(attribute.Int("signtool.body.size", len(data)))

	signature, err := tsm.innerSigner.Sign(ctx, data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("signtool.signature.size", len(signature)))
	return signature, nil
}

type tracingVerifierMiddleware struct {
	tracer        trace.Tracer
	innerVerifier signing.Verifier
}

// Compile-time check to ensure tracingVerifierMiddleware implements signing.Verifier
var _ signing.Verifier = (*tracingVerifierMiddleware)(nil)

func NewVerifierMiddleware(innerVerifier signing.Verifier) signing.Verifier {
	return &tracingVerifierMiddleware{
		tracer:        otel.Tracer(tracerName),
		innerVerifier: innerVerifier,
	}
}

func (tvm *tracingVerifierMiddleware) Verify(ctx context.Context, data, signature []byte) bool {
	ctx, span := tvm.tracer.Start(ctx, "Verifier.Verify")
	defer span.End()
	span.SetAttributes(attribute.Int("signtool.body.size", len(data)))

	valid := tvm.innerVerifier.Verify(ctx, data, signature)
	span.SetAttributes(attribute.Bool("signtool.signature.valid", valid))
	return valid
}
