package prometheus

import (
	"context"
	"time"

	"github.com/jdillenkofer/signtool/internal/signing"
	"github.com/prometheus/client_golang/prometheus"
)

const resultSuccess = "success"
const resultFailure = "failure"

type Metrics struct {
	signOpsCounter     *prometheus.CounterVec
	verifyOpsCounter   *prometheus.CounterVec
	signDuration       prometheus.Histogram
	verifyDuration     prometheus.Histogram
	signedBytesCounter prometheus.Counter
}

func NewMetrics(registerer prometheus.Registerer) (*Metrics, error) {
	signOpsCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "signtool",
			Subsystem: "signing",
			Name:      "sign_ops_total",
			Help:      "No of sign operations partitioned by result",
		},
		[]string{"result"},
	)

	verifyOpsCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "signtool",
			Subsystem: "signing",
			Name:      "verify_ops_total",
			Help:      "No of verify operations partitioned by result",
		},
		[]string{"result"},
	)

	signDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "signtool",
			Subsystem: "signing",
			Name:      "sign_duration_seconds",
			Help:      "Duration of sign operations",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		},
	)

	verifyDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "signtool",
			Subsystem: "signing",
			Name:      "verify_duration_seconds",
			Help:      "Duration of verify operations",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 12),
		},
	)

	signedBytesCounter := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "signtool",
			Subsystem: "signing",
			Name:      "signed_bytes_total",
			Help:      "Total bytes of signed bodies",
		},
	)

	for _, collector := range []prometheus.Collector{signOpsCounter, verifyOpsCounter, signDuration, verifyDuration, signedBytesCounter} {
		if err := registerer.Register(collector); err != nil {
			return nil, err
		}
	}

	return &Metrics{
		signOpsCounter:     signOpsCounter,
		verifyOpsCounter:   verifyOpsCounter,
		signDuration:       signDuration,
		verifyDuration:     verifyDuration,
		signedBytesCounter: signedBytesCounter,
	}, nil
}

type prometheusSignerMiddleware struct {
	metrics     *Metrics
	innerSigner signing.Signer
}

// Compile-time check to ensure prometheusSignerMiddleware implements signing.Signer
var _ signing.Signer = (*prometheusSignerMiddleware)(nil)

func NewSignerMiddleware(innerSigner signing.Signer, metrics *Metrics) signing.Signer {
	return &prometheusSignerMiddleware{
		metrics:     metrics,
		innerSigner: innerSigner,
	}
}

func (psm *prometheusSignerMiddleware) Sign(ctx context.Context, data []byte) ([]byte, error) {
	start := time.Now()
	signature, err := psm.innerSigner.Sign(ctx, data)
	psm.metrics.signDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		psm.metrics.signOpsCounter.With(prometheus.Labels{"result": resultFailure}).Inc()
		return nil, err
	}
	psm.metrics.signOpsCounter.With(prometheus.Labels{"result": resultSuccess}).Inc()
	psm.metrics.signedBytesCounter.Add(float64(len(data)))
	return signature, nil
}

type prometheusVerifierMiddleware struct {
	metrics       *Metrics
	innerVerifier signing.Verifier
}

// Compile-time check to ensure prometheusVerifierMiddleware implements signing.Verifier
var _ signing.Verifier = (*prometheusVerifierMiddleware)(nil)

func NewVerifierMiddleware(innerVerifier signing.Verifier, metrics *Metrics) signing.Verifier {
	return &prometheusVerifierMiddleware{
		metrics:       metrics,
		innerVerifier: innerVerifier,
	}
}

func (pvm *prometheusVerifierMiddleware) Verify(ctx context.Context, data, signature []byte) bool {
	start := time.Now()
	valid := pvm.innerVerifier.Verify(ctx, data, signature)
	pvm.metrics.verifyDuration.Observe(time.Since(start).Seconds())
	result := resultFailure
	if valid {
		result = resultSuccess
	}
	pvm.metrics.verifyOpsCounter.With(prometheus.Labels{"result": result}).Inc()
	return valid
}
