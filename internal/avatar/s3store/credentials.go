package s3store

import (
	"context"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
)

// CredentialStrategy selects where S3 credentials come from. It is decided
// once at startup and passed to NewClient.
type CredentialStrategy int

const (
	// StrategyStatic uses the access key from configuration.
	StrategyStatic CredentialStrategy = iota
	// StrategyAmbient uses the SDK default chain, e.g. an instance role.
	StrategyAmbient
)

func (s CredentialStrategy) String() string {
	if s == StrategyAmbient {
		return "ambient"
	}
	return "static"
}

// MetadataProbe is the part of the instance metadata client used for
// detection. *imds.Client satisfies it.
type MetadataProbe interface {
	GetMetadata(ctx context.Context, params *imds.GetMetadataInput, optFns ...func(*imds.Options)) (*imds.GetMetadataOutput, error)
}

// DefaultProbeTimeout bounds instance metadata detection.
const DefaultProbeTimeout = 100 * time.Millisecond

// NewMetadataProbe returns an instance metadata client that gives up after
// one attempt.
func NewMetadataProbe() *imds.Client {
	return imds.New(imds.Options{Retryer: aws.NopRetryer{}})
}

// DetectCredentialStrategy returns StrategyAmbient when the instance metadata
// service answers within timeout and StrategyStatic otherwise.
func DetectCredentialStrategy(ctx context.Context, probe MetadataProbe, timeout time.Duration) CredentialStrategy {
	if probe == nil {
		return StrategyStatic
	}
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := probe.GetMetadata(ctx, &imds.GetMetadataInput{Path: "instance-id"})
	if err != nil {
		return StrategyStatic
	}
	if out.Content != nil {
		_, _ = io.Copy(io.Discard, out.Content)
		out.Content.Close()
	}
	return StrategyAmbient
}
