package lifecycle

import (
	"context"

	"devboxctl/awsd/models"
)

// EC2Client defines the provider operations the lifecycle controller
// composes. *awsd.AwsClient satisfies it.
type EC2Client interface {
	ResolveInstanceID(ctx context.Context, name string) (string, error)
	DescribeInstance(ctx context.Context, instanceID string) (*models.AWSInstance, error)
	StartInstance(ctx context.Context, instanceID string) error
	StopInstance(ctx context.Context, instanceID string) error
	RebootInstance(ctx context.Context, instanceID string) error
	WaitUntilRunning(ctx context.Context, instanceID string) error
	WaitUntilStopped(ctx context.Context, instanceID string) error
	AuthorizeSSHIngress(ctx context.Context, groupID, ip string) error
}
