package awsd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"devboxctl/awsd/models"
	"devboxctl/configuration"
	apperrors "devboxctl/errors"
)

const (
	packageName = "awsd"

	// duplicateRuleCode is EC2's signal that an identical ingress rule
	// already exists.
	duplicateRuleCode = "InvalidPermission.Duplicate"

	// waiterTimeout bounds the SDK waiters. The waits are treated as
	// opaque provider-native primitives, so this stays generous.
	waiterTimeout = 10 * time.Minute
)

// EC2API captures the EC2 operations this tool issues. It is satisfied by
// *ec2.Client and by the func-field mock in tests.
type EC2API interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	StartInstances(ctx context.Context, params *ec2.StartInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StartInstancesOutput, error)
	StopInstances(ctx context.Context, params *ec2.StopInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error)
	RebootInstances(ctx context.Context, params *ec2.RebootInstancesInput, optFns ...func(*ec2.Options)) (*ec2.RebootInstancesOutput, error)
	AuthorizeSecurityGroupIngress(ctx context.Context, params *ec2.AuthorizeSecurityGroupIngressInput, optFns ...func(*ec2.Options)) (*ec2.AuthorizeSecurityGroupIngressOutput, error)
}

type AwsClient struct {
	client  EC2API
	sshPort int32
	logger  *zap.Logger
}

func NewEC2ClientWithConfig(cfg aws.Config, sshPort int, logger *zap.Logger) *AwsClient {
	return NewClientWithAPI(ec2.NewFromConfig(cfg), sshPort, logger)
}

// NewClientWithAPI wires an AwsClient over any EC2API implementation.
func NewClientWithAPI(api EC2API, sshPort int, logger *zap.Logger) *AwsClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AwsClient{
		client:  api,
		sshPort: int32(sshPort),
		logger:  logger.With(zap.String("package", packageName)),
	}
}

// NewEC2Client creates a configured EC2 client. Credentials and region come
// from the ambient AWS environment; an endpoint URL in the configuration
// switches to static credentials for local development with LocalStack.
func NewEC2Client(appCfg *configuration.Config, logger *zap.Logger) (*AwsClient, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(appCfg.AWSRegion),
	}
	if appCfg.EndpointURL != "" {
		opts = append(opts,
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				appCfg.AcessKeyID, appCfg.AccessSecret, "")),
			config.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
				func(service, region string, options ...interface{}) (aws.Endpoint, error) {
					return aws.Endpoint{URL: appCfg.EndpointURL, SigningRegion: region}, nil
				}),
			),
		)
	}

	cfg, err := config.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrAWSClient, "failed to load AWS configuration",
			map[string]interface{}{
				"region": appCfg.AWSRegion,
			}, err)
	}

	return NewEC2ClientWithConfig(cfg, appCfg.SSHPort, logger), nil
}

// ResolveInstanceID resolves a Name tag to the unique instance ID. Zero
// matches and multiple matches are distinct hard failures; neither is
// retried and neither is ever auto-disambiguated.
func (c *AwsClient) ResolveInstanceID(ctx context.Context, name string) (string, error) {
	output, err := c.client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		Filters: []types.Filter{
			{Name: aws.String("tag:Name"), Values: []string{name}},
		},
	})
	if err != nil {
		return "", apperrors.New(apperrors.ErrAWSClient, "failed to query instances by name",
			map[string]interface{}{
				"instance_name": name,
			}, err)
	}

	switch {
	case len(output.Reservations) == 0 || len(output.Reservations[0].Instances) == 0:
		c.logger.Error("no EC2 instance found by name", zap.String("instance_name", name))
		return "", apperrors.New(apperrors.ErrInstanceNotFound, "no EC2 instance found by name",
			map[string]interface{}{
				"instance_name": name,
			}, nil)
	case len(output.Reservations) > 1:
		c.logger.Error("multiple EC2 instances found by name",
			zap.String("instance_name", name),
			zap.Int("reservations", len(output.Reservations)),
		)
		return "", apperrors.New(apperrors.ErrInstanceAmbiguous, "multiple EC2 instances found by name",
			map[string]interface{}{
				"instance_name": name,
				"reservations":  len(output.Reservations),
			}, nil)
	}

	id := aws.ToString(output.Reservations[0].Instances[0].InstanceId)
	c.logger.Info("resolved instance name",
		zap.String("instance_name", name),
		zap.String("instance_id", id),
	)
	return id, nil
}

// DescribeInstance fetches the current view of a single instance.
func (c *AwsClient) DescribeInstance(ctx context.Context, instanceID string) (*models.AWSInstance, error) {
	output, err := c.client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		return nil, apperrors.New(apperrors.ErrAWSClient, "failed to describe instance",
			map[string]interface{}{
				"instance_id": instanceID,
			}, err)
	}
	if len(output.Reservations) == 0 || len(output.Reservations[0].Instances) == 0 {
		return nil, apperrors.New(apperrors.ErrInstanceNotFound, "instance not found",
			map[string]interface{}{
				"instance_id": instanceID,
			}, nil)
	}

	return mapInstance(output.Reservations[0].Instances[0]), nil
}

// StartInstance issues the start command. It does not wait.
func (c *AwsClient) StartInstance(ctx context.Context, instanceID string) error {
	_, err := c.client.StartInstances(ctx, &ec2.StartInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		return apperrors.New(apperrors.ErrAWSClient, "failed to start instance",
			map[string]interface{}{
				"instance_id": instanceID,
			}, err)
	}
	return nil
}

// StopInstance issues the stop command. It does not wait.
func (c *AwsClient) StopInstance(ctx context.Context, instanceID string) error {
	_, err := c.client.StopInstances(ctx, &ec2.StopInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		return apperrors.New(apperrors.ErrAWSClient, "failed to stop instance",
			map[string]interface{}{
				"instance_id": instanceID,
			}, err)
	}
	return nil
}

// RebootInstance issues the reboot command and returns immediately.
func (c *AwsClient) RebootInstance(ctx context.Context, instanceID string) error {
	_, err := c.client.RebootInstances(ctx, &ec2.RebootInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		return apperrors.New(apperrors.ErrAWSClient, "failed to reboot instance",
			map[string]interface{}{
				"instance_id": instanceID,
			}, err)
	}
	return nil
}

// WaitUntilRunning blocks on the provider-native waiter until the instance
// reports running.
func (c *AwsClient) WaitUntilRunning(ctx context.Context, instanceID string) error {
	waiter := ec2.NewInstanceRunningWaiter(c.client)
	err := waiter.Wait(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{instanceID},
	}, waiterTimeout)
	if err != nil {
		return apperrors.New(apperrors.ErrAWSClient, "instance did not reach running state",
			map[string]interface{}{
				"instance_id": instanceID,
			}, err)
	}
	return nil
}

// WaitUntilStopped blocks on the provider-native waiter until the instance
// reports stopped.
func (c *AwsClient) WaitUntilStopped(ctx context.Context, instanceID string) error {
	waiter := ec2.NewInstanceStoppedWaiter(c.client)
	err := waiter.Wait(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{instanceID},
	}, waiterTimeout)
	if err != nil {
		return apperrors.New(apperrors.ErrAWSClient, "instance did not reach stopped state",
			map[string]interface{}{
				"instance_id": instanceID,
			}, err)
	}
	return nil
}

// AuthorizeSSHIngress adds an SSH ingress rule for a single address to the
// given security group. An already-existing identical rule is success. An
// empty group ID is a no-op: the absence of a firewall is not this tool's
// problem to fix.
func (c *AwsClient) AuthorizeSSHIngress(ctx context.Context, groupID, ip string) error {
	if groupID == "" {
		c.logger.Info("no security group to update")
		return nil
	}

	_, err := c.client.AuthorizeSecurityGroupIngress(ctx, &ec2.AuthorizeSecurityGroupIngressInput{
		GroupId: aws.String(groupID),
		IpPermissions: []types.IpPermission{
			{
				// SSH ingress open to only the specified IP address.
				IpProtocol: aws.String("tcp"),
				FromPort:   aws.Int32(c.sshPort),
				ToPort:     aws.Int32(c.sshPort),
				IpRanges: []types.IpRange{
					{CidrIp: aws.String(fmt.Sprintf("%s/32", ip))},
				},
			},
		},
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == duplicateRuleCode {
			c.logger.Info("inbound rule already exists, nothing to do",
				zap.String("group_id", groupID),
				zap.String("ip", ip),
			)
			return nil
		}
		code, message := providerError(err)
		c.logger.Error("could not authorize inbound rule",
			zap.String("group_id", groupID),
			zap.String("ip", ip),
			zap.String("error_code", code),
			zap.String("error_message", message),
		)
		return apperrors.New(apperrors.ErrAuthorize, "failed to authorize SSH ingress",
			map[string]interface{}{
				"group_id": groupID,
				"ip":       ip,
			}, err)
	}

	c.logger.Info("authorized SSH ingress",
		zap.String("group_id", groupID),
		zap.String("ip", ip),
	)
	return nil
}

// IsAccessDenied reports whether err is the provider's 403-class permission
// failure. These are never worth retrying.
func IsAccessDenied(err error) bool {
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 403 {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "UnauthorizedOperation", "AccessDenied":
			return true
		}
	}
	return false
}

func providerError(err error) (code, message string) {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode(), apiErr.ErrorMessage()
	}
	return "", err.Error()
}

func mapInstance(i types.Instance) *models.AWSInstance {
	tags := make(map[string]string)
	for _, tag := range i.Tags {
		if tag.Key != nil && tag.Value != nil {
			tags[*tag.Key] = *tag.Value
		}
	}

	launchTime := ""
	if i.LaunchTime != nil {
		launchTime = i.LaunchTime.String()
	}

	state := ""
	if i.State != nil {
		state = string(i.State.Name)
	}

	return &models.AWSInstance{
		InstanceID:     aws.ToString(i.InstanceId),
		Name:           tags["Name"],
		State:          state,
		InstanceType:   string(i.InstanceType),
		PrivateIP:      aws.ToString(i.PrivateIpAddress),
		PublicIP:       aws.ToString(i.PublicIpAddress),
		KeyName:        aws.ToString(i.KeyName),
		LaunchTime:     launchTime,
		SecurityGroups: parseSecurityGroups(i.SecurityGroups),
		Tags:           tags,
	}
}

// Helper function to parse security groups
func parseSecurityGroups(groups []types.GroupIdentifier) []models.SecurityGroup {
	result := make([]models.SecurityGroup, 0)
	for _, group := range groups {
		result = append(result, models.SecurityGroup{
			GroupId: aws.ToString(group.GroupId),
		})
	}
	return result
}
