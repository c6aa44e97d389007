// Package lifecycle orchestrates start, stop, status, and reboot for a
// single named EC2 instance.
package lifecycle

import (
	"context"
	"time"

	"go.uber.org/zap"

	"devboxctl/awsd"
	apperrors "devboxctl/errors"
	"devboxctl/retry"
)

const (
	packageName = "lifecycle"

	// stoppedIP is reported in place of a public IP for a stopped
	// instance, which by definition has none.
	stoppedIP = "0.0.0.0"
)

// Service is the instance lifecycle controller. Each operation resolves the
// instance name first and aborts with no side effects when that fails.
type Service struct {
	client  EC2Client
	logger  *zap.Logger
	backoff []time.Duration
}

// NewService builds a Service with the default public-IP polling backoff.
func NewService(client EC2Client, logger *zap.Logger) *Service {
	return NewServiceWithBackoff(client, logger, retry.DefaultDelays)
}

// NewServiceWithBackoff builds a Service with an explicit backoff schedule
// for the public-IP poll.
func NewServiceWithBackoff(client EC2Client, logger *zap.Logger, backoff []time.Duration) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		client:  client,
		logger:  logger.With(zap.String("package", packageName)),
		backoff: backoff,
	}
}

// Start starts the named instance, waits until it is running, grants the
// caller's IP SSH ingress on the instance's security group, and polls for
// the public IP, which may lag the running transition. Returns the instance
// ID and public IP.
func (s *Service) Start(ctx context.Context, name, callerIP string) (string, string, error) {
	logger := s.logger.With(
		zap.String("operation", "start"),
		zap.String("instance_name", name),
	)

	logger.Info("resolving instance by name", zap.Int("step", 1))
	id, err := s.client.ResolveInstanceID(ctx, name)
	if err != nil {
		return "", "", err
	}
	logger = logger.With(zap.String("instance_id", id))

	logger.Info("starting instance", zap.Int("step", 2))
	if err := s.client.StartInstance(ctx, id); err != nil {
		return "", "", err
	}

	logger.Info("waiting for instance to reach running", zap.Int("step", 3))
	if err := s.client.WaitUntilRunning(ctx, id); err != nil {
		return "", "", err
	}

	instance, err := s.client.DescribeInstance(ctx, id)
	if err != nil {
		return "", "", err
	}

	groupID := instance.PrimarySecurityGroupID()
	logger.Info("authorizing SSH ingress", zap.Int("step", 4),
		zap.String("group_id", groupID),
		zap.String("caller_ip", callerIP),
	)
	if err := s.client.AuthorizeSSHIngress(ctx, groupID, callerIP); err != nil {
		return "", "", err
	}

	logger.Info("fetching public IP", zap.Int("step", 5))
	ip, err := s.fetchPublicIP(ctx, id, logger)
	if err != nil {
		return "", "", err
	}

	return id, ip, nil
}

// Stop stops the named instance and waits until the provider reports it
// stopped. Returns the instance ID. A stopped instance has no public IP,
// so no polling happens here.
func (s *Service) Stop(ctx context.Context, name string) (string, error) {
	logger := s.logger.With(
		zap.String("operation", "stop"),
		zap.String("instance_name", name),
	)

	logger.Info("resolving instance by name", zap.Int("step", 1))
	id, err := s.client.ResolveInstanceID(ctx, name)
	if err != nil {
		return "", err
	}
	logger = logger.With(zap.String("instance_id", id))

	logger.Info("stopping instance", zap.Int("step", 2))
	if err := s.client.StopInstance(ctx, id); err != nil {
		return "", err
	}

	logger.Info("waiting for instance to reach stopped", zap.Int("step", 3))
	if err := s.client.WaitUntilStopped(ctx, id); err != nil {
		return "", err
	}

	return id, nil
}

// Status reports the named instance's state and public IP. A stopped
// instance short-circuits to the 0.0.0.0 sentinel without touching the
// IP-retrieval path; transitional states poll for the address.
func (s *Service) Status(ctx context.Context, name string) (string, string, error) {
	logger := s.logger.With(
		zap.String("operation", "status"),
		zap.String("instance_name", name),
	)

	logger.Info("resolving instance by name", zap.Int("step", 1))
	id, err := s.client.ResolveInstanceID(ctx, name)
	if err != nil {
		return "", "", err
	}
	logger = logger.With(zap.String("instance_id", id))

	logger.Info("reading instance state", zap.Int("step", 2))
	instance, err := s.client.DescribeInstance(ctx, id)
	if err != nil {
		return "", "", err
	}
	if instance.IsStopped() {
		return instance.State, stoppedIP, nil
	}

	logger.Info("fetching public IP", zap.Int("step", 3), zap.String("state", instance.State))
	ip, err := s.fetchPublicIP(ctx, id, logger)
	if err != nil {
		return "", "", err
	}

	return instance.State, ip, nil
}

// Reboot issues the reboot command and returns the instance ID immediately,
// with no wait for completion.
func (s *Service) Reboot(ctx context.Context, name string) (string, error) {
	logger := s.logger.With(
		zap.String("operation", "reboot"),
		zap.String("instance_name", name),
	)

	logger.Info("resolving instance by name", zap.Int("step", 1))
	id, err := s.client.ResolveInstanceID(ctx, name)
	if err != nil {
		return "", err
	}

	logger.Info("rebooting instance", zap.Int("step", 2), zap.String("instance_id", id))
	if err := s.client.RebootInstance(ctx, id); err != nil {
		return "", err
	}

	return id, nil
}

// fetchPublicIP polls the instance description until a public IP appears.
// A freshly running instance may not have one yet; that counts as a
// retryable failure. Permission failures abort immediately.
func (s *Service) fetchPublicIP(ctx context.Context, instanceID string, logger *zap.Logger) (string, error) {
	return retry.Do(func() (string, error) {
		instance, err := s.client.DescribeInstance(ctx, instanceID)
		if err != nil {
			return "", err
		}
		if instance.PublicIP == "" {
			return "", apperrors.New(apperrors.ErrPublicIP, "no public IP address found",
				map[string]interface{}{
					"instance_id": instanceID,
				}, nil)
		}
		return instance.PublicIP, nil
	}, retry.Policy{
		Delays:    s.backoff,
		Retryable: func(err error) bool { return !awsd.IsAccessDenied(err) },
		Report:    logger.Info,
	})
}
