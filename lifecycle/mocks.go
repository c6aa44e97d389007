package lifecycle

import (
	"context"

	"github.com/stretchr/testify/mock"

	"devboxctl/awsd/models"
)

// MockEC2Client is a mock implementation of EC2Client
type MockEC2Client struct {
	mock.Mock
}

func (m *MockEC2Client) ResolveInstanceID(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Error(1)
}

func (m *MockEC2Client) DescribeInstance(ctx context.Context, instanceID string) (*models.AWSInstance, error) {
	args := m.Called(ctx, instanceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AWSInstance), args.Error(1)
}

func (m *MockEC2Client) StartInstance(ctx context.Context, instanceID string) error {
	args := m.Called(ctx, instanceID)
	return args.Error(0)
}

func (m *MockEC2Client) StopInstance(ctx context.Context, instanceID string) error {
	args := m.Called(ctx, instanceID)
	return args.Error(0)
}

func (m *MockEC2Client) RebootInstance(ctx context.Context, instanceID string) error {
	args := m.Called(ctx, instanceID)
	return args.Error(0)
}

func (m *MockEC2Client) WaitUntilRunning(ctx context.Context, instanceID string) error {
	args := m.Called(ctx, instanceID)
	return args.Error(0)
}

func (m *MockEC2Client) WaitUntilStopped(ctx context.Context, instanceID string) error {
	args := m.Called(ctx, instanceID)
	return args.Error(0)
}

func (m *MockEC2Client) AuthorizeSSHIngress(ctx context.Context, groupID, ip string) error {
	args := m.Called(ctx, groupID, ip)
	return args.Error(0)
}
