package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"devboxctl/awsd/models"
	apperrors "devboxctl/errors"
)

// noBackoff keeps the polling schedule shape but removes the waiting.
var noBackoff = make([]time.Duration, 6)

func newTestService(client *MockEC2Client) *Service {
	return NewServiceWithBackoff(client, zap.NewNop(), noBackoff)
}

func devboxInstance(state, publicIP string) *models.AWSInstance {
	return &models.AWSInstance{
		InstanceID: "i-0123",
		Name:       "devbox",
		State:      state,
		PublicIP:   publicIP,
		SecurityGroups: []models.SecurityGroup{
			{GroupId: "sg-1234"},
		},
	}
}

func notFoundErr(name string) error {
	return apperrors.New(apperrors.ErrInstanceNotFound, "no EC2 instance found by name",
		map[string]interface{}{"instance_name": name}, nil)
}

func TestStartPollsUntilPublicIPAppears(t *testing.T) {
	client := new(MockEC2Client)
	client.On("ResolveInstanceID", mock.Anything, "devbox").Return("i-0123", nil)
	client.On("StartInstance", mock.Anything, "i-0123").Return(nil)
	client.On("WaitUntilRunning", mock.Anything, "i-0123").Return(nil)
	// One describe for the security group, then the IP is absent for two
	// polls and appears on the third.
	client.On("DescribeInstance", mock.Anything, "i-0123").Return(devboxInstance("running", ""), nil).Times(3)
	client.On("DescribeInstance", mock.Anything, "i-0123").Return(devboxInstance("running", "203.0.113.5"), nil).Once()
	client.On("AuthorizeSSHIngress", mock.Anything, "sg-1234", "198.51.100.7").Return(nil)

	id, ip, err := newTestService(client).Start(context.Background(), "devbox", "198.51.100.7")

	assert.NoError(t, err)
	assert.Equal(t, "i-0123", id)
	assert.Equal(t, "203.0.113.5", ip)
	client.AssertNumberOfCalls(t, "DescribeInstance", 4)
	client.AssertExpectations(t)
}

func TestStartAbortsWhenResolutionFails(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		errType apperrors.ErrorType
	}{
		{
			name:    "not found",
			err:     notFoundErr("devbox"),
			errType: apperrors.ErrInstanceNotFound,
		},
		{
			name: "ambiguous",
			err: apperrors.New(apperrors.ErrInstanceAmbiguous, "multiple EC2 instances found by name",
				map[string]interface{}{"instance_name": "devbox"}, nil),
			errType: apperrors.ErrInstanceAmbiguous,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := new(MockEC2Client)
			client.On("ResolveInstanceID", mock.Anything, "devbox").Return("", tt.err)

			id, ip, err := newTestService(client).Start(context.Background(), "devbox", "198.51.100.7")

			assert.True(t, apperrors.Is(err, tt.errType))
			assert.Empty(t, id)
			assert.Empty(t, ip)
			client.AssertNotCalled(t, "StartInstance", mock.Anything, mock.Anything)
			client.AssertNotCalled(t, "AuthorizeSSHIngress", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestStartAuthorizesEvenWithoutSecurityGroup(t *testing.T) {
	instance := devboxInstance("running", "203.0.113.5")
	instance.SecurityGroups = nil

	client := new(MockEC2Client)
	client.On("ResolveInstanceID", mock.Anything, "devbox").Return("i-0123", nil)
	client.On("StartInstance", mock.Anything, "i-0123").Return(nil)
	client.On("WaitUntilRunning", mock.Anything, "i-0123").Return(nil)
	client.On("DescribeInstance", mock.Anything, "i-0123").Return(instance, nil)
	client.On("AuthorizeSSHIngress", mock.Anything, "", "198.51.100.7").Return(nil)

	id, ip, err := newTestService(client).Start(context.Background(), "devbox", "198.51.100.7")

	assert.NoError(t, err)
	assert.Equal(t, "i-0123", id)
	assert.Equal(t, "203.0.113.5", ip)
	client.AssertExpectations(t)
}

func TestStopWaitsForStoppedState(t *testing.T) {
	client := new(MockEC2Client)
	client.On("ResolveInstanceID", mock.Anything, "devbox").Return("i-0123", nil)
	client.On("StopInstance", mock.Anything, "i-0123").Return(nil)
	client.On("WaitUntilStopped", mock.Anything, "i-0123").Return(nil)

	id, err := newTestService(client).Stop(context.Background(), "devbox")

	assert.NoError(t, err)
	assert.Equal(t, "i-0123", id)
	// No IP polling on stop.
	client.AssertNotCalled(t, "DescribeInstance", mock.Anything, mock.Anything)
	client.AssertExpectations(t)
}

func TestStopOnUnknownNameIssuesNoStopCall(t *testing.T) {
	client := new(MockEC2Client)
	client.On("ResolveInstanceID", mock.Anything, "ghost").Return("", notFoundErr("ghost"))

	id, err := newTestService(client).Stop(context.Background(), "ghost")

	assert.True(t, apperrors.Is(err, apperrors.ErrInstanceNotFound))
	assert.Empty(t, id)
	client.AssertNotCalled(t, "StopInstance", mock.Anything, mock.Anything)
	client.AssertNotCalled(t, "WaitUntilStopped", mock.Anything, mock.Anything)
}

func TestStatusOnStoppedInstanceSkipsIPLookup(t *testing.T) {
	client := new(MockEC2Client)
	client.On("ResolveInstanceID", mock.Anything, "devbox").Return("i-0123", nil)
	client.On("DescribeInstance", mock.Anything, "i-0123").Return(devboxInstance("stopped", ""), nil)

	state, ip, err := newTestService(client).Status(context.Background(), "devbox")

	assert.NoError(t, err)
	assert.Equal(t, "stopped", state)
	assert.Equal(t, "0.0.0.0", ip)
	// Exactly one describe: the state read, no IP polling after it.
	client.AssertNumberOfCalls(t, "DescribeInstance", 1)
}

func TestStatusPollsTransitionalState(t *testing.T) {
	client := new(MockEC2Client)
	client.On("ResolveInstanceID", mock.Anything, "devbox").Return("i-0123", nil)
	// State read sees pending with no address, one poll misses, the next
	// finds the address.
	client.On("DescribeInstance", mock.Anything, "i-0123").Return(devboxInstance("pending", ""), nil).Times(2)
	client.On("DescribeInstance", mock.Anything, "i-0123").Return(devboxInstance("pending", "203.0.113.5"), nil).Once()

	state, ip, err := newTestService(client).Status(context.Background(), "devbox")

	assert.NoError(t, err)
	assert.Equal(t, "pending", state)
	assert.Equal(t, "203.0.113.5", ip)
	client.AssertNumberOfCalls(t, "DescribeInstance", 3)
}

func TestStatusPermissionFailureIsNotRetried(t *testing.T) {
	denied := apperrors.New(apperrors.ErrAWSClient, "failed to describe instance",
		map[string]interface{}{"instance_id": "i-0123"},
		&smithy.GenericAPIError{Code: "UnauthorizedOperation", Message: "denied"})

	client := new(MockEC2Client)
	client.On("ResolveInstanceID", mock.Anything, "devbox").Return("i-0123", nil)
	client.On("DescribeInstance", mock.Anything, "i-0123").Return(devboxInstance("running", ""), nil).Once()
	client.On("DescribeInstance", mock.Anything, "i-0123").Return(nil, denied).Once()

	_, _, err := newTestService(client).Status(context.Background(), "devbox")

	assert.Error(t, err)
	// One state read plus exactly one poll attempt: no retry budget spent
	// on a permission failure.
	client.AssertNumberOfCalls(t, "DescribeInstance", 2)
}

func TestRebootReturnsImmediately(t *testing.T) {
	client := new(MockEC2Client)
	client.On("ResolveInstanceID", mock.Anything, "devbox").Return("i-0123", nil)
	client.On("RebootInstance", mock.Anything, "i-0123").Return(nil)

	id, err := newTestService(client).Reboot(context.Background(), "devbox")

	assert.NoError(t, err)
	assert.Equal(t, "i-0123", id)
	client.AssertNotCalled(t, "WaitUntilRunning", mock.Anything, mock.Anything)
	client.AssertNotCalled(t, "DescribeInstance", mock.Anything, mock.Anything)
}
