package models

// AWSInstance represents the structure of an EC2 instance
type AWSInstance struct {
	InstanceID     string
	Name           string
	State          string
	InstanceType   string
	PrivateIP      string
	PublicIP       string
	KeyName        string
	LaunchTime     string
	SecurityGroups []SecurityGroup
	Tags           map[string]string
}

// SecurityGroup represents a security group associated with an instance
type SecurityGroup struct {
	GroupId string
}

// PrimarySecurityGroupID returns the ID of the first attached security
// group, or an empty string when the instance has none.
func (i *AWSInstance) PrimarySecurityGroupID() string {
	if len(i.SecurityGroups) == 0 {
		return ""
	}
	return i.SecurityGroups[0].GroupId
}

// IsStopped reports whether the provider sees the instance as stopped.
func (i *AWSInstance) IsStopped() bool {
	return i.State == "stopped"
}
