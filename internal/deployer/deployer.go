package deployer

import (
	"context"

	"wasdeploy/internal/api"
)

const subsystem = "Deployer"

// Deployer installs and removes archives on one server and waits until
// the server reports the outcome.
type Deployer interface {
	Deploy(ctx context.Context, req api.DeploymentRequest) error
	Undeploy(ctx context.Context, req api.DeploymentRequest) error
}
