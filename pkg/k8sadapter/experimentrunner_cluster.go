package k8sadapter

import "context"

// ExperimentRunnerCluster narrows Adapter to experimentrunner.Cluster's
// signature, dropping the workflow-node status value the runner never
// inspects directly.
type ExperimentRunnerCluster struct{ *Adapter }

func (c ExperimentRunnerCluster) GetEntryWorkflowNode(ctx context.Context, name string) (bool, error) {
	accomplished, _, err := c.Adapter.GetEntryWorkflowNode(ctx, name)
	return accomplished, err
}
