package core

import (
	"context"
	"fmt"

	temporalclient "go.temporal.io/sdk/client"
)

const taskQueue = "panel-tasks"

// skipWorkflowKey is a context key that suppresses workflow execution.
// Used by tests and by bulk maintenance paths that manage workflows
// themselves.
type skipWorkflowKey struct{}

// WithSkipWorkflow returns a context that causes workflow starts to be a no-op.
func WithSkipWorkflow(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipWorkflowKey{}, true)
}

// workflowID builds a human-readable Temporal workflow ID from a resource
// type prefix and the resource's unique ID.
func workflowID(prefix, id string) string {
	return fmt.Sprintf("%s-%s", prefix, id)
}

// startWorkflow executes a Temporal workflow without waiting for its result.
func startWorkflow(ctx context.Context, tc temporalclient.Client, workflowName, wfID string, arg any) error {
	if v, _ := ctx.Value(skipWorkflowKey{}).(bool); v {
		return nil
	}
	_, err := tc.ExecuteWorkflow(ctx, temporalclient.StartWorkflowOptions{
		ID:        wfID,
		TaskQueue: taskQueue,
	}, workflowName, arg)
	return err
}

// runWorkflow executes a Temporal workflow and blocks until it completes,
// returning the workflow's own error. Used where the caller needs the
// attempt's outcome, not just its start.
func runWorkflow(ctx context.Context, tc temporalclient.Client, workflowName, wfID string, arg any) error {
	if v, _ := ctx.Value(skipWorkflowKey{}).(bool); v {
		return nil
	}
	run, err := tc.ExecuteWorkflow(ctx, temporalclient.StartWorkflowOptions{
		ID:        wfID,
		TaskQueue: taskQueue,
	}, workflowName, arg)
	if err != nil {
		return err
	}
	return run.Get(ctx, nil)
}
