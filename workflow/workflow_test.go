package workflow_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Darlinghurst56/taskmaster/domain"
	"github.com/Darlinghurst56/taskmaster/policy"
	"github.com/Darlinghurst56/taskmaster/registry"
	"github.com/Darlinghurst56/taskmaster/tests/helpers"
	"github.com/Darlinghurst56/taskmaster/workflow"
)

func newWorkflow(t *testing.T) (*workflow.Workflow, *registry.Registry) {
	t.Helper()
	s := helpers.NewTestSQLiteStore(t)
	reg := registry.New(s, "")
	return workflow.New(s, reg, nil, nil), reg
}

func TestCreateSuggestionValidation(t *testing.T) {
	ctx := context.Background()
	wf, _ := newWorkflow(t)

	_, err := wf.CreateSuggestion(ctx, workflow.CreateRequest{TargetAgent: "backend-agent"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = wf.CreateSuggestion(ctx, workflow.CreateRequest{TaskID: "T1"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreateSuggestionDefaults(t *testing.T) {
	ctx := context.Background()
	wf, _ := newWorkflow(t)

	sug, err := wf.CreateSuggestion(ctx, workflow.CreateRequest{TaskID: "T1", TargetAgent: "backend-agent"})
	require.NoError(t, err)
	assert.Equal(t, domain.SuggestionStatusPending, sug.Status)
	assert.Equal(t, workflow.DefaultSuggestedBy, sug.SuggestedBy)
	assert.NotEmpty(t, sug.ID)
	assert.False(t, sug.Timestamp.IsZero())
}

func TestApproveProvisionsAgent(t *testing.T) {
	ctx := context.Background()
	wf, reg := newWorkflow(t)

	sug, err := wf.CreateSuggestion(ctx, workflow.CreateRequest{TaskID: "T1", TargetAgent: "qa-agent"})
	require.NoError(t, err)

	approved, err := wf.Approve(ctx, sug.ID, "looks good", "")
	require.NoError(t, err)
	assert.Equal(t, domain.SuggestionStatusApproved, approved.Status)
	assert.Equal(t, "user", approved.ApprovedBy)
	assert.NotNil(t, approved.ApprovedAt)

	// The target agent was lazily registered with role-derived capabilities.
	agent, err := reg.Get(ctx, "qa-agent")
	require.NoError(t, err)
	assert.Equal(t, "qa", agent.Role)
	assert.NotEmpty(t, agent.Capabilities)
	assert.Equal(t, domain.AgentStatusAvailable, agent.Status)
	assert.Contains(t, agent.AssignedTasks, "T1")
}

func TestApproveUnknownSuggestion(t *testing.T) {
	wf, _ := newWorkflow(t)
	_, err := wf.Approve(context.Background(), "sug_missing", "", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRejectRequiresReason(t *testing.T) {
	ctx := context.Background()
	wf, _ := newWorkflow(t)

	sug, err := wf.CreateSuggestion(ctx, workflow.CreateRequest{TaskID: "T1", TargetAgent: "backend-agent"})
	require.NoError(t, err)

	_, err = wf.Reject(ctx, sug.ID, "", "user")
	assert.ErrorIs(t, err, domain.ErrValidation)

	rejected, err := wf.Reject(ctx, sug.ID, "wrong agent", "user")
	require.NoError(t, err)
	assert.Equal(t, domain.SuggestionStatusRejected, rejected.Status)
	assert.Equal(t, "wrong agent", rejected.Reason)
	assert.NotNil(t, rejected.RejectedAt)
}

func TestTerminalSuggestionConflict(t *testing.T) {
	ctx := context.Background()
	wf, _ := newWorkflow(t)

	sug, err := wf.CreateSuggestion(ctx, workflow.CreateRequest{TaskID: "T1", TargetAgent: "backend-agent"})
	require.NoError(t, err)

	_, err = wf.Approve(ctx, sug.ID, "", "user")
	require.NoError(t, err)

	_, err = wf.Approve(ctx, sug.ID, "", "user")
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = wf.Reject(ctx, sug.ID, "changed my mind", "user")
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestBulkApprovePartialFailure(t *testing.T) {
	ctx := context.Background()
	wf, _ := newWorkflow(t)

	var ids []string
	for _, task := range []string{"T1", "T2"} {
		sug, err := wf.CreateSuggestion(ctx, workflow.CreateRequest{TaskID: task, TargetAgent: "backend-agent"})
		require.NoError(t, err)
		ids = append(ids, sug.ID)
	}
	ids = append(ids, "sug_missing")

	results := wf.BulkApprove(ctx, ids, "", "user")
	require.Len(t, results, 3)

	failures := 0
	for _, r := range results {
		if !r.Success {
			failures++
			assert.Equal(t, "sug_missing", r.ID)
		}
	}
	assert.Equal(t, 1, failures)

	// The valid items were processed despite the bad id.
	for _, id := range ids[:2] {
		sug, err := wf.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.SuggestionStatusApproved, sug.Status)
	}
}

func TestBulkRejectPartialFailure(t *testing.T) {
	ctx := context.Background()
	wf, _ := newWorkflow(t)

	sug, err := wf.CreateSuggestion(ctx, workflow.CreateRequest{TaskID: "T1", TargetAgent: "backend-agent"})
	require.NoError(t, err)

	results := wf.BulkReject(ctx, []string{sug.ID, "sug_missing"}, "not needed", "user")
	require.Len(t, results, 2)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.NotEmpty(t, results[1].Error)
}

func TestStatsEmpty(t *testing.T) {
	wf, _ := newWorkflow(t)

	stats, err := wf.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)
	assert.Equal(t, float64(0), stats.ApprovalRate)
	assert.Equal(t, float64(0), stats.AvgApprovalTimeSeconds)
}

func TestStatsScenario(t *testing.T) {
	ctx := context.Background()
	wf, _ := newWorkflow(t)

	sug, err := wf.CreateSuggestion(ctx, workflow.CreateRequest{TaskID: "T1", TargetAgent: "backend-agent"})
	require.NoError(t, err)
	_, err = wf.Approve(ctx, sug.ID, "", "user")
	require.NoError(t, err)

	stats, err := wf.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Approved)
	assert.Equal(t, 0, stats.Pending)
	assert.Equal(t, float64(100), stats.ApprovalRate)
}

func TestApprovalRate(t *testing.T) {
	ctx := context.Background()
	wf, _ := newWorkflow(t)

	for i, task := range []string{"T1", "T2", "T3", "T4"} {
		sug, err := wf.CreateSuggestion(ctx, workflow.CreateRequest{TaskID: task, TargetAgent: "backend-agent"})
		require.NoError(t, err)
		if i < 3 {
			_, err = wf.Approve(ctx, sug.ID, "", "user")
		} else {
			_, err = wf.Reject(ctx, sug.ID, "duplicate work", "user")
		}
		require.NoError(t, err)
	}

	stats, err := wf.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Approved)
	assert.Equal(t, 1, stats.Rejected)
	assert.Equal(t, float64(75), stats.ApprovalRate)
	assert.GreaterOrEqual(t, stats.AvgApprovalTimeSeconds, float64(0))
}

func TestListAndPending(t *testing.T) {
	ctx := context.Background()
	wf, _ := newWorkflow(t)

	first, err := wf.CreateSuggestion(ctx, workflow.CreateRequest{TaskID: "T1", TargetAgent: "backend-agent"})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = wf.CreateSuggestion(ctx, workflow.CreateRequest{TaskID: "T2", TargetAgent: "frontend-agent"})
	require.NoError(t, err)

	_, err = wf.Approve(ctx, first.ID, "", "user")
	require.NoError(t, err)

	pending, err := wf.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "T2", pending[0].TaskID)

	all, err := wf.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	limited, err := wf.List(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "T1", limited[0].TaskID)
}

func TestPolicyAutoApprove(t *testing.T) {
	ctx := context.Background()
	s := helpers.NewTestSQLiteStore(t)
	reg := registry.New(s, "")
	engine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	require.NoError(t, err)
	wf := workflow.New(s, reg, engine, nil)

	sug, err := wf.CreateSuggestion(ctx, workflow.CreateRequest{TaskID: "chore.log-rotation", TargetAgent: "devops-agent"})
	require.NoError(t, err)
	assert.Equal(t, domain.SuggestionStatusApproved, sug.Status)
	assert.Equal(t, "policy", sug.ApprovedBy)

	// Auto-approval still provisions the target agent.
	agent, err := reg.Get(ctx, "devops-agent")
	require.NoError(t, err)
	assert.Equal(t, "devops", agent.Role)
}

func TestPolicyBlock(t *testing.T) {
	ctx := context.Background()
	s := helpers.NewTestSQLiteStore(t)
	reg := registry.New(s, "")
	engine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	require.NoError(t, err)
	wf := workflow.New(s, reg, engine, nil)

	sug, err := wf.CreateSuggestion(ctx, workflow.CreateRequest{TaskID: "T1", TargetAgent: "orchestrator"})
	require.NoError(t, err)
	assert.Equal(t, domain.SuggestionStatusRejected, sug.Status)
	assert.Equal(t, "policy", sug.RejectedBy)
	assert.NotEmpty(t, sug.Reason)
}

func TestPolicyDefaultRequiresApproval(t *testing.T) {
	ctx := context.Background()
	s := helpers.NewTestSQLiteStore(t)
	reg := registry.New(s, "")
	engine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	require.NoError(t, err)
	wf := workflow.New(s, reg, engine, nil)

	sug, err := wf.CreateSuggestion(ctx, workflow.CreateRequest{TaskID: "T1", TargetAgent: "backend-agent"})
	require.NoError(t, err)
	assert.Equal(t, domain.SuggestionStatusPending, sug.Status)
}
