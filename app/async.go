package app

import (
	"context"
	"sync"
	"time"

	"github.com/calehh/impact-app/state"
	"github.com/calehh/impact-app/types"
	"github.com/google/uuid"
)

// Task tracks one approval running in the background.
type Task struct {
	mtx  sync.Mutex
	view TaskView
}

type TaskView struct {
	Id              string          `json:"id"`
	SubmissionId    string          `json:"submissionId"`
	Points          int64           `json:"points"`
	State           types.TaskState `json:"status"`
	TxHash          string          `json:"txHash,omitempty"`
	AttestationHash string          `json:"proofHash,omitempty"`
	Error           string          `json:"error,omitempty"`
	ErrorCode       string          `json:"errorCode,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

func newTask(submissionID string, points int64) *Task {
	now := time.Now().UTC()
	return &Task{view: TaskView{
		Id:           uuid.NewString(),
		SubmissionId: submissionID,
		Points:       points,
		State:        types.TaskPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}}
}

func (t *Task) View() TaskView {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return t.view
}

func (t *Task) finish(res *Approval, err error) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	if res != nil {
		t.view.TxHash = res.TxHash
		t.view.AttestationHash = res.AttestationHash
	}
	switch {
	case err == nil:
		t.view.State = types.TaskApproved
	case types.CodeOf(err) == types.CodeUnreconciled:
		t.view.State = types.TaskUnreconciled
	default:
		t.view.State = types.TaskFailed
	}
	if err != nil {
		t.view.Error = err.Error()
		t.view.ErrorCode = types.CodeOf(err).String()
	}
	t.view.UpdatedAt = time.Now().UTC()
}

// ApproveAsync validates the request and claims the submission, then runs
// the ledger write in the background. The returned task is pending; poll
// Task for the outcome.
func (app *App) ApproveAsync(ctx context.Context, id string, points int64) (TaskView, error) {
	sub, err := app.begin(ctx, id, points)
	if err != nil {
		return TaskView{}, err
	}
	task := newTask(sub.Id, points)
	app.mtx.Lock()
	app.running[task.view.Id] = task
	app.mtx.Unlock()
	app.logger.Info("approval task started", "task", task.view.Id, "id", sub.Id)

	go app.runTask(task, sub, points)
	return task.View(), nil
}

func (app *App) runTask(task *Task, sub *state.Submission, points int64) {
	defer app.release(sub.Id)
	res, err := app.approve(context.Background(), sub, points)
	task.finish(res, err)
	v := task.View()
	app.mtx.Lock()
	delete(app.running, v.Id)
	app.tasks.Add(v.Id, task)
	app.mtx.Unlock()
	app.logger.Info("approval task finished", "task", v.Id, "id", sub.Id, "status", v.State)
}

func (app *App) Task(id string) (TaskView, error) {
	app.mtx.Lock()
	task, ok := app.running[id]
	app.mtx.Unlock()
	if ok {
		return task.View(), nil
	}
	task, ok = app.tasks.Get(id)
	if !ok {
		return TaskView{}, types.NotFoundf("task %s", id)
	}
	return task.View(), nil
}
