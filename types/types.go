package types

import "strings"

const (
	FlagHome      = "home"
	FlagOverwrite = "overwrite"
)

type ActionType string

const (
	ActionTree    ActionType = "TREE"
	ActionRecycle ActionType = "RECYCLE"
	ActionCleanup ActionType = "CLEANUP"
)

var ActionTypes = []ActionType{ActionTree, ActionRecycle, ActionCleanup}

func ParseActionType(s string) (ActionType, error) {
	a := ActionType(strings.TrimSpace(s))
	if a == "" {
		return "", Validationf("missing action_type")
	}
	if !a.Valid() {
		return "", Validationf("unsupported action_type %q", s)
	}
	return a, nil
}

func (a ActionType) Valid() bool {
	for _, v := range ActionTypes {
		if a == v {
			return true
		}
	}
	return false
}

func (a ActionType) String() string {
	return string(a)
}

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
)

func (s Status) Valid() bool {
	return s == StatusPending || s == StatusApproved
}

type TaskState string

const (
	TaskPending      TaskState = "pending"
	TaskApproved     TaskState = "approved"
	TaskFailed       TaskState = "failed"
	TaskUnreconciled TaskState = "unreconciled"
)

func (s TaskState) Done() bool {
	return s != TaskPending
}
