package models

// Action 受付费策略约束的写操作
type Action string

const (
	ActionSignup  Action = "signup"
	ActionPost    Action = "post"
	ActionComment Action = "comment"
	ActionVote    Action = "vote"
)
