package domain

import "fmt"

// Action is a request exchanged between the web frontend and the job runner.
type Action int

const (
	ActionDownload  Action = 1
	ActionPurgeLogs Action = 2
	ActionInsert    Action = 3
	ActionUpdate    Action = 4
	ActionResume    Action = 5
	ActionSetName   Action = 6
	ActionSetStatus Action = 7
	ActionSetLog    Action = 8
	ActionCleanLogs Action = 9
	ActionSetPID    Action = 10
	ActionDeleteLog Action = 11
)

func (a Action) String() string {
	switch a {
	case ActionDownload:
		return "download"
	case ActionPurgeLogs:
		return "purge_logs"
	case ActionInsert:
		return "insert"
	case ActionUpdate:
		return "update"
	case ActionResume:
		return "resume"
	case ActionSetName:
		return "set_name"
	case ActionSetStatus:
		return "set_status"
	case ActionSetLog:
		return "set_log"
	case ActionCleanLogs:
		return "clean_logs"
	case ActionSetPID:
		return "set_pid"
	case ActionDeleteLog:
		return "delete_log"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}
