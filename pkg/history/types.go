package history

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Action is the operation attempted on an app.
type Action string

const (
	ActionTurnOn  Action = "turn_on"
	ActionTurnOff Action = "turn_off"
)

// ParseAction accepts "on", "off", "turn_on" and "turn_off".
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "turn_on", "turn-on":
		return ActionTurnOn, nil
	case "off", "turn_off", "turn-off":
		return ActionTurnOff, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// Short returns "on" or "off".
func (a Action) Short() string {
	if a == ActionTurnOn {
		return "on"
	}
	return "off"
}

// AppState is the observed running state of an app.
type AppState string

const (
	StateRunning AppState = "running"
	StateStopped AppState = "stopped"
)

// StateOf maps a running flag to an AppState.
func StateOf(running bool) AppState {
	if running {
		return StateRunning
	}
	return StateStopped
}

// Trigger tells whether an action came from a cron firing or a manual call.
type Trigger string

const (
	TriggerScheduled Trigger = "scheduled"
	TriggerManual    Trigger = "manual"
)

// ActionRecord is one logged attempt to turn an app on or off. Records are
// immutable once appended.
type ActionRecord struct {
	ID            string    `json:"id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	AppName       string    `json:"app_name"`
	Action        Action    `json:"action"`
	Success       bool      `json:"success"`
	Error         string    `json:"error,omitempty"`
	PreviousState AppState  `json:"previous_state,omitempty"`
	NewState      AppState  `json:"new_state,omitempty"`
	Trigger       Trigger   `json:"trigger,omitempty"`
}

// UnmarshalJSON also reads history files written with camelCase keys
// (appName, previousState, newState). Snake_case keys win when both exist.
func (r *ActionRecord) UnmarshalJSON(data []byte) error {
	type plain ActionRecord
	var aux struct {
		plain
		LegacyAppName       string   `json:"appName"`
		LegacyPreviousState AppState `json:"previousState"`
		LegacyNewState      AppState `json:"newState"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = ActionRecord(aux.plain)
	if r.AppName == "" {
		r.AppName = aux.LegacyAppName
	}
	if r.PreviousState == "" {
		r.PreviousState = aux.LegacyPreviousState
	}
	if r.NewState == "" {
		r.NewState = aux.LegacyNewState
	}
	return nil
}

// AppStats counts successful turn-ons, successful turn-offs and failures of
// either kind for one app.
type AppStats struct {
	TurnOn   int `json:"turn_on"`
	TurnOff  int `json:"turn_off"`
	Failures int `json:"failures"`
}

// Statistics is a snapshot over a trailing window of days.
type Statistics struct {
	Days              int                 `json:"days"`
	TotalActions      int                 `json:"total_actions"`
	SuccessfulActions int                 `json:"successful_actions"`
	FailedActions     int                 `json:"failed_actions"`
	SuccessRate       float64             `json:"success_rate"`
	ActionsByApp      map[string]AppStats `json:"actions_by_app"`
	RecentFailures    []ActionRecord      `json:"recent_failures"`
}
