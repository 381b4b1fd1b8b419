// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"time"
)

// LogType classifies a StreamLog event.
type LogType string

const (
	LogPlan             LogType = "plan"
	LogMissionStart     LogType = "missionStart"
	LogSearchQuery      LogType = "searchQuery"
	LogSearchResults    LogType = "searchResults"
	LogAnalysisProgress LogType = "analysisProgress"
	LogFinalReport      LogType = "finalReport"
)

// StreamLog is one timestamped event in a run. Data carries an optional
// typed payload encoded as JSON so replays decode the same bytes the live
// consumer saw.
type StreamLog struct {
	Type      LogType         `json:"type" yaml:"type"`
	Message   string          `json:"message" yaml:"message"`
	Data      json.RawMessage `json:"data,omitempty" yaml:"-"`
	Timestamp time.Time       `json:"timestamp" yaml:"timestamp"`
}

// NewLog builds a StreamLog stamped with the current time. A payload that
// cannot be encoded is dropped; the message still carries the event.
func NewLog(t LogType, message string, data any) StreamLog {
	l := StreamLog{Type: t, Message: message, Timestamp: time.Now().UTC()}
	if data != nil {
		if raw, err := json.Marshal(data); err == nil {
			l.Data = raw
		}
	}
	return l
}

// DecodeData unmarshals the payload into v. It returns false when there is
// no payload or it does not decode.
func (l StreamLog) DecodeData(v any) bool {
	if len(l.Data) == 0 {
		return false
	}
	return json.Unmarshal(l.Data, v) == nil
}

// PlanLogData is the payload of the plan log emitted after planning.
// Fallback is set when the planner substituted its predefined chain.
type PlanLogData struct {
	Ticker   string       `json:"ticker"`
	Topics   int          `json:"topics"`
	Steps    int          `json:"steps"`
	Chains   []TopicChain `json:"chains"`
	Fallback bool         `json:"fallback,omitempty"`
}

// SearchLogData is the payload of searchQuery and searchResults logs.
type SearchLogData struct {
	NodeID string `json:"nodeId"`
	Query  string `json:"query"`
	Count  int    `json:"count"`
	Error  string `json:"error,omitempty"`
}

// ProgressLogData is the payload of the analysisProgress log emitted after
// each node completes. Node is the executed node, so a replay can rebuild
// the chain without re-running work.
type ProgressLogData struct {
	Topic string       `json:"topic"`
	Node  ResearchNode `json:"node"`
	Done  int          `json:"done"`
	Total int          `json:"total"`
}

// Status is the orchestrator state machine position.
type Status string

const (
	StatusInitializing Status = "initializing"
	StatusPlanning     Status = "planning"
	StatusResearching  Status = "researching"
	StatusCompleted    Status = "completed"
	StatusError        Status = "error"
)

// Terminal reports whether no further transition can follow s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// State is a full snapshot of a run. Each line of the stream protocol is
// one State, so a consumer can start from any line.
type State struct {
	Status          Status         `json:"status"`
	Plan            []TopicChain   `json:"plan,omitempty"`
	CompletedChains []TopicChain   `json:"completedChains"`
	Logs            []StreamLog    `json:"logs"`
	Report          *Report        `json:"report,omitempty"`
	Error           string         `json:"error,omitempty"`
	TotalTokens     *TokenUsage    `json:"totalTokens,omitempty"`
	ReportID        string         `json:"reportId,omitempty"`
	Investigation   *Investigation `json:"investigation,omitempty"`
}
