/*
 * Copyright 2025 The BizFlow Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package types defines the shared types and interfaces of the workflow
// automation engine: rules, conditions, actions, reminder schedules,
// workflow executions and the collaborator contracts (Store, Notifier,
// Clock, Logger) the engine is wired with.
package types

import (
	"errors"
	"time"
)

// Configuration holds free-form key/value configuration for triggers and
// action parameters. Values are decoded into typed structs by the
// consuming component.
type Configuration map[string]interface{}

// TriggerType is a named category of business event a Rule subscribes to.
type TriggerType string

const (
	TriggerTaskCompleted               TriggerType = "task-completed"
	TriggerTaskDue                     TriggerType = "task-due"
	TriggerInvoiceOverdue              TriggerType = "invoice-overdue"
	TriggerPaymentReceived             TriggerType = "payment-received"
	TriggerProjectDeadlineApproaching  TriggerType = "project-deadline-approaching"
	TriggerInvoiceDueApproaching       TriggerType = "invoice-due-approaching"
	TriggerClientFollowupDue           TriggerType = "client-followup-due"
)

// TriggerTypes lists every trigger type the engine accepts.
var TriggerTypes = []TriggerType{
	TriggerTaskCompleted,
	TriggerTaskDue,
	TriggerInvoiceOverdue,
	TriggerPaymentReceived,
	TriggerProjectDeadlineApproaching,
	TriggerInvoiceDueApproaching,
	TriggerClientFollowupDue,
}

// Operator is the closed catalog of condition operators. Operators are
// validated when a rule is created or updated, never at evaluation time.
type Operator string

const (
	OperatorEquals      Operator = "equals"
	OperatorNotEquals   Operator = "not-equals"
	OperatorGreaterThan Operator = "greater-than"
	OperatorLessThan    Operator = "less-than"
	OperatorGte         Operator = "greater-than-or-equal"
	OperatorLte         Operator = "less-than-or-equal"
	OperatorContains    Operator = "contains"
	OperatorNotContains Operator = "not-contains"
	OperatorIsEmpty     Operator = "is-empty"
	OperatorIsNotEmpty  Operator = "is-not-empty"
	OperatorIn          Operator = "in"
	// OperatorExpr evaluates Value as an expr-lang expression against the
	// trigger context. The expression is compiled at authoring time.
	OperatorExpr Operator = "expr"
)

// Join combines a condition with the result of the next one.
type Join string

const (
	JoinAnd Join = "AND"
	JoinOr  Join = "OR"
)

// Condition is a single predicate over the trigger context.
// Field is a dotted path into the context, e.g. "invoice.status".
type Condition struct {
	Field    string      `json:"field"`
	Operator Operator    `json:"operator"`
	Value    interface{} `json:"value,omitempty"`
	// Join combines this condition with the next one. Empty means AND.
	Join Join `json:"join,omitempty"`
}

// Trigger binds a rule to a trigger type with optional configuration.
type Trigger struct {
	Type   TriggerType   `json:"type"`
	Config Configuration `json:"config,omitempty"`
}

// Action is one typed, parameterized operation executed on a rule match.
// Parameters are decoded by the action component registered for Type.
type Action struct {
	Type       string        `json:"type"`
	Parameters Configuration `json:"parameters,omitempty"`
}

// Rule is an operator-defined automation rule. Rules are deactivated
// rather than hard-deleted so execution history stays resolvable.
type Rule struct {
	Id         string      `json:"id"`
	Name       string      `json:"name"`
	Trigger    Trigger     `json:"trigger"`
	Conditions []Condition `json:"conditions,omitempty"`
	Actions    []Action    `json:"actions"`
	Active     bool        `json:"active"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// ReminderKind classifies what a reminder schedule is about.
type ReminderKind string

const (
	ReminderProjectDeadline ReminderKind = "project-deadline"
	ReminderInvoicePayment  ReminderKind = "invoice-payment"
	ReminderTaskDue         ReminderKind = "task-due"
	ReminderClientFollowup  ReminderKind = "client-followup"
)

// ScheduleStatus is the lifecycle state of a reminder schedule row.
type ScheduleStatus string

const (
	SchedulePending   ScheduleStatus = "pending"
	ScheduleSent      ScheduleStatus = "sent"
	ScheduleFailed    ScheduleStatus = "failed"
	ScheduleCancelled ScheduleStatus = "cancelled"
)

// ReminderConfig controls which reminder dates are derived from a target
// date. All offsets are in days. A snapshot of the config is stored on
// every schedule row it produced.
type ReminderConfig struct {
	// DaysBefore schedules a reminder N days before the target date.
	DaysBefore int `json:"daysBefore,omitempty"`
	// DaysAfter schedules a reminder N days after the target date.
	DaysAfter int `json:"daysAfter,omitempty"`
	// EscalationDays schedules one reminder per offset, each N days after
	// the target date. Used for escalation ladders such as 7/14/30 days
	// past an unpaid invoice.
	EscalationDays []int `json:"escalationDays,omitempty"`
	// Channel, Recipient and TemplateId configure the notification sent
	// when the reminder fires. Optional; a reminder always synthesizes its
	// trigger event even without a notification.
	Channel    string `json:"channel,omitempty"`
	Recipient  string `json:"recipient,omitempty"`
	TemplateId string `json:"templateId,omitempty"`
}

// IsZero reports whether the config carries no dates and no notification
// settings. EscalationDays makes the struct non-comparable, so callers
// use this instead of ==.
func (c ReminderConfig) IsZero() bool {
	return c.DaysBefore == 0 && c.DaysAfter == 0 && len(c.EscalationDays) == 0 &&
		c.Channel == "" && c.Recipient == "" && c.TemplateId == ""
}

// ReminderSchedule is one persisted, dated reminder for an entity.
type ReminderSchedule struct {
	Id            string         `json:"id"`
	Kind          ReminderKind   `json:"kind"`
	EntityId      string         `json:"entityId"`
	ScheduledAt   time.Time      `json:"scheduledAt"`
	Config        ReminderConfig `json:"config"`
	Status        ScheduleStatus `json:"status"`
	Attempts      int            `json:"attempts"`
	LastAttemptAt *time.Time     `json:"lastAttemptAt,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// ExecutionStatus is the lifecycle state of a workflow execution.
type ExecutionStatus string

const (
	ExecutionPending   ExecutionStatus = "pending"
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionFailed    ExecutionStatus = "failed"
)

// WorkflowExecution is the audit record of one rule firing.
// ActionsExecuted lists the action types attempted, in order, regardless
// of individual success. Partial success is therefore representable.
type WorkflowExecution struct {
	Id              string          `json:"id"`
	RuleId          string          `json:"ruleId"`
	TriggerContext  Configuration   `json:"triggerContext,omitempty"`
	Status          ExecutionStatus `json:"status"`
	StartedAt       time.Time       `json:"startedAt"`
	CompletedAt     *time.Time      `json:"completedAt,omitempty"`
	Error           string          `json:"error,omitempty"`
	ActionsExecuted []string        `json:"actionsExecuted"`
}

// NotificationTemplate is a reusable message body with ${} placeholders.
// Read-only at fire time.
type NotificationTemplate struct {
	Id        string   `json:"id"`
	Channel   string   `json:"channel"`
	Subject   string   `json:"subject,omitempty"`
	Body      string   `json:"body"`
	Variables []string `json:"variables,omitempty"`
	Active    bool     `json:"active"`
}

// AnalyticsWindow bounds an analytics query. Executions with StartedAt in
// [Start, End) are aggregated.
type AnalyticsWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// RuleFireCount is one entry of the most-fired-rules ranking.
type RuleFireCount struct {
	RuleId string `json:"ruleId"`
	Name   string `json:"name,omitempty"`
	Count  int64  `json:"count"`
}

// Analytics aggregates executions over a window.
type Analytics struct {
	Total       int64           `json:"total"`
	Successful  int64           `json:"successful"`
	Failed      int64           `json:"failed"`
	SuccessRate float64         `json:"successRate"`
	TopRules    []RuleFireCount `json:"topRules"`
	// AvgCompletionMs is the mean latency between StartedAt and
	// CompletedAt over terminal in-window executions, in milliseconds.
	AvgCompletionMs float64 `json:"avgCompletionMs"`
}

var (
	ErrRuleNotFound     = errors.New("rule not found")
	ErrScheduleNotFound = errors.New("schedule not found")
	ErrTemplateNotFound = errors.New("notification template not found")
	ErrInvalidOperator  = errors.New("invalid condition operator")
	ErrInvalidJoin      = errors.New("invalid condition join")
	ErrInvalidTrigger   = errors.New("invalid trigger type")
	ErrInvalidKind      = errors.New("invalid reminder kind")
)

// ValidTriggerType reports whether t is part of the trigger catalog.
func ValidTriggerType(t TriggerType) bool {
	for _, item := range TriggerTypes {
		if item == t {
			return true
		}
	}
	return false
}
