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

// Package rest exposes the engine over HTTP: event ingestion, rule CRUD,
// reminder scheduling, execution history and analytics.
package rest

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/bizflow/bizflow/api/types"
	"github.com/bizflow/bizflow/engine"
	"github.com/bizflow/bizflow/utils/json"
)

const (
	basePath        = "/api/v1"
	contentTypeKey  = "Content-Type"
	contentTypeJson = "application/json"
)

// Endpoint serves the engine's HTTP API.
type Endpoint struct {
	engine *engine.Engine
	logger types.Logger
	router *httprouter.Router
}

// New creates the HTTP endpoint over an engine.
func New(e *engine.Engine) *Endpoint {
	endpoint := &Endpoint{
		engine: e,
		logger: e.Config().Logger,
		router: httprouter.New(),
	}
	endpoint.routes()
	return endpoint
}

// Router returns the underlying http handler for mounting.
func (e *Endpoint) Router() http.Handler {
	return e.router
}

func (e *Endpoint) routes() {
	e.router.POST(basePath+"/events", e.postEvent)
	e.router.POST(basePath+"/rules", e.postRule)
	e.router.GET(basePath+"/rules", e.getRules)
	e.router.GET(basePath+"/rules/:id", e.getRule)
	e.router.PUT(basePath+"/rules/:id", e.putRule)
	e.router.DELETE(basePath+"/rules/:id", e.deleteRule)
	e.router.GET(basePath+"/executions", e.getExecutions)
	e.router.GET(basePath+"/analytics", e.getAnalytics)
	e.router.POST(basePath+"/reminders", e.postReminder)
	e.router.DELETE(basePath+"/reminders/:kind/:entityId", e.deleteReminders)
}

type eventRequest struct {
	Type     types.TriggerType   `json:"type"`
	EntityId string              `json:"entityId"`
	Context  types.Configuration `json:"context"`
}

func (e *Endpoint) postEvent(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var request eventRequest
	if !e.decode(w, r, &request) {
		return
	}
	executions, err := e.engine.TriggerEvent(r.Context(), request.Type, request.EntityId, request.Context)
	if err != nil {
		e.writeError(w, err)
		return
	}
	if executions == nil {
		executions = []types.WorkflowExecution{}
	}
	e.writeJson(w, http.StatusOK, executions)
}

func (e *Endpoint) postRule(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var rule types.Rule
	if !e.decode(w, r, &rule) {
		return
	}
	created, err := e.engine.CreateRule(rule)
	if err != nil {
		e.writeError(w, err)
		return
	}
	e.writeJson(w, http.StatusCreated, created)
}

func (e *Endpoint) getRules(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	rules, err := e.engine.ListRules()
	if err != nil {
		e.writeError(w, err)
		return
	}
	if rules == nil {
		rules = []types.Rule{}
	}
	e.writeJson(w, http.StatusOK, rules)
}

func (e *Endpoint) getRule(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	rule, err := e.engine.GetRule(params.ByName("id"))
	if err != nil {
		e.writeError(w, err)
		return
	}
	e.writeJson(w, http.StatusOK, rule)
}

func (e *Endpoint) putRule(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	var rule types.Rule
	if !e.decode(w, r, &rule) {
		return
	}
	rule.Id = params.ByName("id")
	updated, err := e.engine.UpdateRule(rule)
	if err != nil {
		e.writeError(w, err)
		return
	}
	e.writeJson(w, http.StatusOK, updated)
}

func (e *Endpoint) deleteRule(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	if err := e.engine.DeleteRule(params.ByName("id")); err != nil {
		e.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (e *Endpoint) getExecutions(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	window, err := parseWindow(r, e.now())
	if err != nil {
		e.writeStatus(w, http.StatusBadRequest, err.Error())
		return
	}
	executions, err := e.engine.Executions(window)
	if err != nil {
		e.writeError(w, err)
		return
	}
	if executions == nil {
		executions = []types.WorkflowExecution{}
	}
	e.writeJson(w, http.StatusOK, executions)
}

func (e *Endpoint) getAnalytics(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	window, err := parseWindow(r, e.now())
	if err != nil {
		e.writeStatus(w, http.StatusBadRequest, err.Error())
		return
	}
	analytics, err := e.engine.Analytics(window)
	if err != nil {
		e.writeError(w, err)
		return
	}
	e.writeJson(w, http.StatusOK, analytics)
}

type reminderRequest struct {
	Kind       types.ReminderKind   `json:"kind"`
	EntityId   string               `json:"entityId"`
	TargetDate time.Time            `json:"targetDate"`
	Config     types.ReminderConfig `json:"config"`
}

func (e *Endpoint) postReminder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var request reminderRequest
	if !e.decode(w, r, &request) {
		return
	}
	schedules, err := e.engine.ScheduleReminder(request.Kind, request.EntityId, request.TargetDate, request.Config)
	if err != nil {
		e.writeError(w, err)
		return
	}
	if schedules == nil {
		schedules = []types.ReminderSchedule{}
	}
	e.writeJson(w, http.StatusCreated, schedules)
}

func (e *Endpoint) deleteReminders(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	cancelled, err := e.engine.CancelPendingReminders(
		types.ReminderKind(params.ByName("kind")), params.ByName("entityId"))
	if err != nil {
		e.writeError(w, err)
		return
	}
	e.writeJson(w, http.StatusOK, map[string]int{"cancelled": cancelled})
}

func (e *Endpoint) now() time.Time {
	return e.engine.Config().Clock.Now()
}

// parseWindow reads the start/end query parameters as RFC3339 times,
// defaulting to the last 30 days.
func parseWindow(r *http.Request, now time.Time) (types.AnalyticsWindow, error) {
	window := types.AnalyticsWindow{
		Start: now.AddDate(0, 0, -30),
		End:   now.Add(time.Second),
	}
	if raw := r.URL.Query().Get("start"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return window, errors.New("invalid start time, want RFC3339")
		}
		window.Start = t
	}
	if raw := r.URL.Query().Get("end"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return window, errors.New("invalid end time, want RFC3339")
		}
		window.End = t
	}
	return window, nil
}

func (e *Endpoint) decode(w http.ResponseWriter, r *http.Request, out interface{}) bool {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		e.writeStatus(w, http.StatusBadRequest, err.Error())
		return false
	}
	if err = json.Unmarshal(body, out); err != nil {
		e.writeStatus(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (e *Endpoint) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, types.ErrRuleNotFound),
		errors.Is(err, types.ErrScheduleNotFound),
		errors.Is(err, types.ErrTemplateNotFound):
		e.writeStatus(w, http.StatusNotFound, err.Error())
	case errors.Is(err, types.ErrInvalidTrigger),
		errors.Is(err, types.ErrInvalidOperator),
		errors.Is(err, types.ErrInvalidJoin),
		errors.Is(err, types.ErrInvalidKind):
		e.writeStatus(w, http.StatusBadRequest, err.Error())
	default:
		e.logger.Printf("rest: %v", err)
		e.writeStatus(w, http.StatusInternalServerError, err.Error())
	}
}

func (e *Endpoint) writeStatus(w http.ResponseWriter, status int, message string) {
	e.writeJson(w, status, map[string]string{"error": message})
}

func (e *Endpoint) writeJson(w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		e.logger.Printf("rest: marshal response: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set(contentTypeKey, contentTypeJson)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
