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

package action

import (
	"github.com/bizflow/bizflow/api/types"
	"github.com/bizflow/bizflow/utils/el"
	"github.com/bizflow/bizflow/utils/maps"
	"github.com/bizflow/bizflow/utils/str"
)

// templateData builds the substitution environment for ${} placeholders:
// the trigger context plus entityId, triggerType and global properties.
func templateData(config types.Config, ectx *types.ExecutionContext) map[string]interface{} {
	data := make(map[string]interface{}, len(ectx.Context)+3)
	for k, v := range ectx.Context {
		data[k] = v
	}
	data["entityId"] = ectx.EntityId
	data["triggerType"] = string(ectx.TriggerType)
	if len(config.Properties) > 0 {
		global := make(map[string]interface{}, len(config.Properties))
		for k, v := range config.Properties {
			global[k] = v
		}
		data["global"] = global
	}
	return data
}

// renderString resolves ${} placeholders in value against data. Render
// failures fall back to the raw value; a broken placeholder must not
// abort the whole action.
func renderString(value string, data map[string]interface{}) string {
	if !str.CheckHasVar(value) {
		return value
	}
	result, err := el.ExecuteToString(value, data)
	if err != nil {
		return value
	}
	return result
}

// contextString resolves the first dotted path with a non-empty value.
func contextString(ectx *types.ExecutionContext, paths ...string) string {
	for _, path := range paths {
		if v := maps.Get(ectx.Context, path); v != nil {
			if s := str.ToString(v); s != "" {
				return s
			}
		}
	}
	return ""
}
