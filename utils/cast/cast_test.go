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

package cast

import (
	"testing"
	"time"

	"github.com/bizflow/bizflow/test/assert"
)

func TestToFloat64(t *testing.T) {
	assert.Equal(t, 1.5, ToFloat64(1.5))
	assert.Equal(t, 3.0, ToFloat64(3))
	assert.Equal(t, 3.0, ToFloat64("3"))
	assert.Equal(t, 1.0, ToFloat64(true))
	assert.Equal(t, 0.0, ToFloat64("not a number"))

	_, err := ToFloat64E("not a number")
	assert.NotNil(t, err)
	_, err = ToFloat64E([]string{"x"})
	assert.NotNil(t, err)
}

func TestToInt64(t *testing.T) {
	assert.Equal(t, int64(7), ToInt64(7))
	assert.Equal(t, int64(7), ToInt64("7"))
	assert.Equal(t, int64(7), ToInt64(7.9), "float truncates")
	assert.Equal(t, int64(0), ToInt64(nil))
}

func TestToBool(t *testing.T) {
	assert.True(t, ToBool(true))
	assert.True(t, ToBool("true"))
	assert.True(t, ToBool(1))
	assert.False(t, ToBool("nope"))
	assert.False(t, ToBool(nil))
}

func TestToTime(t *testing.T) {
	want := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	assert.Equal(t, want, ToTime(want))
	assert.Equal(t, want, ToTime(&want))
	assert.Equal(t, want, ToTime("2025-06-01T09:30:00Z"))
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), ToTime("2025-06-01"))
	assert.True(t, ToTime("garbage").IsZero())
	assert.True(t, ToTime(nil).IsZero())
}
