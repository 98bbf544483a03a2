// Copyright The Glean Authors
// SPDX-License-Identifier: Apache-2.0

package ffi

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/wlach/glean/metricdata"
	"github.com/wlach/glean/metrics"
)

// commonMeta builds metric metadata from the primitive arguments every
// new_* entry point receives.
func commonMeta(category, name string, sendInPings []string, lifetime int32,
	disabled bool) metricdata.CommonMetricData {
	return metricdata.CommonMetricData{
		Name:        name,
		Category:    category,
		SendInPings: sendInPings,
		Lifetime:    metricdata.Lifetime(lifetime),
		Disabled:    disabled,
	}
}

var (
	booleanHandles    = NewHandleMap[*metrics.BooleanMetric]()
	counterHandles    = NewHandleMap[*metrics.CounterMetric]()
	stringHandles     = NewHandleMap[*metrics.StringMetric]()
	stringListHandles = NewHandleMap[*metrics.StringListMetric]()
	uuidHandles       = NewHandleMap[*metrics.UuidMetric]()
	datetimeHandles   = NewHandleMap[*metrics.DatetimeMetric]()
	timespanHandles   = NewHandleMap[*metrics.TimespanMetric]()
	timingDistHandles = NewHandleMap[*metrics.TimingDistributionMetric]()
	eventHandles      = NewHandleMap[*metrics.EventMetric]()

	labeledCounterHandles = NewHandleMap[*metrics.Labeled[*metrics.CounterMetric]]()
	labeledBooleanHandles = NewHandleMap[*metrics.Labeled[*metrics.BooleanMetric]]()
	labeledStringHandles  = NewHandleMap[*metrics.Labeled[*metrics.StringMetric]]()
)

// resolve looks a metric handle up in its kind's map, reporting a
// HandleError on failure.
func resolve[T any](m *HandleMap[T], handle uint64, err *ExternError) (T, bool) {
	v, lookupErr := m.Get(handle)
	if lookupErr != nil {
		err.fail(CodeHandleError, lookupErr.Error())
		var zero T
		return zero, false
	}
	err.success()
	return v, true
}

// Boolean

func NewBooleanMetric(category, name string, sendInPings []string, lifetime int32,
	disabled bool) uint64 {
	return booleanHandles.Insert(
		metrics.NewBooleanMetric(commonMeta(category, name, sendInPings, lifetime, disabled)))
}

func DestroyBooleanMetric(handle uint64) { booleanHandles.Remove(handle) }

func BooleanSet(gleanHandle, handle uint64, value bool, err *ExternError) {
	g, ok := resolveGlean(gleanHandle, err)
	if !ok {
		return
	}
	if m, ok := resolve(booleanHandles, handle, err); ok {
		m.Set(g, value)
	}
}

func BooleanTestHasValue(gleanHandle, handle uint64, ping string, err *ExternError) bool {
	g, ok := resolveGlean(gleanHandle, err)
	if !ok {
		return false
	}
	m, ok := resolve(booleanHandles, handle, err)
	if !ok {
		return false
	}
	_, has := m.TestGetValue(g, ping)
	return has
}

func BooleanTestGetValue(gleanHandle, handle uint64, ping string, err *ExternError) bool {
	g, ok := resolveGlean(gleanHandle, err)
	if !ok {
		return false
	}
	m, ok := resolve(booleanHandles, handle, err)
	if !ok {
		return false
	}
	v, _ := m.TestGetValue(g, ping)
	return v
}

func BooleanTestGetNumRecordedErrors(gleanHandle, handle uint64, kind int32,
	ping string, err *ExternError) int32 {
	g, ok := resolveGlean(gleanHandle, err)
	if !ok {
		return 0
	}
	m, ok := resolve(booleanHandles, handle, err)
	if !ok {
		return 0
	}
	return m.TestGetNumRecordedErrors(g, metricdata.ErrorKind(kind), ping)
}

// Counter

func NewCounterMetric(category, name string, sendInPings []string, lifetime int32,
	disabled bool) uint64 {
	return counterHandles.Insert(
		metrics.NewCounterMetric(commonMeta(category, name, sendInPings, lifetime, disabled)))
}

func DestroyCounterMetric(handle uint64) { counterHandles.Remove(handle) }

func CounterAdd(gleanHandle, handle uint64, amount int32, err *ExternError) {
	g, ok := resolveGlean(gleanHandle, err)
	if !ok {
		return
	}
	if m, ok := resolve(counterHandles, handle, err); ok {
		m.Add(g, amount)
	}
}

func CounterTestHasValue(gleanHandle, handle uint64, ping string, err *ExternError) bool {
	g, ok := resolveGlean(gleanHandle, err)
	if !ok {
		return false
	}
	m, ok := resolve(counterHandles, handle, err)
	if !ok {
		return false
	}
	_, has := m.TestGetValue(g, ping)
	return has
}

func CounterTestGetValue(gleanHandle, handle uint64, ping string, err *ExternError) int32 {
	g, ok := resolveGlean(gleanHandle, err)
	if !ok {
		return 0
	}
	m, ok := resolve(counterHandles, handle, err)
	if !ok {
		return 0
	}
	v, _ := m.TestGetValue(g, ping)
	return v
}

func CounterTestGetNumRecordedErrors(gleanHandle, handle uint64, kind int32,
	ping string, err *ExternError) int32 {
	g, ok := resolveGlean(gleanHandle, err)
	if !ok {
		return 0
	}
	m, ok := resolve(counterHandles, handle, err)
	if !ok {
		return 0
	}
	return m.TestGetNumRecordedErrors(g, metricdata.ErrorKind(kind), ping)
}

// String

func NewStringMetric(category, name string, sendInPings []string, lifetime int32,
	disabled bool) uint64 {
	return stringHandles.Insert(
		metrics.NewStringMetric(commonMeta(category, name, sendInPings, lifetime, disabled)))
}

func DestroyStringMetric(handle uint64) { stringHandles.Remove(handle) }

func StringSet(gleanHandle, handle uint64, value string, err *ExternError) {
	g, ok := resolveGlean(gleanHandle, err)
	if !ok {
		return
	}
	if m, ok := resolve(stringHandles, handle, err); ok {
		m.Set(g, value)
	}
}

func StringTestHasValue(gleanHandle, handle uint64, ping string, err *ExternError) bool {
	g, ok := resolveGlean(gleanHandle, err)
	if !ok {
		return false
	}
	m, ok := resolve(stringHandles, handle, err)
	if !ok {
		return false
	}
	_, has := m.TestGetValue(g, ping)
	return has
}

func StringTestGetValue(gleanHandle, handle uint64, ping string, err *ExternError) string {
	g, ok := resolveGlean(gleanHandle, err)
	if !ok {
		return ""
	}
	m, ok := resolve(stringHandles, handle, err)
	if !ok {
		return ""
	}
	v, _ := m.TestGetValue(g, ping)
	return v
}

func StringTestGetNumRecordedErrors(gleanHandle, handle uint64, kind int32,
	ping string, err *ExternError) int32 {
	g, ok := resolveGlean(gleanHandle, err)
	if !ok {
		return 0
	}
	m, ok := resolve(stringHandles, handle, err)
	if !ok {
		return 0
	}
	return m.TestGetNumRecordedErrors(g, metricdata.ErrorKind(kind), ping)
}

// StringList

func NewStringListMetric(category, name string, sendInPings []string, lifetime int32,
	disabled bool) uint64 {
	return stringListHandles.Insert(
		metrics.NewStringListMetric(commonMeta(category, name, sendInPings, lifetime, disabled)))
}

func DestroyStringListMetric(handle uint64) { stringListHandles.Remove(handle) }

func StringListAdd(gleanHandle, handle uint64, value string, err *ExternError) {
	g, ok := resolveGlean(gleanHandle, err)
	if !ok {
		return
	}
	if m, ok := resolve(stringListHandles, handle, err); ok {
		m.Add(g, value)
	}
}

func StringListSet(gleanHandle, handle uint64, values []string, err *ExternError) {
	g, ok := resolveGlean(gleanHandle, err)
	if !ok {
		return
	}
	if m, ok := resolve(stringListHandles, handle, err); ok {
		m.Set(g, values)
	}
}

func StringListTestHasValue(gleanHandle, handle uint64, ping string, err *ExternError) bool {
	g, ok := resolveGlean(gleanHandle, err)
	if !ok {
		return false
	}
	m, ok := resolve(stringListHandles, handle, err)
	if !ok {
		return false
	}
	_, has := m.TestGetValue(g, ping)
	return has
}

func StringListTestGetValue(gleanHandle, handle uint64, ping string,
	err *ExternError) string {
	g, ok := resolveGlean(gleanHandle, err)
	if !ok {
		return ""
	}
	m, ok := resolve(stringListHandles, handle, err)
	if !ok {
		return ""
	}
	v, has := m.TestGetValue(g, ping)
	if !has {
		return ""
	}
	body, marshalErr := json.Marshal(v)
	if marshalErr != nil {
		err.fail(CodeStorageError, marshalErr.Error())
		return ""
	}
	return string(body)
}

func StringListTestGetNumRecordedErrors(gleanHandle, handle uint64, kind int32,
	ping string, err *ExternError) int32 {
	g, ok := resolveGlean(gleanHandle, err)
	if !ok {
		return 0
	}
	m, ok := resolve(stringListHandles, handle, err)
	if !ok {
		return 0
	}
	return m.TestGetNumRecordedErrors(g, metricdata.ErrorKind(kind), ping)
}

// Uuid

func NewUuidMetric(category, name string, sendInPings []string, lifetime int32,
	disabled bool) uint64 {
	return uuidHandles.Insert(
		metrics.NewUuidMetric(commonMeta(category, name, sendInPings, lifetime, disabled)))
}

func DestroyUuidMetric(handle uint64) { uuidHandles.Remove(handle) }

func UuidSet(gleanHandle, handle uint64, value string, err *ExternError) {
	g, ok := resolveGlean(gleanHandle, err)
	if !ok {
		return
	}
	m, ok := resolve(uuidHandles, handle, err)
	if !ok {
		return
	}
	id, parseErr := uuid.Parse(value)
	if parseErr != nil {
		err.fail(CodeUtf8Error, parseErr.Error())
		return
	}
	m.Set(g, id)
}

func UuidGenerateAndSet(gleanHandle, handle uint64, err *ExternError) string {
	g, ok := resolveGlean(gleanHandle, err)
	if !ok {
		return ""
	}
	m, ok := resolve(uuidHandles, handle, err)
	if !ok {
		return ""
	}
	return m.GenerateAndSet(g).String()
}

func UuidTestHasValue(gleanHandle, handle uint64, ping string, err *ExternError) bool {
	g, ok := resolveGlean(gleanHandle, err)
	if !ok {
		return false
	}
	m, ok := resolve(uuidHandles, handle, err)
	if !ok {
		return false
	}
	_, has := m.TestGetValue(g, ping)
	return has
}

func UuidTestGetValue(gleanHandle, handle uint64, ping string, err *ExternError) string {
	g, ok := resolveGlean(gleanHandle, err)
	if !ok {
		return ""
	}
	m, ok := resolve(uuidHandles, handle, err)
	if !ok {
		return ""
	}
	v, has := m.TestGetValue(g, ping)
	if !has {
		return ""
	}
	return v.String()
}

func UuidTestGetNumRecordedErrors(gleanHandle, handle uint64, kind int32,
	ping string, err *ExternError) int32 {
	g, ok := resolveGlean(gleanHandle, err)
	if !ok {
		return 0
	}
	m, ok := resolve(uuidHandles, handle, err)
	if !ok {
		return 0
	}
	return m.TestGetNumRecordedErrors(g, metricdata.ErrorKind(kind), ping)
}

// Datetime

func NewDatetimeMetric(category, name string, sendInPings []string, lifetime int32,
	disabled bool, precision int32) uint64 {
	return datetimeHandles.Insert(metrics.NewDatetimeMetric(
		commonMeta(category, name, sendInPings, lifetime, disabled),
		metricdata.TimeUnit(precision)))
}

func DestroyDatetimeMetric(handle uint64) { datetimeHandles.Remove(handle) }

// DatetimeSet records the instant composed from broken-down components and
// an offset in seconds east of UTC, the shape a C caller naturally has.
func DatetimeSet(gleanHandle, handle uint64, year, month, day, hour, minute, second int32,
	nano int64, offsetSeconds int32, err *ExternError) {
	g, ok := resolveGlean(gleanHandle, err)
	if !ok {
		return
	}
	m, ok := resolve(datetimeHandles, handle, err)
	if !ok {
		return
	}
	loc := time.FixedZone("offset", int(offsetSeconds))
	t := time.Date(int(year), time.Month(month), int(day), int(hour), int(minute),
		int(second), int(nano), loc)
	m.Set(g, &t)
}

// DatetimeSetNow records the current wall clock time.
func DatetimeSetNow(gleanHandle, handle uint64, err *ExternError) {
	g, ok := resolveGlean(gleanHandle, err)
	if !ok {
		return
	}
	if m, ok := resolve(datetimeHandles, handle, err); ok {
		m.Set(g, nil)
	}
}

func DatetimeTestHasValue(gleanHandle, handle uint64, ping string, err *ExternError) bool {
	g, ok := resolveGlean(gleanHandle, err)
	if !ok {
		return false
	}
	m, ok := resolve(datetimeHandles, handle, err)
	if !ok {
		return false
	}
	_, has := m.TestGetValue(g, ping)
	return has
}

func DatetimeTestGetValue(gleanHandle, handle uint64, ping string, err *ExternError) string {
	g, ok := resolveGlean(gleanHandle, err)
	if !ok {
		return ""
	}
	m, ok := resolve(datetimeHandles, handle, err)
	if !ok {
		return ""
	}
	v, _ := m.TestGetValue(g, ping)
	return v
}

func DatetimeTestGetNumRecordedErrors(gleanHandle, handle uint64, kind int32,
	ping string, err *ExternError) int32 {
	g, ok := resolveGlean(gleanHandle, err)
	if !ok {
		return 0
	}
	m, ok := resolve(datetimeHandles, handle, err)
	if !ok {
		return 0
	}
	return m.TestGetNumRecordedErrors(g, metricdata.ErrorKind(kind), ping)
}

// Timespan

func NewTimespanMetric(category, name string, sendInPings []string, lifetime int32,
	disabled bool, unit int32) uint64 {
	return timespanHandles.Insert(metrics.NewTimespanMetric(
		commonMeta(category, name, sendInPings, lifetime, disabled),
		metricdata.TimeUnit(unit)))
}

func DestroyTimespanMetric(handle uint64) { timespanHandles.Remove(handle) }

func TimespanStart(gleanHandle, handle uint64, err *ExternError) {
	g, ok := resolveGlean(gleanHandle, err)
	if !ok {
		return
	}
	if m, ok := resolve(timespanHandles, handle, err); ok {
		m.Start(g)
	}
}

func TimespanStop(gleanHandle, handle uint64, err *ExternError) {
	g, ok := resolveGlean(gleanHandle, err)
	if !ok {
		return
	}
	if m, ok := resolve(timespanHandles, handle, err); ok {
		m.Stop(g)
	}
}

func TimespanCancel(gleanHandle, handle uint64, err *ExternError) {
	g, ok := resolveGlean(gleanHandle, err)
	if !ok {
		return
	}
	if m, ok := resolve(timespanHandles, handle, err); ok {
		m.Cancel(g)
	}
}

func TimespanSetRawNanos(gleanHandle, handle uint64, nanos uint64, err *ExternError) {
	g, ok := resolveGlean(gleanHandle, err)
	if !ok {
		return
	}
	if m, ok := resolve(timespanHandles, handle, err); ok {
		m.SetRawNanos(g, nanos)
	}
}

func TimespanTestHasValue(gleanHandle, handle uint64, ping string, err *ExternError) bool {
	g, ok := resolveGlean(gleanHandle, err)
	if !ok {
		return false
	}
	m, ok := resolve(timespanHandles, handle, err)
	if !ok {
		return false
	}
	_, has := m.TestGetValue(g, ping)
	return has
}

func TimespanTestGetValue(gleanHandle, handle uint64, ping string, err *ExternError) uint64 {
	g, ok := resolveGlean(gleanHandle, err)
	if !ok {
		return 0
	}
	m, ok := resolve(timespanHandles, handle, err)
	if !ok {
		return 0
	}
	v, _ := m.TestGetValue(g, ping)
	return v
}

func TimespanTestGetNumRecordedErrors(gleanHandle, handle uint64, kind int32,
	ping string, err *ExternError) int32 {
	g, ok := resolveGlean(gleanHandle, err)
	if !ok {
		return 0
	}
	m, ok := resolve(timespanHandles, handle, err)
	if !ok {
		return 0
	}
	return m.TestGetNumRecordedErrors(g, metricdata.ErrorKind(kind), ping)
}

// TimingDistribution

func NewTimingDistributionMetric(category, name string, sendInPings []string,
	lifetime int32, disabled bool) uint64 {
	return timingDistHandles.Insert(metrics.NewTimingDistributionMetric(
		commonMeta(category, name, sendInPings, lifetime, disabled)))
}

func DestroyTimingDistributionMetric(handle uint64) { timingDistHandles.Remove(handle) }

func TimingDistributionStart(gleanHandle, handle uint64, err *ExternError) uint64 {
	g, ok := resolveGlean(gleanHandle, err)
	if !ok {
		return 0
	}
	m, ok := resolve(timingDistHandles, handle, err)
	if !ok {
		return 0
	}
	return uint64(m.Start(g))
}

func TimingDistributionStopAndAccumulate(gleanHandle, handle, timerID uint64,
	err *ExternError) {
	g, ok := resolveGlean(gleanHandle, err)
	if !ok {
		return
	}
	if m, ok := resolve(timingDistHandles, handle, err); ok {
		m.StopAndAccumulate(g, metrics.TimerId(timerID))
	}
}

func TimingDistributionCancel(gleanHandle, handle, timerID uint64, err *ExternError) {
	g, ok := resolveGlean(gleanHandle, err)
	if !ok {
		return
	}
	if m, ok := resolve(timingDistHandles, handle, err); ok {
		m.Cancel(g, metrics.TimerId(timerID))
	}
}

func TimingDistributionTestHasValue(gleanHandle, handle uint64, ping string,
	err *ExternError) bool {
	g, ok := resolveGlean(gleanHandle, err)
	if !ok {
		return false
	}
	m, ok := resolve(timingDistHandles, handle, err)
	if !ok {
		return false
	}
	_, has := m.TestGetValue(g, ping)
	return has
}

func TimingDistributionTestGetValue(gleanHandle, handle uint64, ping string,
	err *ExternError) string {
	g, ok := resolveGlean(gleanHandle, err)
	if !ok {
		return ""
	}
	m, ok := resolve(timingDistHandles, handle, err)
	if !ok {
		return ""
	}
	h, has := m.TestGetValue(g, ping)
	if !has {
		return ""
	}
	body, marshalErr := json.Marshal(h.AsJSON())
	if marshalErr != nil {
		err.fail(CodeStorageError, marshalErr.Error())
		return ""
	}
	return string(body)
}

func TimingDistributionTestGetNumRecordedErrors(gleanHandle, handle uint64, kind int32,
	ping string, err *ExternError) int32 {
	g, ok := resolveGlean(gleanHandle, err)
	if !ok {
		return 0
	}
	m, ok := resolve(timingDistHandles, handle, err)
	if !ok {
		return 0
	}
	return m.TestGetNumRecordedErrors(g, metricdata.ErrorKind(kind), ping)
}

// Event

func NewEventMetric(category, name string, sendInPings []string, lifetime int32,
	disabled bool, allowedExtraKeys []string) uint64 {
	return eventHandles.Insert(metrics.NewEventMetric(
		commonMeta(category, name, sendInPings, lifetime, disabled), allowedExtraKeys))
}

func DestroyEventMetric(handle uint64) { eventHandles.Remove(handle) }

// EventRecord records one occurrence. Extras arrive as parallel key/value
// arrays.
func EventRecord(gleanHandle, handle uint64, extraKeys, extraValues []string,
	err *ExternError) {
	if len(extraKeys) != len(extraValues) {
		err.fail(CodeUtf8Error, "extra keys and values differ in length")
		return
	}
	g, ok := resolveGlean(gleanHandle, err)
	if !ok {
		return
	}
	m, ok := resolve(eventHandles, handle, err)
	if !ok {
		return
	}
	var extra map[string]string
	if len(extraKeys) > 0 {
		extra = make(map[string]string, len(extraKeys))
		for i, k := range extraKeys {
			extra[k] = extraValues[i]
		}
	}
	m.Record(g, extra)
}

func EventTestHasValue(gleanHandle, handle uint64, ping string, err *ExternError) bool {
	g, ok := resolveGlean(gleanHandle, err)
	if !ok {
		return false
	}
	m, ok := resolve(eventHandles, handle, err)
	if !ok {
		return false
	}
	return len(m.TestGetValue(g, ping)) > 0
}

func EventTestGetValue(gleanHandle, handle uint64, ping string, err *ExternError) string {
	g, ok := resolveGlean(gleanHandle, err)
	if !ok {
		return ""
	}
	m, ok := resolve(eventHandles, handle, err)
	if !ok {
		return ""
	}
	events := m.TestGetValue(g, ping)
	if len(events) == 0 {
		return ""
	}
	body, marshalErr := json.Marshal(events)
	if marshalErr != nil {
		err.fail(CodeStorageError, marshalErr.Error())
		return ""
	}
	return string(body)
}

func EventTestGetNumRecordedErrors(gleanHandle, handle uint64, kind int32,
	ping string, err *ExternError) int32 {
	g, ok := resolveGlean(gleanHandle, err)
	if !ok {
		return 0
	}
	m, ok := resolve(eventHandles, handle, err)
	if !ok {
		return 0
	}
	return m.TestGetNumRecordedErrors(g, metricdata.ErrorKind(kind), ping)
}

// Labeled metrics. Get hands back a handle in the inner kind's registry, so
// every per-kind entry point works on submetrics unchanged.

func NewLabeledCounterMetric(category, name string, sendInPings []string,
	lifetime int32, disabled bool) uint64 {
	return labeledCounterHandles.Insert(metrics.NewLabeledCounter(
		commonMeta(category, name, sendInPings, lifetime, disabled)))
}

func DestroyLabeledCounterMetric(handle uint64) { labeledCounterHandles.Remove(handle) }

func LabeledCounterGet(handle uint64, label string, err *ExternError) uint64 {
	m, ok := resolve(labeledCounterHandles, handle, err)
	if !ok {
		return 0
	}
	return counterHandles.Insert(m.Get(label))
}

func NewLabeledBooleanMetric(category, name string, sendInPings []string,
	lifetime int32, disabled bool) uint64 {
	return labeledBooleanHandles.Insert(metrics.NewLabeledBoolean(
		commonMeta(category, name, sendInPings, lifetime, disabled)))
}

func DestroyLabeledBooleanMetric(handle uint64) { labeledBooleanHandles.Remove(handle) }

func LabeledBooleanGet(handle uint64, label string, err *ExternError) uint64 {
	m, ok := resolve(labeledBooleanHandles, handle, err)
	if !ok {
		return 0
	}
	return booleanHandles.Insert(m.Get(label))
}

func NewLabeledStringMetric(category, name string, sendInPings []string,
	lifetime int32, disabled bool) uint64 {
	return labeledStringHandles.Insert(metrics.NewLabeledString(
		commonMeta(category, name, sendInPings, lifetime, disabled)))
}

func DestroyLabeledStringMetric(handle uint64) { labeledStringHandles.Remove(handle) }

func LabeledStringGet(handle uint64, label string, err *ExternError) uint64 {
	m, ok := resolve(labeledStringHandles, handle, err)
	if !ok {
		return 0
	}
	return stringHandles.Insert(m.Get(label))
}
