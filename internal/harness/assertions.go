package harness

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/roach88/overclock/internal/ir"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []ir.StepEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s step=%d %s resolved=%d committed=%d bound=%s",
				ev.Seq, ev.NodeID, ev.Step, ev.Kind, ev.Resolved, ev.Committed, ev.Bound)
			if ev.Reason != "" {
				fmt.Fprintf(&buf, " reason=%s", ev.Reason)
			}
			buf.WriteByte('\n')
		}
	}
	return buf.String()
}

// AssertionContext provides what state assertions need beyond the result.
type AssertionContext struct {
	Ctx  context.Context
	Pool Pool
}

// EvaluateAssertions evaluates all assertions against the result and
// returns one message per failure.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			err = assertFinalState(result, assertion)
		case AssertPoolState:
			if actx == nil || actx.Pool == nil {
				err = fmt.Errorf("assertion[%d]: pool_state requires a pool", i)
			} else {
				err = assertPoolState(actx.Ctx, actx.Pool, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// filterTrace keeps the events of one node, or all events when node is
// empty.
func filterTrace(trace []ir.StepEvent, node string) []ir.StepEvent {
	if node == "" {
		return trace
	}
	var out []ir.StepEvent
	for _, ev := range trace {
		if ev.NodeID == node {
			out = append(out, ev)
		}
	}
	return out
}

// assertTraceContains checks for an event of the kind whose canonical
// fields include every expected field.
func assertTraceContains(trace []ir.StepEvent, assertion Assertion) error {
	for _, ev := range filterTrace(trace, assertion.Node) {
		if string(ev.Kind) != assertion.Kind {
			continue
		}
		if matchFields(ev.CanonicalMap(), assertion.Fields) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("%s event%s with fields %s", assertion.Kind, onNode(assertion.Node), formatFields(assertion.Fields)),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the kinds appear as a subsequence of the
// trace.
func assertTraceOrder(trace []ir.StepEvent, assertion Assertion) error {
	events := filterTrace(trace, assertion.Node)
	next := 0
	for _, ev := range events {
		if next < len(assertion.Kinds) && string(ev.Kind) == assertion.Kinds[next] {
			next++
		}
	}
	if next == len(assertion.Kinds) {
		return nil
	}

	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: fmt.Sprintf("kinds in order%s: %v", onNode(assertion.Node), assertion.Kinds),
		Actual:   fmt.Sprintf("matched %d of %d, stuck at %q", next, len(assertion.Kinds), assertion.Kinds[next]),
		Trace:    trace,
	}
}

// assertTraceCount checks the exact number of events of the kind.
func assertTraceCount(trace []ir.StepEvent, assertion Assertion) error {
	count := 0
	for _, ev := range filterTrace(trace, assertion.Node) {
		if string(ev.Kind) == assertion.Kind {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d %s events%s", assertion.Count, assertion.Kind, onNode(assertion.Node)),
			Actual:   fmt.Sprintf("%d events", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState checks a node's final counters. Known fields: output
// (count), input (total count), energy, progress, completed, stored_items.
func assertFinalState(result *Result, assertion Assertion) error {
	state, ok := result.State[assertion.Node]
	if !ok {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("node %s", assertion.Node),
			Actual:   "node not found",
		}
	}

	var input int64
	for _, st := range state.Inputs {
		input += st.Count
	}
	actual := map[string]any{
		"output":       state.Output.Count,
		"input":        input,
		"energy":       state.Energy,
		"progress":     state.Progress,
		"completed":    state.Completed,
		"stored_items": state.StoredItems,
	}
	return compareState(AssertFinalState, "node "+assertion.Node, actual, assertion.Expect)
}

// assertPoolState checks pool contents. The key energy is the pooled
// energy; every other key is an item kind.
func assertPoolState(ctx context.Context, p Pool, assertion Assertion) error {
	if ctx == nil {
		ctx = context.Background()
	}
	actual := make(map[string]any, len(assertion.Expect))
	for key := range assertion.Expect {
		if key == "energy" {
			e, err := p.Energy(ctx)
			if err != nil {
				return fmt.Errorf("pool_state: %w", err)
			}
			actual[key] = e
			continue
		}
		q, err := p.Quantity(ctx, ir.Kind(key))
		if err != nil {
			return fmt.Errorf("pool_state: %w", err)
		}
		actual[key] = q
	}
	return compareState(AssertPoolState, "pool", actual, assertion.Expect)
}

func compareState(typ, subject string, actual, expect map[string]any) error {
	keys := make([]string, 0, len(expect))
	for k := range expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		got, exists := actual[key]
		if !exists {
			return &AssertionError{
				Type:     typ,
				Expected: fmt.Sprintf("%s field %q to exist", subject, key),
				Actual:   "unknown field",
			}
		}
		if !valuesEqual(got, expect[key]) {
			return &AssertionError{
				Type:     typ,
				Expected: fmt.Sprintf("%s %s = %v", subject, key, expect[key]),
				Actual:   fmt.Sprintf("%s %s = %v", subject, key, got),
			}
		}
	}
	return nil
}

// matchFields reports whether actual contains every expected field (subset
// match, recursively for nested maps).
func matchFields(actual, expected map[string]any) bool {
	for key, want := range expected {
		got, exists := actual[key]
		if !exists {
			return false
		}
		wantMap, wantIsMap := want.(map[string]any)
		gotMap, gotIsMap := got.(map[string]any)
		if wantIsMap && gotIsMap {
			if !matchFields(gotMap, wantMap) {
				return false
			}
			continue
		}
		if !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

// valuesEqual compares YAML-decoded expectations with actual values,
// treating every integer type alike and comparing floats with a small
// tolerance.
func valuesEqual(actual, expected any) bool {
	if actual == nil || expected == nil {
		return actual == nil && expected == nil
	}
	if a, ok := toFloat(actual); ok {
		e, ok := toFloat(expected)
		return ok && math.Abs(a-e) <= 1e-9*math.Max(1, math.Abs(e))
	}
	if a, ok := actual.(string); ok {
		return fmt.Sprint(expected) == a
	}
	return reflect.DeepEqual(actual, expected)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func onNode(node string) string {
	if node == "" {
		return ""
	}
	return " on " + node
}

func formatFields(fields map[string]any) string {
	if len(fields) == 0 {
		return "(any)"
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return strings.Join(parts, " ")
}
