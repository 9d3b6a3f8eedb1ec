// Package shadow implements the device shadow reconciliation rules:
// shallow top-level merge on reported-state writes, and deep
// structural-equality delta computation restricted to the desired
// object's own keys.
package shadow

import (
	"encoding/json"
	"reflect"
)

// MergeReported applies incoming as a partial patch over existing: every
// top-level key in incoming overwrites the same key in existing (or is
// added if absent); keys existing has that incoming doesn't are left
// untouched. Both arguments and the result are JSON objects.
func MergeReported(existing, incoming json.RawMessage) (json.RawMessage, error) {
	base := map[string]json.RawMessage{}
	if len(existing) > 0 {
		if err := json.Unmarshal(existing, &base); err != nil {
			return nil, err
		}
	}

	patch := map[string]json.RawMessage{}
	if len(incoming) > 0 {
		if err := json.Unmarshal(incoming, &patch); err != nil {
			return nil, err
		}
	}

	for k, v := range patch {
		base[k] = v
	}

	return json.Marshal(base)
}

// ComputeDelta returns the object containing every key k in desired for
// which reported[k] is absent or differs from desired[k] by structural
// equality. Keys present only in reported are never included. The
// returned RawMessage is "{}" (and ok=false) when nothing diverges.
func ComputeDelta(desired, reported json.RawMessage) (delta json.RawMessage, ok bool, err error) {
	desiredMap := map[string]any{}
	if len(desired) > 0 {
		if err := json.Unmarshal(desired, &desiredMap); err != nil {
			return nil, false, err
		}
	}

	reportedMap := map[string]any{}
	if len(reported) > 0 {
		if err := json.Unmarshal(reported, &reportedMap); err != nil {
			return nil, false, err
		}
	}

	out := map[string]any{}
	for k, desiredVal := range desiredMap {
		reportedVal, present := reportedMap[k]
		if !present || !reflect.DeepEqual(desiredVal, reportedVal) {
			out[k] = desiredVal
		}
	}

	if len(out) == 0 {
		return json.RawMessage("{}"), false, nil
	}

	b, err := json.Marshal(out)
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}
