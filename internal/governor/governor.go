// Package governor enforces the broker's 128 KiB payload ceiling on an
// outgoing CommandResponse before publish, trimming in stages rather
// than rejecting the response outright.
package governor

import (
	"encoding/json"

	"github.com/zeroclaw/fleetctl/pkg/protocol"
)

// MaxBytes is the broker's hard per-message payload ceiling.
const MaxBytes = 128 * 1024

const textTruncationMarker = "... [truncated]"

// Apply returns a response guaranteed to serialize to at most MaxBytes,
// along with its final serialized form. It never changes Status or
// CorrelationID, trimming in this order: serialize verbatim; trim a
// paginated array inside ResponseData from its oldest end; drop
// ResponseData entirely and mark Truncated; finally truncate
// ResponseText itself with a trailing ellipsis marker, halving the kept
// prefix until the response fits. The one exception is a response whose
// other fields alone exceed MaxBytes, which is returned as-is.
func Apply(resp protocol.CommandResponse) (protocol.CommandResponse, []byte) {
	if b, ok := fits(resp); ok {
		return resp, b
	}

	if trimmed, ok := trimPaginatedArray(resp); ok {
		if b, ok := fits(trimmed); ok {
			return trimmed, b
		}
		resp = trimmed
	}

	resp.ResponseData = nil
	resp.Truncated = true
	if b, ok := fits(resp); ok {
		return resp, b
	}

	// JSON escaping can make the text's encoded form several times its
	// byte length, so the kept prefix is halved until the response fits.
	text := resp.ResponseText
	for budget := MaxBytes / 2; ; budget /= 2 {
		resp.ResponseText = truncateText(text, budget)
		b, _ := json.Marshal(resp)
		if len(b) <= MaxBytes || budget == 0 {
			// At budget 0 an empty-bodied response still exceeds the
			// ceiling (e.g. a pathologically long DeviceID) — nothing
			// left to trim safely without corrupting required fields,
			// so this is returned as-is; the broker layer's own payload
			// limit would reject it, which is the correct failure mode.
			return resp, b
		}
	}
}

func fits(resp protocol.CommandResponse) ([]byte, bool) {
	b, err := json.Marshal(resp)
	if err != nil {
		return nil, false
	}
	return b, len(b) <= MaxBytes
}

// paginatedArrayKeys lists the response_data keys this governor knows
// how to trim. Every tool that can return an unbounded collection uses
// one of these keys (see internal/tools).
var paginatedArrayKeys = []string{"entries", "lines"}

// trimPaginatedArray removes elements from the oldest end of the first
// recognized paginated array it finds inside ResponseData, removing one
// element at a time until the response fits or the array is empty.
func trimPaginatedArray(resp protocol.CommandResponse) (protocol.CommandResponse, bool) {
	if len(resp.ResponseData) == 0 {
		return resp, false
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(resp.ResponseData, &obj); err != nil {
		return resp, false
	}

	for _, key := range paginatedArrayKeys {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		var arr []json.RawMessage
		if err := json.Unmarshal(raw, &arr); err != nil {
			continue
		}
		for len(arr) > 0 {
			arr = arr[1:]
			encoded, err := json.Marshal(arr)
			if err != nil {
				break
			}
			obj[key] = encoded
			data, err := json.Marshal(obj)
			if err != nil {
				break
			}
			candidate := resp
			candidate.ResponseData = data
			if b, ok := fits(candidate); ok {
				_ = b
				return candidate, true
			}
		}
		// exhausted this array without fitting; try the next key
		obj[key] = json.RawMessage("[]")
	}

	data, err := json.Marshal(obj)
	if err != nil {
		return resp, false
	}
	resp.ResponseData = data
	return resp, true
}

func truncateText(text string, budget int) string {
	if len(text) == 0 {
		return text
	}
	if len(text) <= budget {
		return text
	}
	return text[:budget] + textTruncationMarker
}
