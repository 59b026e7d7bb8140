package modelarmor

import (
	"encoding/json"
	"fmt"
	"sort"

	"cloud.google.com/go/modelarmor/apiv1/modelarmorpb"
	"google.golang.org/protobuf/encoding/protojson"
)

// Operation selects which Model Armor method a text is sent to
type Operation int

const (
	// OperationUserPrompt maps to SanitizeUserPrompt
	OperationUserPrompt Operation = iota + 1
	// OperationModelResponse maps to SanitizeModelResponse
	OperationModelResponse
)

func (o Operation) String() string {
	switch o {
	case OperationUserPrompt:
		return "sanitizeUserPrompt"
	case OperationModelResponse:
		return "sanitizeModelResponse"
	default:
		return fmt.Sprintf("Operation(%d)", int(o))
	}
}

// FindingClassifierUnavailable is the kind reported when a call failed under
// FailClosed
const FindingClassifierUnavailable = "classifier_unavailable"

// Finding is a single filter that matched
type Finding struct {
	Kind   string         `json:"kind"`
	Detail map[string]any `json:"detail,omitempty"`
}

// Verdict is the outcome of one classifier call. No findings means safe.
type Verdict struct {
	Findings []Finding
}

// Unsafe reports whether any filter matched
func (v Verdict) Unsafe() bool {
	return len(v.Findings) > 0
}

// String renders the findings as JSON. Used as the reason in refusals.
func (v Verdict) String() string {
	findings := v.Findings
	if findings == nil {
		findings = []Finding{}
	}
	b, err := json.Marshal(findings)
	if err != nil {
		return fmt.Sprintf("%v", v.Findings)
	}
	return string(b)
}

// sanitizationResponse is satisfied by both SanitizeUserPromptResponse and
// SanitizeModelResponseResponse
type sanitizationResponse interface {
	GetSanitizationResult() *modelarmorpb.SanitizationResult
}

// ParseSanitizationResult turns a Model Armor result into a Verdict. Findings
// are only reported when the overall match state is MATCH_FOUND and at least
// one filter result is present.
func ParseSanitizationResult(result *modelarmorpb.SanitizationResult) Verdict {
	if result.GetFilterMatchState() != modelarmorpb.FilterMatchState_MATCH_FOUND {
		return Verdict{}
	}
	filterResults := result.GetFilterResults()
	if len(filterResults) == 0 {
		return Verdict{}
	}

	ids := make([]string, 0, len(filterResults))
	for id := range filterResults {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	findings := make([]Finding, 0, len(ids))
	for _, id := range ids {
		findings = append(findings, Finding{
			Kind:   id,
			Detail: filterDetail(filterResults[id]),
		})
	}
	return Verdict{Findings: findings}
}

// filterDetail converts the filter result message into plain JSON values so
// the verdict renders deterministically
func filterDetail(fr *modelarmorpb.FilterResult) map[string]any {
	if fr == nil {
		return nil
	}
	raw, err := protojson.MarshalOptions{UseProtoNames: true}.Marshal(fr)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	var detail map[string]any
	if err := json.Unmarshal(raw, &detail); err != nil {
		return map[string]any{"error": err.Error()}
	}
	return detail
}
