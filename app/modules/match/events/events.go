package matchevents

// Topics consumed and produced by the match module.
const (
	MatchCreateRequestedV1 = "match.create.requested.v1"
	MatchCreatedV1         = "match.created.v1"
	MatchCreateFailedV1    = "match.create.failed.v1"

	MatchReportSubmitRequestedV1 = "match.report.submit.requested.v1"
	MatchReportAcceptedV1        = "match.report.accepted.v1"
	MatchReportRejectedV1        = "match.report.rejected.v1"
	MatchResultConfirmedV1       = "match.result.confirmed.v1"
	MatchResultDisputedV1        = "match.result.disputed.v1"

	MatchAccountLinkRequestedV1 = "match.account.link.requested.v1"
	MatchAccountLinkedV1        = "match.account.linked.v1"
	MatchAccountLinkFailedV1    = "match.account.link.failed.v1"
)

// Rejection reasons carried on MatchReportRejectedPayloadV1.
const (
	ReasonUnauthorized = "unauthorized"
	ReasonValidation   = "validation"
	ReasonNotFound     = "not_found"
	ReasonCompleted    = "completed"
	ReasonStale        = "stale"
)

type MatchCreateRequestedPayloadV1 struct {
	StageKey    string `json:"stage_key,omitempty"`
	Side1UserID string `json:"side1_user_id"`
	Side2UserID string `json:"side2_user_id"`
}

type MatchCreatedPayloadV1 struct {
	MatchID     string `json:"match_id"`
	StageKey    string `json:"stage_key,omitempty"`
	Side1UserID string `json:"side1_user_id"`
	Side2UserID string `json:"side2_user_id"`
	Version     int64  `json:"version"`
}

type MatchCreateFailedPayloadV1 struct {
	Side1UserID string `json:"side1_user_id"`
	Side2UserID string `json:"side2_user_id"`
	Reason      string `json:"reason"`
}

// MatchReportSubmitRequestedPayloadV1 carries one side's report. Side may be 0 when
// the submitter maps to exactly one side. ExpectedVersion pins the version the
// submitter last saw; without it the latest version is used.
type MatchReportSubmitRequestedPayloadV1 struct {
	MatchID         string `json:"match_id"`
	Side            int    `json:"side,omitempty"`
	Values          []int  `json:"values"`
	Token           string `json:"token"`
	ExpectedVersion *int64 `json:"expected_version,omitempty"`
}

type MatchReportAcceptedPayloadV1 struct {
	MatchID string `json:"match_id"`
	Side    int    `json:"side"`
	Values  []int  `json:"values"`
	State   string `json:"state"`
	Version int64  `json:"version"`
	Changed bool   `json:"changed"`
}

type MatchReportRejectedPayloadV1 struct {
	MatchID string `json:"match_id"`
	Side    int    `json:"side,omitempty"`
	Reason  string `json:"reason"`
	Error   string `json:"error"`
	// CurrentVersion is set on stale rejections so the caller can refresh.
	CurrentVersion *int64 `json:"current_version,omitempty"`
}

type MatchResultConfirmedPayloadV1 struct {
	MatchID   string `json:"match_id"`
	Canonical []int  `json:"canonical"`
	Version   int64  `json:"version"`
}

// MatchResultDisputedPayloadV1 exposes both accounts for admin review.
type MatchResultDisputedPayloadV1 struct {
	MatchID     string `json:"match_id"`
	Side1Values []int  `json:"side1_values"`
	Side2Values []int  `json:"side2_values"`
	Version     int64  `json:"version"`
}

type MatchAccountLinkRequestedPayloadV1 struct {
	Token        string `json:"token"`
	LinkedUserID string `json:"linked_user_id"`
}

type MatchAccountLinkedPayloadV1 struct {
	PrimaryUserID string `json:"primary_user_id"`
	LinkedUserID  string `json:"linked_user_id"`
}

type MatchAccountLinkFailedPayloadV1 struct {
	LinkedUserID string `json:"linked_user_id"`
	Reason       string `json:"reason"`
}
