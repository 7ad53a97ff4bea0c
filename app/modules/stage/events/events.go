package stageevents

// Topics consumed and produced by the stage module.
const (
	StageCreateRequestedV1 = "stage.create.requested.v1"
	StageCreatedV1         = "stage.created.v1"

	EntriesRegisterRequestedV1 = "stage.entries.register.requested.v1"
	EntriesRegisteredV1        = "stage.entries.registered.v1"

	SegmentTimeSubmitRequestedV1 = "stage.segment_time.submit.requested.v1"
	SegmentTimeRecordedV1        = "stage.segment_time.recorded.v1"

	TimesImportRequestedV1 = "stage.times.import.requested.v1"
	TimesImportedV1        = "stage.times.imported.v1"

	// RecalculateRequestedV1 is published by the recalculation job and by admins.
	RecalculateRequestedV1 = "stage.recalculate.requested.v1"
	StageRecalculatedV1    = "stage.recalculated.v1"

	FinalsSegmentApplyRequestedV1 = "stage.finals.segment.apply.requested.v1"
	FinalsSegmentAppliedV1        = "stage.finals.segment.applied.v1"

	LivesResetRequestedV1 = "stage.lives.reset.requested.v1"
	LivesResetV1          = "stage.lives.reset.v1"

	EntryEliminateRequestedV1 = "stage.entry.eliminate.requested.v1"
	EntryEliminatedV1         = "stage.entry.eliminated.v1"
	ChampionDeclaredV1        = "stage.champion.declared.v1"

	// StandingsUpdatedV1 is published scoped to the stage key.
	StandingsUpdatedV1 = "stage.standings.updated.v1"

	// RequestFailedV1 carries every domain rejection of a stage request.
	RequestFailedV1 = "stage.request.failed.v1"
)

// Rejection reasons carried on RequestFailedPayloadV1.
const (
	ReasonUnauthorized = "unauthorized"
	ReasonValidation   = "validation"
	ReasonNotFound     = "not_found"
	ReasonCompleted    = "completed"
	ReasonStale        = "stale"
	ReasonNotAllowed   = "not_allowed"
)

type StageCreateRequestedPayloadV1 struct {
	Token    string   `json:"token"`
	StageKey string   `json:"stage_key"`
	Kind     string   `json:"kind"`
	Segments []string `json:"segments"`
}

type StageCreatedPayloadV1 struct {
	StageKey string   `json:"stage_key"`
	Kind     string   `json:"kind"`
	Segments []string `json:"segments"`
	Version  int64    `json:"version"`
}

type EntriesRegisterRequestedPayloadV1 struct {
	Token         string   `json:"token"`
	StageKey      string   `json:"stage_key"`
	CompetitorIDs []string `json:"competitor_ids"`
}

type RegisteredEntryV1 struct {
	EntryID      string `json:"entry_id"`
	CompetitorID string `json:"competitor_id"`
	Order        int    `json:"order"`
	Lives        int    `json:"lives"`
}

type EntriesRegisteredPayloadV1 struct {
	StageKey string              `json:"stage_key"`
	Entries  []RegisteredEntryV1 `json:"entries"`
}

// SegmentTimeSubmitRequestedPayloadV1 is one time typed in by an official.
// ExpectedVersion pins the entry version the form was rendered with.
type SegmentTimeSubmitRequestedPayloadV1 struct {
	Token           string `json:"token"`
	StageKey        string `json:"stage_key"`
	EntryID         string `json:"entry_id"`
	Segment         string `json:"segment"`
	Time            string `json:"time"`
	ExpectedVersion *int64 `json:"expected_version,omitempty"`
}

type SegmentTimeRecordedPayloadV1 struct {
	StageKey string `json:"stage_key"`
	EntryID  string `json:"entry_id"`
	Segment  string `json:"segment"`
	Time     string `json:"time"`
	Version  int64  `json:"version"`
	Changed  bool   `json:"changed"`
}

// TimesImportRequestedPayloadV1 carries an uploaded sheet. Data is base64 in JSON.
type TimesImportRequestedPayloadV1 struct {
	Token    string `json:"token"`
	StageKey string `json:"stage_key"`
	Filename string `json:"filename"`
	Data     []byte `json:"data"`
}

type ImportRejectionV1 struct {
	Line         int    `json:"line"`
	CompetitorID string `json:"competitor_id"`
	Segment      string `json:"segment,omitempty"`
	Reason       string `json:"reason"`
}

type TimesImportedPayloadV1 struct {
	StageKey  string              `json:"stage_key"`
	Filename  string              `json:"filename"`
	Applied   int                 `json:"applied"`
	Unchanged int                 `json:"unchanged"`
	Rejected  []ImportRejectionV1 `json:"rejected"`
}

// RecalculateRequestedPayloadV1 needs no token: it is published by the job queue.
type RecalculateRequestedPayloadV1 struct {
	StageKey string `json:"stage_key"`
}

type StageRecalculatedPayloadV1 struct {
	StageKey  string   `json:"stage_key"`
	Updated   int      `json:"updated"`
	Unchanged int      `json:"unchanged"`
	Stale     []string `json:"stale,omitempty"`
	Ranked    int      `json:"ranked"`
}

type FinalsSegmentApplyRequestedPayloadV1 struct {
	Token    string `json:"token"`
	StageKey string `json:"stage_key"`
	Segment  string `json:"segment"`
}

type FinalsSegmentAppliedPayloadV1 struct {
	StageKey   string   `json:"stage_key"`
	Segment    string   `json:"segment"`
	Slowest    string   `json:"slowest"`
	LostLife   []string `json:"lost_life"`
	Eliminated []string `json:"eliminated"`
	Active     int      `json:"active"`
	Completed  bool     `json:"completed"`
	Version    int64    `json:"version"`
}

type LivesResetRequestedPayloadV1 struct {
	Token    string `json:"token"`
	StageKey string `json:"stage_key"`
}

type LivesResetPayloadV1 struct {
	StageKey string   `json:"stage_key"`
	Restored []string `json:"restored"`
	Active   int      `json:"active"`
	Version  int64    `json:"version"`
}

type EntryEliminateRequestedPayloadV1 struct {
	Token           string `json:"token"`
	StageKey        string `json:"stage_key"`
	EntryID         string `json:"entry_id"`
	ExpectedVersion *int64 `json:"expected_version,omitempty"`
}

type EntryEliminatedPayloadV1 struct {
	StageKey string `json:"stage_key"`
	EntryID  string `json:"entry_id"`
	Manual   bool   `json:"manual"`
	Active   int    `json:"active"`
}

type ChampionDeclaredPayloadV1 struct {
	StageKey string `json:"stage_key"`
	EntryID  string `json:"entry_id"`
}

type StandingEntryV1 struct {
	EntryID      string            `json:"entry_id"`
	CompetitorID string            `json:"competitor_id"`
	Times        map[string]string `json:"times"`
	Total        string            `json:"total,omitempty"`
	Score        *int              `json:"score,omitempty"`
	Rank         *int              `json:"rank,omitempty"`
	Lives        int               `json:"lives"`
	Eliminated   bool              `json:"eliminated"`
	Version      int64             `json:"version"`
}

type StandingsUpdatedPayloadV1 struct {
	StageKey  string            `json:"stage_key"`
	Kind      string            `json:"kind"`
	Completed bool              `json:"completed"`
	Champion  string            `json:"champion,omitempty"`
	Entries   []StandingEntryV1 `json:"entries"`
}

// RequestFailedPayloadV1 names the request topic that was rejected.
type RequestFailedPayloadV1 struct {
	Request  string `json:"request"`
	StageKey string `json:"stage_key"`
	EntryID  string `json:"entry_id,omitempty"`
	Reason   string `json:"reason"`
	Error    string `json:"error"`
	// CurrentVersion is set on stale rejections so the caller can refresh.
	CurrentVersion *int64 `json:"current_version,omitempty"`
}
