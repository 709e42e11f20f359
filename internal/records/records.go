// Package records defines the persisted record types shared by the
// reconciliation, batching, and codesheet layers, plus the schema backfill
// applied when older snapshots are loaded.
package records

import (
	"encoding/gob"
	"sort"
	"strconv"
	"strings"
	"time"
)

func init() {
	// Session and account attributes are stored as decoded JSON, so the
	// concrete types appearing inside interface values must be registered.
	gob.Register(map[string]any{})
	gob.Register([]any{})
}

// Clip variant names used as keys in RawVideoRecord's per-variant maps.
const (
	VariantWhole   = "whole"
	VariantTrimmed = "trimmed"
)

// RawVideoRecord tracks one raw upload and the processed clips derived from
// it. A variant entry with duration 0 and empty path records a failed render
// so later passes do not retry it.
type RawVideoRecord struct {
	ShortName  string
	SessionKey string

	Framerate float64
	Duration  float64
	Bitrate   float64

	ClipDurations map[string]float64
	ClipPaths     map[string]string

	// InBatches maps batch id to this clip's position within the batch.
	InBatches map[string]int
}

// NewRawVideoRecord returns a record with its maps ready for use.
func NewRawVideoRecord(shortName, sessionKey string) *RawVideoRecord {
	return &RawVideoRecord{
		ShortName:     shortName,
		SessionKey:    sessionKey,
		ClipDurations: map[string]float64{},
		ClipPaths:     map[string]string{},
		InBatches:     map[string]int{},
	}
}

// HasClip reports whether a usable processed clip exists for the variant.
func (r *RawVideoRecord) HasClip(variant string) bool {
	return r.ClipPaths[variant] != ""
}

// ClearClips forgets all processed-clip results, forcing re-rendering.
func (r *RawVideoRecord) ClearClips() {
	r.ClipDurations = map[string]float64{}
	r.ClipPaths = map[string]string{}
}

// SessionCodingRecord holds the human-coding state of one session along with
// the reconciliation bookkeeping (expected videos and the clips found for
// each).
type SessionCodingRecord struct {
	Consent      string
	ConsentNotes string
	Usable       string
	Feedback     string

	// Withdrawn is nil until the withdrawal status has actually been
	// inspected; false means confirmed-not-withdrawn.
	Withdrawn *bool

	VideosExpected []string
	// VideosFound is index-aligned with VideosExpected: entry i lists the raw
	// filenames matched to expected video i.
	VideosFound [][]string

	// CoderComments maps coder name to that coder's notes column.
	CoderComments map[string]string

	ConcatPath       string
	ExpectedDuration float64
	ActualDuration   float64

	// Study-specific post-processing results, index-aligned with
	// VideosExpected. Pointer entries are nil for frames the study's
	// processor does not classify (consent, preview).
	ShowedAlternate []*bool
	EndedEarly      []*bool
	VideosShown     []string
	UniqueEvents    [][]string

	// Concat-ordered projections of the per-trial fields, aligned with the
	// clips actually joined into the session video.
	ConcatShowedAlternate []*bool
	ConcatVideosShown     []string
}

// EmptySessionCoding is the template record created for a newly discovered
// session. Consent starts at "orig": nobody has confirmed the original
// consent video yet.
func EmptySessionCoding() *SessionCodingRecord {
	return &SessionCodingRecord{
		Consent:        "orig",
		VideosExpected: []string{},
		VideosFound:    [][]string{},
		CoderComments:  map[string]string{},
	}
}

// Backfill fills in fields that snapshots written by older versions of the
// tool do not carry, so every record in memory satisfies the current schema.
// It reports whether anything was changed.
func (r *SessionCodingRecord) Backfill() bool {
	changed := false
	if r.VideosExpected == nil {
		r.VideosExpected = []string{}
		changed = true
	}
	if r.VideosFound == nil {
		r.VideosFound = [][]string{}
		changed = true
	}
	if r.CoderComments == nil {
		r.CoderComments = map[string]string{}
		changed = true
	}
	if r.Consent == "" {
		r.Consent = "orig"
		changed = true
	}
	return changed
}

// BatchClip is one clip's membership in a batch, in playback order.
type BatchClip struct {
	VideoName  string
	SessionKey string
	Duration   float64
}

// BatchRecord describes one exported coding batch.
type BatchRecord struct {
	ID        string
	Filename  string
	StudyID   string
	Clips     []BatchClip
	Duration  float64
	Width     float64
	CreatedAt time.Time
	CodedBy   []string
}

// SessionRecord is one session document fetched from the platform API. The
// attribute payload is kept as decoded JSON because studies differ in which
// frame properties they record; typed accessors cover the fields every
// operation relies on.
type SessionRecord struct {
	ID         string
	Attributes map[string]any
}

// ExpData returns the per-frame experiment data, or nil.
func (r SessionRecord) ExpData() map[string]any {
	m, _ := r.Attributes["expData"].(map[string]any)
	return m
}

// Feedback returns the researcher feedback recorded for the session.
func (r SessionRecord) Feedback() string {
	s, _ := r.Attributes["feedback"].(string)
	return s
}

// ChildID returns the id of the participating child profile.
func (r SessionRecord) ChildID() string {
	s, _ := r.Attributes["profileId"].(string)
	return s
}

// Completed reports whether the participant reached the end of the study.
func (r SessionRecord) Completed() bool {
	b, _ := r.Attributes["completed"].(bool)
	return b
}

// Frame pulls one frame's data out of expData, or nil.
func (r SessionRecord) Frame(frameID string) map[string]any {
	f, _ := r.ExpData()[frameID].(map[string]any)
	return f
}

// Event is one entry of a frame's event timeline.
type Event struct {
	Type       string
	StreamTime float64
}

// FrameVideoID returns the videoId a frame recorded, or "".
func FrameVideoID(frame map[string]any) string {
	s, _ := frame["videoId"].(string)
	return s
}

// FrameEvents decodes a frame's eventTimings list. Entries missing a
// streamTime (events fired before recording started) carry StreamTime -1.
func FrameEvents(frame map[string]any) []Event {
	raw, _ := frame["eventTimings"].([]any)
	events := make([]Event, 0, len(raw))
	for _, e := range raw {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		ev := Event{StreamTime: -1}
		if t, ok := m["eventType"].(string); ok {
			ev.Type = t
		}
		if st, ok := m["streamTime"].(float64); ok {
			ev.StreamTime = st
		}
		events = append(events, ev)
	}
	return events
}

// SortedFrameIDs returns expData's frame ids in presentation order. Frame
// ids start with their ordinal ("2-video-preview", "11-pref-phys-videos"),
// so plain lexicographic order would interleave 11 before 2.
func SortedFrameIDs(exp map[string]any) []string {
	ids := make([]string, 0, len(exp))
	for id := range exp {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ni, nj := frameOrdinal(ids[i]), frameOrdinal(ids[j])
		if ni != nj {
			return ni < nj
		}
		return ids[i] < ids[j]
	})
	return ids
}

func frameOrdinal(id string) int {
	head, _, _ := strings.Cut(id, "-")
	n, err := strconv.Atoi(head)
	if err != nil {
		return -1
	}
	return n
}

// Account is one family account document fetched from the platform API.
type Account struct {
	ID         string
	Attributes map[string]any
}

// Profiles returns the child profiles attached to the account.
func (a Account) Profiles() []map[string]any {
	raw, _ := a.Attributes["profiles"].([]any)
	profiles := make([]map[string]any, 0, len(raw))
	for _, p := range raw {
		if m, ok := p.(map[string]any); ok {
			profiles = append(profiles, m)
		}
	}
	return profiles
}

// Email returns the account contact address.
func (a Account) Email() string {
	s, _ := a.Attributes["email"].(string)
	return s
}
