package study

import (
	"github.com/mekline/lookit-data-processing/internal/records"
)

// ConcatClip is one clip selected for a session concatenation: the raw video
// name, the index of the expected video it was matched to, the filename
// timestamp token used for ordering, and whether the untrimmed variant is
// used.
type ConcatClip struct {
	VideoName     string
	ExpectedIndex int
	Timestamp     string
	UseWhole      bool
}

// CodingPostProcessor derives study-specific coding fields (expected videos,
// per-trial classifications) from a fetched session document.
type CodingPostProcessor interface {
	ProcessCoding(coding *records.SessionCodingRecord, sess records.SessionRecord)
}

// ConcatFilter removes clips a study excludes from session concatenation.
type ConcatFilter interface {
	FilterClips(clips []ConcatClip, coding *records.SessionCodingRecord) []ConcatClip
}

// ConcatPostProcessor records study-specific fields about the clips that
// actually entered the concatenation.
type ConcatPostProcessor interface {
	ProcessConcat(coding *records.SessionCodingRecord, clips []ConcatClip)
}

// Strategies bundles a study's strategy hooks; nil fields mean the generic
// behavior applies.
type Strategies struct {
	Coding CodingPostProcessor
	Filter ConcatFilter
	Concat ConcatPostProcessor
}

// Strategies returns the hooks selected by the study's postProcessing
// setting.
func (s *Settings) Strategies() Strategies {
	switch s.PostProcessing {
	case "physics":
		p := physicsStrategy{}
		return Strategies{Coding: p, Filter: p, Concat: p}
	case "geometry":
		return Strategies{Coding: geometryStrategy{}}
	}
	return Strategies{}
}
