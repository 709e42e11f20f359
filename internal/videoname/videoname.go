// Package videoname parses raw upload filenames into their meaningful pieces.
//
// Uploaded clips are named
//
//	videoStream_<studyId>_<frameId>_<sessionId>_<timestamp>_<random>.flv
//
// e.g. videoStream_583c892ec0d9d70082123d94_1-video-consent_58474acfc0d9d70082123db6_1481233949736_405.flv
//
// Preview recordings made from the experimenter site carry the literal
// PREVIEW_DATA_DISREGARD marker in place of a session id. An earlier naming
// scheme used '-' between pieces; that scheme is not supported here and such
// names simply fail to parse.
package videoname

import (
	"errors"
	"strings"
)

// Ext is the container extension raw uploads arrive with.
const Ext = ".flv"

// PreviewSentinel is the session id recorded for experimenter-preview clips,
// which have no corresponding session or coding data.
const PreviewSentinel = "PREVIEW_DATA_DISREGARD"

// ErrMalformedName indicates a filename that does not follow the expected
// naming scheme. Callers treat this as a per-file condition, not a fault.
var ErrMalformedName = errors.New("malformed video filename")

// Identifier is the decomposition of one raw upload filename.
type Identifier struct {
	StudyID   string
	FrameID   string
	SessionID string // PreviewSentinel for experimenter-preview clips

	// Timestamp is the trailing <timestamp>_<random> token. It is treated as
	// opaque; its only use is lexicographic ordering of clips within a
	// session, which matches recording order because the first piece is a
	// fixed-width epoch-milliseconds value.
	Timestamp string

	// ShortName is the fragment the session's frame data records as the
	// expected video id: the filename minus the leading stream prefix and the
	// trailing timestamp/random pieces. Matching expected-to-received videos
	// compares against this exact reconstruction, so it must not be rebuilt
	// from the parsed fields.
	ShortName string
}

// Parse decomposes a raw video filename. The name must end in .flv and its
// stem must split on '_' into at least four pieces; anything else returns
// ErrMalformedName.
func Parse(filename string) (Identifier, error) {
	if !strings.HasSuffix(filename, Ext) {
		return Identifier{}, ErrMalformedName
	}
	stem := strings.TrimSuffix(filename, Ext)
	pieces := strings.Split(stem, "_")
	if len(pieces) < 4 {
		return Identifier{}, ErrMalformedName
	}

	id := Identifier{
		StudyID:   pieces[1],
		FrameID:   pieces[2],
		SessionID: pieces[3],
		Timestamp: strings.Join(pieces[len(pieces)-2:], "_"),
		ShortName: strings.Join(pieces[1:len(pieces)-2], "_"),
	}
	if strings.Contains(filename, PreviewSentinel) {
		id.SessionID = PreviewSentinel
	}
	return id, nil
}

// Matches reports whether a parsed clip's short name satisfies an expected
// video id from session frame data. Older frame data records the short name
// verbatim; newer frame data appends extra qualifiers, so containment of the
// short name within the expected string also counts as a match.
func Matches(shortName, expected string) bool {
	return shortName == expected || strings.Contains(expected, shortName)
}
