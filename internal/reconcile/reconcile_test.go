package reconcile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mekline/lookit-data-processing/internal/ffmpegcmd"
	"github.com/mekline/lookit-data-processing/internal/paths"
	"github.com/mekline/lookit-data-processing/internal/records"
	"github.com/mekline/lookit-data-processing/internal/study"
)

const (
	studyID    = "57bc591dc0d9d70055f775db"
	sessionID  = "58474acfc0d9d70082123db6"
	consentVid = studyID + "_1-video-consent_" + sessionID
	trialVid   = studyID + "_5-pref-phys-videos_" + sessionID

	consentFile = "video-record_" + consentVid + "_1462230998000_123.flv"
	trialFile   = "video-record_" + trialVid + "_1462231050000_456.flv"
)

const rawJSON = `{
	"streams": [
		{"codec_type": "video", "duration": "10.0", "nb_frames": "300"},
		{"codec_type": "audio", "duration": "10.0"}
	],
	"format": {"duration": "10.0", "bit_rate": "512000"}
}`

const clipJSON = `{
	"streams": [
		{"codec_type": "video", "duration": "10.0"},
		{"codec_type": "audio", "duration": "10.0"}
	],
	"format": {"duration": "10.0"}
}`

func sessionKey() string {
	return paths.SessionKey(studyID, sessionID)
}

func testLayout(t *testing.T) *paths.Layout {
	t.Helper()
	return &paths.Layout{
		VideoDir:   t.TempDir(),
		SessionDir: t.TempDir(),
		BatchDir:   t.TempDir(),
		DataDir:    t.TempDir(),
		CodingDir:  t.TempDir(),
	}
}

func testFake(joinedDur string) *ffmpegcmd.FakeRunner {
	fake := &ffmpegcmd.FakeRunner{Respond: map[string]string{
		".flv":             rawJSON,
		"_whole_video.mp4": clipJSON,
		"_whole.mp4":       clipJSON,
		sessionID + ".mp4": `{"streams": [{"codec_type": "video", "duration": "` + joinedDur + `"}], "format": {"duration": "` + joinedDur + `"}}`,
	}}
	fake.OnCall = func(c ffmpegcmd.FakeCall) {
		if c.Name != "ffmpeg" {
			return
		}
		if out := c.Output(); strings.HasSuffix(out, ".mp4") || strings.HasSuffix(out, ".m4a") {
			os.WriteFile(out, []byte("media"), 0o644)
		}
	}
	return fake
}

func testSession() records.SessionRecord {
	return records.SessionRecord{
		ID: sessionID,
		Attributes: map[string]any{
			"expData": map[string]any{
				"1-video-consent":    map[string]any{"videoId": consentVid},
				"5-pref-phys-videos": map[string]any{"videoId": trialVid},
			},
		},
	}
}

func newReconciler(t *testing.T, fake *ffmpegcmd.FakeRunner) *Reconciler {
	t.Helper()
	r, err := New(testLayout(t), &study.Settings{ID: studyID}, fake)
	if err != nil {
		t.Fatal(err)
	}
	r.Sessions[sessionKey()] = testSession()
	return r
}

func writeRawVideos(t *testing.T, r *Reconciler, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(r.Layout.VideoDir, name), []byte("flv"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestUpdateVideoData(t *testing.T) {
	fake := testFake("20.0")
	r := newReconciler(t, fake)
	writeRawVideos(t, r,
		consentFile,
		trialFile,
		"video-record_"+studyID+"_2-video-preview_PREVIEW_DATA_DISREGARD_1462230998000_1.flv",
		"video-record_"+studyID+"_1-video-consent_unknownsession_1462230998000_2.flv",
		"not-a-lookit-video.flv",
		"video-record_otherstudy_1-video-consent_xyz_1462230998000_3.flv",
	)

	scan, err := r.UpdateVideoData(false)
	if err != nil {
		t.Fatalf("UpdateVideoData: %v", err)
	}

	if len(scan.SessionsAffected) != 1 || scan.SessionsAffected[0] != sessionKey() {
		t.Errorf("SessionsAffected = %v", scan.SessionsAffected)
	}
	if len(scan.Improper) != 1 || scan.Improper[0] != "not-a-lookit-video.flv" {
		t.Errorf("Improper = %v", scan.Improper)
	}
	if len(scan.Unmatched) != 1 || !strings.Contains(scan.Unmatched[0], "unknownsession") {
		t.Errorf("Unmatched = %v", scan.Unmatched)
	}

	rec := r.Videos[consentFile]
	if rec == nil {
		t.Fatal("no record for consent video")
	}
	if rec.SessionKey != sessionKey() || rec.ShortName != consentVid {
		t.Errorf("record identity: %+v", rec)
	}
	if rec.Duration != 10 || rec.Framerate != 30 || rec.Bitrate != 512000 {
		t.Errorf("probed values: %+v", rec)
	}
	// Preview and other-study files get no records at all.
	if len(r.Videos) != 2 {
		t.Errorf("expected 2 records, got %d", len(r.Videos))
	}
}

func TestUpdateVideoDataReplaceClearsClips(t *testing.T) {
	fake := testFake("20.0")
	r := newReconciler(t, fake)
	writeRawVideos(t, r, consentFile)

	if _, err := r.UpdateVideoData(false); err != nil {
		t.Fatal(err)
	}
	r.Videos[consentFile].ClipPaths["whole"] = "old_whole.mp4"

	// Without replace the record is untouched.
	if _, err := r.UpdateVideoData(false); err != nil {
		t.Fatal(err)
	}
	if r.Videos[consentFile].ClipPaths["whole"] != "old_whole.mp4" {
		t.Error("plain rescan cleared clip results")
	}

	if _, err := r.UpdateVideoData(true); err != nil {
		t.Fatal(err)
	}
	if len(r.Videos[consentFile].ClipPaths) != 0 {
		t.Error("replace did not clear clip results")
	}
}

func TestUpdateCodingAndVideosFound(t *testing.T) {
	fake := testFake("20.0")
	r := newReconciler(t, fake)
	writeRawVideos(t, r, consentFile) // trial video missing

	if _, err := r.UpdateVideoData(false); err != nil {
		t.Fatal(err)
	}
	newN, err := r.UpdateCoding()
	if err != nil {
		t.Fatal(err)
	}
	if newN != 1 {
		t.Errorf("new sessions = %d, want 1", newN)
	}

	coding := r.Coding[sessionKey()]
	if coding == nil {
		t.Fatal("no coding record created")
	}
	if coding.Consent != "orig" {
		t.Errorf("template consent = %q", coding.Consent)
	}
	want := []string{consentVid, trialVid}
	if len(coding.VideosExpected) != 2 || coding.VideosExpected[0] != want[0] || coding.VideosExpected[1] != want[1] {
		t.Errorf("VideosExpected = %v, want %v", coding.VideosExpected, want)
	}

	if err := r.UpdateVideosFound(); err != nil {
		t.Fatal(err)
	}
	// Found groups stay index-aligned with expectations even when empty.
	if len(coding.VideosFound) != len(coding.VideosExpected) {
		t.Fatalf("groups = %d, expected = %d", len(coding.VideosFound), len(coding.VideosExpected))
	}
	if len(coding.VideosFound[0]) != 1 || coding.VideosFound[0][0] != consentFile {
		t.Errorf("consent group = %v", coding.VideosFound[0])
	}
	if len(coding.VideosFound[1]) != 0 {
		t.Errorf("missing trial should yield empty group, got %v", coding.VideosFound[1])
	}
}

func runFullPipeline(t *testing.T, r *Reconciler) []string {
	t.Helper()
	if _, err := r.UpdateVideoData(false); err != nil {
		t.Fatal(err)
	}
	if _, err := r.UpdateCoding(); err != nil {
		t.Fatal(err)
	}
	if err := r.UpdateVideosFound(); err != nil {
		t.Fatal(err)
	}
	if err := r.ProcessClips(false); err != nil {
		t.Fatal(err)
	}
	made, err := r.ConcatenateSessions(false)
	if err != nil {
		t.Fatal(err)
	}
	return made
}

func TestPipelineConcatenatesInTimestampOrder(t *testing.T) {
	fake := testFake("20.0")
	r := newReconciler(t, fake)
	writeRawVideos(t, r, trialFile, consentFile)

	made := runFullPipeline(t, r)
	if len(made) != 1 || made[0] != sessionKey() {
		t.Fatalf("made = %v", made)
	}

	var concatArgs string
	for _, c := range fake.Calls {
		if c.Name == "ffmpeg" && strings.Contains(strings.Join(c.Args, " "), "concat=n=") {
			concatArgs = strings.Join(c.Args, " ")
		}
	}
	if concatArgs == "" {
		t.Fatal("no concat invocation recorded")
	}
	// The consent recording has the earlier timestamp and must come first.
	ci := strings.Index(concatArgs, "1-video-consent")
	ti := strings.Index(concatArgs, "5-pref-phys-videos")
	if ci < 0 || ti < 0 || ci > ti {
		t.Errorf("clips out of order: %s", concatArgs)
	}

	coding := r.Coding[sessionKey()]
	if coding.ConcatPath != sessionKey()+".mp4" {
		t.Errorf("ConcatPath = %q", coding.ConcatPath)
	}
	if coding.ExpectedDuration != 20 || coding.ActualDuration != 20 {
		t.Errorf("durations = %v / %v", coding.ExpectedDuration, coding.ActualDuration)
	}
}

func TestPipelineIsIdempotent(t *testing.T) {
	fake := testFake("20.0")
	r := newReconciler(t, fake)
	writeRawVideos(t, r, trialFile, consentFile)
	runFullPipeline(t, r)

	fake.Calls = nil
	runFullPipeline(t, r)
	if len(fake.Calls) != 0 {
		t.Errorf("second run made %d external invocations, want 0", len(fake.Calls))
	}
}

func TestConcatenateRecordsDrift(t *testing.T) {
	// Joined output probes at 25s against 20s of summed clips.
	fake := testFake("25.0")
	r := newReconciler(t, fake)
	writeRawVideos(t, r, trialFile, consentFile)

	runFullPipeline(t, r)
	coding := r.Coding[sessionKey()]
	if coding.ExpectedDuration != 20 || coding.ActualDuration != 25 {
		t.Errorf("durations = %v / %v", coding.ExpectedDuration, coding.ActualDuration)
	}
}

func TestConcatenateConsentGate(t *testing.T) {
	fake := testFake("20.0")
	r := newReconciler(t, fake)
	r.Settings.OnlyConcatIfConsent = true
	writeRawVideos(t, r, consentFile)

	made := runFullPipeline(t, r)
	if len(made) != 0 {
		t.Errorf("unconsented session was concatenated: %v", made)
	}

	r.Coding[sessionKey()].Consent = "yes"
	made, err := r.ConcatenateSessions(false)
	if err != nil {
		t.Fatal(err)
	}
	if len(made) != 1 {
		t.Errorf("consented session not concatenated: %v", made)
	}
}

func TestConcatenateSkipsWithdrawn(t *testing.T) {
	fake := testFake("20.0")
	r := newReconciler(t, fake)
	sess := testSession()
	exp := sess.Attributes["expData"].(map[string]any)
	exp["40-exit-survey"] = map[string]any{"withdrawal": true}
	r.Sessions[sessionKey()] = sess
	writeRawVideos(t, r, consentFile)

	made := runFullPipeline(t, r)
	if len(made) != 0 {
		t.Errorf("withdrawn session was concatenated: %v", made)
	}
}
