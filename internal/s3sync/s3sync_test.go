package s3sync

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type fakeStore struct {
	pages   [][]string
	fetched []string
}

func (f *fakeStore) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	idx := 0
	if params.ContinuationToken != nil {
		idx = int((*params.ContinuationToken)[0] - '0')
	}
	keys := f.pages[idx]
	out := &s3.ListObjectsV2Output{}
	for i := range keys {
		out.Contents = append(out.Contents, types.Object{Key: &keys[i]})
	}
	truncated := idx < len(f.pages)-1
	out.IsTruncated = &truncated
	if truncated {
		next := string(rune('0' + idx + 1))
		out.NextContinuationToken = &next
	}
	return out, nil
}

func (f *fakeStore) GetObject(ctx context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.fetched = append(f.fetched, *params.Key)
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader("flv-bytes"))}, nil
}

func TestPull(t *testing.T) {
	videoDir := t.TempDir()
	existing := "videoStream_s1_1-consent_a_100_1.flv"
	if err := os.WriteFile(filepath.Join(videoDir, existing), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := &fakeStore{pages: [][]string{
		{"uploads/" + existing, "uploads/videoStream_s1_2-trial_a_200_2.flv"},
		{"uploads/videoStream_s1_3-trial_a_300_3.flv", "uploads/notes.txt"},
	}}
	syncer := New(store, "lookit-videos", videoDir)

	newFiles, err := syncer.Pull(context.Background())
	if err != nil {
		t.Fatalf("Pull: %v", err)
	}

	want := []string{"videoStream_s1_2-trial_a_200_2.flv", "videoStream_s1_3-trial_a_300_3.flv"}
	if len(newFiles) != 2 || newFiles[0] != want[0] || newFiles[1] != want[1] {
		t.Errorf("newFiles = %v, want %v", newFiles, want)
	}
	// The already-present file and the non-video object were never fetched.
	if len(store.fetched) != 2 {
		t.Errorf("fetched = %v", store.fetched)
	}
	for _, name := range want {
		data, err := os.ReadFile(filepath.Join(videoDir, name))
		if err != nil || string(data) != "flv-bytes" {
			t.Errorf("downloaded file %s wrong: %q, %v", name, data, err)
		}
	}
	// No partial downloads left around.
	entries, _ := os.ReadDir(videoDir)
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".part") {
			t.Errorf("leftover partial file %s", e.Name())
		}
	}

	// Re-running pulls nothing new.
	again, err := syncer.Pull(context.Background())
	if err != nil || len(again) != 0 {
		t.Errorf("second Pull = %v, %v", again, err)
	}
}
