package notify

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// SentLog is the append-only record of (recipient, campaign) pairs already
// mailed. It is consulted before every send so a re-run of a campaign only
// reaches families added since the last run.
type SentLog struct {
	path string
	seen map[string]bool
}

func sentKey(recipient, campaign string) string {
	return recipient + "\t" + campaign
}

// OpenSentLog loads the log at path, creating an empty one in memory if the
// file does not exist yet.
func OpenSentLog(path string) (*SentLog, error) {
	l := &SentLog{path: path, seen: map[string]bool{}}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening sent log %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			l.seen[line] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading sent log %s: %w", path, err)
	}
	return l, nil
}

// Sent reports whether the recipient already got this campaign.
func (l *SentLog) Sent(recipient, campaign string) bool {
	return l.seen[sentKey(recipient, campaign)]
}

// Record appends the pair to the log file and remembers it in memory.
func (l *SentLog) Record(recipient, campaign string) error {
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening sent log %s: %w", l.path, err)
	}
	defer f.Close()
	if _, err := fmt.Fprintln(f, sentKey(recipient, campaign)); err != nil {
		return fmt.Errorf("appending to sent log: %w", err)
	}
	l.seen[sentKey(recipient, campaign)] = true
	return nil
}
