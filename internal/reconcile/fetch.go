package reconcile

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/mekline/lookit-data-processing/internal/records"
	"github.com/mekline/lookit-data-processing/internal/store"
)

// Platform is the slice of the API client the reconciler needs.
type Platform interface {
	Sessions(ctx context.Context, studyID string) (map[string]records.SessionRecord, error)
	Accounts(ctx context.Context) (map[string]records.Account, error)
	UpdateFeedback(ctx context.Context, studyID, sessionID, feedback string) error
}

// UpdateSessionData refreshes the study's session data from the platform and
// snapshots it. Returns the number of sessions fetched.
func (r *Reconciler) UpdateSessionData(ctx context.Context, api Platform) (int, error) {
	sessions, err := api.Sessions(ctx, r.Settings.ID)
	if err != nil {
		return 0, err
	}
	r.Sessions = sessions
	if err := r.SaveSessions(); err != nil {
		return 0, err
	}
	log.Info().Int("sessions", len(sessions)).Str("study", r.Settings.Nickname).
		Msg("Session data updated")
	return len(sessions), nil
}

// UpdateAccountData refreshes the shared family-account snapshot.
func (r *Reconciler) UpdateAccountData(ctx context.Context, api Platform) (map[string]records.Account, error) {
	accounts, err := api.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	if err := store.Save(r.Layout.AccountDataFile(), accounts); err != nil {
		return nil, err
	}
	log.Info().Int("accounts", len(accounts)).Msg("Account data updated")
	return accounts, nil
}

// PushFeedback sends coded feedback to the platform for every session whose
// recorded feedback differs from what the coders wrote. Returns the session
// keys that were updated.
func (r *Reconciler) PushFeedback(ctx context.Context, api Platform) ([]string, error) {
	var updated []string
	for _, key := range sortedKeys(r.Coding) {
		coding := r.Coding[key]
		sess, ok := r.Sessions[key]
		if !ok || coding.Feedback == "" || coding.Feedback == sess.Feedback() {
			continue
		}
		if err := api.UpdateFeedback(ctx, r.Settings.ID, sess.ID, coding.Feedback); err != nil {
			return updated, err
		}
		sess.Attributes["feedback"] = coding.Feedback
		updated = append(updated, key)
	}
	if len(updated) > 0 {
		if err := r.SaveSessions(); err != nil {
			return updated, err
		}
	}
	log.Info().Int("updated", len(updated)).Msg("Feedback pushed")
	return updated, nil
}
