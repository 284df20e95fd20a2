// File path: internal/sync/sources.go
package sync

import (
	"context"
	"fmt"

	"github.com/nyparchive/cortex-sync/internal/carlos"
	"github.com/nyparchive/cortex-sync/internal/cortex"
)

// SyncSources creates or updates the Source records for composers and
// artists. The remote Role field may carry values the exports never
// knew about, so roles are read back and unioned rather than replaced.
func (s *Syncer) SyncSources(ctx context.Context) error {
	composers, err := carlos.LoadSourceAccounts(s.cfg.PrepTable("source_accounts_composers.csv"))
	if err != nil {
		return fmt.Errorf("sync: load composers: %w", err)
	}
	s.logger.Info("sync: updating composer sources", "count", len(composers))
	for _, account := range composers {
		roles := s.mergedRoles(ctx, "CoreField.Composer-ID", account.ID, "Composer")
		req := cortex.NewRequest(cortex.EntitySource, cortex.ActionCreateOrUpdate,
			cortex.Key("CoreField.Composer-ID", account.ID),
			cortex.Set("CoreField.First-name", account.First),
			cortex.Set("CoreField.Middle-initial", account.Middle),
			cortex.Set("CoreField.Last-name", account.Last),
			cortex.Set("CoreField.Birth-Year", account.BirthYear),
			cortex.Set("CoreField.Death-Year", account.DeathYear),
			cortex.Set("CoreField.Role", JoinRoles(roles)))
		s.apply(ctx, req, account.ID, "source: composer")
	}

	artists, err := carlos.LoadSourceAccounts(s.cfg.PrepTable("source_accounts_artists.csv"))
	if err != nil {
		return fmt.Errorf("sync: load artists: %w", err)
	}
	s.logger.Info("sync: updating artist sources", "count", len(artists))
	for _, account := range artists {
		roles := s.mergedRoles(ctx, "CoreField.Artist-ID", account.ID, account.Roles)
		req := cortex.NewRequest(cortex.EntitySource, cortex.ActionCreateOrUpdate,
			cortex.Key("CoreField.Artist-ID", account.ID),
			cortex.Set("CoreField.First-name", account.First),
			cortex.Set("CoreField.Middle-initial", account.Middle),
			cortex.Set("CoreField.Last-name", account.Last),
			cortex.Set("CoreField.Birth-Year", account.BirthYear),
			cortex.Set("CoreField.Death-Year", account.DeathYear),
			cortex.Set("CoreField.Role", JoinRoles(roles)),
			cortex.Set("CoreField.Orchestra-Membership", account.Orchestra),
			cortex.Set("CoreField.Orchestra-Membership-Year", account.OrchestraYears))
		s.apply(ctx, req, account.ID, "source: artist")
	}
	return nil
}

// mergedRoles reads the remote record's current roles and unions the
// incoming ones in. A failed or empty read yields just the incoming
// roles, which is the create path.
func (s *Syncer) mergedRoles(ctx context.Context, keyField, keyValue, incoming string) []string {
	existing := ""
	result, err := s.client.Read(ctx, cortex.EntitySource, keyField, keyValue)
	if err != nil {
		s.logger.Warn("sync: role read failed", "id", keyValue, "error", err)
	} else if result.Count > 0 {
		existing = result.Get("CoreField.Role")
	}
	merged := MergeRoles(existing, incoming)
	if len(merged) > len(MergeRoles(existing)) {
		s.logger.Info("sync: adding roles", "id", keyValue, "roles", incoming)
	}
	return merged
}
