package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/webverselabs/webverse/internal/log"
	"github.com/webverselabs/webverse/internal/webverse/api"
	"github.com/webverselabs/webverse/internal/webverse/cache"
)

var profileCmd = &cobra.Command{
	Use:     "profile",
	Aliases: []string{"stats"},
	Short:   "Show account or device stats",
	Long: `Show XP, rank and streak information.

When logged in the account profile is shown; otherwise the anonymous
per-device stats. Both are served through the synchronization cache
with a slightly longer TTL than the hot progress views.`,
	Example: `  # Show stats
  webverse profile`,
	Run: func(_ *cobra.Command, _ []string) {
		ctx := context.Background()
		a := mustApp(ctx)
		defer a.close()

		if a.gate.Authenticated() {
			p, err := cachedProfile(ctx, a)
			if err != nil {
				log.Error("Failed to load profile: %v", err)
				os.Exit(1)
			}
			log.Info("%s  (%s, %d XP)", p.Username, p.Rank, p.XP)
			if p.NextRank != "" {
				log.InfoH2("Next rank %s at %d XP", p.NextRank, p.NextRankXP)
			}
			log.InfoH2("%d labs solved, %d started, %d day streak",
				p.LabsSolved, p.LabsStarted, p.StreakDays)
			return
		}

		if a.gate.Locked(ctx) {
			log.Error("This device is linked to an account. Run 'webverse login' to see your stats.")
			os.Exit(1)
		}

		st, err := cachedStats(ctx, a)
		if err != nil {
			log.Error("Failed to load device stats: %v", err)
			os.Exit(1)
		}
		log.Info("Anonymous device  (%s, %d XP)", st.Rank, st.XP)
		if st.NextRank != "" {
			log.InfoH2("Next rank %s at %d XP", st.NextRank, st.NextRankXP)
		}
		log.InfoH2("%d labs solved, %d started, %d day streak",
			st.LabsSolved, st.LabsStarted, st.StreakDays)
	},
}

func cachedProfile(ctx context.Context, a *app) (*api.Profile, error) {
	if v, ok := a.cache.Get(cache.KeyProfile); ok {
		return v.(*api.Profile), nil
	}
	p, err := a.api.Me(ctx)
	if err != nil {
		return nil, err
	}
	a.cache.Put(cache.KeyProfile, p)
	return p, nil
}

func cachedStats(ctx context.Context, a *app) (*api.DeviceStats, error) {
	if v, ok := a.cache.Get(cache.KeyStats); ok {
		return v.(*api.DeviceStats), nil
	}
	st, err := a.api.DeviceStats(ctx, a.deviceID)
	if err != nil {
		return nil, err
	}
	a.cache.Put(cache.KeyStats, st)
	return st, nil
}

func init() {
	rootCmd.AddCommand(profileCmd)
}
