package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	snapshotsDir    string
	snapshotsDBPath string
	snapshotsTripID string
	snapshotsFull   bool
)

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List the snapshots recorded for a trip",
	RunE:  runSnapshots,
}

func init() {
	snapshotsCmd.Flags().StringVar(&snapshotsDir, "dir", "", "snapshot directory of a file-backed store")
	snapshotsCmd.Flags().StringVar(&snapshotsDBPath, "db", "", "database path of a sqlite-backed store")
	snapshotsCmd.Flags().StringVar(&snapshotsTripID, "trip", "", "trip identifier (required)")
	snapshotsCmd.Flags().BoolVar(&snapshotsFull, "full", false, "print full snapshots as JSON instead of a summary")
	snapshotsCmd.MarkFlagRequired("trip")
	snapshotsCmd.MarkFlagsOneRequired("dir", "db")
	snapshotsCmd.MarkFlagsMutuallyExclusive("dir", "db")
	rootCmd.AddCommand(snapshotsCmd)
}

func runSnapshots(cmd *cobra.Command, args []string) error {
	store, closeStore, err := openStore(snapshotsDir, snapshotsDBPath)
	if err != nil {
		return err
	}
	defer closeStore()

	snaps, err := store.LoadTripSnapshots(snapshotsTripID)
	if err != nil {
		return fmt.Errorf("loading snapshots: %w", err)
	}

	if snapshotsFull {
		out, err := json.MarshalIndent(snaps, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	for i, snap := range snaps {
		fmt.Printf("%3d  %s  policy=%.12s  snapshot=%.12s  chain=%.12s\n",
			i,
			snap.Timestamp.Format(time.RFC3339),
			snap.PolicyVersion,
			snap.SnapshotHash,
			snap.ChainHash)
	}
	fmt.Printf("%d snapshot(s) for trip %q\n", len(snaps), snapshotsTripID)
	return nil
}
