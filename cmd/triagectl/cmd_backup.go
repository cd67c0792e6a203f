package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jnyross/openclaw-email-triage-v1-plugin/internal/backup"
)

func init() {
	rootCmd.AddCommand(backupCmd, restoreCmd, envRestoreCmd)

	backupCmd.Flags().StringSlice("path", nil, "source path to back up (repeatable)")
	backupCmd.Flags().String("output-dir", ".", "directory to write the snapshot into")
	backupCmd.Flags().Bool("allow-missing", false, "record missing source paths instead of failing")
	backupCmd.Flags().Bool("archive", true, "also pack the snapshot into a tar.gz")
	backupCmd.Flags().StringSlice("env", nil, "environment variable to capture (repeatable)")
	backupCmd.MarkFlagRequired("path")

	restoreCmd.Flags().String("snapshot", "", "snapshot directory to restore from")
	restoreCmd.Flags().String("target-root", "/", "root directory to restore into")
	restoreCmd.Flags().Bool("apply", false, "actually write files (dry run otherwise)")
	restoreCmd.Flags().StringSlice("include", nil, "restrict restore to these source paths")
	restoreCmd.MarkFlagRequired("snapshot")

	envRestoreCmd.Flags().String("snapshot", "", "snapshot directory holding captured env vars")
	envRestoreCmd.Flags().String("output", "", "shell script path to write")
	envRestoreCmd.Flags().String("shell", "sh", "shell dialect (sh, bash, zsh)")
	envRestoreCmd.MarkFlagRequired("snapshot")
	envRestoreCmd.MarkFlagRequired("output")
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Snapshot runtime files and environment for rollback",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, _ := cmd.Flags().GetStringSlice("path")
		outputDir, _ := cmd.Flags().GetString("output-dir")
		allowMissing, _ := cmd.Flags().GetBool("allow-missing")
		archive, _ := cmd.Flags().GetBool("archive")
		envVars, _ := cmd.Flags().GetStringSlice("env")

		result, err := backup.CreateSnapshot(backup.CreateOptions{
			SourcePaths:   paths,
			OutputDir:     outputDir,
			AllowMissing:  allowMissing,
			CreateArchive: archive,
			EnvVars:       envVars,
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "Snapshot: %s\n", result.SnapshotDir)
		fmt.Fprintf(os.Stdout, "Metadata: %s\n", result.MetadataPath)
		if result.ArchivePath != "" {
			fmt.Fprintf(os.Stdout, "Archive:  %s\n", result.ArchivePath)
		}
		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore files from a snapshot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		snapshot, _ := cmd.Flags().GetString("snapshot")
		targetRoot, _ := cmd.Flags().GetString("target-root")
		apply, _ := cmd.Flags().GetBool("apply")
		include, _ := cmd.Flags().GetStringSlice("include")

		actions, err := backup.RestoreSnapshot(backup.RestoreOptions{
			SnapshotDir:        snapshot,
			TargetRoot:         targetRoot,
			Apply:              apply,
			IncludeSourcePaths: include,
		})
		if err != nil {
			return err
		}

		for _, action := range actions {
			verb := "would restore"
			if action.Applied {
				verb = "restored"
			}
			fmt.Fprintf(os.Stdout, "%s %s %s -> %s\n", verb, action.Kind, action.Source, action.Destination)
		}
		if !apply {
			fmt.Fprintln(os.Stdout, "Dry run; pass --apply to write files.")
		}
		return nil
	},
}

var envRestoreCmd = &cobra.Command{
	Use:   "env-restore",
	Short: "Write a shell script restoring a snapshot's captured env vars",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		snapshot, _ := cmd.Flags().GetString("snapshot")
		output, _ := cmd.Flags().GetString("output")
		shell, _ := cmd.Flags().GetString("shell")

		if err := backup.WriteEnvRestoreFile(snapshot, output, shell); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Wrote %s\n", output)
		return nil
	},
}
