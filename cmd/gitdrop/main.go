package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"gitdrop/internal/app"
	"gitdrop/internal/config"
	"gitdrop/internal/drop"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

var verbose bool

// newApp reads the config and creates an App. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "Publish", "Sync").
func newApp(operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.New(cfg, operation, app.Options{Verbose: verbose})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

var rootCmd = &cobra.Command{
	Use:          "gitdrop",
	Short:        "Publish content archives and backups into a git repository",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if repo, _ := cmd.Flags().GetString("repo"); repo != "" {
			abs, err := filepath.Abs(repo)
			if err != nil {
				return fmt.Errorf("resolving repository path: %w", err)
			}
			cfg.Repo.Path = abs
		}

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		if cfg.Repo.Path == "" {
			fmt.Println("Set repo.path before publishing.")
		}
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:    %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:     %s\n", cfg.LogDir)
		fmt.Printf("Repository:  %s\n", cfg.Repo.Path)
		fmt.Printf("Base Branch: %s\n", cfg.Publish.BaseBranch)
		fmt.Printf("Target:      %s\n", cfg.TargetRoot())
		fmt.Printf("Nest Dirs:   %s\n", strings.Join(cfg.Publish.NestDirs, ", "))
		fmt.Printf("Remote:      %s\n", cfg.Publish.Remote)
		fmt.Printf("Sync Apps:   %d\n", len(cfg.Sync.Apps))
		if err := cfg.Validate(); err != nil {
			fmt.Printf("\nWarning: %v\n", err)
		}
		return nil
	},
}

// publish command
var publishCmd = &cobra.Command{
	Use:   "publish [SOURCE]",
	Short: "Publish an archive on a fresh branch",
	Long: `Extract one zip archive and push its content on a new branch.

SOURCE is a zip file, a directory (the newest zip in it is used) or an
s3://bucket/prefix location. It defaults to publish.source.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var flags app.PublishFlags
		flags.BaseBranch, _ = cmd.Flags().GetString("base")
		flags.Target, _ = cmd.Flags().GetString("target")
		flags.Initials, _ = cmd.Flags().GetString("initials")
		flags.DeleteSource, _ = cmd.Flags().GetBool("delete-source")

		a, err := newApp("Publish")
		if err != nil {
			return err
		}
		defer a.Close()

		src := ""
		if len(args) > 0 {
			src = args[0]
		}

		res, err := a.Publish(cmd.Context(), src, flags)
		if err != nil {
			printPublishFailure(res, err)
			return fmt.Errorf("publish failed: %w", err)
		}

		switch {
		case res.Pushed:
			fmt.Printf("Published %s on branch %s\n", res.Unit.Name, res.Branch)
		case res.UpToDate:
			fmt.Printf("Branch %s already up to date\n", res.Branch)
		default:
			fmt.Printf("Nothing to publish for %s\n", res.Unit.Name)
		}
		return nil
	},
}

// printPublishFailure tells the operator what was left behind.
func printPublishFailure(res *drop.PublishResult, err error) {
	if res == nil {
		return
	}
	if kind := drop.KindOf(err); kind != nil {
		fmt.Fprintf(os.Stderr, "Failure:        %v\n", kind)
	}
	if res.Branch != "" {
		fmt.Fprintf(os.Stderr, "Branch:         %s\n", res.Branch)
	}
	if res.OriginalBranch != "" && res.OriginalBranch != res.Branch {
		fmt.Fprintf(os.Stderr, "Original:       %s\n", res.OriginalBranch)
	}
	if res.Stashed {
		fmt.Fprintln(os.Stderr, "Stash:          local changes are still stashed")
	}
	if res.StagingDir != "" {
		fmt.Fprintf(os.Stderr, "Staging Dir:    %s\n", res.StagingDir)
	}
	if res.BackupRef != "" {
		state := "reset to"
		if !res.RolledBack {
			state = "rollback failed at"
		}
		fmt.Fprintf(os.Stderr, "Backup Ref:     %s (%s)\n", res.BackupRef, state)
	}
}

// sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Mirror application backups into the repository",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Sync")
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Sync(cmd.Context())
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}

		switch {
		case len(res.Copied) == 0:
			fmt.Printf("No new backups (%d unchanged)\n", res.Unchanged)
		case res.Pushed:
			fmt.Printf("Synced %d backup(s)\n", len(res.Copied))
		default:
			fmt.Printf("Copied %d backup(s), nothing pushed\n", len(res.Copied))
		}
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View recorded runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("History")
		if err != nil {
			return err
		}
		defer a.Close()

		runs, err := a.History(limit)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}

		for _, r := range runs {
			duration := ""
			if r.FinishedAt.Valid {
				duration = r.FinishedAt.Time.Sub(r.StartedAt).Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-8s  %s  %-8s  %-10s  %s\n",
				r.ID,
				r.Operation,
				r.StartedAt.Local().Format("2006-01-02 15:04:05"),
				r.Status,
				duration,
				r.Unit,
			)
			if r.Branch != "" {
				fmt.Printf("      branch:  %s\n", r.Branch)
			}
			if r.StagingDir != "" {
				fmt.Printf("      staging: %s\n", r.StagingDir)
			}
			if r.BackupRef != "" {
				fmt.Printf("      backup:  %s\n", r.BackupRef)
			}
			if r.Error != "" {
				fmt.Printf("      error:   %s\n", r.Error)
			}
		}
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the age key pair for encrypted backups",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("KeysInit")
		if err != nil {
			return err
		}
		defer a.Close()

		if a.EncryptionConfigured() {
			return errors.New("encryption keys already exist")
		}

		passphrase, err := readNewPassphrase()
		if err != nil {
			return err
		}

		pub, err := a.KeysInit(passphrase)
		if err != nil {
			return err
		}
		fmt.Println("Encryption keys created.")
		if pub != "" {
			fmt.Printf("Public key: %s\n", pub)
		}
		return nil
	},
}

// decrypt command
var decryptCmd = &cobra.Command{
	Use:   "decrypt FILE",
	Short: "Decrypt a synced backup next to itself",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("resolving path: %w", err)
		}

		a, err := newApp("Decrypt")
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}

		out, err := a.Decrypt(path, passphrase)
		if err != nil {
			return err
		}
		fmt.Printf("Decrypted to %s\n", out)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log git commands and other debug output")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().String("repo", "", "Repository checkout to publish into")
	configCmd.AddCommand(configListCmd)

	// keys subcommands
	keysCmd.AddCommand(keysInitCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(publishCmd)
	publishCmd.Flags().StringP("base", "d", "", "Base branch to create the publish branch from")
	publishCmd.Flags().StringP("target", "t", "", "Target directory relative to the repository")
	publishCmd.Flags().String("initials", "", "Branch prefix (default: derived from the user name)")
	publishCmd.Flags().Bool("delete-source", false, "Remove the local archive after a successful publish")
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 20, "Maximum number of runs to show")
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(decryptCmd)
}
