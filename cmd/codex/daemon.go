package main

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	codex "github.com/codexhq/codex"
	"github.com/codexhq/codex/internal/store"
	"github.com/codexhq/codex/internal/ui"
	"github.com/codexhq/codex/internal/watch"
)

const pidFileName = "daemon.pid"

func init() {
	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	daemonCmd.AddCommand(daemonStatusCmd)
	daemonCmd.AddCommand(daemonRunCmd)
	rootCmd.AddCommand(daemonCmd)
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the background file watcher",
}

func pidFilePath(root string) string {
	return filepath.Join(root, store.Dir, pidFileName)
}

// readPid returns the recorded daemon pid, or 0 when no pid file
// exists or it is unparsable.
func readPid(root string) int {
	data, err := os.ReadFile(pidFilePath(root))
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}

// alive probes a pid with signal 0. A pid file's presence alone does
// not guarantee liveness.
func alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the watcher daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := discoverRoot()
		if err != nil {
			return err
		}
		if _, err := os.Stat(store.DBPath(root)); err != nil {
			return store.ErrNoIndex
		}
		if pid := readPid(root); alive(pid) {
			ui.Info("Daemon already running (pid %d)", pid)
			return nil
		}

		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("locate executable: %w", err)
		}
		child := exec.Command(exe, "daemon", "run")
		child.Env = append(os.Environ(), "CODEX_ROOT="+root)
		child.Stdout = nil
		child.Stderr = nil
		child.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
		if err := child.Start(); err != nil {
			return fmt.Errorf("start daemon: %w", err)
		}
		if err := os.WriteFile(pidFilePath(root), []byte(strconv.Itoa(child.Process.Pid)), 0o644); err != nil {
			return fmt.Errorf("write pid file: %w", err)
		}
		ui.Success("Daemon started (pid %d)", child.Process.Pid)
		return nil
	},
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the watcher daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := discoverRoot()
		if err != nil {
			return err
		}
		pid := readPid(root)
		if !alive(pid) {
			_ = os.Remove(pidFilePath(root))
			ui.Info("Daemon not running")
			return nil
		}
		proc, err := os.FindProcess(pid)
		if err == nil {
			_ = proc.Signal(syscall.SIGTERM)
		}
		_ = os.Remove(pidFilePath(root))
		ui.Success("Daemon stopped (pid %d)", pid)
		return nil
	},
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report daemon liveness",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := discoverRoot()
		if err != nil {
			return err
		}
		pid := readPid(root)
		if alive(pid) {
			ui.Info("Daemon running (pid %d)", pid)
			return nil
		}
		if pid != 0 {
			// Stale pid file left by a crashed daemon.
			_ = os.Remove(pidFilePath(root))
		}
		ui.Info("Daemon not running")
		return nil
	},
}

var daemonRunCmd = &cobra.Command{
	Use:    "run",
	Short:  "Run the watcher in the foreground",
	Args:   cobra.NoArgs,
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := discoverRoot()
		if err != nil {
			return err
		}
		engine, err := codex.OpenExisting(root, nil)
		if err != nil {
			return err
		}
		defer engine.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		watcher := watch.New(root, engine, nil)
		if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}
