package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"storebench/internal/audit"
)

var (
	auditDir          string
	auditReport       string
	auditPreviewURL   string
	auditNoLighthouse bool
	auditNoInstall    bool
	auditWatch        bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Analyze build output size and run a performance audit",
	Long:  "audit measures the JavaScript files of a production build, optionally runs Lighthouse against the preview server and writes a JSON report.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ac := appCfg.AuditConfig()
		if auditDir != "" {
			ac.Dir = auditDir
		}
		if auditReport != "" {
			ac.ReportPath = auditReport
		}
		if auditPreviewURL != "" {
			ac.PreviewURL = auditPreviewURL
		}
		if auditNoLighthouse {
			ac.Lighthouse = false
		}
		if auditNoInstall {
			ac.Install = false
		}
		perf := audit.NewLighthouseAuditor(audit.ExecRunner{Stream: os.Stderr}, appCfg.Audit.LighthouseOutput)
		a := audit.New(ac, perf, cmd.OutOrStdout(), logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if !auditWatch {
			_, err := a.Run(ctx)
			return err
		}
		runOnce := func(ctx context.Context) {
			if _, err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("audit failed", "err", err)
			}
		}
		runOnce(ctx)
		dir := a.Config().Dir
		logger.Info("watching build output", "dir", dir)
		return audit.Watch(ctx, dir, appCfg.WatchDebounce(), runOnce)
	},
}

func init() {
	auditCmd.Flags().StringVar(&auditDir, "dir", "", "Build output directory; defaults to config (dist)")
	auditCmd.Flags().StringVar(&auditReport, "report", "", "Report path; defaults to config (benchmark-report.json)")
	auditCmd.Flags().StringVar(&auditPreviewURL, "preview-url", "", "Preview server URL audited by Lighthouse")
	auditCmd.Flags().BoolVar(&auditNoLighthouse, "no-lighthouse", false, "Skip the Lighthouse performance audit")
	auditCmd.Flags().BoolVar(&auditNoInstall, "no-install", false, "Do not install Lighthouse when it is missing")
	auditCmd.Flags().BoolVar(&auditWatch, "watch", false, "Re-run the audit whenever the build output changes")
}
