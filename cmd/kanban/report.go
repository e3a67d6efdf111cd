package main

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"kanban/internal/board"
	"kanban/internal/models"
	"kanban/internal/report"
	"kanban/internal/service"
)

var (
	reportProject int64
	reportOut     string
	reportToday   string
	reportOwner   string
)

// reportCmd writes the printable HTML report of a project to disk.
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write a project's HTML report",
	Long: `Write the printable HTML report of a project.

Without --out the file is named project-<id>-report-<YYYYMMDD>.html in the
current directory.`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().Int64Var(&reportProject, "project", 0, "Project id")
	reportCmd.Flags().StringVar(&reportOut, "out", "", "Output file")
	reportCmd.Flags().StringVar(&reportToday, "today", "", "Reference date (YYYY-MM-DD) for deadline flags")
	reportCmd.Flags().StringVar(&reportOwner, "owner", "", "Only include tasks of this owner")
	_ = reportCmd.MarkFlagRequired("project")
}

func runReport(cmd *cobra.Command, args []string) error {
	if reportProject <= 0 {
		return fmt.Errorf("--project must be a positive id")
	}
	today, err := models.ParseDate(reportToday)
	if err != nil {
		return fmt.Errorf("--today: %w", err)
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	now := time.Now()
	svc := service.New(store, logger, cfg.OwnerMatch())
	var buf bytes.Buffer
	if err := svc.Report(cmd.Context(), &buf, reportProject, board.Options{Today: today, Owner: reportOwner}, now); err != nil {
		return err
	}

	out := reportOut
	if out == "" {
		out = report.Filename(reportProject, now)
	}
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	logger.Info("report written", slog.Int64("project_id", reportProject), slog.String("path", out))
	return nil
}
