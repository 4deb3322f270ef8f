package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mwantia/dicomweb"
	"github.com/spf13/cobra"
)

var ingestStudy string

var ingestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Store local DICOM files without running the server",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestStudy, "study", "", "Reject objects that do not belong to this StudyInstanceUID")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	objects := make([]dicomweb.Object, 0, len(args))
	for _, path := range args {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read '%s': %w", path, err)
		}
		objects = append(objects, dicomweb.Object{
			Filename: filepath.Base(path),
			Content:  content,
		})
	}

	svc, err := openService(cmd, false)
	if err != nil {
		return err
	}
	defer svc.Close(ctx)

	result := svc.Ingest(ctx, objects, ingestStudy)

	out := cmd.OutOrStdout()
	for _, outcome := range result.Succeeded {
		fmt.Fprintf(out, "stored  %s  %s/%s/%s\n", outcome.Filename,
			outcome.StudyInstanceUID(), outcome.SeriesInstanceUID(), outcome.SOPInstanceUID())
	}
	for _, outcome := range result.Failed {
		fmt.Fprintf(out, "failed  %s  0x%04X  %v\n", outcome.Filename, outcome.FailureReason(), outcome.Err)
	}
	fmt.Fprintf(out, "%s: %d stored, %d failed\n", result.Status(), len(result.Succeeded), len(result.Failed))

	if result.Status() == dicomweb.IngestFailed {
		return fmt.Errorf("no objects were stored")
	}
	return nil
}
