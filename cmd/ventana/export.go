package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aqclab/ventana/recording"
)

var exportCmd = &cobra.Command{
	Use:   "export [database]",
	Short: "Export a results database to CSV files.",
	Long: "`export results.sqlite3` writes detections.csv, follow_ups.csv, " +
		"and run_info.csv next to the current directory or into --out.",
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		outDir, _ := cmd.Flags().GetString("out")

		err := exportCSV(args[0], outDir)
		if err != nil {
			log.Fatalf("Error exporting: %v", err)
		}
	},
}

func exportCSV(dbPath, outDir string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
				return
			}
			err = fmt.Errorf("%v", r)
		}
	}()

	if _, err := os.Stat(dbPath); err != nil {
		return err
	}

	reader := recording.NewReader(strings.TrimSuffix(dbPath, ".sqlite3"))
	defer reader.Close()

	reader.MapTable(recording.TableDetections, recording.DetectionRow{})
	reader.MapTable(recording.TableFollowUps, recording.FollowUpRow{})
	reader.MapTable(recording.TableRunInfo, recording.RunInfoRow{})

	if outDir == "" {
		outDir = "."
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}

	if err := exportDetections(reader, outDir); err != nil {
		return err
	}
	if err := exportFollowUps(reader, outDir); err != nil {
		return err
	}
	return exportRunInfo(reader, outDir)
}

func exportDetections(reader *recording.SQLiteReader, outDir string) error {
	rows, _ := reader.Query(recording.TableDetections, recording.QueryParams{
		OrderBy: "Chunk, Channel, TimestampMu",
	})

	f, err := os.Create(filepath.Join(outDir, "detections.csv"))
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Fprintf(f, "Chunk, Channel, TimestampMu, AttemptIndex\n")
	for _, row := range rows {
		r := row.(recording.DetectionRow)
		fmt.Fprintf(f, "%d, %d, %d, %d\n",
			r.Chunk, r.Channel, r.TimestampMu, r.AttemptIndex)
	}

	return nil
}

func exportFollowUps(reader *recording.SQLiteReader, outDir string) error {
	rows, _ := reader.Query(recording.TableFollowUps, recording.QueryParams{
		OrderBy: "Chunk, TimestampMu",
	})

	f, err := os.Create(filepath.Join(outDir, "follow_ups.csv"))
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Fprintf(f, "Chunk, TimestampMu, AttemptIndex\n")
	for _, row := range rows {
		r := row.(recording.FollowUpRow)
		fmt.Fprintf(f, "%d, %d, %d\n", r.Chunk, r.TimestampMu, r.AttemptIndex)
	}

	return nil
}

func exportRunInfo(reader *recording.SQLiteReader, outDir string) error {
	rows, _ := reader.Query(recording.TableRunInfo, recording.QueryParams{})

	f, err := os.Create(filepath.Join(outDir, "run_info.csv"))
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Fprintf(f, "Property, Value\n")
	for _, row := range rows {
		r := row.(recording.RunInfoRow)
		fmt.Fprintf(f, "%s, %s\n", r.Property, r.Value)
	}

	return nil
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().String("out", "", "Directory to write the CSV files")
}
