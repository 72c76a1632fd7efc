package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/drivekit/gdarch/internal/archive"
	"github.com/drivekit/gdarch/internal/auth"
	"github.com/drivekit/gdarch/internal/drive"
	"github.com/drivekit/gdarch/internal/engine"
	"github.com/drivekit/gdarch/internal/safety"
	"github.com/drivekit/gdarch/internal/store"
)

var (
	archiveFolderID    string
	archiveTokenJSON   string
	archiveTokenFile   string
	archiveName        string
	archiveOutputDir   string
	archiveCompression string
	archiveDelete      bool
	archiveKeepLocal   bool
)

func newArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Download a Drive folder into a compressed archive and upload it",
		Long: `Download every file under the given Drive folder into a single tar
archive, streaming each file directly into the archive without staging
it on disk first. The finished archive is uploaded to the folder's
parent; --delete-folder then removes the original folder.

Per-file download failures are skipped and the run continues. A folder
with no downloadable files is an error.`,
		Example: `  gdarch archive --folder-id 1AbC... --token-file token.json
  gdarch archive --folder-id 1AbC... --token-file token.json --delete-folder
  gdarch archive --folder-id 1AbC... --token '<TOKEN_JSON>' --compression zstd
  gdarch archive --folder-id 1AbC... --token-file token.json --output /tmp --keep-local`,
		RunE: archiveRun,
	}

	cmd.Flags().StringVar(&archiveFolderID, "folder-id", "", "Drive ID of the target folder (required)")
	cmd.Flags().StringVar(&archiveTokenJSON, "token", "", "OAuth2 token JSON string")
	cmd.Flags().StringVar(&archiveTokenFile, "token-file", "", "path to OAuth2 token JSON file (e.g. token.json)")
	cmd.Flags().StringVar(&archiveName, "archive-name", "", "name for the uploaded archive (defaults to folder name + extension)")
	cmd.Flags().StringVar(&archiveOutputDir, "output", "", "build the archive in this directory instead of a temp dir")
	cmd.Flags().StringVar(&archiveCompression, "compression", "", "compression format (xz or zstd)")
	cmd.Flags().BoolVar(&archiveDelete, "delete-folder", false, "delete the original folder after uploading")
	cmd.Flags().BoolVar(&archiveKeepLocal, "keep-local", false, "keep the local archive file after uploading")

	if err := cmd.MarkFlagRequired("folder-id"); err != nil {
		panic(err)
	}

	return cmd
}

func archiveRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	tokens, err := tokenSource()
	if err != nil {
		return err
	}

	compression := archiveCompression
	if compression == "" {
		compression = globalCfg.Archive.Compression
	}
	codec, err := archive.ParseCodec(compression)
	if err != nil {
		return err
	}

	client := drive.NewClient(tokens, drive.Options{
		BaseURL:   globalCfg.Drive.APIBaseURL,
		UploadURL: globalCfg.Drive.UploadBaseURL,
		PageSize:  globalCfg.Drive.PageSize,
		MaxPages:  globalCfg.Drive.MaxPages,
	}, logger)

	meta, err := client.GetMetadata(ctx, archiveFolderID)
	if err != nil {
		return fmt.Errorf("resolving folder %s: %w", archiveFolderID, err)
	}
	if len(meta.Parents) == 0 {
		return fmt.Errorf("folder %q has no parent; root-level folders cannot be replaced", meta.Name)
	}
	parentID := meta.Parents[0]

	name := archiveName
	if name == "" {
		name = safety.CleanFileName(meta.Name) + codec.Extension()
	}

	outDir := archiveOutputDir
	if outDir == "" {
		outDir = globalCfg.Archive.OutputDir
	}
	tempDir := ""
	if outDir == "" {
		tempDir, err = os.MkdirTemp("", "gdarch-*")
		if err != nil {
			return fmt.Errorf("creating temp directory: %w", err)
		}
		outDir = tempDir
	}
	if tempDir != "" && !archiveKeepLocal {
		defer func() {
			if err := os.RemoveAll(tempDir); err != nil {
				logger.Warn("failed to remove temp directory", "path", tempDir, "error", err)
			}
		}()
	}
	archivePath := filepath.Join(outDir, name)

	// Run history is best effort: a broken store never blocks archiving.
	st := openStore()
	if st != nil {
		defer st.Close()
	}
	run := &store.ArchiveRun{
		FolderID:    archiveFolderID,
		FolderName:  meta.Name,
		ArchiveName: name,
		Status:      "running",
		StartTime:   time.Now().UTC(),
	}
	recordRun := st != nil
	if recordRun {
		if err := st.CreateArchiveRun(run); err != nil {
			logger.Warn("failed to record run start", "error", err)
			recordRun = false
		}
	}
	finishRun := func(status, errMsg string) {
		if !recordRun {
			return
		}
		run.Status = status
		run.ErrorMessage = errMsg
		run.EndTime = time.Now().UTC()
		if err := st.UpdateArchiveRun(run); err != nil {
			logger.Warn("failed to record run result", "error", err)
		}
	}

	fmt.Printf("Archiving folder %q to %s...\n", meta.Name, name)

	arch := engine.New(client, codec, logger)
	report, err := arch.Run(ctx, archiveFolderID, archivePath)
	if err != nil {
		finishRun("failed", err.Error())
		if errors.Is(err, engine.ErrNoFiles) {
			return fmt.Errorf("no files found in folder %q", meta.Name)
		}
		return fmt.Errorf("archive creation failed: %w", err)
	}

	run.FilesArchived = report.Transferred
	run.FilesSkipped = report.Skipped
	run.FilesFailed = report.Failed
	run.BytesArchived = report.BytesArchived
	if fi, err := os.Stat(archivePath); err == nil {
		run.ArchiveSize = fi.Size()
	}

	fmt.Printf("Archive created:\n")
	fmt.Printf("  Files: %d archived, %d skipped, %d failed\n", report.Transferred, report.Skipped, report.Failed)
	fmt.Printf("  Content: %s of %s declared\n", humanize.Bytes(uint64(report.BytesArchived)), humanize.Bytes(uint64(report.TotalBytes)))
	fmt.Printf("  Archive size: %s\n", humanize.Bytes(uint64(run.ArchiveSize)))
	fmt.Printf("  Duration: %s\n", report.Duration.Round(time.Second))

	f, err := os.Open(archivePath)
	if err != nil {
		finishRun("failed", err.Error())
		return fmt.Errorf("opening archive for upload: %w", err)
	}
	uploadedID, err := client.Upload(ctx, name, parentID, codec.ContentType(), f)
	_ = f.Close()
	if err != nil {
		finishRun("failed", err.Error())
		return fmt.Errorf("uploading archive: %w", err)
	}
	run.UploadedFileID = uploadedID
	fmt.Printf("Upload complete. Archive file ID: %s\n", uploadedID)

	status := "success"
	if report.Failed > 0 {
		status = "partial"
	}

	if archiveDelete {
		if err := client.Delete(ctx, archiveFolderID); err != nil {
			logger.Warn("failed to delete original folder", "folder_id", archiveFolderID, "error", err)
			status = "partial"
		} else {
			fmt.Printf("Original folder deleted.\n")
		}
	} else {
		fmt.Printf("Original folder retained (use --delete-folder to remove it).\n")
	}

	if archiveKeepLocal || tempDir == "" {
		fmt.Printf("Local archive: %s\n", archivePath)
	}

	finishRun(status, "")
	return nil
}

// tokenSource builds credentials from the --token / --token-file flags.
func tokenSource() (auth.TokenSource, error) {
	switch {
	case archiveTokenJSON != "" && archiveTokenFile != "":
		return nil, fmt.Errorf("--token and --token-file are mutually exclusive")
	case archiveTokenJSON != "":
		return auth.FromAuthorizedUser([]byte(archiveTokenJSON))
	case archiveTokenFile != "":
		return auth.FromTokenFile(archiveTokenFile)
	default:
		return nil, fmt.Errorf("either --token or --token-file must be specified")
	}
}

// openStore opens the run-history store, returning nil on failure.
func openStore() *store.Store {
	st, err := store.New(globalCfg.DefaultDBPath(), logger)
	if err != nil {
		logger.Warn("run history unavailable", "error", err)
		return nil
	}
	return st
}
