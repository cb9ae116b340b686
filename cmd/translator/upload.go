package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"

	"github.com/pdftranslate/client/internal/model"
	"github.com/pdftranslate/client/internal/presenter"
	"github.com/pdftranslate/client/internal/service"
)

func newUploadCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file.pdf>",
		Short: "Translate a PDF file from the terminal",
		Long: `Uploads the given PDF, shows progress until the translation finishes
and writes the translated text into the output directory as <name>.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpload(cmd, opts, args[0])
		},
	}
}

func runUpload(cmd *cobra.Command, opts *rootOptions, path string) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	file, err := readFile(path)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stderr := cmd.ErrOrStderr()
	notifier := service.NotifierFunc(func(message string) {
		fmt.Fprintf(stderr, "\r\033[K%s\n", message)
	})

	svc := newCore(cfg, notifier, "", &service.DirExporter{Dir: cfg.Output.Dir})
	defer svc.close()
	svc.presenter.Subscribe(presenter.NewTerminalRenderer(cmd.OutOrStdout()).Render)

	sess, err := svc.uploads.Upload(ctx, file)
	if err != nil {
		return errReported
	}

	outcome, err := sess.Wait(ctx)
	if err != nil {
		fmt.Fprintln(stderr)
		return fmt.Errorf("translation interrupted: %w", err)
	}
	if outcome.Status != model.JobStatusCompleted {
		return errReported
	}
	return nil
}

// readFile loads path and sniffs its content type
func readFile(path string) (*model.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return &model.File{
		Name:        filepath.Base(path),
		ContentType: mimetype.Detect(data).String(),
		Data:        data,
	}, nil
}
