// Command imagedrop is a terminal client for an imagedrop server.
// It uploads images through presigned URLs and browses the gallery.
//
// Usage:
//
//	imagedrop [-server URL] [-token TOKEN] upload FILE...
//	imagedrop [-server URL] [-token TOKEN] list [-limit N]
//
// The server URL and personal access token may also be provided via the
// IMAGEDROP_SERVER and IMAGEDROP_TOKEN environment variables.
package main

import (
	"context"
	"flag"
	"fmt"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/imagedrop/imagedrop/internal/client/api"
	"github.com/imagedrop/imagedrop/internal/client/uploader"
)

func main() {
	server := flag.String("server", envDefault("IMAGEDROP_SERVER", "http://localhost:8090"), "server base URL")
	token := flag.String("token", os.Getenv("IMAGEDROP_TOKEN"), "personal access token")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client := api.New(*server, *token)

	var err error
	switch args[0] {
	case "upload":
		err = runUpload(ctx, client, args[1:])
	case "list":
		err = runList(ctx, client, args[1:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runUpload(ctx context.Context, client *api.Client, paths []string) error {
	if len(paths) == 0 {
		return fmt.Errorf("upload requires at least one file")
	}

	coord := uploader.New(client)
	defer coord.Close()

	names := make(map[string]string) // task ID -> display name
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		name := filepath.Base(path)
		contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		id, err := coord.Add(name, contentType, data)
		if err != nil {
			return err
		}
		names[id] = name
	}

	// Print per-file outcomes as they arrive. The event stream may drop
	// entries under load, so the printer runs until the channel closes
	// rather than waiting for any particular event.
	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		for event := range coord.Events() {
			switch e := event.(type) {
			case uploader.Started:
				fmt.Printf("uploading %s...\n", names[e.TaskID])
			case uploader.Confirmed:
				fmt.Printf("confirmed %s -> %s\n", names[e.TaskID], e.Record.URL)
			case uploader.Failed:
				fmt.Printf("failed    %s: %v\n", names[e.TaskID], e.Err)
			}
		}
	}()

	done, err := coord.Upload(ctx)
	if err != nil {
		return err
	}

	// Ends the event stream; the printer exits once it has drained
	coord.Close()
	<-progressDone

	fmt.Printf("%d uploaded, %d failed\n", done.Confirmed, done.Failed)
	if done.Failed > 0 {
		return fmt.Errorf("%d file(s) failed to upload", done.Failed)
	}
	return nil
}

func runList(ctx context.Context, client *api.Client, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	limit := fs.Int("limit", 10, "page size")
	err := fs.Parse(args)
	if err != nil {
		return err
	}

	cursor := ""
	total := 0
	for {
		page, err := client.ListFilesPage(ctx, *limit, cursor)
		if err != nil {
			return err
		}

		for _, f := range page.Files {
			fmt.Printf("%s  %-30s  %s\n", f.CreatedAt.Format("2006-01-02 15:04"), f.Name, f.URL)
			total++
		}

		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	fmt.Printf("%d file(s)\n", total)
	return nil
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  imagedrop [-server URL] [-token TOKEN] upload FILE...
  imagedrop [-server URL] [-token TOKEN] list [-limit N]`)
}
