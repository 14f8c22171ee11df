// backup exports and restores the property and prospetto tables.
//
//	backup backup  [--stdout] [--dir d] [--file f] [--gzip] [--api url ...]
//	backup restore --file f [--dry-run] [--truncate] [--force] [--api url ...]
//
// Without --api the command talks to the database configured in the
// environment; with --api it goes through the admin endpoints of a running
// server, trying each base URL in order.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/diewo77/ownervalue/auth"
	"github.com/diewo77/ownervalue/internal/apiclient"
	"github.com/diewo77/ownervalue/internal/backup"
	"github.com/diewo77/ownervalue/internal/config"
	"github.com/diewo77/ownervalue/internal/db"
	"github.com/diewo77/ownervalue/internal/logger"
	"github.com/spf13/pflag"
	"gorm.io/gorm"
)

var errAborted = errors.New("restore aborted by user")

type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time
	log    *slog.Logger
	cfg    *config.Config
	openDB func(ctx context.Context) (*gorm.DB, error)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	log := logger.New(os.Stderr, cfg.App.LogLevel, cfg.App.Dev())
	c := &cli{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		now:    time.Now,
		log:    log,
		cfg:    cfg,
		openDB: func(ctx context.Context) (*gorm.DB, error) {
			conn, err := db.Open(ctx, cfg.Database, log)
			if err != nil {
				return nil, err
			}
			return conn, db.Migrate(conn)
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := c.run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, errAborted) {
			fmt.Fprintln(os.Stderr, err)
			return
		}
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (c *cli) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		c.usage()
		return fmt.Errorf("missing command")
	}
	switch args[0] {
	case "backup":
		return c.backup(ctx, args[1:])
	case "restore":
		return c.restore(ctx, args[1:])
	case "help", "-h", "--help":
		c.usage()
		return nil
	default:
		c.usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func (c *cli) usage() {
	fmt.Fprintln(c.stderr, "usage: backup <backup|restore> [flags]")
}

// remote flags are shared by both commands.
type remote struct {
	bases []string
	key   string
}

func (r *remote) addFlags(fs *pflag.FlagSet, defaultKey string) {
	fs.StringSliceVar(&r.bases, "api", nil, "server base URL, repeatable; tried in order")
	fs.StringVar(&r.key, "admin-key", defaultKey, "admin API key for --api (default $ADMIN_API_KEY)")
}

func (r *remote) client() *apiclient.Client {
	cl := apiclient.New(r.bases...)
	if r.key != "" {
		cl.Header.Set(auth.HeaderAdminKey, r.key)
	}
	return cl
}

func (c *cli) backup(ctx context.Context, args []string) error {
	var (
		toStdout bool
		dir      string
		file     string
		compress bool
		rem      remote
	)
	fs := pflag.NewFlagSet("backup", pflag.ContinueOnError)
	fs.SetOutput(c.stderr)
	fs.BoolVar(&toStdout, "stdout", false, "write the document to stdout")
	fs.StringVar(&dir, "dir", c.cfg.Storage.BackupDir, "target directory")
	fs.StringVar(&file, "file", "", "target file (overrides --dir)")
	fs.BoolVar(&compress, "gzip", false, "gzip the file")
	rem.addFlags(fs, c.cfg.App.AdminAPIKey)
	if err := fs.Parse(args); err != nil {
		return err
	}

	var doc backup.Document
	if len(rem.bases) > 0 {
		if err := rem.client().GetJSON(ctx, "/api/admin/backup", &doc); err != nil {
			return fmt.Errorf("fetch backup: %w", err)
		}
	} else {
		conn, err := c.openDB(ctx)
		if err != nil {
			return err
		}
		if doc, err = backup.Build(ctx, conn, c.now()); err != nil {
			return err
		}
	}

	if toStdout {
		return backup.Write(c.stdout, doc)
	}
	path := file
	if path == "" {
		path = filepath.Join(dir, backup.FileName(doc.GeneratedAt))
	}
	if compress && !strings.HasSuffix(strings.ToLower(path), ".gz") {
		path += ".gz"
	}
	if err := backup.WriteFile(path, doc); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Backup written to %s (%d properties, %d prospetti)\n", path, doc.Counts.Properties, doc.Counts.Prospects)
	return nil
}

func (c *cli) restore(ctx context.Context, args []string) error {
	var (
		file  string
		opts  backup.Options
		reset bool
		force bool
		rem   remote
	)
	fs := pflag.NewFlagSet("restore", pflag.ContinueOnError)
	fs.SetOutput(c.stderr)
	fs.StringVar(&file, "file", "", "backup file (.json or .json.gz)")
	fs.BoolVar(&opts.DryRun, "dry-run", false, "report what would change without writing")
	fs.BoolVar(&opts.Truncate, "truncate", false, "delete every property and prospetto first")
	fs.BoolVar(&reset, "reset", false, "alias of --truncate")
	fs.BoolVar(&force, "force", false, "skip the truncate confirmation")
	rem.addFlags(fs, c.cfg.App.AdminAPIKey)
	_ = fs.MarkHidden("reset")
	if err := fs.Parse(args); err != nil {
		return err
	}
	opts.Truncate = opts.Truncate || reset
	if file == "" && fs.NArg() > 0 {
		file = fs.Arg(0)
	}
	if file == "" {
		return fmt.Errorf("usage: backup restore --file <backup.json> [--dry-run] [--truncate] [--force]")
	}

	path, err := c.locate(file)
	if err != nil {
		return err
	}
	doc, err := backup.ReadFile(path)
	if err != nil {
		return err
	}
	generated := "n/a"
	if !doc.GeneratedAt.IsZero() {
		generated = doc.GeneratedAt.Format(time.RFC3339)
	}
	fmt.Fprintf(c.stdout, "Backup: %s\nGenerated at: %s\nProperties in file: %d\nProspetti in file: %d\n",
		path, generated, len(doc.Properties), len(doc.Prospects))

	if opts.Truncate && !opts.DryRun && !force {
		if !confirm(c.stdin, c.stdout, "This will delete all existing properties and prospetti before restore. Continue?") {
			return errAborted
		}
	}

	var sum backup.Summary
	if len(rem.bases) > 0 {
		sum, err = restoreRemote(ctx, rem.client(), doc, opts)
	} else {
		var conn *gorm.DB
		if conn, err = c.openDB(ctx); err != nil {
			return err
		}
		sum, err = backup.Restore(ctx, conn, doc, opts, c.log)
	}
	if err != nil {
		return err
	}
	printSummary(c.stdout, sum)
	return nil
}

// locate finds file as given or inside the backup directory.
func (c *cli) locate(file string) (string, error) {
	candidates := []string{file}
	if !filepath.IsAbs(file) && c.cfg.Storage.BackupDir != "" {
		candidates = append(candidates, filepath.Join(c.cfg.Storage.BackupDir, file))
	}
	for _, p := range candidates {
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("backup file not found (looked in %s)", strings.Join(candidates, ", "))
}

func restoreRemote(ctx context.Context, cl *apiclient.Client, doc backup.Document, opts backup.Options) (backup.Summary, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return backup.Summary{}, fmt.Errorf("encode backup: %w", err)
	}
	q := url.Values{}
	q.Set("dryRun", fmt.Sprint(opts.DryRun))
	q.Set("truncate", fmt.Sprint(opts.Truncate))
	resp, err := cl.Do(ctx, http.MethodPost, "/api/admin/restore?"+q.Encode(), body)
	if err != nil {
		return backup.Summary{}, err
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return backup.Summary{}, &apiclient.StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	var sum backup.Summary
	if err := json.Unmarshal(raw, &sum); err != nil {
		return backup.Summary{}, fmt.Errorf("decode summary: %w", err)
	}
	return sum, nil
}

func confirm(in io.Reader, out io.Writer, msg string) bool {
	fmt.Fprintf(out, "%s (y/N) ", msg)
	line, _ := bufio.NewReader(in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func printSummary(w io.Writer, s backup.Summary) {
	if s.DryRun {
		fmt.Fprintln(w, "Dry-run mode: no changes were applied.")
	}
	if s.Truncated {
		fmt.Fprintln(w, "Existing data deleted.")
	}
	fmt.Fprintf(w, "Properties: %d created, %d updated\n", s.PropertiesCreated, s.PropertiesUpdated)
	fmt.Fprintf(w, "Prospetti: %d created, %d updated\n", s.ProspectsCreated, s.ProspectsUpdated)
	for _, d := range s.Detached {
		fmt.Fprintf(w, "detached: %s\n", d)
	}
	for _, k := range s.Skipped {
		fmt.Fprintf(w, "skipped: %s\n", k)
	}
}
