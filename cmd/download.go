package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/brogergvhs/aktudl/internal/assemble"
	"github.com/brogergvhs/aktudl/internal/config"
	"github.com/brogergvhs/aktudl/internal/downloader"
	"github.com/brogergvhs/aktudl/internal/marks"
	"github.com/brogergvhs/aktudl/internal/portal"
	"github.com/brogergvhs/aktudl/internal/subjects"
	"github.com/brogergvhs/aktudl/internal/ui"
	"github.com/brogergvhs/aktudl/internal/util"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var (
	// selection
	flagRoll     string
	flagPassword string
	flagCourse   string
	flagSubject  string
	flagAll      bool

	// runtime
	flagOutput      string
	flagFormat      string
	flagKeepFolders bool
	flagCeiling     int
	flagDelayMS     int

	// portal
	flagBaseURL    string
	flagPathPrefix string
	flagUserAgent  string
)

func init() {
	downloadCmd := &cobra.Command{
		Use:   "download",
		Short: "Download answer scripts and produce PDF files. Uses the defaults from the selected config, overwritten by CLI flags",
		RunE:  runDownload,
	}

	// selection
	downloadCmd.Flags().StringVar(&flagRoll, "roll", "", "student roll number (prompted when omitted)")
	downloadCmd.Flags().StringVar(&flagPassword, "password", "", "portal password (prompted when omitted; prefer the prompt)")
	downloadCmd.Flags().StringVar(&flagCourse, "course", "", "course name as shown in the exam dropdown (e.g. BTECH)")
	downloadCmd.Flags().StringVar(&flagSubject, "subject", "", "download a single subject by code (e.g. BCS503)")
	downloadCmd.Flags().BoolVar(&flagAll, "all", false, "download every listed subject")

	// runtime
	downloadCmd.Flags().StringVar(&flagOutput, "output", "", "output folder for the assembled documents")
	downloadCmd.Flags().StringVar(&flagFormat, "format", "", "output format: pdf or cbz")
	downloadCmd.Flags().BoolVar(&flagKeepFolders, "keep-folders", false, "keep temporary page folders")
	downloadCmd.Flags().IntVar(&flagCeiling, "page-ceiling", 0, "maximum pages per script")
	downloadCmd.Flags().IntVar(&flagDelayMS, "page-delay-ms", 0, "pause between page fetches in milliseconds")

	// portal
	downloadCmd.Flags().StringVar(&flagBaseURL, "base-url", "", "portal origin")
	downloadCmd.Flags().StringVar(&flagPathPrefix, "path-prefix", "", "portal deployment root (e.g. /AKTUSUMMER)")
	downloadCmd.Flags().StringVar(&flagUserAgent, "user-agent", "", "override User-Agent")

	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, _ []string) error {
	cfg, usedPath, err := config.LoadMerged(config.Options{
		IgnoreConfig: flagIgnoreConfig,
		Debug:        flagDebug,
		Output:       flagOutput,
		Format:       flagFormat,
		KeepFolders:  flagKeepFolders,
		BaseURL:      flagBaseURL,
		PathPrefix:   flagPathPrefix,
		PageCeiling:  flagCeiling,
		PageDelayMS:  flagDelayMS,
		UserAgent:    flagUserAgent,
		RollNo:       flagRoll,
		Course:       flagCourse,
		Subject:      flagSubject,
		AllSubjects:  flagAll,
	})
	if err != nil {
		return err
	}

	if cfg.Format != "pdf" && cfg.Format != "cbz" {
		return fmt.Errorf("unknown format %q (want pdf or cbz)", cfg.Format)
	}

	logSvc := ui.NewLogger(cfg.Debug)
	if usedPath != "" {
		fmt.Printf("Config file: %s\n", usedPath)
	}

	if err := os.MkdirAll(cfg.Output, 0755); err != nil {
		return fmt.Errorf("cannot create output folder: %w", err)
	}

	fmt.Println("Full config:")
	cfg.Print()
	fmt.Println()

	creds, err := askCredentials(cfg.RollNo, flagPassword)
	if err != nil {
		return err
	}

	client, err := portal.NewClient(portal.Options{
		BaseURL:     cfg.BaseURL,
		PathPrefix:  cfg.PathPrefix,
		UserAgent:   cfg.UserAgent,
		Timeout:     30 * time.Second,
		DebugLogger: logSvc,
	})
	if err != nil {
		return err
	}

	ctx := context.Background()
	util.SetupInterruptHandler(cfg.Output)

	fmt.Println("Logging in...")
	if err := client.Login(ctx, creds); err != nil {
		return err
	}

	sel := subjects.NewSelector(client)

	course, err := pickCourse(ctx, sel, cfg.Course)
	if err != nil {
		if errors.Is(err, portal.ErrNotAuthenticated) {
			return fmt.Errorf("%w (check roll number and password)", err)
		}
		return err
	}
	fmt.Printf("Course: %s (%s)\n", course.Name, course.Value)

	listing, err := sel.SelectCourse(ctx, course)
	if err != nil {
		return err
	}

	all, err := sel.Subjects(listing)
	if err != nil {
		return err
	}
	if len(all) == 0 {
		return fmt.Errorf("no subjects listed for %s", course.Name)
	}
	fmt.Printf("Found %d subject(s).\n\n", len(all))

	chosen, err := pickSubjects(all, cfg.Subject, cfg.AllSubjects)
	if err != nil {
		return err
	}

	pm := ui.NewProgressManager()
	stats := &ui.Stats{}
	start := time.Now()

	// Strictly sequential: the server keeps one live form state per
	// session, so subjects are never paginated in parallel.
	for i, sub := range chosen {
		body := listing
		if i > 0 {
			// The grid's trigger names are only valid against a fresh
			// course selection.
			body, err = sel.SelectCourse(ctx, course)
			if err != nil {
				logSvc.Errorf("%s: re-selecting course: %v\n", sub.Code, err)
				continue
			}
		}

		if err := downloadSubject(ctx, client, sel, pm, stats, logSvc, cfg, creds.RollNo, course, sub, body); err != nil {
			logSvc.Errorf("%s: %v\n", sub.Code, err)
			// one subject failing must not sink the batch
			continue
		}
	}

	pm.Close()

	fmt.Println()
	fmt.Println("Download Summary:")
	fmt.Printf("Subjects: %d\n", stats.TotalSubjects.Load())
	fmt.Printf("Pages:    %d\n", stats.TotalPages.Load())
	fmt.Printf("Data:     %s\n", util.Human(stats.TotalBytes.Load()))
	fmt.Printf("Time:     %s\n", time.Since(start).Round(time.Second))

	return nil
}

func downloadSubject(
	ctx context.Context,
	client *portal.Client,
	sel *subjects.Selector,
	pm *ui.MPBProgressManager,
	stats *ui.Stats,
	logSvc *ui.Logger,
	cfg *config.Config,
	roll string,
	course subjects.Course,
	sub subjects.Subject,
	listing string,
) error {
	fmt.Printf("Loading subject: %s...\n", sub.Code)

	resp, err := sel.SelectSubject(ctx, listing, sub, course)
	if err != nil {
		return err
	}

	var rec *marks.Record
	if r, ok := marks.Extract(resp); ok {
		rec = &r
		fmt.Println(r.Table())
	} else {
		logSvc.Warnf("%s: no marks table, continuing without it\n", sub.Code)
	}

	base := fmt.Sprintf("%s_%s", roll, sub.Code)
	tmpDir := filepath.Join(cfg.Output, base+"_pages_tmp")

	var sink downloader.Sink
	switch cfg.Format {
	case "cbz":
		sink, err = assemble.NewCBZ(tmpDir, filepath.Join(cfg.Output, base+".cbz"), cfg.KeepFolders)
	default:
		sink, err = assemble.NewPDF(tmpDir, filepath.Join(cfg.Output, base+".pdf"), rec, cfg.KeepFolders)
	}
	if err != nil {
		return err
	}

	handle := pm.Register(sub.Code, cfg.PageCeiling)

	eng := downloader.New(downloader.Options{
		Client:      client,
		ExamValue:   course.Value,
		PageCeiling: cfg.PageCeiling,
		PageDelay:   time.Duration(cfg.PageDelayMS) * time.Millisecond,
		Progress:    handle,
		DebugLogger: logSvc,
	})

	res, runErr := eng.Run(ctx, resp, sink)
	handle.MarkDone(res.Pages)

	if runErr != nil && res.Pages == 0 {
		util.CleanupFolder(tmpDir)
		return runErr
	}
	if runErr != nil {
		// keep what we have, but say why the run stopped short
		logSvc.Errorf("%s: aborted after page %d: %v\n", sub.Code, res.Pages, runErr)
	}
	if res.Pages == 0 {
		logSvc.Warnf("%s: portal returned no pages\n", sub.Code)
		util.CleanupFolder(tmpDir)
		return nil
	}

	logSvc.Debugf("%s: stopped: %s\n", sub.Code, res.Reason)

	out, err := sink.Finalize(sub.Code)
	if err != nil {
		return err
	}

	fmt.Printf("Wrote %s (%d pages)\n", out, res.Pages)

	stats.TotalSubjects.Add(1)
	stats.TotalPages.Add(int64(res.Pages))
	stats.TotalBytes.Add(res.Bytes)

	return nil
}

func askCredentials(roll, password string) (portal.Credentials, error) {
	if roll == "" {
		prompt := promptui.Prompt{Label: "Roll number"}
		v, err := prompt.Run()
		if err != nil {
			return portal.Credentials{}, fmt.Errorf("cancelled")
		}
		roll = strings.TrimSpace(v)
	}
	if roll == "" {
		return portal.Credentials{}, fmt.Errorf("roll number cannot be empty")
	}

	if password == "" {
		prompt := promptui.Prompt{Label: "Password", Mask: '*'}
		v, err := prompt.Run()
		if err != nil {
			return portal.Credentials{}, fmt.Errorf("cancelled")
		}
		password = v
	}
	if password == "" {
		return portal.Credentials{}, fmt.Errorf("password cannot be empty")
	}

	return portal.Credentials{RollNo: roll, Password: password}, nil
}

func pickCourse(ctx context.Context, sel *subjects.Selector, name string) (subjects.Course, error) {
	if name != "" {
		return sel.FindCourse(ctx, name)
	}

	courses, err := sel.Courses(ctx)
	if err != nil {
		return subjects.Course{}, err
	}
	if len(courses) == 0 {
		return subjects.Course{}, fmt.Errorf("%w: exam dropdown is empty", portal.ErrCourseNotFound)
	}
	if len(courses) == 1 {
		fmt.Printf("Auto-selecting course: %s\n", courses[0].Name)
		return courses[0], nil
	}

	items := make([]string, len(courses))
	for i, c := range courses {
		items[i] = c.Name
	}
	prompt := promptui.Select{Label: "Select course", Items: items}
	idx, _, err := prompt.Run()
	if err != nil {
		return subjects.Course{}, fmt.Errorf("selection cancelled")
	}

	return courses[idx], nil
}

func pickSubjects(all []subjects.Subject, code string, everything bool) ([]subjects.Subject, error) {
	if everything {
		return all, nil
	}
	if code != "" {
		sub, err := subjects.FindSubject(all, code)
		if err != nil {
			return nil, err
		}
		return []subjects.Subject{sub}, nil
	}

	items := make([]string, len(all))
	for i, s := range all {
		items[i] = s.String()
	}
	prompt := promptui.Select{Label: "Select subject", Items: items, Size: 12}
	idx, _, err := prompt.Run()
	if err != nil {
		return nil, fmt.Errorf("selection cancelled")
	}

	return []subjects.Subject{all[idx]}, nil
}
