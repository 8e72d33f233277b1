package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/identity"
	"github.com/kozaktomas/face-attendance/internal/ledger"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Register every photo in a directory",
	Long: `Register every image in a directory as a student. The registration
number and name are taken from the file name with its image extensions
stripped, so S001.jpg enrolls S001. Photos without a detectable face and
students that are already registered are skipped.

Stop the serve process first. enroll writes the roster from its own
process, so registrations made by a running server at the same time can be
lost, and the server only sees enrolled faces after a restart.`,
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("dir", "", "Directory with one photo per student (required)")
	enrollCmd.Flags().String("dept", ledger.UnknownDept, "Department recorded for every enrolled student")
	enrollCmd.Flags().Int("concurrency", constants.DefaultConcurrency, "Parallel extractor calls")
	enrollCmd.Flags().Bool("json", false, "Output the summary as JSON")
	_ = enrollCmd.MarkFlagRequired("dir")
}

// enrollFile is the outcome for one photo.
type enrollFile struct {
	File   string `json:"file"`
	RegNo  string `json:"reg_no"`
	Status string `json:"status"` // registered, no_face, duplicate or error
	Error  string `json:"error,omitempty"`
}

type enrollSummary struct {
	Registered int          `json:"registered"`
	NoFace     int          `json:"no_face"`
	Duplicate  int          `json:"duplicate"`
	Failed     int          `json:"failed"`
	Files      []enrollFile `json:"files"`
}

// enrollCandidates lists the accepted image files in dir, sorted.
func enrollCandidates(dir string, images config.ImagesConfig) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !images.IsAllowedExtension(filepath.Ext(e.Name())) {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)
	return files, nil
}

// enrollOne registers a single photo file.
func enrollOne(ctx context.Context, svc *attendance.Service, dir, file, dept string, exts []string) enrollFile {
	regNo := identity.AssetKey(file, exts)
	res := enrollFile{File: file, RegNo: regNo}

	data, err := os.ReadFile(filepath.Join(dir, file))
	if err != nil {
		res.Status = "error"
		res.Error = err.Error()
		return res
	}

	_, err = svc.Register(ctx, attendance.RegisterRequest{
		Name:     regNo,
		RegNo:    regNo,
		Dept:     dept,
		Filename: file,
		Photo:    data,
	})
	switch {
	case err == nil:
		res.Status = "registered"
	case errors.Is(err, attendance.ErrNoFaceInPhoto):
		res.Status = "no_face"
	case errors.Is(err, attendance.ErrAlreadyRegistered):
		res.Status = "duplicate"
	default:
		res.Status = "error"
		res.Error = err.Error()
	}
	return res
}

// enrollDir registers every candidate in dir with bounded concurrency. The
// progress callback runs once per file.
func enrollDir(ctx context.Context, svc *attendance.Service, dir, dept string, images config.ImagesConfig,
	concurrency int, progress func()) (enrollSummary, error) {
	files, err := enrollCandidates(dir, images)
	if err != nil {
		return enrollSummary{}, err
	}
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]enrollFile, len(files))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, file := range files {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[i] = enrollOne(ctx, svc, dir, file, dept, images.Extensions)
			if progress != nil {
				progress()
			}
		}()
	}
	wg.Wait()

	summary := enrollSummary{Files: results}
	for _, r := range results {
		switch r.Status {
		case "registered":
			summary.Registered++
		case "no_face":
			summary.NoFace++
		case "duplicate":
			summary.Duplicate++
		default:
			summary.Failed++
		}
	}
	return summary, nil
}

func runEnroll(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()
	dir := mustGetString(cmd, "dir")
	jsonOutput := mustGetBool(cmd, "json")

	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	svc, err := newService(cfg, b, nil)
	if err != nil {
		return err
	}
	files, err := enrollCandidates(dir, cfg.Defaults.Images)
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar
	var progress func()
	if !jsonOutput {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetDescription("Enrolling"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("photos"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
		progress = func() { bar.Add(1) }
	}

	summary, err := enrollDir(ctx, svc, dir, mustGetString(cmd, "dept"), cfg.Defaults.Images,
		mustGetInt(cmd, "concurrency"), progress)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	bar.Finish()
	fmt.Println()
	for _, f := range summary.Files {
		if f.Status != "registered" {
			fmt.Printf("  %s: %s %s\n", f.File, f.Status, f.Error)
		}
	}
	fmt.Printf("Registered %d, no face %d, already registered %d, failed %d\n",
		summary.Registered, summary.NoFace, summary.Duplicate, summary.Failed)
	return nil
}
