package matchrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"calmatch/internal/config"
	"calmatch/internal/diagnostics"
	"calmatch/internal/frame"
	"calmatch/internal/frameset"
	"calmatch/internal/history"
	"calmatch/internal/logging"
	"calmatch/internal/matching"
)

var (
	// ErrRunLocked means another run holds the state directory lock.
	ErrRunLocked = errors.New("another calmatch run is in progress")
	// ErrMissingCalibration means the open-beam or dark-current list came back
	// empty. Diagnostics have been exported when this is returned.
	ErrMissingCalibration = errors.New("no matching open beam or dark current frames")
	// ErrNoCalibrationRoots means no raw directory or explicit roots were
	// given and none could be inferred from the sample folder.
	ErrNoCalibrationRoots = errors.New("no open beam or dark current search roots")
)

// Request describes one matching run.
type Request struct {
	SampleFolder string
	RawDir       string
	OBDirs       []string
	DCDirs       []string
	Options      matching.Options
	// Strict fails the run when the samples span more than one configuration.
	Strict bool
	// ExportPath, when set, always receives the diagnostics report.
	ExportPath string
}

// RequestFromConfig builds a request for sampleFolder using the configured
// roots and caps.
func RequestFromConfig(cfg *config.Config, sampleFolder string) Request {
	return Request{
		SampleFolder: sampleFolder,
		RawDir:       cfg.Paths.RawDir,
		OBDirs:       append([]string(nil), cfg.Paths.OBDirs...),
		DCDirs:       append([]string(nil), cfg.Paths.DCDirs...),
		Options: matching.Options{
			OB: matching.Caps{MaxCount: cfg.Matching.MaxOBCount, MaxOffset: cfg.OBMaxOffset()},
			DC: matching.Caps{MaxCount: cfg.Matching.MaxDCCount, MaxOffset: cfg.DCMaxOffset()},
		},
		Strict: cfg.Matching.RequireSingleConfiguration,
	}
}

// Result is the outcome of a run.
type Result struct {
	RunID           string
	SampleFolder    string
	Configuration   *matching.Configuration
	Index           *matching.Index
	OB              []string
	DC              []string
	SampleCount     int
	OBCandidates    int
	DCCandidates    int
	Skipped         []error
	DiagnosticsPath string
}

// Runner executes matching runs.
type Runner struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *history.Store
	newID  func() string
}

// New creates a runner. store may be nil, in which case runs are not recorded.
func New(cfg *config.Config, logger *slog.Logger, store *history.Store) *Runner {
	return &Runner{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "matchrun"),
		store:  store,
		newID:  uuid.NewString,
	}
}

// Run locks the state directory, extracts metadata for the sample folder and
// the calibration roots, matches them and records the outcome.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.SampleFolder) == "" {
		return nil, errors.New("sample folder is required")
	}
	sampleFolder, err := filepath.Abs(req.SampleFolder)
	if err != nil {
		return nil, fmt.Errorf("resolve sample folder: %w", err)
	}

	if err := r.cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	lock := flock.New(r.cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrRunLocked, r.cfg.LockPath())
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			r.logger.Warn("failed to release run lock", logging.Error(err))
		}
	}()

	res := &Result{RunID: r.newID(), SampleFolder: sampleFolder}
	ctx = logging.WithRunID(ctx, res.RunID)
	ctx = logging.WithSampleFolder(ctx, sampleFolder)
	logger := logging.WithContext(ctx, r.logger)

	run := &history.Run{ID: res.RunID, SampleFolder: sampleFolder}
	if r.store != nil {
		if err := r.store.Begin(ctx, run); err != nil {
			return nil, err
		}
	}

	runErr := r.execute(ctx, logger, req, res)
	r.finish(ctx, logger, run, res, runErr)
	if runErr != nil {
		return res, runErr
	}
	return res, nil
}

func (r *Runner) execute(ctx context.Context, logger *slog.Logger, req Request, res *Result) error {
	started := time.Now()
	obRoots, dcRoots, err := r.roots(req, res.SampleFolder)
	if err != nil {
		return err
	}
	logger.Info("matching started",
		logging.Any("ob_roots", obRoots),
		logging.Any("dc_roots", dcRoots),
	)

	extensions := r.cfg.Matching.Extensions
	samplePaths, err := frameset.Samples(res.SampleFolder, extensions)
	if err != nil {
		return err
	}
	obPaths, err := frameset.Enumerate(obRoots, extensions)
	if err != nil {
		return err
	}
	dcPaths, err := frameset.Enumerate(dcRoots, extensions)
	if err != nil {
		return err
	}
	logger.Info("frames listed",
		logging.Int("samples", len(samplePaths)),
		logging.Int("ob_candidates", len(obPaths)),
		logging.Int("dc_candidates", len(dcPaths)),
	)

	samples, err := r.extract(ctx, logger, samplePaths, frame.ProfileSample, res)
	if err != nil {
		return err
	}
	ob, err := r.extract(ctx, logger, obPaths, frame.ProfileOB, res)
	if err != nil {
		return err
	}
	dc, err := r.extract(ctx, logger, dcPaths, frame.ProfileDC, res)
	if err != nil {
		return err
	}
	res.SampleCount = len(samples)
	res.OBCandidates = len(ob)
	res.DCCandidates = len(dc)

	index, err := matching.Partition(samples)
	if err != nil {
		return fmt.Errorf("%s: %w", res.SampleFolder, err)
	}
	matching.Match(index, ob, dc, req.Options)
	res.Index = index

	selected, err := r.selectConfiguration(logger, index, req.Strict)
	if err != nil {
		return err
	}
	res.Configuration = selected
	res.OB = selected.Filenames(matching.KindOB)
	res.DC = selected.Filenames(matching.KindDC)
	logger.Info("matching finished",
		logging.String("configuration", selected.ID),
		logging.String("exposure", selected.Exposure),
		logging.String("instrument", selected.Representative.String()),
		logging.Int("ob", len(res.OB)),
		logging.Int("dc", len(res.DC)),
		logging.Duration("elapsed", time.Since(started)),
	)

	missing := len(res.OB) == 0 || len(res.DC) == 0
	if !missing && req.ExportPath == "" {
		return nil
	}

	report := diagnostics.NewReport(samples, ob, dc, index)
	path := req.ExportPath
	if path == "" {
		path = diagnostics.Path(r.cfg.Paths.DiagnosticsDir, res.SampleFolder)
	}
	if err := diagnostics.Write(path, report); err != nil {
		return err
	}
	res.DiagnosticsPath = path
	logger.Info("diagnostics exported", logging.String(logging.FieldPath, path))

	if missing {
		return fmt.Errorf("%w (ob=%d dc=%d, see %s)", ErrMissingCalibration, len(res.OB), len(res.DC), path)
	}
	return nil
}

func (r *Runner) roots(req Request, sampleFolder string) ([]string, []string, error) {
	rawDir := strings.TrimSpace(req.RawDir)
	if rawDir == "" {
		if inferred, ok := frameset.InferRawDir(sampleFolder); ok {
			rawDir = inferred
		}
	}
	obRoots, dcRoots := frameset.CalibrationRoots(rawDir)
	if len(req.OBDirs) > 0 {
		obRoots = req.OBDirs
	}
	if len(req.DCDirs) > 0 {
		dcRoots = req.DCDirs
	}
	if len(obRoots) == 0 || len(dcRoots) == 0 {
		return nil, nil, ErrNoCalibrationRoots
	}
	return obRoots, dcRoots, nil
}

func (r *Runner) extract(ctx context.Context, logger *slog.Logger, paths []string, profile frame.Profile, res *Result) ([]frame.Record, error) {
	records, failures := frame.ExtractAll(ctx, paths, profile, r.cfg.Matching.ExtractWorkers)
	for _, failure := range failures {
		if !frame.IsExtractionError(failure) {
			return nil, failure
		}
		logging.WarnWithContext(logger, "frame skipped", "frame_skipped",
			logging.String("label", profile.Label),
			logging.Error(failure),
		)
		res.Skipped = append(res.Skipped, failure)
	}
	return records, nil
}

func (r *Runner) selectConfiguration(logger *slog.Logger, index *matching.Index, strict bool) (*matching.Configuration, error) {
	selected, err := index.Single()
	if err == nil {
		return selected, nil
	}
	if !errors.Is(err, matching.ErrAmbiguousConfiguration) || strict {
		return nil, err
	}
	ids := make([]string, 0)
	for _, exposure := range index.Exposures() {
		for _, cfg := range index.ConfigurationsFor(exposure) {
			ids = append(ids, exposure+"/"+cfg.ID)
		}
	}
	first := index.First()
	logging.WarnWithContext(logger, "samples span several configurations", "ambiguous_configuration",
		logging.Any("configurations", ids),
		logging.String("selected", first.Exposure+"/"+first.ID),
		logging.String(logging.FieldImpact, "only the first configuration's calibration frames are returned"),
	)
	return first, nil
}

func (r *Runner) finish(ctx context.Context, logger *slog.Logger, run *history.Run, res *Result, runErr error) {
	if r.store == nil {
		return
	}
	run.SampleCount = res.SampleCount
	run.OBCandidates = res.OBCandidates
	run.DCCandidates = res.DCCandidates
	run.MatchedOB = len(res.OB)
	run.MatchedDC = len(res.DC)
	run.SkippedFrames = len(res.Skipped)
	run.DiagnosticsPath = res.DiagnosticsPath
	if res.Index != nil {
		run.ConfigurationCount = len(res.Index.Configurations())
	}
	switch {
	case runErr == nil:
		run.Status = history.StatusMatched
	case errors.Is(runErr, ErrMissingCalibration):
		run.Status = history.StatusIncomplete
		run.ErrorMessage = runErr.Error()
	default:
		run.Status = history.StatusFailed
		run.ErrorMessage = runErr.Error()
	}
	if err := r.store.Finish(context.WithoutCancel(ctx), run); err != nil {
		logger.Warn("failed to record run history", logging.Error(err))
	}
}
