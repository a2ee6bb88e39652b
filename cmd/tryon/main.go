package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/manash/tryon/internal/artifact"
	"github.com/manash/tryon/internal/keys"
	"github.com/manash/tryon/internal/oracle"
	"github.com/manash/tryon/internal/ratelimit"
	"github.com/manash/tryon/internal/session"
	"github.com/manash/tryon/internal/tryon"
)

var (
	version = "dev"
	commit  = "none"
)

var (
	flagSession  string
	flagAPIKey   string
	flagCatalog  string
	flagCooldown time.Duration
	flagGarment  string
	flagNotes    string
)

// App carries the process-level dependencies so tests can substitute
// writers, environment access and oracle construction.
type App struct {
	Out    io.Writer
	Err    io.Writer
	GetEnv func(string) string

	NewSessionStore func() (*session.Store, error)
	ArtifactDir     func() (string, error)
	NewGemini       func(ctx context.Context, apiKey string) (oracle.Generator, oracle.Reviewer, oracle.Decider, error)
	NewVideo        func(ctx context.Context, apiKey string) (oracle.VideoOracle, error)
}

func DefaultApp() *App {
	return &App{
		Out:             os.Stdout,
		Err:             os.Stderr,
		GetEnv:          os.Getenv,
		NewSessionStore: session.NewStore,
		ArtifactDir:     session.DefaultArtifactDir,
		NewGemini: func(ctx context.Context, apiKey string) (oracle.Generator, oracle.Reviewer, oracle.Decider, error) {
			g, err := oracle.NewGemini(ctx, &oracle.Config{APIKey: apiKey})
			if err != nil {
				return nil, nil, nil, err
			}
			return g, g, g, nil
		},
		NewVideo: func(ctx context.Context, apiKey string) (oracle.VideoOracle, error) {
			return oracle.NewVeo(ctx, apiKey, "")
		},
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	app := DefaultApp()
	return newRootCmd(app).Execute()
}

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tryon",
		Short: "Virtual try-on workflow: garments, multiview sets, refinement, showcase videos",
		Long: `tryon drives a virtual try-on workflow against the Gemini image APIs.

Upload person reference images, pick a garment from the catalog,
generate try-on composites, fan out over front/side/back views, refine
results in a bounded review loop, and render a rotating showcase video.

Examples:
  tryon upload photo.jpg
  tryon catalog list
  tryon run --garment catalog/1.jpg
  tryon multiview
  tryon batch --garment catalog/2.jpg
  tryon video --style smooth_rotation --duration 8`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flagSession, "session", "", "session ID to resume (default: new session)")
	cmd.PersistentFlags().StringVar(&flagAPIKey, "api-key", "", "Gemini API key (defaults to stored key, then GEMINI_API_KEY)")
	cmd.PersistentFlags().StringVar(&flagCatalog, "catalog", "garments", "garment catalog directory")
	cmd.PersistentFlags().DurationVar(&flagCooldown, "cooldown", 5*time.Second, "minimum interval between generation calls")

	cmd.AddCommand(
		newUploadCmd(app),
		newCatalogCmd(app),
		newRunCmd(app),
		newEditCmd(app),
		newMultiviewCmd(app),
		newBatchCmd(app),
		newRefineCmd(app),
		newVideoCmd(app),
		newStatusCmd(app),
		newClearCmd(app),
		newSessionsCmd(app),
		newKeysCmd(app),
	)
	return cmd
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// workspace is everything an invocation needs: the open session, its
// artifact resolver and the shared rate gate.
type workspace struct {
	app     *App
	store   *session.Store
	mgr     *session.Manager
	limiter *ratelimit.Limiter
}

func (a *App) openWorkspace(ctx context.Context) (*workspace, error) {
	store, err := a.NewSessionStore()
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	baseDir, err := a.ArtifactDir()
	if err != nil {
		store.Close()
		return nil, err
	}

	mgr := session.NewManager(store, baseDir)
	if flagSession != "" {
		if err := mgr.Load(ctx, flagSession); err != nil {
			store.Close()
			return nil, err
		}
		fmt.Fprintf(a.Out, "Resumed session %s\n", flagSession)
	} else if err := mgr.EnsureSession(ctx); err != nil {
		store.Close()
		return nil, err
	}

	return &workspace{
		app:     a,
		store:   store,
		mgr:     mgr,
		limiter: ratelimit.New(flagCooldown),
	}, nil
}

func (w *workspace) close() {
	w.store.Close()
}

func (w *workspace) resolver() *artifact.Resolver {
	return artifact.NewResolver(w.mgr.Artifacts(), flagCatalog)
}

func (w *workspace) executor(ctx context.Context) (*tryon.Executor, error) {
	gen, _, _, err := w.gemini(ctx)
	if err != nil {
		return nil, err
	}
	return &tryon.Executor{
		Resolver:  w.resolver(),
		Limiter:   w.limiter,
		Generator: gen,
		Session:   w.mgr,
		Warn:      w.app.Err,
	}, nil
}

func (w *workspace) gemini(ctx context.Context) (oracle.Generator, oracle.Reviewer, oracle.Decider, error) {
	apiKey, source, err := w.apiKey()
	if err != nil {
		return nil, nil, nil, err
	}
	fmt.Fprintf(w.app.Err, "Using API key from %s\n", source)
	return w.app.NewGemini(ctx, apiKey)
}

func (w *workspace) apiKey() (string, string, error) {
	key, source, err := keys.Resolve(flagAPIKey)
	if err == nil {
		return key, source, nil
	}
	if envKey := w.app.GetEnv(keys.EnvVar); envKey != "" {
		return envKey, fmt.Sprintf("environment variable (%s)", keys.EnvVar), nil
	}
	return "", "", err
}

// personRef picks the person image for a try-on: the latest uploaded
// reference unless the caller named one.
func (w *workspace) personRef(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	latest := w.mgr.State().LatestReference
	if latest == "" {
		return "", fmt.Errorf("no reference image uploaded: run 'tryon upload <file>' first")
	}
	return latest, nil
}
