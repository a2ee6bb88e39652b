package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/manash/tryon/internal/artifact"
	"github.com/manash/tryon/internal/catalog"
	"github.com/manash/tryon/internal/display"
	"github.com/manash/tryon/internal/ledger"
	"github.com/manash/tryon/internal/loop"
	"github.com/manash/tryon/internal/oracle"
	"github.com/manash/tryon/internal/session"
	"github.com/manash/tryon/internal/showcase"
	"github.com/manash/tryon/internal/tryon"
)

func newUploadCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Register a person reference image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			ws, err := app.openWorkspace(ctx)
			if err != nil {
				return err
			}
			defer ws.close()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			ref, err := ws.mgr.RegisterReference(ctx, data, artifact.MIMEForName(args[0]))
			if err != nil {
				return err
			}

			fmt.Fprintf(app.Out, "Registered %s (%s)\n", ref.Filename, humanize.Bytes(uint64(len(data))))
			fmt.Fprintf(app.Out, "Session: %s\n", ws.mgr.Current().ID)
			return nil
		},
	}
}

func newCatalogCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Browse the garment catalog",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available garments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := catalog.List(flagCatalog)
			if err != nil {
				return err
			}
			for _, entry := range entries {
				fmt.Fprintln(app.Out, entry.String())
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "select <index-or-name>",
		Short: "Pick a garment by index or filename",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := catalog.Select(flagCatalog, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "Selected %s\n", entry.String())
			fmt.Fprintf(app.Out, "Use it with: tryon run --garment %s\n", entry.Ref)
			return nil
		},
	})

	return cmd
}

func tryOnOptions(garmentType string) (tryon.Options, error) {
	gt := oracle.GarmentType(garmentType)
	if !gt.Valid() {
		return tryon.Options{}, fmt.Errorf("invalid garment type %q", garmentType)
	}
	return tryon.Options{Garment: gt, Instructions: flagNotes}, nil
}

func newRunCmd(app *App) *cobra.Command {
	var (
		flagPerson, flagGarmentType string
		flagShow                    bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate one try-on composite",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			ws, err := app.openWorkspace(ctx)
			if err != nil {
				return err
			}
			defer ws.close()

			person, err := ws.personRef(flagPerson)
			if err != nil {
				return err
			}
			opts, err := tryOnOptions(flagGarmentType)
			if err != nil {
				return err
			}

			exec, err := ws.executor(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(app.Out, "Generating try-on: %s + %s...\n", person, flagGarment)
			v, err := exec.Execute(ctx, person, flagGarment, tryon.DefaultAsset, opts)
			if err != nil {
				return err
			}

			fmt.Fprintf(app.Out, "Saved %s (version %d)\n", v.Filename, v.Number)
			fmt.Fprintf(app.Out, "Path: %s\n", ws.mgr.Artifacts().Path(v.Filename))

			if flagShow {
				if !display.IsTerminalSupported() {
					fmt.Fprintln(app.Err, "Inline display needs a kitty-compatible terminal")
					return nil
				}
				art, err := ws.mgr.Artifacts().Load(v.Filename)
				if err != nil {
					return err
				}
				return display.New(app.Out).Show(art.Data)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flagGarment, "garment", "", "garment reference, e.g. catalog/1.jpg")
	cmd.Flags().StringVar(&flagPerson, "person", "", "person image (default: latest upload)")
	cmd.Flags().StringVar(&flagGarmentType, "garment-type", "auto", "garment type hint (auto, short-sleeve, long-sleeve, sleeveless, dress, jacket)")
	cmd.Flags().StringVar(&flagNotes, "notes", "", "extra instructions for the generation")
	cmd.Flags().BoolVar(&flagShow, "show", false, "display the result inline (kitty-compatible terminals)")
	cmd.MarkFlagRequired("garment")
	return cmd
}

func newEditCmd(app *App) *cobra.Command {
	var flagAsset, flagReference string

	cmd := &cobra.Command{
		Use:   "edit <instructions>",
		Short: "Revise the latest generated result by prompt",
		Long: `Edit applies prompt-driven changes to the latest version of a
generated asset and commits the result as that asset's next version.
An optional reference image guides the edit; pass --reference latest
for the newest upload.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			ws, err := app.openWorkspace(ctx)
			if err != nil {
				return err
			}
			defer ws.close()

			exec, err := ws.executor(ctx)
			if err != nil {
				return err
			}

			v, err := exec.Edit(ctx, tryon.EditRequest{
				Asset:        flagAsset,
				Instructions: args[0],
				Reference:    flagReference,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(app.Out, "Saved %s (version %d)\n", v.Filename, v.Number)
			fmt.Fprintf(app.Out, "Path: %s\n", ws.mgr.Artifacts().Path(v.Filename))
			return nil
		},
	}

	cmd.Flags().StringVar(&flagAsset, "asset", "", "asset to edit (default: last generated)")
	cmd.Flags().StringVar(&flagReference, "reference", "", `extra guide image ("latest" for the newest upload)`)
	return cmd
}

func newMultiviewCmd(app *App) *cobra.Command {
	var flagPerson string

	cmd := &cobra.Command{
		Use:   "multiview",
		Short: "Build front/side/back views from a reference image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			ws, err := app.openWorkspace(ctx)
			if err != nil {
				return err
			}
			defer ws.close()

			person, err := ws.personRef(flagPerson)
			if err != nil {
				return err
			}
			exec, err := ws.executor(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(app.Out, "Generating views from %s (side and back wait out the cooldown)...\n", person)
			set, err := exec.GenerateViews(ctx, person)
			if err != nil {
				return err
			}

			for _, view := range tryon.Views {
				if name := set.View(view); name != "" {
					fmt.Fprintf(app.Out, "  %-5s -> %s\n", view, name)
				} else {
					fmt.Fprintf(app.Out, "  %-5s -> (failed)\n", view)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flagPerson, "person", "", "person image (default: latest upload)")
	return cmd
}

// restoreMultiview rebuilds the view set from the ledger when the
// invocation that generated it has exited.
func restoreMultiview(mgr *session.Manager) *session.Multiview {
	if set := mgr.State().Multiview; set != nil {
		return set
	}
	set := &session.Multiview{}
	if v, ok := mgr.Ledger().Current("view_front"); ok {
		set.Front = v.Filename
	}
	if v, ok := mgr.Ledger().Current("view_side"); ok {
		set.Side = v.Filename
	}
	if v, ok := mgr.Ledger().Current("view_back"); ok {
		set.Back = v.Filename
	}
	if set.Count() == 0 {
		return nil
	}
	return set
}

func newBatchCmd(app *App) *cobra.Command {
	var flagGarmentType string

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Apply a garment across the whole view set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			ws, err := app.openWorkspace(ctx)
			if err != nil {
				return err
			}
			defer ws.close()

			set := restoreMultiview(ws.mgr)
			if set == nil {
				return fmt.Errorf("no multiview set available: run 'tryon multiview' first")
			}
			opts, err := tryOnOptions(flagGarmentType)
			if err != nil {
				return err
			}

			exec, err := ws.executor(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(app.Out, "Batch try-on across %d view(s)...\n", set.Count())
			report, err := exec.ExecuteBatch(ctx, flagGarment, set, opts)
			if err != nil {
				return err
			}

			fmt.Fprint(app.Out, report.String())
			return nil
		},
	}

	cmd.Flags().StringVar(&flagGarment, "garment", "", "garment reference, e.g. catalog/1.jpg")
	cmd.Flags().StringVar(&flagGarmentType, "garment-type", "auto", "garment type hint")
	cmd.Flags().StringVar(&flagNotes, "notes", "", "extra instructions for the generation")
	cmd.MarkFlagRequired("garment")
	return cmd
}

func newRefineCmd(app *App) *cobra.Command {
	var (
		flagPerson      string
		flagGarmentType string
		flagIterations  int
	)

	cmd := &cobra.Command{
		Use:   "refine <request>",
		Short: "Run the bounded generate-review-decide refinement loop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			ws, err := app.openWorkspace(ctx)
			if err != nil {
				return err
			}
			defer ws.close()

			person, err := ws.personRef(flagPerson)
			if err != nil {
				return err
			}
			opts, err := tryOnOptions(flagGarmentType)
			if err != nil {
				return err
			}

			gen, rev, dec, err := ws.gemini(ctx)
			if err != nil {
				return err
			}

			ctrl := &loop.Controller{
				Executor: &tryon.Executor{
					Resolver:  ws.resolver(),
					Limiter:   ws.limiter,
					Generator: gen,
					Session:   ws.mgr,
					Warn:      app.Err,
				},
				Reviewer:      rev,
				Decider:       dec,
				MaxIterations: flagIterations,
				Out:           app.Out,
			}

			outcome, err := ctrl.Run(ctx, &loop.Request{
				Person:  person,
				Garment: flagGarment,
				Intent:  args[0],
				Options: opts,
			})
			if err != nil {
				return err
			}
			if outcome.Final == nil {
				return fmt.Errorf("refinement produced no result")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flagGarment, "garment", "", "garment reference, e.g. catalog/1.jpg")
	cmd.Flags().StringVar(&flagPerson, "person", "", "person image (default: latest upload)")
	cmd.Flags().StringVar(&flagGarmentType, "garment-type", "auto", "garment type hint")
	cmd.Flags().StringVar(&flagNotes, "notes", "", "extra instructions for the generation")
	cmd.Flags().IntVar(&flagIterations, "iterations", 1, "maximum refinement iterations")
	cmd.MarkFlagRequired("garment")
	return cmd
}

// restoreBatch rebuilds the latest batch pointer from the ledger so
// the video command works across invocations.
func restoreBatch(mgr *session.Manager) *session.BatchResult {
	if batch := mgr.State().LatestBatch; batch != nil {
		return batch
	}
	views := make(map[string]ledger.Version)
	for _, view := range tryon.Views {
		if v, ok := mgr.Ledger().Current("tryon_" + view); ok {
			views[view] = v
		}
	}
	if len(views) == 0 {
		return nil
	}
	return &session.BatchResult{Views: views}
}

func newVideoCmd(app *App) *cobra.Command {
	var (
		flagStyle    string
		flagDuration int
		flagAspect   string
		flagMaxWait  time.Duration
		flagPoll     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "video",
		Short: "Render a rotating showcase video from the latest batch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			ws, err := app.openWorkspace(ctx)
			if err != nil {
				return err
			}
			defer ws.close()

			ws.mgr.State().LatestBatch = restoreBatch(ws.mgr)

			apiKey, _, err := ws.apiKey()
			if err != nil {
				return err
			}
			video, err := app.NewVideo(ctx, apiKey)
			if err != nil {
				return err
			}

			producer := &showcase.Producer{
				Resolver: ws.resolver(),
				Video:    video,
				Session:  ws.mgr,
				Wait:     oracle.WaitOptions{MaxWait: flagMaxWait, PollInterval: flagPoll},
				Out:      app.Out,
			}

			info, err := producer.Produce(ctx, showcase.Options{
				Style:       flagStyle,
				Duration:    flagDuration,
				AspectRatio: flagAspect,
			})
			if err != nil {
				if info != nil && info.Operation != "" {
					fmt.Fprintf(app.Out, "Operation handle: %s\n", info.Operation)
				}
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flagStyle, "style", "smooth_rotation", fmt.Sprintf("transition style (%v)", oracle.VideoStyles()))
	cmd.Flags().IntVar(&flagDuration, "duration", 8, "video duration in seconds (4, 6 or 8)")
	cmd.Flags().StringVar(&flagAspect, "aspect", "9:16", `aspect ratio ("9:16" or "16:9")`)
	cmd.Flags().DurationVar(&flagMaxWait, "max-wait", 5*time.Minute, "how long to wait for the video before giving up")
	cmd.Flags().DurationVar(&flagPoll, "poll-interval", 15*time.Second, "how often to poll the video operation")
	return cmd
}

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session, reference and rate-limit status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			ws, err := app.openWorkspace(ctx)
			if err != nil {
				return err
			}
			defer ws.close()

			sess := ws.mgr.Current()
			fmt.Fprintf(app.Out, "Session: %s", sess.ID)
			if sess.Name != "" {
				fmt.Fprintf(app.Out, " (%s)", sess.Name)
			}
			fmt.Fprintf(app.Out, "\nUpdated: %s\n\n", humanize.Time(sess.UpdatedAt))

			refs := ws.mgr.ListReferences()
			fmt.Fprintf(app.Out, "Reference images: %d\n", len(refs))
			for _, ref := range refs {
				fmt.Fprintf(app.Out, "  %s\n", ref.Filename)
			}

			fmt.Fprintf(app.Out, "\n%s\n", ws.mgr.Ledger().Summary())

			stats := ws.limiter.Stats()
			fmt.Fprintf(app.Out, "Rate limit: cooldown %s, %d call(s) this run", stats.Cooldown, stats.TotalCalls)
			if stats.TimeRemaining > 0 {
				fmt.Fprintf(app.Out, ", next call in %s", stats.TimeRemaining.Round(time.Second))
			}
			fmt.Fprintln(app.Out)
			return nil
		},
	}
}

func newClearCmd(app *App) *cobra.Command {
	var flagConfirm bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the session's reference images",
		Long: `Clear removes every registered reference image from the session.
Generated try-on results and their version history are kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			ws, err := app.openWorkspace(ctx)
			if err != nil {
				return err
			}
			defer ws.close()

			n, err := ws.mgr.ClearReferences(ctx, flagConfirm)
			if err != nil {
				if err == session.ErrNotConfirmed {
					return fmt.Errorf("pass --confirm to clear %d reference image(s)", len(ws.mgr.ListReferences()))
				}
				return err
			}
			fmt.Fprintf(app.Out, "Cleared %d reference image(s)\n", n)
			return nil
		},
	}

	cmd.Flags().BoolVar(&flagConfirm, "confirm", false, "confirm the clear")
	return cmd
}

func newSessionsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage stored sessions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.NewSessionStore()
			if err != nil {
				return err
			}
			defer store.Close()

			ctx, cancel := signalContext()
			defer cancel()

			sessions, err := store.ListSessions(ctx)
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Fprintln(app.Out, "No sessions yet")
				return nil
			}
			for _, sess := range sessions {
				name := sess.Name
				if name == "" {
					name = "(unnamed)"
				}
				fmt.Fprintf(app.Out, "%s  %-20s %s\n", sess.ID, name, humanize.Time(sess.UpdatedAt))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.NewSessionStore()
			if err != nil {
				return err
			}
			defer store.Close()

			ctx, cancel := signalContext()
			defer cancel()

			if err := store.DeleteSession(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "Deleted session %s\n", args[0])
			return nil
		},
	})

	return cmd
}
