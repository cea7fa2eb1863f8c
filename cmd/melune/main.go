package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pbaille/melune/internal/api"
	"github.com/pbaille/melune/internal/apperrors"
	"github.com/pbaille/melune/internal/config"
	"github.com/pbaille/melune/internal/domain"
	"github.com/pbaille/melune/internal/fetcher"
	"github.com/pbaille/melune/internal/logging"
	"github.com/pbaille/melune/internal/notebook"
	"github.com/pbaille/melune/internal/persona"
	"github.com/pbaille/melune/internal/store"
)

var (
	configPath string
	dbPath     string
)

// app bundles the wired services for one command invocation
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    *store.Store
	notebook *notebook.Notebook
	personas *persona.Service
}

func (a *app) Close() {
	a.store.Close()
	a.logger.Sync()
}

func main() {
	rootCmd := &cobra.Command{
		Use:          "melune",
		Short:        "Cycle notebook and persona assistant",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultFile, "config file path")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (overrides config)")

	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(saveCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(deleteCmd())
	rootCmd.AddCommand(tagCmd())
	rootCmd.AddCommand(tagsCmd())
	rootCmd.AddCommand(suggestTagsCmd())
	rootCmd.AddCommand(trendsCmd())
	rootCmd.AddCommand(personaCmd())
	rootCmd.AddCommand(cycleCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(resetCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	s, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	nb := notebook.New(s, logger)
	if err := nb.Load(ctx); err != nil {
		s.Close()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    s,
		notebook: nb,
		personas: persona.NewService(s, logger),
	}, nil
}

// withApp runs fn with a wired app and closes it afterwards
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func addCmd() *cobra.Command {
	var (
		entryType string
		phase     string
		mood      string
		energy    int
		symptoms  []string
		tags      []string
	)

	cmd := &cobra.Command{
		Use:   "add [content]",
		Short: "Add a notebook entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			content := strings.Join(args, " ")

			t, err := domain.ParseEntryType(entryType)
			if err != nil {
				return err
			}
			if t != domain.EntryTracking && strings.TrimSpace(content) == "" {
				return fmt.Errorf("content is required for %s entries", t)
			}

			meta := domain.EntryMetadata{Mood: mood, Symptoms: symptoms, Tags: tags}
			if cmd.Flags().Changed("energy") {
				if energy < 0 || energy > 4 {
					return fmt.Errorf("energy must be between 0 and 4")
				}
				meta.Energy = &energy
			}

			return withApp(cmd, func(ctx context.Context, a *app) error {
				p, err := currentPhase(ctx, a, phase)
				if err != nil {
					return err
				}
				meta.Phase = p

				id, err := a.notebook.AddEntry(ctx, content, t, meta)
				if err != nil {
					return err
				}
				entry, _ := a.notebook.Entry(id)

				fmt.Printf("Added entry: %s\n", entry.ID)
				if entry.Content != "" {
					fmt.Printf("Content: %s\n", truncate(entry.Content, 80))
				}
				fmt.Printf("Tags: %s\n", strings.Join(entry.AllTags(), " "))

				if suggested := a.notebook.SuggestedTags(content); len(suggested) > 0 {
					fmt.Printf("Suggested: %s\n", strings.Join(suggested, " "))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&entryType, "type", "t", string(domain.EntryPersonal), "entry type (saved, personal, tracking)")
	cmd.Flags().StringVar(&phase, "phase", "", "cycle phase (defaults to the current phase)")
	cmd.Flags().StringVar(&mood, "mood", "", "mood label")
	cmd.Flags().IntVar(&energy, "energy", 0, "energy level 0-4")
	cmd.Flags().StringSliceVar(&symptoms, "symptom", nil, "symptom (repeatable)")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "manual tag (repeatable)")
	return cmd
}

// currentPhase parses an explicit phase or reads the one stored by the cycle tracker
func currentPhase(ctx context.Context, a *app, raw string) (domain.CyclePhase, error) {
	if raw != "" {
		return domain.ParseCyclePhase(raw)
	}
	state, err := a.store.LoadCycle(ctx)
	if err != nil {
		return "", err
	}
	return state.CurrentPhase, nil
}

func saveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save [url]",
		Short: "Save a web page as a notebook entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !fetcher.IsURL(args[0]) {
				return fmt.Errorf("not a URL: %s", args[0])
			}

			return withApp(cmd, func(ctx context.Context, a *app) error {
				fmt.Print("Fetching... ")
				page, err := fetcher.New(a.cfg.FetchTimeout, a.logger).Fetch(ctx, args[0])
				if err != nil {
					fmt.Println("failed")
					return err
				}
				fmt.Println("done")

				phase, err := currentPhase(ctx, a, "")
				if err != nil {
					return err
				}
				id, err := a.notebook.AddEntry(ctx, page.Content(), domain.EntrySaved, domain.EntryMetadata{Phase: phase})
				if err != nil {
					return err
				}

				entry, _ := a.notebook.Entry(id)
				fmt.Printf("Saved entry: %s\n", entry.ID)
				if page.Title != "" {
					fmt.Printf("Title: %s\n", page.Title)
				}
				fmt.Printf("Tags: %s\n", strings.Join(entry.AutoTags, " "))
				return nil
			})
		},
	}
}

func listCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				entries := a.notebook.Entries()
				if len(entries) == 0 {
					fmt.Println("No entries yet. Use 'melune add' to create one.")
					return nil
				}
				if limit > 0 && len(entries) > limit {
					entries = entries[:limit]
				}
				printEntries(entries)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show")
	return cmd
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show entry details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				entry, ok := a.notebook.Entry(args[0])
				if !ok {
					return fmt.Errorf("%w: entry %s", apperrors.ErrNotFound, args[0])
				}

				fmt.Printf("ID:      %s\n", entry.ID)
				fmt.Printf("Created: %s\n", entry.CreatedAt().Format("2006-01-02 15:04:05"))
				fmt.Printf("Type:    %s\n", entry.Type)
				if entry.Metadata.Phase != "" {
					fmt.Printf("Phase:   %s\n", entry.Metadata.Phase)
				}
				if entry.Metadata.Mood != "" {
					fmt.Printf("Mood:    %s\n", entry.Metadata.Mood)
				}
				if entry.Metadata.Energy != nil {
					fmt.Printf("Energy:  %d/4\n", *entry.Metadata.Energy)
				}
				if len(entry.Metadata.Symptoms) > 0 {
					fmt.Printf("Symptoms: %s\n", strings.Join(entry.Metadata.Symptoms, ", "))
				}
				if entry.Content != "" {
					fmt.Printf("Content:\n%s\n", entry.Content)
				}

				fmt.Printf("\nTags:\n")
				for _, t := range entry.AllTags() {
					fmt.Printf("  - %s\n", t)
				}
				return nil
			})
		},
	}
}

func searchCmd() *cobra.Command {
	var (
		tags      []string
		entryType string
		phase     string
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			filters := notebook.Filters{Tags: tags}
			if entryType != "" {
				t, err := domain.ParseEntryType(entryType)
				if err != nil {
					return err
				}
				filters.Type = t
			}
			if phase != "" {
				p, err := domain.ParseCyclePhase(phase)
				if err != nil {
					return err
				}
				filters.Phase = p
			}

			return withApp(cmd, func(ctx context.Context, a *app) error {
				entries := a.notebook.Search(strings.Join(args, " "), filters)
				if len(entries) == 0 {
					fmt.Println("No matching entries found.")
					return nil
				}
				printEntries(entries)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&tags, "tag", nil, "match entries carrying any of these tags")
	cmd.Flags().StringVarP(&entryType, "type", "t", "", "entry type filter")
	cmd.Flags().StringVar(&phase, "phase", "", "cycle phase filter")
	return cmd
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if _, ok := a.notebook.Entry(args[0]); !ok {
					fmt.Println("Nothing to delete.")
					return nil
				}
				if err := a.notebook.DeleteEntry(ctx, args[0]); err != nil {
					return err
				}
				fmt.Printf("Deleted entry: %s\n", args[0])
				return nil
			})
		},
	}
}

func tagCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Edit the manual tags of an entry",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add [id] [tag]",
		Short: "Add a tag to an entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editTags(cmd, args[0], func(ctx context.Context, nb *notebook.Notebook) error {
				return nb.AddTagToEntry(ctx, args[0], args[1])
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "rm [id] [tag]",
		Short: "Remove a tag from an entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editTags(cmd, args[0], func(ctx context.Context, nb *notebook.Notebook) error {
				return nb.RemoveTagFromEntry(ctx, args[0], args[1])
			})
		},
	})
	return cmd
}

func editTags(cmd *cobra.Command, id string, fn func(context.Context, *notebook.Notebook) error) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if err := fn(ctx, a.notebook); err != nil {
			return err
		}
		entry, ok := a.notebook.Entry(id)
		if !ok {
			return fmt.Errorf("%w: entry %s", apperrors.ErrNotFound, id)
		}
		fmt.Printf("Tags: %s\n", strings.Join(entry.Metadata.Tags, " "))
		return nil
	})
}

func tagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "Show the most used tags",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				stats := a.notebook.TagStats()
				if len(stats) == 0 {
					fmt.Println("No tags yet. Tags are added when entries are created.")
					return nil
				}
				for _, s := range stats {
					fmt.Printf("%4d  %s\n", s.Count, s.Tag)
				}
				return nil
			})
		},
	}
}

func suggestTagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggest-tags [content]",
		Short: "Suggest tags for a draft entry",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				suggested := a.notebook.SuggestedTags(strings.Join(args, " "))
				if len(suggested) == 0 {
					fmt.Println("No suggestions.")
					return nil
				}
				fmt.Println(strings.Join(suggested, " "))
				return nil
			})
		},
	}
}

func trendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trends",
		Short: "Summarise the last seven days of tracking",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				trends := a.notebook.Trends()
				if trends == nil {
					fmt.Println("Not enough tracking entries this week.")
					return nil
				}
				fmt.Printf("Entries: %d\n", trends.EntriesCount)
				fmt.Printf("Energy:  %s", trends.EnergyTrend)
				if trends.AverageEnergy != nil {
					fmt.Printf(" (avg %.1f)", *trends.AverageEnergy)
				}
				fmt.Println()
				if trends.TopSymptom != "" {
					fmt.Printf("Top symptom: %s\n", trends.TopSymptom)
				}
				return nil
			})
		},
	}
}

func personaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "persona",
		Short: "Onboarding answers and persona assignment",
	}

	var journey, age string
	answer := &cobra.Command{
		Use:   "answer",
		Short: "Record onboarding answers",
		RunE: func(cmd *cobra.Command, args []string) error {
			var j domain.JourneyChoice
			var r domain.AgeRange
			var err error
			if journey != "" {
				if j, err = domain.ParseJourneyChoice(journey); err != nil {
					return err
				}
			}
			if age != "" {
				if r, err = domain.ParseAgeRange(age); err != nil {
					return err
				}
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				p, err := a.personas.SetAnswers(ctx, j, r)
				if err != nil {
					return err
				}
				printProfile(p)
				return nil
			})
		},
	}
	answer.Flags().StringVar(&journey, "journey", "", "journey choice (body_disconnect, hiding_nature, emotional_control)")
	answer.Flags().StringVar(&age, "age", "", "age range (18-25, 26-35, 36-45, 46-55, 55+)")

	suggest := &cobra.Command{
		Use:   "suggest",
		Short: "Show the suggested persona",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				p, ok, err := a.personas.Suggest(ctx)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Printf("No suggestion yet, defaulting to %s\n", persona.DefaultPersona)
					return nil
				}
				fmt.Printf("Suggested: %s (confidence %.2f)\n", p, persona.SuggestedConfidence)
				return nil
			})
		},
	}

	confirm := &cobra.Command{
		Use:   "confirm [persona]",
		Short: "Confirm the persona to use",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			selected, err := domain.ParsePersona(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				p, err := a.personas.Confirm(ctx, selected)
				if err != nil {
					return err
				}
				printProfile(p)
				return nil
			})
		},
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Clear onboarding answers and persona",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.personas.Reset(ctx); err != nil {
					return err
				}
				fmt.Println("Profile cleared.")
				return nil
			})
		},
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the stored profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				p, err := a.personas.Profile(ctx)
				if err != nil {
					return err
				}
				printProfile(p)
				return nil
			})
		},
	}

	cmd.AddCommand(answer, suggest, confirm, reset, show)
	return cmd
}

func cycleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cycle",
		Short: "Current cycle state",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "phase [phase]",
		Short: "Show or set the current cycle phase",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if len(args) == 0 {
					state, err := a.store.LoadCycle(ctx)
					if err != nil {
						return err
					}
					if state.CurrentPhase == "" {
						fmt.Println("No phase set.")
						return nil
					}
					fmt.Println(state.CurrentPhase)
					return nil
				}

				phase, err := domain.ParseCyclePhase(args[0])
				if err != nil {
					return err
				}
				if err := a.store.SaveCycle(ctx, &domain.CycleState{CurrentPhase: phase}); err != nil {
					return err
				}
				fmt.Printf("Current phase: %s\n", phase)
				return nil
			})
		},
	})
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show stored documents and their last write",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				docs, err := a.store.Documents(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("Database: %s\n", a.cfg.DBPath)
				for _, name := range []string{store.NotebookDocument, store.ProfileDocument, store.CycleDocument} {
					if updated, ok := docs[name]; ok {
						fmt.Printf("  %-17s %s\n", name, updated.Format("2006-01-02 15:04:05"))
					} else {
						fmt.Printf("  %-17s -\n", name)
					}
				}
				fmt.Printf("Entries: %d\n", len(a.notebook.Entries()))
				return nil
			})
		},
	}
}

func resetCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all notebook, profile and cycle data",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to reset without --yes")
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.store.Reset(ctx); err != nil {
					return err
				}
				a.logger.Info("Full reset", zap.String("db", a.cfg.DBPath))
				fmt.Println("All data deleted.")
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if addr == "" {
					addr = a.cfg.Addr
				}
				f := fetcher.New(a.cfg.FetchTimeout, a.logger)
				server := api.New(a.notebook, a.personas, a.store, f, a.logger, addr)
				if err := server.Run(); err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "server address (overrides config)")
	return cmd
}

func printEntries(entries []domain.NotebookEntry) {
	for _, e := range entries {
		content := e.Content
		if content == "" {
			content = "(" + string(e.Type) + ")"
		}
		fmt.Printf("%s  %s  %s\n", e.ID, e.CreatedAt().Format("2006-01-02"), truncate(content, 60))
	}
}

func printProfile(p *domain.UserProfile) {
	fmt.Printf("Journey: %s\n", orDash(string(p.JourneyChoice)))
	fmt.Printf("Age:     %s\n", orDash(string(p.AgeRange)))
	if p.AssignedPersona != nil {
		fmt.Printf("Persona: %s (confidence %.2f)\n", *p.AssignedPersona, p.PersonaConfidence)
	} else {
		fmt.Println("Persona: -")
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, max int) string {
	// Replace newlines with spaces for display
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
