package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"content-rag/internal/config"
	"content-rag/internal/db"
	"content-rag/internal/downloader"
	"content-rag/internal/embedding"
	"content-rag/internal/helper"
	"content-rag/internal/ingest"
	"content-rag/internal/llmservice"
	"content-rag/internal/models"
	"content-rag/internal/parser"
	"content-rag/internal/rag"
	"content-rag/internal/server"
	"content-rag/internal/transcriber"
)

// app holds the wired services shared by the subcommands.
type app struct {
	store *db.Store
	orch  *ingest.Orchestrator
	rag   *rag.RAG
}

func newApp(ctx context.Context) (*app, error) {
	store, err := db.Open(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	embedder, err := embedding.NewFromConfig(&cfg.EmbedLLM)
	if err != nil {
		store.Close()
		return nil, err
	}
	llm, err := llmservice.NewFromConfig(&cfg.ChatLLM)
	if err != nil {
		store.Close()
		return nil, err
	}

	registry := ingest.NewRegistry(parser.New(), transcriber.NewWhisper(&cfg.Transcriber))
	titler := rag.NewTitler(llm, cfg.RAG.TitleMaxTokens, cfg.RAG.TitleExcerptChars)
	orch := ingest.NewOrchestrator(store, registry, embedder, titler,
		downloader.NewYTDLP(&cfg.Video, nil), cfg.Server.UploadDir, cfg.RAG.MaxFiles)

	retriever := rag.NewRetriever(store, cfg.RAG.SourceWeight)
	synth := rag.NewSynthesizer(llm, cfg.RAG.AnswerMaxTokens)

	return &app{
		store: store,
		orch:  orch,
		rag:   rag.NewRAG(embedder, retriever, synth),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing database")
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := server.New(server.Config{
				Port:           cfg.Server.Port,
				AllowAll:       cfg.Server.AllowAllOrigins,
				MaxUploadBytes: cfg.Server.MaxUploadMB << 20,
				RequestTimeout: time.Duration(cfg.Server.RequestTimeoutSecs) * time.Second,
			}, a.store, a.orch, a.rag)

			errCh := make(chan error, 1)
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			log.Info().Msg("Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func ingestCmd() *cobra.Command {
	var (
		title string
		md    models.NoteMetadata
		url   string
	)
	cmd := &cobra.Command{
		Use:   "ingest <class> [files...]",
		Short: "Ingest local files (or a video URL) into a content class",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			class, err := models.ParseClass(args[0])
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			req := ingest.Request{Class: class, Title: title, SourceURL: url}
			for _, path := range args[1:] {
				req.Payloads = append(req.Payloads, ingest.FromPath(path))
			}
			if class == models.ClassNotes {
				req.Metadata = &md
			}

			rec, err := a.orch.Ingest(cmd.Context(), req)
			if err != nil {
				return err
			}
			helper.PrettyPrint(map[string]any{
				"id":         rec.ID,
				"title":      rec.Title,
				"text":       helper.Excerpt(rec.Text, 200),
				"created_at": rec.CreatedAt,
			})
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "record title (generated when empty, required for notes)")
	cmd.Flags().StringVar(&url, "url", "", "video URL (videos only)")
	cmd.Flags().StringVar(&md.Category, "category", "", "notes category")
	cmd.Flags().StringVar(&md.Exam, "exam", "", "notes exam")
	cmd.Flags().StringVar(&md.Paper, "paper", "", "notes paper")
	cmd.Flags().StringVar(&md.Subject, "subject", "", "notes subject")
	cmd.Flags().StringVar(&md.Topics, "topics", "", "notes topics")
	return cmd
}

func askCmd() *cobra.Command {
	var (
		class string
		id    int64
	)
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from one record, one class, or every class",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			byID := cmd.Flags().Changed("id")
			if byID && class == "" {
				return fmt.Errorf("%w: --id needs --class", models.ErrValidation)
			}
			if byID && id <= 0 {
				return fmt.Errorf("%w: invalid id %d", models.ErrValidation, id)
			}
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			var ans *models.Answer
			switch {
			case class == "":
				ans, err = a.rag.AskAll(ctx, args[0])
			default:
				c, perr := models.ParseClass(class)
				if perr != nil {
					return perr
				}
				if byID {
					ans, err = a.rag.AskRecord(ctx, c, id, args[0])
				} else {
					ans, err = a.rag.AskClass(ctx, c, args[0])
				}
			}
			if err != nil {
				return err
			}
			helper.PrettyPrint(ans)
			return nil
		},
	}
	cmd.Flags().StringVar(&class, "class", "", "content class to search (all classes when empty)")
	cmd.Flags().Int64Var(&id, "id", 0, "record id within --class")
	return cmd
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <class>",
		Short: "List the records of a content class",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			class, err := models.ParseClass(args[0])
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			coll, err := a.store.Collection(class)
			if err != nil {
				return err
			}
			items, err := coll.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, s := range items {
				fmt.Fprintf(os.Stdout, "%6s  %s  %s\n", strconv.FormatInt(s.ID, 10), s.Date.Format(time.DateTime), s.Title)
			}
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the content tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			// Open creates missing tables on its own.
			store, err := db.Open(ctx, &cfg.Database)
			if err != nil {
				return err
			}
			defer store.Close()

			if reset {
				log.Warn().Msg("Dropping all content tables")
				if err := store.DropTables(ctx); err != nil {
					return err
				}
				if err := store.Migrate(ctx); err != nil {
					return err
				}
			}
			log.Info().Bool("reset", reset).Msg("Migration complete")
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "drop and recreate every table")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
		// Overrides the root hook: the file may not exist yet.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			helper.SetupLogger("info", true)
			return nil
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration to --config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteDefault(cfgPath, force); err != nil {
				return err
			}
			log.Info().Str("path", cfgPath).Msg("Wrote default config")
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	cmd.AddCommand(initCmd)
	return cmd
}
