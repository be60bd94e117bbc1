package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pbaille/kanban/internal/api"
	"github.com/pbaille/kanban/internal/config"
	"github.com/pbaille/kanban/internal/dispatch"
	"github.com/pbaille/kanban/internal/recent"
	"github.com/pbaille/kanban/internal/service"
	"github.com/pbaille/kanban/internal/store"
	"github.com/pbaille/kanban/internal/titletmpl"
)

var (
	dbPath string
	cfg    config.Config
	logger *log.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "kanban",
		Short:         "Kanban boards over a tagged note store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return err
			}
			if dbPath != "" {
				cfg.Database.Path = dbPath
			}
			logger, err = cfg.Log.NewLogger()
			return err
		},
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (overrides config)")

	rootCmd.AddCommand(notebookCmd())
	rootCmd.AddCommand(noteCmd())
	rootCmd.AddCommand(tagCmd())
	rootCmd.AddCommand(boardCmd())
	rootCmd.AddCommand(recentCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func getStore() (*store.Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	return store.New(cfg.Database.Path, logger)
}

// app bundles a store with the service built on it
type app struct {
	store *store.Store
	queue *dispatch.Queue
	svc   *service.Service
}

func openApp() (*app, error) {
	s, err := getStore()
	if err != nil {
		return nil, err
	}
	q := dispatch.New(cfg.Dispatch.Timeout, logger)
	return &app{
		store: s,
		queue: q,
		svc: &service.Service{
			Store:  s,
			Queue:  q,
			Recent: recent.New(s, cfg.Recent.Max, logger),
			Titles: titletmpl.New(),
			Log:    logger,
		},
	}, nil
}

func (a *app) Close() {
	a.queue.Close()
	a.store.Close()
}

func notebookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notebook",
		Short: "Manage notebooks",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add [path]",
		Short: "Create a notebook and any missing parents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			id, err := s.ResolveNotebook(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Notebook: %s  %s\n", shortID(id), args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List notebooks as a tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			notebooks, err := s.ListNotebooks(cmd.Context())
			if err != nil {
				return err
			}
			if len(notebooks) == 0 {
				fmt.Println("No notebooks yet. Use 'kanban notebook add' to create one.")
				return nil
			}

			children := make(map[string][]int)
			for i, nb := range notebooks {
				children[nb.ParentID] = append(children[nb.ParentID], i)
			}

			var printTree func(parentID string, indent int)
			printTree = func(parentID string, indent int) {
				for _, i := range children[parentID] {
					nb := notebooks[i]
					fmt.Printf("%s%s  %s\n", strings.Repeat("  ", indent), shortID(nb.ID), nb.Title)
					printTree(nb.ID, indent+1)
				}
			}
			printTree("", 0)

			return nil
		},
	})

	return cmd
}

func noteCmd() *cobra.Command {
	var notebook string
	var tags []string
	var todo bool

	cmd := &cobra.Command{
		Use:   "note",
		Short: "Manage notes",
	}

	add := &cobra.Command{
		Use:   "add [title]",
		Short: "Add a note",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			notebookID, err := s.FindNotebook(cmd.Context(), notebook)
			if err != nil {
				return fmt.Errorf("%w (create it with 'kanban notebook add')", err)
			}

			note, err := s.AddNote(cmd.Context(), store.NewNote{
				Title:      strings.Join(args, " "),
				NotebookID: notebookID,
				IsTodo:     todo,
				Tags:       tags,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Added note: %s\n", note.ID)
			if len(note.Tags) > 0 {
				fmt.Printf("Tags: %s\n", strings.Join(note.Tags, ", "))
			}
			return nil
		},
	}
	add.Flags().StringVarP(&notebook, "notebook", "n", "/", "notebook path")
	add.Flags().StringSliceVarP(&tags, "tag", "t", nil, "tag to attach (repeatable)")
	add.Flags().BoolVar(&todo, "todo", false, "create a to-do")
	cmd.AddCommand(add)

	return cmd
}

func tagCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Inspect tags",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all tags",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			tags, err := s.ListTags(cmd.Context())
			if err != nil {
				return err
			}
			if len(tags) == 0 {
				fmt.Println("No tags yet.")
				return nil
			}
			for _, t := range tags {
				fmt.Printf("%s  %s\n", shortID(t.ID), t.Title)
			}
			return nil
		},
	})

	return cmd
}

func boardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Open boards and act on them",
	}

	cmd.AddCommand(boardInitCmd())
	cmd.AddCommand(boardConfigCmd())
	cmd.AddCommand(boardShowCmd())
	cmd.AddCommand(boardMoveCmd())
	cmd.AddCommand(boardNewCmd())

	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	if id == "" {
		return "(root)"
	}
	return id
}

func truncate(s string, max int) string {
	// Replace newlines with spaces for display
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = cfg.Server.Addr
			}
			server := api.New(a.svc, a.svc.Recent, addr, logger)
			return server.Run()
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "server address (overrides config)")
	return cmd
}
