package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pbaille/kanban/internal/board"
	"github.com/pbaille/kanban/internal/boardconf"
	"github.com/pbaille/kanban/internal/service"
	"github.com/pbaille/kanban/internal/store"
)

func boardInitCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "init [notebook-path] [name]",
		Short: "Create a board note from a YAML configuration file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read config: %w", err)
			}

			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			notebookID, err := s.ResolveNotebook(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			note, err := s.AddNote(cmd.Context(), store.NewNote{
				Title:      args[1],
				Body:       boardconf.Render(string(conf), ""),
				NotebookID: notebookID,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Board: %s\n", note.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML board configuration")
	cmd.MarkFlagRequired("file")
	return cmd
}

func boardConfigCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "config [board-id]",
		Short: "Print a board's configuration, or replace it with --file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			note, err := s.GetConfigNote(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if file == "" {
				conf, ok := boardconf.Extract(note.Body)
				if !ok {
					return fmt.Errorf("%s: %w", note.Title, board.ErrNoConfig)
				}
				fmt.Print(conf)
				return nil
			}

			conf, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read config: %w", err)
			}
			if err := s.SetNoteBody(cmd.Context(), note.ID, boardconf.Update(note.Body, string(conf))); err != nil {
				return err
			}
			fmt.Printf("Updated board: %s\n", note.Title)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML board configuration to store")
	return cmd
}

func boardShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [board-id]",
		Short: "Show a board's columns and notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			v, err := a.svc.Open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printBoard(v)
			return nil
		},
	}
}

func boardMoveCmd() *cobra.Command {
	var index int

	cmd := &cobra.Command{
		Use:   "move [board-id] [note-id] [column]",
		Short: "Move a note to a column",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			v, err := a.svc.Open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			noteID, from, ok := findNote(v.State, args[1])
			if !ok {
				return fmt.Errorf("%w: %s", board.ErrNoteNotFound, args[1])
			}

			muts, v, err := a.svc.Dispatch(cmd.Context(), args[0], board.MoveNote(noteID, from, args[2], index))
			if err != nil {
				return err
			}
			printMutations(muts)
			printBoard(v)
			return nil
		},
	}

	cmd.Flags().IntVarP(&index, "index", "i", 0, "position in the destination column (0 is the top)")
	return cmd
}

func boardNewCmd() *cobra.Command {
	var todo bool

	cmd := &cobra.Command{
		Use:   "new [board-id] [column] [title]",
		Short: "Create a note in a column",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			note, muts, err := a.svc.CreateNote(cmd.Context(), args[0], args[1], strings.Join(args[2:], " "), todo)
			if err != nil {
				return err
			}
			fmt.Printf("Added note: %s\n", note.ID)
			printMutations(muts)
			return nil
		},
	}

	cmd.Flags().BoolVar(&todo, "todo", false, "create a to-do")
	return cmd
}

// findNote returns the full id and column of the note whose id starts with prefix
func findNote(s board.State, prefix string) (string, string, bool) {
	for _, c := range s.Columns {
		for _, n := range c.Notes {
			if strings.HasPrefix(n.ID, prefix) {
				return n.ID, c.Name, true
			}
		}
	}
	return "", "", false
}

func printBoard(v *service.View) {
	fmt.Printf("%s\n", v.Board.Name)
	for _, msg := range v.Board.ErrorMessages {
		fmt.Printf("  ! %s\n", msg)
	}

	hidden := make(map[string]bool)
	for _, t := range v.State.HiddenTags {
		hidden[t] = true
	}

	for _, c := range v.State.Columns {
		fmt.Printf("\n== %s (%d)\n", c.Name, len(c.Notes))
		for _, n := range c.Notes {
			var tags []string
			for _, t := range n.Tags {
				if !hidden[t] {
					tags = append(tags, t)
				}
			}
			line := fmt.Sprintf("  %s  %s", n.ID, truncate(n.Title, 50))
			if len(tags) > 0 {
				line += "  [" + strings.Join(tags, ", ") + "]"
			}
			if n.IsTodo && n.IsCompleted {
				line += "  (done)"
			}
			fmt.Println(line)
		}
	}
}

func printMutations(muts []board.Mutation) {
	if len(muts) == 0 {
		fmt.Println("No changes.")
		return
	}
	for _, m := range muts {
		fmt.Printf("  %-6s %s", m.Type, strings.Join(m.Path, "/"))
		if len(m.Body) > 0 {
			fmt.Printf("  %v", m.Body)
		}
		fmt.Println()
	}
}
