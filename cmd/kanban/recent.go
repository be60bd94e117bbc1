package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pbaille/kanban/internal/recent"
)

func recentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List recently opened boards",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			list := recent.New(s, cfg.Recent.Max, logger)
			if err := list.Load(cmd.Context()); err != nil {
				return err
			}

			items := list.Items()
			if len(items) == 0 {
				fmt.Println("No boards opened yet. Use 'kanban board show' to open one.")
				return nil
			}
			for _, it := range items {
				mark := " "
				if it.Bookmarked {
					mark = "*"
				}
				fmt.Printf("%s %s  %s\n", mark, it.NoteID, it.Title)
			}
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "remove [board-id]",
		Short: "Forget a board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			list := recent.New(s, cfg.Recent.Max, logger)
			if err := list.Load(cmd.Context()); err != nil {
				return err
			}
			list.Remove(args[0])
			return list.Save(cmd.Context())
		},
	})

	var off bool
	bookmark := &cobra.Command{
		Use:   "bookmark [board-id]",
		Short: "Bookmark a board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			cfgNote, err := s.GetConfigNote(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			list := recent.New(s, cfg.Recent.Max, logger)
			if err := list.Load(cmd.Context()); err != nil {
				return err
			}
			marked := !off
			list.Prepend(cfgNote.ID, cfgNote.Title, &marked)
			return list.Save(cmd.Context())
		},
	}
	bookmark.Flags().BoolVar(&off, "off", false, "remove the bookmark")
	cmd.AddCommand(bookmark)

	return cmd
}
