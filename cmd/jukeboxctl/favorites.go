package main

import (
	"context"
	"fmt"
	"os"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leeineian/jukebox/sys"
	"github.com/spf13/cobra"
)

type FavoritesParams struct {
	Database string `short:"D" optional:"true" help:"Path to the bot database (defaults to the configured one)."`
	User     string `short:"u" optional:"true" help:"List the favorites of one user id."`
}

func FavoritesCmd() *cobra.Command {
	return boa.CmdT[FavoritesParams]{
		Use:         "favorites",
		Short:       "Show saved favorites",
		Long:        "Without --user, lists every user with favorites and how many they saved.",
		ParamEnrich: defaultParamEnricher(),
		RunFunc: func(params *FavoritesParams, cmd *cobra.Command, args []string) {
			if err := runFavorites(cmd.Context(), params); err != nil {
				fail("favorites", err)
			}
		},
	}.ToCobra()
}

func runFavorites(ctx context.Context, params *FavoritesParams) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := openDatabase(ctx, params.Database); err != nil {
		return err
	}
	defer sys.CloseDatabase()

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)

	if params.User != "" {
		favs, err := sys.ListFavorites(ctx, params.User)
		if err != nil {
			return err
		}
		if len(favs) == 0 {
			fmt.Printf("user %s has no favorites\n", params.User)
			return nil
		}
		t.AppendHeader(table.Row{"#", "Title", "Length", "Added", "URL"})
		for i, f := range favs {
			length := "?"
			if f.Duration > 0 {
				length = f.Duration.String()
			}
			t.AppendRow(table.Row{i + 1, sys.Truncate(f.Title, 50), length, f.AddedAt.Format("2006-01-02"), f.URL})
		}
		t.Render()
		return nil
	}

	users, err := sys.FavoriteUsers(ctx)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Println("no favorites saved")
		return nil
	}
	t.AppendHeader(table.Row{"User", "Favorites"})
	for _, u := range users {
		favs, err := sys.ListFavorites(ctx, u)
		if err != nil {
			return err
		}
		t.AppendRow(table.Row{u, len(favs)})
	}
	t.Render()
	return nil
}
