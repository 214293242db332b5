package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pders01/linkboard/internal/config"
	"github.com/pders01/linkboard/internal/launcher"
	"github.com/pders01/linkboard/internal/render"
	"github.com/pders01/linkboard/internal/stories"
)

func loginHint(err error) error {
	if errors.Is(err, stories.ErrNotLoggedIn) {
		return errLoginRequired
	}
	return err
}

func favoriteLookup(user *stories.User) func(*stories.Story) bool {
	if user == nil {
		return nil
	}
	return user.IsFavorite
}

func newGenerateConfigCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "generate-config",
		Short: "Write a default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.configPath
			if path == "" {
				path = config.DefaultPath()
			}
			if err := config.GenerateDefaultConfig(path); err != nil {
				return fmt.Errorf("generating config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Generated default configuration at: %s\n", path)
			return nil
		},
	}
}

func newStoriesCmd(opts *globalOptions) *cobra.Command {
	var mine, favorites bool

	cmd := &cobra.Command{
		Use:   "stories",
		Short: "List stories, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStories(cmd, opts, mine, favorites)
		},
	}
	cmd.Flags().BoolVarP(&mine, "mine", "m", false, "Only stories you posted")
	cmd.Flags().BoolVarP(&favorites, "favorites", "f", false, "Only your favorites")
	cmd.MarkFlagsMutuallyExclusive("mine", "favorites")
	return cmd
}

func runStories(cmd *cobra.Command, opts *globalOptions, mine, favorites bool) error {
	return withApp(opts, func(cmd *cobra.Command, a *app, _ []string) error {
		user := a.session.User()

		var list []*stories.Story
		switch {
		case mine || favorites:
			if user == nil {
				return errLoginRequired
			}
			if mine {
				list = user.OwnStories()
			} else {
				list = user.Favorites()
			}
		default:
			all, err := a.session.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			list = all.Stories()
		}

		a.println(render.StoryList(list, favoriteLookup(user), time.Now()))
		return nil
	})(cmd, nil)
}

func newSearchCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search loaded stories by title, author, site or poster",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			if _, err := a.session.Refresh(cmd.Context()); err != nil {
				return err
			}

			found, err := a.session.Search(strings.Join(args, " "))
			if err != nil {
				return err
			}
			if len(found) == 0 {
				a.println(render.HelpStyle.Render(render.MsgNoResults))
				return nil
			}

			a.status(render.MsgResultsCount(len(found)))
			a.println(render.StoryList(found, favoriteLookup(a.session.User()), time.Now()))
			return nil
		}),
	}
}

func newSubmitCmd(opts *globalOptions) *cobra.Command {
	var draft stories.NewStory

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Post a new story",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, _ []string) error {
			st, err := a.session.Submit(cmd.Context(), draft)
			if err != nil {
				return loginHint(err)
			}
			a.status("Submitted " + st.ID)
			a.println(render.StoryLine(st, false, time.Now()))
			return nil
		}),
	}
	cmd.Flags().StringVarP(&draft.Title, "title", "t", "", "Story title")
	cmd.Flags().StringVarP(&draft.URL, "url", "u", "", "Link to the story")
	cmd.Flags().StringVarP(&draft.Author, "author", "a", "", "Author credit (defaults to your name)")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func newDeleteCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <story-id>",
		Short: "Delete one of your stories",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			if err := a.session.Delete(cmd.Context(), args[0]); err != nil {
				return loginHint(err)
			}
			a.status("Deleted " + args[0])
			return nil
		}),
	}
}

func newFavoriteCmd(opts *globalOptions, favorite bool) *cobra.Command {
	use, short, done := "favorite", "Add a story to your favorites", "Favorited "
	if !favorite {
		use, short, done = "unfavorite", "Remove a story from your favorites", "Unfavorited "
	}

	return &cobra.Command{
		Use:   use + " <story-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			if err := a.session.SetFavorite(cmd.Context(), args[0], favorite); err != nil {
				return loginHint(err)
			}
			a.status(done + args[0])
			return nil
		}),
	}
}

func newToggleCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <story-id>",
		Short: "Flip whether a story is one of your favorites",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			on, err := a.session.ToggleFavorite(cmd.Context(), args[0])
			if err != nil {
				return loginHint(err)
			}
			if on {
				a.status("Favorited " + args[0])
			} else {
				a.status("Unfavorited " + args[0])
			}
			return nil
		}),
	}
}

func newOpenCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "open <story-id>",
		Short: "Open a story link in your browser",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			st, err := a.session.Story(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := launcher.NewLauncher(a.cfg).Open(st.URL); err != nil {
				return err
			}
			a.status("Opened " + st.URL)
			return nil
		}),
	}
}

func newSignupCmd(opts *globalOptions) *cobra.Command {
	var username, name string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, _ []string) error {
			reader := bufio.NewReader(cmd.InOrStdin())
			w := cmd.ErrOrStderr()

			login, err := valueOrPrompt(username, reader, w, "Username")
			if err != nil {
				return err
			}
			displayName, err := valueOrPrompt(name, reader, w, "Name")
			if err != nil {
				return err
			}
			password, err := promptPassword(w)
			if err != nil {
				return err
			}

			user, err := a.session.Signup(cmd.Context(), login, password, displayName)
			if err != nil {
				return err
			}
			a.status(fmt.Sprintf("Welcome, %s! You are logged in as %s", user.Name(), user.Username()))
			return nil
		}),
	}
	cmd.Flags().StringVar(&username, "username", "", "Account username")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	return cmd
}

func newLoginCmd(opts *globalOptions) *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, _ []string) error {
			reader := bufio.NewReader(cmd.InOrStdin())
			w := cmd.ErrOrStderr()

			login, err := valueOrPrompt(username, reader, w, "Username")
			if err != nil {
				return err
			}
			password, err := promptPassword(w)
			if err != nil {
				return err
			}

			user, err := a.session.Login(cmd.Context(), login, password)
			if err != nil {
				return err
			}
			a.status("Logged in as " + user.Username())
			return nil
		}),
	}
	cmd.Flags().StringVar(&username, "username", "", "Account username")
	return cmd
}

func newLogoutCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, _ []string) error {
			if err := a.session.Logout(); err != nil {
				return err
			}
			a.status(render.MsgLoggedOut)
			return nil
		}),
	}
}

func newWhoamiCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, _ []string) error {
			user := a.session.User()
			if user == nil {
				if a.quiet {
					a.println(render.MsgNotLoggedIn)
				} else {
					a.println(render.CompactBanner(render.MsgNotLoggedIn + ". Run 'linkboard login' to get started"))
				}
				return nil
			}

			a.println(render.HeaderStyle.Render(fmt.Sprintf("%s (%s)", user.Username(), user.Name())))
			if !user.CreatedAt().IsZero() {
				a.println(render.MetaStyle.Render("member since " + user.CreatedAt().Format("Jan 2, 2006")))
			}
			a.println(fmt.Sprintf("%d stories • %d favorites", len(user.OwnStories()), len(user.Favorites())))
			return nil
		}),
	}
}

func newImportCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <feed-url>",
		Short: "Submit the latest entries of an RSS or Atom feed",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			report, err := a.session.Import(cmd.Context(), args[0])
			if err != nil {
				return loginHint(err)
			}

			a.status(render.MsgImportSummary(report.FeedTitle, len(report.Added()), report.Failed()))
			now := time.Now()
			for _, res := range report.Results {
				if res.Err != nil {
					a.println(render.MetaStyle.Render(fmt.Sprintf("  skipped %q: %v", res.Draft.Title, res.Err)))
					continue
				}
				a.println(render.StoryLine(res.Story, false, now))
			}
			return nil
		}),
	}
}
