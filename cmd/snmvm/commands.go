package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"snmvm/internal/devserver"
	"snmvm/internal/engine"
	"snmvm/internal/models"
	"snmvm/internal/observability"
	"snmvm/internal/session"

	"github.com/urfave/cli/v2"
)

// sessionView is what login prints; the token itself is never echoed.
type sessionView struct {
	Name      string     `json:"name" yaml:"name"`
	BaseURL   string     `json:"base_url" yaml:"base_url"`
	Subject   string     `json:"subject,omitempty" yaml:"subject,omitempty"`
	Viewer    string     `json:"viewer" yaml:"viewer"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
}

func requireArgs(ctx *cli.Context, names ...string) ([]string, error) {
	if ctx.Args().Len() < len(names) {
		return nil, fmt.Errorf("usage: %s %s", ctx.Command.Name, argsUsage(names))
	}
	out := make([]string, len(names))
	for i := range names {
		out[i] = ctx.Args().Get(i)
	}
	return out, nil
}

func argsUsage(names []string) string {
	s := ""
	for i, n := range names {
		if i > 0 {
			s += " "
		}
		s += "<" + n + ">"
	}
	return s
}

func loginCommand(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "store a bearer token as the active session",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "name",
				Usage: "The session name.",
				Value: "default",
			},
			&cli.StringFlag{
				Name:     "token",
				Usage:    "The bearer token. Required.",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "base-url",
				Usage: "The API base URL. Defaults to API_BASE_URL.",
			},
		},
		Action: withStore(rt, func(store *session.Store, ctx *cli.Context) error {
			baseURL := rt.cfg.APIBaseURL
			if ctx.IsSet("base-url") {
				baseURL = ctx.String("base-url")
			}
			sess, err := store.Save(ctx.Context, ctx.String("name"), baseURL, ctx.String("token"))
			if err != nil {
				return err
			}
			return rt.print(ctx, sessionView{
				Name:      sess.Name,
				BaseURL:   sess.BaseURL,
				Subject:   sess.Subject,
				Viewer:    sess.Viewer(),
				ExpiresAt: sess.ExpiresAt,
			})
		}),
	}
}

func logoutCommand(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "forget a stored session",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "name",
				Usage: "The session name. Defaults to the active session.",
			},
		},
		Action: withStore(rt, func(store *session.Store, ctx *cli.Context) error {
			name := ctx.String("name")
			if name == "" {
				sess, err := store.Active(ctx.Context)
				if err != nil {
					return err
				}
				name = sess.Name
			}
			if err := store.Delete(ctx.Context, name); err != nil {
				return err
			}
			return rt.print(ctx, map[string]string{"logged_out": name})
		}),
	}
}

func feedCommand(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "feed",
		Usage: "list a page of posts",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "page", Usage: "The page number.", Value: 1},
			&cli.IntFlag{Name: "limit", Usage: "Posts per page.", Value: 20},
			&cli.BoolFlag{Name: "threads", Usage: "Also load the comments of every post."},
		},
		Action: withDeps(rt, func(d *deps, ctx *cli.Context) error {
			feed := d.engine.Feed()
			posts, err := feed.Load(ctx.Context, ctx.Int("page"), ctx.Int("limit"))
			if err != nil {
				return err
			}
			if !ctx.Bool("threads") {
				return rt.print(ctx, posts)
			}

			ids := make([]string, 0, len(posts))
			for _, p := range posts {
				ids = append(ids, p.ID)
			}
			threads, err := feed.LoadThreads(ctx.Context, ids)
			if err != nil {
				return err
			}
			type postWithComments struct {
				models.Post `yaml:",inline"`
				Comments    []*models.Comment `json:"comments" yaml:"comments"`
			}
			out := make([]postWithComments, 0, len(posts))
			for _, p := range posts {
				out = append(out, postWithComments{Post: *p, Comments: threads[p.ID].Comments()})
			}
			return rt.print(ctx, out)
		}),
	}
}

func threadCommand(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "thread",
		Usage:     "show the comments and replies of a post",
		ArgsUsage: "<postId>",
		Action: withDeps(rt, func(d *deps, ctx *cli.Context) error {
			args, err := requireArgs(ctx, "postId")
			if err != nil {
				return err
			}
			thread, err := loadThread(ctx.Context, d, args[0])
			if err != nil {
				return err
			}
			return rt.print(ctx, thread.Comments())
		}),
	}
}

func commentCommand(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "comment",
		Usage:     "comment on a post",
		ArgsUsage: "<postId> <text>",
		Action: withDeps(rt, func(d *deps, ctx *cli.Context) error {
			args, err := requireArgs(ctx, "postId", "text")
			if err != nil {
				return err
			}
			thread, err := loadThread(ctx.Context, d, args[0])
			if err != nil {
				return err
			}
			created, err := thread.CreateComment(ctx.Context, engine.NewDraft(args[1]))
			if err != nil {
				return err
			}
			if created == nil {
				return models.NewValidationError("nothing to post: the comment is empty")
			}
			return rt.print(ctx, created)
		}),
	}
}

func replyCommand(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "reply",
		Usage:     "reply to a comment",
		ArgsUsage: "<postId> <commentId> <text>",
		Action: withDeps(rt, func(d *deps, ctx *cli.Context) error {
			args, err := requireArgs(ctx, "postId", "commentId", "text")
			if err != nil {
				return err
			}
			thread, err := loadThread(ctx.Context, d, args[0])
			if err != nil {
				return err
			}
			created, err := thread.CreateReply(ctx.Context, args[1], engine.NewDraft(args[2]))
			if err != nil {
				return err
			}
			if created == nil {
				return models.NewValidationError("nothing to post: empty reply or unknown top-level comment " + args[1])
			}
			return rt.print(ctx, created)
		}),
	}
}

func likePostCommand(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "like-post",
		Usage:     "like or unlike a post",
		ArgsUsage: "<postId>",
		Action: withDeps(rt, func(d *deps, ctx *cli.Context) error {
			args, err := requireArgs(ctx, "postId")
			if err != nil {
				return err
			}
			rec, err := d.client.GetPost(ctx.Context, args[0])
			if err != nil {
				return err
			}
			state, err := d.engine.NewLikeState(rec.ToPost().Likes).Toggle(ctx.Context)
			if err != nil {
				return err
			}
			return rt.print(ctx, state)
		}),
	}
}

func likeCommentCommand(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "like-comment",
		Usage:     "like or unlike a comment or reply",
		ArgsUsage: "<postId> <commentId>",
		Action: withDeps(rt, func(d *deps, ctx *cli.Context) error {
			args, err := requireArgs(ctx, "postId", "commentId")
			if err != nil {
				return err
			}
			thread, err := loadThread(ctx.Context, d, args[0])
			if err != nil {
				return err
			}
			state, err := thread.ToggleLike(ctx.Context, args[1])
			if err != nil {
				return err
			}
			return rt.print(ctx, state)
		}),
	}
}

func deleteCommentCommand(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "delete-comment",
		Usage:     "delete a comment; replies are only hidden locally",
		ArgsUsage: "<postId> <commentId>",
		Action: withDeps(rt, func(d *deps, ctx *cli.Context) error {
			args, err := requireArgs(ctx, "postId", "commentId")
			if err != nil {
				return err
			}
			postID, commentID := args[0], args[1]

			post, err := d.client.GetPost(ctx.Context, postID)
			if err != nil {
				return err
			}
			thread, err := loadThread(ctx.Context, d, postID)
			if err != nil {
				return err
			}

			target, parent := findComment(thread.Comments(), commentID)
			if target == nil {
				return models.NewNotFoundError("comment", commentID)
			}
			if !engine.CanDelete(d.viewer, post.ToPost().Author, target.Author) {
				return models.NewUnauthorizedError("only the comment author or the post author can delete it")
			}

			if parent != nil {
				thread.DeleteReply(ctx.Context, parent.ID, commentID)
				return rt.print(ctx, map[string]string{"hidden": commentID})
			}
			if err := thread.DeleteComment(ctx.Context, commentID); err != nil {
				return err
			}
			return rt.print(ctx, map[string]string{"deleted": commentID})
		}),
	}
}

// findComment looks id up among top-level comments and their replies; parent
// is set when id is a reply.
func findComment(comments []*models.Comment, id string) (target, parent *models.Comment) {
	for _, c := range comments {
		if c.ID == id {
			return c, nil
		}
		for _, r := range c.Replies {
			if r.ID == id {
				return r, c
			}
		}
	}
	return nil, nil
}

func devServerCommand(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "dev-server",
		Usage: "run an in-memory forum backend for local use",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "port", Usage: "Port to listen on. Defaults to DEV_SERVER_PORT."},
			&cli.IntFlag{Name: "seed", Usage: "Number of fake posts to create.", Value: 10},
			&cli.StringFlag{Name: "user", Usage: "User id of the printed token.", Value: "dev-user"},
		},
		Action: func(ctx *cli.Context) error {
			port := rt.cfg.DevServerPort
			if ctx.IsSet("port") {
				port = ctx.String("port")
			}

			srv := devserver.New(devserver.Config{Secret: rt.cfg.DevJWTSecret})
			summary := srv.Store().Seed(ctx.Int("seed"), time.Now().UnixNano())
			token, err := srv.IssueToken(ctx.String("user"), ctx.String("user")+"@snmvm.local", "", 24*time.Hour)
			if err != nil {
				return err
			}
			if err := rt.print(ctx, map[string]interface{}{
				"listen": ":" + port,
				"token":  token,
				"seeded": summary,
			}); err != nil {
				return err
			}

			// Graceful shutdown
			sigCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			go func() {
				<-sigCtx.Done()
				observability.GlobalLogger.Info("Shutting down dev server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					observability.GlobalLogger.Error("dev server shutdown error", "error", err)
				}
			}()

			return srv.Listen(":" + port)
		},
	}
}
