package main

import (
	"context"
	"errors"

	"snmvm/internal/apiclient"
	"snmvm/internal/cache"
	"snmvm/internal/engine"
	"snmvm/internal/observability"
	"snmvm/internal/session"

	"github.com/urfave/cli/v2"
)

// deps are the per-command collaborators built from config and the active
// session.
type deps struct {
	client *apiclient.Client
	engine *engine.Engine
	// viewer is the current user's display name, "" when anonymous.
	viewer string
}

func (rt *runtime) print(ctx *cli.Context, v interface{}) error {
	return printResult(rt.out, ctx.String("output"), v)
}

func withStore(rt *runtime, f func(store *session.Store, ctx *cli.Context) error) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		store, err := session.Open(rt.cfg.SessionDBPath)
		if err != nil {
			return err
		}
		defer store.Close()
		return f(store, ctx)
	}
}

// withDeps resolves the credential (active session first, then API_TOKEN)
// and builds the request layer and engine around it. Cached comment lists
// are keyed to the session subject, or to the token when there is none.
func withDeps(rt *runtime, f func(d *deps, ctx *cli.Context) error) cli.ActionFunc {
	return withStore(rt, func(store *session.Store, ctx *cli.Context) error {
		baseURL, token, viewer := rt.cfg.APIBaseURL, rt.cfg.APIToken, ""
		scope := ""
		sess, err := store.Active(ctx.Context)
		switch {
		case err == nil:
			baseURL, token, viewer = sess.BaseURL, sess.Token, sess.Viewer()
			if sess.Subject != "" {
				scope = cache.Scope(sess.BaseURL, "sub:"+sess.Subject)
			}
		case errors.Is(err, session.ErrNoSession):
			if token == "" {
				observability.GlobalLogger.Warn("no active session; requests are sent anonymously")
			}
		default:
			return err
		}

		c := cache.Connect(rt.cfg.RedisURL, rt.cfg.CacheTTL)
		defer c.Close()

		client := apiclient.New(apiclient.Options{
			BaseURL:    baseURL,
			Token:      token,
			Timeout:    rt.cfg.APITimeout,
			UserAgent:  "snmvm/" + version,
			Cache:      c,
			CacheScope: scope,
		})
		return f(&deps{client: client, engine: engine.New(client), viewer: viewer}, ctx)
	})
}

func loadThread(ctx context.Context, d *deps, postID string) (*engine.Thread, error) {
	thread := d.engine.Thread(postID)
	if err := thread.Load(ctx); err != nil {
		return nil, err
	}
	return thread, nil
}
