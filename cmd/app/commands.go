package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/starford/inkwell/internal"
	"github.com/starford/inkwell/internal/apperr"
	"github.com/starford/inkwell/internal/auth"
	"github.com/starford/inkwell/internal/queue"
)

// withRuntime builds the component graph for a one-shot command. Logs go to
// stderr so stdout carries only command output. Commands act as the system
// principal.
func withRuntime(ctx context.Context, cmd *cli.Command, fn func(context.Context, *internal.Runtime, io.Writer) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	rt, err := internal.Build(ctx,
		internal.WithConfig(cfg),
		internal.WithLogOutput(os.Stderr),
		internal.WithVersion(version),
	)
	if err != nil {
		return err
	}
	defer rt.Close(context.Background()) //nolint:errcheck

	return fn(auth.WithPrincipal(ctx, auth.System), rt, cmd.Root().Writer)
}

func requireArgs(cmd *cli.Command, n int, usage string) error {
	if cmd.NArg() != n {
		return apperr.Validationf("usage: %s", usage)
	}
	return nil
}

func newKeywordsCommand() *cli.Command {
	return &cli.Command{
		Name:    "keywords",
		Aliases: []string{"kw"},
		Usage:   "Inspect and manage the keyword queue",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List queued keywords",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "status", Usage: "Filter by status"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withRuntime(ctx, cmd, func(ctx context.Context, rt *internal.Runtime, w io.Writer) error {
						items, err := rt.Service.ListKeywords(ctx, cmd.String("status"))
						if err != nil {
							return err
						}
						fmt.Fprintln(w, keywordTable(items, shouldColorize(w)))
						return nil
					})
				},
			},
			{
				Name:      "add",
				Usage:     "Queue a keyword",
				ArgsUsage: "<keyword>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "stage", Usage: "Funnel stage (TOFU, MOFU, BOFU)"},
					&cli.StringFlag{Name: "intent", Usage: "Search intent"},
					&cli.StringFlag{Name: "priority", Usage: "high, medium or low"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := requireArgs(cmd, 1, "keywords add <keyword>"); err != nil {
						return err
					}
					return withRuntime(ctx, cmd, func(ctx context.Context, rt *internal.Runtime, w io.Writer) error {
						_, res, err := rt.Service.AddKeyword(ctx, queue.AddRequest{
							Keyword:  cmd.Args().First(),
							Stage:    cmd.String("stage"),
							Intent:   cmd.String("intent"),
							Priority: cmd.String("priority"),
						})
						if err != nil {
							return err
						}
						printResult(w, res)
						return nil
					})
				},
			},
			{
				Name:      "remove",
				Usage:     "Remove a keyword (exact match)",
				ArgsUsage: "<keyword>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := requireArgs(cmd, 1, "keywords remove <keyword>"); err != nil {
						return err
					}
					return withRuntime(ctx, cmd, func(ctx context.Context, rt *internal.Runtime, w io.Writer) error {
						res, err := rt.Service.RemoveKeyword(ctx, cmd.Args().First())
						if err != nil {
							return err
						}
						printResult(w, res)
						return nil
					})
				},
			},
			{
				Name:      "status",
				Usage:     "Move a keyword to another production state",
				ArgsUsage: "<keyword> <status>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := requireArgs(cmd, 2, "keywords status <keyword> <status>"); err != nil {
						return err
					}
					return withRuntime(ctx, cmd, func(ctx context.Context, rt *internal.Runtime, w io.Writer) error {
						_, res, err := rt.Service.SetStatus(ctx, cmd.Args().Get(0), cmd.Args().Get(1))
						if err != nil {
							return err
						}
						printResult(w, res)
						return nil
					})
				},
			},
		},
	}
}

func newContentCommand() *cli.Command {
	return &cli.Command{
		Name:  "content",
		Usage: "Inspect and delete published content",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List indexed content",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "tag", Usage: "Filter by tag"},
					&cli.IntFlag{Name: "limit", Value: 50, Usage: "Page size"},
					&cli.IntFlag{Name: "offset", Usage: "Page offset"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withRuntime(ctx, cmd, func(ctx context.Context, rt *internal.Runtime, w io.Writer) error {
						if err := rt.SyncIndex(ctx); err != nil {
							return err
						}
						arts, total, err := rt.Service.ListContent(ctx, int(cmd.Int("limit")), int(cmd.Int("offset")), cmd.String("tag"))
						if err != nil {
							return err
						}
						fmt.Fprintln(w, contentTable(arts, total))
						return nil
					})
				},
			},
			{
				Name:      "search",
				Usage:     "Full-text search across content",
				ArgsUsage: "<query>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 20, Usage: "Max results"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := requireArgs(cmd, 1, "content search <query>"); err != nil {
						return err
					}
					return withRuntime(ctx, cmd, func(ctx context.Context, rt *internal.Runtime, w io.Writer) error {
						if err := rt.SyncIndex(ctx); err != nil {
							return err
						}
						results, err := rt.Service.Search(ctx, cmd.Args().First(), int(cmd.Int("limit")))
						if err != nil {
							return err
						}
						fmt.Fprintln(w, searchTable(results))
						return nil
					})
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete content by slug and return its keywords to the queue",
				ArgsUsage: "<slug>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := requireArgs(cmd, 1, "content delete <slug>"); err != nil {
						return err
					}
					return withRuntime(ctx, cmd, func(ctx context.Context, rt *internal.Runtime, w io.Writer) error {
						res, err := rt.Service.DeleteContent(ctx, cmd.Args().First())
						if err != nil {
							return err
						}
						printResult(w, res)
						return nil
					})
				},
			},
		},
	}
}

func newReconcileCommand() *cli.Command {
	return &cli.Command{
		Name:  "reconcile",
		Usage: "Mark keywords published when matching content exists",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withRuntime(ctx, cmd, func(ctx context.Context, rt *internal.Runtime, w io.Writer) error {
				res, err := rt.Service.Reconcile(ctx)
				if err != nil {
					return err
				}
				printResult(w, res.Result)
				for _, k := range res.Updated {
					fmt.Fprintf(w, "  %s\n", k)
				}
				return nil
			})
		},
	}
}

func newHistoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recent queue operations",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "subject", Usage: "Filter by keyword or slug"},
			&cli.IntFlag{Name: "limit", Value: 20, Usage: "Max entries"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withRuntime(ctx, cmd, func(ctx context.Context, rt *internal.Runtime, w io.Writer) error {
				ops, err := rt.Service.History(ctx, int(cmd.Int("limit")), cmd.String("subject"))
				if err != nil {
					return err
				}
				fmt.Fprintln(w, historyTable(ops, shouldColorize(w)))
				return nil
			})
		},
	}
}

func newMCPCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the queue tools over MCP stdio",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return internal.ServeMCP(ctx, internal.WithConfig(cfg), internal.WithVersion(version))
		},
	}
}
