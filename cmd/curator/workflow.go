package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dukex/curator/pkg/cmd"
	"github.com/dukex/curator/pkg/log"
	"github.com/dukex/curator/pkg/services"
	cli "github.com/urfave/cli/v3"
)

func workflowCommand() *cli.Command {
	return &cli.Command{
		Name:    "workflow",
		Aliases: []string{"w"},
		Usage:   "Inspect the workflow graph",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Record store URL (file://<dir>, postgres://...)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.IntFlag{
				Name:    "max-traversal-depth",
				Usage:   "Maximum depth of workflow graph traversals",
				Value:   256,
				Sources: cli.EnvVars("MAX_TRAVERSAL_DEPTH"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "order",
				Usage: "Print active states in transition order",
				Action: withWorkflow(func(ctx context.Context, command *cli.Command, workflow *services.Workflow) error {
					states, err := workflow.OrderStates(ctx)
					if err != nil {
						return err
					}

					for _, state := range states {
						fmt.Fprintf(command.Root().Writer, "%s\t%s\n", state.Name, state.Title)
					}

					return nil
				}),
			},
			{
				Name:      "path",
				Usage:     "Report whether FROM reaches TO through transitions",
				ArgsUsage: "FROM TO",
				Action: withWorkflow(func(ctx context.Context, command *cli.Command, workflow *services.Workflow) error {
					return printPath(ctx, command, workflow.TransitionPathExists)
				}),
			},
			{
				Name:      "revert-path",
				Usage:     "Report whether FROM reaches TO through revert targets",
				ArgsUsage: "FROM TO",
				Action: withWorkflow(func(ctx context.Context, command *cli.Command, workflow *services.Workflow) error {
					return printPath(ctx, command, workflow.RevertPathExists)
				}),
			},
			{
				Name:  "states",
				Usage: "Print every state as JSON",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "include-deleted", Usage: "Include soft-deleted states"},
				},
				Action: withWorkflow(func(ctx context.Context, command *cli.Command, workflow *services.Workflow) error {
					states, err := workflow.ListStates(ctx, command.Bool("include-deleted"))
					if err != nil {
						return err
					}

					encoder := json.NewEncoder(command.Root().Writer)
					encoder.SetIndent("", "  ")

					return encoder.Encode(states)
				}),
			},
		},
	}
}

type workflowAction func(ctx context.Context, command *cli.Command, workflow *services.Workflow) error

func withWorkflow(action workflowAction) cli.ActionFunc {
	return func(ctx context.Context, command *cli.Command) error {
		log.Setup(command.String("log-level"), command.String("log-format"))

		persistence, err := cmd.NewPersistence(ctx, log.WithModule("cli"), command.String("database-url"))
		if err != nil {
			return err
		}

		defer func() { _ = persistence.Close(ctx) }()

		workflow := services.NewWorkflow(persistence,
			services.WithMaxTraversalDepth(command.Int("max-traversal-depth")),
		)

		return action(ctx, command, workflow)
	}
}

func printPath(ctx context.Context, command *cli.Command, query func(ctx context.Context, from, to string) (bool, error)) error {
	if command.NArg() != 2 {
		return cli.Exit("FROM and TO are required", 2)
	}

	from, to := command.Args().Get(0), command.Args().Get(1)

	exists, err := query(ctx, from, to)
	if err != nil {
		return err
	}

	fmt.Fprintln(command.Root().Writer, exists)

	return nil
}
