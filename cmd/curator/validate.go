package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/dukex/curator/pkg/cmd"
	"github.com/dukex/curator/pkg/log"
	"github.com/dukex/curator/pkg/models"
	"github.com/dukex/curator/pkg/persistence"
	"github.com/dukex/curator/pkg/schema"
	"github.com/dukex/curator/pkg/services"
	cli "github.com/urfave/cli/v3"
)

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Aliases:   []string{"v"},
		Usage:     "Validate metadata documents against a schema file or a stored standard",
		ArgsUsage: "DOCUMENT...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "schema",
				Aliases: []string{"s"},
				Usage:   "Schema file (JSON or YAML)",
			},
			&cli.StringFlag{
				Name:  "standard",
				Usage: "Stored standard as name@version (requires --database-url)",
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Record store URL used for standards and vocabularies",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "vocabulary-url",
				Usage:   "Vocabulary provider (store or redis://...)",
				Value:   "store",
				Sources: cli.EnvVars("VOCABULARY_URL"),
			},
			&cli.StringFlag{
				Name:  "output",
				Usage: "Output format (text, json)",
				Value: "text",
			},
		},
		Action: runValidate,
	}
}

func checkSchemaCommand() *cli.Command {
	return &cli.Command{
		Name:      "check-schema",
		Usage:     "Check that schema files are well formed",
		ArgsUsage: "SCHEMA...",
		Action: func(ctx context.Context, command *cli.Command) error {
			if command.NArg() == 0 {
				return cli.Exit("at least one schema file is required", 2)
			}

			engine := schema.NewEngine(schema.WithVocabularies(noVocabularies{}))
			failed := false

			for _, path := range command.Args().Slice() {
				document, err := loadSchema(path, command.Root().Reader)
				if err == nil {
					err = engine.CheckSchema(document)
				}

				if err != nil {
					failed = true

					fmt.Fprintf(command.Root().ErrWriter, "%s: %v\n", path, err)

					continue
				}

				fmt.Fprintf(command.Root().Writer, "%s: ok\n", path)
			}

			if failed {
				return cli.Exit("malformed schema", 1)
			}

			return nil
		},
	}
}

// noVocabularies lets check-schema accept the vocabulary keyword without a store.
type noVocabularies struct{}

func (noVocabularies) GetVocabulary(_ context.Context, name string) (*models.Vocabulary, error) {
	return nil, persistence.NewEntityError("GetVocabulary", "vocabulary", name, persistence.ErrVocabularyNotFound)
}

func runValidate(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"), command.String("log-format"))

	if command.NArg() == 0 {
		return cli.Exit("at least one document is required", 2)
	}

	schemaPath, standardRef := command.String("schema"), command.String("standard")
	if (schemaPath == "") == (standardRef == "") {
		return cli.Exit("exactly one of --schema and --standard is required", 2)
	}

	var store persistence.Persistence

	if databaseURL := command.String("database-url"); databaseURL != "" {
		p, err := cmd.NewPersistence(ctx, log.WithModule("cli"), databaseURL)
		if err != nil {
			return err
		}

		defer func() { _ = p.Close(ctx) }()

		store = p
	}

	vocabularies, closeVocabularies, err := cliVocabularies(ctx, command.String("vocabulary-url"), store)
	if err != nil {
		return err
	}

	defer func() { _ = closeVocabularies() }()

	validate, err := documentValidator(ctx, command, store, vocabularies)
	if err != nil {
		return err
	}

	invalid := 0

	for _, path := range command.Args().Slice() {
		document, err := loadDocument(path, command.Root().Reader)
		if err != nil {
			return err
		}

		tree, err := validate(ctx, document)
		if err != nil {
			return err
		}

		if !tree.Empty() {
			invalid++
		}

		if err := writeTree(command.Root().Writer, command.String("output"), path, tree); err != nil {
			return err
		}
	}

	if invalid > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d documents are invalid", invalid, command.NArg()), 1)
	}

	return nil
}

type validateFunc func(ctx context.Context, document any) (schema.ErrorTree, error)

func documentValidator(
	ctx context.Context,
	command *cli.Command,
	store persistence.Persistence,
	vocabularies schema.VocabularyProvider,
) (validateFunc, error) {
	if path := command.String("schema"); path != "" {
		document, err := loadSchema(path, command.Root().Reader)
		if err != nil {
			return nil, err
		}

		options := []schema.Option{}
		if vocabularies != nil {
			options = append(options, schema.WithVocabularies(vocabularies))
		}

		compiled, err := schema.NewEngine(options...).Compile(document)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}

		return compiled.Validate, nil
	}

	if store == nil {
		return nil, cli.Exit("--standard requires --database-url", 2)
	}

	name, version, found := strings.Cut(command.String("standard"), "@")
	if !found || name == "" || version == "" {
		return nil, cli.Exit("--standard must be name@version", 2)
	}

	options := []services.Option{}
	if vocabularies != nil {
		options = append(options, services.WithVocabularyProvider(vocabularies))
	}

	standards := services.NewStandard(store, options...)

	if _, err := standards.GetStandard(ctx, name, version); err != nil {
		return nil, err
	}

	return func(ctx context.Context, document any) (schema.ErrorTree, error) {
		return standards.ValidateRecord(ctx, name, version, document)
	}, nil
}

// cliVocabularies picks the vocabulary provider. Without a record store the "store"
// provider is unavailable and vocabulary keywords are left unchecked.
func cliVocabularies(
	ctx context.Context,
	vocabularyURL string,
	store persistence.Persistence,
) (schema.VocabularyProvider, func() error, error) {
	if store == nil && (vocabularyURL == "" || vocabularyURL == "store") {
		return nil, func() error { return nil }, nil
	}

	provider, closeProvider, err := cmd.NewVocabularyProvider(ctx, vocabularyURL, store)
	if err != nil {
		return nil, nil, err
	}

	return provider, closeProvider, nil
}

func writeTree(w io.Writer, format, path string, tree schema.ErrorTree) error {
	if format == "json" {
		return json.NewEncoder(w).Encode(map[string]any{
			"document": path,
			"valid":    tree.Empty(),
			"errors":   tree,
		})
	}

	if tree.Empty() {
		_, err := fmt.Fprintf(w, "%s: valid\n", path)

		return err
	}

	flat := tree.Flatten()

	for _, key := range slices.Sorted(maps.Keys(flat)) {
		location := key
		if location == "" {
			location = "(document)"
		}

		for _, message := range flat[key] {
			if _, err := fmt.Fprintf(w, "%s: %s: %s\n", path, location, message); err != nil {
				return err
			}
		}
	}

	return nil
}
