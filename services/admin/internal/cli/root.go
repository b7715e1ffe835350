// Package cli implements the matapang-admin command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matapang/platform/libs/components/form"
	"github.com/matapang/platform/libs/components/schema"
	"github.com/matapang/platform/libs/shared/errs"
	"github.com/matapang/platform/libs/shared/logging"
)

// OpenForms returns the form store for commands that write, plus a close func.
type OpenForms func(ctx context.Context) (form.Repository, func() error, error)

// NewRootCommand builds the admin command tree.
func NewRootCommand(open OpenForms, logger *zap.Logger) *cobra.Command {
	logger = logging.OrNop(logger)

	root := &cobra.Command{
		Use:           "matapang-admin",
		Short:         "Administrative tasks for the Matapang forms platform",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newSeedCommand(open, logger),
		newValidateCommand(),
		newDeriveIDCommand(),
	)
	return root
}

func newSeedCommand(open OpenForms, logger *zap.Logger) *cobra.Command {
	var file string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "seed-templates",
		Short: "Create template forms from a YAML file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			templates, err := ParseTemplates(f)
			if err != nil {
				return err
			}
			docs := make([]schema.Form, 0, len(templates))
			for _, t := range templates {
				doc, err := t.Build()
				if err != nil {
					return err
				}
				docs = append(docs, doc)
			}
			if dryRun {
				for _, doc := range docs {
					fmt.Fprintf(cmd.OutOrStdout(), "would seed %s (%s)\n", doc.FormID, doc.FormName)
				}
				return nil
			}

			repo, closeRepo, err := open(cmd.Context())
			if err != nil {
				return fmt.Errorf("open form store: %w", err)
			}
			defer func() { _ = closeRepo() }()

			created, err := seed(cmd.Context(), form.NewService(repo, logger), docs, cmd)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d of %d templates\n", created, len(docs))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "templates.yaml", "template definitions")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate templates without writing")
	return cmd
}

// seed skips templates whose formId already exists.
func seed(ctx context.Context, svc *form.Service, docs []schema.Form, cmd *cobra.Command) (int, error) {
	created := 0
	for _, doc := range docs {
		if _, err := svc.Repository().FindByFormID(ctx, doc.FormID); err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "skip %s: already exists\n", doc.FormID)
			continue
		} else if !errors.Is(err, errs.ErrNotFound) {
			return created, fmt.Errorf("lookup %s: %w", doc.FormID, err)
		}

		doc.IsActive = true
		entity, err := svc.CreateDocument(ctx, doc)
		if err != nil {
			return created, fmt.Errorf("seed %s: %w", doc.FormID, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", entity.FormID, entity.ID)
		created++
	}
	return created, nil
}

func newValidateCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a form document without storing it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			doc, err := form.Decode(raw)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %s (%d sections, %d approval levels)\n",
				doc.FormID, len(doc.Sections), len(doc.ApprovalFlow))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "form document (JSON)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newDeriveIDCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "derive-id <label>",
		Short: "Print the identifier derived from a label",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := schema.DeriveID(args[0])
			if id == "" {
				return errs.Invalid("label", "label %q derives to an empty identifier", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
}
