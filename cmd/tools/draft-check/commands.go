package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"chainspace-intake/internal/common/validation"
	"chainspace-intake/internal/intake/form"
	"chainspace-intake/internal/intake/submission"
	"chainspace-intake/pkg/catalog"

	"github.com/spf13/cobra"
)

var errDraftInvalid = errors.New("draft has validation errors")

func newRootCmd(out io.Writer, now func() time.Time) *cobra.Command {
	root := &cobra.Command{
		Use:          "draft-check",
		Short:        "Inspect Chainspace application drafts offline",
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.AddCommand(newValidateCmd(now), newRowCmd(now), newCatalogCmd())
	return root
}

func newValidateCmd(now func() time.Time) *cobra.Command {
	var section int
	cmd := &cobra.Command{
		Use:   "validate <draft.json>",
		Short: "Validate a persisted draft, one section or all of them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			draft, err := readDraft(cmd, args[0])
			if err != nil {
				return err
			}
			for _, w := range optionWarnings(catalog.Default(), draft) {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
			}
			v := form.NewValidator(now)

			var errs form.ValidationErrors
			if section == 0 {
				errs = v.ValidateAll(draft)
			} else {
				if !form.ValidSection(section) {
					return fmt.Errorf("section %d out of range 1-%d", section, form.SectionCount)
				}
				errs = v.ValidateSection(draft, section)
			}

			if len(errs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "OK")
				return nil
			}
			for _, e := range errs {
				fmt.Fprintf(cmd.OutOrStdout(), "section %d  %-24s %-18s %s\n", form.SectionOf(e.Field), e.Field, e.Code, e.Message)
			}
			return fmt.Errorf("%w: %d field(s)", errDraftInvalid, len(errs))
		},
	}
	cmd.Flags().IntVar(&section, "section", 0, "validate only this section (1-9)")
	return cmd
}

func newRowCmd(now func() time.Time) *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "row <draft.json>",
		Short: "Print the storage row a draft would be submitted as",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			draft, err := readDraft(cmd, args[0])
			if err != nil {
				return err
			}
			at := now().UTC()
			if id == "" {
				id = submission.NewApplicationID(at)
			} else if !submission.IsApplicationID(id) {
				return fmt.Errorf("%q is not an application id", id)
			}
			return writeJSON(cmd.OutOrStdout(), submission.NewRecord(draft, id, at))
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "application id to use instead of a generated one")
	return cmd
}

func newCatalogCmd() *cobra.Command {
	var (
		schema  bool
		outPath string
	)
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the form catalog or its draft JSON Schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat := catalog.Default()
			if outPath != "" && !schema {
				if err := cat.WriteFile(outPath); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", outPath)
				return nil
			}
			var v interface{} = cat
			if schema {
				v = cat.DraftSchema()
			}
			if outPath == "" {
				return writeJSON(cmd.OutOrStdout(), v)
			}
			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			defer f.Close()
			return writeJSON(f, v)
		},
	}
	cmd.Flags().BoolVar(&schema, "schema", false, "print the draft JSON Schema instead of the catalog")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write to a file instead of stdout")
	return cmd
}

func readDraft(cmd *cobra.Command, path string) (*form.Draft, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	draft, skipped, err := form.Decode(data)
	if err != nil {
		return nil, err
	}
	if len(skipped) == 0 {
		return draft, nil
	}

	// explain each skipped key with the draft schema's complaint about it
	result, err := validation.ValidateDocument(data, catalog.Default().DraftSchema())
	if err != nil {
		return nil, err
	}
	for _, f := range skipped {
		reasons := result.GetErrorsForField(string(f))
		if len(reasons) == 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "skipped key %q\n", f)
			continue
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "skipped key %q: %s\n", f, reasons[0].Message)
	}
	return draft, nil
}

// optionWarnings lists answers that are not among a field's catalog options.
// The server accepts them, so they are reported without failing validation.
func optionWarnings(cat *catalog.Catalog, draft *form.Draft) []string {
	var warnings []string
	for _, s := range cat.Sections {
		for _, f := range s.Fields {
			if len(f.Options) == 0 {
				continue
			}
			value, ok := draft.Get(form.Field(f.Key))
			if !ok {
				continue
			}
			var answers []string
			switch v := value.(type) {
			case string:
				if v != "" {
					answers = []string{v}
				}
			case []string:
				answers = v
			}
			for _, a := range answers {
				if !cat.HasOption(f.Key, a) {
					warnings = append(warnings, fmt.Sprintf("%s: %q is not a listed option", f.Key, a))
				}
			}
		}
	}
	return warnings
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
