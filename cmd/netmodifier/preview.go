package main

import (
	"fmt"

	"netmodifier/internal/placeholder"
	"netmodifier/pkg/rulespec"

	"github.com/spf13/cobra"
)

func newPreviewCmd(a *app) *cobra.Command {
	var example, pattern, to string

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Preview a redirect pattern against an example URL",
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := placeholder.New(a.regexCache()).Preview(example, pattern, to)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !res.Matched {
				fmt.Fprintln(out, "Example URL does not match the pattern")
				return nil
			}
			for _, v := range res.Variables {
				fmt.Fprintf(out, "%s\t%s\n", v.Label, v.Value)
			}
			fmt.Fprintf(out, "Navigate to URL: %s\n", res.NavigateTo)
			return nil
		},
	}
	cmd.Flags().StringVar(&example, "example", rulespec.DefaultExampleURL, "Example URL")
	cmd.Flags().StringVar(&pattern, "pattern", rulespec.DefaultIncludePattern, "Include pattern (regular expression)")
	cmd.Flags().StringVar(&to, "to", rulespec.DefaultRedirectToURL, "Redirect target with $N placeholders")
	return cmd
}
