package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <uri>",
		Short: "Check an inventory file without loading it",
		Long: `Parse every line of the inventory against a scratch warehouse and report
all problems found, up to import.max_errors. Exits with status 2 when the file has errors.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd.Context(), cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()

			result, err := s.components.Service.Validate(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			err = s.out.emit(result, func(w io.Writer) {
				fmt.Fprintf(w, "lines\t%d\n", result.TotalLines)
				fmt.Fprintf(w, "records\t%d\n", result.Records)
				fmt.Fprintf(w, "valid\t%d\n", result.ValidRecords)
				fmt.Fprintf(w, "errors\t%d\n", result.ErrorRecords)
				for _, e := range result.Errors {
					fmt.Fprintf(w, "  line %d\t%s\t%s\n", e.Line, e.Code, e.Message)
				}
				if result.IsTruncated {
					fmt.Fprintf(w, "  ...\t%d more\t\n", result.TotalErrors-len(result.Errors))
				}
			})
			if err != nil {
				return err
			}
			if !result.IsValid() {
				return errInvalidInventory
			}
			return nil
		},
	}
}
