package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/01moynul/bookshelf-admin/internal/variation"
	"github.com/spf13/cobra"
)

func mapErrorsCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "map-errors",
		Short: "Map a validation error payload onto form positions",
		Long: `Reads a 422 response body ({"message": ..., "errors": {...}}) or a bare
errors object from stdin or --file and prints where each message lands.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if file != "" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			data, err := io.ReadAll(in)
			if err != nil {
				return err
			}
			mapped, err := mapPayload(data)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(mapped)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the payload from a file instead of stdin")
	return cmd
}

func mapPayload(data []byte) (variation.MappedErrors, error) {
	var body struct {
		Errors json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return variation.MappedErrors{}, fmt.Errorf("decode payload: %w", err)
	}
	raw := []byte(body.Errors)
	if len(raw) == 0 {
		raw = data
	}
	flat, err := variation.DecodeErrorMap(raw)
	if err != nil {
		return variation.MappedErrors{}, err
	}
	return variation.MapErrors(flat), nil
}
