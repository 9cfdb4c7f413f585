package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/01moynul/bookshelf-admin/internal/variation"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// attributeFile is the YAML layout accepted by --file.
type attributeFile struct {
	SKU        string                          `yaml:"sku"`
	Attributes []variation.AttributeDefinition `yaml:"attributes"`
}

func expandCmd() *cobra.Command {
	var (
		sku     string
		attrs   []string
		file    string
		maxComb int
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "expand",
		Short: "Print every variation of an attribute matrix",
		Example: `  catalogctl expand --sku BOOK001 --attr "Format=Hardcover,Paperback" --attr "Language=EN,FR"
  catalogctl expand --file attrs.yaml --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var drafts []variation.AttributeDraft
			if file != "" {
				af, err := readAttributeFile(file)
				if err != nil {
					return err
				}
				if sku == "" {
					sku = af.SKU
				}
				for _, d := range af.Attributes {
					drafts = append(drafts, variation.AttributeDraft{Name: d.Name, RawValues: strings.Join(d.Values, ",")})
				}
			}
			for _, a := range attrs {
				d, err := parseAttrFlag(a)
				if err != nil {
					return err
				}
				drafts = append(drafts, d)
			}

			vs, err := expand(drafts, sku, maxComb)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(vs)
			}
			return writeTable(cmd.OutOrStdout(), vs)
		},
	}

	cmd.Flags().StringVar(&sku, "sku", "", "Parent SKU")
	cmd.Flags().StringArrayVar(&attrs, "attr", nil, `Attribute as "Name=value1,value2" (repeatable)`)
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file with sku and attributes")
	cmd.Flags().IntVar(&maxComb, "max", variation.DefaultMaxCombinations, "Refuse matrices larger than this (0 = no limit)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func readAttributeFile(path string) (*attributeFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read attribute file: %w", err)
	}
	var af attributeFile
	if err := yaml.Unmarshal(data, &af); err != nil {
		return nil, fmt.Errorf("parse attribute file %s: %w", path, err)
	}
	return &af, nil
}

func parseAttrFlag(s string) (variation.AttributeDraft, error) {
	name, values, ok := strings.Cut(s, "=")
	if !ok {
		return variation.AttributeDraft{}, fmt.Errorf("attribute %q: expected Name=value1,value2", s)
	}
	return variation.AttributeDraft{Name: name, RawValues: values}, nil
}

// expand runs the drafts through the same validation and expansion as the API.
func expand(drafts []variation.AttributeDraft, sku string, maxComb int) ([]variation.Variation, error) {
	set := variation.NewAttributeSet(drafts...)
	result := set.Validate()
	if !result.Valid {
		var msgs []string
		for i, e := range result.Errors {
			if e.NameError != "" {
				msgs = append(msgs, fmt.Sprintf("attribute %d: %s", i+1, e.NameError))
			}
			if e.ValuesError != "" {
				msgs = append(msgs, fmt.Sprintf("attribute %d: %s", i+1, e.ValuesError))
			}
		}
		if len(msgs) == 0 {
			return nil, &variation.AttributeValidationError{Result: result}
		}
		return nil, fmt.Errorf("invalid attributes: %s", strings.Join(msgs, "; "))
	}
	return variation.NewExpander(maxComb).Expand(set.Definitions(), sku)
}

func writeTable(w io.Writer, vs []variation.Variation) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if len(vs) > 0 {
		fmt.Fprintf(tw, "#\tSKU\t%s\n", strings.Join(vs[0].Attributes.Keys(), "\t"))
	}
	for i, v := range vs {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", i+1, v.SKU, strings.Join(v.Attributes.Values(), "\t"))
	}
	return tw.Flush()
}
