// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/cmm-toolserver/internal/registry"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the registered tools and their parameters",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger(cmd)

		reg, err := buildRegistry(cmd, log)
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		switch format {
		case "table":
			return printToolTable(reg.Descriptors())
		case "json":
			data, err := json.MarshalIndent(describeTools(reg.Descriptors()), "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		case "yaml":
			data, err := yaml.Marshal(describeTools(reg.Descriptors()))
			if err != nil {
				return err
			}
			fmt.Print(string(data))
			return nil
		default:
			return fmt.Errorf("unknown format %q (use table, json, or yaml)", format)
		}
	},
}

func init() {
	toolsCmd.Flags().String("format", "table", "output format: table, json, or yaml")

	rootCmd.AddCommand(toolsCmd)
}

// toolInfo is the serializable view of one descriptor.
type toolInfo struct {
	Name        string      `json:"name" yaml:"name"`
	Description string      `json:"description" yaml:"description"`
	Params      []paramInfo `json:"params,omitempty" yaml:"params,omitempty"`
}

type paramInfo struct {
	Name        string   `json:"name" yaml:"name"`
	Type        string   `json:"type" yaml:"type"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool     `json:"required,omitempty" yaml:"required,omitempty"`
	Default     any      `json:"default,omitempty" yaml:"default,omitempty"`
	Enum        []string `json:"enum,omitempty" yaml:"enum,omitempty"`
}

func describeTools(descriptors []registry.Descriptor) []toolInfo {
	out := make([]toolInfo, 0, len(descriptors))
	for _, d := range descriptors {
		info := toolInfo{Name: d.Name, Description: d.Description}
		for _, p := range d.Params {
			info.Params = append(info.Params, paramInfo{
				Name:        p.Name,
				Type:        string(p.Type),
				Description: p.Description,
				Required:    p.Required,
				Default:     p.Default,
				Enum:        p.Enum,
			})
		}
		out = append(out, info)
	}
	return out
}

func printToolTable(descriptors []registry.Descriptor) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TOOL\tPARAMETERS\tDESCRIPTION")
	for _, d := range descriptors {
		params := make([]string, 0, len(d.Params))
		for _, p := range d.Params {
			name := p.Name
			if p.Required {
				name += "*"
			}
			params = append(params, name)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", d.Name, strings.Join(params, ", "), d.Description)
	}
	return w.Flush()
}
