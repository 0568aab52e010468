package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"mindmap-backend/domain/core/entities"
	"mindmap-backend/pkg/client"
	pkgerrors "mindmap-backend/pkg/errors"
)

type globalOptions struct {
	server    string
	mindmapID string
	asJSON    bool
}

func defaultServer() string {
	if s := os.Getenv("MINDMAP_SERVER"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "mindmapctl",
		Short:         "Inspect and edit mindmaps on a mindmap server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.server, "server", defaultServer(), "server base URL (env MINDMAP_SERVER)")
	root.PersistentFlags().StringVarP(&opts.mindmapID, "mindmap", "m", entities.SampleMindmapID, "mindmap id")
	root.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "print the raw mindmap JSON")

	root.AddCommand(
		newListCmd(opts),
		newShowCmd(opts),
		newAddNodeCmd(opts),
		newAddBranchCmd(opts),
		newDeleteNodeCmd(opts),
		newUpdateNodeCmd(opts),
		newToggleCmd(opts),
		newResetCmd(opts),
		newShellCmd(opts),
	)
	return root
}

func (o *globalOptions) client() *client.Client {
	return client.New(o.server)
}

// printMindmap writes the outline, or the JSON document with --json
func (o *globalOptions) printMindmap(w io.Writer, m *entities.Mindmap) error {
	if o.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	}
	return m.Outline(w)
}

// describe turns API errors into one readable line
func describe(err error) error {
	if appErr := pkgerrors.GetAppError(err); appErr != nil {
		return fmt.Errorf("%s (%s)", appErr.Message, strings.ToLower(string(appErr.Type)))
	}
	return err
}

func newListCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List mindmaps held by the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := opts.client().ListMindmaps(cmd.Context())
			if err != nil {
				return describe(err)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tNODES\tUPDATED")
			for _, s := range list {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", s.ID, s.Title, s.NodeCount, s.UpdatedAt.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
}

func newShowCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the mindmap outline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := opts.client().GetMindmap(cmd.Context(), opts.mindmapID)
			if err != nil {
				return describe(err)
			}
			return opts.printMindmap(cmd.OutOrStdout(), m)
		},
	}
}

func newAddNodeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add-node <parent-id> <text>",
		Short: "Add a child node",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, node, err := opts.client().AddNode(cmd.Context(), opts.mindmapID, args[0], args[1])
			if err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", node.ID)
			return nil
		},
	}
}

func newAddBranchCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add-branch <parent-id> <text>...",
		Short: "Add several child nodes in order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, nodes, err := opts.client().AddBranch(cmd.Context(), opts.mindmapID, args[0], args[1:])
			if err != nil {
				return describe(err)
			}
			ids := make([]string, len(nodes))
			for i, n := range nodes {
				ids[i] = n.ID
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %d node(s) %s\n", len(ids), strings.Join(ids, " "))
			return nil
		},
	}
}

func newDeleteNodeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-node <node-id>",
		Short: "Delete a node and its subtree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := opts.client().DeleteNode(cmd.Context(), opts.mindmapID, args[0])
			if err != nil {
				return describe(err)
			}
			return opts.printMindmap(cmd.OutOrStdout(), m)
		},
	}
}

func newUpdateNodeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "update-node <node-id> <text>",
		Short: "Replace the text of a node",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := opts.client().UpdateNodeText(cmd.Context(), opts.mindmapID, args[0], args[1])
			if err != nil {
				return describe(err)
			}
			return opts.printMindmap(cmd.OutOrStdout(), m)
		},
	}
}

func newToggleCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <node-id>",
		Short: "Collapse or expand a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := opts.client().ToggleCollapse(cmd.Context(), opts.mindmapID, args[0])
			if err != nil {
				return describe(err)
			}
			return opts.printMindmap(cmd.OutOrStdout(), m)
		},
	}
}

func newResetCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Replace the mindmap with the starter template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := opts.client().Reset(cmd.Context(), opts.mindmapID)
			if err != nil {
				return describe(err)
			}
			return opts.printMindmap(cmd.OutOrStdout(), m)
		},
	}
}
