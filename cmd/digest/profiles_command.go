package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"playlist-digest/internal/llm/bedrock"
)

func newProfilesCommand(ctx *commandContext) *cobra.Command {
	profilesCmd := &cobra.Command{
		Use:   "profiles",
		Short: "Manage Bedrock application inference profiles",
	}

	profilesCmd.AddCommand(newProfilesListCommand(ctx))
	profilesCmd.AddCommand(newProfilesEnsureCommand(ctx))
	profilesCmd.AddCommand(newProfilesDeleteCommand(ctx))

	return profilesCmd
}

func provisioner(cmd *cobra.Command, ctx *commandContext) (*bedrock.Provisioner, string, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, "", err
	}
	deps, err := ctx.ensureDeps()
	if err != nil {
		return nil, "", err
	}
	admin, err := ctx.newAdmin(cmd.Context(), cfg.AWSRegion)
	if err != nil {
		return nil, "", err
	}
	return bedrock.NewProvisioner(admin, cfg.AppTag, deps.Log), cfg.AWSRegion, nil
}

func newProfilesListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List application inference profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := provisioner(cmd, ctx)
			if err != nil {
				return err
			}
			routes, err := p.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(routes) == 0 {
				fmt.Fprintln(out, "No application inference profiles found")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSTATUS\tMODELS\tARN")
			for _, r := range routes {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Name, r.Status, strings.Join(r.Models, ","), r.ARN)
			}
			return tw.Flush()
		},
	}
}

func newProfilesEnsureCommand(ctx *commandContext) *cobra.Command {
	var (
		name  string
		model string
	)
	cmd := &cobra.Command{
		Use:   "ensure",
		Short: "Find or create the inference profile for a model",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, region, err := provisioner(cmd, ctx)
			if err != nil {
				return err
			}
			cfg, _ := ctx.ensureConfig()
			if name == "" {
				name = cfg.InferenceProfile
			}
			modelID, err := bedrock.ModelID(model)
			if err != nil {
				return err
			}
			route, err := p.Ensure(cmd.Context(), name, bedrock.FoundationModelARN(region, modelID))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Inference profile %s: %s\n", route.Name, route.ARN)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Profile name (env INFERENCE_PROFILE_NAME)")
	cmd.Flags().StringVarP(&model, "model", "m", "nova", "Friendly model name or Bedrock model id")
	return cmd
}

func newProfilesDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete every application inference profile called NAME",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := provisioner(cmd, ctx)
			if err != nil {
				return err
			}
			n, err := p.Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d inference profile(s)\n", n)
			return nil
		},
	}
}
