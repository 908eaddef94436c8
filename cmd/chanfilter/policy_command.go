package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"chanfilter/internal/catalog/models"
	"chanfilter/internal/client/policy"
)

func newPolicyCommand(ctx *commandContext) *cobra.Command {
	policyCmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect the allowlist policy",
	}
	policyCmd.AddCommand(newPolicyShowCommand(ctx))
	policyCmd.AddCommand(newPolicyCheckCommand(ctx))
	return policyCmd
}

func newPolicyShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective policy as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := policy.Load(ctx.config.PolicyFile)
			if err != nil {
				return err
			}
			data, err := policy.Marshal(p)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newPolicyCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check <category>...",
		Short: "Report whether a channel with these category codes would be hidden",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := policy.Load(ctx.config.PolicyFile)
			if err != nil {
				return err
			}
			codes := make([]int64, len(args))
			for i, a := range args {
				n, err := strconv.ParseInt(a, 10, 16)
				if err != nil {
					return fmt.Errorf("invalid category %q", a)
				}
				codes[i] = n
			}
			set, err := models.NewCategorySet(codes)
			if err != nil {
				return err
			}
			if p.Decide(set) {
				fmt.Fprintln(cmd.OutOrStdout(), "hide")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "show")
			}
			return nil
		},
	}
}
