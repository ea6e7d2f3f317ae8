package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flood-ai/flood-memory/internal/memory"
	"github.com/flood-ai/flood-memory/internal/server/service"
)

func addNodeCommands(root *cobra.Command) {
	rememberCmd := &cobra.Command{
		Use:   "remember <content>",
		Short: "Store a memory node",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runRemember,
	}
	rememberCmd.Flags().StringSliceP("tag", "t", nil, "Tag (repeatable or comma separated)")
	rememberCmd.Flags().StringSliceP("link", "l", nil, "Node ID to link to (repeatable)")
	rememberCmd.Flags().String("source", "", "Conversation label or context")

	recallCmd := &cobra.Command{
		Use:   "recall [query]",
		Short: "Search memory by text query, tags, or both",
		RunE:  runRecall,
	}
	recallCmd.Flags().StringSliceP("tag", "t", nil, "Required tag (repeatable, AND logic)")
	recallCmd.Flags().IntP("limit", "n", memory.DefaultLimit, "Max results to return")

	connectionsCmd := &cobra.Command{
		Use:   "connections <node-id>",
		Short: "Traverse the link graph from a node",
		Args:  cobra.ExactArgs(1),
		RunE:  runConnections,
	}
	connectionsCmd.Flags().IntP("depth", "d", memory.DefaultDepth, "How many hops to traverse")

	forgetCmd := &cobra.Command{
		Use:   "forget <node-id>",
		Short: "Delete a memory node",
		Args:  cobra.ExactArgs(1),
		RunE:  runForget,
	}

	updateCmd := &cobra.Command{
		Use:   "update <node-id>",
		Short: "Replace fields of a memory node",
		Args:  cobra.ExactArgs(1),
		RunE:  runUpdate,
	}
	updateCmd.Flags().String("content", "", "New content")
	updateCmd.Flags().StringSliceP("tag", "t", nil, "New tags (replaces existing)")
	updateCmd.Flags().StringSliceP("link", "l", nil, "New links (replaces existing)")
	updateCmd.Flags().Bool("clear-tags", false, "Remove all tags")
	updateCmd.Flags().Bool("clear-links", false, "Remove all links")

	for _, cmd := range []*cobra.Command{rememberCmd, recallCmd, connectionsCmd, forgetCmd, updateCmd} {
		cmd.Flags().Bool("json", false, "Print JSON even on a terminal")
		root.AddCommand(cmd)
	}
}

// withService runs fn against a freshly built app and renders its result.
func withService(cmd *cobra.Command, fn func(ctx context.Context, svc *service.Service) (any, error)) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	result, err := fn(ctx, a.svc)
	if err != nil {
		return err
	}

	forceJSON, _ := cmd.Flags().GetBool("json")
	return newRenderer(cmd.OutOrStdout(), forceJSON).render(result)
}

func runRemember(cmd *cobra.Command, args []string) error {
	tags, _ := cmd.Flags().GetStringSlice("tag")
	links, _ := cmd.Flags().GetStringSlice("link")
	source, _ := cmd.Flags().GetString("source")

	return withService(cmd, func(ctx context.Context, svc *service.Service) (any, error) {
		return svc.Remember(ctx, service.RememberRequest{
			Content: strings.Join(args, " "),
			Tags:    tags,
			Links:   links,
			Source:  source,
		})
	})
}

func runRecall(cmd *cobra.Command, args []string) error {
	tags, _ := cmd.Flags().GetStringSlice("tag")
	limit, _ := cmd.Flags().GetInt("limit")

	return withService(cmd, func(ctx context.Context, svc *service.Service) (any, error) {
		return svc.Recall(ctx, service.RecallRequest{
			Query: strings.Join(args, " "),
			Tags:  tags,
			Limit: &limit,
		})
	})
}

func runConnections(cmd *cobra.Command, args []string) error {
	depth, _ := cmd.Flags().GetInt("depth")

	return withService(cmd, func(ctx context.Context, svc *service.Service) (any, error) {
		return svc.Connections(ctx, service.ConnectionsRequest{NodeID: args[0], Depth: &depth})
	})
}

func runForget(cmd *cobra.Command, args []string) error {
	return withService(cmd, func(ctx context.Context, svc *service.Service) (any, error) {
		return svc.Forget(ctx, service.ForgetRequest{NodeID: args[0]})
	})
}

func runUpdate(cmd *cobra.Command, args []string) error {
	req := service.UpdateRequest{NodeID: args[0]}
	flags := cmd.Flags()

	if flags.Changed("content") {
		content, _ := flags.GetString("content")
		req.Content = &content
	}
	if tags, _ := flags.GetStringSlice("tag"); flags.Changed("tag") {
		req.Tags = &tags
	} else if reset, _ := flags.GetBool("clear-tags"); reset {
		req.Tags = &[]string{}
	}
	if links, _ := flags.GetStringSlice("link"); flags.Changed("link") {
		req.Links = &links
	} else if reset, _ := flags.GetBool("clear-links"); reset {
		req.Links = &[]string{}
	}

	return withService(cmd, func(ctx context.Context, svc *service.Service) (any, error) {
		return svc.Update(ctx, req)
	})
}
