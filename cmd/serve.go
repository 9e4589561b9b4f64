package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/brogergvhs/tachi/internal/library"
	"github.com/brogergvhs/tachi/internal/proxy"

	"github.com/spf13/cobra"
)

var (
	flagListen    string
	flagGitHubAPI string
)

func init() {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the content proxy (/proxy, /github-proxy, /frame) for the reader",
		RunE:  runServe,
	}

	serveCmd.Flags().StringVar(&flagListen, "listen", "", "listen address (host:port)")
	serveCmd.Flags().StringVar(&flagGitHubAPI, "github-api", library.DefaultAPIBase, "GitHub API base URL")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	opts := baseOptions()
	opts.Listen = flagListen

	rt, err := newRuntime(opts)
	if err != nil {
		return err
	}
	defer func() { _ = rt.log.Sync() }()

	srv := proxy.NewServer(proxy.ServerOptions{
		Client:    rt.client,
		Books:     rt.library,
		Resolver:  rt.resolver,
		GitHubAPI: flagGitHubAPI,
		ProxyPath: rt.cfg.ProxyPath,
		Log:       rt.log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Serving on http://%s\n", rt.cfg.Listen)
	fmt.Printf("  proxy:  %s?url=<target>\n", rt.cfg.ProxyBase())
	fmt.Printf("  frame:  http://%s%s?book=<id>&url=<target>\n", rt.cfg.Listen, proxy.FramePath)
	fmt.Printf("  github: http://%s%s?owner=<o>&repo=<r>&path=<dir>\n", rt.cfg.Listen, proxy.GitHubPath)

	if err := srv.ListenAndServe(ctx, rt.cfg.Listen); err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	rt.log.Infof("server stopped")
	return nil
}
