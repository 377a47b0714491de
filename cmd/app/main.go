package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/tally/internal"
	pkgconfig "github.com/starford/tally/pkg/config"
)

func loadOptions(cmd *cli.Command) ([]internal.Option, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return []internal.Option{
		internal.WithConfig(cfg),
	}, nil
}

func documentArg(cmd *cli.Command) (string, error) {
	path := cmd.Args().First()
	if path == "" {
		return "", fmt.Errorf("%s: document file is required", cmd.Name)
	}
	return path, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, opts...)
}

func render(ctx context.Context, cmd *cli.Command) error {
	path, err := documentArg(cmd)
	if err != nil {
		return err
	}
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	res, l, err := internal.Render(ctx, path, append(opts, internal.WithLogOutput(os.Stderr))...)
	if err != nil {
		return err
	}
	if cmd.Bool("text") {
		fmt.Print(l.Text())
	}
	fmt.Printf("%s (%d bytes, %.2f x %.2f pt)\n", res.FileName, res.Bytes, res.Page.Width, res.Page.Height)
	return nil
}

func watchFile(ctx context.Context, cmd *cli.Command) error {
	path, err := documentArg(cmd)
	if err != nil {
		return err
	}
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	return internal.Watch(ctx, path, opts...)
}

func main() {
	cmd := &cli.Command{
		Name:   "tally",
		Usage:  "Invoice and purchase order composer with live totals and single-page PDF export",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools on stdin/stdout",
				Action: serveMCP,
			},
			{
				Name:      "render",
				Usage:     "Export a YAML document file once",
				ArgsUsage: "<file.yaml>",
				Action:    render,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "text",
						Usage: "Also print the preview as text",
					},
				},
			},
			{
				Name:      "watch",
				Usage:     "Re-export a YAML document file whenever it changes",
				ArgsUsage: "<file.yaml>",
				Action:    watchFile,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
