// Command artfy is the Artfy shopper client: one subcommand per shopper
// action, plus `artfy serve` for the local backend-for-frontend.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/boddenberg/artfy-client-go/cmd/artfy/commands"
	"github.com/boddenberg/artfy-client-go/internal/app"
	"github.com/boddenberg/artfy-client-go/internal/config"
	"github.com/boddenberg/artfy-client-go/internal/domain"
	"github.com/boddenberg/artfy-client-go/internal/handler"
	"github.com/boddenberg/artfy-client-go/internal/infra/observability"
	"github.com/boddenberg/artfy-client-go/internal/port"
	"github.com/boddenberg/artfy-client-go/internal/service"
)

var version = "dev"

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv("")

	cmd := &cli.Command{
		Name:    "artfy",
		Usage:   "Artfy shopper client",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "api-url",
				Usage: "Backend base URL (overrides ARTFY_API_URL)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error (overrides LOG_LEVEL)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Value:   commands.OutputText,
				Usage:   "Output format: 'text' or 'json'",
			},
		},
		Commands: append(append(sessionCommands(), shopCommands()...), profileCommand(), serveCommand()),
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, commands.RenderError(err))
		os.Exit(1)
	}
}

// runtime is what every command needs before it touches the core.
type runtime struct {
	cfg    *config.Config
	logger *zap.Logger
	ioT    commands.IOTuple
	output string
}

func setup(cmd *cli.Command) (*runtime, error) {
	// --- Config ---
	cfg := config.Load()
	if v := cmd.String("api-url"); v != "" {
		cfg.APIURL = v
	}
	if v := cmd.String("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)

	return &runtime{
		cfg:    cfg,
		logger: logger,
		ioT:    commands.DefaultIO(),
		output: cmd.String("output"),
	}, nil
}

// withCore boots the core for one command and tears it down afterwards.
func withCore(fn func(ctx context.Context, cmd *cli.Command, rt *runtime, a *app.App) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		rt, err := setup(cmd)
		if err != nil {
			return err
		}
		defer rt.logger.Sync()

		// --- Tracing ---
		shutdown, err := observability.InitTracer(ctx, rt.cfg.TracingEnabled, rt.cfg.OTLPEndpoint, "artfy-cli")
		if err != nil {
			return fmt.Errorf("init tracer: %w", err)
		}
		defer shutdown(context.Background())

		a, err := app.New(ctx, rt.cfg, commands.Prompter{Writer: os.Stderr}, rt.logger)
		if err != nil {
			return err
		}
		defer a.Close()

		return fn(ctx, cmd, rt, a)
	}
}

func sessionCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "login",
			Usage: "Sign in and store the session",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Required: true, Usage: "Account e-mail"},
				&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Password (prompted when omitted)"},
			},
			Action: withCore(func(ctx context.Context, cmd *cli.Command, rt *runtime, a *app.App) error {
				return commands.RunLogin(ctx, a.Auth, rt.ioT, cmd.String("email"), cmd.String("password"))
			}),
		},
		{
			Name:  "register",
			Usage: "Create an account",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "name", Required: true, Usage: "Full name"},
				&cli.StringFlag{Name: "email", Required: true, Usage: "E-mail"},
				&cli.StringFlag{Name: "password", Usage: "Password, at least 8 characters (prompted when omitted)"},
				&cli.StringFlag{Name: "confirm-password", Usage: "Password confirmation (defaults to --password)"},
				&cli.StringFlag{Name: "cpf", Required: true, Usage: "CPF, with or without punctuation"},
				&cli.StringFlag{Name: "birth-date", Required: true, Usage: "Birth date as DD/MM/YYYY"},
				&cli.StringFlag{Name: "phone", Required: true, Usage: "Phone with area code"},
				&cli.StringFlag{Name: "address", Usage: "Address (optional)"},
			},
			Action: withCore(func(ctx context.Context, cmd *cli.Command, rt *runtime, a *app.App) error {
				return commands.RunRegister(ctx, a.Auth, rt.ioT, domain.RegisterInput{
					Name:            cmd.String("name"),
					Email:           cmd.String("email"),
					Password:        cmd.String("password"),
					ConfirmPassword: cmd.String("confirm-password"),
					CPF:             cmd.String("cpf"),
					BirthDate:       cmd.String("birth-date"),
					Phone:           cmd.String("phone"),
					Address:         cmd.String("address"),
				})
			}),
		},
		{
			Name:  "logout",
			Usage: "Forget the stored session",
			Action: withCore(func(ctx context.Context, cmd *cli.Command, rt *runtime, a *app.App) error {
				return commands.RunLogout(ctx, a.Auth, rt.ioT)
			}),
		},
		{
			Name:  "whoami",
			Usage: "Show who is logged in",
			Action: withCore(func(ctx context.Context, cmd *cli.Command, rt *runtime, a *app.App) error {
				return commands.RunWhoami(ctx, a.Auth, rt.ioT, rt.output)
			}),
		},
	}
}

func productArg(cmd *cli.Command) (domain.ID, error) {
	id := cmd.Args().First()
	if id == "" {
		return "", domain.NewValidationError("productId", "Informe o produto.")
	}
	return domain.ID(id), nil
}

func shopCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "products",
			Usage: "List the catalog",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "category",
					Aliases: []string{"c"},
					Value:   service.AllCategories,
					Usage:   "Todos, Arte Digital, Pinturas or Esculturas",
				},
			},
			Action: withCore(func(ctx context.Context, cmd *cli.Command, rt *runtime, a *app.App) error {
				return commands.RunProducts(ctx, a.Catalog, rt.ioT, cmd.String("category"), rt.output)
			}),
		},
		{
			Name:      "product",
			Usage:     "Show one product",
			ArgsUsage: "<product-id>",
			Action: withCore(func(ctx context.Context, cmd *cli.Command, rt *runtime, a *app.App) error {
				id, err := productArg(cmd)
				if err != nil {
					return err
				}
				return commands.RunProduct(ctx, a.Catalog, rt.ioT, id, rt.output)
			}),
		},
		{
			Name:      "buy-now",
			Usage:     "Add one unit of a product and show the cart",
			ArgsUsage: "<product-id>",
			Action: withCore(func(ctx context.Context, cmd *cli.Command, rt *runtime, a *app.App) error {
				id, err := productArg(cmd)
				if err != nil {
					return err
				}
				return commands.RunBuyNow(ctx, a.Catalog, a.Cart, rt.ioT, id, rt.output)
			}),
		},
		{
			Name:  "cart",
			Usage: "Show the cart",
			Action: withCore(func(ctx context.Context, cmd *cli.Command, rt *runtime, a *app.App) error {
				return commands.RunCart(ctx, a.Cart, rt.ioT, rt.output)
			}),
		},
		{
			Name:      "add",
			Usage:     "Add a product to the cart",
			ArgsUsage: "<product-id>",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "quantity", Aliases: []string{"q"}, Value: 1, Usage: "Units to add"},
			},
			Action: withCore(func(ctx context.Context, cmd *cli.Command, rt *runtime, a *app.App) error {
				id, err := productArg(cmd)
				if err != nil {
					return err
				}
				return commands.RunAdd(ctx, a.Cart, rt.ioT, id, int(cmd.Int("quantity")))
			}),
		},
		{
			Name:      "remove",
			Usage:     "Remove a product from the cart",
			ArgsUsage: "<product-id>",
			Action: withCore(func(ctx context.Context, cmd *cli.Command, rt *runtime, a *app.App) error {
				id, err := productArg(cmd)
				if err != nil {
					return err
				}
				return commands.RunRemove(ctx, a.Cart, rt.ioT, id, rt.output)
			}),
		},
		{
			Name:  "checkout",
			Usage: "Complete the purchase",
			Action: withCore(func(ctx context.Context, cmd *cli.Command, rt *runtime, a *app.App) error {
				return commands.RunCheckout(ctx, a.Cart, rt.ioT)
			}),
		},
		{
			Name:  "orders",
			Usage: "List past purchases",
			Action: withCore(func(ctx context.Context, cmd *cli.Command, rt *runtime, a *app.App) error {
				return commands.RunOrders(ctx, a.Orders, rt.ioT, rt.output)
			}),
		},
	}
}

func profileCommand() *cli.Command {
	return &cli.Command{
		Name:  "profile",
		Usage: "Show the stored profile",
		Action: withCore(func(ctx context.Context, cmd *cli.Command, rt *runtime, a *app.App) error {
			return commands.RunProfile(ctx, a.Profile, rt.ioT, rt.output)
		}),
		Commands: []*cli.Command{
			{
				Name:  "edit",
				Usage: "Change profile fields (e-mail is read-only)",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:     "set",
						Aliases:  []string{"s"},
						Required: true,
						Usage:    "field=value; repeatable (name, cpf, birthDate, phone, address)",
					},
				},
				Action: withCore(func(ctx context.Context, cmd *cli.Command, rt *runtime, a *app.App) error {
					return commands.RunProfileEdit(ctx, a.Profile, rt.ioT, cmd.StringSlice("set"), rt.output)
				}),
			},
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the local backend-for-frontend HTTP server",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Usage: "Listen port (overrides PORT)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			rt, err := setup(cmd)
			if err != nil {
				return err
			}
			defer rt.logger.Sync()

			if p := int(cmd.Int("port")); p > 0 {
				rt.cfg.Port = p
			}
			rt.logger.Info("configuration loaded",
				zap.Int("port", rt.cfg.Port),
				zap.String("api_url", rt.cfg.APIURL),
				zap.String("session_backend", rt.cfg.SessionBackend),
				zap.Duration("http_timeout", rt.cfg.HTTPTimeout),
				zap.Duration("catalog_cache_ttl", rt.cfg.CatalogCacheTTL),
				zap.Int("max_retries", rt.cfg.MaxRetries),
			)

			// --- Tracing ---
			shutdown, err := observability.InitTracer(ctx, rt.cfg.TracingEnabled, rt.cfg.OTLPEndpoint, "artfy-bff")
			if err != nil {
				return fmt.Errorf("init tracer: %w", err)
			}
			defer shutdown(context.Background())

			reauth := handler.NewReauthFlag(rt.logger)
			var prompter port.ReauthPrompter = reauth
			a, err := app.New(ctx, rt.cfg, prompter, rt.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			router, closeDrafts := a.Router(reauth)
			defer closeDrafts()

			return commands.RunServer(ctx, router, fmt.Sprintf("127.0.0.1:%d", rt.cfg.Port), rt.logger)
		},
	}
}
