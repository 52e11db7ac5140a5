package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/nyc-dob-map/internal/config"
	"github.com/joeblew999/nyc-dob-map/internal/server"
	"github.com/joeblew999/nyc-dob-map/internal/service"
)

// Options defines all CLI flags and env vars for the map server.
// Flags: --host, --port, --data-dir, --config
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, SERVICE_CONFIG
type Options struct {
	Host    string `doc:"Host to bind to" default:"0.0.0.0"`
	Port    int    `doc:"Port to listen on" short:"p" default:"8086"`
	DataDir string `doc:"Directory holding sources/ and tiles/" default:".data"`
	Config  string `doc:"Map settings file (YAML); dobmap.yaml when empty" short:"c"`
}

func newServer(opts *Options) (*server.Server, error) {
	app, err := config.Load(opts.Config)
	if err != nil {
		return nil, err
	}
	if err := app.Validate(); err != nil {
		return nil, err
	}
	if err := config.InitLogger(app.Log); err != nil {
		return nil, err
	}
	return server.New(server.Config{
		Host:    opts.Host,
		Port:    opts.Port,
		DataDir: opts.DataDir,
		App:     app,
	})
}

func mustServer(opts *Options) *server.Server {
	srv, err := newServer(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return srv
}

// shutdownTimeout bounds how long in-flight requests get to finish.
const shutdownTimeout = 10 * time.Second

// serve runs h on ln and the background jobs until ctx is cancelled, then
// drains the server. Request contexts derive from ctx, so open event
// streams end as soon as shutdown begins.
func serve(ctx context.Context, ln net.Listener, h http.Handler, jobs ...func(context.Context)) error {
	g, gctx := errgroup.WithContext(ctx)
	httpServer := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return gctx },
	}

	g.Go(func() error {
		if err := httpServer.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	for _, job := range jobs {
		g.Go(func() error {
			job(gctx)
			return nil
		})
	}
	return g.Wait()
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		ctx, cancel := context.WithCancel(context.Background())
		stopped := make(chan struct{})

		hooks.OnStart(func() {
			defer close(stopped)
			srv := mustServer(opts)

			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("nyc-dob-map server starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Data:    %s\n", opts.DataDir)
			fmt.Println()
			fmt.Printf("  Map:     %s/viewer\n", baseURL)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Printf("  Metrics: %s/metrics\n", baseURL)
			fmt.Println()

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				zap.L().Fatal("listen", zap.String("addr", addr), zap.Error(err))
			}
			views := srv.Services().Views
			err = serve(ctx, ln, srv, func(ctx context.Context) { views.Run(ctx, 0) })
			if cerr := srv.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				zap.L().Fatal("server error", zap.Error(err))
			}
		})

		hooks.OnStop(func() {
			cancel()
			<-stopped
		})
	})

	cli.Root().Use = "dobmap"
	cli.Root().Short = "Map of active NYC Department of Buildings complaints"
	cli.Root().Version = "0.1.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv := mustServer(opts)
			defer srv.Close()
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")
			if !useYAML {
				printJSON(spec)
				return
			}
			output, err := yaml.Marshal(spec)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling spec: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// style subcommand: print a variant's style document
	styleCmd := &cobra.Command{
		Use:   "style <variant>",
		Short: "Print the MapLibre style document of a map variant",
		Args:  cobra.ExactArgs(1),
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv := mustServer(opts)
			defer srv.Close()
			base, _ := cmd.Flags().GetString("base-url")
			bare, _ := cmd.Flags().GetBool("basemap-only")

			doc, err := srv.Services().Maps.Style(args[0], base, !bare)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			printJSON(doc)
		}),
	}
	styleCmd.Flags().String("base-url", "http://localhost:8086", "Origin the tile archives are served from")
	styleCmd.Flags().Bool("basemap-only", false, "Leave out the complaint layers")
	cli.Root().AddCommand(styleCmd)

	// tiles build subcommand: roll an export up per building and tile it
	tilesCmd := &cobra.Command{
		Use:   "tiles",
		Short: "Manage tile archives",
	}
	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Build a PMTiles archive from a complaint export under <data-dir>/sources",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv := mustServer(opts)
			defer srv.Close()

			var gen service.GenerateOptions
			gen.Source, _ = cmd.Flags().GetString("source")
			gen.Output, _ = cmd.Flags().GetString("output")
			gen.Engine, _ = cmd.Flags().GetString("engine")
			gen.Layer, _ = cmd.Flags().GetString("layer")
			gen.MinZoom, _ = cmd.Flags().GetInt("min-zoom")
			gen.MaxZoom, _ = cmd.Flags().GetInt("max-zoom")
			gen.Limit, _ = cmd.Flags().GetInt("limit")
			if cmd.Flags().Changed("all") {
				all, _ := cmd.Flags().GetBool("all")
				active := !all
				gen.ActiveOnly = &active
			}

			res, err := srv.Services().Tiler.Generate(cmd.Context(), gen, func(pct int, status string) {
				fmt.Fprintf(os.Stderr, "[%3d%%] %s\n", pct, status)
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			printJSON(res)
		}),
	}
	buildCmd.Flags().String("source", "", "Complaint export file name")
	buildCmd.Flags().String("output", "nyc-rollup.pmtiles", "Archive file name")
	buildCmd.Flags().String("engine", "", "Tiling engine (go or tippecanoe); configured one when empty")
	buildCmd.Flags().String("layer", "", "Vector layer name")
	buildCmd.Flags().Int("min-zoom", 0, "Minimum zoom")
	buildCmd.Flags().Int("max-zoom", 0, "Maximum zoom")
	buildCmd.Flags().Int("limit", 0, "Read at most this many records")
	buildCmd.Flags().Bool("all", false, "Include complaints that are not ACTIVE")
	_ = buildCmd.MarkFlagRequired("source")
	tilesCmd.AddCommand(buildCmd)
	cli.Root().AddCommand(tilesCmd)

	cli.Run()
}
