package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/LeoAKALiu/BlenderProc/internal/config"
	"github.com/LeoAKALiu/BlenderProc/internal/logging"
	"github.com/LeoAKALiu/BlenderProc/internal/server"
	"github.com/LeoAKALiu/BlenderProc/pkg/texture"
)

// app carries the settings and logger shared by every command.
type app struct {
	configDir string
	logLevel  string

	settings *config.Settings
	log      zerolog.Logger
	// textures is shared by every image of a run.
	textures *texture.Cache
}

func main() {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "pilegen",
		Short:         "Pile layout and label generator for synthetic solar-farm imagery",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.configDir, "config", ".", "directory holding pilegen.yaml")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(layoutCmd(a))
	rootCmd.AddCommand(annotateCmd(a))
	rootCmd.AddCommand(validateCmd(a))
	rootCmd.AddCommand(previewCmd(a))
	rootCmd.AddCommand(texturesCmd(a))
	rootCmd.AddCommand(serveCmd(a))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func (a *app) init(cmd *cobra.Command) error {
	s, err := config.Load(a.configDir)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		s.LogLevel = a.logLevel
	}
	a.settings = s
	a.log = logging.New(os.Stderr, s.LogLevel)
	if a.textures == nil {
		a.textures = texture.NewCache(afero.NewOsFs())
	}
	return nil
}

// baseSeed applies a --seed flag over the configured base seed.
func (a *app) baseSeed(cmd *cobra.Command, flag int64) *int64 {
	if cmd.Flags().Changed("seed") {
		return &flag
	}
	return a.settings.BaseSeed()
}

func layoutCmd(a *app) *cobra.Command {
	var o layoutOptions

	cmd := &cobra.Command{
		Use:   "layout [project-path]",
		Short: "Generate pile layouts and print or write their manifests",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o.baseSeed = a.baseSeed(cmd, o.seed)
			return runLayout(a, args[0], o)
		},
	}

	cmd.Flags().IntVarP(&o.index, "index", "i", 0, "first image index")
	cmd.Flags().IntVarP(&o.count, "count", "n", 1, "number of consecutive images")
	cmd.Flags().Int64Var(&o.seed, "seed", 0, "base seed (defaults to the configured seed)")
	cmd.Flags().StringVarP(&o.out, "out", "o", "", "output file for a single image (default stdout)")
	cmd.Flags().StringVar(&o.db, "db", "", "SQLite run history (defaults to db.path)")
	return cmd
}

func annotateCmd(a *app) *cobra.Command {
	var o annotateOptions

	cmd := &cobra.Command{
		Use:   "annotate [frame.json]",
		Short: "Derive YOLO labels from a rendered frame export",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runAnnotate(a, args[0], o)
		},
	}

	cmd.Flags().IntVarP(&o.index, "index", "i", 0, "image index, names the label file")
	cmd.Flags().StringVar(&o.labels, "labels", "", "labels directory (default <outputDir>/labels)")
	cmd.Flags().IntVar(&o.width, "width", 0, "image width in pixels (default from the frame)")
	cmd.Flags().IntVar(&o.height, "height", 0, "image height in pixels (default from the frame)")
	cmd.Flags().IntVar(&o.category, "category", 0, "category id to label")
	cmd.Flags().Float64Var(&o.minBox, "min-box", 0, "minimum normalized box size (default 0.005)")
	return cmd
}

func validateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [project-path]",
		Short: "Validate a site spec and a trial layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runValidate(a, args[0])
		},
	}
}

func previewCmd(a *app) *cobra.Command {
	var (
		index int
		out   string
	)

	cmd := &cobra.Command{
		Use:   "preview [project-path]",
		Short: "Render a top-down PNG of one layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runPreview(a, args[0], index, out)
		},
	}

	cmd.Flags().IntVarP(&index, "index", "i", 0, "image index")
	cmd.Flags().StringVarP(&out, "out", "o", "preview.png", "output PNG path")
	return cmd
}

func texturesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "textures [asset-dir]",
		Short: "List the texture sets found in an asset library",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			root := a.settings.Assets.Path
			if len(args) == 1 {
				root = args[0]
			}
			return runTextures(afero.NewOsFs(), root)
		},
	}
}

func serveCmd(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve [project-path]",
		Short: "Start the local dev server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("port") {
				port = a.settings.Server.Port
			}
			st, err := a.openStore("")
			if err != nil {
				return err
			}
			if st != nil {
				defer st.Close()
			}
			srv := server.New(server.Options{
				ProjectPath: args[0],
				Port:        port,
				BaseSeed:    a.settings.BaseSeed(),
				OutputDir:   a.settings.OutputDir,
				AssetsPath:  a.settings.Assets.Path,
				Store:       st,
				Textures:    a.textures,
				Log:         a.log,
			})
			return srv.Start()
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 3000, "HTTP server port")
	return cmd
}
