package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/docker/go-units"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/soyunomas/fdupe/internal/engine"
	"github.com/soyunomas/fdupe/internal/hasher"
	"github.com/soyunomas/fdupe/internal/logging"
	"github.com/soyunomas/fdupe/internal/report"
	"github.com/soyunomas/fdupe/internal/scanner"
)

var logger = logging.GetLogger("fdupe")

const version = "2.0.0"

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "fdupe",
		Usage:     "Busca archivos duplicados leyendo sólo lo necesario",
		Version:   version,
		ArgsUsage: "[ORIGINAL] [CHECK...]",
		Description: `Sin argumentos agrupa los duplicados del directorio actual; con uno, los
de ese directorio. Con más, busca las copias de cada archivo de ORIGINAL
dentro de los directorios CHECK.`,
		HideHelpCommand: true,
		Writer:          stdout,
		ErrWriter:       stderr,
		Flags:           flags(),
		Action: func(c *cli.Context) error {
			return run(c, stdout, stderr)
		},
	}
}

func flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "min-size",
			Value:   "1024",
			Usage:   "tamaño mínimo (1024, 10KB, 2MB...)",
			EnvVars: []string{"FDUPE_MIN_SIZE"},
		},
		&cli.StringSliceFlag{
			Name:    "exclude",
			Value:   cli.NewStringSlice(engine.DefaultExcludes...),
			Usage:   "nombres de carpetas o archivos a ignorar",
			EnvVars: []string{"FDUPE_EXCLUDE"},
		},
		&cli.IntFlag{
			Name:    "depth",
			Value:   scanner.NoLimit,
			Usage:   "profundidad máxima bajo cada raíz (-1 sin límite)",
			EnvVars: []string{"FDUPE_DEPTH"},
		},
		&cli.StringFlag{
			Name:    "keep",
			Value:   "shortest",
			Usage:   "criterio del original: shortest, longest, oldest, newest",
			EnvVars: []string{"FDUPE_KEEP"},
		},
		&cli.StringFlag{
			Name:    "algo",
			Value:   string(hasher.XXHash),
			Usage:   "algoritmo de resumen: " + strings.Join(algorithmNames(), ", "),
			EnvVars: []string{"FDUPE_ALGO"},
		},
		&cli.StringFlag{
			Name:    "strategy",
			Value:   engine.StrategyOrdered.String(),
			Usage:   "agrupación: ordered o pairwise",
			EnvVars: []string{"FDUPE_STRATEGY"},
		},
		&cli.IntFlag{
			Name:    "workers",
			Usage:   "goroutines para leer metadatos (0 = una por CPU)",
			EnvVars: []string{"FDUPE_WORKERS"},
		},
		&cli.Int64Flag{
			Name:    "max-open",
			Value:   hasher.DefaultMaxOpenFiles,
			Usage:   "archivos abiertos a la vez (-1 sin límite)",
			EnvVars: []string{"FDUPE_MAX_OPEN"},
		},
		&cli.StringFlag{
			Name:    "first-checkpoint",
			Value:   "4KiB",
			Usage:   "bytes leídos en la primera comparación de contenido",
			EnvVars: []string{"FDUPE_FIRST_CHECKPOINT"},
		},
		&cli.BoolFlag{
			Name:    "json",
			Usage:   "salida en formato JSON a stdout",
			EnvVars: []string{"FDUPE_JSON"},
		},
		&cli.StringFlag{
			Name:    "report",
			Usage:   "guarda el informe JSON en un archivo (.zst para comprimir)",
			EnvVars: []string{"FDUPE_REPORT"},
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "muestra mensajes de depuración",
		},
		&cli.BoolFlag{
			Name:    "no-color",
			Usage:   "desactiva los colores en los mensajes de log",
			EnvVars: []string{"FDUPE_NO_COLOR"},
		},
		&cli.BoolFlag{
			Name:    "quiet",
			Aliases: []string{"q"},
			Usage:   "sólo muestra errores",
		},
	}
}

func algorithmNames() []string {
	names := make([]string, len(hasher.Algorithms))
	for i, a := range hasher.Algorithms {
		names[i] = a.String()
	}
	return names
}

// roots reparte los argumentos posicionales: sin argumentos se agrupa el
// directorio actual; el primero son los originales y el resto, dónde buscar
// sus copias.
func roots(args []string) (origins, checks []string) {
	switch len(args) {
	case 0:
		return []string{"."}, nil
	case 1:
		return args, nil
	default:
		return args[:1], args[1:]
	}
}

func options(c *cli.Context) (engine.Options, error) {
	minSize, err := units.FromHumanSize(c.String("min-size"))
	if err != nil {
		return engine.Options{}, fmt.Errorf("--min-size: %w", err)
	}
	first, err := units.RAMInBytes(c.String("first-checkpoint"))
	if err != nil {
		return engine.Options{}, fmt.Errorf("--first-checkpoint: %w", err)
	}
	keep, err := engine.ParseKeepStrategy(c.String("keep"))
	if err != nil {
		return engine.Options{}, err
	}
	grouping, err := engine.ParseStrategy(c.String("strategy"))
	if err != nil {
		return engine.Options{}, err
	}
	algo, err := hasher.ParseAlgorithm(c.String("algo"))
	if err != nil {
		return engine.Options{}, err
	}

	opts := engine.Options{
		MinSize:         minSize,
		Excludes:        c.StringSlice("exclude"),
		MaxDepth:        c.Int("depth"),
		Strategy:        keep,
		Grouping:        grouping,
		Algorithm:       algo,
		FirstCheckpoint: first,
		MaxOpenFiles:    c.Int64("max-open"),
		Workers:         c.Int("workers"),
	}
	return opts, opts.Validate()
}

func run(c *cli.Context, stdout, stderr io.Writer) error {
	jsonMode := c.Bool("json")
	logging.SetOutput(stderr)
	if c.Bool("no-color") {
		logging.DisableLogColor()
	}
	switch {
	case c.Bool("verbose"):
		logging.SetLogLevel(logrus.DebugLevel)
	case c.Bool("quiet"), jsonMode:
		logging.SetLogLevel(logrus.ErrorLevel)
	default:
		logging.SetLogLevel(logrus.InfoLevel)
	}
	runID := uuid.NewString()
	logging.SetLogID(runID[:8] + " ")

	opts, err := options(c)
	if err != nil {
		return fail(stdout, err, jsonMode)
	}
	origins, checks := roots(c.Args().Slice())

	if !jsonMode && !c.Bool("quiet") {
		fmt.Fprintf(stderr, "🚀 fdupe v%s - Escaneando: %s\n", version, strings.Join(slices.Concat(origins, checks), ", "))
		fmt.Fprintf(stderr, "⚖️  Estrategia: Mantener %s\n", strings.ToUpper(opts.Strategy.String()))
		fmt.Fprintln(stderr, "------------------------------------------------")
		opts.Progress = newProgressPrinter(stderr).update
	}
	logger.Debugf("Ejecución %s con %+v", runID, opts)

	stats, err := engine.New(opts).Run(c.Context, origins, checks)
	if err != nil {
		return fail(stdout, err, jsonMode)
	}

	rep := report.Generate(stats, report.Metadata{
		RunID:        runID,
		ScannedPaths: origins,
		CheckPaths:   checks,
		Strategy:     opts.Strategy.String(),
		Grouping:     opts.Grouping.String(),
		Algorithm:    opts.Algorithm.String(),
		Timestamp:    time.Now(),
	})

	if path := c.String("report"); path != "" {
		if err := rep.WriteFile(path); err != nil {
			return fail(stdout, err, jsonMode)
		}
		logger.Infof("Informe guardado en %s", path)
	}

	if jsonMode {
		return rep.WriteJSON(stdout)
	}
	return rep.WriteText(stdout)
}

// fail devuelve err; en modo JSON además lo escribe en stdout para que la
// salida siga siendo JSON válido.
func fail(stdout io.Writer, err error, jsonMode bool) error {
	if jsonMode {
		_ = json.NewEncoder(stdout).Encode(map[string]string{"error": err.Error()})
	}
	return err
}
