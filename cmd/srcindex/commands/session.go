// Package commands implements CLI command handlers for srcindex.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/Sumatoshi-tech/srcindex/internal/config"
	"github.com/Sumatoshi-tech/srcindex/internal/depot"
	"github.com/Sumatoshi-tech/srcindex/internal/indexer"
	"github.com/Sumatoshi-tech/srcindex/internal/observability"
	"github.com/Sumatoshi-tech/srcindex/internal/pdbstr"
	"github.com/Sumatoshi-tech/srcindex/internal/perforce"
	"github.com/Sumatoshi-tech/srcindex/internal/srctool"
	"github.com/Sumatoshi-tech/srcindex/internal/toolchain"
	"github.com/Sumatoshi-tech/srcindex/pkg/process"
	"github.com/Sumatoshi-tech/srcindex/pkg/version"
)

// Deps are the environment seams of the commands. Zero fields use the real environment.
type Deps struct {
	// Runner launches srctool, pdbstr and p4. Nil means process.NewExec.
	Runner process.Runner

	// Locate finds the support tools. Nil means toolchain.Locate.
	Locate func(toolchain.Options) (toolchain.Tools, error)

	// Getwd returns the folder symbol files are searched from. Nil means os.Getwd.
	Getwd func() (string, error)

	// Now stamps generated streams. Nil means time.Now.
	Now func() time.Time

	// PublishLogger receives the session logger once it is built. NewRootCommand
	// installs it as the slog default, so the panic handler in main logs through it.
	PublishLogger func(*slog.Logger)
}

func (d Deps) withDefaults(logger *slog.Logger) Deps {
	if d.Runner == nil {
		d.Runner = process.NewExec(logger)
	}

	if d.Locate == nil {
		d.Locate = toolchain.Locate
	}

	if d.Getwd == nil {
		d.Getwd = os.Getwd
	}

	if d.Now == nil {
		d.Now = time.Now
	}

	return d
}

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	verbose    bool
	noColor    bool
	logJSON    bool
}

// session is the validated environment a command works in.
type session struct {
	cfg       *config.Config
	providers observability.Providers
	logger    *slog.Logger
	deps      Deps
	workDir   string
	tools     toolchain.Tools
	injector  *pdbstr.Injector
	client    *perforce.Client
	pipeline  *indexer.Pipeline
}

// openSession loads configuration, starts telemetry and locates the tools.
// Perforce is only contacted by connect.
func openSession(flags globalFlags, mode observability.AppMode, logOutput io.Writer, deps Deps) (*session, error) {
	cfg, err := config.LoadConfig(flags.configPath)
	if err != nil {
		return nil, err
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Mode = mode
	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obsCfg.MetricsTextfile = cfg.Telemetry.MetricsTextfile
	obsCfg.LogLevel = cfg.Logging.SlogLevel()
	obsCfg.LogJSON = cfg.Logging.JSON || flags.logJSON
	obsCfg.NoColor = flags.noColor
	obsCfg.LogOutput = logOutput

	if flags.verbose {
		obsCfg.LogLevel = slog.LevelDebug
	}

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	s := &session{cfg: cfg, providers: providers, logger: providers.Logger}
	s.deps = deps.withDefaults(s.logger)

	if s.deps.PublishLogger != nil {
		s.deps.PublishLogger(s.logger)
	}

	s.workDir, err = s.deps.Getwd()
	if err != nil {
		s.close()

		return nil, fmt.Errorf("working directory: %w", err)
	}

	s.tools, err = s.deps.Locate(toolchain.Options{
		SDKDir:  cfg.Tools.SDKDir,
		SrcTool: cfg.Tools.SrcTool,
		PdbStr:  cfg.Tools.PdbStr,
	})
	if err != nil {
		s.logger.Error("... failed to validate environment.", "error", err)
		s.close()

		return nil, err
	}

	s.logger.Debug("... found support tools", "srctool", s.tools.SrcTool, "pdbstr", s.tools.PdbStr)

	s.injector = pdbstr.NewInjector(s.deps.Runner, s.tools.PdbStr, s.logger)
	s.injector.Timeout = cfg.Tools.Timeout
	s.injector.StreamExt = cfg.Stream.Extension
	s.injector.KeepStream = cfg.Stream.KeepTemp

	return s, nil
}

// connect opens the Perforce workspace containing the working directory and
// assembles the pipeline around it.
func (s *session) connect(ctx context.Context) error {
	fileSettings, path, err := perforce.LoadP4Config(s.workDir, s.cfg.Perforce.ConfigFile)
	if err != nil {
		return err
	}

	if path != "" {
		s.logger.DebugContext(ctx, "... read perforce settings", "path", path)
	}

	settings := fileSettings.Merge(perforce.Settings{
		Port:   s.cfg.Perforce.Port,
		User:   s.cfg.Perforce.User,
		Client: s.cfg.Perforce.Client,
		Host:   s.cfg.Perforce.Host,
	})

	s.client = perforce.NewClient(s.deps.Runner, s.cfg.Perforce.Executable, settings, s.logger)
	s.client.Timeout = s.cfg.Perforce.Timeout

	err = perforce.Open(ctx, s.client, s.workDir)
	if err != nil {
		s.logger.ErrorContext(ctx, fmt.Sprintf("... failed to connect to Perforce server %s.", s.client.Settings))

		return err
	}

	s.logger.InfoContext(ctx, fmt.Sprintf("... running from: %s with client root: %s", s.workDir, s.client.WorkspaceRoot()))

	extractor := srctool.NewExtractor(s.deps.Runner, s.tools.SrcTool, s.logger)
	extractor.Timeout = s.cfg.Tools.Timeout

	resolver := depot.NewResolver(s.client, s.logger)
	resolver.BatchSize = s.cfg.Perforce.BatchSize

	metrics, err := observability.NewIndexMetrics(s.providers.Meter)
	if err != nil {
		return fmt.Errorf("create metrics: %w", err)
	}

	s.pipeline = &indexer.Pipeline{
		Extractor: extractor,
		Resolver:  resolver,
		Injector:  s.injector,
		Conn:      s.client,
		Stream: indexer.StreamOptions{
			Extension:      s.cfg.Stream.Extension,
			VersionControl: s.cfg.Stream.VCS,
			FetchTool:      s.cfg.Stream.FetchTool,
			KeepStream:     s.injector.KeepStream,
		},
		Logger:  s.logger,
		Metrics: metrics,
		Tracer:  s.providers.Tracer,
		Clock:   s.deps.Now,
	}

	return nil
}

// close disconnects and flushes telemetry.
func (s *session) close() {
	if s.client != nil {
		s.client.Disconnect()
	}

	shutdownErr := s.providers.Shutdown(context.Background())
	if shutdownErr != nil {
		s.logger.Warn("observability shutdown failed", "error", shutdownErr)
	}
}
