package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/tomazk/envcfg"
	"go.uber.org/zap"

	"ssdpd/pkg/logging"
	"ssdpd/pkg/runner"
)

// Cfg contains the environment variable-based configuration settings,
// applied after flag parsing: any variable that is set and non-empty
// overrides the corresponding flag value.
type Cfg struct {
	USN            string `envcfg:"SSDPD_USN"`
	DescriptionURL string `envcfg:"SSDPD_DESCRIPTION_URL"`
	ServerString   string `envcfg:"SSDPD_SERVER_STRING"`
}

var (
	environ Cfg

	usnFlag            string
	descriptionURLFlag string
	serverStringFlag   string
	notifyIntervalFlag time.Duration
	logLevelFlag       string

	slog *zap.SugaredLogger
)

func run(cmd *cobra.Command, args []string) error {
	var log *zap.Logger
	var err error
	log, slog, err = logging.Setup("ssdpd", logLevelFlag)
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	defer log.Sync()

	if err := envcfg.Unmarshal(&environ); err != nil {
		slog.Fatalw("failed environment configuration", "error", err)
	}
	if environ.USN != "" {
		usnFlag = environ.USN
	}
	if environ.DescriptionURL != "" {
		descriptionURLFlag = environ.DescriptionURL
	}
	if environ.ServerString != "" {
		serverStringFlag = environ.ServerString
	}

	if usnFlag == "" {
		usnFlag = "uuid:" + uuid.New().String()
	}
	if descriptionURLFlag == "" {
		slog.Fatalw("--description-url is required")
	}

	slog.Infow("ssdpd starting",
		"usn", usnFlag, "description_url", descriptionURLFlag,
		"notify_interval", notifyIntervalFlag)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := runner.Config{
		USN:            usnFlag,
		DescriptionURL: descriptionURLFlag,
		ServerString:   serverStringFlag,
		NotifyInterval: notifyIntervalFlag,
	}

	r, err := runner.New(ctx, cfg, slog)
	if err != nil {
		slog.Fatalw("failed to bind SSDP sockets", "error", err)
	}

	return r.RunForever(ctx)
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "ssdpd",
		Short: "SSDP responder/advertiser for a UPnP MediaServer",
		RunE:  run,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&usnFlag, "usn", "", "unique service name (uuid:... generated if empty)")
	flags.StringVar(&descriptionURLFlag, "description-url", "", "absolute URL of the device description document")
	flags.StringVar(&serverStringFlag, "server-string", "Go/ssdpd UPnP/1.1 MediaServer/1", "Server header value advertised in replies")
	flags.DurationVar(&notifyIntervalFlag, "notify-interval", 75*time.Second, "interval between ssdp:alive NOTIFY passes")
	flags.StringVar(&logLevelFlag, "log-level", "info", "log level [debug,info,warn,error]")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
