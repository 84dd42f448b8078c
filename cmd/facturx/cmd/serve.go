package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/facturx/internal/logging"
	"github.com/rezonia/facturx/internal/server"
)

var (
	serverAddr   string
	serverDebug  bool
	readTimeout  time.Duration
	writeTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP API server for Factur-X operations.

The API provides endpoints for:
  - POST /api/v1/xml       - Generate CII XML from an invoice
  - POST /api/v1/validate  - Validate CII XML against a profile
  - POST /api/v1/artifact  - Build the full PDF/A-3 artifact
  - POST /api/v1/check     - Check a PDF for compliance
  - GET  /health           - Health check and converter status

Examples:
  # Start server on default port
  facturx serve

  # Start on custom port with an explicit Ghostscript path
  facturx serve --address :9090 --gs-path /opt/gs/bin/gs

  # Start in debug mode
  facturx serve --debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverAddr, "address", ":8080", "Server listen address")
	serveCmd.Flags().BoolVar(&serverDebug, "debug", false, "Enable debug mode")
	serveCmd.Flags().DurationVar(&readTimeout, "read-timeout", 30*time.Second, "HTTP read timeout")
	serveCmd.Flags().DurationVar(&writeTimeout, "write-timeout", 5*time.Minute, "HTTP write timeout")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logging.New(logging.Config{Console: serverDebug, Level: logLevel})

	config := &server.Config{
		Address:         serverAddr,
		GhostscriptPath: gsPath,
		ConvertTimeout:  convertTimeout,
		ReadTimeout:     readTimeout,
		WriteTimeout:    writeTimeout,
		Debug:           serverDebug,
		Logger:          log,
	}

	srv := server.NewServer(config)

	// Handle graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		fmt.Println("\nShutting down server...")
		os.Exit(0)
	}()

	fmt.Printf("Starting server on %s\n", serverAddr)
	return srv.Run()
}
