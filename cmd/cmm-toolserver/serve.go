// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/pdiddy/cmm-toolserver/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the tool server",
	Long: `Serve runs the MCP tool server over the selected transport. The stdio
transport speaks the protocol on stdin/stdout for a single client; the http
transport serves the streamable HTTP handler for many.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger(cmd)

		reg, err := buildRegistry(cmd, log)
		if err != nil {
			return err
		}
		srv := server.New(reg, "cmm-toolserver", version, log)

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		transport, _ := cmd.Flags().GetString("transport")
		switch transport {
		case "stdio":
			log.Info().Int("tools", len(reg.Descriptors())).Msg("serving on stdio")
			return srv.Run(ctx, &mcp.StdioTransport{})

		case "http":
			port, _ := cmd.Flags().GetInt("port")
			addr := fmt.Sprintf(":%d", port)
			handler := mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
				return srv
			}, nil)

			httpSrv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-ctx.Done()
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				_ = httpSrv.Shutdown(shutdownCtx)
			}()

			log.Info().Str("addr", addr).Int("tools", len(reg.Descriptors())).Msg("serving over http")
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil

		default:
			return fmt.Errorf("unknown transport %q (use stdio or http)", transport)
		}
	},
}

func init() {
	serveCmd.Flags().String("transport", "stdio", "transport: stdio or http")
	serveCmd.Flags().Int("port", 8080, "HTTP port (http transport only)")

	rootCmd.AddCommand(serveCmd)
}
