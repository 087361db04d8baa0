package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/woozymasta/geojson"
	"github.com/woozymasta/geojson/internal/logger"
	"github.com/woozymasta/geojson/internal/server"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	Dir         string `short:"d" long:"dir"          env:"DATA_DIR"       description:"Directory with GeoJSON documents" default:"."`
	Addr        string `short:"a" long:"addr"         env:"LISTEN_ADDRESS" description:"Address to listen on"             default:"0.0.0.0"`
	Port        int    `short:"p" long:"port"         env:"LISTEN_PORT"    description:"Port to listen on"                default:"8080"`
	Strict      bool   `short:"s" long:"strict"       description:"Disable the auto-repair pass when loading documents"`
	SkipInvalid bool   `short:"k" long:"skip-invalid" description:"Drop features that fail validation when loading documents"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()

	srvCtx, err := server.NewServerContext(opts.Dir, &geojson.Options{
		Strict:      opts.Strict,
		SkipInvalid: opts.SkipInvalid,
	})
	if err != nil {
		log.Fatal().Err(err).Str("dir", opts.Dir).Msg("Failed to initialize server context")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/files", srvCtx.HandleList)
	mux.HandleFunc("/files/", srvCtx.HandleDocument)

	addr := fmt.Sprintf("%s:%d", opts.Addr, opts.Port)
	log.Info().Str("addr", addr).Msg("Starting server")

	if err := http.ListenAndServe(addr, server.RequestLogger(mux)); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
