package main

import (
	"os"

	"github.com/woozymasta/geojson"
	"github.com/woozymasta/geojson/internal/logger"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	Input       string `short:"i" long:"in"           env:"INPUT"  description:"Input GeoJSON file" required:"true"`
	Output      string `short:"o" long:"out"          env:"OUTPUT" description:"Write the validated document to this path"`
	Indent      string `long:"indent"                 description:"Indent the output with this string"`
	Strict      bool   `short:"s" long:"strict"       description:"Disable the auto-repair pass, fail on any defect"`
	SkipInvalid bool   `short:"k" long:"skip-invalid" description:"Drop features that fail validation instead of failing"`
	AddIDs      bool   `long:"add-ids"                description:"Assign sequential unique id properties to all features"`
	AddBBoxes   bool   `long:"add-bboxes"             description:"Store a bbox on every feature geometry"`
	Minify      bool   `short:"m" long:"minify"       description:"Minify the JSON output"`
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

	fc, err := geojson.Load(opts.Input, &geojson.Options{
		Strict:      opts.Strict,
		SkipInvalid: opts.SkipInvalid,
	})
	if err != nil {
		log.Fatal().Err(err).Str("path", opts.Input).Msg("Failed to load GeoJSON file")
	}

	event := log.Info().
		Str("path", opts.Input).
		Int("features", fc.Len()).
		Strs("attributes", fc.AllAttributes())
	if bbox, err := fc.BBox(); err == nil {
		event = event.Floats64("bbox", bbox)
	}
	event.Msg("Document is valid")

	if crs, err := fc.CRS(); err != nil {
		log.Warn().Err(err).Msg("Document has an invalid crs descriptor")
	} else {
		log.Debug().Interface("crs", crs).Msg("Coordinate reference system")
	}

	if opts.AddIDs {
		if err := fc.AddUniqueID(); err != nil {
			log.Fatal().Err(err).Msg("Failed to assign unique ids")
		}
		log.Info().Msg("Assigned sequential id properties")
	}

	if opts.AddBBoxes {
		if err := fc.AddAllBBoxes(); err != nil {
			log.Fatal().Err(err).Msg("Failed to compute feature bboxes")
		}
		log.Info().Msg("Stored a bbox on every feature geometry")
	}

	if opts.Output == "" {
		return
	}

	err = fc.Save(opts.Output, &geojson.SaveOptions{
		Indent: opts.Indent,
		Minify: opts.Minify,
	})
	if err != nil {
		log.Fatal().Err(err).Str("path", opts.Output).Msg("Failed to save document")
	}

	log.Info().Str("path", opts.Output).Msg("Document saved")
}
