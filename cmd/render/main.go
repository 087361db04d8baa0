package main

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/woozymasta/geojson"
	"github.com/woozymasta/geojson/internal/config"
	"github.com/woozymasta/geojson/internal/logger"
	"github.com/woozymasta/geojson/internal/render"

	"github.com/chai2010/webp"
	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	Input   string  `short:"i" long:"in"      env:"INPUT"      description:"Input GeoJSON file" required:"true"`
	Output  string  `short:"o" long:"out"     env:"OUTPUT"     description:"Output image path (.webp or .png)" required:"true"`
	Style   string  `short:"c" long:"style"   env:"STYLE_FILE" description:"Path to YAML style configuration"`
	Width   int     `short:"W" long:"width"   description:"Override image width"`
	Height  int     `short:"H" long:"height"  description:"Override image height"`
	Quality float32 `short:"q" long:"quality" description:"WebP encoding quality" default:"90"`
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

	style := config.Default()
	if opts.Style != "" {
		var err error
		if style, err = config.Load(opts.Style); err != nil {
			log.Fatal().Err(err).Str("path", opts.Style).Msg("Failed to load style configuration")
		}
	}
	if opts.Width > 0 {
		style.Width = opts.Width
	}
	if opts.Height > 0 {
		style.Height = opts.Height
	}

	fc, err := geojson.Load(opts.Input, nil)
	if err != nil {
		log.Fatal().Err(err).Str("path", opts.Input).Msg("Failed to load GeoJSON file")
	}

	log.Info().
		Str("path", opts.Input).
		Int("features", fc.Len()).
		Int("width", style.Width).
		Int("height", style.Height).
		Msg("Rendering feature collection")

	img, err := render.Collection(fc, style)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to render feature collection")
	}

	if err := writeImage(opts.Output, img, opts.Quality); err != nil {
		log.Fatal().Err(err).Str("path", opts.Output).Msg("Failed to write image")
	}

	log.Info().Str("path", opts.Output).Msg("Image saved")
}

func writeImage(path string, img image.Image, quality float32) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		err = png.Encode(f, img)
	default:
		err = webp.Encode(f, img, &webp.Options{Quality: quality})
	}
	if err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}
