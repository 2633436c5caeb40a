// Command minify writes minified copies of the templates and static assets
// into a dist directory, which the server prefers in production.
package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
)

var mediaTypes = map[string]string{
	".html": "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
}

func newMinifier() *minify.M {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.Add("text/html", &html.Minifier{
		KeepDocumentTags: true,
		KeepEndTags:      true,
		KeepQuotes:       true,
		TemplateDelims:   html.GoTemplateDelims,
	})
	m.AddFunc("application/javascript", js.Minify)
	return m
}

func main() {
	out := pflag.StringP("out", "o", "dist", "output directory")
	pflag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	dirs := pflag.Args()
	if len(dirs) == 0 {
		dirs = []string{"templates", "static"}
	}

	m := newMinifier()
	for _, dir := range dirs {
		if err := minifyTree(m, dir, *out); err != nil {
			log.Fatal().Err(err).Str("dir", dir).Msg("Minification failed")
		}
	}
	log.Info().Str("out", *out).Msg("Minification complete")
}

// minifyTree mirrors srcDir below dstRoot. Files with a known media type are
// minified, everything else is copied unchanged.
func minifyTree(m *minify.M, srcDir, dstRoot string) error {
	return filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		dst := filepath.Join(dstRoot, path)
		mediaType, ok := mediaTypes[strings.ToLower(filepath.Ext(path))]
		if !ok {
			return copyFile(path, dst)
		}
		return minifyFile(m, path, dst, mediaType)
	})
}

func minifyFile(m *minify.M, srcPath, dstPath, mediaType string) error {
	src, err := os.ReadFile(srcPath)
	if err != nil {
		return err
	}

	minified, err := m.Bytes(mediaType, src)
	if err != nil {
		return fmt.Errorf("minify %s: %w", srcPath, err)
	}

	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(dstPath, minified, 0o644); err != nil {
		return err
	}

	ratio := 0.0
	if len(src) > 0 {
		ratio = float64(len(src)-len(minified)) / float64(len(src)) * 100
	}
	log.Info().
		Str("file", srcPath).
		Int("before", len(src)).
		Int("after", len(minified)).
		Msgf("%.1f%% reduction", ratio)
	return nil
}

func copyFile(srcPath, dstPath string) error {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dstPath, data, 0o644)
}
