package compile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gosimple/slug"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"bec/config"
	"bec/misc"
	"bec/state"
	"bec/styles"
)

// Run implements the compile subcommand: compiles a single fragment file or
// every fragment under a directory into mail-ready documents.
func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("compile")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	src, err = filepath.Abs(src)
	if err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	env.NoDirs, env.Overwrite = cmd.Bool("nodirs"), cmd.Bool("overwrite")

	if env.Styles, err = styles.Load(env.Cfg.Document.StylesheetPath, env.Cfg.Document.HeadStylesheetPath); err != nil {
		return fmt.Errorf("unable to load stylesheets: %w", err)
	}

	var inliner Inliner = nopInliner{}
	if env.Cfg.Document.InlineStyles {
		inliner = NewInliner(log)
	}
	var generator string
	if env.Cfg.Document.GeneratorComment {
		generator = misc.GetAppName() + " " + misc.GetVersion()
	}
	compiler := NewCompiler(env.Styles, inliner, generator, env.Rpt, log)

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	fi, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("input source was not found (%s): %w", src, err)
	}
	if fi.Mode().IsDir() {
		return processDir(ctx, compiler, src, dst, env, log)
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("unexpected path mode for (%s)", src)
	}
	return processFile(compiler, src, filepath.Base(src), dst, env, log)
}

func isFragmentFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return true
	}
	return false
}

// processDir walks the directory tree finding fragment files and compiles
// them. Per-file failures are logged and aggregated, processing continues.
func processDir(ctx context.Context, compiler *Compiler, dir, dst string, env *state.LocalEnv, log *zap.Logger) error {
	var errs error
	count := 0

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		if !isFragmentFile(path) {
			log.Debug("Skipping file, not recognized as fragment", zap.String("file", path))
			return nil
		}

		count++

		rel := strings.TrimPrefix(strings.TrimPrefix(path, dir), string(filepath.Separator))
		if err := processFile(compiler, path, rel, dst, env, log); err != nil {
			log.Error("Unable to process file", zap.String("file", path), zap.Error(err))
			errs = multierr.Append(errs, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if count == 0 {
		log.Debug("Nothing to process", zap.String("dir", dir))
	}
	return errs
}

// processFile compiles a single fragment. src is the relative source path
// (always including the file name) used to derive the output location.
func processFile(compiler *Compiler, path, src, dst string, env *state.LocalEnv, log *zap.Logger) error {
	log.Info("Compilation starting", zap.String("from", src))

	outputName := buildOutputPath(src, dst, env)
	defer func(start time.Time) {
		log.Info("Compilation completed", zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName))
	}(time.Now())

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("unable to read fragment (%s): %w", src, err)
	}
	env.Rpt.Store("source-"+filepath.Base(path), path)

	out, err := compiler.Compile(string(data))
	if err != nil {
		return fmt.Errorf("unable to compile fragment (%s): %w", src, err)
	}

	if _, err := os.Stat(outputName); err == nil {
		if !env.Overwrite {
			return fmt.Errorf("output file already exists: %s", outputName)
		}
		log.Warn("Overwriting existing file", zap.String("file", outputName))
	} else if !os.IsNotExist(err) {
		return err
	} else if err := os.MkdirAll(filepath.Dir(outputName), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}
	if err := os.WriteFile(outputName, []byte(out), 0644); err != nil {
		return fmt.Errorf("unable to write output: %w", err)
	}
	return nil
}

// buildOutputPath derives the output file path from the relative source
// path, keeping the source directory structure unless nodirs was requested.
func buildOutputPath(src, dst string, env *state.LocalEnv) string {
	outDir := dst
	if !env.NoDirs {
		outDir = filepath.Join(dst, filepath.Dir(src))
	}
	baseName := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	if env.Cfg.Document.OutputNameSlugify {
		baseName = slug.Make(baseName)
	}
	return filepath.Join(outDir, config.CleanFileName(baseName)+".html")
}
