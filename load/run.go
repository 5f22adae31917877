// Package load implements program actions: loading 835 interchanges into
// SQLite databases and inspecting their loop structure.
package load

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"github.com/maruel/natural"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"

	"edi835/archive"
	"edi835/remit"
	"edi835/state"
	"edi835/store"
)

// fileFunc handles single recognized input. "src" is the source path
// relative to what was requested: base name for a single file, path inside
// directory or archive otherwise.
type fileFunc func(ctx context.Context, r io.Reader, src string, log *zap.Logger) error

// Run is the "load" action.
func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Logger("load")

	src, err := sourceArg(cmd)
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
	setupCharsets(env, cmd, log)

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return process(ctx, src, func(ctx context.Context, r io.Reader, src string, log *zap.Logger) error {
		return loadFile(ctx, r, src, dst, log)
	}, log)
}

func sourceArg(cmd *cli.Command) (string, error) {
	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return "", errors.New("no input source has been specified")
	}
	return filepath.Abs(src)
}

// setupCharsets resolves character set names requested on command line.
// Unknown names are ignored with warning.
func setupCharsets(env *state.LocalEnv, cmd *cli.Command, log *zap.Logger) {
	lookup := func(flag string) encoding.Encoding {
		name := cmd.String(flag)
		if len(name) == 0 {
			return nil
		}
		enc, err := ianaindex.IANA.Encoding(name)
		if err != nil || enc == nil {
			log.Warn("Unknown character set specification. Ignoring...", zap.String("charset", name), zap.Error(err))
			return nil
		}
		n, _ := ianaindex.IANA.Name(enc)
		log.Debug("Using character set", zap.String("flag", flag), zap.String("charset", n))
		return enc
	}
	// zip does not define file name encoding, old archives may need help
	env.CodePage = lookup("force-zip-cp")
	env.Charset = lookup("charset")
}

// process finds out what source is: directory, archive (possibly with path
// inside it) or single interchange file, and hands every interchange found
// to fn.
func process(ctx context.Context, src string, fn fileFunc, log *zap.Logger) error {
	env := state.EnvFromContext(ctx)

	var head, tail string
	for head = src; len(head) != 0; head, tail = filepath.Split(head) {
		if err := ctx.Err(); err != nil {
			return err
		}

		head = strings.TrimSuffix(head, string(filepath.Separator))

		fi, err := os.Stat(head)
		if err != nil {
			// does not exist, probably path in archive
			continue
		}

		if fi.Mode().IsDir() {
			if len(tail) != 0 {
				return fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
			}
			if err := processDir(ctx, head, fn, log); err != nil {
				return fmt.Errorf("unable to process directory: %w", err)
			}
			break
		}

		if !fi.Mode().IsRegular() {
			return fmt.Errorf("unexpected path mode for (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}

		arc, err := isArchiveFile(head)
		if err != nil {
			return fmt.Errorf("unable to check archive type: %w", err)
		}
		if arc {
			tail = filepath.ToSlash(strings.TrimPrefix(strings.TrimPrefix(src, head), string(filepath.Separator)))
			if err := processArchive(ctx, head, tail, "", fn, log); err != nil {
				return fmt.Errorf("unable to process archive: %w", err)
			}
			break
		}

		ok, enc, err := isInterchangeFile(head, env.Charset)
		if err != nil {
			return fmt.Errorf("unable to check file type: %w", err)
		}
		if !ok || len(tail) != 0 {
			return fmt.Errorf("input was not recognized as X12 interchange (%s)", head)
		}

		file, err := os.Open(head)
		if err != nil {
			return err
		}
		defer file.Close()
		return fn(ctx, selectReader(file, enc, env.Charset), filepath.Base(head), log)
	}
	if len(head) == 0 {
		return fmt.Errorf("input source was not found (%s)", src)
	}
	return nil
}

// processDir walks directory tree handing every interchange and archive
// found to fn. Failures are logged and do not stop the walk.
func processDir(ctx context.Context, dir string, fn fileFunc, log *zap.Logger) (err error) {
	env := state.EnvFromContext(ctx)

	count := 0
	defer func() {
		if err == nil && count == 0 {
			log.Debug("Nothing to process", zap.String("dir", dir))
		}
	}()

	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
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

		arc, err := isArchiveFile(path)
		if err != nil {
			log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			return nil
		}
		if arc {
			count++
			if err := processArchive(ctx, path, "", filepath.Dir(strings.TrimPrefix(path, dir)), fn, log); err != nil {
				log.Error("Unable to process archive", zap.String("file", path), zap.Error(err))
			}
			return nil
		}

		ok, enc, err := isInterchangeFile(path, env.Charset)
		if err != nil {
			log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			return nil
		}
		if !ok {
			log.Debug("Skipping file, not recognized as interchange or archive", zap.String("file", path))
			return nil
		}

		count++

		file, err := os.Open(path)
		if err != nil {
			log.Error("Unable to process file", zap.String("file", path), zap.Error(err))
			return nil
		}
		defer file.Close()

		src := strings.TrimPrefix(strings.TrimPrefix(path, dir), string(filepath.Separator))
		if err := fn(ctx, selectReader(file, enc, env.Charset), src, log); err != nil {
			log.Error("Unable to process file", zap.String("file", path), zap.Error(err))
		}
		return nil
	})
}

// processArchive hands every interchange inside archive under "pathIn" to
// fn, "pathOut" is prepended to names inside archive.
func processArchive(ctx context.Context, path, pathIn, pathOut string, fn fileFunc, log *zap.Logger) (err error) {
	env := state.EnvFromContext(ctx)

	count := 0
	defer func() {
		if err == nil && count == 0 {
			log.Debug("Nothing to process", zap.String("archive", path))
		}
	}()

	return archive.Walk(ctx, path, pathIn, env.CodePage, func(name string, f *zip.File) error {
		ok, enc, err := isInterchangeInArchive(f, env.Charset)
		if err != nil {
			log.Warn("Skipping file in archive", zap.String("archive", path), zap.String("file", name), zap.Error(err))
			return nil
		}
		if !ok {
			log.Debug("Skipping file, not recognized as interchange", zap.String("archive", path), zap.String("file", name))
			return nil
		}

		count++

		r, err := f.Open()
		if err != nil {
			log.Error("Unable to process file in archive", zap.String("archive", path), zap.String("file", name), zap.Error(err))
			return nil
		}
		defer r.Close()

		if err := fn(ctx, selectReader(r, enc, env.Charset), filepath.Join(pathOut, filepath.FromSlash(name)), log); err != nil {
			log.Error("Unable to process file in archive", zap.String("archive", path), zap.String("file", name), zap.Error(err))
		}
		return nil
	})
}

// loadFile loads single interchange into its own database under dst.
func loadFile(ctx context.Context, r io.Reader, src, dst string, log *zap.Logger) (rerr error) {
	env := state.EnvFromContext(ctx)

	var outputName string
	var loaded int

	log.Info("Loading starting", zap.String("from", src))
	defer func(start time.Time) {
		if r := recover(); r != nil {
			log.Error("Loading ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("loading panic: %v", r)
		} else {
			log.Info("Loading completed", zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName), zap.Int("transactions", loaded))
		}
	}(time.Now())

	ic, err := readInterchange(r)
	if err != nil {
		return fmt.Errorf("unable to read interchange (%s): %w", src, err)
	}

	name := filepath.Base(src)
	outputName = buildOutputPath(ic.values(strings.TrimSuffix(name, filepath.Ext(name)), filepath.Ext(name)), src, dst, env)

	if _, err := os.Stat(outputName); err == nil {
		if !env.Overwrite {
			return fmt.Errorf("output file already exists: %s", outputName)
		}
		log.Warn("Overwriting existing file", zap.String("file", outputName))
		if err := removeDatabase(outputName); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return err
	} else if err := os.MkdirAll(filepath.Dir(outputName), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	st, err := store.Open(outputName,
		store.WithLogger(env.Logger("store")),
		store.WithSource(src),
		store.WithJournalMode(env.Cfg.Store.JournalMode),
		store.WithForeignKeys(env.Cfg.Store.ForeignKeys),
	)
	if err != nil {
		return fmt.Errorf("unable to open database: %w", err)
	}
	// closed on every way out, database is copied into report only after that
	defer func() {
		if cerr := st.Close(); cerr != nil {
			rerr = multierr.Append(rerr, fmt.Errorf("unable to close database: %w", cerr))
			return
		}
		if env.Rpt != nil {
			rerr = multierr.Append(rerr, env.Rpt.StoreCopy(fmt.Sprintf("result-%s", filepath.Base(outputName)), outputName))
		}
	}()

	base := ic.baseState(env.Cfg.Parser.RepetitionSeparator, env.Cfg.Parser.ComponentSeparator)
	obs := remit.LogObserver(env.Logger("remit"), env.Cfg.Parser.TraceTransitions)

	if loaded, err = dispatch(ctx, ic, st, base, obs, log); err != nil {
		return err
	}
	return logSummary(st, log)
}

// removeDatabase deletes database with its journal files.
func removeDatabase(name string) error {
	if err := os.Remove(name); err != nil {
		return err
	}
	for _, suffix := range []string{"-wal", "-shm", "-journal"} {
		if err := os.Remove(name + suffix); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func logSummary(st *store.Store, log *zap.Logger) error {
	counts, err := st.Counts()
	if err != nil {
		return err
	}
	tables := make([]string, 0, len(counts))
	for t, n := range counts {
		if n > 0 {
			tables = append(tables, t)
		}
	}
	sort.Sort(natural.StringSlice(tables))

	fields := make([]zap.Field, 0, len(tables)+1)
	fields = append(fields, zap.String("load_id", st.LoadID()))
	for _, t := range tables {
		fields = append(fields, zap.Int64(t, counts[t]))
	}
	log.Debug("Rows stored", fields...)
	return nil
}
